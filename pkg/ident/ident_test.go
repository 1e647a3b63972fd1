package ident

import (
	"testing"

	"github.com/kilatworks/omzet/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lowercase", input: "syah", expected: "SYAH"},
		{name: "surrounding whitespace", input: "  bob  ", expected: "BOB"},
		{name: "mixed case with tab", input: "\tAlice Wong ", expected: "ALICE WONG"},
		{name: "already normalized", input: "SYAH", expected: "SYAH"},
		{name: "empty", input: "", expected: ""},
		{name: "whitespace only", input: "   ", expected: ""},
		{name: "inner whitespace preserved", input: "a  b", expected: "A  B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestReservationKeys(t *testing.T) {
	tests := []struct {
		name        string
		reservation *types.Reservation
		expected    []string
	}{
		{
			name:        "both identifiers",
			reservation: &types.Reservation{CustomerID: "bob", CustomerName: "Bob Smith"},
			expected:    []string{"BOB", "BOB SMITH"},
		},
		{
			name:        "id only",
			reservation: &types.Reservation{CustomerID: " syah "},
			expected:    []string{"SYAH"},
		},
		{
			name:        "name only",
			reservation: &types.Reservation{CustomerName: "alice"},
			expected:    []string{"ALICE"},
		},
		{
			name:        "both empty",
			reservation: &types.Reservation{},
			expected:    nil,
		},
		{
			name:        "identical after normalization",
			reservation: &types.Reservation{CustomerID: "bob", CustomerName: " BOB "},
			expected:    []string{"BOB"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys := ReservationKeys(tt.reservation)
			assert.Len(t, keys, len(tt.expected))
			for _, k := range tt.expected {
				assert.Contains(t, keys, k)
			}
		})
	}
}

func TestRecordKeysIgnoresColumnLabels(t *testing.T) {
	rec := &types.Record{RowData: map[string]string{
		"user":      "bob",
		"telephone": " 0812 ",
		"notes":     "",
	}}

	keys := RecordKeys(rec)
	assert.Len(t, keys, 2)
	assert.Contains(t, keys, "BOB")
	assert.Contains(t, keys, "0812")
	assert.NotContains(t, keys, "USER")
}

func TestMatches(t *testing.T) {
	keySet := func(r *types.Reservation) map[string]struct{} { return ReservationKeys(r) }

	tests := []struct {
		name     string
		record   *types.Record
		keys     map[string]struct{}
		expected bool
	}{
		{
			name:     "value matches in any field",
			record:   &types.Record{RowData: map[string]string{"col_7": "bob"}},
			keys:     keySet(&types.Reservation{CustomerID: "BOB"}),
			expected: true,
		},
		{
			name:     "no overlap",
			record:   &types.Record{RowData: map[string]string{"user": "carol"}},
			keys:     keySet(&types.Reservation{CustomerID: "BOB"}),
			expected: false,
		},
		{
			name:     "empty key set never matches",
			record:   &types.Record{RowData: map[string]string{"user": ""}},
			keys:     keySet(&types.Reservation{}),
			expected: false,
		},
		{
			name:     "matches on customer name slot",
			record:   &types.Record{RowData: map[string]string{"nama": "  alice wong"}},
			keys:     keySet(&types.Reservation{CustomerName: "Alice Wong"}),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Matches(tt.record, tt.keys))
		})
	}
}

func TestIntersects(t *testing.T) {
	a := map[string]struct{}{"A": {}, "B": {}}
	b := map[string]struct{}{"B": {}, "C": {}}
	c := map[string]struct{}{"X": {}}

	assert.True(t, Intersects(a, b))
	assert.False(t, Intersects(a, c))
	assert.False(t, Intersects(nil, a))
}

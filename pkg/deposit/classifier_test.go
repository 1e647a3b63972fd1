package deposit

import (
	"testing"

	"github.com/kilatworks/omzet/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestIsTambahan(t *testing.T) {
	tests := []struct {
		name     string
		notes    string
		expected bool
	}{
		{name: "exact word", notes: "tambahan", expected: true},
		{name: "uppercase", notes: "TAMBAHAN", expected: true},
		{name: "mixed case in sentence", notes: "Deposit Tambahan bulan ini", expected: true},
		{name: "substring inside word", notes: "xtambahanx", expected: true},
		{name: "absent", notes: "deposit pertama", expected: false},
		{name: "empty", notes: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsTambahan(tt.notes))
		})
	}
}

func TestClassifyEarliestNonTambahanIsNDP(t *testing.T) {
	tests := []struct {
		name     string
		deposits []*types.Deposit
		wantNDP  string // deposit ID expected to be NDP, "" for none
	}{
		{
			name: "single deposit",
			deposits: []*types.Deposit{
				{ID: "a", Seq: 1, RecordDate: "2024-03-10"},
			},
			wantNDP: "a",
		},
		{
			name: "earliest date wins regardless of insertion order",
			deposits: []*types.Deposit{
				{ID: "a", Seq: 1, RecordDate: "2024-03-12"},
				{ID: "b", Seq: 2, RecordDate: "2024-03-10"},
			},
			wantNDP: "b",
		},
		{
			name: "same date breaks tie by insertion sequence",
			deposits: []*types.Deposit{
				{ID: "b", Seq: 2, RecordDate: "2024-03-10"},
				{ID: "a", Seq: 1, RecordDate: "2024-03-10"},
			},
			wantNDP: "a",
		},
		{
			name: "tambahan on earliest date is skipped",
			deposits: []*types.Deposit{
				{ID: "a", Seq: 1, RecordDate: "2024-03-09", Notes: "tambahan"},
				{ID: "b", Seq: 2, RecordDate: "2024-03-11"},
			},
			wantNDP: "b",
		},
		{
			name: "all tambahan yields no NDP",
			deposits: []*types.Deposit{
				{ID: "a", Seq: 1, RecordDate: "2024-03-09", Notes: "Tambahan"},
				{ID: "b", Seq: 2, RecordDate: "2024-03-11", Notes: "setoran tambahan"},
			},
			wantNDP: "",
		},
		{
			name:     "empty set",
			deposits: nil,
			wantNDP:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := Classify(tt.deposits)
			assert.Len(t, want, len(tt.deposits))

			ndpCount := 0
			for id, ct := range want {
				if ct == types.CustomerTypeNDP {
					ndpCount++
					assert.Equal(t, tt.wantNDP, id)
				} else {
					assert.Equal(t, types.CustomerTypeRDP, ct)
				}
			}
			if tt.wantNDP == "" {
				assert.Zero(t, ndpCount)
			} else {
				assert.Equal(t, 1, ndpCount)
			}
		})
	}
}

func TestClassifyIsOrderIndependent(t *testing.T) {
	forward := []*types.Deposit{
		{ID: "a", Seq: 1, RecordDate: "2024-03-12"},
		{ID: "b", Seq: 2, RecordDate: "2024-03-10", Notes: "tambahan"},
		{ID: "c", Seq: 3, RecordDate: "2024-03-11"},
	}
	reversed := []*types.Deposit{forward[2], forward[1], forward[0]}

	assert.Equal(t, Classify(forward), Classify(reversed))
	assert.Equal(t, types.CustomerTypeNDP, Classify(forward)["c"])
}

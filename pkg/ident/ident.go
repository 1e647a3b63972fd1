// Package ident normalizes customer identifiers and implements the key
// matching used by reservations and records across the engines.
package ident

import (
	"strings"

	"github.com/kilatworks/omzet/pkg/types"
)

// Normalize canonicalizes a customer identifier: surrounding whitespace is
// trimmed and the result uppercased. Empty or whitespace-only input
// normalizes to the empty string.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ReservationKeys returns the set of normalized non-empty identifiers a
// reservation claims: customer id and/or customer name.
func ReservationKeys(r *types.Reservation) map[string]struct{} {
	keys := make(map[string]struct{}, 2)
	for _, raw := range []string{r.CustomerID, r.CustomerName} {
		if k := Normalize(raw); k != "" {
			keys[k] = struct{}{}
		}
	}
	return keys
}

// RecordKeys returns the set of normalized non-empty values across all
// entries of a record's row data. Column labels are irrelevant; matching
// is any-value-any-field.
func RecordKeys(rec *types.Record) map[string]struct{} {
	keys := make(map[string]struct{}, len(rec.RowData))
	for _, raw := range rec.RowData {
		if k := Normalize(raw); k != "" {
			keys[k] = struct{}{}
		}
	}
	return keys
}

// Matches reports whether a record's key set intersects the given
// reservation key set.
func Matches(rec *types.Record, keys map[string]struct{}) bool {
	if len(keys) == 0 {
		return false
	}
	for _, raw := range rec.RowData {
		if k := Normalize(raw); k != "" {
			if _, ok := keys[k]; ok {
				return true
			}
		}
	}
	return false
}

// Intersects reports whether two key sets share at least one key.
func Intersects(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

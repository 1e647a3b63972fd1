package deposit

import (
	"sort"
	"strings"

	"github.com/kilatworks/omzet/pkg/types"
)

// IsTambahan reports whether a deposit's notes mark it as an additional
// deposit. The match is a case-insensitive substring test; no token
// boundary is required.
func IsTambahan(notes string) bool {
	return strings.Contains(strings.ToLower(notes), "tambahan")
}

// Classify computes the customer type for every deposit of one
// (product, normalized customer) recompute key. The first non-tambahan
// deposit by (record_date, insertion sequence) is NDP; every other
// deposit, tambahan deposits included, is RDP. The result is a full
// assignment for the set, so applying it is idempotent and independent of
// the order the deposits were written in.
func Classify(set []*types.Deposit) map[string]types.CustomerType {
	ordered := make([]*types.Deposit, len(set))
	copy(ordered, set)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].RecordDate != ordered[j].RecordDate {
			return ordered[i].RecordDate < ordered[j].RecordDate
		}
		return ordered[i].Seq < ordered[j].Seq
	})

	firstID := ""
	for _, d := range ordered {
		if !IsTambahan(d.Notes) {
			firstID = d.ID
			break
		}
	}

	want := make(map[string]types.CustomerType, len(set))
	for _, d := range set {
		if d.ID == firstID {
			want[d.ID] = types.CustomerTypeNDP
		} else {
			want[d.ID] = types.CustomerTypeRDP
		}
	}
	return want
}

/*
Package deposit provides the deposit ledger and NDP/RDP classification for Omzet.

The deposit package records customer deposits and keeps every deposit's
customer type correct under out-of-order entry. Classification is per
(product, customer key) history: the earliest non-additional deposit is the
new-depositor (NDP) entry, every other deposit is a repeat-depositor (RDP)
entry. The classifier runs inside the same storage transaction as the
triggering write, so readers never observe a half-classified history.

# Architecture

	┌──────────────────── DEPOSIT LEDGER ──────────────────────┐
	│                                                           │
	│   Insert/Update/Delete                                    │
	│        │                                                  │
	│        ▼                                                  │
	│   BoltStore write transaction                             │
	│        │  reclassify (product, customer key) history      │
	│        │  earliest non-"tambahan" by (date, seq) → NDP    │
	│        │  everything else → RDP                           │
	│        ▼                                                  │
	│   classification flips ──▶ events + metrics               │
	└───────────────────────────────────────────────────────────┘

# Core Components

Ledger:
  - Insert validates input, normalizes the customer key, and writes
  - Update reclassifies both the old and the new key history
  - Delete lets the next eligible deposit take over the NDP slot
  - List/ListByDate/ListByKey read views for reports and the API

Classifier:
  - Pure function over one key's deposit history
  - "tambahan" notes (case-insensitive substring) never hold NDP
  - Order-independent: any insertion order converges to the same state

# Usage

	ledger := deposit.NewLedger(store, broker)

	dep, err := ledger.Insert("staff-1", deposit.Input{
		StaffID:    "staff-1",
		ProductID:  "p1",
		CustomerID: "Budi",
		RecordDate: "2026-08-24",
		Nominal:    decimal.NewFromInt(500000),
	})

	// dep.CustomerType is already correct, as is every sibling
	// deposit on the same (product, customer key).

# Integration Points

This package integrates with:

  - pkg/storage: in-transaction reclassification via ClassifyFunc
  - pkg/report: daily aggregation reads classified deposits
  - pkg/ident: customer key normalization
  - pkg/events: deposit-written and classification-flip events
*/
package deposit

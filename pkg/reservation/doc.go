/*
Package reservation provides the customer claim registry for Omzet.

The reservation package manages the lifecycle of customer reservations: staff
submit pending claims, admins approve or create them directly, and an expiry
sweep releases claims that outlived their grace period. Approved reservations
exclusively bind a normalized customer key to one staff per product.

# Architecture

	┌──────────────────── RESERVATION LIFECYCLE ───────────────┐
	│                                                           │
	│   staff Create ──▶ pending ──▶ Approve ──▶ approved      │
	│   admin Create ───────────────────────────▶ approved      │
	│                                                           │
	│   approved ──▶ Delete ─────────▶ (removed, records freed) │
	│   approved ──▶ Sweep (expired) ─▶ expired                 │
	│                                                           │
	│   grace precedence: reservation override > product > global│
	│   permanent reservations never expire                     │
	└───────────────────────────────────────────────────────────┘

# Core Components

Registry:
  - Create validates the identifier slots and detects duplicates
    against the union of customer ID and customer name keys
  - Approve activates the claim and triggers resolver reconciliation
  - Delete removes the claim and releases covered records
  - TogglePermanent flips expiry exemption

Expiry:
  - ExpireCandidates applies the grace precedence chain
  - Sweep expires candidates, releases their records, and publishes
    per-reservation expiry events
  - Driven by the scheduler's nightly run and exposed for manual runs

Active Key Cache:
  - ActiveKeys returns the claim map for assignment exclusion
  - Backed by a short-lived cache, flushed on every mutation

# Usage

	reg := reservation.NewRegistry(store, resolver, broker)

	res, err := reg.Create(reservation.CreateInput{
		RequestedBy:   "staff-1",
		RequesterRole: types.RoleStaff,
		CustomerID:    "budi",
		ProductID:     "p1",
	})

	res, err = reg.Approve(res.ID, "admin-1")
	expired, err := reg.Sweep(ctx, time.Now())

# Integration Points

This package integrates with:

  - pkg/resolver: record effects of approval, deletion, and expiry
  - pkg/assign: ActiveKeys excludes claimed customers from assignment
  - pkg/scheduler: nightly Sweep
  - pkg/ident: key normalization and union matching
*/
package reservation

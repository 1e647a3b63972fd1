/*
Package resolver provides record/reservation reconciliation for Omzet.

The resolver package is the single authority for keeping record statuses
coherent with the approved reservation set. Every cross-collection effect of a
reservation state change flows through its entry points, so the reservation
registry and the record store never mutate each other directly.

# Architecture

The resolver reacts to reservation changes and reconstructs state on demand:

	┌──────────────────── RESOLVER ────────────────────────────┐
	│                                                           │
	│  Reservation approved ──▶ OnAdd                           │
	│    - available records matching the key set → reserved    │
	│    - other staff's assignments on the key → invalid       │
	│                                                           │
	│  Reservation deleted/expired ──▶ OnRemove                 │
	│    - reserved records matching the key set → available    │
	│    - unless another approved claim still covers them      │
	│                                                           │
	│  Drift suspected ──▶ Audit / FullResync                   │
	│    - plan() categorizes every record against the claims   │
	│    - Audit reports, FullResync applies                    │
	└───────────────────────────────────────────────────────────┘

# Core Components

Claim Map:
  - Union of normalized keys across all approved reservations
  - Key → reserving staff; older reservation wins on collision
  - Records match on any normalized row value

Entry Points:
  - OnAdd: runs before the approving caller gets its reply
  - OnRemove: releases records no longer covered by any claim
  - Audit: read-only drift report, used by repair diagnostics
  - FullResync: idempotent reconstruction, second run is a no-op

ResyncSummary:
  - Reserved, Released, Invalidated, Retargeted counters
  - Changes() totals the mutations for logging and metrics

# Usage

	res := resolver.NewResolver(store, broker)

	summary, err := res.OnAdd(reservation)   // after approval
	summary, err = res.OnRemove(reservation) // after delete/expiry

	drift, err := res.Audit()                // read-only
	if drift.Changes() > 0 {
		summary, err = res.FullResync()
	}

# Integration Points

This package integrates with:

  - pkg/reservation: calls OnAdd/OnRemove on lifecycle transitions
  - pkg/repair: Audit for diagnostics, FullResync for healing
  - pkg/events: publishes record-invalidated notifications
  - pkg/metrics: per-action mutation counters
*/
package resolver

/*
Package assign provides record assignment and download request handling for Omzet.

The assign package moves available records to staff. Direct assignment is
all-or-nothing: either the requested count of eligible records transitions to
the staff member, or nothing moves. Download requests wrap assignment in an
approval workflow with an optional auto-approve fast path.

# Architecture

	┌──────────────────── ASSIGNMENT ──────────────────────────┐
	│                                                           │
	│   Assign(database, staff, n)                              │
	│     select available, exclude other staff's claims        │
	│     order by row number ascending, take n                 │
	│     transition batch; a lost race reverts the partial     │
	│     batch, then reselects and retries                     │
	│     fewer than n eligible → ErrExhausted, nothing moves   │
	│                                                           │
	│   ProcessInvalid(staff, limit)                            │
	│     archive up to limit invalid records                   │
	│     assign replacements from the same databases           │
	│     shortfall reported when replacements run out          │
	│                                                           │
	│   Submit ──▶ pending ──▶ Approve ──▶ approved ─▶ completed│
	│                │  auto-approve: global on + database not   │
	│                │  opted out → approved on submit           │
	│                └──▶ Reject ──▶ rejected                   │
	└───────────────────────────────────────────────────────────┘

# Core Components

Engine:
  - Eligibility: available in the database, customer key not claimed
    by another staff's approved reservation
  - Deterministic selection by ascending row number
  - Bounded retry absorbs concurrent transitions

Requests:
  - Submit records intent; auto-approve consults the global toggle
    and the per-database tri-state override
  - Approve assigns exactly the requested count or leaves the
    request pending on exhaustion
  - Reject is a pure state change

# Usage

	engine := assign.NewEngine(store, registry, broker)
	requests := assign.NewRequests(store, engine, broker)

	recs, err := engine.Assign("db-1", "staff-1", 50)
	result, err := engine.ProcessInvalid("staff-1", 20)

	req, err := requests.Submit("db-1", "staff-1", 50)
	req, err = requests.Approve(req.ID, "admin-1")

# Integration Points

This package integrates with:

  - pkg/reservation: ActiveKeys claim exclusion
  - pkg/storage: compare-and-swap style batch transitions
  - pkg/events: assignment and request lifecycle events
*/
package assign

/*
Package api provides the HTTP API server for Omzet.

The api package exposes the manager's operations over a JSON HTTP interface.
Identity arrives on the X-Omzet-User header, set by the fronting gateway
after authentication; the server resolves it to a user, enforces the role
hierarchy per route, and applies per-user page blocks before dispatching.

# Architecture

	┌──────────────────── API SERVER ──────────────────────────┐
	│                                                           │
	│   request ──▶ caller resolution (X-Omzet-User)            │
	│                 │  unknown or inactive user → 403         │
	│                 ▼                                         │
	│               role gate (staff < admin < master_admin)    │
	│                 ▼                                         │
	│               blocked-page check (first path segment)     │
	│                 ▼                                         │
	│               handler ──▶ manager operation               │
	│                 ▼                                         │
	│               JSON reply, error mapped by category        │
	└───────────────────────────────────────────────────────────┘

# Error Mapping

Domain error categories map to HTTP status codes:

  - validation → 400
  - permission → 403
  - not found → 404
  - conflict → 409
  - exhausted → 422
  - dependency → 502
  - anything else → 500

# Surfaces

Public: /health, /ready, /metrics.

Staff: own records, reservation submission, download requests, deposits,
daily summaries, invalid-record processing.

Admin: database ingestion, direct assignment, reservation approval,
request decisions, sweeps, repair, scheduling and policy configuration.

Master admin: database deletion and user administration.

# Usage

	server := api.NewServer(mgr)
	go func() {
		if err := server.Start(":8080"); err != nil {
			log.Error(err.Error())
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	server.Shutdown(ctx)
*/
package api

/*
Package manager provides the composition root for Omzet.

The manager wires the storage layer, event broker, and engines together and
exposes the full operation surface consumed by the HTTP API and the CLI. It
owns startup and shutdown ordering: the broker and store come up first, the
scheduler and metrics collector start last and stop first.

# Core Components

Manager:
  - Builds the resolver, reservation registry, assignment engine,
    download request workflow, deposit ledger, report builder, and
    repair doctor over one BoltStore and one broker
  - Hosts the scheduler callbacks for the nightly report, the
    reservation sweep, and the consistency health check
  - Taps the broker and renders every event in its wire envelope for
    the notification collaborator
  - Enforces the cross-cutting rules that span engines, such as a
    staff member only flagging their own assigned records

# Usage

	mgr, err := manager.NewManager(&manager.Config{DataDir: "/var/lib/omzet"})
	if err != nil {
		return err
	}
	if err := mgr.Start(); err != nil {
		return err
	}
	defer mgr.Shutdown()

	recs, err := mgr.AssignRecords("db-1", "staff-1", 50)
*/
package manager

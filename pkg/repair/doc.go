/*
Package repair provides consistency diagnostics and healing for Omzet.

The repair package detects and repairs cross-collection drift: records
pointing at deleted databases, invalid records held by staff that no longer
exist, reservation coverage out of sync with record statuses, and database
batch counts that disagree with the record store.

Diagnose is read-only and safe to run on a live system; Repair applies the
corresponding fixes and is idempotent, so a second run directly after a clean
one reports zero changes. Step failures during Repair are collected rather
than aborting the remaining steps.

# Usage

	doctor := repair.NewDoctor(store, resolver, broker)

	findings, err := doctor.Diagnose()
	if findings.Total() > 0 {
		summary, err := doctor.Repair()
		log.Printf("healed %d inconsistencies", summary.Changes())
	}

# Integration Points

This package integrates with:

  - pkg/resolver: Audit for diagnostics, FullResync for healing
  - pkg/scheduler: periodic health check runs Diagnose
  - pkg/api: admin repair endpoints
*/
package repair

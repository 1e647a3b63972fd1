/*
Package report provides daily deposit aggregation for Omzet.

The report package builds the per-day summary: per-staff and per-product
NDP/RDP unique customer counts, raw form counts, and nominal totals. Unique
counting is global across products for a (staff, customer) pair per day, with
the pair attributed to the first product it was seen under, which keeps the
staff totals and the product totals in exact agreement.

# Core Components

Builder:
  - BuildDaily scans one day's deposits in sequence order
  - A (staff, customer key) pair lands in exactly one bucket per day,
    decided by the pair's first deposit
  - Forms and nominal totals stay raw per row
  - A cross-footing check guards the staff/product balance and raises
    an invariant violation event on mismatch

Publishing:
  - Publish emits the finished report on the event broker for
    downstream delivery

# Usage

	builder := report.NewBuilder(store, broker)

	rep, err := builder.BuildDaily("2026-08-24", "")      // all products
	rep, err = builder.BuildDaily("2026-08-24", "p1")     // one product

	for staffID, row := range rep.Staff {
		fmt.Println(staffID, row.NDP, row.RDP, row.NominalTotal)
	}

# Integration Points

This package integrates with:

  - pkg/deposit: classified deposit histories
  - pkg/scheduler: nightly build of the previous day
  - pkg/events: report publication and invariant alerts
*/
package report

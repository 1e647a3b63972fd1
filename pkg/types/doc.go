/*
Package types defines the core data structures for Omzet.

The types package contains the shared entity definitions used across all
Omzet components: records and their lifecycle statuses, source databases,
reservations, deposits, download requests, users and roles, and the persisted
configuration blocks. Keeping them in a leaf package avoids import cycles
between the engines.

# Core Entities

Record:
  - One row of an uploaded database
  - Status: available → assigned → invalid → archived, with the
    available ⇄ reserved detour owned by the resolver
  - Carries its collection, row number, and raw row data

Database:
  - An uploaded batch of records for one product
  - Tracks total and per-status counts
  - Optional tri-state auto-approve override (nil inherits the global)

Reservation:
  - A customer claim by one staff under one product
  - Status: pending → approved → expired
  - Permanent reservations and per-reservation grace overrides

Deposit:
  - A money-in entry with product, customer key, date, and nominal
  - CustomerType NDP or RDP, maintained by the classifier
  - Monotonic sequence number for stable ordering

DownloadRequest:
  - A staff request for record assignment awaiting decision
  - Status: pending → completed or rejected

User:
  - Role hierarchy staff < admin < master_admin via Role.AtLeast
  - Per-user blocked page prefixes

Configuration:
  - SchedulerConfig, CleanupConfig, AutoApproveConfig with defaults
    applied by the store when unset
*/
package types

/*
Package storage provides BoltDB-backed state persistence for Omzet's operational data.

The storage package implements the Store interface using BoltDB as the underlying
database, providing ACID transactions for records, databases, reservations,
deposits, download requests, users, and configuration. All data is serialized as
JSON and stored in separate buckets for efficient querying and isolation.

# Architecture

Omzet uses BoltDB (bbolt) for embedded, transactional storage with zero external
dependencies:

	┌──────────────────── BOLTDB STORAGE ──────────────────────┐
	│                                                           │
	│  ┌────────────────────────────────────────────┐          │
	│  │            BoltStore                        │          │
	│  │  - File: <dataDir>/omzet.db                 │          │
	│  │  - Format: B+tree with MVCC                 │          │
	│  │  - Transactions: ACID with fsync            │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                     │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Bucket Structure               │          │
	│  │  ┌────────────────────────────────────┐    │          │
	│  │  │ records           (Record ID)      │    │          │
	│  │  │ record_rows       (db|row slot)    │    │          │
	│  │  │ databases         (Database ID)    │    │          │
	│  │  │ reservations      (Reservation ID) │    │          │
	│  │  │ reservation_keys  (product|key)    │    │          │
	│  │  │ deposits          (Deposit ID)     │    │          │
	│  │  │ download_requests (Request ID)     │    │          │
	│  │  │ users             (User ID)        │    │          │
	│  │  │ config            (named keys)     │    │          │
	│  │  └────────────────────────────────────┘    │          │
	│  └────────────────────────────────────────────┘          │
	└───────────────────────────────────────────────────────────┘

# Core Components

BoltStore:
  - Single-file embedded database
  - One bucket per entity type
  - JSON serialization for all values
  - Secondary index buckets for uniqueness constraints

Row Slot Index:
  - Key: "<database_id>|<row_number>"
  - Enforces at most one record per source row
  - CreateRecords silently skips occupied slots
  - Freed when records are deleted with their database

Reservation Key Index:
  - Key: "<product_id>|<normalized key>"
  - Populated only for approved reservations
  - Enforces one active claim per customer key per product
  - Maintained by reservation status transitions

Deposit Ordering:
  - Monotonic sequence number assigned at creation
  - Classification runs inside the write transaction via ClassifyFunc

Transactional Guarantees:
  - TransitionRecords moves records only from the expected status
  - Concurrent writers see a consistent prior state
  - Deposit reclassification and the triggering write commit together

# Usage

Opening a Store:

	store, err := storage.NewBoltStore("/var/lib/omzet")
	if err != nil {
		return err
	}
	defer store.Close()

Working with Records:

	created, err := store.CreateRecords(records)   // skips taken row slots
	recs, err := store.ListRecords(storage.RecordFilter{
		Status:     types.RecordStatusAvailable,
		DatabaseID: "db-123",
	})
	moved, err := store.TransitionRecords(ids, types.RecordStatusAvailable,
		func(rec *types.Record) {
			rec.Status = types.RecordStatusAssigned
			rec.AssignedTo = staffID
		})

Working with Deposits:

	flips, err := store.CreateDeposit(dep, deposit.Classify) // classified in-tx
	deps, err := store.ListDepositsByDate("2026-08-24")

Configuration:

	cfg, err := store.GetSchedulerConfig()   // defaults when unset
	err = store.PutCleanupConfig(&types.CleanupConfig{GraceDays: 30})

# Integration Points

This package integrates with:

  - pkg/resolver: record status transitions during reconciliation
  - pkg/reservation: reservation lifecycle and key index
  - pkg/assign: eligible record selection and batch transitions
  - pkg/deposit: in-transaction NDP/RDP classification
  - pkg/report: day-range deposit scans
  - pkg/repair: count recomputation and index audits

# Performance Characteristics

Read Operations:
  - Get by ID: O(log n) B+tree lookup
  - List with filter: full bucket scan, JSON decode per entry
  - Day scan for deposits: full bucket scan filtered by record date

Write Operations:
  - Single write transaction at a time (BoltDB writer lock)
  - Batch creates amortize transaction overhead
  - fsync on commit for durability

# See Also

  - BoltDB documentation: https://github.com/etcd-io/bbolt
*/
package storage

package repair

import (
	"fmt"

	"github.com/kilatworks/omzet/pkg/events"
	"github.com/kilatworks/omzet/pkg/log"
	"github.com/kilatworks/omzet/pkg/metrics"
	"github.com/kilatworks/omzet/pkg/resolver"
	"github.com/kilatworks/omzet/pkg/storage"
	"github.com/kilatworks/omzet/pkg/types"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

// Doctor detects and heals cross-collection inconsistencies. Every
// healing step is idempotent, so a partial failure is safe to retry and a
// second run after a clean one applies zero changes.
type Doctor struct {
	store    storage.Store
	resolver *resolver.Resolver
	broker   *events.Broker
	logger   zerolog.Logger
}

// NewDoctor creates a new repair doctor
func NewDoctor(store storage.Store, res *resolver.Resolver, broker *events.Broker) *Doctor {
	return &Doctor{
		store:    store,
		resolver: res,
		broker:   broker,
		logger:   log.WithComponent("repair"),
	}
}

// Findings is the result of a diagnostic pass. Counts are symptoms, not
// yet healed.
type Findings struct {
	OrphanRecords     int `json:"orphan_records"`
	StaleInvalid      int `json:"stale_invalid"`
	StaleReserved     int `json:"stale_reserved"`
	MissedReserved    int `json:"missed_reserved"`
	DriftedBatchCount int `json:"drifted_batch_counts"`
}

// Total returns the number of symptoms found
func (f *Findings) Total() int {
	return f.OrphanRecords + f.StaleInvalid + f.StaleReserved + f.MissedReserved + f.DriftedBatchCount
}

// Summary reports the mutations a repair run applied
type Summary struct {
	Resync          *resolver.ResyncSummary `json:"resync"`
	OrphansFlagged  int                     `json:"orphans_flagged"`
	StaleArchived   int                     `json:"stale_archived"`
	BatchCountsSync int                     `json:"batch_counts_synced"`
}

// Changes returns the total number of mutations applied
func (s *Summary) Changes() int {
	n := s.OrphansFlagged + s.StaleArchived + s.BatchCountsSync
	if s.Resync != nil {
		n += s.Resync.Changes()
	}
	return n
}

// Diagnose scans for known inconsistency symptoms without mutating
// anything.
func (d *Doctor) Diagnose() (*Findings, error) {
	findings := &Findings{}

	records, err := d.store.ListRecords(storage.RecordFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	databases, users, err := d.loadIndex()
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		if !databases[rec.DatabaseID] && rec.Status != types.RecordStatusArchived && rec.Status != types.RecordStatusInvalid {
			findings.OrphanRecords++
		}
		if rec.Status == types.RecordStatusInvalid && rec.AssignedTo != "" && !users[rec.AssignedTo] {
			findings.StaleInvalid++
		}
	}

	resync, err := d.resolver.Audit()
	if err != nil {
		return nil, fmt.Errorf("failed to audit reservations: %w", err)
	}
	findings.StaleReserved = resync.Released
	findings.MissedReserved = resync.Reserved + resync.Retargeted

	drifted, err := d.driftedDatabases()
	if err != nil {
		return nil, err
	}
	findings.DriftedBatchCount = len(drifted)

	return findings, nil
}

// Repair heals everything Diagnose detects: runs the resolver full
// resync, flags records of deleted databases, archives invalid records
// whose staff no longer exists, and recomputes per-database counts.
// Individual step failures are collected and do not abort the remaining
// steps.
func (d *Doctor) Repair() (*Summary, error) {
	summary := &Summary{}
	var errs error

	resync, err := d.resolver.FullResync()
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("resync: %w", err))
	} else {
		summary.Resync = resync
	}

	flagged, archived, err := d.healRecords()
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("records: %w", err))
	}
	summary.OrphansFlagged = flagged
	summary.StaleArchived = archived

	synced, err := d.syncBatchCounts()
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("batch counts: %w", err))
	}
	summary.BatchCountsSync = synced

	outcome := "success"
	if errs != nil {
		outcome = "partial"
	}
	metrics.RepairRuns.WithLabelValues(outcome).Inc()
	if d.broker != nil {
		d.broker.Publish(&events.Event{
			Type: events.EventRepairCompleted,
			Data: map[string]string{
				"changes": fmt.Sprintf("%d", summary.Changes()),
				"outcome": outcome,
			},
		})
	}
	d.logger.Info().
		Int("changes", summary.Changes()).
		Str("outcome", outcome).
		Msg("repair run complete")
	return summary, errs
}

// healRecords flags live records of deleted databases as invalid and
// archives invalid records assigned to staff that no longer exist.
func (d *Doctor) healRecords() (flagged, archived int, err error) {
	records, err := d.store.ListRecords(storage.RecordFilter{})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list records: %w", err)
	}
	databases, users, err := d.loadIndex()
	if err != nil {
		return 0, 0, err
	}

	var errs error
	for _, rec := range records {
		switch {
		case !databases[rec.DatabaseID] && rec.Status != types.RecordStatusArchived && rec.Status != types.RecordStatusInvalid:
			rec.Status = types.RecordStatusInvalid
			rec.InvalidReason = types.InvalidReasonMissingDatabase
			if uerr := d.store.UpdateRecord(rec); uerr != nil {
				errs = multierr.Append(errs, uerr)
				continue
			}
			flagged++
		case rec.Status == types.RecordStatusInvalid && rec.AssignedTo != "" && !users[rec.AssignedTo]:
			rec.Status = types.RecordStatusArchived
			rec.AssignedTo = ""
			if uerr := d.store.UpdateRecord(rec); uerr != nil {
				errs = multierr.Append(errs, uerr)
				continue
			}
			archived++
		}
	}
	return flagged, archived, errs
}

// syncBatchCounts rewrites each database's total and per-status counts
// from the actual records.
func (d *Doctor) syncBatchCounts() (int, error) {
	drifted, err := d.driftedDatabases()
	if err != nil {
		return 0, err
	}

	var errs error
	synced := 0
	for _, db := range drifted {
		if uerr := d.store.UpdateDatabase(db); uerr != nil {
			errs = multierr.Append(errs, uerr)
			continue
		}
		synced++
	}
	return synced, errs
}

// driftedDatabases returns databases whose stored counts disagree with
// the record store, with the corrected counts already applied to the
// returned structs.
func (d *Doctor) driftedDatabases() ([]*types.Database, error) {
	databases, err := d.store.ListDatabases()
	if err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}

	var drifted []*types.Database
	for _, db := range databases {
		counts, err := d.store.CountRecordsByDatabase(db.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count records for %s: %w", db.ID, err)
		}
		total := 0
		for _, n := range counts {
			total += n
		}
		if db.TotalRecords == total && equalCounts(db.StatusCounts, counts) {
			continue
		}
		db.TotalRecords = total
		db.StatusCounts = counts
		drifted = append(drifted, db)
	}
	return drifted, nil
}

func (d *Doctor) loadIndex() (databases, users map[string]bool, err error) {
	dbs, err := d.store.ListDatabases()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list databases: %w", err)
	}
	databases = make(map[string]bool, len(dbs))
	for _, db := range dbs {
		databases[db.ID] = true
	}

	us, err := d.store.ListUsers()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list users: %w", err)
	}
	users = make(map[string]bool, len(us))
	for _, u := range us {
		users[u.ID] = true
	}
	return databases, users, nil
}

func equalCounts(a, b map[types.RecordStatus]int) bool {
	for _, status := range types.RecordStatuses() {
		if a[status] != b[status] {
			return false
		}
	}
	return true
}

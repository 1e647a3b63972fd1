package assign

import (
	"fmt"
	"sort"
	"time"

	retry "github.com/avast/retry-go"
	"github.com/kilatworks/omzet/pkg/errdefs"
	"github.com/kilatworks/omzet/pkg/events"
	"github.com/kilatworks/omzet/pkg/ident"
	"github.com/kilatworks/omzet/pkg/log"
	"github.com/kilatworks/omzet/pkg/metrics"
	"github.com/kilatworks/omzet/pkg/reservation"
	"github.com/kilatworks/omzet/pkg/storage"
	"github.com/kilatworks/omzet/pkg/types"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Engine moves available records to staff. Selection always excludes
// records matching a reservation held by another staff, checked against
// the live claim set at the moment of selection.
type Engine struct {
	store    storage.Store
	registry *reservation.Registry
	broker   *events.Broker
	logger   zerolog.Logger
}

// NewEngine creates a new assignment engine
func NewEngine(store storage.Store, registry *reservation.Registry, broker *events.Broker) *Engine {
	return &Engine{
		store:    store,
		registry: registry,
		broker:   broker,
		logger:   log.WithComponent("assign"),
	}
}

// ProcessInvalidResult reports the two halves of a process-invalid action.
// NewAssigned may be lower than Archived when the source database ran out
// of available records; Shortfall is the difference.
type ProcessInvalidResult struct {
	Archived    int `json:"archived"`
	NewAssigned int `json:"new_assigned"`
	Shortfall   int `json:"shortfall"`
}

// Assign hands out exactly count available records from a database to a
// staff. Fewer eligible records than requested is an error and no record
// moves. Selection is deterministic: row_number ascending.
func (e *Engine) Assign(databaseID, staffID string, count int) ([]*types.Record, error) {
	if count <= 0 {
		return nil, fmt.Errorf("count must be positive: %w", errdefs.ErrValidation)
	}
	if _, err := e.store.GetDatabase(databaseID); err != nil {
		return nil, err
	}

	var assigned []*types.Record
	// Records can leave the available state between selection and
	// transition (a concurrent approval or a resolver pass). Reselect a
	// few times before giving up.
	err := retry.Do(
		func() error {
			eligible, err := e.selectEligible(databaseID, staffID)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			if len(eligible) < count {
				return fmt.Errorf("database %s has %d assignable records, need %d: %w",
					databaseID, len(eligible), count, errdefs.ErrExhausted)
			}

			moved, err := e.store.TransitionRecords(recordIDs(eligible[:count]), types.RecordStatusAvailable, func(rec *types.Record) {
				rec.Status = types.RecordStatusAssigned
				rec.AssignedTo = staffID
				rec.AssignedAt = time.Now().UTC()
			})
			if err != nil {
				return retry.Unrecoverable(err)
			}
			if len(moved) < count {
				// A lost race leaves a partial batch. Put it back before
				// reselecting or the next attempt stacks a second batch on
				// top of it.
				if _, rerr := e.store.TransitionRecords(recordIDs(moved), types.RecordStatusAssigned, func(rec *types.Record) {
					rec.Status = types.RecordStatusAvailable
					rec.AssignedTo = ""
					rec.AssignedAt = time.Time{}
				}); rerr != nil {
					return retry.Unrecoverable(fmt.Errorf("failed to revert partial assignment: %w", rerr))
				}
				return fmt.Errorf("only %d of %d records still available: %w",
					len(moved), count, errdefs.ErrConflict)
			}
			assigned = moved
			return nil
		},
		retry.Attempts(3),
		retry.Delay(10*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}

	metrics.RecordsAssigned.Add(float64(len(assigned)))
	e.publishAssigned(staffID, databaseID, assigned)
	e.logger.Info().
		Str("database_id", databaseID).
		Str("staff_id", staffID).
		Int("count", len(assigned)).
		Msg("records assigned")
	return assigned, nil
}

// ProcessInvalid archives up to limit of a staff's invalid records and
// assigns fresh available records from the same databases as replacements.
// Archival is never rolled back on a replacement shortfall; the result
// reports both counts. Re-running after success archives zero records.
func (e *Engine) ProcessInvalid(staffID string, limit int) (*ProcessInvalidResult, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive: %w", errdefs.ErrValidation)
	}

	invalid, err := e.store.ListRecords(storage.RecordFilter{
		Status:     types.RecordStatusInvalid,
		AssignedTo: staffID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list invalid records: %w", err)
	}
	sort.Slice(invalid, func(i, j int) bool { return invalid[i].RowNumber < invalid[j].RowNumber })
	if len(invalid) > limit {
		invalid = invalid[:limit]
	}

	result := &ProcessInvalidResult{}
	if len(invalid) == 0 {
		return result, nil
	}

	archived, err := e.store.TransitionRecords(recordIDs(invalid), types.RecordStatusInvalid, func(rec *types.Record) {
		rec.Status = types.RecordStatusArchived
		rec.AssignedTo = ""
	})
	if err != nil {
		return nil, fmt.Errorf("failed to archive invalid records: %w", err)
	}
	result.Archived = len(archived)

	// Replace per source database, as many as that database can supply.
	perDatabase := lo.CountValuesBy(archived, func(rec *types.Record) string { return rec.DatabaseID })
	for databaseID, want := range perDatabase {
		eligible, err := e.selectEligible(databaseID, staffID)
		if err != nil {
			return nil, err
		}
		if len(eligible) > want {
			eligible = eligible[:want]
		}
		moved, err := e.store.TransitionRecords(recordIDs(eligible), types.RecordStatusAvailable, func(rec *types.Record) {
			rec.Status = types.RecordStatusAssigned
			rec.AssignedTo = staffID
			rec.AssignedAt = time.Now().UTC()
		})
		if err != nil {
			return nil, fmt.Errorf("failed to assign replacements: %w", err)
		}
		result.NewAssigned += len(moved)
		e.publishAssigned(staffID, databaseID, moved)
	}
	result.Shortfall = result.Archived - result.NewAssigned

	if result.NewAssigned > 0 {
		metrics.RecordsAssigned.Add(float64(result.NewAssigned))
	}
	if result.Shortfall > 0 {
		metrics.AssignShortfalls.Inc()
	}
	logger := log.WithStaffID(staffID)
	logger.Info().
		Int("archived", result.Archived).
		Int("new_assigned", result.NewAssigned).
		Int("shortfall", result.Shortfall).
		Msg("invalid records processed")
	return result, nil
}

// selectEligible returns a database's available records minus those
// claimed by a reservation for another staff, row_number ascending. The
// claim set is queried at the moment of selection so a reservation the
// resolver has not swept yet still excludes its records.
func (e *Engine) selectEligible(databaseID, staffID string) ([]*types.Record, error) {
	available, err := e.store.ListRecords(storage.RecordFilter{
		DatabaseID: databaseID,
		Status:     types.RecordStatusAvailable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list available records: %w", err)
	}

	claims, err := e.registry.ActiveKeys()
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation claims: %w", err)
	}

	eligible := lo.Filter(available, func(rec *types.Record, _ int) bool {
		for key := range ident.RecordKeys(rec) {
			if staff, ok := claims[key]; ok && staff != staffID {
				return false
			}
		}
		return true
	})
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].RowNumber < eligible[j].RowNumber })
	return eligible, nil
}

func (e *Engine) publishAssigned(staffID, databaseID string, recs []*types.Record) {
	if e.broker == nil || len(recs) == 0 {
		return
	}
	e.broker.Publish(&events.Event{
		Type:    events.EventRecordsAssigned,
		Subject: staffID,
		Data: map[string]string{
			"database_id": databaseID,
			"count":       fmt.Sprintf("%d", len(recs)),
		},
	})
}

func recordIDs(recs []*types.Record) []string {
	return lo.Map(recs, func(rec *types.Record, _ int) string { return rec.ID })
}

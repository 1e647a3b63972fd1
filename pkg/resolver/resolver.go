package resolver

import (
	"fmt"
	"sort"
	"time"

	"github.com/kilatworks/omzet/pkg/events"
	"github.com/kilatworks/omzet/pkg/ident"
	"github.com/kilatworks/omzet/pkg/log"
	"github.com/kilatworks/omzet/pkg/metrics"
	"github.com/kilatworks/omzet/pkg/storage"
	"github.com/kilatworks/omzet/pkg/types"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Resolver is the single authority for record/reservation coherence. All
// cross-collection effects of a reservation state change flow through its
// entry points; the registry and the record store never call each other
// directly.
type Resolver struct {
	store  storage.Store
	broker *events.Broker
	logger zerolog.Logger
}

// NewResolver creates a new conflict resolver
func NewResolver(store storage.Store, broker *events.Broker) *Resolver {
	return &Resolver{
		store:  store,
		broker: broker,
		logger: log.WithComponent("resolver"),
	}
}

// ResyncSummary reports the mutations applied by a resolver pass
type ResyncSummary struct {
	Reserved    int `json:"reserved"`
	Released    int `json:"released"`
	Invalidated int `json:"invalidated"`
	Retargeted  int `json:"retargeted"`
}

// Changes returns the total number of record mutations applied
func (s *ResyncSummary) Changes() int {
	return s.Reserved + s.Released + s.Invalidated + s.Retargeted
}

func (s *ResyncSummary) observe() {
	metrics.ResolverMutations.WithLabelValues("reserved").Add(float64(s.Reserved))
	metrics.ResolverMutations.WithLabelValues("released").Add(float64(s.Released))
	metrics.ResolverMutations.WithLabelValues("invalidated").Add(float64(s.Invalidated))
	metrics.ResolverMutations.WithLabelValues("retargeted").Add(float64(s.Retargeted))
}

// OnAdd reconciles record state after a reservation became approved.
// Available records matching the reservation's key set move to reserved;
// records assigned to a different staff move to invalid and the affected
// staff is notified. Runs before the triggering caller gets its reply.
func (r *Resolver) OnAdd(res *types.Reservation) (*ResyncSummary, error) {
	summary := &ResyncSummary{}
	keys := ident.ReservationKeys(res)
	if len(keys) == 0 {
		return summary, nil
	}

	available, err := r.store.ListRecords(storage.RecordFilter{Status: types.RecordStatusAvailable})
	if err != nil {
		return nil, fmt.Errorf("failed to list available records: %w", err)
	}
	matched := lo.Filter(available, func(rec *types.Record, _ int) bool {
		return ident.Matches(rec, keys)
	})
	reserved, err := r.store.TransitionRecords(recordIDs(matched), types.RecordStatusAvailable, func(rec *types.Record) {
		rec.Status = types.RecordStatusReserved
		rec.ReservedFor = res.StaffID
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reserve records: %w", err)
	}
	summary.Reserved = len(reserved)

	assigned, err := r.store.ListRecords(storage.RecordFilter{Status: types.RecordStatusAssigned})
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned records: %w", err)
	}
	conflicting := lo.Filter(assigned, func(rec *types.Record, _ int) bool {
		return rec.AssignedTo != res.StaffID && ident.Matches(rec, keys)
	})
	invalidated, err := r.store.TransitionRecords(recordIDs(conflicting), types.RecordStatusAssigned, func(rec *types.Record) {
		rec.Status = types.RecordStatusInvalid
		rec.InvalidReason = types.InvalidReasonReservedByOtherStaff
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invalidate records: %w", err)
	}
	summary.Invalidated = len(invalidated)

	for _, rec := range invalidated {
		r.publishInvalidated(rec, res)
	}

	summary.observe()
	r.logger.Info().
		Str("reservation_id", res.ID).
		Int("reserved", summary.Reserved).
		Int("invalidated", summary.Invalidated).
		Msg("reservation activated")
	return summary, nil
}

// OnRemove reconciles record state after a reservation was deleted or
// expired. Reserved records matching the removed key set revert to
// available unless another still-approved reservation covers them.
func (r *Resolver) OnRemove(res *types.Reservation) (*ResyncSummary, error) {
	summary := &ResyncSummary{}
	keys := ident.ReservationKeys(res)
	if len(keys) == 0 {
		return summary, nil
	}

	remaining, err := r.activeClaims(res.ID)
	if err != nil {
		return nil, err
	}

	reserved, err := r.store.ListRecords(storage.RecordFilter{Status: types.RecordStatusReserved})
	if err != nil {
		return nil, fmt.Errorf("failed to list reserved records: %w", err)
	}

	var toRelease []*types.Record
	for _, rec := range reserved {
		if !ident.Matches(rec, keys) {
			continue
		}
		if _, covered := claimFor(rec, remaining); covered {
			continue
		}
		toRelease = append(toRelease, rec)
	}

	released, err := r.store.TransitionRecords(recordIDs(toRelease), types.RecordStatusReserved, func(rec *types.Record) {
		rec.Status = types.RecordStatusAvailable
		rec.ReservedFor = ""
	})
	if err != nil {
		return nil, fmt.Errorf("failed to release records: %w", err)
	}
	summary.Released = len(released)

	summary.observe()
	r.logger.Info().
		Str("reservation_id", res.ID).
		Int("released", summary.Released).
		Msg("reservation deactivated")
	return summary, nil
}

// Audit computes the mutations a full resync would apply, without
// applying any. Used by repair diagnostics.
func (r *Resolver) Audit() (*ResyncSummary, error) {
	toReserve, toRelease, toInvalidate, toRetarget, _, err := r.plan()
	if err != nil {
		return nil, err
	}
	return &ResyncSummary{
		Reserved:    len(toReserve),
		Released:    len(toRelease),
		Invalidated: len(toInvalidate),
		Retargeted:  len(toRetarget),
	}, nil
}

// plan categorizes every record against the current claim set.
func (r *Resolver) plan() (toReserve, toRelease, toInvalidate, toRetarget []*types.Record, claims map[string]string, err error) {
	claims, err = r.activeClaims("")
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}

	records, err := r.store.ListRecords(storage.RecordFilter{})
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("failed to list records: %w", err)
	}

	for _, rec := range records {
		staff, covered := claimFor(rec, claims)

		switch rec.Status {
		case types.RecordStatusAvailable:
			if covered {
				toReserve = append(toReserve, rec)
			}
		case types.RecordStatusReserved:
			if !covered {
				toRelease = append(toRelease, rec)
			} else if rec.ReservedFor != staff {
				toRetarget = append(toRetarget, rec)
			}
		case types.RecordStatusAssigned:
			if covered && rec.AssignedTo != staff {
				toInvalidate = append(toInvalidate, rec)
			}
		}
	}
	return toReserve, toRelease, toInvalidate, toRetarget, claims, nil
}

// FullResync reconstructs record reservation state from scratch across all
// collections. It is idempotent: a second run directly after a first one
// applies zero mutations.
func (r *Resolver) FullResync() (*ResyncSummary, error) {
	summary := &ResyncSummary{}

	toReserve, toRelease, toInvalidate, toRetarget, claims, err := r.plan()
	if err != nil {
		return nil, err
	}

	reserved, err := r.store.TransitionRecords(recordIDs(toReserve), types.RecordStatusAvailable, func(rec *types.Record) {
		staff, _ := claimFor(rec, claims)
		rec.Status = types.RecordStatusReserved
		rec.ReservedFor = staff
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reserve records: %w", err)
	}
	summary.Reserved = len(reserved)

	released, err := r.store.TransitionRecords(recordIDs(toRelease), types.RecordStatusReserved, func(rec *types.Record) {
		rec.Status = types.RecordStatusAvailable
		rec.ReservedFor = ""
	})
	if err != nil {
		return nil, fmt.Errorf("failed to release records: %w", err)
	}
	summary.Released = len(released)

	invalidated, err := r.store.TransitionRecords(recordIDs(toInvalidate), types.RecordStatusAssigned, func(rec *types.Record) {
		rec.Status = types.RecordStatusInvalid
		rec.InvalidReason = types.InvalidReasonReservedByOtherStaff
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invalidate records: %w", err)
	}
	summary.Invalidated = len(invalidated)

	if len(toRetarget) > 0 {
		for _, rec := range toRetarget {
			staff, _ := claimFor(rec, claims)
			rec.ReservedFor = staff
		}
		if err := r.store.UpdateRecords(toRetarget); err != nil {
			return nil, fmt.Errorf("failed to retarget reserved records: %w", err)
		}
		summary.Retargeted = len(toRetarget)
	}

	summary.observe()
	if summary.Changes() > 0 {
		r.logger.Info().
			Int("reserved", summary.Reserved).
			Int("released", summary.Released).
			Int("invalidated", summary.Invalidated).
			Int("retargeted", summary.Retargeted).
			Msg("full resync applied changes")
	}
	return summary, nil
}

// activeClaims builds the union claim map key -> reserving staff across
// all approved reservations, excluding the one identified by excludeID.
// When two reservations claim the same key under different products the
// older one wins, matching the stable order of ListReservations.
func (r *Resolver) activeClaims(excludeID string) (map[string]string, error) {
	approved, err := r.store.ListReservations(types.ReservationStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved reservations: %w", err)
	}

	claims := make(map[string]string)
	for _, res := range approved {
		if res.ID == excludeID {
			continue
		}
		for key := range ident.ReservationKeys(res) {
			if _, ok := claims[key]; !ok {
				claims[key] = res.StaffID
			}
		}
	}
	return claims, nil
}

// claimFor returns the staff holding a claim matching any of the record's
// row values, if one exists. Row values are visited in sorted order so
// that a record matching several claims resolves to the same staff on
// every pass.
func claimFor(rec *types.Record, claims map[string]string) (string, bool) {
	keys := lo.Keys(ident.RecordKeys(rec))
	sort.Strings(keys)
	for _, k := range keys {
		if staff, ok := claims[k]; ok {
			return staff, true
		}
	}
	return "", false
}

func (r *Resolver) publishInvalidated(rec *types.Record, res *types.Reservation) {
	if r.broker == nil {
		return
	}
	r.broker.Publish(&events.Event{
		Type:    events.EventRecordInvalidated,
		Subject: rec.ID,
		Data: map[string]string{
			"notify_staff":   rec.AssignedTo,
			"reserved_by":    res.StaffID,
			"reservation_id": res.ID,
			"collection":     string(rec.Collection),
			"reason":         string(types.InvalidReasonReservedByOtherStaff),
		},
		Timestamp: time.Now().UTC(),
	})
}

func recordIDs(recs []*types.Record) []string {
	return lo.Map(recs, func(rec *types.Record, _ int) string { return rec.ID })
}

package assign

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kilatworks/omzet/pkg/errdefs"
	"github.com/kilatworks/omzet/pkg/reservation"
	"github.com/kilatworks/omzet/pkg/resolver"
	"github.com/kilatworks/omzet/pkg/storage"
	"github.com/kilatworks/omzet/pkg/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *storage.BoltStore
	registry *reservation.Registry
	engine   *Engine
	requests *Requests
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	registry := reservation.NewRegistry(store, resolver.NewResolver(store, nil), nil)
	engine := NewEngine(store, registry, nil)
	return &fixture{
		store:    store,
		registry: registry,
		engine:   engine,
		requests: NewRequests(store, engine, nil),
	}
}

func (f *fixture) seedDatabase(t *testing.T, id string, rows int) {
	t.Helper()
	require.NoError(t, f.store.CreateDatabase(&types.Database{
		ID: id, Name: id, ProductID: "p1", Collection: types.CollectionGeneral,
	}))
	recs := make([]*types.Record, 0, rows)
	for n := 1; n <= rows; n++ {
		recs = append(recs, &types.Record{
			ID:         fmt.Sprintf("%s-r%d", id, n),
			Collection: types.CollectionGeneral,
			DatabaseID: id,
			ProductID:  "p1",
			RowNumber:  n,
			RowData:    map[string]string{"nama": fmt.Sprintf("cust-%s-%d", id, n)},
			Status:     types.RecordStatusAvailable,
		})
	}
	created, err := f.store.CreateRecords(recs)
	require.NoError(t, err)
	require.Equal(t, rows, created)
}

func TestAssignMovesRecordsDeterministically(t *testing.T) {
	f := newFixture(t)
	f.seedDatabase(t, "db1", 5)

	assigned, err := f.engine.Assign("db1", "s1", 3)
	require.NoError(t, err)
	require.Len(t, assigned, 3)

	// Lowest row numbers first.
	for i, rec := range assigned {
		assert.Equal(t, i+1, rec.RowNumber)
		assert.Equal(t, types.RecordStatusAssigned, rec.Status)
		assert.Equal(t, "s1", rec.AssignedTo)
		assert.False(t, rec.AssignedAt.IsZero())
	}
}

func TestAssignValidation(t *testing.T) {
	f := newFixture(t)
	f.seedDatabase(t, "db1", 2)

	_, err := f.engine.Assign("db1", "s1", 0)
	assert.ErrorIs(t, err, errdefs.ErrValidation)

	_, err = f.engine.Assign("missing", "s1", 1)
	assert.ErrorIs(t, err, errdefs.ErrNotFound)

	_, err = f.engine.Assign("db1", "s1", 3)
	assert.ErrorIs(t, err, errdefs.ErrExhausted)

	// Nothing moved on the failed attempt.
	recs, err := f.store.ListRecords(storage.RecordFilter{Status: types.RecordStatusAvailable})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestAssignExcludesOtherStaffClaims(t *testing.T) {
	f := newFixture(t)
	f.seedDatabase(t, "db1", 3)

	// An approved claim by s2 on the first row's customer, left unresolved
	// so the record still sits available.
	require.NoError(t, f.store.CreateReservation(&types.Reservation{
		ID: "res1", CustomerID: "cust-db1-1", ProductID: "p1", StaffID: "s2",
		Status: types.ReservationStatusApproved, CreatedAt: time.Now().UTC(),
	}))

	assigned, err := f.engine.Assign("db1", "s1", 2)
	require.NoError(t, err)
	require.Len(t, assigned, 2)
	assert.Equal(t, 2, assigned[0].RowNumber)
	assert.Equal(t, 3, assigned[1].RowNumber)
}

func TestAssignAllowsOwnClaims(t *testing.T) {
	f := newFixture(t)
	f.seedDatabase(t, "db1", 1)

	require.NoError(t, f.store.CreateReservation(&types.Reservation{
		ID: "res1", CustomerID: "cust-db1-1", ProductID: "p1", StaffID: "s1",
		Status: types.ReservationStatusApproved, CreatedAt: time.Now().UTC(),
	}))

	assigned, err := f.engine.Assign("db1", "s1", 1)
	require.NoError(t, err)
	assert.Len(t, assigned, 1)
}

// contendedStore steals one available record right before the first
// transition, simulating a concurrent writer between selection and
// update.
type contendedStore struct {
	storage.Store
	once  sync.Once
	steal func()
}

func (s *contendedStore) TransitionRecords(ids []string, from types.RecordStatus, mutate func(*types.Record)) ([]*types.Record, error) {
	s.once.Do(s.steal)
	return s.Store.TransitionRecords(ids, from, mutate)
}

func TestAssignRevertsPartialBatchOnRace(t *testing.T) {
	f := newFixture(t)
	f.seedDatabase(t, "db1", 5)

	cs := &contendedStore{Store: f.store}
	cs.steal = func() {
		_, err := f.store.TransitionRecords([]string{"db1-r1"}, types.RecordStatusAvailable, func(rec *types.Record) {
			rec.Status = types.RecordStatusAssigned
			rec.AssignedTo = "s2"
			rec.AssignedAt = time.Now().UTC()
		})
		require.NoError(t, err)
	}
	engine := NewEngine(cs, f.registry, nil)

	assigned, err := engine.Assign("db1", "s1", 3)
	require.NoError(t, err)
	require.Len(t, assigned, 3)

	// The lost race cost s1 its first batch; the reselect hands out
	// exactly three records, not the partial batch plus a fresh one.
	got, err := f.store.ListRecords(storage.RecordFilter{Status: types.RecordStatusAssigned, AssignedTo: "s1"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	rows := lo.Map(got, func(rec *types.Record, _ int) int { return rec.RowNumber })
	assert.ElementsMatch(t, []int{2, 3, 4}, rows)

	remaining, err := f.store.ListRecords(storage.RecordFilter{Status: types.RecordStatusAvailable})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, 5, remaining[0].RowNumber)
	assert.Empty(t, remaining[0].AssignedTo)
}

func TestProcessInvalidArchivesAndReplaces(t *testing.T) {
	f := newFixture(t)
	f.seedDatabase(t, "db1", 4)

	// Two of s1's records went invalid.
	_, err := f.store.TransitionRecords([]string{"db1-r1", "db1-r2"}, types.RecordStatusAvailable, func(rec *types.Record) {
		rec.Status = types.RecordStatusInvalid
		rec.AssignedTo = "s1"
		rec.InvalidReason = types.InvalidReasonReservedByOtherStaff
	})
	require.NoError(t, err)

	result, err := f.engine.ProcessInvalid("s1", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Archived)
	assert.Equal(t, 2, result.NewAssigned)
	assert.Zero(t, result.Shortfall)

	archived, err := f.store.ListRecords(storage.RecordFilter{Status: types.RecordStatusArchived})
	require.NoError(t, err)
	assert.Len(t, archived, 2)
	for _, rec := range archived {
		assert.Empty(t, rec.AssignedTo)
	}

	assigned, err := f.store.ListRecords(storage.RecordFilter{Status: types.RecordStatusAssigned, AssignedTo: "s1"})
	require.NoError(t, err)
	assert.Len(t, assigned, 2)

	// Re-running finds nothing left to archive.
	result, err = f.engine.ProcessInvalid("s1", 10)
	require.NoError(t, err)
	assert.Zero(t, result.Archived)
	assert.Zero(t, result.NewAssigned)
}

func TestProcessInvalidReportsShortfall(t *testing.T) {
	f := newFixture(t)
	f.seedDatabase(t, "db1", 4)

	// Three invalid leaves a single available replacement.
	_, err := f.store.TransitionRecords([]string{"db1-r1", "db1-r2", "db1-r3"}, types.RecordStatusAvailable, func(rec *types.Record) {
		rec.Status = types.RecordStatusInvalid
		rec.AssignedTo = "s1"
	})
	require.NoError(t, err)

	result, err := f.engine.ProcessInvalid("s1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Archived)
	assert.Equal(t, 1, result.NewAssigned)
	assert.Equal(t, 1, result.Shortfall)
}

func TestSubmitAutoApproveMatrix(t *testing.T) {
	trueVal, falseVal := true, false

	tests := []struct {
		name       string
		global     bool
		perDB      *bool
		wantStatus types.RequestStatus
	}{
		{name: "global off, db unset", global: false, perDB: nil, wantStatus: types.RequestStatusPending},
		{name: "global off, db on", global: false, perDB: &trueVal, wantStatus: types.RequestStatusPending},
		{name: "global on, db unset", global: true, perDB: nil, wantStatus: types.RequestStatusCompleted},
		{name: "global on, db on", global: true, perDB: &trueVal, wantStatus: types.RequestStatusCompleted},
		{name: "global on, db off", global: true, perDB: &falseVal, wantStatus: types.RequestStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedDatabase(t, "db1", 3)
			require.NoError(t, f.store.PutAutoApproveConfig(&types.AutoApproveConfig{Enabled: tt.global}))

			db, err := f.store.GetDatabase("db1")
			require.NoError(t, err)
			db.AutoApprove = tt.perDB
			require.NoError(t, f.store.UpdateDatabase(db))

			req, err := f.requests.Submit("db1", "s1", 2)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, req.Status)

			if tt.wantStatus == types.RequestStatusCompleted {
				assert.Equal(t, 2, req.AssignedCount)
				assert.Equal(t, "auto", req.DecidedBy)
			}
		})
	}
}

func TestApproveAssignsExactlyN(t *testing.T) {
	f := newFixture(t)
	f.seedDatabase(t, "db1", 2)

	req, err := f.requests.Submit("db1", "s1", 2)
	require.NoError(t, err)
	require.Equal(t, types.RequestStatusPending, req.Status)

	approved, err := f.requests.Approve(req.ID, "a1")
	require.NoError(t, err)
	assert.Equal(t, types.RequestStatusCompleted, approved.Status)
	assert.Equal(t, 2, approved.AssignedCount)
	assert.Equal(t, "a1", approved.DecidedBy)

	// Completed requests cannot be re-decided.
	_, err = f.requests.Approve(req.ID, "a1")
	assert.ErrorIs(t, err, errdefs.ErrConflict)
}

func TestApproveInsufficientLeavesPending(t *testing.T) {
	f := newFixture(t)
	f.seedDatabase(t, "db1", 1)

	req, err := f.requests.Submit("db1", "s1", 5)
	require.NoError(t, err)

	_, err = f.requests.Approve(req.ID, "a1")
	assert.ErrorIs(t, err, errdefs.ErrExhausted)

	got, err := f.requests.Get(req.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RequestStatusPending, got.Status)
	assert.Empty(t, got.DecidedBy)
	assert.True(t, got.DecidedAt.IsZero())

	// The reverted request can still be decided.
	rejected, err := f.requests.Reject(req.ID, "a1")
	require.NoError(t, err)
	assert.Equal(t, types.RequestStatusRejected, rejected.Status)
}

// decisionTrace records the request status of every persisted update.
type decisionTrace struct {
	storage.Store
	statuses []types.RequestStatus
}

func (s *decisionTrace) UpdateDownloadRequest(req *types.DownloadRequest) error {
	s.statuses = append(s.statuses, req.Status)
	return s.Store.UpdateDownloadRequest(req)
}

func TestApprovePassesThroughApproved(t *testing.T) {
	f := newFixture(t)
	f.seedDatabase(t, "db1", 2)

	trace := &decisionTrace{Store: f.store}
	requests := NewRequests(trace, f.engine, nil)

	req, err := requests.Submit("db1", "s1", 2)
	require.NoError(t, err)

	_, err = requests.Approve(req.ID, "a1")
	require.NoError(t, err)
	assert.Equal(t, []types.RequestStatus{
		types.RequestStatusApproved,
		types.RequestStatusCompleted,
	}, trace.statuses)
}

func TestRejectSetsStateOnly(t *testing.T) {
	f := newFixture(t)
	f.seedDatabase(t, "db1", 2)

	req, err := f.requests.Submit("db1", "s1", 1)
	require.NoError(t, err)

	rejected, err := f.requests.Reject(req.ID, "a1")
	require.NoError(t, err)
	assert.Equal(t, types.RequestStatusRejected, rejected.Status)

	recs, err := f.store.ListRecords(storage.RecordFilter{Status: types.RecordStatusAvailable})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

package resolver

import (
	"testing"
	"time"

	"github.com/kilatworks/omzet/pkg/storage"
	"github.com/kilatworks/omzet/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver(t *testing.T) (*Resolver, *storage.BoltStore) {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewResolver(store, nil), store
}

func seedRecord(t *testing.T, store storage.Store, id string, status types.RecordStatus, assignedTo string, values ...string) {
	t.Helper()
	data := make(map[string]string, len(values))
	for i, v := range values {
		data[string(rune('a'+i))] = v
	}
	rec := &types.Record{
		ID:         id,
		Collection: types.CollectionGeneral,
		DatabaseID: "db1",
		ProductID:  "p1",
		RowNumber:  rowCounter(t),
		RowData:    data,
		Status:     status,
		AssignedTo: assignedTo,
	}
	if status == types.RecordStatusReserved {
		rec.ReservedFor = assignedTo
		rec.AssignedTo = ""
	}
	created, err := store.CreateRecords([]*types.Record{rec})
	require.NoError(t, err)
	require.Equal(t, 1, created)
}

var rowSeq int

func rowCounter(t *testing.T) int {
	t.Helper()
	rowSeq++
	return rowSeq
}

func approvedReservation(t *testing.T, store storage.Store, id, customer, staff string) *types.Reservation {
	t.Helper()
	res := &types.Reservation{
		ID:         id,
		CustomerID: customer,
		ProductID:  "p1",
		StaffID:    staff,
		Status:     types.ReservationStatusApproved,
		CreatedAt:  time.Now().UTC(),
		ApprovedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateReservation(res))
	return res
}

func TestOnAddReservesMatchingAvailable(t *testing.T) {
	r, store := newResolver(t)

	seedRecord(t, store, "match", types.RecordStatusAvailable, "", "Budi", "0812")
	seedRecord(t, store, "other", types.RecordStatusAvailable, "", "Sari")

	res := approvedReservation(t, store, "res1", "budi", "s1")
	summary, err := r.OnAdd(res)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Reserved)
	assert.Zero(t, summary.Invalidated)

	rec, err := store.GetRecord("match")
	require.NoError(t, err)
	assert.Equal(t, types.RecordStatusReserved, rec.Status)
	assert.Equal(t, "s1", rec.ReservedFor)

	rec, err = store.GetRecord("other")
	require.NoError(t, err)
	assert.Equal(t, types.RecordStatusAvailable, rec.Status)
}

func TestOnAddInvalidatesOtherStaffAssignments(t *testing.T) {
	r, store := newResolver(t)

	seedRecord(t, store, "mine", types.RecordStatusAssigned, "s1", "Budi")
	seedRecord(t, store, "theirs", types.RecordStatusAssigned, "s2", "Budi")

	res := approvedReservation(t, store, "res1", "budi", "s1")
	summary, err := r.OnAdd(res)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Invalidated)

	// The reserving staff's own assignment is untouched.
	rec, err := store.GetRecord("mine")
	require.NoError(t, err)
	assert.Equal(t, types.RecordStatusAssigned, rec.Status)

	rec, err = store.GetRecord("theirs")
	require.NoError(t, err)
	assert.Equal(t, types.RecordStatusInvalid, rec.Status)
	assert.Equal(t, types.InvalidReasonReservedByOtherStaff, rec.InvalidReason)
	assert.Equal(t, "s2", rec.AssignedTo)
}

func TestOnRemoveKeepsRecordsCoveredElsewhere(t *testing.T) {
	r, store := newResolver(t)

	seedRecord(t, store, "both", types.RecordStatusReserved, "s1", "Budi", "Sari")
	seedRecord(t, store, "only", types.RecordStatusReserved, "s1", "Budi")

	removed := approvedReservation(t, store, "res1", "budi", "s1")
	approvedReservation(t, store, "res2", "sari", "s2")

	require.NoError(t, store.DeleteReservation(removed.ID))
	summary, err := r.OnRemove(removed)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Released)

	// Covered by res2, so it stays reserved.
	rec, err := store.GetRecord("both")
	require.NoError(t, err)
	assert.Equal(t, types.RecordStatusReserved, rec.Status)

	rec, err = store.GetRecord("only")
	require.NoError(t, err)
	assert.Equal(t, types.RecordStatusAvailable, rec.Status)
	assert.Empty(t, rec.ReservedFor)
}

func TestFullResyncReconstructsState(t *testing.T) {
	r, store := newResolver(t)

	// Should be reserved but sits available.
	seedRecord(t, store, "missed", types.RecordStatusAvailable, "", "Budi")
	// Reserved with no surviving claim.
	seedRecord(t, store, "stale", types.RecordStatusReserved, "s9", "Nobody")
	// Reserved for the wrong staff.
	seedRecord(t, store, "wrong", types.RecordStatusReserved, "s9", "Budi")
	// Assigned to a staff losing to the claim.
	seedRecord(t, store, "conflict", types.RecordStatusAssigned, "s2", "Budi")

	approvedReservation(t, store, "res1", "budi", "s1")

	summary, err := r.FullResync()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Reserved)
	assert.Equal(t, 1, summary.Released)
	assert.Equal(t, 1, summary.Retargeted)
	assert.Equal(t, 1, summary.Invalidated)

	rec, err := store.GetRecord("wrong")
	require.NoError(t, err)
	assert.Equal(t, "s1", rec.ReservedFor)

	// Second run is a no-op.
	summary, err = r.FullResync()
	require.NoError(t, err)
	assert.Zero(t, summary.Changes())
}

func TestAuditDoesNotMutate(t *testing.T) {
	r, store := newResolver(t)

	seedRecord(t, store, "missed", types.RecordStatusAvailable, "", "Budi")
	approvedReservation(t, store, "res1", "budi", "s1")

	summary, err := r.Audit()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Reserved)

	rec, err := store.GetRecord("missed")
	require.NoError(t, err)
	assert.Equal(t, types.RecordStatusAvailable, rec.Status)

	// Auditing twice reports the same drift.
	again, err := r.Audit()
	require.NoError(t, err)
	assert.Equal(t, summary, again)
}

package storage

import (
	"testing"
	"time"

	"github.com/kilatworks/omzet/pkg/errdefs"
	"github.com/kilatworks/omzet/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func record(id, databaseID string, row int, status types.RecordStatus, data map[string]string) *types.Record {
	return &types.Record{
		ID:         id,
		Collection: types.CollectionGeneral,
		DatabaseID: databaseID,
		ProductID:  "p1",
		RowNumber:  row,
		RowData:    data,
		Status:     status,
	}
}

func TestCreateRecordsSkipsDuplicateRows(t *testing.T) {
	s := newStore(t)

	created, err := s.CreateRecords([]*types.Record{
		record("r1", "db1", 1, types.RecordStatusAvailable, nil),
		record("r2", "db1", 2, types.RecordStatusAvailable, nil),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	// Retrying the same rows (fresh IDs, same row numbers) creates nothing.
	created, err = s.CreateRecords([]*types.Record{
		record("r3", "db1", 1, types.RecordStatusAvailable, nil),
		record("r4", "db1", 3, types.RecordStatusAvailable, nil),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	// Same row number in a different database is a different slot.
	created, err = s.CreateRecords([]*types.Record{
		record("r5", "db2", 1, types.RecordStatusAvailable, nil),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created)
}

func TestTransitionRecordsSkipsWrongState(t *testing.T) {
	s := newStore(t)

	_, err := s.CreateRecords([]*types.Record{
		record("r1", "db1", 1, types.RecordStatusAvailable, nil),
		record("r2", "db1", 2, types.RecordStatusAssigned, nil),
	})
	require.NoError(t, err)

	moved, err := s.TransitionRecords([]string{"r1", "r2", "missing"}, types.RecordStatusAvailable, func(rec *types.Record) {
		rec.Status = types.RecordStatusReserved
		rec.ReservedFor = "s1"
	})
	require.NoError(t, err)
	require.Len(t, moved, 1)
	assert.Equal(t, "r1", moved[0].ID)

	// Re-running the same transition finds nothing left to move.
	moved, err = s.TransitionRecords([]string{"r1", "r2"}, types.RecordStatusAvailable, func(rec *types.Record) {
		rec.Status = types.RecordStatusReserved
	})
	require.NoError(t, err)
	assert.Empty(t, moved)
}

func TestApprovedReservationKeyUniqueness(t *testing.T) {
	s := newStore(t)

	first := &types.Reservation{
		ID: "res1", CustomerID: "budi", ProductID: "p1", StaffID: "s1",
		Status: types.ReservationStatusApproved, CreatedAt: time.Now(),
	}
	require.NoError(t, s.CreateReservation(first))

	tests := []struct {
		name    string
		res     *types.Reservation
		wantErr error
	}{
		{
			name: "same key same product conflicts",
			res: &types.Reservation{
				ID: "res2", CustomerID: " BUDI ", ProductID: "p1", StaffID: "s2",
				Status: types.ReservationStatusApproved,
			},
			wantErr: errdefs.ErrConflict,
		},
		{
			name: "overlap through the name slot conflicts",
			res: &types.Reservation{
				ID: "res3", CustomerName: "budi", ProductID: "p1", StaffID: "s2",
				Status: types.ReservationStatusApproved,
			},
			wantErr: errdefs.ErrConflict,
		},
		{
			name: "same key different product is fine",
			res: &types.Reservation{
				ID: "res4", CustomerID: "budi", ProductID: "p2", StaffID: "s2",
				Status: types.ReservationStatusApproved,
			},
		},
		{
			name: "pending reservations are not indexed",
			res: &types.Reservation{
				ID: "res5", CustomerID: "budi", ProductID: "p1", StaffID: "s2",
				Status: types.ReservationStatusPending,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.CreateReservation(tt.res)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestReservationIndexFollowsStatus(t *testing.T) {
	s := newStore(t)

	res := &types.Reservation{
		ID: "res1", CustomerID: "budi", ProductID: "p1", StaffID: "s1",
		Status: types.ReservationStatusPending, CreatedAt: time.Now(),
	}
	require.NoError(t, s.CreateReservation(res))

	// Pending holds no claim.
	_, err := s.ApprovedReservationForKey("p1", "BUDI")
	assert.ErrorIs(t, err, errdefs.ErrNotFound)

	res.Status = types.ReservationStatusApproved
	require.NoError(t, s.UpdateReservation(res))

	got, err := s.ApprovedReservationForKey("p1", "BUDI")
	require.NoError(t, err)
	assert.Equal(t, "res1", got.ID)

	// Expiry releases the claim.
	res.Status = types.ReservationStatusExpired
	require.NoError(t, s.UpdateReservation(res))
	_, err = s.ApprovedReservationForKey("p1", "BUDI")
	assert.ErrorIs(t, err, errdefs.ErrNotFound)
}

func TestDepositSequenceAssignment(t *testing.T) {
	s := newStore(t)

	d1 := &types.Deposit{ID: "d1", ProductID: "p1", CustomerKey: "BUDI", RecordDate: "2024-03-10"}
	d2 := &types.Deposit{ID: "d2", ProductID: "p1", CustomerKey: "BUDI", RecordDate: "2024-03-10"}

	_, err := s.CreateDeposit(d1, nil)
	require.NoError(t, err)
	_, err = s.CreateDeposit(d2, nil)
	require.NoError(t, err)
	assert.Less(t, d1.Seq, d2.Seq)

	// Update keeps the original sequence.
	d1.Notes = "edited"
	_, err = s.UpdateDeposit(d1, nil)
	require.NoError(t, err)
	got, err := s.GetDeposit("d1")
	require.NoError(t, err)
	assert.Equal(t, d1.Seq, got.Seq)
	assert.Equal(t, "edited", got.Notes)
}

func TestConfigDefaults(t *testing.T) {
	s := newStore(t)

	sched, err := s.GetSchedulerConfig()
	require.NoError(t, err)
	assert.Equal(t, "01:00", sched.DailyReportAt)
	assert.Equal(t, "02:00", sched.SweepAt)
	assert.Equal(t, 6, sched.HealthCheckHours)
	assert.Equal(t, "Asia/Jakarta", sched.Timezone)

	cleanup, err := s.GetCleanupConfig()
	require.NoError(t, err)
	assert.Equal(t, 30, cleanup.GraceDays)

	auto, err := s.GetAutoApproveConfig()
	require.NoError(t, err)
	assert.False(t, auto.Enabled)

	// Persisted values round-trip.
	require.NoError(t, s.PutCleanupConfig(&types.CleanupConfig{
		GraceDays:        14,
		ProductGraceDays: map[string]int{"p1": 7},
	}))
	cleanup, err = s.GetCleanupConfig()
	require.NoError(t, err)
	assert.Equal(t, 7, cleanup.GraceDaysFor("p1"))
	assert.Equal(t, 14, cleanup.GraceDaysFor("p2"))
}

func TestDeleteRecordsByDatabaseFreesRowSlots(t *testing.T) {
	s := newStore(t)

	_, err := s.CreateRecords([]*types.Record{
		record("r1", "db1", 1, types.RecordStatusAvailable, nil),
		record("r2", "db1", 2, types.RecordStatusAssigned, nil),
		record("r3", "db2", 1, types.RecordStatusAvailable, nil),
	})
	require.NoError(t, err)

	deleted, err := s.DeleteRecordsByDatabase("db1")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	// Row slots are reusable after a purge.
	created, err := s.CreateRecords([]*types.Record{
		record("r4", "db1", 1, types.RecordStatusAvailable, nil),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	counts, err := s.CountRecordsByDatabase("db2")
	require.NoError(t, err)
	assert.Equal(t, 1, counts[types.RecordStatusAvailable])
}

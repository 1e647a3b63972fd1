package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/kilatworks/omzet/pkg/errdefs"
	"github.com/kilatworks/omzet/pkg/ident"
	"github.com/kilatworks/omzet/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketRecords         = []byte("records")
	bucketRecordRows      = []byte("record_rows")      // databaseID|rowNumber -> record ID
	bucketReservations    = []byte("reservations")
	bucketReservationKeys = []byte("reservation_keys") // productID|normalized key -> approved reservation ID
	bucketDeposits        = []byte("deposits")
	bucketRequests        = []byte("download_requests")
	bucketDatabases       = []byte("databases")
	bucketUsers           = []byte("users")
	bucketConfig          = []byte("config")
)

// Config singleton keys
var (
	configKeyScheduler   = []byte("scheduler")
	configKeyCleanup     = []byte("cleanup")
	configKeyAutoApprove = []byte("auto_approve")
)

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "omzet.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketRecords,
			bucketRecordRows,
			bucketReservations,
			bucketReservationKeys,
			bucketDeposits,
			bucketRequests,
			bucketDatabases,
			bucketUsers,
			bucketConfig,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func rowKey(databaseID string, rowNumber int) []byte {
	return fmt.Appendf(nil, "%s|%08d", databaseID, rowNumber)
}

func reservationKey(productID, key string) []byte {
	return fmt.Appendf(nil, "%s|%s", productID, key)
}

// --- Record operations ---

// CreateRecords inserts the given records, skipping any whose
// (database_id, row_number) slot is already taken. Returns the number
// actually created.
func (s *BoltStore) CreateRecords(recs []*types.Record) (int, error) {
	created := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		rows := tx.Bucket(bucketRecordRows)

		for _, rec := range recs {
			rk := rowKey(rec.DatabaseID, rec.RowNumber)
			if rows.Get(rk) != nil {
				continue // row already ingested
			}
			data, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(rec.ID), data); err != nil {
				return err
			}
			if err := rows.Put(rk, []byte(rec.ID)); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	return created, err
}

// GetRecord retrieves a record by ID
func (s *BoltStore) GetRecord(id string) (*types.Record, error) {
	var rec types.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("record %s: %w", id, errdefs.ErrNotFound)
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateRecord updates an existing record
func (s *BoltStore) UpdateRecord(rec *types.Record) error {
	return s.UpdateRecords([]*types.Record{rec})
}

// UpdateRecords writes the given records in a single transaction
func (s *BoltStore) UpdateRecords(recs []*types.Record) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		for _, rec := range recs {
			rec.UpdatedAt = time.Now().UTC()
			data, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(rec.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func matchesFilter(rec *types.Record, f RecordFilter) bool {
	if f.Collection != "" && rec.Collection != f.Collection {
		return false
	}
	if f.DatabaseID != "" && rec.DatabaseID != f.DatabaseID {
		return false
	}
	if f.Status != "" && rec.Status != f.Status {
		return false
	}
	if f.AssignedTo != "" && rec.AssignedTo != f.AssignedTo {
		return false
	}
	return true
}

// ListRecords returns records matching the filter, ordered by
// (database_id, row_number) for deterministic selection.
func (s *BoltStore) ListRecords(filter RecordFilter) ([]*types.Record, error) {
	var records []*types.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		return b.ForEach(func(k, v []byte) error {
			var rec types.Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if matchesFilter(&rec, filter) {
				records = append(records, &rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].DatabaseID != records[j].DatabaseID {
			return records[i].DatabaseID < records[j].DatabaseID
		}
		return records[i].RowNumber < records[j].RowNumber
	})
	return records, nil
}

// TransitionRecords moves the identified records out of the `from` status
// in one transaction, applying mutate to each. Records no longer in the
// `from` status are skipped, which makes re-runs of the same transition
// yield nothing. Returns the records actually transitioned.
func (s *BoltStore) TransitionRecords(ids []string, from types.RecordStatus, mutate func(*types.Record)) ([]*types.Record, error) {
	var updated []*types.Record
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		for _, id := range ids {
			data := b.Get([]byte(id))
			if data == nil {
				continue
			}
			var rec types.Record
			if err := json.Unmarshal(data, &rec); err != nil {
				return err
			}
			if rec.Status != from {
				continue
			}
			mutate(&rec)
			rec.UpdatedAt = time.Now().UTC()
			out, err := json.Marshal(&rec)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(id), out); err != nil {
				return err
			}
			updated = append(updated, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteRecordsByDatabase removes all records of a database along with
// their row-index entries. This is the only record destruction path.
func (s *BoltStore) DeleteRecordsByDatabase(databaseID string) (int, error) {
	deleted := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		rows := tx.Bucket(bucketRecordRows)

		var ids [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var rec types.Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if rec.DatabaseID == databaseID {
				ids = append(ids, append([]byte(nil), k...))
				if err := rows.Delete(rowKey(rec.DatabaseID, rec.RowNumber)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := b.Delete(id); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}

// CountRecordsByDatabase returns the per-status record counts for a database
func (s *BoltStore) CountRecordsByDatabase(databaseID string) (map[types.RecordStatus]int, error) {
	counts := make(map[types.RecordStatus]int)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		return b.ForEach(func(k, v []byte) error {
			var rec types.Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if rec.DatabaseID == databaseID {
				counts[rec.Status]++
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// --- Reservation operations ---

// CreateReservation stores a reservation. For approved reservations the
// normalized key index is written in the same transaction; a key already
// claimed under the same product by another reservation fails the whole
// create with a conflict. This index is the uniqueness constraint that
// serializes concurrent claims on overlapping key sets.
func (s *BoltStore) CreateReservation(r *types.Reservation) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketReservations)
		if err := s.indexReservationKeys(tx, r); err != nil {
			return err
		}
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		return b.Put([]byte(r.ID), data)
	})
}

func (s *BoltStore) indexReservationKeys(tx *bolt.Tx, r *types.Reservation) error {
	if r.Status != types.ReservationStatusApproved {
		return nil
	}
	idx := tx.Bucket(bucketReservationKeys)
	for key := range ident.ReservationKeys(r) {
		ik := reservationKey(r.ProductID, key)
		if existing := idx.Get(ik); existing != nil && string(existing) != r.ID {
			return fmt.Errorf("customer %q already reserved under product %s: %w", key, r.ProductID, errdefs.ErrConflict)
		}
	}
	for key := range ident.ReservationKeys(r) {
		if err := idx.Put(reservationKey(r.ProductID, key), []byte(r.ID)); err != nil {
			return err
		}
	}
	return nil
}

func (s *BoltStore) unindexReservationKeys(tx *bolt.Tx, r *types.Reservation) error {
	idx := tx.Bucket(bucketReservationKeys)
	for key := range ident.ReservationKeys(r) {
		ik := reservationKey(r.ProductID, key)
		if string(idx.Get(ik)) == r.ID {
			if err := idx.Delete(ik); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetReservation retrieves a reservation by ID
func (s *BoltStore) GetReservation(id string) (*types.Reservation, error) {
	var r types.Reservation
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketReservations)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("reservation %s: %w", id, errdefs.ErrNotFound)
		}
		return json.Unmarshal(data, &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateReservation rewrites a reservation, maintaining the approved-key
// index across status transitions.
func (s *BoltStore) UpdateReservation(r *types.Reservation) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketReservations)
		data := b.Get([]byte(r.ID))
		if data == nil {
			return fmt.Errorf("reservation %s: %w", r.ID, errdefs.ErrNotFound)
		}
		var old types.Reservation
		if err := json.Unmarshal(data, &old); err != nil {
			return err
		}
		if old.Status == types.ReservationStatusApproved {
			if err := s.unindexReservationKeys(tx, &old); err != nil {
				return err
			}
		}
		if err := s.indexReservationKeys(tx, r); err != nil {
			return err
		}
		out, err := json.Marshal(r)
		if err != nil {
			return err
		}
		return b.Put([]byte(r.ID), out)
	})
}

// DeleteReservation removes a reservation and its key index entries
func (s *BoltStore) DeleteReservation(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketReservations)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("reservation %s: %w", id, errdefs.ErrNotFound)
		}
		var r types.Reservation
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		if err := s.unindexReservationKeys(tx, &r); err != nil {
			return err
		}
		return b.Delete([]byte(id))
	})
}

// ListReservations returns reservations, optionally filtered by status,
// ordered by creation time.
func (s *BoltStore) ListReservations(status types.ReservationStatus) ([]*types.Reservation, error) {
	var reservations []*types.Reservation
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketReservations)
		return b.ForEach(func(k, v []byte) error {
			var r types.Reservation
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			if status == "" || r.Status == status {
				reservations = append(reservations, &r)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(reservations, func(i, j int) bool {
		if !reservations[i].CreatedAt.Equal(reservations[j].CreatedAt) {
			return reservations[i].CreatedAt.Before(reservations[j].CreatedAt)
		}
		return reservations[i].ID < reservations[j].ID
	})
	return reservations, nil
}

// ApprovedReservationForKey resolves the approved reservation holding a
// normalized key under a product, via the key index.
func (s *BoltStore) ApprovedReservationForKey(productID, key string) (*types.Reservation, error) {
	var r types.Reservation
	err := s.db.View(func(tx *bolt.Tx) error {
		idx := tx.Bucket(bucketReservationKeys)
		id := idx.Get(reservationKey(productID, key))
		if id == nil {
			return fmt.Errorf("no approved reservation for %q under product %s: %w", key, productID, errdefs.ErrNotFound)
		}
		data := tx.Bucket(bucketReservations).Get(id)
		if data == nil {
			return fmt.Errorf("reservation %s: %w", id, errdefs.ErrNotFound)
		}
		return json.Unmarshal(data, &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// --- Deposit operations ---

func (s *BoltStore) reclassifyInTx(tx *bolt.Tx, productID, customerKey string, classify ClassifyFunc) ([]Flip, error) {
	if classify == nil || customerKey == "" {
		return nil, nil
	}
	b := tx.Bucket(bucketDeposits)

	var set []*types.Deposit
	err := b.ForEach(func(k, v []byte) error {
		var d types.Deposit
		if err := json.Unmarshal(v, &d); err != nil {
			return err
		}
		if d.ProductID == productID && d.CustomerKey == customerKey {
			set = append(set, &d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortDeposits(set)

	want := classify(set)
	var flips []Flip
	for _, d := range set {
		target, ok := want[d.ID]
		if !ok || target == d.CustomerType {
			continue
		}
		flips = append(flips, Flip{Deposit: d, From: d.CustomerType, To: target})
		d.CustomerType = target
		d.UpdatedAt = time.Now().UTC()
		data, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		if err := b.Put([]byte(d.ID), data); err != nil {
			return nil, err
		}
	}
	return flips, nil
}

func sortDeposits(set []*types.Deposit) {
	sort.Slice(set, func(i, j int) bool {
		if set[i].RecordDate != set[j].RecordDate {
			return set[i].RecordDate < set[j].RecordDate
		}
		return set[i].Seq < set[j].Seq
	})
}

// CreateDeposit inserts a deposit, assigns its insertion sequence, and
// reclassifies its recompute key in the same transaction.
func (s *BoltStore) CreateDeposit(d *types.Deposit, classify ClassifyFunc) ([]Flip, error) {
	var flips []Flip
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDeposits)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		d.Seq = seq
		data, err := json.Marshal(d)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(d.ID), data); err != nil {
			return err
		}
		flips, err = s.reclassifyInTx(tx, d.ProductID, d.CustomerKey, classify)
		return err
	})
	if err != nil {
		return nil, err
	}
	return flips, nil
}

// GetDeposit retrieves a deposit by ID
func (s *BoltStore) GetDeposit(id string) (*types.Deposit, error) {
	var d types.Deposit
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDeposits)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("deposit %s: %w", id, errdefs.ErrNotFound)
		}
		return json.Unmarshal(data, &d)
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// UpdateDeposit rewrites a deposit and reclassifies both the old and new
// recompute keys when the edit moved the deposit between them. Insertion
// sequence and creation time are immutable.
func (s *BoltStore) UpdateDeposit(d *types.Deposit, classify ClassifyFunc) ([]Flip, error) {
	var flips []Flip
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDeposits)
		data := b.Get([]byte(d.ID))
		if data == nil {
			return fmt.Errorf("deposit %s: %w", d.ID, errdefs.ErrNotFound)
		}
		var old types.Deposit
		if err := json.Unmarshal(data, &old); err != nil {
			return err
		}
		d.Seq = old.Seq
		d.CreatedAt = old.CreatedAt
		d.UpdatedAt = time.Now().UTC()

		out, err := json.Marshal(d)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(d.ID), out); err != nil {
			return err
		}

		if old.ProductID != d.ProductID || old.CustomerKey != d.CustomerKey {
			oldFlips, err := s.reclassifyInTx(tx, old.ProductID, old.CustomerKey, classify)
			if err != nil {
				return err
			}
			flips = append(flips, oldFlips...)
		}
		newFlips, err := s.reclassifyInTx(tx, d.ProductID, d.CustomerKey, classify)
		if err != nil {
			return err
		}
		flips = append(flips, newFlips...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return flips, nil
}

// DeleteDeposit removes a deposit and reclassifies its recompute key
func (s *BoltStore) DeleteDeposit(id string, classify ClassifyFunc) ([]Flip, error) {
	var flips []Flip
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDeposits)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("deposit %s: %w", id, errdefs.ErrNotFound)
		}
		var old types.Deposit
		if err := json.Unmarshal(data, &old); err != nil {
			return err
		}
		if err := b.Delete([]byte(id)); err != nil {
			return err
		}
		var err error
		flips, err = s.reclassifyInTx(tx, old.ProductID, old.CustomerKey, classify)
		return err
	})
	if err != nil {
		return nil, err
	}
	return flips, nil
}

func (s *BoltStore) listDeposits(keep func(*types.Deposit) bool) ([]*types.Deposit, error) {
	var deposits []*types.Deposit
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDeposits)
		return b.ForEach(func(k, v []byte) error {
			var d types.Deposit
			if err := json.Unmarshal(v, &d); err != nil {
				return err
			}
			if keep == nil || keep(&d) {
				deposits = append(deposits, &d)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortDeposits(deposits)
	return deposits, nil
}

// ListDepositsByKey returns the deposit set of one recompute key, in
// classification order (record_date, then insertion sequence).
func (s *BoltStore) ListDepositsByKey(productID, customerKey string) ([]*types.Deposit, error) {
	return s.listDeposits(func(d *types.Deposit) bool {
		return d.ProductID == productID && d.CustomerKey == customerKey
	})
}

// ListDepositsByDate returns all deposits recorded on a calendar date, in
// stable (record_date, insertion sequence) order.
func (s *BoltStore) ListDepositsByDate(date string) ([]*types.Deposit, error) {
	return s.listDeposits(func(d *types.Deposit) bool {
		return d.RecordDate == date
	})
}

// ListDeposits returns all deposits in stable order
func (s *BoltStore) ListDeposits() ([]*types.Deposit, error) {
	return s.listDeposits(nil)
}

// --- Download request operations ---

// CreateDownloadRequest creates a new download request
func (s *BoltStore) CreateDownloadRequest(req *types.DownloadRequest) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRequests)
		data, err := json.Marshal(req)
		if err != nil {
			return err
		}
		return b.Put([]byte(req.ID), data)
	})
}

// GetDownloadRequest retrieves a download request by ID
func (s *BoltStore) GetDownloadRequest(id string) (*types.DownloadRequest, error) {
	var req types.DownloadRequest
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRequests)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("download request %s: %w", id, errdefs.ErrNotFound)
		}
		return json.Unmarshal(data, &req)
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateDownloadRequest updates an existing download request
func (s *BoltStore) UpdateDownloadRequest(req *types.DownloadRequest) error {
	return s.CreateDownloadRequest(req)
}

// ListDownloadRequests returns requests, optionally filtered by status,
// oldest first.
func (s *BoltStore) ListDownloadRequests(status types.RequestStatus) ([]*types.DownloadRequest, error) {
	var requests []*types.DownloadRequest
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRequests)
		return b.ForEach(func(k, v []byte) error {
			var req types.DownloadRequest
			if err := json.Unmarshal(v, &req); err != nil {
				return err
			}
			if status == "" || req.Status == status {
				requests = append(requests, &req)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(requests, func(i, j int) bool {
		if !requests[i].CreatedAt.Equal(requests[j].CreatedAt) {
			return requests[i].CreatedAt.Before(requests[j].CreatedAt)
		}
		return requests[i].ID < requests[j].ID
	})
	return requests, nil
}

// --- Database operations ---

// CreateDatabase creates a new database descriptor
func (s *BoltStore) CreateDatabase(db *types.Database) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDatabases)
		data, err := json.Marshal(db)
		if err != nil {
			return err
		}
		return b.Put([]byte(db.ID), data)
	})
}

// GetDatabase retrieves a database descriptor by ID
func (s *BoltStore) GetDatabase(id string) (*types.Database, error) {
	var db types.Database
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDatabases)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("database %s: %w", id, errdefs.ErrNotFound)
		}
		return json.Unmarshal(data, &db)
	})
	if err != nil {
		return nil, err
	}
	return &db, nil
}

// UpdateDatabase updates an existing database descriptor
func (s *BoltStore) UpdateDatabase(db *types.Database) error {
	return s.CreateDatabase(db)
}

// ListDatabases returns all database descriptors
func (s *BoltStore) ListDatabases() ([]*types.Database, error) {
	var databases []*types.Database
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDatabases)
		return b.ForEach(func(k, v []byte) error {
			var db types.Database
			if err := json.Unmarshal(v, &db); err != nil {
				return err
			}
			databases = append(databases, &db)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(databases, func(i, j int) bool { return databases[i].ID < databases[j].ID })
	return databases, nil
}

// DeleteDatabase removes a database descriptor
func (s *BoltStore) DeleteDatabase(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDatabases)
		return b.Delete([]byte(id))
	})
}

// --- User operations ---

// CreateUser creates a new user
func (s *BoltStore) CreateUser(u *types.User) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		data, err := json.Marshal(u)
		if err != nil {
			return err
		}
		return b.Put([]byte(u.ID), data)
	})
}

// GetUser retrieves a user by ID
func (s *BoltStore) GetUser(id string) (*types.User, error) {
	var u types.User
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("user %s: %w", id, errdefs.ErrNotFound)
		}
		return json.Unmarshal(data, &u)
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUser updates an existing user
func (s *BoltStore) UpdateUser(u *types.User) error {
	return s.CreateUser(u)
}

// ListUsers returns all users
func (s *BoltStore) ListUsers() ([]*types.User, error) {
	var users []*types.User
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		return b.ForEach(func(k, v []byte) error {
			var u types.User
			if err := json.Unmarshal(v, &u); err != nil {
				return err
			}
			users = append(users, &u)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// DeleteUser removes a user
func (s *BoltStore) DeleteUser(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		return b.Delete([]byte(id))
	})
}

// --- Configuration singletons ---

func (s *BoltStore) getConfig(key []byte, out any) (bool, error) {
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConfig)
		data := b.Get(key)
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, out)
	})
	return found, err
}

func (s *BoltStore) putConfig(key []byte, cfg any) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConfig)
		data, err := json.Marshal(cfg)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// GetSchedulerConfig returns the persisted scheduler configuration, or the
// defaults when none has been saved.
func (s *BoltStore) GetSchedulerConfig() (*types.SchedulerConfig, error) {
	var cfg types.SchedulerConfig
	found, err := s.getConfig(configKeyScheduler, &cfg)
	if err != nil {
		return nil, err
	}
	if !found {
		return types.DefaultSchedulerConfig(), nil
	}
	return &cfg, nil
}

// PutSchedulerConfig persists the scheduler configuration
func (s *BoltStore) PutSchedulerConfig(cfg *types.SchedulerConfig) error {
	return s.putConfig(configKeyScheduler, cfg)
}

// GetCleanupConfig returns the persisted grace-period configuration, or a
// 30-day default when none has been saved.
func (s *BoltStore) GetCleanupConfig() (*types.CleanupConfig, error) {
	var cfg types.CleanupConfig
	found, err := s.getConfig(configKeyCleanup, &cfg)
	if err != nil {
		return nil, err
	}
	if !found {
		return &types.CleanupConfig{GraceDays: 30}, nil
	}
	return &cfg, nil
}

// PutCleanupConfig persists the grace-period configuration
func (s *BoltStore) PutCleanupConfig(cfg *types.CleanupConfig) error {
	return s.putConfig(configKeyCleanup, cfg)
}

// GetAutoApproveConfig returns the global auto-approve setting; off by
// default.
func (s *BoltStore) GetAutoApproveConfig() (*types.AutoApproveConfig, error) {
	var cfg types.AutoApproveConfig
	if _, err := s.getConfig(configKeyAutoApprove, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PutAutoApproveConfig persists the global auto-approve setting
func (s *BoltStore) PutAutoApproveConfig(cfg *types.AutoApproveConfig) error {
	return s.putConfig(configKeyAutoApprove, cfg)
}

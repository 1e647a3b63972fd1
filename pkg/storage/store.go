package storage

import (
	"github.com/kilatworks/omzet/pkg/types"
)

// RecordFilter narrows record queries. Zero-valued fields are ignored.
type RecordFilter struct {
	Collection types.Collection
	DatabaseID string
	Status     types.RecordStatus
	AssignedTo string
}

// ClassifyFunc recomputes customer types for the full deposit set of one
// (product, normalized customer) recompute key. It is pure and is invoked
// inside the write transaction that mutated the set.
type ClassifyFunc func(deposits []*types.Deposit) map[string]types.CustomerType

// Flip records a classification change applied during a deposit write.
type Flip struct {
	Deposit *types.Deposit
	From    types.CustomerType
	To      types.CustomerType
}

// Store defines the interface for engine state persistence
type Store interface {
	// Records
	CreateRecords(recs []*types.Record) (created int, err error)
	GetRecord(id string) (*types.Record, error)
	UpdateRecord(rec *types.Record) error
	UpdateRecords(recs []*types.Record) error
	ListRecords(filter RecordFilter) ([]*types.Record, error)
	TransitionRecords(ids []string, from types.RecordStatus, mutate func(*types.Record)) ([]*types.Record, error)
	DeleteRecordsByDatabase(databaseID string) (int, error)
	CountRecordsByDatabase(databaseID string) (map[types.RecordStatus]int, error)

	// Reservations
	CreateReservation(r *types.Reservation) error
	GetReservation(id string) (*types.Reservation, error)
	UpdateReservation(r *types.Reservation) error
	DeleteReservation(id string) error
	ListReservations(status types.ReservationStatus) ([]*types.Reservation, error)
	ApprovedReservationForKey(productID, key string) (*types.Reservation, error)

	// Deposits. Mutations take the classifier so the recompute key's
	// classifications are rewritten in the same transaction.
	CreateDeposit(d *types.Deposit, classify ClassifyFunc) ([]Flip, error)
	GetDeposit(id string) (*types.Deposit, error)
	UpdateDeposit(d *types.Deposit, classify ClassifyFunc) ([]Flip, error)
	DeleteDeposit(id string, classify ClassifyFunc) ([]Flip, error)
	ListDepositsByKey(productID, customerKey string) ([]*types.Deposit, error)
	ListDepositsByDate(date string) ([]*types.Deposit, error)
	ListDeposits() ([]*types.Deposit, error)

	// Download requests
	CreateDownloadRequest(req *types.DownloadRequest) error
	GetDownloadRequest(id string) (*types.DownloadRequest, error)
	UpdateDownloadRequest(req *types.DownloadRequest) error
	ListDownloadRequests(status types.RequestStatus) ([]*types.DownloadRequest, error)

	// Databases
	CreateDatabase(db *types.Database) error
	GetDatabase(id string) (*types.Database, error)
	UpdateDatabase(db *types.Database) error
	ListDatabases() ([]*types.Database, error)
	DeleteDatabase(id string) error

	// Users
	CreateUser(u *types.User) error
	GetUser(id string) (*types.User, error)
	UpdateUser(u *types.User) error
	ListUsers() ([]*types.User, error)
	DeleteUser(id string) error

	// Configuration singletons
	GetSchedulerConfig() (*types.SchedulerConfig, error)
	PutSchedulerConfig(cfg *types.SchedulerConfig) error
	GetCleanupConfig() (*types.CleanupConfig, error)
	PutCleanupConfig(cfg *types.CleanupConfig) error
	GetAutoApproveConfig() (*types.AutoApproveConfig, error)
	PutAutoApproveConfig(cfg *types.AutoApproveConfig) error

	// Utility
	Close() error
}

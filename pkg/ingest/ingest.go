package ingest

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kilatworks/omzet/pkg/errdefs"
	"github.com/kilatworks/omzet/pkg/log"
	"github.com/kilatworks/omzet/pkg/storage"
	"github.com/kilatworks/omzet/pkg/types"
	"github.com/rs/zerolog"
)

// Ingestor accepts already-parsed rows from the upload collaborator and
// turns them into available records.
type Ingestor struct {
	store  storage.Store
	logger zerolog.Logger
}

// NewIngestor creates a new ingestor
func NewIngestor(store storage.Store) *Ingestor {
	return &Ingestor{
		store:  store,
		logger: log.WithComponent("ingest"),
	}
}

// CreateDatabase registers a new record source. autoApprove nil follows
// the global auto-approve setting.
func (i *Ingestor) CreateDatabase(name, productID string, collection types.Collection, autoApprove *bool) (*types.Database, error) {
	if name == "" || productID == "" {
		return nil, fmt.Errorf("name and product id are required: %w", errdefs.ErrValidation)
	}
	now := time.Now().UTC()
	db := &types.Database{
		ID:          uuid.New().String(),
		Name:        name,
		ProductID:   productID,
		Collection:  collection,
		AutoApprove: autoApprove,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := i.store.CreateDatabase(db); err != nil {
		return nil, err
	}
	i.logger.Info().Str("database_id", db.ID).Str("name", name).Msg("database created")
	return db, nil
}

// Append stores parsed rows as available records of a database. Row
// numbers continue from the database's current total, and rows whose
// number already exists are skipped, so a retried upload does not
// duplicate records. Returns the number of records actually created.
func (i *Ingestor) Append(databaseID string, rows []map[string]string) (int, error) {
	db, err := i.store.GetDatabase(databaseID)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	recs := make([]*types.Record, 0, len(rows))
	for n, row := range rows {
		recs = append(recs, &types.Record{
			ID:         uuid.New().String(),
			Collection: db.Collection,
			DatabaseID: db.ID,
			ProductID:  db.ProductID,
			RowNumber:  db.TotalRecords + n + 1,
			RowData:    row,
			Status:     types.RecordStatusAvailable,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	created, err := i.store.CreateRecords(recs)
	if err != nil {
		return 0, fmt.Errorf("failed to create records: %w", err)
	}

	counts, err := i.store.CountRecordsByDatabase(db.ID)
	if err != nil {
		return created, fmt.Errorf("failed to recount database: %w", err)
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	db.TotalRecords = total
	db.StatusCounts = counts
	db.UpdatedAt = time.Now().UTC()
	if err := i.store.UpdateDatabase(db); err != nil {
		return created, fmt.Errorf("failed to update database counts: %w", err)
	}

	logger := log.WithDatabaseID(db.ID)
	logger.Info().
		Int("rows", len(rows)).
		Int("created", created).
		Msg("rows ingested")
	return created, nil
}

// Purge deletes a database and every record it owns. Returns the number
// of records removed.
func (i *Ingestor) Purge(databaseID string) (int, error) {
	if _, err := i.store.GetDatabase(databaseID); err != nil {
		return 0, err
	}
	removed, err := i.store.DeleteRecordsByDatabase(databaseID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete records: %w", err)
	}
	if err := i.store.DeleteDatabase(databaseID); err != nil {
		return removed, err
	}
	i.logger.Info().Str("database_id", databaseID).Int("removed", removed).Msg("database purged")
	return removed, nil
}

/*
Package ingest provides database creation and row ingestion for Omzet.

The ingest package turns uploaded row batches into records. Row numbers
continue from the database's current total, duplicate row slots are skipped
rather than overwritten, and the database's counts are recomputed from the
record store after every append. Purge removes a database and frees its
records' row slots.

# Usage

	ing := ingest.NewIngestor(store)

	db, err := ing.CreateDatabase("august-leads", "p1", types.CollectionGeneral, nil)
	added, err := ing.Append(db.ID, rows)
	removed, err := ing.Purge(db.ID)
*/
package ingest

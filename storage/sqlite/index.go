package sqlite

import (
	"context"

	"github.com/poiesic/sitesearch/core"
	"github.com/poiesic/sitesearch/storage"
)

// IndexRepository implements storage.IndexRepository for SQLite.
type IndexRepository struct {
	backend *Backend
}

var _ storage.IndexRepository = (*IndexRepository)(nil)

// Close is a no-op; the backend owns the connection.
func (r *IndexRepository) Close() error { return nil }

// WithTransaction delegates to the backend.
func (r *IndexRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddIndexEntries inserts entries in one transaction.
func (r *IndexRepository) AddIndexEntries(ctx context.Context, entries ...*core.IndexEntry) error {
	for _, entry := range entries {
		if err := core.ValidateIndexEntry(entry); err != nil {
			return err
		}
	}
	return r.backend.WithTransaction(ctx, func(ctx context.Context) error {
		for _, entry := range entries {
			_, err := r.backend.conn(ctx).ExecContext(ctx,
				`INSERT INTO index_entries (page_id, lemma_id, rank) VALUES (?, ?, ?)`,
				int64(entry.PageId), int64(entry.LemmaId), entry.Rank)
			if err != nil {
				return translateError(err)
			}
		}
		return nil
	})
}

// DeleteIndexEntries removes entries in one transaction.
func (r *IndexRepository) DeleteIndexEntries(ctx context.Context, entries ...*core.IndexEntry) error {
	return r.backend.WithTransaction(ctx, func(ctx context.Context) error {
		for _, entry := range entries {
			_, err := r.backend.conn(ctx).ExecContext(ctx,
				`DELETE FROM index_entries WHERE page_id = ? AND lemma_id = ?`,
				int64(entry.PageId), int64(entry.LemmaId))
			if err != nil {
				return translateError(err)
			}
		}
		return nil
	})
}

// GetIndexEntriesByPage returns every entry of a page.
func (r *IndexRepository) GetIndexEntriesByPage(ctx context.Context, pageID core.ID) ([]*core.IndexEntry, error) {
	return r.query(ctx,
		`SELECT page_id, lemma_id, rank FROM index_entries WHERE page_id = ?`, int64(pageID))
}

// GetIndexEntriesByLemma returns every entry referencing a lemma.
func (r *IndexRepository) GetIndexEntriesByLemma(ctx context.Context, lemmaID core.ID) ([]*core.IndexEntry, error) {
	return r.query(ctx,
		`SELECT page_id, lemma_id, rank FROM index_entries WHERE lemma_id = ? ORDER BY page_id`, int64(lemmaID))
}

func (r *IndexRepository) query(ctx context.Context, query string, args ...any) ([]*core.IndexEntry, error) {
	rows, err := r.backend.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var entries []*core.IndexEntry
	for rows.Next() {
		var pageID, lemmaID int64
		var rank float64
		if err := rows.Scan(&pageID, &lemmaID, &rank); err != nil {
			return nil, translateError(err)
		}
		entries = append(entries, &core.IndexEntry{
			PageId:  core.ID(pageID),
			LemmaId: core.ID(lemmaID),
			Rank:    float32(rank),
		})
	}
	return entries, rows.Err()
}

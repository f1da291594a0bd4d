package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/sitesearch/core"
	"github.com/poiesic/sitesearch/storage"
)

// IndexRepository implements storage.IndexRepository for BadgerDB.
// Each entry is stored twice, keyed page-first and lemma-first.
type IndexRepository struct {
	backend *Backend
}

var _ storage.IndexRepository = (*IndexRepository)(nil)

// NewIndexRepository creates a new IndexRepository.
func NewIndexRepository(backend *Backend) (*IndexRepository, error) {
	return &IndexRepository{backend: backend}, nil
}

// Close is a no-op.
func (r *IndexRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *IndexRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddIndexEntries stores index entries.
func (r *IndexRepository) AddIndexEntries(ctx context.Context, entries ...*core.IndexEntry) error {
	for _, entry := range entries {
		if err := core.ValidateIndexEntry(entry); err != nil {
			return err
		}
	}
	return r.backend.update(ctx, func(tx *badger.Txn) error {
		for _, entry := range entries {
			pageKey := makeIndexPageKey(entry.PageId, entry.LemmaId)
			found, err := exists(tx, pageKey)
			if err != nil {
				return err
			}
			if found {
				return storage.ErrDuplicateKey
			}
			value := storage.MarshalIndexEntry(entry)
			if err := tx.Set(pageKey, value); err != nil {
				return err
			}
			if err := tx.Set(makeIndexLemmaKey(entry.LemmaId, entry.PageId), value); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteIndexEntries removes index entries.
func (r *IndexRepository) DeleteIndexEntries(ctx context.Context, entries ...*core.IndexEntry) error {
	return r.backend.update(ctx, func(tx *badger.Txn) error {
		for _, entry := range entries {
			if err := tx.Delete(makeIndexPageKey(entry.PageId, entry.LemmaId)); err != nil {
				return err
			}
			if err := tx.Delete(makeIndexLemmaKey(entry.LemmaId, entry.PageId)); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetIndexEntriesByPage returns every entry of a page.
func (r *IndexRepository) GetIndexEntriesByPage(ctx context.Context, pageID core.ID) ([]*core.IndexEntry, error) {
	return r.scan(ctx, makeKey(indexPagePrefix, pageID))
}

// GetIndexEntriesByLemma returns every entry referencing a lemma.
func (r *IndexRepository) GetIndexEntriesByLemma(ctx context.Context, lemmaID core.ID) ([]*core.IndexEntry, error) {
	return r.scan(ctx, makeKey(indexLemmaPrefix, lemmaID))
}

func (r *IndexRepository) scan(ctx context.Context, prefix []byte) ([]*core.IndexEntry, error) {
	var results []*core.IndexEntry
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				entry, err := storage.UnmarshalIndexEntry(val)
				if err != nil {
					return err
				}
				results = append(results, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return results, err
}

package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/sitesearch/core"
	"github.com/poiesic/sitesearch/storage"
)

// PageRepository implements storage.PageRepository for BadgerDB.
type PageRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.PageRepository = (*PageRepository)(nil)

// NewPageRepository creates a new PageRepository.
func NewPageRepository(backend *Backend) (*PageRepository, error) {
	idSeq, err := backend.GetSequence(pageIDSeq)
	if err != nil {
		return nil, err
	}

	return &PageRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *PageRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *PageRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddPage stores a new page under a fresh ID.
func (r *PageRepository) AddPage(ctx context.Context, page *core.Page) (*core.Page, error) {
	if err := core.ValidatePage(page); err != nil {
		return nil, err
	}
	err := r.backend.update(ctx, func(tx *badger.Txn) error {
		pathKey := makePagePathKey(page.SiteId, page.Path)
		found, err := exists(tx, pathKey)
		if err != nil {
			return err
		}
		if found {
			return storage.ErrDuplicateKey
		}

		id, err := nextID(r.idSeq)
		if err != nil {
			return err
		}
		page.Id = core.ID(id)

		if err := tx.Set(makePageKey(page.Id), storage.MarshalPage(page)); err != nil {
			return err
		}
		if err := tx.Set(pathKey, storage.MarshalID(page.Id)); err != nil {
			return err
		}
		return tx.Set(makeSitePageKey(page.SiteId, page.Id), nil)
	})
	if errors.Is(err, storage.ErrConflict) {
		// A concurrent crawl branch stored the same path first.
		return nil, storage.ErrDuplicateKey
	}
	if err != nil {
		return nil, err
	}
	return page, nil
}

// DeletePage removes a page row and its lookup keys.
func (r *PageRepository) DeletePage(ctx context.Context, id core.ID) error {
	return r.backend.update(ctx, func(tx *badger.Txn) error {
		key := makePageKey(id)
		page, err := readPage(tx, key)
		if err != nil {
			return err
		}
		if page == nil {
			return storage.ErrNotFound
		}

		if err := tx.Delete(makePagePathKey(page.SiteId, page.Path)); err != nil {
			return err
		}
		if err := tx.Delete(makeSitePageKey(page.SiteId, page.Id)); err != nil {
			return err
		}
		return tx.Delete(key)
	})
}

// GetPage retrieves a single page by ID.
func (r *PageRepository) GetPage(ctx context.Context, id core.ID) (*core.Page, error) {
	var result *core.Page
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		var err error
		result, err = readPage(tx, makePageKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	})
	return result, err
}

// GetPages retrieves the pages that exist among ids.
func (r *PageRepository) GetPages(ctx context.Context, ids ...core.ID) ([]*core.Page, error) {
	results := make([]*core.Page, 0, len(ids))
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		for _, id := range ids {
			page, err := readPage(tx, makePageKey(id))
			if err != nil {
				return err
			}
			if page != nil {
				results = append(results, page)
			}
		}
		return nil
	})
	return results, err
}

// FindPageByPath retrieves the page of a site at path.
func (r *PageRepository) FindPageByPath(ctx context.Context, siteID core.ID, path string) (*core.Page, error) {
	var result *core.Page
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		value, err := readValue(tx, makePagePathKey(siteID, path))
		if err != nil {
			return err
		}
		if value == nil {
			return storage.ErrNotFound
		}
		id, err := storage.UnmarshalID(value)
		if err != nil {
			return err
		}
		result, err = readPage(tx, makePageKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	})
	return result, err
}

// PageExists reports whether the site has a page at path.
func (r *PageRepository) PageExists(ctx context.Context, siteID core.ID, path string) (bool, error) {
	var found bool
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		var err error
		found, err = exists(tx, makePagePathKey(siteID, path))
		return err
	})
	return found, err
}

// CountPages returns the number of pages of a site.
func (r *PageRepository) CountPages(ctx context.Context, siteID core.ID) (int, error) {
	var count int
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		count = countPrefix(tx, makeKey(sitePagePrefix, siteID))
		return nil
	})
	return count, err
}

// GetPagesBySite returns up to limit pages of a site after afterID.
func (r *PageRepository) GetPagesBySite(ctx context.Context, siteID, afterID core.ID, limit int) ([]*core.Page, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	var results []*core.Page
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makeKey(sitePagePrefix, siteID)
		iter := tx.NewIterator(opts)

		var ids []core.ID
		for iter.Seek(makeSitePageKey(siteID, afterID+1)); iter.Valid() && len(ids) < limit; iter.Next() {
			ids = append(ids, trailingID(iter.Item().Key()))
		}
		iter.Close()

		for _, id := range ids {
			page, err := readPage(tx, makePageKey(id))
			if err != nil {
				return err
			}
			if page != nil {
				results = append(results, page)
			}
		}
		return nil
	})
	return results, err
}

// readPage reads a page, returning nil if it is absent.
func readPage(tx *badger.Txn, key []byte) (*core.Page, error) {
	value, err := readValue(tx, key)
	if err != nil || value == nil {
		return nil, err
	}
	return storage.UnmarshalPage(value)
}

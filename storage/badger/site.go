package badger

import (
	"context"
	"errors"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/sitesearch/core"
	"github.com/poiesic/sitesearch/storage"
)

// SiteRepository implements storage.SiteRepository for BadgerDB.
type SiteRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.SiteRepository = (*SiteRepository)(nil)

// NewSiteRepository creates a new SiteRepository.
func NewSiteRepository(backend *Backend) (*SiteRepository, error) {
	idSeq, err := backend.GetSequence(siteIDSeq)
	if err != nil {
		return nil, err
	}

	return &SiteRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *SiteRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *SiteRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddSite stores a new site under a fresh ID.
func (r *SiteRepository) AddSite(ctx context.Context, site *core.Site) (*core.Site, error) {
	if err := core.ValidateSite(site); err != nil {
		return nil, err
	}
	err := r.backend.update(ctx, func(tx *badger.Txn) error {
		urlKey := makeSiteURLKey(site.URL)
		found, err := exists(tx, urlKey)
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
		site.Id = core.ID(id)

		if err := tx.Set(makeSiteKey(site.Id), storage.MarshalSite(site)); err != nil {
			return err
		}
		return tx.Set(urlKey, storage.MarshalID(site.Id))
	})
	if errors.Is(err, storage.ErrConflict) {
		// Another writer claimed the same URL first.
		return nil, storage.ErrDuplicateKey
	}
	if err != nil {
		return nil, err
	}
	return site, nil
}

// UpdateSite replaces an existing site.
func (r *SiteRepository) UpdateSite(ctx context.Context, site *core.Site) (*core.Site, error) {
	if err := core.ValidateSite(site); err != nil {
		return nil, err
	}
	err := r.backend.update(ctx, func(tx *badger.Txn) error {
		key := makeSiteKey(site.Id)
		old, err := readSite(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		if old.URL != site.URL {
			if err := tx.Delete(makeSiteURLKey(old.URL)); err != nil {
				return err
			}
			if err := tx.Set(makeSiteURLKey(site.URL), storage.MarshalID(site.Id)); err != nil {
				return err
			}
		}
		return tx.Set(key, storage.MarshalSite(site))
	})
	if err != nil {
		return nil, err
	}
	return site, nil
}

// DeleteSite removes a site and everything it owns.
func (r *SiteRepository) DeleteSite(ctx context.Context, id core.ID) error {
	var keys [][]byte
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		site, err := readSite(tx, makeSiteKey(id))
		if err != nil {
			return err
		}
		if site == nil {
			return storage.ErrNotFound
		}
		keys, err = collectSiteKeys(tx, site)
		return err
	})
	if err != nil {
		return err
	}
	return r.backend.deleteKeys(ctx, keys)
}

// collectSiteKeys lists every key owned by a site: its pages, their index
// entries, its lemmas and the site record itself.
func collectSiteKeys(tx *badger.Txn, site *core.Site) ([][]byte, error) {
	keys := [][]byte{makeSiteKey(site.Id), makeSiteURLKey(site.URL)}

	// Page IDs first; badger allows one open iterator per read-write txn.
	pageIndexKeys := keysWithPrefix(tx, makeKey(sitePagePrefix, site.Id))
	keys = append(keys, pageIndexKeys...)
	keys = append(keys, keysWithPrefix(tx, makeKey(pagePathPrefix, site.Id))...)

	for _, k := range pageIndexKeys {
		pageID := trailingID(k)
		keys = append(keys, makePageKey(pageID))
		for _, entryKey := range keysWithPrefix(tx, makeKey(indexPagePrefix, pageID)) {
			keys = append(keys, entryKey, makeIndexLemmaKey(trailingID(entryKey), pageID))
		}
	}

	lemmaTextKeys := keysWithPrefix(tx, makeKey(lemmaTextPrefix, site.Id))
	keys = append(keys, lemmaTextKeys...)
	for _, k := range lemmaTextKeys {
		value, err := readValue(tx, k)
		if err != nil {
			return nil, err
		}
		lemmaID, err := storage.UnmarshalID(value)
		if err != nil {
			return nil, err
		}
		keys = append(keys, makeLemmaKey(lemmaID))
	}

	return keys, nil
}

// GetSite retrieves a site by ID.
func (r *SiteRepository) GetSite(ctx context.Context, id core.ID) (*core.Site, error) {
	var result *core.Site
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		var err error
		result, err = readSite(tx, makeSiteKey(id))
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

// FindSiteByURL retrieves a site by base URL.
func (r *SiteRepository) FindSiteByURL(ctx context.Context, url string) (*core.Site, error) {
	var result *core.Site
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		value, err := readValue(tx, makeSiteURLKey(url))
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
		result, err = readSite(tx, makeSiteKey(id))
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

// GetSites returns all sites ordered by ID.
func (r *SiteRepository) GetSites(ctx context.Context) ([]*core.Site, error) {
	var results []*core.Site
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(sitePrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				site, err := storage.UnmarshalSite(val)
				if err != nil {
					return err
				}
				results = append(results, site)
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

// GetSitesByStatus returns the sites in the given status.
func (r *SiteRepository) GetSitesByStatus(ctx context.Context, status core.SiteStatus) ([]*core.Site, error) {
	sites, err := r.GetSites(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(sites, func(s *core.Site) bool {
		return s.Status != status
	}), nil
}

// readSite reads a site, returning nil if it is absent.
func readSite(tx *badger.Txn, key []byte) (*core.Site, error) {
	value, err := readValue(tx, key)
	if err != nil || value == nil {
		return nil, err
	}
	return storage.UnmarshalSite(value)
}

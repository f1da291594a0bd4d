package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/sitesearch/core"
	"github.com/poiesic/sitesearch/storage"
)

// LemmaRepository implements storage.LemmaRepository for BadgerDB.
// Lemma IDs are derived from (site, text), so no sequence is needed.
type LemmaRepository struct {
	backend *Backend
}

var _ storage.LemmaRepository = (*LemmaRepository)(nil)

// NewLemmaRepository creates a new LemmaRepository.
func NewLemmaRepository(backend *Backend) (*LemmaRepository, error) {
	return &LemmaRepository{backend: backend}, nil
}

// Close is a no-op.
func (r *LemmaRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *LemmaRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddLemma stores a new lemma.
func (r *LemmaRepository) AddLemma(ctx context.Context, lemma *core.Lemma) (*core.Lemma, error) {
	if err := core.ValidateLemma(lemma); err != nil {
		return nil, err
	}
	lemma.Id = core.LemmaID(lemma.SiteId, lemma.Text)
	err := r.backend.update(ctx, func(tx *badger.Txn) error {
		textKey := makeLemmaTextKey(lemma.SiteId, lemma.Text)
		found, err := exists(tx, textKey)
		if err != nil {
			return err
		}
		if found {
			return storage.ErrDuplicateKey
		}
		if err := tx.Set(makeLemmaKey(lemma.Id), storage.MarshalLemma(lemma)); err != nil {
			return err
		}
		return tx.Set(textKey, storage.MarshalID(lemma.Id))
	})
	if err != nil {
		return nil, err
	}
	return lemma, nil
}

// UpdateLemma replaces an existing lemma.
func (r *LemmaRepository) UpdateLemma(ctx context.Context, lemma *core.Lemma) (*core.Lemma, error) {
	if err := core.ValidateLemma(lemma); err != nil {
		return nil, err
	}
	err := r.backend.update(ctx, func(tx *badger.Txn) error {
		key := makeLemmaKey(lemma.Id)
		found, err := exists(tx, key)
		if err != nil {
			return err
		}
		if !found {
			return storage.ErrNotFound
		}
		return tx.Set(key, storage.MarshalLemma(lemma))
	})
	if err != nil {
		return nil, err
	}
	return lemma, nil
}

// DeleteLemma removes a lemma and its text lookup key.
func (r *LemmaRepository) DeleteLemma(ctx context.Context, id core.ID) error {
	return r.backend.update(ctx, func(tx *badger.Txn) error {
		key := makeLemmaKey(id)
		lemma, err := readLemma(tx, key)
		if err != nil {
			return err
		}
		if lemma == nil {
			return storage.ErrNotFound
		}
		if err := tx.Delete(makeLemmaTextKey(lemma.SiteId, lemma.Text)); err != nil {
			return err
		}
		return tx.Delete(key)
	})
}

// GetLemma retrieves a lemma by ID.
func (r *LemmaRepository) GetLemma(ctx context.Context, id core.ID) (*core.Lemma, error) {
	var result *core.Lemma
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		var err error
		result, err = readLemma(tx, makeLemmaKey(id))
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

// FindLemma retrieves the lemma of a site with the given text.
func (r *LemmaRepository) FindLemma(ctx context.Context, siteID core.ID, text string) (*core.Lemma, error) {
	var result *core.Lemma
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		value, err := readValue(tx, makeLemmaTextKey(siteID, text))
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
		result, err = readLemma(tx, makeLemmaKey(id))
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

// CountLemmas returns the number of lemmas of a site.
func (r *LemmaRepository) CountLemmas(ctx context.Context, siteID core.ID) (int, error) {
	var count int
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		count = countPrefix(tx, makeKey(lemmaTextPrefix, siteID))
		return nil
	})
	return count, err
}

// readLemma reads a lemma, returning nil if it is absent.
func readLemma(tx *badger.Txn, key []byte) (*core.Lemma, error) {
	value, err := readValue(tx, key)
	if err != nil || value == nil {
		return nil, err
	}
	return storage.UnmarshalLemma(value)
}

package sqlite

import (
	"context"

	"github.com/poiesic/sitesearch/core"
	"github.com/poiesic/sitesearch/storage"
)

// LemmaRepository implements storage.LemmaRepository for SQLite.
// Lemma IDs are content-derived uint64 values stored bit-for-bit as int64.
type LemmaRepository struct {
	backend *Backend
}

var _ storage.LemmaRepository = (*LemmaRepository)(nil)

// Close is a no-op; the backend owns the connection.
func (r *LemmaRepository) Close() error { return nil }

// WithTransaction delegates to the backend.
func (r *LemmaRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

const lemmaColumns = `id, site_id, lemma, frequency`

// AddLemma inserts a lemma.
func (r *LemmaRepository) AddLemma(ctx context.Context, lemma *core.Lemma) (*core.Lemma, error) {
	if err := core.ValidateLemma(lemma); err != nil {
		return nil, err
	}
	lemma.Id = core.LemmaID(lemma.SiteId, lemma.Text)
	_, err := r.backend.conn(ctx).ExecContext(ctx,
		`INSERT INTO lemmas (id, site_id, lemma, frequency) VALUES (?, ?, ?, ?)`,
		int64(lemma.Id), int64(lemma.SiteId), lemma.Text, lemma.Frequency)
	if err != nil {
		return nil, translateError(err)
	}
	return lemma, nil
}

// UpdateLemma replaces an existing lemma.
func (r *LemmaRepository) UpdateLemma(ctx context.Context, lemma *core.Lemma) (*core.Lemma, error) {
	if err := core.ValidateLemma(lemma); err != nil {
		return nil, err
	}
	err := affectedOne(r.backend.conn(ctx).ExecContext(ctx,
		`UPDATE lemmas SET frequency = ? WHERE id = ?`, lemma.Frequency, int64(lemma.Id)))
	if err != nil {
		return nil, err
	}
	return lemma, nil
}

// DeleteLemma removes a lemma.
func (r *LemmaRepository) DeleteLemma(ctx context.Context, id core.ID) error {
	return affectedOne(r.backend.conn(ctx).ExecContext(ctx, `DELETE FROM lemmas WHERE id = ?`, int64(id)))
}

// GetLemma retrieves a lemma by ID.
func (r *LemmaRepository) GetLemma(ctx context.Context, id core.ID) (*core.Lemma, error) {
	row := r.backend.conn(ctx).QueryRowContext(ctx,
		`SELECT `+lemmaColumns+` FROM lemmas WHERE id = ?`, int64(id))
	return scanLemma(row)
}

// FindLemma retrieves the lemma of a site with the given text.
func (r *LemmaRepository) FindLemma(ctx context.Context, siteID core.ID, text string) (*core.Lemma, error) {
	row := r.backend.conn(ctx).QueryRowContext(ctx,
		`SELECT `+lemmaColumns+` FROM lemmas WHERE site_id = ? AND lemma = ?`, int64(siteID), text)
	return scanLemma(row)
}

// CountLemmas returns the number of lemmas of a site.
func (r *LemmaRepository) CountLemmas(ctx context.Context, siteID core.ID) (int, error) {
	var count int
	err := r.backend.conn(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lemmas WHERE site_id = ?`, int64(siteID)).Scan(&count)
	return count, translateError(err)
}

func scanLemma(s scanner) (*core.Lemma, error) {
	var (
		lemma      core.Lemma
		id, siteID int64
	)
	if err := s.Scan(&id, &siteID, &lemma.Text, &lemma.Frequency); err != nil {
		return nil, translateError(err)
	}
	lemma.Id = core.ID(id)
	lemma.SiteId = core.ID(siteID)
	return &lemma, nil
}

package sqlite

import (
	"context"
	"strings"

	"github.com/poiesic/sitesearch/core"
	"github.com/poiesic/sitesearch/storage"
)

// PageRepository implements storage.PageRepository for SQLite.
type PageRepository struct {
	backend *Backend
}

var _ storage.PageRepository = (*PageRepository)(nil)

// Close is a no-op; the backend owns the connection.
func (r *PageRepository) Close() error { return nil }

// WithTransaction delegates to the backend.
func (r *PageRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

const pageColumns = `id, site_id, path, code, content`

// AddPage inserts a page and assigns its ID.
func (r *PageRepository) AddPage(ctx context.Context, page *core.Page) (*core.Page, error) {
	if err := core.ValidatePage(page); err != nil {
		return nil, err
	}
	res, err := r.backend.conn(ctx).ExecContext(ctx,
		`INSERT INTO pages (site_id, path, code, content) VALUES (?, ?, ?, ?)`,
		int64(page.SiteId), page.Path, page.Code, page.Content)
	if err != nil {
		return nil, translateError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	page.Id = core.ID(id)
	return page, nil
}

// DeletePage removes a page row.
func (r *PageRepository) DeletePage(ctx context.Context, id core.ID) error {
	return affectedOne(r.backend.conn(ctx).ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, int64(id)))
}

// GetPage retrieves a page by ID.
func (r *PageRepository) GetPage(ctx context.Context, id core.ID) (*core.Page, error) {
	row := r.backend.conn(ctx).QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE id = ?`, int64(id))
	return scanPage(row)
}

// GetPages retrieves the pages that exist among ids.
func (r *PageRepository) GetPages(ctx context.Context, ids ...core.ID) ([]*core.Page, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = int64(id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	return r.query(ctx, `SELECT `+pageColumns+` FROM pages WHERE id IN (`+placeholders+`) ORDER BY id`, args...)
}

// FindPageByPath retrieves the page of a site at path.
func (r *PageRepository) FindPageByPath(ctx context.Context, siteID core.ID, path string) (*core.Page, error) {
	row := r.backend.conn(ctx).QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE site_id = ? AND path = ?`, int64(siteID), path)
	return scanPage(row)
}

// PageExists reports whether the site has a page at path.
func (r *PageRepository) PageExists(ctx context.Context, siteID core.ID, path string) (bool, error) {
	var found bool
	err := r.backend.conn(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM pages WHERE site_id = ? AND path = ?)`, int64(siteID), path).Scan(&found)
	return found, translateError(err)
}

// CountPages returns the number of pages of a site.
func (r *PageRepository) CountPages(ctx context.Context, siteID core.ID) (int, error) {
	var count int
	err := r.backend.conn(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pages WHERE site_id = ?`, int64(siteID)).Scan(&count)
	return count, translateError(err)
}

// GetPagesBySite returns up to limit pages of a site after afterID.
func (r *PageRepository) GetPagesBySite(ctx context.Context, siteID, afterID core.ID, limit int) ([]*core.Page, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	return r.query(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE site_id = ? AND id > ? ORDER BY id LIMIT ?`,
		int64(siteID), int64(afterID), limit)
}

func (r *PageRepository) query(ctx context.Context, query string, args ...any) ([]*core.Page, error) {
	rows, err := r.backend.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var pages []*core.Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

func scanPage(s scanner) (*core.Page, error) {
	var (
		page       core.Page
		id, siteID int64
	)
	if err := s.Scan(&id, &siteID, &page.Path, &page.Code, &page.Content); err != nil {
		return nil, translateError(err)
	}
	page.Id = core.ID(id)
	page.SiteId = core.ID(siteID)
	return &page, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/poiesic/sitesearch/core"
	"github.com/poiesic/sitesearch/storage"
)

// SiteRepository implements storage.SiteRepository for SQLite.
type SiteRepository struct {
	backend *Backend
}

var _ storage.SiteRepository = (*SiteRepository)(nil)

// Close is a no-op; the backend owns the connection.
func (r *SiteRepository) Close() error { return nil }

// WithTransaction delegates to the backend.
func (r *SiteRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

const siteColumns = `id, url, name, status, status_time, last_error`

// AddSite inserts a site and assigns its ID.
func (r *SiteRepository) AddSite(ctx context.Context, site *core.Site) (*core.Site, error) {
	if err := core.ValidateSite(site); err != nil {
		return nil, err
	}
	res, err := r.backend.conn(ctx).ExecContext(ctx,
		`INSERT INTO sites (url, name, status, status_time, last_error) VALUES (?, ?, ?, ?, ?)`,
		site.URL, site.Name, int(site.Status), site.StatusTime.UnixMicro(), site.LastError)
	if err != nil {
		return nil, translateError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	site.Id = core.ID(id)
	return site, nil
}

// UpdateSite replaces an existing site.
func (r *SiteRepository) UpdateSite(ctx context.Context, site *core.Site) (*core.Site, error) {
	if err := core.ValidateSite(site); err != nil {
		return nil, err
	}
	err := affectedOne(r.backend.conn(ctx).ExecContext(ctx,
		`UPDATE sites SET url = ?, name = ?, status = ?, status_time = ?, last_error = ? WHERE id = ?`,
		site.URL, site.Name, int(site.Status), site.StatusTime.UnixMicro(), site.LastError, int64(site.Id)))
	if err != nil {
		return nil, err
	}
	return site, nil
}

// DeleteSite removes a site; foreign keys cascade to its pages, lemmas and entries.
func (r *SiteRepository) DeleteSite(ctx context.Context, id core.ID) error {
	return affectedOne(r.backend.conn(ctx).ExecContext(ctx, `DELETE FROM sites WHERE id = ?`, int64(id)))
}

// GetSite retrieves a site by ID.
func (r *SiteRepository) GetSite(ctx context.Context, id core.ID) (*core.Site, error) {
	row := r.backend.conn(ctx).QueryRowContext(ctx,
		`SELECT `+siteColumns+` FROM sites WHERE id = ?`, int64(id))
	return scanSite(row)
}

// FindSiteByURL retrieves a site by base URL.
func (r *SiteRepository) FindSiteByURL(ctx context.Context, url string) (*core.Site, error) {
	row := r.backend.conn(ctx).QueryRowContext(ctx,
		`SELECT `+siteColumns+` FROM sites WHERE url = ?`, url)
	return scanSite(row)
}

// GetSites returns all sites ordered by ID.
func (r *SiteRepository) GetSites(ctx context.Context) ([]*core.Site, error) {
	return r.query(ctx, `SELECT `+siteColumns+` FROM sites ORDER BY id`)
}

// GetSitesByStatus returns the sites in the given status.
func (r *SiteRepository) GetSitesByStatus(ctx context.Context, status core.SiteStatus) ([]*core.Site, error) {
	return r.query(ctx, `SELECT `+siteColumns+` FROM sites WHERE status = ? ORDER BY id`, int(status))
}

func (r *SiteRepository) query(ctx context.Context, query string, args ...any) ([]*core.Site, error) {
	rows, err := r.backend.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var sites []*core.Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSite(s scanner) (*core.Site, error) {
	var (
		site       core.Site
		id         int64
		status     int
		statusTime int64
	)
	if err := s.Scan(&id, &site.URL, &site.Name, &status, &statusTime, &site.LastError); err != nil {
		return nil, translateError(err)
	}
	site.Id = core.ID(id)
	site.Status = core.SiteStatus(status)
	site.StatusTime = time.UnixMicro(statusTime).UTC()
	return &site, nil
}

var _ scanner = (*sql.Row)(nil)

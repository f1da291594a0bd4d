// Package sqlite implements the storage repositories on SQLite through the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/sitesearch/storage"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sites (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	url         TEXT    NOT NULL UNIQUE,
	name        TEXT    NOT NULL DEFAULT '',
	status      INTEGER NOT NULL,
	status_time INTEGER NOT NULL,
	last_error  TEXT    NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS pages (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	site_id INTEGER NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
	path    TEXT    NOT NULL,
	code    INTEGER NOT NULL,
	content TEXT    NOT NULL,
	UNIQUE (site_id, path)
);

CREATE TABLE IF NOT EXISTS lemmas (
	id        INTEGER PRIMARY KEY,
	site_id   INTEGER NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
	lemma     TEXT    NOT NULL,
	frequency INTEGER NOT NULL,
	UNIQUE (site_id, lemma)
);

CREATE TABLE IF NOT EXISTS index_entries (
	page_id  INTEGER NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	lemma_id INTEGER NOT NULL REFERENCES lemmas(id) ON DELETE CASCADE,
	rank     REAL    NOT NULL,
	PRIMARY KEY (page_id, lemma_id)
);

CREATE INDEX IF NOT EXISTS idx_index_entries_lemma ON index_entries(lemma_id);
`

// Backend owns the SQLite connection shared by the repositories.
type Backend struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenBackend opens (creating if needed) the database file at path.
// Pass ":memory:" for a private in-memory database.
func OpenBackend(path string) (*Backend, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One connection: pragmas are per connection, every ":memory:" connection
	// is a separate database, and SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: schema: %w", err)
	}

	return &Backend{
		db:     db,
		logger: slog.Default().With("component", "sqlite"),
	}, nil
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

type txKey struct{}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the context transaction, or the database itself.
func (b *Backend) conn(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return b.db
}

// WithTransaction runs fn in a transaction carried by the context.
// A nested call joins the outer transaction.
func (b *Backend) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			b.logger.Warn("rollback failed", "err", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}
	return nil
}

// translateError maps driver errors onto storage sentinels.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return storage.ErrNotFound
	case errors.Is(err, sql.ErrConnDone), strings.Contains(err.Error(), "database is closed"):
		return fmt.Errorf("%w: %w", storage.ErrStorageClosed, err)
	case strings.Contains(err.Error(), "UNIQUE constraint"),
		strings.Contains(err.Error(), "PRIMARY KEY constraint"):
		return fmt.Errorf("%w: %w", storage.ErrDuplicateKey, err)
	case strings.Contains(err.Error(), "database is locked"):
		return fmt.Errorf("%w: %w", storage.ErrConflict, err)
	default:
		return err
	}
}

// affectedOne turns a zero-row update or delete into ErrNotFound.
func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return translateError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// NewRepositories creates the four repositories on top of backend.
func NewRepositories(backend *Backend) *storage.Repositories {
	return &storage.Repositories{
		Sites:  &SiteRepository{backend: backend},
		Pages:  &PageRepository{backend: backend},
		Lemmas: &LemmaRepository{backend: backend},
		Index:  &IndexRepository{backend: backend},
	}
}

// NewMemoryRepositories creates repositories over a fresh in-memory database.
func NewMemoryRepositories() (*storage.Repositories, *Backend, error) {
	backend, err := OpenBackend(":memory:")
	if err != nil {
		return nil, nil, err
	}
	return NewRepositories(backend), backend, nil
}

package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/sitesearch/storage"
)

const (
	defaultSequenceBandwidth = 100
)

// Backend wraps a BadgerDB instance and provides low-level operations.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBackend opens a BadgerDB database at the specified path.
// Creates the directory if it doesn't exist.
func OpenBackend(filePath string, inMemory bool) (*Backend, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(filePath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			if err := os.MkdirAll(filePath, 0755); err != nil {
				return nil, err
			}
			if info, err = os.Stat(filePath); err != nil {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	logger := slog.Default().With("component", "badger")
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Backend{
		db:     db,
		logger: logger,
	}, nil
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction.
// The transaction is automatically discarded if fn returns an error.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// GetSequence returns a BadgerDB sequence for generating sequential IDs.
func (b *Backend) GetSequence(name string) (*badger.Sequence, error) {
	return b.db.GetSequence([]byte(name), defaultSequenceBandwidth)
}

type txKey struct{}

func txFromContext(ctx context.Context) (*badger.Txn, bool) {
	tx, ok := ctx.Value(txKey{}).(*badger.Txn)
	return tx, ok
}

// WithTransaction executes a function within a read-write transaction.
// Implements storage.Repository. The transaction travels in the context
// passed to fn; a nested call joins the outer transaction.
func (b *Backend) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}
	return b.WithTx(func(tx *badger.Txn) error {
		if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
			return err
		}
		return translateError(tx.Commit())
	}, true)
}

// update runs fn in the context transaction, or in a new one it commits.
func (b *Backend) update(ctx context.Context, fn func(tx *badger.Txn) error) error {
	if tx, ok := txFromContext(ctx); ok {
		return translateError(fn(tx))
	}
	return b.WithTx(func(tx *badger.Txn) error {
		if err := fn(tx); err != nil {
			return translateError(err)
		}
		return translateError(tx.Commit())
	}, true)
}

// view runs fn in the context transaction, or in a new read-only one.
func (b *Backend) view(ctx context.Context, fn func(tx *badger.Txn) error) error {
	if tx, ok := txFromContext(ctx); ok {
		return translateError(fn(tx))
	}
	return translateError(b.WithTx(fn, false))
}

// deleteKeys removes keys in the context transaction if there is one,
// otherwise through a write batch so large cascades don't exceed txn limits.
func (b *Backend) deleteKeys(ctx context.Context, keys [][]byte) error {
	if tx, ok := txFromContext(ctx); ok {
		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return translateError(err)
			}
		}
		return nil
	}
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return translateError(err)
		}
	}
	return translateError(wb.Flush())
}

// translateError maps badger errors onto storage sentinels.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrConflict):
		return fmt.Errorf("%w: %w", storage.ErrConflict, err)
	case errors.Is(err, badger.ErrDBClosed):
		return fmt.Errorf("%w: %w", storage.ErrStorageClosed, err)
	case errors.Is(err, badger.ErrTxnTooBig):
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	default:
		return err
	}
}

// nextID draws the next non-zero value from a sequence.
func nextID(seq *badger.Sequence) (uint64, error) {
	id, err := seq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if id == 0 {
		return seq.Next()
	}
	return id, nil
}

// keysWithPrefix returns copies of every key under prefix.
func keysWithPrefix(tx *badger.Txn, prefix []byte) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var keys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	return keys
}

// countPrefix counts the keys under prefix without reading values.
func countPrefix(tx *badger.Txn, prefix []byte) int {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	count := 0
	for iter.Rewind(); iter.Valid(); iter.Next() {
		count++
	}
	return count
}

// readValue returns a copy of the value at key, or nil if it is absent.
func readValue(tx *badger.Txn, key []byte) ([]byte, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// exists reports whether key is present.
func exists(tx *badger.Txn, key []byte) (bool, error) {
	_, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

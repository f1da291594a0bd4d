package storage

import (
	"context"
	"errors"
)

// ErrRepositoryRequired indicates a Repositories bundle is missing a member.
var ErrRepositoryRequired = errors.New("site, page, lemma and index repositories are required")

// Repositories bundles the repositories of one storage backend.
// All members share the backend's transactions.
type Repositories struct {
	Sites  SiteRepository
	Pages  PageRepository
	Lemmas LemmaRepository
	Index  IndexRepository
}

// Validate checks that every repository is set.
func (r *Repositories) Validate() error {
	if r == nil || r.Sites == nil || r.Pages == nil || r.Lemmas == nil || r.Index == nil {
		return ErrRepositoryRequired
	}
	return nil
}

// WithTransaction runs fn in a backend transaction shared by all repositories.
func (r *Repositories) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.Sites.WithTransaction(ctx, fn)
}

// Close closes every repository.
func (r *Repositories) Close() error {
	return errors.Join(
		r.Index.Close(),
		r.Lemmas.Close(),
		r.Pages.Close(),
		r.Sites.Close(),
	)
}

// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reindex

import (
	"context"

	"github.com/poiesic/sitesearch/core"
	"github.com/poiesic/sitesearch/storage"
)

const (
	// DefaultBatchSize is the default number of pages to fetch in each batch
	DefaultBatchSize = 100
)

// PageIterator walks the pages of one site in batches, ordered by ID.
type PageIterator struct {
	pages     storage.PageRepository
	batchSize int
}

// NewPageIterator creates a new page iterator.
// batchSize: number of pages to fetch in each batch (must be > 0)
func NewPageIterator(pages storage.PageRepository, batchSize int) *PageIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &PageIterator{
		pages:     pages,
		batchSize: batchSize,
	}
}

// ForEach calls fn for each batch of the site's pages.
// Iteration stops on first error from fn or when all pages are processed.
// Context cancellation is checked between batches.
func (it *PageIterator) ForEach(ctx context.Context, siteID core.ID, fn func([]*core.Page) error) error {
	var after core.ID
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := it.pages.GetPagesBySite(ctx, siteID, after, it.batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		if err := fn(batch); err != nil {
			return err
		}

		after = batch[len(batch)-1].Id
		if len(batch) < it.batchSize {
			return nil
		}
	}
}

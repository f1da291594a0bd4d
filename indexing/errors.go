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

package indexing

import "errors"

var (
	// ErrAlreadyRunning is returned by StartIndexing while a crawl is in progress.
	ErrAlreadyRunning = errors.New("indexing is already running")

	// ErrNotRunning is returned by StopIndexing when no crawl is in progress.
	ErrNotRunning = errors.New("indexing is not running")

	// ErrOutOfScope is returned when a page URL is outside every configured site.
	ErrOutOfScope = errors.New("page is outside the configured sites")

	// ErrPageFetch is returned when a single page cannot be fetched or parsed.
	ErrPageFetch = errors.New("page fetch failed")

	ErrRepositoriesRequired = errors.New("repositories are required")
	ErrIndexerRequired      = errors.New("indexer is required")
	ErrFetcherRequired      = errors.New("fetcher is required")
)

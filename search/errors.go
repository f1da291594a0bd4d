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

package search

import "errors"

var (
	// ErrSiteNotIndexed is returned when the requested site is unknown or not indexed yet.
	ErrSiteNotIndexed = errors.New("site not found or not indexed")

	// ErrNoIndexedSites is returned when no site has finished indexing.
	ErrNoIndexedSites = errors.New("no indexed sites available")

	// ErrNoLemmas is returned when the query contains no searchable words.
	ErrNoLemmas = errors.New("no lemmas in search query")

	// ErrInvalidPagination is returned for a negative offset or a non-positive limit.
	ErrInvalidPagination = errors.New("invalid offset or limit")

	// ErrRepositoriesRequired is returned when repositories are not provided.
	ErrRepositoriesRequired = errors.New("repositories required")

	// ErrExtractorRequired is returned when a lemma extractor is not provided.
	ErrExtractorRequired = errors.New("lemma extractor required")

	// ErrInvalidThreshold is returned for a frequency threshold outside (0, 1].
	ErrInvalidThreshold = errors.New("frequency threshold must be in (0, 1]")
)

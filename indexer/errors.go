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

package indexer

import "errors"

var (
	// ErrRepositoriesRequired indicates missing storage repositories.
	ErrRepositoriesRequired = errors.New("repositories are required")

	// ErrExtractorRequired indicates a nil lemma extractor was provided.
	ErrExtractorRequired = errors.New("lemma extractor is required")

	// ErrSiteMismatch indicates a page does not belong to the given site.
	ErrSiteMismatch = errors.New("page does not belong to site")

	// ErrInvalidMaxAttempts indicates that maxAttempts must be greater than 0.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)

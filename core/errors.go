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

package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidSite indicates a Site failed validation.
	ErrInvalidSite = errors.New("invalid site")

	// ErrInvalidPage indicates a Page failed validation.
	ErrInvalidPage = errors.New("invalid page")

	// ErrInvalidLemma indicates a Lemma failed validation.
	ErrInvalidLemma = errors.New("invalid lemma")

	// ErrInvalidIndexEntry indicates an IndexEntry failed validation.
	ErrInvalidIndexEntry = errors.New("invalid index entry")

	// ErrInvalidURL indicates a site URL is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("url must be absolute http or https")

	// ErrInvalidStatus indicates an invalid SiteStatus value.
	ErrInvalidStatus = errors.New("invalid site status")

	// ErrInvalidPath indicates a page path does not start with "/".
	ErrInvalidPath = errors.New("page path must start with /")

	// ErrEmptyLemma indicates the lemma Text field is empty.
	ErrEmptyLemma = errors.New("lemma text cannot be empty")
)

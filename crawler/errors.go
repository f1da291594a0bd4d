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

package crawler

import (
	"errors"
	"fmt"
)

var (
	// ErrRepositoriesRequired is returned when a job is created without storage.
	ErrRepositoriesRequired = errors.New("repositories are required")

	// ErrIndexerRequired is returned when a job is created without an indexer.
	ErrIndexerRequired = errors.New("indexer is required")

	// ErrFetcherRequired is returned when a job is created without a fetcher.
	ErrFetcherRequired = errors.New("fetcher is required")

	// ErrInvalidDelay is returned when the politeness delay bounds are inverted or negative.
	ErrInvalidDelay = errors.New("invalid politeness delay")

	// ErrNotHTML is returned for responses whose content type is not HTML.
	ErrNotHTML = errors.New("response is not HTML")

	// ErrBodyTooLarge is returned for responses longer than the fetcher's byte cap.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrJobStarted is returned when Start is called twice.
	ErrJobStarted = errors.New("job already started")
)

// StatusError is returned by the fetcher for HTTP 4xx and 5xx responses.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.Code)
}

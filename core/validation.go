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

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateSite validates a Site according to domain rules.
//
// Validation rules:
//   - URL must be an absolute http(s) URL
//   - Status must be valid
//
// NOT validated:
//   - Name (display only, may be empty)
//   - ID (0 is valid before the site is stored)
func ValidateSite(site *Site) error {
	if site == nil {
		return fmt.Errorf("%w: site is nil", ErrInvalidSite)
	}

	if err := ValidateBaseURL(site.URL); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSite, err)
	}

	if err := ValidateStatus(site.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSite, err)
	}

	return nil
}

// ValidatePage validates a Page according to domain rules.
func ValidatePage(page *Page) error {
	if page == nil {
		return fmt.Errorf("%w: page is nil", ErrInvalidPage)
	}

	if page.SiteId == 0 {
		return fmt.Errorf("%w: site id is required", ErrInvalidPage)
	}

	if !strings.HasPrefix(page.Path, "/") {
		return fmt.Errorf("%w: %w", ErrInvalidPage, ErrInvalidPath)
	}

	return nil
}

// ValidateLemma validates a Lemma according to domain rules.
func ValidateLemma(lemma *Lemma) error {
	if lemma == nil {
		return fmt.Errorf("%w: lemma is nil", ErrInvalidLemma)
	}

	if lemma.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidLemma, ErrEmptyLemma)
	}

	if lemma.SiteId == 0 {
		return fmt.Errorf("%w: site id is required", ErrInvalidLemma)
	}

	if lemma.Frequency < 1 {
		return fmt.Errorf("%w: frequency %d must be positive", ErrInvalidLemma, lemma.Frequency)
	}

	return nil
}

// ValidateIndexEntry validates an IndexEntry according to domain rules.
func ValidateIndexEntry(entry *IndexEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidIndexEntry)
	}

	if entry.PageId == 0 || entry.LemmaId == 0 {
		return fmt.Errorf("%w: page and lemma ids are required", ErrInvalidIndexEntry)
	}

	if entry.Rank <= 0 {
		return fmt.Errorf("%w: rank %v must be positive", ErrInvalidIndexEntry, entry.Rank)
	}

	return nil
}

// ValidateStatus validates that a SiteStatus has a valid value.
func ValidateStatus(status SiteStatus) error {
	switch status {
	case SiteStatusIndexing, SiteStatusIndexed, SiteStatusFailed:
		return nil
	}
	return fmt.Errorf("%w: value %d", ErrInvalidStatus, status)
}

// ValidateBaseURL checks that base is an absolute http(s) URL with a host.
func ValidateBaseURL(base string) error {
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, base)
	}
	return nil
}

package core

import (
	"errors"
	"testing"
)

func TestValidateSite(t *testing.T) {
	tests := []struct {
		name    string
		site    *Site
		wantErr error
	}{
		{
			name:    "valid site",
			site:    &Site{URL: "https://example.com", Name: "Example", Status: SiteStatusIndexing},
			wantErr: nil,
		},
		{
			name:    "valid site without name",
			site:    &Site{URL: "http://example.com", Status: SiteStatusFailed},
			wantErr: nil,
		},
		{
			name:    "nil site",
			site:    nil,
			wantErr: ErrInvalidSite,
		},
		{
			name:    "relative url",
			site:    &Site{URL: "/docs", Status: SiteStatusIndexed},
			wantErr: ErrInvalidURL,
		},
		{
			name:    "ftp url",
			site:    &Site{URL: "ftp://example.com", Status: SiteStatusIndexed},
			wantErr: ErrInvalidURL,
		},
		{
			name:    "invalid status",
			site:    &Site{URL: "https://example.com", Status: SiteStatus(99)},
			wantErr: ErrInvalidStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSite(tt.site)

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateSite() error = %v, want nil", err)
				}
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateSite() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePage(t *testing.T) {
	tests := []struct {
		name    string
		page    *Page
		wantErr error
	}{
		{"valid page", &Page{SiteId: 1, Path: "/", Code: 200}, nil},
		{"nil page", nil, ErrInvalidPage},
		{"missing site", &Page{Path: "/a"}, ErrInvalidPage},
		{"relative path", &Page{SiteId: 1, Path: "a"}, ErrInvalidPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePage(tt.page)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidatePage() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidatePage() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateLemma(t *testing.T) {
	tests := []struct {
		name    string
		lemma   *Lemma
		wantErr error
	}{
		{"valid lemma", &Lemma{SiteId: 1, Text: "тест", Frequency: 1}, nil},
		{"nil lemma", nil, ErrInvalidLemma},
		{"empty text", &Lemma{SiteId: 1, Frequency: 1}, ErrEmptyLemma},
		{"missing site", &Lemma{Text: "тест", Frequency: 1}, ErrInvalidLemma},
		{"zero frequency", &Lemma{SiteId: 1, Text: "тест"}, ErrInvalidLemma},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLemma(tt.lemma)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateLemma() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateLemma() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateIndexEntry(t *testing.T) {
	if err := ValidateIndexEntry(&IndexEntry{PageId: 1, LemmaId: 2, Rank: 3}); err != nil {
		t.Errorf("ValidateIndexEntry() error = %v, want nil", err)
	}
	if err := ValidateIndexEntry(&IndexEntry{PageId: 1, Rank: 3}); !errors.Is(err, ErrInvalidIndexEntry) {
		t.Errorf("ValidateIndexEntry() error = %v, want %v", err, ErrInvalidIndexEntry)
	}
	if err := ValidateIndexEntry(&IndexEntry{PageId: 1, LemmaId: 2}); !errors.Is(err, ErrInvalidIndexEntry) {
		t.Errorf("ValidateIndexEntry() error = %v, want %v", err, ErrInvalidIndexEntry)
	}
	if err := ValidateIndexEntry(nil); !errors.Is(err, ErrInvalidIndexEntry) {
		t.Errorf("ValidateIndexEntry() error = %v, want %v", err, ErrInvalidIndexEntry)
	}
}

func TestValidateStatus(t *testing.T) {
	for _, s := range []SiteStatus{SiteStatusIndexing, SiteStatusIndexed, SiteStatusFailed} {
		if err := ValidateStatus(s); err != nil {
			t.Errorf("ValidateStatus(%v) error = %v, want nil", s, err)
		}
	}
	if err := ValidateStatus(0); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("ValidateStatus(0) error = %v, want %v", err, ErrInvalidStatus)
	}
}

package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Sites and pages get IDs from storage sequences; lemma IDs are content-derived.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// LemmaID returns the ID of the lemma with the given normal form on a site.
// The same (site, text) pair always maps to the same ID.
func LemmaID(siteID ID, text string) ID {
	var prefix [8]byte
	binary.BigEndian.PutUint64(prefix[:], uint64(siteID))
	return IDFromContent(string(prefix[:]) + text)
}

// SiteStatus is the indexing state of a site.
type SiteStatus int

const (
	// SiteStatusIndexing means a crawl of the site is in progress.
	SiteStatusIndexing SiteStatus = iota + 1
	// SiteStatusIndexed means the last crawl finished cleanly.
	SiteStatusIndexed
	// SiteStatusFailed means the last crawl failed or was stopped.
	SiteStatusFailed
)

func (s SiteStatus) String() string {
	switch s {
	case SiteStatusIndexing:
		return "INDEXING"
	case SiteStatusIndexed:
		return "INDEXED"
	case SiteStatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Site is a crawled web site, identified by its base URL.
type Site struct {
	Id         ID
	URL        string // base URL without trailing slash
	Name       string
	Status     SiteStatus
	StatusTime time.Time // last progress timestamp
	LastError  string    // empty when the site has no error
}

// Page is a fetched document belonging to one site.
// Pages are never updated in place; re-indexing deletes and recreates them.
type Page struct {
	Id      ID
	SiteId  ID
	Path    string // relative to the site URL, always starts with "/"
	Code    int    // HTTP status code of the fetch
	Content string // raw HTML
}

// Lemma is a normal form of a word as seen on one site.
type Lemma struct {
	Id        ID
	SiteId    ID
	Text      string
	Frequency int // number of pages on the site containing the lemma
}

// IndexEntry links a page to a lemma it contains.
type IndexEntry struct {
	PageId  ID
	LemmaId ID
	Rank    float32 // occurrences of the lemma on the page
}

// NormalizeBaseURL trims whitespace and trailing slashes from a site URL.
func NormalizeBaseURL(base string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/")
}

// InScope reports whether rawURL lies under the site base URL.
func InScope(base, rawURL string) bool {
	base = NormalizeBaseURL(base)
	if base == "" || !strings.HasPrefix(rawURL, base) {
		return false
	}
	rest := rawURL[len(base):]
	return rest == "" || rest[0] == '/' || rest[0] == '?' || rest[0] == '#'
}

// RelativePath returns the path of rawURL relative to the site base URL.
// The result always starts with "/", keeps the query string and drops the fragment.
func RelativePath(base, rawURL string) string {
	base = NormalizeBaseURL(base)
	rest := strings.TrimPrefix(rawURL, base)
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		rest = rest[:i]
	}
	if !strings.HasPrefix(rest, "/") {
		rest = "/" + rest
	}
	return rest
}

package badger

import (
	"encoding/binary"

	"github.com/poiesic/sitesearch/core"
)

// Key prefixes for different data types.
// IDs inside keys are big-endian so lexicographic order matches numeric order.
const (
	sitePrefix       = "site:"
	siteURLPrefix    = "siteurl:"
	sitePagePrefix   = "sitepage:"
	pagePrefix       = "page:"
	pagePathPrefix   = "pagepath:"
	lemmaPrefix      = "lemma:"
	lemmaTextPrefix  = "lemmatext:"
	indexPagePrefix  = "idxpage:"
	indexLemmaPrefix = "idxlemma:"
	siteIDSeq        = "seq:site"
	pageIDSeq        = "seq:page"
)

// makeKey builds prefix followed by each ID as 8 big-endian bytes.
func makeKey(prefix string, ids ...core.ID) []byte {
	buf := make([]byte, len(prefix), len(prefix)+8*len(ids))
	copy(buf, prefix)
	for _, id := range ids {
		buf = binary.BigEndian.AppendUint64(buf, uint64(id))
	}
	return buf
}

// makeSuffixKey builds prefix:id followed by a free-form string.
func makeSuffixKey(prefix string, id core.ID, suffix string) []byte {
	return append(makeKey(prefix, id), suffix...)
}

// trailingID decodes the last 8 bytes of a composite key.
func trailingID(key []byte) core.ID {
	if len(key) < 8 {
		return 0
	}
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
}

func makeSiteKey(id core.ID) []byte { return makeKey(sitePrefix, id) }

func makeSiteURLKey(url string) []byte { return []byte(siteURLPrefix + url) }

// makeSitePageKey indexes a page under its site, ordered by page ID.
// Format: prefix:siteID:pageID
func makeSitePageKey(siteID, pageID core.ID) []byte { return makeKey(sitePagePrefix, siteID, pageID) }

func makePageKey(id core.ID) []byte { return makeKey(pagePrefix, id) }

// makePagePathKey maps a (site, path) pair to its page ID.
// Format: prefix:siteID:path
func makePagePathKey(siteID core.ID, path string) []byte {
	return makeSuffixKey(pagePathPrefix, siteID, path)
}

func makeLemmaKey(id core.ID) []byte { return makeKey(lemmaPrefix, id) }

// makeLemmaTextKey maps a (site, text) pair to its lemma ID.
// Format: prefix:siteID:text
func makeLemmaTextKey(siteID core.ID, text string) []byte {
	return makeSuffixKey(lemmaTextPrefix, siteID, text)
}

// Format: prefix:pageID:lemmaID
func makeIndexPageKey(pageID, lemmaID core.ID) []byte {
	return makeKey(indexPagePrefix, pageID, lemmaID)
}

// Format: prefix:lemmaID:pageID
func makeIndexLemmaKey(lemmaID, pageID core.ID) []byte {
	return makeKey(indexLemmaPrefix, lemmaID, pageID)
}

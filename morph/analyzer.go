package morph

import "errors"

// ErrNotAWord is returned for input outside the analyzer's alphabet.
// Callers skip such tokens.
var ErrNotAWord = errors.New("not a word of the analyzer alphabet")

// Analyzer reduces a word to its dictionary (normal) forms.
// Implementations must be thread-safe for concurrent use.
type Analyzer interface {
	// NormalForms returns the normal forms of a lowercase word, most likely
	// first. It returns an empty slice when the word has no known form and
	// ErrNotAWord when the word is written in another alphabet.
	NormalForms(word string) ([]string, error)
}

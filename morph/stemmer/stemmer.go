// Package stemmer provides a Russian morph.Analyzer built on the snowball
// stemming algorithm. The stem stands in for the dictionary form: every
// inflection of a word maps to one stem, which is what indexing needs.
package stemmer

import (
	"github.com/kljensen/snowball/russian"
	"github.com/poiesic/sitesearch/morph"
)

// Russian stems Cyrillic words. Words containing any other rune are
// rejected with morph.ErrNotAWord.
type Russian struct{}

var _ morph.Analyzer = Russian{}

// NewRussian returns the Russian analyzer.
func NewRussian() morph.Analyzer {
	return Russian{}
}

// NormalForms returns the single stem of word.
func (Russian) NormalForms(word string) ([]string, error) {
	if !IsCyrillic(word) {
		return nil, morph.ErrNotAWord
	}
	stem := russian.Stem(word, true)
	if stem == "" {
		return nil, nil
	}
	return []string{stem}, nil
}

// IsCyrillic reports whether word is non-empty and made only of lowercase
// Russian letters.
func IsCyrillic(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if (r < 'а' || r > 'я') && r != 'ё' {
			return false
		}
	}
	return true
}

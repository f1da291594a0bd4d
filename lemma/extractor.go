// Package lemma turns raw text into lemma frequency tables.
package lemma

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/poiesic/sitesearch/morph"
)

var (
	// ErrAnalyzerRequired indicates a nil analyzer was provided.
	ErrAnalyzerRequired = errors.New("analyzer is required")

	// ErrAnalyzer wraps unexpected analyzer failures.
	ErrAnalyzer = errors.New("morphological analysis failed")
)

// Extractor tokenizes text and maps each token to its first normal form.
// It is safe for concurrent use when the analyzer is.
type Extractor struct {
	analyzer morph.Analyzer
	logger   *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) error {
		e.logger = logger
		return nil
	}
}

// NewExtractor creates an Extractor over analyzer.
func NewExtractor(analyzer morph.Analyzer, opts ...Option) (*Extractor, error) {
	if analyzer == nil {
		return nil, ErrAnalyzerRequired
	}
	e := &Extractor{
		analyzer: analyzer,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "lemma-extractor")
	return e, nil
}

// Extract returns lemma -> number of occurrences in text.
func (e *Extractor) Extract(text string) (map[string]int, error) {
	counts := make(map[string]int)
	for _, token := range Tokenize(text) {
		lemma, ok, err := e.Lemma(token)
		if err != nil {
			return nil, err
		}
		if ok {
			counts[lemma]++
		}
	}
	return counts, nil
}

// LemmaSet returns the distinct lemmas of text.
func (e *Extractor) LemmaSet(text string) (map[string]struct{}, error) {
	counts, err := e.Extract(text)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(counts))
	for lemma := range counts {
		set[lemma] = struct{}{}
	}
	return set, nil
}

// Lemma returns the first normal form of a single lowercase token.
// ok is false when the analyzer rejects the token or knows no form for it.
func (e *Extractor) Lemma(token string) (lemma string, ok bool, err error) {
	forms, err := e.analyzer.NormalForms(token)
	if errors.Is(err, morph.ErrNotAWord) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %q: %w", ErrAnalyzer, token, err)
	}
	if len(forms) == 0 || forms[0] == "" {
		e.logger.Debug("no normal form", "token", token)
		return "", false, nil
	}
	return forms[0], true, nil
}

// Tokenize lowercases text, splits it on runs of characters that are neither
// letters nor digits and keeps the tokens written entirely in one supported
// alphabet (Russian or Latin). Tokens with digits or mixed scripts are dropped.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if isAlphabetic(f) {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func isAlphabetic(token string) bool {
	var cyrillic, latin bool
	for _, r := range token {
		switch {
		case (r >= 'а' && r <= 'я') || r == 'ё':
			cyrillic = true
		case r >= 'a' && r <= 'z':
			latin = true
		default:
			return false
		}
	}
	return cyrillic != latin
}

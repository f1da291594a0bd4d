package mock

import (
	"strings"
	"sync"

	"github.com/poiesic/sitesearch/morph"
)

// MockAnalyzer is a test double for morph.Analyzer.
// It allows custom behavior injection via function fields.
type MockAnalyzer struct {
	// NormalFormsFunc is called by NormalForms if set.
	// If nil, the word itself is its only normal form.
	NormalFormsFunc func(word string) ([]string, error)

	mu        sync.Mutex
	callCount int
}

var _ morph.Analyzer = (*MockAnalyzer)(nil)

// NewMockAnalyzer creates a mock analyzer with identity behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{}
}

// NewDictionaryAnalyzer returns a mock that looks words up in forms and
// falls back to identity for unknown words.
func NewDictionaryAnalyzer(forms map[string][]string) *MockAnalyzer {
	return &MockAnalyzer{
		NormalFormsFunc: func(word string) ([]string, error) {
			if f, ok := forms[word]; ok {
				return f, nil
			}
			return []string{word}, nil
		},
	}
}

// NormalForms returns the injected result or the word itself.
// Words containing ASCII letters are rejected with morph.ErrNotAWord,
// mimicking a Cyrillic analyzer.
func (m *MockAnalyzer) NormalForms(word string) ([]string, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if strings.ContainsAny(word, "abcdefghijklmnopqrstuvwxyz") {
		return nil, morph.ErrNotAWord
	}
	if m.NormalFormsFunc != nil {
		return m.NormalFormsFunc(word)
	}
	return []string{word}, nil
}

// CallCount returns the number of times NormalForms was called.
func (m *MockAnalyzer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockAnalyzer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.NormalFormsFunc = nil
}

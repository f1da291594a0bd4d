package search

import (
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/poiesic/sitesearch/lemma"
)

const (
	snippetSource = 1000 // characters of page text considered for a snippet
	snippetLength = 200  // visible characters in a snippet
)

var (
	titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	stripPolicy  = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)
)

// ExtractTitle returns the whitespace-collapsed text of the first <title>
// element, or "" when the page has none.
func ExtractTitle(page string) string {
	m := titlePattern.FindStringSubmatch(page)
	if m == nil {
		return ""
	}
	return collapseSpace(html.UnescapeString(m[1]))
}

// PlainText strips tags from an HTML page and collapses whitespace.
func PlainText(page string) string {
	return collapseSpace(html.UnescapeString(stripPolicy.Sanitize(page)))
}

// Snippet renders the start of a page's text with the words whose lemma is
// in lemmas wrapped in <b>. Text is HTML-escaped; at most snippetLength
// characters are shown, followed by "..." when the text is longer.
func Snippet(page string, lemmas map[string]struct{}, extractor *lemma.Extractor) (string, error) {
	text := truncate(PlainText(page), snippetSource)

	var b strings.Builder
	visible := 0
	for _, seg := range segments(text) {
		if visible >= snippetLength {
			break
		}
		n := utf8.RuneCountInString(seg)
		cut := false
		if visible+n > snippetLength {
			seg = truncate(seg, snippetLength-visible)
			n = snippetLength - visible
			cut = true
		}

		marked := false
		if !cut {
			var err error
			marked, err = matches(seg, lemmas, extractor)
			if err != nil {
				return "", err
			}
		}
		if marked {
			b.WriteString("<b>")
			b.WriteString(html.EscapeString(seg))
			b.WriteString("</b>")
		} else {
			b.WriteString(html.EscapeString(seg))
		}
		visible += n
	}

	if utf8.RuneCountInString(text) > snippetLength {
		b.WriteString("...")
	}
	return b.String(), nil
}

func matches(word string, lemmas map[string]struct{}, extractor *lemma.Extractor) (bool, error) {
	tokens := lemma.Tokenize(word)
	if len(tokens) != 1 {
		return false, nil
	}
	l, ok, err := extractor.Lemma(tokens[0])
	if err != nil || !ok {
		return false, err
	}
	_, found := lemmas[l]
	return found, nil
}

// segments splits text into alternating runs of word and non-word characters.
func segments(text string) []string {
	var out []string
	start := 0
	prevWord := false
	for i, r := range text {
		word := unicode.IsLetter(r) || unicode.IsDigit(r)
		if i > 0 && word != prevWord {
			out = append(out, text[start:i])
			start = i
		}
		prevWord = word
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package search

import (
	"strings"
	"testing"

	"github.com/poiesic/sitesearch/lemma"
	"github.com/poiesic/sitesearch/morph/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		page string
		want string
	}{
		{"simple", "<html><title>Hi</title></html>", "Hi"},
		{"absent", "<html><body>no title</body></html>", ""},
		{"case insensitive", "<HTML><TITLE>Upper</TITLE></HTML>", "Upper"},
		{"whitespace collapsed", "<title>\n  Главная \t страница\n</title>", "Главная страница"},
		{"attributes and entities", `<title lang="ru">Tom &amp; Jerry</title>`, "Tom & Jerry"},
		{"first only", "<title>One</title><title>Two</title>", "One"},
		{"unterminated", "<title>Broken", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTitle(tt.page))
		})
	}
}

func TestPlainText(t *testing.T) {
	page := `<html><head><title>T</title><script>alert(1)</script></head>
<body><p>Первый&nbsp;абзац</p><p>второй &lt;тег&gt;</p></body></html>`
	assert.Equal(t, "Первый абзац второй <тег>", PlainText(page))
}

func TestSnippet(t *testing.T) {
	extractor, err := lemma.NewExtractor(mock.NewDictionaryAnalyzer(map[string][]string{
		"кошки": {"кошка"},
	}))
	require.NoError(t, err)
	lemmas := map[string]struct{}{"кошка": {}}

	t.Run("highlights matching word forms", func(t *testing.T) {
		got, err := Snippet("<p>Кошки и кошка, но не собака</p>", lemmas, extractor)
		require.NoError(t, err)
		assert.Equal(t, "<b>Кошки</b> и <b>кошка</b>, но не собака", got)
	})

	t.Run("escapes text", func(t *testing.T) {
		got, err := Snippet("<p>кошка &lt;script&gt;</p>", lemmas, extractor)
		require.NoError(t, err)
		assert.Equal(t, "<b>кошка</b> &lt;script&gt;", got)
	})

	t.Run("truncates long text", func(t *testing.T) {
		body := strings.Repeat("слово ", 100)
		got, err := Snippet("<p>кошка "+body+"</p>", lemmas, extractor)
		require.NoError(t, err)
		require.True(t, strings.HasSuffix(got, "..."))
		visible := strings.TrimSuffix(strings.ReplaceAll(strings.ReplaceAll(got, "<b>", ""), "</b>", ""), "...")
		assert.Equal(t, snippetLength, len([]rune(visible)))
		assert.True(t, strings.HasPrefix(got, "<b>кошка</b> слово"))
	})

	t.Run("short text has no ellipsis", func(t *testing.T) {
		got, err := Snippet("<p>собака</p>", lemmas, extractor)
		require.NoError(t, err)
		assert.Equal(t, "собака", got)
	})
}

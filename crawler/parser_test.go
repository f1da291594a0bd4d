package crawler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>  Главная
  страница </title>
  <style>body { color: red; }</style>
  <script>var x = "скрипт";</script>
</head>
<body>
  <h1>Добро пожаловать</h1>
  <p>Текст   страницы</p>
  <noscript>включите скрипты</noscript>
  <a href="/about">О нас</a>
  <a href="news/1?id=2#top">Новость</a>
  <a href="#section">Якорь</a>
  <a href="mailto:info@example.com">Почта</a>
  <a href="https://other.example/page">Чужой</a>
  <a href="/about#team">Команда</a>
</body>
</html>`

func TestParse(t *testing.T) {
	doc, err := Parse("https://example.com/dir/index.html", strings.NewReader(samplePage))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(doc.Text, "Главная страница Добро пожаловать"))
	assert.Contains(t, doc.Text, "Добро пожаловать")
	assert.Contains(t, doc.Text, "Текст страницы")
	assert.NotContains(t, doc.Text, "скрипт")
	assert.NotContains(t, doc.Text, "color")

	assert.Equal(t, []string{
		"https://example.com/about",
		"https://example.com/dir/news/1?id=2",
		"https://other.example/page",
	}, doc.Links)
}

func TestParseSeparatesElements(t *testing.T) {
	html := `<html><head><title>Заголовок</title></head><body>` +
		`<ul><li>Кошка</li><li>Собака</li></ul><p>Один</p><p>Два</p>` +
		`<p>Кош<b>ка</b> и <a href="/x">ссылка</a>.</p></body></html>`
	doc, err := Parse("https://example.com/", strings.NewReader(html))
	require.NoError(t, err)
	assert.Equal(t, "Заголовок Кошка Собака Один Два Кошка и ссылка.", doc.Text)
}

func TestParseBaseHref(t *testing.T) {
	html := `<html><head><base href="https://example.com/root/"></head>
<body><a href="child">x</a></body></html>`
	doc, err := Parse("https://example.com/other/page", strings.NewReader(html))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/root/child"}, doc.Links)
}

func TestExtractText(t *testing.T) {
	text, err := ExtractText(samplePage)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "Главная страница"))
	assert.NotContains(t, text, "включите")

	t.Run("adjacent blocks", func(t *testing.T) {
		text, err := ExtractText("<div>Кошка</div><div>Собака</div>")
		require.NoError(t, err)
		assert.Equal(t, "Кошка Собака", text)
	})
}

package reindex

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/sitesearch/indexer"
	"github.com/poiesic/sitesearch/lemma"
	"github.com/poiesic/sitesearch/morph/mock"
	"github.com/poiesic/sitesearch/storage"
	"github.com/poiesic/sitesearch/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIndexer(t *testing.T, repos *storage.Repositories, analyzer *mock.MockAnalyzer) *indexer.Indexer {
	extractor, err := lemma.NewExtractor(analyzer)
	require.NoError(t, err)
	ix, err := indexer.NewIndexer(repos, extractor)
	require.NoError(t, err)
	return ix
}

func TestReindexer_Run(t *testing.T) {
	ctx := context.Background()
	repos := setupTestDB(t)
	site := storagetest.NewSite(t, repos, "https://example.com")

	// Index with an analyzer that knows no word forms.
	before := newIndexer(t, repos, mock.NewMockAnalyzer())
	for i := range 7 {
		body := "<html><body><p>кошки спят</p><script>кошка</script></body></html>"
		page := storagetest.NewPage(t, repos, site.Id, fmt.Sprintf("/%d", i), body)
		text := "кошки спят"
		require.NoError(t, before.IndexPage(ctx, site, page, text))
	}
	_, err := repos.Lemmas.FindLemma(ctx, site.Id, "кошка")
	require.ErrorIs(t, err, storage.ErrNotFound)

	after := newIndexer(t, repos, mock.NewDictionaryAnalyzer(map[string][]string{
		"кошки": {"кошка"},
		"спят":  {"спать"},
	}))
	var progress bytes.Buffer
	r, err := NewReindexer(repos, after, &Config{BatchSize: 3, ReportInterval: 2, Workers: 2}, &progress)
	require.NoError(t, err)

	summary, err := r.Run(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sites)
	assert.Equal(t, 7, summary.Pages)
	assert.Contains(t, progress.String(), "7/7")

	for text, want := range map[string]int{"кошка": 7, "спать": 7} {
		l, err := repos.Lemmas.FindLemma(ctx, site.Id, text)
		require.NoError(t, err, text)
		assert.Equal(t, want, l.Frequency, text)
		entries, err := repos.Index.GetIndexEntriesByLemma(ctx, l.Id)
		require.NoError(t, err)
		assert.Len(t, entries, want)
		for _, e := range entries {
			assert.Equal(t, float32(1), e.Rank, "script content is not indexed")
		}
	}
	for _, stale := range []string{"кошки", "спят"} {
		_, err := repos.Lemmas.FindLemma(ctx, site.Id, stale)
		assert.ErrorIs(t, err, storage.ErrNotFound, stale)
	}

	count, err := repos.Lemmas.CountLemmas(ctx, site.Id)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestReindexer_SingleSite(t *testing.T) {
	ctx := context.Background()
	repos := setupTestDB(t)
	one := storagetest.NewSite(t, repos, "https://one.example")
	two := storagetest.NewSite(t, repos, "https://two.example")
	storagetest.NewPage(t, repos, one.Id, "/", "<p>один</p>")
	storagetest.NewPage(t, repos, two.Id, "/", "<p>два</p>")

	r, err := NewReindexer(repos, newIndexer(t, repos, mock.NewMockAnalyzer()), nil, nil)
	require.NoError(t, err)

	summary, err := r.Run(ctx, "https://two.example/")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Pages)

	_, err = repos.Lemmas.FindLemma(ctx, two.Id, "два")
	assert.NoError(t, err)
	_, err = repos.Lemmas.FindLemma(ctx, one.Id, "один")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = r.Run(ctx, "https://missing.example")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReindexer_Empty(t *testing.T) {
	repos := setupTestDB(t)
	storagetest.NewSite(t, repos, "https://example.com")
	var progress bytes.Buffer
	r, err := NewReindexer(repos, newIndexer(t, repos, mock.NewMockAnalyzer()), nil, &progress)
	require.NoError(t, err)

	summary, err := r.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Zero(t, summary.Pages)
	assert.Contains(t, progress.String(), "No pages found")
}

func TestNewReindexer(t *testing.T) {
	_, err := NewReindexer(nil, nil, nil, nil)
	assert.ErrorIs(t, err, ErrRepositoriesRequired)

	repos := setupTestDB(t)
	_, err = NewReindexer(repos, nil, nil, nil)
	assert.ErrorIs(t, err, ErrIndexerRequired)
}

package stats

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/sitesearch/core"
	"github.com/poiesic/sitesearch/storage/badger"
	"github.com/poiesic/sitesearch/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedState bool

func (s fixedState) IsIndexing() bool { return bool(s) }

func TestStatistics(t *testing.T) {
	ctx := context.Background()
	repos, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		repos.Close()
		backend.Close()
	}()

	t.Run("empty", func(t *testing.T) {
		c, err := NewCollector(repos, nil)
		require.NoError(t, err)
		st, err := c.Statistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, Total{}, st.Total)
		assert.Empty(t, st.Detailed)
	})

	one := storagetest.NewSite(t, repos, "https://one.example")
	two := storagetest.NewSite(t, repos, "https://two.example")
	storagetest.NewPage(t, repos, one.Id, "/", "<html></html>")
	storagetest.NewPage(t, repos, one.Id, "/about", "<html></html>")
	storagetest.NewPage(t, repos, two.Id, "/", "<html></html>")

	for _, text := range []string{"альфа", "бета"} {
		_, err := repos.Lemmas.AddLemma(ctx, &core.Lemma{SiteId: one.Id, Text: text, Frequency: 1})
		require.NoError(t, err)
	}

	two.Status = core.SiteStatusFailed
	two.LastError = "boom"
	two.StatusTime = time.Unix(1700000000, 0).UTC()
	_, err = repos.Sites.UpdateSite(ctx, two)
	require.NoError(t, err)

	c, err := NewCollector(repos, fixedState(true))
	require.NoError(t, err)
	st, err := c.Statistics(ctx)
	require.NoError(t, err)

	assert.Equal(t, Total{Sites: 2, Pages: 3, Lemmas: 2, Indexing: true}, st.Total)
	require.Len(t, st.Detailed, 2)
	assert.Equal(t, "https://one.example", st.Detailed[0].URL)
	assert.Equal(t, 2, st.Detailed[0].Pages)
	assert.Equal(t, 2, st.Detailed[0].Lemmas)
	assert.Equal(t, core.SiteStatusFailed, st.Detailed[1].Status)
	assert.Equal(t, "boom", st.Detailed[1].Error)
	assert.True(t, two.StatusTime.Equal(st.Detailed[1].StatusTime))
}

func TestNewCollector(t *testing.T) {
	_, err := NewCollector(nil, nil)
	assert.ErrorIs(t, err, ErrRepositoriesRequired)
}

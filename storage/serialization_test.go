package storage

import (
	"testing"
	"time"

	"github.com/poiesic/sitesearch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"lemma ID", core.LemmaID(7, "поиск")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestSiteRecord(t *testing.T) {
	site := &core.Site{
		Id:         3,
		URL:        "https://example.com",
		Name:       "Пример",
		Status:     core.SiteStatusFailed,
		StatusTime: time.UnixMicro(1_700_000_000_123_456).UTC(),
		LastError:  "stopped by user",
	}

	decoded, err := UnmarshalSite(MarshalSite(site))
	require.NoError(t, err)
	assert.Equal(t, site, decoded)

	t.Run("zero status time survives", func(t *testing.T) {
		decoded, err := UnmarshalSite(MarshalSite(&core.Site{Id: 1, URL: "https://a.org", Status: core.SiteStatusIndexing}))
		require.NoError(t, err)
		assert.True(t, decoded.StatusTime.IsZero())
	})

	t.Run("truncated record", func(t *testing.T) {
		data := MarshalSite(site)
		_, err := UnmarshalSite(data[:5])
		assert.ErrorIs(t, err, ErrSerializationFailed)
	})
}

func TestPageRecord(t *testing.T) {
	page := &core.Page{
		Id:      10,
		SiteId:  3,
		Path:    "/news?page=2",
		Code:    200,
		Content: "<html><title>Новости</title></html>",
	}

	decoded, err := UnmarshalPage(MarshalPage(page))
	require.NoError(t, err)
	assert.Equal(t, page, decoded)

	_, err = UnmarshalPage(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestLemmaAndIndexEntryRecords(t *testing.T) {
	lemma := &core.Lemma{Id: core.LemmaID(3, "тест"), SiteId: 3, Text: "тест", Frequency: 12}
	decodedLemma, err := UnmarshalLemma(MarshalLemma(lemma))
	require.NoError(t, err)
	assert.Equal(t, lemma, decodedLemma)

	entry := &core.IndexEntry{PageId: 10, LemmaId: lemma.Id, Rank: 3}
	decodedEntry, err := UnmarshalIndexEntry(MarshalIndexEntry(entry))
	require.NoError(t, err)
	assert.Equal(t, entry, decodedEntry)
}

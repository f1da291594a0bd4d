// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/sitesearch/core"
)

// Record layouts are positional: fields are written in declaration order.
// Timestamps are stored as Unix microseconds.

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return core.ID(id), nil
}

// MarshalSite serializes a Site to bytes.
func MarshalSite(site *core.Site) []byte {
	size := varint.Uint64.Size(uint64(site.Id)) +
		ord.String.Size(site.URL) +
		ord.String.Size(site.Name) +
		varint.Int.Size(int(site.Status)) +
		varint.Int64.Size(site.StatusTime.UnixMicro()) +
		ord.String.Size(site.LastError)
	buf := make([]byte, size)
	n := varint.Uint64.Marshal(uint64(site.Id), buf)
	n += ord.String.Marshal(site.URL, buf[n:])
	n += ord.String.Marshal(site.Name, buf[n:])
	n += varint.Int.Marshal(int(site.Status), buf[n:])
	n += varint.Int64.Marshal(site.StatusTime.UnixMicro(), buf[n:])
	ord.String.Marshal(site.LastError, buf[n:])
	return buf
}

// UnmarshalSite deserializes a Site from bytes.
func UnmarshalSite(data []byte) (*core.Site, error) {
	r := reader{data: data}
	site := &core.Site{
		Id:   core.ID(r.uint64()),
		URL:  r.string(),
		Name: r.string(),
	}
	site.Status = core.SiteStatus(r.int())
	site.StatusTime = time.UnixMicro(r.int64()).UTC()
	site.LastError = r.string()
	if r.err != nil {
		return nil, r.err
	}
	return site, nil
}

// MarshalPage serializes a Page to bytes.
func MarshalPage(page *core.Page) []byte {
	size := varint.Uint64.Size(uint64(page.Id)) +
		varint.Uint64.Size(uint64(page.SiteId)) +
		ord.String.Size(page.Path) +
		varint.Int.Size(page.Code) +
		ord.String.Size(page.Content)
	buf := make([]byte, size)
	n := varint.Uint64.Marshal(uint64(page.Id), buf)
	n += varint.Uint64.Marshal(uint64(page.SiteId), buf[n:])
	n += ord.String.Marshal(page.Path, buf[n:])
	n += varint.Int.Marshal(page.Code, buf[n:])
	ord.String.Marshal(page.Content, buf[n:])
	return buf
}

// UnmarshalPage deserializes a Page from bytes.
func UnmarshalPage(data []byte) (*core.Page, error) {
	r := reader{data: data}
	page := &core.Page{
		Id:     core.ID(r.uint64()),
		SiteId: core.ID(r.uint64()),
		Path:   r.string(),
	}
	page.Code = r.int()
	page.Content = r.string()
	if r.err != nil {
		return nil, r.err
	}
	return page, nil
}

// MarshalLemma serializes a Lemma to bytes.
func MarshalLemma(lemma *core.Lemma) []byte {
	size := varint.Uint64.Size(uint64(lemma.Id)) +
		varint.Uint64.Size(uint64(lemma.SiteId)) +
		ord.String.Size(lemma.Text) +
		varint.Int.Size(lemma.Frequency)
	buf := make([]byte, size)
	n := varint.Uint64.Marshal(uint64(lemma.Id), buf)
	n += varint.Uint64.Marshal(uint64(lemma.SiteId), buf[n:])
	n += ord.String.Marshal(lemma.Text, buf[n:])
	varint.Int.Marshal(lemma.Frequency, buf[n:])
	return buf
}

// UnmarshalLemma deserializes a Lemma from bytes.
func UnmarshalLemma(data []byte) (*core.Lemma, error) {
	r := reader{data: data}
	lemma := &core.Lemma{
		Id:     core.ID(r.uint64()),
		SiteId: core.ID(r.uint64()),
		Text:   r.string(),
	}
	lemma.Frequency = r.int()
	if r.err != nil {
		return nil, r.err
	}
	return lemma, nil
}

// MarshalIndexEntry serializes an IndexEntry to bytes.
func MarshalIndexEntry(entry *core.IndexEntry) []byte {
	size := varint.Uint64.Size(uint64(entry.PageId)) +
		varint.Uint64.Size(uint64(entry.LemmaId)) +
		varint.Float32.Size(entry.Rank)
	buf := make([]byte, size)
	n := varint.Uint64.Marshal(uint64(entry.PageId), buf)
	n += varint.Uint64.Marshal(uint64(entry.LemmaId), buf[n:])
	varint.Float32.Marshal(entry.Rank, buf[n:])
	return buf
}

// UnmarshalIndexEntry deserializes an IndexEntry from bytes.
func UnmarshalIndexEntry(data []byte) (*core.IndexEntry, error) {
	r := reader{data: data}
	entry := &core.IndexEntry{
		PageId:  core.ID(r.uint64()),
		LemmaId: core.ID(r.uint64()),
	}
	entry.Rank = r.float32()
	if r.err != nil {
		return nil, r.err
	}
	return entry, nil
}

// reader walks a positional record and keeps the first error.
type reader struct {
	data []byte
	n    int
	err  error
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: offset %d: %w", ErrSerializationFailed, r.n, err)
	}
}

func (r *reader) uint64() uint64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(r.data[r.n:])
	if err != nil {
		r.fail(err)
		return 0
	}
	r.n += n
	return v
}

func (r *reader) int64() int64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(r.data[r.n:])
	if err != nil {
		r.fail(err)
		return 0
	}
	r.n += n
	return v
}

func (r *reader) int() int {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Int.Unmarshal(r.data[r.n:])
	if err != nil {
		r.fail(err)
		return 0
	}
	r.n += n
	return v
}

func (r *reader) float32() float32 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Float32.Unmarshal(r.data[r.n:])
	if err != nil {
		r.fail(err)
		return 0
	}
	r.n += n
	return v
}

func (r *reader) string() string {
	if r.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.data[r.n:])
	if err != nil {
		r.fail(err)
		return ""
	}
	r.n += n
	return v
}

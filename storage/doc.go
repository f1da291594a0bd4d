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

// Package storage provides the storage abstraction layer for sitesearch.
//
// This package defines repository interfaces for the four indexed entities
// (sites, pages, lemmas and index entries) that decouple storage from the
// crawler, indexer and searcher. Two backends implement them: storage/badger
// (embedded key-value store, the default) and storage/sqlite (relational).
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - Repository: transaction support and Close, embedded by every repository
//   - SiteRepository: sites and the cascade delete of everything they own
//   - PageRepository: pages, path lookup and the per-site page count
//   - LemmaRepository: per-site lemmas and their document frequency
//   - IndexRepository: page/lemma index entries, looked up from either side
//   - Repositories: a bundle of the four sharing one backend
//
// # Transactions
//
// WithTransaction stores the open transaction in the context it passes to fn.
// Repository methods called with that context join the transaction, so a
// multi-entity update such as indexing one page either applies fully or not at
// all. A transaction that loses a write conflict fails with ErrConflict and may
// be retried by the caller.
//
// # Usage
//
// Use in tests with in-memory storage:
//
//	repos, backend, err := badger.NewMemoryRepositories()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//	defer repos.Close()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage

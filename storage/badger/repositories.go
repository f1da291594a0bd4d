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

package badger

import "github.com/poiesic/sitesearch/storage"

// NewRepositories creates the four repositories on top of backend.
// Caller must close the repositories before the backend.
func NewRepositories(backend *Backend) (*storage.Repositories, error) {
	sites, err := NewSiteRepository(backend)
	if err != nil {
		return nil, err
	}

	pages, err := NewPageRepository(backend)
	if err != nil {
		sites.Close()
		return nil, err
	}

	lemmas, err := NewLemmaRepository(backend)
	if err != nil {
		pages.Close()
		sites.Close()
		return nil, err
	}

	index, err := NewIndexRepository(backend)
	if err != nil {
		lemmas.Close()
		pages.Close()
		sites.Close()
		return nil, err
	}

	return &storage.Repositories{
		Sites:  sites,
		Pages:  pages,
		Lemmas: lemmas,
		Index:  index,
	}, nil
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must close the repositories and then the backend when done.
func NewMemoryRepositories() (*storage.Repositories, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, err
	}

	repos, err := NewRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}

	return repos, backend, nil
}

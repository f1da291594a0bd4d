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

// Package search ranks indexed pages against a free-text query.
//
// A query is reduced to lemmas, lemmas that occur on too large a share of the
// candidate pages are dropped, and the pages containing every remaining lemma
// are scored by the summed term frequencies of those lemmas. Scores are
// normalized against the best page, so the top result always has relevance 1.
package search

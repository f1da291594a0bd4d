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

// Package morph defines the morphological analyzer used to reduce words to
// their normal forms before indexing and querying.
//
// The analyzer is an external capability behind a small interface:
//
//   - Analyzer: word in, zero or more normal forms out
//   - ErrNotAWord: the word is not written in the analyzer's alphabet
//
// # Implementation Packages
//
//   - morph/stemmer: Russian analyzer backed by the snowball stemmer
//   - morph/mock: Test double with injectable behavior and call counting
//
// Public constructors return the Analyzer interface; the mock constructor
// returns its concrete type so tests can inspect calls.
package morph

// Package reindex rebuilds the lemma index of stored pages without
// fetching them again.
//
// Pages are walked site by site in ID order and re-indexed in batches on a
// worker pool, which makes it possible to pick up a changed morphological
// analyzer or tokenizer on an existing crawl.
package reindex

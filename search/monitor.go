package search

import (
	"iter"

	"github.com/poiesic/sitesearch/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query Query)
	AfterCandidateSites(sites []*core.Site)
	AfterQueryLemmas(lemmas []string)
	LemmaFiltered(lemma string, frequency, totalPages int)
	AfterLemmaSelection(lemmas []string)
	AfterIntersection(pageIDs iter.Seq[core.ID])
	Finish(results *Results)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ Query)                         {}
func (n *noopMonitor) AfterCandidateSites(_ []*core.Site)    {}
func (n *noopMonitor) AfterQueryLemmas(_ []string)           {}
func (n *noopMonitor) LemmaFiltered(_ string, _, _ int)      {}
func (n *noopMonitor) AfterLemmaSelection(_ []string)        {}
func (n *noopMonitor) AfterIntersection(_ iter.Seq[core.ID]) {}
func (n *noopMonitor) Finish(_ *Results)                     {}

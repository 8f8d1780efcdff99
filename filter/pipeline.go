// Package filter composes facet, taxonomy, hidden-category, and search
// constraints into the single ordered "visible" list the UI paints, with
// dirty-tracking, a rate-limited recompute, and a debounced search commit.
package filter

import (
	"strings"
	"time"

	"github.com/user-none/romcat/catalog"
	"github.com/user-none/romcat/search"
)

// RecomputeInterval is the minimum time between non-search-triggered
// recomputes once dirty, per spec.md §4.2.
const RecomputeInterval = 10 * time.Millisecond

// DebounceDuration is how long search input must be idle before the
// pending search text commits, per spec.md §4.3.
const DebounceDuration = 300 * time.Millisecond

// Settings mirrors spec.md §3's FilterSettings.
type Settings struct {
	ShowAvailable   bool
	ShowUnavailable bool

	ShowWorking    bool
	ShowNotWorking bool

	ShowFavorites    bool
	ShowParentsOnly  bool
	ShowCHDGames     bool

	SearchText string
	SearchMode search.Mode

	CatverCategory        string
	ApplyHiddenCategories bool

	SortKey   catalog.SortKey
	Ascending bool
}

// Pipeline is the C5 filter/search composition engine.
type Pipeline struct {
	index    *catalog.Index
	engine   *search.Engine
	settings Settings

	hiddenCategories map[string]bool

	dirty      bool
	lastUpdate time.Time

	pendingSearch   string
	havePending     bool
	pendingDeadline time.Time
}

// New creates a Pipeline over index and engine (engine may be nil if the
// catalog has not finished loading; the search step then passes every row
// through until an engine is set via SetEngine).
func New(index *catalog.Index, engine *search.Engine, hiddenCategories map[string]bool) *Pipeline {
	return &Pipeline{
		index:            index,
		engine:           engine,
		hiddenCategories: hiddenCategories,
		dirty:            true,
	}
}

// SetEngine installs the Search Engine once the catalog has finished
// loading and the full-text index has been built.
func (p *Pipeline) SetEngine(engine *search.Engine) {
	p.engine = engine
}

// Settings returns a copy of the pipeline's current settings. The UI reads
// this to toggle a single field and pass the result back to SetSettings.
func (p *Pipeline) Settings() Settings {
	return p.settings
}

// MarkDirty flags a non-search filter change as requiring recompute. The
// recompute is subject to the same RecomputeInterval rate limit in
// ShouldRecompute as any other dirty state; a non-search toggle has no
// separate immediate path. Search-text changes instead go through
// HandleSearchInput below.
func (p *Pipeline) MarkDirty() {
	p.dirty = true
}

// HandleSearchInput records a keystroke into the search field without
// mutating Settings.SearchText yet, resetting the debounce timer. Call
// ProcessPendingSearch once per tick to commit after the debounce elapses.
func (p *Pipeline) HandleSearchInput(text string, now time.Time) {
	p.pendingSearch = text
	p.havePending = true
	p.pendingDeadline = now.Add(DebounceDuration)
}

// ProcessPendingSearch commits the pending search text once the debounce
// window has elapsed with no further input, marking the pipeline dirty.
// Returns true if a commit happened this call.
func (p *Pipeline) ProcessPendingSearch(now time.Time) bool {
	if !p.havePending {
		return false
	}
	if now.Before(p.pendingDeadline) {
		return false
	}
	p.settings.SearchText = p.pendingSearch
	p.havePending = false
	p.dirty = true
	return true
}

// SetSettings replaces non-search settings and marks the pipeline dirty.
// SearchText is left untouched here; use HandleSearchInput for that field.
func (p *Pipeline) SetSettings(s Settings) {
	s.SearchText = p.settings.SearchText
	p.settings = s
	p.dirty = true
}

// ShouldRecompute reports whether a recompute is due right now: the
// pipeline must be dirty, and either this is a search commit (handled by
// the caller invoking Recompute directly after ProcessPendingSearch
// returns true) or at least RecomputeInterval has passed since the last
// update.
func (p *Pipeline) ShouldRecompute(now time.Time) bool {
	if !p.dirty {
		return false
	}
	return now.Sub(p.lastUpdate) >= RecomputeInterval
}

// Recompute runs the eight-step fixed-order algorithm and returns the new
// visible list. It always succeeds: an invalid regex or a disabled
// full-text strategy degrades the search step to "pass everything" rather
// than failing the whole pipeline.
func (p *Pipeline) Recompute(now time.Time) []int {
	defer func() {
		p.dirty = false
		p.lastUpdate = now
	}()

	s := p.settings
	idx := p.index

	// Fast path: a single constrained facet and no search returns the
	// facet list directly, skipping the scan.
	if fast, ok := p.fastPath(); ok {
		return p.applySort(fast)
	}

	visible := allIndices(len(idx.All))

	visible = andFacet(visible, idx.Available, idx.Missing, s.ShowAvailable, s.ShowUnavailable)
	visible = andFacet(visible, idx.Working, idx.NotWorking, s.ShowWorking, s.ShowNotWorking)
	visible = p.applyOthers(visible)
	visible = p.applyTaxonomy(visible)
	visible = p.applyHidden(visible)
	visible = p.applySearch(visible)

	return p.applySort(visible)
}

// fastPath implements spec.md §4.2's "single constrained facet and empty
// search returns the facet list directly" optimization.
func (p *Pipeline) fastPath() ([]int, bool) {
	s := p.settings
	if s.SearchText != "" || s.CatverCategory != "" || s.ApplyHiddenCategories {
		return nil, false
	}

	constrained := 0
	var facet []int

	count := func(on bool, list []int) {
		if on {
			constrained++
			facet = list
		}
	}
	count(s.ShowAvailable && !s.ShowUnavailable, p.index.Available)
	count(s.ShowUnavailable && !s.ShowAvailable, p.index.Missing)
	count(s.ShowWorking && !s.ShowNotWorking, p.index.Working)
	count(s.ShowNotWorking && !s.ShowWorking, p.index.NotWorking)
	count(s.ShowFavorites && !s.ShowParentsOnly && !s.ShowCHDGames, p.index.Favorites)
	count(s.ShowParentsOnly && !s.ShowFavorites && !s.ShowCHDGames, p.index.Parents)
	count(s.ShowCHDGames && !s.ShowFavorites && !s.ShowParentsOnly, p.index.CHD)

	if constrained == 1 {
		return facet, true
	}
	return nil, false
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// andFacet applies one AND-category with two boolean sub-checkboxes that
// compose by OR within the category; an all-unchecked category passes
// everything.
func andFacet(visible, onList, offList []int, on, off bool) []int {
	if !on && !off {
		return visible
	}
	allow := make(map[int]bool, len(onList)+len(offList))
	if on {
		for _, i := range onList {
			allow[i] = true
		}
	}
	if off {
		for _, i := range offList {
			allow[i] = true
		}
	}
	return filterBy(visible, func(i int) bool { return allow[i] })
}

func (p *Pipeline) applyOthers(visible []int) []int {
	s := p.settings
	if !s.ShowFavorites && !s.ShowParentsOnly && !s.ShowCHDGames {
		return visible
	}
	return filterBy(visible, func(i int) bool {
		g := &p.index.All[i]
		if s.ShowFavorites && p.index.Favorites != nil && contains(p.index.Favorites, i) {
			return true
		}
		if s.ShowParentsOnly && !g.IsClone() {
			return true
		}
		if s.ShowCHDGames && g.RequiresCHD {
			return true
		}
		return false
	})
}

func (p *Pipeline) applyTaxonomy(visible []int) []int {
	if p.settings.CatverCategory == "" {
		return visible
	}
	want := strings.ToLower(p.settings.CatverCategory)
	return filterBy(visible, func(i int) bool {
		return strings.ToLower(p.index.All[i].Category) == want
	})
}

func (p *Pipeline) applyHidden(visible []int) []int {
	if !p.settings.ApplyHiddenCategories || len(p.hiddenCategories) == 0 {
		return visible
	}
	return filterBy(visible, func(i int) bool {
		return !p.hiddenCategories[p.index.All[i].Category]
	})
}

// applySearch consults the result-set cache first; on miss it calls the
// Search Engine and stores the result. An empty SearchText skips the step
// and the cache entirely, per spec.md §8 boundary behaviors.
func (p *Pipeline) applySearch(visible []int) []int {
	s := p.settings
	if s.SearchText == "" {
		return visible
	}

	cacheKey := s.SearchText + "|" + string(s.SearchMode)
	if cached, ok := p.index.GetCached(cacheKey); ok {
		return intersectPreserveOrder(visible, cached)
	}

	if p.engine == nil {
		// No engine yet (catalog still loading): degrade to match-all so
		// the UI stays usable, matching the pipeline's "never fails" rule.
		return visible
	}

	var matched []int
	if regexMode(s.SearchMode) {
		hits, err := p.engine.RegexSearch(s.SearchText, s.SearchMode)
		if err != nil {
			// SearchRegexInvalid: non-fatal, pass every row untouched —
			// do not cache an empty result under this key.
			return visible
		}
		if hits == nil {
			// Regex disabled (EnableRegex false): same "pass every row"
			// treatment, not "matched nothing".
			return visible
		}
		matched = hits
	} else if enhancedMode(s.SearchMode) {
		matched = p.engine.Search(s.SearchText, s.SearchMode)
	} else {
		matched = fuzzyIndicesOnly(p.engine.FuzzySearch(s.SearchText, s.SearchMode))
	}

	p.index.CachePut(cacheKey, matched)
	return intersectPreserveOrder(visible, matched)
}

func fuzzyIndicesOnly(results []search.FuzzyResult) []int {
	out := make([]int, len(results))
	for i, r := range results {
		out[i] = r.Index
	}
	return out
}

func regexMode(m search.Mode) bool    { return m == search.ModeRegex }
func enhancedMode(m search.Mode) bool { return m == search.ModeFuzzy || m == search.ModeFullText }

func (p *Pipeline) applySort(visible []int) []int {
	view := p.index.GetSorted(p.settings.SortKey, p.settings.Ascending)
	return intersectPreserveOrder(view, visible)
}

func filterBy(visible []int, keep func(int) bool) []int {
	out := visible[:0:0]
	for _, i := range visible {
		if keep(i) {
			out = append(out, i)
		}
	}
	return out
}

func contains(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// intersectPreserveOrder returns the elements of ordered that also appear
// in allowed, preserving ordered's order — used both to intersect a sort
// view with a filtered set and to intersect filtered results with a
// cached/search result set.
func intersectPreserveOrder(ordered, allowed []int) []int {
	set := make(map[int]bool, len(allowed))
	for _, i := range allowed {
		set[i] = true
	}
	out := make([]int, 0, len(ordered))
	for _, i := range ordered {
		if set[i] {
			out = append(out, i)
		}
	}
	return out
}

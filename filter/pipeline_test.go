package filter

import (
	"reflect"
	"testing"
	"time"

	"github.com/user-none/romcat/catalog"
	"github.com/user-none/romcat/search"
)

// Catalog from spec.md §8's concrete scenarios:
// A (Available, parent), B (Missing, clone of A), C (Available, clone of A),
// D (Available, parent, CHD), E (Missing, parent).
func scenarioGames() []catalog.Game {
	return []catalog.Game{
		{Name: "A", Description: "Alpha", Status: catalog.StatusAvailable},
		{Name: "B", Description: "Bravo", Status: catalog.StatusMissing, Parent: "A"},
		{Name: "C", Description: "Charlie", Status: catalog.StatusAvailable, Parent: "A"},
		{Name: "D", Description: "Delta", Status: catalog.StatusAvailable, RequiresCHD: true},
		{Name: "E", Description: "Echo", Status: catalog.StatusMissing},
	}
}

func names(idx *catalog.Index, rows []int) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = idx.All[r].Name
	}
	return out
}

func TestFacetOnlyFilter(t *testing.T) {
	idx := catalog.BuildIndex(scenarioGames(), nil)
	p := New(idx, nil, nil)
	p.SetSettings(Settings{ShowAvailable: true, ShowParentsOnly: true, SortKey: catalog.SortName, Ascending: true})

	got := p.Recompute(time.Now())
	want := []string{"A", "D"}
	if !reflect.DeepEqual(names(idx, got), want) {
		t.Errorf("visible = %v, want %v", names(idx, got), want)
	}
}

func TestCategoryANDComposition(t *testing.T) {
	idx := catalog.BuildIndex(scenarioGames(), nil)
	p := New(idx, nil, nil)
	p.SetSettings(Settings{
		ShowAvailable: true,
		ShowCHDGames:  true,
		SortKey:       catalog.SortName,
		Ascending:     true,
	})

	got := p.Recompute(time.Now())
	want := []string{"D"}
	if !reflect.DeepEqual(names(idx, got), want) {
		t.Errorf("visible = %v, want %v", names(idx, got), want)
	}
}

func TestUncheckedCategoryContributesNoConstraint(t *testing.T) {
	idx := catalog.BuildIndex(scenarioGames(), nil)
	p := New(idx, nil, nil)
	p.SetSettings(Settings{SortKey: catalog.SortName, Ascending: true})

	got := p.Recompute(time.Now())
	if len(got) != 5 {
		t.Errorf("expected all 5 rows with no constraints, got %v", names(idx, got))
	}
}

func TestEmptySearchTextSkipsCache(t *testing.T) {
	idx := catalog.BuildIndex(scenarioGames(), nil)
	p := New(idx, nil, nil)
	p.SetSettings(Settings{SortKey: catalog.SortName, Ascending: true})
	p.Recompute(time.Now())

	if _, ok := idx.GetCached("|"); ok {
		t.Errorf("empty search text should never populate the cache")
	}
}

func TestFilterToggleIdempotence(t *testing.T) {
	idx := catalog.BuildIndex(scenarioGames(), nil)
	p := New(idx, nil, nil)

	p.SetSettings(Settings{ShowAvailable: true, SortKey: catalog.SortName, Ascending: true})
	first := p.Recompute(time.Now())

	p.SetSettings(Settings{ShowAvailable: false, SortKey: catalog.SortName, Ascending: true})
	p.Recompute(time.Now())

	p.SetSettings(Settings{ShowAvailable: true, SortKey: catalog.SortName, Ascending: true})
	second := p.Recompute(time.Now())

	if !reflect.DeepEqual(first, second) {
		t.Errorf("toggling off then back on should be idempotent: %v vs %v", first, second)
	}
}

func TestDebounceCommitsAfterIdle(t *testing.T) {
	idx := catalog.BuildIndex(scenarioGames(), nil)
	p := New(idx, nil, nil)

	base := time.Now()
	p.HandleSearchInput("del", base)

	if p.ProcessPendingSearch(base.Add(100 * time.Millisecond)) {
		t.Fatalf("should not commit before debounce elapses")
	}
	if p.settings.SearchText != "" {
		t.Fatalf("search text must not mutate before debounce commits")
	}

	if !p.ProcessPendingSearch(base.Add(DebounceDuration + time.Millisecond)) {
		t.Fatalf("should commit once debounce has elapsed")
	}
	if p.settings.SearchText != "del" {
		t.Fatalf("SearchText = %q, want %q", p.settings.SearchText, "del")
	}
}

func TestInvalidRegexPassesEveryRow(t *testing.T) {
	idx := catalog.BuildIndex(scenarioGames(), nil)
	cfg := search.DefaultConfig()
	cfg.EnableRegex = true
	engine := search.New(scenarioGames(), cfg)
	p := New(idx, engine, nil)

	p.SetSettings(Settings{SearchMode: search.ModeRegex, SortKey: catalog.SortName, Ascending: true})
	p.HandleSearchInput("[", time.Now())
	now := time.Now().Add(DebounceDuration + time.Millisecond)
	p.ProcessPendingSearch(now)

	got := p.Recompute(now)
	if len(got) != 5 {
		t.Errorf("invalid regex should pass every row, got %v", names(idx, got))
	}
}

func TestRegexModeWithRegexDisabledPassesEveryRow(t *testing.T) {
	idx := catalog.BuildIndex(scenarioGames(), nil)
	cfg := search.DefaultConfig()
	cfg.EnableRegex = false
	engine := search.New(scenarioGames(), cfg)
	p := New(idx, engine, nil)

	p.SetSettings(Settings{SearchMode: search.ModeRegex, SortKey: catalog.SortName, Ascending: true})
	p.HandleSearchInput("Delta", time.Now())
	now := time.Now().Add(DebounceDuration + time.Millisecond)
	p.ProcessPendingSearch(now)

	got := p.Recompute(now)
	if len(got) != 5 {
		t.Errorf("regex mode with EnableRegex=false should pass every row, got %v", names(idx, got))
	}
}

func TestRecomputeRateLimit(t *testing.T) {
	idx := catalog.BuildIndex(scenarioGames(), nil)
	p := New(idx, nil, nil)
	p.SetSettings(Settings{SortKey: catalog.SortName, Ascending: true})
	base := time.Now()
	p.Recompute(base)

	p.MarkDirty()
	if p.ShouldRecompute(base.Add(1 * time.Millisecond)) {
		t.Errorf("should not recompute before RecomputeInterval elapses")
	}
	if !p.ShouldRecompute(base.Add(RecomputeInterval + time.Millisecond)) {
		t.Errorf("should recompute once RecomputeInterval elapses")
	}
}

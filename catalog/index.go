package catalog

import (
	"log"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxCacheSize is the default capacity of the result-set cache.
const DefaultMaxCacheSize = 100

// SortKey names a field the catalog can be sorted by.
type SortKey string

const (
	SortName         SortKey = "name"
	SortDescription  SortKey = "description"
	SortYear         SortKey = "year"
	SortManufacturer SortKey = "manufacturer"
	SortStatus       SortKey = "status"
	SortPlayCount    SortKey = "play_count"
	SortCategory     SortKey = "category"
)

type sortViewKey struct {
	key SortKey
	asc bool
}

// Index is the precomputed, multi-faceted view over a game set. It is
// built once per catalog load and discarded wholesale on rebuild; readers
// observe it as immutable between rebuilds (single-writer, the Filter
// Pipeline, many readers).
type Index struct {
	All []Game // stable ordered source of truth; every index elsewhere refers into this

	Available  []int
	Missing    []int
	Working    []int
	NotWorking []int
	Parents    []int
	Clones     []int
	CHD        []int
	Favorites  []int

	favoritesSet map[string]bool

	mu        sync.Mutex
	sortViews map[sortViewKey][]int
	cache     *lru.Cache[string, []int]
}

// BuildIndex fills the eight facet lists in a single O(N) pass and memoizes
// nothing eagerly beyond facets; sort views are built lazily on first
// GetSorted.
// Malformed rows (empty Name) are dropped with a diagnostic; construction
// itself never fails.
func BuildIndex(games []Game, favorites map[string]bool) *Index {
	idx := &Index{
		favoritesSet: cloneSet(favorites),
		sortViews:    make(map[sortViewKey][]int),
	}
	cache, _ := lru.New[string, []int](DefaultMaxCacheSize)
	idx.cache = cache

	idx.All = make([]Game, 0, len(games))
	for _, g := range games {
		if g.Name == "" {
			log.Printf("catalog: dropping malformed row with empty name (description=%q)", g.Description)
			continue
		}
		idx.All = append(idx.All, g)
	}

	idx.rebuildFacets()
	return idx
}

func cloneSet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		if v {
			out[k] = true
		}
	}
	return out
}

func (idx *Index) rebuildFacets() {
	idx.Available = idx.Available[:0]
	idx.Missing = idx.Missing[:0]
	idx.Working = idx.Working[:0]
	idx.NotWorking = idx.NotWorking[:0]
	idx.Parents = idx.Parents[:0]
	idx.Clones = idx.Clones[:0]
	idx.CHD = idx.CHD[:0]
	idx.Favorites = idx.Favorites[:0]

	for i := range idx.All {
		g := &idx.All[i]
		switch g.Status {
		case StatusAvailable:
			idx.Available = append(idx.Available, i)
		case StatusMissing:
			idx.Missing = append(idx.Missing, i)
		}
		if g.Working() {
			idx.Working = append(idx.Working, i)
		} else {
			idx.NotWorking = append(idx.NotWorking, i)
		}
		if g.IsClone() {
			idx.Clones = append(idx.Clones, i)
		} else {
			idx.Parents = append(idx.Parents, i)
		}
		if g.RequiresCHD {
			idx.CHD = append(idx.CHD, i)
		}
		if idx.favoritesSet[g.Name] {
			idx.Favorites = append(idx.Favorites, i)
		}
	}
}

// UpdateFavorites rebuilds the favorites facet in O(N) and invalidates the
// result-set cache, since any cached result might depend on favorites.
func (idx *Index) UpdateFavorites(favorites map[string]bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.favoritesSet = cloneSet(favorites)
	idx.Favorites = idx.Favorites[:0]
	for i := range idx.All {
		if idx.favoritesSet[idx.All[i].Name] {
			idx.Favorites = append(idx.Favorites, i)
		}
	}
	idx.invalidateLocked()
}

// InvalidateCache drops every cached result-set entry. Called whenever the
// index is rebuilt, taxonomy changes, favorites change, or any non-search
// filter toggles — fine-grained invalidation is deliberately not attempted
// because search modes cross-cut every field.
func (idx *Index) InvalidateCache() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.invalidateLocked()
}

func (idx *Index) invalidateLocked() {
	idx.cache.Purge()
}

// GetCached returns a previously cached visible list for key, if present
// and not invalidated since.
func (idx *Index) GetCached(key string) ([]int, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	v, ok := idx.cache.Get(key)
	return v, ok
}

// CachePut stores list under key, evicting the least-recently-used entry
// if the cache is at capacity. Updates recency when key already exists.
func (idx *Index) CachePut(key string, list []int) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.cache.Add(key, list)
}

// GetSorted returns an index permutation sorted stably by key, building and
// memoizing the view on first request. Ties break by Name ascending.
func (idx *Index) GetSorted(key SortKey, asc bool) []int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	vk := sortViewKey{key, asc}
	if v, ok := idx.sortViews[vk]; ok {
		return v
	}

	view := make([]int, len(idx.All))
	for i := range view {
		view[i] = i
	}

	cmp := sortCompare(idx.All, key)
	sort.SliceStable(view, func(a, b int) bool {
		ia, ib := view[a], view[b]
		c := cmp(ia, ib, asc)
		if c == 0 {
			return ciCompare(idx.All[ia].Name, idx.All[ib].Name) < 0
		}
		return c < 0
	})

	idx.sortViews[vk] = view
	return view
}

// sortCompare returns a comparator already aware of sort direction, for
// the given key, per the comparison rules in spec.md §4.1:
// name/description/manufacturer/category compare case-insensitively, year
// compares lexicographically with empty years sorting last regardless of
// direction (so year's sentinel handling must happen after the direction
// flip, unlike every other key), play_count compares numerically.
func sortCompare(games []Game, key SortKey) func(a, b int, asc bool) int {
	flip := func(c int, asc bool) int {
		if !asc {
			return -c
		}
		return c
	}
	switch key {
	case SortName:
		return func(a, b int, asc bool) int { return flip(ciCompare(games[a].Name, games[b].Name), asc) }
	case SortDescription:
		return func(a, b int, asc bool) int {
			return flip(ciCompare(games[a].Description, games[b].Description), asc)
		}
	case SortManufacturer:
		return func(a, b int, asc bool) int {
			return flip(ciCompare(games[a].Manufacturer, games[b].Manufacturer), asc)
		}
	case SortCategory:
		return func(a, b int, asc bool) int { return flip(ciCompare(games[a].Category, games[b].Category), asc) }
	case SortYear:
		return func(a, b int, asc bool) int { return yearCompare(games[a].Year, games[b].Year, asc) }
	case SortPlayCount:
		return func(a, b int, asc bool) int { return flip(games[a].PlayCount-games[b].PlayCount, asc) }
	case SortStatus:
		return func(a, b int, asc bool) int {
			return flip(strings.Compare(string(games[a].Status), string(games[b].Status)), asc)
		}
	default:
		return func(a, b int, asc bool) int { return 0 }
	}
}

func ciCompare(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// yearCompare sorts empty years last regardless of direction; non-empty
// years compare lexicographically and do respect direction.
func yearCompare(a, b string, asc bool) int {
	ae, be := a == "", b == ""
	if ae && be {
		return 0
	}
	if ae {
		return 1
	}
	if be {
		return -1
	}
	c := strings.Compare(a, b)
	if !asc {
		return -c
	}
	return c
}

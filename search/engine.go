// Package search implements the composite matcher: a fuzzy strategy, a
// full-text inverted-index strategy, and a regex strategy, merged by
// weighted score.
package search

import (
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/sahilm/fuzzy"

	"github.com/user-none/romcat/catalog"
)

// Mode selects which field(s) a query is matched against.
type Mode string

const (
	ModeGameTitle   Mode = "GameTitle"
	ModeManufacturer Mode = "Manufacturer"
	ModeRomFileName Mode = "RomFileName"
	ModeYear        Mode = "Year"
	ModeStatus      Mode = "Status"
	ModeCpu         Mode = "Cpu"
	ModeDevice      Mode = "Device"
	ModeSound       Mode = "Sound"
	ModeFuzzy       Mode = "FuzzySearch"
	ModeFullText    Mode = "FullText"
	ModeRegex       Mode = "Regex"
)

// Config holds the tunables spec.md names, with its defaults.
type Config struct {
	FuzzyThreshold   int // 0-100, default 30
	MaxFuzzyResults  int // default 100
	EnableFuzzy      bool
	EnableFullText   bool
	EnableRegex      bool
	FullTextLimit    int // default 500
	ParallelThreshold int // row count above which scans run in worker goroutines, default 1000
}

// DefaultConfig matches spec.md §4.3's stated defaults.
func DefaultConfig() Config {
	return Config{
		FuzzyThreshold:    30,
		MaxFuzzyResults:   100,
		EnableFuzzy:       true,
		EnableFullText:    true,
		EnableRegex:       false,
		FullTextLimit:     500,
		ParallelThreshold: 1000,
	}
}

// Engine is the composite search strategy over a fixed game slice. It is
// built once per catalog load (alongside the full-text index) and queried
// many times; it holds no per-query mutable state besides the regex cache.
type Engine struct {
	games  []catalog.Game
	config Config

	fulltextIndex bleve.Index // nil if disabled or build failed

	regexMu    sync.Mutex
	regexCache map[string]*regexp.Regexp
}

// New builds an Engine over games, including the in-memory full-text index
// (±50MB budget) unless disabled or construction fails — in which case the
// full-text strategy silently disables itself, per the FulltextBuildFailure
// disposition in spec.md §7.
func New(games []catalog.Game, config Config) *Engine {
	e := &Engine{
		games:      games,
		config:     config,
		regexCache: make(map[string]*regexp.Regexp),
	}
	if config.EnableFullText {
		e.fulltextIndex = buildFulltextIndex(games)
	}
	return e
}

type fulltextDoc struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Manufacturer string `json:"manufacturer"`
	Year         string `json:"year"`
	Category     string `json:"category"`
	RomName      string `json:"rom_name"`
	Controls     string `json:"controls"`
	Driver       string `json:"driver"`
}

func buildFulltextIndex(games []catalog.Game) bleve.Index {
	mapping := bleve.NewIndexMapping()
	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil
	}
	for i, g := range games {
		doc := fulltextDoc{
			Title:        g.Description,
			Description:  g.Description,
			Manufacturer: g.Manufacturer,
			Year:         g.Year,
			Category:     g.Category,
			RomName:      g.Name,
			Controls:     g.Controls,
			Driver:       g.Driver,
		}
		if err := idx.Index(strconv.Itoa(i), doc); err != nil {
			return nil
		}
	}
	return idx
}

// fieldFor returns the row's text for non-enhanced search modes, which
// restrict comparison to one field. Enhanced modes (Fuzzy/FullText/Regex)
// fall back to Description, matching the upstream convention that those
// modes search across every indexed field via their own strategy rather
// than a single field lookup.
func fieldFor(g *catalog.Game, mode Mode) string {
	switch mode {
	case ModeGameTitle:
		return g.Description
	case ModeManufacturer:
		return g.Manufacturer
	case ModeRomFileName:
		return g.Name
	case ModeYear:
		return g.Year
	case ModeStatus:
		return string(g.Status)
	case ModeCpu:
		return g.Driver
	case ModeDevice:
		return g.Controls
	case ModeSound:
		return g.Category
	default:
		return g.Description
	}
}

// FuzzyResult pairs a row index with its 0-100 fuzzy score.
type FuzzyResult struct {
	Index int
	Score int
}

// FuzzySearch scores every row against query via the field named by mode,
// keeping rows at or above FuzzyThreshold, sorted by score descending and
// truncated to MaxFuzzyResults. Delegates the scan itself to sahilm/fuzzy;
// only the regex strategy's scan splits across ParallelThreshold.
func (e *Engine) FuzzySearch(query string, mode Mode) []FuzzyResult {
	if !e.config.EnableFuzzy || query == "" {
		return nil
	}

	n := len(e.games)
	texts := make([]string, n)
	for i := range e.games {
		texts[i] = fieldFor(&e.games[i], mode)
	}

	matches := fuzzy.Find(query, texts)

	results := make([]FuzzyResult, 0, len(matches))
	for _, m := range matches {
		score := rescaleFuzzyScore(m.Score)
		if score >= e.config.FuzzyThreshold {
			results = append(results, FuzzyResult{Index: m.Index, Score: score})
		}
	}

	sort.SliceStable(results, func(a, b int) bool { return results[a].Score > results[b].Score })
	if len(results) > e.config.MaxFuzzyResults {
		results = results[:e.config.MaxFuzzyResults]
	}
	return results
}

// rescaleFuzzyScore maps sahilm/fuzzy's unbounded integer score onto the
// 0-100 band spec.md assumes from SkimMatcherV2, which is itself bounded.
// The exact curve is not load-bearing (only threshold/ordering are), so a
// simple clamp is sufficient.
func rescaleFuzzyScore(raw int) int {
	if raw < 0 {
		return 0
	}
	if raw > 100 {
		return 100
	}
	return raw
}

// FullTextSearch queries the in-memory index across all indexed fields,
// returning up to FullTextLimit row indices ranked by the library's own
// relevance score. Returns nil if full-text is disabled or unavailable.
func (e *Engine) FullTextSearch(query string) []int {
	if !e.config.EnableFullText || query == "" || e.fulltextIndex == nil {
		return nil
	}

	q := bleve.NewQueryStringQuery(query)
	req := bleve.NewSearchRequest(q)
	req.Size = e.config.FullTextLimit

	result, err := e.fulltextIndex.Search(req)
	if err != nil {
		return nil
	}

	out := make([]int, 0, len(result.Hits))
	for _, hit := range result.Hits {
		idx, err := strconv.Atoi(hit.ID)
		if err != nil {
			continue
		}
		out = append(out, idx)
	}
	return out
}

// shouldUseRegex reports whether pattern looks like an actual regex and
// the global regex switch is on — regex is otherwise disabled by default
// for safety, per spec.md §4.3.
func shouldUseRegex(enabled bool, pattern string) bool {
	if !enabled {
		return false
	}
	return strings.Contains(pattern, ".*") || strings.Contains(pattern, "^") || strings.Contains(pattern, "$")
}

// compileRegex fetches pattern from this Engine's compiled-regex cache,
// compiling and inserting on miss. The cache belongs to the Engine; it is
// not shared with other Engine instances. The exclusive lock covers only the cache map
// operation, not matching, per the no-I/O-under-lock / bounded-critical-
// section rule in spec.md §5.
func (e *Engine) compileRegex(pattern string) (*regexp.Regexp, error) {
	e.regexMu.Lock()
	if re, ok := e.regexCache[pattern]; ok {
		e.regexMu.Unlock()
		return re, nil
	}
	e.regexMu.Unlock()

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	e.regexMu.Lock()
	e.regexCache[pattern] = re
	e.regexMu.Unlock()
	return re, nil
}

// ClearRegexCache empties this Engine's compiled-regex cache.
func (e *Engine) ClearRegexCache() {
	e.regexMu.Lock()
	defer e.regexMu.Unlock()
	e.regexCache = make(map[string]*regexp.Regexp)
}

// RegexSearch matches pattern against every row's mode-selected field. A
// SearchRegexInvalid compile failure is returned to the caller, which per
// spec.md §7 must treat it as non-fatal and pass every row.
func (e *Engine) RegexSearch(pattern string, mode Mode) ([]int, error) {
	if !e.config.EnableRegex || pattern == "" {
		return nil, nil
	}

	re, err := e.compileRegex(pattern)
	if err != nil {
		return nil, err
	}

	n := len(e.games)
	if n <= e.config.ParallelThreshold {
		var out []int
		for i := range e.games {
			if re.MatchString(fieldFor(&e.games[i], mode)) {
				out = append(out, i)
			}
		}
		return out, nil
	}
	return e.parallelRegexScan(re, mode), nil
}

func (e *Engine) parallelRegexScan(re *regexp.Regexp, mode Mode) []int {
	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}
	n := len(e.games)
	chunk := (n + workers - 1) / workers

	results := make([][]int, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if start >= n {
			break
		}
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			var local []int
			for i := start; i < end; i++ {
				if re.MatchString(fieldFor(&e.games[i], mode)) {
					local = append(local, i)
				}
			}
			results[w] = local
		}(w, start, end)
	}
	wg.Wait()

	var out []int
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

// Search runs the enhanced composite search: fuzzy (weight 0.4, score
// normalized to 0-1 first), full-text (flat +0.6), and conditionally
// regex (flat +0.8, only when pattern looks like a regex and the global
// switch is on). Final order is descending combined score, ties broken by
// stable input order. Any individual strategy's failure is skipped, never
// fatal — this method itself never returns an error.
func (e *Engine) Search(query string, mode Mode) []int {
	scores := make(map[int]float64)
	var order []int
	seen := make(map[int]bool)

	add := func(idx int, delta float64) {
		scores[idx] += delta
		if !seen[idx] {
			seen[idx] = true
			order = append(order, idx)
		}
	}

	if e.config.EnableFuzzy {
		for _, r := range e.FuzzySearch(query, mode) {
			add(r.Index, float64(r.Score)/100.0*0.4)
		}
	}

	if e.config.EnableFullText {
		for _, idx := range e.FullTextSearch(query) {
			add(idx, 0.6)
		}
	}

	if shouldUseRegex(e.config.EnableRegex, query) {
		if hits, err := e.RegexSearch(query, mode); err == nil {
			for _, idx := range hits {
				add(idx, 0.8)
			}
		}
	}

	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })
	return order
}

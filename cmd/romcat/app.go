package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ebitenui/ebitenui"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/user-none/romcat/catalog"
	"github.com/user-none/romcat/filter"
	"github.com/user-none/romcat/iconcache"
	"github.com/user-none/romcat/internal/appstorage"
	"github.com/user-none/romcat/jump"
	"github.com/user-none/romcat/loader"
	"github.com/user-none/romcat/search"
	"github.com/user-none/romcat/taxonomy"
	"github.com/user-none/romcat/verify"
)

// appState is the host's own top-level screen state, distinct from the
// loader's internal State machine.
type appState int

const (
	stateLoading appState = iota
	stateLibrary
	stateError
)

// App is the ebiten.Game implementation driving the catalog core. It owns
// nothing about game logic itself; every piece of domain behavior lives in
// the catalog/filter/search/loader/iconcache/verify packages and this file
// only wires them to a frame loop and a widget tree.
type App struct {
	ui *ebitenui.UI

	cfg *appstorage.Config

	state     appState
	errorText string

	index    *catalog.Index
	games    []catalog.Game
	pipeline *filter.Pipeline
	engine   *search.Engine
	tax      *taxonomy.Taxonomy

	ld            *loader.Pipeline
	verifyStore   *verify.Store
	localVerifier *verify.LocalCRC32Runner // nil when an external VerifyCommand is configured

	verifyRefreshPending bool

	icons *iconcache.Cache

	visible      []int
	selectedRow  int
	scrollTarget int

	favorites map[string]bool

	windowWidth, windowHeight int
	lastBuildWidth            int

	libraryScreen *libraryScreen
}

// newApp wires every core package from the persisted configuration, the
// same role the teacher's newApp plays for its emulator-runtime state.
func newApp(cfg *appstorage.Config) *App {
	a := &App{
		cfg:       cfg,
		state:     stateLoading,
		favorites: toSet(cfg.Favorites),
	}

	tax, err := taxonomy.Load(cfg.TaxonomyPath)
	if err != nil {
		log.Printf("taxonomy: %v", err)
	}
	a.tax = tax

	a.icons = iconcache.New(500, iconcache.DefaultResolver(func(name string) string {
		return name + ".png"
	}), nil)

	source := &subprocessMetadataSource{argv: cfg.MetadataCommand}
	var romDirs []loader.RomDirectory
	for _, d := range cfg.RomDirectories {
		romDirs = append(romDirs, loader.RomDirectory{Path: d})
	}
	a.ld = loader.New(source, romDirs, cfg.RomExtensions, tax)

	runner := verifyRunnerFor(cfg)
	if local, ok := runner.(*verify.LocalCRC32Runner); ok {
		a.localVerifier = local
	}
	a.verifyStore = verify.New(runner)

	a.libraryScreen = newLibraryScreen(a)

	return a
}

// expectedCRCs builds the name -> CRC32 map the LocalCRC32Runner fallback
// compares extracted archives against, from the metadata source's per-ROM
// crc attribute.
func expectedCRCs(games []catalog.Game) map[string]uint32 {
	out := make(map[string]uint32, len(games))
	for _, g := range games {
		if g.ExpectedCRC32 != 0 {
			out[g.Name] = g.ExpectedCRC32
		}
	}
	return out
}

func toSet(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

func verifyRunnerFor(cfg *appstorage.Config) verify.Runner {
	if len(cfg.VerifyCommand) > 0 {
		return &subprocessVerifyRunner{argv: cfg.VerifyCommand}
	}
	dir := ""
	if len(cfg.RomDirectories) > 0 {
		dir = cfg.RomDirectories[0]
	}
	return &verify.LocalCRC32Runner{RomDir: dir, Extensions: cfg.RomExtensions}
}

// beginLoad starts the loader pipeline. Called once at startup and again
// whenever the user asks to rescan from the settings surface.
func (a *App) beginLoad() {
	if err := a.ld.Begin(context.Background()); err != nil {
		log.Printf("loader: %v", err)
		return
	}
	a.state = stateLoading
}

// Update advances the frame: drains loader messages, ticks the icon cache
// at the observed frame rate, and dispatches to the UI widget tree.
func (a *App) Update() error {
	for _, m := range a.ld.Drain(64) {
		a.handleLoaderMessage(m)
	}

	if a.verifyRefreshPending {
		a.verifyRefreshPending = false
		a.verifyStore.ApplyResultsToCatalog(a.games)
		a.libraryScreen.refreshRows()
	}

	a.icons.Tick(ebiten.ActualFPS())

	if a.state == stateLibrary {
		a.handleGlobalKeys()
		a.libraryScreen.handleSearchKeys()

		now := time.Now()
		a.pipeline.ProcessPendingSearch(now)
		if a.pipeline.ShouldRecompute(now) {
			a.visible = a.pipeline.Recompute(now)
			a.libraryScreen.refreshRows()
		}
	}

	if a.ui != nil {
		a.ui.Update()
	}
	return nil
}

func (a *App) handleLoaderMessage(m loader.Message) {
	switch m.Kind {
	case loader.MetadataComplete:
		log.Printf("metadata loaded: %d manufacturers", len(m.Manufacturers))
	case loader.MetadataFailed:
		a.state = stateError
		a.errorText = fmt.Sprintf("metadata load failed: %s", m.Text)
	case loader.RomScanFailed:
		a.state = stateError
		a.errorText = fmt.Sprintf("rom scan failed: %s", m.Text)
	case loader.RomScanComplete:
		a.games = m.Games
		a.index = catalog.BuildIndex(a.games, a.favorites)
		a.engine = search.New(a.games, search.DefaultConfig())
		a.pipeline = filter.New(a.index, a.engine, toSet(a.cfg.HiddenCategories))
		a.visible = a.pipeline.Recompute(time.Now())
		a.state = stateLibrary
		if a.localVerifier != nil {
			a.localVerifier.SetExpected(expectedCRCs(a.games))
		}
		a.libraryScreen.refreshRows()
	}
}

// Draw renders the current screen.
func (a *App) Draw(screen *ebiten.Image) {
	if a.ui != nil {
		a.ui.Draw(screen)
	}
}

// Layout reports the logical screen size and rebuilds the widget tree when
// the window width changes, matching the teacher's responsive-rebuild idiom.
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	a.windowWidth, a.windowHeight = outsideWidth, outsideHeight
	if outsideWidth != a.lastBuildWidth {
		a.lastBuildWidth = outsideWidth
		a.rebuildUI()
	}
	return outsideWidth, outsideHeight
}

func (a *App) rebuildUI() {
	root := a.libraryScreen.build(a.windowWidth, a.windowHeight)
	a.ui = &ebitenui.UI{Container: root}
}

// handleGlobalKeys manages the search overlay's activation state and, when
// the overlay is inactive, routes typed characters to the Keyboard Jump
// entry point instead.
func (a *App) handleGlobalKeys() {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		a.libraryScreen.searchActive = false
		a.libraryScreen.searchText = ""
		a.libraryScreen.commitSearchText()
		return
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySlash) && !a.libraryScreen.searchActive {
		a.libraryScreen.searchActive = true
		return
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) && a.libraryScreen.searchActive {
		a.cycleSearchMode()
		return
	}

	if a.libraryScreen.searchActive {
		return
	}

	for _, c := range ebiten.AppendInputChars(nil) {
		a.handleTypedChar(c)
	}
}

var jumpModeOrder = []search.Mode{search.ModeFuzzy, search.ModeFullText, search.ModeRegex}

func (a *App) cycleSearchMode() {
	if a.pipeline == nil {
		return
	}
	cur := a.pipeline.Settings().SearchMode
	next := jumpModeOrder[0]
	for i, m := range jumpModeOrder {
		if m == cur {
			next = jumpModeOrder[(i+1)%len(jumpModeOrder)]
			break
		}
	}
	a.libraryScreen.setSearchMode(next)
}

// handleTypedChar implements the Keyboard Jump entry point: a typed
// printable character jumps the selection to the first matching visible
// row and records a scroll target.
func (a *App) handleTypedChar(ch rune) {
	if a.visible == nil {
		return
	}
	row, target, ok := jump.FindAndScroll(a.visible, a.games, ch, libraryVisibleBand)
	if !ok {
		return
	}
	a.selectedRow = row
	a.scrollTarget = target
	a.libraryScreen.scrollToTarget(target)
}

// startVerification launches the Verification Store's background worker
// over every currently visible rom-set.
func (a *App) startVerification() {
	if a.verifyStore == nil || len(a.visible) == 0 {
		return
	}
	names := make([]string, len(a.visible))
	for i, idx := range a.visible {
		names[i] = a.games[idx].Name
	}
	if err := a.verifyStore.Start(context.Background(), names); err != nil {
		log.Printf("verify: %v", err)
		return
	}
	// Verification runs on a background goroutine; refreshRows touches the
	// widget tree and must only run from Update on the main loop, so we
	// just set a flag here for Update to pick up next tick, mirroring the
	// teacher's rebuildPending idiom.
	go func() {
		a.verifyStore.Wait()
		a.verifyRefreshPending = true
	}()
}

// toggleFavorite flips the favorite flag for name and invalidates the
// favorites facet and result cache.
func (a *App) toggleFavorite(name string) {
	if a.favorites[name] {
		delete(a.favorites, name)
	} else {
		a.favorites[name] = true
	}
	a.index.UpdateFavorites(a.favorites)
	a.visible = a.pipeline.Recompute(time.Now())
	a.libraryScreen.refreshRows()
}

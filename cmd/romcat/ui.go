package main

import (
	"fmt"
	"image/color"
	"time"

	"github.com/ebitenui/ebitenui/widget"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/user-none/romcat/catalog"
	"github.com/user-none/romcat/filter"
	"github.com/user-none/romcat/search"
	"github.com/user-none/romcat/standalone/style"
)

// libraryVisibleBand is the number of rows considered "on screen" for
// prefetch and keyboard-jump scroll-target math.
const libraryVisibleBand = 20

// libraryScreen owns the catalog list view: the toolbar, the scrollable row
// list, and the bottom-left search overlay adapted from the teacher's
// SearchOverlay, generalized to drive the core's filter pipeline rather than
// a single in-memory text match.
type libraryScreen struct {
	app *App

	rowContainer    *widget.Container
	scrollContainer *widget.ScrollContainer
	scrollSlider    *widget.Slider
	statusLabel     *widget.Text

	searchActive bool
	searchText   string
}

func newLibraryScreen(app *App) *libraryScreen {
	return &libraryScreen{app: app}
}

func (s *libraryScreen) build(width, height int) *widget.Container {
	root := widget.NewContainer(
		widget.ContainerOpts.Layout(widget.NewRowLayout(
			widget.RowLayoutOpts.Direction(widget.DirectionVertical),
		)),
	)

	root.AddChild(s.buildToolbar())

	s.rowContainer = widget.NewContainer(
		widget.ContainerOpts.Layout(widget.NewRowLayout(
			widget.RowLayoutOpts.Direction(widget.DirectionVertical),
			widget.RowLayoutOpts.Spacing(style.TinySpacing),
		)),
	)
	scrollContainer, slider, wrapper := style.ScrollableContainer(style.ScrollableOpts{
		Content: s.rowContainer,
	})
	s.scrollContainer = scrollContainer
	s.scrollSlider = slider
	root.AddChild(wrapper.(*widget.Container))

	s.statusLabel = widget.NewText(widget.TextOpts.Text("", style.FontFace(), style.TextSecondary))
	root.AddChild(s.statusLabel)

	s.refreshRows()
	return root
}

func (s *libraryScreen) buildToolbar() *widget.Container {
	toolbar := widget.NewContainer(
		widget.ContainerOpts.Layout(widget.NewRowLayout(
			widget.RowLayoutOpts.Direction(widget.DirectionHorizontal),
			widget.RowLayoutOpts.Spacing(style.SmallSpacing),
		)),
	)

	addFilterToggle := func(label string, get func(*filter.Settings) *bool) {
		settings := s.app.pipeline.Settings()
		btn := style.ToggleButton(label, *get(&settings), func(args *widget.ButtonClickedEventArgs) {
			cur := s.app.pipeline.Settings()
			ptr := get(&cur)
			*ptr = !*ptr
			s.app.pipeline.SetSettings(cur)
			s.refreshRows()
		})
		toolbar.AddChild(btn)
	}

	addFilterToggle("Available", func(st *filter.Settings) *bool { return &st.ShowAvailable })
	addFilterToggle("Parents only", func(st *filter.Settings) *bool { return &st.ShowParentsOnly })
	addFilterToggle("Favorites", func(st *filter.Settings) *bool { return &st.ShowFavorites })
	addFilterToggle("CHD", func(st *filter.Settings) *bool { return &st.ShowCHDGames })

	sortBtn := style.TextButton("Sort: toggle direction", style.ButtonPaddingSmall, func(args *widget.ButtonClickedEventArgs) {
		settings := s.app.pipeline.Settings()
		settings.Ascending = !settings.Ascending
		s.app.pipeline.SetSettings(settings)
		s.refreshRows()
	})
	toolbar.AddChild(sortBtn)

	verifyBtn := style.TextButton("Verify visible", style.ButtonPaddingSmall, func(args *widget.ButtonClickedEventArgs) {
		s.app.startVerification()
	})
	toolbar.AddChild(verifyBtn)

	return toolbar
}

// refreshRows rebuilds the visible row list from the pipeline's current
// output, and feeds the icon cache's prefetch for the newly visible band.
func (s *libraryScreen) refreshRows() {
	if s.rowContainer == nil {
		return
	}
	s.rowContainer.RemoveChildren()

	visible := s.app.visible
	games := s.app.games

	names := make([]string, len(visible))
	for i, idx := range visible {
		names[i] = games[idx].Name
	}
	band := libraryVisibleBand
	if band > len(names) {
		band = len(names)
	}
	s.app.icons.Prefetch(names, 0, band, libraryVisibleBand/2)

	for _, idx := range visible {
		g := &games[idx]
		s.rowContainer.AddChild(s.buildRow(g))
	}

	if s.statusLabel != nil {
		s.statusLabel.Label = fmt.Sprintf("%d roms", len(visible))
	}
}

func (s *libraryScreen) buildRow(g *catalog.Game) *widget.Container {
	c := widget.NewContainer(
		widget.ContainerOpts.Layout(widget.NewRowLayout(
			widget.RowLayoutOpts.Direction(widget.DirectionHorizontal),
			widget.RowLayoutOpts.Spacing(style.SmallSpacing),
		)),
	)

	favLabel := "-"
	if s.app.favorites[g.Name] {
		favLabel = "*"
	}
	c.AddChild(style.TextButton(favLabel, style.ButtonPaddingSmall, func(args *widget.ButtonClickedEventArgs) {
		s.app.toggleFavorite(g.Name)
	}))
	c.AddChild(style.TextButton("copy", style.ButtonPaddingSmall, func(args *widget.ButtonClickedEventArgs) {
		copyRomNameToClipboard(g.Name)
	}))

	c.AddChild(widget.NewText(widget.TextOpts.Text(g.Description, style.FontFace(), statusColor(g))))
	c.AddChild(widget.NewText(widget.TextOpts.Text(g.Category, style.FontFace(), style.TextSecondary)))
	c.AddChild(widget.NewText(widget.TextOpts.Text(string(g.VerificationStatus), style.FontFace(), style.TextSecondary)))

	return c
}

func statusColor(g *catalog.Game) color.Color {
	if g.Status == catalog.StatusAvailable {
		return style.Text
	}
	return style.TextSecondary
}

// handleSearchKeys processes the raw keyboard input that drives the bottom
// search overlay while it is active, the same "no text-input widget,
// capture AppendInputChars directly" idiom as the teacher's SearchOverlay.
func (s *libraryScreen) handleSearchKeys() {
	if !s.searchActive {
		return
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) && len(s.searchText) > 0 {
		s.searchText = s.searchText[:len(s.searchText)-1]
		s.commitSearchText()
		return
	}

	chars := ebiten.AppendInputChars(nil)
	for _, c := range chars {
		if c == '/' && s.searchText == "" {
			continue
		}
		s.searchText += string(c)
	}
	if len(chars) > 0 {
		s.commitSearchText()
	}
}

func (s *libraryScreen) commitSearchText() {
	if s.app.pipeline == nil {
		return
	}
	s.app.pipeline.HandleSearchInput(s.searchText, time.Now())
}

func (s *libraryScreen) setSearchMode(mode search.Mode) {
	if s.app.pipeline == nil {
		return
	}
	settings := s.app.pipeline.Settings()
	settings.SearchMode = mode
	s.app.pipeline.SetSettings(settings)
}

// scrollToTarget positions the scroll container at the row index target,
// expressed as a fraction of total rows, matching the teacher's
// ScrollTop-as-fraction idiom (vSlider.Current is always on a fixed 0-1000
// scale regardless of content height).
func (s *libraryScreen) scrollToTarget(target int) {
	if s.scrollContainer == nil || s.scrollSlider == nil {
		return
	}
	total := len(s.app.visible)
	if total == 0 {
		return
	}
	frac := float64(target) / float64(total)
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	s.scrollContainer.ScrollTop = frac
	s.scrollSlider.Current = int(frac * 1000)
}

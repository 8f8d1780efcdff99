// Command romcat is the host binary: an ebiten/ebitenui list UI driving the
// catalog core. It owns no domain logic of its own — everything testable
// lives in the catalog/filter/search/loader/iconcache/verify packages; this
// binary only wires those packages to a frame loop, a directory picker, and
// the system clipboard.
package main

import (
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/sqweek/dialog"
	"golang.design/x/clipboard"

	"github.com/user-none/romcat/internal/appstorage"
)

func main() {
	cfg, err := appstorage.Load()
	if err != nil {
		log.Fatalf("romcat: failed to load configuration: %v", err)
	}

	if err := clipboard.Init(); err != nil {
		log.Printf("romcat: clipboard unavailable: %v", err)
	}

	if len(cfg.RomDirectories) == 0 {
		if dir, err := promptForRomDirectory(); err == nil {
			cfg.RomDirectories = []string{dir}
			if err := appstorage.Save(cfg); err != nil {
				log.Printf("romcat: failed to save configuration: %v", err)
			}
		}
	}

	ebiten.SetWindowTitle("romcat")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)

	app := newApp(cfg)
	app.beginLoad()

	if err := ebiten.RunGame(app); err != nil {
		log.Fatalf("romcat: %v", err)
	}

	app.saveWindowState()
}

// promptForRomDirectory shows a native directory picker when no rom
// directory is configured yet, the host's own onboarding step; the core
// itself has no notion of "first run".
func promptForRomDirectory() (string, error) {
	return dialog.Directory().Title("Select ROM directory").Browse()
}

// copyRomNameToClipboard implements the "copy rom name" action behind each
// row's "copy" button.
func copyRomNameToClipboard(name string) {
	clipboard.Write(clipboard.FmtText, []byte(name))
}

func (a *App) saveWindowState() {
	a.cfg.Window.Width = a.windowWidth
	a.cfg.Window.Height = a.windowHeight
	a.cfg.Favorites = favoritesList(a.favorites)
	if err := appstorage.Save(a.cfg); err != nil {
		log.Printf("romcat: failed to save configuration: %v", err)
	}
}

func favoritesList(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	return out
}

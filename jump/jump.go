// Package jump implements keyboard-jump: typing a printable character
// moves the selection to the first visible row whose description starts
// with that character.
package jump

import (
	"strings"

	"github.com/user-none/romcat/catalog"
)

// FindAndScroll returns the position within visible of the first row
// whose description begins with ch (case-insensitive), and a scroll
// target equal to that position minus half the visible band, clamped to
// [0, len(visible)-band). ok is false if no row matches.
func FindAndScroll(visible []int, games []catalog.Game, ch rune, band int) (row, scrollTarget int, ok bool) {
	want := strings.ToLower(string(ch))

	for i, idx := range visible {
		desc := games[idx].Description
		if desc == "" {
			continue
		}
		if strings.ToLower(desc[:1]) == want {
			row = i
			ok = true
			break
		}
	}
	if !ok {
		return 0, 0, false
	}

	scrollTarget = row - band/2
	if scrollTarget < 0 {
		scrollTarget = 0
	}
	maxScroll := len(visible) - band
	if maxScroll < 0 {
		maxScroll = 0
	}
	if scrollTarget > maxScroll {
		scrollTarget = maxScroll
	}

	return row, scrollTarget, true
}

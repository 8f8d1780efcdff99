//go:build !libretro

package style

// Layout spacing used by the library screen's toolbar, row list, and buttons.
const (
	TinySpacing        = 4
	SmallSpacing       = 8
	ButtonPaddingSmall = 8
)

package domain

// Screen identifies one of the three mutually exclusive top-level views.
type Screen string

const (
	ScreenProfile  Screen = "profile"
	ScreenDiscover Screen = "discover"
	ScreenChat     Screen = "chat"
)

// Valid reports whether s names a known screen.
func (s Screen) Valid() bool {
	switch s {
	case ScreenProfile, ScreenDiscover, ScreenChat:
		return true
	}
	return false
}

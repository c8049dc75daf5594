package session

// Size is a width/height pair in pixels.
type Size struct {
	Width  int
	Height int
}

// IsZero reports whether both dimensions are zero.
func (s Size) IsZero() bool {
	return s.Width == 0 && s.Height == 0
}

// ScreenIdiom selects a preset device geometry.
type ScreenIdiom int

const (
	ScreenIdiomIPhone5 ScreenIdiom = iota
	ScreenIdiomIPhone4
	ScreenIdiomIPhone6
	ScreenIdiomIPhone6Plus
)

// Geometry is the screen and maximum video size reported to the service.
type Geometry struct {
	ScreenSize   Size
	MaxVideoSize Size
}

// GeometryFor returns the preset geometry of idiom. Unknown idioms fall back
// to ScreenIdiomIPhone5.
func GeometryFor(idiom ScreenIdiom) Geometry {
	var screen Size
	switch idiom {
	case ScreenIdiomIPhone4:
		screen = Size{Width: 640, Height: 960}
	case ScreenIdiomIPhone6:
		screen = Size{Width: 750, Height: 1334}
	case ScreenIdiomIPhone6Plus:
		screen = Size{Width: 1080, Height: 1920}
	default:
		screen = Size{Width: 640, Height: 1136}
	}
	return Geometry{ScreenSize: screen, MaxVideoSize: screen}
}

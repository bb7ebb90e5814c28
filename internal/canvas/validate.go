package canvas

import (
	"math"
	"regexp"
	"strings"
)

// Coordinates outside this range are rejected on ingress
const (
	MinCoordinate = -10000
	MaxCoordinate = 10000

	MinStrokeWidth = 1
	MaxStrokeWidth = 50

	MaxItemIDLength = 50
	MaxFontSize     = 500
)

var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ValidCoordinate reports whether v is a finite number inside the canvas bounds.
func ValidCoordinate(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) &&
		v >= MinCoordinate && v <= MaxCoordinate
}

// ValidPoint reports whether both coordinates are finite and in range.
func ValidPoint(p Point) bool {
	return ValidCoordinate(p.X) && ValidCoordinate(p.Y)
}

// ValidColor reports whether c is a #RRGGBB hex string.
func ValidColor(c string) bool {
	return hexColorPattern.MatchString(c)
}

// ValidItemID reports whether id is usable as a drawable identifier.
func ValidItemID(id string) bool {
	return id != "" && len(id) < MaxItemIDLength
}

// ValidStrokeStart checks every field of an incoming stroke-start payload.
// Callers drop the event silently on failure; malformed input must never
// reach the shared document.
func ValidStrokeStart(id string, x, y float64, color string, width float64, tool Tool) bool {
	if !ValidItemID(id) {
		return false
	}
	if !ValidCoordinate(x) || !ValidCoordinate(y) {
		return false
	}
	if !ValidColor(color) {
		return false
	}
	if width < MinStrokeWidth || width > MaxStrokeWidth {
		return false
	}
	return tool == ToolBrush || tool == ToolEraser
}

// ValidShape checks an incoming shape payload. UserID and Timestamp are
// ignored here; the store overwrites both at commit time.
func ValidShape(s *Shape) bool {
	if s == nil || !ValidItemID(s.ID) {
		return false
	}
	switch s.Kind {
	case ShapeRectangle, ShapeCircle, ShapeLine:
	default:
		return false
	}
	if !ValidPoint(s.StartPoint) || !ValidPoint(s.EndPoint) {
		return false
	}
	if !ValidColor(s.Color) {
		return false
	}
	return s.Width >= MinStrokeWidth && s.Width <= MaxStrokeWidth
}

// ValidText checks an incoming text payload. Text must be non-empty after
// trimming; UserID and Timestamp are overwritten at commit time.
func ValidText(t *TextElement) bool {
	if t == nil || !ValidItemID(t.ID) {
		return false
	}
	if strings.TrimSpace(t.Text) == "" {
		return false
	}
	if !ValidPoint(t.Position) {
		return false
	}
	if !ValidColor(t.Color) {
		return false
	}
	return t.FontSize > 0 && t.FontSize <= MaxFontSize
}

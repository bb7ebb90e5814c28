package canvas

// A single coordinate on the shared canvas
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Drawing tools that produce freehand strokes
type Tool string

const (
	ToolBrush  Tool = "brush"
	ToolEraser Tool = "eraser"
)

// Shape kinds that can be committed atomically
type ShapeKind string

const (
	ShapeRectangle ShapeKind = "rectangle"
	ShapeCircle    ShapeKind = "circle"
	ShapeLine      ShapeKind = "line"
)

// A freehand stroke. Mutable only while active; immutable once finalized.
type Stroke struct {
	ID        string  `json:"id"`
	Points    []Point `json:"points"`
	Color     string  `json:"color"`
	Width     float64 `json:"width"`
	Tool      Tool    `json:"tool"`
	UserID    string  `json:"userId"`
	Timestamp int64   `json:"timestamp"`
}

// A geometric shape, committed in a single event
type Shape struct {
	ID         string    `json:"id"`
	Kind       ShapeKind `json:"type"`
	StartPoint Point     `json:"startPoint"`
	EndPoint   Point     `json:"endPoint"`
	Color      string    `json:"color"`
	Width      float64   `json:"width"`
	Filled     bool      `json:"filled"`
	UserID     string    `json:"userId"`
	Timestamp  int64     `json:"timestamp"`
}

// A placed piece of text
type TextElement struct {
	ID        string  `json:"id"`
	Position  Point   `json:"position"`
	Text      string  `json:"text"`
	Color     string  `json:"color"`
	FontSize  float64 `json:"fontSize"`
	UserID    string  `json:"userId"`
	Timestamp int64   `json:"timestamp"`
}

// A connected participant in a room
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Cursor Point  `json:"cursor"`
	RoomID string `json:"roomId"`
}

// ItemKind tags an undone drawable so redo never has to guess the type
// from which fields happen to be present.
type ItemKind string

const (
	KindStroke ItemKind = "stroke"
	KindShape  ItemKind = "shape"
	KindText   ItemKind = "text"
)

// Item is a tagged reference to a single committed drawable. Exactly one
// of the pointers is non-nil, matching Kind.
type Item struct {
	Kind   ItemKind     `json:"kind"`
	Stroke *Stroke      `json:"stroke,omitempty"`
	Shape  *Shape       `json:"shape,omitempty"`
	Text   *TextElement `json:"text,omitempty"`
}

// Timestamp of the underlying drawable, or 0 if the item is malformed
func (it Item) Timestamp() int64 {
	switch it.Kind {
	case KindStroke:
		if it.Stroke != nil {
			return it.Stroke.Timestamp
		}
	case KindShape:
		if it.Shape != nil {
			return it.Shape.Timestamp
		}
	case KindText:
		if it.Text != nil {
			return it.Text.Timestamp
		}
	}
	return 0
}

// PageState is the broadcastable view of a room's committed drawables.
type PageState struct {
	Strokes      []*Stroke      `json:"strokes"`
	Shapes       []*Shape       `json:"shapes"`
	TextElements []*TextElement `json:"textElements"`
}

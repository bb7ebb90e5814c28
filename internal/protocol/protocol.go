// Package protocol defines the named events and payload shapes exchanged
// between the server and drawing clients over a persistent WebSocket
// connection. Every frame is a JSON envelope: {"event": ..., "data": ...}.
package protocol

import (
	"encoding/json"

	"github.com/sketchroom/backend/internal/canvas"
)

// Client-to-server events
const (
	EventStrokeStart  = "stroke:start"
	EventStrokeMove   = "stroke:move"
	EventStrokeEnd    = "stroke:end"
	EventShapeAdd     = "shape:add"
	EventTextAdd      = "text:add"
	EventCursorMove   = "cursor:move"
	EventUndo         = "undo"
	EventRedo         = "redo"
	EventCanvasClear  = "canvas:clear"
	EventRoomJoin     = "room:join"
	EventStateRequest = "state:request"
	EventPing         = "ping"
)

// Server-to-client events
const (
	EventStrokeBroadcast    = "stroke:broadcast"
	EventStrokeMoveBcast    = "stroke:move:broadcast"
	EventStrokeEndBcast     = "stroke:end:broadcast"
	EventShapeBroadcast     = "shape:broadcast"
	EventTextBroadcast      = "text:broadcast"
	EventCursorUpdate       = "cursor:update"
	EventUndoRedoBroadcast  = "undo:redo:broadcast"
	EventStateFull          = "state:full"
	EventUsersList          = "users:list"
	EventUserJoined         = "user:joined"
	EventUserLeft           = "user:left"
	EventRoomJoined         = "room:joined"
	EventRoomError          = "room:error"
	EventPong               = "pong"
)

// Resync actions carried by undo:redo:broadcast
const (
	ActionUndo    = "undo"
	ActionRedo    = "redo"
	ActionClear   = "clear"
	ActionRestore = "restore"
)

// Envelope frames every message on the wire.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode marshals an event and payload into a wire frame.
func Encode(event string, data any) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

type StrokeStart struct {
	StrokeID string  `json:"strokeId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Color    string  `json:"color"`
	Width    float64 `json:"width"`
	Tool     string  `json:"tool"`
}

type StrokeBroadcast struct {
	Stroke *canvas.Stroke `json:"stroke"`
}

type StrokeMove struct {
	StrokeID string  `json:"strokeId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

type StrokeMoveBroadcast struct {
	StrokeID string  `json:"strokeId"`
	UserID   string  `json:"userId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

type StrokeEnd struct {
	StrokeID string `json:"strokeId"`
}

type StrokeEndBroadcast struct {
	StrokeID string `json:"strokeId"`
	UserID   string `json:"userId"`
}

type ShapeAdd struct {
	Shape *canvas.Shape `json:"shape"`
}

type TextAdd struct {
	Text *canvas.TextElement `json:"text"`
}

type CursorMove struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type CursorUpdate struct {
	UserID string  `json:"userId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Color  string  `json:"color"`
	Name   string  `json:"name"`
}

// UndoRedoBroadcast resynchronizes the whole room after undo, redo, clear
// or restore. Unlike per-item broadcasts it goes to every socket in the
// room, sender included.
type UndoRedoBroadcast struct {
	Strokes      []*canvas.Stroke      `json:"strokes"`
	Shapes       []*canvas.Shape       `json:"shapes"`
	TextElements []*canvas.TextElement `json:"textElements"`
	Action       string                `json:"action"`
}

type FullState struct {
	Strokes      []*canvas.Stroke      `json:"strokes"`
	Shapes       []*canvas.Shape       `json:"shapes"`
	TextElements []*canvas.TextElement `json:"textElements"`
}

type UsersList struct {
	Users       []*canvas.User `json:"users"`
	CurrentUser *canvas.User   `json:"currentUser"`
}

type UserJoined struct {
	User *canvas.User `json:"user"`
}

type UserLeft struct {
	UserID string `json:"userId"`
}

type RoomJoin struct {
	RoomID string `json:"roomId"`
}

type RoomJoined struct {
	RoomID string `json:"roomId"`
}

type RoomError struct {
	Error string `json:"error"`
}

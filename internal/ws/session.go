package ws

import (
	"encoding/json"
	"log/slog"

	"github.com/sketchroom/backend/internal/canvas"
	"github.com/sketchroom/backend/internal/protocol"
	"github.com/sketchroom/backend/internal/room"
)

// handleConnect assigns the new session to the default room, hands it the
// roster and the full document, and announces it to the rest of the room.
func (h *Hub) handleConnect(c *Client) {
	doc := h.registry.Join(c.id, room.DefaultRoom, c.user)
	h.addToRoom(c, room.DefaultRoom)

	h.sendTo(c, protocol.EventUsersList, protocol.UsersList{
		Users:       doc.Users(),
		CurrentUser: c.user,
	})
	h.sendFullState(c, doc)
	h.broadcastRoom(room.DefaultRoom, c, protocol.EventUserJoined, protocol.UserJoined{User: c.user})

	slog.Info("user joined", "client", c.id, "name", c.user.Name, "room", room.DefaultRoom, "users", doc.UserCount())
}

// handleDisconnect finalizes any in-progress strokes the session owns and
// announces the departure. A partial stroke is committed, never dropped.
func (h *Hub) handleDisconnect(c *Client) {
	h.removeFromRoom(c, c.roomID)
	c.closeSend()

	roomID, _, user, finalized := h.registry.Remove(c.id)
	for _, s := range finalized {
		h.broadcastRoom(roomID, nil, protocol.EventStrokeEndBcast, protocol.StrokeEndBroadcast{
			StrokeID: s.ID,
			UserID:   c.id,
		})
	}
	if user != nil {
		h.broadcastRoom(roomID, nil, protocol.EventUserLeft, protocol.UserLeft{UserID: c.id})
		slog.Info("user left", "client", c.id, "name", user.Name, "room", roomID)
	}
}

// handleEvent dispatches one inbound client event. A panicking handler is
// logged and the connection kept alive; one bad operation must not tear
// down the session or touch other rooms.
func (h *Hub) handleEvent(c *Client, env protocol.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("handler panic", "event", env.Event, "client", c.id, "panic", r)
		}
	}()

	switch env.Event {
	case protocol.EventStrokeStart:
		h.handleStrokeStart(c, env.Data)
	case protocol.EventStrokeMove:
		h.handleStrokeMove(c, env.Data)
	case protocol.EventStrokeEnd:
		h.handleStrokeEnd(c, env.Data)
	case protocol.EventShapeAdd:
		h.handleShapeAdd(c, env.Data)
	case protocol.EventTextAdd:
		h.handleTextAdd(c, env.Data)
	case protocol.EventCursorMove:
		h.handleCursorMove(c, env.Data)
	case protocol.EventUndo:
		h.handleUndo(c)
	case protocol.EventRedo:
		h.handleRedo(c)
	case protocol.EventCanvasClear:
		h.handleClear(c)
	case protocol.EventRoomJoin:
		h.handleRoomJoin(c, env.Data)
	case protocol.EventStateRequest:
		h.sendFullState(c, h.registry.DocumentOf(c.id))
	case protocol.EventPing:
		h.sendTo(c, protocol.EventPong, nil)
	default:
		// Unknown events are ignored.
	}
}

func (h *Hub) sendFullState(c *Client, doc *canvas.Document) {
	st := doc.PageState()
	h.sendTo(c, protocol.EventStateFull, protocol.FullState{
		Strokes:      st.Strokes,
		Shapes:       st.Shapes,
		TextElements: st.TextElements,
	})
}

func (h *Hub) handleStrokeStart(c *Client, data json.RawMessage) {
	var p protocol.StrokeStart
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	if !canvas.ValidStrokeStart(p.StrokeID, p.X, p.Y, p.Color, p.Width, canvas.Tool(p.Tool)) {
		return
	}

	stroke := &canvas.Stroke{
		ID:     p.StrokeID,
		Points: []canvas.Point{{X: p.X, Y: p.Y}},
		Color:  p.Color,
		Width:  p.Width,
		Tool:   canvas.Tool(p.Tool),
		UserID: c.id,
	}

	doc := h.registry.DocumentOf(c.id)
	if !doc.StartStroke(stroke) {
		return
	}

	h.broadcastRoom(c.roomID, c, protocol.EventStrokeBroadcast, protocol.StrokeBroadcast{Stroke: stroke})
}

func (h *Hub) handleStrokeMove(c *Client, data json.RawMessage) {
	var p protocol.StrokeMove
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	if !canvas.ValidItemID(p.StrokeID) || !canvas.ValidPoint(canvas.Point{X: p.X, Y: p.Y}) {
		return
	}

	doc := h.registry.DocumentOf(c.id)
	if !doc.AppendPoint(p.StrokeID, canvas.Point{X: p.X, Y: p.Y}, c.id) {
		return
	}

	h.broadcastRoom(c.roomID, c, protocol.EventStrokeMoveBcast, protocol.StrokeMoveBroadcast{
		StrokeID: p.StrokeID,
		UserID:   c.id,
		X:        p.X,
		Y:        p.Y,
	})
}

func (h *Hub) handleStrokeEnd(c *Client, data json.RawMessage) {
	var p protocol.StrokeEnd
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}

	doc := h.registry.DocumentOf(c.id)
	if doc.FinalizeStroke(p.StrokeID, c.id) == nil {
		return
	}

	h.broadcastRoom(c.roomID, c, protocol.EventStrokeEndBcast, protocol.StrokeEndBroadcast{
		StrokeID: p.StrokeID,
		UserID:   c.id,
	})
}

func (h *Hub) handleShapeAdd(c *Client, data json.RawMessage) {
	var p protocol.ShapeAdd
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	if !canvas.ValidShape(p.Shape) {
		return
	}

	// Ownership and timestamp come from the store, never the client.
	doc := h.registry.DocumentOf(c.id)
	doc.CommitShape(p.Shape, c.id)

	h.broadcastRoom(c.roomID, c, protocol.EventShapeBroadcast, protocol.ShapeAdd{Shape: p.Shape})
}

func (h *Hub) handleTextAdd(c *Client, data json.RawMessage) {
	var p protocol.TextAdd
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	if !canvas.ValidText(p.Text) {
		return
	}

	doc := h.registry.DocumentOf(c.id)
	doc.CommitText(p.Text, c.id)

	h.broadcastRoom(c.roomID, c, protocol.EventTextBroadcast, protocol.TextAdd{Text: p.Text})
}

func (h *Hub) handleCursorMove(c *Client, data json.RawMessage) {
	var p protocol.CursorMove
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	pt := canvas.Point{X: p.X, Y: p.Y}
	if !canvas.ValidPoint(pt) {
		return
	}

	doc := h.registry.DocumentOf(c.id)
	user := doc.SetCursor(c.id, pt)
	if user == nil {
		return
	}

	h.broadcastRoom(c.roomID, c, protocol.EventCursorUpdate, protocol.CursorUpdate{
		UserID: c.id,
		X:      pt.X,
		Y:      pt.Y,
		Color:  user.Color,
		Name:   user.Name,
	})
}

// Undo and redo resync the whole room, sender included: the caller's local
// optimistic state is not authoritative for a global history operation.
func (h *Hub) handleUndo(c *Client) {
	doc := h.registry.DocumentOf(c.id)
	st, ok := doc.Undo()
	if !ok {
		return
	}
	h.broadcastResync(c.roomID, st, protocol.ActionUndo)
	slog.Debug("undo performed", "room", c.roomID, "client", c.id)
}

func (h *Hub) handleRedo(c *Client) {
	doc := h.registry.DocumentOf(c.id)
	st, ok := doc.Redo()
	if !ok {
		return
	}
	h.broadcastResync(c.roomID, st, protocol.ActionRedo)
	slog.Debug("redo performed", "room", c.roomID, "client", c.id)
}

func (h *Hub) handleClear(c *Client) {
	doc := h.registry.DocumentOf(c.id)
	doc.Clear()
	h.broadcastResync(c.roomID, doc.PageState(), protocol.ActionClear)
	slog.Info("canvas cleared", "room", c.roomID, "client", c.id)
}

func (h *Hub) broadcastResync(roomID string, st canvas.PageState, action string) {
	h.broadcastRoom(roomID, nil, protocol.EventUndoRedoBroadcast, protocol.UndoRedoBroadcast{
		Strokes:      st.Strokes,
		Shapes:       st.Shapes,
		TextElements: st.TextElements,
		Action:       action,
	})
}

// handleRoomJoin moves the session to another room. A bad room id is the
// one client mistake that gets an explicit error reply.
func (h *Hub) handleRoomJoin(c *Client, data json.RawMessage) {
	var p protocol.RoomJoin
	if err := json.Unmarshal(data, &p); err != nil {
		h.sendTo(c, protocol.EventRoomError, protocol.RoomError{Error: "Invalid room ID"})
		return
	}
	newRoomID, err := room.NormalizeRoomID(p.RoomID)
	if err != nil {
		h.sendTo(c, protocol.EventRoomError, protocol.RoomError{Error: "Invalid room ID"})
		return
	}

	oldRoomID, finalized, newDoc := h.registry.Move(c.id, newRoomID, c.user)

	h.removeFromRoom(c, oldRoomID)
	for _, s := range finalized {
		h.broadcastRoom(oldRoomID, nil, protocol.EventStrokeEndBcast, protocol.StrokeEndBroadcast{
			StrokeID: s.ID,
			UserID:   c.id,
		})
	}
	h.broadcastRoom(oldRoomID, nil, protocol.EventUserLeft, protocol.UserLeft{UserID: c.id})

	c.roomID = newRoomID
	h.addToRoom(c, newRoomID)

	h.sendTo(c, protocol.EventUsersList, protocol.UsersList{
		Users:       newDoc.Users(),
		CurrentUser: c.user,
	})
	h.sendFullState(c, newDoc)
	h.sendTo(c, protocol.EventRoomJoined, protocol.RoomJoined{RoomID: newRoomID})
	h.broadcastRoom(newRoomID, c, protocol.EventUserJoined, protocol.UserJoined{User: c.user})

	slog.Info("user changed room", "client", c.id, "name", c.user.Name, "from", oldRoomID, "to", newRoomID)
}

package ws

import (
	"log/slog"
	"sync"

	"github.com/sketchroom/backend/internal/protocol"
	"github.com/sketchroom/backend/internal/room"
)

// Hub owns every connected client and runs the single event loop that
// serializes all document mutations. Each inbound event is handled as one
// atomic step: no two handlers ever interleave on the same room.
type Hub struct {
	registry *room.Registry

	// Register requests from new connections
	register chan *Client

	// Unregister requests from closing connections
	unregister chan *Client

	// Decoded events from client read pumps
	inbound chan inboundEvent

	// Resync requests from the ops surface
	resync chan resyncRequest

	// Fan-out sets by room, guarded for reads from the ops surface
	mu    sync.RWMutex
	rooms map[string]map[*Client]bool
}

type inboundEvent struct {
	client *Client
	env    protocol.Envelope
}

type resyncRequest struct {
	roomID string
	action string
}

func NewHub(registry *room.Registry) *Hub {
	return &Hub{
		registry:   registry,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundEvent),
		resync:     make(chan resyncRequest),
		rooms:      make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.handleConnect(client)

		case client := <-h.unregister:
			h.handleDisconnect(client)

		case ev := <-h.inbound:
			h.handleEvent(ev.client, ev.env)

		case req := <-h.resync:
			h.handleResync(req)
		}
	}
}

// Registry exposes the room registry for the ops surface.
func (h *Hub) Registry() *room.Registry {
	return h.registry
}

func (h *Hub) addToRoom(c *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][c] = true
}

// removeFromRoom drops c from its room's fan-out set. Returns false if the
// client was already gone, which means its send channel is already closed.
func (h *Hub) removeFromRoom(c *Client, roomID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := clients[c]; !ok {
		return false
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.rooms, roomID)
	}
	return true
}

// sendTo delivers one event to a single client. A client whose send buffer
// is full is dropped rather than allowed to stall the loop.
func (h *Hub) sendTo(c *Client, event string, data any) {
	frame, err := protocol.Encode(event, data)
	if err != nil {
		slog.Error("encode frame", "event", event, "error", err)
		return
	}
	h.deliver(c, frame)
}

func (h *Hub) deliver(c *Client, frame []byte) {
	if c.trySend(frame) {
		return
	}
	if h.removeFromRoom(c, c.roomID) {
		c.closeSend()
		slog.Warn("dropping slow client", "client", c.id, "room", c.roomID)
	}
}

// broadcastRoom sends one event to every client in a room. exclude is
// normally the sender, which already has local optimistic state; pass nil
// for full resyncs that must reach everyone.
func (h *Hub) broadcastRoom(roomID string, exclude *Client, event string, data any) {
	frame, err := protocol.Encode(event, data)
	if err != nil {
		slog.Error("encode frame", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		if c != exclude {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.deliver(c, frame)
	}
}

// ResyncRoom asks the event loop to push the room's full document to every
// member. The snapshot restore path calls this from an API goroutine after
// rewriting a document; the fan-out itself runs on the loop so it
// serializes with every other send and disconnect.
func (h *Hub) ResyncRoom(roomID, action string) {
	h.resync <- resyncRequest{roomID: roomID, action: action}
}

func (h *Hub) handleResync(req resyncRequest) {
	doc, ok := h.registry.Lookup(req.roomID)
	if !ok {
		return
	}
	st := doc.PageState()
	h.broadcastRoom(req.roomID, nil, protocol.EventUndoRedoBroadcast, protocol.UndoRedoBroadcast{
		Strokes:      st.Strokes,
		Shapes:       st.Shapes,
		TextElements: st.TextElements,
		Action:       req.action,
	})
}

// GetClientCount reports the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, clients := range h.rooms {
		total += len(clients)
	}
	return total
}

// GetRoomCount reports the number of rooms with at least one connection.
func (h *Hub) GetRoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// GetActiveRooms maps room ids to their connection counts.
func (h *Hub) GetActiveRooms() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	active := make(map[string]int, len(h.rooms))
	for roomID, clients := range h.rooms {
		active[roomID] = len(clients)
	}
	return active
}

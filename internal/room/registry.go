package room

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/sketchroom/backend/internal/canvas"
)

// DefaultRoom is where every session lands on connect. It is never
// garbage collected.
const DefaultRoom = "default"

// MaxRoomIDLength bounds client-chosen room identifiers.
const MaxRoomIDLength = 20

var ErrInvalidRoomID = errors.New("invalid room id")

// NormalizeRoomID trims a client-supplied room id and rejects empty or
// over-long values. The length limit counts runes, not bytes.
func NormalizeRoomID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" || utf8.RuneCountInString(id) > MaxRoomIDLength {
		return "", ErrInvalidRoomID
	}
	return id, nil
}

// Registry owns the room map and the session-to-room assignment. Rooms are
// created lazily on first reference and deleted once empty, except the
// default room.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*canvas.Document
	sessions map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[string]*canvas.Document),
		sessions: make(map[string]string),
	}
}

// GetOrCreate returns the document for roomID, creating an empty one on
// first reference. Idempotent.
func (r *Registry) GetOrCreate(roomID string) *canvas.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateLocked(roomID)
}

func (r *Registry) getOrCreateLocked(roomID string) *canvas.Document {
	doc, ok := r.rooms[roomID]
	if !ok {
		doc = canvas.NewDocument()
		r.rooms[roomID] = doc
		slog.Info("room created", "room", roomID)
	}
	return doc
}

// RoomOf returns the room a session is assigned to, falling back to the
// default room for unknown sessions.
func (r *Registry) RoomOf(sessionID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if roomID, ok := r.sessions[sessionID]; ok {
		return roomID
	}
	return DefaultRoom
}

// DocumentOf resolves a session to its room's document, creating the room
// if needed.
func (r *Registry) DocumentOf(sessionID string) *canvas.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	roomID, ok := r.sessions[sessionID]
	if !ok {
		roomID = DefaultRoom
	}
	return r.getOrCreateLocked(roomID)
}

// Join assigns a session to a room and registers the user in its roster.
func (r *Registry) Join(sessionID, roomID string, u *canvas.User) *canvas.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc := r.getOrCreateLocked(roomID)
	u.RoomID = roomID
	doc.PutUser(sessionID, u)
	r.sessions[sessionID] = roomID
	return doc
}

// Remove tears down a session: the user leaves the roster, any of their
// in-progress strokes are finalized into history rather than discarded,
// and the room is deleted if it is now empty and not the default. The
// returned values feed the departure broadcast.
func (r *Registry) Remove(sessionID string) (roomID string, doc *canvas.Document, user *canvas.User, finalized []*canvas.Stroke) {
	r.mu.Lock()
	defer r.mu.Unlock()

	roomID, ok := r.sessions[sessionID]
	if !ok {
		roomID = DefaultRoom
	}
	doc = r.rooms[roomID]
	if doc != nil {
		user = doc.RemoveUser(sessionID)
		finalized = doc.FinalizeOwnedBy(sessionID)
		r.deleteIfEmptyLocked(roomID, doc)
	}
	delete(r.sessions, sessionID)
	return roomID, doc, user, finalized
}

// Move reassigns a session to a new room. Any strokes the session still
// has in progress are finalized into the old room first, so a cross-room
// move never orphans an active stroke. The old room is garbage collected
// if it empties out.
func (r *Registry) Move(sessionID, newRoomID string, u *canvas.User) (oldRoomID string, finalized []*canvas.Stroke, newDoc *canvas.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()

	oldRoomID, ok := r.sessions[sessionID]
	if !ok {
		oldRoomID = DefaultRoom
	}
	if oldDoc := r.rooms[oldRoomID]; oldDoc != nil {
		finalized = oldDoc.FinalizeOwnedBy(sessionID)
		oldDoc.RemoveUser(sessionID)
		r.deleteIfEmptyLocked(oldRoomID, oldDoc)
	}

	newDoc = r.getOrCreateLocked(newRoomID)
	u.RoomID = newRoomID
	newDoc.PutUser(sessionID, u)
	r.sessions[sessionID] = newRoomID
	return oldRoomID, finalized, newDoc
}

func (r *Registry) deleteIfEmptyLocked(roomID string, doc *canvas.Document) {
	if roomID != DefaultRoom && doc.UserCount() == 0 {
		delete(r.rooms, roomID)
		slog.Info("room deleted (empty)", "room", roomID)
	}
}

// Lookup returns a room's document without creating it.
func (r *Registry) Lookup(roomID string) (*canvas.Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.rooms[roomID]
	return doc, ok
}

// RoomIDs lists the ids of all existing rooms.
func (r *Registry) RoomIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	return ids
}

// RoomCount reports how many rooms exist.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// SessionCount reports how many sessions are assigned to rooms.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

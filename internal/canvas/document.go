package canvas

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Capacity limits for a single room document. Insertion beyond a limit
// evicts the oldest entry; these are the only backpressure the server has
// against runaway clients besides the transport rate limiter.
const (
	MaxStrokes      = 5000
	MaxShapes       = 1000
	MaxText         = 500
	MaxStrokePoints = 10000
	MaxRedoStack    = 50
)

// Document is the authoritative drawing state of one room: committed
// strokes, shapes and text, in-progress strokes keyed by id, the connected
// user roster, and the redo stack. All methods are safe for concurrent use;
// the gateway serializes mutations per room, the mutex covers reads from
// the ops surface and the snapshot service.
type Document struct {
	mu      sync.Mutex
	strokes []*Stroke
	shapes  []*Shape
	texts   []*TextElement
	redo    [][]Item
	active  map[string]*Stroke
	users   map[string]*User

	now func() int64
}

func NewDocument() *Document {
	return &Document{
		active: make(map[string]*Stroke),
		users:  make(map[string]*User),
		now:    func() int64 { return time.Now().UnixMilli() },
	}
}

// commitStroke appends to history, evicting the oldest stroke at capacity.
// Committing any drawable invalidates redo history.
func (d *Document) commitStroke(s *Stroke) {
	if len(d.strokes) >= MaxStrokes {
		d.strokes = d.strokes[1:]
	}
	d.strokes = append(d.strokes, s)
	d.redo = nil
}

// StartStroke registers a new active stroke owned by s.UserID. The store
// assigns the timestamp; a client-supplied one is never trusted. Returns
// false without side effects if a stroke with that id is already active,
// which guards against duplicated or replayed start events.
func (d *Document) StartStroke(s *Stroke) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.active[s.ID]; exists {
		return false
	}
	s.Timestamp = d.now()
	d.active[s.ID] = s
	return true
}

// AppendPoint adds a point to an active stroke. It returns false if the
// stroke does not exist, if requesterID is not its owner, or if the stroke
// already holds MaxStrokePoints points.
func (d *Document) AppendPoint(strokeID string, p Point, requesterID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.active[strokeID]
	if !ok || s.UserID != requesterID {
		return false
	}
	if len(s.Points) >= MaxStrokePoints {
		return false
	}
	s.Points = append(s.Points, p)
	return true
}

// FinalizeStroke moves an active stroke into history. Ownership is checked
// the same way as AppendPoint; nil is returned on any failure.
func (d *Document) FinalizeStroke(strokeID, requesterID string) *Stroke {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.active[strokeID]
	if !ok || s.UserID != requesterID {
		return nil
	}
	delete(d.active, strokeID)
	d.commitStroke(s)
	return s
}

// FinalizeOwnedBy commits every active stroke owned by userID. Used when a
// session disconnects or changes room: in-progress work is never dropped.
func (d *Document) FinalizeOwnedBy(userID string) []*Stroke {
	d.mu.Lock()
	defer d.mu.Unlock()

	var finalized []*Stroke
	for id, s := range d.active {
		if s.UserID == userID {
			delete(d.active, id)
			d.commitStroke(s)
			finalized = append(finalized, s)
		}
	}
	return finalized
}

// CommitShape stamps ownership and timestamp authoritatively and appends
// the shape, evicting the oldest at capacity.
func (d *Document) CommitShape(s *Shape, userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s.UserID = userID
	s.Timestamp = d.now()
	if len(d.shapes) >= MaxShapes {
		d.shapes = d.shapes[1:]
	}
	d.shapes = append(d.shapes, s)
	d.redo = nil
}

// CommitText stamps ownership and timestamp authoritatively, trims the
// text, and appends it, evicting the oldest at capacity.
func (d *Document) CommitText(t *TextElement, userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t.UserID = userID
	t.Timestamp = d.now()
	t.Text = strings.TrimSpace(t.Text)
	if len(d.texts) >= MaxText {
		d.texts = d.texts[1:]
	}
	d.texts = append(d.texts, t)
	d.redo = nil
}

// Undo removes the single most recently committed drawable, judged by
// timestamp across strokes, shapes and text, and pushes it onto the redo
// stack as a one-element batch. On equal timestamps the scan order wins:
// strokes, then shapes, then text. Returns false if there is nothing to
// undo, leaving the redo stack untouched.
func (d *Document) Undo() (PageState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.strokes) == 0 && len(d.shapes) == 0 && len(d.texts) == 0 {
		return PageState{}, false
	}

	var maxTime int64
	kind := ItemKind("")
	index := -1

	for i, s := range d.strokes {
		if s.Timestamp > maxTime {
			maxTime, kind, index = s.Timestamp, KindStroke, i
		}
	}
	for i, s := range d.shapes {
		if s.Timestamp > maxTime {
			maxTime, kind, index = s.Timestamp, KindShape, i
		}
	}
	for i, t := range d.texts {
		if t.Timestamp > maxTime {
			maxTime, kind, index = t.Timestamp, KindText, i
		}
	}

	var removed Item
	switch kind {
	case KindStroke:
		removed = Item{Kind: KindStroke, Stroke: d.strokes[index]}
		d.strokes = append(d.strokes[:index], d.strokes[index+1:]...)
	case KindShape:
		removed = Item{Kind: KindShape, Shape: d.shapes[index]}
		d.shapes = append(d.shapes[:index], d.shapes[index+1:]...)
	case KindText:
		removed = Item{Kind: KindText, Text: d.texts[index]}
		d.texts = append(d.texts[:index], d.texts[index+1:]...)
	}

	if removed.Kind != "" {
		if len(d.redo) >= MaxRedoStack {
			d.redo = d.redo[1:]
		}
		d.redo = append(d.redo, []Item{removed})
	}

	return d.pageStateLocked(), true
}

// Redo pops the most recent undo batch and re-inserts each item into its
// collection at the position preserving ascending timestamp order. Items
// carrying a non-positive timestamp are skipped; that only happens if the
// stack was corrupted. Returns false if the redo stack is empty.
func (d *Document) Redo() (PageState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.redo) == 0 {
		return PageState{}, false
	}

	batch := d.redo[len(d.redo)-1]
	d.redo = d.redo[:len(d.redo)-1]

	for _, item := range batch {
		if item.Timestamp() <= 0 {
			slog.Warn("skipping redo item with invalid timestamp", "kind", item.Kind)
			continue
		}
		switch item.Kind {
		case KindStroke:
			d.strokes = insertByTimestamp(d.strokes, item.Stroke, func(s *Stroke) int64 { return s.Timestamp })
		case KindShape:
			d.shapes = insertByTimestamp(d.shapes, item.Shape, func(s *Shape) int64 { return s.Timestamp })
		case KindText:
			d.texts = insertByTimestamp(d.texts, item.Text, func(t *TextElement) int64 { return t.Timestamp })
		}
	}

	return d.pageStateLocked(), true
}

// insertByTimestamp places v before the first element with a strictly
// greater timestamp, or at the end if none exists.
func insertByTimestamp[T any](items []*T, v *T, ts func(*T) int64) []*T {
	at := len(items)
	for i, existing := range items {
		if ts(existing) > ts(v) {
			at = i
			break
		}
	}
	items = append(items, nil)
	copy(items[at+1:], items[at:])
	items[at] = v
	return items
}

// Clear empties every drawable collection and the redo stack. Users stay
// connected.
func (d *Document) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.strokes = nil
	d.shapes = nil
	d.texts = nil
	d.redo = nil
	d.active = make(map[string]*Stroke)
}

// Restore replaces the committed drawables wholesale, clamping each
// collection to its capacity by keeping the newest entries. Active strokes
// and redo history are discarded; the roster is untouched.
func (d *Document) Restore(state PageState) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.strokes = clampOldest(state.Strokes, MaxStrokes)
	d.shapes = clampOldest(state.Shapes, MaxShapes)
	d.texts = clampOldest(state.TextElements, MaxText)
	d.redo = nil
	d.active = make(map[string]*Stroke)
}

func clampOldest[T any](items []*T, limit int) []*T {
	if len(items) > limit {
		items = items[len(items)-limit:]
	}
	out := make([]*T, len(items))
	copy(out, items)
	return out
}

// PageState returns a copy of the committed drawable slices for sync
// broadcasts and snapshots. The elements themselves are shared; committed
// drawables are immutable.
func (d *Document) PageState() PageState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pageStateLocked()
}

func (d *Document) pageStateLocked() PageState {
	st := PageState{
		Strokes:      make([]*Stroke, len(d.strokes)),
		Shapes:       make([]*Shape, len(d.shapes)),
		TextElements: make([]*TextElement, len(d.texts)),
	}
	copy(st.Strokes, d.strokes)
	copy(st.Shapes, d.shapes)
	copy(st.TextElements, d.texts)
	return st
}

// Counts reports the sizes of the committed collections.
func (d *Document) Counts() (strokes, shapes, texts int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.strokes), len(d.shapes), len(d.texts)
}

// ActiveStrokeCount reports how many strokes are currently in progress.
func (d *Document) ActiveStrokeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.active)
}

// RedoDepth reports the redo stack size.
func (d *Document) RedoDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.redo)
}

// PutUser adds or replaces a roster entry for a session.
func (d *Document) PutUser(sessionID string, u *User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[sessionID] = u
}

// RemoveUser deletes a roster entry, returning it if present.
func (d *Document) RemoveUser(sessionID string) *User {
	d.mu.Lock()
	defer d.mu.Unlock()
	u := d.users[sessionID]
	delete(d.users, sessionID)
	return u
}

// User returns the roster entry for a session, or nil.
func (d *Document) User(sessionID string) *User {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.users[sessionID]
}

// SetCursor updates a user's cursor position, returning the user or nil if
// the session has no roster entry.
func (d *Document) SetCursor(sessionID string, p Point) *User {
	d.mu.Lock()
	defer d.mu.Unlock()
	u := d.users[sessionID]
	if u != nil {
		u.Cursor = p
	}
	return u
}

// Users returns a copy of the roster.
func (d *Document) Users() []*User {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, u)
	}
	return out
}

// UserCount reports the roster size.
func (d *Document) UserCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.users)
}

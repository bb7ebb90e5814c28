// Package api is the HTTP ops surface: health and stats probes, active
// room inspection, and the snapshot archive endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sketchroom/backend/internal/db"
	"github.com/sketchroom/backend/internal/snapshot"
	"github.com/sketchroom/backend/internal/ws"
)

type API struct {
	hub       *ws.Hub
	store     *db.Store
	snapshots *snapshot.Service
	started   time.Time
}

func New(hub *ws.Hub, store *db.Store, snapshots *snapshot.Service) *API {
	return &API{
		hub:       hub,
		store:     store,
		snapshots: snapshots,
		started:   time.Now(),
	}
}

func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": int(time.Since(a.started).Seconds()),
		"connections":    a.hub.GetClientCount(),
		"rooms":          a.hub.Registry().RoomCount(),
	})
}

func (a *API) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"active_rooms":   a.hub.GetRoomCount(),
		"active_clients": a.hub.GetClientCount(),
		"total_rooms":    a.hub.Registry().RoomCount(),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}

	if a.store != nil {
		archiveStats, err := a.store.Stats()
		if err == nil {
			stats["archive"] = archiveStats
		}
	}

	jsonResponse(w, http.StatusOK, stats)
}

// Room handlers

type RoomResponse struct {
	ID          string `json:"id"`
	ActiveUsers int    `json:"active_users"`
	Strokes     int    `json:"strokes"`
	Shapes      int    `json:"shapes"`
	Texts       int    `json:"texts"`
}

func (a *API) roomResponse(roomID string) (RoomResponse, bool) {
	doc, ok := a.hub.Registry().Lookup(roomID)
	if !ok {
		return RoomResponse{}, false
	}
	strokes, shapes, texts := doc.Counts()
	return RoomResponse{
		ID:          roomID,
		ActiveUsers: doc.UserCount(),
		Strokes:     strokes,
		Shapes:      shapes,
		Texts:       texts,
	}, true
}

func (a *API) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ids := a.hub.Registry().RoomIDs()
	response := make([]RoomResponse, 0, len(ids))
	for _, id := range ids {
		if room, ok := a.roomResponse(id); ok {
			response = append(response, room)
		}
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"rooms": response,
	})
}

func (a *API) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/rooms/")
	roomID := strings.TrimSuffix(path, "/")
	if roomID == "" {
		errorResponse(w, http.StatusBadRequest, "Room ID is required")
		return
	}

	room, ok := a.roomResponse(roomID)
	if !ok {
		errorResponse(w, http.StatusNotFound, "Room not found")
		return
	}

	jsonResponse(w, http.StatusOK, room)
}

func (a *API) RoomsRouter(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/rooms")

	if path == "" || path == "/" {
		a.ListRoomsHandler(w, r)
		return
	}

	a.GetRoomHandler(w, r)
}

// Snapshot handlers

type CreateSnapshotRequest struct {
	RoomID    string `json:"room_id"`
	Name      string `json:"name"`
	CreatedBy string `json:"created_by"`
}

func (a *API) ListSnapshotsHandler(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room_id")
	if roomID == "" {
		errorResponse(w, http.StatusBadRequest, "room_id is required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	snaps, err := a.store.ListSnapshots(roomID, limit, offset)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to list snapshots")
		return
	}

	total, _ := a.store.CountSnapshots(roomID)

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"snapshots": snaps,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

func (a *API) CreateSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.RoomID == "" {
		errorResponse(w, http.StatusBadRequest, "room_id is required")
		return
	}

	snap, err := a.snapshots.Capture(req.RoomID, req.Name, req.CreatedBy, false)
	if err != nil {
		if err == snapshot.ErrRoomNotFound {
			errorResponse(w, http.StatusNotFound, "Room not found")
			return
		}
		errorResponse(w, http.StatusInternalServerError, "Failed to create snapshot")
		return
	}

	jsonResponse(w, http.StatusCreated, snap)
}

func (a *API) GetSnapshotHandler(w http.ResponseWriter, r *http.Request, id string) {
	snap, err := a.store.GetSnapshot(id)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to get snapshot")
		return
	}
	if snap == nil {
		errorResponse(w, http.StatusNotFound, "Snapshot not found")
		return
	}

	jsonResponse(w, http.StatusOK, snap)
}

func (a *API) DeleteSnapshotHandler(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.store.DeleteSnapshot(id); err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to delete snapshot")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "Snapshot deleted"})
}

// RestoreSnapshotHandler rewrites the snapshot's room with the archived
// drawing and pushes a full resync to everyone connected to that room.
func (a *API) RestoreSnapshotHandler(w http.ResponseWriter, r *http.Request, id string) {
	snap, err := a.store.GetSnapshot(id)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to get snapshot")
		return
	}
	if snap == nil {
		errorResponse(w, http.StatusNotFound, "Snapshot not found")
		return
	}

	state, err := snapshot.Decode(snap)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Snapshot content is corrupted")
		return
	}

	// Restoring must not resurrect a garbage-collected room; registry
	// entries without users would never be cleaned up again.
	doc, ok := a.hub.Registry().Lookup(snap.RoomID)
	if !ok {
		errorResponse(w, http.StatusNotFound, "Room is not active")
		return
	}
	doc.Restore(state)
	a.hub.ResyncRoom(snap.RoomID, "restore")

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"message":  "Snapshot restored",
		"snapshot": snap.ID,
		"room_id":  snap.RoomID,
	})
}

func (a *API) SnapshotsRouter(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/snapshots")

	if path == "" || path == "/" {
		switch r.Method {
		case http.MethodGet:
			a.ListSnapshotsHandler(w, r)
		case http.MethodPost:
			a.CreateSnapshotHandler(w, r)
		default:
			errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	id := strings.Trim(path, "/")

	if strings.HasSuffix(id, "/restore") {
		if r.Method != http.MethodPost {
			errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		a.RestoreSnapshotHandler(w, r, strings.TrimSuffix(id, "/restore"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.GetSnapshotHandler(w, r, id)
	case http.MethodDelete:
		a.DeleteSnapshotHandler(w, r, id)
	default:
		errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

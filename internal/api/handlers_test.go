package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sketchroom/backend/internal/canvas"
	"github.com/sketchroom/backend/internal/db"
	"github.com/sketchroom/backend/internal/room"
	"github.com/sketchroom/backend/internal/snapshot"
	"github.com/sketchroom/backend/internal/ws"
)

func setupAPI(t *testing.T) (*API, *room.Registry) {
	t.Helper()
	store, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	registry := room.NewRegistry()
	hub := ws.NewHub(registry)
	go hub.Run()
	snapshots := snapshot.New(store, registry, snapshot.DefaultConfig())
	return New(hub, store, snapshots), registry
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, target string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	handler(w, req)

	var parsed map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	}
	return w, parsed
}

func drawShape(doc *canvas.Document, id string) {
	doc.CommitShape(&canvas.Shape{
		ID: id, Kind: canvas.ShapeRectangle,
		EndPoint: canvas.Point{X: 10, Y: 10}, Color: "#FF0000", Width: 2,
	}, "alice")
}

func TestHealthHandler(t *testing.T) {
	api, _ := setupAPI(t)

	w, body := doJSON(t, api.HealthHandler, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Contains(t, body, "uptime_seconds")
	assert.Contains(t, body, "connections")
}

func TestStatsHandler(t *testing.T) {
	api, registry := setupAPI(t)
	registry.GetOrCreate("lobby")

	w, body := doJSON(t, api.StatsHandler, http.MethodGet, "/api/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["total_rooms"])
	assert.Equal(t, float64(0), body["active_clients"])
}

func TestListRooms(t *testing.T) {
	api, registry := setupAPI(t)
	drawShape(registry.GetOrCreate("lobby"), "sh1")

	w, body := doJSON(t, api.RoomsRouter, http.MethodGet, "/api/rooms", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	rooms := body["rooms"].([]any)
	require.Len(t, rooms, 1)
	entry := rooms[0].(map[string]any)
	assert.Equal(t, "lobby", entry["id"])
	assert.Equal(t, float64(1), entry["shapes"])
}

func TestGetRoom(t *testing.T) {
	api, registry := setupAPI(t)
	registry.GetOrCreate("lobby")

	w, body := doJSON(t, api.RoomsRouter, http.MethodGet, "/api/rooms/lobby", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "lobby", body["id"])

	w, _ = doJSON(t, api.RoomsRouter, http.MethodGet, "/api/rooms/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateSnapshot(t *testing.T) {
	api, registry := setupAPI(t)
	drawShape(registry.GetOrCreate("lobby"), "sh1")

	w, body := doJSON(t, api.SnapshotsRouter, http.MethodPost, "/api/snapshots", CreateSnapshotRequest{
		RoomID: "lobby", Name: "milestone", CreatedBy: "alice",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "milestone", body["name"])
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, float64(1), body["shape_count"])
}

func TestCreateSnapshotMissingRoom(t *testing.T) {
	api, _ := setupAPI(t)

	w, _ := doJSON(t, api.SnapshotsRouter, http.MethodPost, "/api/snapshots", CreateSnapshotRequest{
		RoomID: "ghost",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = doJSON(t, api.SnapshotsRouter, http.MethodPost, "/api/snapshots", CreateSnapshotRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListSnapshots(t *testing.T) {
	api, registry := setupAPI(t)
	drawShape(registry.GetOrCreate("lobby"), "sh1")

	w, _ := doJSON(t, api.SnapshotsRouter, http.MethodPost, "/api/snapshots", CreateSnapshotRequest{RoomID: "lobby"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, body := doJSON(t, api.SnapshotsRouter, http.MethodGet, "/api/snapshots?room_id=lobby", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["total"])
	assert.Len(t, body["snapshots"].([]any), 1)

	w, _ = doJSON(t, api.SnapshotsRouter, http.MethodGet, "/api/snapshots", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "room_id is required")
}

func TestGetAndDeleteSnapshot(t *testing.T) {
	api, registry := setupAPI(t)
	drawShape(registry.GetOrCreate("lobby"), "sh1")

	w, created := doJSON(t, api.SnapshotsRouter, http.MethodPost, "/api/snapshots", CreateSnapshotRequest{RoomID: "lobby"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := created["id"].(string)

	w, body := doJSON(t, api.SnapshotsRouter, http.MethodGet, "/api/snapshots/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, body["id"])

	w, _ = doJSON(t, api.SnapshotsRouter, http.MethodDelete, "/api/snapshots/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, api.SnapshotsRouter, http.MethodGet, "/api/snapshots/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRestoreSnapshot(t *testing.T) {
	api, registry := setupAPI(t)
	doc := registry.GetOrCreate("lobby")
	drawShape(doc, "sh1")

	w, created := doJSON(t, api.SnapshotsRouter, http.MethodPost, "/api/snapshots", CreateSnapshotRequest{RoomID: "lobby"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := created["id"].(string)

	// Draw past the snapshot, then roll back.
	drawShape(doc, "sh2")
	drawShape(doc, "sh3")

	w, body := doJSON(t, api.SnapshotsRouter, http.MethodPost, "/api/snapshots/"+id+"/restore", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "lobby", body["room_id"])

	_, shapes, _ := doc.Counts()
	assert.Equal(t, 1, shapes, "document rewound to the archived state")
	st := doc.PageState()
	assert.Equal(t, "sh1", st.Shapes[0].ID)

	w, _ = doJSON(t, api.SnapshotsRouter, http.MethodPost, "/api/snapshots/missing/restore", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRestoreSnapshotInactiveRoom(t *testing.T) {
	api, registry := setupAPI(t)

	// A user draws in a temporary room, a snapshot is taken, then the
	// room empties out and is garbage collected.
	doc := registry.Join("sess1", "temp", &canvas.User{ID: "sess1"})
	drawShape(doc, "sh1")
	w, created := doJSON(t, api.SnapshotsRouter, http.MethodPost, "/api/snapshots", CreateSnapshotRequest{RoomID: "temp"})
	require.Equal(t, http.StatusCreated, w.Code)
	registry.Remove("sess1")

	w, _ = doJSON(t, api.SnapshotsRouter, http.MethodPost, "/api/snapshots/"+created["id"].(string)+"/restore", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, ok := registry.Lookup("temp")
	assert.False(t, ok, "restore must not resurrect a collected room")
}

func TestMethodNotAllowed(t *testing.T) {
	api, _ := setupAPI(t)

	w, _ := doJSON(t, api.RoomsRouter, http.MethodPost, "/api/rooms", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w, _ = doJSON(t, api.SnapshotsRouter, http.MethodPut, "/api/snapshots", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

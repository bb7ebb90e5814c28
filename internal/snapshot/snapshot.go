// Package snapshot periodically archives room drawings into the snapshot
// store and prunes old automatic saves.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sketchroom/backend/internal/canvas"
	"github.com/sketchroom/backend/internal/db"
	"github.com/sketchroom/backend/internal/room"
)

var ErrRoomNotFound = errors.New("room not found")

type Config struct {
	Interval time.Duration
	Keep     int
}

func DefaultConfig() Config {
	return Config{
		Interval: 5 * time.Minute,
		Keep:     20,
	}
}

type Service struct {
	store    *db.Store
	registry *room.Registry
	config   Config
	stop     chan struct{}
	wg       sync.WaitGroup
}

func New(store *db.Store, registry *room.Registry, config Config) *Service {
	return &Service{
		store:    store,
		registry: registry,
		config:   config,
		stop:     make(chan struct{}),
	}
}

func (s *Service) Start() {
	s.wg.Add(1)
	go s.run()
	slog.Info("snapshot service started", "interval", s.config.Interval, "keep", s.config.Keep)
}

func (s *Service) Stop() {
	close(s.stop)
	s.wg.Wait()
	slog.Info("snapshot service stopped")
}

func (s *Service) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.captureAll()
		}
	}
}

func (s *Service) captureAll() {
	captured := 0
	for _, roomID := range s.registry.RoomIDs() {
		snap, err := s.Capture(roomID, "", "", true)
		if err != nil {
			slog.Error("auto snapshot failed", "room", roomID, "error", err)
			continue
		}
		if snap != nil {
			captured++
		}
	}
	if captured > 0 {
		slog.Info("auto snapshots captured", "rooms", captured)
	}
}

func hashContent(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:8])
}

// Capture archives the current drawing of a room. Automatic captures skip
// empty rooms and rooms whose content matches the latest archived hash, so
// an idle room produces no snapshot churn; in the duplicate case the
// existing snapshot is returned. Automatic captures also prune old
// auto-saves beyond the configured keep count.
func (s *Service) Capture(roomID, name, createdBy string, auto bool) (*db.Snapshot, error) {
	doc, ok := s.registry.Lookup(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}

	st := doc.PageState()
	if auto && len(st.Strokes) == 0 && len(st.Shapes) == 0 && len(st.TextElements) == 0 {
		return nil, nil
	}

	content, err := json.Marshal(st)
	if err != nil {
		return nil, err
	}
	hash := hashContent(content)

	if auto {
		latest, err := s.store.LatestSnapshot(roomID)
		if err == nil && latest != nil && latest.ContentHash == hash {
			return latest, nil
		}
	}

	if name == "" {
		stamp := time.Now().Format("Jan 2, 3:04 PM")
		if auto {
			name = fmt.Sprintf("Auto-save %s", stamp)
		} else {
			name = fmt.Sprintf("Snapshot %s", stamp)
		}
	}

	snap := &db.Snapshot{
		RoomID:      roomID,
		Name:        name,
		Content:     string(content),
		ContentHash: hash,
		CreatedBy:   createdBy,
		IsAuto:      auto,
		StrokeCount: len(st.Strokes),
		ShapeCount:  len(st.Shapes),
		TextCount:   len(st.TextElements),
	}
	if err := s.store.SaveSnapshot(snap); err != nil {
		return nil, err
	}

	if auto {
		if err := s.store.DeleteOldAutoSnapshots(roomID, s.config.Keep); err != nil {
			slog.Warn("pruning old auto snapshots failed", "room", roomID, "error", err)
		}
	}

	return snap, nil
}

// Decode unpacks a snapshot's archived drawing state.
func Decode(snap *db.Snapshot) (canvas.PageState, error) {
	var st canvas.PageState
	err := json.Unmarshal([]byte(snap.Content), &st)
	return st, err
}

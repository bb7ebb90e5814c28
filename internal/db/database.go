// Package db stores named snapshots of room drawings in SQLite. The live
// room documents are memory-only; the archive is an operator feature for
// keeping and restoring points in a drawing's history.
package db

import (
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// Snapshot is an archived copy of a room's committed drawables, serialized
// as JSON. ContentHash lets the auto-snapshot service skip identical saves.
type Snapshot struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"room_id"`
	Name        string    `json:"name"`
	Content     string    `json:"content,omitempty"`
	ContentHash string    `json:"content_hash"`
	CreatedBy   string    `json:"created_by"`
	IsAuto      bool      `json:"is_auto"`
	StrokeCount int       `json:"stroke_count"`
	ShapeCount  int       `json:"shape_count"`
	TextCount   int       `json:"text_count"`
	CreatedAt   time.Time `json:"created_at"`
}

func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	database, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// WAL mode for better concurrency
	if _, err := database.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, err
	}

	if err := createTables(database); err != nil {
		return nil, err
	}

	slog.Info("snapshot archive initialized", "path", dbPath)
	return &Store{db: database}, nil
}

func createTables(database *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		name TEXT NOT NULL,
		content TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		created_by TEXT DEFAULT '',
		is_auto BOOLEAN DEFAULT FALSE,
		stroke_count INTEGER DEFAULT 0,
		shape_count INTEGER DEFAULT 0,
		text_count INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_room_id ON snapshots(room_id);
	CREATE INDEX IF NOT EXISTS idx_snapshots_room_created ON snapshots(room_id, created_at DESC);
	`

	_, err := database.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSnapshot inserts a snapshot, assigning its id and creation time.
func (s *Store) SaveSnapshot(snap *Snapshot) error {
	snap.ID = uuid.NewString()
	snap.CreatedAt = time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO snapshots
			(id, room_id, name, content, content_hash, created_by, is_auto,
			 stroke_count, shape_count, text_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.RoomID, snap.Name, snap.Content, snap.ContentHash,
		snap.CreatedBy, snap.IsAuto,
		snap.StrokeCount, snap.ShapeCount, snap.TextCount, snap.CreatedAt,
	)
	return err
}

const snapshotColumns = `id, room_id, name, content, content_hash, created_by,
	is_auto, stroke_count, shape_count, text_count, created_at`

func scanSnapshot(row interface{ Scan(...any) error }) (*Snapshot, error) {
	var snap Snapshot
	err := row.Scan(
		&snap.ID, &snap.RoomID, &snap.Name, &snap.Content, &snap.ContentHash,
		&snap.CreatedBy, &snap.IsAuto,
		&snap.StrokeCount, &snap.ShapeCount, &snap.TextCount, &snap.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// GetSnapshot returns a snapshot with content, or nil if absent.
func (s *Store) GetSnapshot(id string) (*Snapshot, error) {
	row := s.db.QueryRow(
		"SELECT "+snapshotColumns+" FROM snapshots WHERE id = ?", id,
	)
	return scanSnapshot(row)
}

// LatestSnapshot returns the most recent snapshot for a room, or nil.
func (s *Store) LatestSnapshot(roomID string) (*Snapshot, error) {
	row := s.db.QueryRow(
		"SELECT "+snapshotColumns+` FROM snapshots
		 WHERE room_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		roomID,
	)
	return scanSnapshot(row)
}

// ListSnapshots returns snapshots for a room, newest first, without the
// content column.
func (s *Store) ListSnapshots(roomID string, limit, offset int) ([]Snapshot, error) {
	rows, err := s.db.Query(`
		SELECT id, room_id, name, content_hash, created_by, is_auto,
		       stroke_count, shape_count, text_count, created_at
		FROM snapshots
		WHERE room_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`,
		roomID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(
			&snap.ID, &snap.RoomID, &snap.Name, &snap.ContentHash,
			&snap.CreatedBy, &snap.IsAuto,
			&snap.StrokeCount, &snap.ShapeCount, &snap.TextCount, &snap.CreatedAt,
		); err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// CountSnapshots reports how many snapshots a room has.
func (s *Store) CountSnapshots(roomID string) (int, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM snapshots WHERE room_id = ?", roomID,
	).Scan(&count)
	return count, err
}

// DeleteSnapshot removes one snapshot.
func (s *Store) DeleteSnapshot(id string) error {
	_, err := s.db.Exec("DELETE FROM snapshots WHERE id = ?", id)
	return err
}

// DeleteOldAutoSnapshots prunes automatic snapshots for a room, keeping
// only the most recent keep of them. Manual snapshots are never pruned.
func (s *Store) DeleteOldAutoSnapshots(roomID string, keep int) error {
	_, err := s.db.Exec(`
		DELETE FROM snapshots
		WHERE room_id = ? AND is_auto = TRUE AND id NOT IN (
			SELECT id FROM snapshots
			WHERE room_id = ? AND is_auto = TRUE
			ORDER BY created_at DESC, rowid DESC
			LIMIT ?
		)`, roomID, roomID, keep)
	return err
}

// Stats reports archive-wide totals for the ops surface.
func (s *Store) Stats() (map[string]any, error) {
	var snapshotCount, roomCount int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&snapshotCount); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow("SELECT COUNT(DISTINCT room_id) FROM snapshots").Scan(&roomCount); err != nil {
		return nil, err
	}
	return map[string]any{
		"snapshot_count": snapshotCount,
		"room_count":     roomCount,
	}, nil
}

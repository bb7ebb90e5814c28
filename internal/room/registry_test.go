package room

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sketchroom/backend/internal/canvas"
)

func TestNormalizeRoomID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"plain", "lobby", "lobby", false},
		{"trimmed", "  lobby  ", "lobby", false},
		{"max length", strings.Repeat("a", MaxRoomIDLength), strings.Repeat("a", MaxRoomIDLength), false},
		{"multibyte at max length", strings.Repeat("✏", MaxRoomIDLength), strings.Repeat("✏", MaxRoomIDLength), false},
		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
		{"too long", strings.Repeat("a", MaxRoomIDLength+1), "", true},
		{"multibyte too long", strings.Repeat("✏", MaxRoomIDLength+1), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeRoomID(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRoomID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetOrCreateIdempotent(t *testing.T) {
	r := NewRegistry()
	first := r.GetOrCreate("lobby")
	second := r.GetOrCreate("lobby")
	assert.Same(t, first, second)
	assert.Equal(t, 1, r.RoomCount())
}

func TestLookupDoesNotCreate(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup("ghost")
	assert.False(t, ok)
	assert.Equal(t, 0, r.RoomCount())
}

func TestJoinAndRoomOf(t *testing.T) {
	r := NewRegistry()
	u := &canvas.User{ID: "sess1", Name: "alice"}
	doc := r.Join("sess1", "lobby", u)

	assert.Equal(t, "lobby", r.RoomOf("sess1"))
	assert.Equal(t, "lobby", u.RoomID)
	assert.Equal(t, 1, doc.UserCount())
	assert.Same(t, doc, r.DocumentOf("sess1"))

	assert.Equal(t, DefaultRoom, r.RoomOf("unknown"), "unknown sessions map to the default room")
}

func TestRemoveFinalizesActiveStrokes(t *testing.T) {
	r := NewRegistry()
	doc := r.Join("sess1", DefaultRoom, &canvas.User{ID: "sess1"})
	doc.StartStroke(&canvas.Stroke{ID: "s1", UserID: "sess1", Points: []canvas.Point{{X: 1, Y: 1}}})

	roomID, gotDoc, user, finalized := r.Remove("sess1")
	assert.Equal(t, DefaultRoom, roomID)
	assert.Same(t, doc, gotDoc)
	require.NotNil(t, user)
	require.Len(t, finalized, 1)
	assert.Equal(t, "s1", finalized[0].ID)

	strokes, _, _ := doc.Counts()
	assert.Equal(t, 1, strokes, "disconnect commits in-progress work")
	assert.Equal(t, 0, doc.ActiveStrokeCount())
	assert.Equal(t, 0, r.SessionCount())
}

func TestEmptyRoomGarbageCollected(t *testing.T) {
	r := NewRegistry()
	r.Join("sess1", "lobby", &canvas.User{ID: "sess1"})
	require.Equal(t, 1, r.RoomCount())

	r.Remove("sess1")
	_, ok := r.Lookup("lobby")
	assert.False(t, ok, "empty non-default room is deleted")
}

func TestDefaultRoomSurvivesEmpty(t *testing.T) {
	r := NewRegistry()
	r.Join("sess1", DefaultRoom, &canvas.User{ID: "sess1"})
	r.Remove("sess1")

	_, ok := r.Lookup(DefaultRoom)
	assert.True(t, ok, "default room is never garbage collected")
}

func TestRoomWithRemainingUsersSurvives(t *testing.T) {
	r := NewRegistry()
	r.Join("sess1", "lobby", &canvas.User{ID: "sess1"})
	r.Join("sess2", "lobby", &canvas.User{ID: "sess2"})

	r.Remove("sess1")
	doc, ok := r.Lookup("lobby")
	require.True(t, ok)
	assert.Equal(t, 1, doc.UserCount())
}

func TestMoveFinalizesIntoOldRoom(t *testing.T) {
	r := NewRegistry()
	u := &canvas.User{ID: "sess1"}
	oldDoc := r.Join("sess1", DefaultRoom, u)
	oldDoc.StartStroke(&canvas.Stroke{ID: "s1", UserID: "sess1"})

	oldRoomID, finalized, newDoc := r.Move("sess1", "lobby", u)
	assert.Equal(t, DefaultRoom, oldRoomID)
	require.Len(t, finalized, 1)

	strokes, _, _ := oldDoc.Counts()
	assert.Equal(t, 1, strokes, "the stroke lands in the room it was drawn in")
	newStrokes, _, _ := newDoc.Counts()
	assert.Equal(t, 0, newStrokes)

	assert.Equal(t, "lobby", r.RoomOf("sess1"))
	assert.Equal(t, "lobby", u.RoomID)
	assert.Equal(t, 0, oldDoc.UserCount())
	assert.Equal(t, 1, newDoc.UserCount())
}

func TestMoveGarbageCollectsOldRoom(t *testing.T) {
	r := NewRegistry()
	u := &canvas.User{ID: "sess1"}
	r.Join("sess1", "lobby", u)
	r.Move("sess1", "studio", u)

	_, ok := r.Lookup("lobby")
	assert.False(t, ok)
	_, ok = r.Lookup("studio")
	assert.True(t, ok)
}

func TestRoomIDs(t *testing.T) {
	r := NewRegistry()
	r.GetOrCreate(DefaultRoom)
	r.GetOrCreate("lobby")

	ids := r.RoomIDs()
	assert.ElementsMatch(t, []string{DefaultRoom, "lobby"}, ids)
}

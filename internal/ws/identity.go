package ws

import (
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
)

// Fixed palette cycled across connections. The counter is process-wide
// and resets only on restart.
var userColors = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4",
	"#FFEAA7", "#DDA0DD", "#98D8C8", "#F7DC6F",
	"#BB8FCE", "#85C1E9", "#F8B500", "#00CED1",
	"#E74C3C", "#3498DB", "#2ECC71", "#9B59B6",
}

var colorIndex atomic.Uint64

func nextColor() string {
	n := colorIndex.Add(1) - 1
	return userColors[n%uint64(len(userColors))]
}

var (
	nameAdjectives = []string{"Happy", "Swift", "Clever", "Bright", "Cool", "Wild", "Calm", "Bold", "Keen", "Quick"}
	nameNouns      = []string{"Artist", "Painter", "Creator", "Drawer", "Sketcher", "Designer", "Doodler", "Illustrator"}
)

func generateUserName() string {
	adj := nameAdjectives[rand.Intn(len(nameAdjectives))]
	noun := nameNouns[rand.Intn(len(nameNouns))]
	return fmt.Sprintf("%s%s%d", adj, noun, rand.Intn(100))
}

// maxNameLength caps client-chosen display names.
const maxNameLength = 20

// displayName trims and caps a client-supplied name, synthesizing one when
// nothing usable remains.
func displayName(raw string) string {
	name := strings.TrimSpace(raw)
	if runes := []rune(name); len(runes) > maxNameLength {
		name = string(runes[:maxNameLength])
	}
	if name == "" {
		return generateUserName()
	}
	return name
}

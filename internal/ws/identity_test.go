package ws

import (
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "alice", displayName("alice"))
	assert.Equal(t, "alice", displayName("  alice  "))

	long := strings.Repeat("n", maxNameLength+5)
	assert.Len(t, displayName(long), maxNameLength)

	multibyte := strings.Repeat("é", maxNameLength+5)
	got := displayName(multibyte)
	assert.True(t, utf8.ValidString(got), "truncation must not split a rune")
	assert.Equal(t, maxNameLength, utf8.RuneCountInString(got))

	pattern := regexp.MustCompile(`^[A-Z][a-z]+[A-Z][a-z]+\d{1,2}$`)
	for _, raw := range []string{"", "   "} {
		name := displayName(raw)
		assert.Regexp(t, pattern, name, "empty input gets a generated name")
	}
}

func TestNextColorCyclesPalette(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < len(userColors); i++ {
		c := nextColor()
		assert.Contains(t, userColors, c)
		assert.False(t, seen[c], "palette must not repeat within one cycle")
		seen[c] = true
	}
}

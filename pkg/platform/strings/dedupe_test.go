package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrimFold(t *testing.T) {
	t.Run("trims, drops empties, and dedupes in order", func(t *testing.T) {
		got := DedupeAndTrimFold([]string{"  foo ", "bar", "foo", "", "  "})
		assert.Equal(t, []string{"foo", "bar"}, got)
	})

	t.Run("dedupes case-insensitively keeping the first spelling", func(t *testing.T) {
		got := DedupeAndTrimFold([]string{" Compost ", "compost", "Reuse"})
		assert.Equal(t, []string{"Compost", "Reuse"}, got)
	})

	t.Run("empty input passes through", func(t *testing.T) {
		assert.Empty(t, DedupeAndTrimFold(nil))
	})
}

package shortid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	seen := make(map[string]bool)

	for range 100 {
		id, err := New()
		require.NoError(t, err)

		assert.Len(t, id, Length)
		assert.True(t, Valid(id), "generated id %q must be valid", id)
		assert.False(t, seen[id], "generated id %q repeated", id)

		seen[id] = true
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("aB3_-xYz09"))
	assert.False(t, Valid("too-short"))
	assert.False(t, Valid("eleven-char"))
	assert.False(t, Valid("bad!chars?"))
	assert.False(t, Valid(""))
}

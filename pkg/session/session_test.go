package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowsmith/flowsmith/pkg/models"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.Append(ctx, "s-1",
		models.ChatMessage{Role: models.ChatRoleUser, Content: "add an approval step"},
		models.ChatMessage{Role: models.ChatRoleAssistant, Content: "done"},
	)
	require.NoError(t, err)

	history, err := store.History(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.ChatRoleUser, history[0].Role)

	// Sessions are isolated.
	other, err := store.History(ctx, "s-2")
	require.NoError(t, err)
	assert.Empty(t, other)

	err = store.Clear(ctx, "s-1")
	require.NoError(t, err)

	history, err = store.History(ctx, "s-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "session:abc:messages", sessionKey("abc"))
}

// Package session stores per-conversation chat history so authoring turns can
// build on prior messages.
package session

import (
	"context"
	"sync"

	"github.com/flowsmith/flowsmith/pkg/models"
)

// Store keeps the ordered message history of a chat session.
type Store interface {
	Append(ctx context.Context, sessionID string, messages ...models.ChatMessage) error
	History(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	Clear(ctx context.Context, sessionID string) error
}

// MemoryStore is an in-process Store for local development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]models.ChatMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]models.ChatMessage)}
}

func (s *MemoryStore) Append(_ context.Context, sessionID string, messages ...models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = append(s.sessions[sessionID], messages...)

	return nil
}

func (s *MemoryStore) History(_ context.Context, sessionID string) ([]models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.sessions[sessionID]
	result := make([]models.ChatMessage, len(history))
	copy(result, history)

	return result, nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)

	return nil
}

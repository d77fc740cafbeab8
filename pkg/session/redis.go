package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flowsmith/flowsmith/pkg/models"
)

// DefaultTTL bounds how long an idle chat session is retained.
const DefaultTTL = 24 * time.Hour

// RedisStore keeps chat history in a Redis list per session.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &RedisStore{client: redis.NewClient(opts), ttl: DefaultTTL}, nil
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID + ":messages"
}

func (s *RedisStore) Append(ctx context.Context, sessionID string, messages ...models.ChatMessage) error {
	key := sessionKey(sessionID)

	payloads := make([]any, 0, len(messages))

	for _, message := range messages {
		payload, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("failed to marshal chat message: %w", err)
		}

		payloads = append(payloads, payload)
	}

	err := s.client.RPush(ctx, key, payloads...).Err()
	if err != nil {
		return fmt.Errorf("failed to append chat messages: %w", err)
	}

	err = s.client.Expire(ctx, key, s.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to refresh session TTL: %w", err)
	}

	return nil
}

func (s *RedisStore) History(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	raw, err := s.client.LRange(ctx, sessionKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	history := make([]models.ChatMessage, 0, len(raw))

	for _, payload := range raw {
		var message models.ChatMessage

		err = json.Unmarshal([]byte(payload), &message)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal chat message: %w", err)
		}

		history = append(history, message)
	}

	return history, nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	err := s.client.Del(ctx, sessionKey(sessionID)).Err()
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	return nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

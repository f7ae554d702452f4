package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	conversationapp "github.com/chatforge/backend/internal/application/conversation"
	"github.com/chatforge/backend/internal/domain/ai"
)

const defaultHistoryTTL = 30 * time.Minute

// RedisHistoryCache caches recent conversation history in Redis so the
// reply engine does not reload messages from the database on every turn.
// A cache miss is not an error; the engine falls back to the repository.
type RedisHistoryCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisHistoryCache creates a history cache on an existing Redis client
func NewRedisHistoryCache(client *redis.Client, ttl time.Duration) *RedisHistoryCache {
	if ttl <= 0 {
		ttl = defaultHistoryTTL
	}
	return &RedisHistoryCache{
		client:    client,
		keyPrefix: "conversation:history:",
		ttl:       ttl,
	}
}

// Get returns the cached history for a conversation, or nil on a miss
func (c *RedisHistoryCache) Get(ctx context.Context, conversationID uuid.UUID) ([]ai.ChatMessage, error) {
	data, err := c.client.Get(ctx, c.key(conversationID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read conversation history: %w", err)
	}

	var history []ai.ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		// Corrupt entry; drop it and treat as a miss
		_ = c.client.Del(ctx, c.key(conversationID)).Err()
		return nil, nil
	}

	return history, nil
}

// Set stores the history for a conversation with the configured TTL
func (c *RedisHistoryCache) Set(ctx context.Context, conversationID uuid.UUID, history []ai.ChatMessage) error {
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to serialize conversation history: %w", err)
	}

	if err := c.client.Set(ctx, c.key(conversationID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache conversation history: %w", err)
	}

	return nil
}

// Invalidate drops the cached history for a conversation
func (c *RedisHistoryCache) Invalidate(ctx context.Context, conversationID uuid.UUID) error {
	if err := c.client.Del(ctx, c.key(conversationID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate conversation history: %w", err)
	}
	return nil
}

func (c *RedisHistoryCache) key(conversationID uuid.UUID) string {
	return c.keyPrefix + conversationID.String()
}

// Ensure RedisHistoryCache implements HistoryCache
var _ conversationapp.HistoryCache = (*RedisHistoryCache)(nil)

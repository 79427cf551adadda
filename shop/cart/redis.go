package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// sessionCart is the JSON document kept per session key in Redis.
type sessionCart struct {
	SessionID int64     `json:"session_id"`
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updated_at"`
}

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore keeps carts as JSON documents in Redis so they survive bot
// restarts. A zero ttl keeps carts forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	return &redisStore{client: client, ttl: ttl}
}

func (r *redisStore) key(sessionID int64) string {
	return fmt.Sprintf("cart:%d", sessionID)
}

func (r *redisStore) Get(ctx context.Context, sessionID int64) ([]Line, error) {
	data, err := r.client.Get(ctx, r.key(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cart: redis get %d: %w", sessionID, err)
	}
	var doc sessionCart
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("cart: decode %d: %w", sessionID, err)
	}
	return doc.Lines, nil
}

func (r *redisStore) Put(ctx context.Context, sessionID int64, lines []Line) error {
	if len(lines) == 0 {
		return r.Clear(ctx, sessionID)
	}
	doc := sessionCart{
		SessionID: sessionID,
		Lines:     lines,
		UpdatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("cart: encode %d: %w", sessionID, err)
	}
	if err := r.client.Set(ctx, r.key(sessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("cart: redis set %d: %w", sessionID, err)
	}
	return nil
}

func (r *redisStore) Clear(ctx context.Context, sessionID int64) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("cart: redis del %d: %w", sessionID, err)
	}
	return nil
}

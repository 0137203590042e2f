package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore — Store в Redis; срок жизни задаётся TTL ключа.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Put(ctx context.Context, chatID, adminID int64, a Action) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key(chatID, adminID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set pending: %w", err)
	}
	return nil
}

func (r *RedisStore) Take(ctx context.Context, chatID, adminID int64) (Action, bool, error) {
	data, err := r.client.GetDel(ctx, key(chatID, adminID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Action{}, false, nil
	}
	if err != nil {
		return Action{}, false, fmt.Errorf("redis getdel pending: %w", err)
	}
	var a Action
	if err := json.Unmarshal(data, &a); err != nil {
		return Action{}, false, fmt.Errorf("decode pending action: %w", err)
	}
	return a, true, nil
}

func (r *RedisStore) Drop(ctx context.Context, chatID, adminID int64) error {
	return r.client.Del(ctx, key(chatID, adminID)).Err()
}

package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const defaultCacheTTL = 24 * time.Hour

type redisStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	MGet(ctx context.Context, keys ...string) (map[string]string, error)
	SnapshotKey(productID int64) string
}

// RedisCache keeps the last snapshot of every product as JSON under its own key.
type RedisCache struct {
	client redisStore
	ttl    time.Duration
}

// NewRedisCache builds a cache over the shared redis client.
func NewRedisCache(client redisStore, ttl time.Duration) (*RedisCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required for snapshot cache")
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

// Save writes every snapshot.
func (c *RedisCache) Save(ctx context.Context, snapshots map[int64]ProductSnapshot) error {
	for id, snap := range snapshots {
		payload, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("encode snapshot %d: %w", id, err)
		}
		if err := c.client.Set(ctx, c.client.SnapshotKey(id), string(payload), c.ttl); err != nil {
			return fmt.Errorf("store snapshot %d: %w", id, err)
		}
	}
	return nil
}

// Load reads the snapshots that are still cached. Undecodable entries are skipped.
func (c *RedisCache) Load(ctx context.Context, productIDs []int64) (map[int64]ProductSnapshot, error) {
	keys := make([]string, 0, len(productIDs))
	byKey := make(map[string]int64, len(productIDs))
	for _, id := range productIDs {
		key := c.client.SnapshotKey(id)
		keys = append(keys, key)
		byKey[key] = id
	}
	raw, err := c.client.MGet(ctx, keys...)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]ProductSnapshot, len(raw))
	for key, value := range raw {
		var snap ProductSnapshot
		if err := json.Unmarshal([]byte(value), &snap); err != nil {
			continue
		}
		out[byKey[key]] = snap
	}
	return out, nil
}

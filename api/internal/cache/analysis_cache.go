// Package cache keeps recent analysis records in Redis so identical
// assignments are not sent to the model twice.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"equity-lens/api/internal/analysis"
)

const keyPrefix = "equity:analysis:"

// AnalysisCache is a TTL cache of normalized records.
type AnalysisCache interface {
	// Get returns (nil, nil) on a miss.
	Get(ctx context.Context, key string) (*analysis.Record, error)
	Set(ctx context.Context, key string, rec analysis.Record) error
	Ping(ctx context.Context) error
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) AnalysisCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisCache{client: client, ttl: ttl}
}

func (c *redisCache) Get(ctx context.Context, key string) (*analysis.Record, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec analysis.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		// a broken entry counts as a miss
		return nil, nil
	}
	return &rec, nil
}

func (c *redisCache) Set(ctx context.Context, key string, rec analysis.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err()
}

func (c *redisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Key hashes every input that changes the model answer.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(strings.TrimSpace(p)))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

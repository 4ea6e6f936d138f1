package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"ledgerpos/backend/internal/domain"
)

const (
	keyPrefix = "ledgerpos:"

	// summarySchema changes whenever LedgerSummary's stored shape does.
	summarySchema = 2
)

// summaryEntry is the stored form of a cached summary.
type summaryEntry struct {
	Schema   int                  `json:"schema"`
	CachedAt time.Time            `json:"cachedAt"`
	Summary  domain.LedgerSummary `json:"summary"`
}

type RedisSummaryCache struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisSummaryCache(addr string, password string, db int) *RedisSummaryCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisSummaryCache{client: client, now: time.Now}
}

func (c *RedisSummaryCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisSummaryCache) Close() error {
	return c.client.Close()
}

// Get returns the cached summary for key. Entries written under an older
// schema or that fail to decode are dropped and read as misses.
func (c *RedisSummaryCache) Get(ctx context.Context, key string) (*domain.LedgerSummary, bool, error) {
	val, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	summary, ok := decodeSummary(val)
	if !ok {
		_ = c.client.Del(ctx, keyPrefix+key).Err()
		return nil, false, nil
	}
	return summary, true, nil
}

func (c *RedisSummaryCache) Set(ctx context.Context, key string, value *domain.LedgerSummary, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := encodeSummary(value, c.now())
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+key, payload, ttl).Err()
}

func encodeSummary(value *domain.LedgerSummary, now time.Time) ([]byte, error) {
	return json.Marshal(summaryEntry{Schema: summarySchema, CachedAt: now.UTC(), Summary: *value})
}

func decodeSummary(raw []byte) (*domain.LedgerSummary, bool) {
	var entry summaryEntry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Schema != summarySchema {
		return nil, false
	}
	return &entry.Summary, true
}

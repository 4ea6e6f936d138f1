package cache

import (
	"context"
	"time"

	"ledgerpos/backend/internal/domain"
)

// SummaryCache holds computed ledger summaries. Keys identify one snapshot
// version, so entries never need invalidating; the TTL only bounds memory.
type SummaryCache interface {
	Get(ctx context.Context, key string) (*domain.LedgerSummary, bool, error)
	Set(ctx context.Context, key string, value *domain.LedgerSummary, ttl time.Duration) error
}

// NoopSummaryCache is used when no Redis address is configured.
type NoopSummaryCache struct{}

func (NoopSummaryCache) Get(_ context.Context, _ string) (*domain.LedgerSummary, bool, error) {
	return nil, false, nil
}

func (NoopSummaryCache) Set(_ context.Context, _ string, _ *domain.LedgerSummary, _ time.Duration) error {
	return nil
}

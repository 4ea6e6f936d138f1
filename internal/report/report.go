// Package report derives the ledger summary from a snapshot.
package report

import (
	"cmp"
	"context"
	"encoding/hex"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"

	"ledgerpos/backend/internal/cache"
	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/observability"
	"ledgerpos/backend/internal/snapshot"
	"ledgerpos/backend/internal/xid"
)

type Engine struct {
	cache         cache.SummaryCache
	cacheTTL      time.Duration
	cashAccountID string
	instance      string
	metrics       *observability.Metrics
	now           func() time.Time
}

func NewEngine(cacheStore cache.SummaryCache, cacheTTL time.Duration, cashAccountID string, metrics *observability.Metrics) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopSummaryCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 20 * time.Second
	}

	return &Engine{
		cache:         cacheStore,
		cacheTTL:      cacheTTL,
		cashAccountID: cashAccountID,
		instance:      xid.New("node"),
		metrics:       metrics,
		now:           time.Now,
	}
}

// Summarize returns the ledger summary for snap. Results are cached per
// snapshot version; a cache failure falls back to computing.
func (e *Engine) Summarize(ctx context.Context, snap *snapshot.Snapshot) domain.LedgerSummary {
	cacheKey := e.buildCacheKey(snap.Version)
	if cached, ok, err := e.cache.Get(ctx, cacheKey); err == nil && ok {
		e.metrics.IncrCacheHit("summary")
		return *cached
	}
	e.metrics.IncrCacheMiss("summary")

	summary := Build(snap, e.cashAccountID)
	summary.GeneratedAt = e.now().UTC()
	_ = e.cache.Set(ctx, cacheKey, &summary, e.cacheTTL)
	return summary
}

// Build computes the summary without touching the cache.
func Build(snap *snapshot.Snapshot, cashAccountID string) domain.LedgerSummary {
	receivables, advances := decimal.Zero, decimal.Zero
	for _, c := range snap.Customers {
		credit := c.TotalCredit.Decimal()
		if credit.IsPositive() {
			receivables = receivables.Add(credit)
		} else {
			advances = advances.Sub(credit)
		}
	}

	payables := decimal.Zero
	for _, v := range snap.Vendors {
		if v.TotalBalance > 0 {
			payables = payables.Add(v.TotalBalance.Decimal())
		}
	}

	balances := make(map[string]domain.Number, len(snap.Accounts))
	for id, a := range snap.Accounts {
		balances[id] = a.Balance
	}

	return domain.LedgerSummary{
		Version:          snap.Version,
		TotalReceivables: domain.NumberFromDecimal(receivables),
		TotalAdvances:    domain.NumberFromDecimal(advances),
		TotalPayables:    domain.NumberFromDecimal(payables),
		AccountBalances:  balances,
		CashOnHand:       balances[cashAccountID],
		LowStock:         lowStock(snap.Products),
	}
}

// lowStock lists products at or below their threshold, most depleted first.
func lowStock(products map[string]domain.Product) []domain.LowStockItem {
	items := make([]domain.LowStockItem, 0)
	for _, p := range products {
		if p.LowStockThreshold <= 0 || p.Stock > p.LowStockThreshold {
			continue
		}
		items = append(items, domain.LowStockItem{
			ProductID: p.ID,
			Name:      p.Name,
			Stock:     p.Stock,
			Threshold: p.LowStockThreshold,
		})
	}

	slices.SortFunc(items, func(a, b domain.LowStockItem) int {
		if c := cmp.Compare(fill(a), fill(b)); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	return items
}

func fill(item domain.LowStockItem) float64 {
	return item.Stock.Float() / item.Threshold.Float()
}

func (e *Engine) buildCacheKey(version uint64) string {
	hash := blake2b.Sum256([]byte(fmt.Sprintf("%s|%s|%d", e.instance, e.cashAccountID, version)))
	return "summary:" + hex.EncodeToString(hash[:])
}

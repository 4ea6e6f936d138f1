package snapshot

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/store"
)

// ErrStale reports that a collection could not be re-read after a change.
var ErrStale = errors.New("snapshot is stale")

// Store is the read-through table set. Apply replaces one collection's table;
// Current hands out copy-on-write snapshots.
type Store struct {
	mu      sync.RWMutex
	current *Snapshot
	logger  *zap.Logger
	unsubs  []func()
	resync  store.Resyncer
}

func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{current: Empty(), logger: logger}
}

// Attach subscribes to every collection the engine reads. Subscriptions are
// opened concurrently; each delivers its initial set before Attach returns.
func (s *Store) Attach(ctx context.Context, gw store.Gateway) error {
	if r, ok := gw.(store.Resyncer); ok {
		s.mu.Lock()
		s.resync = r
		s.mu.Unlock()
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, collection := range domain.Collections {
		if collection == domain.CollectionAuditLogs {
			continue
		}
		g.Go(func() error {
			unsubscribe, err := gw.Subscribe(gctx, collection, func(docs []store.Document) {
				s.Apply(collection, docs)
			})
			if err != nil {
				return err
			}
			s.mu.Lock()
			s.unsubs = append(s.unsubs, unsubscribe)
			s.mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.Close()
		return err
	}
	return nil
}

func (s *Store) Close() {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()
	for _, unsubscribe := range unsubs {
		unsubscribe()
	}
}

// Sync brings collections whose change broadcast was lost back up to date.
// Plans must not be built while it fails: the tables may predate a
// committed write.
func (s *Store) Sync(ctx context.Context) error {
	s.mu.RLock()
	r := s.resync
	s.mu.RUnlock()
	if r == nil {
		return nil
	}
	if err := r.Resync(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStale, err)
	}
	return nil
}

// Current returns the latest snapshot. Callers must not mutate it.
func (s *Store) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Apply replaces the table for collection with docs and bumps the version.
// Documents that fail to decode are skipped with a warning.
func (s *Store) Apply(collection domain.Collection, docs []store.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.current
	next.Version++

	switch collection {
	case domain.CollectionProducts:
		next.Products = decodeTable[domain.Product](s.logger, collection, docs)
	case domain.CollectionCategories:
		next.Categories = decodeTable[domain.Category](s.logger, collection, docs)
		next.Products = maps.Clone(next.Products)
	case domain.CollectionCustomers:
		next.Customers = decodeTable[domain.Customer](s.logger, collection, docs)
	case domain.CollectionVendors:
		next.Vendors = decodeTable[domain.Vendor](s.logger, collection, docs)
	case domain.CollectionAccounts:
		next.Accounts = decodeTable[domain.BankAccount](s.logger, collection, docs)
	case domain.CollectionTransactions:
		next.Transactions = decodeTable[domain.Transaction](s.logger, collection, docs)
	case domain.CollectionPurchaseOrders:
		next.PurchaseOrders = decodeTable[domain.PurchaseOrder](s.logger, collection, docs)
	default:
		return
	}
	if collection == domain.CollectionProducts || collection == domain.CollectionCategories {
		next.classify()
	}
	s.current = &next
}

func decodeTable[T any](logger *zap.Logger, collection domain.Collection, docs []store.Document) map[string]T {
	table := make(map[string]T, len(docs))
	for _, doc := range docs {
		var record T
		if err := store.Decode(doc, &record); err != nil {
			logger.Warn("skipping undecodable document",
				zap.String("collection", string(collection)),
				zap.String("id", doc.ID()),
				zap.Error(err))
			continue
		}
		table[doc.ID()] = record
	}
	return table
}

package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/resilience"
	"ledgerpos/backend/internal/snapshot"
	"ledgerpos/backend/internal/store"
	"ledgerpos/backend/internal/store/memory"
	"ledgerpos/backend/internal/uow"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// harness runs engine plans against an in-memory gateway so tests observe
// the ledger the way the service does.
type harness struct {
	t     *testing.T
	gw    *memory.Store
	snaps *snapshot.Store
	exec  *uow.Executor
	eng   *Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gw := memory.New()
	snaps := snapshot.NewStore(zap.NewNop())
	require.NoError(t, snaps.Attach(context.Background(), gw))
	t.Cleanup(snaps.Close)

	seq := 0
	eng := New(
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func(prefix string) string {
			seq++
			return fmt.Sprintf("%s-%03d", prefix, seq)
		}),
	)
	return &harness{
		t:     t,
		gw:    gw,
		snaps: snaps,
		exec:  uow.NewExecutor(gw, resilience.Config{MaxRetries: 0, InitialBackoff: time.Millisecond}, zap.NewNop(), nil),
		eng:   eng,
	}
}

func (h *harness) seed(collection domain.Collection, records ...any) {
	h.t.Helper()
	docs := make([]store.Document, 0, len(records))
	for _, record := range records {
		doc, err := store.Encode(record)
		require.NoError(h.t, err)
		docs = append(docs, doc)
	}
	require.NoError(h.t, h.gw.BulkUpsert(context.Background(), collection, docs))
}

func (h *harness) snap() *snapshot.Snapshot {
	return h.snaps.Current()
}

func (h *harness) run(plan *uow.Plan) *uow.Result {
	h.t.Helper()
	require.NotNil(h.t, plan)
	result, err := h.exec.Execute(context.Background(), plan)
	require.NoError(h.t, err)
	return result
}

func (h *harness) product(id string) domain.Product {
	h.t.Helper()
	p, ok := h.snap().Product(id)
	require.True(h.t, ok, "product %s", id)
	return p
}

func (h *harness) customer(id string) domain.Customer {
	h.t.Helper()
	c, ok := h.snap().Customer(id)
	require.True(h.t, ok, "customer %s", id)
	return c
}

func (h *harness) vendor(id string) domain.Vendor {
	h.t.Helper()
	v, ok := h.snap().Vendor(id)
	require.True(h.t, ok, "vendor %s", id)
	return v
}

func (h *harness) account(id string) domain.BankAccount {
	h.t.Helper()
	a, ok := h.snap().Account(id)
	require.True(h.t, ok, "account %s", id)
	return a
}

func (h *harness) transaction(id string) domain.Transaction {
	h.t.Helper()
	tx, ok := h.snap().Transaction(id)
	require.True(h.t, ok, "transaction %s", id)
	return tx
}

// standardFixture seeds one standard product, one reload product, a customer,
// a vendor and two accounts.
func standardFixture(h *harness) {
	h.seed(domain.CollectionCategories,
		domain.Category{ID: "cat-general", Name: "General"},
		domain.Category{ID: "cat-pulsa", Name: "Pulsa Reload"},
	)
	h.seed(domain.CollectionProducts,
		domain.Product{ID: "p-std", Name: "Soap", CategoryID: "cat-general", Cost: 40, Price: 100, BranchStocks: map[string]domain.Number{"Main": 10}, Stock: 10, Kind: domain.KindStandard},
		domain.Product{ID: "p-reload", Name: "Wallet", CategoryID: "cat-pulsa", Price: 100, BranchStocks: map[string]domain.Number{"Main": 50}, Stock: 50, Kind: domain.KindReload},
	)
	h.seed(domain.CollectionCustomers, domain.Customer{ID: "cus-1", Name: "Sari"})
	h.seed(domain.CollectionVendors, domain.Vendor{ID: "ven-1", Name: "Pangan", TotalBalance: 1000})
	h.seed(domain.CollectionAccounts,
		domain.BankAccount{ID: "cash", Name: "Cash", Balance: 5000},
		domain.BankAccount{ID: "acc-bank", Name: "Bank", Balance: 2000},
	)
}

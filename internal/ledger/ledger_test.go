package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerpos/backend/internal/domain"
)

func paid(v float64) *domain.Number {
	n := domain.Number(v)
	return &n
}

func TestResolveStockBranch(t *testing.T) {
	cases := map[string]string{
		"":             DefaultBranch,
		"   ":          DefaultBranch,
		"main":         DefaultBranch,
		"Head  Office": DefaultBranch,
		"online store": DefaultBranch,
		"kiosk":        DefaultBranch,
		"Airport":      "Airport",
		" Airport ":    "Airport",
		"Mall  Outlet": "Mall Outlet",
	}
	for in, want := range cases {
		assert.Equal(t, want, ResolveStockBranch(in), "branch %q", in)
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, domain.KindReload, Classify("cat-1", "Mobile Reload"))
	assert.Equal(t, domain.KindReload, Classify("cat-reload", ""))
	assert.Equal(t, domain.KindStandard, Classify("cat-general", "Groceries"))
	assert.Equal(t, domain.KindReload, KindOf(domain.Product{CategoryID: "RELOAD-01"}))
	assert.Equal(t, domain.KindStandard, KindOf(domain.Product{CategoryID: "RELOAD-01", Kind: domain.KindStandard}))
}

func TestDeductionAmount(t *testing.T) {
	item := domain.LineItem{ProductID: "p", Quantity: 1, Price: 100}
	assert.InDelta(t, 1, DeductionAmount(item, domain.KindStandard), 1e-9)
	assert.InDelta(t, 96, DeductionAmount(item, domain.KindReload), 1e-9)
	assert.InDelta(t, 1, DeductionAmount(item, ""), 1e-9)
}

func TestApplyStockDeltaClampsStandard(t *testing.T) {
	p := domain.Product{ID: "p", BranchStocks: map[string]domain.Number{"Main": 2, "Airport": 5}}

	out := ApplyStockDelta(p, "Main", -3, domain.KindStandard)
	assert.Equal(t, domain.Number(0), out.BranchStocks["Main"])
	assert.Equal(t, domain.Number(5), out.Stock)
	assert.Equal(t, domain.Number(2), p.BranchStocks["Main"], "input must not be mutated")
}

func TestApplyStockDeltaReloadGoesNegative(t *testing.T) {
	p := domain.Product{ID: "r", Kind: domain.KindReload, BranchStocks: map[string]domain.Number{"Main": 50}}

	out := ApplyStockDelta(p, "Main", -96, domain.KindReload)
	assert.InDelta(t, -46, out.BranchStocks["Main"].Float(), 1e-9)
	assert.InDelta(t, -46, out.Stock.Float(), 1e-9)
}

func TestApplyStockDeltaLegacyStock(t *testing.T) {
	p := domain.Product{ID: "p", Stock: 10}

	out := ApplyStockDelta(p, "Main", -3, domain.KindStandard)
	assert.Equal(t, domain.Number(7), out.BranchStocks["Main"])
	assert.Equal(t, domain.Number(7), out.Stock)
}

func TestBranchStockFallsBackOnlyWithoutBranches(t *testing.T) {
	legacy := domain.Product{Stock: 12}
	assert.Equal(t, domain.Number(12), BranchStock(legacy, "Airport"))

	tracked := domain.Product{Stock: 12, BranchStocks: map[string]domain.Number{DefaultBranch: 12}}
	assert.Equal(t, domain.Number(12), BranchStock(tracked, DefaultBranch))
	assert.Equal(t, domain.Number(0), BranchStock(tracked, "Airport"))
}

func TestNetStockChange(t *testing.T) {
	kinds := func(id string) domain.ProductKind {
		if id == "r" {
			return domain.KindReload
		}
		return domain.KindStandard
	}
	oldItems := []domain.LineItem{{ProductID: "p", Quantity: 3}, {ProductID: "r", Quantity: 1, Price: 100}}
	newItems := []domain.LineItem{{ProductID: "p", Quantity: 5}}

	net := NetStockChange(oldItems, "main", newItems, "HQ", kinds)
	require.Len(t, net, 2)
	assert.InDelta(t, -2, net[StockKey{ProductID: "p", Branch: DefaultBranch}], 1e-9)
	assert.InDelta(t, 96, net[StockKey{ProductID: "r", Branch: DefaultBranch}], 1e-9)

	moved := NetStockChange(newItems, "Main", newItems, "Airport", kinds)
	assert.InDelta(t, 5, moved[StockKey{ProductID: "p", Branch: DefaultBranch}], 1e-9)
	assert.InDelta(t, -5, moved[StockKey{ProductID: "p", Branch: "Airport"}], 1e-9)
}

func TestCostBasis(t *testing.T) {
	products := map[string]domain.Product{
		"p": {ID: "p", Cost: 12},
		"r": {ID: "r", Kind: domain.KindReload},
	}
	lookup := func(id string) (domain.Product, bool) {
		p, ok := products[id]
		return p, ok
	}
	items := []domain.LineItem{
		{ProductID: "p", Quantity: 2, Price: 20},
		{ProductID: "r", Quantity: 1, Price: 100},
		{ProductID: "missing", Quantity: 9, Price: 9},
	}
	assert.InDelta(t, 24+96, CostBasis(items, lookup), 1e-9)
}

func TestImpacts(t *testing.T) {
	tests := []struct {
		name                            string
		tx                              domain.Transaction
		inflow, credit, vendor, account float64
	}{
		{
			name:   "cash sale",
			tx:     domain.Transaction{Type: domain.TxSale, Amount: 100, PaymentMethod: domain.PayCash},
			inflow: 100, account: 100,
		},
		{
			name:   "credit sale",
			tx:     domain.Transaction{Type: domain.TxSale, Amount: 500, PaymentMethod: domain.PayCredit},
			credit: 500,
		},
		{
			name:   "partial sale",
			tx:     domain.Transaction{Type: domain.TxSale, Amount: 500, PaidAmount: paid(300), BalanceDue: 200, PaymentMethod: domain.PayCash},
			inflow: 300, credit: 200, account: 300,
		},
		{
			name:   "customer payment",
			tx:     domain.Transaction{Type: domain.TxCreditPayment, Amount: 200, CustomerID: "c"},
			inflow: 200, credit: -200, vendor: -200, account: 200,
		},
		{
			name:   "vendor payment",
			tx:     domain.Transaction{Type: domain.TxCreditPayment, Amount: 300, VendorID: "v"},
			inflow: 300, credit: -300, vendor: -300, account: -300,
		},
		{
			name:   "credit purchase",
			tx:     domain.Transaction{Type: domain.TxPurchase, Amount: 1000, PaymentMethod: domain.PayCredit},
			vendor: 1000,
		},
		{
			name:   "direct cash purchase",
			tx:     domain.Transaction{Type: domain.TxPurchase, Amount: 250, PaymentMethod: domain.PayCash, VendorID: "v"},
			inflow: 250, vendor: 250, account: -250,
		},
		{
			name:   "cash purchase order",
			tx:     domain.Transaction{Type: domain.TxPurchase, Amount: 1000, PaymentMethod: domain.PayCash, PurchaseOrderID: "po"},
			inflow: 1000, account: -1000,
		},
		{
			name:   "expense",
			tx:     domain.Transaction{Type: domain.TxExpense, Amount: 40, PaymentMethod: domain.PayCash},
			inflow: 40, account: -40,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.inflow, RealizedInflow(tt.tx), 1e-9, "inflow")
			assert.InDelta(t, tt.credit, CreditImpact(tt.tx), 1e-9, "credit")
			assert.InDelta(t, tt.vendor, VendorImpact(tt.tx), 1e-9, "vendor")
			assert.InDelta(t, tt.account, AccountImpact(tt.tx), 1e-9, "account")
		})
	}
}

func TestEffectsTransfer(t *testing.T) {
	tx := domain.Transaction{Type: domain.TxTransfer, Amount: 450, AccountID: "cash", DestinationAccountID: "acc-x", Status: domain.StatusCompleted}

	effects := Effects(tx)
	require.Len(t, effects, 2)
	assert.InDelta(t, -450, effects[Target{Collection: domain.CollectionAccounts, ID: "cash"}], 1e-9)
	assert.InDelta(t, 450, effects[Target{Collection: domain.CollectionAccounts, ID: "acc-x"}], 1e-9)
}

func TestEffectDeltaIgnoresDrafts(t *testing.T) {
	draft := domain.Transaction{Type: domain.TxSale, Status: domain.StatusDraft, Amount: 100, AccountID: "cash", PaymentMethod: domain.PayCash}
	assert.Empty(t, EffectDelta(nil, &draft))

	completed := draft
	completed.Status = domain.StatusCompleted
	delta := EffectDelta(&draft, &completed)
	assert.InDelta(t, 100, delta[Target{Collection: domain.CollectionAccounts, ID: "cash"}], 1e-9)

	assert.Empty(t, EffectDelta(&completed, &completed))

	reversed := EffectDelta(&completed, nil)
	assert.InDelta(t, -100, reversed[Target{Collection: domain.CollectionAccounts, ID: "cash"}], 1e-9)
}

func TestEffectDeltaMovesBetweenCustomers(t *testing.T) {
	prev := domain.Transaction{Type: domain.TxSale, Status: domain.StatusCompleted, Amount: 500, PaymentMethod: domain.PayCredit, CustomerID: "a"}
	next := prev
	next.CustomerID = "b"
	next.Amount = 400

	delta := EffectDelta(&prev, &next)
	assert.InDelta(t, -500, delta[Target{Collection: domain.CollectionCustomers, ID: "a"}], 1e-9)
	assert.InDelta(t, 400, delta[Target{Collection: domain.CollectionCustomers, ID: "b"}], 1e-9)
}

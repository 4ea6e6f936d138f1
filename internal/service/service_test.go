package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/engine"
	"ledgerpos/backend/internal/observability"
	"ledgerpos/backend/internal/snapshot"
	"ledgerpos/backend/internal/store"
	"ledgerpos/backend/internal/store/memory"
	"ledgerpos/backend/internal/uow"
)

var errStoreDown = errors.New("store down")

// flakyGateway fails every upsert to one collection.
type flakyGateway struct {
	*memory.Store
	failOn domain.Collection
}

func (g *flakyGateway) Upsert(ctx context.Context, collection domain.Collection, id string, patch store.Document) error {
	if collection == g.failOn {
		return errStoreDown
	}
	return g.Store.Upsert(ctx, collection, id, patch)
}

// relistingGateway broadcasts by re-reading the collection after each write,
// the way the postgres store does, and can be made to fail those reads.
type relistingGateway struct {
	*memory.Store
	hub      *store.Hub
	failList atomic.Bool
}

func newRelistingGateway() *relistingGateway {
	return &relistingGateway{Store: memory.NewSeeded(), hub: store.NewHub()}
}

func (g *relistingGateway) Subscribe(ctx context.Context, collection domain.Collection, fn store.Listener) (func(), error) {
	sub, unsubscribe := g.hub.Add(collection, fn)
	seq := g.hub.Reserve()
	docs, err := g.Store.List(ctx, collection)
	if err != nil {
		unsubscribe()
		return nil, err
	}
	sub.Deliver(seq, docs)
	return unsubscribe, nil
}

func (g *relistingGateway) List(ctx context.Context, collection domain.Collection) ([]store.Document, error) {
	if g.failList.Load() {
		return nil, errStoreDown
	}
	return g.Store.List(ctx, collection)
}

func (g *relistingGateway) Upsert(ctx context.Context, collection domain.Collection, id string, patch store.Document) error {
	if err := g.Store.Upsert(ctx, collection, id, patch); err != nil {
		return err
	}
	_ = g.hub.Refresh(ctx, collection, g.List)
	return nil
}

func (g *relistingGateway) Delete(ctx context.Context, collection domain.Collection, id string) error {
	if err := g.Store.Delete(ctx, collection, id); err != nil {
		return err
	}
	_ = g.hub.Refresh(ctx, collection, g.List)
	return nil
}

func (g *relistingGateway) Resync(ctx context.Context) error {
	return g.hub.Resync(ctx, g.List)
}

func storedBalance(t *testing.T, gw *relistingGateway, id string) float64 {
	t.Helper()
	docs, err := gw.Store.List(context.Background(), domain.CollectionAccounts)
	if err != nil {
		t.Fatalf("list accounts: %v", err)
	}
	for _, doc := range docs {
		if doc.ID() == id {
			return domain.CoerceNumber(doc["balance"])
		}
	}
	t.Fatalf("account %s not stored", id)
	return 0
}

func newTestServiceWith(t *testing.T, gw store.Gateway, opts Options) *Service {
	t.Helper()
	snaps := snapshot.NewStore(zap.NewNop())
	if err := snaps.Attach(context.Background(), gw); err != nil {
		t.Fatalf("attach snapshot store: %v", err)
	}
	t.Cleanup(snaps.Close)
	return New(gw, snaps, engine.New(), nil, opts)
}

func newTestService(t *testing.T) *Service {
	return newTestServiceWith(t, memory.NewSeeded(), Options{Logger: zap.NewNop()})
}

func TestCompleteSaleUpdatesLedgerAndAudits(t *testing.T) {
	svc := newTestService(t)
	ctx := WithActor(context.Background(), domain.Actor{Username: "kasir-a", Role: "cashier"})

	out, err := svc.CompleteSale(ctx, domain.Transaction{
		Amount:    195000,
		AccountID: "cash",
		BranchID:  "Front Counter",
		Items: []domain.LineItem{
			{ProductID: "prd-rice-5kg", Quantity: 3, Price: 65000},
		},
	})
	if err != nil {
		t.Fatalf("complete sale failed: %v", err)
	}
	if !out.Result.Complete() || len(out.Result.Applied) != 3 {
		t.Fatalf("expected 3 applied writes, got %+v", out.Result)
	}

	rice, err := svc.GetProduct(ctx, "prd-rice-5kg")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if rice.BranchStocks["Main"] != 37 || rice.Stock != 37 {
		t.Fatalf("expected Main stock 37, got %v (total %v)", rice.BranchStocks, rice.Stock)
	}
	if _, ok := rice.BranchStocks["Front Counter"]; ok {
		t.Fatalf("aliased branch must not get its own bucket")
	}

	summary := svc.Summary(ctx)
	if summary.CashOnHand != 1195000 {
		t.Fatalf("expected cash on hand 1195000, got %v", summary.CashOnHand)
	}

	logs, err := svc.ListAuditLogs(ctx, 10)
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != "complete_sale" || logs[0].Actor != "kasir-a" || logs[0].EntityID != out.Record.ID {
		t.Fatalf("unexpected audit logs: %+v", logs)
	}
}

func TestCreditSaleAndPaymentThroughService(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sale, err := svc.CompleteSale(ctx, domain.Transaction{
		Amount:        500,
		BalanceDue:    500,
		PaymentMethod: domain.PayCredit,
		CustomerID:    "cus-warung-sari",
		Items:         []domain.LineItem{{ProductID: "prd-tea-500", Quantity: 1, Price: 500}},
	})
	if err != nil {
		t.Fatalf("credit sale failed: %v", err)
	}

	_, err = svc.RecordCustomerPayment(ctx, domain.Transaction{
		Amount:     200,
		CustomerID: "cus-warung-sari",
		AccountID:  "acc-bca",
		ParentTxID: sale.Record.ID,
	})
	if err != nil {
		t.Fatalf("payment failed: %v", err)
	}

	var credit domain.Number
	for _, c := range svc.ListCustomers(ctx) {
		if c.ID == "cus-warung-sari" {
			credit = c.TotalCredit
		}
	}
	if credit != 300 {
		t.Fatalf("expected totalCredit 300, got %v", credit)
	}

	parent, err := svc.GetTransaction(ctx, sale.Record.ID)
	if err != nil {
		t.Fatalf("get parent: %v", err)
	}
	if paid, _ := parent.Paid(); paid != 200 || parent.BalanceDue != 300 {
		t.Fatalf("expected paid 200 / due 300, got %v / %v", paid, parent.BalanceDue)
	}

	payments := svc.ListTransactions(ctx, TransactionFilter{Type: domain.TxCreditPayment})
	if len(payments) != 1 {
		t.Fatalf("expected one payment, got %d", len(payments))
	}
}

func TestPartialFailureReportsAppliedWrites(t *testing.T) {
	gw := &flakyGateway{Store: memory.NewSeeded(), failOn: domain.CollectionAccounts}
	metrics := observability.NewMetrics()
	svc := newTestServiceWith(t, gw, Options{Metrics: metrics})
	ctx := context.Background()

	_, err := svc.CompleteSale(ctx, domain.Transaction{
		Amount:    5000,
		AccountID: "cash",
		Items:     []domain.LineItem{{ProductID: "prd-tea-500", Quantity: 1, Price: 5000}},
	})

	var partial *uow.PartialFailureError
	if !errors.As(err, &partial) {
		t.Fatalf("expected partial failure, got %v", err)
	}
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if len(partial.Result.Applied) != 1 || partial.Result.Applied[0].Collection != domain.CollectionProducts {
		t.Fatalf("expected the stock write to be applied, got %+v", partial.Result.Applied)
	}
	if partial.Result.Failed == nil || partial.Result.Failed.Collection != domain.CollectionAccounts {
		t.Fatalf("expected the account write to fail, got %+v", partial.Result.Failed)
	}
	if len(partial.Result.Pending) != 1 || partial.Result.Pending[0].Collection != domain.CollectionTransactions {
		t.Fatalf("expected the transaction write pending, got %+v", partial.Result.Pending)
	}

	tea, _ := svc.GetProduct(ctx, "prd-tea-500")
	if tea.BranchStocks["Main"] != 119 {
		t.Fatalf("without compensation the applied write stays, got %v", tea.BranchStocks["Main"])
	}

	logs, _ := svc.ListAuditLogs(ctx, 10)
	if len(logs) != 0 {
		t.Fatalf("failed operations are not audited, got %d", len(logs))
	}
}

func TestPartialFailureCompensates(t *testing.T) {
	gw := &flakyGateway{Store: memory.NewSeeded(), failOn: domain.CollectionAccounts}
	svc := newTestServiceWith(t, gw, Options{Compensate: true})
	ctx := context.Background()

	_, err := svc.CompleteSale(ctx, domain.Transaction{
		Amount:    5000,
		AccountID: "cash",
		Items:     []domain.LineItem{{ProductID: "prd-tea-500", Quantity: 2, Price: 2500}},
	})
	if err == nil {
		t.Fatalf("expected failure")
	}

	tea, _ := svc.GetProduct(ctx, "prd-tea-500")
	if tea.BranchStocks["Main"] != 120 || tea.Stock != 144 {
		t.Fatalf("expected stock restored to 120/144, got %v/%v", tea.BranchStocks["Main"], tea.Stock)
	}
}

func TestLostBroadcastBlocksPlansUntilResynced(t *testing.T) {
	gw := newRelistingGateway()
	svc := newTestServiceWith(t, gw, Options{Logger: zap.NewNop()})
	ctx := context.Background()

	gw.failList.Store(true)
	if _, err := svc.CompleteSale(ctx, domain.Transaction{
		Amount:    5000,
		AccountID: "cash",
		Items:     []domain.LineItem{{ProductID: "prd-tea-500", Quantity: 1, Price: 5000}},
	}); err != nil {
		t.Fatalf("sale writes commit even when the broadcast fails: %v", err)
	}
	if got := storedBalance(t, gw, "cash"); got != 1005000 {
		t.Fatalf("expected stored cash 1005000, got %v", got)
	}

	_, err := svc.RecordExpense(ctx, domain.Transaction{Amount: 50, AccountID: "cash"})
	if !errors.Is(err, snapshot.ErrStale) {
		t.Fatalf("expected stale snapshot error, got %v", err)
	}
	if got := storedBalance(t, gw, "cash"); got != 1005000 {
		t.Fatalf("a stale plan must not overwrite cash, got %v", got)
	}

	gw.failList.Store(false)
	if _, err := svc.RecordExpense(ctx, domain.Transaction{Amount: 50, AccountID: "cash"}); err != nil {
		t.Fatalf("expense after recovery: %v", err)
	}
	if got := storedBalance(t, gw, "cash"); got != 1004950 {
		t.Fatalf("expected stored cash 1004950, got %v", got)
	}
	if summary := svc.Summary(ctx); summary.CashOnHand != 1004950 {
		t.Fatalf("expected snapshot cash 1004950, got %v", summary.CashOnHand)
	}
}

func TestReceivePurchaseOrderFlow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	saved, err := svc.SavePurchaseOrder(ctx, domain.PurchaseOrder{
		VendorID: "ven-sumber-pangan",
		Status:   domain.POStatusPending,
		Items:    []domain.PurchaseOrderItem{{ProductID: "prd-rice-5kg", Quantity: 10, Cost: 57000}},
	})
	if err != nil {
		t.Fatalf("save purchase order: %v", err)
	}

	receipt, err := svc.ReceivePurchaseOrder(ctx, saved.Record.ID)
	if err != nil {
		t.Fatalf("receive purchase order: %v", err)
	}
	if receipt.Record.Purchase == nil || receipt.Record.Purchase.Amount != 570000 {
		t.Fatalf("expected purchase of 570000, got %+v", receipt.Record.Purchase)
	}

	again, err := svc.ReceivePurchaseOrder(ctx, saved.Record.ID)
	if err != nil {
		t.Fatalf("second receive: %v", err)
	}
	if again.Record.Purchase != nil || len(again.Result.Applied) != 0 {
		t.Fatalf("second receive must be a no-op")
	}

	summary := svc.Summary(ctx)
	if summary.TotalPayables != 570000 {
		t.Fatalf("expected payables 570000, got %v", summary.TotalPayables)
	}
	if orders := svc.ListPurchaseOrders(ctx, domain.POStatusReceived); len(orders) != 1 {
		t.Fatalf("expected one received order, got %d", len(orders))
	}

	logs, _ := svc.ListAuditLogs(ctx, 10)
	if len(logs) != 2 {
		t.Fatalf("expected save and receive audited once each, got %d", len(logs))
	}
}

func TestCloseAccountThroughService(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SaveAccount(ctx, domain.BankAccount{ID: "acc-card", Name: "Card Settlement", Balance: -450}); err != nil {
		t.Fatalf("save account: %v", err)
	}

	out, err := svc.CloseAccount(ctx, "acc-card")
	if err != nil {
		t.Fatalf("close account: %v", err)
	}
	if out.Record.Transfer == nil || out.Record.Transfer.Amount != 450 {
		t.Fatalf("expected closing transfer of 450, got %+v", out.Record.Transfer)
	}
	for _, a := range svc.ListAccounts(ctx) {
		if a.ID == "acc-card" {
			t.Fatalf("account should be deleted")
		}
		if a.ID == "cash" && a.Balance != 999550 {
			t.Fatalf("expected cash 999550, got %v", a.Balance)
		}
	}
}

func TestValidationErrorsSurface(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.RecordExpense(ctx, domain.Transaction{Amount: 10}); !errors.Is(err, store.ErrInvalidTransaction) {
		t.Fatalf("expected invalid transaction, got %v", err)
	}
	if _, err := svc.DeleteTransaction(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.GetTransaction(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

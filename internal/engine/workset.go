package engine

import (
	"cmp"
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/ledger"
	"ledgerpos/backend/internal/snapshot"
	"ledgerpos/backend/internal/store"
	"ledgerpos/backend/internal/uow"
)

type productChange struct {
	before    domain.Product
	after     domain.Product
	delta     decimal.Decimal
	costMoved bool
}

type balanceChange struct {
	before decimal.Decimal
	after  decimal.Decimal
}

type invoiceChange struct {
	before domain.Transaction
	after  domain.Transaction
}

// workset accumulates changes per aggregate so an operation that touches
// the same document twice still issues a single write for it.
type workset struct {
	snap     *snapshot.Snapshot
	plan     *uow.Plan
	products map[string]*productChange
	balances map[ledger.Target]*balanceChange
	invoices map[string]*invoiceChange
	order    []ledger.Target
}

func newWorkset(snap *snapshot.Snapshot, operation string) *workset {
	return &workset{
		snap:     snap,
		plan:     uow.NewPlan(operation),
		products: make(map[string]*productChange),
		balances: make(map[ledger.Target]*balanceChange),
		invoices: make(map[string]*invoiceChange),
	}
}

func (w *workset) product(id string) (*productChange, bool) {
	if change, ok := w.products[id]; ok {
		return change, true
	}
	p, ok := w.snap.Product(id)
	if !ok {
		return nil, false
	}
	change := &productChange{before: p, after: p}
	w.products[id] = change
	w.order = append(w.order, ledger.Target{Collection: domain.CollectionProducts, ID: id})
	return change, true
}

func (w *workset) adjustStock(productID string, branch string, signed float64) {
	if signed == 0 {
		return
	}
	change, ok := w.product(productID)
	if !ok {
		w.plan.Skip(domain.CollectionProducts, productID, signed, "product not found")
		return
	}
	change.after = ledger.ApplyStockDelta(change.after, branch, signed, ledger.KindOf(change.after))
	change.delta = change.delta.Add(decimal.NewFromFloat(signed))
}

func (w *workset) setCost(productID string, cost domain.Number) {
	change, ok := w.product(productID)
	if !ok {
		return
	}
	if change.after.Cost != cost {
		change.after.Cost = cost
		change.costMoved = true
	}
}

func balanceOf(snap *snapshot.Snapshot, target ledger.Target) (domain.Number, bool) {
	switch target.Collection {
	case domain.CollectionCustomers:
		c, ok := snap.Customer(target.ID)
		return c.TotalCredit, ok
	case domain.CollectionVendors:
		v, ok := snap.Vendor(target.ID)
		return v.TotalBalance, ok
	case domain.CollectionAccounts:
		a, ok := snap.Account(target.ID)
		return a.Balance, ok
	}
	return 0, false
}

func balanceField(collection domain.Collection) string {
	switch collection {
	case domain.CollectionCustomers:
		return "totalCredit"
	case domain.CollectionVendors:
		return "totalBalance"
	default:
		return "balance"
	}
}

func (w *workset) adjustBalance(target ledger.Target, amount float64) {
	if amount == 0 || target.ID == "" {
		return
	}
	change, ok := w.balances[target]
	if !ok {
		current, found := balanceOf(w.snap, target)
		if !found {
			w.plan.Skip(target.Collection, target.ID, amount, "reference not found")
			return
		}
		change = &balanceChange{before: current.Decimal(), after: current.Decimal()}
		w.balances[target] = change
		w.order = append(w.order, target)
	}
	change.after = change.after.Add(decimal.NewFromFloat(amount))
}

// balance reads the working value of an aggregate balance.
func (w *workset) balance(target ledger.Target) (decimal.Decimal, bool) {
	if change, ok := w.balances[target]; ok {
		return change.after, true
	}
	current, ok := balanceOf(w.snap, target)
	return current.Decimal(), ok
}

// settleInvoice moves paid onto the parent invoice: paidAmount grows by
// paid and balanceDue shrinks by it, never below zero.
func (w *workset) settleInvoice(parentID string, paid float64) {
	if paid == 0 || parentID == "" {
		return
	}
	change, ok := w.invoices[parentID]
	if !ok {
		parent, found := w.snap.Transaction(parentID)
		if !found {
			w.plan.Skip(domain.CollectionTransactions, parentID, paid, "parent invoice not found")
			return
		}
		change = &invoiceChange{before: parent, after: parent}
		w.invoices[parentID] = change
		w.order = append(w.order, ledger.Target{Collection: domain.CollectionTransactions, ID: parentID})
	}

	amount := decimal.NewFromFloat(paid)
	current, _ := change.after.Paid()
	nextPaid := domain.NumberFromDecimal(current.Decimal().Add(amount))
	change.after.PaidAmount = &nextPaid

	due := change.after.BalanceDue.Decimal().Sub(amount)
	if due.IsNegative() {
		due = decimal.Zero
	}
	change.after.BalanceDue = domain.NumberFromDecimal(due)
}

// flush turns accumulated changes into plan writes in first-touch order.
func (w *workset) flush() {
	for _, target := range w.order {
		switch target.Collection {
		case domain.CollectionProducts:
			w.flushProduct(target.ID, w.products[target.ID])
		case domain.CollectionTransactions:
			w.flushInvoice(target.ID, w.invoices[target.ID])
		default:
			w.flushBalance(target, w.balances[target])
		}
	}
}

func (w *workset) flushProduct(id string, change *productChange) {
	if change.delta.IsZero() && !change.costMoved &&
		maps.Equal(change.before.BranchStocks, change.after.BranchStocks) {
		return
	}
	patch := store.Document{
		"branchStocks": stockDocument(change.after.BranchStocks),
		"stock":        change.after.Stock.Float(),
	}
	undo := store.Document{
		"branchStocks": stockDocument(change.before.BranchStocks),
		"stock":        change.before.Stock.Float(),
	}
	label := "stock"
	if change.costMoved {
		patch["cost"] = change.after.Cost.Float()
		undo["cost"] = change.before.Cost.Float()
		label = "stock+cost"
	}
	delta, _ := change.delta.Float64()
	w.plan.Upsert(domain.CollectionProducts, id, label, delta, patch, undo)
}

func (w *workset) flushBalance(target ledger.Target, change *balanceChange) {
	delta := change.after.Sub(change.before)
	if delta.IsZero() {
		return
	}
	field := balanceField(target.Collection)
	after, _ := change.after.Float64()
	before, _ := change.before.Float64()
	d, _ := delta.Float64()
	w.plan.Upsert(target.Collection, target.ID, field, d,
		store.Document{field: after},
		store.Document{field: before})
}

func (w *workset) flushInvoice(id string, change *invoiceChange) {
	paidBefore, _ := change.before.Paid()
	paidAfter, _ := change.after.Paid()
	patch := store.Document{
		"paidAmount": paidAfter.Float(),
		"balanceDue": change.after.BalanceDue.Float(),
	}
	undo := store.Document{
		"paidAmount": nil,
		"balanceDue": change.before.BalanceDue.Float(),
	}
	if change.before.PaidAmount != nil {
		undo["paidAmount"] = paidBefore.Float()
	}
	delta := paidAfter.Decimal().Sub(paidBefore.Decimal())
	d, _ := delta.Float64()
	w.plan.Upsert(domain.CollectionTransactions, id, "settlement", d, patch, undo)
}

func stockDocument(stocks map[string]domain.Number) map[string]any {
	if stocks == nil {
		return nil
	}
	out := make(map[string]any, len(stocks))
	for branch, qty := range stocks {
		out[branch] = qty.Float()
	}
	return out
}

// applyDelta plans the corrections that take the ledger from prev to next.
// Either side may be nil; only completed transactions carry effects.
func (w *workset) applyDelta(prev *domain.Transaction, next *domain.Transaction) {
	var oldItems, newItems []domain.LineItem
	var oldBranch, newBranch string
	if carriesStock(prev) {
		oldItems, oldBranch = prev.Items, prev.BranchID
	}
	if carriesStock(next) {
		newItems, newBranch = next.Items, next.BranchID
	}

	net := ledger.NetStockChange(oldItems, oldBranch, newItems, newBranch, w.snap.KindOf)
	for _, key := range sortedStockKeys(net) {
		w.adjustStock(key.ProductID, key.Branch, net[key])
	}

	deltas := ledger.EffectDelta(prev, next)
	for _, target := range sortedTargets(deltas) {
		w.adjustBalance(target, deltas[target])
	}

	settlements := make(map[string]decimal.Decimal)
	if parent, amount, ok := settlement(prev); ok {
		settlements[parent] = settlements[parent].Sub(decimal.NewFromFloat(amount))
	}
	if parent, amount, ok := settlement(next); ok {
		settlements[parent] = settlements[parent].Add(decimal.NewFromFloat(amount))
	}
	for _, parent := range slices.Sorted(maps.Keys(settlements)) {
		amount, _ := settlements[parent].Float64()
		w.settleInvoice(parent, amount)
	}
}

func carriesStock(tx *domain.Transaction) bool {
	return tx != nil && tx.Status == domain.StatusCompleted && tx.Type == domain.TxSale
}

// settlement reports the invoice a completed customer payment settles.
func settlement(tx *domain.Transaction) (string, float64, bool) {
	if tx == nil || tx.Status != domain.StatusCompleted || tx.Type != domain.TxCreditPayment {
		return "", 0, false
	}
	if tx.ParentTxID == "" || tx.CustomerID == "" {
		return "", 0, false
	}
	return tx.ParentTxID, tx.Amount.Float(), true
}

func sortedStockKeys(m map[ledger.StockKey]float64) []ledger.StockKey {
	keys := slices.Collect(maps.Keys(m))
	slices.SortFunc(keys, func(a, b ledger.StockKey) int {
		if c := cmp.Compare(a.ProductID, b.ProductID); c != 0 {
			return c
		}
		return cmp.Compare(a.Branch, b.Branch)
	})
	return keys
}

func sortedTargets(m map[ledger.Target]float64) []ledger.Target {
	keys := slices.Collect(maps.Keys(m))
	slices.SortFunc(keys, func(a, b ledger.Target) int {
		if c := cmp.Compare(collectionRank(a.Collection), collectionRank(b.Collection)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return keys
}

func collectionRank(c domain.Collection) int {
	switch c {
	case domain.CollectionCustomers:
		return 0
	case domain.CollectionVendors:
		return 1
	case domain.CollectionAccounts:
		return 2
	default:
		return 3
	}
}

package engine

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/ledger"
	"ledgerpos/backend/internal/snapshot"
	"ledgerpos/backend/internal/store"
	"ledgerpos/backend/internal/uow"
)

func (e *Engine) masterID(raw string, prefix string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		raw = e.newID(prefix)
	}
	id, err := store.SanitizeID(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", store.ErrInvalidTransaction, err)
	}
	return id, nil
}

// SaveProduct creates a product with its opening branch stock, or edits the
// descriptive fields of an existing one. Stock on an existing product only
// moves through transactions.
func (e *Engine) SaveProduct(snap *snapshot.Snapshot, p domain.Product) (*uow.Plan, domain.Product, error) {
	id, err := e.masterID(p.ID, "prd")
	if err != nil {
		return nil, p, err
	}
	p.ID = id
	p.Name = strings.TrimSpace(p.Name)
	p.SKU = strings.ToUpper(strings.TrimSpace(p.SKU))
	if p.Name == "" {
		return nil, p, fmt.Errorf("%w: product name is required", store.ErrInvalidTransaction)
	}
	if p.CategoryID != "" {
		if _, ok := snap.Categories[p.CategoryID]; !ok {
			return nil, p, fmt.Errorf("%w: category %s", store.ErrNotFound, p.CategoryID)
		}
	}
	p.Kind = ledger.Classify(p.CategoryID, snap.Categories[p.CategoryID].Name)

	plan := uow.NewPlan("save_product")
	existing, ok := snap.Product(p.ID)
	if !ok {
		if len(p.BranchStocks) > 0 {
			stocks := make(map[string]domain.Number, len(p.BranchStocks))
			for branch, qty := range p.BranchStocks {
				stocks[ledger.ResolveStockBranch(branch)] += qty
			}
			p.BranchStocks = stocks
			p.Stock = ledger.SumStocks(stocks)
		}
		doc, err := store.Encode(p)
		if err != nil {
			return nil, p, err
		}
		plan.Upsert(domain.CollectionProducts, p.ID, "create", p.Stock.Float(), doc, nil)
		return plan, p, nil
	}

	patch := store.Document{
		"name":              p.Name,
		"sku":               p.SKU,
		"categoryId":        p.CategoryID,
		"cost":              p.Cost.Float(),
		"price":             p.Price.Float(),
		"lowStockThreshold": p.LowStockThreshold.Float(),
		"kind":              string(p.Kind),
	}
	undo := store.Document{
		"name":              existing.Name,
		"sku":               existing.SKU,
		"categoryId":        existing.CategoryID,
		"cost":              existing.Cost.Float(),
		"price":             existing.Price.Float(),
		"lowStockThreshold": existing.LowStockThreshold.Float(),
		"kind":              string(existing.Kind),
	}
	plan.Upsert(domain.CollectionProducts, p.ID, "update", 0, patch, undo)

	p.BranchStocks = existing.BranchStocks
	p.Stock = existing.Stock
	return plan, p, nil
}

// AssignCategory moves a product into a category and records the kind the
// category implies.
func (e *Engine) AssignCategory(snap *snapshot.Snapshot, productID string, categoryID string) (*uow.Plan, domain.Product, error) {
	p, ok := snap.Product(productID)
	if !ok {
		return nil, domain.Product{}, store.ErrNotFound
	}
	category, ok := snap.Categories[categoryID]
	if !ok {
		return nil, p, fmt.Errorf("%w: category %s", store.ErrNotFound, categoryID)
	}

	prevCategory, prevKind := p.CategoryID, p.Kind
	p.CategoryID = category.ID
	p.Kind = ledger.Classify(category.ID, category.Name)

	plan := uow.NewPlan("assign_category")
	plan.Upsert(domain.CollectionProducts, p.ID, string(p.Kind), 0,
		store.Document{"categoryId": p.CategoryID, "kind": string(p.Kind)},
		store.Document{"categoryId": prevCategory, "kind": string(prevKind)})
	return plan, p, nil
}

// SaveCategory stores a category and reclassifies the products under it
// whose kind the new name changes.
func (e *Engine) SaveCategory(snap *snapshot.Snapshot, c domain.Category) (*uow.Plan, domain.Category, error) {
	id, err := e.masterID(c.ID, "cat")
	if err != nil {
		return nil, c, err
	}
	c.ID = id
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return nil, c, fmt.Errorf("%w: category name is required", store.ErrInvalidTransaction)
	}

	plan := uow.NewPlan("save_category")
	doc, err := store.Encode(c)
	if err != nil {
		return nil, c, err
	}
	var undo store.Document
	if existing, ok := snap.Categories[c.ID]; ok {
		undo = store.Document{"name": existing.Name}
	}
	plan.Upsert(domain.CollectionCategories, c.ID, "category", 0, doc, undo)

	kind := ledger.Classify(c.ID, c.Name)
	for _, productID := range slices.Sorted(maps.Keys(snap.Products)) {
		p := snap.Products[productID]
		if p.CategoryID != c.ID || p.Kind == kind {
			continue
		}
		plan.Upsert(domain.CollectionProducts, p.ID, string(kind), 0,
			store.Document{"kind": string(kind)},
			store.Document{"kind": string(p.Kind)})
	}
	return plan, c, nil
}

// SaveCustomer creates a customer with an opening balance or edits an
// existing one's details. totalCredit is ledger-maintained after creation.
func (e *Engine) SaveCustomer(snap *snapshot.Snapshot, c domain.Customer) (*uow.Plan, domain.Customer, error) {
	id, err := e.masterID(c.ID, "cus")
	if err != nil {
		return nil, c, err
	}
	c.ID = id
	if existing, ok := snap.Customer(c.ID); ok {
		c.TotalCredit = existing.TotalCredit
	}
	return saveRecord(domain.CollectionCustomers, c.ID, c, snap.Customers, "totalCredit")
}

func (e *Engine) SaveVendor(snap *snapshot.Snapshot, v domain.Vendor) (*uow.Plan, domain.Vendor, error) {
	id, err := e.masterID(v.ID, "ven")
	if err != nil {
		return nil, v, err
	}
	v.ID = id
	if existing, ok := snap.Vendor(v.ID); ok {
		v.TotalBalance = existing.TotalBalance
	}
	return saveRecord(domain.CollectionVendors, v.ID, v, snap.Vendors, "totalBalance")
}

func (e *Engine) SaveAccount(snap *snapshot.Snapshot, a domain.BankAccount) (*uow.Plan, domain.BankAccount, error) {
	id, err := e.masterID(a.ID, "acc")
	if err != nil {
		return nil, a, err
	}
	a.ID = id
	if existing, ok := snap.Account(a.ID); ok {
		a.Balance = existing.Balance
	}
	return saveRecord(domain.CollectionAccounts, a.ID, a, snap.Accounts, "balance")
}

// saveRecord plans an upsert of record. For an existing record the balance
// field is left out of the patch.
func saveRecord[T any](collection domain.Collection, id string, record T, table map[string]T, balanceKey string) (*uow.Plan, T, error) {
	doc, err := store.Encode(record)
	if err != nil {
		return nil, record, err
	}
	plan := uow.NewPlan("save_" + strings.TrimSuffix(string(collection), "s"))
	existing, ok := table[id]
	if !ok {
		plan.Upsert(collection, id, "create", 0, doc, nil)
		return plan, record, nil
	}
	prior, err := store.Encode(existing)
	if err != nil {
		return nil, record, err
	}
	delete(doc, balanceKey)
	delete(prior, balanceKey)
	plan.Upsert(collection, id, "update", 0, doc, prior)
	return plan, record, nil
}

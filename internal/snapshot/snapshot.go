// Package snapshot keeps an in-memory, indexed copy of every ledger
// collection, refreshed from gateway change events.
package snapshot

import (
	"maps"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/ledger"
)

// Snapshot is an immutable view of the ledger at one version. Engine
// operations read only from a Snapshot.
type Snapshot struct {
	Version        uint64
	Products       map[string]domain.Product
	Categories     map[string]domain.Category
	Customers      map[string]domain.Customer
	Vendors        map[string]domain.Vendor
	Accounts       map[string]domain.BankAccount
	Transactions   map[string]domain.Transaction
	PurchaseOrders map[string]domain.PurchaseOrder
}

func Empty() *Snapshot {
	return &Snapshot{
		Products:       map[string]domain.Product{},
		Categories:     map[string]domain.Category{},
		Customers:      map[string]domain.Customer{},
		Vendors:        map[string]domain.Vendor{},
		Accounts:       map[string]domain.BankAccount{},
		Transactions:   map[string]domain.Transaction{},
		PurchaseOrders: map[string]domain.PurchaseOrder{},
	}
}

func (s *Snapshot) Product(id string) (domain.Product, bool) {
	p, ok := s.Products[id]
	if !ok {
		return domain.Product{}, false
	}
	p.BranchStocks = maps.Clone(p.BranchStocks)
	return p, true
}

func (s *Snapshot) Customer(id string) (domain.Customer, bool) {
	c, ok := s.Customers[id]
	return c, ok
}

func (s *Snapshot) Vendor(id string) (domain.Vendor, bool) {
	v, ok := s.Vendors[id]
	return v, ok
}

func (s *Snapshot) Account(id string) (domain.BankAccount, bool) {
	a, ok := s.Accounts[id]
	return a, ok
}

func (s *Snapshot) Transaction(id string) (domain.Transaction, bool) {
	tx, ok := s.Transactions[id]
	return tx, ok
}

func (s *Snapshot) PurchaseOrder(id string) (domain.PurchaseOrder, bool) {
	po, ok := s.PurchaseOrders[id]
	return po, ok
}

// KindOf resolves a product id to its kind. Unknown products are standard.
func (s *Snapshot) KindOf(productID string) domain.ProductKind {
	p, ok := s.Products[productID]
	if !ok {
		return domain.KindStandard
	}
	return ledger.KindOf(p)
}

// classify fills in kinds for products stored before kinds were recorded.
func (s *Snapshot) classify() {
	for id, p := range s.Products {
		if p.Kind == domain.KindReload || p.Kind == domain.KindStandard {
			continue
		}
		p.Kind = ledger.Classify(p.CategoryID, s.Categories[p.CategoryID].Name)
		s.Products[id] = p
	}
}

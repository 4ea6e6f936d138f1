package service

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/store"
)

// TransactionFilter narrows ListTransactions. Zero fields match everything.
type TransactionFilter struct {
	Type       domain.TransactionType
	Status     domain.TransactionStatus
	CustomerID string
	VendorID   string
	BranchID   string
	Limit      int
}

func sortedValues[T any](m map[string]T) []T {
	out := make([]T, 0, len(m))
	for _, key := range slices.Sorted(maps.Keys(m)) {
		out = append(out, m[key])
	}
	return out
}

func (s *Service) ListProducts(_ context.Context) []domain.Product {
	return sortedValues(s.snapshots.Current().Products)
}

func (s *Service) ListCategories(_ context.Context) []domain.Category {
	return sortedValues(s.snapshots.Current().Categories)
}

func (s *Service) ListCustomers(_ context.Context) []domain.Customer {
	return sortedValues(s.snapshots.Current().Customers)
}

func (s *Service) ListVendors(_ context.Context) []domain.Vendor {
	return sortedValues(s.snapshots.Current().Vendors)
}

func (s *Service) ListAccounts(_ context.Context) []domain.BankAccount {
	return sortedValues(s.snapshots.Current().Accounts)
}

func (s *Service) GetProduct(_ context.Context, id string) (domain.Product, error) {
	p, ok := s.snapshots.Current().Product(id)
	if !ok {
		return domain.Product{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Service) GetTransaction(_ context.Context, id string) (domain.Transaction, error) {
	tx, ok := s.snapshots.Current().Transaction(id)
	if !ok {
		return domain.Transaction{}, store.ErrNotFound
	}
	return tx, nil
}

// ListTransactions returns matching transactions, newest first.
func (s *Service) ListTransactions(_ context.Context, filter TransactionFilter) []domain.Transaction {
	out := make([]domain.Transaction, 0)
	for _, tx := range s.snapshots.Current().Transactions {
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		if filter.CustomerID != "" && tx.CustomerID != filter.CustomerID {
			continue
		}
		if filter.VendorID != "" && tx.VendorID != filter.VendorID {
			continue
		}
		if filter.BranchID != "" && !strings.EqualFold(tx.BranchID, filter.BranchID) {
			continue
		}
		out = append(out, tx)
	}
	slices.SortFunc(out, func(a, b domain.Transaction) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

func (s *Service) ListPurchaseOrders(_ context.Context, status domain.PurchaseOrderStatus) []domain.PurchaseOrder {
	out := make([]domain.PurchaseOrder, 0)
	for _, po := range sortedValues(s.snapshots.Current().PurchaseOrders) {
		if status != "" && po.Status != status {
			continue
		}
		out = append(out, po)
	}
	return out
}

func (s *Service) Summary(ctx context.Context) domain.LedgerSummary {
	return s.reports.Summarize(ctx, s.snapshots.Current())
}

// ListAuditLogs reads the audit collection directly; it is not part of the
// snapshot.
func (s *Service) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	docs, err := s.gw.List(ctx, domain.CollectionAuditLogs)
	if err != nil {
		return nil, err
	}

	logs := make([]domain.AuditLog, 0, len(docs))
	for _, doc := range docs {
		var entry domain.AuditLog
		if err := store.Decode(doc, &entry); err != nil {
			continue
		}
		logs = append(logs, entry)
	}
	slices.SortFunc(logs, func(a, b domain.AuditLog) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

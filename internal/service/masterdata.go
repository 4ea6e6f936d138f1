package service

import (
	"context"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/snapshot"
	"ledgerpos/backend/internal/uow"
)

func (s *Service) SaveProduct(ctx context.Context, p domain.Product) (Outcome[domain.Product], error) {
	return run(ctx, s, "product", func(snap *snapshot.Snapshot) (*uow.Plan, domain.Product, error) {
		return s.engine.SaveProduct(snap, p)
	}, func(p domain.Product) string { return p.ID })
}

func (s *Service) AssignCategory(ctx context.Context, productID string, categoryID string) (Outcome[domain.Product], error) {
	return run(ctx, s, "product", func(snap *snapshot.Snapshot) (*uow.Plan, domain.Product, error) {
		return s.engine.AssignCategory(snap, productID, categoryID)
	}, func(p domain.Product) string { return p.ID })
}

func (s *Service) SaveCategory(ctx context.Context, c domain.Category) (Outcome[domain.Category], error) {
	return run(ctx, s, "category", func(snap *snapshot.Snapshot) (*uow.Plan, domain.Category, error) {
		return s.engine.SaveCategory(snap, c)
	}, func(c domain.Category) string { return c.ID })
}

func (s *Service) SaveCustomer(ctx context.Context, c domain.Customer) (Outcome[domain.Customer], error) {
	return run(ctx, s, "customer", func(snap *snapshot.Snapshot) (*uow.Plan, domain.Customer, error) {
		return s.engine.SaveCustomer(snap, c)
	}, func(c domain.Customer) string { return c.ID })
}

func (s *Service) SaveVendor(ctx context.Context, v domain.Vendor) (Outcome[domain.Vendor], error) {
	return run(ctx, s, "vendor", func(snap *snapshot.Snapshot) (*uow.Plan, domain.Vendor, error) {
		return s.engine.SaveVendor(snap, v)
	}, func(v domain.Vendor) string { return v.ID })
}

func (s *Service) SaveAccount(ctx context.Context, a domain.BankAccount) (Outcome[domain.BankAccount], error) {
	return run(ctx, s, "account", func(snap *snapshot.Snapshot) (*uow.Plan, domain.BankAccount, error) {
		return s.engine.SaveAccount(snap, a)
	}, func(a domain.BankAccount) string { return a.ID })
}

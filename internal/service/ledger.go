package service

import (
	"context"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/snapshot"
	"ledgerpos/backend/internal/uow"
)

const entityTransaction = "transaction"

func (s *Service) CompleteSale(ctx context.Context, tx domain.Transaction) (Outcome[domain.Transaction], error) {
	return run(ctx, s, entityTransaction, func(snap *snapshot.Snapshot) (*uow.Plan, domain.Transaction, error) {
		return s.engine.CompleteSale(snap, tx)
	}, transactionID)
}

func (s *Service) SaveDraft(ctx context.Context, tx domain.Transaction) (Outcome[domain.Transaction], error) {
	return run(ctx, s, entityTransaction, func(snap *snapshot.Snapshot) (*uow.Plan, domain.Transaction, error) {
		return s.engine.SaveDraft(snap, tx)
	}, transactionID)
}

func (s *Service) CompleteDraft(ctx context.Context, id string) (Outcome[domain.Transaction], error) {
	return run(ctx, s, entityTransaction, func(snap *snapshot.Snapshot) (*uow.Plan, domain.Transaction, error) {
		return s.engine.CompleteDraft(snap, id)
	}, transactionID)
}

func (s *Service) RecordCustomerPayment(ctx context.Context, tx domain.Transaction) (Outcome[domain.Transaction], error) {
	return run(ctx, s, entityTransaction, func(snap *snapshot.Snapshot) (*uow.Plan, domain.Transaction, error) {
		return s.engine.RecordCustomerPayment(snap, tx)
	}, transactionID)
}

func (s *Service) RecordVendorPayment(ctx context.Context, tx domain.Transaction) (Outcome[domain.Transaction], error) {
	return run(ctx, s, entityTransaction, func(snap *snapshot.Snapshot) (*uow.Plan, domain.Transaction, error) {
		return s.engine.RecordVendorPayment(snap, tx)
	}, transactionID)
}

func (s *Service) RecordExpense(ctx context.Context, tx domain.Transaction) (Outcome[domain.Transaction], error) {
	return run(ctx, s, entityTransaction, func(snap *snapshot.Snapshot) (*uow.Plan, domain.Transaction, error) {
		return s.engine.RecordExpense(snap, tx)
	}, transactionID)
}

func (s *Service) RecordTransfer(ctx context.Context, tx domain.Transaction) (Outcome[domain.Transaction], error) {
	return run(ctx, s, entityTransaction, func(snap *snapshot.Snapshot) (*uow.Plan, domain.Transaction, error) {
		return s.engine.RecordTransfer(snap, tx)
	}, transactionID)
}

func (s *Service) UpdateTransaction(ctx context.Context, tx domain.Transaction) (Outcome[domain.Transaction], error) {
	return run(ctx, s, entityTransaction, func(snap *snapshot.Snapshot) (*uow.Plan, domain.Transaction, error) {
		return s.engine.UpdateTransaction(snap, tx)
	}, transactionID)
}

func (s *Service) DeleteTransaction(ctx context.Context, id string) (Outcome[domain.Transaction], error) {
	return run(ctx, s, entityTransaction, func(snap *snapshot.Snapshot) (*uow.Plan, domain.Transaction, error) {
		return s.engine.DeleteTransaction(snap, id)
	}, transactionID)
}

func (s *Service) CloseAccount(ctx context.Context, accountID string) (Outcome[Closure], error) {
	return run(ctx, s, "account", func(snap *snapshot.Snapshot) (*uow.Plan, Closure, error) {
		plan, transfer, err := s.engine.CloseAccount(snap, accountID)
		return plan, Closure{AccountID: accountID, Transfer: transfer}, err
	}, func(c Closure) string { return c.AccountID })
}

func (s *Service) SavePurchaseOrder(ctx context.Context, po domain.PurchaseOrder) (Outcome[domain.PurchaseOrder], error) {
	return run(ctx, s, "purchase_order", func(snap *snapshot.Snapshot) (*uow.Plan, domain.PurchaseOrder, error) {
		return s.engine.SavePurchaseOrder(snap, po)
	}, purchaseOrderID)
}

func (s *Service) SubmitPurchaseOrder(ctx context.Context, id string) (Outcome[domain.PurchaseOrder], error) {
	return run(ctx, s, "purchase_order", func(snap *snapshot.Snapshot) (*uow.Plan, domain.PurchaseOrder, error) {
		return s.engine.SubmitPurchaseOrder(snap, id)
	}, purchaseOrderID)
}

func (s *Service) ReceivePurchaseOrder(ctx context.Context, id string) (Outcome[Receipt], error) {
	return run(ctx, s, "purchase_order", func(snap *snapshot.Snapshot) (*uow.Plan, Receipt, error) {
		plan, po, purchase, err := s.engine.ReceivePurchaseOrder(snap, id)
		return plan, Receipt{PurchaseOrder: po, Purchase: purchase}, err
	}, func(r Receipt) string { return r.PurchaseOrder.ID })
}

func purchaseOrderID(po domain.PurchaseOrder) string { return po.ID }

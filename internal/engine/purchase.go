package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/ledger"
	"ledgerpos/backend/internal/snapshot"
	"ledgerpos/backend/internal/store"
	"ledgerpos/backend/internal/uow"
)

// SavePurchaseOrder creates or edits a purchase order that has not been
// received. New orders start as DRAFT unless PENDING is requested.
func (e *Engine) SavePurchaseOrder(snap *snapshot.Snapshot, po domain.PurchaseOrder) (*uow.Plan, domain.PurchaseOrder, error) {
	if strings.TrimSpace(po.ID) == "" {
		po.ID = e.newID("po")
	}
	id, err := store.SanitizeID(po.ID)
	if err != nil {
		return nil, po, fmt.Errorf("%w: %v", store.ErrInvalidTransaction, err)
	}
	po.ID = id
	if po.VendorID == "" || len(po.Items) == 0 {
		return nil, po, fmt.Errorf("%w: vendorId and items are required", store.ErrInvalidTransaction)
	}
	for _, item := range po.Items {
		if item.ProductID == "" || item.Quantity <= 0 || item.Cost < 0 {
			return nil, po, fmt.Errorf("%w: invalid purchase order line", store.ErrInvalidTransaction)
		}
	}

	var prior store.Document
	if existing, ok := snap.PurchaseOrder(po.ID); ok {
		if existing.Status == domain.POStatusReceived {
			return nil, po, fmt.Errorf("%w: purchase order %s is received", ErrInvalidTransition, po.ID)
		}
		if po.Status == "" {
			po.Status = existing.Status
		}
		po.CreatedAt = existing.CreatedAt
		if prior, err = store.Encode(existing); err != nil {
			return nil, po, err
		}
	}
	switch po.Status {
	case "":
		po.Status = domain.POStatusDraft
	case domain.POStatusDraft, domain.POStatusPending:
	default:
		return nil, po, fmt.Errorf("%w: purchase orders are saved as DRAFT or PENDING", ErrInvalidTransition)
	}
	if po.PaymentMethod == "" {
		po.PaymentMethod = domain.PayCredit
	}
	if po.TotalAmount == 0 {
		po.TotalAmount = orderTotal(po.Items)
	}
	if po.CreatedAt.IsZero() {
		po.CreatedAt = e.stamp()
	}
	po.ReceivedDate = nil

	doc, err := store.Encode(po)
	if err != nil {
		return nil, po, err
	}
	plan := uow.NewPlan("save_purchase_order")
	if prior == nil {
		plan.Upsert(domain.CollectionPurchaseOrders, po.ID, string(po.Status), 0, doc, nil)
	} else {
		plan.Upsert(domain.CollectionPurchaseOrders, po.ID, string(po.Status), 0, replacement(prior, doc), replacement(doc, prior))
	}
	return plan, po, nil
}

// SubmitPurchaseOrder moves a DRAFT order to PENDING. Any other status is
// left alone.
func (e *Engine) SubmitPurchaseOrder(snap *snapshot.Snapshot, id string) (*uow.Plan, domain.PurchaseOrder, error) {
	po, ok := snap.PurchaseOrder(id)
	if !ok {
		return nil, domain.PurchaseOrder{}, store.ErrNotFound
	}
	plan := uow.NewPlan("submit_purchase_order")
	if po.Status != domain.POStatusDraft {
		return plan, po, nil
	}
	po.Status = domain.POStatusPending
	plan.Upsert(domain.CollectionPurchaseOrders, po.ID, "pending", 0,
		store.Document{"status": string(domain.POStatusPending)},
		store.Document{"status": string(domain.POStatusDraft)})
	return plan, po, nil
}

// ReceivePurchaseOrder books a PENDING order into stock at last cost and
// emits the PURCHASE transaction that records it. Orders in any other status
// yield an empty plan.
func (e *Engine) ReceivePurchaseOrder(snap *snapshot.Snapshot, id string) (*uow.Plan, domain.PurchaseOrder, *domain.Transaction, error) {
	po, ok := snap.PurchaseOrder(id)
	if !ok {
		return nil, domain.PurchaseOrder{}, nil, store.ErrNotFound
	}
	ws := newWorkset(snap, "receive_purchase_order")
	if po.Status != domain.POStatusPending {
		return ws.plan, po, nil, nil
	}

	receivedAt := e.stamp()
	po.Status = domain.POStatusReceived
	po.ReceivedDate = &receivedAt
	ws.plan.Upsert(domain.CollectionPurchaseOrders, po.ID, "received", 0,
		store.Document{"status": string(domain.POStatusReceived), "receivedDate": receivedAt.Format(timeLayout)},
		store.Document{"status": string(domain.POStatusPending), "receivedDate": nil})

	branch := ledger.ResolveStockBranch(po.BranchID)
	for _, item := range po.Items {
		ws.adjustStock(item.ProductID, branch, item.Quantity.Float())
		ws.setCost(item.ProductID, item.Cost)
	}

	total := po.TotalAmount
	if total == 0 {
		total = orderTotal(po.Items)
	}
	purchase := domain.Transaction{
		ID:              e.newID("purchase"),
		Type:            domain.TxPurchase,
		Status:          domain.StatusCompleted,
		Amount:          total,
		PaymentMethod:   po.PaymentMethod,
		AccountID:       po.AccountID,
		VendorID:        po.VendorID,
		PurchaseOrderID: po.ID,
		BranchID:        po.BranchID,
		Description:     fmt.Sprintf("PO #%s", po.ID),
		Date:            receivedAt,
	}
	if purchase.PaymentMethod == "" {
		purchase.PaymentMethod = domain.PayCredit
	}
	ws.applyDelta(nil, &purchase)
	ws.flush()
	if err := writeTransaction(ws.plan, nil, purchase); err != nil {
		return nil, po, nil, err
	}
	return ws.plan, po, &purchase, nil
}

func orderTotal(items []domain.PurchaseOrderItem) domain.Number {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Cost.Decimal().Mul(item.Quantity.Decimal()))
	}
	return domain.NumberFromDecimal(total)
}

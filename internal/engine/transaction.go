package engine

import (
	"fmt"
	"strings"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/snapshot"
	"ledgerpos/backend/internal/store"
	"ledgerpos/backend/internal/uow"
)

var prefixes = map[domain.TransactionType]string{
	domain.TxSale:          "sale",
	domain.TxPurchase:      "purchase",
	domain.TxCreditPayment: "payment",
	domain.TxExpense:       "expense",
	domain.TxTransfer:      "transfer",
}

// prepare fills identifiers and defaults shared by every transaction write.
func (e *Engine) prepare(tx domain.Transaction) (domain.Transaction, error) {
	if _, ok := prefixes[tx.Type]; !ok {
		return tx, fmt.Errorf("%w: unknown transaction type %q", store.ErrInvalidTransaction, tx.Type)
	}
	if strings.TrimSpace(tx.ID) == "" {
		tx.ID = e.newID(prefixes[tx.Type])
	}
	id, err := store.SanitizeID(tx.ID)
	if err != nil {
		return tx, fmt.Errorf("%w: %v", store.ErrInvalidTransaction, err)
	}
	tx.ID = id
	if tx.PaymentMethod == "" {
		tx.PaymentMethod = domain.PayCash
	}
	if tx.Date.IsZero() {
		tx.Date = e.stamp()
	}
	if tx.Amount < 0 {
		return tx, fmt.Errorf("%w: negative amount", store.ErrInvalidTransaction)
	}
	return tx, nil
}

// writeTransaction plans the document write for tx, replacing whatever the
// previous version stored.
func writeTransaction(plan *uow.Plan, prev *domain.Transaction, next domain.Transaction) error {
	doc, err := store.Encode(next)
	if err != nil {
		return err
	}
	if prev == nil {
		plan.Upsert(domain.CollectionTransactions, next.ID, string(next.Status), 0, doc, nil)
		return nil
	}
	old, err := store.Encode(*prev)
	if err != nil {
		return err
	}
	plan.Upsert(domain.CollectionTransactions, next.ID, string(next.Status), 0, replacement(old, doc), replacement(doc, old))
	return nil
}

// replacement is a merge patch that turns base into target: keys missing
// from target are cleared.
func replacement(base store.Document, target store.Document) store.Document {
	patch := store.Merge(nil, target)
	for key := range base {
		if _, ok := target[key]; !ok {
			patch[key] = nil
		}
	}
	return patch
}

// complete plans first-time effects for tx and its COMPLETED write.
func (e *Engine) complete(snap *snapshot.Snapshot, operation string, tx domain.Transaction) (*uow.Plan, domain.Transaction, error) {
	var prev *domain.Transaction
	if existing, ok := snap.Transaction(tx.ID); ok {
		if existing.Status == domain.StatusCompleted {
			return nil, tx, fmt.Errorf("%w: transaction %s is already completed", ErrInvalidTransition, tx.ID)
		}
		prev = &existing
	}

	tx.Status = domain.StatusCompleted
	ws := newWorkset(snap, operation)
	ws.applyDelta(prev, &tx)
	ws.flush()
	if err := writeTransaction(ws.plan, prev, tx); err != nil {
		return nil, tx, err
	}
	return ws.plan, tx, nil
}

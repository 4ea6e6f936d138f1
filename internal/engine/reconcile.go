package engine

import (
	"fmt"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/snapshot"
	"ledgerpos/backend/internal/store"
	"ledgerpos/backend/internal/uow"
)

// UpdateTransaction replaces the stored version of next.ID with next and
// corrects every aggregate by the difference between the two versions.
// DRAFT to DRAFT is a plain overwrite; COMPLETED never returns to DRAFT.
func (e *Engine) UpdateTransaction(snap *snapshot.Snapshot, next domain.Transaction) (*uow.Plan, domain.Transaction, error) {
	id, err := store.SanitizeID(next.ID)
	if err != nil {
		return nil, next, fmt.Errorf("%w: %v", store.ErrInvalidTransaction, err)
	}
	prev, ok := snap.Transaction(id)
	if !ok {
		return nil, next, store.ErrNotFound
	}
	next.ID = id
	if next.Type == "" {
		next.Type = prev.Type
	}
	if next.Status == "" {
		next.Status = prev.Status
	}
	if next.Date.IsZero() {
		next.Date = prev.Date
	}
	if prev.Status == domain.StatusCompleted && next.Status == domain.StatusDraft {
		return nil, next, fmt.Errorf("%w: completed transaction %s cannot return to draft", ErrInvalidTransition, id)
	}
	if next.Status != domain.StatusDraft && next.Status != domain.StatusCompleted {
		return nil, next, fmt.Errorf("%w: unknown status %q", store.ErrInvalidTransaction, next.Status)
	}
	status := next.Status
	next, err = e.prepare(next)
	if err != nil {
		return nil, next, err
	}
	next.Status = status

	ws := newWorkset(snap, "update_transaction")
	if prev.Status == domain.StatusCompleted || next.Status == domain.StatusCompleted {
		ws.applyDelta(&prev, &next)
		ws.flush()
	}
	if err := writeTransaction(ws.plan, &prev, next); err != nil {
		return nil, next, err
	}
	return ws.plan, next, nil
}

// DeleteTransaction reverses every effect of a completed transaction and
// removes it. Drafts are removed without reversal.
func (e *Engine) DeleteTransaction(snap *snapshot.Snapshot, id string) (*uow.Plan, domain.Transaction, error) {
	key, err := store.SanitizeID(id)
	if err != nil {
		return nil, domain.Transaction{}, fmt.Errorf("%w: %v", store.ErrInvalidTransaction, err)
	}
	prev, ok := snap.Transaction(key)
	if !ok {
		return nil, domain.Transaction{}, store.ErrNotFound
	}

	ws := newWorkset(snap, "delete_transaction")
	if prev.Status == domain.StatusCompleted {
		ws.applyDelta(&prev, nil)
		ws.flush()
	}
	doc, err := store.Encode(prev)
	if err != nil {
		return nil, prev, err
	}
	ws.plan.Delete(domain.CollectionTransactions, prev.ID, string(prev.Status), doc)
	return ws.plan, prev, nil
}

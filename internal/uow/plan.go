// Package uow executes the writes of one ledger operation and reports
// exactly which of them reached the store.
package uow

import (
	"fmt"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/store"
)

type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

// Write is one aggregate mutation. Delta is the signed balance or stock
// change the write carries; Undo restores the fields Patch overwrote, or the
// whole document for a delete. A nil Undo on an upsert means the document was
// created by this write.
type Write struct {
	Collection domain.Collection `json:"collection"`
	ID         string            `json:"id"`
	Op         Op                `json:"op"`
	Label      string            `json:"label,omitempty"`
	Delta      float64           `json:"delta"`
	Patch      store.Document    `json:"patch,omitempty"`
	Undo       store.Document    `json:"-"`
}

func (w Write) String() string {
	if w.Label != "" {
		return fmt.Sprintf("%s %s/%s (%s %+g)", w.Op, w.Collection, w.ID, w.Label, w.Delta)
	}
	return fmt.Sprintf("%s %s/%s", w.Op, w.Collection, w.ID)
}

// Skip records a correction that could not be made because the referenced
// aggregate does not exist.
type Skip struct {
	Collection domain.Collection `json:"collection"`
	ID         string            `json:"id"`
	Delta      float64           `json:"delta"`
	Reason     string            `json:"reason"`
}

// Plan is the ordered write list of one operation.
type Plan struct {
	Operation string  `json:"operation"`
	Writes    []Write `json:"writes"`
	Skipped   []Skip  `json:"skipped,omitempty"`
}

func NewPlan(operation string) *Plan {
	return &Plan{Operation: operation}
}

func (p *Plan) Upsert(collection domain.Collection, id string, label string, delta float64, patch store.Document, undo store.Document) {
	p.Writes = append(p.Writes, Write{
		Collection: collection,
		ID:         id,
		Op:         OpUpsert,
		Label:      label,
		Delta:      delta,
		Patch:      patch,
		Undo:       undo,
	})
}

func (p *Plan) Delete(collection domain.Collection, id string, label string, prior store.Document) {
	p.Writes = append(p.Writes, Write{
		Collection: collection,
		ID:         id,
		Op:         OpDelete,
		Label:      label,
		Undo:       prior,
	})
}

func (p *Plan) Skip(collection domain.Collection, id string, delta float64, reason string) {
	p.Skipped = append(p.Skipped, Skip{Collection: collection, ID: id, Delta: delta, Reason: reason})
}

func (p *Plan) Empty() bool {
	return len(p.Writes) == 0
}

// Append moves other's writes and skips onto the end of p.
func (p *Plan) Append(other *Plan) {
	if other == nil {
		return
	}
	p.Writes = append(p.Writes, other.Writes...)
	p.Skipped = append(p.Skipped, other.Skipped...)
}

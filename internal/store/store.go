package store

import (
	"context"
	"errors"

	"ledgerpos/backend/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidID          = errors.New("invalid document id")
	ErrUnknownCollection  = errors.New("unknown collection")
)

// Document is one stored record as a JSON object.
type Document map[string]any

// ID returns the document's id field.
func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

// Listener receives the full current set of a collection.
type Listener func(docs []Document)

//go:generate mockgen -source=store.go -destination=mocks/mock_gateway.go -package=mocks

// Gateway is the document store the ledger persists through. Collections are
// independent: no write spans more than one document.
type Gateway interface {
	// Subscribe delivers the current set of the collection immediately and
	// again after every write to it.
	Subscribe(ctx context.Context, collection domain.Collection, fn Listener) (func(), error)

	// List returns the current set of the collection.
	List(ctx context.Context, collection domain.Collection) ([]Document, error)

	// Upsert merges patch into the document at id, creating it if absent.
	Upsert(ctx context.Context, collection domain.Collection, id string, patch Document) error

	// Delete removes the document at id. Deleting an absent id is not an error.
	Delete(ctx context.Context, collection domain.Collection, id string) error

	// BulkUpsert merges every item, deduplicated by id with the last one winning.
	BulkUpsert(ctx context.Context, collection domain.Collection, items []Document) error
}

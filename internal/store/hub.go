package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"ledgerpos/backend/internal/domain"
)

// Resyncer is implemented by gateways whose change broadcast can fail after
// a write committed. Resync re-reads every collection whose listeners missed
// a change and delivers it.
type Resyncer interface {
	Resync(ctx context.Context) error
}

// Hub fans collection changes out to listeners. Every delivery carries a
// sequence number taken with Reserve at the moment the set was read; a
// listener never receives a set older than one it already has.
type Hub struct {
	seq atomic.Uint64

	mu        sync.Mutex
	nextID    int
	listeners map[domain.Collection]map[int]*Subscription
	stale     map[domain.Collection]bool
}

// Subscription is one registered listener.
type Subscription struct {
	mu   sync.Mutex
	last uint64
	fn   Listener
}

func NewHub() *Hub {
	return &Hub{
		listeners: make(map[domain.Collection]map[int]*Subscription),
		stale:     make(map[domain.Collection]bool),
	}
}

// Reserve returns the next delivery sequence. Gateways call it while the
// state they are about to read is fixed.
func (h *Hub) Reserve() uint64 {
	return h.seq.Add(1)
}

// Deliver hands docs to the listener unless it already holds a set read at
// or after seq.
func (sub *Subscription) Deliver(seq uint64, docs []Document) bool {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if seq <= sub.last {
		return false
	}
	sub.last = seq
	sub.fn(docs)
	return true
}

// Add registers fn and returns the subscription with the function that
// removes it.
func (h *Hub) Add(collection domain.Collection, fn Listener) (*Subscription, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	if h.listeners[collection] == nil {
		h.listeners[collection] = make(map[int]*Subscription)
	}
	sub := &Subscription{fn: fn}
	h.listeners[collection][id] = sub

	var once sync.Once
	return sub, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.listeners[collection], id)
		})
	}
}

// Publish delivers docs read at seq to every listener of the collection.
// Listeners run on the caller's goroutine, outside the hub lock.
func (h *Hub) Publish(collection domain.Collection, seq uint64, docs []Document) {
	h.mu.Lock()
	targets := make([]*Subscription, 0, len(h.listeners[collection]))
	for _, sub := range h.listeners[collection] {
		targets = append(targets, sub)
	}
	h.mu.Unlock()

	for _, sub := range targets {
		sub.Deliver(seq, docs)
	}
}

func (h *Hub) Has(collection domain.Collection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners[collection]) > 0
}

// MarkStale records that the listeners of collection missed a change.
func (h *Hub) MarkStale(collection domain.Collection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stale[collection] = true
}

// TakeStale returns and clears the collections marked stale.
func (h *Hub) TakeStale() []domain.Collection {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.Collection, 0, len(h.stale))
	for _, collection := range domain.Collections {
		if h.stale[collection] {
			out = append(out, collection)
		}
	}
	clear(h.stale)
	return out
}

// ListFunc reads the current set of a collection.
type ListFunc func(ctx context.Context, collection domain.Collection) ([]Document, error)

// Refresh reads collection with list and publishes it. A failed read marks
// the collection stale so a later Resync can deliver it.
func (h *Hub) Refresh(ctx context.Context, collection domain.Collection, list ListFunc) error {
	if !h.Has(collection) {
		return nil
	}
	seq := h.Reserve()
	docs, err := list(ctx, collection)
	if err != nil {
		h.MarkStale(collection)
		return err
	}
	h.Publish(collection, seq, docs)
	return nil
}

// Resync refreshes every stale collection. Collections that fail again stay
// stale.
func (h *Hub) Resync(ctx context.Context, list ListFunc) error {
	var errs []error
	for _, collection := range h.TakeStale() {
		if err := h.Refresh(ctx, collection, list); err != nil {
			errs = append(errs, fmt.Errorf("resync %s: %w", collection, err))
		}
	}
	return errors.Join(errs...)
}

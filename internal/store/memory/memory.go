package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/store"
)

type Store struct {
	mu   sync.RWMutex
	docs map[domain.Collection]map[string]store.Document
	hub  *store.Hub
	now  func() time.Time
}

func New() *Store {
	return &Store{
		docs: make(map[domain.Collection]map[string]store.Document),
		hub:  store.NewHub(),
		now:  time.Now,
	}
}

func (s *Store) Subscribe(_ context.Context, collection domain.Collection, fn store.Listener) (func(), error) {
	if !collection.Valid() {
		return nil, store.ErrUnknownCollection
	}
	sub, unsubscribe := s.hub.Add(collection, fn)

	s.mu.RLock()
	seq := s.hub.Reserve()
	docs := s.listLocked(collection)
	s.mu.RUnlock()

	sub.Deliver(seq, docs)
	return unsubscribe, nil
}

func (s *Store) List(_ context.Context, collection domain.Collection) ([]store.Document, error) {
	if !collection.Valid() {
		return nil, store.ErrUnknownCollection
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(collection), nil
}

func (s *Store) Upsert(_ context.Context, collection domain.Collection, id string, patch store.Document) error {
	if !collection.Valid() {
		return store.ErrUnknownCollection
	}
	key, err := store.SanitizeID(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	table := s.tableLocked(collection)
	table[key] = store.Prepare(collection, key, table[key], patch, s.now())
	seq := s.hub.Reserve()
	docs := s.listLocked(collection)
	s.mu.Unlock()

	s.hub.Publish(collection, seq, docs)
	return nil
}

func (s *Store) Delete(_ context.Context, collection domain.Collection, id string) error {
	if !collection.Valid() {
		return store.ErrUnknownCollection
	}
	key, err := store.SanitizeID(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.tableLocked(collection), key)
	seq := s.hub.Reserve()
	docs := s.listLocked(collection)
	s.mu.Unlock()

	s.hub.Publish(collection, seq, docs)
	return nil
}

func (s *Store) BulkUpsert(_ context.Context, collection domain.Collection, items []store.Document) error {
	if !collection.Valid() {
		return store.ErrUnknownCollection
	}
	kept, _ := store.Dedupe(items)
	if len(kept) == 0 {
		return nil
	}

	s.mu.Lock()
	table := s.tableLocked(collection)
	now := s.now()
	for _, item := range kept {
		id := item.ID()
		table[id] = store.Prepare(collection, id, table[id], item, now)
	}
	seq := s.hub.Reserve()
	docs := s.listLocked(collection)
	s.mu.Unlock()

	s.hub.Publish(collection, seq, docs)
	return nil
}

func (s *Store) tableLocked(collection domain.Collection) map[string]store.Document {
	table, ok := s.docs[collection]
	if !ok {
		table = make(map[string]store.Document)
		s.docs[collection] = table
	}
	return table
}

func (s *Store) listLocked(collection domain.Collection) []store.Document {
	table := s.docs[collection]
	out := make([]store.Document, 0, len(table))
	for _, id := range slices.Sorted(maps.Keys(table)) {
		out = append(out, cloneDocument(table[id]))
	}
	return out
}

// cloneDocument copies the top level and any branch stock map so listeners
// cannot mutate stored state.
func cloneDocument(src store.Document) store.Document {
	dst := make(store.Document, len(src))
	for k, v := range src {
		if nested, ok := v.(map[string]any); ok {
			dst[k] = maps.Clone(nested)
			continue
		}
		dst[k] = v
	}
	return dst
}

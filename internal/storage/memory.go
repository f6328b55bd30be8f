// Package storage provides key-value persistence implementations.
package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/hammamikhairi/vibecook/internal/domain"
	"github.com/hammamikhairi/vibecook/internal/logger"
)

// Compile-time interface check.
var _ domain.KeyValueStore = (*MemoryStore)(nil)

// MemoryStore is an in-memory key-value store. Safe for concurrent access.
// Every successful write is broadcast to the registered watchers.
type MemoryStore struct {
	mu      sync.RWMutex
	values  map[string][]byte
	log     *logger.Logger
	watches watchers
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(log *logger.Logger) *MemoryStore {
	return &MemoryStore{
		values: make(map[string][]byte),
		log:    log,
	}
}

// Get returns the value stored under key.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores value under key. Overwrites if it already exists.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.values[key] = append([]byte(nil), value...)
	s.mu.Unlock()

	s.log.Debug("set %q (%d bytes)", key, len(value))
	s.watches.notify(key)
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	_, ok := s.values[key]
	delete(s.values, key)
	s.mu.Unlock()

	if ok {
		s.log.Debug("removed %q", key)
		s.watches.notify(key)
	}
	return nil
}

// Clear deletes every key.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	s.values = make(map[string][]byte)
	s.mu.Unlock()

	s.log.Debug("cleared %d keys", len(keys))
	for _, k := range keys {
		s.watches.notify(k)
	}
	return nil
}

// Watch registers fn to be called with the key of every change.
func (s *MemoryStore) Watch(fn func(key string)) func() {
	return s.watches.add(fn)
}

// watchers is a registry of change callbacks. Callbacks run outside any
// store lock so they may read the store again.
type watchers struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(string)
}

func (w *watchers) add(fn func(string)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fns == nil {
		w.fns = make(map[int]func(string))
	}
	id := w.next
	w.next++
	w.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.fns, id)
			w.mu.Unlock()
		})
	}
}

func (w *watchers) notify(key string) {
	w.mu.Lock()
	ids := make([]int, 0, len(w.fns))
	for id := range w.fns {
		ids = append(ids, id)
	}
	w.mu.Unlock()

	// Registration order keeps delivery deterministic.
	slices.Sort(ids)
	for _, id := range ids {
		w.mu.Lock()
		fn, ok := w.fns[id]
		w.mu.Unlock()
		if ok {
			fn(key)
		}
	}
}

// Package candidate keeps the user's pending vibe-cooking selection: an
// ordered, duplicate-free, bounded list of recipe IDs persisted through a
// key-value store and broadcast to every subscriber.
package candidate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/hammamikhairi/vibecook/internal/domain"
	"github.com/hammamikhairi/vibecook/internal/logger"
)

// StorageKey is where the selection lives in the key-value store.
const StorageKey = "vibe-cooking-candidates"

// DefaultMaxSize matches how many recipes the cooking view can show side
// by side.
const DefaultMaxSize = 3

// Option configures the store.
type Option func(*Store)

// WithMaxSize overrides the selection bound. Values below 1 are ignored.
func WithMaxSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxSize = n
		}
	}
}

// WithKey stores the selection under a different key.
func WithKey(key string) Option {
	return func(s *Store) {
		s.key = key
	}
}

// Store is the candidate selection. Mutations are applied in memory, then
// persisted, then announced. Safe for concurrent use.
type Store struct {
	kv      domain.KeyValueStore
	log     *logger.Logger
	key     string
	maxSize int

	// writeMu serialises apply and persist so the stored list never lags
	// behind a newer in-memory one. It is never held while calling
	// subscribers.
	writeMu sync.Mutex

	mu   sync.Mutex
	ids  []domain.RecipeID
	subs map[int]func([]domain.RecipeID)
	next int

	unwatch func()
}

// New loads the persisted selection (empty when nothing is stored yet) and
// starts listening for changes made by other stores sharing kv.
func New(ctx context.Context, kv domain.KeyValueStore, log *logger.Logger, opts ...Option) (*Store, error) {
	s := &Store{
		kv:      kv,
		log:     log,
		key:     StorageKey,
		maxSize: DefaultMaxSize,
		subs:    make(map[int]func([]domain.RecipeID)),
	}
	for _, opt := range opts {
		opt(s)
	}

	ids, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.ids = ids
	s.unwatch = kv.Watch(s.onExternalChange)

	log.Debug("loaded %d candidates (max=%d)", len(ids), s.maxSize)
	return s, nil
}

// Close stops listening for external changes.
func (s *Store) Close() {
	if s.unwatch != nil {
		s.unwatch()
	}
}

// MaxSize returns the selection bound.
func (s *Store) MaxSize() int {
	return s.maxSize
}

// List returns the selection in insertion order.
func (s *Store) List() []domain.RecipeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ids)
}

// Contains reports whether id is selected.
func (s *Store) Contains(id domain.RecipeID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.ids, id)
}

// Full reports whether another Add would be ignored.
func (s *Store) Full() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids) >= s.maxSize
}

// Add appends id. Adding a present id, or adding beyond the bound, is a
// no-op.
func (s *Store) Add(ctx context.Context, id domain.RecipeID) error {
	return s.mutate(ctx, "add", func(ids []domain.RecipeID) ([]domain.RecipeID, bool) {
		if id == "" || slices.Contains(ids, id) {
			return ids, false
		}
		if len(ids) >= s.maxSize {
			s.log.Debug("candidate %s ignored: selection full (%d)", id, s.maxSize)
			return ids, false
		}
		return append(slices.Clone(ids), id), true
	})
}

// Remove drops id. Removing an absent id is a no-op.
func (s *Store) Remove(ctx context.Context, id domain.RecipeID) error {
	return s.mutate(ctx, "remove", func(ids []domain.RecipeID) ([]domain.RecipeID, bool) {
		i := slices.Index(ids, id)
		if i < 0 {
			return ids, false
		}
		return slices.Delete(slices.Clone(ids), i, i+1), true
	})
}

// Clear empties the selection.
func (s *Store) Clear(ctx context.Context) error {
	return s.mutate(ctx, "clear", func(ids []domain.RecipeID) ([]domain.RecipeID, bool) {
		if len(ids) == 0 {
			return ids, false
		}
		return []domain.RecipeID{}, true
	})
}

// Subscribe registers fn for every later change. fn is never called
// during registration. The returned function unsubscribes.
func (s *Store) Subscribe(fn func([]domain.RecipeID)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Resync re-reads the persisted selection. Call it when a view regains
// focus to pick up changes another process made. Subscribers are notified
// only when the selection actually differs.
func (s *Store) Resync(ctx context.Context) error {
	ids, err := s.load(ctx)
	if err != nil {
		return err
	}
	s.adopt(ids, "resync")
	return nil
}

// mutate applies fn, persists the result and notifies subscribers. A
// failed persist keeps the in-memory change and is reported.
func (s *Store) mutate(ctx context.Context, op string, fn func([]domain.RecipeID) ([]domain.RecipeID, bool)) error {
	s.writeMu.Lock()
	s.mu.Lock()
	next, changed := fn(s.ids)
	if !changed {
		s.mu.Unlock()
		s.writeMu.Unlock()
		return nil
	}
	s.ids = next
	snapshot := slices.Clone(next)
	s.mu.Unlock()

	persistErr := s.persist(ctx, snapshot)
	s.writeMu.Unlock()

	if persistErr != nil {
		s.log.Error("%s candidates: %v", op, persistErr)
		persistErr = &domain.PersistenceError{Op: op, Key: s.key, Err: persistErr}
	} else {
		s.log.Debug("%s candidates -> %v", op, snapshot)
	}

	s.notify(snapshot)
	return persistErr
}

func (s *Store) persist(ctx context.Context, ids []domain.RecipeID) error {
	if len(ids) == 0 {
		return s.kv.Remove(ctx, s.key)
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode candidates: %w", err)
	}
	return s.kv.Set(ctx, s.key, raw)
}

func (s *Store) load(ctx context.Context) ([]domain.RecipeID, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.RecipeID{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read candidates: %w", err)
	}

	var ids []domain.RecipeID
	if err := json.Unmarshal(raw, &ids); err != nil {
		// A corrupt entry is treated as empty rather than blocking the app.
		s.log.Warn("discarding unreadable candidates: %v", err)
		return []domain.RecipeID{}, nil
	}
	return s.sanitize(ids), nil
}

// sanitize enforces the invariants on data written by someone else.
func (s *Store) sanitize(ids []domain.RecipeID) []domain.RecipeID {
	out := make([]domain.RecipeID, 0, len(ids))
	for _, id := range ids {
		if id == "" || slices.Contains(out, id) {
			continue
		}
		if len(out) == s.maxSize {
			break
		}
		out = append(out, id)
	}
	return out
}

// onExternalChange handles the key-value change signal. The echo of this
// store's own write reads back the list already in memory, so adopt
// ignores it. It may run inside kv.Set on a goroutine holding writeMu.
func (s *Store) onExternalChange(key string) {
	if key != s.key {
		return
	}
	ids, err := s.load(context.Background())
	if err != nil {
		s.log.Warn("reloading candidates after external change: %v", err)
		return
	}
	s.adopt(ids, "external change")
}

// adopt replaces the in-memory list with ids when they differ.
func (s *Store) adopt(ids []domain.RecipeID, why string) {
	s.mu.Lock()
	if slices.Equal(s.ids, ids) {
		s.mu.Unlock()
		return
	}
	s.ids = ids
	snapshot := slices.Clone(ids)
	s.mu.Unlock()

	s.log.Debug("candidates updated by %s -> %v", why, snapshot)
	s.notify(snapshot)
}

func (s *Store) notify(ids []domain.RecipeID) {
	s.mu.Lock()
	keys := make([]int, 0, len(s.subs))
	for k := range s.subs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	fns := make([]func([]domain.RecipeID), 0, len(keys))
	for _, k := range keys {
		fns = append(fns, s.subs[k])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(slices.Clone(ids))
	}
}

// Package mem implements an in-memory pile store.
package mem

import (
	"context"
	"sync"

	"github.com/bobg/pile"
	"github.com/bobg/pile/store"
)

var _ pile.Store = &Store{}

// Store is a memory-based implementation of a pile store.
type Store struct {
	mu     sync.Mutex
	values map[string][]byte
	lists  map[string][][]byte
}

// New produces a new Store.
func New() *Store {
	return &Store{
		values: make(map[string][]byte),
		lists:  make(map[string][][]byte),
	}
}

// SetNX sets key to value if key is absent.
func (s *Store) SetNX(_ context.Context, key string, value []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.exists(key) {
		return false, nil
	}
	s.values[key] = clone(value)
	return true, nil
}

// Get gets the value of key.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return clone(v), true, nil
}

// RPush appends value to the list at key.
func (s *Store) RPush(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lists[key] = append(s.lists[key], clone(value))
	return nil
}

// LRange returns a range of the list at key.
func (s *Store) LRange(_ context.Context, key string, start, end int64) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.lists[key]
	lo, hi := store.Span(len(items), start, end)

	result := make([][]byte, 0, hi-lo)
	for _, item := range items[lo:hi] {
		result = append(result, clone(item))
	}
	return result, nil
}

// Exists tells whether key is present.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.exists(key), nil
}

// Caller must obtain a lock.
func (s *Store) exists(key string) bool {
	if _, ok := s.values[key]; ok {
		return true
	}
	_, ok := s.lists[key]
	return ok
}

// Del removes key.
func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	delete(s.lists, key)
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return append([]byte(nil), b...)
}

func init() {
	store.Register("mem", func(context.Context, map[string]interface{}) (pile.Store, error) {
		return New(), nil
	})
}

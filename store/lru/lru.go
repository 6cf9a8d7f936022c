// Package lru implements a pile store that acts as a least-recently-used cache for a nested store.
package lru

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/bobg/pile"
	"github.com/bobg/pile/store"
)

var _ pile.Store = &Store{}

// Store implements a memory-based least-recently-used cache for a pile store.
// It caches only plain values, not lists.
// Writes pass through to the underlying store.
//
// Plain values in a pile never change once set,
// but they can be deleted,
// so Del evicts the key
// and a Get that overlaps a Del does not cache what it read.
type Store struct {
	c *lru.Cache // key->[]byte
	s pile.Store

	mu  sync.Mutex // protects gen
	gen uint64     // incremented by every Del
}

// New produces a new Store backed by `s` and caching up to `size` values.
func New(s pile.Store, size int) (*Store, error) {
	c, err := lru.New(size)
	return &Store{s: s, c: c}, err
}

func (s *Store) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// addIfCurrent caches value for key if no Del has happened since generation gen.
func (s *Store) addIfCurrent(gen uint64, key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.c.Add(key, value)
	}
}

// SetNX implements pile.Store.
func (s *Store) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	gen := s.generation()
	wasSet, err := s.s.SetNX(ctx, key, value)
	if err != nil || !wasSet {
		return wasSet, err
	}
	s.addIfCurrent(gen, key, clone(value))
	return true, nil
}

// Get implements pile.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if got, ok := s.c.Get(key); ok {
		return clone(got.([]byte)), true, nil
	}
	gen := s.generation()
	value, ok, err := s.s.Get(ctx, key)
	if err != nil || !ok {
		return value, ok, err
	}
	s.addIfCurrent(gen, key, clone(value))
	return value, true, nil
}

// RPush implements pile.Store.
func (s *Store) RPush(ctx context.Context, key string, value []byte) error {
	return s.s.RPush(ctx, key, value)
}

// LRange implements pile.Store.
func (s *Store) LRange(ctx context.Context, key string, start, end int64) ([][]byte, error) {
	return s.s.LRange(ctx, key, start, end)
}

// Exists implements pile.Store.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if s.c.Contains(key) {
		return true, nil
	}
	return s.s.Exists(ctx, key)
}

// Del implements pile.Store.
// The key is evicted both before and after the nested Del,
// so a Get that reads the value while the nested Del is in progress
// cannot leave it in the cache.
func (s *Store) Del(ctx context.Context, key string) error {
	s.evict(key)
	err := s.s.Del(ctx, key)
	s.evict(key)
	return err
}

func (s *Store) evict(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.c.Remove(key)
}

func clone(b []byte) []byte {
	return append([]byte{}, b...)
}

func init() {
	store.Register("lru", func(ctx context.Context, conf map[string]interface{}) (pile.Store, error) {
		var c struct {
			Size int `mapstructure:"size"`
		}
		if err := store.Decode(conf, &c); err != nil {
			return nil, errors.Wrap(err, "decoding lru config")
		}
		if c.Size <= 0 {
			return nil, errors.New(`missing or invalid "size" parameter`)
		}
		nested, err := store.Nested(ctx, conf)
		if err != nil {
			return nil, err
		}
		return New(nested, c.Size)
	})
}

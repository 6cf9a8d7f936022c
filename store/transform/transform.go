// Package transform implements a pile store that transforms values
// on their way into and out of a nested store.
package transform

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bobg/pile"
)

var _ pile.Store = &Store{}

// Store is a pile store wrapping a nested store and a Transformer.
// Plain values and list elements alike are transformed according to the Transformer
// on their way in and out of the nested store.
// Keys are not transformed.
type Store struct {
	s pile.Store
	x Transformer
}

// Transformer tells how to transform a value on its way into and out of a Store.
// Out should be the inverse of In.
type Transformer interface {
	// In transforms a value on its way into the store.
	In(context.Context, []byte) ([]byte, error)

	// Out transforms a value on its way out of the store.
	Out(context.Context, []byte) ([]byte, error)
}

// New produces a new Store.
func New(s pile.Store, x Transformer) *Store {
	return &Store{s: s, x: x}
}

// SetNX implements pile.Store.
func (s *Store) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	in, err := s.x.In(ctx, value)
	if err != nil {
		return false, errors.Wrapf(err, "transforming value for %s", key)
	}
	return s.s.SetNX(ctx, key, in)
}

// Get implements pile.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	got, ok, err := s.s.Get(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	out, err := s.out(ctx, got)
	if err != nil {
		return nil, false, errors.Wrapf(err, "untransforming value for %s", key)
	}
	return out, true, nil
}

// RPush implements pile.Store.
func (s *Store) RPush(ctx context.Context, key string, value []byte) error {
	in, err := s.x.In(ctx, value)
	if err != nil {
		return errors.Wrapf(err, "transforming list element for %s", key)
	}
	return s.s.RPush(ctx, key, in)
}

// LRange implements pile.Store.
func (s *Store) LRange(ctx context.Context, key string, start, end int64) ([][]byte, error) {
	items, err := s.s.LRange(ctx, key, start, end)
	if err != nil {
		return nil, err
	}
	result := make([][]byte, 0, len(items))
	for i, item := range items {
		out, err := s.out(ctx, item)
		if err != nil {
			return nil, errors.Wrapf(err, "untransforming element %d of %s", i, key)
		}
		result = append(result, out)
	}
	return result, nil
}

// Exists implements pile.Store.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	return s.s.Exists(ctx, key)
}

// Del implements pile.Store.
func (s *Store) Del(ctx context.Context, key string) error {
	return s.s.Del(ctx, key)
}

// out applies the Transformer's Out, normalizing a nil result to an empty value.
func (s *Store) out(ctx context.Context, b []byte) ([]byte, error) {
	out, err := s.x.Out(ctx, b)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []byte{}
	}
	return out, nil
}

// Package logging implements a store that delegates everything to a nested store,
// logging operations as they happen.
package logging

import (
	"context"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/bobg/pile"
	"github.com/bobg/pile/store"
)

var _ pile.Store = &Store{}

// Store is a pile store that logs every call to a nested store.
// Successful calls are logged at debug level, failures at error level.
// Values are not logged, only their sizes.
type Store struct {
	s      pile.Store
	logger log.Logger
}

// New produces a new Store.
func New(s pile.Store, logger log.Logger) *Store {
	return &Store{s: s, logger: logger}
}

func (s *Store) log(err error, keyvals ...interface{}) {
	if err != nil {
		level.Error(s.logger).Log(append(keyvals, "err", err)...)
		return
	}
	level.Debug(s.logger).Log(keyvals...)
}

// SetNX implements pile.Store.
func (s *Store) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	wasSet, err := s.s.SetNX(ctx, key, value)
	s.log(err, "op", "SetNX", "key", key, "size", len(value), "set", wasSet)
	return wasSet, err
}

// Get implements pile.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, ok, err := s.s.Get(ctx, key)
	s.log(err, "op", "Get", "key", key, "found", ok, "size", len(value))
	return value, ok, err
}

// RPush implements pile.Store.
func (s *Store) RPush(ctx context.Context, key string, value []byte) error {
	err := s.s.RPush(ctx, key, value)
	s.log(err, "op", "RPush", "key", key, "size", len(value))
	return err
}

// LRange implements pile.Store.
func (s *Store) LRange(ctx context.Context, key string, start, end int64) ([][]byte, error) {
	items, err := s.s.LRange(ctx, key, start, end)
	s.log(err, "op", "LRange", "key", key, "start", start, "end", end, "count", len(items))
	return items, err
}

// Exists implements pile.Store.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := s.s.Exists(ctx, key)
	s.log(err, "op", "Exists", "key", key, "exists", exists)
	return exists, err
}

// Del implements pile.Store.
func (s *Store) Del(ctx context.Context, key string) error {
	err := s.s.Del(ctx, key)
	s.log(err, "op", "Del", "key", key)
	return err
}

func init() {
	store.Register("logging", func(ctx context.Context, conf map[string]interface{}) (pile.Store, error) {
		nested, err := store.Nested(ctx, conf)
		if err != nil {
			return nil, err
		}
		logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
		return New(nested, log.With(logger, "ts", log.DefaultTimestampUTC)), nil
	})
}

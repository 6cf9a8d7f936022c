// Package redis implements a pile store on Redis.
// Every Store method is the Redis command of the same name,
// so this is the reference implementation of the Store contract.
package redis

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/bobg/pile"
	"github.com/bobg/pile/store"
)

var _ pile.Store = &Store{}

// Store is a Redis-based pile store.
type Store struct {
	c redis.UniversalClient
}

// New produces a new Store using c.
func New(c redis.UniversalClient) *Store {
	return &Store{c: c}
}

// SetNX implements pile.Store.
func (s *Store) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	wasSet, err := s.c.SetNX(ctx, key, value, 0).Result()
	return wasSet, errors.Wrapf(err, "SETNX %s", key)
}

// Get implements pile.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "GET %s", key)
	}
	return value, true, nil
}

// RPush implements pile.Store.
func (s *Store) RPush(ctx context.Context, key string, value []byte) error {
	return errors.Wrapf(s.c.RPush(ctx, key, value).Err(), "RPUSH %s", key)
}

// LRange implements pile.Store.
func (s *Store) LRange(ctx context.Context, key string, start, end int64) ([][]byte, error) {
	items, err := s.c.LRange(ctx, key, start, end).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "LRANGE %s %d %d", key, start, end)
	}
	result := make([][]byte, 0, len(items))
	for _, item := range items {
		result = append(result, []byte(item))
	}
	return result, nil
}

// Exists implements pile.Store.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.c.Exists(ctx, key).Result()
	return n > 0, errors.Wrapf(err, "EXISTS %s", key)
}

// Del implements pile.Store.
func (s *Store) Del(ctx context.Context, key string) error {
	return errors.Wrapf(s.c.Del(ctx, key).Err(), "DEL %s", key)
}

// Config is the configuration for a registry-created Store.
type Config struct {
	// URL is a redis:// or rediss:// URL.
	// If it is set, Addr, Password, and DB are ignored.
	URL string `mapstructure:"url"`

	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func init() {
	store.Register("redis", func(_ context.Context, conf map[string]interface{}) (pile.Store, error) {
		var c Config
		if err := store.Decode(conf, &c); err != nil {
			return nil, errors.Wrap(err, "decoding redis config")
		}

		if c.URL != "" {
			opts, err := redis.ParseURL(c.URL)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing redis URL %s", c.URL)
			}
			return New(redis.NewClient(opts)), nil
		}

		if c.Addr == "" {
			return nil, errors.New(`missing "url" or "addr" parameter`)
		}
		return New(redis.NewClient(&redis.Options{
			Addr:     c.Addr,
			Password: c.Password,
			DB:       c.DB,
		})), nil
	})
}

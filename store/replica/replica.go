// Package replica implements a pile store that mirrors the writes to a primary store
// onto any number of other stores, asynchronously.
package replica

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/pile"
	"github.com/bobg/pile/store"
)

var _ pile.Store = (*Store)(nil)

// ErrClosed is the error for a write to a Store after Close.
var ErrClosed = errors.New("replica store closed")

// Store is a pile store that delegates reads and writes to a primary store,
// and replays each successful write on a set of mirror stores.
//
// The primary store is authoritative:
// SetNX is decided by the primary alone,
// and reads never consult the mirrors.
// Writes to the mirrors are queued and do not block the caller,
// unless a mirror falls more than the queue length behind.
// Each mirror sees the writes in the same order as the primary.
//
// If any mirror write encounters an error,
// the whole Store is put into an error state and further operations will fail.
type Store struct {
	primary pile.Store
	mirrors []chan<- op
	g       *errgroup.Group
	gctx    context.Context // canceled when any mirror goroutine fails

	wmu    sync.Mutex // serializes writes, protects closed
	closed bool

	mu  sync.Mutex // protects err
	err error      // the error from a mirror goroutine, if any
}

type opKind int

const (
	opSetNX opKind = iota
	opRPush
	opDel
)

type op struct {
	kind  opKind
	key   string
	value []byte
}

func (o op) apply(ctx context.Context, s pile.Store) error {
	switch o.kind {
	case opSetNX:
		// A mirror that already has the value is not an error.
		_, err := s.SetNX(ctx, o.key, o.value)
		return errors.Wrapf(err, "mirroring SetNX of %s", o.key)
	case opRPush:
		return errors.Wrapf(s.RPush(ctx, o.key, o.value), "mirroring RPush to %s", o.key)
	case opDel:
		return errors.Wrapf(s.Del(ctx, o.key), "mirroring Del of %s", o.key)
	}
	return errors.Errorf("unknown op kind %d", o.kind)
}

// New produces a new Store.
// A goroutine is launched for each mirror,
// and canceling the given context object causes those to exit,
// placing the Store in an error state.
//
// The queue for each mirror has a fixed length given by n,
// which must be 1 or greater.
//
// Call Close to wait for the mirrors to catch up.
func New(ctx context.Context, primary pile.Store, mirrors []pile.Store, n int) *Store {
	g, gctx := errgroup.WithContext(ctx)
	s := &Store{primary: primary, g: g, gctx: gctx}

	for _, m := range mirrors {
		var (
			m  = m
			ch = make(chan op, n)
		)
		s.mirrors = append(s.mirrors, ch)
		g.Go(func() error {
			return s.runMirror(gctx, m, ch)
		})
	}

	return s
}

// Runs as a goroutine until ch is closed, ctx is canceled, or an error occurs.
func (s *Store) runMirror(ctx context.Context, m pile.Store, ch <-chan op) error {
	for {
		select {
		case <-ctx.Done():
			s.setErr(ctx.Err())
			return ctx.Err()

		case o, ok := <-ch:
			if !ok {
				return nil
			}
			if err := o.apply(ctx, m); err != nil {
				s.setErr(err)
				return err
			}
		}
	}
}

func (s *Store) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *Store) checkErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Wrap(s.err, "in mirror goroutine")
}

// write performs f on the primary store
// and, if it reports that it changed something,
// queues o for every mirror.
func (s *Store) write(o op, f func() (bool, error)) (bool, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	if s.closed {
		return false, ErrClosed
	}
	if err := s.checkErr(); err != nil {
		return false, err
	}

	changed, err := f()
	if err != nil || !changed {
		return changed, err
	}

	// The primary has committed,
	// so the op goes to every mirror even if ctx is canceled now.
	for _, ch := range s.mirrors {
		select {
		case <-s.gctx.Done():
			if err := s.checkErr(); err != nil {
				return true, err
			}
			return true, errors.Wrap(s.gctx.Err(), "mirrors stopped")
		case ch <- o:
		}
	}
	return true, nil
}

// SetNX implements pile.Store.
func (s *Store) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	o := op{kind: opSetNX, key: key, value: append([]byte{}, value...)}
	return s.write(o, func() (bool, error) {
		return s.primary.SetNX(ctx, key, value)
	})
}

// Get implements pile.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := s.checkErr(); err != nil {
		return nil, false, err
	}
	return s.primary.Get(ctx, key)
}

// RPush implements pile.Store.
func (s *Store) RPush(ctx context.Context, key string, value []byte) error {
	o := op{kind: opRPush, key: key, value: append([]byte{}, value...)}
	_, err := s.write(o, func() (bool, error) {
		return true, s.primary.RPush(ctx, key, value)
	})
	return err
}

// LRange implements pile.Store.
func (s *Store) LRange(ctx context.Context, key string, start, end int64) ([][]byte, error) {
	if err := s.checkErr(); err != nil {
		return nil, err
	}
	return s.primary.LRange(ctx, key, start, end)
}

// Exists implements pile.Store.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := s.checkErr(); err != nil {
		return false, err
	}
	return s.primary.Exists(ctx, key)
}

// Del implements pile.Store.
func (s *Store) Del(ctx context.Context, key string) error {
	_, err := s.write(op{kind: opDel, key: key}, func() (bool, error) {
		return true, s.primary.Del(ctx, key)
	})
	return err
}

// Close stops accepting writes,
// waits for every mirror to apply the writes already queued,
// and reports the first mirror error, if any.
func (s *Store) Close() error {
	s.wmu.Lock()
	if !s.closed {
		s.closed = true
		for _, ch := range s.mirrors {
			close(ch)
		}
	}
	s.wmu.Unlock()

	return s.g.Wait()
}

func init() {
	store.Register("replica", func(ctx context.Context, conf map[string]interface{}) (pile.Store, error) {
		var c struct {
			Primary  map[string]interface{}   `mapstructure:"primary"`
			Mirrors  []map[string]interface{} `mapstructure:"mirrors"`
			QueueLen int                      `mapstructure:"queuelen"`
		}
		if err := store.Decode(conf, &c); err != nil {
			return nil, errors.Wrap(err, "decoding replica config")
		}
		if c.Primary == nil {
			return nil, errors.New(`missing "primary" parameter`)
		}
		if c.QueueLen <= 0 {
			c.QueueLen = 10
		}

		primary, err := create(ctx, c.Primary)
		if err != nil {
			return nil, errors.Wrap(err, "creating primary store")
		}

		var mirrors []pile.Store
		for i, m := range c.Mirrors {
			mirror, err := create(ctx, m)
			if err != nil {
				return nil, errors.Wrapf(err, "creating mirror store %d", i)
			}
			mirrors = append(mirrors, mirror)
		}

		return New(ctx, primary, mirrors, c.QueueLen), nil
	})
}

func create(ctx context.Context, conf map[string]interface{}) (pile.Store, error) {
	typ, ok := conf["type"].(string)
	if !ok {
		return nil, errors.New(`missing "type"`)
	}
	return store.Create(ctx, typ, conf)
}

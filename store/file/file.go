// Package file implements a pile store as a file hierarchy.
//
// Each plain value is a file under values/,
// each list is an append-only file of length-prefixed entries under lists/,
// and file names are the hex encoding of keys.
// Keys whose hex encoding would be too long for a file name
// are named by the hex encoding of their SHA-256 hash instead,
// with a "sha256-" prefix that no hex encoding can produce.
// Writers hold an flock on a per-key file under locks/,
// so several processes can share one Store root.
package file

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/bobg/flock"
	"github.com/pkg/errors"

	"github.com/bobg/pile"
	"github.com/bobg/pile/store"
)

var _ pile.Store = &Store{}

// Store is a file-based implementation of a pile store.
type Store struct {
	root    string
	flocker flock.Locker
}

// New produces a new Store storing data beneath `root`.
func New(root string) *Store {
	return &Store{root: root}
}

// Most filesystems limit a file name to 255 bytes.
const maxNameLen = 200

func (s *Store) path(dir, key string) string {
	return filepath.Join(s.root, dir, fileName(key))
}

func fileName(key string) string {
	name := hex.EncodeToString([]byte(key))
	if len(name) <= maxNameLen {
		return name
	}
	sum := sha256.Sum256([]byte(key))
	return "sha256-" + hex.EncodeToString(sum[:])
}

func (s *Store) valuePath(key string) string { return s.path("values", key) }
func (s *Store) listPath(key string) string  { return s.path("lists", key) }
func (s *Store) lockPath(key string) string  { return s.path("locks", key) }

func (s *Store) withLock(key string, f func() error) error {
	path := s.lockPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "ensuring path %s exists", filepath.Dir(path))
	}
	if err := s.flocker.Lock(path); err != nil {
		return errors.Wrapf(err, "locking %s", path)
	}
	defer s.flocker.Unlock(path)

	return f()
}

// SetNX implements pile.Store.
// The value is written to a temporary file
// and then hard-linked into place,
// which fails if the destination already exists.
func (s *Store) SetNX(_ context.Context, key string, value []byte) (bool, error) {
	var wasSet bool
	err := s.withLock(key, func() error {
		exists, err := fileExists(s.listPath(key))
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		path := s.valuePath(key)
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "ensuring path %s exists", dir)
		}

		tmp, err := os.CreateTemp(dir, "tmp-")
		if err != nil {
			return errors.Wrap(err, "creating temp file")
		}
		defer os.Remove(tmp.Name())

		_, err = tmp.Write(value)
		if err != nil {
			tmp.Close()
			return errors.Wrapf(err, "writing data to %s", tmp.Name())
		}
		if err = tmp.Close(); err != nil {
			return errors.Wrapf(err, "closing %s", tmp.Name())
		}

		err = os.Link(tmp.Name(), path)
		if os.IsExist(err) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "linking %s", path)
		}
		wasSet = true
		return nil
	})
	return wasSet, err
}

// Get implements pile.Store.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	path := s.valuePath(key)
	value, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "reading %s", path)
	}
	return value, true, nil
}

// RPush implements pile.Store.
func (s *Store) RPush(_ context.Context, key string, value []byte) error {
	return s.withLock(key, func() error {
		path := s.listPath(key)
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "ensuring path %s exists", dir)
		}

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return errors.Wrapf(err, "opening %s", path)
		}
		defer f.Close()

		var lenbuf [binary.MaxVarintLen64]byte
		n := binary.PutUvarint(lenbuf[:], uint64(len(value)))
		rec := append(lenbuf[:n:n], value...)

		_, err = f.Write(rec)
		if err != nil {
			return errors.Wrapf(err, "appending to %s", path)
		}
		return errors.Wrapf(f.Close(), "closing %s", path)
	})
}

// LRange implements pile.Store.
func (s *Store) LRange(_ context.Context, key string, start, end int64) ([][]byte, error) {
	var items [][]byte
	err := s.withLock(key, func() error {
		path := s.listPath(key)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "reading %s", path)
		}
		items, err = decodeList(data)
		return errors.Wrapf(err, "decoding %s", path)
	})
	if err != nil {
		return nil, err
	}

	lo, hi := store.Span(len(items), start, end)
	result := make([][]byte, 0, hi-lo)
	return append(result, items[lo:hi]...), nil
}

func decodeList(data []byte) ([][]byte, error) {
	var (
		items [][]byte
		r     = bytes.NewReader(data)
	)
	for {
		n, err := binary.ReadUvarint(r)
		if err == io.EOF {
			return items, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading entry length")
		}
		item := make([]byte, n)
		if _, err = io.ReadFull(r, item); err != nil {
			return nil, errors.Wrap(err, "reading entry")
		}
		items = append(items, item)
	}
}

// Exists implements pile.Store.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	exists, err := fileExists(s.valuePath(key))
	if err != nil || exists {
		return exists, err
	}
	return fileExists(s.listPath(key))
}

// Del implements pile.Store.
func (s *Store) Del(_ context.Context, key string) error {
	return s.withLock(key, func() error {
		for _, path := range []string{s.valuePath(key), s.listPath(key)} {
			err := os.Remove(path)
			if err != nil && !os.IsNotExist(err) {
				return errors.Wrapf(err, "removing %s", path)
			}
		}
		return nil
	})
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "checking %s", path)
	}
	return true, nil
}

func init() {
	store.Register("file", func(_ context.Context, conf map[string]interface{}) (pile.Store, error) {
		var c struct {
			Root string `mapstructure:"root"`
		}
		if err := store.Decode(conf, &c); err != nil {
			return nil, errors.Wrap(err, "decoding file config")
		}
		if c.Root == "" {
			return nil, errors.New(`missing "root" parameter`)
		}
		return New(c.Root), nil
	})
}

// Package gcs implements a pile store on Google Cloud Storage.
package gcs

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/bobg/pile"
	"github.com/bobg/pile/store"
)

var _ pile.Store = &Store{}

// Store is a Google Cloud Storage-based implementation of a pile store.
//
// A plain value is the object "v:" + hex(key).
// A list is the object "l:" + hex(key),
// holding a JSON array of its entries.
// Objects are created with a does-not-exist precondition
// and lists are rewritten with a generation-match precondition,
// so concurrent writers never overwrite one another.
type Store struct {
	bucket *storage.BucketHandle
}

// New produces a new Store.
func New(bucket *storage.BucketHandle) *Store {
	return &Store{bucket: bucket}
}

func valueObjName(key string) string {
	return "v:" + hex.EncodeToString([]byte(key))
}

func listObjName(key string) string {
	return "l:" + hex.EncodeToString([]byte(key))
}

// SetNX implements pile.Store.
// It does not check for a list at the same key.
func (s *Store) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	name := valueObjName(key)
	err := s.write(ctx, s.bucket.Object(name).If(storage.Conditions{DoesNotExist: true}), value)
	if isPreconditionFailed(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "writing object %s", name)
	}
	return true, nil
}

func (s *Store) write(ctx context.Context, obj *storage.ObjectHandle, data []byte) error {
	w := obj.NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	// Precondition failures are reported by Close.
	return w.Close()
}

func isPreconditionFailed(err error) bool {
	var e *googleapi.Error
	return errors.As(err, &e) && e.Code == http.StatusPreconditionFailed
}

// Get implements pile.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	name := valueObjName(key)
	data, err := s.read(ctx, s.bucket.Object(name))
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "reading object %s", name)
	}
	return data, true, nil
}

func (s *Store) read(ctx context.Context, obj *storage.ObjectHandle) ([]byte, error) {
	r, err := obj.NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// readList returns the entries of a list and the generation they were read at.
// A missing list has generation 0.
func (s *Store) readList(ctx context.Context, key string) ([][]byte, int64, error) {
	obj := s.bucket.Object(listObjName(key))
	attrs, err := obj.Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, errors.Wrapf(err, "getting attrs of %s", obj.ObjectName())
	}

	data, err := s.read(ctx, obj.Generation(attrs.Generation))
	if errors.Is(err, storage.ErrObjectNotExist) {
		// Replaced or deleted since Attrs; the caller retries.
		return nil, -1, nil
	}
	if err != nil {
		return nil, 0, errors.Wrapf(err, "reading %s", obj.ObjectName())
	}

	var items [][]byte
	if err = json.Unmarshal(data, &items); err != nil {
		return nil, 0, errors.Wrapf(err, "decoding %s", obj.ObjectName())
	}
	return items, attrs.Generation, nil
}

// RPush implements pile.Store.
func (s *Store) RPush(ctx context.Context, key string, value []byte) error {
	obj := s.bucket.Object(listObjName(key))
	for {
		items, gen, err := s.readList(ctx, key)
		if err != nil {
			return err
		}
		if gen < 0 {
			continue
		}

		data, err := json.Marshal(append(items, value))
		if err != nil {
			return errors.Wrap(err, "encoding list")
		}

		cond := storage.Conditions{DoesNotExist: true}
		if gen > 0 {
			cond = storage.Conditions{GenerationMatch: gen}
		}
		err = s.write(ctx, obj.If(cond), data)
		if isPreconditionFailed(err) {
			continue
		}
		return errors.Wrapf(err, "writing object %s", obj.ObjectName())
	}
}

// LRange implements pile.Store.
func (s *Store) LRange(ctx context.Context, key string, start, end int64) ([][]byte, error) {
	for {
		items, gen, err := s.readList(ctx, key)
		if err != nil {
			return nil, err
		}
		if gen < 0 {
			continue
		}
		lo, hi := store.Span(len(items), start, end)
		result := make([][]byte, 0, hi-lo)
		return append(result, items[lo:hi]...), nil
	}
}

// Exists implements pile.Store.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	for _, name := range []string{valueObjName(key), listObjName(key)} {
		_, err := s.bucket.Object(name).Attrs(ctx)
		if errors.Is(err, storage.ErrObjectNotExist) {
			continue
		}
		if err != nil {
			return false, errors.Wrapf(err, "getting attrs of %s", name)
		}
		return true, nil
	}
	return false, nil
}

// Del implements pile.Store.
func (s *Store) Del(ctx context.Context, key string) error {
	for _, name := range []string{valueObjName(key), listObjName(key)} {
		err := s.bucket.Object(name).Delete(ctx)
		if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return errors.Wrapf(err, "deleting %s", name)
		}
	}
	return nil
}

func init() {
	store.Register("gcs", func(ctx context.Context, conf map[string]interface{}) (pile.Store, error) {
		var c struct {
			Creds  string `mapstructure:"creds"`
			Bucket string `mapstructure:"bucket"`
		}
		if err := store.Decode(conf, &c); err != nil {
			return nil, errors.Wrap(err, "decoding gcs config")
		}
		if c.Creds == "" {
			return nil, errors.New(`missing "creds" parameter`)
		}
		if c.Bucket == "" {
			return nil, errors.New(`missing "bucket" parameter`)
		}
		client, err := storage.NewClient(ctx, option.WithCredentialsFile(c.Creds))
		if err != nil {
			return nil, errors.Wrap(err, "creating cloud storage client")
		}
		return New(client.Bucket(c.Bucket)), nil
	})
}

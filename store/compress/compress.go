// Package compress implements a pile store that compresses and uncompresses values
// on their way into and out of a nested store.
package compress

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bobg/pile"
	"github.com/bobg/pile/store"
	"github.com/bobg/pile/store/transform"
)

// Compressor is a transform.Transformer that compresses on the way in
// and uncompresses on the way out.
type Compressor interface {
	Compress([]byte) ([]byte, error)
	Uncompress([]byte) ([]byte, error)
}

type transformer struct {
	c Compressor
}

func (t transformer) In(_ context.Context, b []byte) ([]byte, error) {
	return t.c.Compress(b)
}

func (t transformer) Out(_ context.Context, b []byte) ([]byte, error) {
	return t.c.Uncompress(b)
}

// New produces a new store that compresses values with c
// before storing them in s.
func New(s pile.Store, c Compressor) *transform.Store {
	return transform.New(s, transformer{c: c})
}

func init() {
	store.Register("compress", func(ctx context.Context, conf map[string]interface{}) (pile.Store, error) {
		var c struct {
			Algorithm string `mapstructure:"algorithm"`
			Level     int    `mapstructure:"level"`
		}
		if err := store.Decode(conf, &c); err != nil {
			return nil, errors.Wrap(err, "decoding compress config")
		}

		var comp Compressor
		switch c.Algorithm {
		case "", "zstd":
			z, err := NewZstd(c.Level)
			if err != nil {
				return nil, err
			}
			comp = z
		case "flate":
			comp = Flate{Level: c.Level}
		case "lzw":
			comp = LZW{}
		default:
			return nil, errors.Errorf("unknown compression algorithm %q", c.Algorithm)
		}

		nested, err := store.Nested(ctx, conf)
		if err != nil {
			return nil, err
		}
		return New(nested, comp), nil
	})
}

package compress

import (
	"bytes"
	"compress/flate"
	"compress/lzw"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Zstd is a Compressor using Zstandard.
// It is safe for concurrent use.
type Zstd struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewZstd produces a new Zstd compressor.
// Level is 1 (fastest) to 4 (best compression);
// 0 means the library's default.
func NewZstd(level int) (*Zstd, error) {
	var opts []zstd.EOption
	if level != 0 {
		opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevel(level)))
	}
	enc, err := zstd.NewWriter(nil, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating zstd encoder")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating zstd decoder")
	}
	return &Zstd{enc: enc, dec: dec}, nil
}

func (z *Zstd) Compress(inp []byte) ([]byte, error) {
	return z.enc.EncodeAll(inp, nil), nil
}

func (z *Zstd) Uncompress(inp []byte) ([]byte, error) {
	out, err := z.dec.DecodeAll(inp, nil)
	return out, errors.Wrap(err, "zstd decoding")
}

type Flate struct {
	Level int
}

func (f Flate) Compress(inp []byte) ([]byte, error) {
	level := f.Level
	if level < flate.HuffmanOnly || level > flate.BestCompression {
		level = flate.DefaultCompression
	}
	buf := new(bytes.Buffer)
	w, err := flate.NewWriter(buf, level)
	if err != nil {
		return nil, errors.Wrap(err, "creating flate writer")
	}
	if _, err = w.Write(inp); err != nil {
		return nil, errors.Wrap(err, "flate encoding")
	}
	if err = w.Close(); err != nil {
		return nil, errors.Wrap(err, "flate encoding")
	}
	return buf.Bytes(), nil
}

func (f Flate) Uncompress(inp []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(inp))
	defer r.Close()
	out, err := io.ReadAll(r)
	return out, errors.Wrap(err, "flate decoding")
}

type LZW struct {
	Order lzw.Order
}

func (l LZW) Compress(inp []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	w := lzw.NewWriter(buf, l.Order, 8)
	if _, err := w.Write(inp); err != nil {
		return nil, errors.Wrap(err, "lzw encoding")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "lzw encoding")
	}
	return buf.Bytes(), nil
}

func (l LZW) Uncompress(inp []byte) ([]byte, error) {
	r := lzw.NewReader(bytes.NewReader(inp), l.Order, 8)
	defer r.Close()
	out, err := io.ReadAll(r)
	return out, errors.Wrap(err, "lzw decoding")
}

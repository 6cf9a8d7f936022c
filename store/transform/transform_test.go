package transform

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"github.com/bobg/pile/store/mem"
	"github.com/bobg/pile/testutil"
)

// rot13 is an invertible transformer
// that makes transformed and untransformed values easy to tell apart.
type rot13 struct{}

func (rot13) In(_ context.Context, b []byte) ([]byte, error) {
	out := make([]byte, len(b))
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z':
			out[i] = 'a' + (c-'a'+13)%26
		case c >= 'A' && c <= 'Z':
			out[i] = 'A' + (c-'A'+13)%26
		default:
			out[i] = c
		}
	}
	return out, nil
}

func (r rot13) Out(ctx context.Context, b []byte) ([]byte, error) {
	return r.In(ctx, b)
}

func TestContract(t *testing.T) {
	testutil.Contract(context.Background(), t, New(mem.New(), rot13{}))
}

func TestTransform(t *testing.T) {
	var (
		ctx    = context.Background()
		nested = mem.New()
		s      = New(nested, rot13{})
	)

	if _, err := s.SetNX(ctx, "fred", []byte("yogurt")); err != nil {
		t.Fatal(err)
	}
	raw, _, err := nested.Get(ctx, "fred")
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "lbtheg" {
		t.Errorf("nested store has %q, want lbtheg", raw)
	}

	if err = s.RPush(ctx, "cooks", []byte("sam")); err != nil {
		t.Fatal(err)
	}
	rawItems, err := nested.LRange(ctx, "cooks", 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([][]byte{[]byte("fnz")}, rawItems); diff != "" {
		t.Errorf("nested list mismatch (-want +got):\n%s", diff)
	}
	items, err := s.LRange(ctx, "cooks", 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([][]byte{[]byte("sam")}, items); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
}

type broken struct{}

var errBroken = errors.New("broken")

func (broken) In(context.Context, []byte) ([]byte, error)  { return nil, errBroken }
func (broken) Out(context.Context, []byte) ([]byte, error) { return nil, errBroken }

func TestTransformError(t *testing.T) {
	var (
		ctx    = context.Background()
		nested = mem.New()
		s      = New(nested, broken{})
	)

	if _, err := s.SetNX(ctx, "fred", []byte("yogurt")); !errors.Is(err, errBroken) {
		t.Errorf("got %v, want %v", err, errBroken)
	}
	if ok, _ := nested.Exists(ctx, "fred"); ok {
		t.Error("value stored despite transform failure")
	}

	if _, err := nested.SetNX(ctx, "fred", []byte("yogurt")); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Get(ctx, "fred"); !errors.Is(err, errBroken) {
		t.Errorf("got %v, want %v", err, errBroken)
	}
}

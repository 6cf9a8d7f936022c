package lru

import (
	"context"
	"testing"

	"github.com/bobg/pile"
	"github.com/bobg/pile/store/mem"
	"github.com/bobg/pile/testutil"
)

func TestContract(t *testing.T) {
	s, err := New(mem.New(), 16)
	if err != nil {
		t.Fatal(err)
	}
	testutil.Contract(context.Background(), t, s)
}

func TestPile(t *testing.T) {
	s, err := New(mem.New(), 16)
	if err != nil {
		t.Fatal(err)
	}
	testutil.Pile(context.Background(), t, s)
}

func TestCache(t *testing.T) {
	var (
		ctx    = context.Background()
		nested = mem.New()
	)
	s, err := New(nested, 16)
	if err != nil {
		t.Fatal(err)
	}

	if _, err = nested.SetNX(ctx, "fred", []byte("yogurt")); err != nil {
		t.Fatal(err)
	}
	if _, _, err = s.Get(ctx, "fred"); err != nil {
		t.Fatal(err)
	}
	if !s.c.Contains("fred") {
		t.Fatal("value not cached after Get")
	}

	// Bypass the cache: the cached copy is still served.
	if err = nested.Del(ctx, "fred"); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.Get(ctx, "fred")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || string(got) != "yogurt" {
		t.Errorf("got %q (present: %v), want cached yogurt", got, ok)
	}

	if err = s.Del(ctx, "fred"); err != nil {
		t.Fatal(err)
	}
	if s.c.Contains("fred") {
		t.Error("value still cached after Del")
	}
	if _, ok, _ = s.Get(ctx, "fred"); ok {
		t.Error("deleted value still served")
	}
}

func TestStaleGet(t *testing.T) {
	ctx := context.Background()
	s, err := New(mem.New(), 16)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = s.s.SetNX(ctx, "fred", []byte("yogurt")); err != nil {
		t.Fatal(err)
	}

	// Simulate a Get that read the value, then lost a race with Del.
	gen := s.generation()
	if err = s.Del(ctx, "fred"); err != nil {
		t.Fatal(err)
	}
	s.addIfCurrent(gen, "fred", []byte("yogurt"))

	if s.c.Contains("fred") {
		t.Error("stale read was cached")
	}
}

// blockingDel is a store whose Del waits for a signal before deleting.
type blockingDel struct {
	*mem.Store
	entered chan struct{}
	release chan struct{}
}

func (b *blockingDel) Del(ctx context.Context, key string) error {
	close(b.entered)
	<-b.release
	return b.Store.Del(ctx, key)
}

func TestGetDuringRedaction(t *testing.T) {
	var (
		ctx    = context.Background()
		nested = &blockingDel{
			Store:   mem.New(),
			entered: make(chan struct{}),
			release: make(chan struct{}),
		}
	)
	s, err := New(nested, 16)
	if err != nil {
		t.Fatal(err)
	}
	c := pile.New(s, pile.DefaultConfig())

	if err = c.PutData(ctx, "fred", []byte("yogurt")); err != nil {
		t.Fatal(err)
	}
	s.c.Purge()

	redactErr := make(chan error, 1)
	go func() {
		redactErr <- c.RedactData(ctx, "fred", "court order 156")
	}()

	// While the nested Del is blocked the value is still there,
	// and reading it must not put it back in the cache.
	<-nested.entered
	got, err := c.GetData(ctx, "fred")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "yogurt" {
		t.Fatalf("got %q during redaction, want yogurt", got)
	}

	close(nested.release)
	if err = <-redactErr; err != nil {
		t.Fatal(err)
	}

	if s.c.Contains(c.Keys().Data("fred")) {
		t.Error("redacted value still cached")
	}
	if _, err = c.GetData(ctx, "fred"); pile.KindOf(err) != pile.KindRedacted {
		t.Errorf("got %v after redaction, want redacted", err)
	}
}

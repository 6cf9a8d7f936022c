package file

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/pile/testutil"
)

func TestContract(t *testing.T) {
	testutil.Contract(context.Background(), t, New(t.TempDir()))
}

func TestPile(t *testing.T) {
	testutil.Pile(context.Background(), t, New(t.TempDir()))
}

func TestReopen(t *testing.T) {
	var (
		ctx  = context.Background()
		root = t.TempDir()
	)

	s := New(root)
	if _, err := s.SetNX(ctx, "fred", []byte("yogurt")); err != nil {
		t.Fatal(err)
	}
	for _, v := range []string{"", "sam", "tammy"} {
		if err := s.RPush(ctx, "cooks", []byte(v)); err != nil {
			t.Fatal(err)
		}
	}

	s = New(root)
	got, ok, err := s.Get(ctx, "fred")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || string(got) != "yogurt" {
		t.Errorf("got %q (present: %v), want yogurt", got, ok)
	}

	items, err := s.LRange(ctx, "cooks", 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	var strs []string
	for _, item := range items {
		strs = append(strs, string(item))
	}
	if diff := cmp.Diff([]string{"", "sam", "tammy"}, strs); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(s.path("values", ""))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "66726564" { // hex("fred")
			t.Errorf("unexpected file %s in values dir", e.Name())
		}
	}
}

func TestLongKeys(t *testing.T) {
	var (
		ctx  = context.Background()
		s    = New(t.TempDir())
		long = strings.Repeat("k", 300)
	)

	// Both keys share a 120-byte prefix and differ after it.
	a := "piledb:data:" + strings.Repeat("x", 108) + "a"
	b := "piledb:data:" + strings.Repeat("x", 108) + "b"

	for _, key := range []string{long, a, b} {
		if name := fileName(key); len(name) > maxNameLen+len("sha256-") {
			t.Errorf("file name for %d-byte key is %d bytes long", len(key), len(name))
		}
		wasSet, err := s.SetNX(ctx, key, []byte(key[len(key)-1:]))
		if err != nil {
			t.Fatal(err)
		}
		if !wasSet {
			t.Errorf("SetNX did not set %d-byte key", len(key))
		}
		if err = s.RPush(ctx, key+":list", []byte("sam")); err != nil {
			t.Fatal(err)
		}
	}

	for _, key := range []string{long, a, b} {
		got, ok, err := s.Get(ctx, key)
		if err != nil {
			t.Fatal(err)
		}
		if want := key[len(key)-1:]; !ok || string(got) != want {
			t.Errorf("got %q (present: %v), want %q", got, ok, want)
		}
		items, err := s.LRange(ctx, key+":list", 0, -1)
		if err != nil {
			t.Fatal(err)
		}
		if len(items) != 1 {
			t.Errorf("got %d list items, want 1", len(items))
		}
	}

	if fileName("fred") != "66726564" {
		t.Errorf("short key not hex-named: %s", fileName("fred"))
	}
}

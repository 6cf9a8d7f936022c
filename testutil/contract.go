// Package testutil contains conformance tests for pile.Store implementations.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/pile"
)

// Contract checks that s behaves the way pile.Client expects a Store to.
// Keys are prefixed with a fresh random string,
// so Contract can run against a shared, non-empty backend.
func Contract(ctx context.Context, t *testing.T, s pile.Store) {
	prefix := "contract:" + uuid.NewString()
	key := func(name string) string {
		return prefix + ":" + name
	}

	t.Run("get_after_setnx", func(t *testing.T) {
		wasSet, err := s.SetNX(ctx, key("fred"), []byte("yogurt"))
		if err != nil {
			t.Fatal(err)
		}
		if !wasSet {
			t.Fatal("SetNX on a new key did not set it")
		}
		got, ok, err := s.Get(ctx, key("fred"))
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatal("key not found after SetNX")
		}
		if !bytes.Equal(got, []byte("yogurt")) {
			t.Errorf("got %q, want yogurt", got)
		}
	})

	t.Run("setnx_twice", func(t *testing.T) {
		wasSet, err := s.SetNX(ctx, key("bob"), []byte("pizza"))
		if err != nil {
			t.Fatal(err)
		}
		if !wasSet {
			t.Fatal("first SetNX did not set the key")
		}
		wasSet, err = s.SetNX(ctx, key("bob"), []byte("calzone"))
		if err != nil {
			t.Fatal(err)
		}
		if wasSet {
			t.Error("second SetNX set the key")
		}
		got, _, err := s.Get(ctx, key("bob"))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, []byte("pizza")) {
			t.Errorf("got %q, want pizza", got)
		}
	})

	t.Run("setnx_race", func(t *testing.T) {
		const n = 8

		var (
			g    errgroup.Group
			wins int32
		)
		for i := 0; i < n; i++ {
			i := i
			g.Go(func() error {
				wasSet, err := s.SetNX(ctx, key("race"), []byte(fmt.Sprintf("racer %d", i)))
				if err != nil {
					return err
				}
				if wasSet {
					atomic.AddInt32(&wins, 1)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatal(err)
		}
		if wins != 1 {
			t.Errorf("%d of %d concurrent SetNX calls won, want 1", wins, n)
		}
	})

	t.Run("exists_after_setnx", func(t *testing.T) {
		_, err := s.SetNX(ctx, key("alice"), []byte("cupcakes"))
		if err != nil {
			t.Fatal(err)
		}
		exists, err := s.Exists(ctx, key("alice"))
		if err != nil {
			t.Fatal(err)
		}
		if !exists {
			t.Error("key does not exist after SetNX")
		}
	})

	t.Run("absent_by_default", func(t *testing.T) {
		exists, err := s.Exists(ctx, key("eva"))
		if err != nil {
			t.Fatal(err)
		}
		if exists {
			t.Error("untouched key exists")
		}
		_, ok, err := s.Get(ctx, key("eva"))
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			t.Error("untouched key has a value")
		}
	})

	t.Run("del", func(t *testing.T) {
		_, err := s.SetNX(ctx, key("betty"), []byte("fried chicken"))
		if err != nil {
			t.Fatal(err)
		}
		if err = s.Del(ctx, key("betty")); err != nil {
			t.Fatal(err)
		}
		exists, err := s.Exists(ctx, key("betty"))
		if err != nil {
			t.Fatal(err)
		}
		if exists {
			t.Error("key exists after Del")
		}
		if err = s.Del(ctx, key("betty")); err != nil {
			t.Errorf("deleting an absent key: %s", err)
		}
	})

	t.Run("list_empty_by_default", func(t *testing.T) {
		got, err := s.LRange(ctx, key("cadet"), 0, -1)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 0 {
			t.Errorf("got %q, want nothing", got)
		}
	})

	t.Run("rpush_order", func(t *testing.T) {
		for _, v := range []string{"sam", "tammy"} {
			if err := s.RPush(ctx, key("cook"), []byte(v)); err != nil {
				t.Fatal(err)
			}
		}
		got, err := s.LRange(ctx, key("cook"), 0, -1)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"sam", "tammy"}, strs(got)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
		exists, err := s.Exists(ctx, key("cook"))
		if err != nil {
			t.Fatal(err)
		}
		if !exists {
			t.Error("list key does not exist after RPush")
		}
	})

	t.Run("lrange", func(t *testing.T) {
		for _, v := range []string{"john", "james"} {
			if err := s.RPush(ctx, key("deckhand"), []byte(v)); err != nil {
				t.Fatal(err)
			}
		}
		cases := []struct {
			start, end int64
			want       []string
		}{
			{start: 0, end: 0, want: []string{"john"}},
			{start: 0, end: 1, want: []string{"john", "james"}},
			{start: 1, end: 1, want: []string{"james"}},
			{start: -1, end: -1, want: []string{"james"}},
			{start: -2, end: -2, want: []string{"john"}},
			{start: -2, end: -1, want: []string{"john", "james"}},
			{start: 0, end: -1, want: []string{"john", "james"}},
			{start: 3, end: 3, want: []string{}},
			{start: 1, end: 0, want: []string{}},
			{start: -5, end: 5, want: []string{"john", "james"}},
		}
		for _, c := range cases {
			t.Run(fmt.Sprintf("%d_%d", c.start, c.end), func(t *testing.T) {
				got, err := s.LRange(ctx, key("deckhand"), c.start, c.end)
				if err != nil {
					t.Fatal(err)
				}
				if diff := cmp.Diff(c.want, strs(got)); diff != "" {
					t.Errorf("mismatch (-want +got):\n%s", diff)
				}
			})
		}
	})

	t.Run("del_list", func(t *testing.T) {
		if err := s.RPush(ctx, key("mate"), []byte("ishmael")); err != nil {
			t.Fatal(err)
		}
		if err := s.Del(ctx, key("mate")); err != nil {
			t.Fatal(err)
		}
		got, err := s.LRange(ctx, key("mate"), 0, -1)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 0 {
			t.Errorf("got %q after Del, want nothing", got)
		}
	})
}

func strs(items [][]byte) []string {
	result := make([]string, 0, len(items))
	for _, item := range items {
		result = append(result, string(item))
	}
	return result
}

package pg

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/pile/testutil"
)

func TestContract(t *testing.T) {
	withStore(t, func(ctx context.Context, s *Store) {
		testutil.Contract(ctx, t, s)
	})
}

func TestPile(t *testing.T) {
	withStore(t, func(ctx context.Context, s *Store) {
		testutil.Pile(ctx, t, s)
	})
}

// Every list a reader sees during concurrent appends
// must be a prefix of the final list.
func TestConcurrentAppends(t *testing.T) {
	withStore(t, func(ctx context.Context, s *Store) {
		const (
			writers = 4
			appends = 25
		)

		var (
			key       = "appends:" + uuid.NewString()
			snapshots [][]string
			wg        errgroup.Group
			done      = make(chan struct{})
		)

		for w := 0; w < writers; w++ {
			w := w
			wg.Go(func() error {
				for i := 0; i < appends; i++ {
					if err := s.RPush(ctx, key, []byte(fmt.Sprintf("%d-%d", w, i))); err != nil {
						return err
					}
				}
				return nil
			})
		}

		var rg errgroup.Group
		rg.Go(func() error {
			for {
				items, err := s.LRange(ctx, key, 0, -1)
				if err != nil {
					return err
				}
				snapshots = append(snapshots, strs(items))
				select {
				case <-done:
					return nil
				default:
				}
			}
		})

		err := wg.Wait()
		close(done)
		if err != nil {
			t.Fatal(err)
		}
		if err = rg.Wait(); err != nil {
			t.Fatal(err)
		}

		items, err := s.LRange(ctx, key, 0, -1)
		if err != nil {
			t.Fatal(err)
		}
		final := strs(items)
		if len(final) != writers*appends {
			t.Fatalf("got %d elements, want %d", len(final), writers*appends)
		}
		for _, snap := range snapshots {
			if diff := cmp.Diff(final[:len(snap)], snap); diff != "" {
				t.Fatalf("snapshot is not a prefix of the final list (-want +got):\n%s", diff)
			}
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

const connVar = "PILE_PG_TESTING_CONN"

func withStore(t *testing.T, f func(context.Context, *Store)) {
	connstr := os.Getenv(connVar)
	if connstr == "" {
		t.Skipf("to run %s, set %s to a valid Postgresql connection string", t.Name(), connVar)
	}

	db, err := sql.Open("postgres", connstr)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	s, err := New(ctx, db)
	if err != nil {
		t.Fatal(err)
	}

	f(ctx, s)
}

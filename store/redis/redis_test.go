package redis

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"

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

const addrVar = "PILE_REDIS_TESTING_ADDR"

func withStore(t *testing.T, f func(context.Context, *Store)) {
	addr := os.Getenv(addrVar)
	if addr == "" {
		t.Skipf("to run %s, set %s to the address of a Redis server", t.Name(), addrVar)
	}

	c := redis.NewClient(&redis.Options{Addr: addr})
	defer c.Close()

	ctx := context.Background()
	if err := c.Ping(ctx).Err(); err != nil {
		t.Fatal(err)
	}

	f(ctx, New(c))
}

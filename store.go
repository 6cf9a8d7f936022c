package pile

import "context"

// Store is the backend that a Client keeps all its state in.
// Its six methods are modeled on the Redis commands of the same names,
// and each must be atomic with respect to itself.
//
// Keys name either a plain value
// (created by SetNX)
// or a list
// (created by the first RPush).
// Exists and Del apply to both.
type Store interface {
	// SetNX sets key to value only if key is absent,
	// in one atomic check-and-set.
	// It reports whether the key was newly set.
	SetNX(ctx context.Context, key string, value []byte) (bool, error)

	// Get gets the value of a key.
	// The boolean is false if the key is absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// RPush appends value to the end of the list at key,
	// creating the list if necessary.
	RPush(ctx context.Context, key string, value []byte) error

	// LRange returns the elements of the list at key
	// from start to end inclusive.
	// Negative indexes count back from the end of the list
	// (-1 is the last element).
	// Out-of-range indexes produce an empty (or shorter) result,
	// never an error,
	// and so does a missing list.
	// See store.Span.
	LRange(ctx context.Context, key string, start, end int64) ([][]byte, error)

	// Exists tells whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Del removes key and its value or list.
	// Removing an absent key is not an error.
	Del(ctx context.Context, key string) error
}

package store

// Span converts the inclusive, possibly negative range [start, end]
// of a Redis-style LRANGE over a list of the given length
// into the half-open slice bounds [lo, hi).
// Negative indexes count back from the end of the list.
// Indexes past either end are clamped,
// and a range that is empty after resolution produces lo == hi.
//
// For a list of length 2:
//
//	( 0,  0) -> [0, 1)
//	( 0,  1) -> [0, 2)
//	( 1,  1) -> [1, 2)
//	(-1, -1) -> [1, 2)
//	(-2, -1) -> [0, 2)
//	( 3,  3) -> empty
func Span(length int, start, end int64) (lo, hi int) {
	if length <= 0 {
		return 0, 0
	}
	n := int64(length)
	if start < 0 {
		start += n
	}
	if end < 0 {
		end += n
	}
	if start < 0 {
		start = 0
	}
	if end >= n {
		end = n - 1
	}
	if start >= n || end < 0 || start > end {
		return 0, 0
	}
	return int(start), int(end + 1)
}

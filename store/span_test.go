package store

import (
	"fmt"
	"testing"
)

func TestSpan(t *testing.T) {
	cases := []struct {
		length     int
		start, end int64
		lo, hi     int
	}{
		{length: 2, start: 0, end: 0, lo: 0, hi: 1},
		{length: 2, start: 0, end: 1, lo: 0, hi: 2},
		{length: 2, start: 1, end: 1, lo: 1, hi: 2},
		{length: 2, start: -1, end: -1, lo: 1, hi: 2},
		{length: 2, start: -2, end: -1, lo: 0, hi: 2},
		{length: 2, start: -2, end: -2, lo: 0, hi: 1},
		{length: 2, start: 3, end: 3, lo: 0, hi: 0},
		{length: 2, start: 2, end: 5, lo: 0, hi: 0},
		{length: 2, start: 0, end: 100, lo: 0, hi: 2},
		{length: 2, start: -100, end: -1, lo: 0, hi: 2},
		{length: 2, start: -100, end: -3, lo: 0, hi: 0},
		{length: 2, start: 1, end: 0, lo: 0, hi: 0},
		{length: 2, start: -1, end: 0, lo: 0, hi: 0},

		{length: 0, start: 0, end: -1, lo: 0, hi: 0},
		{length: 0, start: -1, end: -1, lo: 0, hi: 0},
		{length: 0, start: 3, end: 3, lo: 0, hi: 0},

		{length: 1, start: 0, end: -1, lo: 0, hi: 1},
		{length: 1, start: -1, end: -1, lo: 0, hi: 1},
		{length: 1, start: 1, end: 1, lo: 0, hi: 0},

		{length: 5, start: 1, end: 3, lo: 1, hi: 4},
		{length: 5, start: 1, end: 1, lo: 1, hi: 2},
		{length: 5, start: -3, end: -2, lo: 2, hi: 4},
		{length: 5, start: 2, end: -1, lo: 2, hi: 5},
		{length: 5, start: -1, end: 4, lo: 4, hi: 5},
		{length: 5, start: 4, end: -2, lo: 0, hi: 0},
	}

	for _, c := range cases {
		t.Run(fmt.Sprintf("len%d_%d_%d", c.length, c.start, c.end), func(t *testing.T) {
			lo, hi := Span(c.length, c.start, c.end)
			if lo == hi && c.lo == c.hi {
				return
			}
			if lo != c.lo || hi != c.hi {
				t.Errorf("got [%d, %d), want [%d, %d)", lo, hi, c.lo, c.hi)
			}
		})
	}
}

// TestSpanExhaustive checks Span against a direct element-by-element
// reading of the LRANGE rules for every small length and index pair.
func TestSpanExhaustive(t *testing.T) {
	for length := 0; length <= 6; length++ {
		for start := int64(-8); start <= 8; start++ {
			for end := int64(-8); end <= 8; end++ {
				var want []int
				for i := 0; i < length; i++ {
					s, e := start, end
					if s < 0 {
						s += int64(length)
					}
					if e < 0 {
						e += int64(length)
					}
					if int64(i) >= s && int64(i) <= e {
						want = append(want, i)
					}
				}

				lo, hi := Span(length, start, end)
				if lo < 0 || hi > length || lo > hi {
					t.Fatalf("Span(%d, %d, %d) = [%d, %d) is out of bounds", length, start, end, lo, hi)
				}
				if hi-lo != len(want) {
					t.Fatalf("Span(%d, %d, %d) = [%d, %d), want %v", length, start, end, lo, hi, want)
				}
				for j, w := range want {
					if lo+j != w {
						t.Fatalf("Span(%d, %d, %d) = [%d, %d), want %v", length, start, end, lo, hi, want)
					}
				}
			}
		}
	}
}

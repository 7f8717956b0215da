// Package rng is the single random stream behind mission generation.
// Every choice a generator makes goes through one Stream so that a fixed
// seed reproduces an identical mission bit for bit.
package rng

import "math/rand"

type Stream struct {
	r *rand.Rand
}

func New(seed int64) *Stream {
	return &Stream{r: rand.New(rand.NewSource(seed))}
}

// IntRange returns a uniform int in [lo, hi).
func (s *Stream) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.r.Intn(hi-lo)
}

func (s *Stream) Bool() bool {
	return s.r.Intn(2) == 0
}

func (s *Stream) Float() float64 {
	return s.r.Float64()
}

// Elem returns a uniform element of xs. xs must be non-empty.
func Elem[T any](s *Stream, xs []T) T {
	return xs[s.r.Intn(len(xs))]
}

// Subset returns n distinct elements of xs, in draw order, without
// replacement. n must not exceed len(xs).
func Subset[T any](s *Stream, xs []T, n int) []T {
	pool := make([]T, len(xs))
	copy(pool, xs)
	out := make([]T, 0, n)
	for len(out) < n {
		i := s.r.Intn(len(pool))
		out = append(out, pool[i])
		pool = append(pool[:i], pool[i+1:]...)
	}
	return out
}

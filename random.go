package faultnet

import (
	"math/rand/v2"
)

// RandomSource produces uniformly distributed integers. Every probabilistic
// decision the Network makes goes through it, so a seeded source makes a run
// replayable given the same sequence of driver calls.
//
// *rand.Rand from math/rand/v2 satisfies this interface.
type RandomSource interface {
	// IntN returns a uniform integer in [0, n). n is always > 0.
	IntN(n int) int
}

// NewSeededSource returns a deterministic PCG-backed source.
func NewSeededSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0)) //nolint:gosec // not used for security
}

// intRange draws a uniform integer in [lo, hi] inclusive.
func intRange(rng RandomSource, lo, hi int) int {
	return lo + rng.IntN(hi-lo+1)
}

// Draw is a single recorded call to a RandomSource.
type Draw struct {
	N      int `yaml:"n"`
	Result int `yaml:"result"`
}

// RecordingSource wraps a RandomSource and records every draw made through
// it. The recorded results can be fed to NewReplaySource to rerun a failing
// case, or edited by hand to shrink it.
type RecordingSource struct {
	source RandomSource
	draws  []Draw
}

// NewRecordingSource wraps source.
func NewRecordingSource(source RandomSource) *RecordingSource {
	return &RecordingSource{source: source}
}

// IntN implements RandomSource.
func (r *RecordingSource) IntN(n int) int {
	v := r.source.IntN(n)
	r.draws = append(r.draws, Draw{N: n, Result: v})
	return v
}

// Draws returns a copy of every draw recorded so far.
func (r *RecordingSource) Draws() []Draw {
	return append([]Draw{}, r.draws...)
}

// Results returns only the drawn values, suitable for NewReplaySource.
func (r *RecordingSource) Results() []int {
	results := make([]int, len(r.draws))
	for i, d := range r.draws {
		results[i] = d.Result
	}
	return results
}

// ReplaySource replays a fixed sequence of draws. It panics with ErrReplay
// when the sequence is exhausted or a value does not fit the requested range,
// which means the driver no longer makes the calls the recording was taken
// from.
type ReplaySource struct {
	results []int
	next    int
}

// NewReplaySource creates a source that returns results in order.
func NewReplaySource(results []int) *ReplaySource {
	return &ReplaySource{results: append([]int{}, results...)}
}

// IntN implements RandomSource.
func (r *ReplaySource) IntN(n int) int {
	if r.next >= len(r.results) {
		panic(wrapReplayf("draw %d requested but only %d recorded", r.next, len(r.results)))
	}
	v := r.results[r.next]
	if v < 0 || v >= n {
		panic(wrapReplayf("draw %d recorded %d, outside [0, %d)", r.next, v, n))
	}
	r.next++
	return v
}

// Remaining returns how many recorded draws have not been consumed.
func (r *ReplaySource) Remaining() int {
	return len(r.results) - r.next
}

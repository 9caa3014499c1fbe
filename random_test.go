package faultnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeededSourceIsDeterministic(t *testing.T) {
	a := NewSeededSource(1234)
	b := NewSeededSource(1234)
	for range 100 {
		assert.Equal(t, a.IntN(1000), b.IntN(1000))
	}
}

func TestIntRangeBounds(t *testing.T) {
	rng := NewSeededSource(1)
	seen := make(map[int]bool)
	for range 1000 {
		v := intRange(rng, 1, 3)
		require.GreaterOrEqual(t, v, 1)
		require.LessOrEqual(t, v, 3)
		seen[v] = true
	}
	assert.Len(t, seen, 3)
}

func TestRecordingSource(t *testing.T) {
	rec := NewRecordingSource(NewReplaySource([]int{2, 0, 4}))

	assert.Equal(t, 2, rec.IntN(3))
	assert.Equal(t, 0, rec.IntN(1))
	assert.Equal(t, 4, rec.IntN(5))

	assert.Equal(t, []Draw{{N: 3, Result: 2}, {N: 1, Result: 0}, {N: 5, Result: 4}}, rec.Draws())
	assert.Equal(t, []int{2, 0, 4}, rec.Results())
}

func TestReplaySourceExhausted(t *testing.T) {
	rng := NewReplaySource([]int{0})
	rng.IntN(1)

	err := recoverError(func() { rng.IntN(1) })
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReplay)
}

func TestReplaySourceOutOfRange(t *testing.T) {
	rng := NewReplaySource([]int{5})

	err := recoverError(func() { rng.IntN(3) })
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReplay)
	assert.Equal(t, 1, rng.Remaining())
}

func TestReplaySourceCopiesInput(t *testing.T) {
	results := []int{1}
	rng := NewReplaySource(results)
	results[0] = 0

	assert.Equal(t, 1, rng.IntN(2))
}

package result_test

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/molscreen/molscreen/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferBounded(t *testing.T) {
	t.Parallel()

	b := result.NewBuffer(10, 5)
	for i := 0; i < 1000; i++ {
		compacted := b.Add([]result.Record{{ItemID: fmt.Sprintf("lig-%04d", i), Score: rand.Float64()}})
		if compacted {
			assert.LessOrEqual(t, b.Len(), 10)
		}
		assert.Less(t, b.Len(), 10+5)
	}
}

func TestBufferThresholdMonotonic(t *testing.T) {
	t.Parallel()

	b := result.NewBuffer(5, 3)
	assert.True(t, math.IsInf(b.Threshold(), 1), "empty buffer must admit everything")

	prev := b.Threshold()
	for i := 0; i < 500; i++ {
		b.Add([]result.Record{{ItemID: fmt.Sprintf("lig-%04d", i), Score: rand.NormFloat64()}})
		cur := b.Threshold()
		assert.LessOrEqual(t, cur, prev, "threshold must never loosen")
		prev = cur
	}
}

func TestBufferTopKCorrectness(t *testing.T) {
	t.Parallel()

	const k = 7
	b := result.NewBuffer(k, 4)

	var all []result.Record
	for i := 0; i < 300; i++ {
		r := result.Record{ItemID: fmt.Sprintf("lig-%04d", i), Score: rand.Float64()*20 - 10}
		all = append(all, r)
		b.Add([]result.Record{r})
	}

	result.Sort(all)
	assert.Equal(t, all[:k], b.Final())
}

func TestBufferDuplicateStraddlesCut(t *testing.T) {
	t.Parallel()

	b := result.NewBuffer(2, 2)
	b.Add([]result.Record{
		{ItemID: "a", Score: -1.0},
		{ItemID: "b", Score: -2.0},
		{ItemID: "a", Score: -9.0},
		{ItemID: "c", Score: -3.0},
	})

	// The better instance of "a" must survive, not the one past the cut.
	assert.Equal(t, []result.Record{
		{ItemID: "a", Score: -9.0},
		{ItemID: "c", Score: -3.0},
	}, b.Final())
}

func TestBufferClampsCapacity(t *testing.T) {
	t.Parallel()

	b := result.NewBuffer(5000, 50)
	require.Equal(t, result.MaxOutputs, b.Capacity())

	var batch []result.Record
	for i := 0; i < 3000; i++ {
		batch = append(batch, result.Record{ItemID: fmt.Sprintf("lig-%05d", i), Score: float64(i)})
	}
	b.Add(batch)

	assert.Len(t, b.Final(), result.MaxOutputs)
}

func TestBufferFinalIdempotent(t *testing.T) {
	t.Parallel()

	b := result.NewBuffer(3, 2)
	b.Add([]result.Record{
		{ItemID: "d", Score: 4},
		{ItemID: "a", Score: 1},
		{ItemID: "c", Score: 3},
		{ItemID: "b", Score: 2},
	})

	first := b.Final()
	second := b.Final()

	assert.Equal(t, first, second)
	assert.LessOrEqual(t, b.Len(), 3)
}

func TestBufferUnderfilled(t *testing.T) {
	t.Parallel()

	b := result.NewBuffer(10, 5)
	b.Add([]result.Record{{ItemID: "only", Score: -4.2}})

	assert.True(t, math.IsInf(b.Threshold(), 1))
	assert.Equal(t, []result.Record{{ItemID: "only", Score: -4.2}}, b.Final())
}

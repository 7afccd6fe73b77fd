package containers

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueueFIFO(t *testing.T) {
	q := NewRingQueue[int](3)
	assert.True(t, q.IsEmpty())

	require.NoError(t, q.Enqueue(1))
	require.NoError(t, q.Enqueue(2))
	require.NoError(t, q.Enqueue(3))
	assert.True(t, q.IsFull())
	assert.True(t, errors.Is(q.Enqueue(4), ErrQueueFull))

	v, err := q.Peek()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	for want := 1; want <= 3; want++ {
		got, err := q.Dequeue()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err = q.Dequeue()
	assert.True(t, errors.Is(err, ErrQueueEmpty))
}

func TestRingQueueWrapsAround(t *testing.T) {
	q := NewRingQueue[string](2)
	for i, s := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, q.Enqueue(s))
		got, err := q.Dequeue()
		require.NoError(t, err, "iteration %d", i)
		assert.Equal(t, s, got)
	}
	assert.Equal(t, 0, q.Len())
}

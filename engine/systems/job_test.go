package systems

import (
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobSystemValidatesArguments(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)
	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}

func TestRunAllWaitsAndCombinesErrors(t *testing.T) {
	js, err := NewJobSystem(3, 1)
	require.NoError(t, err)
	defer js.Shutdown()

	var ran, completed, failed int32
	tasks := make([]JobTask, 10)
	for i := range tasks {
		i := i
		tasks[i] = JobTask{
			Name: "task",
			OnStart: func() error {
				atomic.AddInt32(&ran, 1)
				if i%5 == 0 {
					return errors.Newf("task %d failed", i)
				}
				return nil
			},
			OnComplete: func() { atomic.AddInt32(&completed, 1) },
			OnFailure:  func(error) { atomic.AddInt32(&failed, 1) },
		}
	}

	err = js.RunAll(tasks)
	require.Error(t, err)
	assert.Equal(t, int32(10), atomic.LoadInt32(&ran))
	assert.Equal(t, int32(8), atomic.LoadInt32(&completed))
	assert.Equal(t, int32(2), atomic.LoadInt32(&failed))
}

func TestSubmitAfterShutdown(t *testing.T) {
	js, err := NewJobSystem(1, 0)
	require.NoError(t, err)
	require.NoError(t, js.Shutdown())
	assert.ErrorIs(t, js.Submit(JobTask{OnStart: func() error { return nil }}), ErrJobSystemClosed)
	assert.ErrorIs(t, js.Shutdown(), ErrJobSystemClosed)
	assert.ErrorIs(t, js.RunAll([]JobTask{{OnStart: func() error { return nil }}}), ErrJobSystemClosed)
}

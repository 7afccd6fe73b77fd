package systems

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/lumen/engine/core"
)

/**
 * @brief Describes a job to be run.
 */
type JobTask struct {
	Name string
	/** @brief Invoked when the job starts. Required. */
	OnStart func() error
	/** @brief Invoked when the job successfully completes. Optional. */
	OnComplete func()
	/** @brief Invoked when the job fails. Optional. */
	OnFailure func(err error)
	// Called after OnComplete or OnFailure.
	done func(err error)
}

type JobSystem struct {
	numWorkers int
	jobQueue   chan JobTask
	wg         sync.WaitGroup
	closed     bool
	mu         sync.Mutex
}

var ErrNoWorkers = errors.New("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = errors.New("attempting to create worker pool with a negative channel size")
var ErrJobSystemClosed = errors.New("job system is shut down")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan JobTask, channelSize),
	}
	js.start()
	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				err := job.OnStart()
				if err != nil {
					err = errors.Wrapf(err, "job %s", job.Name)
					core.LogError(err.Error())
					if job.OnFailure != nil {
						job.OnFailure(err)
					}
				} else if job.OnComplete != nil {
					job.OnComplete()
				}
				if job.done != nil {
					job.done(err)
				}
			}
		}()
	}
}

/**
 * @brief Shuts the job system down, waiting for queued jobs to finish.
 */
func (js *JobSystem) Shutdown() error {
	js.mu.Lock()
	if js.closed {
		js.mu.Unlock()
		return ErrJobSystemClosed
	}
	js.closed = true
	close(js.jobQueue)
	js.mu.Unlock()
	js.wg.Wait()
	return nil
}

/**
 * @brief Submits the provided job to be queued for execution.
 */
func (js *JobSystem) Submit(jt JobTask) error {
	js.mu.Lock()
	defer js.mu.Unlock()
	if js.closed {
		return ErrJobSystemClosed
	}
	js.jobQueue <- jt
	return nil
}

// RunAll submits every task and blocks until all have finished. The returned
// error combines the failures of all tasks.
func (js *JobSystem) RunAll(tasks []JobTask) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	wg.Add(len(tasks))
	for _, task := range tasks {
		task.done = func(err error) {
			if err != nil {
				mu.Lock()
				errs = errors.CombineErrors(errs, err)
				mu.Unlock()
			}
			wg.Done()
		}
		// Submitting from a goroutine keeps a small queue from blocking the caller.
		go func(t JobTask) {
			if err := js.Submit(t); err != nil {
				t.done(err)
			}
		}(task)
	}
	wg.Wait()
	return errs
}

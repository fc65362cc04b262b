package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"reelsmith/internal/queue"
)

// workUnit is one dispatched stage execution.
type workUnit struct {
	requestID string
	taskID    int64
	stageID   queue.StageID
	run       func(ctx context.Context) error
	done      func(requestID string, err error)
}

func newWorkUnit(taskID int64, stageID queue.StageID, run func(ctx context.Context) error, done func(string, error)) *workUnit {
	return &workUnit{
		requestID: uuid.NewString(),
		taskID:    taskID,
		stageID:   stageID,
		run:       run,
		done:      done,
	}
}

// providerQueue enforces the concurrency ceiling of one external capability.
// Pending units dispatch FIFO; completions are handled in finish order.
type providerQueue struct {
	name string
	max  int

	mu      sync.Mutex
	active  int
	pending []*workUnit
}

func newProviderQueue(name string, maxConcurrency int) *providerQueue {
	if maxConcurrency < 1 {
		// A zero ceiling would deadlock every dependent stage.
		maxConcurrency = 1
	}
	return &providerQueue{name: name, max: maxConcurrency}
}

// Enqueue appends the unit and immediately tries to dispatch it.
func (q *providerQueue) Enqueue(ctx context.Context, wg *sync.WaitGroup, unit *workUnit) {
	q.mu.Lock()
	q.pending = append(q.pending, unit)
	q.drainLocked(ctx, wg)
	q.mu.Unlock()
}

// drainLocked launches pending units while slots remain. Completion is the
// only path that frees a slot and re-drains, so a stuck callback stalls the
// queue and everything behind it.
func (q *providerQueue) drainLocked(ctx context.Context, wg *sync.WaitGroup) {
	for q.active < q.max && len(q.pending) > 0 {
		unit := q.pending[0]
		q.pending = q.pending[1:]
		q.active++
		wg.Add(1)
		go func(unit *workUnit) {
			defer wg.Done()
			err := unit.run(ctx)
			q.mu.Lock()
			q.active--
			q.drainLocked(ctx, wg)
			q.mu.Unlock()
			unit.done(unit.requestID, err)
		}(unit)
	}
}

// Active reports the number of in-flight units.
func (q *providerQueue) Active() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}

// Depth reports the number of units waiting for a slot.
func (q *providerQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

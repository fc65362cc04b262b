// Package stage defines the contract each pipeline stage implements.
package stage

import (
	"context"

	"reelsmith/internal/queue"
)

// Handler describes the contract the scheduler needs from each stage worker.
// Execute performs the provider call (the only blocking operation in the
// pipeline) and mutates the task's artifacts; the scheduler persists them.
type Handler interface {
	Execute(context.Context, *queue.Task) error
}

// Func adapts a plain function to the Handler interface.
type Func func(context.Context, *queue.Task) error

func (f Func) Execute(ctx context.Context, task *queue.Task) error {
	return f(ctx, task)
}

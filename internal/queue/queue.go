// Package queue runs background tasks, either in-process or through a
// Redis-backed asynq outbox.
package queue

import (
	"context"
	"errors"
)

var (
	ErrFull   = errors.New("queue: full")
	ErrClosed = errors.New("queue: closed")
)

type Task struct {
	Type    string
	Payload []byte
}

type Handler func(ctx context.Context, t Task) error

// Queue accepts tasks and dispatches them to the handler registered for
// their type. Register must be called before Start.
type Queue interface {
	Enqueue(ctx context.Context, t Task) error
	Register(taskType string, h Handler)
	Start() error
	Shutdown()
}

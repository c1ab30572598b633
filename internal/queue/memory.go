package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Memory is a bounded in-process queue drained by a fixed worker pool. Tasks
// are lost on restart and dropped when the buffer is full.
type Memory struct {
	tasks    chan Task
	workers  int
	handlers map[string]Handler
	log      *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewMemory(size, workers int, log *slog.Logger) *Memory {
	if size <= 0 {
		size = 1
	}
	if workers <= 0 {
		workers = 1
	}
	return &Memory{
		tasks:    make(chan Task, size),
		workers:  workers,
		handlers: make(map[string]Handler),
		log:      log,
	}
}

func (m *Memory) Register(taskType string, h Handler) {
	m.handlers[taskType] = h
}

func (m *Memory) Enqueue(ctx context.Context, t Task) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	select {
	case m.tasks <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrFull
	}
}

func (m *Memory) Start() error {
	for i := 0; i < m.workers; i++ {
		m.wg.Add(1)
		go m.work()
	}
	return nil
}

// Shutdown stops accepting tasks and waits for queued ones to finish.
func (m *Memory) Shutdown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.tasks)
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Memory) work() {
	defer m.wg.Done()
	for t := range m.tasks {
		m.run(t)
	}
}

func (m *Memory) run(t Task) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("task panicked", "type", t.Type, "panic", fmt.Sprint(r))
		}
	}()
	h, ok := m.handlers[t.Type]
	if !ok {
		m.log.Warn("no handler for task", "type", t.Type)
		return
	}
	if err := h(context.Background(), t); err != nil {
		m.log.Warn("task failed", "type", t.Type, "err", err)
	}
}

package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shinyyama/campusconnect/internal/logging"
)

func TestMemoryDispatchesByType(t *testing.T) {
	q := NewMemory(8, 2, logging.Discard())

	var mu sync.Mutex
	got := map[string]int{}
	done := make(chan struct{}, 3)
	q.Register("a", func(_ context.Context, t Task) error {
		mu.Lock()
		got[string(t.Payload)]++
		mu.Unlock()
		done <- struct{}{}
		return nil
	})
	if err := q.Start(); err != nil {
		t.Fatal(err)
	}
	defer q.Shutdown()

	for _, p := range []string{"x", "y", "x"} {
		if err := q.Enqueue(context.Background(), Task{Type: "a", Payload: []byte(p)}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("task not processed")
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if got["x"] != 2 || got["y"] != 1 {
		t.Fatalf("unexpected dispatch counts %v", got)
	}
}

func TestMemoryFullQueueDrops(t *testing.T) {
	q := NewMemory(1, 1, logging.Discard())
	// not started: nothing drains the buffer
	if err := q.Enqueue(context.Background(), Task{Type: "a"}); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if err := q.Enqueue(context.Background(), Task{Type: "a"}); !errors.Is(err, ErrFull) {
		t.Fatalf("err=%v want ErrFull", err)
	}
}

func TestMemoryShutdownDrainsAndCloses(t *testing.T) {
	q := NewMemory(4, 1, logging.Discard())
	var n int
	var mu sync.Mutex
	q.Register("a", func(context.Context, Task) error {
		mu.Lock()
		n++
		mu.Unlock()
		return errors.New("handler errors are logged only")
	})
	for i := 0; i < 3; i++ {
		if err := q.Enqueue(context.Background(), Task{Type: "a"}); err != nil {
			t.Fatal(err)
		}
	}
	_ = q.Start()
	q.Shutdown()

	mu.Lock()
	defer mu.Unlock()
	if n != 3 {
		t.Fatalf("processed %d tasks before shutdown, want 3", n)
	}
	if err := q.Enqueue(context.Background(), Task{Type: "a"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("err=%v want ErrClosed", err)
	}
	q.Shutdown()
}

func TestMemoryRecoversPanics(t *testing.T) {
	q := NewMemory(2, 1, logging.Discard())
	done := make(chan struct{})
	q.Register("boom", func(context.Context, Task) error { panic("bad payload") })
	q.Register("ok", func(context.Context, Task) error { close(done); return nil })
	_ = q.Start()
	defer q.Shutdown()

	_ = q.Enqueue(context.Background(), Task{Type: "boom"})
	_ = q.Enqueue(context.Background(), Task{Type: "ok"})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker died after panic")
	}
}

package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	asynqQueue    = "notifications"
	asynqMaxRetry = 3
)

// Asynq persists tasks in Redis and processes them with an in-process asynq
// server, retrying failed tasks.
type Asynq struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *slog.Logger
}

func NewAsynq(redisURL string, concurrency int, log *slog.Logger) (*Asynq, error) {
	if redisURL == "" {
		return nil, errors.New("asynq: redis url is required")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse redis url: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{asynqQueue: 1},
		Logger:      asynqLogger{log: log},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			log.Warn("task failed", "type", task.Type(), "retry", retried, "err", err)
		}),
	})
	return &Asynq{
		client: asynq.NewClient(opt),
		server: srv,
		mux:    asynq.NewServeMux(),
		log:    log,
	}, nil
}

func (a *Asynq) Register(taskType string, h Handler) {
	a.mux.HandleFunc(taskType, func(ctx context.Context, t *asynq.Task) error {
		return h(ctx, Task{Type: t.Type(), Payload: t.Payload()})
	})
}

func (a *Asynq) Enqueue(ctx context.Context, t Task) error {
	if t.Type == "" {
		return errors.New("asynq: task type is required")
	}
	_, err := a.client.EnqueueContext(ctx, asynq.NewTask(t.Type, t.Payload),
		asynq.Queue(asynqQueue), asynq.MaxRetry(asynqMaxRetry))
	return err
}

func (a *Asynq) Start() error {
	return a.server.Start(a.mux)
}

func (a *Asynq) Shutdown() {
	a.server.Shutdown()
	if err := a.client.Close(); err != nil {
		a.log.Warn("asynq client close", "err", err)
	}
}

// asynqLogger routes asynq's internal logging into slog.
type asynqLogger struct {
	log *slog.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.log.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.log.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.log.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }

// Package worker runs the asynq server that drains the audit queue into
// PostgreSQL.
package worker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/aegis-authz/aegis/internal/audit"
)

// Worker wraps the asynq server and handler mux.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// Config collects dependencies required to bootstrap the worker.
type Config struct {
	RedisOpts   asynq.RedisClientOpt
	Queue       string
	Concurrency int
	Logger      *slog.Logger
	Writer      *audit.Writer
}

// New constructs a Worker instance.
func New(cfg Config) *Worker {
	queue := cfg.Queue
	if queue == "" {
		queue = audit.QueueName
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(audit.TaskTypeDecision, cfg.Writer.HandleDecisionTask)
	mux.HandleFunc(audit.TaskTypeChange, cfg.Writer.HandleChangeTask)
	return &Worker{server: srv, mux: mux, logger: cfg.Logger}
}

// Run processes audit tasks until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Package workers runs periodic background jobs.
package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Worker calls Run every Interval until stopped
type Worker struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)
	Stop     chan struct{}

	logger zerolog.Logger
}

func NewWorker(name string, interval time.Duration, logger zerolog.Logger, run func(ctx context.Context)) *Worker {
	return &Worker{
		Name:     name,
		Interval: interval,
		Run:      run,
		Stop:     make(chan struct{}),
		logger:   logger.With().Str("worker", name).Logger(),
	}
}

// Start runs once immediately and then on every tick. It blocks until ctx is done or StopWorker is called.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info().Dur("interval", w.Interval).Msg("Worker started")
	w.runOnce(ctx)

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.runOnce(ctx)
		case <-w.Stop:
			w.logger.Info().Msg("Worker stopped")
			return
		case <-ctx.Done():
			w.logger.Info().Msg("Worker context done")
			return
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error().Interface("panic", r).Msg("Worker run panicked")
		}
	}()
	start := time.Now()
	w.Run(ctx)
	w.logger.Debug().Dur("took", time.Since(start)).Msg("Worker run finished")
}

// StopWorker stops a running worker; it does not block if the worker already exited
func (w *Worker) StopWorker() {
	select {
	case w.Stop <- struct{}{}:
	default:
	}
}

// Package worker runs the pool of goroutines that drain the event queue and
// feed each comment event through the award decision engine.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/reputator-bot/reputator/internal/adapters/mq/queue"
	"github.com/reputator-bot/reputator/internal/domain/model"
	"github.com/reputator-bot/reputator/internal/domain/settings"
	"github.com/reputator-bot/reputator/pkg/logger"
	"github.com/reputator-bot/reputator/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Engine decides one event's award outcome.
type Engine interface {
	Process(ctx context.Context, event *model.CommentEvent, cfg *settings.Snapshot) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Event
}

// Worker processes events off the queue until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	engine   Engine
	settings settings.Source
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker. The settings source is read fresh for
// every event so moderator edits apply to the next comment, not the next
// restart.
func NewInMemoryWorker(q Queue, engine Engine, src settings.Source, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		engine:   engine,
		settings: src,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	eventChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if err := w.processEvent(ctx, event); err != nil {
				w.logger.Error(ctx, "error processing event", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processEvent handles a single event.
func (w *InMemoryWorker) processEvent(ctx context.Context, event queue.Event) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	cfg, err := w.settings.Snapshot(ctx)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "settings_error")
		return fmt.Errorf("read settings for event %s: %w", event.EventID, err)
	}

	if err := w.engine.Process(ctx, event, cfg); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "engine_error")
		w.logger.Error(ctx, "award processing failed",
			logger.String("eventID", event.EventID),
			logger.Error(err),
		)
		return fmt.Errorf("process event %s: %w", event.EventID, err)
	}

	metrics.RecordEventProcessed()
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewPool creates a worker pool. A non-positive count sizes the pool off the
// CPU count.
func NewPool(workerCount int, q Queue, engine Engine, src settings.Source) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			q,
			engine,
			src,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop stops all workers without draining the queue, waiting briefly for
// each. Use Shutdown instead when queued events should still be processed.
func (p *Pool) Stop() {
	close(p.shutdown)
	for _, w := range p.workers {
		close(w.shutdown)
	}

	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue and waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}

package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/reputator-bot/reputator/internal/adapters/mq/queue"
	"github.com/reputator-bot/reputator/internal/domain/model"
	"github.com/reputator-bot/reputator/internal/domain/settings"
	"github.com/reputator-bot/reputator/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type recordingEngine struct {
	mu     sync.Mutex
	seen   []string
	failOn string
}

func (r *recordingEngine) Process(_ context.Context, event *model.CommentEvent, _ *settings.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, event.EventID)
	if event.EventID == r.failOn {
		return errors.New("boom")
	}
	return nil
}

func (r *recordingEngine) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func testEvent(id string) queue.Event {
	return &model.CommentEvent{
		EventID: id,
		Comment: &model.Comment{
			ID:         "t1_" + id,
			ParentID:   "t1_parent",
			Body:       "!thanks",
			AuthorID:   "t2_user",
			AuthorName: "user",
		},
		Post:      &model.Post{ID: "t3_post", AuthorID: "t2_user"},
		Subreddit: &model.Subreddit{Name: "golang"},
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestWorkerProcessesEvents(t *testing.T) {
	ctx := context.Background()
	q := queue.NewInMemoryQueue(queue.WithCapacity(10))
	engine := &recordingEngine{}
	src := &settings.Static{S: settings.Defaults()}

	w := NewInMemoryWorker(q, engine, src, WithName("worker-test"))
	go w.Run(ctx)

	q.Enqueue(ctx, testEvent("event1"))
	q.Enqueue(ctx, testEvent("event2"))

	waitFor(t, func() bool { return engine.count() == 2 })

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := w.Shutdown(shutdownCtx); err != nil {
		t.Errorf("unexpected shutdown error: %v", err)
	}
}

func TestWorkerContinuesAfterEngineError(t *testing.T) {
	ctx := context.Background()
	q := queue.NewInMemoryQueue(queue.WithCapacity(10))
	engine := &recordingEngine{failOn: "event1"}
	src := &settings.Static{S: settings.Defaults()}

	w := NewInMemoryWorker(q, engine, src)
	go w.Run(ctx)

	q.Enqueue(ctx, testEvent("event1"))
	q.Enqueue(ctx, testEvent("event2"))

	// The failing event must not stop the loop.
	waitFor(t, func() bool { return engine.count() == 2 })

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := w.Shutdown(shutdownCtx); err != nil {
		t.Errorf("unexpected shutdown error: %v", err)
	}
}

func TestPoolDrainsQueueOnShutdown(t *testing.T) {
	ctx := context.Background()
	q := queue.NewInMemoryQueue(queue.WithCapacity(100))
	engine := &recordingEngine{}
	src := &settings.Static{S: settings.Defaults()}

	pool := NewPool(4, q, engine, src)
	pool.Start(ctx)

	for i := 0; i < 20; i++ {
		q.Enqueue(ctx, testEvent("event"+string(rune('a'+i))))
	}

	if err := pool.Shutdown(ctx); err != nil {
		t.Errorf("unexpected shutdown error: %v", err)
	}

	if got := engine.count(); got != 20 {
		t.Errorf("expected 20 processed events, got %d", got)
	}
}

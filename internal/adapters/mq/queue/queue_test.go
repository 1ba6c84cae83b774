package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/reputator-bot/reputator/internal/domain/model"
)

func testEvent(id string) Event {
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

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, testEvent("event1")) {
		t.Error("expected enqueue to succeed")
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	eventChan := q.Dequeue(ctx)
	event := <-eventChan
	if event.EventID != "event1" {
		t.Errorf("expected event1, got %v", event.EventID)
	}

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, testEvent("event1")) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, testEvent("event2")) {
		t.Error("expected enqueue to succeed")
	}

	// Try to enqueue when full
	if q.Enqueue(ctx, testEvent("event3")) {
		t.Error("expected enqueue to fail when full")
	}

	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()
	numGoroutines := 10
	numEvents := 100

	done := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			for j := 0; j < numEvents; j++ {
				event := testEvent(fmt.Sprintf("event%d_%d", id, j))
				for !q.Enqueue(ctx, event) {
					time.Sleep(time.Millisecond)
				}
			}
			done <- true
		}(i)
	}

	consumed := make(chan string, numGoroutines*numEvents)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			eventChan := q.Dequeue(ctx)
			for event := range eventChan {
				consumed <- event.EventID
			}
		}()
	}

	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	// Let the consumers drain the queue.
	time.Sleep(100 * time.Millisecond)

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected final length 0, got %d", l)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if !q.Enqueue(ctx, testEvent("event1")) {
		t.Error("expected enqueue to succeed")
	}

	if err := q.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}

	// Enqueue after close must fail.
	if q.Enqueue(ctx, testEvent("event2")) {
		t.Error("expected enqueue to fail after close")
	}

	// The buffered event is still delivered before the channel closes.
	eventChan := q.Dequeue(ctx)
	event, ok := <-eventChan
	if !ok || event.EventID != "event1" {
		t.Errorf("expected event1 before close, got %v (ok=%v)", event, ok)
	}
	if _, ok := <-eventChan; ok {
		t.Error("expected dequeue channel to close after drain")
	}
}

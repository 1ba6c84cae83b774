// Package ledger provides the idempotency ledger: a set of expiring keys
// that guarantees at-most-one award per (parent comment, awarding user)
// pair within the retention window.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// AwardTTL is how long an award record is retained.
const AwardTTL = 7 * 24 * time.Hour

// Key builds the ledger key for an award attempt.
func Key(parentID, awarder string) string {
	return fmt.Sprintf("thanks-%s-%s", parentID, awarder)
}

// Ledger records keys with an expiry.
//
// Seen and Record are deliberately separate operations: the decision engine
// checks early and records late, and the check-then-act window across two
// concurrent deliveries is an accepted race (the store offers no atomic
// check-and-set in this design). SeenAndRecord exists for the ingest path,
// where delivery-id deduplication wants the combined form.
type Ledger interface {
	// Seen reports whether key is present and unexpired.
	Seen(ctx context.Context, key string) bool

	// Record stores key with the given time-to-live.
	Record(ctx context.Context, key string, ttl time.Duration)

	// SeenAndRecord atomically checks key and records it if absent.
	// Returns true if the key was already present.
	SeenAndRecord(ctx context.Context, key string, ttl time.Duration) bool

	// Unrecord drops key, allowing a retry. Used when an event was marked
	// seen at ingest but could not be queued.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// InMemoryLedger implements Ledger with a map of expiry stamps and a
// janitor goroutine that purges expired keys.
type InMemoryLedger struct {
	mu      sync.RWMutex
	entries map[string]time.Time // key -> expiry instant
	size    atomic.Int64

	janitorInterval time.Duration
	now             func() time.Time

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewInMemoryLedger creates a ledger with configuration options and starts
// its janitor.
func NewInMemoryLedger(ctx context.Context, opts ...Option) *InMemoryLedger {
	l := &InMemoryLedger{
		entries:         make(map[string]time.Time),
		janitorInterval: time.Minute,
		now:             time.Now,
		stopChan:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	l.startJanitor(ctx)
	return l
}

// Seen implements Ledger.
func (l *InMemoryLedger) Seen(ctx context.Context, key string) bool {
	l.mu.RLock()
	expiry, ok := l.entries[key]
	l.mu.RUnlock()

	if !ok {
		return false
	}
	if l.now().After(expiry) {
		// Expired but not yet swept; treat as absent and drop it.
		l.Unrecord(ctx, key)
		return false
	}
	return true
}

// Record implements Ledger.
func (l *InMemoryLedger) Record(ctx context.Context, key string, ttl time.Duration) {
	l.mu.Lock()
	if _, exists := l.entries[key]; !exists {
		l.size.Add(1)
	}
	l.entries[key] = l.now().Add(ttl)
	l.mu.Unlock()
}

// SeenAndRecord implements Ledger.
func (l *InMemoryLedger) SeenAndRecord(ctx context.Context, key string, ttl time.Duration) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, ok := l.entries[key]; ok && now.Before(expiry) {
		return true
	}
	if _, exists := l.entries[key]; !exists {
		l.size.Add(1)
	}
	l.entries[key] = now.Add(ttl)
	return false
}

// Unrecord implements Ledger.
func (l *InMemoryLedger) Unrecord(ctx context.Context, key string) {
	l.mu.Lock()
	if _, exists := l.entries[key]; exists {
		delete(l.entries, key)
		l.size.Add(-1)
	}
	l.mu.Unlock()
}

// Size returns the current number of entries, including not-yet-swept
// expired ones.
func (l *InMemoryLedger) Size() int64 {
	return l.size.Load()
}

// Close stops the janitor goroutine.
func (l *InMemoryLedger) Close() error {
	l.stopOnce.Do(func() {
		close(l.stopChan)
	})
	l.wg.Wait()
	return nil
}

func (l *InMemoryLedger) startJanitor(ctx context.Context) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(l.janitorInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-l.stopChan:
				return
			case <-ticker.C:
				l.sweepExpired()
			}
		}
	}()
}

func (l *InMemoryLedger) sweepExpired() {
	now := l.now()

	l.mu.Lock()
	for key, expiry := range l.entries {
		if now.After(expiry) {
			delete(l.entries, key)
			l.size.Add(-1)
		}
	}
	l.mu.Unlock()
}

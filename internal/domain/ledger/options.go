package ledger

import "time"

// Option applies a configuration option to the InMemoryLedger.
type Option func(*InMemoryLedger)

// WithJanitorInterval sets how often expired keys are purged.
func WithJanitorInterval(interval time.Duration) Option {
	return func(l *InMemoryLedger) {
		if interval > 0 {
			l.janitorInterval = interval
		}
	}
}

// WithClock overrides the time source. Used by tests to exercise expiry.
func WithClock(now func() time.Time) Option {
	return func(l *InMemoryLedger) {
		if now != nil {
			l.now = now
		}
	}
}

package ledger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/reputator-bot/reputator/internal/domain/ledger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestKey(t *testing.T) {
	Convey("Given a parent comment id and an awarder", t, func() {
		Convey("Then the key should follow the thanks-<parent>-<awarder> form", func() {
			So(ledger.Key("t1_abc", "alice"), ShouldEqual, "thanks-t1_abc-alice")
		})
	})
}

func TestInMemoryLedger(t *testing.T) {
	Convey("Given an in-memory ledger", t, func() {
		ctx := context.Background()
		l := ledger.NewInMemoryLedger(ctx)
		defer func() { _ = l.Close() }()

		Convey("When a key has not been recorded", func() {
			So(l.Seen(ctx, "thanks-t1_a-alice"), ShouldBeFalse)
			So(l.Size(), ShouldEqual, 0)
		})

		Convey("When a key is recorded", func() {
			l.Record(ctx, "thanks-t1_a-alice", ledger.AwardTTL)

			Convey("Then it should be seen until expiry", func() {
				So(l.Seen(ctx, "thanks-t1_a-alice"), ShouldBeTrue)
				So(l.Size(), ShouldEqual, 1)
			})

			Convey("And a different awarder on the same parent is unaffected", func() {
				So(l.Seen(ctx, "thanks-t1_a-bob"), ShouldBeFalse)
			})

			Convey("And unrecording drops it", func() {
				l.Unrecord(ctx, "thanks-t1_a-alice")
				So(l.Seen(ctx, "thanks-t1_a-alice"), ShouldBeFalse)
				So(l.Size(), ShouldEqual, 0)
			})
		})

		Convey("When SeenAndRecord is called twice for one key", func() {
			first := l.SeenAndRecord(ctx, "evt-1", time.Hour)
			second := l.SeenAndRecord(ctx, "evt-1", time.Hour)

			Convey("Then only the first call should report unseen", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(l.Size(), ShouldEqual, 1)
			})
		})
	})
}

func TestLedgerExpiry(t *testing.T) {
	Convey("Given a ledger with a controllable clock", t, func() {
		ctx := context.Background()

		var mu sync.Mutex
		current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		clock := func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return current
		}
		advance := func(d time.Duration) {
			mu.Lock()
			current = current.Add(d)
			mu.Unlock()
		}

		l := ledger.NewInMemoryLedger(ctx, ledger.WithClock(clock))
		defer func() { _ = l.Close() }()

		Convey("When a key is recorded with a one-week TTL", func() {
			l.Record(ctx, ledger.Key("t1_parent", "alice"), ledger.AwardTTL)

			Convey("Then it should still be seen a day before expiry", func() {
				advance(6 * 24 * time.Hour)
				So(l.Seen(ctx, ledger.Key("t1_parent", "alice")), ShouldBeTrue)
			})

			Convey("Then it should be gone after the week has passed", func() {
				advance(ledger.AwardTTL + time.Minute)
				So(l.Seen(ctx, ledger.Key("t1_parent", "alice")), ShouldBeFalse)

				Convey("And recording again should behave like a fresh key", func() {
					So(l.SeenAndRecord(ctx, ledger.Key("t1_parent", "alice"), ledger.AwardTTL), ShouldBeFalse)
				})
			})
		})
	})
}

func TestLedgerConcurrentAccess(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		ctx := context.Background()
		l := ledger.NewInMemoryLedger(ctx)
		defer func() { _ = l.Close() }()

		const goroutines = 16
		var wg sync.WaitGroup
		seen := make([]bool, goroutines)

		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				seen[i] = l.SeenAndRecord(ctx, "contended-key", time.Hour)
			}(i)
		}
		wg.Wait()

		Convey("Then exactly one should have recorded the key", func() {
			unseen := 0
			for _, s := range seen {
				if !s {
					unseen++
				}
			}
			So(unseen, ShouldEqual, 1)
			So(l.Size(), ShouldEqual, 1)
		})
	})
}

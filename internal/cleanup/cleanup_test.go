package cleanup

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/reputator-bot/reputator/internal/adapters/platform"
	"github.com/reputator-bot/reputator/internal/adapters/repository"
	"github.com/reputator-bot/reputator/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestSweep(t *testing.T) {
	Convey("Given a sweeper with some due accounts", t, func() {
		ctx := context.Background()
		fake := platform.NewFake()
		points := repository.NewTreapStore(ctx)
		due := repository.NewTreapStore(ctx)

		now := time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC)
		refreshes := 0
		sweeper := NewSweeper(fake, points, due,
			WithClock(func() time.Time { return now }),
			WithRefreshTrigger(func(context.Context) error {
				refreshes++
				return nil
			}))

		seed := func(name string, score int64, dueAt time.Time, exists bool) {
			So(points.Upsert(ctx, name, score), ShouldBeNil)
			So(due.Upsert(ctx, name, dueAt.Unix()), ShouldBeNil)
			if exists {
				fake.AddUser(name)
			}
		}

		Convey("When an active and a gone account are both due", func() {
			seed("alice", 5, now.Add(-time.Hour), true)
			seed("ghost", 3, now.Add(-time.Hour), false)

			err := sweeper.Sweep(ctx)

			So(err, ShouldBeNil)

			Convey("The gone account is purged from both stores", func() {
				_, err := points.Score(ctx, "ghost")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				_, err = due.Score(ctx, "ghost")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("The active account keeps its score and is rescheduled a day out", func() {
				score, err := points.Score(ctx, "alice")
				So(err, ShouldBeNil)
				So(score, ShouldEqual, 5)

				next, err := due.Score(ctx, "alice")
				So(err, ShouldBeNil)
				So(next, ShouldEqual, now.Add(24*time.Hour).Unix())
			})

			Convey("Exactly one leaderboard refresh fires", func() {
				So(refreshes, ShouldEqual, 1)
			})
		})

		Convey("When only active accounts are due, no refresh fires", func() {
			seed("alice", 5, now.Add(-time.Hour), true)

			So(sweeper.Sweep(ctx), ShouldBeNil)

			So(refreshes, ShouldEqual, 0)
		})

		Convey("When nothing is due, nothing is probed", func() {
			seed("alice", 5, now.Add(time.Hour), true)

			So(sweeper.Sweep(ctx), ShouldBeNil)

			So(fake.LivenessProbes, ShouldBeEmpty)
		})

		Convey("A transient probe failure keeps the account", func() {
			seed("alice", 5, now.Add(-time.Hour), false)
			fake.FailOn["get_user"] = errors.New("platform down")

			So(sweeper.Sweep(ctx), ShouldBeNil)

			score, err := points.Score(ctx, "alice")
			So(err, ShouldBeNil)
			So(score, ShouldEqual, 5)
		})

		Convey("With 60 accounts due, one run probes exactly the batch size", func() {
			for i := 0; i < 60; i++ {
				seed(fmt.Sprintf("user%02d", i), int64(i+1), now.Add(-time.Hour), true)
			}

			So(sweeper.Sweep(ctx), ShouldBeNil)

			So(fake.LivenessProbes, ShouldHaveLength, DefaultBatchSize)

			Convey("The remainder is picked up by the next run", func() {
				fake.LivenessProbes = nil

				So(sweeper.Sweep(ctx), ShouldBeNil)

				So(fake.LivenessProbes, ShouldHaveLength, 10)
			})
		})
	})
}

func TestRepair(t *testing.T) {
	Convey("Given a sweeper with a drifted due-set", t, func() {
		ctx := context.Background()
		fake := platform.NewFake()
		points := repository.NewTreapStore(ctx)
		due := repository.NewTreapStore(ctx)

		now := time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC)
		sweeper := NewSweeper(fake, points, due,
			WithClock(func() time.Time { return now }))

		So(points.Upsert(ctx, "tracked", 4), ShouldBeNil)
		So(due.Upsert(ctx, "tracked", now.Unix()), ShouldBeNil)
		So(points.Upsert(ctx, "untracked", 2), ShouldBeNil)
		So(due.Upsert(ctx, "orphan", now.Unix()), ShouldBeNil)

		Convey("When repaired", func() {
			err := sweeper.Repair(ctx)

			So(err, ShouldBeNil)

			Convey("Untracked scored users get a due entry within a day", func() {
				next, err := due.Score(ctx, "untracked")
				So(err, ShouldBeNil)
				So(next, ShouldBeGreaterThanOrEqualTo, now.Unix())
				So(next, ShouldBeLessThan, now.Add(24*time.Hour).Unix())
			})

			Convey("Orphaned due entries are dropped", func() {
				_, err := due.Score(ctx, "orphan")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("Existing entries keep their schedule", func() {
				next, err := due.Score(ctx, "tracked")
				So(err, ShouldBeNil)
				So(next, ShouldEqual, now.Unix())
			})

			Convey("A second run changes nothing", func() {
				before, err := due.Score(ctx, "untracked")
				So(err, ShouldBeNil)

				So(sweeper.Repair(ctx), ShouldBeNil)

				after, err := due.Score(ctx, "untracked")
				So(err, ShouldBeNil)
				So(after, ShouldEqual, before)
				So(due.Count(ctx), ShouldEqual, 2)
			})
		})
	})
}

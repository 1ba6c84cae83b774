package service

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/reputator-bot/reputator/internal/adapters/platform"
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

func newTestService(fake *platform.Fake, cfg *settings.Snapshot) *Service {
	return New(
		WithPlatformClient(fake),
		WithSettingsSource(&settings.Static{S: cfg}),
		WithSubreddit("golang"),
		WithWorkerCount(2),
		WithQueueSize(100),
	)
}

func commentEvent(id, awarder string) *model.CommentEvent {
	return &model.CommentEvent{
		EventID: id,
		Comment: &model.Comment{
			ID:         "t1_" + id,
			ParentID:   "t1_parent",
			Body:       "!thanks for the help",
			AuthorID:   "t2_" + awarder,
			AuthorName: awarder,
		},
		Post:      &model.Post{ID: "t3_post", AuthorID: "t2_" + awarder},
		Subreddit: &model.Subreddit{Name: "golang"},
	}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		fake := platform.NewFake()
		fake.AddUser("bob")
		fake.AddComment(&platform.Comment{
			ID:            "t1_parent",
			ParentID:      "t3_post",
			AuthorID:      "t2_bob",
			AuthorName:    "bob",
			SubredditName: "golang",
			Permalink:     "/r/golang/comments/post/reply",
		})

		svc := newTestService(fake, settings.Defaults())
		So(svc.Start(ctx), ShouldBeNil)

		Reset(svc.Stop)

		Convey("Starting twice is a no-op", func() {
			So(svc.Start(ctx), ShouldBeNil)
		})

		Convey("An enqueued thanks event awards a point", func() {
			So(svc.Enqueue(ctx, commentEvent("evt-1", "alice")), ShouldBeTrue)

			So(waitFor(func() bool {
				top, err := svc.TopN(ctx, 10)
				return err == nil && len(top) == 1 && top[0].Member == "bob"
			}), ShouldBeTrue)
		})

		Convey("Ingest deduplication flags a repeated event id", func() {
			So(svc.SeenAndRecord(ctx, "evt-9"), ShouldBeFalse)
			So(svc.SeenAndRecord(ctx, "evt-9"), ShouldBeTrue)

			Convey("And Unrecord allows a retry", func() {
				svc.Unrecord(ctx, "evt-9")
				So(svc.SeenAndRecord(ctx, "evt-9"), ShouldBeFalse)
			})
		})

		Convey("Stats report the live component sizes", func() {
			stats := svc.GetStats()

			So(stats["started"], ShouldBeTrue)
			So(stats["subreddit"], ShouldEqual, "golang")
			So(stats["workerCount"], ShouldEqual, 2)
		})

		Convey("The recurring jobs are registered", func() {
			names := make(map[string]int)
			for _, j := range svc.Jobs() {
				names[j.Name]++
			}
			So(names[JobLeaderboardRefresh], ShouldBeGreaterThanOrEqualTo, 1)
			So(names[JobLivenessSweep], ShouldBeGreaterThanOrEqualTo, 1)
		})
	})
}

func TestServiceJobs(t *testing.T) {
	Convey("Given a started service with scores and a public leaderboard", t, func() {
		ctx := context.Background()
		fake := platform.NewFake()

		cfg := settings.Defaults()
		cfg.LeaderboardMode = settings.LeaderboardPublic

		svc := newTestService(fake, cfg)
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)

		So(svc.points.Upsert(ctx, "alice", 3), ShouldBeNil)
		So(svc.points.Upsert(ctx, "ghost", 1), ShouldBeNil)
		fake.AddUser("alice")

		Convey("The leaderboard job publishes the wiki page", func() {
			So(svc.RunLeaderboardJob(ctx), ShouldBeNil)

			page := fake.WikiPages["golang/"+settings.DefaultWikiPage]
			So(page, ShouldNotBeNil)
			So(page.Content, ShouldContainSubstring, "alice|3")
		})

		Convey("The cleanup job enrolls scored users for liveness checks", func() {
			So(svc.RunCleanupJob(ctx), ShouldBeNil)

			So(svc.dueSet.Count(ctx), ShouldEqual, 2)
		})
	})
}

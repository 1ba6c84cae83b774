package config_test

import (
	"runtime"
	"testing"

	"github.com/reputator-bot/reputator/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestNewConfig(t *testing.T) {
	convey.Convey("Given a new config", t, func() {
		cfg := config.New()

		convey.Convey("Then it carries the documented defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.MaxLeaderboardLimit, convey.ShouldEqual, 100)
			convey.So(cfg.SweepBatchSize, convey.ShouldEqual, 50)
			convey.So(cfg.Subreddit, convey.ShouldBeEmpty)
			convey.So(cfg.BotAccount, convey.ShouldEqual, "ReputatorBot")
			convey.So(cfg.PlatformBaseURL, convey.ShouldEqual, "http://localhost:8570")
			convey.So(cfg.SettingsPath, convey.ShouldBeEmpty)
		})
	})
}

package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaults(t *testing.T) {
	Convey("Given the default snapshot", t, func() {
		s := Defaults()

		Convey("Then documented defaults should be resolved at load time", func() {
			So(s.Command, ShouldEqual, "!thanks")
			So(s.ModCommand, ShouldEqual, "!modthanks")
			So(s.AnyoneCanAward, ShouldBeFalse)
			So(s.Overwrite, ShouldEqual, OverwriteNumeric)
			So(s.NotifyOnError, ShouldEqual, NotifyNone)
			So(s.NotifyOnSuccess, ShouldEqual, NotifyNone)
			So(s.NotifyOnErrorTemplate, ShouldEqual, DefaultErrorTemplate)
			So(s.NotifyOnSuccessTemplate, ShouldEqual, DefaultSuccessTemplate)
			So(s.LeaderboardMode, ShouldEqual, LeaderboardOff)
			So(s.WikiPage, ShouldEqual, DefaultWikiPage)
			So(s.AutoSuperuserThreshold, ShouldEqual, 0)
		})
	})
}

func TestBuildValidation(t *testing.T) {
	Convey("Given raw settings with invalid enum values", t, func() {
		r := defaults()
		r.Overwrite = "sideways"
		r.NotifyOnSuccess = "shout"
		r.LeaderboardMode = "sometimes"
		r.AutoSuperuserThreshold = -5
		r.WikiPage = "  "

		s := build(r)

		Convey("Then they should fall back to documented defaults", func() {
			So(s.Overwrite, ShouldEqual, OverwriteNumeric)
			So(s.NotifyOnSuccess, ShouldEqual, NotifyNone)
			So(s.LeaderboardMode, ShouldEqual, LeaderboardOff)
			So(s.AutoSuperuserThreshold, ShouldEqual, 0)
			So(s.WikiPage, ShouldEqual, DefaultWikiPage)
		})
	})

	Convey("Given comma-separated user lists", t, func() {
		r := defaults()
		r.SuperUsers = " Alice , BOB ,, carol "
		r.CannotAwardUsers = "Mallory"
		r.CannotBeAwardedUsers = "trent,  "

		s := build(r)

		Convey("Then lists should be trimmed and lowercased", func() {
			So(s.SuperUsers, ShouldResemble, []string{"alice", "bob", "carol"})
			So(s.CannotAwardUsers, ShouldResemble, []string{"mallory"})
			So(s.CannotBeAwardedUsers, ShouldResemble, []string{"trent"})
		})

		Convey("And membership checks should be case-insensitive", func() {
			So(s.IsConfiguredSuperUser("ALICE"), ShouldBeTrue)
			So(s.IsConfiguredSuperUser("dave"), ShouldBeFalse)
			So(s.CannotAward("mallory"), ShouldBeTrue)
			So(s.CannotAward(" Mallory "), ShouldBeTrue)
			So(s.CannotBeAwarded("Trent"), ShouldBeTrue)
		})
	})
}

func TestFileSource(t *testing.T) {
	Convey("Given a settings file on disk", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "settings.yaml")
		content := []byte(`
thanks_command: "!gracias"
mod_thanks_command: "!modgracias"
anyone_can_award: true
super_users: "Helper1, helper2"
existing_flair_handling: "overwriteall"
notify_on_success: "replybypm"
leaderboard_mode: "public"
leaderboard_wiki_page: "points"
auto_superuser_threshold: 20
`)
		So(os.WriteFile(path, content, 0o600), ShouldBeNil)

		src := NewFileSource(path)

		Convey("When taking a snapshot", func() {
			s, err := src.Snapshot(context.Background())
			So(err, ShouldBeNil)

			Convey("Then file values should override defaults", func() {
				So(s.Command, ShouldEqual, "!gracias")
				So(s.ModCommand, ShouldEqual, "!modgracias")
				So(s.AnyoneCanAward, ShouldBeTrue)
				So(s.SuperUsers, ShouldResemble, []string{"helper1", "helper2"})
				So(s.Overwrite, ShouldEqual, OverwriteAll)
				So(s.NotifyOnSuccess, ShouldEqual, NotifyByPM)
				So(s.LeaderboardMode, ShouldEqual, LeaderboardPublic)
				So(s.WikiPage, ShouldEqual, "points")
				So(s.AutoSuperuserThreshold, ShouldEqual, 20)
			})

			Convey("And unset settings should keep their defaults", func() {
				So(s.NotifyOnError, ShouldEqual, NotifyNone)
				So(s.NotifyOnSuccessTemplate, ShouldEqual, DefaultSuccessTemplate)
			})
		})

		Convey("When the file changes between snapshots", func() {
			first, err := src.Snapshot(context.Background())
			So(err, ShouldBeNil)
			So(first.Command, ShouldEqual, "!gracias")

			So(os.WriteFile(path, []byte(`thanks_command: "!cheers"`), 0o600), ShouldBeNil)

			second, err := src.Snapshot(context.Background())
			So(err, ShouldBeNil)

			Convey("Then the next snapshot should see the edit", func() {
				So(second.Command, ShouldEqual, "!cheers")
			})
		})
	})

	Convey("Given a missing settings file", t, func() {
		src := NewFileSource(filepath.Join(t.TempDir(), "absent.yaml"))

		Convey("Then the snapshot should be all defaults", func() {
			s, err := src.Snapshot(context.Background())
			So(err, ShouldBeNil)
			So(s.Command, ShouldEqual, "!thanks")
			So(s.LeaderboardMode, ShouldEqual, LeaderboardOff)
		})
	})
}

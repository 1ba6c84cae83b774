package platform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRESTClient(t *testing.T) {
	Convey("Given a REST client against a test server", t, func() {
		ctx := context.Background()

		var gotPath, gotAuth string
		var gotBody []byte
		handler := func(status int, resp any) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotAuth = r.Header.Get("Authorization")
				gotBody = nil
				if r.Body != nil {
					buf := make([]byte, 4096)
					n, _ := r.Body.Read(buf)
					gotBody = buf[:n]
				}
				w.WriteHeader(status)
				if resp != nil {
					_ = json.NewEncoder(w).Encode(resp)
				}
			}
		}

		Convey("When fetching an existing user", func() {
			srv := httptest.NewServer(handler(http.StatusOK, &User{ID: "t2_abc", Name: "alice"}))
			defer srv.Close()
			c := NewRESTClient(srv.URL, "tok-123")

			u, err := c.GetUserByName(ctx, "alice")

			So(err, ShouldBeNil)
			So(u.Name, ShouldEqual, "alice")
			So(gotPath, ShouldEqual, "/api/users/alice")
			So(gotAuth, ShouldEqual, "Bearer tok-123")
		})

		Convey("When the account is gone", func() {
			srv := httptest.NewServer(handler(http.StatusNotFound, nil))
			defer srv.Close()
			c := NewRESTClient(srv.URL, "tok")

			_, err := c.GetUserByName(ctx, "deleted_user")

			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("When the user has no flair", func() {
			srv := httptest.NewServer(handler(http.StatusNotFound, nil))
			defer srv.Close()
			c := NewRESTClient(srv.URL, "tok")

			f, err := c.GetUserFlair(ctx, "golang", "alice")

			So(err, ShouldBeNil)
			So(f, ShouldBeNil)
		})

		Convey("When setting user flair", func() {
			srv := httptest.NewServer(handler(http.StatusOK, nil))
			defer srv.Close()
			c := NewRESTClient(srv.URL, "tok")

			err := c.SetUserFlair(ctx, "golang", "bob", UserFlair{Text: "42", CSSClass: "points"})

			So(err, ShouldBeNil)
			So(gotPath, ShouldEqual, "/api/subreddits/golang/flair/bob")
			So(string(gotBody), ShouldContainSubstring, `"42"`)
		})

		Convey("When submitting a reply", func() {
			srv := httptest.NewServer(handler(http.StatusOK, &Comment{ID: "t1_new", ParentID: "t1_parent"}))
			defer srv.Close()
			c := NewRESTClient(srv.URL, "tok")

			reply, err := c.SubmitComment(ctx, "t1_parent", "thanks noted")

			So(err, ShouldBeNil)
			So(reply.ID, ShouldEqual, "t1_new")
			So(gotPath, ShouldEqual, "/api/comments/t1_parent/replies")
		})

		Convey("When the server errors", func() {
			srv := httptest.NewServer(handler(http.StatusInternalServerError, nil))
			defer srv.Close()
			c := NewRESTClient(srv.URL, "tok")

			err := c.LockComment(ctx, "t1_x")

			So(err, ShouldNotBeNil)
			So(errors.Is(err, ErrNotFound), ShouldBeFalse)
		})

		Convey("When updating wiki permissions", func() {
			srv := httptest.NewServer(handler(http.StatusOK, nil))
			defer srv.Close()
			c := NewRESTClient(srv.URL, "tok")

			err := c.SetWikiPagePermissions(ctx, "golang", "leaderboard", false, WikiPermModsOnly)

			So(err, ShouldBeNil)
			So(gotPath, ShouldEqual, "/api/subreddits/golang/wiki/leaderboard/settings")
			So(string(gotBody), ShouldContainSubstring, `"perm_level":1`)
		})
	})
}

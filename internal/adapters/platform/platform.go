// Package platform defines the social-platform client the bot depends on.
// The decision engine and the scheduled jobs consume the Client interface;
// the REST adapter and the in-memory fake implement it.
package platform

import "context"

// AutoModerator is the platform's automated moderation account. It can
// neither award nor receive points.
const AutoModerator = "AutoModerator"

// WikiPermission is the visibility level of a wiki page.
type WikiPermission int

// Wiki permission levels.
const (
	WikiPermSubreddit WikiPermission = iota // follows the community's wiki settings
	WikiPermModsOnly
)

// User is a platform account.
type User struct {
	ID   string
	Name string
}

// Comment is a platform comment as fetched by id.
type Comment struct {
	ID            string
	ParentID      string
	Body          string
	AuthorID      string
	AuthorName    string
	SubredditName string
	Permalink     string
}

// UserFlair is the badge attached to a user within one community.
type UserFlair struct {
	Text       string
	CSSClass   string
	TemplateID string
}

// PostFlair is the badge attached to a post.
type PostFlair struct {
	Text       string
	CSSClass   string
	TemplateID string
}

// WikiPage is a fetched documentation page.
type WikiPage struct {
	Name      string
	Content   string
	Listed    bool
	PermLevel WikiPermission
}

// Client is the social-platform surface the bot calls. All calls are
// fallible; callers decide which failures abort an event.
type Client interface {
	// GetComment fetches a comment by fullname id.
	GetComment(ctx context.Context, id string) (*Comment, error)

	// GetUserByName fetches an account. Returns ErrNotFound for deleted,
	// suspended or shadowbanned accounts.
	GetUserByName(ctx context.Context, name string) (*User, error)

	// IsModerator reports whether name moderates subreddit.
	IsModerator(ctx context.Context, subreddit, name string) (bool, error)

	// GetUserFlair returns the user's current flair in subreddit, or nil
	// if the user has none.
	GetUserFlair(ctx context.Context, subreddit, name string) (*UserFlair, error)

	// SetUserFlair replaces the user's flair in subreddit.
	SetUserFlair(ctx context.Context, subreddit, name string, flair UserFlair) error

	// SetPostFlair replaces the flair on a post.
	SetPostFlair(ctx context.Context, subreddit, postID string, flair PostFlair) error

	// SendPrivateMessage sends a direct message to a user.
	SendPrivateMessage(ctx context.Context, to, subject, body string) error

	// SubmitComment posts a reply under parentID and returns the new comment.
	SubmitComment(ctx context.Context, parentID, body string) (*Comment, error)

	// DistinguishComment marks a comment as an official bot reply.
	DistinguishComment(ctx context.Context, commentID string) error

	// LockComment prevents further replies to a comment.
	LockComment(ctx context.Context, commentID string) error

	// GetWikiPage fetches a wiki page. Returns ErrNotFound if the page
	// does not exist yet.
	GetWikiPage(ctx context.Context, subreddit, page string) (*WikiPage, error)

	// PutWikiPage creates or updates a wiki page's content.
	PutWikiPage(ctx context.Context, subreddit, page, content string) error

	// SetWikiPagePermissions updates a page's listing and visibility.
	SetWikiPagePermissions(ctx context.Context, subreddit, page string, listed bool, perm WikiPermission) error
}

// Package model contains domain models passed between layers.
package model

import "strings"

// Thing-id prefixes used by the platform for fullname identifiers.
const (
	CommentPrefix = "t1_"
	PostPrefix    = "t3_"
)

// Comment is the triggering comment inside an event.
type Comment struct {
	ID         string
	ParentID   string
	Body       string
	AuthorID   string
	AuthorName string
}

// Post is the submission the comment thread hangs off.
type Post struct {
	ID       string
	AuthorID string
}

// Subreddit names the community the event happened in.
type Subreddit struct {
	Name string
}

// CommentEvent represents one comment-creation or comment-edit notification
// delivered by the host.
type CommentEvent struct {
	EventID   string // delivery id, used only for queue-level deduplication
	Comment   *Comment
	Post      *Post
	Subreddit *Subreddit
}

// Valid reports whether the event carries all the parts the decision engine
// needs. Partial events are rejected up front.
func (e *CommentEvent) Valid() bool {
	return e.Comment != nil && e.Comment.ID != "" && e.Comment.AuthorID != "" &&
		e.Comment.AuthorName != "" &&
		e.Post != nil && e.Post.AuthorID != "" &&
		e.Subreddit != nil && e.Subreddit.Name != ""
}

// ParentIsPost reports whether the triggering comment is a top-level reply
// to the post itself rather than to another comment.
func (e *CommentEvent) ParentIsPost() bool {
	return strings.HasPrefix(e.Comment.ParentID, PostPrefix)
}

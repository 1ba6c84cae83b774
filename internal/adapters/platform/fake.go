package platform

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory Client used by tests. It records mutating calls and
// lets tests inject failures per operation.
type Fake struct {
	mu sync.Mutex

	Users      map[string]*User      // name -> user
	Comments   map[string]*Comment   // id -> comment
	Moderators map[string]bool       // subreddit/name -> true
	UserFlairs map[string]*UserFlair // subreddit/name -> flair
	PostFlairs map[string]*PostFlair // subreddit/postID -> flair
	WikiPages  map[string]*WikiPage  // subreddit/page -> page

	// Call records.
	SentMessages   []FakeMessage
	Replies        []*Comment
	Distinguished  []string
	Locked         []string
	FlairSets      []string // subreddit/name keys in set order
	PostFlairSets  []string
	WikiPuts       []string
	WikiPermSets   []string
	LivenessProbes []string

	// FailOn maps an operation name to the error it should return.
	FailOn map[string]error

	replySeq int
}

// FakeMessage is one recorded private message.
type FakeMessage struct {
	To      string
	Subject string
	Body    string
}

// NewFake creates an empty fake platform.
func NewFake() *Fake {
	return &Fake{
		Users:      make(map[string]*User),
		Comments:   make(map[string]*Comment),
		Moderators: make(map[string]bool),
		UserFlairs: make(map[string]*UserFlair),
		PostFlairs: make(map[string]*PostFlair),
		WikiPages:  make(map[string]*WikiPage),
		FailOn:     make(map[string]error),
	}
}

func (f *Fake) fail(op string) error {
	if err, ok := f.FailOn[op]; ok {
		return err
	}
	return nil
}

func key(parts ...string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += "/" + p
	}
	return out
}

// AddUser registers a user account.
func (f *Fake) AddUser(name string) *User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &User{ID: "t2_" + name, Name: name}
	f.Users[name] = u
	return u
}

// AddComment registers a fetchable comment.
func (f *Fake) AddComment(c *Comment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Comments[c.ID] = c
}

// MakeModerator marks name as a moderator of subreddit.
func (f *Fake) MakeModerator(subreddit, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Moderators[key(subreddit, name)] = true
}

// SetFlairText seeds an existing user flair.
func (f *Fake) SetFlairText(subreddit, name, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UserFlairs[key(subreddit, name)] = &UserFlair{Text: text}
}

// GetComment implements Client.
func (f *Fake) GetComment(ctx context.Context, id string) (*Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("get_comment"); err != nil {
		return nil, err
	}
	c, ok := f.Comments[id]
	if !ok {
		return nil, fmt.Errorf("get_comment %s: %w", id, ErrNotFound)
	}
	return c, nil
}

// GetUserByName implements Client.
func (f *Fake) GetUserByName(ctx context.Context, name string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LivenessProbes = append(f.LivenessProbes, name)
	if err := f.fail("get_user"); err != nil {
		return nil, err
	}
	u, ok := f.Users[name]
	if !ok {
		return nil, fmt.Errorf("get_user %s: %w", name, ErrNotFound)
	}
	return u, nil
}

// IsModerator implements Client.
func (f *Fake) IsModerator(ctx context.Context, subreddit, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("is_moderator"); err != nil {
		return false, err
	}
	return f.Moderators[key(subreddit, name)], nil
}

// GetUserFlair implements Client.
func (f *Fake) GetUserFlair(ctx context.Context, subreddit, name string) (*UserFlair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("get_user_flair"); err != nil {
		return nil, err
	}
	return f.UserFlairs[key(subreddit, name)], nil
}

// SetUserFlair implements Client.
func (f *Fake) SetUserFlair(ctx context.Context, subreddit, name string, flair UserFlair) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("set_user_flair"); err != nil {
		return err
	}
	k := key(subreddit, name)
	copied := flair
	f.UserFlairs[k] = &copied
	f.FlairSets = append(f.FlairSets, k)
	return nil
}

// SetPostFlair implements Client.
func (f *Fake) SetPostFlair(ctx context.Context, subreddit, postID string, flair PostFlair) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("set_post_flair"); err != nil {
		return err
	}
	k := key(subreddit, postID)
	copied := flair
	f.PostFlairs[k] = &copied
	f.PostFlairSets = append(f.PostFlairSets, k)
	return nil
}

// SendPrivateMessage implements Client.
func (f *Fake) SendPrivateMessage(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("send_private_message"); err != nil {
		return err
	}
	f.SentMessages = append(f.SentMessages, FakeMessage{To: to, Subject: subject, Body: body})
	return nil
}

// SubmitComment implements Client.
func (f *Fake) SubmitComment(ctx context.Context, parentID, body string) (*Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("submit_comment"); err != nil {
		return nil, err
	}
	f.replySeq++
	c := &Comment{
		ID:       fmt.Sprintf("t1_reply%d", f.replySeq),
		ParentID: parentID,
		Body:     body,
	}
	f.Replies = append(f.Replies, c)
	f.Comments[c.ID] = c
	return c, nil
}

// DistinguishComment implements Client.
func (f *Fake) DistinguishComment(ctx context.Context, commentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("distinguish_comment"); err != nil {
		return err
	}
	f.Distinguished = append(f.Distinguished, commentID)
	return nil
}

// LockComment implements Client.
func (f *Fake) LockComment(ctx context.Context, commentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("lock_comment"); err != nil {
		return err
	}
	f.Locked = append(f.Locked, commentID)
	return nil
}

// GetWikiPage implements Client.
func (f *Fake) GetWikiPage(ctx context.Context, subreddit, page string) (*WikiPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("get_wiki_page"); err != nil {
		return nil, err
	}
	w, ok := f.WikiPages[key(subreddit, page)]
	if !ok {
		return nil, fmt.Errorf("get_wiki_page %s: %w", page, ErrNotFound)
	}
	return w, nil
}

// PutWikiPage implements Client.
func (f *Fake) PutWikiPage(ctx context.Context, subreddit, page, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("put_wiki_page"); err != nil {
		return err
	}
	k := key(subreddit, page)
	w, ok := f.WikiPages[k]
	if !ok {
		w = &WikiPage{Name: page, Listed: true}
		f.WikiPages[k] = w
	}
	w.Content = content
	f.WikiPuts = append(f.WikiPuts, k)
	return nil
}

// SetWikiPagePermissions implements Client.
func (f *Fake) SetWikiPagePermissions(ctx context.Context, subreddit, page string, listed bool, perm WikiPermission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("set_wiki_permissions"); err != nil {
		return err
	}
	k := key(subreddit, page)
	w, ok := f.WikiPages[k]
	if !ok {
		return fmt.Errorf("set_wiki_permissions %s: %w", page, ErrNotFound)
	}
	w.Listed = listed
	w.PermLevel = perm
	f.WikiPermSets = append(f.WikiPermSets, k)
	return nil
}

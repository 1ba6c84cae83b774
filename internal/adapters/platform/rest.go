package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/reputator-bot/reputator/pkg/metrics"
)

const defaultRequestTimeout = 15 * time.Second

// RESTClient implements Client against the platform's HTTP API.
type RESTClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// RESTOption applies a configuration option to the RESTClient.
type RESTOption func(*RESTClient)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) RESTOption {
	return func(r *RESTClient) {
		if c != nil {
			r.http = c
		}
	}
}

// NewRESTClient creates a Client talking to the API at baseURL.
func NewRESTClient(baseURL, token string, opts ...RESTOption) *RESTClient {
	r := &RESTClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// do issues one API call and decodes the response into out when non-nil.
func (r *RESTClient) do(ctx context.Context, op, method, path string, in, out any) error {
	start := time.Now()
	defer func() {
		metrics.RecordPlatformCall(op, float64(time.Since(start).Milliseconds()))
	}()

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		metrics.RecordPlatformCallError(op)
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		metrics.RecordPlatformCallError(op)
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case resp.StatusCode >= http.StatusBadRequest:
		metrics.RecordPlatformCallError(op)
		return fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			metrics.RecordPlatformCallError(op)
			return fmt.Errorf("%s: decode response: %w", op, err)
		}
	}
	return nil
}

// GetComment implements Client.
func (r *RESTClient) GetComment(ctx context.Context, id string) (*Comment, error) {
	var c Comment
	if err := r.do(ctx, "get_comment", http.MethodGet,
		"/api/comments/"+url.PathEscape(id), nil, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetUserByName implements Client.
func (r *RESTClient) GetUserByName(ctx context.Context, name string) (*User, error) {
	var u User
	if err := r.do(ctx, "get_user", http.MethodGet,
		"/api/users/"+url.PathEscape(name), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// IsModerator implements Client.
func (r *RESTClient) IsModerator(ctx context.Context, subreddit, name string) (bool, error) {
	var resp struct {
		IsModerator bool `json:"is_moderator"`
	}
	err := r.do(ctx, "is_moderator", http.MethodGet,
		"/api/subreddits/"+url.PathEscape(subreddit)+"/moderators/"+url.PathEscape(name),
		nil, &resp)
	if err != nil {
		return false, err
	}
	return resp.IsModerator, nil
}

// GetUserFlair implements Client. A 404 means "no flair", not an error.
func (r *RESTClient) GetUserFlair(ctx context.Context, subreddit, name string) (*UserFlair, error) {
	var f UserFlair
	err := r.do(ctx, "get_user_flair", http.MethodGet,
		"/api/subreddits/"+url.PathEscape(subreddit)+"/flair/"+url.PathEscape(name),
		nil, &f)
	if err != nil {
		if isNotFoundErr(err) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

// SetUserFlair implements Client.
func (r *RESTClient) SetUserFlair(ctx context.Context, subreddit, name string, flair UserFlair) error {
	return r.do(ctx, "set_user_flair", http.MethodPut,
		"/api/subreddits/"+url.PathEscape(subreddit)+"/flair/"+url.PathEscape(name),
		flair, nil)
}

// SetPostFlair implements Client.
func (r *RESTClient) SetPostFlair(ctx context.Context, subreddit, postID string, flair PostFlair) error {
	return r.do(ctx, "set_post_flair", http.MethodPut,
		"/api/subreddits/"+url.PathEscape(subreddit)+"/posts/"+url.PathEscape(postID)+"/flair",
		flair, nil)
}

// SendPrivateMessage implements Client.
func (r *RESTClient) SendPrivateMessage(ctx context.Context, to, subject, body string) error {
	req := struct {
		To      string `json:"to"`
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}{To: to, Subject: subject, Body: body}
	return r.do(ctx, "send_private_message", http.MethodPost, "/api/messages", req, nil)
}

// SubmitComment implements Client.
func (r *RESTClient) SubmitComment(ctx context.Context, parentID, body string) (*Comment, error) {
	req := struct {
		Body string `json:"body"`
	}{Body: body}
	var c Comment
	if err := r.do(ctx, "submit_comment", http.MethodPost,
		"/api/comments/"+url.PathEscape(parentID)+"/replies", req, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// DistinguishComment implements Client.
func (r *RESTClient) DistinguishComment(ctx context.Context, commentID string) error {
	return r.do(ctx, "distinguish_comment", http.MethodPost,
		"/api/comments/"+url.PathEscape(commentID)+"/distinguish", nil, nil)
}

// LockComment implements Client.
func (r *RESTClient) LockComment(ctx context.Context, commentID string) error {
	return r.do(ctx, "lock_comment", http.MethodPost,
		"/api/comments/"+url.PathEscape(commentID)+"/lock", nil, nil)
}

// GetWikiPage implements Client.
func (r *RESTClient) GetWikiPage(ctx context.Context, subreddit, page string) (*WikiPage, error) {
	var w WikiPage
	if err := r.do(ctx, "get_wiki_page", http.MethodGet,
		"/api/subreddits/"+url.PathEscape(subreddit)+"/wiki/"+url.PathEscape(page),
		nil, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// PutWikiPage implements Client.
func (r *RESTClient) PutWikiPage(ctx context.Context, subreddit, page, content string) error {
	req := struct {
		Content string `json:"content"`
	}{Content: content}
	return r.do(ctx, "put_wiki_page", http.MethodPut,
		"/api/subreddits/"+url.PathEscape(subreddit)+"/wiki/"+url.PathEscape(page),
		req, nil)
}

// SetWikiPagePermissions implements Client.
func (r *RESTClient) SetWikiPagePermissions(ctx context.Context, subreddit, page string, listed bool, perm WikiPermission) error {
	req := struct {
		Listed    bool `json:"listed"`
		PermLevel int  `json:"perm_level"`
	}{Listed: listed, PermLevel: int(perm)}
	return r.do(ctx, "set_wiki_permissions", http.MethodPut,
		"/api/subreddits/"+url.PathEscape(subreddit)+"/wiki/"+url.PathEscape(page)+"/settings",
		req, nil)
}

func isNotFoundErr(err error) bool {
	return errors.Is(err, ErrNotFound)
}

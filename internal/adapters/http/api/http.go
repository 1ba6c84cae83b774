// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/reputator-bot/reputator/internal/adapters/repository"
	"github.com/reputator-bot/reputator/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// SeenAndRecord atomically checks and records an event id for ingest
	// deduplication. Returns true if the id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets an event id so a redelivery can be retried.
	Unrecord(ctx context.Context, id string)

	// Enqueue pushes an event for async processing. Returns false on
	// backpressure.
	Enqueue(ctx context.Context, e *model.CommentEvent) bool

	// TopN exposes the score store's ranked read.
	TopN(ctx context.Context, n int) ([]Entry, error)
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = repository.Entry

// Server wires HTTP routes for the bot API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	eventsHandler      *EventsHandler
	leaderboardHandler *LeaderboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		eventsHandler:      NewEventsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, defaultMaxLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
}

// eventRequest mirrors the comment event payload for POST /events.
type eventRequest struct {
	EventID string `json:"event_id"`
	Comment struct {
		ID         string `json:"id"`
		ParentID   string `json:"parent_id"`
		Body       string `json:"body"`
		AuthorID   string `json:"author_id"`
		AuthorName string `json:"author_name"`
	} `json:"comment"`
	Post struct {
		ID       string `json:"id"`
		AuthorID string `json:"author_id"`
	} `json:"post"`
	Subreddit struct {
		Name string `json:"name"`
	} `json:"subreddit"`
}

func (e eventRequest) validate() error {
	switch {
	case strings.TrimSpace(e.Comment.ID) == "":
		return errors.New("missing comment.id")
	case strings.TrimSpace(e.Comment.ParentID) == "":
		return errors.New("missing comment.parent_id")
	case strings.TrimSpace(e.Comment.AuthorID) == "":
		return errors.New("missing comment.author_id")
	case strings.TrimSpace(e.Comment.AuthorName) == "":
		return errors.New("missing comment.author_name")
	case strings.TrimSpace(e.Post.ID) == "":
		return errors.New("missing post.id")
	case strings.TrimSpace(e.Post.AuthorID) == "":
		return errors.New("missing post.author_id")
	case strings.TrimSpace(e.Subreddit.Name) == "":
		return errors.New("missing subreddit.name")
	}
	return nil
}

func (e eventRequest) toModel() *model.CommentEvent {
	return &model.CommentEvent{
		EventID: e.EventID,
		Comment: &model.Comment{
			ID:         e.Comment.ID,
			ParentID:   e.Comment.ParentID,
			Body:       e.Comment.Body,
			AuthorID:   e.Comment.AuthorID,
			AuthorName: e.Comment.AuthorName,
		},
		Post: &model.Post{
			ID:       e.Post.ID,
			AuthorID: e.Post.AuthorID,
		},
		Subreddit: &model.Subreddit{Name: e.Subreddit.Name},
	}
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// Package leaderboard renders the top scorers into a wiki page and keeps the
// page's visibility aligned with configuration.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/reputator-bot/reputator/internal/adapters/platform"
	"github.com/reputator-bot/reputator/internal/adapters/repository"
	"github.com/reputator-bot/reputator/internal/domain/notify"
	"github.com/reputator-bot/reputator/internal/domain/settings"
	"github.com/reputator-bot/reputator/pkg/logger"
	"github.com/reputator-bot/reputator/pkg/metrics"
)

// Size is how many top scorers the published leaderboard shows.
const Size = 20

// Publisher writes the ranked leaderboard to a subreddit wiki page.
type Publisher struct {
	client    platform.Client
	store     repository.Store
	subreddit string

	// installedAt scopes the "since" footnote; zero means unknown.
	installedAt time.Time

	log logger.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithInstallDate records when the bot was installed, shown in the page
// footer so readers know the window the scores cover.
func WithInstallDate(t time.Time) Option {
	return func(p *Publisher) { p.installedAt = t }
}

// NewPublisher creates a Publisher for one subreddit.
func NewPublisher(client platform.Client, store repository.Store, subreddit string, opts ...Option) *Publisher {
	p := &Publisher{
		client:    client,
		store:     store,
		subreddit: subreddit,
		log:       logger.Named("leaderboard"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Refresh renders the current top scorers and publishes them. With the
// leaderboard mode off it performs no wiki calls at all.
func (p *Publisher) Refresh(ctx context.Context, cfg *settings.Snapshot) error {
	if cfg.LeaderboardMode == settings.LeaderboardOff {
		return nil
	}
	if cfg.WikiPage == "" {
		return nil
	}

	top, err := p.store.TopN(ctx, Size)
	if err != nil {
		metrics.RecordLeaderboardError()
		return fmt.Errorf("leaderboard: read top scores: %w", err)
	}

	content := p.render(top)

	if err := p.publish(ctx, cfg, content); err != nil {
		metrics.RecordLeaderboardError()
		return err
	}

	p.log.Info(ctx, "leaderboard published",
		logger.String("page", cfg.WikiPage),
		logger.Int("entries", len(top)))
	metrics.RecordLeaderboardRefresh()
	return nil
}

func (p *Publisher) render(top []repository.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# ReputatorBot High Scores for %s\n\n", p.subreddit)
	b.WriteString("User | Points Total\n-|-\n")
	for _, entry := range top {
		fmt.Fprintf(&b, "%s|%d\n", notify.EscapeMarkdown(entry.Member), entry.Score)
	}

	b.WriteString("\nThe leaderboard shows the top 20 users who have been awarded at least one point")
	if !p.installedAt.IsZero() {
		fmt.Fprintf(&b, " since %s", p.installedAt.UTC().Format(time.RFC1123))
	}
	b.WriteString(". This page is updated once a day.")
	return b.String()
}

// publish writes the page and aligns its permission level with the
// configured mode. The permission call is skipped when already correct.
func (p *Publisher) publish(ctx context.Context, cfg *settings.Snapshot, content string) error {
	existing, err := p.client.GetWikiPage(ctx, p.subreddit, cfg.WikiPage)
	if err != nil && !errors.Is(err, platform.ErrNotFound) {
		return fmt.Errorf("leaderboard: read wiki page: %w", err)
	}

	if err := p.client.PutWikiPage(ctx, p.subreddit, cfg.WikiPage, content); err != nil {
		return fmt.Errorf("leaderboard: write wiki page: %w", err)
	}

	want := platform.WikiPermModsOnly
	if cfg.LeaderboardMode == settings.LeaderboardPublic {
		want = platform.WikiPermSubreddit
	}
	if existing != nil && existing.PermLevel == want && existing.Listed {
		return nil
	}
	if err := p.client.SetWikiPagePermissions(ctx, p.subreddit, cfg.WikiPage, true, want); err != nil {
		return fmt.Errorf("leaderboard: set wiki permissions: %w", err)
	}
	return nil
}

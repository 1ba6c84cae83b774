// Package cleanup reclaims score records belonging to accounts that no
// longer exist. A companion due-set tracks when each scored account should
// next be probed for liveness.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/reputator-bot/reputator/internal/adapters/platform"
	"github.com/reputator-bot/reputator/internal/adapters/repository"
	"github.com/reputator-bot/reputator/pkg/logger"
	"github.com/reputator-bot/reputator/pkg/metrics"
)

// DefaultBatchSize caps how many due accounts one sweep run probes.
const DefaultBatchSize = 50

// recheckInterval is how far out a confirmed-active account is rescheduled.
const recheckInterval = 24 * time.Hour

// RefreshFunc triggers an out-of-cycle leaderboard refresh after removals.
type RefreshFunc func(ctx context.Context) error

// Sweeper probes scored accounts for liveness and prunes the gone ones.
type Sweeper struct {
	client platform.Client
	points repository.Store
	due    repository.Store

	refresh   RefreshFunc
	batchSize int
	now       func() time.Time

	log logger.Logger
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithBatchSize overrides how many due accounts one run probes.
func WithBatchSize(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithRefreshTrigger sets the callback fired once per run when at least one
// account was removed, because a removal can change the published top set.
func WithRefreshTrigger(fn RefreshFunc) Option {
	return func(s *Sweeper) { s.refresh = fn }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// NewSweeper creates a Sweeper over the points store and its due-set.
func NewSweeper(client platform.Client, points, due repository.Store, opts ...Option) *Sweeper {
	s := &Sweeper{
		client:    client,
		points:    points,
		due:       due,
		batchSize: DefaultBatchSize,
		now:       time.Now,
		log:       logger.Named("cleanup"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep runs one liveness pass: pop up to the batch size of due accounts,
// probe each, reschedule the active ones a day out and purge the gone ones
// from both stores. At most one leaderboard refresh fires per run.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := s.now()

	due, err := s.due.RangeByScore(ctx, 0, now.Unix())
	if err != nil {
		return fmt.Errorf("cleanup: read due-set: %w", err)
	}
	if len(due) == 0 {
		s.log.Debug(ctx, "no accounts are due a check")
		return nil
	}
	if len(due) > s.batchSize {
		s.log.Info(ctx, "more accounts due than one run handles",
			logger.Int("due", len(due)),
			logger.Int("batch", s.batchSize))
		due = due[:s.batchSize]
	}

	var active, gone []string
	for _, entry := range due {
		if s.userActive(ctx, entry.Member) {
			active = append(active, entry.Member)
		} else {
			gone = append(gone, entry.Member)
		}
	}
	metrics.RecordSweepRun()
	metrics.RecordSweepAccountsChecked(len(due))

	recheck := now.Add(recheckInterval).Unix()
	for _, member := range active {
		if err := s.due.Upsert(ctx, member, recheck); err != nil {
			return fmt.Errorf("cleanup: reschedule %s: %w", member, err)
		}
	}

	if len(gone) == 0 {
		return nil
	}

	s.log.Info(ctx, "removing accounts that no longer exist",
		logger.Int("count", len(gone)))
	if _, err := s.points.Remove(ctx, gone...); err != nil {
		return fmt.Errorf("cleanup: remove scores: %w", err)
	}
	if _, err := s.due.Remove(ctx, gone...); err != nil {
		return fmt.Errorf("cleanup: remove due entries: %w", err)
	}
	metrics.RecordSweepAccountsRemoved(len(gone))

	if s.refresh != nil {
		if err := s.refresh(ctx); err != nil {
			return fmt.Errorf("cleanup: post-removal refresh: %w", err)
		}
	}
	return nil
}

// userActive probes one account. Only a definitive not-found counts as gone;
// transient platform errors must never cause a score removal.
func (s *Sweeper) userActive(ctx context.Context, username string) bool {
	_, err := s.client.GetUserByName(ctx, username)
	if err == nil {
		return true
	}
	if errors.Is(err, platform.ErrNotFound) {
		s.log.Info(ctx, "account appears deleted or suspended",
			logger.String("user", username))
		return false
	}
	s.log.Warn(ctx, "liveness probe failed, keeping account",
		logger.String("user", username),
		logger.Error(err))
	return true
}

// Repair reconciles the due-set against the points store. Scored users
// missing a due entry get one with a randomized delay of up to a day so
// probes spread out; due entries without a score are dropped. Running it
// twice with no intervening score changes mutates nothing the second time.
func (s *Sweeper) Repair(ctx context.Context) error {
	scored, err := s.points.Members(ctx)
	if err != nil {
		return fmt.Errorf("cleanup: list scored users: %w", err)
	}
	tracked, err := s.due.Members(ctx)
	if err != nil {
		return fmt.Errorf("cleanup: list due-set: %w", err)
	}

	trackedSet := make(map[string]struct{}, len(tracked))
	for _, m := range tracked {
		trackedSet[m] = struct{}{}
	}
	scoredSet := make(map[string]struct{}, len(scored))
	for _, m := range scored {
		scoredSet[m] = struct{}{}
	}

	now := s.now()
	added := 0
	for _, member := range scored {
		if _, ok := trackedSet[member]; ok {
			continue
		}
		delay := time.Duration(rand.Int63n(int64(recheckInterval)))
		if err := s.due.Upsert(ctx, member, now.Add(delay).Unix()); err != nil {
			return fmt.Errorf("cleanup: track %s: %w", member, err)
		}
		added++
	}

	var orphans []string
	for _, member := range tracked {
		if _, ok := scoredSet[member]; !ok {
			orphans = append(orphans, member)
		}
	}
	if len(orphans) > 0 {
		if _, err := s.due.Remove(ctx, orphans...); err != nil {
			return fmt.Errorf("cleanup: drop orphaned due entries: %w", err)
		}
	}

	if added > 0 || len(orphans) > 0 {
		s.log.Info(ctx, "due-set reconciled",
			logger.Int("added", added),
			logger.Int("dropped", len(orphans)))
	}
	return nil
}

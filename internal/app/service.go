// Package service assembles the bot: stores, ledger, queue, workers, award
// engine, leaderboard publisher, liveness sweeper and scheduled jobs. It is
// the dependency surface the HTTP API talks to.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	eventqueue "github.com/reputator-bot/reputator/internal/adapters/mq/queue"
	workerpool "github.com/reputator-bot/reputator/internal/adapters/mq/worker"
	"github.com/reputator-bot/reputator/internal/adapters/platform"
	"github.com/reputator-bot/reputator/internal/adapters/repository"
	"github.com/reputator-bot/reputator/internal/cleanup"
	"github.com/reputator-bot/reputator/internal/domain/award"
	"github.com/reputator-bot/reputator/internal/domain/ledger"
	"github.com/reputator-bot/reputator/internal/domain/model"
	"github.com/reputator-bot/reputator/internal/domain/notify"
	"github.com/reputator-bot/reputator/internal/domain/settings"
	"github.com/reputator-bot/reputator/internal/leaderboard"
	"github.com/reputator-bot/reputator/internal/scheduler"
	"github.com/reputator-bot/reputator/pkg/logger"
	"github.com/reputator-bot/reputator/pkg/metrics"
)

// Scheduled job names.
const (
	JobLeaderboardRefresh = "leaderboard-refresh"
	JobLivenessSweep      = "liveness-sweep"
)

// ingestTTL is how long an event id is remembered for ingest deduplication.
const ingestTTL = 24 * time.Hour

// leaderboardInterval and sweepInterval drive the recurring jobs.
const (
	leaderboardInterval = 24 * time.Hour
	sweepInterval       = time.Hour
)

// Service implements the API dependencies for the reputation bot.
type Service struct {
	mu sync.RWMutex

	// Core components, built on Start.
	points     repository.Store
	dueSet     repository.Store
	awardLog   *ledger.InMemoryLedger
	eventQueue eventqueue.Queue
	workerPool *workerpool.Pool
	engine     *award.Engine
	publisher  *leaderboard.Publisher
	sweeper    *cleanup.Sweeper
	sched      *scheduler.Scheduler

	// Configuration.
	client      platform.Client
	settingsSrc settings.Source
	subreddit   string
	botAccount  string
	workerCount int
	queueSize   int
	sweepBatch  int
	installedAt time.Time

	// State.
	started bool
	stopCh  chan struct{}

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithPlatformClient sets the social-platform client.
func WithPlatformClient(c platform.Client) Option {
	return func(s *Service) {
		if c != nil {
			s.client = c
		}
	}
}

// WithSettingsSource sets where policy configuration is read from.
func WithSettingsSource(src settings.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.settingsSrc = src
		}
	}
}

// WithSubreddit sets the community the bot serves.
func WithSubreddit(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.subreddit = name
		}
	}
}

// WithBotAccount sets the bot's own account name.
func WithBotAccount(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.botAccount = name
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithSweepBatchSize caps how many accounts one liveness sweep probes.
func WithSweepBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.sweepBatch = size
		}
	}
}

// WithInstallDate records when the bot was first installed; defaults to the
// first Start.
func WithInstallDate(t time.Time) Option {
	return func(s *Service) { s.installedAt = t }
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		settingsSrc: &settings.Static{S: settings.Defaults()},
		subreddit:   "unknown",
		botAccount:  "ReputatorBot",
		workerCount: runtime.NumCPU() * 2,
		queueSize:   10000,
		sweepBatch:  cleanup.DefaultBatchSize,
		stopCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components, then registers the
// recurring jobs plus a one-shot leaderboard publish and due-set repair.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.installedAt.IsZero() {
		s.installedAt = time.Now()
	}

	s.logger.Info(ctx, "starting reputation service...",
		logger.String("subreddit", s.subreddit))

	s.points = repository.NewTreapStore(ctx)
	s.dueSet = repository.NewTreapStore(ctx)
	s.awardLog = ledger.NewInMemoryLedger(ctx)
	s.eventQueue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
	)

	notifier := notify.NewDispatcher(s.client)
	s.engine = award.NewEngine(s.client, s.points, s.awardLog, notifier,
		award.WithBotAccount(s.botAccount),
	)
	s.publisher = leaderboard.NewPublisher(s.client, s.points, s.subreddit,
		leaderboard.WithInstallDate(s.installedAt),
	)
	s.sweeper = cleanup.NewSweeper(s.client, s.points, s.dueSet,
		cleanup.WithBatchSize(s.sweepBatch),
		cleanup.WithRefreshTrigger(s.RunLeaderboardJob),
	)

	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.engine, s.settingsSrc)
	s.workerPool.Start(ctx)

	s.sched = scheduler.NewScheduler()
	s.sched.Start(ctx)
	s.registerJobs()

	s.started = true
	s.logger.Info(ctx, "reputation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
	)

	return nil
}

// registerJobs wires the recurring work: a daily leaderboard publish, an
// hourly liveness sweep, plus an immediate publish and due-set repair so a
// fresh install is consistent right away. Stale entries from a previous
// generation are cancelled first.
func (s *Service) registerJobs() {
	s.sched.CancelByName(JobLeaderboardRefresh)
	s.sched.CancelByName(JobLivenessSweep)

	s.sched.RunEvery(JobLeaderboardRefresh, leaderboardInterval, s.RunLeaderboardJob)
	s.sched.RunEvery(JobLivenessSweep, sweepInterval, s.RunCleanupJob)

	now := time.Now()
	s.sched.RunAt(JobLeaderboardRefresh, now, s.RunLeaderboardJob)
	s.sched.RunAt(JobLivenessSweep, now, func(ctx context.Context) error {
		return s.sweeper.Repair(ctx)
	})
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping reputation service...")

	if s.sched != nil {
		_ = s.sched.Close()
	}
	if s.workerPool != nil {
		_ = s.workerPool.Shutdown(ctx)
	}
	if s.awardLog != nil {
		_ = s.awardLog.Close()
	}

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(ctx, "reputation service stopped")
}

// SeenAndRecord atomically checks whether an event id was already ingested
// and records it if not. Returns true if the event was already seen.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.awardLog.SeenAndRecord(ctx, "event-"+id, ingestTTL)
	if seen {
		metrics.RecordEventDuplicate()
	}
	return seen
}

// Unrecord forgets an ingested event id so a redelivery can be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.awardLog.Unrecord(ctx, "event-"+id)
}

// Enqueue submits a comment event for asynchronous processing. Returns
// false when the queue is full.
func (s *Service) Enqueue(ctx context.Context, e *model.CommentEvent) bool {
	ok := s.eventQueue.Enqueue(ctx, e)
	if !ok {
		s.logger.Warn(ctx, "event queue full, rejecting event",
			logger.String("eventID", e.EventID))
	}
	return ok
}

// TopN returns the top N score entries.
func (s *Service) TopN(ctx context.Context, n int) ([]repository.Entry, error) {
	return s.points.TopN(ctx, n)
}

// RunLeaderboardJob publishes the leaderboard using a fresh settings read.
func (s *Service) RunLeaderboardJob(ctx context.Context) error {
	cfg, err := s.settingsSrc.Snapshot(ctx)
	if err != nil {
		return err
	}
	return s.publisher.Refresh(ctx, cfg)
}

// RunCleanupJob reconciles the due-set and runs one liveness sweep pass.
// Running the repair first means users awarded since the last pass get
// enrolled for liveness checks without waiting for a restart.
func (s *Service) RunCleanupJob(ctx context.Context) error {
	if err := s.sweeper.Repair(ctx); err != nil {
		return err
	}
	return s.sweeper.Sweep(ctx)
}

// Jobs lists the scheduled jobs, soonest first.
func (s *Service) Jobs() []scheduler.Job {
	return s.sched.Jobs()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"subreddit":   s.subreddit,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}

	if s.started {
		ctx := context.Background()
		stats["queueLength"] = s.eventQueue.Len(ctx)
		stats["scoredUsers"] = s.points.Count(ctx)
		stats["trackedUsers"] = s.dueSet.Count(ctx)
		stats["ledgerSize"] = s.awardLog.Size()
		stats["scheduledJobs"] = len(s.sched.Jobs())
	}

	return stats
}

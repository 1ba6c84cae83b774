// Package award implements the point-awarding decision engine: the rule
// evaluation that decides, for one incoming comment event, whether a
// reputation point is granted, to whom, and what side effects follow.
package award

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/reputator-bot/reputator/internal/adapters/platform"
	"github.com/reputator-bot/reputator/internal/adapters/repository"
	"github.com/reputator-bot/reputator/internal/domain/ledger"
	"github.com/reputator-bot/reputator/internal/domain/model"
	"github.com/reputator-bot/reputator/internal/domain/notify"
	"github.com/reputator-bot/reputator/internal/domain/settings"
	"github.com/reputator-bot/reputator/pkg/logger"
	"github.com/reputator-bot/reputator/pkg/metrics"
)

// Rejection stage labels used for observability.
const (
	stageShape        = "shape"
	stageActor        = "actor"
	stageStructure    = "structure"
	stageNoCommand    = "no_command"
	stageUnauthorized = "unauthorized"
	stageBotTarget    = "bot_target"
	stageSelfAward    = "self_award"
	stageExcluded     = "excluded"
	stageDuplicate    = "duplicate"
)

// Engine orchestrates one event's award decision. It is safe for
// concurrent use; all per-event state lives on the stack.
type Engine struct {
	client   platform.Client
	store    repository.Store
	ledger   ledger.Ledger
	notifier *notify.Dispatcher

	botAccount string
	log        logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithBotAccount sets the bot's own account name, used to refuse awards
// granted by or to the bot itself.
func WithBotAccount(name string) Option {
	return func(e *Engine) { e.botAccount = name }
}

// NewEngine wires the decision engine to its collaborators.
func NewEngine(client platform.Client, store repository.Store, led ledger.Ledger, notifier *notify.Dispatcher, opts ...Option) *Engine {
	e := &Engine{
		client:     client,
		store:      store,
		ledger:     led,
		notifier:   notifier,
		botAccount: "ReputatorBot",
		log:        logger.Named("award"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process runs the award decision for one comment event.
//
// Rejections (malformed event, no command, not authorized, self-award,
// excluded target, duplicate) are normal outcomes: they log, count a metric
// and return nil. Collaborator failures during the mutating phase propagate
// and abort the rest of the event; a later re-delivery is caught by the
// idempotency ledger if the ledger write was reached.
func (e *Engine) Process(ctx context.Context, event *model.CommentEvent, cfg *settings.Snapshot) error {
	if !event.Valid() {
		e.reject(ctx, event, stageShape, "event is missing comment, post, author or subreddit")
		return nil
	}

	awarder := event.Comment.AuthorName
	if strings.EqualFold(awarder, e.botAccount) || awarder == platform.AutoModerator {
		e.reject(ctx, event, stageActor, "automated accounts cannot award points")
		return nil
	}

	if event.ParentIsPost() {
		e.reject(ctx, event, stageStructure, "points cannot be awarded in a top-level comment")
		return nil
	}

	permitted, kind, err := e.resolveAuthorization(ctx, event, cfg)
	if err != nil {
		return fmt.Errorf("resolve authorization: %w", err)
	}
	if kind == commandNone {
		// Not an award attempt. No log either, this is almost every comment.
		metrics.RecordAwardRejection(stageNoCommand)
		return nil
	}
	if !permitted {
		e.reject(ctx, event, stageUnauthorized, "awarder is not authorized")
		return nil
	}

	parent, err := e.client.GetComment(ctx, event.Comment.ParentID)
	if err != nil {
		return fmt.Errorf("fetch parent comment %s: %w", event.Comment.ParentID, err)
	}

	if strings.EqualFold(parent.AuthorName, e.botAccount) || parent.AuthorName == platform.AutoModerator {
		e.reject(ctx, event, stageBotTarget, "points cannot be awarded to automated accounts")
		return nil
	}

	if parent.AuthorName == awarder {
		e.reject(ctx, event, stageSelfAward, "self-award attempt")
		if cfg.NotifyOnError != settings.NotifyNone {
			body := notify.Render(cfg.NotifyOnErrorTemplate, map[string]string{
				"authorname": notify.EscapeMarkdown(awarder),
				"permalink":  parent.Permalink,
			})
			if err := e.notifier.Send(ctx, cfg.NotifyOnError, event.Subreddit.Name, awarder, body, event.Comment.ID); err != nil {
				return fmt.Errorf("self-award notification: %w", err)
			}
		}
		return nil
	}

	if cfg.CannotBeAwarded(parent.AuthorName) {
		e.reject(ctx, event, stageExcluded, "target is on the exclusion list")
		return nil
	}

	key := ledger.Key(parent.ID, awarder)
	if e.ledger.Seen(ctx, key) {
		e.reject(ctx, event, stageDuplicate, "comment already thanked by this user")
		return nil
	}

	prev, numeric, err := e.currentScore(ctx, event.Subreddit.Name, parent.AuthorName)
	if err != nil {
		return fmt.Errorf("read current score for %s: %w", parent.AuthorName, err)
	}
	newScore := prev + 1

	// A hand-set non-numeric flair is only replaced when the operator opted
	// into overwriting everything; the stored score advances either way.
	if numeric || cfg.Overwrite == settings.OverwriteAll {
		if err := e.setUserBadge(ctx, event.Subreddit.Name, parent.AuthorName, newScore, cfg); err != nil {
			return fmt.Errorf("set user badge: %w", err)
		}
	} else {
		e.log.Info(ctx, "existing flair is not numeric, leaving badge untouched",
			logger.String("user", parent.AuthorName))
	}

	if cfg.PostFlairEnabled {
		if err := e.setPostBadge(ctx, event.Subreddit.Name, event.Post.ID, cfg); err != nil {
			return fmt.Errorf("set post badge: %w", err)
		}
	}

	e.ledger.Record(ctx, key, ledger.AwardTTL)

	if err := e.store.Upsert(ctx, parent.AuthorName, newScore); err != nil {
		return fmt.Errorf("store score for %s: %w", parent.AuthorName, err)
	}

	e.log.Info(ctx, "point awarded",
		logger.String("comment", event.Comment.ID),
		logger.String("awarder", awarder),
		logger.String("awardee", parent.AuthorName),
		logger.Int64("score", newScore))
	metrics.RecordAwardGranted()

	if err := e.maybeNotifySuperuser(ctx, event, parent, newScore, cfg); err != nil {
		return err
	}

	if cfg.NotifyOnSuccess != settings.NotifyNone {
		body := notify.Render(cfg.NotifyOnSuccessTemplate, map[string]string{
			"authorname":      notify.EscapeMarkdown(awarder),
			"awardeeusername": notify.EscapeMarkdown(parent.AuthorName),
			"permalink":       parent.Permalink,
		})
		if err := e.notifier.Send(ctx, cfg.NotifyOnSuccess, event.Subreddit.Name, awarder, body, event.Comment.ID); err != nil {
			return fmt.Errorf("success notification: %w", err)
		}
	}

	return nil
}

// maybeNotifySuperuser tells an awardee they crossed the auto-superuser
// threshold with this award. Only fires exactly at the threshold, and only
// when a moderator command exists for them to use.
func (e *Engine) maybeNotifySuperuser(ctx context.Context, event *model.CommentEvent, parent *platform.Comment, newScore int64, cfg *settings.Snapshot) error {
	if cfg.AutoSuperuserThreshold <= 0 || cfg.ModCommand == "" {
		return nil
	}
	if newScore != int64(cfg.AutoSuperuserThreshold) || cfg.NotifyOnSuperuser == settings.NotifyNone {
		return nil
	}

	e.log.Info(ctx, "user reached the auto-superuser threshold",
		logger.String("user", parent.AuthorName),
		logger.Int("threshold", cfg.AutoSuperuserThreshold))

	body := notify.Render(cfg.NotifyOnSuperuserTemplate, map[string]string{
		"authorname":    notify.EscapeMarkdown(parent.AuthorName),
		"permalink":     parent.Permalink,
		"threshold":     strconv.Itoa(cfg.AutoSuperuserThreshold),
		"pointscommand": cfg.ModCommand,
	})
	if err := e.notifier.Send(ctx, cfg.NotifyOnSuperuser, event.Subreddit.Name, parent.AuthorName, body, parent.ID); err != nil {
		return fmt.Errorf("superuser notification: %w", err)
	}
	return nil
}

// currentScore reads a user's displayed score from their flair. An absent
// flair, the "-" placeholder or empty text count as zero with numeric true;
// any other unparsable text counts as zero with numeric false.
func (e *Engine) currentScore(ctx context.Context, subreddit, user string) (int64, bool, error) {
	flair, err := e.client.GetUserFlair(ctx, subreddit, user)
	if err != nil {
		return 0, false, err
	}
	if flair == nil || flair.Text == "" || flair.Text == "-" {
		return 0, true, nil
	}
	score, err := strconv.ParseInt(strings.TrimSpace(flair.Text), 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return score, true, nil
}

// setUserBadge writes the new score to the awardee's flair. A flair template
// takes priority over a CSS class; the class is dropped when both are set.
func (e *Engine) setUserBadge(ctx context.Context, subreddit, user string, score int64, cfg *settings.Snapshot) error {
	cssClass := cfg.CSSClass
	if cfg.FlairTemplate != "" {
		cssClass = ""
	}
	return e.client.SetUserFlair(ctx, subreddit, user, platform.UserFlair{
		Text:       strconv.FormatInt(score, 10),
		CSSClass:   cssClass,
		TemplateID: cfg.FlairTemplate,
	})
}

// setPostBadge flairs the post the award happened under. Skipped entirely
// unless a text or a template id is configured.
func (e *Engine) setPostBadge(ctx context.Context, subreddit, postID string, cfg *settings.Snapshot) error {
	cssClass := cfg.PostFlairCSSClass
	if cfg.PostFlairTemplate != "" {
		cssClass = ""
	}
	if cfg.PostFlairText == "" && cfg.PostFlairTemplate == "" {
		return nil
	}
	return e.client.SetPostFlair(ctx, subreddit, postID, platform.PostFlair{
		Text:       cfg.PostFlairText,
		CSSClass:   cssClass,
		TemplateID: cfg.PostFlairTemplate,
	})
}

func (e *Engine) reject(ctx context.Context, event *model.CommentEvent, stage, reason string) {
	fields := []logger.Field{logger.String("stage", stage)}
	if event.Comment != nil {
		fields = append(fields,
			logger.String("comment", event.Comment.ID),
			logger.String("awarder", event.Comment.AuthorName))
	}
	e.log.Debug(ctx, reason, fields...)
	metrics.RecordAwardRejection(stage)
}

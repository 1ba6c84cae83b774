package award

import (
	"context"
	"strings"

	"github.com/reputator-bot/reputator/internal/domain/model"
	"github.com/reputator-bot/reputator/internal/domain/settings"
	"github.com/reputator-bot/reputator/pkg/logger"
)

// commandKind identifies which configured command an event matched.
type commandKind int

const (
	commandNone commandKind = iota
	commandRegular
	commandMod
)

// resolveAuthorization decides whether an award attempt is permitted and
// which command triggered it.
//
// A comment matching neither command is not an award attempt at all; one that
// matches but fails the policy gates is a normal "not authorized" rejection.
// The forbidden-awarder list is applied last, overriding every other grant.
func (e *Engine) resolveAuthorization(ctx context.Context, event *model.CommentEvent, cfg *settings.Snapshot) (bool, commandKind, error) {
	body := strings.ToLower(event.Comment.Body)
	matchedRegular := cfg.Command != "" && strings.Contains(body, strings.ToLower(cfg.Command))
	matchedMod := cfg.ModCommand != "" && strings.Contains(body, strings.ToLower(cfg.ModCommand))

	if !matchedRegular && !matchedMod {
		return false, commandNone, nil
	}

	kind := commandRegular
	permitted := false

	switch {
	case matchedRegular && event.Comment.AuthorID == event.Post.AuthorID:
		// The post author may always thank people replying to them.
		permitted = true

	case matchedRegular:
		if cfg.AnyoneCanAward {
			permitted = true
			break
		}
		ok, err := e.isModOrSuperuser(ctx, event, cfg)
		if err != nil {
			return false, kind, err
		}
		permitted = ok

	default:
		kind = commandMod
		ok, err := e.isModOrSuperuser(ctx, event, cfg)
		if err != nil {
			return false, kind, err
		}
		permitted = ok
	}

	if permitted && cfg.CannotAward(event.Comment.AuthorName) {
		e.log.Info(ctx, "awarder is on the forbidden list",
			logger.String("comment", event.Comment.ID),
			logger.String("awarder", event.Comment.AuthorName))
		return false, kind, nil
	}

	return permitted, kind, nil
}

// isModOrSuperuser reports whether the event's author is a subreddit
// moderator, a configured superuser, or past the auto-superuser threshold.
func (e *Engine) isModOrSuperuser(ctx context.Context, event *model.CommentEvent, cfg *settings.Snapshot) (bool, error) {
	name := event.Comment.AuthorName

	isMod, err := e.client.IsModerator(ctx, event.Subreddit.Name, name)
	if err != nil {
		return false, err
	}
	if isMod {
		return true, nil
	}
	if cfg.IsConfiguredSuperUser(name) {
		return true, nil
	}
	if cfg.AutoSuperuserThreshold <= 0 {
		return false, nil
	}

	score, _, err := e.currentScore(ctx, event.Subreddit.Name, name)
	if err != nil {
		return false, err
	}
	return score >= int64(cfg.AutoSuperuserThreshold), nil
}

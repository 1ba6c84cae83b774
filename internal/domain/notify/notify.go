// Package notify delivers award outcome messages to users. Delivery is
// best-effort over private message, mandatory over public reply, and a no-op
// when the channel is silent.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/reputator-bot/reputator/internal/adapters/platform"
	"github.com/reputator-bot/reputator/internal/domain/settings"
	"github.com/reputator-bot/reputator/pkg/logger"
	"github.com/reputator-bot/reputator/pkg/metrics"
)

// Dispatcher sends rendered notifications through a configured channel.
type Dispatcher struct {
	client platform.Client
	log    logger.Logger
}

// NewDispatcher creates a Dispatcher backed by the given platform client.
func NewDispatcher(client platform.Client) *Dispatcher {
	return &Dispatcher{
		client: client,
		log:    logger.Named("notify"),
	}
}

// Send delivers body to user over the selected channel. commentID is the
// comment the notification relates to; public replies are posted under it.
//
// Private-message failure is logged and swallowed, never returned: recipients
// can block messages and that must not abort the award that triggered the
// notification. Public-reply failures do propagate.
func (d *Dispatcher) Send(ctx context.Context, channel settings.NotifyChannel, subreddit, user, body, commentID string) error {
	switch channel {
	case settings.NotifyByPM:
		subject := fmt.Sprintf("Message from ReputatorBot on %s", subreddit)
		if err := d.client.SendPrivateMessage(ctx, user, subject, body); err != nil {
			d.log.Warn(ctx, "private message delivery failed, user may block PMs",
				logger.String("user", user),
				logger.Error(err))
			metrics.RecordNotification("pm", "failed")
			return nil
		}
		metrics.RecordNotification("pm", "sent")
		return nil

	case settings.NotifyByReply:
		if err := d.reply(ctx, body, commentID); err != nil {
			metrics.RecordNotification("reply", "failed")
			return err
		}
		metrics.RecordNotification("reply", "sent")
		return nil

	default:
		return nil
	}
}

// reply posts a comment under parentID, then distinguishes and locks it.
// The two follow-up calls are issued concurrently and jointly awaited.
func (d *Dispatcher) reply(ctx context.Context, body, parentID string) error {
	posted, err := d.client.SubmitComment(ctx, parentID, body)
	if err != nil {
		return fmt.Errorf("submit reply: %w", err)
	}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs[0] = d.client.DistinguishComment(ctx, posted.ID)
	}()
	go func() {
		defer wg.Done()
		errs[1] = d.client.LockComment(ctx, posted.ID)
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("finalize reply %s: %w", posted.ID, err)
		}
	}
	return nil
}

// Render substitutes {{token}} placeholders in a message template.
func Render(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"{", `\{`,
	"}", `\}`,
	"[", `\[`,
	"]", `\]`,
	"(", `\(`,
	")", `\)`,
	"#", `\#`,
	"+", `\+`,
	"-", `\-`,
	".", `\.`,
	"!", `\!`,
	"|", `\|`,
	">", `\>`,
	"~", `\~`,
)

// EscapeMarkdown escapes markdown control characters in user-supplied text
// such as usernames, so they render literally in messages and wiki tables.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

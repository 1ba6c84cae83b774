// Package settings defines the moderator-facing policy configuration and the
// source it is read from. A Snapshot is fetched once per event or job and
// treated as immutable for the duration of that invocation.
package settings

import "strings"

// OverwritePolicy controls how an existing, hand-set user flair is treated
// when a point is awarded.
type OverwritePolicy string

// Overwrite policy values.
const (
	OverwriteNumeric OverwritePolicy = "overwritenumeric"
	OverwriteAll     OverwritePolicy = "overwriteall"
)

// NotifyChannel selects how the bot tells a user about an award outcome.
type NotifyChannel string

// Notification channel values.
const (
	NotifyNone    NotifyChannel = "none"
	NotifyByPM    NotifyChannel = "replybypm"
	NotifyByReply NotifyChannel = "replybycomment"
)

// LeaderboardMode controls the visibility of the published leaderboard.
type LeaderboardMode string

// Leaderboard modes.
const (
	LeaderboardOff     LeaderboardMode = "off"
	LeaderboardModOnly LeaderboardMode = "modonly"
	LeaderboardPublic  LeaderboardMode = "public"
)

// Default message templates. Placeholders use {{name}} tokens.
const (
	DefaultErrorTemplate = "Hello {{authorname}},\n\n" +
		"You cannot award a point to yourself.\n\n" +
		"Please contact the mods if you have any questions.\n\n---\n\n^(I am a bot)"

	DefaultSuccessTemplate = "You have awarded 1 point to {{awardeeusername}}.\n\n---\n\n" +
		"^(I am a bot - please contact the mods with any questions)"

	DefaultSuperuserTemplate = "Hello {{authorname}},\n\n" +
		"You have reached {{threshold}} points and can now award points to other " +
		"users with the {{pointscommand}} command.\n\n---\n\n^(I am a bot)"
)

// DefaultWikiPage is where the leaderboard is published unless overridden.
const DefaultWikiPage = "reputatorbotleaderboard"

// Snapshot is one immutable read of the policy configuration. All list
// fields are trimmed and lowercased at load time so membership checks are
// case-insensitive.
type Snapshot struct {
	// Commands. Command is required; ModCommand is optional.
	Command    string
	ModCommand string

	// Authorization.
	AnyoneCanAward         bool
	SuperUsers             []string
	CannotAwardUsers       []string
	CannotBeAwardedUsers   []string
	AutoSuperuserThreshold int

	// Badge handling.
	Overwrite     OverwritePolicy
	CSSClass      string
	FlairTemplate string

	// Post badge. Applied only when PostFlairEnabled and at least a text or
	// a template id is configured.
	PostFlairEnabled  bool
	PostFlairText     string
	PostFlairCSSClass string
	PostFlairTemplate string

	// Notifications.
	NotifyOnError             NotifyChannel
	NotifyOnErrorTemplate     string
	NotifyOnSuccess           NotifyChannel
	NotifyOnSuccessTemplate   string
	NotifyOnSuperuser         NotifyChannel
	NotifyOnSuperuserTemplate string

	// Leaderboard.
	LeaderboardMode LeaderboardMode
	WikiPage        string
}

// IsConfiguredSuperUser reports whether name is on the superuser list.
func (s *Snapshot) IsConfiguredSuperUser(name string) bool {
	return containsFold(s.SuperUsers, name)
}

// CannotAward reports whether name is forbidden from awarding points.
func (s *Snapshot) CannotAward(name string) bool {
	return containsFold(s.CannotAwardUsers, name)
}

// CannotBeAwarded reports whether name may not receive points.
func (s *Snapshot) CannotBeAwarded(name string) bool {
	return containsFold(s.CannotBeAwardedUsers, name)
}

func containsFold(list []string, name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, entry := range list {
		if entry == name {
			return true
		}
	}
	return false
}

// splitList turns a comma-separated setting into a normalized slice.
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

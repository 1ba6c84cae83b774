package settings

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Source yields the current policy snapshot. Implementations must return a
// fresh read on every call; no caching across events is assumed safe.
type Source interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// raw mirrors the settings file layout before validation.
type raw struct {
	Command                   string `koanf:"thanks_command"`
	ModCommand                string `koanf:"mod_thanks_command"`
	AnyoneCanAward            bool   `koanf:"anyone_can_award"`
	SuperUsers                string `koanf:"super_users"`
	CannotAwardUsers          string `koanf:"users_who_cannot_award"`
	CannotBeAwardedUsers      string `koanf:"users_who_cannot_be_awarded"`
	AutoSuperuserThreshold    int    `koanf:"auto_superuser_threshold"`
	Overwrite                 string `koanf:"existing_flair_handling"`
	CSSClass                  string `koanf:"thanks_css_class"`
	FlairTemplate             string `koanf:"thanks_flair_template"`
	PostFlairEnabled          bool   `koanf:"set_post_flair"`
	PostFlairText             string `koanf:"post_flair_text"`
	PostFlairCSSClass         string `koanf:"post_flair_css_class"`
	PostFlairTemplate         string `koanf:"post_flair_template"`
	NotifyOnError             string `koanf:"notify_on_error"`
	NotifyOnErrorTemplate     string `koanf:"notify_on_error_template"`
	NotifyOnSuccess           string `koanf:"notify_on_success"`
	NotifyOnSuccessTemplate   string `koanf:"notify_on_success_template"`
	NotifyOnSuperuser         string `koanf:"notify_on_superuser"`
	NotifyOnSuperuserTemplate string `koanf:"notify_on_superuser_template"`
	LeaderboardMode           string `koanf:"leaderboard_mode"`
	WikiPage                  string `koanf:"leaderboard_wiki_page"`
}

// defaults returns the documented default for every setting.
func defaults() raw {
	return raw{
		Command:                   "!thanks",
		ModCommand:                "!modthanks",
		Overwrite:                 string(OverwriteNumeric),
		NotifyOnError:             string(NotifyNone),
		NotifyOnErrorTemplate:     DefaultErrorTemplate,
		NotifyOnSuccess:           string(NotifyNone),
		NotifyOnSuccessTemplate:   DefaultSuccessTemplate,
		NotifyOnSuperuser:         string(NotifyNone),
		NotifyOnSuperuserTemplate: DefaultSuperuserTemplate,
		LeaderboardMode:           string(LeaderboardOff),
		WikiPage:                  DefaultWikiPage,
	}
}

// build validates a raw read into a Snapshot. Invalid enum values fall back
// to their documented defaults at load time, not at point of use.
func build(r raw) *Snapshot {
	s := &Snapshot{
		Command:                strings.TrimSpace(r.Command),
		ModCommand:             strings.TrimSpace(r.ModCommand),
		AnyoneCanAward:         r.AnyoneCanAward,
		SuperUsers:             splitList(r.SuperUsers),
		CannotAwardUsers:       splitList(r.CannotAwardUsers),
		CannotBeAwardedUsers:   splitList(r.CannotBeAwardedUsers),
		AutoSuperuserThreshold: r.AutoSuperuserThreshold,
		Overwrite:              OverwritePolicy(strings.ToLower(strings.TrimSpace(r.Overwrite))),
		CSSClass:               strings.TrimSpace(r.CSSClass),
		FlairTemplate:          strings.TrimSpace(r.FlairTemplate),
		PostFlairEnabled:       r.PostFlairEnabled,
		PostFlairText:          strings.TrimSpace(r.PostFlairText),
		PostFlairCSSClass:      strings.TrimSpace(r.PostFlairCSSClass),
		PostFlairTemplate:      strings.TrimSpace(r.PostFlairTemplate),
		NotifyOnError:          channel(r.NotifyOnError),
		NotifyOnErrorTemplate:  templateOr(r.NotifyOnErrorTemplate, DefaultErrorTemplate),
		NotifyOnSuccess:        channel(r.NotifyOnSuccess),
		NotifyOnSuccessTemplate: templateOr(
			r.NotifyOnSuccessTemplate, DefaultSuccessTemplate),
		NotifyOnSuperuser: channel(r.NotifyOnSuperuser),
		NotifyOnSuperuserTemplate: templateOr(
			r.NotifyOnSuperuserTemplate, DefaultSuperuserTemplate),
		LeaderboardMode: mode(r.LeaderboardMode),
		WikiPage:        strings.TrimSpace(r.WikiPage),
	}

	if s.Overwrite != OverwriteNumeric && s.Overwrite != OverwriteAll {
		s.Overwrite = OverwriteNumeric
	}
	if s.AutoSuperuserThreshold < 0 {
		s.AutoSuperuserThreshold = 0
	}
	if s.WikiPage == "" {
		s.WikiPage = DefaultWikiPage
	}
	return s
}

func channel(v string) NotifyChannel {
	switch NotifyChannel(strings.ToLower(strings.TrimSpace(v))) {
	case NotifyByPM:
		return NotifyByPM
	case NotifyByReply:
		return NotifyByReply
	default:
		return NotifyNone
	}
}

func mode(v string) LeaderboardMode {
	switch LeaderboardMode(strings.ToLower(strings.TrimSpace(v))) {
	case LeaderboardModOnly:
		return LeaderboardModOnly
	case LeaderboardPublic:
		return LeaderboardPublic
	default:
		return LeaderboardOff
	}
}

func templateOr(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// FileSource reads the settings file on every Snapshot call so that
// moderator edits take effect on the next event.
type FileSource struct {
	path string
}

// NewFileSource creates a Source backed by a YAML settings file. A missing
// file yields all defaults rather than an error.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Snapshot implements Source.
func (f *FileSource) Snapshot(ctx context.Context) (*Snapshot, error) {
	r := defaults()

	if f.path != "" {
		if _, err := os.Stat(f.path); err == nil {
			k := koanf.New(".")
			if err := k.Load(file.Provider(f.path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("settings: load %s: %w", f.path, err)
			}
			if err := k.UnmarshalWithConf("", &r, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
				return nil, fmt.Errorf("settings: unmarshal: %w", err)
			}
		}
	}

	return build(r), nil
}

// Static is a Source that always returns the same snapshot. Used by tests
// and by jobs that were handed a snapshot by their caller.
type Static struct {
	S *Snapshot
}

// Snapshot implements Source.
func (s *Static) Snapshot(ctx context.Context) (*Snapshot, error) {
	return s.S, nil
}

// Defaults returns a snapshot with every setting at its documented default.
func Defaults() *Snapshot {
	return build(defaults())
}

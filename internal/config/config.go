// Package config defines process configuration and loading.
package config

import "runtime"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// EventQueueSize bounds the in-memory event queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of award workers.
	WorkerCount int `koanf:"worker_count"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// SweepBatchSize caps how many accounts one liveness sweep probes.
	SweepBatchSize int `koanf:"sweep_batch_size"`

	// Subreddit is the community the bot serves.
	Subreddit string `koanf:"subreddit"`

	// BotAccount is the bot's own username on the platform.
	BotAccount string `koanf:"bot_account"`

	// PlatformBaseURL and PlatformToken configure the platform REST client.
	PlatformBaseURL string `koanf:"platform_base_url"`
	PlatformToken   string `koanf:"platform_token"`

	// SettingsPath points at the moderator policy settings YAML file.
	SettingsPath string `koanf:"settings_path"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		EventQueueSize:      10_000,
		WorkerCount:         runtime.NumCPU() * 2,
		MaxLeaderboardLimit: 100,
		SweepBatchSize:      50,
		Subreddit:           "",
		BotAccount:          "ReputatorBot",
		PlatformBaseURL:     "http://localhost:8570",
		PlatformToken:       "",
		SettingsPath:        "",
	}
}

// Package config loads and validates process configuration. All settings
// come from environment variables (SESSION_TOKEN, USER_ID, ...) with an
// optional config file layered underneath; secrets are passed through the
// Config struct explicitly and never read from ambient globals elsewhere.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds everything a single run needs.
type Config struct {
	// Leaderboard access
	SessionToken   string `mapstructure:"session_token" validate:"required"`
	UserID         string `mapstructure:"user_id" validate:"required"`
	LeaderboardURL string `mapstructure:"leaderboard_url" validate:"required,url"`

	// Single-target mode; ignored when TargetsFile is set
	Year       int    `mapstructure:"year" validate:"required_without=TargetsFile"`
	TargetFile string `mapstructure:"target_file" validate:"required_without=TargetsFile"`
	// BadgePattern overrides the default stars-badge pattern. Must contain
	// a (?P<count>...) group.
	BadgePattern string `mapstructure:"badge_pattern"`

	// Multi-target mode: YAML file listing {year, file, pattern} entries
	TargetsFile string `mapstructure:"targets_file"`

	// Publishing
	RepoPath      string `mapstructure:"repo_path" validate:"required"`
	GitRemote     string `mapstructure:"git_remote" validate:"required"`
	GitBranch     string `mapstructure:"git_branch"`
	GitUsername   string `mapstructure:"git_username"`
	GitToken      string `mapstructure:"git_token"`
	CommitMessage string `mapstructure:"commit_message" validate:"required"`
	AuthorName    string `mapstructure:"author_name" validate:"required"`
	AuthorEmail   string `mapstructure:"author_email" validate:"required,email"`

	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	DryRun      bool          `mapstructure:"dry_run"`
}

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"session_token":   "SESSION_TOKEN",
	"user_id":         "USER_ID",
	"leaderboard_url": "LEADERBOARD_URL",
	"year":            "YEAR",
	"target_file":     "TARGET_FILE",
	"badge_pattern":   "BADGE_PATTERN",
	"targets_file":    "TARGETS_FILE",
	"repo_path":       "REPO_PATH",
	"git_remote":      "GIT_REMOTE",
	"git_branch":      "GIT_BRANCH",
	"git_username":    "GIT_USERNAME",
	"git_token":       "GIT_TOKEN",
	"commit_message":  "COMMIT_MESSAGE",
	"author_name":     "AUTHOR_NAME",
	"author_email":    "AUTHOR_EMAIL",
	"http_timeout":    "HTTP_TIMEOUT",
	"dry_run":         "DRY_RUN",
}

// Manager loads and validates configuration.
type Manager struct {
	validator      *validator.Validate
	configFilePath string
}

// NewManager creates a Manager. configFilePath may be empty, in which case
// only environment variables and defaults apply.
func NewManager(configFilePath string) *Manager {
	return &Manager{
		validator:      validator.New(),
		configFilePath: configFilePath,
	}
}

// Load reads, unmarshals and validates the configuration.
func (m *Manager) Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if m.configFilePath != "" {
		v.SetConfigFile(m.configFilePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := m.validator.Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("repo_path", ".")
	v.SetDefault("git_remote", "origin")
	v.SetDefault("commit_message", "Update stars badge for {{.Year}} to {{.Stars}}")
	v.SetDefault("author_name", "github-actions")
	v.SetDefault("author_email", "github-actions@github.com")
	v.SetDefault("http_timeout", "30s")
}

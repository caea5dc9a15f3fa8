package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/amber/internal/apperr"
	"github.com/starford/amber/internal/gitlog"
	"github.com/starford/amber/internal/llm"
	pkgconfig "github.com/starford/amber/pkg/config"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// DefaultConfigPath is used when no --config flag or AMBER_CONFIG_FILE is given.
const DefaultConfigPath = "~/.amber/config.yaml"

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Sources    SourcesConfig     `yaml:"sources"`
	Summarizer SummarizerConfig  `yaml:"summarizer"`
	Schedule   ScheduleConfig    `yaml:"schedule"`
	Storage    StorageConfig     `yaml:"storage"`
	Auth       AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Sources.Git.Validate(); err != nil {
		return err
	}
	if err := c.Summarizer.Validate(); err != nil {
		return err
	}
	if err := c.Schedule.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds the status API server configuration.
// Port 0 disables the server.
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Enabled reports whether the HTTP server should be started.
func (c *HTTPConfig) Enabled() bool {
	return c.Port != 0
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Min(0), validation.Max(65535)),
	)
}

// SourcesConfig groups the per-source settings. Only git exists today.
type SourcesConfig struct {
	Git GitSourceConfig `yaml:"git"`
}

// GitSourceConfig configures repository discovery, watching and diffing.
type GitSourceConfig struct {
	Enabled      bool          `yaml:"enabled"`
	WatchPaths   []string      `yaml:"watch_paths"`
	ScanDepth    int           `yaml:"scan_depth"`
	Backend      string        `yaml:"backend"`
	HistoryDepth int           `yaml:"history_depth"`
	Debounce     time.Duration `yaml:"debounce"`
}

// Validate validates the git source configuration.
func (c *GitSourceConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = gitlog.BackendExec
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.WatchPaths, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.ScanDepth, validation.Min(0), validation.Max(32)),
		validation.Field(&c.Backend, validation.In(gitlog.BackendExec, gitlog.BackendGoGit)),
		validation.Field(&c.HistoryDepth, validation.Min(0)),
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// SummarizerConfig selects and configures the LLM provider.
type SummarizerConfig struct {
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model"`
	APIBase   string        `yaml:"api_base"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Validate validates the summarizer configuration.
func (c *SummarizerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.Required, validation.In(llm.ProviderOpenAICompatible, llm.ProviderOpenAI, llm.ProviderOllama, llm.ProviderGemini)),
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.APIKeyEnv, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// LLM converts the section into the provider factory's configuration.
func (c *SummarizerConfig) LLM() llm.Config {
	return llm.Config{
		Provider:  c.Provider,
		Model:     c.Model,
		APIBase:   c.APIBase,
		APIKeyEnv: c.APIKeyEnv,
		Timeout:   c.Timeout,
	}
}

// ScheduleConfig controls the scheduler's timers.
type ScheduleConfig struct {
	IngestMinutes int `yaml:"ingest_minutes"`
	DailyHour     int `yaml:"daily_hour"`
}

// Validate validates the schedule configuration.
func (c *ScheduleConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.IngestMinutes, validation.Min(0)),
		validation.Field(&c.DailyHour, validation.Min(0), validation.Max(23)),
	)
}

// IngestInterval returns the ingest tick period, never shorter than one minute.
func (c *ScheduleConfig) IngestInterval() time.Duration {
	return time.Duration(max(c.IngestMinutes, 1)) * time.Minute
}

// StorageConfig locates the notes, staging logs and state database.
type StorageConfig struct {
	BaseDir   string `yaml:"base_dir"`
	StatePath string `yaml:"state_path"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseDir, validation.Required),
	)
}

// ResolveBaseDir expands a leading "~" in BaseDir.
func (c *StorageConfig) ResolveBaseDir() (string, error) {
	dir, err := pkgconfig.ExpandHome(c.BaseDir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperr.ErrConfig, err)
	}
	return dir, nil
}

// ResolveStatePath returns the state database path, defaulting to amber.db
// inside the base directory.
func (c *StorageConfig) ResolveStatePath() (string, error) {
	if c.StatePath != "" {
		p, err := pkgconfig.ExpandHome(c.StatePath)
		if err != nil {
			return "", fmt.Errorf("%w: %w", apperr.ErrConfig, err)
		}
		return p, nil
	}
	base, err := c.ResolveBaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "amber.db"), nil
}

// AuthConfig holds authentication configuration for the HTTP API.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, the server binds to loopback.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Host: "127.0.0.1",
				Port: 7420,
			},
		},
		Sources: SourcesConfig{
			Git: GitSourceConfig{
				Enabled:      true,
				WatchPaths:   []string{"~/src"},
				ScanDepth:    3,
				Backend:      gitlog.BackendExec,
				HistoryDepth: gitlog.DefaultHistoryDepth,
				Debounce:     2 * time.Second,
			},
		},
		Summarizer: SummarizerConfig{
			Provider:  llm.ProviderOpenAICompatible,
			Model:     "gpt-4o-mini",
			APIBase:   "https://api.openai.com/v1",
			APIKeyEnv: "OPENAI_API_KEY",
			Timeout:   2 * time.Minute,
		},
		Schedule: ScheduleConfig{
			IngestMinutes: 15,
			DailyHour:     22,
		},
		Storage: StorageConfig{
			BaseDir: "~/.amber",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

// LoadConfig reads the configuration at path (with "~" expanded), writing the
// defaults there first when the file does not exist.
func LoadConfig(path string) (*Config, error) {
	resolved, err := pkgconfig.ExpandHome(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrConfig, err)
	}
	cfg := NewDefaultConfig()
	if err := pkgconfig.LoadOrInit(resolved, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrConfig, err)
	}
	return cfg, nil
}

// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// PlatformPageLimit is the per-call page cap imposed by the platform API.
// Configured fetch sizes are clamped to it at the call site.
const PlatformPageLimit = 100

// Config holds the entire application configuration, loaded once per run
// and read-only for the duration of a sweep.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Mission    MissionConfig    `mapstructure:"mission" yaml:"mission"`
	Platform   PlatformConfig   `mapstructure:"platform" yaml:"platform"`
	Classifier ClassifierConfig `mapstructure:"classifier" yaml:"classifier"`
	Audit      AuditConfig      `mapstructure:"audit" yaml:"audit"`
}

// MissionConfig carries the operational parameters for a deployment.
type MissionConfig struct {
	StrikeThreshold    int           `mapstructure:"strike_threshold" yaml:"strike_threshold"`
	LookbackWindow     time.Duration `mapstructure:"lookback_window" yaml:"lookback_window"`
	SweepInterval      time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
	PostAnnouncements  bool          `mapstructure:"post_announcements" yaml:"post_announcements"`
	DryRun             bool          `mapstructure:"dry_run" yaml:"dry_run"`
	MaxTimelineResults int           `mapstructure:"max_timeline_results" yaml:"max_timeline_results"`
	MaxDossierPosts    int           `mapstructure:"max_dossier_posts" yaml:"max_dossier_posts"`
}

// PlatformConfig configures the Bluesky adapter.
type PlatformConfig struct {
	Host        string        `mapstructure:"host" yaml:"host"`
	Identifier  string        `mapstructure:"identifier" yaml:"identifier"`
	AppPassword string        `mapstructure:"app_password" yaml:"-"`
	RateLimit   float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ClassifierConfig configures the optional probabilistic classifier.
// An empty APIKey disables it; the rule engine carries the sweep alone.
type ClassifierConfig struct {
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Model       string        `mapstructure:"model" yaml:"model"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
}

// AuditConfig configures the mission log.
type AuditConfig struct {
	Path       string `mapstructure:"path" yaml:"path"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	// DatabaseURL enables the optional Postgres mirror of the mission log.
	DatabaseURL string `mapstructure:"database_url" yaml:"-"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// SetDefaults initializes default values for every recognized key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "open-jaws")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Mission --
	v.SetDefault("mission.strike_threshold", 3)
	v.SetDefault("mission.lookback_window", "168h")
	v.SetDefault("mission.sweep_interval", "30m")
	v.SetDefault("mission.post_announcements", true)
	v.SetDefault("mission.dry_run", false)
	v.SetDefault("mission.max_timeline_results", 200)
	v.SetDefault("mission.max_dossier_posts", 100)

	// -- Platform --
	v.SetDefault("platform.host", "https://bsky.social")
	v.SetDefault("platform.rate_limit", 3.0)
	v.SetDefault("platform.timeout", "30s")

	// -- Classifier --
	v.SetDefault("classifier.model", "gemini-2.5-flash")
	v.SetDefault("classifier.api_timeout", "20s")
	v.SetDefault("classifier.temperature", 0.0)

	// -- Audit --
	v.SetDefault("audit.path", "dossier/mission_log.jsonl")
	v.SetDefault("audit.max_size", 50)
	v.SetDefault("audit.max_backups", 10)
	v.SetDefault("audit.max_age", 365)
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults always unmarshal; a failure here is a programming error.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a validated configuration from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Secrets come from the environment, never the config file.
	v.BindEnv("platform.app_password", "OPENJAWS_PLATFORM_APP_PASSWORD")
	v.BindEnv("classifier.api_key", "OPENJAWS_CLASSIFIER_API_KEY")
	v.BindEnv("audit.database_url", "OPENJAWS_AUDIT_DATABASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Mission.StrikeThreshold < 1 {
		return fmt.Errorf("mission.strike_threshold must be at least 1")
	}
	if c.Mission.LookbackWindow <= 0 {
		return fmt.Errorf("mission.lookback_window must be a positive duration")
	}
	if c.Mission.SweepInterval <= 0 {
		return fmt.Errorf("mission.sweep_interval must be a positive duration")
	}
	if c.Mission.MaxTimelineResults < 1 || c.Mission.MaxDossierPosts < 1 {
		return fmt.Errorf("mission fetch sizes must be positive")
	}
	if c.Platform.Host == "" {
		return fmt.Errorf("platform.host is required")
	}
	if c.Platform.RateLimit <= 0 {
		return fmt.Errorf("platform.rate_limit must be positive")
	}
	if c.Audit.Path == "" {
		return fmt.Errorf("audit.path is required")
	}
	return nil
}

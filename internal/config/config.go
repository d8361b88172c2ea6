package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fleetops/igor/internal/fleeterr"
)

// Config holds everything the CLI, TUI and conductor need. Precedence is
// flags > environment > config.toml > defaults.
type Config struct {
	Host  string `mapstructure:"host"`
	Token string `mapstructure:"token"`

	PerPage     int `mapstructure:"per_page"`
	MaxPages    int `mapstructure:"max_pages"`
	Concurrency int `mapstructure:"concurrency"`

	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	StaleThreshold time.Duration `mapstructure:"stale_threshold"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	PollTimeout    time.Duration `mapstructure:"poll_timeout"`

	Debug bool `mapstructure:"debug"`
}

// Load reads configuration from the environment and, when present, a
// config.toml in the working directory or ~/.config/igor/.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GITLAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "igor"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "https://gitlab.com")
	// Registered so AutomaticEnv can surface GITLAB_TOKEN through Unmarshal.
	v.SetDefault("token", "")
	v.SetDefault("per_page", 100)
	v.SetDefault("max_pages", 0)
	v.SetDefault("concurrency", 8)
	v.SetDefault("request_timeout", 10*time.Second)
	v.SetDefault("stale_threshold", time.Hour)
	v.SetDefault("poll_interval", 30*time.Second)
	v.SetDefault("poll_timeout", 30*time.Minute)
	v.SetDefault("debug", false)
}

// Validate checks the loaded values before anything touches the network.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required (GITLAB_HOST or host in config.toml)")
	}
	if c.PerPage < 1 {
		return fmt.Errorf("per_page must be >= 1")
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("max_pages must be >= 0 (0 means unbounded)")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be > 0")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be > 0")
	}
	return nil
}

// RequireToken returns an error unless a token is configured. Commands call
// this right before constructing a client so that purely local invocations
// (help, version) work without one.
func (c *Config) RequireToken() error {
	if c.Token == "" {
		return fleeterr.Validation(
			fmt.Errorf("no API token configured"),
			"Set GITLAB_TOKEN in the environment or token in config.toml.",
		)
	}
	return nil
}

// This file defines the configuration structure for the application.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vrsandeep/podcatch/internal/feed"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	Port     int `mapstructure:"port"`
	Database struct {
		Driver string `mapstructure:"driver"` // "sqlite3" (mattn) or "sqlite" (modernc)
		Path   string `mapstructure:"path"`
	} `mapstructure:"database"`
	Refresh struct {
		IntervalMinutes     int `mapstructure:"interval_minutes"`
		SubscriptionDelayMs int `mapstructure:"subscription_delay_ms"`
		StreamBuffer        int `mapstructure:"stream_buffer"`
	} `mapstructure:"refresh"`
	Fetch struct {
		TimeoutSeconds int    `mapstructure:"timeout_seconds"`
		UserAgent      string `mapstructure:"user_agent"`
	} `mapstructure:"fetch"`
	Downloads struct {
		Path        string `mapstructure:"path"`
		Workers     int    `mapstructure:"workers"`
		PollSeconds int    `mapstructure:"poll_seconds"`
	} `mapstructure:"downloads"`
}

// SubscriptionDelay is the pause between two subscriptions of one refresh run.
func (c *Config) SubscriptionDelay() time.Duration {
	return time.Duration(c.Refresh.SubscriptionDelayMs) * time.Millisecond
}

// FetchTimeout bounds a single feed request.
func (c *Config) FetchTimeout() time.Duration {
	if c.Fetch.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file path. An empty path falls
// back to config.yml in the current directory.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
	}

	// PODCATCH_DATABASE_PATH overrides `database.path`, and so on.
	v.SetEnvPrefix("PODCATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", 8040)
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.path", "./podcatch.db")
	v.SetDefault("refresh.interval_minutes", 30)
	v.SetDefault("refresh.subscription_delay_ms", 100)
	v.SetDefault("refresh.stream_buffer", 100)
	v.SetDefault("fetch.timeout_seconds", 30)
	v.SetDefault("fetch.user_agent", feed.DefaultUserAgent)
	v.SetDefault("downloads.path", "./downloads")
	v.SetDefault("downloads.workers", 1)
	v.SetDefault("downloads.poll_seconds", 5)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		// No config file; defaults and environment apply.
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

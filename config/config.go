/*
config.go - Runtime configuration

PURPOSE:
  Loads server configuration from (in increasing precedence) built-in
  defaults, an optional config.yaml, and HRC_* environment variables.
  A .env file in the working directory is folded into the environment
  first so local development needs no shell exports.

KEYS (env form):
  HRC_HTTP_ADDR            listen address, default :8080
  HRC_SQLITE_PATH          database file, default hrcopilot.db
  HRC_REDIS_ADDR           session store; empty means in-memory sessions
  HRC_SESSION_TTL          idle window before a session expires
  HRC_INTENT_THRESHOLD     confidence floor for intent classification
  HRC_COMMIT_MAX_ATTEMPTS  CAS retry budget per commit
  HRC_LOG_LEVEL            debug|info|warn|error
  HRC_LOG_FORMAT           json|console
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr   string `mapstructure:"http_addr"`
	SQLitePath string `mapstructure:"sqlite_path"`

	// RedisAddr selects the session backend. Empty keeps sessions
	// in process memory, which is fine for a single instance.
	RedisAddr  string        `mapstructure:"redis_addr"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`

	IntentThreshold   float64 `mapstructure:"intent_threshold"`
	CommitMaxAttempts int     `mapstructure:"commit_max_attempts"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

func Default() Config {
	return Config{
		HTTPAddr:          ":8080",
		SQLitePath:        "hrcopilot.db",
		SessionTTL:        10 * time.Minute,
		IntentThreshold:   0.5,
		CommitMaxAttempts: 3,
		LogLevel:          "info",
		LogFormat:         "json",
	}
}

// Load reads config.yaml (if present) and HRC_* environment variables on
// top of the defaults.
func Load() (Config, error) {
	// Missing .env is not an error; the process environment still applies.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("HRC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("http_addr", def.HTTPAddr)
	v.SetDefault("sqlite_path", def.SQLitePath)
	v.SetDefault("redis_addr", def.RedisAddr)
	v.SetDefault("session_ttl", def.SessionTTL)
	v.SetDefault("intent_threshold", def.IntentThreshold)
	v.SetDefault("commit_max_attempts", def.CommitMaxAttempts)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_format", def.LogFormat)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr is required")
	}
	if c.SQLitePath == "" {
		return fmt.Errorf("sqlite_path is required")
	}
	if c.IntentThreshold < 0 || c.IntentThreshold > 1 {
		return fmt.Errorf("intent_threshold must be in [0, 1], got %v", c.IntentThreshold)
	}
	if c.CommitMaxAttempts < 1 {
		return fmt.Errorf("commit_max_attempts must be at least 1, got %d", c.CommitMaxAttempts)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive, got %v", c.SessionTTL)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Executor kinds
const (
	ExecutorLocal = "local" // in-process goroutines
	ExecutorRedis = "redis" // redis list queue drained by `bulkedit worker`
)

// Log formats
const (
	LogFormatTerminal = "terminal"
	LogFormatText     = "text"
	LogFormatJSON     = "json"
)

// Config represents the bulkedit configuration file.
type Config struct {
	DatabasePath string         `yaml:"database_path"`
	LogFormat    string         `yaml:"log_format"`
	Commit       CommitConfig   `yaml:"commit"`
	Executor     ExecutorConfig `yaml:"executor"`
}

// CommitConfig tunes the commit pipeline.
type CommitConfig struct {
	BatchSize       int           `yaml:"batch_size"`
	Concurrency     int           `yaml:"concurrency"`
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialBackoff  time.Duration `yaml:"initial_backoff"`
	MaxBackoff      time.Duration `yaml:"max_backoff"`
	WritesPerSecond float64       `yaml:"writes_per_second"` // 0 = unlimited
}

// ExecutorConfig selects where commit runs execute.
type ExecutorConfig struct {
	Kind          string `yaml:"kind"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password,omitempty"`
	RedisQueue    string `yaml:"redis_queue"`
}

// Default returns the configuration used when no file exists.
func Default(home string) *Config {
	return &Config{
		DatabasePath: filepath.Join(home, "bulkedit.db"),
		LogFormat:    LogFormatTerminal,
		Commit: CommitConfig{
			BatchSize:      100,
			Concurrency:    4,
			MaxAttempts:    3,
			InitialBackoff: 100 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
		},
		Executor: ExecutorConfig{
			Kind:       ExecutorLocal,
			RedisAddr:  "localhost:6379",
			RedisQueue: "bulkedit:tasks",
		},
	}
}

// Home returns $BULKEDIT_HOME, defaulting to ~/.bulkedit.
func Home() (string, error) {
	if h := os.Getenv("BULKEDIT_HOME"); h != "" {
		return h, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".bulkedit"), nil
}

// Load reads config.yaml from dir over the defaults and applies environment
// overrides. A missing file is not an error.
func Load(dir string) (*Config, error) {
	cfg := Default(dir)

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if v := os.Getenv("BULKEDIT_DB"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("BULKEDIT_REDIS_ADDR"); v != "" {
		cfg.Executor.RedisAddr = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config.yaml to dir.
func Save(dir string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("invalid config: database_path is required")
	}
	switch c.LogFormat {
	case LogFormatTerminal, LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("invalid config: unknown log_format %q", c.LogFormat)
	}
	if c.Commit.BatchSize <= 0 {
		return fmt.Errorf("invalid config: commit.batch_size must be positive")
	}
	if c.Commit.Concurrency <= 0 {
		return fmt.Errorf("invalid config: commit.concurrency must be positive")
	}
	if c.Commit.MaxAttempts <= 0 {
		return fmt.Errorf("invalid config: commit.max_attempts must be positive")
	}
	if c.Commit.InitialBackoff < 0 || c.Commit.MaxBackoff < c.Commit.InitialBackoff {
		return fmt.Errorf("invalid config: commit backoff must satisfy 0 <= initial_backoff <= max_backoff")
	}
	if c.Commit.WritesPerSecond < 0 {
		return fmt.Errorf("invalid config: commit.writes_per_second cannot be negative")
	}
	switch c.Executor.Kind {
	case ExecutorLocal:
	case ExecutorRedis:
		if c.Executor.RedisAddr == "" || c.Executor.RedisQueue == "" {
			return fmt.Errorf("invalid config: executor.redis_addr and executor.redis_queue are required for the redis executor")
		}
	default:
		return fmt.Errorf("invalid config: unknown executor.kind %q", c.Executor.Kind)
	}
	return nil
}

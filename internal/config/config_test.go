package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BULKEDIT_DB", "")
	t.Setenv("BULKEDIT_REDIS_ADDR", "")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DatabasePath != filepath.Join(dir, "bulkedit.db") {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.Commit.BatchSize != 100 || cfg.Commit.Concurrency != 4 || cfg.Commit.MaxAttempts != 3 {
		t.Errorf("unexpected commit defaults: %+v", cfg.Commit)
	}
	if cfg.Executor.Kind != ExecutorLocal {
		t.Errorf("Executor.Kind = %q, want local", cfg.Executor.Kind)
	}
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	content := `
log_format: json
commit:
  batch_size: 25
  initial_backoff: 50ms
  max_backoff: 1s
executor:
  kind: redis
  redis_queue: jobs
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BULKEDIT_DB", "/tmp/other.db")
	t.Setenv("BULKEDIT_REDIS_ADDR", "redis:6380")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LogFormat != LogFormatJSON {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
	if cfg.Commit.BatchSize != 25 {
		t.Errorf("BatchSize = %d, want 25", cfg.Commit.BatchSize)
	}
	if cfg.Commit.Concurrency != 4 {
		t.Errorf("Concurrency = %d, want default 4", cfg.Commit.Concurrency)
	}
	if cfg.Commit.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", cfg.Commit.InitialBackoff)
	}
	if cfg.DatabasePath != "/tmp/other.db" {
		t.Errorf("DatabasePath = %q, want env override", cfg.DatabasePath)
	}
	if cfg.Executor.RedisAddr != "redis:6380" || cfg.Executor.RedisQueue != "jobs" {
		t.Errorf("Executor = %+v", cfg.Executor)
	}
}

func TestSaveThenLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BULKEDIT_DB", "")
	t.Setenv("BULKEDIT_REDIS_ADDR", "")

	cfg := Default(dir)
	cfg.Commit.WritesPerSecond = 20
	if err := Save(dir, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Commit.WritesPerSecond != 20 {
		t.Errorf("WritesPerSecond = %v, want 20", loaded.Commit.WritesPerSecond)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty database path", func(c *Config) { c.DatabasePath = "" }},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }},
		{"zero batch size", func(c *Config) { c.Commit.BatchSize = 0 }},
		{"zero concurrency", func(c *Config) { c.Commit.Concurrency = 0 }},
		{"zero attempts", func(c *Config) { c.Commit.MaxAttempts = 0 }},
		{"inverted backoff", func(c *Config) { c.Commit.MaxBackoff = time.Millisecond }},
		{"negative rate", func(c *Config) { c.Commit.WritesPerSecond = -1 }},
		{"unknown executor", func(c *Config) { c.Executor.Kind = "sqs" }},
		{"redis without queue", func(c *Config) { c.Executor.Kind = ExecutorRedis; c.Executor.RedisQueue = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default(t.TempDir())
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if err := Default(t.TempDir()).Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestHome(t *testing.T) {
	t.Setenv("BULKEDIT_HOME", "/srv/bulkedit")
	home, err := Home()
	if err != nil {
		t.Fatalf("Home failed: %v", err)
	}
	if home != "/srv/bulkedit" {
		t.Errorf("Home() = %q", home)
	}
}

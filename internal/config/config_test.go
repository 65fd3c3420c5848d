package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"mashup/internal/config"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("MAIL_USERNAME", "sender@example.com")
	t.Setenv("MAIL_PASSWORD", "secret")
	t.Setenv("MAIL_DEFAULT_SENDER", "")

	path := filepath.Join(t.TempDir(), "missing.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be reported as absent")
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Server.Bind != "127.0.0.1:5000" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
	if cfg.Mashup.OffsetSeconds != 20 || cfg.Mashup.SearchFloor != 50 || cfg.Mashup.SearchMultiplier != 5 {
		t.Fatalf("unexpected mashup defaults: %+v", cfg.Mashup)
	}
	if cfg.MaxArchiveBytes() != 24*1024*1024 {
		t.Fatalf("unexpected archive limit: %d", cfg.MaxArchiveBytes())
	}
	if cfg.Source.RetryAttempts != 3 || cfg.RetryDelay().Seconds() != 5 {
		t.Fatalf("unexpected retry defaults: %+v", cfg.Source)
	}
	if cfg.Mail.Host != "smtp.gmail.com" || cfg.Mail.Port != 587 || !cfg.Mail.TLS {
		t.Fatalf("unexpected mail defaults: %+v", cfg.Mail)
	}
	if cfg.Mail.Username != "sender@example.com" || cfg.Mail.Password != "secret" {
		t.Fatalf("expected mail credentials from env, got %+v", cfg.Mail)
	}
	if cfg.Mail.From != "sender@example.com" {
		t.Fatalf("expected sender to fall back to username, got %q", cfg.Mail.From)
	}
	if !filepath.IsAbs(cfg.Paths.WorkspaceRoot) || !strings.HasSuffix(cfg.Paths.WorkspaceRoot, filepath.Join("mashup", "workspaces")) {
		t.Fatalf("unexpected workspace root: %q", cfg.Paths.WorkspaceRoot)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "*" {
		t.Fatalf("unexpected cors origins: %v", cfg.Server.CORSOrigins)
	}
}

func TestLoadCustomConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("MAIL_DEFAULT_SENDER", "")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
workspace_root = "~/work"
log_dir = "~/logs"

[server]
bind = "0.0.0.0:8080"
cors_origins = [" https://app.example.com ", ""]
max_concurrent_jobs = 2

[mashup]
offset_seconds = 5
max_archive_mib = 10

[mail]
from = "mashups@example.com"

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected existing config at %q, got %q exists=%v", configPath, resolved, exists)
	}
	if cfg.Paths.WorkspaceRoot != filepath.Join(tempHome, "work") {
		t.Fatalf("unexpected workspace root: %q", cfg.Paths.WorkspaceRoot)
	}
	if cfg.Paths.LogDir != filepath.Join(tempHome, "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Server.Bind != "0.0.0.0:8080" || cfg.Server.MaxConcurrentJobs != 2 {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "https://app.example.com" {
		t.Fatalf("expected trimmed cors origins, got %v", cfg.Server.CORSOrigins)
	}
	if cfg.Offset().Seconds() != 5 {
		t.Fatalf("unexpected offset: %v", cfg.Offset())
	}
	if cfg.MaxArchiveBytes() != 10*1024*1024 {
		t.Fatalf("unexpected archive limit: %d", cfg.MaxArchiveBytes())
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected lowercased logging config, got %+v", cfg.Logging)
	}
	if cfg.Mail.From != "mashups@example.com" {
		t.Fatalf("unexpected mail sender: %q", cfg.Mail.From)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[mashup]\nbogus = 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"archive above ceiling", func(c *config.Config) { c.Mashup.MaxArchiveMiB = 26 }, "mashup.max_archive_mib"},
		{"negative offset", func(c *config.Config) { c.Mashup.OffsetSeconds = -1 }, "mashup.offset_seconds"},
		{"zero jobs", func(c *config.Config) { c.Server.MaxConcurrentJobs = 0 }, "server.max_concurrent_jobs"},
		{"bad bind", func(c *config.Config) { c.Server.Bind = "localhost" }, "server.bind"},
		{"zero retries", func(c *config.Config) { c.Source.RetryAttempts = 0 }, "source.retry_attempts"},
		{"bitrate", func(c *config.Config) { c.Transcode.BitrateKbps = 150 }, "transcode.bitrate_kbps"},
		{"mail port", func(c *config.Config) { c.Mail.Port = 0 }, "mail.port"},
		{"mail sender", func(c *config.Config) { c.Mail.From = "nobody" }, "mail.from"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"log level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	var sample config.Config
	if err := toml.Unmarshal([]byte(config.SampleConfig()), &sample); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	defaults := config.Default()
	if sample.Mashup != defaults.Mashup {
		t.Fatalf("sample mashup section %+v differs from defaults %+v", sample.Mashup, defaults.Mashup)
	}
	if sample.Source != defaults.Source {
		t.Fatalf("sample source section %+v differs from defaults %+v", sample.Source, defaults.Source)
	}
	if sample.Server.Bind != defaults.Server.Bind || sample.Server.MaxConcurrentJobs != defaults.Server.MaxConcurrentJobs {
		t.Fatalf("sample server section differs from defaults: %+v", sample.Server)
	}
}

func TestCreateSampleWritesLoadableFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample to load, exists=%v err=%v", exists, err)
	}
}

package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains filesystem locations.
type Paths struct {
	WorkspaceRoot string `toml:"workspace_root"`
	LogDir        string `toml:"log_dir"`
}

// Server contains HTTP API settings.
type Server struct {
	Bind                  string   `toml:"bind"`
	APIToken              string   `toml:"api_token"`
	CORSOrigins           []string `toml:"cors_origins"`
	MaxConcurrentJobs     int      `toml:"max_concurrent_jobs"`
	StaleWorkspaceMinutes int      `toml:"stale_workspace_minutes"`
}

// Mashup contains pipeline tuning.
type Mashup struct {
	OffsetSeconds    int `toml:"offset_seconds"`
	SearchFloor      int `toml:"search_floor"`
	SearchMultiplier int `toml:"search_multiplier"`
	MaxArchiveMiB    int `toml:"max_archive_mib"`
}

// Source contains media source (yt-dlp) settings.
type Source struct {
	YtDlpBinary       string `toml:"ytdlp_binary"`
	RetryAttempts     int    `toml:"retry_attempts"`
	RetryDelaySeconds int    `toml:"retry_delay_seconds"`
	Format            string `toml:"format"`
}

// Transcode contains ffmpeg/ffprobe settings.
type Transcode struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	BitrateKbps   int    `toml:"bitrate_kbps"`
}

// Mail contains SMTP delivery settings.
type Mail struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	From           string `toml:"from"`
	TLS            bool   `toml:"tls"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the mashup service.
// It is immutable after Load and may be shared between requests.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Server        Server        `toml:"server"`
	Mashup        Mashup        `toml:"mashup"`
	Source        Source        `toml:"source"`
	Transcode     Transcode     `toml:"transcode"`
	Mail          Mail          `toml:"mail"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(filepath.Join(xdg.ConfigHome, "mashup", "config.toml"))
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and environment fallbacks applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("mashup.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the server writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkspaceRoot, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// MaxArchiveBytes returns the archive size gate in bytes.
func (c *Config) MaxArchiveBytes() int64 {
	return int64(c.Mashup.MaxArchiveMiB) * 1024 * 1024
}

// Offset returns the trim start offset.
func (c *Config) Offset() time.Duration {
	return time.Duration(c.Mashup.OffsetSeconds) * time.Second
}

// RetryDelay returns the fixed delay between media source attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Source.RetryDelaySeconds) * time.Second
}

// StaleWorkspaceAge returns the age after which an abandoned workspace is swept.
func (c *Config) StaleWorkspaceAge() time.Duration {
	return time.Duration(c.Server.StaleWorkspaceMinutes) * time.Minute
}

// MailTimeout returns the SMTP dial and send timeout.
func (c *Config) MailTimeout() time.Duration {
	return time.Duration(c.Mail.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

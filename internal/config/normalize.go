package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeTools()
	c.normalizeMail()
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkspaceRoot) == "" {
		c.Paths.WorkspaceRoot = defaultWorkspaceRoot()
	}
	if c.Paths.WorkspaceRoot, err = expandPath(c.Paths.WorkspaceRoot); err != nil {
		return fmt.Errorf("paths.workspace_root: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	if c.Server.APIToken == "" {
		c.Server.APIToken = strings.TrimSpace(os.Getenv("MASHUP_API_TOKEN"))
	}
	origins := make([]string, 0, len(c.Server.CORSOrigins))
	for _, origin := range c.Server.CORSOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c.Server.CORSOrigins = origins
}

func (c *Config) normalizeTools() {
	c.Source.YtDlpBinary = defaultString(c.Source.YtDlpBinary, defaultYtDlpBinary)
	c.Source.Format = defaultString(c.Source.Format, defaultSourceFormat)
	c.Transcode.FFmpegBinary = defaultString(c.Transcode.FFmpegBinary, defaultFFmpegBinary)
	c.Transcode.FFprobeBinary = defaultString(c.Transcode.FFprobeBinary, defaultFFprobeBinary)
}

func (c *Config) normalizeMail() {
	c.Mail.Host = defaultString(c.Mail.Host, defaultMailHost)
	if c.Mail.Username == "" {
		c.Mail.Username = strings.TrimSpace(os.Getenv("MAIL_USERNAME"))
	}
	if c.Mail.Password == "" {
		c.Mail.Password = os.Getenv("MAIL_PASSWORD")
	}
	if c.Mail.From == "" {
		c.Mail.From = strings.TrimSpace(os.Getenv("MAIL_DEFAULT_SENDER"))
	}
	if c.Mail.From == "" {
		c.Mail.From = c.Mail.Username
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(defaultString(c.Logging.Format, defaultLogFormat))
	c.Logging.Level = strings.ToLower(defaultString(c.Logging.Level, defaultLogLevel))
}

func defaultString(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

package config

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.validateServer,
		c.validateMashup,
		c.validateSource,
		c.validateTranscode,
		c.validateMail,
		c.validateNotifications,
		c.validateLogging,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		return fmt.Errorf("server.bind %q: %w", c.Server.Bind, err)
	}
	if c.Server.MaxConcurrentJobs <= 0 {
		return errors.New("server.max_concurrent_jobs must be positive")
	}
	if c.Server.StaleWorkspaceMinutes <= 0 {
		return errors.New("server.stale_workspace_minutes must be positive")
	}
	return nil
}

func (c *Config) validateMashup() error {
	if c.Mashup.OffsetSeconds < 0 {
		return errors.New("mashup.offset_seconds must be zero or greater")
	}
	if c.Mashup.SearchFloor <= 0 {
		return errors.New("mashup.search_floor must be positive")
	}
	if c.Mashup.SearchMultiplier <= 0 {
		return errors.New("mashup.search_multiplier must be positive")
	}
	if c.Mashup.MaxArchiveMiB <= 0 || c.Mashup.MaxArchiveMiB > MailCeilingMiB {
		return fmt.Errorf("mashup.max_archive_mib must be between 1 and %d", MailCeilingMiB)
	}
	return nil
}

func (c *Config) validateSource() error {
	if c.Source.RetryAttempts <= 0 {
		return errors.New("source.retry_attempts must be positive")
	}
	if c.Source.RetryDelaySeconds < 0 {
		return errors.New("source.retry_delay_seconds must be zero or greater")
	}
	return nil
}

func (c *Config) validateTranscode() error {
	if !slices.Contains(mp3Bitrates, c.Transcode.BitrateKbps) {
		return fmt.Errorf("transcode.bitrate_kbps %d is not an MPEG-1 Layer III bitrate", c.Transcode.BitrateKbps)
	}
	return nil
}

var mp3Bitrates = []int{32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320}

func (c *Config) validateMail() error {
	if c.Mail.Port <= 0 || c.Mail.Port > 65535 {
		return errors.New("mail.port must be between 1 and 65535")
	}
	if c.Mail.TimeoutSeconds <= 0 {
		return errors.New("mail.timeout_seconds must be positive")
	}
	if c.Mail.From != "" && !strings.Contains(c.Mail.From, "@") {
		return fmt.Errorf("mail.from %q is not an email address", c.Mail.From)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn, or error", c.Logging.Level)
	}
	return nil
}

package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	defaultBind                  = "127.0.0.1:5000"
	defaultMaxConcurrentJobs     = 4
	defaultStaleWorkspaceMinutes = 120
	defaultOffsetSeconds         = 20
	defaultSearchFloor           = 50
	defaultSearchMultiplier      = 5
	defaultMaxArchiveMiB         = 24
	// MailCeilingMiB is the transport ceiling the archive gate must stay under.
	MailCeilingMiB = 25

	defaultYtDlpBinary       = "yt-dlp"
	defaultRetryAttempts     = 3
	defaultRetryDelaySeconds = 5
	defaultSourceFormat      = "bestaudio/best"

	defaultFFmpegBinary  = "ffmpeg"
	defaultFFprobeBinary = "ffprobe"
	defaultBitrateKbps   = 192

	defaultMailHost           = "smtp.gmail.com"
	defaultMailPort           = 587
	defaultMailTimeoutSeconds = 60

	defaultNotifyTimeout = 10
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
)

func defaultWorkspaceRoot() string {
	return filepath.Join(xdg.CacheHome, "mashup", "workspaces")
}

func defaultLogDir() string {
	return filepath.Join(xdg.StateHome, "mashup", "logs")
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkspaceRoot: defaultWorkspaceRoot(),
			LogDir:        defaultLogDir(),
		},
		Server: Server{
			Bind:                  defaultBind,
			CORSOrigins:           []string{"*"},
			MaxConcurrentJobs:     defaultMaxConcurrentJobs,
			StaleWorkspaceMinutes: defaultStaleWorkspaceMinutes,
		},
		Mashup: Mashup{
			OffsetSeconds:    defaultOffsetSeconds,
			SearchFloor:      defaultSearchFloor,
			SearchMultiplier: defaultSearchMultiplier,
			MaxArchiveMiB:    defaultMaxArchiveMiB,
		},
		Source: Source{
			YtDlpBinary:       defaultYtDlpBinary,
			RetryAttempts:     defaultRetryAttempts,
			RetryDelaySeconds: defaultRetryDelaySeconds,
			Format:            defaultSourceFormat,
		},
		Transcode: Transcode{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			BitrateKbps:   defaultBitrateKbps,
		},
		Mail: Mail{
			Host:           defaultMailHost,
			Port:           defaultMailPort,
			TLS:            true,
			TimeoutSeconds: defaultMailTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// Package transcode is the boundary to the audio encoder. Clips are always
// produced in one canonical form (constant-bitrate MP3, 44.1 kHz stereo, no
// ID3 or Xing header) so they can be joined byte for byte.
package transcode

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"mashup/internal/services"
)

const stageTranscode = "transcode"

// Canonical clip format. Consumers verify clips against these values.
const (
	SampleRate         = 44100
	Channels           = 2
	DefaultBitrateKbps = 192
)

// Transcoder cuts [offset, offset+duration) out of input into output.
type Transcoder interface {
	Extract(ctx context.Context, input string, offset, duration time.Duration, output string) error
}

// FFmpeg implements Transcoder with the ffmpeg CLI.
type FFmpeg struct {
	Binary string
	// BitrateKbps is the constant libmp3lame bitrate. Without a Xing frame a
	// variable bitrate would leave clip durations unknowable from headers.
	BitrateKbps int
}

// NewFFmpeg returns an FFmpeg transcoder. An empty binary means "ffmpeg" and
// a non-positive bitrate means DefaultBitrateKbps.
func NewFFmpeg(binary string, bitrateKbps int) *FFmpeg {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if bitrateKbps <= 0 {
		bitrateKbps = DefaultBitrateKbps
	}
	return &FFmpeg{Binary: binary, BitrateKbps: bitrateKbps}
}

// Args returns the ffmpeg argument list for one extraction.
func (f *FFmpeg) Args(input string, offset, duration time.Duration, output string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-nostdin",
		"-loglevel", "error",
		"-ss", formatSeconds(offset),
		"-t", formatSeconds(duration),
		"-i", input,
		"-vn",
		"-sn",
		"-dn",
		"-map_metadata", "-1",
		"-ac", strconv.Itoa(Channels),
		"-ar", strconv.Itoa(SampleRate),
		"-c:a", "libmp3lame",
		"-b:a", strconv.Itoa(f.BitrateKbps) + "k",
		"-id3v2_version", "0",
		"-write_xing", "0",
		"-f", "mp3",
		output,
	}
}

// Extract runs ffmpeg for one clip.
func (f *FFmpeg) Extract(ctx context.Context, input string, offset, duration time.Duration, output string) error {
	if strings.TrimSpace(input) == "" || strings.TrimSpace(output) == "" {
		return services.Wrap(services.ErrValidation, stageTranscode, "extract", "input and output required", nil)
	}
	if offset < 0 {
		return services.Wrap(services.ErrValidation, stageTranscode, "extract", fmt.Sprintf("negative offset %s", offset), nil)
	}
	if duration <= 0 {
		return services.Wrap(services.ErrValidation, stageTranscode, "extract", fmt.Sprintf("invalid duration %s", duration), nil)
	}

	cmd := exec.CommandContext(ctx, f.Binary, f.Args(input, offset, duration, output)...) //nolint:gosec
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var execErr *exec.Error
		var pathErr *fs.PathError
		if errors.As(err, &execErr) || errors.As(err, &pathErr) {
			return services.Wrap(services.ErrConfiguration, stageTranscode, "extract", "ffmpeg not runnable", err)
		}
		return services.Wrap(services.ErrExternalTool, stageTranscode, "extract",
			fmt.Sprintf("ffmpeg failed: %s", strings.TrimSpace(string(out))), err)
	}
	return nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

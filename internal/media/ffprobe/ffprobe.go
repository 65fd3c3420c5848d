package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"mashup/internal/services"
)

const stageProbe = "probe"

// Result holds the audio-relevant subset of ffprobe's JSON report.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream is one elementary stream of a clip or download.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Format carries container totals.
type Format struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
}

// Args returns the ffprobe argument list used to inspect path.
func Args(path string) []string {
	return []string{
		"-v", "error",
		"-hide_banner",
		"-show_entries", "format=duration,bit_rate:stream=index,codec_name,codec_type,duration,sample_rate,channels",
		"-of", "json",
		"--", path,
	}
}

// Inspect runs ffprobe against path and decodes the report.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, services.Wrap(services.ErrValidation, stageProbe, "inspect", "empty path", nil)
	}

	output, err := exec.CommandContext(ctx, binary, Args(path)...).Output() //nolint:gosec
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{}, services.Wrap(services.ErrExternalTool, stageProbe, "inspect",
				strings.TrimSpace(string(exitErr.Stderr)), err)
		}
		return Result{}, services.Wrap(services.ErrExternalTool, stageProbe, "inspect", "", err)
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, stageProbe, "parse", fmt.Sprintf("%d bytes of output", len(output)), err)
	}
	return result, nil
}

// Prober inspects files with a fixed ffprobe binary.
type Prober struct {
	Binary string
}

// Probe runs Inspect with the configured binary.
func (p Prober) Probe(ctx context.Context, path string) (Result, error) {
	return Inspect(ctx, p.Binary, path)
}

// PrimaryAudio returns the audio stream ffmpeg would pick by default: the
// one with the most channels, earliest index on ties.
func (r Result) PrimaryAudio() (Stream, bool) {
	var best Stream
	found := false
	for _, stream := range r.Streams {
		if !stream.isAudio() {
			continue
		}
		if !found || stream.Channels > best.Channels {
			best = stream
			found = true
		}
	}
	return best, found
}

// DurationSeconds returns the container duration, falling back to the
// longest audio stream. Unparseable values yield NaN; absent values yield 0.
func (r Result) DurationSeconds() float64 {
	if strings.TrimSpace(r.Format.Duration) != "" {
		return parseFloat(r.Format.Duration)
	}
	var longest float64
	for _, stream := range r.Streams {
		if !stream.isAudio() {
			continue
		}
		if d := parseFloat(stream.Duration); !math.IsNaN(d) && d > longest {
			longest = d
		}
	}
	return longest
}

// Duration returns DurationSeconds as a time.Duration, zero when unknown.
func (r Result) Duration() time.Duration {
	secs := r.DurationSeconds()
	if math.IsNaN(secs) || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

// SampleRateHz parses the stream's sample rate; 0 when unknown.
func (s Stream) SampleRateHz() int {
	rate, err := strconv.Atoi(strings.TrimSpace(s.SampleRate))
	if err != nil || rate < 0 {
		return 0
	}
	return rate
}

func (s Stream) isAudio() bool {
	return strings.EqualFold(s.CodecType, "audio")
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}

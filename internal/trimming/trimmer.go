// Package trimming cuts every retrieved asset down to a uniform clip.
package trimming

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mashup/internal/logging"
	"mashup/internal/mashup"
	"mashup/internal/media/ffprobe"
	"mashup/internal/services"
	"mashup/internal/transcode"
)

const stageTrimming = "trimming"

// ShortfallTolerance is how much shorter than requested a clip may be before
// it is treated as a source that ran out of audio.
const ShortfallTolerance = 500 * time.Millisecond

// Prober inspects a produced clip.
type Prober interface {
	Probe(ctx context.Context, path string) (ffprobe.Result, error)
}

// Destination is the part of a workspace clips are written into.
type Destination interface {
	ClipsDir() string
}

// Trimmer produces clips through a Transcoder and verifies them with a Prober.
type Trimmer struct {
	transcoder transcode.Transcoder
	prober     Prober
	logger     *slog.Logger
}

// New constructs a Trimmer. A nil prober skips the duration check and only
// verifies the clip is non-empty.
func New(t transcode.Transcoder, p Prober, logger *slog.Logger) *Trimmer {
	return &Trimmer{transcoder: t, prober: p, logger: logging.NewComponentLogger(logger, "trimmer")}
}

// Trim extracts duration of audio starting at offset from asset. A clip that
// comes out empty, without an audio stream, outside the canonical sample
// layout, or short is removed and reported as an ErrProcessing failure for
// this asset only.
func (t *Trimmer) Trim(ctx context.Context, asset mashup.Asset, dest Destination, offset, duration time.Duration) (mashup.Clip, error) {
	if offset < 0 {
		return mashup.Clip{}, services.Wrap(services.ErrValidation, stageTrimming, "trim", "offset must be zero or greater", nil)
	}
	if duration < mashup.MinDuration*time.Second || duration > mashup.MaxDuration*time.Second {
		return mashup.Clip{}, services.Wrap(services.ErrValidation, stageTrimming, "trim",
			fmt.Sprintf("duration %s outside %ds..%ds", duration, mashup.MinDuration, mashup.MaxDuration), nil)
	}

	out := filepath.Join(dest.ClipsDir(), clipName(asset))
	if err := t.transcoder.Extract(ctx, asset.Path, offset, duration, out); err != nil {
		_ = os.Remove(out)
		return mashup.Clip{}, services.Wrap(services.ErrProcessing, stageTrimming, "extract", asset.Candidate.Title, err)
	}
	if err := t.verify(ctx, out, duration); err != nil {
		_ = os.Remove(out)
		return mashup.Clip{}, err
	}
	return mashup.Clip{
		Ordinal:    asset.Ordinal,
		SearchRank: asset.Candidate.SearchRank,
		Path:       out,
		Title:      asset.Candidate.Title,
	}, nil
}

// TrimAll trims every asset, dropping failures. Survivors keep input order.
func (t *Trimmer) TrimAll(ctx context.Context, assets []mashup.Asset, dest Destination, offset, duration time.Duration) ([]mashup.Clip, error) {
	logger := logging.WithContext(ctx, t.logger)
	clips := make([]mashup.Clip, 0, len(assets))
	for _, asset := range assets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		itemCtx := services.WithOrdinal(ctx, asset.Ordinal)
		itemLogger := logging.WithContext(itemCtx, t.logger)
		clip, err := t.Trim(itemCtx, asset, dest, offset, duration)
		if err != nil {
			logging.WarnWithContext(itemLogger, "clip extraction failed; skipping", "trim_failed",
				logging.String("title", asset.Candidate.Title),
				logging.Error(err),
				logging.String(logging.FieldImpact, "mashup will contain one fewer clip"),
				logging.String(logging.FieldErrorHint, "source may be shorter than offset plus duration"),
			)
			continue
		}
		itemLogger.Debug("clip extracted", logging.String("path", clip.Path))
		clips = append(clips, clip)
	}
	if len(clips) == 0 {
		return nil, services.Wrap(services.ErrProcessing, stageTrimming, "trim_all",
			fmt.Sprintf("no clips produced from %d assets", len(assets)), nil)
	}
	logger.Info("clips extracted", logging.Int("assets", len(assets)), logging.Int("clips", len(clips)))
	return clips, nil
}

func (t *Trimmer) verify(ctx context.Context, path string, want time.Duration) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrProcessing, stageTrimming, "verify", "clip missing", err)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrProcessing, stageTrimming, "verify", "clip is empty", nil)
	}
	if t.prober == nil {
		return nil
	}
	result, err := t.prober.Probe(ctx, path)
	if err != nil {
		return services.Wrap(services.ErrProcessing, stageTrimming, "verify", "clip unreadable", err)
	}
	stream, ok := result.PrimaryAudio()
	if !ok {
		return services.Wrap(services.ErrProcessing, stageTrimming, "verify", "clip has no audio stream", nil)
	}
	if rate := stream.SampleRateHz(); rate != transcode.SampleRate || stream.Channels != transcode.Channels {
		return services.Wrap(services.ErrProcessing, stageTrimming, "verify",
			fmt.Sprintf("clip is %d Hz/%d ch, want %d Hz/%d ch", rate, stream.Channels, transcode.SampleRate, transcode.Channels), nil)
	}
	if got := result.Duration(); got < want-ShortfallTolerance {
		return services.Wrap(services.ErrProcessing, stageTrimming, "verify",
			fmt.Sprintf("clip is %s, wanted %s (source too short)", got.Round(time.Millisecond), want), nil)
	}
	return nil
}

func clipName(asset mashup.Asset) string {
	base := strings.TrimSuffix(filepath.Base(asset.Path), filepath.Ext(asset.Path))
	if base == "" || base == "." {
		base = fmt.Sprintf("%02d", asset.Ordinal)
	}
	return base + ".mp3"
}

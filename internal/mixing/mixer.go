// Package mixing joins trimmed clips into the final mashup file.
//
// Clips are produced in one canonical MP3 form (constant bitrate, 44.1 kHz
// stereo), so mixing is frame-level concatenation: any ID3 tags are stripped
// from each clip and the remaining frame data is appended in ordinal order.
// The result stays constant bitrate, so players derive its length from the
// file size. It is then tagged once.
package mixing

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/bogem/id3v2/v2"

	"mashup/internal/logging"
	"mashup/internal/mashup"
	"mashup/internal/services"
)

const stageMixing = "mixing"

// Tags describes the ID3 metadata written to the artifact.
type Tags struct {
	Title   string
	Artist  string
	Sources []string
}

// Mixer concatenates clips.
type Mixer struct {
	logger *slog.Logger
}

// New constructs a Mixer.
func New(logger *slog.Logger) *Mixer {
	return &Mixer{logger: logging.NewComponentLogger(logger, "mixer")}
}

// Order returns a copy of clips sorted by ordinal, ties by search rank.
func Order(clips []mashup.Clip) []mashup.Clip {
	ordered := slices.Clone(clips)
	slices.SortStableFunc(ordered, func(a, b mashup.Clip) int {
		if c := cmp.Compare(a.Ordinal, b.Ordinal); c != 0 {
			return c
		}
		return cmp.Compare(a.SearchRank, b.SearchRank)
	})
	return ordered
}

// Mix writes the ordered clips to dest. Clips that cannot be loaded are
// skipped; if none load, dest is removed and an ErrProcessing error returned.
func (m *Mixer) Mix(ctx context.Context, clips []mashup.Clip, dest string, tags Tags) (mashup.Artifact, error) {
	logger := logging.WithContext(ctx, m.logger)
	if len(clips) == 0 {
		return mashup.Artifact{}, services.Wrap(services.ErrProcessing, stageMixing, "mix", "no clips to mix", nil)
	}

	loaded, err := m.concatenate(ctx, logger, Order(clips), dest)
	if err != nil {
		_ = os.Remove(dest)
		return mashup.Artifact{}, err
	}
	if len(loaded) == 0 {
		_ = os.Remove(dest)
		return mashup.Artifact{}, services.Wrap(services.ErrProcessing, stageMixing, "mix",
			fmt.Sprintf("none of %d clips could be loaded", len(clips)), nil)
	}

	if tags.Sources == nil {
		for _, clip := range loaded {
			if clip.Title != "" {
				tags.Sources = append(tags.Sources, clip.Title)
			}
		}
	}
	if err := writeTags(dest, tags); err != nil {
		logging.WarnWithContext(logger, "failed to tag mashup", "tag_failed",
			logging.String("path", dest),
			logging.Error(err),
			logging.String(logging.FieldImpact, "mashup has no title metadata"),
		)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return mashup.Artifact{}, services.Wrap(services.ErrProcessing, stageMixing, "stat", "artifact missing", err)
	}
	logger.Info("mashup mixed",
		logging.Int("clips", len(clips)),
		logging.Int("loaded", len(loaded)),
		logging.Int64("bytes", info.Size()),
	)
	return mashup.Artifact{Path: dest, Size: info.Size()}, nil
}

func (m *Mixer) concatenate(ctx context.Context, logger *slog.Logger, ordered []mashup.Clip, dest string) (loaded []mashup.Clip, err error) {
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, services.Wrap(services.ErrProcessing, stageMixing, "create", "open output", err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = services.Wrap(services.ErrProcessing, stageMixing, "close", "flush output", closeErr)
		}
	}()

	for _, clip := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := appendClip(out, clip.Path); err != nil {
			var writeErr *outputError
			if errors.As(err, &writeErr) {
				return nil, services.Wrap(services.ErrProcessing, stageMixing, "write", "write output", writeErr.err)
			}
			logging.WarnWithContext(logger, "clip could not be loaded; skipping", "clip_load_failed",
				logging.Int("ordinal", clip.Ordinal),
				logging.String("path", clip.Path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "mashup will contain one fewer clip"),
			)
			continue
		}
		loaded = append(loaded, clip)
	}
	return loaded, nil
}

// outputError marks failures writing the destination, which abort the mix.
type outputError struct{ err error }

func (e *outputError) Error() string { return e.err.Error() }

func appendClip(out io.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	start, end, err := audioSpan(in, info.Size())
	if err != nil {
		return err
	}
	if _, err := io.Copy(writerOnly{out}, io.NewSectionReader(in, start, end-start)); err != nil {
		var werr *outputError
		if errors.As(err, &werr) {
			return werr
		}
		return err
	}
	return nil
}

// writerOnly tags write failures so they can be told apart from read failures.
type writerOnly struct{ w io.Writer }

func (w writerOnly) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	if err != nil {
		return n, &outputError{err: err}
	}
	return n, nil
}

func writeTags(path string, tags Tags) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: false})
	if err != nil {
		return err
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	if tags.Title != "" {
		tag.SetTitle(tags.Title)
	}
	if tags.Artist != "" {
		tag.SetArtist(tags.Artist)
	}
	if len(tags.Sources) > 0 {
		tag.AddCommentFrame(id3v2.CommentFrame{
			Encoding:    id3v2.EncodingUTF8,
			Language:    "eng",
			Description: "sources",
			Text:        strings.Join(tags.Sources, "\n"),
		})
	}
	return tag.Save()
}

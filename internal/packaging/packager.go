// Package packaging wraps the mashup in a single-entry zip archive and
// enforces the mail size ceiling on the result.
package packaging

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"mashup/internal/logging"
	"mashup/internal/mashup"
	"mashup/internal/services"
)

const (
	stagePackaging = "packaging"
	bytesPerMiB    = 1024 * 1024

	// DefaultLimit keeps archives under a 25 MiB transport ceiling with margin.
	DefaultLimit int64 = 24 * bytesPerMiB
)

// Packager writes archives.
type Packager struct {
	logger *slog.Logger
}

// New constructs a Packager.
func New(logger *slog.Logger) *Packager {
	return &Packager{logger: logging.NewComponentLogger(logger, "packager")}
}

// Package zips artifact into dest. The archive holds one deflated entry
// named after the artifact's base name only.
func (p *Packager) Package(ctx context.Context, artifact mashup.Artifact, dest string) (pkg mashup.Package, err error) {
	in, err := os.Open(artifact.Path)
	if err != nil {
		return mashup.Package{}, services.Wrap(services.ErrProcessing, stagePackaging, "open", "artifact unreadable", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return mashup.Package{}, services.Wrap(services.ErrProcessing, stagePackaging, "stat", "artifact unreadable", err)
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return mashup.Package{}, services.Wrap(services.ErrProcessing, stagePackaging, "create", "open archive", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(dest)
		}
	}()

	if err := writeArchive(out, in, info); err != nil {
		_ = out.Close()
		return mashup.Package{}, services.Wrap(services.ErrProcessing, stagePackaging, "write", "write archive", err)
	}
	if err := out.Close(); err != nil {
		return mashup.Package{}, services.Wrap(services.ErrProcessing, stagePackaging, "close", "flush archive", err)
	}

	stat, err := os.Stat(dest)
	if err != nil {
		return mashup.Package{}, services.Wrap(services.ErrProcessing, stagePackaging, "stat", "archive missing", err)
	}
	logging.WithContext(ctx, p.logger).Info("archive written",
		logging.String("path", dest),
		logging.Int64("artifact_bytes", info.Size()),
		logging.Int64("archive_bytes", stat.Size()),
	)
	return mashup.Package{Path: dest, Size: stat.Size()}, nil
}

func writeArchive(w io.Writer, in io.Reader, info os.FileInfo) error {
	zw := zip.NewWriter(w)
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.Base(info.Name())
	header.Method = zip.Deflate
	entry, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(entry, in); err != nil {
		return err
	}
	return zw.Close()
}

// SizeMiB reports size in MiB.
func SizeMiB(size int64) float64 {
	return float64(size) / bytesPerMiB
}

// OversizeMessage is the requester-facing rejection text.
func OversizeMessage(size int64) string {
	return fmt.Sprintf("Generated file is too large (%.2fMB). Email limit is 25MB. Try fewer videos or shorter duration.", SizeMiB(size))
}

// CheckSize rejects packages larger than limit. A non-positive limit uses
// DefaultLimit. Rejection is final; nothing is re-encoded.
func CheckSize(pkg mashup.Package, limit int64) error {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if pkg.Size > limit {
		return services.Wrap(services.ErrSizeLimit, stagePackaging, "check_size", OversizeMessage(pkg.Size), nil)
	}
	return nil
}

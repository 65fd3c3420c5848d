package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyResult describes a completed verified copy.
type CopyResult struct {
	Path   string
	Size   int64
	SHA256 string
}

// CopyFileVerified copies src to dst through a temporary sibling file,
// re-reads the copy to confirm size and SHA-256 match the source, and only
// then renames it into place. dst is never left partially written.
func CopyFileVerified(src, dst string) (CopyResult, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return CopyResult{}, fmt.Errorf("stat source: %w", err)
	}
	if !srcInfo.Mode().IsRegular() {
		return CopyResult{}, fmt.Errorf("copy source %s is not a regular file", src)
	}

	in, err := os.Open(src)
	if err != nil {
		return CopyResult{}, err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.part")
	if err != nil {
		return CopyResult{}, fmt.Errorf("create temp copy: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	srcHasher := sha256.New()
	written, err := io.Copy(tmp, io.TeeReader(in, srcHasher))
	if err != nil {
		return CopyResult{}, err
	}
	if err := tmp.Close(); err != nil {
		return CopyResult{}, err
	}
	if written != srcInfo.Size() {
		return CopyResult{}, fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}

	want := hex.EncodeToString(srcHasher.Sum(nil))
	got, err := HashFile(tmpPath)
	if err != nil {
		return CopyResult{}, err
	}
	if got != want {
		return CopyResult{}, fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return CopyResult{}, err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return CopyResult{}, fmt.Errorf("commit copy: %w", err)
	}
	committed = true
	return CopyResult{Path: dst, Size: written, SHA256: want}, nil
}

// HashFile returns the hex-encoded SHA-256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

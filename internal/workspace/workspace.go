// Package workspace owns the per-request scratch directory. Every file a
// pipeline run creates lives under one Workspace, and the whole tree is
// removed when the run ends.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	// DirPrefix marks directories created by New; the stale sweep only
	// touches names carrying it.
	DirPrefix = "req-"

	downloadsDir = "downloads"
	clipsDir     = "clips"

	MashupFileName  = "merged_audio.mp3"
	ArchiveFileName = "merged_audio.zip"
)

// Workspace is an exclusively owned directory scoped to one request.
type Workspace struct {
	id   string
	root string

	mu      sync.Mutex
	cleaned bool
}

// New creates a uniquely named workspace under root. A relative root is
// resolved against the working directory so every path the workspace hands
// out is absolute.
func New(root string) (*Workspace, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("workspace root is empty")
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}

	id := uuid.NewString()
	dir := filepath.Join(root, DirPrefix+id)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	ws := &Workspace{id: id, root: dir}
	for _, sub := range []string{downloadsDir, clipsDir} {
		if err := os.Mkdir(filepath.Join(dir, sub), 0o700); err != nil {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("create workspace %s dir: %w", sub, err)
		}
	}
	return ws, nil
}

// ID returns the unique identifier embedded in the directory name.
func (w *Workspace) ID() string { return w.id }

// Root returns the workspace directory.
func (w *Workspace) Root() string { return w.root }

// DownloadsDir holds raw fetched media.
func (w *Workspace) DownloadsDir() string { return filepath.Join(w.root, downloadsDir) }

// ClipsDir holds trimmed clips.
func (w *Workspace) ClipsDir() string { return filepath.Join(w.root, clipsDir) }

// MashupPath is the concatenated artifact location.
func (w *Workspace) MashupPath() string { return filepath.Join(w.root, MashupFileName) }

// ArchivePath is the packaged archive location.
func (w *Workspace) ArchivePath() string { return filepath.Join(w.root, ArchiveFileName) }

// Contains reports whether path resolves to a location inside the workspace.
func (w *Workspace) Contains(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	} else if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		abs = filepath.Join(dir, filepath.Base(abs))
	}
	root := w.root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Cleanup removes the workspace recursively. It is safe to call repeatedly.
func (w *Workspace) Cleanup() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cleaned {
		return nil
	}
	if err := os.RemoveAll(w.root); err != nil {
		return fmt.Errorf("remove workspace %s: %w", w.root, err)
	}
	w.cleaned = true
	return nil
}

package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mashup/internal/logging"
)

func TestNewCreatesLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "workspaces")
	ws, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(ws.Root()), DirPrefix) {
		t.Fatalf("unexpected workspace name %q", ws.Root())
	}
	for _, dir := range []string{ws.DownloadsDir(), ws.ClipsDir()} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
	if filepath.Base(ws.MashupPath()) != MashupFileName || filepath.Base(ws.ArchivePath()) != ArchiveFileName {
		t.Fatalf("unexpected artifact names %s %s", ws.MashupPath(), ws.ArchivePath())
	}
}

func TestWorkspacesAreUnique(t *testing.T) {
	root := t.TempDir()
	a, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	if a.Root() == b.Root() || a.ID() == b.ID() {
		t.Fatal("expected distinct workspaces")
	}
}

func TestContains(t *testing.T) {
	root := t.TempDir()
	ws, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(ws.DownloadsDir(), "01-song.webm"), true},
		{ws.Root(), true},
		{filepath.Join(ws.Root(), "..", "other"), false},
		{filepath.Join(root, "elsewhere.mp3"), false},
		{"/etc/passwd", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ws.Contains(tt.path); got != tt.want {
			t.Fatalf("Contains(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestRelativeRootContainsOwnFiles(t *testing.T) {
	base := t.TempDir()
	t.Chdir(base)

	ws, err := New("work")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !filepath.IsAbs(ws.Root()) {
		t.Fatalf("expected absolute workspace root, got %q", ws.Root())
	}
	download := filepath.Join(ws.DownloadsDir(), "00-a.webm")
	if err := os.WriteFile(download, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !ws.Contains(download) {
		t.Fatalf("workspace should contain its own download %q", download)
	}
	rel, err := filepath.Rel(base, download)
	if err != nil {
		t.Fatal(err)
	}
	if !ws.Contains(rel) {
		t.Fatalf("workspace should contain relative path %q", rel)
	}
	if err := ws.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(ws.Root()); !os.IsNotExist(err) {
		t.Fatalf("expected workspace removed, stat err=%v", err)
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	ws, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(ws.ClipsDir(), "01.mp3"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ws.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(ws.Root()); !os.IsNotExist(err) {
		t.Fatalf("expected workspace removed, stat err=%v", err)
	}
	if err := ws.Cleanup(); err != nil {
		t.Fatalf("second Cleanup: %v", err)
	}
}

func TestCleanStaleRemovesOnlyOldWorkspaces(t *testing.T) {
	root := t.TempDir()
	old, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	fresh, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	foreign := filepath.Join(root, "keep-me")
	if err := os.Mkdir(foreign, 0o755); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-3 * time.Hour)
	for _, dir := range []string{old.Root(), foreign} {
		if err := os.Chtimes(dir, past, past); err != nil {
			t.Fatal(err)
		}
	}

	result := CleanStale(context.Background(), root, time.Hour, logging.NewNop())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != old.Root() {
		t.Fatalf("expected only old workspace removed, got %v", result.Removed)
	}
	if _, err := os.Stat(fresh.Root()); err != nil {
		t.Fatalf("fresh workspace should remain: %v", err)
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Fatalf("foreign directory should remain: %v", err)
	}
}

func TestCleanStaleInvalidRoots(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, nil)
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for root %q", dir)
		}
	}
}

func TestList(t *testing.T) {
	root := t.TempDir()
	ws, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(ws.DownloadsDir(), "a"), make([]byte, 10), 0o644); err != nil {
		t.Fatal(err)
	}
	dirs, err := List(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(dirs) != 1 || dirs[0].Path != ws.Root() || dirs[0].Size != 10 {
		t.Fatalf("unexpected listing: %+v", dirs)
	}
}

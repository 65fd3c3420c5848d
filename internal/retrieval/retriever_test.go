package retrieval

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"mashup/internal/logging"
	"mashup/internal/mashup"
	"mashup/internal/services"
	"mashup/internal/testsupport"
	"mashup/internal/workspace"
)

type fakeSource struct {
	fail   map[string]bool
	escape map[string]bool
	bases  []string
}

func (f *fakeSource) Search(context.Context, string, int) ([]mashup.Candidate, error) {
	return nil, errors.New("not used")
}

func (f *fakeSource) Fetch(_ context.Context, locator, destDir, baseName string) (string, error) {
	f.bases = append(f.bases, baseName)
	if f.fail[locator] {
		return "", services.Wrap(services.ErrSourceUnavailable, "source", "fetch", "unavailable", nil)
	}
	if f.escape[locator] {
		return "/tmp/elsewhere.webm", nil
	}
	return filepath.Join(destDir, baseName+".webm"), nil
}

func newWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ws.Cleanup() })
	return ws
}

func candidates(locators ...string) []mashup.Candidate {
	out := make([]mashup.Candidate, len(locators))
	for i, loc := range locators {
		out[i] = mashup.Candidate{Title: "Song " + loc, Locator: loc, SearchRank: i}
	}
	return out
}

func TestRetrieveIsolatesFailures(t *testing.T) {
	ws := newWorkspace(t)
	src := &fakeSource{fail: map[string]bool{"b": true}}
	r := New(src, logging.NewNop())

	assets, err := r.Retrieve(context.Background(), candidates("a", "b", "c"), ws)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("expected 2 assets, got %d", len(assets))
	}
	if assets[0].Candidate.Locator != "a" || assets[1].Candidate.Locator != "c" {
		t.Fatalf("unexpected order: %s, %s", assets[0].Candidate.Locator, assets[1].Candidate.Locator)
	}
	if assets[0].Ordinal != 0 || assets[1].Ordinal != 2 {
		t.Fatalf("ordinals must come from selection: %d, %d", assets[0].Ordinal, assets[1].Ordinal)
	}
	if len(src.bases) != 3 || src.bases[0] != "00-Song a" {
		t.Fatalf("unexpected base names: %v", src.bases)
	}
}

func TestRetrieveFailsWhenNothingFetched(t *testing.T) {
	ws := newWorkspace(t)
	src := &fakeSource{fail: map[string]bool{"a": true, "b": true}}
	_, err := New(src, nil).Retrieve(context.Background(), candidates("a", "b"), ws)
	if !errors.Is(err, services.ErrSourceUnavailable) {
		t.Fatalf("expected source unavailable, got %v", err)
	}
}

func TestRetrieveRejectsPathsOutsideWorkspace(t *testing.T) {
	ws := newWorkspace(t)
	src := &fakeSource{escape: map[string]bool{"a": true}}
	assets, err := New(src, nil).Retrieve(context.Background(), candidates("a", "b"), ws)
	if err != nil {
		t.Fatal(err)
	}
	if len(assets) != 1 || assets[0].Candidate.Locator != "b" {
		t.Fatalf("expected only in-workspace asset, got %+v", assets)
	}
}

func TestRetrieveStopsOnCancellation(t *testing.T) {
	ws := newWorkspace(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(&fakeSource{}, nil).Retrieve(ctx, candidates("a"), ws); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestRetrieveWithSanitizedTitles(t *testing.T) {
	ws := newWorkspace(t)
	src := &fakeSource{}
	cands := []mashup.Candidate{{Title: "AC/DC: Back in Black?", Locator: "x"}}
	assets, err := New(src, nil).Retrieve(context.Background(), cands, ws)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(assets[0].Path) != "00-AC-DC- Back in Black.webm" {
		t.Fatalf("unexpected file name %q", filepath.Base(assets[0].Path))
	}
	testsupport.WriteFile(t, assets[0].Path, 1)
}

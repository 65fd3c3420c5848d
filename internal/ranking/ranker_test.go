package ranking

import (
	"context"
	"errors"
	"testing"

	"mashup/internal/logging"
	"mashup/internal/mashup"
	"mashup/internal/services"
)

type stubSource struct {
	results   []mashup.Candidate
	err       error
	lastLimit int
	lastQuery string
}

func (s *stubSource) Search(_ context.Context, query string, limit int) ([]mashup.Candidate, error) {
	s.lastQuery = query
	s.lastLimit = limit
	return s.results, s.err
}

func (s *stubSource) Fetch(context.Context, string, string, string) (string, error) {
	return "", errors.New("not used")
}

func views(n int64) *int64 { return &n }

func cand(rank int, title, uploader string, v *int64) mashup.Candidate {
	return mashup.Candidate{Title: title, Uploader: uploader, ViewCount: v, Locator: title, SearchRank: rank}
}

func titles(cs []mashup.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Title
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRankFiltersSortsAndTruncates(t *testing.T) {
	src := &stubSource{results: []mashup.Candidate{
		cand(0, "Hello", "Adele", views(500)),
		cand(1, "Adele - Hello (cover)", "Random Fan", views(9000)),
		cand(2, "Skyfall", "AdeleVEVO", views(800)),
		cand(3, "Adele - Rolling in the Deep", "Adele - Topic", nil),
		cand(4, "Someone Like You", "adele", views(800)),
		cand(5, "Adele live", "Official Music Hub", views(100)),
	}}
	r := New(src, 50, 5, logging.NewNop())

	got, err := r.Rank(context.Background(), "Adele", 4)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	want := []string{"Skyfall", "Someone Like You", "Hello", "Adele live"}
	if !equal(titles(got), want) {
		t.Fatalf("got %v, want %v", titles(got), want)
	}
	if src.lastLimit != 50 || src.lastQuery != "Adele" {
		t.Fatalf("unexpected search call limit=%d query=%q", src.lastLimit, src.lastQuery)
	}
}

func TestRankNeverExceedsCount(t *testing.T) {
	var results []mashup.Candidate
	for i := 0; i < 30; i++ {
		results = append(results, cand(i, "Song", "Queen Official", views(int64(i))))
	}
	got, err := New(&stubSource{results: results}, 50, 5, nil).Rank(context.Background(), "queen", 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 7 {
		t.Fatalf("expected 7 results, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Views() < got[i].Views() {
			t.Fatalf("results not sorted descending: %v then %v", got[i-1].Views(), got[i].Views())
		}
	}
}

func TestRankFallsBackToUnfiltered(t *testing.T) {
	src := &stubSource{results: []mashup.Candidate{
		cand(0, "Track A", "uploader one", views(10)),
		cand(1, "Track B", "uploader two", nil),
		cand(2, "Track C", "uploader three", views(30)),
	}}
	got, err := New(src, 50, 5, nil).Rank(context.Background(), "Nobody", 2)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Track C", "Track A"}; !equal(titles(got), want) {
		t.Fatalf("got %v, want %v", titles(got), want)
	}
}

func TestRankTiesKeepSearchOrder(t *testing.T) {
	src := &stubSource{results: []mashup.Candidate{
		cand(0, "first", "Band", nil),
		cand(1, "second", "Band", views(0)),
		cand(2, "third", "Band", nil),
	}}
	got, err := New(src, 50, 5, nil).Rank(context.Background(), "band", 3)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"first", "second", "third"}; !equal(titles(got), want) {
		t.Fatalf("got %v, want %v", titles(got), want)
	}
}

func TestRankEmptySearch(t *testing.T) {
	got, err := New(&stubSource{}, 50, 5, nil).Rank(context.Background(), "x", 3)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result without error, got %v %v", got, err)
	}
}

func TestRankSearchFailure(t *testing.T) {
	src := &stubSource{err: errors.New("network down")}
	_, err := New(src, 50, 5, nil).Rank(context.Background(), "x", 3)
	if !errors.Is(err, services.ErrSourceUnavailable) {
		t.Fatalf("expected source unavailable, got %v", err)
	}
}

func TestRankRejectsCountOutOfRange(t *testing.T) {
	r := New(&stubSource{}, 50, 5, nil)
	for _, n := range []int{0, 21} {
		if _, err := r.Rank(context.Background(), "x", n); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("count %d: expected validation error, got %v", n, err)
		}
	}
}

func TestSearchLimit(t *testing.T) {
	r := New(&stubSource{}, 0, 0, nil)
	tests := map[int]int{1: 50, 10: 50, 11: 55, 20: 100}
	for count, want := range tests {
		if got := r.SearchLimit(count); got != want {
			t.Fatalf("SearchLimit(%d) = %d, want %d", count, got, want)
		}
	}
}

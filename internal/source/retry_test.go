package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"mashup/internal/logging"
	"mashup/internal/mashup"
	"mashup/internal/services"
)

type flakySource struct {
	searchFailures int
	fetchFailures  int
	searchCalls    int
	fetchCalls     int
	failWith       error
}

func (f *flakySource) Search(context.Context, string, int) ([]mashup.Candidate, error) {
	f.searchCalls++
	if f.searchCalls <= f.searchFailures {
		return nil, f.failWith
	}
	return []mashup.Candidate{{Title: "ok", Locator: "loc"}}, nil
}

func (f *flakySource) Fetch(context.Context, string, string, string) (string, error) {
	f.fetchCalls++
	if f.fetchCalls <= f.fetchFailures {
		return "", f.failWith
	}
	return "/tmp/file", nil
}

func instantPolicy(attempts int) services.RetryPolicy {
	return services.RetryPolicy{
		MaxAttempts: attempts,
		Delay:       5 * time.Second,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}
}

func TestWithRetrySearchFailsThenSucceeds(t *testing.T) {
	inner := &flakySource{searchFailures: 2, failWith: services.Wrap(services.ErrSourceUnavailable, "source", "search", "boom", nil)}
	src := WithRetry(inner, instantPolicy(3), logging.NewNop())

	got, err := src.Search(context.Background(), "adele", 50)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if len(got) != 1 || inner.searchCalls != 3 {
		t.Fatalf("expected 3 calls and 1 result, got calls=%d results=%d", inner.searchCalls, len(got))
	}
}

func TestWithRetryFetchGivesUp(t *testing.T) {
	inner := &flakySource{fetchFailures: 10, failWith: services.Wrap(services.ErrSourceUnavailable, "source", "fetch", "boom", nil)}
	src := WithRetry(inner, instantPolicy(3), nil)

	_, err := src.Fetch(context.Background(), "loc", "/tmp", "01-x")
	if !errors.Is(err, services.ErrSourceUnavailable) {
		t.Fatalf("expected source unavailable, got %v", err)
	}
	if inner.fetchCalls != 3 {
		t.Fatalf("expected 3 attempts, got %d", inner.fetchCalls)
	}
}

func TestWithRetryDoesNotRepeatValidation(t *testing.T) {
	inner := &flakySource{searchFailures: 10, failWith: services.Wrap(services.ErrValidation, "source", "search", "empty", nil)}
	src := WithRetry(inner, instantPolicy(3), nil)
	if _, err := src.Search(context.Background(), "", 1); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if inner.searchCalls != 1 {
		t.Fatalf("expected a single attempt, got %d", inner.searchCalls)
	}
}

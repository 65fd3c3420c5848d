package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"mashup/internal/mashup"
	"mashup/internal/services"
)

const stageSource = "source"

// Executor abstracts command execution for testability.
type Executor interface {
	Output(ctx context.Context, binary string, args []string) ([]byte, error)
}

type commandExecutor struct{}

func (commandExecutor) Output(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%w: %s", err, lastLine(msg))
		}
		return out, err
	}
	return out, nil
}

// Option configures the yt-dlp client.
type Option func(*YtDlp)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(y *YtDlp) {
		if exec != nil {
			y.exec = exec
		}
	}
}

// WithFormat overrides the yt-dlp format selector.
func WithFormat(format string) Option {
	return func(y *YtDlp) {
		if f := strings.TrimSpace(format); f != "" {
			y.format = f
		}
	}
}

// WithTimeout bounds every yt-dlp invocation.
func WithTimeout(d time.Duration) Option {
	return func(y *YtDlp) {
		y.timeout = d
	}
}

// YtDlp is a MediaSource backed by the yt-dlp CLI.
type YtDlp struct {
	binary  string
	format  string
	timeout time.Duration
	exec    Executor
}

// NewYtDlp constructs a yt-dlp client.
func NewYtDlp(binary string, opts ...Option) (*YtDlp, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	y := &YtDlp{
		binary:  binary,
		format:  "bestaudio/best",
		timeout: 5 * time.Minute,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(y)
	}
	return y, nil
}

type searchResult struct {
	Entries []searchEntry `json:"entries"`
}

type searchEntry struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Uploader   string `json:"uploader"`
	Channel    string `json:"channel"`
	ViewCount  *int64 `json:"view_count"`
	URL        string `json:"url"`
	WebpageURL string `json:"webpage_url"`
}

func (e searchEntry) locator() string {
	switch {
	case strings.TrimSpace(e.WebpageURL) != "":
		return strings.TrimSpace(e.WebpageURL)
	case strings.TrimSpace(e.URL) != "":
		return strings.TrimSpace(e.URL)
	case strings.TrimSpace(e.ID) != "":
		return "https://www.youtube.com/watch?v=" + strings.TrimSpace(e.ID)
	default:
		return ""
	}
}

// Search runs a flat (metadata-only) ytsearch query.
func (y *YtDlp) Search(ctx context.Context, query string, limit int) ([]mashup.Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, stageSource, "search", "empty query", nil)
	}
	if limit <= 0 {
		return nil, services.Wrap(services.ErrValidation, stageSource, "search", fmt.Sprintf("invalid limit %d", limit), nil)
	}

	ctx, cancel := y.withTimeout(ctx)
	defer cancel()

	args := []string{
		"--flat-playlist",
		"--dump-single-json",
		"--no-warnings",
		"--ignore-config",
		fmt.Sprintf("ytsearch%d:%s", limit, query),
	}
	out, err := y.exec.Output(ctx, y.binary, args)
	if err != nil {
		return nil, y.wrapRunError(ctx, "search", err)
	}

	var result searchResult
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, services.Wrap(services.ErrSourceUnavailable, stageSource, "search", "decode search results", err)
	}

	candidates := make([]mashup.Candidate, 0, len(result.Entries))
	for i, entry := range result.Entries {
		loc := entry.locator()
		if loc == "" {
			continue
		}
		uploader := strings.TrimSpace(entry.Uploader)
		if uploader == "" {
			uploader = strings.TrimSpace(entry.Channel)
		}
		candidates = append(candidates, mashup.Candidate{
			Title:      strings.TrimSpace(entry.Title),
			Uploader:   uploader,
			ViewCount:  entry.ViewCount,
			Locator:    loc,
			SearchRank: i,
		})
	}
	return candidates, nil
}

// Fetch downloads the best available audio for locator.
func (y *YtDlp) Fetch(ctx context.Context, locator, destDir, baseName string) (string, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return "", services.Wrap(services.ErrValidation, stageSource, "fetch", "empty locator", nil)
	}
	if strings.TrimSpace(destDir) == "" || strings.TrimSpace(baseName) == "" {
		return "", services.Wrap(services.ErrValidation, stageSource, "fetch", "destination required", nil)
	}

	ctx, cancel := y.withTimeout(ctx)
	defer cancel()

	template := filepath.Join(destDir, baseName+".%(ext)s")
	args := []string{
		"-f", y.format,
		"--no-playlist",
		"--no-progress",
		"--no-warnings",
		"--ignore-config",
		"--no-part",
		"-o", template,
		"--print", "after_move:filepath",
		"--", locator,
	}
	out, err := y.exec.Output(ctx, y.binary, args)
	if err != nil {
		return "", y.wrapRunError(ctx, "fetch", err)
	}

	path := lastLine(string(out))
	if path == "" {
		path = findDownloaded(destDir, baseName)
	}
	if path == "" {
		return "", services.Wrap(services.ErrSourceUnavailable, stageSource, "fetch", "yt-dlp reported no output file", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", services.Wrap(services.ErrSourceUnavailable, stageSource, "fetch", "downloaded file missing", err)
	}
	if info.Size() == 0 {
		return "", services.Wrap(services.ErrSourceUnavailable, stageSource, "fetch", "downloaded file is empty", nil)
	}
	return path, nil
}

func (y *YtDlp) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if y.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, y.timeout)
}

func (y *YtDlp) wrapRunError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, stageSource, op, "yt-dlp timed out", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var execErr *exec.Error
	var pathErr *fs.PathError
	if errors.As(err, &execErr) || errors.As(err, &pathErr) {
		return services.Wrap(services.ErrConfiguration, stageSource, op, "yt-dlp not runnable", err)
	}
	return services.Wrap(services.ErrSourceUnavailable, stageSource, op, "yt-dlp failed", err)
}

func findDownloaded(dir, baseName string) string {
	matches, err := filepath.Glob(filepath.Join(dir, globEscape(baseName)+".*"))
	if err != nil {
		return ""
	}
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
			return m
		}
	}
	return ""
}

func globEscape(s string) string {
	r := strings.NewReplacer("*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)
	return r.Replace(s)
}

func lastLine(s string) string {
	var last string
	scanner := bufio.NewScanner(strings.NewReader(s))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			last = line
		}
	}
	return last
}

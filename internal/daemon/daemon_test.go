package daemon_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"mashup/internal/config"
	"mashup/internal/daemon"
	"mashup/internal/logging"
	"mashup/internal/mashup"
	"mashup/internal/pipeline"
	"mashup/internal/testsupport"
)

type okRunner struct{}

func (okRunner) Run(context.Context, mashup.Request) (pipeline.Result, error) {
	return pipeline.Result{Message: pipeline.MsgSuccess}, nil
}

func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()
	return port
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Mail.Host = "127.0.0.1"
	cfg.Mail.Port = closedPort(t)
	return cfg
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testConfig(t)
	d, err := daemon.New(cfg, okRunner{}, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.StartedAt.IsZero() {
		t.Fatal("expected start time")
	}

	resp, err := http.Get("http://" + d.Addr() + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from index, got %d", resp.StatusCode)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	time.Sleep(50 * time.Millisecond)
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
	if d.Addr() != "" {
		t.Fatalf("expected no address after stop, got %q", d.Addr())
	}
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	cfg := testConfig(t)
	first, err := daemon.New(cfg, okRunner{}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first start: %v", err)
	}
	t.Cleanup(first.Stop)

	second, err := daemon.New(cfg, okRunner{}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected lock contention error")
	}
}

func TestDaemonStartSweepsStaleWorkspaces(t *testing.T) {
	cfg := testConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(cfg.Paths.WorkspaceRoot, "req-stale")
	fresh := filepath.Join(cfg.Paths.WorkspaceRoot, "req-fresh")
	other := filepath.Join(cfg.Paths.WorkspaceRoot, "keep-me")
	for _, dir := range []string{stale, fresh, other} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	old := time.Now().Add(-3 * time.Hour)
	for _, dir := range []string{stale, other} {
		if err := os.Chtimes(dir, old, old); err != nil {
			t.Fatal(err)
		}
	}

	d, err := daemon.New(cfg, okRunner{}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale workspace should be removed, stat err=%v", err)
	}
	for _, dir := range []string{fresh, other} {
		if _, err := os.Stat(dir); err != nil {
			t.Fatalf("%s should survive: %v", dir, err)
		}
	}
	if got := d.Status(context.Background()).Workspaces; got != 1 {
		t.Fatalf("expected 1 remaining workspace, got %d", got)
	}
}

func TestDaemonStartFailsOnBusyPort(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	cfg := testConfig(t)
	cfg.Server.Bind = "127.0.0.1:" + strconv.Itoa(l.Addr().(*net.TCPAddr).Port)
	d, err := daemon.New(cfg, okRunner{}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Start(context.Background()); err == nil {
		d.Stop()
		t.Fatal("expected listen failure")
	}

	cfg.Server.Bind = "127.0.0.1:0"
	again, err := daemon.New(cfg, okRunner{}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := again.Start(context.Background()); err != nil {
		t.Fatalf("lock should be released after failed start: %v", err)
	}
	again.Stop()
}

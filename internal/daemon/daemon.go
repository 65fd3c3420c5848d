package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"mashup/internal/config"
	"mashup/internal/deps"
	"mashup/internal/logging"
	"mashup/internal/mashup"
	"mashup/internal/notifications"
	"mashup/internal/pipeline"
	"mashup/internal/preflight"
	"mashup/internal/workspace"
)

// LockFileName is created in the workspace root while a server runs.
const LockFileName = ".mashupd.lock"

// Runner executes one mashup request.
type Runner interface {
	Run(ctx context.Context, req mashup.Request) (pipeline.Result, error)
}

// Daemon owns the server lifecycle and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	runner Runner
	api    *apiServer
	jobs   chan struct{}

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	baseCtx   atomic.Pointer[context.Context]
	ctx       context.Context
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	Address       string
	LockFilePath  string
	StartedAt     time.Time
	ActiveJobs    int
	MaxJobs       int
	Completed     int64
	Failed        int64
	Workspaces    int
	Dependencies  []deps.Status
	Preflight     []preflight.Result
	Notifications bool
}

// New constructs a daemon.
func New(cfg *config.Config, runner Runner, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || runner == nil {
		return nil, errors.New("daemon requires config and runner")
	}
	maxJobs := cfg.Server.MaxConcurrentJobs
	if maxJobs <= 0 {
		maxJobs = 1
	}
	lockPath := filepath.Join(cfg.Paths.WorkspaceRoot, LockFileName)
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		runner:   runner,
		jobs:     make(chan struct{}, maxJobs),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the lock, sweeps stale workspaces, runs preflight checks, and
// begins serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another mashup server is already using this workspace root")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	base := d.ctx
	d.baseCtx.Store(&base)
	d.sweep(d.ctx)
	d.logPreflight(d.ctx)

	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.startedAt.Store(time.Now().Unix())
	d.running.Store(true)
	d.logger.Info("mashup server started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.api.address()),
		logging.Int("max_jobs", cap(d.jobs)),
	)
	return nil
}

// Stop stops the API server and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release server lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next start may report the root as busy"),
		)
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("mashup server stopped",
		logging.Int64("completed", d.completed.Load()),
		logging.Int64("failed", d.failed.Load()),
	)
}

// Addr returns the address the API listens on, or "" when stopped.
func (d *Daemon) Addr() string {
	return d.api.address()
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg.Notifications.NtfyTopic == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.Publish(ctx, notifications.EventTestNotification, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		Address:       d.api.address(),
		LockFilePath:  d.lockPath,
		ActiveJobs:    len(d.jobs),
		MaxJobs:       cap(d.jobs),
		Completed:     d.completed.Load(),
		Failed:        d.failed.Load(),
		Dependencies:  preflight.CheckSystemDeps(ctx, d.cfg),
		Preflight:     preflight.RunAll(ctx, d.cfg, preflight.Options{SkipNetwork: true}),
		Notifications: d.cfg.Notifications.NtfyTopic != "",
	}
	if started := d.startedAt.Load(); started > 0 && status.Running {
		status.StartedAt = time.Unix(started, 0)
	}
	if dirs, err := workspace.List(d.cfg.Paths.WorkspaceRoot); err == nil {
		status.Workspaces = len(dirs)
	}
	return status
}

// tryAcquire reserves a pipeline slot without blocking.
func (d *Daemon) tryAcquire() bool {
	select {
	case d.jobs <- struct{}{}:
		return true
	default:
		return false
	}
}

func (d *Daemon) release() {
	<-d.jobs
}

// runContext is the parent context for pipelines. Pipelines outlive a
// disconnected client but stop when the server stops.
func (d *Daemon) runContext() context.Context {
	if ctx := d.baseCtx.Load(); ctx != nil {
		return *ctx
	}
	return context.Background()
}

func (d *Daemon) sweep(ctx context.Context) {
	result := workspace.CleanStale(ctx, d.cfg.Paths.WorkspaceRoot, d.cfg.StaleWorkspaceAge(), d.logger)
	if len(result.Removed) > 0 || len(result.Errors) > 0 {
		d.logger.Info("stale workspace sweep complete",
			logging.Int("removed", len(result.Removed)),
			logging.Int("errors", len(result.Errors)),
		)
	}
}

func (d *Daemon) logPreflight(ctx context.Context) {
	for _, status := range deps.MissingRequired(preflight.CheckSystemDeps(ctx, d.cfg)) {
		logging.WarnWithContext(d.logger, "required binary missing", "dependency_missing",
			logging.String("dependency", status.Name),
			logging.String("command", status.Command),
			logging.String(logging.FieldErrorHint, status.Detail),
			logging.String(logging.FieldImpact, "requests will fail until it is installed"),
		)
	}
	for _, result := range preflight.Failed(preflight.RunAll(ctx, d.cfg, preflight.Options{})) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String(logging.FieldErrorHint, result.Detail),
		)
	}
}

package preflight

import (
	"context"

	"mashup/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options selects optional checks.
type Options struct {
	// SkipNetwork disables checks that open network connections.
	SkipNetwork bool
}

// RunAll executes the filesystem checks and, unless disabled, the mail relay
// reachability check.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Workspace root", cfg.Paths.WorkspaceRoot),
		CheckFreeSpace("Workspace free space", cfg.Paths.WorkspaceRoot, MinWorkspaceFreeBytes),
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if !opts.SkipNetwork {
		results = append(results, CheckSMTP(ctx, cfg.Mail.Host, cfg.Mail.Port))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

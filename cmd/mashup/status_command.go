package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mashup/internal/config"
	"mashup/internal/daemon"
	"mashup/internal/preflight"
	"mashup/internal/workspace"
)

const serverProbeTimeout = 2 * time.Second

type serverState struct {
	Address    string `json:"address"`
	Running    bool   `json:"running"`
	ActiveJobs int    `json:"active_jobs,omitempty"`
	MaxJobs    int    `json:"max_jobs,omitempty"`
	Completed  int64  `json:"completed,omitempty"`
	Failed     int64  `json:"failed,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

type workspaceRow struct {
	Name    string    `json:"name"`
	ModTime time.Time `json:"mod_time"`
	Size    int64     `json:"size"`
}

type statusReport struct {
	Server        serverState               `json:"server"`
	Notifications bool                      `json:"notifications"`
	Dependencies  []daemon.DependencyStatus `json:"dependencies"`
	Preflight     []daemon.CheckResult      `json:"preflight"`
	Workspaces    []workspaceRow            `json:"workspaces"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var checkMail bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show server, dependency, and filesystem status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			report := buildStatusReport(cmd.Context(), cfg, checkMail)
			if asJSON {
				return writeJSON(cmd, report)
			}
			renderStatusReport(cmd, report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")
	cmd.Flags().BoolVar(&checkMail, "check-mail", false, "Also verify the mail relay accepts connections")
	return cmd
}

func buildStatusReport(ctx context.Context, cfg *config.Config, checkMail bool) statusReport {
	local := daemon.NewStatusPayload(daemon.Status{
		Dependencies: preflight.CheckSystemDeps(ctx, cfg),
		Preflight:    preflight.RunAll(ctx, cfg, preflight.Options{SkipNetwork: !checkMail}),
	})
	report := statusReport{
		Server:        probeServer(ctx, cfg),
		Notifications: cfg.Notifications.NtfyTopic != "",
		Dependencies:  local.Dependencies,
		Preflight:     local.Preflight,
	}
	if dirs, err := workspace.List(cfg.Paths.WorkspaceRoot); err == nil {
		for _, dir := range dirs {
			report.Workspaces = append(report.Workspaces, workspaceRow{Name: dir.Name, ModTime: dir.ModTime, Size: dir.Size})
		}
	}
	return report
}

func probeServer(ctx context.Context, cfg *config.Config) serverState {
	address := clientAddress(cfg.Server.Bind)
	state := serverState{Address: address}

	probeCtx, cancel := context.WithTimeout(ctx, serverProbeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, "http://"+address+"/api/status", nil)
	if err != nil {
		state.Detail = err.Error()
		return state
	}
	if token := cfg.Server.APIToken; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		state.Detail = fmt.Sprintf("Not running (%s unreachable)", address)
		return state
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		state.Detail = fmt.Sprintf("Server answered %d", resp.StatusCode)
		return state
	}
	var payload daemon.StatusPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		state.Detail = fmt.Sprintf("Unreadable status: %v", err)
		return state
	}
	state.Running = payload.Running
	state.ActiveJobs = payload.ActiveJobs
	state.MaxJobs = payload.MaxJobs
	state.Completed = payload.Completed
	state.Failed = payload.Failed
	return state
}

// clientAddress maps a listen address to one a local client can dial.
func clientAddress(bind string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(bind))
	if err != nil {
		return bind
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

func renderStatusReport(cmd *cobra.Command, report statusReport) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	var lines []string
	lines = append(lines, renderSectionHeader("Server", colorize)...)
	lines = append(lines, serverLine(report.Server, colorize))
	lines = append(lines, renderStatusLine("Notifications", statusInfo, yesNo(report.Notifications), colorize))
	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
	lines = append(lines, dependencyLines(report.Dependencies, colorize)...)
	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Preflight", colorize)...)
	lines = append(lines, preflightLines(report.Preflight, colorize)...)
	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Workspaces", colorize)...)
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}

	if len(report.Workspaces) == 0 {
		fmt.Fprintf(out, "%snone\n", statusIndent)
		return
	}
	fmt.Fprintln(out, renderWorkspaceTable(report.Workspaces, time.Now()))
}

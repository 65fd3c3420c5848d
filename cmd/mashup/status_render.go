package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"mashup/internal/daemon"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func dependencyLines(deps []daemon.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps)+2)
	var missing []string
	for _, dep := range deps {
		if !dep.Available && !dep.Optional {
			missing = append(missing, dep.Name)
		}
	}
	if len(missing) == 0 {
		lines = append(lines, renderStatusLine("Summary", statusOK, fmt.Sprintf("%d of %d available", len(deps), len(deps)), colorize))
	} else {
		lines = append(lines, renderStatusLine("Summary", statusError, fmt.Sprintf("%d required missing", len(missing)), colorize))
	}
	for _, dep := range deps {
		switch {
		case dep.Available:
			detail := fmt.Sprintf("Ready (command: %s)", dep.Command)
			if dep.Version != "" {
				detail = fmt.Sprintf("%s %s", detail, dep.Version)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, detail, colorize))
		case dep.Optional:
			lines = append(lines, renderStatusLine(dep.Name, statusWarn, orDefault(dep.Detail, "not available"), colorize))
		default:
			lines = append(lines, renderStatusLine(dep.Name, statusError, orDefault(dep.Detail, "not available"), colorize))
		}
	}
	if len(missing) > 0 {
		lines = append(lines, fmt.Sprintf("%sMissing dependencies: %s", statusIndent, strings.Join(missing, ", ")))
	}
	return lines
}

func preflightLines(checks []daemon.CheckResult, colorize bool) []string {
	lines := make([]string, 0, len(checks))
	for _, check := range checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
	return lines
}

func serverLine(server serverState, colorize bool) string {
	if !server.Running {
		return renderStatusLine("Server", statusWarn, orDefault(server.Detail, "Not running"), colorize)
	}
	detail := fmt.Sprintf("Running at %s (jobs %d/%d, %d completed, %d failed)",
		server.Address, server.ActiveJobs, server.MaxJobs, server.Completed, server.Failed)
	return renderStatusLine("Server", statusOK, detail, colorize)
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

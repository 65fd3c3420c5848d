package main

import (
	"fmt"
	"log/slog"

	"mashup/internal/config"
	"mashup/internal/daemon"
	"mashup/internal/pipeline"
)

// buildDaemon wires the mail-delivering pipeline into the HTTP daemon.
func buildDaemon(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	runner, err := pipeline.NewFromConfig(cfg, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	return daemon.New(cfg, runner, logger)
}

package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"mashup/internal/daemon"
	"mashup/internal/logging"
	"mashup/internal/pipeline"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			if b := strings.TrimSpace(bind); b != "" {
				cfg.Server.Bind = b
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			runner, err := pipeline.NewFromConfig(cfg, nil, logger)
			if err != nil {
				return fmt.Errorf("build pipeline: %w", err)
			}
			d, err := daemon.New(cfg, runner, logger)
			if err != nil {
				return err
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := d.Start(sigCtx); err != nil {
				return fmt.Errorf("start server: %w", err)
			}
			defer d.Stop()
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", d.Addr())

			<-sigCtx.Done()
			logger.Info("mashup server shutting down")
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override server.bind (host:port)")
	return cmd
}

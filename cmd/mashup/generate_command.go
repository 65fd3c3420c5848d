package main

import (
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"mashup/internal/delivery"
	"mashup/internal/logging"
	"mashup/internal/mashup"
	"mashup/internal/pipeline"
	"mashup/internal/workspace"
)

// exportRecipient stands in for an address when the archive is written to a
// directory instead of mailed.
const exportRecipient = "export@mashup.invalid"

type generateOutput struct {
	RequestID   string   `json:"request_id"`
	Message     string   `json:"message"`
	Clips       int      `json:"clips"`
	ArchiveSize int64    `json:"archive_size"`
	Archive     string   `json:"archive,omitempty"`
	States      []string `json:"states"`
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var (
		singer   string
		count    int
		duration int
		email    string
		output   string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build one mashup in-process and deliver it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			output = strings.TrimSpace(output)
			email = strings.TrimSpace(email)
			if email == "" && output != "" {
				email = exportRecipient
			}

			req := mashup.Request{
				Singer:   strings.TrimSpace(singer),
				Count:    count,
				Duration: duration,
				Email:    email,
			}
			if err := req.Validate(); err != nil {
				var verr *mashup.ValidationError
				if errors.As(err, &verr) {
					return errors.New(verr.Message)
				}
				return err
			}

			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				Writer: cmd.ErrOrStderr(),
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			var sender delivery.Sender
			if output != "" {
				abs, err := filepath.Abs(output)
				if err != nil {
					return fmt.Errorf("resolve output directory: %w", err)
				}
				output = abs
				sender = delivery.NewDirectorySender(output, logger)
			}
			runner, err := pipeline.NewFromConfig(cfg, sender, logger)
			if err != nil {
				return fmt.Errorf("build pipeline: %w", err)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			result, err := runner.Run(runCtx, req)
			if err != nil {
				return errors.New(pipeline.UserMessage(err))
			}

			summary := generateOutput{
				RequestID:   result.RequestID,
				Message:     result.Message,
				Clips:       result.Clips,
				ArchiveSize: result.ArchiveSize,
			}
			for _, state := range result.States {
				summary.States = append(summary.States, string(state))
			}
			if output != "" {
				summary.Archive = filepath.Join(output, workspace.ArchiveFileName)
				summary.Message = fmt.Sprintf("Mashup written to %s", summary.Archive)
			}
			if asJSON {
				return writeJSON(cmd, summary)
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary.Message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&singer, "singer", "s", "", "Performer name")
	cmd.Flags().IntVarP(&count, "count", "n", 0, fmt.Sprintf("Number of tracks (%d-%d)", mashup.MinCount, mashup.MaxCount))
	cmd.Flags().IntVarP(&duration, "duration", "d", mashup.DefaultSeconds, fmt.Sprintf("Seconds per clip (%d-%d)", mashup.MinDuration, mashup.MaxDuration))
	cmd.Flags().StringVarP(&email, "email", "e", "", "Recipient address")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the archive to this directory instead of emailing it")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("singer")
	_ = cmd.MarkFlagRequired("count")
	return cmd
}

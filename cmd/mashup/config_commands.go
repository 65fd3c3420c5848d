package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mashup/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set the [mail] section (or export MAIL_USERNAME, MAIL_PASSWORD, MAIL_DEFAULT_SENDER) before serving requests.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintf(out, "Workspace root: %s\n", cfg.Paths.WorkspaceRoot)
			fmt.Fprintf(out, "Archive limit: %d MiB\n", cfg.Mashup.MaxArchiveMiB)
			fmt.Fprintf(out, "Mail relay: %s (tls: %s, auth: %s)\n",
				net.JoinHostPort(cfg.Mail.Host, strconv.Itoa(cfg.Mail.Port)), yesNo(cfg.Mail.TLS), yesNo(cfg.Mail.Username != ""))
			for _, warning := range configWarnings(cfg) {
				fmt.Fprintf(out, "Warning: %s\n", warning)
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

// configWarnings lists settings that load cleanly but will break delivery or
// expose the server.
func configWarnings(cfg *config.Config) []string {
	var warnings []string
	if cfg.Mail.From == "" {
		warnings = append(warnings, "mail.from is empty; email delivery will fail")
	}
	if cfg.Mail.Username != "" && cfg.Mail.Password == "" {
		warnings = append(warnings, "mail.username is set without mail.password")
	}
	if cfg.Mail.Username != "" && !cfg.Mail.TLS {
		warnings = append(warnings, "SMTP credentials would be sent without TLS")
	}
	if cfg.Server.APIToken == "" && !isLoopbackBind(cfg.Server.Bind) {
		warnings = append(warnings, fmt.Sprintf("server.bind %s is reachable off-host and server.api_token is empty", cfg.Server.Bind))
	}
	return warnings
}

func isLoopbackBind(bind string) bool {
	host, _, err := net.SplitHostPort(strings.TrimSpace(bind))
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

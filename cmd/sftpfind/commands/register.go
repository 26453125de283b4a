package commands

import (
	"sftpfind/cmd/sftpfind/config"
	"sftpfind/internal/logger"

	"github.com/spf13/cobra"
)

var logLevel string

// RegisterCommands attaches the subcommands and the shared configuration
// loading to rootCmd.
func RegisterCommands(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (default from SFTPFIND_LOG_LEVEL)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return &StatusError{Code: ExitConfiguration, Err: err}
		}

		level := cfg.LogLevel
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}

		parsed, err := logger.ParseLevel(level)
		if err != nil {
			return &StatusError{Code: ExitConfiguration, Err: err}
		}
		logger.SetLevel(parsed)

		return nil
	}

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &StatusError{Code: ExitConfiguration, Err: err}
	})

	rootCmd.AddCommand(NewFindCmd())
	rootCmd.AddCommand(NewHistoryCmd())
}

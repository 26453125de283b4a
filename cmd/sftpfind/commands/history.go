package commands

import (
	"errors"
	"fmt"

	"sftpfind/cmd/sftpfind/config"
	"sftpfind/internal/database"
	"sftpfind/internal/history"
	"sftpfind/internal/logger"
	"sftpfind/internal/report"

	"github.com/spf13/cobra"
)

func openHistory() (*history.Repository, func(), error) {
	db, err := database.InitDB(config.Config.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database at %s: %w", config.Config.DatabasePath, err)
	}

	closeFn := func() {
		if err := database.CloseDB(db); err != nil {
			logger.Warn("Failed to close database: %v", err)
		}
	}

	return history.NewRepository(db), closeFn, nil
}

func NewHistoryCmd() *cobra.Command {
	var format string

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded find runs",
		Long:  `Inspect the runs recorded with 'sftpfind find --record' (or SFTPFIND_HISTORY=true). The history database lives at SFTPFIND_DATABASE_PATH, by default ~/.sftpfind/<profile>/history.db.`,
	}

	historyCmd.PersistentFlags().StringVar(&format, "format", string(report.FormatText), "Output format: text or json")

	var limit int

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHistory(cmd, format, func(repository *history.Repository, writer *report.Writer) error {
				runs, err := repository.GetRecent(limit)
				if err != nil {
					return err
				}
				return writer.Runs(runs)
			})
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultLimit, "Maximum number of runs to show")

	showCmd := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show one recorded run with its matched files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, format, func(repository *history.Repository, writer *report.Writer) error {
				run, err := repository.Get(args[0])
				if err != nil {
					if errors.Is(err, history.ErrRunNotFound) {
						return fmt.Errorf("%w: %s", err, args[0])
					}
					return err
				}
				return writer.Run(run)
			})
		},
	}

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every recorded run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHistory(cmd, format, func(repository *history.Repository, _ *report.Writer) error {
				deleted, err := repository.DeleteAll()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "🧹 Removed %d recorded run(s)\n", deleted)
				return nil
			})
		},
	}

	historyCmd.AddCommand(listCmd)
	historyCmd.AddCommand(showCmd)
	historyCmd.AddCommand(purgeCmd)

	return historyCmd
}

func withHistory(cmd *cobra.Command, format string, fn func(*history.Repository, *report.Writer) error) error {
	outputFormat, err := report.ParseFormat(format)
	if err != nil {
		return &StatusError{Code: ExitConfiguration, Err: err}
	}

	repository, closeHistory, err := openHistory()
	if err != nil {
		return &StatusError{Code: ExitFailure, Err: fmt.Errorf("%w: %v", ErrHistoryUnavailable, err)}
	}
	defer closeHistory()

	if err := fn(repository, report.NewWriter(cmd.OutOrStdout(), outputFormat)); err != nil {
		return &StatusError{Code: ExitFailure, Err: err}
	}

	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sftpfind/cmd/sftpfind/commands"
	"sftpfind/cmd/sftpfind/config"
	"sftpfind/internal/logger"
	"sftpfind/version"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sftpfind",
	Short: "Find files on a remote SFTP host",
	Long: `sftpfind opens one authenticated SFTP session (password or DSA/RSA private key), lists a single remote directory and reports the entries whose names match a shell-style pattern.

It never modifies the remote host: every result carries "changed": false.

Quick start:

sftpfind find --target demo@test.example.com:22 --method password /some_path '*.csv'

The password is read from --password, from SFTPFIND_PASSWORD, or prompted for when a terminal is attached.

Configuration is read from the environment (and a .env file in the working directory):

- SFTPFIND_CONNECT_TIMEOUT, SFTPFIND_AUTH_TIMEOUT, SFTPFIND_LIST_TIMEOUT – per phase time limits (10s, 15s, 30s)
- SFTPFIND_MAX_ENTRIES – reject listings larger than this (0 = unbounded)
- SFTPFIND_KNOWN_HOSTS – verify host keys against this known_hosts file
- SFTPFIND_HISTORY, SFTPFIND_DATABASE_PATH, SFTPFIND_PROFILE – local run history
- SFTPFIND_LOG_LEVEL – debug, info, warn or error (logs go to stderr)
`,
	Version:       fmt.Sprintf("%s (commit: %s, date: %s, arch: %s, os: %s, package: %s); db path: %s; profile: %s", version.Version, version.Commit, version.Date, version.Arch, version.OS, version.Package, config.DatabasePath, config.Profile),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	commands.RegisterCommands(rootCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		var statusErr *commands.StatusError
		if !errors.As(err, &statusErr) || !statusErr.Reported {
			rootCmd.PrintErrf("❌ Error: %v\n", logger.Mask(err.Error()))
		}
		os.Exit(commands.ExitCode(err))
	}
}

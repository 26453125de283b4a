package commands

import (
	"fmt"

	"sftpfind/cmd/sftpfind/config"
	"sftpfind/internal/discovery"
	"sftpfind/internal/logger"
	"sftpfind/internal/report"
	"sftpfind/internal/ssh"

	"github.com/spf13/cobra"
)

type findOptions struct {
	host           string
	port           uint
	username       string
	method         string
	password       string
	privateKeyPath string
	privateKeyType string
	passphrase     string
	target         string
	paramsFile     string
	knownHosts     string
	format         string
	record         bool
}

func NewFindCmd() *cobra.Command {
	return newFindCmd(&findOptions{})
}

func newFindCmd(opts *findOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find [PATH PATTERN]",
		Short: "List a remote SFTP directory and report the files matching a pattern",
		Long: `List one directory on a remote SFTP host (no recursion) and report every entry whose name matches a shell-style pattern (*, ?, [seq], [!seq]). Matching is case-sensitive.

The result is printed as a JSON document:

  {"files": ["/some_path/a.csv"], "changed": false, "examined": 3}

Connection settings come from flags, from a params file (--params-file, YAML or JSON, keys: path, pattern, host, port, username, method, password, private_key_path, private_key_type, passphrase) or both; flags win.

Exit status: 0 success, 2 invalid configuration, 3 connection failure, 4 listing failure, 1 anything else.`,
		Example: `  sftpfind find --target demo@sftp.example.com:22 --method password /some_path '*.csv'
  sftpfind find --host sftp.example.com --username demo --method private_key \
    --private-key-path ~/.ssh/id_rsa --private-key-type RSA exports 'ADD_????????_export.csv'
  sftpfind find --params-file nightly.yml --format text`,
		Args: findArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(cmd, args, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.host, "host", "", "IP address or FQDN of the remote SFTP host")
	flags.UintVar(&opts.port, "port", ssh.DefaultPort, "TCP port of the remote SFTP host")
	flags.StringVar(&opts.username, "username", "", "Username for the SFTP connection")
	flags.StringVar(&opts.method, "method", "", "Authentication method: password or private_key")
	flags.StringVar(&opts.password, "password", "", "Password (method password); prompted or read from SFTPFIND_PASSWORD when omitted")
	flags.StringVar(&opts.privateKeyPath, "private-key-path", "", "Path to the private key file (method private_key)")
	flags.StringVar(&opts.privateKeyType, "private-key-type", "", "Private key type: DSA or RSA (method private_key)")
	flags.StringVar(&opts.passphrase, "passphrase", "", "Passphrase of an encrypted private key; prompted when needed")
	flags.StringVar(&opts.target, "target", "", "Shorthand for --username, --host and --port: username@hostname[:port]")
	flags.StringVar(&opts.paramsFile, "params-file", "", "YAML or JSON file with the find parameters")
	flags.StringVar(&opts.knownHosts, "known-hosts", "", "known_hosts file used to verify the host key (default: accept any host key)")
	flags.StringVar(&opts.format, "format", string(report.FormatJSON), "Output format: json or text")
	flags.BoolVar(&opts.record, "record", false, "Store this run in the local history database")

	return cmd
}

func findArgs(_ *cobra.Command, args []string) error {
	if len(args) != 0 && len(args) != 2 {
		return &ssh.ConfigurationError{Field: "arguments", Reason: fmt.Sprintf("must be PATH PATTERN, got %d argument(s)", len(args))}
	}
	return nil
}

func runFind(cmd *cobra.Command, args []string, opts *findOptions) error {
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return &StatusError{Code: ExitConfiguration, Err: err}
	}

	writer := report.NewWriter(cmd.OutOrStdout(), format)

	fail := func(err error) error {
		if writeErr := writer.Failure(err); writeErr != nil {
			logger.Error("%v", writeErr)
			return &StatusError{Code: exitCodeForKind(err), Err: err}
		}
		return &StatusError{Code: exitCodeForKind(err), Err: err, Reported: true}
	}

	creds, criterion, err := buildFindRequest(cmd, args, opts)
	if err != nil {
		return fail(err)
	}

	if err := fillSecrets(cmd, creds); err != nil {
		return fail(err)
	}

	logger.RegisterSecret(creds.Password)
	logger.RegisterSecret(creds.Passphrase)

	cfg := config.Config

	knownHosts := cfg.KnownHostsPath
	if cmd.Flags().Changed("known-hosts") {
		knownHosts = opts.knownHosts
	}

	service := discovery.NewService(
		ssh.NewService(ssh.Options{
			ConnectTimeout: cfg.ConnectTimeout,
			AuthTimeout:    cfg.AuthTimeout,
			KnownHostsPath: knownHosts,
			MaxPacket:      cfg.MaxPacket,
		}),
		discovery.Options{
			ListTimeout: cfg.ListTimeout,
			MaxEntries:  cfg.MaxEntries,
		},
	)

	record := cfg.History
	if cmd.Flags().Changed("record") {
		record = opts.record
	}

	if record {
		repository, closeHistory, err := openHistory()
		if err != nil {
			logger.Warn("%v: %v", ErrHistoryUnavailable, err)
		} else {
			defer closeHistory()
			service.SetRecorder(repository)
		}
	}

	result, err := service.Find(cmd.Context(), creds, criterion)
	if err != nil {
		return fail(err)
	}

	if err := writer.Result(result); err != nil {
		return &StatusError{Code: ExitFailure, Err: err}
	}

	return nil
}

// buildFindRequest merges the params file, --target, explicit flags and
// positional arguments, in that order of precedence.
func buildFindRequest(cmd *cobra.Command, args []string, opts *findOptions) (*ssh.Credentials, discovery.Criterion, error) {
	params := &Params{}

	if opts.paramsFile != "" {
		loaded, err := loadParams(opts.paramsFile)
		if err != nil {
			return nil, discovery.Criterion{}, &ssh.ConfigurationError{Field: "params_file", Reason: err.Error()}
		}
		params = loaded
	}

	if opts.target != "" {
		username, hostname, port, err := parseSSHURL(opts.target)
		if err != nil {
			return nil, discovery.Criterion{}, &ssh.ConfigurationError{Field: "target", Reason: err.Error()}
		}
		params.Username = username
		params.Host = hostname
		params.Port = port
	}

	flags := cmd.Flags()

	if flags.Changed("host") {
		params.Host = opts.host
	}
	if flags.Changed("port") {
		params.Port = opts.port
	}
	if flags.Changed("username") {
		params.Username = opts.username
	}
	if flags.Changed("method") {
		params.Method = opts.method
	}
	if flags.Changed("password") {
		params.Password = opts.password
	}
	if flags.Changed("private-key-path") {
		params.PrivateKeyPath = opts.privateKeyPath
	}
	if flags.Changed("private-key-type") {
		params.PrivateKeyType = opts.privateKeyType
	}
	if flags.Changed("passphrase") {
		params.Passphrase = opts.passphrase
	}

	if len(args) == 2 {
		params.Path = args[0]
		params.Pattern = args[1]
	}

	if params.Port == 0 {
		params.Port = ssh.DefaultPort
	}

	creds := &ssh.Credentials{
		Host:           params.Host,
		Port:           params.Port,
		Username:       params.Username,
		Method:         ssh.AuthMethod(params.Method),
		Password:       params.Password,
		PrivateKeyPath: params.PrivateKeyPath,
		PrivateKeyType: ssh.KeyType(params.PrivateKeyType),
		Passphrase:     params.Passphrase,
	}

	criterion := discovery.Criterion{
		Path:    params.Path,
		Pattern: params.Pattern,
	}

	return creds, criterion, nil
}

// fillSecrets supplies a missing password from SFTPFIND_PASSWORD or the
// terminal, and asks for a passphrase when the key file is encrypted.
func fillSecrets(cmd *cobra.Command, creds *ssh.Credentials) error {
	switch creds.Method {
	case ssh.AuthMethodPassword:
		if creds.Password != "" {
			return nil
		}

		if config.Config.Password != "" {
			creds.Password = config.Config.Password
			return nil
		}

		if !isInteractive() {
			return nil
		}

		password, err := promptSecret("🔒 Enter SSH password: ", cmd.ErrOrStderr())
		if err != nil {
			return &ssh.ConfigurationError{Field: "password", Reason: fmt.Sprintf("could not be read: %v", err)}
		}
		creds.Password = password

	case ssh.AuthMethodPrivateKey:
		if creds.Passphrase != "" || creds.PrivateKeyPath == "" || !isInteractive() {
			return nil
		}

		encrypted, err := ssh.PrivateKeyEncrypted(creds.PrivateKeyPath)
		if err != nil || !encrypted {
			return nil
		}

		passphrase, err := promptSecret("🔒 Enter SSH key passphrase: ", cmd.ErrOrStderr())
		if err != nil {
			return &ssh.ConfigurationError{Field: "passphrase", Reason: fmt.Sprintf("could not be read: %v", err)}
		}
		creds.Passphrase = passphrase
	}

	return nil
}

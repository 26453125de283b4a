package ssh

import (
	"errors"
	"fmt"
)

// Key loading errors
var (
	ErrPrivateKeyNotFound  = errors.New("private key file not found")
	ErrMalformedPrivateKey = errors.New("malformed private key")
	ErrKeyTypeMismatch     = errors.New("private key does not match the declared key type")
	ErrPassphraseRequired  = errors.New("private key is encrypted and no passphrase was provided")
)

// SSH connection errors
var (
	ErrFailedToCreateSSHClient = errors.New("failed to create SSH client")
	ErrAuthenticationFailed    = errors.New("authentication failed")
	ErrSFTPUnavailable         = errors.New("sftp subsystem unavailable")
	ErrTimeout                 = errors.New("timed out")
	ErrSessionClosed           = errors.New("session is closed")
)

// Phase names the establishment or discovery step an error happened in.
type Phase string

const (
	PhaseValidate     Phase = "validate"
	PhaseLoadKey      Phase = "load key"
	PhaseConnect      Phase = "connect"
	PhaseAuthenticate Phase = "authenticate"
	PhaseOpenChannel  Phase = "open sftp channel"
	PhaseList         Phase = "list"
)

// ConnectionError reports a failure to reach, authenticate against or open
// the SFTP channel on the remote host.
type ConnectionError struct {
	Phase Phase
	Err   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect on remote sftp host (%s): %v", e.Phase, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports inconsistent input detected before any network activity.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

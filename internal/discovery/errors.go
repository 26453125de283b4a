package discovery

import (
	"errors"
	"fmt"

	"sftpfind/internal/ssh"
)

var (
	ErrListTimeout      = errors.New("listing timed out")
	ErrListingTooLarge  = errors.New("listing exceeds the configured entry limit")
	ErrFailedToListPath = errors.New("failed to list remote path")
)

// DiscoveryError reports a listing failure on an established session.
type DiscoveryError struct {
	Path string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("failed to find files on remote sftp host (%s %s): %v", ssh.PhaseList, e.Path, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// Kind classifies err into configuration, connection or discovery, along with its phase.
func Kind(err error) (kind string, phase ssh.Phase) {
	var cfgErr *ssh.ConfigurationError
	var connErr *ssh.ConnectionError
	var discErr *DiscoveryError

	switch {
	case errors.As(err, &cfgErr):
		return "configuration", ssh.PhaseValidate
	case errors.As(err, &connErr):
		return "connection", connErr.Phase
	case errors.As(err, &discErr):
		return "discovery", ssh.PhaseList
	}

	return "internal", ""
}

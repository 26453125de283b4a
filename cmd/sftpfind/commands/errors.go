package commands

import (
	"errors"

	"sftpfind/internal/discovery"
)

const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitConfiguration = 2
	ExitConnection    = 3
	ExitDiscovery     = 4
)

var ErrHistoryUnavailable = errors.New("run history is unavailable")

// StatusError carries a process exit code. Reported is set when the failure
// was already written to the output stream.
type StatusError struct {
	Code     int
	Err      error
	Reported bool
}

func (e *StatusError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}

	return exitCodeForKind(err)
}

func exitCodeForKind(err error) int {
	kind, _ := discovery.Kind(err)

	switch kind {
	case "configuration":
		return ExitConfiguration
	case "connection":
		return ExitConnection
	case "discovery":
		return ExitDiscovery
	}

	return ExitFailure
}

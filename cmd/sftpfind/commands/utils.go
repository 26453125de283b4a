package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// readPasswordSecurely reads a secret from the terminal without echoing it.
// Prompts go to errOut so stdout only carries the result document.
func readPasswordSecurely(prompt string, errOut io.Writer) (string, error) {
	fmt.Fprintf(errOut, "%s", prompt)

	bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))

	fmt.Fprintf(errOut, "\n")

	if err != nil {
		return "", err
	}
	return string(bytePassword), nil
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Swapped in tests.
var (
	promptSecret  = readPasswordSecurely
	isInteractive = stdinIsTerminal
)

// parseSSHURL parses an SSH URL in the format username@hostname:port or username@hostname
// Returns username, hostname, port, and any error
func parseSSHURL(sshURL string) (username, hostname string, port uint, err error) {
	// Default port
	port = 22

	// Check if URL contains port
	if strings.Contains(sshURL, ":") {
		parts := strings.Split(sshURL, ":")
		if len(parts) != 2 {
			return "", "", 0, fmt.Errorf("invalid SSH URL format: %s", sshURL)
		}

		// Parse port
		if portStr := parts[1]; portStr != "" {
			parsedPort, err := strconv.ParseUint(portStr, 10, 32)

			if err != nil {
				return "", "", 0, fmt.Errorf("invalid port number: %s", portStr)
			}

			if parsedPort == 0 || parsedPort > 65535 {
				return "", "", 0, fmt.Errorf("port number must be between 1 and 65535")
			}

			port = uint(parsedPort)
		}

		sshURL = parts[0]
	}

	// Parse username@hostname
	if strings.Contains(sshURL, "@") {
		parts := strings.Split(sshURL, "@")
		if len(parts) != 2 {
			return "", "", 0, fmt.Errorf("invalid SSH URL format: %s", sshURL)
		}
		username = parts[0]
		hostname = parts[1]
	} else {
		return "", "", 0, fmt.Errorf("username is required in SSH URL format: username@hostname[:port]")
	}

	if username == "" {
		return "", "", 0, fmt.Errorf("username cannot be empty")
	}
	if hostname == "" {
		return "", "", 0, fmt.Errorf("hostname cannot be empty")
	}

	return username, hostname, port, nil
}

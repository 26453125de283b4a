package discovery

import (
	"context"
	"os"
	"strings"

	"sftpfind/internal/ssh"
)

// Entry is one item of a single-level remote listing.
type Entry struct {
	Name string
}

// Criterion selects the entries of Path whose names match Pattern.
type Criterion struct {
	Path    string
	Pattern string
}

// Validate rejects an empty path and an empty or malformed pattern.
func (c Criterion) Validate() (*Glob, error) {
	if strings.TrimSpace(c.Path) == "" {
		return nil, &ssh.ConfigurationError{Field: "path", Reason: "is required"}
	}
	if c.Pattern == "" {
		return nil, &ssh.ConfigurationError{Field: "pattern", Reason: "is required"}
	}

	glob, err := CompileGlob(c.Pattern)
	if err != nil {
		return nil, &ssh.ConfigurationError{Field: "pattern", Reason: "is not a valid glob: " + err.Error()}
	}

	return glob, nil
}

// Result is the outcome of one discovery run.
type Result struct {
	Files    []string `json:"files"`
	Changed  bool     `json:"changed"`
	Examined int      `json:"examined"`
}

// Lister reads a single-level directory listing.
type Lister interface {
	ReadDir(ctx context.Context, path string) ([]os.FileInfo, error)
}

// Session is a Lister that must be released after use.
type Session interface {
	Lister
	Close() error
}

// ConnectFunc opens a Session for creds.
type ConnectFunc func(ctx context.Context, creds *ssh.Credentials) (Session, error)

// joinRemote appends name to dir with a single "/" and no other normalisation.
func joinRemote(dir, name string) string {
	if dir == "" {
		return name
	}
	if strings.HasSuffix(dir, "/") {
		return dir + name
	}
	return dir + "/" + name
}

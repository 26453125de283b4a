package discovery

import (
	"context"
	"errors"
	"fmt"

	"sftpfind/internal/ssh"
)

// Match lists criterion.Path through lister and keeps the entries whose names
// match criterion.Pattern, in listing order. Every entry is counted as examined.
// A listing failure yields a DiscoveryError and no partial result.
func Match(ctx context.Context, lister Lister, criterion Criterion, maxEntries int) (*Result, error) {
	glob, err := criterion.Validate()
	if err != nil {
		return nil, err
	}

	infos, err := lister.ReadDir(ctx, criterion.Path)
	if err != nil {
		return nil, &DiscoveryError{Path: criterion.Path, Err: listCause(err)}
	}

	if maxEntries > 0 && len(infos) > maxEntries {
		return nil, &DiscoveryError{
			Path: criterion.Path,
			Err:  fmt.Errorf("%w: %d entries, limit %d", ErrListingTooLarge, len(infos), maxEntries),
		}
	}

	result := &Result{Files: []string{}}

	for _, info := range infos {
		entry := Entry{Name: info.Name()}
		result.Examined++

		if glob.Match(entry.Name) {
			result.Files = append(result.Files, joinRemote(criterion.Path, entry.Name))
		}
	}

	return result, nil
}

func listCause(err error) error {
	if errors.Is(err, ssh.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrListTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrFailedToListPath, err)
}

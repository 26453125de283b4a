package discovery

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"sftpfind/internal/ssh"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileInfo is a name-only os.FileInfo.
type fileInfo string

func (f fileInfo) Name() string       { return string(f) }
func (f fileInfo) Size() int64        { return 0 }
func (f fileInfo) Mode() os.FileMode  { return 0o644 }
func (f fileInfo) ModTime() time.Time { return time.Time{} }
func (f fileInfo) IsDir() bool        { return false }
func (f fileInfo) Sys() interface{}   { return nil }

// fakeLister serves a fixed listing and records what was asked.
type fakeLister struct {
	names  []string
	err    error
	calls  []string
	closed int
}

func (l *fakeLister) ReadDir(_ context.Context, path string) ([]os.FileInfo, error) {
	l.calls = append(l.calls, path)
	if l.err != nil {
		return nil, l.err
	}

	infos := make([]os.FileInfo, 0, len(l.names))
	for _, name := range l.names {
		infos = append(infos, fileInfo(name))
	}
	return infos, nil
}

func (l *fakeLister) Close() error {
	l.closed++
	return nil
}

func TestMatch_CaseSensitiveExtension(t *testing.T) {
	lister := &fakeLister{names: []string{"a.csv", "b.txt", "A.CSV"}}

	result, err := Match(context.Background(), lister, Criterion{Path: "/data", Pattern: "*.csv"}, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"/data/a.csv"}, result.Files)
	assert.Equal(t, 3, result.Examined)
	assert.False(t, result.Changed)
}

func TestMatch_QuestionMarksRequireExactLength(t *testing.T) {
	lister := &fakeLister{names: []string{"ADD_20230101_export.csv", "ADD_2023_export.csv"}}

	result, err := Match(context.Background(), lister, Criterion{Path: "exports", Pattern: "ADD_????????_export.csv"}, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"exports/ADD_20230101_export.csv"}, result.Files)
	assert.Equal(t, 2, result.Examined)
}

func TestMatch_PreservesListingOrder(t *testing.T) {
	lister := &fakeLister{names: []string{"z.log", "a.txt", "m.log", "b.log"}}

	result, err := Match(context.Background(), lister, Criterion{Path: ".", Pattern: "*.log"}, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"./z.log", "./m.log", "./b.log"}, result.Files)
	assert.Equal(t, 4, result.Examined)
}

func TestMatch_EmptyListing(t *testing.T) {
	result, err := Match(context.Background(), &fakeLister{}, Criterion{Path: "/empty", Pattern: "*"}, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{}, result.Files)
	assert.Zero(t, result.Examined)
	assert.False(t, result.Changed)
}

func TestMatch_ListingFailureReturnsNoResult(t *testing.T) {
	lister := &fakeLister{err: os.ErrNotExist}

	result, err := Match(context.Background(), lister, Criterion{Path: "/missing", Pattern: "*"}, 0)
	assert.Nil(t, result)

	var discErr *DiscoveryError
	require.ErrorAs(t, err, &discErr)
	assert.Equal(t, "/missing", discErr.Path)
	assert.ErrorIs(t, err, ErrFailedToListPath)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "list")
}

func TestMatch_ListingTimeout(t *testing.T) {
	lister := &fakeLister{err: ssh.ErrTimeout}

	_, err := Match(context.Background(), lister, Criterion{Path: "/slow", Pattern: "*"}, 0)
	assert.ErrorIs(t, err, ErrListTimeout)
}

func TestMatch_EntryLimit(t *testing.T) {
	lister := &fakeLister{names: []string{"a", "b", "c"}}

	_, err := Match(context.Background(), lister, Criterion{Path: "/big", Pattern: "*"}, 2)
	assert.ErrorIs(t, err, ErrListingTooLarge)

	result, err := Match(context.Background(), lister, Criterion{Path: "/big", Pattern: "*"}, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Examined)
}

func TestMatch_InvalidCriterionSkipsListing(t *testing.T) {
	lister := &fakeLister{names: []string{"a"}}

	_, err := Match(context.Background(), lister, Criterion{Path: "/x", Pattern: ""}, 0)

	var cfgErr *ssh.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "pattern", cfgErr.Field)
	assert.Empty(t, lister.calls)
}

func TestMatch_ExaminedAlwaysEqualsListingSize(t *testing.T) {
	names := []string{"a.csv", "b.csv", "c", "d.CSV", ".csv", "e.csv.gz"}

	for _, pattern := range []string{"*", "*.csv", "?", "[ab]*", "nothing"} {
		result, err := Match(context.Background(), &fakeLister{names: names}, Criterion{Path: "/p", Pattern: pattern}, 0)
		require.NoError(t, err)
		assert.Equal(t, len(names), result.Examined, pattern)
	}
}

func TestJoinRemote(t *testing.T) {
	assert.Equal(t, "/data/a", joinRemote("/data", "a"))
	assert.Equal(t, "/data/a", joinRemote("/data/", "a"))
	assert.Equal(t, "./a", joinRemote(".", "a"))
	assert.Equal(t, "a", joinRemote("", "a"))
	assert.Equal(t, "/a", joinRemote("/", "a"))
}

func TestKind(t *testing.T) {
	kind, phase := Kind(&ssh.ConnectionError{Phase: ssh.PhaseAuthenticate, Err: errors.New("denied")})
	assert.Equal(t, "connection", kind)
	assert.Equal(t, ssh.PhaseAuthenticate, phase)

	kind, phase = Kind(&DiscoveryError{Path: "/x", Err: errors.New("gone")})
	assert.Equal(t, "discovery", kind)
	assert.Equal(t, ssh.PhaseList, phase)

	kind, _ = Kind(&ssh.ConfigurationError{Field: "host", Reason: "is required"})
	assert.Equal(t, "configuration", kind)

	kind, _ = Kind(errors.New("boom"))
	assert.Equal(t, "internal", kind)
}

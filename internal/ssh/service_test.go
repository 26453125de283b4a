package ssh

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"sftpfind/internal/sftptest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passwordCreds(server *sftptest.Server, password string) *Credentials {
	return &Credentials{
		Host:     server.Host,
		Port:     server.Port,
		Username: "demo",
		Method:   AuthMethodPassword,
		Password: password,
	}
}

func recordTransitions(service *Service) *[]SessionState {
	var states []SessionState
	service.OnStateChange(func(_, to SessionState) {
		states = append(states, to)
	})
	return &states
}

func testOptions() Options {
	return Options{ConnectTimeout: 2 * time.Second, AuthTimeout: 5 * time.Second}
}

func requireConnectionError(t *testing.T, err error, phase Phase) *ConnectionError {
	t.Helper()

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, phase, connErr.Phase)
	return connErr
}

func TestConnect_PasswordListsDirectory(t *testing.T) {
	server := sftptest.NewServer(t, sftptest.Options{Username: "demo", Password: "secret"})
	dir := sftptest.MakeDir(t, "a.csv", "b.txt")

	service := NewService(testOptions())
	states := recordTransitions(service)

	session, err := service.Connect(context.Background(), passwordCreds(server, "secret"))
	require.NoError(t, err)
	assert.Equal(t, StateReady, session.State())
	assert.Equal(t, []SessionState{StateConnecting, StateAuthenticating, StateReady}, *states)

	entries, err := session.ReadDir(context.Background(), dir)
	require.NoError(t, err)

	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	assert.Equal(t, []string{"a.csv", "b.txt"}, names)

	require.NoError(t, session.Close())
	assert.Equal(t, StateClosed, session.State())
	require.NoError(t, session.Close())

	_, err = session.ReadDir(context.Background(), dir)
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestConnect_PrivateKey(t *testing.T) {
	keyPath, signer := sftptest.WriteRSAKey(t, t.TempDir())
	server := sftptest.NewServer(t, sftptest.Options{Username: "demo", AuthorizedKey: signer.PublicKey()})

	session, err := NewService(testOptions()).Connect(context.Background(), &Credentials{
		Host:           server.Host,
		Port:           server.Port,
		Username:       "demo",
		Method:         AuthMethodPrivateKey,
		PrivateKeyPath: keyPath,
		PrivateKeyType: KeyTypeRSA,
	})
	require.NoError(t, err)
	defer session.Close()

	assert.Len(t, session.Transitions(), 3)
}

func TestConnect_PrivateKeyDSA(t *testing.T) {
	keyPath, signer := sftptest.WriteDSAKey(t, t.TempDir())
	server := sftptest.NewServer(t, sftptest.Options{Username: "demo", AuthorizedKey: signer.PublicKey()})
	dir := sftptest.MakeDir(t, "legacy.dat")

	service := NewService(testOptions())
	states := recordTransitions(service)

	session, err := service.Connect(context.Background(), &Credentials{
		Host:           server.Host,
		Port:           server.Port,
		Username:       "demo",
		Method:         AuthMethodPrivateKey,
		PrivateKeyPath: keyPath,
		PrivateKeyType: KeyTypeDSA,
	})
	require.NoError(t, err)
	defer session.Close()

	assert.Equal(t, []SessionState{StateConnecting, StateAuthenticating, StateReady}, *states)

	entries, err := session.ReadDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "legacy.dat", entries[0].Name())
}

func TestConnect_OversizedMaxPacketNeverDials(t *testing.T) {
	server := sftptest.NewServer(t, sftptest.Options{Username: "demo", Password: "secret"})

	opts := testOptions()
	opts.MaxPacket = 65536
	service := NewService(opts)
	states := recordTransitions(service)

	session, err := service.Connect(context.Background(), passwordCreds(server, "secret"))
	require.Nil(t, session)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "max_packet", cfgErr.Field)
	assert.Equal(t, []SessionState{StateFailed}, *states)
	assert.Zero(t, server.SFTPRequests())
	assert.Zero(t, server.AuthFailures())
}

func TestOptions_Validate(t *testing.T) {
	assert.NoError(t, Options{}.Validate())
	assert.NoError(t, Options{MaxPacket: MaxPacketLimit}.Validate())
	assert.Error(t, Options{MaxPacket: MaxPacketLimit + 1}.Validate())
	assert.Error(t, Options{MaxPacket: -1}.Validate())
}

func TestConnect_WrongPasswordFailsBeforeSFTP(t *testing.T) {
	server := sftptest.NewServer(t, sftptest.Options{Username: "demo", Password: "secret"})

	service := NewService(testOptions())
	states := recordTransitions(service)

	session, err := service.Connect(context.Background(), passwordCreds(server, "wrong"))
	require.Nil(t, session)

	connErr := requireConnectionError(t, err, PhaseAuthenticate)
	assert.ErrorIs(t, connErr, ErrAuthenticationFailed)
	assert.Contains(t, err.Error(), "authenticate")
	assert.Equal(t, []SessionState{StateConnecting, StateAuthenticating, StateFailed}, *states)
	assert.Zero(t, server.SFTPRequests())
	assert.Positive(t, server.AuthFailures())
}

func TestConnect_MissingKeyFileNeverDials(t *testing.T) {
	server := sftptest.NewServer(t, sftptest.Options{Username: "demo", Password: "secret"})

	service := NewService(testOptions())
	states := recordTransitions(service)

	_, err := service.Connect(context.Background(), &Credentials{
		Host:           server.Host,
		Port:           server.Port,
		Username:       "demo",
		Method:         AuthMethodPrivateKey,
		PrivateKeyPath: filepath.Join(t.TempDir(), "missing"),
		PrivateKeyType: KeyTypeRSA,
	})

	connErr := requireConnectionError(t, err, PhaseLoadKey)
	assert.ErrorIs(t, connErr, ErrPrivateKeyNotFound)
	assert.Equal(t, []SessionState{StateFailed}, *states)
}

func TestConnect_InconsistentCredentials(t *testing.T) {
	_, err := NewService(testOptions()).Connect(context.Background(), &Credentials{
		Host:     "127.0.0.1",
		Username: "demo",
		Method:   AuthMethodPrivateKey,
	})

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "private_key_path", cfgErr.Field)
}

func TestConnect_RefusedConnection(t *testing.T) {
	_, err := NewService(testOptions()).Connect(context.Background(), &Credentials{
		Host:     "127.0.0.1",
		Port:     sftptest.ClosedPort(t),
		Username: "demo",
		Method:   AuthMethodPassword,
		Password: "secret",
	})

	connErr := requireConnectionError(t, err, PhaseConnect)
	assert.ErrorIs(t, connErr, ErrFailedToCreateSSHClient)
}

func TestConnect_HandshakeTimeout(t *testing.T) {
	host, port := sftptest.NewStallingListener(t)

	service := NewService(Options{ConnectTimeout: time.Second, AuthTimeout: 200 * time.Millisecond})
	states := recordTransitions(service)

	started := time.Now()
	_, err := service.Connect(context.Background(), &Credentials{
		Host:     host,
		Port:     port,
		Username: "demo",
		Method:   AuthMethodPassword,
		Password: "secret",
	})

	connErr := requireConnectionError(t, err, PhaseAuthenticate)
	assert.ErrorIs(t, connErr, ErrTimeout)
	assert.Less(t, time.Since(started), 5*time.Second)
	assert.Equal(t, StateFailed, (*states)[len(*states)-1])
}

func TestConnect_SFTPSubsystemRejected(t *testing.T) {
	server := sftptest.NewServer(t, sftptest.Options{Username: "demo", Password: "secret", RejectSFTP: true})

	_, err := NewService(testOptions()).Connect(context.Background(), passwordCreds(server, "secret"))

	connErr := requireConnectionError(t, err, PhaseOpenChannel)
	assert.ErrorIs(t, connErr, ErrSFTPUnavailable)
	assert.Equal(t, 1, server.SFTPRequests())
}

func TestConnect_UnknownHostKeyRejected(t *testing.T) {
	server := sftptest.NewServer(t, sftptest.Options{Username: "demo", Password: "secret"})

	knownHosts := filepath.Join(t.TempDir(), "known_hosts")
	require.NoError(t, os.WriteFile(knownHosts, nil, 0o600))

	_, err := NewService(Options{
		ConnectTimeout: 2 * time.Second,
		AuthTimeout:    5 * time.Second,
		KnownHostsPath: knownHosts,
	}).Connect(context.Background(), passwordCreds(server, "secret"))

	requireConnectionError(t, err, PhaseAuthenticate)
	assert.Zero(t, server.SFTPRequests())
}

func TestReadDir_MissingPath(t *testing.T) {
	server := sftptest.NewServer(t, sftptest.Options{Username: "demo", Password: "secret"})

	session, err := NewService(testOptions()).Connect(context.Background(), passwordCreds(server, "secret"))
	require.NoError(t, err)
	defer session.Close()

	_, err = session.ReadDir(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestReadDir_CancelledContextClosesSession(t *testing.T) {
	server := sftptest.NewServer(t, sftptest.Options{Username: "demo", Password: "secret"})
	dir := sftptest.MakeDir(t, "a")

	session, err := NewService(testOptions()).Connect(context.Background(), passwordCreds(server, "secret"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// the listing may win the race against cancellation; either outcome must leave a consistent session
	_, err = session.ReadDir(ctx, dir)
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, StateClosed, session.State())
	}

	session.Close()
}

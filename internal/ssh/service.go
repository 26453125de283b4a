package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"sftpfind/internal/logger"

	"github.com/melbahja/goph"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Service establishes authenticated SFTP sessions.
type Service struct {
	opts      Options
	callbacks []StateCallback
}

func NewService(opts Options) *Service {
	return &Service{opts: opts}
}

// OnStateChange registers a callback fired on every transition of sessions established afterwards.
func (s *Service) OnStateChange(cb StateCallback) {
	s.callbacks = append(s.callbacks, cb)
}

// acquisition holds the resources taken so far, released in reverse order.
type acquisition struct {
	closers []io.Closer
}

func (a *acquisition) hold(c io.Closer) {
	a.closers = append(a.closers, c)
}

func (a *acquisition) release() error {
	var errs []error

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && !isAlreadyClosed(err) {
			errs = append(errs, err)
		}
	}

	a.closers = nil
	return errors.Join(errs...)
}

func isAlreadyClosed(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed)
}

// Connect runs unconnected -> connecting -> authenticating -> ready. On any
// failure the state becomes failed and only the resources acquired up to that
// point are closed before the error is returned.
func (s *Service) Connect(ctx context.Context, creds *Credentials) (session *Session, err error) {
	machine := newStateMachine(s.callbacks)
	acquired := &acquisition{}

	defer func() {
		if err == nil {
			return
		}

		machine.set(StateFailed)

		if releaseErr := acquired.release(); releaseErr != nil {
			logger.Warn("failed to release connection resources: %v", releaseErr)
		}
	}()

	if err := s.opts.Validate(); err != nil {
		return nil, err
	}

	authenticator, err := NewAuthenticator(creds)
	if err != nil {
		return nil, err
	}

	hostKeyCallback, err := buildHostKeyCallback(s.opts.KnownHostsPath)
	if err != nil {
		return nil, &ConfigurationError{Field: "known_hosts", Reason: err.Error()}
	}

	auth, err := authenticator.Auth()
	if err != nil {
		return nil, &ConnectionError{Phase: PhaseLoadKey, Err: err}
	}

	hostPort := net.JoinHostPort(creds.Host, strconv.FormatUint(uint64(creds.port()), 10))

	machine.set(StateConnecting)
	logger.Debug("connecting to %s as %s using %s", logger.Sanitize(hostPort), logger.Sanitize(creds.Username), authenticator.Method())

	dialer := &net.Dialer{Timeout: s.opts.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", hostPort)
	if err != nil {
		return nil, &ConnectionError{Phase: PhaseConnect, Err: wrapCause(ctx, ErrFailedToCreateSSHClient, err, time.Time{})}
	}
	acquired.hold(conn)

	machine.set(StateAuthenticating)

	deadline := s.phaseDeadline(ctx)
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, &ConnectionError{Phase: PhaseAuthenticate, Err: fmt.Errorf("%w: %v", ErrFailedToCreateSSHClient, err)}
	}

	// a cancelled context expires the connection so a blocked handshake returns
	stopAbort := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stopAbort()

	sshConfig := &ssh.ClientConfig{
		User:            creds.Username,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         s.opts.ConnectTimeout,
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, hostPort, sshConfig)
	if err != nil {
		return nil, &ConnectionError{Phase: PhaseAuthenticate, Err: wrapCause(ctx, ErrAuthenticationFailed, err, deadline)}
	}

	client := &goph.Client{Client: ssh.NewClient(sshConn, chans, reqs)}
	acquired.hold(client)

	sftpClient, err := client.NewSftp(s.sftpOptions()...)
	if err != nil {
		return nil, &ConnectionError{Phase: PhaseOpenChannel, Err: wrapCause(ctx, ErrSFTPUnavailable, err, deadline)}
	}
	acquired.hold(sftpClient)

	if !stopAbort() {
		return nil, &ConnectionError{Phase: PhaseOpenChannel, Err: wrapCause(ctx, ErrSFTPUnavailable, ctx.Err(), deadline)}
	}

	if err := conn.SetDeadline(time.Time{}); err != nil {
		return nil, &ConnectionError{Phase: PhaseOpenChannel, Err: fmt.Errorf("%w: %v", ErrFailedToCreateSSHClient, err)}
	}

	machine.set(StateReady)
	logger.Debug("sftp session ready on %s", logger.Sanitize(hostPort))

	return &Session{
		client:   client,
		sftp:     sftpClient,
		machine:  machine,
		acquired: acquired,
	}, nil
}

// phaseDeadline is the earlier of now+AuthTimeout and the context deadline; zero means none.
func (s *Service) phaseDeadline(ctx context.Context) time.Time {
	var deadline time.Time

	if s.opts.AuthTimeout > 0 {
		deadline = time.Now().Add(s.opts.AuthTimeout)
	}

	if ctxDeadline, ok := ctx.Deadline(); ok && (deadline.IsZero() || ctxDeadline.Before(deadline)) {
		deadline = ctxDeadline
	}

	return deadline
}

func (s *Service) sftpOptions() []sftp.ClientOption {
	if s.opts.MaxPacket <= 0 {
		return nil
	}
	return []sftp.ClientOption{sftp.MaxPacket(s.opts.MaxPacket)}
}

// wrapCause attaches ErrTimeout when the phase ran out of time, sentinel otherwise.
func wrapCause(ctx context.Context, sentinel error, err error, deadline time.Time) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ctxErr, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	if !deadline.IsZero() && !time.Now().Before(deadline) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", sentinel, err)
}

// Session is an authenticated SFTP channel owned by one discovery run.
type Session struct {
	client   *goph.Client
	sftp     *sftp.Client
	machine  *stateMachine
	acquired *acquisition

	closeOnce sync.Once
	closeErr  error
	mu        sync.Mutex
}

// ReadDir lists path one level deep. The pending request is abandoned and the
// session closed when ctx is done first.
func (s *Session) ReadDir(ctx context.Context, path string) ([]os.FileInfo, error) {
	if s.State() != StateReady {
		return nil, ErrSessionClosed
	}

	type listing struct {
		entries []os.FileInfo
		err     error
	}

	done := make(chan listing, 1)
	go func() {
		entries, err := s.sftp.ReadDir(path)
		done <- listing{entries: entries, err: err}
	}()

	select {
	case result := <-done:
		return result.entries, result.err
	case <-ctx.Done():
		if err := s.Close(); err != nil {
			logger.Debug("close after abandoned listing: %v", err)
		}
		<-done

		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		}
		return nil, ctx.Err()
	}
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.current
}

// Transitions returns the state history of the session.
func (s *Session) Transitions() []StateTransition {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]StateTransition, len(s.machine.transitions))
	copy(result, s.machine.transitions)
	return result
}

// Close releases the SFTP channel, the SSH transport and the socket. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.machine.set(StateClosed)
		s.mu.Unlock()

		s.closeErr = s.acquired.release()
	})

	return s.closeErr
}

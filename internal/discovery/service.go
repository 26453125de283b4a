package discovery

import (
	"context"
	"time"

	"sftpfind/internal/logger"
	"sftpfind/internal/ssh"

	"github.com/google/uuid"
)

// Options bounds the listing phase.
type Options struct {
	ListTimeout time.Duration
	// MaxEntries rejects listings with more entries; 0 means unbounded.
	MaxEntries int
}

// Run describes one discovery invocation once it finished.
type Run struct {
	ID         string
	Host       string
	Port       uint
	Username   string
	Method     ssh.AuthMethod
	Criterion  Criterion
	StartedAt  time.Time
	FinishedAt time.Time
	Result     *Result
	Err        error
}

// Recorder receives every finished run.
type Recorder interface {
	Record(run *Run) error
}

// Service runs the full discovery: establish a session, list, match, release.
type Service struct {
	connect  ConnectFunc
	opts     Options
	recorder Recorder
}

func NewService(establisher *ssh.Service, opts Options) *Service {
	return NewServiceWithConnector(func(ctx context.Context, creds *ssh.Credentials) (Session, error) {
		session, err := establisher.Connect(ctx, creds)
		if err != nil {
			return nil, err
		}
		return session, nil
	}, opts)
}

func NewServiceWithConnector(connect ConnectFunc, opts Options) *Service {
	return &Service{connect: connect, opts: opts}
}

// SetRecorder makes the service hand every finished run to recorder.
func (s *Service) SetRecorder(recorder Recorder) {
	s.recorder = recorder
}

// Find opens one session for creds, lists criterion.Path and filters it by
// criterion.Pattern. The session is closed before Find returns.
func (s *Service) Find(ctx context.Context, creds *ssh.Credentials, criterion Criterion) (*Result, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Criterion: criterion,
		StartedAt: time.Now(),
	}
	if creds != nil {
		run.Host = creds.Host
		run.Port = creds.Port
		run.Username = creds.Username
		run.Method = creds.Method
		if run.Port == 0 {
			run.Port = ssh.DefaultPort
		}
	}

	result, err := s.find(ctx, run.ID, creds, criterion)

	run.FinishedAt = time.Now()
	run.Result = result
	run.Err = err

	if err != nil {
		kind, phase := Kind(err)
		logger.Error("run %s: %s failure during %s: %v", run.ID, kind, phase, err)
	} else {
		logger.Info("run %s: examined %d entries, matched %d", run.ID, result.Examined, len(result.Files))
	}

	if s.recorder != nil {
		if recordErr := s.recorder.Record(run); recordErr != nil {
			logger.Warn("run %s: failed to record history: %v", run.ID, recordErr)
		}
	}

	return result, err
}

func (s *Service) find(ctx context.Context, runID string, creds *ssh.Credentials, criterion Criterion) (*Result, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if _, err := criterion.Validate(); err != nil {
		return nil, err
	}

	logger.Info("run %s: looking for %q in %q on %s as %s",
		runID, logger.Sanitize(criterion.Pattern), logger.Sanitize(criterion.Path),
		logger.Sanitize(creds.Host), logger.Sanitize(creds.Username))

	session, err := s.connect(ctx, creds)
	if err != nil {
		return nil, err
	}

	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			logger.Warn("run %s: failed to close session: %v", runID, closeErr)
		}
	}()

	listCtx := ctx
	if s.opts.ListTimeout > 0 {
		var cancel context.CancelFunc
		listCtx, cancel = context.WithTimeout(ctx, s.opts.ListTimeout)
		defer cancel()
	}

	return Match(listCtx, session, criterion, s.opts.MaxEntries)
}

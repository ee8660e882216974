// Package ssh runs single commands on the managed device over fresh SSH sessions.
package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/fgeck/pumpkin-control/internal/faults"
	"github.com/fgeck/pumpkin-control/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// ConnectTimeout bounds TCP connect plus handshake for every session.
const ConnectTimeout = 10 * time.Second

// ErrNoExitStatus is returned by SSHSession.Run when the command started but the
// session closed without reporting an exit status.
var ErrNoExitStatus = errors.New("session closed without exit status")

// Service defines the interface for remote command execution.
type Service interface {
	Execute(ctx context.Context, cfg models.RemoteConfig, command string) (*models.ExecResult, error)
}

// CommandRecorder persists one audit entry per invocation.
type CommandRecorder interface {
	AppendCommandLog(ctx context.Context, entry *models.CommandLogEntry) error
}

// SSHClient wraps ssh.Client for mocking.
type SSHClient interface {
	NewSession() (SSHSession, error)
	Close() error
}

// SSHSession wraps ssh.Session for mocking.
type SSHSession interface {
	// Run executes cmd, streaming output into stdout and stderr, and returns
	// the remote exit status once both streams are drained.
	Run(cmd string, stdout, stderr io.Writer) (int, error)
	Close() error
}

// ClientFactory creates SSH clients.
type ClientFactory interface {
	NewClient(ctx context.Context, network, addr string, config *ssh.ClientConfig) (SSHClient, error)
}

// DefaultClientFactory is the default SSH client factory.
type DefaultClientFactory struct{}

// NewClient dials addr and performs the SSH handshake within config.Timeout.
func (f *DefaultClientFactory) NewClient(ctx context.Context, network, addr string, config *ssh.ClientConfig) (SSHClient, error) {
	dialer := net.Dialer{Timeout: config.Timeout}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	if config.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(config.Timeout))
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})

	return &defaultSSHClient{client: ssh.NewClient(c, chans, reqs)}, nil
}

type defaultSSHClient struct {
	client *ssh.Client
}

func (c *defaultSSHClient) NewSession() (SSHSession, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return nil, err
	}
	return &defaultSSHSession{session: session}, nil
}

func (c *defaultSSHClient) Close() error {
	return c.client.Close()
}

type defaultSSHSession struct {
	session *ssh.Session
}

func (s *defaultSSHSession) Run(cmd string, stdout, stderr io.Writer) (int, error) {
	s.session.Stdout = stdout
	s.session.Stderr = stderr

	err := s.session.Run(cmd)
	if err == nil {
		return 0, nil
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus(), nil
	}
	var missingErr *ssh.ExitMissingError
	if errors.As(err, &missingErr) {
		return models.ExitStatusUnknown, ErrNoExitStatus
	}
	return models.ExitStatusUnknown, err
}

func (s *defaultSSHSession) Close() error {
	return s.session.Close()
}

// Impl implements the SSH Service interface.
type Impl struct {
	clientFactory ClientFactory
	hostKeys      ssh.HostKeyCallback
	recorder      CommandRecorder
	logger        zerolog.Logger
	now           func() time.Time
}

// New creates a new SSH service. A nil hostKeys accepts any host key.
func New(logger zerolog.Logger, recorder CommandRecorder, hostKeys ssh.HostKeyCallback) *Impl {
	return NewWithClientFactory(logger, recorder, hostKeys, &DefaultClientFactory{})
}

// NewWithClientFactory creates a new SSH service with a custom client factory (for testing).
func NewWithClientFactory(logger zerolog.Logger, recorder CommandRecorder, hostKeys ssh.HostKeyCallback, factory ClientFactory) *Impl {
	if hostKeys == nil {
		hostKeys = ssh.InsecureIgnoreHostKey() //nolint:gosec // default policy, see ssh.host_key_policy
	}
	return &Impl{
		clientFactory: factory,
		hostKeys:      hostKeys,
		recorder:      recorder,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *Impl) buildConfig(cfg models.RemoteConfig) *ssh.ClientConfig {
	password := cfg.Password
	return &ssh.ClientConfig{
		User: cfg.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			// Some embedded images only offer keyboard-interactive for password logins.
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: s.hostKeys,
		Timeout:         ConnectTimeout,
	}
}

// Execute opens a session to the device, runs command, and records the outcome
// in the audit log before returning. A non-zero exit status is reported in the
// result, not as an error. Errors are *faults.Error values.
func (s *Impl) Execute(ctx context.Context, cfg models.RemoteConfig, command string) (*models.ExecResult, error) {
	start := s.now()

	var stdout, stderr bytes.Buffer
	exitStatus, runErr := s.run(ctx, cfg, command, &stdout, &stderr)

	entry := &models.CommandLogEntry{
		ID:         uuid.NewString(),
		Command:    command,
		Output:     stdout.String(),
		Error:      stderr.String(),
		ExitStatus: exitStatus,
		Timestamp:  s.now().UTC(),
	}
	if runErr != nil && entry.Error == "" {
		entry.Error = runErr.Error()
	}

	logErr := s.recorder.AppendCommandLog(ctx, entry)

	if runErr != nil && !errors.Is(runErr, ErrNoExitStatus) {
		s.logger.Error().
			Err(runErr).
			Str("host", cfg.Host).
			Str("command", command).
			Msg("remote command failed")
		if logErr != nil {
			s.logger.Error().Err(logErr).Str("entry_id", entry.ID).Msg("failed to record command log")
		}
		return nil, classify(runErr)
	}

	if logErr != nil {
		s.logger.Error().Err(logErr).Str("entry_id", entry.ID).Msg("failed to record command log")
		return nil, faults.Wrap(faults.KindStore, "record_command", "failed to record command log", logErr)
	}

	s.logger.Info().
		Str("host", cfg.Host).
		Str("command", command).
		Int("exit_status", exitStatus).
		Dur("duration", s.now().Sub(start)).
		Msg("remote command completed")

	return &models.ExecResult{
		Success:    runErr == nil && exitStatus == 0,
		Output:     entry.Output,
		Error:      entry.Error,
		ExitStatus: exitStatus,
	}, nil
}

func (s *Impl) run(ctx context.Context, cfg models.RemoteConfig, command string, stdout, stderr io.Writer) (int, error) {
	port := cfg.Port
	if port == 0 {
		port = models.DefaultSSHPort
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(port))

	s.logger.Debug().
		Str("addr", addr).
		Str("user", cfg.Username).
		Str("command", command).
		Msg("opening SSH session")

	client, err := s.clientFactory.NewClient(ctx, "tcp", addr, s.buildConfig(cfg))
	if err != nil {
		return models.ExitStatusUnknown, &connectError{err: err}
	}
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		return models.ExitStatusUnknown, fmt.Errorf("failed to create session: %w", err)
	}
	defer func() { _ = session.Close() }()

	exitStatus, err := session.Run(command, stdout, stderr)
	if err != nil && !errors.Is(err, ErrNoExitStatus) {
		return models.ExitStatusUnknown, fmt.Errorf("failed to run command: %w", err)
	}
	return exitStatus, err
}

// connectError marks failures before a session existed.
type connectError struct {
	err error
}

func (e *connectError) Error() string { return "failed to connect: " + e.err.Error() }
func (e *connectError) Unwrap() error { return e.err }

// classify maps a run error to a fault.
func classify(err error) *faults.Error {
	var ce *connectError
	if errors.As(err, &ce) && isAuthError(ce.err) {
		return faults.Wrap(faults.KindAuthentication, "execute", "Authentication failed. Check username/password.", err)
	}
	return faults.Wrap(faults.KindRemoteExecution, "execute", "SSH error", err)
}

// isAuthError reports whether the server rejected every offered credential.
// x/crypto/ssh has no typed client-side auth error, only this message.
func isAuthError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "no supported methods remain")
}

// Package gateway coordinates configuration, connectivity and remote commands
// for the managed device.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/fgeck/pumpkin-control/internal/faults"
	"github.com/fgeck/pumpkin-control/internal/models"
	"github.com/fgeck/pumpkin-control/internal/services/connection"
	"github.com/fgeck/pumpkin-control/internal/services/intent"
	"github.com/fgeck/pumpkin-control/internal/services/ssh"
	"github.com/fgeck/pumpkin-control/internal/services/telegram"
	"github.com/fgeck/pumpkin-control/internal/services/wol"
	"github.com/fgeck/pumpkin-control/internal/storage"
	"github.com/rs/zerolog"
)

// Log listing bounds.
const (
	DefaultLogLimit = 20
	MaxLogLimit     = 500
)

// Client-facing messages.
const (
	msgNotConfigured    = "SSH not configured"
	msgNotConnected     = "Not connected. Please connect first."
	msgWOLNotConfigured = "Wake-on-LAN not configured"
	msgAuthFailed       = "Authentication failed. Check username/password."
)

// Service defines the interface for gateway operations. Errors are *faults.Error values.
type Service interface {
	SaveConfig(ctx context.Context, cfg models.RemoteConfig) error
	GetConfig(ctx context.Context) (models.PublicRemoteConfig, error)
	Connect(ctx context.Context) (*models.ConnectResult, error)
	Execute(ctx context.Context, command string) (*models.ExecResult, error)
	Control(ctx context.Context, device models.Device, action models.Action) (*models.ControlResult, error)
	Shutdown(ctx context.Context) (*models.ControlResult, error)
	Status(ctx context.Context) models.StatusReport
	Logs(ctx context.Context, limit int) ([]models.CommandLogEntry, error)
	Wake(ctx context.Context) (*models.WOLResult, error)
}

// Store is the persistence the gateway reads and replaces.
type Store interface {
	SaveRemoteConfig(ctx context.Context, cfg models.RemoteConfig) error
	GetRemoteConfig(ctx context.Context) (*models.RemoteConfig, error)
	ListCommandLogs(ctx context.Context, limit int) ([]models.CommandLogEntry, error)
}

// Impl implements the gateway Service interface.
type Impl struct {
	store       Store
	executor    ssh.Service
	tracker     *connection.Tracker
	wolSvc      wol.Service
	telegramSvc telegram.Service
	wolCfg      *models.WOLConfig
	telegramCfg *models.TelegramConfig
	logger      zerolog.Logger
	now         func() time.Time
}

// New creates a gateway with the default WOL and Telegram services.
func New(logger zerolog.Logger, store Store, executor ssh.Service, cfg models.AppConfig) *Impl {
	return NewWithServices(
		logger,
		store,
		executor,
		connection.NewTracker(logger),
		wol.New(logger),
		telegram.New(logger),
		cfg,
	)
}

// NewWithServices creates a gateway with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	store Store,
	executor ssh.Service,
	tracker *connection.Tracker,
	wolSvc wol.Service,
	telegramSvc telegram.Service,
	cfg models.AppConfig,
) *Impl {
	return &Impl{
		store:       store,
		executor:    executor,
		tracker:     tracker,
		wolSvc:      wolSvc,
		telegramSvc: telegramSvc,
		wolCfg:      cfg.WOL,
		telegramCfg: cfg.Telegram,
		logger:      logger,
		now:         time.Now,
	}
}

// SaveConfig validates and replaces the stored configuration. The device must
// be probed again before control commands are accepted.
func (s *Impl) SaveConfig(ctx context.Context, cfg models.RemoteConfig) error {
	const op = "save_config"

	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Username = strings.TrimSpace(cfg.Username)
	if cfg.Port == 0 {
		cfg.Port = models.DefaultSSHPort
	}
	if err := validateRemoteConfig(cfg); err != nil {
		return faults.Wrap(faults.KindInvalidRequest, op, "invalid configuration", err)
	}
	cfg.SavedAt = s.now().UTC()

	if err := s.store.SaveRemoteConfig(ctx, cfg); err != nil {
		return faults.Wrap(faults.KindStore, op, "failed to save configuration", err)
	}

	gen := s.tracker.Configure()
	s.logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("user", cfg.Username).
		Uint64("generation", gen).
		Msg("remote configuration saved")

	return nil
}

// GetConfig returns the stored configuration without its secret.
func (s *Impl) GetConfig(ctx context.Context) (models.PublicRemoteConfig, error) {
	cfg, err := s.store.GetRemoteConfig(ctx)
	if errors.Is(err, storage.ErrRemoteConfigNotFound) {
		return models.PublicRemoteConfig{Configured: false}, nil
	}
	if err != nil {
		return models.PublicRemoteConfig{}, faults.Wrap(faults.KindStore, "get_config", "failed to load configuration", err)
	}
	return cfg.Redacted(), nil
}

// Connect probes the device and marks it connected on success.
func (s *Impl) Connect(ctx context.Context) (*models.ConnectResult, error) {
	const op = "connect"

	// Taken before loading so a concurrent save invalidates this probe.
	gen := s.tracker.Snapshot().Generation

	cfg, err := s.loadConfig(ctx, op)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Msg("probing device")

	result, err := s.executor.Execute(ctx, *cfg, intent.ProbeCommand())
	if err != nil {
		switch faults.KindOf(err) {
		case faults.KindStore:
			return nil, err
		case faults.KindAuthentication:
			s.tracker.MarkUnverified("probe rejected")
			s.logger.Warn().
				Err(unwrapFault(err)).
				Str("host", cfg.Host).
				Str("user", cfg.Username).
				Msg("device rejected credentials")
			return nil, faults.New(faults.KindAuthentication, op, msgAuthFailed)
		default:
			s.tracker.MarkUnverified("probe failed")
			return nil, faults.Wrap(faults.KindRemoteExecution, op, "Connection failed", unwrapFault(err))
		}
	}

	if !s.tracker.MarkConnected(gen) {
		s.logger.Warn().Str("host", cfg.Host).Msg("probe succeeded for a replaced configuration")
	} else {
		s.logger.Info().Str("host", cfg.Host).Msg("device connected")
	}

	return &models.ConnectResult{Output: strings.TrimSpace(result.Output)}, nil
}

// Execute runs an arbitrary command. It does not require a prior connect.
func (s *Impl) Execute(ctx context.Context, command string) (*models.ExecResult, error) {
	const op = "execute"

	if strings.TrimSpace(command) == "" {
		return nil, faults.New(faults.KindInvalidRequest, op, "command must not be empty")
	}

	cfg, err := s.loadConfig(ctx, op)
	if err != nil {
		return nil, err
	}

	return s.run(ctx, op, *cfg, command)
}

// Control switches a device on or off.
func (s *Impl) Control(ctx context.Context, device models.Device, action models.Action) (*models.ControlResult, error) {
	op := "control_" + string(device)

	command, err := intent.Command(device, action)
	if err != nil {
		return nil, faults.Wrap(faults.KindInvalidRequest, op, "invalid control request", err)
	}

	cfg, err := s.requireConnected(ctx, op)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("device", string(device)).
		Str("action", string(action)).
		Msg("controlling device")

	result, err := s.run(ctx, op, *cfg, command)
	if err != nil {
		return nil, err
	}

	return &models.ControlResult{Action: action, Result: *result}, nil
}

// Shutdown powers the device off. Connectivity is dropped once the command is sent.
func (s *Impl) Shutdown(ctx context.Context) (*models.ControlResult, error) {
	const op = "shutdown"

	cfg, err := s.requireConnected(ctx, op)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("host", cfg.Host).Msg("initiating remote shutdown")

	result, err := s.run(ctx, op, *cfg, intent.ShutdownCommand())
	if err != nil {
		s.notify(ctx, models.DeviceEvent{
			Kind:   models.EventShutdown,
			Host:   cfg.Host,
			At:     s.now(),
			Detail: faults.Detail(err),
		})
		return nil, err
	}

	s.tracker.MarkUnverified("shutdown sent")

	if result.ExitStatus == models.ExitStatusUnknown {
		s.logger.Warn().
			Str("output", result.Output).
			Msg("shutdown session closed without exit status (may be expected)")
	}

	s.notify(ctx, models.DeviceEvent{
		Kind:    models.EventShutdown,
		Host:    cfg.Host,
		At:      s.now(),
		Success: true,
		Detail:  strings.TrimSpace(result.Output),
	})

	return &models.ControlResult{Result: *result}, nil
}

// Status reports configuration and connectivity. It never fails; store
// errors are reported in the Error field.
func (s *Impl) Status(ctx context.Context) models.StatusReport {
	cfg, err := s.store.GetRemoteConfig(ctx)
	if errors.Is(err, storage.ErrRemoteConfigNotFound) {
		return models.StatusReport{}
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("status degraded, store unavailable")
		return models.StatusReport{Error: err.Error()}
	}

	return models.StatusReport{
		Connected:  s.tracker.Connected(),
		Configured: true,
		Host:       cfg.Host,
	}
}

// Logs returns up to limit audit entries, newest first. A zero limit selects
// DefaultLogLimit and limits above MaxLogLimit are capped.
func (s *Impl) Logs(ctx context.Context, limit int) ([]models.CommandLogEntry, error) {
	const op = "logs"

	switch {
	case limit == 0:
		limit = DefaultLogLimit
	case limit < 0:
		return nil, faults.New(faults.KindInvalidRequest, op, "limit must be a positive integer")
	case limit > MaxLogLimit:
		limit = MaxLogLimit
	}

	entries, err := s.store.ListCommandLogs(ctx, limit)
	if err != nil {
		return nil, faults.Wrap(faults.KindStore, op, "failed to list command logs", err)
	}
	return entries, nil
}

// Wake sends a Wake-on-LAN packet. When a configuration is stored it waits
// for the device's SSH port. Connectivity still has to be established with Connect.
func (s *Impl) Wake(ctx context.Context) (*models.WOLResult, error) {
	const op = "wake"

	if s.wolCfg == nil {
		return nil, faults.New(faults.KindConfigurationMissing, op, msgWOLNotConfigured)
	}

	var target, host string
	cfg, err := s.store.GetRemoteConfig(ctx)
	switch {
	case err == nil:
		host = cfg.Host
		target = net.JoinHostPort(cfg.Host, strconv.Itoa(portOrDefault(cfg.Port)))
	case errors.Is(err, storage.ErrRemoteConfigNotFound):
	default:
		s.logger.Warn().Err(err).Msg("could not load configuration, not waiting for device")
	}

	result, err := s.wolSvc.Wake(ctx, *s.wolCfg, target)
	if err != nil {
		return nil, faults.Wrap(faults.KindRemoteExecution, op, "failed to send wake packet", err)
	}
	if !result.PacketSent {
		return nil, faults.Wrap(faults.KindRemoteExecution, op, "failed to send wake packet", result.Error)
	}

	if target != "" && !result.TargetReady {
		s.logger.Warn().
			Err(result.Error).
			Str("target", target).
			Msg("device did not become reachable after wake")
	}

	event := models.DeviceEvent{
		Kind:    models.EventWake,
		Host:    host,
		At:      s.now(),
		Success: target == "" || result.TargetReady,
	}
	switch {
	case result.TargetReady:
		event.Detail = fmt.Sprintf("ready after %s", result.WaitDuration.Round(time.Second))
	case result.Error != nil:
		event.Detail = result.Error.Error()
	default:
		event.Detail = "packet sent"
	}
	s.notify(ctx, event)

	return result, nil
}

// requireConnected enforces the connect-before-control precondition. Without
// a probe in this process the store decides whether the device is configured
// at all, so an empty store reports the missing configuration.
func (s *Impl) requireConnected(ctx context.Context, op string) (*models.RemoteConfig, error) {
	snap := s.tracker.Snapshot()
	if !snap.Connected() {
		if snap.State == connection.Unconfigured {
			if _, err := s.loadConfig(ctx, op); err != nil {
				return nil, err
			}
		}
		return nil, faults.New(faults.KindNotConnected, op, msgNotConnected)
	}
	return s.loadConfig(ctx, op)
}

func (s *Impl) loadConfig(ctx context.Context, op string) (*models.RemoteConfig, error) {
	cfg, err := s.store.GetRemoteConfig(ctx)
	if errors.Is(err, storage.ErrRemoteConfigNotFound) {
		return nil, faults.New(faults.KindConfigurationMissing, op, msgNotConfigured)
	}
	if err != nil {
		return nil, faults.Wrap(faults.KindStore, op, "failed to load configuration", err)
	}
	return cfg, nil
}

// run executes command for a non-connect operation. Authentication failures
// are reported as execution faults here and every remote fault drops connectivity.
func (s *Impl) run(ctx context.Context, op string, cfg models.RemoteConfig, command string) (*models.ExecResult, error) {
	result, err := s.executor.Execute(ctx, cfg, command)
	if err == nil {
		return result, nil
	}

	switch faults.KindOf(err) {
	case faults.KindStore:
		return nil, err
	case faults.KindRemoteExecution:
		s.tracker.MarkUnverified(op + " failed")
		return nil, err
	default:
		s.tracker.MarkUnverified(op + " failed")
		return nil, faults.Wrap(faults.KindRemoteExecution, op, "SSH error", unwrapFault(err))
	}
}

func (s *Impl) notify(ctx context.Context, event models.DeviceEvent) {
	if s.telegramCfg == nil {
		return
	}

	result, err := s.telegramSvc.SendNotification(ctx, *s.telegramCfg, event)
	if err != nil {
		s.logger.Error().Err(err).Str("event", event.Kind).Msg("failed to send Telegram notification")
		return
	}
	if result.Error != nil {
		s.logger.Error().Err(result.Error).Str("event", event.Kind).Msg("failed to send Telegram notification")
		return
	}

	s.logger.Debug().Str("event", event.Kind).Msg("Telegram notification sent")
}

// unwrapFault strips one *faults.Error layer so re-classified faults do not
// repeat the inner message.
func unwrapFault(err error) error {
	var fe *faults.Error
	if errors.As(err, &fe) && fe.Cause != nil {
		return fe.Cause
	}
	return err
}

func validateRemoteConfig(cfg models.RemoteConfig) error {
	if cfg.Host == "" {
		return errors.New("host is required")
	}
	if cfg.Username == "" {
		return errors.New("username is required")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	return nil
}

func portOrDefault(port int) int {
	if port == 0 {
		return models.DefaultSSHPort
	}
	return port
}

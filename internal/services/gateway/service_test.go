package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/fgeck/pumpkin-control/internal/faults"
	"github.com/fgeck/pumpkin-control/internal/models"
	"github.com/fgeck/pumpkin-control/internal/services/connection"
	"github.com/fgeck/pumpkin-control/internal/services/intent"
	"github.com/fgeck/pumpkin-control/internal/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock implementations.
type mockStore struct {
	mu        sync.Mutex
	cfg       *models.RemoteConfig
	saves     int
	saveErr   error
	getErr    error
	listErr   error
	lastLimit int
	logs      []models.CommandLogEntry
}

func (m *mockStore) SaveRemoteConfig(ctx context.Context, cfg models.RemoteConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.cfg = &cfg
	return nil
}

func (m *mockStore) GetRemoteConfig(ctx context.Context) (*models.RemoteConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.cfg == nil {
		return nil, storage.ErrRemoteConfigNotFound
	}
	cfg := *m.cfg
	return &cfg, nil
}

func (m *mockStore) ListCommandLogs(ctx context.Context, limit int) ([]models.CommandLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	if m.listErr != nil {
		return nil, m.listErr
	}
	if limit < len(m.logs) {
		return m.logs[:limit], nil
	}
	return m.logs, nil
}

type mockExecutor struct {
	mu          sync.Mutex
	executeFunc func(ctx context.Context, cfg models.RemoteConfig, command string) (*models.ExecResult, error)
	commands    []string
}

func (m *mockExecutor) Execute(ctx context.Context, cfg models.RemoteConfig, command string) (*models.ExecResult, error) {
	m.mu.Lock()
	m.commands = append(m.commands, command)
	m.mu.Unlock()
	if m.executeFunc != nil {
		return m.executeFunc(ctx, cfg, command)
	}
	return &models.ExecResult{Success: true, Output: "Connected\n"}, nil
}

func (m *mockExecutor) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.commands...)
}

type mockWOLService struct {
	wakeFunc func(ctx context.Context, cfg models.WOLConfig, target string) (*models.WOLResult, error)
}

func (m *mockWOLService) Wake(ctx context.Context, cfg models.WOLConfig, target string) (*models.WOLResult, error) {
	if m.wakeFunc != nil {
		return m.wakeFunc(ctx, cfg, target)
	}
	return &models.WOLResult{PacketSent: true, TargetReady: target != ""}, nil
}

type mockTelegramService struct {
	mu       sync.Mutex
	sendFunc func(ctx context.Context, cfg models.TelegramConfig, event models.DeviceEvent) (*models.TelegramResult, error)
	events   []models.DeviceEvent
}

func (m *mockTelegramService) SendNotification(ctx context.Context, cfg models.TelegramConfig, event models.DeviceEvent) (*models.TelegramResult, error) {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	if m.sendFunc != nil {
		return m.sendFunc(ctx, cfg, event)
	}
	return &models.TelegramResult{MessageSent: true}, nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testRemoteConfig() models.RemoteConfig {
	return models.RemoteConfig{
		Host:     "10.0.0.5",
		Port:     22,
		Username: "u",
		Password: "p",
	}
}

type fixture struct {
	gw       *Impl
	store    *mockStore
	executor *mockExecutor
	tracker  *connection.Tracker
	wol      *mockWOLService
	telegram *mockTelegramService
}

func newFixture(cfg models.AppConfig) *fixture {
	f := &fixture{
		store:    &mockStore{},
		executor: &mockExecutor{},
		tracker:  connection.NewTracker(testLogger()),
		wol:      &mockWOLService{},
		telegram: &mockTelegramService{},
	}
	f.gw = NewWithServices(testLogger(), f.store, f.executor, f.tracker, f.wol, f.telegram, cfg)
	return f
}

func (f *fixture) configure(t *testing.T) {
	t.Helper()
	require.NoError(t, f.gw.SaveConfig(context.Background(), testRemoteConfig()))
}

func (f *fixture) connect(t *testing.T) {
	t.Helper()
	f.configure(t)
	_, err := f.gw.Connect(context.Background())
	require.NoError(t, err)
	require.True(t, f.tracker.Connected())
}

func remoteFault() error {
	return faults.Wrap(faults.KindRemoteExecution, "execute", "SSH error", errors.New("connection reset by peer"))
}

func authFault() error {
	return faults.Wrap(faults.KindAuthentication, "execute", "Authentication failed. Check username/password.",
		errors.New("ssh: unable to authenticate"))
}

func storeFault() error {
	return faults.Wrap(faults.KindStore, "record_command", "failed to record command log", errors.New("disk full"))
}

func TestSaveConfig_DefaultsPort(t *testing.T) {
	f := newFixture(models.AppConfig{})

	cfg := testRemoteConfig()
	cfg.Port = 0
	require.NoError(t, f.gw.SaveConfig(context.Background(), cfg))

	assert.Equal(t, 22, f.store.cfg.Port)
	assert.False(t, f.store.cfg.SavedAt.IsZero())
	assert.Equal(t, connection.ConfiguredUnverified, f.tracker.Snapshot().State)
}

func TestSaveConfig_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.RemoteConfig)
		errMsg string
	}{
		{"missing host", func(c *models.RemoteConfig) { c.Host = "  " }, "host is required"},
		{"missing username", func(c *models.RemoteConfig) { c.Username = "" }, "username is required"},
		{"negative port", func(c *models.RemoteConfig) { c.Port = -1 }, "port must be between"},
		{"port too large", func(c *models.RemoteConfig) { c.Port = 70000 }, "port must be between"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(models.AppConfig{})
			cfg := testRemoteConfig()
			tt.mutate(&cfg)

			err := f.gw.SaveConfig(context.Background(), cfg)

			require.Error(t, err)
			assert.Equal(t, faults.KindInvalidRequest, faults.KindOf(err))
			assert.Contains(t, faults.Detail(err), tt.errMsg)
			assert.Equal(t, 0, f.store.saves)
			assert.Equal(t, connection.Unconfigured, f.tracker.Snapshot().State)
		})
	}
}

func TestSaveConfig_StoreFault(t *testing.T) {
	f := newFixture(models.AppConfig{})
	f.store.saveErr = errors.New("database is locked")

	err := f.gw.SaveConfig(context.Background(), testRemoteConfig())

	require.Error(t, err)
	assert.ErrorIs(t, err, faults.ErrStore)
	assert.Equal(t, connection.Unconfigured, f.tracker.Snapshot().State)
}

func TestSaveConfig_TwiceKeepsSecond(t *testing.T) {
	f := newFixture(models.AppConfig{})

	first := testRemoteConfig()
	second := models.RemoteConfig{Host: "10.0.0.6", Port: 2222, Username: "jetson", Password: "other"}

	require.NoError(t, f.gw.SaveConfig(context.Background(), first))
	require.NoError(t, f.gw.SaveConfig(context.Background(), second))

	stored, err := f.store.GetRemoteConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second.Host, stored.Host)
	assert.Equal(t, second.Port, stored.Port)
	assert.Equal(t, second.Username, stored.Username)
	assert.Equal(t, second.Password, stored.Password)
}

func TestSaveConfig_ResavingRequiresNewProbe(t *testing.T) {
	f := newFixture(models.AppConfig{})
	f.connect(t)

	f.configure(t)

	assert.Equal(t, connection.ConfiguredUnverified, f.tracker.Snapshot().State)
	_, err := f.gw.Control(context.Background(), models.DeviceFan, models.ActionOn)
	assert.ErrorIs(t, err, faults.ErrNotConnected)
}

func TestGetConfig_NotConfigured(t *testing.T) {
	f := newFixture(models.AppConfig{})

	cfg, err := f.gw.GetConfig(context.Background())

	require.NoError(t, err)
	assert.Equal(t, models.PublicRemoteConfig{Configured: false}, cfg)
}

func TestGetConfig_NeverReturnsSecret(t *testing.T) {
	f := newFixture(models.AppConfig{})
	f.configure(t)

	cfg, err := f.gw.GetConfig(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.PublicRemoteConfig{Configured: true, Host: "10.0.0.5", Username: "u", Port: 22}, cfg)

	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")
	assert.NotContains(t, string(raw), `"p"`)
}

func TestGetConfig_StoreFault(t *testing.T) {
	f := newFixture(models.AppConfig{})
	f.store.getErr = errors.New("no such table")

	_, err := f.gw.GetConfig(context.Background())

	assert.ErrorIs(t, err, faults.ErrStore)
}

func TestConnect_NotConfigured(t *testing.T) {
	f := newFixture(models.AppConfig{})

	_, err := f.gw.Connect(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, faults.ErrConfigurationMissing)
	assert.Equal(t, "SSH not configured", faults.Detail(err))
	assert.Empty(t, f.executor.calls())
}

func TestConnect_Success(t *testing.T) {
	f := newFixture(models.AppConfig{})
	f.configure(t)

	result, err := f.gw.Connect(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Connected", result.Output)
	assert.Equal(t, []string{intent.ProbeCommand()}, f.executor.calls())
	assert.Equal(t, connection.ConfiguredConnected, f.tracker.Snapshot().State)
}

func TestConnect_AfterRestartWithStoredConfig(t *testing.T) {
	f := newFixture(models.AppConfig{})
	cfg := testRemoteConfig()
	f.store.cfg = &cfg

	_, err := f.gw.Connect(context.Background())

	require.NoError(t, err)
	assert.True(t, f.tracker.Connected())
}

func TestConnect_AuthenticationFault(t *testing.T) {
	f := newFixture(models.AppConfig{})
	f.connect(t)
	f.executor.executeFunc = func(ctx context.Context, cfg models.RemoteConfig, command string) (*models.ExecResult, error) {
		return nil, authFault()
	}

	_, err := f.gw.Connect(context.Background())

	require.Error(t, err)
	assert.Equal(t, faults.KindAuthentication, faults.KindOf(err))
	assert.Equal(t, "Authentication failed. Check username/password.", faults.Detail(err))
	assert.NotContains(t, faults.Detail(err), "unable to authenticate")
	assert.False(t, f.tracker.Connected())
}

func TestConnect_TransportFault(t *testing.T) {
	f := newFixture(models.AppConfig{})
	f.connect(t)
	f.executor.executeFunc = func(ctx context.Context, cfg models.RemoteConfig, command string) (*models.ExecResult, error) {
		return nil, remoteFault()
	}

	_, err := f.gw.Connect(context.Background())

	require.Error(t, err)
	assert.Equal(t, faults.KindRemoteExecution, faults.KindOf(err))
	assert.Equal(t, "Connection failed: connection reset by peer", faults.Detail(err))
	assert.False(t, f.tracker.Connected())
}

func TestConnect_LogFailureFailsProbe(t *testing.T) {
	f := newFixture(models.AppConfig{})
	f.configure(t)
	f.executor.executeFunc = func(ctx context.Context, cfg models.RemoteConfig, command string) (*models.ExecResult, error) {
		return nil, storeFault()
	}

	_, err := f.gw.Connect(context.Background())

	assert.ErrorIs(t, err, faults.ErrStore)
	assert.False(t, f.tracker.Connected())
}

func TestConnect_ConfigReplacedDuringProbe(t *testing.T) {
	f := newFixture(models.AppConfig{})
	f.configure(t)
	f.executor.executeFunc = func(ctx context.Context, cfg models.RemoteConfig, command string) (*models.ExecResult, error) {
		replacement := testRemoteConfig()
		replacement.Host = "10.0.0.99"
		require.NoError(t, f.gw.SaveConfig(ctx, replacement))
		return &models.ExecResult{Success: true, Output: "Connected\n"}, nil
	}

	result, err := f.gw.Connect(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Connected", result.Output)
	assert.Equal(t, connection.ConfiguredUnverified, f.tracker.Snapshot().State)
}

func TestExecute_RequiresCommand(t *testing.T) {
	f := newFixture(models.AppConfig{})
	f.configure(t)

	_, err := f.gw.Execute(context.Background(), "   ")

	assert.ErrorIs(t, err, faults.ErrInvalidRequest)
	assert.Empty(t, f.executor.calls())
}

func TestExecute_NotConfigured(t *testing.T) {
	f := newFixture(models.AppConfig{})

	_, err := f.gw.Execute(context.Background(), "uptime")

	assert.ErrorIs(t, err, faults.ErrConfigurationMissing)
	assert.Empty(t, f.executor.calls())
}

func TestExecute_DoesNotRequireConnect(t *testing.T) {
	f := newFixture(models.AppConfig{})
	f.configure(t)
	f.executor.executeFunc = func(ctx context.Context, cfg models.RemoteConfig, command string) (*models.ExecResult, error) {
		assert.Equal(t, "p", cfg.Password)
		return &models.ExecResult{Success: false, Output: "", Error: "boom\n", ExitStatus: 3}, nil
	}

	result, err := f.gw.Execute(context.Background(), "false")

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "boom\n", result.Error)
	assert.Equal(t, []string{"false"}, f.executor.calls())
}

func TestExecute_FaultDropsConnectivity(t *testing.T) {
	f := newFixture(models.AppConfig{})
	f.connect(t)
	f.executor.executeFunc = func(ctx context.Context, cfg models.RemoteConfig, command string) (*models.ExecResult, error) {
		return nil, remoteFault()
	}

	_, err := f.gw.Execute(context.Background(), "uptime")

	assert.ErrorIs(t, err, faults.ErrRemoteExecution)
	assert.Equal(t, connection.ConfiguredUnverified, f.tracker.Snapshot().State)
}

func TestExecute_AuthenticationCollapsesToExecutionFault(t *testing.T) {
	f := newFixture(models.AppConfig{})
	f.connect(t)
	f.executor.executeFunc = func(ctx context.Context, cfg models.RemoteConfig, command string) (*models.ExecResult, error) {
		return nil, authFault()
	}

	_, err := f.gw.Execute(context.Background(), "uptime")

	require.Error(t, err)
	assert.Equal(t, faults.KindRemoteExecution, faults.KindOf(err))
	assert.Contains(t, faults.Detail(err), "SSH error")
	assert.False(t, f.tracker.Connected())
}

func TestExecute_StoreFaultKeepsConnectivity(t *testing.T) {
	f := newFixture(models.AppConfig{})
	f.connect(t)
	f.executor.executeFunc = func(ctx context.Context, cfg models.RemoteConfig, command string) (*models.ExecResult, error) {
		return nil, storeFault()
	}

	_, err := f.gw.Execute(context.Background(), "uptime")

	assert.ErrorIs(t, err, faults.ErrStore)
	assert.True(t, f.tracker.Connected())
}

type intentCase struct {
	device models.Device
	action models.Action
}

func allIntents() []intentCase {
	var out []intentCase
	for _, d := range []models.Device{models.DeviceFan, models.DeviceLights, models.DeviceCamera} {
		for _, a := range []models.Action{models.ActionOn, models.ActionOff} {
			out = append(out, intentCase{device: d, action: a})
		}
	}
	return out
}

func TestControl_Preconditions(t *testing.T) {
	for _, in := range allIntents() {
		t.Run(fmt.Sprintf("%s_%s", in.device, in.action), func(t *testing.T) {
			f := newFixture(models.AppConfig{})

			_, err := f.gw.Control(context.Background(), in.device, in.action)
			assert.ErrorIs(t, err, faults.ErrConfigurationMissing)

			f.configure(t)
			_, err = f.gw.Control(context.Background(), in.device, in.action)
			assert.ErrorIs(t, err, faults.ErrNotConnected)
			assert.Equal(t, "Not connected. Please connect first.", faults.Detail(err))

			assert.Empty(t, f.executor.calls())
		})
	}
}

func TestControl_StoredConfigWithoutProbeIsNotConnected(t *testing.T) {
	f := newFixture(models.AppConfig{})
	cfg := testRemoteConfig()
	f.store.cfg = &cfg

	_, err := f.gw.Control(context.Background(), models.DeviceLights, models.ActionOff)

	assert.ErrorIs(t, err, faults.ErrNotConnected)
}

func TestControl_RunsMappedCommand(t *testing.T) {
	for _, in := range allIntents() {
		t.Run(fmt.Sprintf("%s_%s", in.device, in.action), func(t *testing.T) {
			f := newFixture(models.AppConfig{})
			f.connect(t)
			f.executor.executeFunc = func(ctx context.Context, cfg models.RemoteConfig, command string) (*models.ExecResult, error) {
				return &models.ExecResult{Success: true}, nil
			}

			result, err := f.gw.Control(context.Background(), in.device, in.action)

			require.NoError(t, err)
			assert.Equal(t, in.action, result.Action)
			assert.True(t, result.Result.Success)

			want, err := intent.Command(in.device, in.action)
			require.NoError(t, err)
			calls := f.executor.calls()
			assert.Equal(t, want, calls[len(calls)-1])
			assert.True(t, f.tracker.Connected())
		})
	}
}

func TestControl_InvalidAction(t *testing.T) {
	f := newFixture(models.AppConfig{})

	_, err := f.gw.Control(context.Background(), models.DeviceFan, models.Action("toggle"))

	assert.ErrorIs(t, err, faults.ErrInvalidRequest)
}

func TestControl_FaultDropsConnectivity(t *testing.T) {
	f := newFixture(models.AppConfig{})
	f.connect(t)
	f.executor.executeFunc = func(ctx context.Context, cfg models.RemoteConfig, command string) (*models.ExecResult, error) {
		return nil, remoteFault()
	}

	_, err := f.gw.Control(context.Background(), models.DeviceCamera, models.ActionOn)

	assert.ErrorIs(t, err, faults.ErrRemoteExecution)
	assert.Equal(t, connection.ConfiguredUnverified, f.tracker.Snapshot().State)

	_, err = f.gw.Control(context.Background(), models.DeviceCamera, models.ActionOff)
	assert.ErrorIs(t, err, faults.ErrNotConnected)
}

func TestShutdown_NotConnected(t *testing.T) {
	f := newFixture(models.AppConfig{})
	f.configure(t)

	_, err := f.gw.Shutdown(context.Background())

	assert.ErrorIs(t, err, faults.ErrNotConnected)
	assert.Empty(t, f.executor.calls())
}

func TestShutdown_Success(t *testing.T) {
	f := newFixture(models.AppConfig{Telegram: &models.TelegramConfig{BotToken: "t", ChatID: "c"}})
	f.connect(t)

	result, err := f.gw.Shutdown(context.Background())

	require.NoError(t, err)
	assert.True(t, result.Result.Success)
	assert.Equal(t, intent.ShutdownCommand(), f.executor.calls()[1])
	assert.False(t, f.tracker.Connected())
	assert.False(t, f.gw.Status(context.Background()).Connected)

	require.Len(t, f.telegram.events, 1)
	assert.Equal(t, models.EventShutdown, f.telegram.events[0].Kind)
	assert.True(t, f.telegram.events[0].Success)
	assert.Equal(t, "10.0.0.5", f.telegram.events[0].Host)
}

func TestShutdown_SessionDroppedWithoutExitStatus(t *testing.T) {
	f := newFixture(models.AppConfig{})
	f.connect(t)
	f.executor.executeFunc = func(ctx context.Context, cfg models.RemoteConfig, command string) (*models.ExecResult, error) {
		return &models.ExecResult{Success: false, ExitStatus: models.ExitStatusUnknown}, nil
	}

	result, err := f.gw.Shutdown(context.Background())

	require.NoError(t, err)
	assert.Equal(t, models.ExitStatusUnknown, result.Result.ExitStatus)
	assert.False(t, f.tracker.Connected())
}

func TestShutdown_FaultNotifiesAndDropsConnectivity(t *testing.T) {
	f := newFixture(models.AppConfig{Telegram: &models.TelegramConfig{BotToken: "t", ChatID: "c"}})
	f.connect(t)
	f.executor.executeFunc = func(ctx context.Context, cfg models.RemoteConfig, command string) (*models.ExecResult, error) {
		return nil, remoteFault()
	}

	_, err := f.gw.Shutdown(context.Background())

	assert.ErrorIs(t, err, faults.ErrRemoteExecution)
	assert.False(t, f.tracker.Connected())
	require.Len(t, f.telegram.events, 1)
	assert.False(t, f.telegram.events[0].Success)
	assert.Contains(t, f.telegram.events[0].Detail, "connection reset by peer")
}

func TestShutdown_NotificationFailureIgnored(t *testing.T) {
	f := newFixture(models.AppConfig{Telegram: &models.TelegramConfig{BotToken: "t", ChatID: "c"}})
	f.telegram.sendFunc = func(ctx context.Context, cfg models.TelegramConfig, event models.DeviceEvent) (*models.TelegramResult, error) {
		return &models.TelegramResult{Error: errors.New("telegram API returned status 500")}, nil
	}
	f.connect(t)

	_, err := f.gw.Shutdown(context.Background())

	require.NoError(t, err)
}

func TestStatus(t *testing.T) {
	f := newFixture(models.AppConfig{})

	assert.Equal(t, models.StatusReport{}, f.gw.Status(context.Background()))

	f.configure(t)
	assert.Equal(t, models.StatusReport{Configured: true, Host: "10.0.0.5"}, f.gw.Status(context.Background()))

	_, err := f.gw.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusReport{Connected: true, Configured: true, Host: "10.0.0.5"}, f.gw.Status(context.Background()))
}

func TestStatus_DegradesOnStoreFault(t *testing.T) {
	f := newFixture(models.AppConfig{})
	f.connect(t)
	f.store.getErr = errors.New("database is closed")

	status := f.gw.Status(context.Background())

	assert.False(t, status.Connected)
	assert.False(t, status.Configured)
	assert.Equal(t, "database is closed", status.Error)
}

func TestLogs_Limits(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{"default", 0, DefaultLogLimit},
		{"explicit", 2, 2},
		{"capped", 10000, MaxLogLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(models.AppConfig{})

			_, err := f.gw.Logs(context.Background(), tt.limit)

			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, f.store.lastLimit)
		})
	}
}

func TestLogs_NegativeLimit(t *testing.T) {
	f := newFixture(models.AppConfig{})

	_, err := f.gw.Logs(context.Background(), -1)

	assert.ErrorIs(t, err, faults.ErrInvalidRequest)
}

func TestLogs_StoreFault(t *testing.T) {
	f := newFixture(models.AppConfig{})
	f.store.listErr = errors.New("no such table")

	_, err := f.gw.Logs(context.Background(), 5)

	assert.ErrorIs(t, err, faults.ErrStore)
}

func TestWake_NotConfigured(t *testing.T) {
	f := newFixture(models.AppConfig{})

	_, err := f.gw.Wake(context.Background())

	assert.ErrorIs(t, err, faults.ErrConfigurationMissing)
}

func TestWake_WaitsForStoredHost(t *testing.T) {
	wolCfg := &models.WOLConfig{MACAddress: "AA:BB:CC:DD:EE:FF", BroadcastIP: "255.255.255.255", WaitTimeout: time.Minute}
	f := newFixture(models.AppConfig{WOL: wolCfg, Telegram: &models.TelegramConfig{BotToken: "t", ChatID: "c"}})

	cfg := testRemoteConfig()
	cfg.Port = 2222
	require.NoError(t, f.gw.SaveConfig(context.Background(), cfg))

	var capturedTarget string
	var capturedCfg models.WOLConfig
	f.wol.wakeFunc = func(ctx context.Context, cfg models.WOLConfig, target string) (*models.WOLResult, error) {
		capturedTarget = target
		capturedCfg = cfg
		return &models.WOLResult{PacketSent: true, TargetReady: true, WaitDuration: 42 * time.Second}, nil
	}

	result, err := f.gw.Wake(context.Background())

	require.NoError(t, err)
	assert.True(t, result.TargetReady)
	assert.Equal(t, "10.0.0.5:2222", capturedTarget)
	assert.Equal(t, *wolCfg, capturedCfg)
	assert.False(t, f.tracker.Connected())
	assert.Empty(t, f.executor.calls())

	require.Len(t, f.telegram.events, 1)
	assert.Equal(t, models.EventWake, f.telegram.events[0].Kind)
	assert.True(t, f.telegram.events[0].Success)
	assert.Contains(t, f.telegram.events[0].Detail, "42s")
}

func TestWake_WithoutStoredConfigDoesNotWait(t *testing.T) {
	f := newFixture(models.AppConfig{WOL: &models.WOLConfig{MACAddress: "AA:BB:CC:DD:EE:FF"}})

	var capturedTarget = "unset"
	f.wol.wakeFunc = func(ctx context.Context, cfg models.WOLConfig, target string) (*models.WOLResult, error) {
		capturedTarget = target
		return &models.WOLResult{PacketSent: true}, nil
	}

	result, err := f.gw.Wake(context.Background())

	require.NoError(t, err)
	assert.True(t, result.PacketSent)
	assert.Equal(t, "", capturedTarget)
}

func TestWake_PacketNotSent(t *testing.T) {
	f := newFixture(models.AppConfig{WOL: &models.WOLConfig{MACAddress: "AA:BB:CC:DD:EE:FF"}})
	f.wol.wakeFunc = func(ctx context.Context, cfg models.WOLConfig, target string) (*models.WOLResult, error) {
		return &models.WOLResult{Error: errors.New("network unreachable")}, nil
	}

	_, err := f.gw.Wake(context.Background())

	require.Error(t, err)
	assert.Equal(t, faults.KindRemoteExecution, faults.KindOf(err))
	assert.Contains(t, faults.Detail(err), "network unreachable")
}

func TestWake_TargetNotReadyStillSucceeds(t *testing.T) {
	f := newFixture(models.AppConfig{
		WOL:      &models.WOLConfig{MACAddress: "AA:BB:CC:DD:EE:FF"},
		Telegram: &models.TelegramConfig{BotToken: "t", ChatID: "c"},
	})
	f.configure(t)
	f.wol.wakeFunc = func(ctx context.Context, cfg models.WOLConfig, target string) (*models.WOLResult, error) {
		return &models.WOLResult{PacketSent: true, Error: errors.New("timeout waiting for 10.0.0.5:22")}, nil
	}

	result, err := f.gw.Wake(context.Background())

	require.NoError(t, err)
	assert.False(t, result.TargetReady)
	require.Len(t, f.telegram.events, 1)
	assert.False(t, f.telegram.events[0].Success)
	assert.Contains(t, f.telegram.events[0].Detail, "timeout")
}

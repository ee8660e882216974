// Package connection tracks whether the managed device is configured and reachable.
package connection

import (
	"sync"

	"github.com/rs/zerolog"
)

// State is the connection lifecycle state.
type State int

// Connection states. The zero value is Unconfigured.
const (
	Unconfigured State = iota
	ConfiguredUnverified
	ConfiguredConnected
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case ConfiguredUnverified:
		return "configured_unverified"
	case ConfiguredConnected:
		return "configured_connected"
	default:
		return "invalid"
	}
}

// Snapshot is a consistent read of the tracker.
type Snapshot struct {
	State      State
	Generation uint64
}

// Connected reports whether the last probe succeeded and nothing has failed since.
func (s Snapshot) Connected() bool {
	return s.State == ConfiguredConnected
}

// Tracker is the process-lifetime state machine. It is never persisted and
// always starts Unconfigured.
type Tracker struct {
	mu         sync.Mutex
	state      State
	generation uint64
	logger     zerolog.Logger
}

// NewTracker creates a tracker in the Unconfigured state.
func NewTracker(logger zerolog.Logger) *Tracker {
	return &Tracker{logger: logger}
}

// Snapshot returns the current state and configuration generation.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{State: t.state, Generation: t.generation}
}

// Connected reports whether the tracker is ConfiguredConnected.
func (t *Tracker) Connected() bool {
	return t.Snapshot().Connected()
}

// Configure records a newly saved configuration. Any state moves to
// ConfiguredUnverified and the generation advances, so probes that started
// against the previous configuration cannot mark it connected.
func (t *Tracker) Configure() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.generation++
	t.transition(ConfiguredUnverified, "configuration saved")
	return t.generation
}

// MarkConnected records a successful probe that started at generation gen.
// It returns false and leaves the state untouched when the configuration was
// replaced while the probe was running.
func (t *Tracker) MarkConnected(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.generation {
		t.logger.Warn().
			Uint64("probe_generation", gen).
			Uint64("current_generation", t.generation).
			Msg("configuration changed during probe, staying unverified")
		return false
	}
	t.transition(ConfiguredConnected, "probe succeeded")
	return true
}

// MarkUnverified drops connectivity after an execution fault or a shutdown.
// It only affects the ConfiguredConnected state.
func (t *Tracker) MarkUnverified(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != ConfiguredConnected {
		return
	}
	t.transition(ConfiguredUnverified, reason)
}

// transition must be called with mu held.
func (t *Tracker) transition(to State, reason string) {
	if t.state == to {
		return
	}
	t.logger.Debug().
		Str("from", t.state.String()).
		Str("to", to.String()).
		Str("reason", reason).
		Msg("connection state changed")
	t.state = to
}

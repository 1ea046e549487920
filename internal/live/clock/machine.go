package clock

import "errors"

// ErrNegativeSeconds is returned when a command receives a negative duration
// or elapsed value. The machine state is left untouched.
var ErrNegativeSeconds = errors.New("seconds must be non-negative")

// Snapshot is the wire/view representation of match time. It is the shape
// the server embeds in timer_update corrections and the shape the machine
// exposes to the reconciler.
type Snapshot struct {
	ElapsedSeconds   int  `json:"elapsed_seconds"`
	StoppageSeconds  int  `json:"stoppage_seconds"`
	Running          bool `json:"is_running"`
	Stoppage         bool `json:"is_stoppage"`
	AllocatedSeconds int  `json:"allocated_seconds,omitempty"`
}

// Machine is the local model of match time. It owns no timers and performs
// no locking: all calls must come through a single serialized owner (the
// reconciler). Every operation is synchronous and mutates only the owned
// state, which keeps the machine testable as a plain value transformer.
type Machine struct {
	elapsedSeconds   int
	stoppageSeconds  int
	running          bool
	stoppage         bool
	allocatedSeconds int
}

// NewMachine creates a stopped machine with the given regulation duration.
// allocatedSeconds is used for progress display only and never limits the
// elapsed clock.
func NewMachine(allocatedSeconds int) *Machine {
	if allocatedSeconds <= 0 {
		allocatedSeconds = DefaultAllocatedSeconds
	}
	return &Machine{allocatedSeconds: allocatedSeconds}
}

// DefaultAllocatedSeconds is a regulation match duration of 45 minutes.
const DefaultAllocatedSeconds = 2700

// Tick advances the playing clock by one second. It is a no-op unless the
// clock is effectively running (running and not held by a stoppage).
func (m *Machine) Tick() {
	if m.running && !m.stoppage {
		m.elapsedSeconds++
	}
}

// Start sets the clock running. No-op if already running.
func (m *Machine) Start() {
	m.running = true
}

// Pause halts the clock. The stoppage flag is left as-is: a pause during a
// stoppage does not end the stoppage.
func (m *Machine) Pause() {
	m.running = false
}

// StartStoppage holds the running clock. The raw running flag is not
// cleared so that EndStoppage restores play without a separate Start.
func (m *Machine) StartStoppage() {
	m.stoppage = true
}

// EndStoppage releases the hold placed by StartStoppage.
func (m *Machine) EndStoppage() {
	m.stoppage = false
}

// AddStoppageTime records a completed stoppage's duration. Stoppage time
// already recorded is never retracted, so seconds must be non-negative.
func (m *Machine) AddStoppageTime(seconds int) error {
	if seconds < 0 {
		return ErrNegativeSeconds
	}
	m.stoppageSeconds += seconds
	return nil
}

// SetElapsedSeconds overwrites the playing clock. Used for manual operator
// corrections and server-authoritative snaps; correction authority is
// absolute, so the value is adopted unconditionally once validated.
func (m *Machine) SetElapsedSeconds(seconds int) error {
	if seconds < 0 {
		return ErrNegativeSeconds
	}
	m.elapsedSeconds = seconds
	return nil
}

// ApplySnapshot adopts a server-reported clock state wholesale. The server
// is always authoritative on reconciliation: last correction wins, with the
// single exception that stoppage seconds never decrease (stoppage time
// already recorded locally is kept if the server reports less).
func (m *Machine) ApplySnapshot(s Snapshot) {
	m.elapsedSeconds = s.ElapsedSeconds
	if s.StoppageSeconds > m.stoppageSeconds {
		m.stoppageSeconds = s.StoppageSeconds
	}
	m.running = s.Running
	m.stoppage = s.Stoppage
	if s.AllocatedSeconds > 0 {
		m.allocatedSeconds = s.AllocatedSeconds
	}
}

// Snapshot returns the current state. Running reports the effective state:
// a clock held by a stoppage is not running, which keeps the running and
// stoppage indicators mutually exclusive for consumers.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		ElapsedSeconds:   m.elapsedSeconds,
		StoppageSeconds:  m.stoppageSeconds,
		Running:          m.EffectiveRunning(),
		Stoppage:         m.stoppage,
		AllocatedSeconds: m.allocatedSeconds,
	}
}

// EffectiveRunning reports whether the playing clock is actually advancing:
// started and not held by a stoppage.
func (m *Machine) EffectiveRunning() bool {
	return m.running && !m.stoppage
}

// InStoppage reports whether a stoppage is in progress.
func (m *Machine) InStoppage() bool {
	return m.stoppage
}

// Started reports the raw running flag, ignoring any stoppage hold. The
// reconciler uses it to restore the pre-stoppage state in its snapshots.
func (m *Machine) Started() bool {
	return m.running
}

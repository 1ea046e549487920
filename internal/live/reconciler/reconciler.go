package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/courtside/internal/live/clock"
	"github.com/mcdev12/courtside/internal/live/event"
	"github.com/mcdev12/courtside/internal/live/game"
	"github.com/mcdev12/courtside/internal/live/stream"
)

// Snapshot is the merged, immutable view handed to the presentation layer
// on every state change: connection health, the game record, and the
// current clock reading.
type Snapshot struct {
	ConnectionStatus stream.Status  `json:"connection_status"`
	Degraded         bool           `json:"degraded"`
	LastEventAt      time.Time      `json:"last_event_at"`
	Game             game.Game      `json:"game"`
	Clock            clock.Snapshot `json:"clock"`
}

// Config configures one reconciler. Each actively-viewed live game gets its
// own instance; nothing here is shared across games.
type Config struct {
	BaseURL string
	GameID  string

	// Tokens is handed to the stream client; nil means public viewing.
	Tokens stream.TokenProvider

	// Transport and Policy are forwarded to the stream client; zero
	// values select SSE and the default backoff policy.
	Transport stream.Transport
	Policy    stream.Policy

	// Clock drives the one-second local tick; defaults to the real clock.
	Clock clockwork.Clock

	// AllocatedSeconds is the regulation duration for progress display.
	AllocatedSeconds int

	// TimelineCapacity bounds the in-memory event timeline kept for
	// display; zero selects the default.
	TimelineCapacity int

	// OnSnapshot, when set, is invoked with a fresh snapshot after every
	// state change (tick, command, or stream event).
	OnSnapshot func(Snapshot)
}

// Reconciler owns one stream subscription and one clock machine for a
// single live game view. The ticker goroutine and the stream client's
// delivery goroutine both serialize their mutations through one mutex; the
// clock machine itself is only ever touched on that path.
type Reconciler struct {
	cfg Config
	clk clockwork.Clock

	mu          sync.Mutex
	machine     *clock.Machine
	g           game.Game
	connStatus  stream.Status
	degraded    bool
	lastEventAt time.Time
	tl          *timeline
	attached    bool

	conn         *stream.Connection
	cancelTicker context.CancelFunc
	tickerDone   chan struct{}
}

// New builds a detached reconciler. Call Attach to go live.
func New(cfg Config) *Reconciler {
	clk := cfg.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Reconciler{
		cfg:        cfg,
		clk:        clk,
		machine:    clock.NewMachine(cfg.AllocatedSeconds),
		g:          game.Game{ID: cfg.GameID},
		connStatus: stream.StatusDisconnected,
		tl:         newTimeline(cfg.TimelineCapacity),
	}
}

// Attach opens the stream subscription and starts the one-second local
// ticker. Idempotent while attached. ctx bounds the ticker only; use
// Detach for orderly teardown.
func (r *Reconciler) Attach(ctx context.Context) {
	r.mu.Lock()
	if r.attached {
		r.mu.Unlock()
		return
	}
	r.attached = true

	tickCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancelTicker = cancel
	r.tickerDone = done

	conn := stream.Dial(stream.Config{
		BaseURL:   r.cfg.BaseURL,
		GameID:    r.cfg.GameID,
		Tokens:    r.cfg.Tokens,
		Transport: r.cfg.Transport,
		Policy:    r.cfg.Policy,
		Clock:     r.clk,
		OnEvent:   r.handleEvent,
		OnStatus:  r.handleStatus,
	})
	r.conn = conn
	r.mu.Unlock()

	go r.runTicker(tickCtx, done)

	log.Info().Str("game_id", r.cfg.GameID).Msg("reconciler attached")
}

// Detach stops the ticker and closes the stream subscription. Must be
// called when the owner stops viewing the game; skipping it leaks the
// transport and the ticking timer. Idempotent; once it returns no further
// tick or stream callback mutates the clock.
func (r *Reconciler) Detach() {
	r.mu.Lock()
	if !r.attached {
		r.mu.Unlock()
		return
	}
	r.attached = false
	cancel := r.cancelTicker
	done := r.tickerDone
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	cancel()
	<-done
	if conn != nil {
		conn.Close()
	}

	log.Info().Str("game_id", r.cfg.GameID).Msg("reconciler detached")
}

// Snapshot composes the current merged view. Pure read; no side effects.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Timeline returns up to n recent events, newest first, for display.
func (r *Reconciler) Timeline(n int) []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tl.recent(n)
}

// Start is the operator command to run the clock. Applied optimistically
// even while disconnected; persistence is the CRUD API's job.
func (r *Reconciler) Start() {
	r.mu.Lock()
	r.machine.Start()
	r.mu.Unlock()
	r.notify()
}

// Pause is the operator command to hold the clock.
func (r *Reconciler) Pause() {
	r.mu.Lock()
	r.machine.Pause()
	r.mu.Unlock()
	r.notify()
}

// ToggleStoppage begins a stoppage, or ends the one in progress.
func (r *Reconciler) ToggleStoppage() {
	r.mu.Lock()
	if r.machine.InStoppage() {
		r.machine.EndStoppage()
	} else {
		r.machine.StartStoppage()
	}
	r.mu.Unlock()
	r.notify()
}

// SetElapsed is the manual operator time edit. Validation failures are
// returned, never clamped; the state is untouched on error.
func (r *Reconciler) SetElapsed(seconds int) error {
	r.mu.Lock()
	err := r.machine.SetElapsedSeconds(seconds)
	r.mu.Unlock()
	if err != nil {
		return err
	}
	r.notify()
	return nil
}

func (r *Reconciler) runTicker(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := r.clk.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			r.tick()
		}
	}
}

// tick advances local prediction by one second. It only runs while the
// bound game is in progress; a non-running or stoppage-held clock makes it
// a no-op inside the machine.
func (r *Reconciler) tick() {
	r.mu.Lock()
	if !r.g.Live() {
		r.mu.Unlock()
		return
	}
	before := r.machine.Snapshot().ElapsedSeconds
	r.machine.Tick()
	changed := r.machine.Snapshot().ElapsedSeconds != before
	r.mu.Unlock()

	if changed {
		r.notify()
	}
}

// handleEvent translates one stream event into clock machine calls. Runs on
// the stream client's delivery goroutine, serialized with the ticker via
// the mutex. Malformed payloads are dropped and logged; unknown kinds are
// ignored entirely.
func (r *Reconciler) handleEvent(ev event.Event) {
	payload, err := event.ParsePayload(ev)
	if err != nil {
		log.Warn().
			Err(err).
			Str("game_id", r.cfg.GameID).
			Str("kind", string(ev.Kind)).
			Msg("dropping malformed stream event")
		return
	}

	r.mu.Lock()
	r.lastEventAt = ev.ReceivedAt

	if payload == nil {
		r.mu.Unlock()
		log.Debug().
			Str("game_id", r.cfg.GameID).
			Str("kind", string(ev.Kind)).
			Msg("ignoring unknown stream event kind")
		return
	}
	r.tl.append(ev)

	switch p := payload.(type) {
	case event.ConnectedPayload:
		r.g = p.Game
		r.machine.ApplySnapshot(p.Clock)

	case event.GameStartedPayload:
		r.g = p.Game
		r.machine.ApplySnapshot(p.Clock)
		r.machine.Start()

	case event.GameEndedPayload:
		r.g = p.Game
		r.machine.ApplySnapshot(p.Clock)
		r.machine.Pause()

	case event.GoalScoredPayload:
		r.g.ApplyScore(p.HomeScore, p.AwayScore)

	case event.ScoreUpdatedPayload:
		r.g.ApplyScore(p.HomeScore, p.AwayScore)

	case event.StoppageStartedPayload:
		r.machine.StartStoppage()

	case event.StoppageEndedPayload:
		r.machine.EndStoppage()
		if p.DurationSeconds > 0 {
			if err := r.machine.AddStoppageTime(p.DurationSeconds); err != nil {
				log.Warn().Err(err).Str("game_id", r.cfg.GameID).Msg("rejected stoppage duration")
			}
		}

	case event.TimerUpdatePayload:
		r.machine.ApplySnapshot(p.Clock)
	}
	r.mu.Unlock()

	r.notify()
}

// handleStatus tracks connection health. A terminal disconnect while still
// attached flips the view into degraded mode: local ticking continues but
// the UI can warn that corrections have stopped arriving.
func (r *Reconciler) handleStatus(s stream.Status, reason string) {
	r.mu.Lock()
	r.connStatus = s
	switch s {
	case stream.StatusConnected:
		r.degraded = false
	case stream.StatusDisconnected:
		if r.attached {
			r.degraded = true
		}
	}
	r.mu.Unlock()

	if s == stream.StatusDisconnected && reason != "" {
		log.Warn().
			Str("game_id", r.cfg.GameID).
			Str("reason", reason).
			Msg("live updates unavailable")
	}
	r.notify()
}

func (r *Reconciler) snapshotLocked() Snapshot {
	return Snapshot{
		ConnectionStatus: r.connStatus,
		Degraded:         r.degraded,
		LastEventAt:      r.lastEventAt,
		Game:             r.g,
		Clock:            r.machine.Snapshot(),
	}
}

func (r *Reconciler) notify() {
	if r.cfg.OnSnapshot == nil {
		return
	}
	r.mu.Lock()
	snap := r.snapshotLocked()
	r.mu.Unlock()
	r.cfg.OnSnapshot(snap)
}

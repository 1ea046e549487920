package stream

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/courtside/internal/live/event"
)

// Config configures one subscription to a game's push channel.
type Config struct {
	BaseURL string
	GameID  string

	// Tokens supplies the bearer token; re-read on every connect attempt
	// so token rotation elsewhere is picked up automatically. Nil means
	// public viewing.
	Tokens TokenProvider

	// Transport defaults to SSETransport.
	Transport Transport

	// Policy defaults to DefaultPolicy.
	Policy Policy

	// Clock drives backoff timers; defaults to the real clock.
	Clock clockwork.Clock

	// OnEvent receives each classified message exactly once, in receipt
	// order. Called from the connection's own goroutine.
	OnEvent func(event.Event)

	// OnStatus is notified of lifecycle transitions with a human-readable
	// reason. Called from the connection's own goroutine, except for the
	// final disconnect on Close which runs on the caller's goroutine
	// after all other callbacks have ceased.
	OnStatus func(status Status, reason string)
}

// Connection is one live subscription. At most one transport handle exists
// at any time; a reconnect closes the failed handle before opening a new
// one. Terminal disconnection (retries exhausted or Close) requires a new
// Dial to resume.
type Connection struct {
	id  uuid.UUID
	cfg Config

	mu               sync.Mutex
	status           Status
	reconnectAttempt int
	lastEventAt      time.Time
	closed           bool

	cancel context.CancelFunc
	done   chan struct{}
}

// Dial constructs the connection and starts connecting immediately. No
// error is returned synchronously: failures surface as status transitions.
func Dial(cfg Config) *Connection {
	if cfg.Transport == nil {
		cfg.Transport = &SSETransport{}
	}
	if cfg.Policy == (Policy{}) {
		cfg.Policy = DefaultPolicy()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		id:     uuid.New(),
		cfg:    cfg,
		status: StatusDisconnected,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go c.run(ctx)
	return c
}

// Close tears the connection down: cancels any pending reconnect timer,
// closes the active transport handle, and settles into disconnected.
// Idempotent; once it returns no further callback fires.
func (c *Connection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	<-c.done

	c.transition(StatusDisconnected, "closed by owner")
}

// Status returns the current lifecycle state.
func (c *Connection) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// ReconnectAttempt returns how many automatic reconnects have been made
// since the last successful connect.
func (c *Connection) ReconnectAttempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnectAttempt
}

// LastEventAt returns the receipt time of the most recent message, zero if
// none has arrived yet.
func (c *Connection) LastEventAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastEventAt
}

// run is the connection's single goroutine: connect, consume until the
// handle dies, back off, repeat until retries are exhausted or the owner
// closes.
func (c *Connection) run(ctx context.Context) {
	defer close(c.done)

	for {
		if ctx.Err() != nil {
			return
		}
		c.transition(StatusConnecting, "")

		token := ""
		if c.cfg.Tokens != nil {
			token = c.cfg.Tokens.Token()
		}

		conn, err := c.cfg.Transport.Connect(ctx, Target{
			BaseURL: c.cfg.BaseURL,
			GameID:  c.cfg.GameID,
			Token:   token,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().
				Err(err).
				Str("connection_id", c.id.String()).
				Str("game_id", c.cfg.GameID).
				Msg("stream connect failed")
			c.transition(StatusError, err.Error())
			if !c.backoff(ctx) {
				return
			}
			continue
		}

		c.transition(StatusConnected, "")
		log.Info().
			Str("connection_id", c.id.String()).
			Str("game_id", c.cfg.GameID).
			Msg("stream connected")

		err = c.consume(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return
		}

		log.Warn().
			Err(err).
			Str("connection_id", c.id.String()).
			Str("game_id", c.cfg.GameID).
			Msg("stream read failed")
		c.transition(StatusError, err.Error())
		if !c.backoff(ctx) {
			return
		}
	}
}

// consume reads frames off a live handle until it fails, classifying each
// message and handing it to the consumer exactly once. A handle that
// outlives the context is closed from the side so a blocked read unwinds.
func (c *Connection) consume(ctx context.Context, conn Conn) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		frame, err := conn.Next()
		if err != nil {
			return err
		}
		if frame.Kind == "" {
			log.Debug().
				Str("connection_id", c.id.String()).
				Msg("dropping frame without event label")
			continue
		}

		ev := event.Event{
			Kind:       event.Kind(frame.Kind),
			Data:       frame.Data,
			ReceivedAt: c.cfg.Clock.Now(),
		}

		c.mu.Lock()
		c.lastEventAt = ev.ReceivedAt
		c.mu.Unlock()

		if c.cfg.OnEvent != nil {
			c.cfg.OnEvent(ev)
		}
	}
}

// backoff schedules the next reconnect. Returns false when retries are
// exhausted (terminal disconnected) or the owner closed the connection.
func (c *Connection) backoff(ctx context.Context) bool {
	c.mu.Lock()
	if c.cfg.Policy.Exhausted(c.reconnectAttempt) {
		c.mu.Unlock()
		c.transition(StatusDisconnected, "reconnect attempts exhausted")
		log.Error().
			Str("connection_id", c.id.String()).
			Str("game_id", c.cfg.GameID).
			Int("attempts", c.cfg.Policy.MaxAttempts).
			Msg("stream reconnect attempts exhausted")
		return false
	}
	c.reconnectAttempt++
	attempt := c.reconnectAttempt
	c.mu.Unlock()

	delay := c.cfg.Policy.Delay(attempt)
	log.Info().
		Str("connection_id", c.id.String()).
		Str("game_id", c.cfg.GameID).
		Int("attempt", attempt).
		Dur("delay", delay).
		Msg("scheduling stream reconnect")

	select {
	case <-c.cfg.Clock.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}

// transition moves the status machine, ignoring moves the transition table
// does not allow (e.g. anything after a terminal disconnect). Resets the
// attempt counter on a successful connect.
func (c *Connection) transition(to Status, reason string) {
	c.mu.Lock()
	from := c.status
	if from == to || !canTransition(from, to) {
		c.mu.Unlock()
		return
	}
	c.status = to
	if to == StatusConnected {
		c.reconnectAttempt = 0
	}
	cb := c.cfg.OnStatus
	c.mu.Unlock()

	log.Debug().
		Str("connection_id", c.id.String()).
		Str("game_id", c.cfg.GameID).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("reason", reason).
		Msg("stream status transition")

	if cb != nil {
		cb(to, reason)
	}
}

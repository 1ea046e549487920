package stream

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"github.com/mcdev12/courtside/internal/live/event"
)

// fakeConn is a scriptable transport handle.
type fakeConn struct {
	frames chan Frame
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan Frame, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) Next() (Frame, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case <-c.closed:
		return Frame{}, errors.New("connection closed")
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// fail simulates a server-side drop.
func (c *fakeConn) fail() { c.Close() }

// fakeTransport records connect attempts and hands out fakeConns.
type fakeTransport struct {
	mu         sync.Mutex
	calls      int
	tokens     []string
	connectErr error
	connected  chan *fakeConn
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{connected: make(chan *fakeConn, 8)}
}

func (t *fakeTransport) Connect(ctx context.Context, target Target) (Conn, error) {
	t.mu.Lock()
	t.calls++
	t.tokens = append(t.tokens, target.Token)
	err := t.connectErr
	t.mu.Unlock()

	if err != nil {
		return nil, err
	}
	c := newFakeConn()
	t.connected <- c
	return c, nil
}

func (t *fakeTransport) connectCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

func (t *fakeTransport) seenTokens() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.tokens...)
}

// rotatingToken returns a different token on each read.
type rotatingToken struct {
	mu     sync.Mutex
	tokens []string
}

func (r *rotatingToken) Token() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok := r.tokens[0]
	if len(r.tokens) > 1 {
		r.tokens = r.tokens[1:]
	}
	return tok
}

func waitConn(t *testing.T, tr *fakeTransport) *fakeConn {
	t.Helper()
	select {
	case c := <-tr.connected:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for transport connect")
		return nil
	}
}

func waitStatus(t *testing.T, ch <-chan Status, want Status) []Status {
	t.Helper()
	var seen []Status
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-ch:
			seen = append(seen, s)
			if s == want {
				return seen
			}
		case <-deadline:
			t.Fatalf("timed out waiting for status %s, saw %v", want, seen)
			return nil
		}
	}
}

func waitEvent(t *testing.T, ch <-chan event.Event) event.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return event.Event{}
	}
}

func TestDeliversEventsInOrderExactlyOnce(t *testing.T) {
	tr := newFakeTransport()
	events := make(chan event.Event, 16)

	c := Dial(Config{
		GameID:    "g1",
		Transport: tr,
		OnEvent:   func(ev event.Event) { events <- ev },
	})
	defer c.Close()

	conn := waitConn(t, tr)
	conn.frames <- Frame{Kind: "goal_scored", Data: json.RawMessage(`{"home_score":1}`)}
	conn.frames <- Frame{Kind: "timer_update", Data: json.RawMessage(`{}`)}
	conn.frames <- Frame{Kind: "score_updated", Data: json.RawMessage(`{}`)}

	first := waitEvent(t, events)
	assert.Equal(t, event.KindGoalScored, first.Kind)
	assert.False(t, first.ReceivedAt.IsZero(), "events are stamped on receipt")
	assert.Equal(t, event.KindTimerUpdate, waitEvent(t, events).Kind)
	assert.Equal(t, event.KindScoreUpdated, waitEvent(t, events).Kind)

	select {
	case ev := <-events:
		t.Fatalf("unexpected extra event %s", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}

	assert.False(t, c.LastEventAt().IsZero())
}

func TestFramesWithoutKindAreDropped(t *testing.T) {
	tr := newFakeTransport()
	events := make(chan event.Event, 16)

	c := Dial(Config{
		GameID:    "g1",
		Transport: tr,
		OnEvent:   func(ev event.Event) { events <- ev },
	})
	defer c.Close()

	conn := waitConn(t, tr)
	conn.frames <- Frame{Kind: "", Data: json.RawMessage(`{}`)}
	conn.frames <- Frame{Kind: "timer_update", Data: json.RawMessage(`{}`)}

	assert.Equal(t, event.KindTimerUpdate, waitEvent(t, events).Kind, "unlabeled frame must be skipped, not delivered")
}

func TestBackoffBoundAndTerminalDisconnect(t *testing.T) {
	tr := newFakeTransport()
	tr.connectErr = errors.New("handshake refused")
	fc := clockwork.NewFakeClock()
	statuses := make(chan Status, 32)

	c := Dial(Config{
		GameID:    "g1",
		Transport: tr,
		Clock:     fc,
		Policy:    DefaultPolicy(),
		OnStatus:  func(s Status, reason string) { statuses <- s },
	})
	defer c.Close()

	// Five reconnect attempts after the initial failure, then terminal.
	for i := 0; i < 5; i++ {
		fc.BlockUntil(1)
		fc.Advance(10 * time.Second)
	}

	seen := waitStatus(t, statuses, StatusDisconnected)
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.Equal(t, 6, tr.connectCalls(), "initial attempt plus five reconnects")

	var errorCount int
	for _, s := range seen {
		if s == StatusError {
			errorCount++
		}
	}
	assert.Equal(t, 6, errorCount)
}

func TestReconnectResetsAttemptAndRereadsToken(t *testing.T) {
	tr := newFakeTransport()
	fc := clockwork.NewFakeClock()
	statuses := make(chan Status, 32)

	c := Dial(Config{
		GameID:    "g1",
		Transport: tr,
		Clock:     fc,
		Tokens:    &rotatingToken{tokens: []string{"token-a", "token-b"}},
		OnStatus:  func(s Status, reason string) { statuses <- s },
	})
	defer c.Close()

	conn := waitConn(t, tr)
	waitStatus(t, statuses, StatusConnected)

	conn.fail()
	waitStatus(t, statuses, StatusError)

	fc.BlockUntil(1)
	fc.Advance(10 * time.Second)

	waitConn(t, tr)
	waitStatus(t, statuses, StatusConnected)

	assert.Equal(t, 0, c.ReconnectAttempt(), "successful connect resets the attempt counter")
	assert.Equal(t, []string{"token-a", "token-b"}, tr.seenTokens(), "token provider is re-read on each attempt")
}

func TestCloseIsIdempotentAndSilencesCallbacks(t *testing.T) {
	tr := newFakeTransport()
	statuses := make(chan Status, 32)

	var mu sync.Mutex
	var callbackCount int

	c := Dial(Config{
		GameID:    "g1",
		Transport: tr,
		OnStatus: func(s Status, reason string) {
			mu.Lock()
			callbackCount++
			mu.Unlock()
			statuses <- s
		},
	})

	waitConn(t, tr)
	waitStatus(t, statuses, StatusConnected)

	c.Close()
	assert.Equal(t, StatusDisconnected, c.Status())

	mu.Lock()
	afterFirst := callbackCount
	mu.Unlock()

	c.Close()
	c.Close()
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	afterRepeat := callbackCount
	mu.Unlock()
	assert.Equal(t, afterFirst, afterRepeat, "repeated Close must not fire further callbacks")
}

func TestCloseCancelsPendingReconnect(t *testing.T) {
	tr := newFakeTransport()
	tr.connectErr = errors.New("handshake refused")
	fc := clockwork.NewFakeClock()

	c := Dial(Config{
		GameID:    "g1",
		Transport: tr,
		Clock:     fc,
	})

	// Park the run loop on its backoff timer, then close underneath it.
	fc.BlockUntil(1)

	done := make(chan struct{})
	go func() {
		c.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on a pending reconnect timer")
	}
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.Equal(t, 1, tr.connectCalls(), "no reconnect after Close")
}

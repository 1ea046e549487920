package stream

import "context"

// Frame is one raw message off the wire: the event-type label and its JSON
// payload, not yet interpreted.
type Frame struct {
	Kind string
	Data []byte
}

// Conn is a single live transport handle. Next blocks until a frame
// arrives; any error it returns is a transport-level failure and ends the
// handle's life (the client closes it and runs the backoff machine).
type Conn interface {
	Next() (Frame, error)
	Close() error
}

// Target identifies the per-game endpoint and carries the bearer token for
// this particular connect attempt. The token is re-read from the provider
// on every attempt, so it is a value here, not a reference.
type Target struct {
	BaseURL string
	GameID  string
	Token   string
}

// Transport opens one handle to a game's push channel. Implementations:
// SSETransport (default wire protocol) and WebSocketTransport (for
// deployments that tunnel the channel over WebSocket).
type Transport interface {
	Connect(ctx context.Context, target Target) (Conn, error)
}

// TokenProvider supplies the current bearer token synchronously on demand.
// The subsystem never mutates tokens; re-reading on each reconnect picks up
// rotations performed elsewhere.
type TokenProvider interface {
	Token() string
}

// StaticToken is a TokenProvider for a fixed token. The empty string means
// unauthenticated public viewing.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
)

// WebSocketTransport tunnels the push channel over a WebSocket for
// deployments whose ingress cannot hold long-lived SSE responses. Frames
// are JSON objects {"event": ..., "data": ...}, the same envelope the SSE
// transport carries in its field lines.
type WebSocketTransport struct {
	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

func (t *WebSocketTransport) Connect(ctx context.Context, target Target) (Conn, error) {
	endpoint, err := streamURL(target, "ws", "wss")
	if err != nil {
		return nil, err
	}

	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake: status %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

// wsEnvelope is the on-wire frame shape over the WebSocket tunnel.
type wsEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (c *wsConn) Next() (Frame, error) {
	for {
		messageType, payload, err := c.conn.ReadMessage()
		if err != nil {
			return Frame{}, err
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var env wsEnvelope
		if err := json.Unmarshal(payload, &env); err != nil {
			// Framing-layer parse failure: the envelope itself is broken,
			// not just one payload. Treat as a transport error.
			return Frame{}, fmt.Errorf("decode frame envelope: %w", err)
		}
		return Frame{Kind: env.Event, Data: env.Data}, nil
	}
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

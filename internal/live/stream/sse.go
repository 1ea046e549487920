package stream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// SSETransport speaks the default wire protocol: Server-Sent Events over a
// plain HTTP GET. The bearer token travels as an access_token query
// parameter because headers are unavailable on this transport.
type SSETransport struct {
	// Client defaults to http.DefaultClient. It must not set a timeout:
	// the stream stays open for the whole match.
	Client *http.Client
}

func (t *SSETransport) Connect(ctx context.Context, target Target) (Conn, error) {
	endpoint, err := streamURL(target, "http", "https")
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("stream handshake: unexpected status %s", resp.Status)
	}

	return &sseConn{body: resp.Body, r: bufio.NewReader(resp.Body)}, nil
}

// streamURL builds the per-game endpoint, rewriting the scheme when the
// transport needs ws/wss instead of http/https.
func streamURL(target Target, plainScheme, tlsScheme string) (string, error) {
	u, err := url.Parse(target.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = plainScheme
	case "https", "wss":
		u.Scheme = tlsScheme
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/games/" + url.PathEscape(target.GameID) + "/stream"
	if target.Token != "" {
		q := u.Query()
		q.Set("access_token", target.Token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

type sseConn struct {
	body io.ReadCloser
	r    *bufio.Reader
}

// Next reads one SSE frame: "event:" and "data:" field lines terminated by
// a blank line. Comment lines (leading colon) are the server's keep-alives
// and are skipped. Read errors — including the body closing on Close — are
// transport errors and end the handle.
func (c *sseConn) Next() (Frame, error) {
	var kind string
	var data bytes.Buffer
	sawField := false

	for {
		line, err := c.r.ReadString('\n')
		if err != nil {
			return Frame{}, err
		}
		line = strings.TrimRight(line, "\r\n")

		switch {
		case line == "":
			if sawField {
				return Frame{Kind: kind, Data: append([]byte(nil), data.Bytes()...)}, nil
			}
			// separator with nothing buffered: keep-alive, keep reading

		case strings.HasPrefix(line, ":"):
			// comment / heartbeat

		case strings.HasPrefix(line, "event:"):
			kind = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			sawField = true

		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
			sawField = true

		default:
			// id:, retry:, unrecognized fields — ignored per SSE semantics
		}
	}
}

func (c *sseConn) Close() error {
	return c.body.Close()
}

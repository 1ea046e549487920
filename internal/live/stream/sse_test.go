package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseConnFrom(input string) *sseConn {
	r := io.NopCloser(strings.NewReader(input))
	return &sseConn{body: r, r: bufio.NewReader(r)}
}

func TestSSEFrameParsing(t *testing.T) {
	conn := sseConnFrom("" +
		": keep-alive\n" +
		"\n" +
		"event: timer_update\n" +
		"data: {\"elapsed\":120}\n" +
		"\n" +
		"event: goal_scored\n" +
		"id: 42\n" +
		"data: {\"home_score\":1,\n" +
		"data: \"away_score\":0}\n" +
		"\n")

	f, err := conn.Next()
	require.NoError(t, err)
	assert.Equal(t, "timer_update", f.Kind)
	assert.Equal(t, `{"elapsed":120}`, string(f.Data))

	f, err = conn.Next()
	require.NoError(t, err)
	assert.Equal(t, "goal_scored", f.Kind)
	assert.Equal(t, "{\"home_score\":1,\n\"away_score\":0}", string(f.Data), "multi-line data joins with newline")

	_, err = conn.Next()
	assert.Error(t, err, "exhausted stream surfaces a transport error")
}

func TestSSEFrameParsingCRLF(t *testing.T) {
	conn := sseConnFrom("event: connected\r\ndata: {}\r\n\r\n")

	f, err := conn.Next()
	require.NoError(t, err)
	assert.Equal(t, "connected", f.Kind)
	assert.Equal(t, "{}", string(f.Data))
}

func TestStreamURL(t *testing.T) {
	tests := []struct {
		name   string
		target Target
		plain  string
		tls    string
		want   string
	}{
		{
			name:   "http with token",
			target: Target{BaseURL: "http://localhost:8085", GameID: "g1", Token: "secret"},
			plain:  "http", tls: "https",
			want: "http://localhost:8085/api/games/g1/stream?access_token=secret",
		},
		{
			name:   "https without token",
			target: Target{BaseURL: "https://live.example.com/dash", GameID: "g2"},
			plain:  "http", tls: "https",
			want: "https://live.example.com/dash/api/games/g2/stream",
		},
		{
			name:   "websocket scheme rewrite",
			target: Target{BaseURL: "https://live.example.com", GameID: "g3", Token: "tok"},
			plain:  "ws", tls: "wss",
			want: "wss://live.example.com/api/games/g3/stream?access_token=tok",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := streamURL(tt.target, tt.plain, tt.tls)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStreamURLRejectsUnknownScheme(t *testing.T) {
	_, err := streamURL(Target{BaseURL: "ftp://example.com", GameID: "g"}, "http", "https")
	assert.Error(t, err)
}

func TestSSETransportHandshake(t *testing.T) {
	type handshake struct {
		token  string
		accept string
	}
	seen := make(chan handshake, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- handshake{
			token:  r.URL.Query().Get("access_token"),
			accept: r.Header.Get("Accept"),
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: connected\ndata: {}\n\n")
	}))
	defer server.Close()

	tr := &SSETransport{}
	conn, err := tr.Connect(context.Background(), Target{BaseURL: server.URL, GameID: "g1", Token: "tok"})
	require.NoError(t, err)
	defer conn.Close()

	hs := <-seen
	assert.Equal(t, "tok", hs.token)
	assert.Equal(t, "text/event-stream", hs.accept)

	f, err := conn.Next()
	require.NoError(t, err)
	assert.Equal(t, "connected", f.Kind)
}

func TestSSETransportNon200Handshake(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
	}))
	defer server.Close()

	tr := &SSETransport{}
	_, err := tr.Connect(context.Background(), Target{BaseURL: server.URL, GameID: "g1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}

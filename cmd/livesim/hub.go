package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// frame is one outbound SSE message.
type frame struct {
	kind string
	data []byte
}

// client is a single subscriber. A slow client whose send buffer fills is
// dropped rather than stalling the broadcast loop.
type client struct {
	id   uuid.UUID
	send chan frame
}

// hub fans scripted events out to every connected subscriber, the same
// register/unregister/broadcast channel shape a WebSocket connection
// manager uses.
type hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan frame
	clients    map[*client]bool
	stopped    chan struct{}
}

func newHub() *hub {
	return &hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan frame, 64),
		clients:    make(map[*client]bool),
		stopped:    make(chan struct{}),
	}
}

func (h *hub) run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			log.Info().
				Str("client_id", c.id.String()).
				Int("total_clients", len(h.clients)).
				Msg("client subscribed")

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				log.Info().
					Str("client_id", c.id.String()).
					Int("total_clients", len(h.clients)).
					Msg("client unsubscribed")
			}

		case f := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- f:
				default:
					delete(h.clients, c)
					close(c.send)
					log.Warn().
						Str("client_id", c.id.String()).
						Msg("client send buffer full, dropping")
				}
			}
		}
	}
}

// serveSSE holds one subscriber's HTTP response open and writes frames as
// they arrive, starting with the initial sync frame.
func (h *hub) serveSSE(w http.ResponseWriter, r *http.Request, initial frame) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	c := &client{id: uuid.New(), send: make(chan frame, 16)}
	select {
	case h.register <- c:
	case <-h.stopped:
		return
	}
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.stopped:
		}
	}()

	writeFrame(w, initial)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case f, ok := <-c.send:
			if !ok {
				return
			}
			writeFrame(w, f)
			flusher.Flush()
		}
	}
}

func writeFrame(w http.ResponseWriter, f frame) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", f.kind, f.data)
}

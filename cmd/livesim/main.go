package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// livesim serves a scripted live match over the real push-channel protocol
// so the clock engine (and the dashboard in front of it) can be exercised
// without a tournament backend. Kill and restart it mid-match to watch the
// client's reconnect backoff in action.
func main() {
	addr := flag.String("addr", ":8085", "listen address")
	gameID := flag.String("game", "demo-game", "game ID to serve")
	matchSeconds := flag.Int("match-seconds", 150, "scripted regulation length")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}
	requiredToken := os.Getenv("LIVESIM_TOKEN")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := newHub()
	sim := newSimulator(h, *gameID, *matchSeconds)
	go h.run(ctx)
	go sim.run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/games/{id}/stream", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != *gameID {
			http.NotFound(w, r)
			return
		}
		if requiredToken != "" && r.URL.Query().Get("access_token") != requiredToken {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		h.serveSSE(w, r, sim.initialFrame())
	})

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}).Handler(mux)

	server := &http.Server{
		Addr:    *addr,
		Handler: handler,
		// No write timeout: the stream response stays open indefinitely.
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("addr", *addr).
		Str("game_id", *gameID).
		Bool("auth", requiredToken != "").
		Msg("livesim listening")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("livesim stopped")
}

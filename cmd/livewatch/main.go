package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/courtside/internal/config"
	"github.com/mcdev12/courtside/internal/live/reconciler"
	"github.com/mcdev12/courtside/internal/live/stream"
)

// livewatch attaches to one live game's push channel and logs every
// snapshot change: the closest thing to the dashboard's clock widget that
// fits in a terminal. Useful for eyeballing reconnect behavior against a
// real server or the livesim tool.
func main() {
	gameID := flag.String("game", "", "game ID to watch (required)")
	configPath := flag.String("config", "config.yaml", "path to config file")
	pretty := flag.Bool("pretty", true, "human-readable log output")
	flag.Parse()

	if *pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	if *gameID == "" {
		log.Fatal().Msg("-game is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	var tokens stream.TokenProvider
	if token := os.Getenv("COURTSIDE_TOKEN"); token != "" {
		tokens = stream.StaticToken(token)
	}

	r := reconciler.New(reconciler.Config{
		BaseURL:          cfg.Stream.BaseURL,
		GameID:           *gameID,
		Tokens:           tokens,
		Transport:        cfg.Stream.NewTransport(),
		Policy:           cfg.Stream.Policy(),
		AllocatedSeconds: cfg.Clock.AllocatedSeconds,
		OnSnapshot:       logSnapshot,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.Attach(ctx)
	log.Info().
		Str("game_id", *gameID).
		Str("base_url", cfg.Stream.BaseURL).
		Str("transport", cfg.Stream.Transport).
		Msg("watching live game")

	<-ctx.Done()
	r.Detach()
	log.Info().Msg("livewatch stopped")
}

func logSnapshot(s reconciler.Snapshot) {
	log.Info().
		Str("connection", string(s.ConnectionStatus)).
		Bool("degraded", s.Degraded).
		Str("status", string(s.Game.Status)).
		Int("home", s.Game.HomeScore).
		Int("away", s.Game.AwayScore).
		Int("elapsed_sec", s.Clock.ElapsedSeconds).
		Int("stoppage_sec", s.Clock.StoppageSeconds).
		Bool("running", s.Clock.Running).
		Bool("stoppage", s.Clock.Stoppage).
		Msg("snapshot")
}

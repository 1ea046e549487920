package main

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/courtside/internal/live/clock"
	"github.com/mcdev12/courtside/internal/live/event"
	"github.com/mcdev12/courtside/internal/live/game"
)

// simulator replays a scripted match against the real wire protocol: kick
// off, goals, one stoppage, periodic timer_update corrections, final
// whistle. It keeps its own authoritative clock machine so corrections are
// internally consistent.
type simulator struct {
	hub *hub
	clk clockwork.Clock

	mu      sync.Mutex
	g       game.Game
	machine *clock.Machine
	seconds int

	matchSeconds int
	syncEvery    int
}

func newSimulator(h *hub, gameID string, matchSeconds int) *simulator {
	return &simulator{
		hub: h,
		clk: clockwork.NewRealClock(),
		g: game.Game{
			ID:       gameID,
			Status:   game.StatusScheduled,
			HomeTeam: "North End FC",
			AwayTeam: "Harbor United",
		},
		machine:      clock.NewMachine(matchSeconds),
		matchSeconds: matchSeconds,
		syncEvery:    10,
	}
}

func (s *simulator) run(ctx context.Context) {
	ticker := s.clk.NewTicker(time.Second)
	defer ticker.Stop()

	log.Info().
		Str("game_id", s.g.ID).
		Int("match_seconds", s.matchSeconds).
		Msg("match script running")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.step()
		}
	}
}

// step advances the script by one wall-clock second.
func (s *simulator) step() {
	s.mu.Lock()
	s.seconds++
	s.machine.Tick()
	t := s.seconds
	live := s.g.Live()
	s.mu.Unlock()

	switch t {
	case 3:
		s.startGame()
	case 20:
		s.scoreGoal(true, "A. Okafor")
	case 40:
		s.startStoppage("injury")
	case 55:
		s.endStoppage(15)
	case 80:
		s.scoreGoal(false, "J. Meirelles")
	}

	s.mu.Lock()
	done := s.g.Status == game.StatusInProgress && s.machine.Snapshot().ElapsedSeconds >= s.matchSeconds
	s.mu.Unlock()
	if done {
		s.endGame()
		return
	}

	if live && t%s.syncEvery == 0 {
		s.emitTimerUpdate()
	}
}

func (s *simulator) startGame() {
	s.mu.Lock()
	s.g.Status = game.StatusInProgress
	s.machine.Start()
	payload := event.GameStartedPayload{
		Game:      s.g,
		Clock:     s.machine.Snapshot(),
		StartedAt: s.clk.Now(),
	}
	s.mu.Unlock()
	s.emit(event.KindGameStarted, payload)
}

func (s *simulator) endGame() {
	s.mu.Lock()
	s.g.Status = game.StatusCompleted
	s.machine.Pause()
	payload := event.GameEndedPayload{
		Game:    s.g,
		Clock:   s.machine.Snapshot(),
		EndedAt: s.clk.Now(),
	}
	s.mu.Unlock()
	s.emit(event.KindGameEnded, payload)
}

func (s *simulator) scoreGoal(home bool, scorer string) {
	s.mu.Lock()
	if !s.g.Live() {
		s.mu.Unlock()
		return
	}
	teamID := "home"
	if home {
		s.g.HomeScore++
	} else {
		s.g.AwayScore++
		teamID = "away"
	}
	payload := event.GoalScoredPayload{
		TeamID:    teamID,
		Scorer:    scorer,
		HomeScore: s.g.HomeScore,
		AwayScore: s.g.AwayScore,
	}
	s.mu.Unlock()
	s.emit(event.KindGoalScored, payload)
}

func (s *simulator) startStoppage(reason string) {
	s.mu.Lock()
	if !s.g.Live() {
		s.mu.Unlock()
		return
	}
	s.machine.StartStoppage()
	s.mu.Unlock()
	s.emit(event.KindStoppageStarted, event.StoppageStartedPayload{
		StartedAt: s.clk.Now(),
		Reason:    reason,
	})
}

func (s *simulator) endStoppage(durationSec int) {
	s.mu.Lock()
	if !s.machine.InStoppage() {
		s.mu.Unlock()
		return
	}
	s.machine.EndStoppage()
	if err := s.machine.AddStoppageTime(durationSec); err != nil {
		log.Warn().Err(err).Msg("bad scripted stoppage duration")
	}
	s.mu.Unlock()
	s.emit(event.KindStoppageEnded, event.StoppageEndedPayload{
		EndedAt:         s.clk.Now(),
		DurationSeconds: durationSec,
	})
}

func (s *simulator) emitTimerUpdate() {
	s.mu.Lock()
	payload := event.TimerUpdatePayload{
		Clock:    s.machine.Snapshot(),
		ServerAt: s.clk.Now(),
	}
	s.mu.Unlock()
	s.emit(event.KindTimerUpdate, payload)
}

// initialFrame is the connected sync sent to each new subscriber.
func (s *simulator) initialFrame() frame {
	s.mu.Lock()
	payload := event.ConnectedPayload{
		Game:  s.g,
		Clock: s.machine.Snapshot(),
	}
	s.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal connected payload")
		data = []byte("{}")
	}
	return frame{kind: string(event.KindConnected), data: data}
}

func (s *simulator) emit(kind event.Kind, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("kind", string(kind)).Msg("failed to marshal event payload")
		return
	}
	select {
	case s.hub.broadcast <- frame{kind: string(kind), data: data}:
		log.Info().Str("kind", string(kind)).Msg("event emitted")
	default:
		log.Warn().Str("kind", string(kind)).Msg("broadcast channel full, dropping event")
	}
}

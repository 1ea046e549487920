package event

import (
	"encoding/json"
	"time"

	"github.com/mcdev12/courtside/internal/live/clock"
	"github.com/mcdev12/courtside/internal/live/game"
)

// Kind labels a stream event. The payload shape is determined entirely by
// the kind; unknown kinds are ignored by consumers, never fatal.
type Kind string

const (
	KindConnected       Kind = "connected"
	KindGameStarted     Kind = "game_started"
	KindGameEnded       Kind = "game_ended"
	KindGoalScored      Kind = "goal_scored"
	KindScoreUpdated    Kind = "score_updated"
	KindStoppageStarted Kind = "stoppage_started"
	KindStoppageEnded   Kind = "stoppage_ended"
	KindTimerUpdate     Kind = "timer_update"
)

// Event is one message received from a game's push channel. Data is the
// kind-specific JSON payload, untouched until ParsePayload. ReceivedAt is
// stamped by the stream client on receipt.
type Event struct {
	Kind       Kind            `json:"event"`
	Data       json.RawMessage `json:"data"`
	ReceivedAt time.Time       `json:"received_at"`
}

// ConnectedPayload is the initial sync sent by the server right after the
// subscription is accepted: the full game record plus the current clock.
type ConnectedPayload struct {
	Game  game.Game      `json:"game"`
	Clock clock.Snapshot `json:"clock"`
}

// GameStartedPayload announces the match going in-progress.
type GameStartedPayload struct {
	Game      game.Game      `json:"game"`
	Clock     clock.Snapshot `json:"clock"`
	StartedAt time.Time      `json:"started_at"`
}

// GameEndedPayload announces the final whistle.
type GameEndedPayload struct {
	Game    game.Game      `json:"game"`
	Clock   clock.Snapshot `json:"clock"`
	EndedAt time.Time      `json:"ended_at"`
}

// GoalScoredPayload carries a single goal and the resulting score line.
type GoalScoredPayload struct {
	TeamID    string `json:"team_id"`
	Scorer    string `json:"scorer,omitempty"`
	HomeScore int    `json:"home_score"`
	AwayScore int    `json:"away_score"`
}

// ScoreUpdatedPayload is the echo of an administrative score override.
type ScoreUpdatedPayload struct {
	HomeScore int `json:"home_score"`
	AwayScore int `json:"away_score"`
}

// StoppageStartedPayload marks the beginning of a stoppage.
type StoppageStartedPayload struct {
	StartedAt time.Time `json:"started_at"`
	Reason    string    `json:"reason,omitempty"`
}

// StoppageEndedPayload marks the end of a stoppage. DurationSeconds is the
// server-confirmed length of the completed stoppage; zero when the server
// did not measure it.
type StoppageEndedPayload struct {
	EndedAt         time.Time `json:"ended_at"`
	DurationSeconds int       `json:"duration_seconds,omitempty"`
}

// TimerUpdatePayload is the periodic authoritative correction that keeps
// local prediction from drifting. It doubles as the channel heartbeat.
type TimerUpdatePayload struct {
	Clock    clock.Snapshot `json:"clock"`
	ServerAt time.Time      `json:"server_at"`
}

// ParsePayload decodes an event's data into the payload struct for its
// kind. Unknown kinds return (nil, nil) so callers can skip them without
// treating them as errors.
func ParsePayload(e Event) (interface{}, error) {
	switch e.Kind {
	case KindConnected:
		var p ConnectedPayload
		if err := json.Unmarshal(e.Data, &p); err != nil {
			return nil, err
		}
		return p, nil

	case KindGameStarted:
		var p GameStartedPayload
		if err := json.Unmarshal(e.Data, &p); err != nil {
			return nil, err
		}
		return p, nil

	case KindGameEnded:
		var p GameEndedPayload
		if err := json.Unmarshal(e.Data, &p); err != nil {
			return nil, err
		}
		return p, nil

	case KindGoalScored:
		var p GoalScoredPayload
		if err := json.Unmarshal(e.Data, &p); err != nil {
			return nil, err
		}
		return p, nil

	case KindScoreUpdated:
		var p ScoreUpdatedPayload
		if err := json.Unmarshal(e.Data, &p); err != nil {
			return nil, err
		}
		return p, nil

	case KindStoppageStarted:
		var p StoppageStartedPayload
		if err := json.Unmarshal(e.Data, &p); err != nil {
			return nil, err
		}
		return p, nil

	case KindStoppageEnded:
		var p StoppageEndedPayload
		if err := json.Unmarshal(e.Data, &p); err != nil {
			return nil, err
		}
		return p, nil

	case KindTimerUpdate:
		var p TimerUpdatePayload
		if err := json.Unmarshal(e.Data, &p); err != nil {
			return nil, err
		}
		return p, nil

	default:
		return nil, nil // unknown kind
	}
}

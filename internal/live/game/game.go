package game

// Status is the lifecycle state of a match as reported by the server.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Game is the slice of the game record this subsystem cares about: identity,
// lifecycle status, and the score line. Everything else (venue, rosters,
// approvals) lives in the CRUD API and never reaches the push channel.
type Game struct {
	ID        string `json:"id"`
	Status    Status `json:"status"`
	HomeTeam  string `json:"home_team"`
	AwayTeam  string `json:"away_team"`
	HomeScore int    `json:"home_score"`
	AwayScore int    `json:"away_score"`
}

// Live reports whether the match is in progress, which is the only state in
// which local ticking is meaningful.
func (g Game) Live() bool {
	return g.Status == StatusInProgress
}

// ApplyScore overwrites the score line. Score events must never touch
// match time, so nothing else is reachable from here.
func (g *Game) ApplyScore(home, away int) {
	g.HomeScore = home
	g.AwayScore = away
}

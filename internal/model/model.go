package model

import "time"

// Match status values.
const (
	StatusRunning  = "running"
	StatusFinished = "finished"
	StatusAborted  = "aborted"
)

// Match is one AI-vs-AI game.
type Match struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Scenario     string        `json:"scenario"`
	ScenarioHash string        `json:"scenario_hash"`
	Seed         int64         `json:"seed"`
	Status       string        `json:"status"`
	Winner       int           `json:"winner"` // 0 = draw
	DurationMs   int64         `json:"duration_ms"`
	Ticks        int           `json:"ticks"`
	Captures     int           `json:"captures"`
	CreatedAt    time.Time     `json:"created_at"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
	Players      []MatchPlayer `json:"players,omitempty"`
}

// MatchPlayer is a player's seat in a match.
type MatchPlayer struct {
	MatchID  string `json:"match_id"`
	PlayerID int    `json:"player_id"`
	Name     string `json:"name"`
	Profile  string `json:"profile"`
	Planets  int    `json:"planets"`
}

// MatchEvent is one entry of a match timeline.
type MatchEvent struct {
	AtMs     int64  `json:"at_ms"`
	Type     string `json:"type"`
	Planet   int    `json:"planet"`
	Player   int    `json:"player"`
	Opponent int    `json:"opponent"`
}

// MatchSnapshot is the live view of a running match shown to spectators.
type MatchSnapshot struct {
	MatchID string       `json:"match_id"`
	AtMs    int64        `json:"at_ms"`
	Tick    int          `json:"tick"`
	Planets []PlanetView `json:"planets"`
	Fleets  []FleetView  `json:"fleets"`
}

// PlanetView is a planet as shown in a snapshot.
type PlanetView struct {
	ID           int     `json:"id"`
	Owner        int     `json:"owner"`
	Size         float64 `json:"size"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Units        int     `json:"units"`
	Defense      float64 `json:"defense"`
	Buildings    int     `json:"buildings"`
	Constructing bool    `json:"constructing"`
}

// FleetView is a fleet as shown in a snapshot.
type FleetView struct {
	ID    int     `json:"id"`
	Owner int     `json:"owner"`
	Type  int     `json:"type"`
	Count int     `json:"count"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Dest  int     `json:"dest"`
}

// Standing is a planner profile's win count.
type Standing struct {
	Profile string `json:"profile"`
	Wins    int64  `json:"wins"`
}

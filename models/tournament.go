package models

import "time"

// TournamentStatus mirrors the ENUM in the database.
type TournamentStatus string

const (
	StatusRegistration TournamentStatus = "registration"
	StatusActive       TournamentStatus = "active"
	StatusPlayoffs     TournamentStatus = "playoffs"
	StatusCompleted    TournamentStatus = "completed"
	StatusCanceled     TournamentStatus = "canceled"
)

type Tournament struct {
	ID   int    `json:"id"`
	Name string `json:"name"`

	Status TournamentStatus `json:"status"`

	// CurrentRound is the latest round with generated pairings, 0 before
	// round 1. MaxRounds tracks the highest round ever generated.
	CurrentRound int `json:"current_round"`
	MaxRounds    int `json:"max_rounds"`

	// BracketSize is the configured qualification cut for the elimination
	// stage (top N by rank).
	BracketSize int `json:"bracket_size"`

	CreatedAt time.Time `json:"created_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Entrant is one competitor registered for one tournament. The backing user
// account lives in an external system and is referenced by UserRef only.
type Entrant struct {
	ID           int       `json:"id"`
	TournamentID int       `json:"tournament_id"`
	UserRef      uuid.UUID `json:"user_ref"`

	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Draws  int `json:"draws"`
	Points int `json:"points"`

	// OMW is the opponents'-match-win percentage with the 0.33 per-opponent
	// floor applied; AverageOMW is the unfloored variant, used only as the
	// lowest-priority tie-break.
	OMW        float64 `json:"omw"`
	AverageOMW float64 `json:"average_omw"`

	// GameWins currently equals Wins. Kept as a separate column so game-level
	// scoring can diverge later without a schema change.
	GameWins int `json:"game_wins"`

	// Rank is 1-based; 0 means unranked.
	Rank int `json:"rank"`

	CheckedIn bool `json:"checked_in"`
	Dropped   bool `json:"dropped"`
	Cancelled bool `json:"cancelled"`

	CreatedAt time.Time `json:"created_at"`
}

// Eligible reports whether the entrant participates in pairing and standings.
func (e *Entrant) Eligible() bool {
	return e.CheckedIn && !e.Dropped && !e.Cancelled
}

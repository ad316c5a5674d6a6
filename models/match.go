package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchResult is the closed vocabulary of reportable outcomes.
type MatchResult string

const (
	ResultPlayer1  MatchResult = "player1"
	ResultPlayer2  MatchResult = "player2"
	ResultDraw     MatchResult = "draw"
	ResultBothLoss MatchResult = "both_loss"
)

func (r MatchResult) Valid() bool {
	switch r {
	case ResultPlayer1, ResultPlayer2, ResultDraw, ResultBothLoss:
		return true
	}
	return false
}

// Match is one scheduled pairing within one round of a tournament.
// Player1ID == Player2ID denotes a synthetic bye, auto-resolved for player1.
type Match struct {
	ID           int `json:"id"`
	TournamentID int `json:"tournament_id"`
	Round        int `json:"round"`
	MatchNumber  int `json:"match_number"`
	TableNumber  int `json:"table_number"`

	Player1ID int `json:"player1_id"`
	Player2ID int `json:"player2_id"`

	Result     *MatchResult `json:"result,omitempty"`
	ReportedBy *uuid.UUID   `json:"reported_by,omitempty"`
	ReportedAt *time.Time   `json:"reported_at,omitempty"`

	// IsTournamentMatch is false while the round is only a preview. Preview
	// matches still count as opponent history for pairing.
	IsTournamentMatch bool `json:"is_tournament_match"`

	CreatedAt time.Time `json:"created_at"`
}

func (m *Match) IsBye() bool {
	return m.Player1ID == m.Player2ID
}

func (m *Match) Involves(entrantID int) bool {
	return m.Player1ID == entrantID || m.Player2ID == entrantID
}

package brackets

import (
	"context"

	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/models"
)

// GenerateBracketParams carries a ranked cut of entrants, best rank first.
type GenerateBracketParams struct {
	Tournament *models.Tournament
	Entrants   []*models.Entrant
}

// BracketPairing is one seeded first-round pairing, before it becomes a
// persisted Match.
type BracketPairing struct {
	OrderInRound int

	Seed1, Seed2 int

	Entrant1ID int
	Entrant2ID int
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketPairing, error)

	GetName() string
}

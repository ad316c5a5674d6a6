package brackets

import (
	"context"
	"errors"
	"fmt"
)

// SeededEliminationGenerator builds the first elimination round from a ranked
// cut: seed i meets seed N-1-i, so 1 plays N, 2 plays N-1, and so on. Later
// rounds are driven by reported results, not generated here.
type SeededEliminationGenerator struct {
}

func NewSeededEliminationGenerator() BracketGenerator {
	return &SeededEliminationGenerator{}
}

func (g *SeededEliminationGenerator) GetName() string {
	return "SeededElimination"
}

func (g *SeededEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketPairing, error) {
	entrants := params.Entrants
	n := len(entrants)

	if n < 2 {
		return nil, errors.New("cannot seed an elimination bracket with fewer than 2 entrants")
	}
	if n%2 != 0 {
		return nil, fmt.Errorf("elimination bracket size must be even, got %d", n)
	}

	pairings := make([]*BracketPairing, 0, n/2)
	for i := 0; i < n/2; i++ {
		j := n - 1 - i
		pairings = append(pairings, &BracketPairing{
			OrderInRound: i + 1,
			Seed1:        i + 1,
			Seed2:        j + 1,
			Entrant1ID:   entrants[i].ID,
			Entrant2ID:   entrants[j].ID,
		})
	}
	return pairings, nil
}

package services

import (
	"context"
	"testing"

	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedFinishedSwiss plays three rounds where each odd-positioned entrant
// beats their neighbor, then recomputes standings so every entrant is ranked.
func seedFinishedSwiss(t *testing.T, e *engine, entrants []*models.Entrant) {
	t.Helper()
	number := 1
	for round := 1; round <= 3; round++ {
		for i := 0; i < len(entrants); i += 2 {
			e.playMatch(tourneyID, round, number, entrants[i].ID, entrants[i+1].ID, models.ResultPlayer1)
			number++
		}
	}
	require.NoError(t, e.standings.RecomputeStandings(context.Background(), tourneyID))
}

func TestGenerateTournamentBracket(t *testing.T) {
	ctx := context.Background()
	tournament := testTournament()
	tournament.BracketSize = 8
	e := newEngine(t, tournament)
	entrants := e.addEntrants(tourneyID, 8)
	seedFinishedSwiss(t, e, entrants)

	matches, err := e.bracket.GenerateTournamentBracket(ctx, tourneyID)
	require.NoError(t, err)
	require.Len(t, matches, 4)

	// Ranks from the seeded Swiss: entrant order tracks seed order. Seed 1
	// meets seed 8, seed 2 meets seed 7, and so on.
	seedOf := make(map[int]int, len(entrants))
	for _, en := range entrants {
		got, err := e.entrants.GetByID(ctx, en.ID)
		require.NoError(t, err)
		seedOf[en.ID] = got.Rank
	}
	for i, m := range matches {
		assert.Equal(t, i+1, seedOf[m.Player1ID])
		assert.Equal(t, 8-i, seedOf[m.Player2ID])
		assert.Equal(t, i+1, m.MatchNumber)
		assert.Equal(t, 4, m.Round, "bracket sits above the three Swiss rounds")
		assert.True(t, m.IsTournamentMatch)
	}

	got, err := e.tournaments.GetByID(ctx, tourneyID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPlayoffs, got.Status)
	assert.Equal(t, 4, got.CurrentRound)
}

func TestGenerateTournamentBracketIncompleteField(t *testing.T) {
	ctx := context.Background()

	t.Run("bracket size not configured", func(t *testing.T) {
		e := newEngine(t, testTournament())
		e.addEntrants(tourneyID, 8)
		_, err := e.bracket.GenerateTournamentBracket(ctx, tourneyID)
		assert.ErrorIs(t, err, ErrIncompleteField)
	})

	t.Run("fewer ranked entrants than the cut", func(t *testing.T) {
		tournament := testTournament()
		tournament.BracketSize = 8
		e := newEngine(t, tournament)
		entrants := e.addEntrants(tourneyID, 6)
		e.playMatch(tourneyID, 1, 1, entrants[0].ID, entrants[1].ID, models.ResultPlayer1)
		require.NoError(t, e.standings.RecomputeStandings(ctx, tourneyID))

		_, err := e.bracket.GenerateTournamentBracket(ctx, tourneyID)
		assert.ErrorIs(t, err, ErrIncompleteField)
	})
}

func TestTournamentReset(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, testTournament())
	entrants := e.addEntrants(tourneyID, 4)
	seedFinishedSwiss(t, e, entrants[:4])

	require.NoError(t, e.tournament.ResetTournament(ctx, tourneyID))

	stored, err := e.matches.ListByTournament(ctx, tourneyID, matchRoundFilter(1))
	require.NoError(t, err)
	assert.Empty(t, stored)
	for _, en := range entrants {
		got, err := e.entrants.GetByID(ctx, en.ID)
		require.NoError(t, err)
		assert.Zero(t, got.Wins)
		assert.Zero(t, got.Points)
		assert.Zero(t, got.Rank)
	}
	tournament, err := e.tournaments.GetByID(ctx, tourneyID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRegistration, tournament.Status)
	assert.Zero(t, tournament.CurrentRound)
}

func TestActivateRound(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, testTournament())
	e.addEntrants(tourneyID, 4)
	_, err := e.pairing.GeneratePairings(ctx, tourneyID, 1)
	require.NoError(t, err)

	require.NoError(t, e.tournament.ActivateRound(ctx, tourneyID, 1))

	stored, err := e.matches.ListByTournament(ctx, tourneyID, matchRoundFilter(1))
	require.NoError(t, err)
	require.NotEmpty(t, stored)
	for _, m := range stored {
		assert.True(t, m.IsTournamentMatch)
	}
}

func TestDropEntrant(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, testTournament())
	entrants := e.addEntrants(tourneyID, 2)

	require.NoError(t, e.tournament.DropEntrant(ctx, tourneyID, entrants[0].ID))
	got, err := e.entrants.GetByID(ctx, entrants[0].ID)
	require.NoError(t, err)
	assert.True(t, got.Dropped)

	err = e.tournament.DropEntrant(ctx, 2, entrants[1].ID)
	assert.ErrorIs(t, err, ErrEntrantTournamentMismatch)

	err = e.tournament.DropEntrant(ctx, tourneyID, 999)
	assert.ErrorIs(t, err, ErrEntrantNotFound)
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/brackets"
	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/models"
	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/repositories"
	"golang.org/x/sync/errgroup"
)

// omwFloor is the standard "bye/weak opponent" correction: no single opponent
// can contribute a match-win percentage below this to the tie-break.
const omwFloor = 0.33

const defaultStandingsBatchSize = 8

type StandingsService interface {
	// RecomputeStandings rebuilds every eligible entrant's tallies, tie-breaks
	// and rank from the tournament's completed matches. Idempotent.
	RecomputeStandings(ctx context.Context, tournamentID int) error
	ListStandings(ctx context.Context, tournamentID int) ([]*models.Entrant, error)
}

type standingsService struct {
	entrantRepo repositories.EntrantRepository
	matchRepo   repositories.MatchRepository
	batchSize   int
	hub         *brackets.Hub
	logger      *slog.Logger
}

func NewStandingsService(
	entrantRepo repositories.EntrantRepository,
	matchRepo repositories.MatchRepository,
	batchSize int,
	hub *brackets.Hub,
	logger *slog.Logger,
) StandingsService {
	if batchSize <= 0 {
		batchSize = defaultStandingsBatchSize
	}
	return &standingsService{
		entrantRepo: entrantRepo,
		matchRepo:   matchRepo,
		batchSize:   batchSize,
		hub:         hub,
		logger:      logger,
	}
}

// tally accumulates one entrant's record over completed matches. Byes bump
// wins/points but never enter matches or opponents, so they stay out of the
// opponents'-match-win math.
type tally struct {
	wins, losses, draws, points int
	matches                     int
	opponents                   map[int]struct{}
}

func newTally() *tally {
	return &tally{opponents: make(map[int]struct{})}
}

func (t *tally) record(result models.MatchResult, asPlayer1 bool, opponentID int) {
	t.matches++
	t.opponents[opponentID] = struct{}{}
	switch result {
	case models.ResultPlayer1:
		if asPlayer1 {
			t.wins++
			t.points += 3
		} else {
			t.losses++
		}
	case models.ResultPlayer2:
		if asPlayer1 {
			t.losses++
		} else {
			t.wins++
			t.points += 3
		}
	case models.ResultDraw:
		t.draws++
		t.points++
	case models.ResultBothLoss:
		t.losses++
	}
}

func (s *standingsService) RecomputeStandings(ctx context.Context, tournamentID int) error {
	entrants, err := s.entrantRepo.ListByTournament(ctx, tournamentID, repositories.EntrantFilter{EligibleOnly: true})
	if err != nil {
		return fmt.Errorf("standings: failed to list entrants for tournament %d: %w", tournamentID, err)
	}
	if len(entrants) == 0 {
		return nil
	}

	withResult := true
	completed, err := s.matchRepo.ListByTournament(ctx, tournamentID, repositories.MatchFilter{WithResult: &withResult})
	if err != nil {
		return fmt.Errorf("standings: failed to list completed matches for tournament %d: %w", tournamentID, err)
	}

	// Tallies are built for every entrant that appears in a completed match,
	// not only eligible ones: a dropped opponent still feeds into the
	// opponents'-match-win percentage of the entrants who beat or lost to them.
	tallies := make(map[int]*tally)
	byeWins := make(map[int]int)
	for _, m := range completed {
		if m.IsBye() {
			byeWins[m.Player1ID]++
			continue
		}
		t1, ok := tallies[m.Player1ID]
		if !ok {
			t1 = newTally()
			tallies[m.Player1ID] = t1
		}
		t2, ok := tallies[m.Player2ID]
		if !ok {
			t2 = newTally()
			tallies[m.Player2ID] = t2
		}
		t1.record(*m.Result, true, m.Player2ID)
		t2.record(*m.Result, false, m.Player1ID)
	}

	stats := make(map[int]repositories.EntrantStats, len(entrants))
	for _, e := range entrants {
		t := tallies[e.ID]
		if t == nil {
			t = newTally()
		}

		es := repositories.EntrantStats{
			Wins:   t.wins + byeWins[e.ID],
			Losses: t.losses,
			Draws:  t.draws,
			Points: t.points + 3*byeWins[e.ID],
		}
		es.GameWins = es.Wins

		var flooredSum, rawSum float64
		opponentsCounted := 0
		for opponentID := range t.opponents {
			opp := tallies[opponentID]
			if opp == nil || opp.matches == 0 {
				continue
			}
			mw := float64(opp.points) / float64(opp.matches*3)
			rawSum += mw
			if mw < omwFloor {
				mw = omwFloor
			}
			flooredSum += mw
			opponentsCounted++
		}
		if opponentsCounted > 0 {
			es.OMW = flooredSum / float64(opponentsCounted)
			es.AverageOMW = rawSum / float64(opponentsCounted)
		}
		stats[e.ID] = es
	}

	// Rank: points, then floored OMW, then game wins, then unfloored OMW, all
	// descending. Entrant id ascending keeps recomputation deterministic.
	ranked := make([]*models.Entrant, len(entrants))
	copy(ranked, entrants)
	sort.Slice(ranked, func(i, j int) bool {
		si, sj := stats[ranked[i].ID], stats[ranked[j].ID]
		if si.Points != sj.Points {
			return si.Points > sj.Points
		}
		if si.OMW != sj.OMW {
			return si.OMW > sj.OMW
		}
		if si.GameWins != sj.GameWins {
			return si.GameWins > sj.GameWins
		}
		if si.AverageOMW != sj.AverageOMW {
			return si.AverageOMW > sj.AverageOMW
		}
		return ranked[i].ID < ranked[j].ID
	})
	for pos, e := range ranked {
		es := stats[e.ID]
		es.Rank = pos + 1
		stats[e.ID] = es
	}

	// Per-entrant updates are independent; the batch size only bounds
	// concurrency against the store, never the result.
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchSize)
	for _, e := range ranked {
		e := e
		g.Go(func() error {
			if err := s.entrantRepo.UpdateStats(gCtx, nil, e.ID, stats[e.ID]); err != nil {
				return fmt.Errorf("standings: failed to persist stats for entrant %d: %w", e.ID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.logger.Debug("standings recomputed",
		slog.Int("tournament_id", tournamentID),
		slog.Int("entrants", len(ranked)),
		slog.Int("completed_matches", len(completed)))
	if s.hub != nil {
		s.hub.BroadcastTournament(tournamentID, brackets.EventStandingsUpdated, nil)
	}
	return nil
}

func (s *standingsService) ListStandings(ctx context.Context, tournamentID int) ([]*models.Entrant, error) {
	entrants, err := s.entrantRepo.ListByTournament(ctx, tournamentID, repositories.EntrantFilter{EligibleOnly: true})
	if err != nil {
		return nil, fmt.Errorf("standings: failed to list entrants for tournament %d: %w", tournamentID, err)
	}
	sort.Slice(entrants, func(i, j int) bool {
		ri, rj := entrants[i].Rank, entrants[j].Rank
		if ri == 0 {
			return false
		}
		if rj == 0 {
			return true
		}
		return ri < rj
	})
	return entrants, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/brackets"
	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/models"
	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/repositories"
)

type BracketService interface {
	// GenerateTournamentBracket seeds the elimination stage from final
	// standings: the top BracketSize entrants, seed 1 against seed N and so
	// on, at a round strictly above every Swiss round. Returns
	// ErrIncompleteField when the cut cannot be filled.
	GenerateTournamentBracket(ctx context.Context, tournamentID int) ([]*models.Match, error)
}

type bracketService struct {
	tx             TxRunner
	entrantRepo    repositories.EntrantRepository
	matchRepo      repositories.MatchRepository
	tournamentRepo repositories.TournamentRepository
	queue          *StandingsQueue
	locks          *LockTable
	generator      brackets.BracketGenerator
	hub            *brackets.Hub
	logger         *slog.Logger
}

func NewBracketService(
	tx TxRunner,
	entrantRepo repositories.EntrantRepository,
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	queue *StandingsQueue,
	locks *LockTable,
	hub *brackets.Hub,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		tx:             tx,
		entrantRepo:    entrantRepo,
		matchRepo:      matchRepo,
		tournamentRepo: tournamentRepo,
		queue:          queue,
		locks:          locks,
		generator:      brackets.NewSeededEliminationGenerator(),
		hub:            hub,
		logger:         logger,
	}
}

func (s *bracketService) GenerateTournamentBracket(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	if err := s.queue.Wait(ctx, tournamentID); err != nil {
		return nil, err
	}
	unlock := s.locks.Acquire(tournamentID)
	defer unlock()

	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrTournamentNotFound, tournamentID)
		}
		return nil, err
	}
	cut := tournament.BracketSize
	if cut < 2 {
		return nil, fmt.Errorf("%w: tournament %d has bracket size %d",
			ErrIncompleteField, tournamentID, cut)
	}

	entrants, err := s.entrantRepo.ListByTournament(ctx, tournamentID, repositories.EntrantFilter{EligibleOnly: true})
	if err != nil {
		return nil, fmt.Errorf("bracket: failed to list entrants of tournament %d: %w", tournamentID, err)
	}
	ranked := make([]*models.Entrant, 0, len(entrants))
	for _, e := range entrants {
		if e.Rank > 0 {
			ranked = append(ranked, e)
		}
	}
	if len(ranked) < cut {
		return nil, fmt.Errorf("%w: tournament %d needs %d ranked entrants, has %d",
			ErrIncompleteField, tournamentID, cut, len(ranked))
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Rank < ranked[j].Rank })

	pairings, err := s.generator.GenerateBracket(ctx, brackets.GenerateBracketParams{
		Tournament: tournament,
		Entrants:   ranked[:cut],
	})
	if err != nil {
		return nil, fmt.Errorf("bracket: failed to seed tournament %d: %w", tournamentID, err)
	}

	maxSwissRound, err := s.matchRepo.MaxRound(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	bracketRound := maxSwissRound + 1

	matches := make([]*models.Match, 0, len(pairings))
	for _, p := range pairings {
		matches = append(matches, &models.Match{
			TournamentID:      tournamentID,
			Round:             bracketRound,
			MatchNumber:       p.OrderInRound,
			TableNumber:       p.OrderInRound,
			Player1ID:         p.Entrant1ID,
			Player2ID:         p.Entrant2ID,
			IsTournamentMatch: true,
		})
	}

	maxRounds := tournament.MaxRounds
	if bracketRound > maxRounds {
		maxRounds = bracketRound
	}
	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.matchRepo.CreateBatch(ctx, exec, matches); err != nil {
			return err
		}
		if err := s.tournamentRepo.UpdateRoundState(ctx, exec, tournamentID, bracketRound, maxRounds); err != nil {
			return err
		}
		return s.tournamentRepo.UpdateStatus(ctx, exec, tournamentID, models.StatusPlayoffs)
	})
	if err != nil {
		return nil, fmt.Errorf("bracket: failed to persist round %d of tournament %d: %w",
			bracketRound, tournamentID, err)
	}

	s.logger.Info("elimination bracket generated",
		slog.Int("tournament_id", tournamentID),
		slog.Int("round", bracketRound),
		slog.Int("cut", cut))
	if s.hub != nil {
		s.hub.BroadcastTournament(tournamentID, brackets.EventBracketGenerated, matches)
	}
	return matches, nil
}

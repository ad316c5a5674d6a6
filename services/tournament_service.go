package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/brackets"
	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/models"
	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/repositories"
)

type TournamentService interface {
	GetTournament(ctx context.Context, id int) (*models.Tournament, error)
	// ActivateRound flips a generated round from preview to live.
	ActivateRound(ctx context.Context, tournamentID, round int) error
	// ResetTournament rewinds to the pre-round-1 state: every match deleted,
	// every entrant's stats zeroed, round counters cleared.
	ResetTournament(ctx context.Context, tournamentID int) error
	// DropEntrant removes an entrant from future pairings without touching
	// their played matches.
	DropEntrant(ctx context.Context, tournamentID, entrantID int) error
}

type tournamentService struct {
	tx             TxRunner
	tournamentRepo repositories.TournamentRepository
	entrantRepo    repositories.EntrantRepository
	matchRepo      repositories.MatchRepository
	locks          *LockTable
	hub            *brackets.Hub
	logger         *slog.Logger
}

func NewTournamentService(
	tx TxRunner,
	tournamentRepo repositories.TournamentRepository,
	entrantRepo repositories.EntrantRepository,
	matchRepo repositories.MatchRepository,
	locks *LockTable,
	hub *brackets.Hub,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		entrantRepo:    entrantRepo,
		matchRepo:      matchRepo,
		locks:          locks,
		hub:            hub,
		logger:         logger,
	}
}

func (s *tournamentService) GetTournament(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrTournamentNotFound, id)
		}
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) ActivateRound(ctx context.Context, tournamentID, round int) error {
	unlock := s.locks.Acquire(tournamentID)
	defer unlock()

	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return fmt.Errorf("%w: id %d", ErrTournamentNotFound, tournamentID)
		}
		return err
	}
	if err := s.matchRepo.ActivateRound(ctx, nil, tournamentID, round); err != nil {
		return err
	}

	s.logger.Info("round activated",
		slog.Int("tournament_id", tournamentID),
		slog.Int("round", round))
	if s.hub != nil {
		s.hub.BroadcastTournament(tournamentID, brackets.EventRoundActivated, map[string]int{"round": round})
	}
	return nil
}

func (s *tournamentService) ResetTournament(ctx context.Context, tournamentID int) error {
	unlock := s.locks.Acquire(tournamentID)
	defer unlock()

	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return fmt.Errorf("%w: id %d", ErrTournamentNotFound, tournamentID)
		}
		return err
	}

	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.matchRepo.DeleteByTournament(ctx, exec, tournamentID); err != nil {
			return err
		}
		if err := s.entrantRepo.ResetStats(ctx, exec, tournamentID); err != nil {
			return err
		}
		if err := s.tournamentRepo.UpdateRoundState(ctx, exec, tournamentID, 0, 0); err != nil {
			return err
		}
		return s.tournamentRepo.UpdateStatus(ctx, exec, tournamentID, models.StatusRegistration)
	})
	if err != nil {
		return fmt.Errorf("failed to reset tournament %d: %w", tournamentID, err)
	}

	s.logger.Info("tournament reset", slog.Int("tournament_id", tournamentID))
	if s.hub != nil {
		s.hub.BroadcastTournament(tournamentID, brackets.EventTournamentReset, nil)
	}
	return nil
}

func (s *tournamentService) DropEntrant(ctx context.Context, tournamentID, entrantID int) error {
	entrant, err := s.entrantRepo.GetByID(ctx, entrantID)
	if err != nil {
		if errors.Is(err, repositories.ErrEntrantNotFound) {
			return fmt.Errorf("%w: id %d", ErrEntrantNotFound, entrantID)
		}
		return err
	}
	if entrant.TournamentID != tournamentID {
		return fmt.Errorf("%w: entrant %d belongs to tournament %d, not %d",
			ErrEntrantTournamentMismatch, entrantID, entrant.TournamentID, tournamentID)
	}

	unlock := s.locks.Acquire(tournamentID)
	defer unlock()

	if err := s.entrantRepo.SetDropped(ctx, nil, entrantID, true); err != nil {
		return err
	}
	s.logger.Info("entrant dropped",
		slog.Int("tournament_id", tournamentID),
		slog.Int("entrant_id", entrantID))
	return nil
}

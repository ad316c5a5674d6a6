package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/brackets"
	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/models"
	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/repositories"
	"github.com/google/uuid"
)

type ResultService interface {
	// RecordResult applies a reported outcome to a match and both entrants'
	// tallies. Reporting over an existing result is a correction: the old
	// outcome's deltas are reversed before the new ones apply, so repeated
	// corrections never drift. Byes are immutable.
	RecordResult(ctx context.Context, tournamentID, matchID int, outcome models.MatchResult, reporter uuid.UUID) (*models.Match, error)
}

type resultService struct {
	tx          TxRunner
	entrantRepo repositories.EntrantRepository
	matchRepo   repositories.MatchRepository
	queue       *StandingsQueue
	locks       *LockTable
	hub         *brackets.Hub
	logger      *slog.Logger
	now         func() time.Time
}

func NewResultService(
	tx TxRunner,
	entrantRepo repositories.EntrantRepository,
	matchRepo repositories.MatchRepository,
	queue *StandingsQueue,
	locks *LockTable,
	hub *brackets.Hub,
	logger *slog.Logger,
) ResultService {
	return &resultService{
		tx:          tx,
		entrantRepo: entrantRepo,
		matchRepo:   matchRepo,
		queue:       queue,
		locks:       locks,
		hub:         hub,
		logger:      logger,
		now:         time.Now,
	}
}

// resultDeltas returns the stat increments an outcome applies to player1 and
// player2. The switch is exhaustive over the result vocabulary so reversal
// stays symmetric by construction.
func resultDeltas(outcome models.MatchResult) (d1, d2 repositories.EntrantStatsDelta) {
	switch outcome {
	case models.ResultPlayer1:
		d1 = repositories.EntrantStatsDelta{Wins: 1, Points: 3}
		d2 = repositories.EntrantStatsDelta{Losses: 1}
	case models.ResultPlayer2:
		d1 = repositories.EntrantStatsDelta{Losses: 1}
		d2 = repositories.EntrantStatsDelta{Wins: 1, Points: 3}
	case models.ResultDraw:
		d1 = repositories.EntrantStatsDelta{Draws: 1, Points: 1}
		d2 = repositories.EntrantStatsDelta{Draws: 1, Points: 1}
	case models.ResultBothLoss:
		d1 = repositories.EntrantStatsDelta{Losses: 1}
		d2 = repositories.EntrantStatsDelta{Losses: 1}
	}
	return d1, d2
}

func (s *resultService) RecordResult(ctx context.Context, tournamentID, matchID int, outcome models.MatchResult, reporter uuid.UUID) (*models.Match, error) {
	if !outcome.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidResult, outcome)
	}

	// The match must be read under the lock: its stored result is the
	// baseline the correction reverses, so a concurrent report reading a
	// stale result would apply its deltas twice.
	unlock := s.locks.Acquire(tournamentID)
	defer unlock()

	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrMatchNotFound, matchID)
		}
		return nil, err
	}
	if match.TournamentID != tournamentID {
		return nil, fmt.Errorf("%w: match %d belongs to tournament %d, not %d",
			ErrTournamentMismatch, matchID, match.TournamentID, tournamentID)
	}
	if match.IsBye() {
		return nil, fmt.Errorf("%w: match %d is a bye and resolves automatically",
			ErrInvalidResult, matchID)
	}

	d1, d2 := resultDeltas(outcome)
	if match.Result != nil {
		old1, old2 := resultDeltas(*match.Result)
		d1 = d1.Add(old1.Negate())
		d2 = d2.Add(old2.Negate())
	}

	reportedAt := s.now()
	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.entrantRepo.ApplyStatsDelta(ctx, exec, match.Player1ID, d1); err != nil {
			return err
		}
		if err := s.entrantRepo.ApplyStatsDelta(ctx, exec, match.Player2ID, d2); err != nil {
			return err
		}
		return s.matchRepo.UpdateResult(ctx, exec, matchID, outcome, reporter, reportedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("result: failed to record %q on match %d of tournament %d: %w",
			outcome, matchID, match.TournamentID, err)
	}

	match.Result = &outcome
	match.ReportedBy = &reporter
	match.ReportedAt = &reportedAt

	// Tie-breaks and ranks refresh in the background; the next pairing call
	// waits for this queue to drain.
	s.queue.Enqueue(match.TournamentID)

	s.logger.Info("result recorded",
		slog.Int("tournament_id", match.TournamentID),
		slog.Int("match_id", matchID),
		slog.String("outcome", string(outcome)))
	if s.hub != nil {
		s.hub.BroadcastTournament(match.TournamentID, brackets.EventResultRecorded, match)
	}
	return match, nil
}

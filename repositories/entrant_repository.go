package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/models"
	"github.com/lib/pq"
)

var ErrEntrantNotFound = errors.New("entrant not found")

// EntrantFilter narrows ListByTournament. EligibleOnly keeps checked-in,
// non-dropped, non-cancelled entrants; IDs restricts to an explicit id set.
type EntrantFilter struct {
	EligibleOnly bool
	IDs          []int
}

// EntrantStats is the absolute stat block written back by the standings
// calculator.
type EntrantStats struct {
	Wins       int
	Losses     int
	Draws      int
	Points     int
	GameWins   int
	OMW        float64
	AverageOMW float64
	Rank       int
}

// EntrantStatsDelta is an increment (or, negated, a reversal) applied by the
// result recorder. Counters are clamped at zero in SQL.
type EntrantStatsDelta struct {
	Wins   int
	Losses int
	Draws  int
	Points int
}

func (d EntrantStatsDelta) Negate() EntrantStatsDelta {
	return EntrantStatsDelta{Wins: -d.Wins, Losses: -d.Losses, Draws: -d.Draws, Points: -d.Points}
}

func (d EntrantStatsDelta) Add(other EntrantStatsDelta) EntrantStatsDelta {
	return EntrantStatsDelta{
		Wins:   d.Wins + other.Wins,
		Losses: d.Losses + other.Losses,
		Draws:  d.Draws + other.Draws,
		Points: d.Points + other.Points,
	}
}

type EntrantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, entrant *models.Entrant) error
	GetByID(ctx context.Context, id int) (*models.Entrant, error)
	ListByTournament(ctx context.Context, tournamentID int, filter EntrantFilter) ([]*models.Entrant, error)
	UpdateStats(ctx context.Context, exec SQLExecutor, entrantID int, stats EntrantStats) error
	ApplyStatsDelta(ctx context.Context, exec SQLExecutor, entrantID int, delta EntrantStatsDelta) error
	SetDropped(ctx context.Context, exec SQLExecutor, entrantID int, dropped bool) error
	ResetStats(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresEntrantRepository struct {
	db *sql.DB
}

func NewPostgresEntrantRepository(db *sql.DB) EntrantRepository {
	return &postgresEntrantRepository{db: db}
}

func (r *postgresEntrantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const entrantColumns = `id, tournament_id, user_ref, wins, losses, draws, points,
       omw, average_omw, game_wins, rank, checked_in, dropped, cancelled, created_at`

func scanEntrant(rowScanner interface{ Scan(...interface{}) error }) (*models.Entrant, error) {
	var e models.Entrant
	err := rowScanner.Scan(
		&e.ID, &e.TournamentID, &e.UserRef, &e.Wins, &e.Losses, &e.Draws, &e.Points,
		&e.OMW, &e.AverageOMW, &e.GameWins, &e.Rank, &e.CheckedIn, &e.Dropped, &e.Cancelled, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntrantNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *postgresEntrantRepository) Create(ctx context.Context, exec SQLExecutor, entrant *models.Entrant) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO entrants (tournament_id, user_ref, checked_in)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	err := executor.QueryRowContext(ctx, query,
		entrant.TournamentID, entrant.UserRef, entrant.CheckedIn,
	).Scan(&entrant.ID, &entrant.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create entrant for tournament %d: %w", entrant.TournamentID, err)
	}
	return nil
}

func (r *postgresEntrantRepository) GetByID(ctx context.Context, id int) (*models.Entrant, error) {
	query := `SELECT ` + entrantColumns + ` FROM entrants WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	entrant, err := scanEntrant(row)
	if err != nil {
		if errors.Is(err, ErrEntrantNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan entrant %d: %w", id, err)
	}
	return entrant, nil
}

func (r *postgresEntrantRepository) ListByTournament(ctx context.Context, tournamentID int, filter EntrantFilter) ([]*models.Entrant, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + entrantColumns + ` FROM entrants WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	placeholderIndex := 2

	if filter.EligibleOnly {
		queryBuilder.WriteString(" AND checked_in = TRUE AND dropped = FALSE AND cancelled = FALSE")
	}
	if filter.IDs != nil {
		queryBuilder.WriteString(" AND id = ANY($")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		queryBuilder.WriteString(")")
		args = append(args, pq.Array(filter.IDs))
	}

	queryBuilder.WriteString(" ORDER BY id ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entrants for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	entrants := make([]*models.Entrant, 0)
	for rows.Next() {
		e, scanErr := scanEntrant(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan entrant row: %w", scanErr)
		}
		entrants = append(entrants, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during entrant rows iteration: %w", err)
	}
	return entrants, nil
}

func (r *postgresEntrantRepository) UpdateStats(ctx context.Context, exec SQLExecutor, entrantID int, stats EntrantStats) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE entrants
		SET wins = $1, losses = $2, draws = $3, points = $4,
		    omw = $5, average_omw = $6, game_wins = $7, rank = $8
		WHERE id = $9`
	result, err := executor.ExecContext(ctx, query,
		stats.Wins, stats.Losses, stats.Draws, stats.Points,
		stats.OMW, stats.AverageOMW, stats.GameWins, stats.Rank,
		entrantID,
	)
	if err != nil {
		return fmt.Errorf("failed to update stats for entrant %d: %w", entrantID, err)
	}
	return checkAffectedRows(result, ErrEntrantNotFound)
}

func (r *postgresEntrantRepository) ApplyStatsDelta(ctx context.Context, exec SQLExecutor, entrantID int, delta EntrantStatsDelta) error {
	executor := r.getExecutor(exec)
	// GREATEST keeps the non-negative invariant even if a correction races a
	// reset.
	query := `
		UPDATE entrants
		SET wins      = GREATEST(0, wins + $1),
		    losses    = GREATEST(0, losses + $2),
		    draws     = GREATEST(0, draws + $3),
		    points    = GREATEST(0, points + $4),
		    game_wins = GREATEST(0, game_wins + $1)
		WHERE id = $5`
	result, err := executor.ExecContext(ctx, query,
		delta.Wins, delta.Losses, delta.Draws, delta.Points, entrantID,
	)
	if err != nil {
		return fmt.Errorf("failed to apply stats delta for entrant %d: %w", entrantID, err)
	}
	return checkAffectedRows(result, ErrEntrantNotFound)
}

func (r *postgresEntrantRepository) SetDropped(ctx context.Context, exec SQLExecutor, entrantID int, dropped bool) error {
	executor := r.getExecutor(exec)
	query := `UPDATE entrants SET dropped = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, dropped, entrantID)
	if err != nil {
		return fmt.Errorf("failed to set dropped=%t for entrant %d: %w", dropped, entrantID, err)
	}
	return checkAffectedRows(result, ErrEntrantNotFound)
}

func (r *postgresEntrantRepository) ResetStats(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE entrants
		SET wins = 0, losses = 0, draws = 0, points = 0,
		    omw = 0, average_omw = 0, game_wins = 0, rank = 0
		WHERE tournament_id = $1`
	if _, err := executor.ExecContext(ctx, query, tournamentID); err != nil {
		return fmt.Errorf("failed to reset entrant stats for tournament %d: %w", tournamentID, err)
	}
	return nil
}

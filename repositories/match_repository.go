package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/models"
	"github.com/google/uuid"
)

var ErrMatchNotFound = errors.New("match not found")

// MatchFilter narrows ListByTournament. BeforeRound selects rounds strictly
// below the given one (opponent history); ActiveOnly keeps activated matches;
// WithResult filters on result presence.
type MatchFilter struct {
	Round       *int
	BeforeRound *int
	ActiveOnly  bool
	WithResult  *bool
}

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, filter MatchFilter) ([]*models.Match, error)
	UpdateResult(ctx context.Context, exec SQLExecutor, matchID int, result models.MatchResult, reportedBy uuid.UUID, reportedAt time.Time) error
	ActivateRound(ctx context.Context, exec SQLExecutor, tournamentID, round int) error
	DeleteByRound(ctx context.Context, exec SQLExecutor, tournamentID, round int) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
	MaxRound(ctx context.Context, tournamentID int) (int, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `id, tournament_id, round, match_number, table_number,
       player1_id, player2_id, result, reported_by, reported_at, is_tournament_match, created_at`

func scanMatch(rowScanner interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var m models.Match
	var result sql.NullString
	var reportedBy uuid.NullUUID
	var reportedAt sql.NullTime
	err := rowScanner.Scan(
		&m.ID, &m.TournamentID, &m.Round, &m.MatchNumber, &m.TableNumber,
		&m.Player1ID, &m.Player2ID, &result, &reportedBy, &reportedAt,
		&m.IsTournamentMatch, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	if result.Valid {
		res := models.MatchResult(result.String)
		m.Result = &res
	}
	if reportedBy.Valid {
		m.ReportedBy = &reportedBy.UUID
	}
	if reportedAt.Valid {
		m.ReportedAt = &reportedAt.Time
	}
	return &m, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO matches
			(tournament_id, round, match_number, table_number,
			 player1_id, player2_id, result, reported_by, reported_at, is_tournament_match)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	var result interface{}
	if match.Result != nil {
		result = string(*match.Result)
	}
	err := executor.QueryRowContext(ctx, query,
		match.TournamentID, match.Round, match.MatchNumber, match.TableNumber,
		match.Player1ID, match.Player2ID, result, match.ReportedBy, match.ReportedAt,
		match.IsTournamentMatch,
	).Scan(&match.ID, &match.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create match for tournament %d round %d: %w",
			match.TournamentID, match.Round, err)
	}
	return nil
}

func (r *postgresMatchRepository) CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error {
	if len(matches) == 0 {
		return nil
	}
	for _, match := range matches {
		if err := r.Create(ctx, exec, match); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	match, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, ErrMatchNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan match %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int, filter MatchFilter) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	placeholderIndex := 2

	appendIntClause := func(clause string, value int) {
		queryBuilder.WriteString(clause)
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, value)
		placeholderIndex++
	}

	if filter.Round != nil {
		appendIntClause(" AND round = $", *filter.Round)
	}
	if filter.BeforeRound != nil {
		appendIntClause(" AND round < $", *filter.BeforeRound)
	}
	if filter.ActiveOnly {
		queryBuilder.WriteString(" AND is_tournament_match = TRUE")
	}
	if filter.WithResult != nil {
		if *filter.WithResult {
			queryBuilder.WriteString(" AND result IS NOT NULL")
		} else {
			queryBuilder.WriteString(" AND result IS NULL")
		}
	}

	queryBuilder.WriteString(" ORDER BY round ASC, match_number ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, matchID int, result models.MatchResult, reportedBy uuid.UUID, reportedAt time.Time) error {
	executor := r.getExecutor(exec)
	query := `UPDATE matches SET result = $1, reported_by = $2, reported_at = $3 WHERE id = $4`
	res, err := executor.ExecContext(ctx, query, string(result), reportedBy, reportedAt, matchID)
	if err != nil {
		return fmt.Errorf("failed to update result for match %d: %w", matchID, err)
	}
	return checkAffectedRows(res, ErrMatchNotFound)
}

func (r *postgresMatchRepository) ActivateRound(ctx context.Context, exec SQLExecutor, tournamentID, round int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE matches SET is_tournament_match = TRUE WHERE tournament_id = $1 AND round = $2`
	if _, err := executor.ExecContext(ctx, query, tournamentID, round); err != nil {
		return fmt.Errorf("failed to activate round %d for tournament %d: %w", round, tournamentID, err)
	}
	return nil
}

func (r *postgresMatchRepository) DeleteByRound(ctx context.Context, exec SQLExecutor, tournamentID, round int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM matches WHERE tournament_id = $1 AND round = $2`
	if _, err := executor.ExecContext(ctx, query, tournamentID, round); err != nil {
		return fmt.Errorf("failed to delete matches for tournament %d round %d: %w", tournamentID, round, err)
	}
	return nil
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM matches WHERE tournament_id = $1`
	if _, err := executor.ExecContext(ctx, query, tournamentID); err != nil {
		return fmt.Errorf("failed to delete matches for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (r *postgresMatchRepository) MaxRound(ctx context.Context, tournamentID int) (int, error) {
	query := `SELECT COALESCE(MAX(round), 0) FROM matches WHERE tournament_id = $1`
	var maxRound int
	if err := r.db.QueryRowContext(ctx, query, tournamentID).Scan(&maxRound); err != nil {
		return 0, fmt.Errorf("failed to query max round for tournament %d: %w", tournamentID, err)
	}
	return maxRound, nil
}

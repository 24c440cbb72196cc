package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/matchpointhq/matchpoint-server/models"
)

var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchTournamentInvalid = errors.New("match tournament conflict or invalid")
	ErrMatchPlayerInvalid     = errors.New("match player conflict or invalid")
)

type MatchRepository interface {
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, id string) (*models.Match, error)
	List(ctx context.Context) ([]*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID string) ([]*models.Match, error)
	Update(ctx context.Context, match *models.Match) error
	Delete(ctx context.Context, id string) error
	MarkInProgress(ctx context.Context, id string, startedAt time.Time) error
	MarkCompleted(ctx context.Context, exec SQLExecutor, id string, winnerID string, completedAt time.Time) error
	Reopen(ctx context.Context, id string) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `
	id, tournament_id, player1_id, player2_id, status,
	scheduled_at, started_at, completed_at, winner_id, best_of,
	created_at, updated_at`

func (r *postgresMatchRepository) Create(ctx context.Context, match *models.Match) error {
	if match.ID == "" {
		match.ID = uuid.NewString()
	}

	query := `
		INSERT INTO matches (id, tournament_id, player1_id, player2_id, status, scheduled_at, best_of)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		match.ID,
		match.TournamentID,
		match.Player1ID,
		match.Player2ID,
		match.Status,
		match.ScheduledAt,
		match.BestOf,
	).Scan(&match.CreatedAt, &match.UpdatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id string) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	match, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match by id %s: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) List(ctx context.Context) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches ORDER BY scheduled_at ASC NULLS LAST, created_at ASC`
	return r.queryMatches(ctx, query)
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID string) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1 ORDER BY scheduled_at ASC NULLS LAST, created_at ASC`
	return r.queryMatches(ctx, query, tournamentID)
}

func (r *postgresMatchRepository) queryMatches(ctx context.Context, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, match)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) Update(ctx context.Context, match *models.Match) error {
	query := `
		UPDATE matches
		SET scheduled_at = $1, status = $2, best_of = $3, updated_at = now()
		WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query, match.ScheduledAt, match.Status, match.BestOf, match.ID)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) MarkInProgress(ctx context.Context, id string, startedAt time.Time) error {
	query := `
		UPDATE matches
		SET status = $1, started_at = $2, updated_at = now()
		WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, models.MatchStatusInProgress, startedAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark match %s in progress: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) MarkCompleted(ctx context.Context, exec SQLExecutor, id string, winnerID string, completedAt time.Time) error {
	query := `
		UPDATE matches
		SET status = $1, winner_id = $2, completed_at = $3, updated_at = now()
		WHERE id = $4`

	result, err := exec.ExecContext(ctx, query, models.MatchStatusCompleted, winnerID, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark match %s completed: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

// Reopen puts a completed match back in progress, clearing its winner.
// Used when the deciding point is undone.
func (r *postgresMatchRepository) Reopen(ctx context.Context, id string) error {
	query := `
		UPDATE matches
		SET status = $1, winner_id = NULL, completed_at = NULL, updated_at = now()
		WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, models.MatchStatusInProgress, id)
	if err != nil {
		return fmt.Errorf("failed to reopen match %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23503" {
		switch pqErr.Constraint {
		case "matches_tournament_id_fkey":
			return ErrMatchTournamentInvalid
		case "matches_player1_id_fkey", "matches_player2_id_fkey", "matches_winner_id_fkey":
			return ErrMatchPlayerInvalid
		}
	}
	return err
}

func scanMatch(row rowScanner) (*models.Match, error) {
	var match models.Match
	err := row.Scan(
		&match.ID,
		&match.TournamentID,
		&match.Player1ID,
		&match.Player2ID,
		&match.Status,
		&match.ScheduledAt,
		&match.StartedAt,
		&match.CompletedAt,
		&match.WinnerID,
		&match.BestOf,
		&match.CreatedAt,
		&match.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/matchpointhq/matchpoint-server/models"
)

var (
	ErrScoreNotFound     = errors.New("match score not found")
	ErrScoreMatchInvalid = errors.New("match score match conflict or invalid")
)

// ScoreRepository is the durable store for live scoring state, keyed by
// match id. Structured fields (sets, points, history) are kept as JSONB.
type ScoreRepository interface {
	Create(ctx context.Context, score *models.MatchScore) error
	GetByMatchID(ctx context.Context, matchID string) (*models.MatchScore, error)
	Update(ctx context.Context, exec SQLExecutor, score *models.MatchScore) error
	DeleteByMatchID(ctx context.Context, matchID string) error
}

type postgresScoreRepository struct {
	db *sql.DB
}

func NewPostgresScoreRepository(db *sql.DB) ScoreRepository {
	return &postgresScoreRepository{db: db}
}

func (r *postgresScoreRepository) Create(ctx context.Context, score *models.MatchScore) error {
	cols, err := marshalScoreColumns(score)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO match_scores
			(match_id, current_set, sets, games, points, server, in_tiebreak, tiebreak_points, winner_id, history)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	err = r.db.QueryRowContext(ctx, query,
		score.MatchID,
		score.CurrentSet,
		cols.sets,
		cols.games,
		cols.points,
		score.Server,
		score.InTiebreak,
		cols.tiebreakPoints,
		score.WinnerID,
		cols.history,
	).Scan(&score.CreatedAt, &score.UpdatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" && pqErr.Constraint == "match_scores_match_id_fkey" {
			return ErrScoreMatchInvalid
		}
		return fmt.Errorf("failed to insert score for match %s: %w", score.MatchID, err)
	}
	return nil
}

func (r *postgresScoreRepository) GetByMatchID(ctx context.Context, matchID string) (*models.MatchScore, error) {
	query := `
		SELECT match_id, current_set, sets, games, points, server, in_tiebreak,
		       tiebreak_points, winner_id, history, created_at, updated_at
		FROM match_scores
		WHERE match_id = $1`

	row := r.db.QueryRowContext(ctx, query, matchID)

	var score models.MatchScore
	var setsJSON, gamesJSON, pointsJSON, historyJSON []byte
	var tiebreakJSON []byte

	err := row.Scan(
		&score.MatchID,
		&score.CurrentSet,
		&setsJSON,
		&gamesJSON,
		&pointsJSON,
		&score.Server,
		&score.InTiebreak,
		&tiebreakJSON,
		&score.WinnerID,
		&historyJSON,
		&score.CreatedAt,
		&score.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScoreNotFound
		}
		return nil, fmt.Errorf("failed to scan score for match %s: %w", matchID, err)
	}

	if err := json.Unmarshal(setsJSON, &score.Sets); err != nil {
		return nil, fmt.Errorf("failed to decode sets for match %s: %w", matchID, err)
	}
	if err := json.Unmarshal(gamesJSON, &score.Games); err != nil {
		return nil, fmt.Errorf("failed to decode games for match %s: %w", matchID, err)
	}
	if err := json.Unmarshal(pointsJSON, &score.Points); err != nil {
		return nil, fmt.Errorf("failed to decode points for match %s: %w", matchID, err)
	}
	if len(tiebreakJSON) > 0 {
		if err := json.Unmarshal(tiebreakJSON, &score.TiebreakPoints); err != nil {
			return nil, fmt.Errorf("failed to decode tiebreak points for match %s: %w", matchID, err)
		}
	}
	if err := json.Unmarshal(historyJSON, &score.History); err != nil {
		return nil, fmt.Errorf("failed to decode history for match %s: %w", matchID, err)
	}
	return &score, nil
}

func (r *postgresScoreRepository) Update(ctx context.Context, exec SQLExecutor, score *models.MatchScore) error {
	cols, err := marshalScoreColumns(score)
	if err != nil {
		return err
	}

	query := `
		UPDATE match_scores
		SET current_set = $1, sets = $2, games = $3, points = $4, server = $5,
		    in_tiebreak = $6, tiebreak_points = $7, winner_id = $8, history = $9,
		    updated_at = now()
		WHERE match_id = $10`

	result, err := exec.ExecContext(ctx, query,
		score.CurrentSet,
		cols.sets,
		cols.games,
		cols.points,
		score.Server,
		score.InTiebreak,
		cols.tiebreakPoints,
		score.WinnerID,
		cols.history,
		score.MatchID,
	)
	if err != nil {
		return fmt.Errorf("failed to update score for match %s: %w", score.MatchID, err)
	}
	return checkAffectedRows(result, ErrScoreNotFound)
}

func (r *postgresScoreRepository) DeleteByMatchID(ctx context.Context, matchID string) error {
	// A match without a score is not an error for cleanup purposes, so
	// affected rows are not checked here.
	_, err := r.db.ExecContext(ctx, `DELETE FROM match_scores WHERE match_id = $1`, matchID)
	if err != nil {
		return fmt.Errorf("failed to delete score for match %s: %w", matchID, err)
	}
	return nil
}

type scoreColumns struct {
	sets           []byte
	games          []byte
	points         []byte
	tiebreakPoints interface{}
	history        []byte
}

func marshalScoreColumns(score *models.MatchScore) (*scoreColumns, error) {
	sets, err := json.Marshal(score.Sets)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sets: %w", err)
	}
	games, err := json.Marshal(score.Games)
	if err != nil {
		return nil, fmt.Errorf("failed to encode games: %w", err)
	}
	points, err := json.Marshal(score.Points)
	if err != nil {
		return nil, fmt.Errorf("failed to encode points: %w", err)
	}
	history, err := json.Marshal(score.History)
	if err != nil {
		return nil, fmt.Errorf("failed to encode history: %w", err)
	}

	cols := &scoreColumns{sets: sets, games: games, points: points, history: history}
	if score.TiebreakPoints != nil {
		tb, err := json.Marshal(score.TiebreakPoints)
		if err != nil {
			return nil, fmt.Errorf("failed to encode tiebreak points: %w", err)
		}
		cols.tiebreakPoints = tb
	}
	return cols, nil
}

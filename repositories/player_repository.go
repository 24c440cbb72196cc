package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/matchpointhq/matchpoint-server/models"
)

var ErrPlayerNotFound = errors.New("player not found")

// MatchResult carries the per-player tallies of one completed match, from
// the winner's perspective.
type MatchResult struct {
	WinnerID    string
	LoserID     string
	WinnerSets  int
	LoserSets   int
	WinnerGames int
	LoserGames  int
}

type PlayerRepository interface {
	Create(ctx context.Context, player *models.Player) error
	GetByID(ctx context.Context, id string) (*models.Player, error)
	List(ctx context.Context) ([]*models.Player, error)
	Update(ctx context.Context, player *models.Player) error
	Delete(ctx context.Context, id string) error
	UpdateAvatarURL(ctx context.Context, id string, avatarURL *string) error
	// IncrementMatchResult bumps both players' aggregate counters for one
	// completed match using SQL arithmetic, one statement per player, so
	// two matches finishing at the same time cannot lose an update.
	IncrementMatchResult(ctx context.Context, exec SQLExecutor, result MatchResult) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

const playerColumns = `
	id, name, ranking, country, avatar_url,
	matches_played, matches_won, matches_lost,
	sets_won, sets_lost, games_won, games_lost,
	created_at, updated_at`

func (r *postgresPlayerRepository) Create(ctx context.Context, player *models.Player) error {
	if player.ID == "" {
		player.ID = uuid.NewString()
	}

	query := `
		INSERT INTO players (id, name, ranking, country)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		player.ID,
		player.Name,
		player.Ranking,
		player.Country,
	).Scan(&player.CreatedAt, &player.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert player: %w", err)
	}
	return nil
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, id string) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`

	player, err := scanPlayer(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to scan player by id %s: %w", id, err)
	}
	return player, nil
}

func (r *postgresPlayerRepository) List(ctx context.Context) ([]*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players ORDER BY ranking ASC NULLS LAST, name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	players := make([]*models.Player, 0)
	for rows.Next() {
		player, scanErr := scanPlayer(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", scanErr)
		}
		players = append(players, player)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during player rows iteration: %w", err)
	}
	return players, nil
}

func (r *postgresPlayerRepository) Update(ctx context.Context, player *models.Player) error {
	query := `
		UPDATE players
		SET name = $1, ranking = $2, country = $3, updated_at = now()
		WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query, player.Name, player.Ranking, player.Country, player.ID)
	if err != nil {
		return fmt.Errorf("failed to update player %s: %w", player.ID, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM players WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete player %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) UpdateAvatarURL(ctx context.Context, id string, avatarURL *string) error {
	query := `UPDATE players SET avatar_url = $1, updated_at = now() WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, avatarURL, id)
	if err != nil {
		return fmt.Errorf("failed to update avatar for player %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) IncrementMatchResult(ctx context.Context, exec SQLExecutor, match MatchResult) error {
	winnerQuery := `
		UPDATE players
		SET matches_played = matches_played + 1,
		    matches_won = matches_won + 1,
		    sets_won = sets_won + $2,
		    sets_lost = sets_lost + $3,
		    games_won = games_won + $4,
		    games_lost = games_lost + $5,
		    updated_at = now()
		WHERE id = $1`

	result, err := exec.ExecContext(ctx, winnerQuery,
		match.WinnerID, match.WinnerSets, match.LoserSets, match.WinnerGames, match.LoserGames)
	if err != nil {
		return fmt.Errorf("failed to increment stats for winner %s: %w", match.WinnerID, err)
	}
	if err := checkAffectedRows(result, ErrPlayerNotFound); err != nil {
		return err
	}

	loserQuery := `
		UPDATE players
		SET matches_played = matches_played + 1,
		    matches_lost = matches_lost + 1,
		    sets_won = sets_won + $2,
		    sets_lost = sets_lost + $3,
		    games_won = games_won + $4,
		    games_lost = games_lost + $5,
		    updated_at = now()
		WHERE id = $1`

	result, err = exec.ExecContext(ctx, loserQuery,
		match.LoserID, match.LoserSets, match.WinnerSets, match.LoserGames, match.WinnerGames)
	if err != nil {
		return fmt.Errorf("failed to increment stats for loser %s: %w", match.LoserID, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlayer(row rowScanner) (*models.Player, error) {
	var player models.Player
	err := row.Scan(
		&player.ID,
		&player.Name,
		&player.Ranking,
		&player.Country,
		&player.AvatarURL,
		&player.Stats.MatchesPlayed,
		&player.Stats.MatchesWon,
		&player.Stats.MatchesLost,
		&player.Stats.SetsWon,
		&player.Stats.SetsLost,
		&player.Stats.GamesWon,
		&player.Stats.GamesLost,
		&player.CreatedAt,
		&player.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &player, nil
}

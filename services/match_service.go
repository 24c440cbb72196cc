package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matchpointhq/matchpoint-server/live"
	"github.com/matchpointhq/matchpoint-server/models"
	"github.com/matchpointhq/matchpoint-server/repositories"
)

type MatchService interface {
	Create(ctx context.Context, input CreateMatchInput) (*models.Match, error)
	GetByID(ctx context.Context, id string) (*models.Match, error)
	List(ctx context.Context) ([]*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID string) ([]*models.Match, error)
	Update(ctx context.Context, id string, input UpdateMatchInput) (*models.Match, error)
	Delete(ctx context.Context, id string) error
}

type CreateMatchInput struct {
	TournamentID string     `json:"tournament_id"`
	Player1ID    string     `json:"player1_id"`
	Player2ID    string     `json:"player2_id"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	BestOf       int        `json:"best_of,omitempty"`
}

type UpdateMatchInput struct {
	ScheduledAt *time.Time          `json:"scheduled_at,omitempty"`
	Status      *models.MatchStatus `json:"status,omitempty"`
	BestOf      *int                `json:"best_of,omitempty"`
}

type matchService struct {
	matchRepo repositories.MatchRepository
	scoreRepo repositories.ScoreRepository
	hub       *live.Hub
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	scoreRepo repositories.ScoreRepository,
	hub *live.Hub,
) MatchService {
	return &matchService{
		matchRepo: matchRepo,
		scoreRepo: scoreRepo,
		hub:       hub,
	}
}

func (s *matchService) Create(ctx context.Context, input CreateMatchInput) (*models.Match, error) {
	if input.Player1ID == "" || input.Player2ID == "" || input.Player1ID == input.Player2ID {
		return nil, ErrInvalidMatchPlayers
	}
	bestOf := input.BestOf
	if bestOf == 0 {
		bestOf = 3
	}
	if bestOf != 3 && bestOf != 5 {
		return nil, ErrInvalidBestOf
	}

	match := &models.Match{
		TournamentID: input.TournamentID,
		Player1ID:    input.Player1ID,
		Player2ID:    input.Player2ID,
		Status:       models.MatchStatusScheduled,
		ScheduledAt:  input.ScheduledAt,
		BestOf:       bestOf,
	}
	if err := s.matchRepo.Create(ctx, match); err != nil {
		switch {
		case errors.Is(err, repositories.ErrMatchTournamentInvalid):
			return nil, ErrTournamentNotFound
		case errors.Is(err, repositories.ErrMatchPlayerInvalid):
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	return match, nil
}

func (s *matchService) GetByID(ctx context.Context, id string) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %s: %w", id, err)
	}
	return match, nil
}

func (s *matchService) List(ctx context.Context) ([]*models.Match, error) {
	matches, err := s.matchRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, nil
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID string) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for tournament %s: %w", tournamentID, err)
	}
	return matches, nil
}

func (s *matchService) Update(ctx context.Context, id string, input UpdateMatchInput) (*models.Match, error) {
	match, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.ScheduledAt != nil {
		match.ScheduledAt = input.ScheduledAt
	}
	if input.Status != nil {
		match.Status = *input.Status
	}
	if input.BestOf != nil {
		if *input.BestOf != 3 && *input.BestOf != 5 {
			return nil, ErrInvalidBestOf
		}
		match.BestOf = *input.BestOf
	}

	if err := s.matchRepo.Update(ctx, match); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to update match %s: %w", id, err)
	}

	// Viewers of this match see metadata changes without polling.
	score, scoreErr := s.scoreRepo.GetByMatchID(ctx, id)
	if scoreErr != nil && !errors.Is(scoreErr, repositories.ErrScoreNotFound) {
		score = nil
	}
	s.hub.BroadcastToRoom(id, live.EventMatchUpdated, live.MatchStatePayload{Match: match, Score: score})

	return match, nil
}

// Delete removes a match and its scoring state. The score never outlives
// the match it belongs to.
func (s *matchService) Delete(ctx context.Context, id string) error {
	if err := s.scoreRepo.DeleteByMatchID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete score for match %s: %w", id, err)
	}
	if err := s.matchRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return fmt.Errorf("failed to delete match %s: %w", id, err)
	}
	return nil
}

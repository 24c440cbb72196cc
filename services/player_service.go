package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/matchpointhq/matchpoint-server/models"
	"github.com/matchpointhq/matchpoint-server/repositories"
	"github.com/matchpointhq/matchpoint-server/storage"
)

type PlayerService interface {
	Create(ctx context.Context, input CreatePlayerInput) (*models.Player, error)
	GetByID(ctx context.Context, id string) (*models.Player, error)
	List(ctx context.Context) ([]*models.Player, error)
	Update(ctx context.Context, id string, input UpdatePlayerInput) (*models.Player, error)
	Delete(ctx context.Context, id string) error
	UploadAvatar(ctx context.Context, id string, contentType string, file io.Reader) (*models.Player, error)
}

type CreatePlayerInput struct {
	Name    string  `json:"name"`
	Ranking *int    `json:"ranking,omitempty"`
	Country *string `json:"country,omitempty"`
}

type UpdatePlayerInput struct {
	Name    *string `json:"name,omitempty"`
	Ranking *int    `json:"ranking,omitempty"`
	Country *string `json:"country,omitempty"`
}

var allowedAvatarTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

type playerService struct {
	playerRepo repositories.PlayerRepository
	uploader   storage.FileUploader
}

func NewPlayerService(playerRepo repositories.PlayerRepository, uploader storage.FileUploader) PlayerService {
	return &playerService{
		playerRepo: playerRepo,
		uploader:   uploader,
	}
}

func (s *playerService) Create(ctx context.Context, input CreatePlayerInput) (*models.Player, error) {
	if input.Name == "" {
		return nil, ErrPlayerNameRequired
	}

	player := &models.Player{
		Name:    input.Name,
		Ranking: input.Ranking,
		Country: input.Country,
	}
	if err := s.playerRepo.Create(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return player, nil
}

func (s *playerService) GetByID(ctx context.Context, id string) (*models.Player, error) {
	player, err := s.playerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player %s: %w", id, err)
	}
	return player, nil
}

func (s *playerService) List(ctx context.Context) ([]*models.Player, error) {
	players, err := s.playerRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	return players, nil
}

func (s *playerService) Update(ctx context.Context, id string, input UpdatePlayerInput) (*models.Player, error) {
	player, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, ErrPlayerNameRequired
		}
		player.Name = *input.Name
	}
	if input.Ranking != nil {
		player.Ranking = input.Ranking
	}
	if input.Country != nil {
		player.Country = input.Country
	}

	if err := s.playerRepo.Update(ctx, player); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to update player %s: %w", id, err)
	}
	return player, nil
}

func (s *playerService) Delete(ctx context.Context, id string) error {
	if err := s.playerRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return ErrPlayerNotFound
		}
		return fmt.Errorf("failed to delete player %s: %w", id, err)
	}
	return nil
}

func (s *playerService) UploadAvatar(ctx context.Context, id string, contentType string, file io.Reader) (*models.Player, error) {
	ext, ok := allowedAvatarTypes[contentType]
	if !ok {
		return nil, ErrUnsupportedAvatar
	}

	player, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("players/%s/avatar.%s", player.ID, ext)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar for player %s: %w", id, err)
	}

	if err := s.playerRepo.UpdateAvatarURL(ctx, player.ID, &result.Location); err != nil {
		return nil, fmt.Errorf("failed to store avatar url for player %s: %w", id, err)
	}
	player.AvatarURL = &result.Location
	return player, nil
}

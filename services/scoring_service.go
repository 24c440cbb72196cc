package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/matchpointhq/matchpoint-server/models"
	"github.com/matchpointhq/matchpoint-server/repositories"
	"github.com/matchpointhq/matchpoint-server/scoring"
)

// ScoringService owns all mutations of live match scores. Every command
// for a match runs under that match's lock: read the latest persisted
// state, apply the engine transition, persist, release. Two commands for
// the same match can never act on the same prior state; commands for
// different matches do not contend.
type ScoringService interface {
	Initialize(ctx context.Context, matchID string) (*models.MatchScore, error)
	GetScore(ctx context.Context, matchID string) (*models.MatchScore, error)

	// live.ScoreCommander
	Snapshot(ctx context.Context, matchID string) (*models.Match, *models.MatchScore, error)
	StartMatch(ctx context.Context, matchID string) (*models.Match, *models.MatchScore, error)
	ScorePoint(ctx context.Context, matchID string, pointWinner int) (*models.Match, *models.MatchScore, error)
	UndoPoint(ctx context.Context, matchID string) (*models.Match, *models.MatchScore, error)
}

type scoringService struct {
	db         repositories.SQLExecutor
	transactor repositories.Transactor
	matchRepo  repositories.MatchRepository
	scoreRepo  repositories.ScoreRepository
	playerRepo repositories.PlayerRepository
	locker     *scoring.MatchLocker
	logger     *slog.Logger
}

func NewScoringService(
	db repositories.SQLExecutor,
	transactor repositories.Transactor,
	matchRepo repositories.MatchRepository,
	scoreRepo repositories.ScoreRepository,
	playerRepo repositories.PlayerRepository,
	locker *scoring.MatchLocker,
	logger *slog.Logger,
) ScoringService {
	return &scoringService{
		db:         db,
		transactor: transactor,
		matchRepo:  matchRepo,
		scoreRepo:  scoreRepo,
		playerRepo: playerRepo,
		locker:     locker,
		logger:     logger,
	}
}

// Initialize creates the zeroed score for a match and marks the match in
// progress. Calling it again returns the existing score untouched.
func (s *scoringService) Initialize(ctx context.Context, matchID string) (*models.MatchScore, error) {
	release := s.locker.Acquire(matchID)
	defer release()

	_, score, err := s.initializeLocked(ctx, matchID)
	return score, err
}

func (s *scoringService) initializeLocked(ctx context.Context, matchID string) (*models.Match, *models.MatchScore, error) {
	match, err := s.getMatch(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}

	score, err := s.scoreRepo.GetByMatchID(ctx, matchID)
	if err == nil {
		return match, score, nil
	}
	if !errors.Is(err, repositories.ErrScoreNotFound) {
		return nil, nil, fmt.Errorf("%w: failed to load score for match %s: %w", ErrPersistenceFailure, matchID, err)
	}

	score = scoring.NewScore(matchID)
	if err := s.scoreRepo.Create(ctx, score); err != nil {
		return nil, nil, fmt.Errorf("%w: failed to create score for match %s: %w", ErrPersistenceFailure, matchID, err)
	}

	startedAt := time.Now().UTC()
	if err := s.matchRepo.MarkInProgress(ctx, matchID, startedAt); err != nil {
		return nil, nil, fmt.Errorf("%w: failed to mark match %s in progress: %w", ErrPersistenceFailure, matchID, err)
	}
	match.Status = models.MatchStatusInProgress
	match.StartedAt = &startedAt

	s.logger.Info("match score initialized", slog.String("match_id", matchID))
	return match, score, nil
}

func (s *scoringService) GetScore(ctx context.Context, matchID string) (*models.MatchScore, error) {
	score, err := s.scoreRepo.GetByMatchID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrScoreNotFound) {
			return nil, ErrScoreNotFound
		}
		return nil, fmt.Errorf("%w: failed to load score for match %s: %w", ErrPersistenceFailure, matchID, err)
	}
	return score, nil
}

// Snapshot returns the match with its current score, if any. A match that
// has not started yet comes back with a nil score rather than an error.
func (s *scoringService) Snapshot(ctx context.Context, matchID string) (*models.Match, *models.MatchScore, error) {
	match, err := s.getMatch(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}

	score, err := s.GetScore(ctx, matchID)
	if err != nil {
		if errors.Is(err, ErrScoreNotFound) {
			return match, nil, nil
		}
		return nil, nil, err
	}
	return match, score, nil
}

func (s *scoringService) StartMatch(ctx context.Context, matchID string) (*models.Match, *models.MatchScore, error) {
	release := s.locker.Acquire(matchID)
	defer release()

	return s.initializeLocked(ctx, matchID)
}

// ScorePoint applies one point under the match lock. The first point on an
// uninitialized match initializes it implicitly. When the point decides
// the match, the score, the match row and both players' aggregate counters
// are updated in one transaction.
func (s *scoringService) ScorePoint(ctx context.Context, matchID string, pointWinner int) (*models.Match, *models.MatchScore, error) {
	release := s.locker.Acquire(matchID)
	defer release()

	match, score, err := s.initializeLocked(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}

	next, outcome, err := scoring.ApplyPoint(score, match, pointWinner)
	if err != nil {
		return nil, nil, mapEngineError(err)
	}

	if outcome.MatchWon {
		if err := s.completeMatch(ctx, match, next); err != nil {
			return nil, nil, err
		}
	} else {
		if err := s.scoreRepo.Update(ctx, s.db, next); err != nil {
			return nil, nil, fmt.Errorf("%w: failed to persist score for match %s: %w", ErrPersistenceFailure, matchID, err)
		}
	}

	s.logger.Info("point scored",
		slog.String("match_id", matchID),
		slog.Int("point_winner", pointWinner),
		slog.Bool("game_won", outcome.GameWon),
		slog.Bool("set_won", outcome.SetWon),
		slog.Bool("match_won", outcome.MatchWon))

	return match, next, nil
}

// completeMatch persists the final score, the match result and the stats
// counters atomically. The counter bumps are single-statement increments,
// so concurrent completions of other matches cannot clobber them.
func (s *scoringService) completeMatch(ctx context.Context, match *models.Match, score *models.MatchScore) error {
	winnerID := *score.WinnerID
	result := tallyResult(match, score, winnerID)
	completedAt := time.Now().UTC()

	err := s.transactor.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.scoreRepo.Update(ctx, exec, score); err != nil {
			return fmt.Errorf("failed to persist final score: %w", err)
		}
		if err := s.matchRepo.MarkCompleted(ctx, exec, match.ID, winnerID, completedAt); err != nil {
			return fmt.Errorf("failed to complete match: %w", err)
		}
		if err := s.playerRepo.IncrementMatchResult(ctx, exec, result); err != nil {
			return fmt.Errorf("failed to update player stats: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: match %s completion: %w", ErrPersistenceFailure, match.ID, err)
	}

	match.Status = models.MatchStatusCompleted
	match.WinnerID = &winnerID
	match.CompletedAt = &completedAt

	s.logger.Info("match completed",
		slog.String("match_id", match.ID),
		slog.String("winner_id", winnerID))
	return nil
}

// UndoPoint reverts the latest point under the match lock. Undoing the
// deciding point reopens the match.
func (s *scoringService) UndoPoint(ctx context.Context, matchID string) (*models.Match, *models.MatchScore, error) {
	release := s.locker.Acquire(matchID)
	defer release()

	match, err := s.getMatch(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}
	score, err := s.GetScore(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}

	next, err := scoring.UndoLastPoint(score)
	if err != nil {
		return nil, nil, mapEngineError(err)
	}

	if err := s.scoreRepo.Update(ctx, s.db, next); err != nil {
		return nil, nil, fmt.Errorf("%w: failed to persist score for match %s: %w", ErrPersistenceFailure, matchID, err)
	}

	if score.WinnerID != nil && next.WinnerID == nil {
		if err := s.matchRepo.Reopen(ctx, matchID); err != nil {
			return nil, nil, fmt.Errorf("%w: failed to reopen match %s: %w", ErrPersistenceFailure, matchID, err)
		}
		match.Status = models.MatchStatusInProgress
		match.WinnerID = nil
		match.CompletedAt = nil
	}

	s.logger.Info("point undone", slog.String("match_id", matchID))
	return match, next, nil
}

// tallyResult sums the set and game counts of the final score from the
// winner's perspective.
func tallyResult(match *models.Match, score *models.MatchScore, winnerID string) repositories.MatchResult {
	result := repositories.MatchResult{
		WinnerID: winnerID,
		LoserID:  match.Player2ID,
	}
	if winnerID == match.Player2ID {
		result.LoserID = match.Player1ID
	}

	winnerIsPlayer1 := winnerID == match.Player1ID
	for _, set := range score.Sets {
		p1Games, p2Games := set.Player1Games, set.Player2Games
		if winnerIsPlayer1 {
			result.WinnerGames += p1Games
			result.LoserGames += p2Games
		} else {
			result.WinnerGames += p2Games
			result.LoserGames += p1Games
		}
		if set.WinnerID == nil {
			continue
		}
		if *set.WinnerID == winnerID {
			result.WinnerSets++
		} else {
			result.LoserSets++
		}
	}
	return result
}

func (s *scoringService) getMatch(ctx context.Context, matchID string) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("%w: failed to load match %s: %w", ErrPersistenceFailure, matchID, err)
	}
	return match, nil
}

func mapEngineError(err error) error {
	switch {
	case errors.Is(err, scoring.ErrInvalidPointWinner):
		return ErrInvalidPointWinner
	case errors.Is(err, scoring.ErrMatchAlreadyDecided):
		return ErrMatchAlreadyDecided
	case errors.Is(err, scoring.ErrNothingToUndo):
		return ErrNothingToUndo
	default:
		return err
	}
}

package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/matchpointhq/matchpoint-server/models"
	"github.com/matchpointhq/matchpoint-server/repositories"
	"github.com/matchpointhq/matchpoint-server/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMatchRepo keeps matches in memory with the same sentinel behavior as
// the postgres implementation.
type fakeMatchRepo struct {
	mu      sync.Mutex
	matches map[string]*models.Match
}

func newFakeMatchRepo(matches ...*models.Match) *fakeMatchRepo {
	r := &fakeMatchRepo{matches: make(map[string]*models.Match)}
	for _, m := range matches {
		r.matches[m.ID] = m
	}
	return r
}

func (r *fakeMatchRepo) Create(ctx context.Context, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches[match.ID] = match
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, id string) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *match
	return &copied, nil
}

func (r *fakeMatchRepo) List(ctx context.Context) ([]*models.Match, error) { return nil, nil }
func (r *fakeMatchRepo) ListByTournament(ctx context.Context, tournamentID string) ([]*models.Match, error) {
	return nil, nil
}
func (r *fakeMatchRepo) Update(ctx context.Context, match *models.Match) error { return nil }
func (r *fakeMatchRepo) Delete(ctx context.Context, id string) error           { return nil }

func (r *fakeMatchRepo) MarkInProgress(ctx context.Context, id string, startedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.Status = models.MatchStatusInProgress
	match.StartedAt = &startedAt
	return nil
}

func (r *fakeMatchRepo) MarkCompleted(ctx context.Context, exec repositories.SQLExecutor, id string, winnerID string, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.Status = models.MatchStatusCompleted
	match.WinnerID = &winnerID
	match.CompletedAt = &completedAt
	return nil
}

func (r *fakeMatchRepo) Reopen(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.Status = models.MatchStatusInProgress
	match.WinnerID = nil
	match.CompletedAt = nil
	return nil
}

type fakeScoreRepo struct {
	mu     sync.Mutex
	scores map[string]*models.MatchScore

	failUpdates bool
}

func newFakeScoreRepo() *fakeScoreRepo {
	return &fakeScoreRepo{scores: make(map[string]*models.MatchScore)}
}

func (r *fakeScoreRepo) Create(ctx context.Context, score *models.MatchScore) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scores[score.MatchID] = score.Clone()
	return nil
}

func (r *fakeScoreRepo) GetByMatchID(ctx context.Context, matchID string) (*models.MatchScore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	score, ok := r.scores[matchID]
	if !ok {
		return nil, repositories.ErrScoreNotFound
	}
	return score.Clone(), nil
}

func (r *fakeScoreRepo) Update(ctx context.Context, exec repositories.SQLExecutor, score *models.MatchScore) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdates {
		return errors.New("disk on fire")
	}
	if _, ok := r.scores[score.MatchID]; !ok {
		return repositories.ErrScoreNotFound
	}
	r.scores[score.MatchID] = score.Clone()
	return nil
}

func (r *fakeScoreRepo) DeleteByMatchID(ctx context.Context, matchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.scores, matchID)
	return nil
}

type fakePlayerRepo struct {
	mu      sync.Mutex
	results []repositories.MatchResult
}

func (r *fakePlayerRepo) Create(ctx context.Context, player *models.Player) error { return nil }
func (r *fakePlayerRepo) GetByID(ctx context.Context, id string) (*models.Player, error) {
	return nil, repositories.ErrPlayerNotFound
}
func (r *fakePlayerRepo) List(ctx context.Context) ([]*models.Player, error)  { return nil, nil }
func (r *fakePlayerRepo) Update(ctx context.Context, p *models.Player) error  { return nil }
func (r *fakePlayerRepo) Delete(ctx context.Context, id string) error         { return nil }
func (r *fakePlayerRepo) UpdateAvatarURL(ctx context.Context, id string, avatarURL *string) error {
	return nil
}

func (r *fakePlayerRepo) IncrementMatchResult(ctx context.Context, exec repositories.SQLExecutor, result repositories.MatchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return nil
}

// fakeTransactor runs the function directly; the fakes above do not need a
// real transaction to be consistent.
type fakeTransactor struct{}

func (fakeTransactor) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type scoringFixture struct {
	service    ScoringService
	matchRepo  *fakeMatchRepo
	scoreRepo  *fakeScoreRepo
	playerRepo *fakePlayerRepo
}

func newScoringFixture(t *testing.T, matches ...*models.Match) *scoringFixture {
	t.Helper()
	matchRepo := newFakeMatchRepo(matches...)
	scoreRepo := newFakeScoreRepo()
	playerRepo := &fakePlayerRepo{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &scoringFixture{
		service:    NewScoringService(nil, fakeTransactor{}, matchRepo, scoreRepo, playerRepo, scoring.NewMatchLocker(), logger),
		matchRepo:  matchRepo,
		scoreRepo:  scoreRepo,
		playerRepo: playerRepo,
	}
}

func testMatch() *models.Match {
	return &models.Match{
		ID:        "match-1",
		Player1ID: "p1",
		Player2ID: "p2",
		Status:    models.MatchStatusScheduled,
		BestOf:    3,
	}
}

func TestScoringService_InitializeIsIdempotent(t *testing.T) {
	fix := newScoringFixture(t, testMatch())
	ctx := context.Background()

	first, err := fix.service.Initialize(ctx, "match-1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.CurrentSet)

	// Score a point, then initialize again: the existing score survives.
	_, _, err = fix.service.ScorePoint(ctx, "match-1", 1)
	require.NoError(t, err)

	again, err := fix.service.Initialize(ctx, "match-1")
	require.NoError(t, err)
	assert.Len(t, again.History, 1)

	match, err := fix.matchRepo.GetByID(ctx, "match-1")
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusInProgress, match.Status)
	assert.NotNil(t, match.StartedAt)
}

func TestScoringService_InitializeUnknownMatch(t *testing.T) {
	fix := newScoringFixture(t)

	_, err := fix.service.Initialize(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestScoringService_ScorePointInitializesImplicitly(t *testing.T) {
	fix := newScoringFixture(t, testMatch())

	match, score, err := fix.service.ScorePoint(context.Background(), "match-1", 2)
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusInProgress, match.Status)
	assert.Equal(t, models.PointFifteen, score.Points[1])
	assert.Len(t, score.History, 1)
}

func TestScoringService_ScorePointInvalidWinner(t *testing.T) {
	fix := newScoringFixture(t, testMatch())

	_, _, err := fix.service.ScorePoint(context.Background(), "match-1", 7)
	assert.ErrorIs(t, err, ErrInvalidPointWinner)
}

func TestScoringService_ScorePointPersistenceFailure(t *testing.T) {
	fix := newScoringFixture(t, testMatch())
	ctx := context.Background()

	_, err := fix.service.Initialize(ctx, "match-1")
	require.NoError(t, err)

	fix.scoreRepo.failUpdates = true
	_, _, err = fix.service.ScorePoint(ctx, "match-1", 1)
	assert.ErrorIs(t, err, ErrPersistenceFailure)

	// The stored score is untouched by the failed command.
	fix.scoreRepo.failUpdates = false
	score, err := fix.service.GetScore(ctx, "match-1")
	require.NoError(t, err)
	assert.Empty(t, score.History)
}

func TestScoringService_ConcurrentPointsSerialize(t *testing.T) {
	fix := newScoringFixture(t, testMatch())
	ctx := context.Background()

	_, err := fix.service.Initialize(ctx, "match-1")
	require.NoError(t, err)

	// Two concurrent commands must both land; without per-match locking one
	// of them would apply to a stale state and overwrite the other.
	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			_, _, err := fix.service.ScorePoint(ctx, "match-1", 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	score, err := fix.service.GetScore(ctx, "match-1")
	require.NoError(t, err)
	assert.Len(t, score.History, 2)
	assert.Equal(t, models.PointThirty, score.Points[0])
}

// playOutMatch scores straight points for one player until the match ends.
func playOutMatch(t *testing.T, svc ScoringService, matchID string, winner int) *models.MatchScore {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		_, score, err := svc.ScorePoint(ctx, matchID, winner)
		require.NoError(t, err)
		if score.WinnerID != nil {
			return score
		}
	}
	t.Fatal("match did not finish within 100 straight points")
	return nil
}

func TestScoringService_MatchCompletionUpdatesEverything(t *testing.T) {
	fix := newScoringFixture(t, testMatch())
	ctx := context.Background()

	score := playOutMatch(t, fix.service, "match-1", 1)
	require.NotNil(t, score.WinnerID)
	assert.Equal(t, "p1", *score.WinnerID)

	match, err := fix.matchRepo.GetByID(ctx, "match-1")
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, match.Status)
	require.NotNil(t, match.WinnerID)
	assert.Equal(t, "p1", *match.WinnerID)
	assert.NotNil(t, match.CompletedAt)

	// Two straight 6-0 sets for p1: both players' counters reflect it.
	require.Len(t, fix.playerRepo.results, 1)
	assert.Equal(t, repositories.MatchResult{
		WinnerID:    "p1",
		LoserID:     "p2",
		WinnerSets:  2,
		LoserSets:   0,
		WinnerGames: 12,
		LoserGames:  0,
	}, fix.playerRepo.results[0])

	// Further points are rejected.
	_, _, err = fix.service.ScorePoint(ctx, "match-1", 1)
	assert.ErrorIs(t, err, ErrMatchAlreadyDecided)
}

func TestScoringService_UndoDecidingPointReopensMatch(t *testing.T) {
	fix := newScoringFixture(t, testMatch())
	ctx := context.Background()

	playOutMatch(t, fix.service, "match-1", 2)

	match, score, err := fix.service.UndoPoint(ctx, "match-1")
	require.NoError(t, err)

	assert.Nil(t, score.WinnerID)
	assert.Equal(t, models.MatchStatusInProgress, match.Status)
	assert.Nil(t, match.WinnerID)
	assert.Nil(t, match.CompletedAt)

	stored, err := fix.matchRepo.GetByID(ctx, "match-1")
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusInProgress, stored.Status)
	assert.Nil(t, stored.WinnerID)
}

func TestScoringService_UndoWithoutHistory(t *testing.T) {
	fix := newScoringFixture(t, testMatch())
	ctx := context.Background()

	_, err := fix.service.Initialize(ctx, "match-1")
	require.NoError(t, err)

	_, _, err = fix.service.UndoPoint(ctx, "match-1")
	assert.ErrorIs(t, err, ErrNothingToUndo)
}

func TestScoringService_UndoWithoutScore(t *testing.T) {
	fix := newScoringFixture(t, testMatch())

	_, _, err := fix.service.UndoPoint(context.Background(), "match-1")
	assert.ErrorIs(t, err, ErrScoreNotFound)
}

func TestScoringService_SnapshotBeforeInitialize(t *testing.T) {
	fix := newScoringFixture(t, testMatch())

	match, score, err := fix.service.Snapshot(context.Background(), "match-1")
	require.NoError(t, err)
	assert.Equal(t, "match-1", match.ID)
	assert.Nil(t, score)
}

func TestScoringService_SnapshotUnknownMatch(t *testing.T) {
	fix := newScoringFixture(t)

	_, _, err := fix.service.Snapshot(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

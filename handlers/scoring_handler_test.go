package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/matchpointhq/matchpoint-server/models"
	"github.com/matchpointhq/matchpoint-server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScoringService returns canned results keyed by match ID.
type fakeScoringService struct {
	match *models.Match
	score *models.MatchScore
	err   error
}

func (f *fakeScoringService) Initialize(ctx context.Context, matchID string) (*models.MatchScore, error) {
	return f.score, f.err
}

func (f *fakeScoringService) GetScore(ctx context.Context, matchID string) (*models.MatchScore, error) {
	return f.score, f.err
}

func (f *fakeScoringService) Snapshot(ctx context.Context, matchID string) (*models.Match, *models.MatchScore, error) {
	return f.match, f.score, f.err
}

func (f *fakeScoringService) StartMatch(ctx context.Context, matchID string) (*models.Match, *models.MatchScore, error) {
	return f.match, f.score, f.err
}

func (f *fakeScoringService) ScorePoint(ctx context.Context, matchID string, pointWinner int) (*models.Match, *models.MatchScore, error) {
	return f.match, f.score, f.err
}

func (f *fakeScoringService) UndoPoint(ctx context.Context, matchID string) (*models.Match, *models.MatchScore, error) {
	return f.match, f.score, f.err
}

func newScoringRouter(svc services.ScoringService) *chi.Mux {
	handler := NewScoringHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	router := chi.NewRouter()
	router.Get("/scoring/{matchID}", handler.GetScore)
	router.Post("/scoring/{matchID}/initialize", handler.Initialize)
	router.Post("/scoring/{matchID}/score", handler.ScorePoint)
	router.Post("/scoring/{matchID}/undo", handler.UndoPoint)
	return router
}

func TestScoringHandler_GetScore(t *testing.T) {
	router := newScoringRouter(&fakeScoringService{
		score: &models.MatchScore{MatchID: "match-1", CurrentSet: 2},
	})

	req := httptest.NewRequest(http.MethodGet, "/scoring/match-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"current_set": 2`)
}

func TestScoringHandler_GetScoreNotFound(t *testing.T) {
	router := newScoringRouter(&fakeScoringService{err: services.ErrScoreNotFound})

	req := httptest.NewRequest(http.MethodGet, "/scoring/match-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScoringHandler_Initialize(t *testing.T) {
	router := newScoringRouter(&fakeScoringService{
		score: &models.MatchScore{MatchID: "match-1", CurrentSet: 1},
	})

	req := httptest.NewRequest(http.MethodPost, "/scoring/match-1/initialize", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestScoringHandler_ScorePoint(t *testing.T) {
	winner := "p1"
	router := newScoringRouter(&fakeScoringService{
		match: &models.Match{ID: "match-1"},
		score: &models.MatchScore{MatchID: "match-1", WinnerID: &winner},
	})

	req := httptest.NewRequest(http.MethodPost, "/scoring/match-1/score", strings.NewReader(`{"point_winner": 1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"winner_id": "p1"`)
}

func TestScoringHandler_ScorePointBadBody(t *testing.T) {
	router := newScoringRouter(&fakeScoringService{})

	req := httptest.NewRequest(http.MethodPost, "/scoring/match-1/score", strings.NewReader(`{"point_winner": "one"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScoringHandler_ScorePointConflicts(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"match decided", services.ErrMatchAlreadyDecided, http.StatusConflict},
		{"invalid winner", services.ErrInvalidPointWinner, http.StatusBadRequest},
		{"match missing", services.ErrMatchNotFound, http.StatusNotFound},
		{"store broken", services.ErrPersistenceFailure, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newScoringRouter(&fakeScoringService{err: tt.err})

			req := httptest.NewRequest(http.MethodPost, "/scoring/match-1/score", strings.NewReader(`{"point_winner": 1}`))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestScoringHandler_UndoPoint(t *testing.T) {
	router := newScoringRouter(&fakeScoringService{
		match: &models.Match{ID: "match-1"},
		score: &models.MatchScore{MatchID: "match-1"},
	})

	req := httptest.NewRequest(http.MethodPost, "/scoring/match-1/undo", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestScoringHandler_UndoNothing(t *testing.T) {
	router := newScoringRouter(&fakeScoringService{err: services.ErrNothingToUndo})

	req := httptest.NewRequest(http.MethodPost, "/scoring/match-1/undo", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

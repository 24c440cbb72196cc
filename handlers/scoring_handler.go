package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/matchpointhq/matchpoint-server/services"
)

// ScoringHandler exposes the live scoring commands over plain HTTP, for
// clients that do not hold a WebSocket connection. The commands go through
// the same ScoringService, so they serialize with WebSocket commands for
// the same match.
type ScoringHandler struct {
	scoringService services.ScoringService
	logger         *slog.Logger
}

func NewScoringHandler(scoringService services.ScoringService, logger *slog.Logger) *ScoringHandler {
	return &ScoringHandler{
		scoringService: scoringService,
		logger:         logger,
	}
}

func (h *ScoringHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")

	score, err := h.scoringService.Initialize(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"score": score}, nil)
}

func (h *ScoringHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")

	score, err := h.scoringService.GetScore(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"score": score}, nil)
}

type scorePointRequest struct {
	PointWinner int `json:"point_winner"`
}

func (h *ScoringHandler) ScorePoint(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")

	var input scorePointRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, score, err := h.scoringService.ScorePoint(r.Context(), matchID, input.PointWinner)
	if err != nil {
		mapServiceErrorToHTTP(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match, "score": score}, nil)
}

func (h *ScoringHandler) UndoPoint(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")

	match, score, err := h.scoringService.UndoPoint(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match, "score": score}, nil)
}

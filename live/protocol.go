package live

import (
	"encoding/json"
	"time"

	"github.com/matchpointhq/matchpoint-server/models"
)

// Client -> server events.
const (
	EventJoinMatch  = "join_match"
	EventLeaveMatch = "leave_match"
	EventScorePoint = "score_point"
	EventUndoPoint  = "undo_point"
	EventStartMatch = "start_match"
)

// Server -> client events.
const (
	EventMatchUpdated = "match_updated"
	EventMatchStarted = "match_started"
	EventPointScored  = "point_scored"
	EventMatchEnded   = "match_ended"
	EventError        = "error"
)

// Envelope is the wire format in both directions. Data is kept raw on the
// way in so each event can decode its own payload.
type Envelope struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type JoinMatchPayload struct {
	MatchID string `json:"match_id"`
}

type ScorePointPayload struct {
	MatchID     string `json:"match_id"`
	PointWinner int    `json:"point_winner"`
}

// MatchStatePayload accompanies every server -> client state event.
type MatchStatePayload struct {
	Match *models.Match      `json:"match"`
	Score *models.MatchScore `json:"score"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func marshalEvent(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		Event:     event,
		Data:      raw,
		Timestamp: time.Now().UTC(),
	})
}

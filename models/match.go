package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled  MatchStatus = "SCHEDULED"
	MatchStatusInProgress MatchStatus = "IN_PROGRESS"
	MatchStatusCompleted  MatchStatus = "COMPLETED"
	MatchStatusCancelled  MatchStatus = "CANCELLED"
)

type Match struct {
	ID           string      `json:"id"`
	TournamentID string      `json:"tournament_id"`
	Player1ID    string      `json:"player1_id"`
	Player2ID    string      `json:"player2_id"`
	Status       MatchStatus `json:"status"`
	ScheduledAt  *time.Time  `json:"scheduled_at,omitempty"`
	StartedAt    *time.Time  `json:"started_at,omitempty"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	WinnerID     *string     `json:"winner_id,omitempty"`
	BestOf       int         `json:"best_of"` // 3 or 5 sets
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// SetsToWin is the number of sets required to take the match.
func (m *Match) SetsToWin() int {
	return (m.BestOf + 1) / 2
}

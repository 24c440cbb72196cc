package models

import "time"

type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "SINGLE_ELIMINATION"
	FormatDoubleElimination TournamentFormat = "DOUBLE_ELIMINATION"
	FormatRoundRobin        TournamentFormat = "ROUND_ROBIN"
	FormatSwiss             TournamentFormat = "SWISS"
)

type TournamentStatus string

const (
	TournamentStatusUpcoming   TournamentStatus = "UPCOMING"
	TournamentStatusInProgress TournamentStatus = "IN_PROGRESS"
	TournamentStatusCompleted  TournamentStatus = "COMPLETED"
	TournamentStatusCancelled  TournamentStatus = "CANCELLED"
)

type Tournament struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Location  string           `json:"location"`
	StartDate time.Time        `json:"start_date"`
	EndDate   time.Time        `json:"end_date"`
	Format    TournamentFormat `json:"format"`
	Status    TournamentStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

package models

import "time"

// PlayerStats are aggregate counters updated when a match completes.
// Match counters are incremented atomically at the persistence layer,
// never via read-modify-write in application code.
type PlayerStats struct {
	MatchesPlayed int `json:"matches_played"`
	MatchesWon    int `json:"matches_won"`
	MatchesLost   int `json:"matches_lost"`
	SetsWon       int `json:"sets_won"`
	SetsLost      int `json:"sets_lost"`
	GamesWon      int `json:"games_won"`
	GamesLost     int `json:"games_lost"`
}

type Player struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Ranking   *int        `json:"ranking,omitempty"`
	Country   *string     `json:"country,omitempty"`
	AvatarURL *string     `json:"avatar_url,omitempty"`
	Stats     PlayerStats `json:"stats"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

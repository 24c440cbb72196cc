package models

import "time"

// Point is one side's standing within the current game. The values are the
// conventional tennis call names; the string form matches what goes over
// the wire ("0", "15", "30", "40", "AD").
type Point string

const (
	PointLove      Point = "0"
	PointFifteen   Point = "15"
	PointThirty    Point = "30"
	PointForty     Point = "40"
	PointAdvantage Point = "AD"
)

// SetScore is the final line of one completed set. Tiebreak point counts
// are present only for sets decided by a tiebreak.
type SetScore struct {
	SetNumber             int     `json:"set_number"`
	Player1Games          int     `json:"player1_games"`
	Player2Games          int     `json:"player2_games"`
	Player1TiebreakPoints *int    `json:"player1_tiebreak_points,omitempty"`
	Player2TiebreakPoints *int    `json:"player2_tiebreak_points,omitempty"`
	WinnerID              *string `json:"winner_id,omitempty"`
}

// ScoreSnapshot captures every mutable scoring field after a point was
// applied. Undo restores a snapshot verbatim; a partial restore would leave
// tiebreak flags or the winner stale.
type ScoreSnapshot struct {
	CurrentSet     int        `json:"current_set"`
	Sets           []SetScore `json:"sets"`
	Games          [2]int     `json:"games"`
	Points         [2]Point   `json:"points"`
	InTiebreak     bool       `json:"in_tiebreak"`
	TiebreakPoints *[2]int    `json:"tiebreak_points,omitempty"`
	WinnerID       *string    `json:"winner_id,omitempty"`
}

// PointRecord is one entry of the undo history: who took the point and the
// full state that resulted from it.
type PointRecord struct {
	Timestamp   time.Time     `json:"timestamp"`
	PointWinner int           `json:"point_winner"`
	Snapshot    ScoreSnapshot `json:"snapshot"`
}

// MatchScore is the live scoring state of a single match. It is mutated
// only through the scoring engine, one command at a time per match.
type MatchScore struct {
	MatchID        string        `json:"match_id"`
	CurrentSet     int           `json:"current_set"`
	Sets           []SetScore    `json:"sets"`
	Games          [2]int        `json:"games"`
	Points         [2]Point      `json:"points"`
	Server         int           `json:"server"` // 1 or 2
	InTiebreak     bool          `json:"in_tiebreak"`
	TiebreakPoints *[2]int       `json:"tiebreak_points,omitempty"`
	WinnerID       *string       `json:"winner_id,omitempty"`
	History        []PointRecord `json:"history"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Snapshot copies the mutable scoring fields into a ScoreSnapshot.
func (s *MatchScore) Snapshot() ScoreSnapshot {
	snap := ScoreSnapshot{
		CurrentSet: s.CurrentSet,
		Sets:       make([]SetScore, len(s.Sets)),
		Games:      s.Games,
		Points:     s.Points,
		InTiebreak: s.InTiebreak,
	}
	copy(snap.Sets, s.Sets)
	if s.TiebreakPoints != nil {
		tb := *s.TiebreakPoints
		snap.TiebreakPoints = &tb
	}
	if s.WinnerID != nil {
		w := *s.WinnerID
		snap.WinnerID = &w
	}
	return snap
}

// Restore overwrites the mutable scoring fields from a snapshot.
func (s *MatchScore) Restore(snap ScoreSnapshot) {
	s.CurrentSet = snap.CurrentSet
	s.Sets = make([]SetScore, len(snap.Sets))
	copy(s.Sets, snap.Sets)
	s.Games = snap.Games
	s.Points = snap.Points
	s.InTiebreak = snap.InTiebreak
	if snap.TiebreakPoints != nil {
		tb := *snap.TiebreakPoints
		s.TiebreakPoints = &tb
	} else {
		s.TiebreakPoints = nil
	}
	if snap.WinnerID != nil {
		w := *snap.WinnerID
		s.WinnerID = &w
	} else {
		s.WinnerID = nil
	}
}

// Clone returns a deep copy so a transition can be computed and discarded
// without touching the persisted state.
func (s *MatchScore) Clone() *MatchScore {
	c := *s
	c.Sets = make([]SetScore, len(s.Sets))
	copy(c.Sets, s.Sets)
	if s.TiebreakPoints != nil {
		tb := *s.TiebreakPoints
		c.TiebreakPoints = &tb
	}
	if s.WinnerID != nil {
		w := *s.WinnerID
		c.WinnerID = &w
	}
	c.History = make([]PointRecord, len(s.History))
	copy(c.History, s.History)
	for i := range c.History {
		snap := s.History[i].Snapshot
		c.History[i].Snapshot = cloneSnapshot(snap)
	}
	return &c
}

func cloneSnapshot(snap ScoreSnapshot) ScoreSnapshot {
	c := snap
	c.Sets = make([]SetScore, len(snap.Sets))
	copy(c.Sets, snap.Sets)
	if snap.TiebreakPoints != nil {
		tb := *snap.TiebreakPoints
		c.TiebreakPoints = &tb
	}
	if snap.WinnerID != nil {
		w := *snap.WinnerID
		c.WinnerID = &w
	}
	return c
}

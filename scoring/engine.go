package scoring

import (
	"errors"
	"time"

	"github.com/matchpointhq/matchpoint-server/models"
)

var (
	ErrInvalidPointWinner  = errors.New("point winner must be player 1 or 2")
	ErrMatchAlreadyDecided = errors.New("match already has a winner")
	ErrNothingToUndo       = errors.New("no points to undo")
)

// Outcome reports which boundaries a single point crossed.
type Outcome struct {
	GameWon  bool
	SetWon   bool
	MatchWon bool
}

const (
	tiebreakTarget = 7 // tiebreak is won at 7+ points with a 2-point lead
	setTarget      = 6 // a set is won at 6+ games with a 2-game lead
)

// NewScore returns the zeroed scoring state for a match: first set, no
// games, love all, player 1 serving, empty history.
func NewScore(matchID string) *models.MatchScore {
	now := time.Now().UTC()
	return &models.MatchScore{
		MatchID:    matchID,
		CurrentSet: 1,
		Sets:       []models.SetScore{},
		Games:      [2]int{0, 0},
		Points:     [2]models.Point{models.PointLove, models.PointLove},
		Server:     1,
		InTiebreak: false,
		History:    []models.PointRecord{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ApplyPoint computes the state after pointWinner takes one point. The input
// state is not modified; the returned state has a full snapshot of itself
// appended to its history so the point can be undone later.
func ApplyPoint(score *models.MatchScore, match *models.Match, pointWinner int) (*models.MatchScore, Outcome, error) {
	if pointWinner != 1 && pointWinner != 2 {
		return nil, Outcome{}, ErrInvalidPointWinner
	}
	if score.WinnerID != nil {
		return nil, Outcome{}, ErrMatchAlreadyDecided
	}

	next := score.Clone()
	var outcome Outcome
	w := pointWinner - 1

	if next.InTiebreak {
		if next.TiebreakPoints == nil {
			next.TiebreakPoints = &[2]int{}
		}
		next.TiebreakPoints[w]++

		p1, p2 := next.TiebreakPoints[0], next.TiebreakPoints[1]
		if (p1 >= tiebreakTarget || p2 >= tiebreakTarget) && abs(p1-p2) >= 2 {
			// Tiebreak decides the set 7-6.
			next.Games[w]++
			outcome.GameWon = true
			concludeSet(next, match, pointWinner, &outcome)
		}
	} else {
		gameWon := advancePoint(next, pointWinner)
		if gameWon {
			next.Games[w]++
			next.Points = [2]models.Point{models.PointLove, models.PointLove}
			outcome.GameWon = true

			g1, g2 := next.Games[0], next.Games[1]
			switch {
			case g1 == setTarget && g2 == setTarget:
				next.InTiebreak = true
				next.TiebreakPoints = &[2]int{}
			case (g1 >= setTarget || g2 >= setTarget) && abs(g1-g2) >= 2:
				concludeSet(next, match, pointWinner, &outcome)
			}
		}
	}

	next.UpdatedAt = time.Now().UTC()
	next.History = append(next.History, models.PointRecord{
		Timestamp:   next.UpdatedAt,
		PointWinner: pointWinner,
		Snapshot:    next.Snapshot(),
	})
	return next, outcome, nil
}

// UndoLastPoint reverts the most recent point. With a single history entry
// the zeroed initial state comes back; otherwise the second-to-last
// snapshot is restored verbatim, every field included.
func UndoLastPoint(score *models.MatchScore) (*models.MatchScore, error) {
	if len(score.History) == 0 {
		return nil, ErrNothingToUndo
	}

	next := score.Clone()
	if len(next.History) == 1 {
		fresh := NewScore(next.MatchID)
		fresh.Server = next.Server
		fresh.CreatedAt = next.CreatedAt
		return fresh, nil
	}

	prev := next.History[len(next.History)-2]
	next.Restore(prev.Snapshot)
	next.History = next.History[:len(next.History)-1]
	next.UpdatedAt = time.Now().UTC()
	return next, nil
}

// advancePoint applies one regular (non-tiebreak) point and reports whether
// it won the game. The game-win check looks at the winner's standing before
// the point: holding advantage, or holding forty against anything short of
// forty, means this point takes the game.
func advancePoint(score *models.MatchScore, pointWinner int) bool {
	w := pointWinner - 1
	l := 1 - w
	pw, pl := score.Points[w], score.Points[l]

	switch {
	case pw == models.PointAdvantage:
		return true
	case pw == models.PointForty && pl != models.PointForty && pl != models.PointAdvantage:
		return true
	case pw == models.PointForty && pl == models.PointForty:
		score.Points[w] = models.PointAdvantage
	case pl == models.PointAdvantage:
		// Opponent loses the advantage, back to deuce.
		score.Points[l] = models.PointForty
	case pw == models.PointLove:
		score.Points[w] = models.PointFifteen
	case pw == models.PointFifteen:
		score.Points[w] = models.PointThirty
	case pw == models.PointThirty:
		score.Points[w] = models.PointForty
	}
	return false
}

// concludeSet records the finished set, decides whether the match is over
// and otherwise rolls the state into the next set.
func concludeSet(score *models.MatchScore, match *models.Match, setWinner int, outcome *Outcome) {
	outcome.SetWon = true

	winnerID := match.Player1ID
	if setWinner == 2 {
		winnerID = match.Player2ID
	}

	set := models.SetScore{
		SetNumber:    score.CurrentSet,
		Player1Games: score.Games[0],
		Player2Games: score.Games[1],
		WinnerID:     &winnerID,
	}
	if score.InTiebreak && score.TiebreakPoints != nil {
		tb1, tb2 := score.TiebreakPoints[0], score.TiebreakPoints[1]
		set.Player1TiebreakPoints = &tb1
		set.Player2TiebreakPoints = &tb2
	}
	score.Sets = append(score.Sets, set)

	p1Sets, p2Sets := countSetsWon(score.Sets, match)
	switch {
	case p1Sets >= match.SetsToWin():
		id := match.Player1ID
		score.WinnerID = &id
		outcome.MatchWon = true
	case p2Sets >= match.SetsToWin():
		id := match.Player2ID
		score.WinnerID = &id
		outcome.MatchWon = true
	default:
		score.CurrentSet++
		score.Games = [2]int{0, 0}
		score.Points = [2]models.Point{models.PointLove, models.PointLove}
		score.InTiebreak = false
		score.TiebreakPoints = nil
	}
}

func countSetsWon(sets []models.SetScore, match *models.Match) (int, int) {
	var p1, p2 int
	for _, set := range sets {
		if set.WinnerID == nil {
			continue
		}
		switch *set.WinnerID {
		case match.Player1ID:
			p1++
		case match.Player2ID:
			p2++
		}
	}
	return p1, p2
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

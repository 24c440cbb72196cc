package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matchpointhq/matchpoint-server/live"
	"github.com/matchpointhq/matchpoint-server/models"
	"github.com/matchpointhq/matchpoint-server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCommander serves canned match state and flips the winner on demand,
// so the wire protocol can be exercised without a database.
type fakeCommander struct {
	match      *models.Match
	score      *models.MatchScore
	nextPoints int
	decideAt   int // points until ScorePoint reports a winner, 0 = never
}

func newFakeCommander() *fakeCommander {
	return &fakeCommander{
		match: &models.Match{ID: "match-1", Player1ID: "p1", Player2ID: "p2", BestOf: 3},
		score: &models.MatchScore{MatchID: "match-1", CurrentSet: 1},
	}
}

func (f *fakeCommander) Snapshot(ctx context.Context, matchID string) (*models.Match, *models.MatchScore, error) {
	if matchID != f.match.ID {
		return nil, nil, services.ErrMatchNotFound
	}
	return f.match, f.score, nil
}

func (f *fakeCommander) StartMatch(ctx context.Context, matchID string) (*models.Match, *models.MatchScore, error) {
	return f.Snapshot(ctx, matchID)
}

func (f *fakeCommander) ScorePoint(ctx context.Context, matchID string, pointWinner int) (*models.Match, *models.MatchScore, error) {
	if pointWinner != 1 && pointWinner != 2 {
		return nil, nil, services.ErrInvalidPointWinner
	}
	if matchID != f.match.ID {
		return nil, nil, services.ErrMatchNotFound
	}
	f.nextPoints++
	score := *f.score
	if f.decideAt > 0 && f.nextPoints >= f.decideAt {
		winner := f.match.Player1ID
		score.WinnerID = &winner
	}
	return f.match, &score, nil
}

func (f *fakeCommander) UndoPoint(ctx context.Context, matchID string) (*models.Match, *models.MatchScore, error) {
	if matchID != f.match.ID {
		return nil, nil, services.ErrMatchNotFound
	}
	return f.match, f.score, nil
}

type wsFixture struct {
	conn      *websocket.Conn
	commander *fakeCommander
	cancel    context.CancelFunc
}

func dialTestServer(t *testing.T) *wsFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := live.NewHub(logger, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	commander := newFakeCommander()
	handler := NewWebSocketHandler(hub, commander, logger)

	server := httptest.NewServer(http.HandlerFunc(handler.ServeWs))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
		cancel()
	})

	return &wsFixture{conn: conn, commander: commander, cancel: cancel}
}

func (f *wsFixture) send(t *testing.T, event string, payload interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	raw, err := json.Marshal(live.Envelope{Event: event, Data: data, Timestamp: time.Now()})
	require.NoError(t, err)
	require.NoError(t, f.conn.WriteMessage(websocket.TextMessage, raw))
}

func (f *wsFixture) receive(t *testing.T) live.Envelope {
	t.Helper()
	f.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := f.conn.ReadMessage()
	require.NoError(t, err)
	var envelope live.Envelope
	require.NoError(t, json.Unmarshal(raw, &envelope))
	return envelope
}

func (f *wsFixture) receiveState(t *testing.T, envelope live.Envelope) live.MatchStatePayload {
	t.Helper()
	var state live.MatchStatePayload
	require.NoError(t, json.Unmarshal(envelope.Data, &state))
	return state
}

func TestServeWs_JoinMatchReturnsCurrentState(t *testing.T) {
	fix := dialTestServer(t)

	fix.send(t, live.EventJoinMatch, live.JoinMatchPayload{MatchID: "match-1"})

	envelope := fix.receive(t)
	assert.Equal(t, live.EventMatchUpdated, envelope.Event)

	state := fix.receiveState(t, envelope)
	require.NotNil(t, state.Match)
	assert.Equal(t, "match-1", state.Match.ID)
	require.NotNil(t, state.Score)
	assert.Equal(t, 1, state.Score.CurrentSet)
}

func TestServeWs_JoinUnknownMatch(t *testing.T) {
	fix := dialTestServer(t)

	fix.send(t, live.EventJoinMatch, live.JoinMatchPayload{MatchID: "missing"})

	envelope := fix.receive(t)
	assert.Equal(t, live.EventError, envelope.Event)

	var payload live.ErrorPayload
	require.NoError(t, json.Unmarshal(envelope.Data, &payload))
	assert.Contains(t, payload.Message, "not found")
}

func TestServeWs_ScorePointBroadcastsToRoom(t *testing.T) {
	fix := dialTestServer(t)

	fix.send(t, live.EventJoinMatch, live.JoinMatchPayload{MatchID: "match-1"})
	fix.receive(t) // initial state

	fix.send(t, live.EventScorePoint, live.ScorePointPayload{MatchID: "match-1", PointWinner: 1})

	envelope := fix.receive(t)
	assert.Equal(t, live.EventPointScored, envelope.Event)
}

func TestServeWs_DecidingPointAlsoEndsMatch(t *testing.T) {
	fix := dialTestServer(t)
	fix.commander.decideAt = 1

	fix.send(t, live.EventJoinMatch, live.JoinMatchPayload{MatchID: "match-1"})
	fix.receive(t)

	fix.send(t, live.EventScorePoint, live.ScorePointPayload{MatchID: "match-1", PointWinner: 1})

	assert.Equal(t, live.EventPointScored, fix.receive(t).Event)

	envelope := fix.receive(t)
	assert.Equal(t, live.EventMatchEnded, envelope.Event)
	state := fix.receiveState(t, envelope)
	require.NotNil(t, state.Score.WinnerID)
	assert.Equal(t, "p1", *state.Score.WinnerID)
}

func TestServeWs_InvalidCommandStaysOnSender(t *testing.T) {
	fix := dialTestServer(t)

	fix.send(t, live.EventScorePoint, live.ScorePointPayload{MatchID: "match-1", PointWinner: 9})

	envelope := fix.receive(t)
	assert.Equal(t, live.EventError, envelope.Event)
}

func TestServeWs_UnknownEvent(t *testing.T) {
	fix := dialTestServer(t)

	fix.send(t, "bogus", struct{}{})

	envelope := fix.receive(t)
	assert.Equal(t, live.EventError, envelope.Event)
}

func TestServeWs_MalformedMessage(t *testing.T) {
	fix := dialTestServer(t)

	require.NoError(t, fix.conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	envelope := fix.receive(t)
	assert.Equal(t, live.EventError, envelope.Event)
}

func TestServeWs_LeaveMatchStopsEvents(t *testing.T) {
	fix := dialTestServer(t)

	fix.send(t, live.EventJoinMatch, live.JoinMatchPayload{MatchID: "match-1"})
	fix.receive(t)

	fix.send(t, live.EventLeaveMatch, live.JoinMatchPayload{MatchID: "match-1"})
	fix.send(t, live.EventScorePoint, live.ScorePointPayload{MatchID: "match-1", PointWinner: 1})

	// The broadcast goes to the now-empty room, so nothing arrives.
	fix.conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err := fix.conn.ReadMessage()
	assert.Error(t, err)
}

package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pongarena/internal/game"
	"pongarena/internal/tournament"
)

type fakeConn struct {
	mu     sync.Mutex
	msgs   []any
	closed bool
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// messageTypes extracts the "type" tag of every message written so far.
func (c *fakeConn) messageTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	types := make([]string, 0, len(c.msgs))
	for _, m := range c.msgs {
		raw, err := json.Marshal(m)
		if err != nil {
			continue
		}
		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &envelope); err == nil {
			types = append(types, envelope.Type)
		}
	}
	return types
}

func (c *fakeConn) sawType(t string) bool {
	for _, typ := range c.messageTypes() {
		if typ == t {
			return true
		}
	}
	return false
}

type fakeReporter struct {
	mu      sync.Mutex
	results []Result
}

func (r *fakeReporter) ReportResult(result Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func (r *fakeReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

type fakeCompleter struct {
	mu      sync.Mutex
	matches []uuid.UUID
	winners []string
}

func (c *fakeCompleter) CompleteMatch(_ context.Context, matchID uuid.UUID, winnerAlias string) (*tournament.Match, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matches = append(c.matches, matchID)
	c.winners = append(c.winners, winnerAlias)
	return nil, nil
}

func (c *fakeCompleter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.matches)
}

func fastOptions(extra ...Option) []Option {
	opts := []Option{
		WithTickInterval(time.Millisecond),
		WithCountdownStep(time.Millisecond),
	}
	return append(opts, extra...)
}

func TestJoinAssignsSlotsInOrder(t *testing.T) {
	sess := New("m1", fastOptions()...)

	n1, err := sess.Join("p1", "Alice", &fakeConn{})
	require.NoError(t, err)
	assert.Equal(t, 1, n1)

	n2, err := sess.Join("p2", "Bob", &fakeConn{})
	require.NoError(t, err)
	assert.Equal(t, 2, n2)

	_, err = sess.Join("p3", "Carol", &fakeConn{})
	assert.ErrorIs(t, err, ErrSessionFull)
}

func TestFirstPlayerWaitsForOpponent(t *testing.T) {
	sess := New("m1", fastOptions()...)
	conn := &fakeConn{}

	_, err := sess.Join("p1", "Alice", conn)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return conn.sawType("match-assigned") && conn.sawType("waiting")
	}, time.Second, time.Millisecond)
	assert.Equal(t, StatusWaiting, sess.Status())
}

func TestReadyHandshakeRunsMatch(t *testing.T) {
	sess := New("m1", fastOptions()...)
	c1, c2 := &fakeConn{}, &fakeConn{}

	_, err := sess.Join("p1", "Alice", c1)
	require.NoError(t, err)
	_, err = sess.Join("p2", "Bob", c2)
	require.NoError(t, err)

	sess.Ready(1)
	assert.Equal(t, StatusWaiting, sess.Status(), "one ready player is not enough")
	sess.Ready(2)

	require.Eventually(t, func() bool {
		return sess.Status() == StatusPlaying
	}, 2*time.Second, time.Millisecond)

	// Both players observed the countdown and the start signal, and
	// snapshots flow every tick.
	require.Eventually(t, func() bool {
		return c1.sawType("game-state") && c2.sawType("game-state")
	}, 2*time.Second, time.Millisecond)
	assert.True(t, c1.sawType("countdown"))
	assert.True(t, c1.sawType("game-start"))
	assert.True(t, c2.sawType("countdown"))

	sess.Disconnect(1)
}

func TestInputRequiresOwnedSlot(t *testing.T) {
	sess := New("m1", fastOptions()...)
	_, err := sess.Join("p1", "Alice", &fakeConn{})
	require.NoError(t, err)

	evt := game.InputEvent{Type: game.KeyDownEvent, Key: game.KeyUp}
	assert.NoError(t, sess.HandleInput(1, evt))
	assert.ErrorIs(t, sess.HandleInput(2, evt), ErrNotYourSlot)
	assert.ErrorIs(t, sess.HandleInput(0, evt), ErrNotYourSlot)
}

func TestDisconnectForfeitsToRemainingPlayer(t *testing.T) {
	reporter := &fakeReporter{}
	sess := New("m1", fastOptions(WithReporter(reporter))...)
	c1, c2 := &fakeConn{}, &fakeConn{}

	_, err := sess.Join("p1", "Alice", c1)
	require.NoError(t, err)
	_, err = sess.Join("p2", "Bob", c2)
	require.NoError(t, err)

	sess.Disconnect(2)

	assert.Equal(t, StatusAbandoned, sess.Status())
	require.Equal(t, 1, reporter.count())
	result := reporter.results[0]
	assert.Equal(t, "Alice", result.WinnerAlias)
	assert.Equal(t, "Bob", result.LoserAlias)
	assert.True(t, result.Forfeit)

	require.Eventually(t, func() bool {
		return c1.sawType("game-over")
	}, time.Second, time.Millisecond)
}

func TestDuplicateDisconnectReportsOnce(t *testing.T) {
	reporter := &fakeReporter{}
	sess := New("m1", fastOptions(WithReporter(reporter))...)

	_, err := sess.Join("p1", "Alice", &fakeConn{})
	require.NoError(t, err)
	_, err = sess.Join("p2", "Bob", &fakeConn{})
	require.NoError(t, err)

	sess.Disconnect(2)
	sess.Disconnect(2)
	sess.Disconnect(1)

	assert.Equal(t, 1, reporter.count())
}

func TestTournamentCompletionRoutedToEngine(t *testing.T) {
	completer := &fakeCompleter{}
	matchID := uuid.New()
	terminalled := make(chan struct{})

	sess := New(matchID.String(), fastOptions(
		WithTournament(TournamentContext{MatchID: matchID, Completer: completer}),
		WithOnTerminal(func(*Session) { close(terminalled) }),
	)...)
	assert.True(t, sess.IsTournament())

	_, err := sess.Join("p1", "Alice", &fakeConn{})
	require.NoError(t, err)
	_, err = sess.Join("p2", "Bob", &fakeConn{})
	require.NoError(t, err)

	sess.Disconnect(1)
	sess.Disconnect(1)

	select {
	case <-terminalled:
	case <-time.After(time.Second):
		t.Fatal("session never reached a terminal state")
	}

	require.Equal(t, 1, completer.count())
	assert.Equal(t, matchID, completer.matches[0])
	assert.Equal(t, "Bob", completer.winners[0])
}

func TestLoneWaitingPlayerLeavesWithoutResult(t *testing.T) {
	reporter := &fakeReporter{}
	sess := New("m1", fastOptions(WithReporter(reporter))...)

	_, err := sess.Join("p1", "Alice", &fakeConn{})
	require.NoError(t, err)

	sess.Disconnect(1)

	assert.Equal(t, StatusAbandoned, sess.Status())
	assert.Zero(t, reporter.count(), "no completion event without an opponent")
}

func TestInputRejectedAfterTerminalState(t *testing.T) {
	sess := New("m1", fastOptions()...)

	_, err := sess.Join("p1", "Alice", &fakeConn{})
	require.NoError(t, err)
	_, err = sess.Join("p2", "Bob", &fakeConn{})
	require.NoError(t, err)

	sess.Disconnect(2)

	evt := game.InputEvent{Type: game.KeyDownEvent, Key: game.KeyDown}
	assert.ErrorIs(t, sess.HandleInput(1, evt), ErrSessionFinished)
}

func TestJoinRejectedAfterTerminalState(t *testing.T) {
	sess := New("m1", fastOptions()...)

	_, err := sess.Join("p1", "Alice", &fakeConn{})
	require.NoError(t, err)
	sess.Disconnect(1)

	_, err = sess.Join("p2", "Bob", &fakeConn{})
	assert.ErrorIs(t, err, ErrSessionFinished)
}

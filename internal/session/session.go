// Package session binds player connections to authoritative match
// simulations. Each live session runs its own fixed-tick goroutine;
// sessions share nothing except the registry that tracks them.
package session

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"pongarena/internal/game"
	"pongarena/internal/tournament"
	"pongarena/internal/ws"
)

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusReady     Status = "ready"
	StatusCountdown Status = "countdown"
	StatusPlaying   Status = "playing"
	StatusFinished  Status = "finished"
	StatusAbandoned Status = "abandoned"
)

const (
	DefaultTickInterval = 16 * time.Millisecond
	countdownFrom       = 3
)

var (
	ErrSessionFull     = errors.New("session already has two players")
	ErrNotYourSlot     = errors.New("input does not belong to this player slot")
	ErrSessionFinished = errors.New("session is in a terminal state")
)

// Conn is the transport surface a session needs from a player
// connection. *websocket.Conn satisfies it.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// MatchCompleter records a finished tournament match. Satisfied by
// *engine.Engine.
type MatchCompleter interface {
	CompleteMatch(ctx context.Context, matchID uuid.UUID, winnerAlias string) (*tournament.Match, error)
}

// TournamentContext ties a session to its persisted match row. It is
// chosen once at creation; a nil context means a casual match whose
// result only reaches the Reporter.
type TournamentContext struct {
	MatchID   uuid.UUID
	Completer MatchCompleter
}

// Result is the completion event emitted exactly once per session.
type Result struct {
	SessionID   string
	WinnerAlias string
	LoserAlias  string
	Scores      [2]int
	Duration    time.Duration
	Forfeit     bool
}

// Reporter receives results of casual (non-tournament) matches.
type Reporter interface {
	ReportResult(Result)
}

type slot struct {
	playerID string
	alias    string
	number   int
	ready    bool
	send     chan any
	done     chan struct{}
}

// Session owns one live match: two player slots, the simulation, and
// the tick loop that drives it.
type Session struct {
	id  string
	log *slog.Logger

	tctx     *TournamentContext
	reporter Reporter

	tick      time.Duration
	stepDelay time.Duration
	rng       *rand.Rand

	onTerminal func(*Session)

	mu      sync.Mutex
	status  Status
	slots   [2]*slot
	sim     *game.Simulation
	pending []pendingInput

	startedAt time.Time
	loopStop  chan struct{}
	once      sync.Once
}

type pendingInput struct {
	player int
	evt    game.InputEvent
}

type Option func(*Session)

// WithTournament routes the completion event to the tournament engine
// instead of the casual result reporter.
func WithTournament(tctx TournamentContext) Option {
	return func(s *Session) { s.tctx = &tctx }
}

func WithReporter(r Reporter) Option {
	return func(s *Session) { s.reporter = r }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithTickInterval overrides the 16ms tick, mainly for tests.
func WithTickInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithCountdownStep overrides the one second countdown step.
func WithCountdownStep(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.stepDelay = d
		}
	}
}

func WithRand(rng *rand.Rand) Option {
	return func(s *Session) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithOnTerminal registers a hook invoked once the session reaches a
// terminal state, used by the registry for cleanup.
func WithOnTerminal(fn func(*Session)) Option {
	return func(s *Session) { s.onTerminal = fn }
}

func New(id string, opts ...Option) *Session {
	s := &Session{
		id:        id,
		log:       slog.Default(),
		status:    StatusWaiting,
		tick:      DefaultTickInterval,
		stepDelay: time.Second,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		loopStop:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sim = game.NewSimulation(s.rng)
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// IsTournament reports whether completion is routed to the tournament
// engine.
func (s *Session) IsTournament() bool { return s.tctx != nil }

// Join assigns the connecting player to the first free slot and returns
// its player number. The first player becomes player 1.
func (s *Session) Join(playerID, alias string, conn Conn) (int, error) {
	s.mu.Lock()
	if s.status != StatusWaiting {
		s.mu.Unlock()
		return 0, ErrSessionFinished
	}

	var sl *slot
	for i := range s.slots {
		if s.slots[i] == nil {
			sl = &slot{
				playerID: playerID,
				alias:    alias,
				number:   i + 1,
				send:     make(chan any, 64),
				done:     make(chan struct{}),
			}
			s.slots[i] = sl
			break
		}
	}
	if sl == nil {
		s.mu.Unlock()
		return 0, ErrSessionFull
	}

	opponent := ""
	if other := s.slots[2-sl.number-1]; other != nil {
		opponent = other.alias
	}
	s.mu.Unlock()

	go writePump(conn, sl.send, sl.done, s.log)

	s.sendTo(sl.number, ws.NewMatchAssigned(s.id, sl.number, opponent))
	if opponent == "" {
		s.sendTo(sl.number, ws.NewWaiting())
	} else {
		// Second join: tell player 1 who arrived.
		s.sendTo(1, ws.NewMatchAssigned(s.id, 1, alias))
	}
	return sl.number, nil
}

// Ready acknowledges the handshake for a slot. When both players are
// connected and ready the session leaves WAITING and the match loop
// starts.
func (s *Session) Ready(playerNumber int) {
	s.mu.Lock()
	sl := s.slotLocked(playerNumber)
	if sl == nil || s.status != StatusWaiting {
		s.mu.Unlock()
		return
	}
	sl.ready = true

	both := s.slots[0] != nil && s.slots[1] != nil &&
		s.slots[0].ready && s.slots[1].ready
	if both {
		s.status = StatusReady
	}
	s.mu.Unlock()

	if both {
		s.broadcast(ws.NewReady())
		go s.run()
	}
}

// HandleInput buffers a key transition; it is consumed by the tick loop.
// The transport passes the slot it authenticated, so a mismatched player
// number means a client sending input for the opposing paddle.
func (s *Session) HandleInput(playerNumber int, evt game.InputEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slotLocked(playerNumber) == nil {
		return ErrNotYourSlot
	}
	switch s.status {
	case StatusFinished, StatusAbandoned:
		return ErrSessionFinished
	}
	s.pending = append(s.pending, pendingInput{player: playerNumber, evt: evt})
	return nil
}

// Disconnect resolves a dropped connection. Before a terminal state the
// remaining player wins by forfeit; duplicate disconnect signals are
// absorbed by the completion guard.
func (s *Session) Disconnect(playerNumber int) {
	s.mu.Lock()
	if s.slotLocked(playerNumber) == nil {
		s.mu.Unlock()
		return
	}
	switch s.status {
	case StatusFinished, StatusAbandoned:
		s.mu.Unlock()
		return
	}
	other := s.slots[2-playerNumber-1]
	s.mu.Unlock()

	if other == nil {
		// Lone player left before an opponent arrived; nothing to score.
		s.terminate(StatusAbandoned)
		return
	}
	s.finish(other.number, true)
}

// run drives the countdown and the fixed-tick loop. It is the only
// goroutine that mutates the simulation.
func (s *Session) run() {
	for count := countdownFrom; count >= 1; count-- {
		s.mu.Lock()
		if s.status != StatusReady && s.status != StatusCountdown {
			s.mu.Unlock()
			return
		}
		s.status = StatusCountdown
		s.mu.Unlock()

		s.broadcast(ws.NewCountdown(count))
		select {
		case <-time.After(s.stepDelay):
		case <-s.loopStop:
			return
		}
	}

	s.mu.Lock()
	if s.status != StatusCountdown {
		s.mu.Unlock()
		return
	}
	s.status = StatusPlaying
	s.startedAt = time.Now()
	s.mu.Unlock()
	s.broadcast(ws.NewGameStart())

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-s.loopStop:
			return
		case <-ticker.C:
			if done := s.step(); done {
				return
			}
		}
	}
}

// step runs one simulation tick: drain buffered inputs, advance physics,
// broadcast the snapshot, and finish on a win.
func (s *Session) step() bool {
	s.mu.Lock()
	if s.status != StatusPlaying {
		s.mu.Unlock()
		return true
	}
	for _, in := range s.pending {
		s.sim.ApplyInput(in.player, in.evt)
	}
	s.pending = s.pending[:0]

	outcome := s.sim.Step()
	snapshot := s.sim.Snapshot()
	s.mu.Unlock()

	s.broadcast(ws.NewGameState(snapshot))

	if outcome.Winner != 0 {
		s.finish(outcome.Winner, false)
		return true
	}
	return false
}

// finish emits the completion event exactly once, regardless of how many
// disconnect or win signals race to it.
func (s *Session) finish(winnerNumber int, forfeit bool) {
	s.once.Do(func() {
		s.mu.Lock()
		if forfeit {
			s.status = StatusAbandoned
		} else {
			s.status = StatusFinished
		}
		close(s.loopStop)

		winner := s.slots[winnerNumber-1]
		loser := s.slots[2-winnerNumber-1]
		p1, p2 := s.sim.Scores()
		var duration time.Duration
		if !s.startedAt.IsZero() {
			duration = time.Since(s.startedAt)
		}
		s.mu.Unlock()

		loserAlias := ""
		if loser != nil {
			loserAlias = loser.alias
		}
		s.broadcast(ws.NewGameOver(winner.alias, [2]int{p1, p2}, [2]string{s.aliasOf(1), s.aliasOf(2)}))

		result := Result{
			SessionID:   s.id,
			WinnerAlias: winner.alias,
			LoserAlias:  loserAlias,
			Scores:      [2]int{p1, p2},
			Duration:    duration,
			Forfeit:     forfeit,
		}
		s.report(result)
		s.closeSlots()
		if s.onTerminal != nil {
			s.onTerminal(s)
		}
	})
}

func (s *Session) report(result Result) {
	if s.tctx != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := s.tctx.Completer.CompleteMatch(ctx, s.tctx.MatchID, result.WinnerAlias); err != nil {
			s.log.Error("failed to record tournament match result",
				"session", s.id, "match", s.tctx.MatchID, "error", err)
		}
		return
	}
	if s.reporter != nil {
		s.reporter.ReportResult(result)
	}
	s.log.Info("match finished", "session", s.id, "winner", result.WinnerAlias,
		"forfeit", result.Forfeit, "score1", result.Scores[0], "score2", result.Scores[1])
}

// terminate tears the session down without a completion event; used when
// a lone waiting player leaves.
func (s *Session) terminate(status Status) {
	s.once.Do(func() {
		s.mu.Lock()
		s.status = status
		close(s.loopStop)
		s.mu.Unlock()

		s.closeSlots()
		if s.onTerminal != nil {
			s.onTerminal(s)
		}
	})
}

func (s *Session) slotLocked(playerNumber int) *slot {
	if playerNumber != 1 && playerNumber != 2 {
		return nil
	}
	return s.slots[playerNumber-1]
}

func (s *Session) aliasOf(playerNumber int) string {
	if sl := s.slots[playerNumber-1]; sl != nil {
		return sl.alias
	}
	return ""
}

// sendTo enqueues a message for one slot, dropping it if the writer is
// backed up. Slow consumers must not stall the tick loop.
func (s *Session) sendTo(playerNumber int, msg any) {
	s.mu.Lock()
	sl := s.slotLocked(playerNumber)
	s.mu.Unlock()
	if sl == nil {
		return
	}
	select {
	case sl.send <- msg:
	default:
	}
}

// SendError delivers a protocol error to one player without touching
// session state.
func (s *Session) SendError(playerNumber int, message string) {
	s.sendTo(playerNumber, ws.NewError(message))
}

func (s *Session) broadcast(msg any) {
	s.sendTo(1, msg)
	s.sendTo(2, msg)
}

func (s *Session) closeSlots() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sl := range s.slots {
		if sl == nil {
			continue
		}
		select {
		case <-sl.done:
		default:
			close(sl.done)
		}
	}
}

// writePump drains a slot's send queue onto its connection until the
// slot is closed or a write fails.
func writePump(conn Conn, send <-chan any, done <-chan struct{}, log *slog.Logger) {
	defer conn.Close()
	for {
		select {
		case <-done:
			// Flush whatever was queued before shutdown so the final
			// game-over still reaches the client.
			for {
				select {
				case msg := <-send:
					if err := conn.WriteJSON(msg); err != nil {
						return
					}
				default:
					return
				}
			}
		case msg := <-send:
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

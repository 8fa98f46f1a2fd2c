package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pongarena/internal/session"
	"pongarena/internal/tournament"
	"pongarena/internal/ws"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newCasualSession builds a matchmade session wired to the registry and
// the result log.
func (s *server) newCasualSession(id string) *session.Session {
	return session.New(id,
		session.WithLogger(s.log),
		session.WithTickInterval(s.cfg.TickInterval),
		session.WithReporter(logReporter{log: s.log}),
		session.WithOnTerminal(func(sess *session.Session) {
			s.registry.Remove(sess.ID())
		}),
	)
}

// logReporter is the stand-in for the external stats collaborator:
// casual match results are logged, nothing else.
type logReporter struct {
	log interface {
		Info(msg string, args ...any)
	}
}

func (r logReporter) ReportResult(result session.Result) {
	r.log.Info("casual match result",
		"session", result.SessionID,
		"winner", result.WinnerAlias,
		"loser", result.LoserAlias,
		"score1", result.Scores[0],
		"score2", result.Scores[1],
		"duration", result.Duration,
		"forfeit", result.Forfeit,
	)
}

// handlePlay enqueues the connecting player for matchmaking. The first
// player of a pair waits in a fresh session; the second one completes it.
func (s *server) handlePlay(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player")
	alias := r.URL.Query().Get("alias")
	if playerID == "" || alias == "" {
		http.Error(w, "player and alias query parameters are required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	sess, number, err := s.matchmaker.Enqueue(playerID, alias, conn)
	if err != nil {
		conn.WriteJSON(ws.NewError(err.Error()))
		conn.Close()
		return
	}

	s.readPump(conn, sess, number, playerID)
}

// handleJoinMatch attaches a player to the live session of a persisted
// tournament match, creating the session on first join.
func (s *server) handleJoinMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid match ID", http.StatusBadRequest)
		return
	}
	playerID := r.URL.Query().Get("player")
	alias := r.URL.Query().Get("alias")
	if playerID == "" || alias == "" {
		http.Error(w, "player and alias query parameters are required", http.StatusBadRequest)
		return
	}

	match, err := s.engine.Match(r.Context(), matchID)
	if err != nil {
		http.Error(w, "match not found", http.StatusNotFound)
		return
	}
	if match.Status != tournament.MatchPending {
		http.Error(w, "match already completed", http.StatusConflict)
		return
	}
	alias, ok := match.CanonicalPlayer(alias)
	if !ok {
		http.Error(w, "alias is not part of this match", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	sess := s.tournamentSession(matchID)
	number, err := sess.Join(playerID, alias, conn)
	if err != nil {
		conn.WriteJSON(ws.NewError(err.Error()))
		conn.Close()
		return
	}

	s.readPump(conn, sess, number, playerID)
}

// tournamentSession returns the live session for a tournament match,
// creating and registering it when this is the first player to arrive.
func (s *server) tournamentSession(matchID uuid.UUID) *session.Session {
	id := matchID.String()
	if sess, ok := s.registry.Get(id); ok {
		return sess
	}

	sess := session.New(id,
		session.WithLogger(s.log),
		session.WithTickInterval(s.cfg.TickInterval),
		session.WithTournament(session.TournamentContext{
			MatchID:   matchID,
			Completer: s.engine,
		}),
		session.WithOnTerminal(func(terminal *session.Session) {
			s.registry.Remove(terminal.ID())
		}),
	)
	// Resolved in one critical section so a concurrent join cannot leave
	// either player holding an unregistered session.
	return s.registry.GetOrAdd(sess)
}

// readPump owns the connection's read side: decode client envelopes,
// relay them to the session, and resolve the disconnect when the
// connection drops.
func (s *server) readPump(conn *websocket.Conn, sess *session.Session, playerNumber int, playerID string) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.matchmaker.Cancel(playerID)
			sess.Disconnect(playerNumber)
			return
		}

		msg, err := ws.ParseClientMessage(data)
		if err != nil {
			s.log.Warn("rejected client message", "session", sess.ID(), "error", err)
			sess.SendError(playerNumber, err.Error())
			continue
		}

		switch msg.Type {
		case ws.TypeReady:
			sess.Ready(playerNumber)
		case ws.TypeInput:
			if err := sess.HandleInput(playerNumber, msg.InputEvent()); err != nil {
				sess.SendError(playerNumber, err.Error())
			}
		}
	}
}

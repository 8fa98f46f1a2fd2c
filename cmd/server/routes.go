package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"pongarena/internal/config"
	"pongarena/internal/engine"
	"pongarena/internal/httputil"
	"pongarena/internal/session"
	"pongarena/internal/tournament"
)

type server struct {
	cfg        config.Config
	log        *slog.Logger
	engine     *engine.Engine
	registry   *session.Registry
	matchmaker *session.Matchmaker
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Post("/tournaments", s.handleCreateTournament)
	r.Get("/tournaments/current-match", s.handleCurrentMatch)
	r.Get("/tournaments/{id}", s.handleGetTournament)
	r.Delete("/tournaments/{id}", s.handleDeleteTournament)
	r.Delete("/tournaments", s.handleDeleteTournamentsByStatus)
	r.Post("/matches/{id}/complete", s.handleCompleteMatch)

	r.Get("/ws/play", s.handlePlay)
	r.Get("/ws/match/{id}", s.handleJoinMatch)

	return r
}

type tournamentResponse struct {
	ID           uuid.UUID               `json:"id"`
	Name         string                  `json:"name"`
	MaxPlayers   int                     `json:"maxPlayers"`
	Status       tournament.Status       `json:"status"`
	Participants []string                `json:"participants"`
	Bracket      [][]engine.BracketMatch `json:"bracket"`
	CurrentRound int                     `json:"currentRound"`
	Winner       *string                 `json:"winner"`
}

func newTournamentResponse(data *engine.TournamentData, bracket [][]engine.BracketMatch) tournamentResponse {
	participants := make([]string, 0, len(data.Players))
	for _, p := range data.Players {
		participants = append(participants, p.Alias)
	}
	return tournamentResponse{
		ID:           data.Tournament.ID,
		Name:         data.Tournament.Name,
		MaxPlayers:   data.Tournament.MaxPlayers,
		Status:       data.Tournament.Status,
		Participants: participants,
		Bracket:      bracket,
		CurrentRound: data.Tournament.CurrentRound,
		Winner:       data.Tournament.WinnerAlias,
	}
}

func (s *server) handleCreateTournament(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string   `json:"name"`
		Aliases []string `json:"aliases"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid request body", err)
		return
	}

	data, err := s.engine.CreateTournament(r.Context(), req.Name, req.Aliases, nil)
	if err != nil {
		httputil.EngineError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, newTournamentResponse(data, engine.ProjectBracket(data.Matches)))
}

func (s *server) handleGetTournament(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.BadRequest(w, "invalid tournament ID", err)
		return
	}

	data, bracket, err := s.engine.Bracket(r.Context(), id)
	if err != nil {
		httputil.EngineError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newTournamentResponse(data, bracket))
}

type currentMatchResponse struct {
	TournamentID   uuid.UUID     `json:"tournamentId"`
	CurrentRound   int           `json:"currentRound"`
	Match          *matchPayload `json:"match"`
	MatchesInRound int           `json:"matchesInRound"`
}

type matchPayload struct {
	ID          uuid.UUID  `json:"id"`
	RoundNumber int        `json:"roundNumber"`
	MatchNumber int        `json:"matchNumber"`
	Player1     string     `json:"player1"`
	Player2     string     `json:"player2"`
	Status      string     `json:"status"`
	Winner      *string    `json:"winner,omitempty"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}

func newMatchPayload(m *tournament.Match) *matchPayload {
	return &matchPayload{
		ID:          m.ID,
		RoundNumber: m.RoundNumber,
		MatchNumber: m.MatchNumber,
		Player1:     m.Player1Alias,
		Player2:     m.Player2Alias,
		Status:      string(m.Status),
		Winner:      m.WinnerAlias,
		FinishedAt:  m.FinishedAt,
	}
}

func (s *server) handleCurrentMatch(w http.ResponseWriter, r *http.Request) {
	var tournamentID *uuid.UUID
	if raw := r.URL.Query().Get("tournament"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.BadRequest(w, "invalid tournament ID", err)
			return
		}
		tournamentID = &id
	}

	current, err := s.engine.CurrentMatch(r.Context(), tournamentID)
	if err != nil {
		httputil.EngineError(w, err)
		return
	}

	resp := currentMatchResponse{
		TournamentID: current.Tournament.ID,
		CurrentRound: current.Tournament.CurrentRound,
	}
	if current.Match != nil {
		resp.Match = newMatchPayload(current.Match)
		resp.MatchesInRound = current.MatchesInRound
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (s *server) handleCompleteMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.BadRequest(w, "invalid match ID", err)
		return
	}

	var req struct {
		Winner string `json:"winner"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid request body", err)
		return
	}

	match, err := s.engine.CompleteMatch(r.Context(), matchID, req.Winner)
	if err != nil {
		httputil.EngineError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newMatchPayload(match))
}

func (s *server) handleDeleteTournament(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.BadRequest(w, "invalid tournament ID", err)
		return
	}

	if err := s.engine.Reset(r.Context(), id); err != nil {
		httputil.EngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleDeleteTournamentsByStatus(w http.ResponseWriter, r *http.Request) {
	status := tournament.Status(r.URL.Query().Get("status"))
	if status == "" {
		httputil.BadRequest(w, "status query parameter is required", nil)
		return
	}

	n, err := s.engine.ResetByStatus(r.Context(), status)
	if err != nil {
		httputil.EngineError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

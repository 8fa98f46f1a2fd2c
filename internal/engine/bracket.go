package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"pongarena/internal/tournament"
)

// BracketMatch is the external projection of a match slot, lower-cased
// for display.
type BracketMatch struct {
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
	Winner  string `json:"winner,omitempty"`
	Status  string `json:"status"`
}

// Bracket groups a tournament's matches by ascending round number, each
// round ordered by match number.
func (e *Engine) Bracket(ctx context.Context, tournamentID uuid.UUID) (*TournamentData, [][]BracketMatch, error) {
	t, err := e.store.GetTournament(ctx, tournamentID.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("%w: tournament %s", ErrNotFound, tournamentID)
		}
		return nil, nil, err
	}

	players, err := e.store.GetPlayers(ctx, t.ID.String())
	if err != nil {
		return nil, nil, err
	}
	matches, err := e.store.GetMatches(ctx, t.ID.String())
	if err != nil {
		return nil, nil, err
	}

	return &TournamentData{Tournament: t, Players: players, Matches: matches}, ProjectBracket(matches), nil
}

// ProjectBracket converts stored matches into the external bracket
// grouping.
func ProjectBracket(matches []tournament.Match) [][]BracketMatch {
	rounds := make([][]BracketMatch, 0)
	for _, m := range matches {
		// GetMatches orders by (round, match number), so rounds arrive
		// contiguously starting at 1.
		for len(rounds) < m.RoundNumber {
			rounds = append(rounds, []BracketMatch{})
		}
		bm := BracketMatch{
			Player1: strings.ToLower(m.Player1Alias),
			Player2: strings.ToLower(m.Player2Alias),
			Status:  strings.ToLower(string(m.Status)),
		}
		if m.WinnerAlias != nil {
			bm.Winner = strings.ToLower(*m.WinnerAlias)
		}
		rounds[m.RoundNumber-1] = append(rounds[m.RoundNumber-1], bm)
	}
	return rounds
}

// Reset deletes a tournament and, via cascading foreign keys, all of its
// players, matches and result rows.
func (e *Engine) Reset(ctx context.Context, tournamentID uuid.UUID) error {
	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	n, err := e.store.DeleteTournament(ctx, tx, tournamentID.String())
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: tournament %s", ErrNotFound, tournamentID)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	e.log.Info("tournament deleted", "tournament", tournamentID)
	return nil
}

// ResetByStatus deletes every tournament in the given state and returns
// how many were removed.
func (e *Engine) ResetByStatus(ctx context.Context, status tournament.Status) (int64, error) {
	if status != tournament.StatusOngoing && status != tournament.StatusFinished {
		return 0, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	n, err := e.store.DeleteTournamentsByStatus(ctx, tx, status)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	e.log.Info("tournaments deleted", "status", status, "count", n)
	return n, nil
}

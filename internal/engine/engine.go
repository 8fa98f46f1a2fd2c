package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"pongarena/internal/store"
	"pongarena/internal/tournament"
)

// Engine owns all durable tournament state: bracket generation, match
// completion and round advancement. Every mutating operation runs in a
// single transaction so a failure never leaves a partial bracket behind.
type Engine struct {
	db    *sqlx.DB
	store *store.TournamentStore
	log   *slog.Logger

	// mu serializes match completion so two sibling matches finishing
	// at the same time cannot both observe an empty round and race the
	// advancement write. rng is guarded by it as well.
	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Engine)

// WithRand injects the randomness source used for bracket shuffling and
// lets tests assert exact pairings with a fixed seed.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		if rng != nil {
			e.rng = rng
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

func New(db *sqlx.DB, st *store.TournamentStore, opts ...Option) *Engine {
	e := &Engine{
		db:    db,
		store: st,
		log:   slog.Default(),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TournamentData bundles a tournament with its participants and matches
// for response building.
type TournamentData struct {
	Tournament *tournament.Tournament
	Players    []tournament.Player
	Matches    []tournament.Match
}

// CreateTournament validates the alias list, then atomically inserts the
// tournament, its participants in seed order and a shuffled first round.
func (e *Engine) CreateTournament(ctx context.Context, name string, aliases []string, creatorID *uuid.UUID) (*TournamentData, error) {
	trimmed, err := validateAliases(aliases)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: tournament name must not be empty", ErrValidation)
	}

	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	t := &tournament.Tournament{
		ID:         uuid.New(),
		Name:       name,
		Status:     tournament.StatusOngoing,
		MaxPlayers: len(trimmed),
		CreatorID:  creatorID,
		CreatedAt:  now,
	}
	if err := e.store.CreateTournament(ctx, tx, t); err != nil {
		return nil, err
	}

	players := make([]tournament.Player, 0, len(trimmed))
	for i, alias := range trimmed {
		players = append(players, tournament.Player{
			TournamentID: t.ID,
			Alias:        alias,
			PlayerOrder:  i,
			UserID:       nil,
		})
	}
	if err := e.store.CreatePlayers(ctx, tx, players); err != nil {
		return nil, err
	}

	shuffled := append([]string(nil), trimmed...)
	e.mu.Lock()
	e.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	e.mu.Unlock()

	matches := pairRound(t.ID, 1, shuffled, now)
	if err := e.store.CreateMatches(ctx, tx, matches); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	e.log.Info("tournament created", "id", t.ID, "name", name, "players", len(players))
	return &TournamentData{Tournament: t, Players: players, Matches: matches}, nil
}

// CurrentMatch holds the next playable match of a tournament together
// with the total match count of its round for progress display. Match is
// nil when the round is exhausted but not yet advanced, or the
// tournament has finished.
type CurrentMatch struct {
	Tournament     *tournament.Tournament
	Match          *tournament.Match
	MatchesInRound int
}

// CurrentMatch resolves the target tournament (explicit id, or the most
// recently created ongoing one) and returns its lowest pending match.
func (e *Engine) CurrentMatch(ctx context.Context, tournamentID *uuid.UUID) (*CurrentMatch, error) {
	var (
		t   *tournament.Tournament
		err error
	)
	if tournamentID != nil {
		t, err = e.store.GetTournament(ctx, tournamentID.String())
	} else {
		t, err = e.store.LatestOngoingTournament(ctx)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: tournament", ErrNotFound)
		}
		return nil, err
	}

	m, err := e.store.FirstPendingMatch(ctx, t.ID.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &CurrentMatch{Tournament: t}, nil
		}
		return nil, err
	}

	total, err := e.store.CountMatchesInRound(ctx, t.ID.String(), m.RoundNumber)
	if err != nil {
		return nil, err
	}
	return &CurrentMatch{Tournament: t, Match: m, MatchesInRound: total}, nil
}

// Match loads a single match row.
func (e *Engine) Match(ctx context.Context, matchID uuid.UUID) (*tournament.Match, error) {
	m, err := e.store.GetMatch(ctx, matchID.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: match %s", ErrNotFound, matchID)
		}
		return nil, err
	}
	return m, nil
}

// CompleteMatch records the winner of a pending match, writes the
// win/loss result rows, and advances the round in the same transaction
// when the match was the last pending one of its round.
func (e *Engine) CompleteMatch(ctx context.Context, matchID uuid.UUID, winnerAlias string) (*tournament.Match, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	m, err := e.store.GetMatchTx(ctx, tx, matchID.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: match %s", ErrNotFound, matchID)
		}
		return nil, err
	}
	if m.Status != tournament.MatchPending {
		return nil, ErrAlreadyCompleted
	}
	// Accept any casing of the winner but persist the stored spelling, so
	// round advancement and result rows stay consistent with the bracket.
	canonical, ok := m.CanonicalPlayer(winnerAlias)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidWinner, winnerAlias)
	}
	winnerAlias = canonical

	t, err := e.store.GetTournamentTx(ctx, tx, m.TournamentID.String())
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := e.store.UpdateMatchFinished(ctx, tx, m.ID.String(), winnerAlias, now); err != nil {
		return nil, err
	}

	results := []tournament.MatchPlayer{
		{MatchID: m.ID, Alias: winnerAlias, Result: tournament.ResultWin},
		{MatchID: m.ID, Alias: m.Opponent(winnerAlias), Result: tournament.ResultLoss},
	}
	if err := e.store.CreateMatchResults(ctx, tx, results); err != nil {
		return nil, err
	}

	pending, err := e.store.CountPendingInRoundTx(ctx, tx, t.ID.String(), m.RoundNumber)
	if err != nil {
		return nil, err
	}
	if pending == 0 {
		if err := e.advanceRound(ctx, tx, t, m.RoundNumber); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	m.Status = tournament.MatchFinished
	m.WinnerAlias = &winnerAlias
	m.FinishedAt = &now
	e.log.Info("match completed", "match", m.ID, "tournament", t.ID, "round", m.RoundNumber, "winner", winnerAlias)
	return m, nil
}

// advanceRound runs inside the CompleteMatch transaction once the last
// match of completedRound is finished. One remaining winner ends the
// tournament; otherwise winners are paired in bracket order into the
// next round.
func (e *Engine) advanceRound(ctx context.Context, tx *sqlx.Tx, t *tournament.Tournament, completedRound int) error {
	winners, err := e.store.RoundWinnersTx(ctx, tx, t.ID.String(), completedRound)
	if err != nil {
		return err
	}

	if len(winners) == 1 {
		e.log.Info("tournament finished", "tournament", t.ID, "winner", winners[0])
		return e.store.SetTournamentFinished(ctx, tx, t.ID.String(), winners[0], completedRound)
	}
	if len(winners) == 0 || len(winners)%2 != 0 {
		e.log.Error("odd winner count during round advancement", "tournament", t.ID, "round", completedRound, "winners", len(winners))
		return fmt.Errorf("%w: round %d produced %d winners", ErrInvariant, completedRound, len(winners))
	}

	matches := pairRound(t.ID, completedRound+1, winners, time.Now().UTC())
	if err := e.store.CreateMatches(ctx, tx, matches); err != nil {
		return err
	}
	return e.store.SetTournamentRound(ctx, tx, t.ID.String(), completedRound)
}

// pairRound pairs consecutive aliases into pending matches of the given
// round, match numbers assigned by pairing order.
func pairRound(tournamentID uuid.UUID, round int, aliases []string, createdAt time.Time) []tournament.Match {
	matches := make([]tournament.Match, 0, len(aliases)/2)
	for i := 0; i+1 < len(aliases); i += 2 {
		matches = append(matches, tournament.Match{
			ID:           uuid.New(),
			TournamentID: tournamentID,
			RoundNumber:  round,
			MatchNumber:  i/2 + 1,
			Player1Alias: aliases[i],
			Player2Alias: aliases[i+1],
			Status:       tournament.MatchPending,
			CreatedAt:    createdAt,
		})
	}
	return matches
}

func validateAliases(aliases []string) ([]string, error) {
	if len(aliases) != tournament.MinPlayers && len(aliases) != tournament.MaxPlayers {
		return nil, fmt.Errorf("%w: tournament requires %d or %d players, got %d",
			ErrValidation, tournament.MinPlayers, tournament.MaxPlayers, len(aliases))
	}

	trimmed := make([]string, 0, len(aliases))
	seen := make(map[string]struct{}, len(aliases))
	for _, alias := range aliases {
		alias = strings.TrimSpace(alias)
		if alias == "" {
			return nil, fmt.Errorf("%w: empty alias", ErrValidation)
		}
		key := strings.ToLower(alias)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: duplicate alias %q", ErrValidation, alias)
		}
		seen[key] = struct{}{}
		trimmed = append(trimmed, alias)
	}
	return trimmed, nil
}

package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"pongarena/internal/tournament"
)

// TournamentStore is the only path to durable tournament state. Writes
// take an explicit transaction so callers control atomicity; reads run
// against the pool directly.
type TournamentStore struct {
	db *sqlx.DB
}

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

func (s *TournamentStore) CreateTournament(ctx context.Context, tx *sqlx.Tx, t *tournament.Tournament) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO tournaments (id, name, status, max_players, current_round, winner_alias, creator_id, created_at)
        VALUES (:id, :name, :status, :max_players, :current_round, :winner_alias, :creator_id, :created_at)`, t)
	return err
}

func (s *TournamentStore) CreatePlayers(ctx context.Context, tx *sqlx.Tx, players []tournament.Player) error {
	if len(players) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO tournament_players (tournament_id, alias, player_order, user_id)
        VALUES (:tournament_id, :alias, :player_order, :user_id)`, players)
	return err
}

func (s *TournamentStore) CreateMatches(ctx context.Context, tx *sqlx.Tx, matches []tournament.Match) error {
	if len(matches) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO matches (id, tournament_id, round_number, match_number, player1_alias, player2_alias, status, winner_alias, finished_at, created_at)
        VALUES (:id, :tournament_id, :round_number, :match_number, :player1_alias, :player2_alias, :status, :winner_alias, :finished_at, :created_at)`, matches)
	return err
}

func (s *TournamentStore) CreateMatchResults(ctx context.Context, tx *sqlx.Tx, results []tournament.MatchPlayer) error {
	if len(results) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO match_players (match_id, alias, result)
        VALUES (:match_id, :alias, :result)`, results)
	return err
}

func (s *TournamentStore) GetTournament(ctx context.Context, id string) (*tournament.Tournament, error) {
	var t tournament.Tournament
	err := s.db.GetContext(ctx, &t, "SELECT * FROM tournaments WHERE id = ?", id)
	return &t, err
}

func (s *TournamentStore) GetTournamentTx(ctx context.Context, tx *sqlx.Tx, id string) (*tournament.Tournament, error) {
	var t tournament.Tournament
	err := tx.GetContext(ctx, &t, "SELECT * FROM tournaments WHERE id = ?", id)
	return &t, err
}

// LatestOngoingTournament returns the most recently created tournament
// that is still ongoing, or sql.ErrNoRows when there is none.
func (s *TournamentStore) LatestOngoingTournament(ctx context.Context) (*tournament.Tournament, error) {
	var t tournament.Tournament
	err := s.db.GetContext(ctx, &t, `SELECT * FROM tournaments WHERE status = ?
        ORDER BY created_at DESC, id DESC LIMIT 1`, tournament.StatusOngoing)
	return &t, err
}

func (s *TournamentStore) GetPlayers(ctx context.Context, tournamentID string) ([]tournament.Player, error) {
	var players []tournament.Player
	err := s.db.SelectContext(ctx, &players, "SELECT * FROM tournament_players WHERE tournament_id = ? ORDER BY player_order ASC", tournamentID)
	return players, err
}

func (s *TournamentStore) GetMatches(ctx context.Context, tournamentID string) ([]tournament.Match, error) {
	var matches []tournament.Match
	err := s.db.SelectContext(ctx, &matches, "SELECT * FROM matches WHERE tournament_id = ? ORDER BY round_number ASC, match_number ASC", tournamentID)
	return matches, err
}

func (s *TournamentStore) GetMatchTx(ctx context.Context, tx *sqlx.Tx, id string) (*tournament.Match, error) {
	var m tournament.Match
	err := tx.GetContext(ctx, &m, "SELECT * FROM matches WHERE id = ?", id)
	return &m, err
}

func (s *TournamentStore) GetMatch(ctx context.Context, id string) (*tournament.Match, error) {
	var m tournament.Match
	err := s.db.GetContext(ctx, &m, "SELECT * FROM matches WHERE id = ?", id)
	return &m, err
}

// FirstPendingMatch returns the lowest (round, match number) pending
// match of the tournament, or sql.ErrNoRows when the round is exhausted.
func (s *TournamentStore) FirstPendingMatch(ctx context.Context, tournamentID string) (*tournament.Match, error) {
	var m tournament.Match
	err := s.db.GetContext(ctx, &m, `SELECT * FROM matches WHERE tournament_id = ? AND status = ?
        ORDER BY round_number ASC, match_number ASC LIMIT 1`, tournamentID, tournament.MatchPending)
	return &m, err
}

func (s *TournamentStore) CountMatchesInRound(ctx context.Context, tournamentID string, round int) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM matches WHERE tournament_id = ? AND round_number = ?", tournamentID, round)
	return count, err
}

func (s *TournamentStore) CountPendingInRoundTx(ctx context.Context, tx *sqlx.Tx, tournamentID string, round int) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM matches WHERE tournament_id = ? AND round_number = ? AND status = ?`,
		tournamentID, round, tournament.MatchPending)
	return count, err
}

// RoundWinnersTx returns the winner aliases of a fully completed round
// in bracket order (ascending match number).
func (s *TournamentStore) RoundWinnersTx(ctx context.Context, tx *sqlx.Tx, tournamentID string, round int) ([]string, error) {
	var winners []string
	err := tx.SelectContext(ctx, &winners, `SELECT winner_alias FROM matches
        WHERE tournament_id = ? AND round_number = ? AND status = ? AND winner_alias IS NOT NULL
        ORDER BY match_number ASC`, tournamentID, round, tournament.MatchFinished)
	return winners, err
}

func (s *TournamentStore) UpdateMatchFinished(ctx context.Context, tx *sqlx.Tx, matchID, winnerAlias string, finishedAt time.Time) error {
	_, err := tx.ExecContext(ctx, `UPDATE matches SET status = ?, winner_alias = ?, finished_at = ? WHERE id = ?`,
		tournament.MatchFinished, winnerAlias, finishedAt, matchID)
	return err
}

func (s *TournamentStore) SetTournamentRound(ctx context.Context, tx *sqlx.Tx, tournamentID string, completedRounds int) error {
	_, err := tx.ExecContext(ctx, `UPDATE tournaments SET current_round = ? WHERE id = ?`, completedRounds, tournamentID)
	return err
}

func (s *TournamentStore) SetTournamentFinished(ctx context.Context, tx *sqlx.Tx, tournamentID, winnerAlias string, completedRounds int) error {
	_, err := tx.ExecContext(ctx, `UPDATE tournaments SET status = ?, winner_alias = ?, current_round = ? WHERE id = ?`,
		tournament.StatusFinished, winnerAlias, completedRounds, tournamentID)
	return err
}

func (s *TournamentStore) DeleteTournament(ctx context.Context, tx *sqlx.Tx, id string) (int64, error) {
	res, err := tx.ExecContext(ctx, "DELETE FROM tournaments WHERE id = ?", id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *TournamentStore) DeleteTournamentsByStatus(ctx context.Context, tx *sqlx.Tx, status tournament.Status) (int64, error) {
	res, err := tx.ExecContext(ctx, "DELETE FROM tournaments WHERE status = ?", status)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

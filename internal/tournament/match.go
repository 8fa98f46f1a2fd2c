package tournament

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchPending  MatchStatus = "pending"
	MatchFinished MatchStatus = "finished"
)

type MatchResult string

const (
	ResultWin  MatchResult = "win"
	ResultLoss MatchResult = "loss"
)

type Match struct {
	ID           uuid.UUID `db:"id"`
	TournamentID uuid.UUID `db:"tournament_id"`

	// Position in the bracket. Rounds are 1-based, match numbers are
	// 1-based within a round and fixed at creation.
	RoundNumber int `db:"round_number"`
	MatchNumber int `db:"match_number"`

	Player1Alias string `db:"player1_alias"`
	Player2Alias string `db:"player2_alias"`

	Status      MatchStatus `db:"status"`
	WinnerAlias *string     `db:"winner_alias"`
	FinishedAt  *time.Time  `db:"finished_at"`
	CreatedAt   time.Time   `db:"created_at"`
}

// CanonicalPlayer matches alias case-insensitively against the match
// participants and returns the stored spelling. Aliases are unique
// case-insensitively within a tournament, so the match is unambiguous.
func (m *Match) CanonicalPlayer(alias string) (string, bool) {
	if strings.EqualFold(m.Player1Alias, alias) {
		return m.Player1Alias, true
	}
	if strings.EqualFold(m.Player2Alias, alias) {
		return m.Player2Alias, true
	}
	return "", false
}

func (m *Match) HasPlayer(alias string) bool {
	_, ok := m.CanonicalPlayer(alias)
	return ok
}

// Opponent returns the other player of the match, or "" when the given
// alias is not part of it.
func (m *Match) Opponent(alias string) string {
	switch {
	case strings.EqualFold(alias, m.Player1Alias):
		return m.Player2Alias
	case strings.EqualFold(alias, m.Player2Alias):
		return m.Player1Alias
	}
	return ""
}

// MatchPlayer is the durable per-player result row written when a match
// finishes, one win and one loss per match.
type MatchPlayer struct {
	MatchID uuid.UUID   `db:"match_id"`
	Alias   string      `db:"alias"`
	Result  MatchResult `db:"result"`
}

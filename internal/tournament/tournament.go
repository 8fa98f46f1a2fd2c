package tournament

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusOngoing  Status = "ongoing"
	StatusFinished Status = "finished"
)

// Allowed bracket sizes. Both are powers of two; round advancement
// relies on that.
const (
	MinPlayers = 4
	MaxPlayers = 8
)

type Tournament struct {
	ID     uuid.UUID `db:"id"`
	Name   string    `db:"name"`
	Status Status    `db:"status"`

	MaxPlayers int `db:"max_players"`

	// CurrentRound counts fully completed rounds, so a freshly created
	// tournament is at 0 while round 1 is being played.
	CurrentRound int `db:"current_round"`

	WinnerAlias *string    `db:"winner_alias"`
	CreatorID   *uuid.UUID `db:"creator_id"`
	CreatedAt   time.Time  `db:"created_at"`
}

// Player is a per-tournament participant. Aliases are display names,
// unique within the tournament case-insensitively, and are not required
// to belong to a registered account.
type Player struct {
	TournamentID uuid.UUID  `db:"tournament_id"`
	Alias        string     `db:"alias"`
	PlayerOrder  int        `db:"player_order"`
	UserID       *uuid.UUID `db:"user_id"`
}

// Package ws defines the tagged JSON wire protocol spoken over the live
// match websocket. Both directions are closed sets: unknown tags are
// rejected at the boundary, never silently dropped.
package ws

import (
	"encoding/json"
	"fmt"

	"pongarena/internal/game"
)

// Client to server tags.
const (
	TypeReady = "ready"
	TypeInput = "input"
)

// Server to client tags.
const (
	TypeMatchAssigned = "match-assigned"
	TypeWaiting       = "waiting"
	TypeReadyAck      = "ready"
	TypeCountdown     = "countdown"
	TypeGameStart     = "game-start"
	TypeGameState     = "game-state"
	TypeGameOver      = "game-over"
	TypeError         = "error"
)

// ClientMessage is the decoded client envelope. Input fields are only
// set when Type is "input".
type ClientMessage struct {
	Type      string `json:"type"`
	InputType string `json:"inputType,omitempty"`
	Key       string `json:"key,omitempty"`
}

// ParseClientMessage decodes and validates one client envelope.
func ParseClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("malformed message: %w", err)
	}

	switch msg.Type {
	case TypeReady:
		return msg, nil
	case TypeInput:
		if msg.InputType != string(game.KeyDownEvent) && msg.InputType != string(game.KeyUpEvent) {
			return ClientMessage{}, fmt.Errorf("unknown input type %q", msg.InputType)
		}
		if msg.Key != string(game.KeyUp) && msg.Key != string(game.KeyDown) {
			return ClientMessage{}, fmt.Errorf("unknown key %q", msg.Key)
		}
		return msg, nil
	default:
		return ClientMessage{}, fmt.Errorf("unknown message type %q", msg.Type)
	}
}

// InputEvent converts a validated input message into a simulation event.
func (m ClientMessage) InputEvent() game.InputEvent {
	return game.InputEvent{
		Type: game.InputType(m.InputType),
		Key:  game.Key(m.Key),
	}
}

type MatchAssigned struct {
	Type         string `json:"type"`
	MatchID      string `json:"matchId"`
	PlayerNumber int    `json:"playerNumber"`
	Opponent     string `json:"opponent,omitempty"`
}

func NewMatchAssigned(matchID string, playerNumber int, opponent string) MatchAssigned {
	return MatchAssigned{Type: TypeMatchAssigned, MatchID: matchID, PlayerNumber: playerNumber, Opponent: opponent}
}

type Waiting struct {
	Type string `json:"type"`
}

func NewWaiting() Waiting { return Waiting{Type: TypeWaiting} }

type Ready struct {
	Type string `json:"type"`
}

func NewReady() Ready { return Ready{Type: TypeReadyAck} }

type Countdown struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

func NewCountdown(count int) Countdown { return Countdown{Type: TypeCountdown, Count: count} }

type GameStart struct {
	Type string `json:"type"`
}

func NewGameStart() GameStart { return GameStart{Type: TypeGameStart} }

type GameState struct {
	Type string `json:"type"`
	game.State
}

func NewGameState(state game.State) GameState {
	return GameState{Type: TypeGameState, State: state}
}

type GameOver struct {
	Type      string    `json:"type"`
	Winner    string    `json:"winner"`
	Scores    [2]int    `json:"scores"`
	Usernames [2]string `json:"usernames"`
}

func NewGameOver(winner string, scores [2]int, usernames [2]string) GameOver {
	return GameOver{Type: TypeGameOver, Winner: winner, Scores: scores, Usernames: usernames}
}

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewError(message string) Error { return Error{Type: TypeError, Message: message} }

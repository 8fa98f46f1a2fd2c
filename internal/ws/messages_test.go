package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pongarena/internal/game"
)

func TestParseClientMessage(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    ClientMessage
		wantErr bool
	}{
		{
			name:    "ready",
			payload: `{"type":"ready"}`,
			want:    ClientMessage{Type: TypeReady},
		},
		{
			name:    "keydown input",
			payload: `{"type":"input","inputType":"keydown","key":"up"}`,
			want:    ClientMessage{Type: TypeInput, InputType: "keydown", Key: "up"},
		},
		{
			name:    "keyup input",
			payload: `{"type":"input","inputType":"keyup","key":"down"}`,
			want:    ClientMessage{Type: TypeInput, InputType: "keyup", Key: "down"},
		},
		{
			name:    "unknown tag",
			payload: `{"type":"restart"}`,
			wantErr: true,
		},
		{
			name:    "unknown input type",
			payload: `{"type":"input","inputType":"held","key":"up"}`,
			wantErr: true,
		},
		{
			name:    "unknown key",
			payload: `{"type":"input","inputType":"keydown","key":"left"}`,
			wantErr: true,
		},
		{
			name:    "missing input fields",
			payload: `{"type":"input"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			payload: `ready`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseClientMessage([]byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, msg)
		})
	}
}

func TestInputEventConversion(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"input","inputType":"keydown","key":"down"}`))
	require.NoError(t, err)

	evt := msg.InputEvent()
	assert.Equal(t, game.KeyDownEvent, evt.Type)
	assert.Equal(t, game.KeyDown, evt.Key)
}

func TestServerEnvelopesCarryTheirTags(t *testing.T) {
	tagOf := func(v any) string {
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		var envelope struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(raw, &envelope))
		return envelope.Type
	}

	assert.Equal(t, TypeMatchAssigned, tagOf(NewMatchAssigned("m1", 1, "")))
	assert.Equal(t, TypeWaiting, tagOf(NewWaiting()))
	assert.Equal(t, TypeReadyAck, tagOf(NewReady()))
	assert.Equal(t, TypeCountdown, tagOf(NewCountdown(3)))
	assert.Equal(t, TypeGameStart, tagOf(NewGameStart()))
	assert.Equal(t, TypeGameState, tagOf(NewGameState(game.State{})))
	assert.Equal(t, TypeGameOver, tagOf(NewGameOver("Alice", [2]int{5, 2}, [2]string{"Alice", "Bob"})))
	assert.Equal(t, TypeError, tagOf(NewError("nope")))
}

func TestGameStateFlattensSnapshot(t *testing.T) {
	state := game.State{BallX: 400, BallY: 300, LeftPaddleY: 250, RightPaddleY: 250, Player1Score: 1}

	raw, err := json.Marshal(NewGameState(state))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "game-state", decoded["type"])
	assert.Equal(t, float64(400), decoded["ballX"])
	assert.Equal(t, float64(1), decoded["player1Score"])
	assert.NotContains(t, decoded, "State", "snapshot fields embed flat, not nested")
}

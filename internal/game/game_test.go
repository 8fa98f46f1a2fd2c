package game

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSim() *Simulation {
	return NewSimulation(rand.New(rand.NewSource(1)))
}

func TestNewSimulationServesFromCenter(t *testing.T) {
	s := newTestSim()

	state := s.Snapshot()
	assert.Equal(t, CanvasWidth/2, state.BallX)
	assert.Equal(t, CanvasHeight/2, state.BallY)
	assert.Equal(t, ServeSpeed, math.Abs(s.velX))
	assert.LessOrEqual(t, math.Abs(s.velY), maxServeVY)

	// Paddles start vertically centered.
	assert.Equal(t, (CanvasHeight-PaddleHeight)/2, state.LeftPaddleY)
	assert.Equal(t, (CanvasHeight-PaddleHeight)/2, state.RightPaddleY)
}

func TestRightWallScoresForLeftPlayer(t *testing.T) {
	s := newTestSim()

	// Ball about to cross the right wall above the paddle's reach.
	s.ballX = CanvasWidth - BallRadius - 1
	s.ballY = 50
	s.velX = ServeSpeed
	s.velY = 0
	s.paddleY[1] = CanvasHeight - PaddleHeight

	outcome := s.Step()
	assert.Equal(t, 1, outcome.Scorer)
	assert.Zero(t, outcome.Winner)

	p1, p2 := s.Scores()
	assert.Equal(t, 1, p1)
	assert.Zero(t, p2)

	// Fresh serve from the center.
	state := s.Snapshot()
	assert.Equal(t, CanvasWidth/2, state.BallX)
	assert.Equal(t, CanvasHeight/2, state.BallY)
	assert.Equal(t, ServeSpeed, math.Abs(s.velX))
}

func TestLeftWallScoresForRightPlayer(t *testing.T) {
	s := newTestSim()

	s.ballX = BallRadius + 1
	s.ballY = CanvasHeight - 50
	s.velX = -ServeSpeed
	s.velY = 0
	s.paddleY[0] = 0

	outcome := s.Step()
	assert.Equal(t, 2, outcome.Scorer)

	p1, p2 := s.Scores()
	assert.Zero(t, p1)
	assert.Equal(t, 1, p2)
}

func TestTopAndBottomWallsReflect(t *testing.T) {
	s := newTestSim()

	s.ballX = CanvasWidth / 2
	s.ballY = BallRadius + 1
	s.velX = 0
	s.velY = -4

	s.Step()
	assert.Positive(t, s.velY, "vertical velocity should flip at the top wall")
	assert.GreaterOrEqual(t, s.ballY, BallRadius)

	s.ballY = CanvasHeight - BallRadius - 1
	s.velY = 4
	s.Step()
	assert.Negative(t, s.velY, "vertical velocity should flip at the bottom wall")
}

func TestPaddleContactInvertsBall(t *testing.T) {
	s := newTestSim()

	// Ball heading into the left paddle's extent.
	s.paddleY[0] = 200
	s.ballX = PaddleWidth + BallRadius + 2
	s.ballY = 250
	s.velX = -ServeSpeed
	s.velY = 0

	s.Step()
	assert.Positive(t, s.velX, "ball should move away from the left paddle")
	assert.LessOrEqual(t, math.Abs(s.velY), maxSpin, "spin delta is clamped")

	p1, p2 := s.Scores()
	assert.Zero(t, p1)
	assert.Zero(t, p2)
}

func TestPaddleMissLetsBallThrough(t *testing.T) {
	s := newTestSim()

	// Paddle parked at the bottom, ball passing at the top.
	s.paddleY[0] = CanvasHeight - PaddleHeight
	s.ballX = PaddleWidth + BallRadius + 2
	s.ballY = 30
	s.velX = -ServeSpeed
	s.velY = 0

	s.Step()
	assert.Negative(t, s.velX, "ball keeps moving toward the wall on a miss")
}

func TestPaddleMovementAndClamping(t *testing.T) {
	s := newTestSim()

	s.ApplyInput(1, InputEvent{Type: KeyDownEvent, Key: KeyUp})
	for i := 0; i < 1000; i++ {
		s.movePaddles()
	}
	assert.Zero(t, s.paddleY[0], "paddle clamps at the top edge")

	s.ApplyInput(1, InputEvent{Type: KeyUpEvent, Key: KeyUp})
	s.ApplyInput(1, InputEvent{Type: KeyDownEvent, Key: KeyDown})
	for i := 0; i < 1000; i++ {
		s.movePaddles()
	}
	assert.Equal(t, CanvasHeight-PaddleHeight, s.paddleY[0], "paddle clamps at the bottom edge")
}

func TestApplyInputIgnoresUnknownPlayer(t *testing.T) {
	s := newTestSim()

	s.ApplyInput(3, InputEvent{Type: KeyDownEvent, Key: KeyUp})
	assert.False(t, s.held[0].up)
	assert.False(t, s.held[1].up)
}

func TestReachingMaxScoreDeclaresWinner(t *testing.T) {
	s := newTestSim()
	s.score[0] = MaxScore - 1

	s.ballX = CanvasWidth - BallRadius - 1
	s.ballY = 50
	s.velX = ServeSpeed
	s.velY = 0
	s.paddleY[1] = CanvasHeight - PaddleHeight

	outcome := s.Step()
	require.Equal(t, 1, outcome.Winner)

	p1, _ := s.Scores()
	assert.Equal(t, MaxScore, p1)
}

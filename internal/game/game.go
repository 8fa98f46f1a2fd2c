// Package game implements the authoritative pong simulation. It is pure
// state transformation: no clocks, no I/O, deterministic given an
// injected randomness source.
package game

import "math/rand"

const (
	CanvasWidth  = 800.0
	CanvasHeight = 600.0

	PaddleWidth  = 10.0
	PaddleHeight = 100.0
	PaddleSpeed  = 6.0

	BallRadius = 10.0
	ServeSpeed = 5.0

	// maxServeVY bounds the vertical component of a fresh serve and
	// maxSpin bounds the random deflection added on paddle contact.
	maxServeVY = 3.0
	maxSpin    = 2.0

	MaxScore = 5
)

type Key string

const (
	KeyUp   Key = "up"
	KeyDown Key = "down"
)

type InputType string

const (
	KeyDownEvent InputType = "keydown"
	KeyUpEvent   InputType = "keyup"
)

// InputEvent is one buffered key transition for a player's paddle.
type InputEvent struct {
	Type InputType
	Key  Key
}

// State is a broadcast-ready snapshot of the simulation.
type State struct {
	BallX        float64 `json:"ballX"`
	BallY        float64 `json:"ballY"`
	LeftPaddleY  float64 `json:"leftPaddleY"`
	RightPaddleY float64 `json:"rightPaddleY"`
	Player1Score int     `json:"player1Score"`
	Player2Score int     `json:"player2Score"`
}

// Outcome reports what a single tick produced. Scorer is 0 when no point
// was scored; Winner is 0 until a player reaches MaxScore.
type Outcome struct {
	Scorer int
	Winner int
}

type heldKeys struct {
	up   bool
	down bool
}

// Simulation owns one match's ball, paddles and scores. All methods must
// be called from the session's tick goroutine; the type itself carries
// no locking.
type Simulation struct {
	ballX, ballY float64
	velX, velY   float64

	paddleY [2]float64
	held    [2]heldKeys

	score [2]int
	rng   *rand.Rand
}

func NewSimulation(rng *rand.Rand) *Simulation {
	s := &Simulation{
		rng: rng,
		paddleY: [2]float64{
			(CanvasHeight - PaddleHeight) / 2,
			(CanvasHeight - PaddleHeight) / 2,
		},
	}
	s.serve(s.rng.Intn(2) == 0)
	return s
}

// ApplyInput records a key transition for the given player (1 or 2).
// Unknown players or keys are ignored; the transport validates them.
func (s *Simulation) ApplyInput(player int, evt InputEvent) {
	if player != 1 && player != 2 {
		return
	}
	held := &s.held[player-1]
	pressed := evt.Type == KeyDownEvent
	switch evt.Key {
	case KeyUp:
		held.up = pressed
	case KeyDown:
		held.down = pressed
	}
}

// Step advances the simulation by one fixed tick.
func (s *Simulation) Step() Outcome {
	s.movePaddles()

	s.ballX += s.velX
	s.ballY += s.velY

	// Top and bottom walls reflect.
	if s.ballY-BallRadius <= 0 {
		s.ballY = BallRadius
		s.velY = -s.velY
	} else if s.ballY+BallRadius >= CanvasHeight {
		s.ballY = CanvasHeight - BallRadius
		s.velY = -s.velY
	}

	s.collidePaddles()

	// Side walls score for the opposing player.
	if s.ballX+BallRadius >= CanvasWidth {
		return s.scorePoint(1)
	}
	if s.ballX-BallRadius <= 0 {
		return s.scorePoint(2)
	}
	return Outcome{}
}

func (s *Simulation) Snapshot() State {
	return State{
		BallX:        s.ballX,
		BallY:        s.ballY,
		LeftPaddleY:  s.paddleY[0],
		RightPaddleY: s.paddleY[1],
		Player1Score: s.score[0],
		Player2Score: s.score[1],
	}
}

func (s *Simulation) movePaddles() {
	for i := range s.paddleY {
		if s.held[i].up {
			s.paddleY[i] -= PaddleSpeed
		}
		if s.held[i].down {
			s.paddleY[i] += PaddleSpeed
		}
		if s.paddleY[i] < 0 {
			s.paddleY[i] = 0
		}
		if s.paddleY[i] > CanvasHeight-PaddleHeight {
			s.paddleY[i] = CanvasHeight - PaddleHeight
		}
	}
}

// collidePaddles bounces the ball off a paddle when its leading edge
// overlaps the paddle's vertical extent, adding a clamped random spin so
// volleys don't degenerate into straight lines.
func (s *Simulation) collidePaddles() {
	if s.velX < 0 && s.ballX-BallRadius <= PaddleWidth && s.ballX-BallRadius > 0 {
		if s.overlaps(s.paddleY[0]) {
			s.ballX = PaddleWidth + BallRadius
			s.velX = -s.velX
			s.velY += s.spin()
		}
	} else if s.velX > 0 && s.ballX+BallRadius >= CanvasWidth-PaddleWidth && s.ballX+BallRadius < CanvasWidth {
		if s.overlaps(s.paddleY[1]) {
			s.ballX = CanvasWidth - PaddleWidth - BallRadius
			s.velX = -s.velX
			s.velY += s.spin()
		}
	}
}

func (s *Simulation) overlaps(paddleY float64) bool {
	return s.ballY+BallRadius >= paddleY && s.ballY-BallRadius <= paddleY+PaddleHeight
}

func (s *Simulation) spin() float64 {
	delta := (s.rng.Float64()*2 - 1) * maxSpin
	if delta > maxSpin {
		delta = maxSpin
	}
	if delta < -maxSpin {
		delta = -maxSpin
	}
	return delta
}

func (s *Simulation) scorePoint(player int) Outcome {
	s.score[player-1]++
	if s.score[player-1] >= MaxScore {
		return Outcome{Scorer: player, Winner: player}
	}
	// Fresh serve towards a random side.
	s.serve(s.rng.Intn(2) == 0)
	return Outcome{Scorer: player}
}

func (s *Simulation) serve(towardsRight bool) {
	s.ballX = CanvasWidth / 2
	s.ballY = CanvasHeight / 2
	s.velX = ServeSpeed
	if !towardsRight {
		s.velX = -ServeSpeed
	}
	s.velY = (s.rng.Float64()*2 - 1) * maxServeVY
}

// Scores returns the current score pair for result reporting.
func (s *Simulation) Scores() (int, int) {
	return s.score[0], s.score[1]
}

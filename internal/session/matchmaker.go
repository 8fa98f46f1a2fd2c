package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrAlreadyQueued = errors.New("player is already waiting for a match")

type ticket struct {
	playerID   string
	alias      string
	sess       *Session
	enqueuedAt time.Time
}

// Matchmaker pairs waiting players first-come-first-served. The first
// player of a pair creates the session and waits in it; the next
// enqueue joins that session and removes the ticket.
type Matchmaker struct {
	mu       sync.Mutex
	queue    []*ticket
	registry *Registry

	// newSession builds a casual session for a fresh pairing; injected
	// so the server can attach its reporter, logger and tick options.
	newSession func(id string) *Session
}

func NewMatchmaker(registry *Registry, newSession func(id string) *Session) *Matchmaker {
	return &Matchmaker{registry: registry, newSession: newSession}
}

// Enqueue joins the oldest waiting player's session, or creates a new
// one and waits. It returns the session and the assigned player number.
func (m *Matchmaker) Enqueue(playerID, alias string, conn Conn) (*Session, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.queue {
		if t.playerID == playerID {
			return nil, 0, ErrAlreadyQueued
		}
	}

	for len(m.queue) > 0 {
		head := m.queue[0]
		// Drop stale tickets whose lone player already left.
		if head.sess.Status() != StatusWaiting {
			m.queue = m.queue[1:]
			m.registry.Remove(head.sess.ID())
			continue
		}
		number, err := head.sess.Join(playerID, alias, conn)
		if err != nil {
			// The session became unjoinable between the status check and
			// the join; drop the ticket and keep looking.
			m.queue = m.queue[1:]
			m.registry.Remove(head.sess.ID())
			continue
		}
		m.queue = m.queue[1:]
		return head.sess, number, nil
	}

	sess := m.newSession(uuid.NewString())
	m.registry.Add(sess)
	number, err := sess.Join(playerID, alias, conn)
	if err != nil {
		m.registry.Remove(sess.ID())
		return nil, 0, err
	}
	m.queue = append(m.queue, &ticket{
		playerID:   playerID,
		alias:      alias,
		sess:       sess,
		enqueuedAt: time.Now(),
	})
	return sess, number, nil
}

// Cancel removes a waiting player from the queue. It is a no-op when the
// player has already been matched.
func (m *Matchmaker) Cancel(playerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, t := range m.queue {
		if t.playerID == playerID {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			m.registry.Remove(t.sess.ID())
			return true
		}
	}
	return false
}

// Waiting returns the number of players currently queued.
func (m *Matchmaker) Waiting() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

package fpmove

import (
	"sync"

	"go.uber.org/zap"
)

// Ack is sent back to the owning client after every applied input so
// it can discard acknowledged entries from its replay buffer.
type Ack struct {
	Seq uint64  `json:"seq"`
	X   float64 `json:"x"`
	Z   float64 `json:"z"`
}

// Session is one player's first-person movement stream. Inputs are
// applied on a dedicated goroutine in arrival order; the rest of the
// server never touches the position until Stop.
type Session struct {
	UserID int64

	cfg     Config
	allowed func(x, z float64) bool
	ack     func(Ack)
	log     *zap.Logger

	inputs chan Input
	done   chan struct{}

	mu        sync.Mutex
	pos       Position
	lastAcked uint64
	stopped   bool
}

// NewSession starts the apply loop at the given entry position. The
// ack callback runs on the session goroutine and must not block for
// long; queue is the input channel capacity.
func NewSession(userID int64, start Position, cfg Config, queue int, allowed func(x, z float64) bool, ack func(Ack), log *zap.Logger) *Session {
	if queue <= 0 {
		queue = 64
	}
	s := &Session{
		UserID:  userID,
		cfg:     cfg,
		allowed: allowed,
		ack:     ack,
		log:     log,
		inputs:  make(chan Input, queue),
		done:    make(chan struct{}),
		pos:     start,
	}
	go s.loop()
	return s
}

// Offer enqueues one input without blocking. A full queue drops the
// sample; the client replays it after the next ack anyway.
func (s *Session) Offer(in Input) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()
	select {
	case s.inputs <- in:
		return true
	default:
		if s.log != nil {
			s.log.Warn("fp input queue full, dropping sample",
				zap.Int64("user_id", s.UserID),
				zap.Uint64("seq", in.Seq))
		}
		return false
	}
}

// Stop closes the input stream, waits for the loop to drain what was
// already queued and returns the final position.
func (s *Session) Stop() Position {
	s.mu.Lock()
	if s.stopped {
		pos := s.pos
		s.mu.Unlock()
		return pos
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.inputs)
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// Position returns the current authoritative position.
func (s *Session) Position() Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// LastAcked returns the sequence of the most recently applied input.
func (s *Session) LastAcked() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAcked
}

func (s *Session) loop() {
	defer close(s.done)
	for in := range s.inputs {
		s.mu.Lock()
		s.pos = Apply(s.pos, in, s.cfg, s.allowed)
		s.lastAcked = in.Seq
		pos := s.pos
		s.mu.Unlock()
		if s.ack != nil {
			s.ack(Ack{Seq: in.Seq, X: pos.X, Z: pos.Z})
		}
	}
}

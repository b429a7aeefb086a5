package relay

import (
	"sync"

	"github.com/srivas-saksham/SpatialParallax/pkg/pose"
)

// Role identifies which side of the relay a connection is on.
type Role string

const (
	// RoleSender produces pose samples (the phone).
	RoleSender Role = "sender"
	// RoleViewer consumes broadcast samples.
	RoleViewer Role = "viewer"
)

// Session is the server-side state for one connection. The throttle/derive
// fields are owned exclusively by that connection's read loop and must not
// be touched from other goroutines.
//
// Send is never closed by the server; broadcasters enqueue non-blocking and
// the write pump exits via Done instead. Close is idempotent.
type Session struct {
	ID     string
	Role   Role
	Remote string

	// Send is the bounded outbound queue drained by the viewer write pump.
	Send chan []byte

	done      chan struct{}
	closeOnce sync.Once

	// last accepted sample state, for velocity derivation
	hasLast bool
	lastTS  float64
	lastPos pose.Vector3
}

// NewSession creates a session with a bounded send queue.
func NewSession(role Role, remote string, sendQueueSize int) *Session {
	if sendQueueSize <= 0 {
		sendQueueSize = 64
	}
	return &Session{
		Role:   role,
		Remote: remote,
		Send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// Done returns a channel that is closed once the session is shutting down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close signals the session's goroutines to stop. Safe to call repeatedly.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

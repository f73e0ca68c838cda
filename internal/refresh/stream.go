package refresh

import "sync"

// Stream carries the events of one refresh run to at most one consumer.
// Sends never block: events are dropped when the buffer is full or the
// stream is detached or closed. A nil *Stream accepts and drops everything.
type Stream struct {
	userID int64
	events chan Event

	mu       sync.Mutex
	closed   bool
	detached bool
	dropped  int
}

// NewStream creates a stream with the given buffer; buffer <= 0 means 100.
func NewStream(userID int64, buffer int) *Stream {
	if buffer <= 0 {
		buffer = 100
	}
	return &Stream{userID: userID, events: make(chan Event, buffer)}
}

// UserID is the owner of the run.
func (s *Stream) UserID() int64 {
	if s == nil {
		return 0
	}
	return s.userID
}

// Events is the receive side. It is closed when the run finishes.
func (s *Stream) Events() <-chan Event {
	if s == nil {
		return nil
	}
	return s.events
}

// Send enqueues ev without blocking and reports whether it was accepted.
func (s *Stream) Send(ev Event) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.detached {
		s.dropped++
		return false
	}
	select {
	case s.events <- ev:
		return true
	default:
		s.dropped++
		return false
	}
}

// Detach marks the consumer as gone. Later events are dropped; the run
// itself continues.
func (s *Stream) Detach() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.detached = true
	s.mu.Unlock()
}

// Close ends the stream. It is safe to call more than once.
func (s *Stream) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

// Dropped is the number of events that were not delivered to the buffer.
func (s *Stream) Dropped() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

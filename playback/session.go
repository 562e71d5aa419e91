package playback

import (
	"sync"
	"time"

	"github.com/ankit-kumar-omnie/event-store-dashboard/domain"
	"github.com/ankit-kumar-omnie/event-store-dashboard/internal/metrics"
)

// Session steps through a fetched event list. The cursor is 1-based and
// never leaves [1, N]. Manual steps clamp at the ends; timer-driven playback
// wraps from N back to 1 and loops until paused.
type Session struct {
	mu sync.Mutex

	id       string
	userID   string
	entityID string
	events   []domain.EventRecord

	cursor   int
	playing  bool
	interval time.Duration
	stop     chan struct{}

	lastAccess time.Time
}

// State is a point-in-time snapshot of a session, including the event at the
// cursor.
type State struct {
	ID         string             `json:"id"`
	EntityID   string             `json:"entityId"`
	Cursor     int                `json:"cursor"`
	Total      int                `json:"total"`
	Playing    bool               `json:"playing"`
	IntervalMs int                `json:"intervalMs"`
	Current    domain.EventRecord `json:"current"`
}

func newSession(id, userID, entityID string, events []domain.EventRecord, interval time.Duration) *Session {
	return &Session{
		id:         id,
		userID:     userID,
		entityID:   entityID,
		events:     events,
		cursor:     1,
		interval:   interval,
		lastAccess: time.Now(),
	}
}

// StepForward advances the cursor, clamping at N.
func (s *Session) StepForward() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor < len(s.events) {
		s.cursor++
	}
	metrics.IncPlaybackTransition("step_forward")
	return s.stateLocked()
}

// StepBackward moves the cursor back, clamping at 1.
func (s *Session) StepBackward() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor > 1 {
		s.cursor--
	}
	metrics.IncPlaybackTransition("step_backward")
	return s.stateLocked()
}

// JumpStart moves the cursor to 1.
func (s *Session) JumpStart() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = 1
	metrics.IncPlaybackTransition("jump_start")
	return s.stateLocked()
}

// JumpEnd moves the cursor to N.
func (s *Session) JumpEnd() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = len(s.events)
	metrics.IncPlaybackTransition("jump_end")
	return s.stateLocked()
}

// Play starts timer-driven advancement. Calling Play on a playing session is
// a no-op.
func (s *Session) Play() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		s.playing = true
		s.stop = make(chan struct{})
		go s.run(s.stop)
	}
	return s.stateLocked()
}

// Pause stops timer-driven advancement immediately. The cursor keeps its
// value.
func (s *Session) Pause() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauseLocked()
	return s.stateLocked()
}

// State reports the session without changing it.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) run(stop chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if !s.playing {
				s.mu.Unlock()
				return
			}
			s.tickLocked()
			s.mu.Unlock()
		}
	}
}

// tickLocked advances one position, wrapping from N back to 1.
func (s *Session) tickLocked() {
	if s.cursor >= len(s.events) {
		s.cursor = 1
	} else {
		s.cursor++
	}
	metrics.IncPlaybackTransition("tick")
}

func (s *Session) pauseLocked() {
	if !s.playing {
		return
	}
	s.playing = false
	close(s.stop)
	s.stop = nil
}

func (s *Session) stateLocked() State {
	s.lastAccess = time.Now()
	return State{
		ID:         s.id,
		EntityID:   s.entityID,
		Cursor:     s.cursor,
		Total:      len(s.events),
		Playing:    s.playing,
		IntervalMs: int(s.interval / time.Millisecond),
		Current:    s.events[s.cursor-1],
	}
}

func (s *Session) idleSince(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playing {
		return false
	}
	return now.Sub(s.lastAccess) > ttl
}

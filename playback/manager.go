package playback

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ankit-kumar-omnie/event-store-dashboard/domain"
	"github.com/ankit-kumar-omnie/event-store-dashboard/internal/metrics"
)

var (
	// ErrNotFound is returned for unknown sessions and for sessions owned
	// by another user.
	ErrNotFound = errors.New("playback session not found")
	// ErrNoEvents is returned when a session is requested over an empty
	// event list.
	ErrNoEvents = errors.New("entity has no events to play back")
)

const minInterval = 100 * time.Millisecond

// Manager owns playback sessions. Sessions expire after sitting idle for the
// configured TTL; a playing session never expires.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	idleTTL time.Duration
	logger  *log.Logger
	done    chan struct{}
	once    sync.Once
}

// NewManager creates a Manager and starts its expiry janitor.
func NewManager(idleTTL time.Duration, logger *log.Logger) *Manager {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	m := &Manager{
		sessions: make(map[string]*Session),
		idleTTL:  idleTTL,
		logger:   logger,
		done:     make(chan struct{}),
	}
	go m.janitor()
	return m
}

// Create opens a session for userID over the entity's event history.
func (m *Manager) Create(userID, entityID string, events []domain.EventRecord, interval time.Duration) (*Session, error) {
	if len(events) == 0 {
		return nil, ErrNoEvents
	}
	if interval < minInterval {
		interval = minInterval
	}

	s := newSession(uuid.NewString(), userID, entityID, events, interval)

	m.mu.Lock()
	m.sessions[s.id] = s
	metrics.SetActivePlaybackSessions(len(m.sessions))
	m.mu.Unlock()
	return s, nil
}

// Get returns the session when it exists and belongs to userID.
func (m *Manager) Get(userID, id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok || s.userID != userID {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete pauses and removes the session.
func (m *Manager) Delete(userID, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok && s.userID == userID {
		delete(m.sessions, id)
	}
	metrics.SetActivePlaybackSessions(len(m.sessions))
	m.mu.Unlock()
	if !ok || s.userID != userID {
		return ErrNotFound
	}
	s.Pause()
	return nil
}

// Close stops the janitor and pauses every session.
func (m *Manager) Close() {
	m.once.Do(func() { close(m.done) })
	m.mu.Lock()
	for id, s := range m.sessions {
		s.Pause()
		delete(m.sessions, id)
	}
	metrics.SetActivePlaybackSessions(0)
	m.mu.Unlock()
}

func (m *Manager) janitor() {
	ticker := time.NewTicker(m.idleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case now := <-ticker.C:
			m.expire(now)
		}
	}
}

func (m *Manager) expire(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.idleSince(now, m.idleTTL) {
			delete(m.sessions, id)
			if m.logger != nil {
				m.logger.WithField("session", id).Debug("expired idle playback session")
			}
		}
	}
	metrics.SetActivePlaybackSessions(len(m.sessions))
}

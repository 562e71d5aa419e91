package playback

import (
	"errors"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func TestCreateRejectsEmptyHistory(t *testing.T) {
	m := NewManager(time.Minute, log.New())
	defer m.Close()

	if _, err := m.Create("user", "entity", nil, time.Second); !errors.Is(err, ErrNoEvents) {
		t.Fatalf("expected ErrNoEvents, got %v", err)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	m := NewManager(time.Minute, log.New())
	defer m.Close()

	s, err := m.Create("alice", "entity", testEvents(3), time.Second)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	if _, err := m.Get("alice", s.id); err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
	if _, err := m.Get("bob", s.id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign session, got %v", err)
	}
	if _, err := m.Get("alice", "unknown"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown session, got %v", err)
	}
}

func TestDeleteStopsSession(t *testing.T) {
	m := NewManager(time.Minute, log.New())
	defer m.Close()

	s, err := m.Create("alice", "entity", testEvents(3), time.Second)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	s.Play()

	if err := m.Delete("alice", s.id); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := m.Get("alice", s.id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected session to be gone, got %v", err)
	}
	if s.State().Playing {
		t.Fatal("expected deleted session to stop playing")
	}
}

func TestDeleteEnforcesOwnership(t *testing.T) {
	m := NewManager(time.Minute, log.New())
	defer m.Close()

	s, err := m.Create("alice", "entity", testEvents(2), time.Second)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := m.Delete("bob", s.id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := m.Get("alice", s.id); err != nil {
		t.Fatalf("session should survive a foreign delete: %v", err)
	}
}

func TestExpireRemovesIdleSessions(t *testing.T) {
	m := NewManager(time.Minute, log.New())
	defer m.Close()

	idle, err := m.Create("alice", "entity", testEvents(2), time.Second)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	playing, err := m.Create("alice", "entity", testEvents(2), time.Second)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	playing.Play()
	defer playing.Pause()

	m.expire(time.Now().Add(2 * time.Minute))

	if _, err := m.Get("alice", idle.id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected idle session to expire, got %v", err)
	}
	if _, err := m.Get("alice", playing.id); err != nil {
		t.Fatalf("playing session must not expire: %v", err)
	}
}

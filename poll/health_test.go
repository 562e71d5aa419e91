package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ankit-kumar-omnie/event-store-dashboard/domain"
)

func TestStatusIsUnknownBeforeFirstPoll(t *testing.T) {
	p := NewHealthPoller(func(context.Context) (domain.HealthStatus, error) {
		return domain.HealthStatus{Status: domain.HealthOK}, nil
	}, time.Minute, log.New())

	if got := p.Status().Status; got != domain.HealthUnknown {
		t.Fatalf("expected unknown before first poll, got %q", got)
	}
}

func TestPollRecordsObservedStatus(t *testing.T) {
	p := NewHealthPoller(func(context.Context) (domain.HealthStatus, error) {
		return domain.HealthStatus{Status: domain.HealthDegraded, Version: "1.0.0", CheckedAt: time.Now()}, nil
	}, time.Minute, log.New())

	p.poll(context.Background())

	got := p.Status()
	if got.Status != domain.HealthDegraded || got.Version != "1.0.0" {
		t.Fatalf("unexpected status: %+v", got)
	}
}

func TestPollSwallowsCheckErrors(t *testing.T) {
	p := NewHealthPoller(func(context.Context) (domain.HealthStatus, error) {
		return domain.HealthStatus{}, errors.New("connection refused")
	}, time.Minute, log.New())

	p.poll(context.Background())

	got := p.Status()
	if got.Status != domain.HealthUnknown {
		t.Fatalf("expected unknown after failed check, got %q", got.Status)
	}
	if got.CheckedAt.IsZero() {
		t.Fatal("expected CheckedAt to be stamped on failure too")
	}
}

func TestPollRecoversAfterFailure(t *testing.T) {
	var calls atomic.Int32
	p := NewHealthPoller(func(context.Context) (domain.HealthStatus, error) {
		if calls.Add(1) == 1 {
			return domain.HealthStatus{}, errors.New("boom")
		}
		return domain.HealthStatus{Status: domain.HealthOK, CheckedAt: time.Now()}, nil
	}, time.Minute, log.New())

	p.poll(context.Background())
	p.poll(context.Background())

	if got := p.Status().Status; got != domain.HealthOK {
		t.Fatalf("expected recovery to ok, got %q", got)
	}
}

func TestRunPollsImmediatelyAndStopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	p := NewHealthPoller(func(context.Context) (domain.HealthStatus, error) {
		calls.Add(1)
		return domain.HealthStatus{Status: domain.HealthOK}, nil
	}, time.Hour, log.New())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if calls.Load() == 0 {
		t.Fatal("expected an immediate first poll")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

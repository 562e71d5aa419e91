package poll

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ankit-kumar-omnie/event-store-dashboard/domain"
	"github.com/ankit-kumar-omnie/event-store-dashboard/internal/metrics"
)

// HealthFunc checks the event store.
type HealthFunc func(ctx context.Context) (domain.HealthStatus, error)

// HealthPoller keeps the last observed upstream health. Poll failures are
// swallowed: the status degrades to unknown and a counter ticks, nothing is
// surfaced to callers.
type HealthPoller struct {
	mu   sync.RWMutex
	last domain.HealthStatus

	check    HealthFunc
	interval time.Duration
	timeout  time.Duration
	logger   *log.Logger
}

// NewHealthPoller creates a poller reporting unknown until the first check
// completes.
func NewHealthPoller(check HealthFunc, interval time.Duration, logger *log.Logger) *HealthPoller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HealthPoller{
		last:     domain.HealthStatus{Status: domain.HealthUnknown},
		check:    check,
		interval: interval,
		timeout:  interval,
		logger:   logger,
	}
}

// Run polls until ctx is cancelled. The first check fires immediately.
func (p *HealthPoller) Run(ctx context.Context) {
	p.poll(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// Status returns the last observed health.
func (p *HealthPoller) Status() domain.HealthStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

func (p *HealthPoller) poll(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
	status, err := p.check(checkCtx)
	cancel()

	if err != nil {
		metrics.IncHealthCheck("error")
		if p.logger != nil {
			p.logger.Debugf("upstream health check failed: %v", err)
		}
		status = domain.HealthStatus{Status: domain.HealthUnknown, CheckedAt: time.Now()}
	} else {
		switch status.Status {
		case domain.HealthOK:
			metrics.IncHealthCheck("ok")
		default:
			metrics.IncHealthCheck("degraded")
		}
	}

	p.mu.Lock()
	p.last = status
	p.mu.Unlock()
}

package domain

import "time"

// Upstream health as observed by the poller. Unknown is reported whenever the
// last check failed or no check has completed yet; poll failures are never
// surfaced as errors.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
	HealthUnknown  = "unknown"
)

// HealthStatus is the last observed health of the event store.
type HealthStatus struct {
	Status    string    `json:"status"`
	Version   string    `json:"version,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}

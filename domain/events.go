package domain

import (
	"encoding/json"
	"time"
)

// EventRecord is a single event in an entity's history as returned by the
// event store. The payload is opaque to the dashboard; it is rendered, never
// interpreted.
type EventRecord struct {
	EventName string          `json:"eventName"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ReplayResult is the server-side reconstruction of an entity's current state
// from its ordered event history.
type ReplayResult struct {
	EntityID     string          `json:"entityId"`
	CurrentState json.RawMessage `json:"currentState"`
	EventHistory []EventRecord   `json:"eventHistory"`
	TotalEvents  int             `json:"totalEvents"`
	LastEventAt  *time.Time      `json:"lastEventAt,omitempty"`
}

// TimelineEvent is a named event with pre-rendered human readable change
// descriptions.
type TimelineEvent struct {
	EventName string    `json:"eventName"`
	Timestamp time.Time `json:"timestamp"`
	Changes   []string  `json:"changes,omitempty"`
}

// Timeline is the ordered list of events for an entity.
type Timeline struct {
	Events       []TimelineEvent `json:"events"`
	TotalEvents  int             `json:"totalEvents"`
	FirstEventAt *time.Time      `json:"firstEventAt,omitempty"`
	LastEventAt  *time.Time      `json:"lastEventAt,omitempty"`
}

// Statistics is the server-computed aggregate over an entity's history.
type Statistics struct {
	TotalEvents          int            `json:"totalEvents"`
	EventsByType         map[string]int `json:"eventsByType"`
	FirstEventAt         *time.Time     `json:"firstEventAt,omitempty"`
	LastEventAt          *time.Time     `json:"lastEventAt,omitempty"`
	AvgTimeBetweenEvents float64        `json:"avgTimeBetweenEvents"`
}

// StateAt is the entity state reconstructed up to a point in time.
type StateAt struct {
	EntityID      string          `json:"entityId"`
	Timestamp     time.Time       `json:"timestamp"`
	State         json.RawMessage `json:"state"`
	EventsApplied int             `json:"eventsApplied"`
}

// Period bounds a state comparison.
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// FieldChange describes one field-level difference between two states.
type FieldChange struct {
	Field string          `json:"field"`
	From  json.RawMessage `json:"from"`
	To    json.RawMessage `json:"to"`
}

// StateDiff holds the two compared snapshots and their differences.
type StateDiff struct {
	Before  json.RawMessage `json:"before"`
	After   json.RawMessage `json:"after"`
	Changes []FieldChange   `json:"changes"`
}

// StateComparison is the server-computed diff between an entity's state at
// two points in time.
type StateComparison struct {
	Period         Period        `json:"period"`
	Diff           StateDiff     `json:"stateComparison"`
	EventsInPeriod []EventRecord `json:"eventsInPeriod"`
}

// Overview aggregates event counts across all tracked entities.
type Overview struct {
	TotalEntities int `json:"totalEntities"`
	TotalEvents   int `json:"totalEvents"`
}

package timeline

import (
	"sort"
	"strings"
	"time"

	"github.com/ankit-kumar-omnie/event-store-dashboard/domain"
)

// Pure filters over fetched timeline events. All of them return an empty
// slice for empty input and never error; an event with a zero timestamp is
// treated as unparseable and dropped by the date filter.

// FilterByDateRange keeps events with from <= timestamp <= to, inclusive on
// both ends. A zero from or to leaves that side unbounded.
func FilterByDateRange(events []domain.TimelineEvent, from, to time.Time) []domain.TimelineEvent {
	out := make([]domain.TimelineEvent, 0, len(events))
	for _, ev := range events {
		if ev.Timestamp.IsZero() {
			continue
		}
		if !from.IsZero() && ev.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && ev.Timestamp.After(to) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// FilterByTypes keeps events whose name is in types. An empty set means all.
func FilterByTypes(events []domain.TimelineEvent, types []string) []domain.TimelineEvent {
	if len(types) == 0 {
		return events
	}
	wanted := make(map[string]struct{}, len(types))
	for _, t := range types {
		wanted[t] = struct{}{}
	}
	out := make([]domain.TimelineEvent, 0, len(events))
	for _, ev := range events {
		if _, ok := wanted[ev.EventName]; ok {
			out = append(out, ev)
		}
	}
	return out
}

// FilterByText keeps events whose name or change descriptions contain query,
// case-insensitively. An empty query returns the input unchanged.
func FilterByText(events []domain.TimelineEvent, query string) []domain.TimelineEvent {
	if query == "" {
		return events
	}
	q := strings.ToLower(query)
	out := make([]domain.TimelineEvent, 0, len(events))
	for _, ev := range events {
		if matchesText(ev, q) {
			out = append(out, ev)
		}
	}
	return out
}

func matchesText(ev domain.TimelineEvent, lowered string) bool {
	if strings.Contains(strings.ToLower(ev.EventName), lowered) {
		return true
	}
	for _, change := range ev.Changes {
		if strings.Contains(strings.ToLower(change), lowered) {
			return true
		}
	}
	return false
}

// SortByTimestamp returns a copy sorted ascending by timestamp. Display
// ordering only; server order is never mutated in place.
func SortByTimestamp(events []domain.TimelineEvent) []domain.TimelineEvent {
	out := make([]domain.TimelineEvent, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

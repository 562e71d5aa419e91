package timeline

import (
	"reflect"
	"testing"
	"time"

	"github.com/ankit-kumar-omnie/event-store-dashboard/domain"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func names(events []domain.TimelineEvent) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.EventName
	}
	return out
}

func TestFilterByDateRangeInclusiveBounds(t *testing.T) {
	from := ts("2026-03-01T00:00:00Z")
	to := ts("2026-03-03T00:00:00Z")
	events := []domain.TimelineEvent{
		{EventName: "before", Timestamp: ts("2026-02-28T23:59:59Z")},
		{EventName: "on-from", Timestamp: from},
		{EventName: "inside", Timestamp: ts("2026-03-02T12:00:00Z")},
		{EventName: "on-to", Timestamp: to},
		{EventName: "after", Timestamp: ts("2026-03-03T00:00:01Z")},
	}

	got := FilterByDateRange(events, from, to)
	want := []string{"on-from", "inside", "on-to"}
	if !reflect.DeepEqual(names(got), want) {
		t.Fatalf("unexpected events: %v", names(got))
	}
}

func TestFilterByDateRangeEmptyInput(t *testing.T) {
	got := FilterByDateRange([]domain.TimelineEvent{}, ts("2026-03-01T00:00:00Z"), ts("2026-03-02T00:00:00Z"))
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %d events", len(got))
	}
}

func TestFilterByDateRangeDropsZeroTimestamps(t *testing.T) {
	events := []domain.TimelineEvent{
		{EventName: "no-timestamp"},
		{EventName: "valid", Timestamp: ts("2026-03-01T10:00:00Z")},
	}
	got := FilterByDateRange(events, time.Time{}, time.Time{})
	if !reflect.DeepEqual(names(got), []string{"valid"}) {
		t.Fatalf("unexpected events: %v", names(got))
	}
}

func TestFilterByTypesEmptySetMeansAll(t *testing.T) {
	events := []domain.TimelineEvent{
		{EventName: "created"},
		{EventName: "updated"},
	}
	got := FilterByTypes(events, nil)
	if len(got) != 2 {
		t.Fatalf("expected all events, got %d", len(got))
	}

	got = FilterByTypes(events, []string{"updated"})
	if !reflect.DeepEqual(names(got), []string{"updated"}) {
		t.Fatalf("unexpected events: %v", names(got))
	}
}

func TestFilterByTextEmptyQueryIsIdentity(t *testing.T) {
	events := []domain.TimelineEvent{
		{EventName: "z-last", Timestamp: ts("2026-03-03T00:00:00Z")},
		{EventName: "a-first", Timestamp: ts("2026-03-01T00:00:00Z")},
	}
	got := FilterByText(events, "")
	if !reflect.DeepEqual(names(got), []string{"z-last", "a-first"}) {
		t.Fatalf("expected input order preserved, got %v", names(got))
	}
}

func TestFilterByTextMatchesNameAndChangesCaseInsensitive(t *testing.T) {
	events := []domain.TimelineEvent{
		{EventName: "UserCreated"},
		{EventName: "updated", Changes: []string{"Email changed to x@y.z"}},
		{EventName: "deleted"},
	}
	got := FilterByText(events, "EMAIL")
	if !reflect.DeepEqual(names(got), []string{"updated"}) {
		t.Fatalf("unexpected events: %v", names(got))
	}
	got = FilterByText(events, "usercreated")
	if !reflect.DeepEqual(names(got), []string{"UserCreated"}) {
		t.Fatalf("unexpected events: %v", names(got))
	}
}

func TestSortByTimestampDoesNotMutateInput(t *testing.T) {
	events := []domain.TimelineEvent{
		{EventName: "second", Timestamp: ts("2026-03-02T00:00:00Z")},
		{EventName: "first", Timestamp: ts("2026-03-01T00:00:00Z")},
	}
	got := SortByTimestamp(events)
	if !reflect.DeepEqual(names(got), []string{"first", "second"}) {
		t.Fatalf("unexpected order: %v", names(got))
	}
	if events[0].EventName != "second" {
		t.Fatalf("input mutated: %v", names(events))
	}
}

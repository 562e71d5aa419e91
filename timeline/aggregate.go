package timeline

import (
	"time"

	"github.com/ankit-kumar-omnie/event-store-dashboard/domain"
)

// DayBucket is one calendar day and its event count.
type DayBucket struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

const dayFormat = "2006-01-02"

// CountByType groups events by name.
func CountByType(events []domain.TimelineEvent) map[string]int {
	out := make(map[string]int, len(events))
	for _, ev := range events {
		out[ev.EventName]++
	}
	return out
}

// CountByDay buckets events by calendar day in loc over [from, to]. Every day
// in the interval gets a bucket, zero counts included. Events outside the
// interval or with a zero timestamp are ignored. An inverted interval yields
// no buckets.
func CountByDay(events []domain.TimelineEvent, from, to time.Time, loc *time.Location) []DayBucket {
	if loc == nil {
		loc = time.Local
	}
	start := dayStart(from, loc)
	end := dayStart(to, loc)
	if end.Before(start) {
		return []DayBucket{}
	}

	counts := make(map[string]int)
	for _, ev := range events {
		if ev.Timestamp.IsZero() {
			continue
		}
		day := dayStart(ev.Timestamp, loc)
		if day.Before(start) || day.After(end) {
			continue
		}
		counts[day.Format(dayFormat)]++
	}

	buckets := make([]DayBucket, 0, int(end.Sub(start).Hours()/24)+1)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format(dayFormat)
		buckets = append(buckets, DayBucket{Date: key, Count: counts[key]})
	}
	return buckets
}

func dayStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

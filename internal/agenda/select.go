// Package agenda selects which decoded events to show.
package agenda

import (
	"slices"
	"time"

	"github.com/jensandresen/schemapush/internal/model"
)

// SortByBegin returns a copy of events ordered ascending by Begin. Events
// with equal Begin keep their input order.
func SortByBegin(events []model.Event) []model.Event {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b model.Event) int {
		return a.Begin.Compare(b.Begin)
	})
	return sorted
}

// SelectLast returns the n latest events by Begin, in ascending order. With
// fewer than n events all of them are returned; n <= 0 returns none.
func SelectLast(events []model.Event, n int) []model.Event {
	if n <= 0 {
		return []model.Event{}
	}
	sorted := SortByBegin(events)
	if len(sorted) > n {
		sorted = sorted[len(sorted)-n:]
	}
	return sorted
}

// SelectForDay returns the events starting on day's calendar date, ordered
// by Begin. Begin is converted to day's location before comparing, so
// "today" means today on the same clock that produced day.
func SelectForDay(events []model.Event, day time.Time) []model.Event {
	y, m, d := day.Date()
	out := []model.Event{}
	for _, ev := range SortByBegin(events) {
		ey, em, ed := ev.Begin.In(day.Location()).Date()
		if ey == y && em == m && ed == d {
			out = append(out, ev)
		}
	}
	return out
}

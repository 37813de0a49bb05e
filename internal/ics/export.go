package ics

import (
	"io"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/jensandresen/schemapush/internal/model"
)

const productID = "-//schemapush//schemapush//EN"

// uidNamespace scopes the name-based UIDs generated for exported events.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/jensandresen/schemapush"))

// Export writes events as a standalone VCALENDAR. Text values are handed to
// golang-ical unescaped; it applies TEXT escaping on serialize. Events carry
// no identity, so each UID is derived from the event's fields: exporting the
// same events twice yields the same UIDs.
func Export(w io.Writer, name string, events []model.Event, now time.Time) error {
	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	for _, ev := range events {
		e := cal.AddEvent(EventUID(ev))
		e.SetDtStampTime(now)
		e.SetStartAt(ev.Begin)
		e.SetEndAt(ev.End)
		if ev.Summary != "" {
			e.SetSummary(ev.Summary)
		}
		if ev.Description != "" {
			e.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			e.SetLocation(ev.Location)
		}
	}

	return cal.SerializeTo(w)
}

// EventUID returns a stable UID for ev.
func EventUID(ev model.Event) string {
	return uuid.NewSHA1(uidNamespace, []byte(ev.String())).String() + "@schemapush"
}

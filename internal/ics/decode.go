package ics

import (
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "github.com/jensandresen/schemapush/internal/log"
	"github.com/jensandresen/schemapush/internal/model"
)

// DecodeBlock turns a raw event block into an Event. Date-times without a
// trailing Z are interpreted in loc.
//
// ok is false when DTSTART or DTEND is missing or cannot be parsed; such a
// block produces no Event.
func DecodeBlock(b Block, loc *time.Location) (model.Event, bool) {
	if loc == nil {
		loc = time.Local
	}

	begin, err := decodeTime(b, "DTSTART", loc)
	if err != nil {
		appLog.Debug("ics: dropping block", "reason", err.Error(), "prop", "DTSTART")
		return model.Event{}, false
	}
	end, err := decodeTime(b, "DTEND", loc)
	if err != nil {
		appLog.Debug("ics: dropping block", "reason", err.Error(), "prop", "DTEND")
		return model.Event{}, false
	}

	return model.Event{
		Begin:       begin,
		End:         end,
		Location:    decodeText(b, "LOCATION"),
		Summary:     decodeText(b, "SUMMARY"),
		Description: decodeText(b, "DESCRIPTION"),
	}, true
}

func decodeTime(b Block, name string, loc *time.Location) (time.Time, error) {
	p, ok := b.Get(name)
	if !ok {
		return time.Time{}, errors.New("missing property")
	}
	// TZID parameters are not resolved; non-UTC values are taken in loc.
	return parseICSTime(p.Value, loc)
}

func decodeText(b Block, name string) string {
	p, ok := b.Get(name)
	if !ok {
		return ""
	}
	return ical.FromText(p.Value)
}

// parseICSTime parses a basic ICS date/date-time string into time.Time.
// Values ending in Z are UTC; everything else is taken in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		const layout = "20060102T150405Z"
		return time.Parse(layout, v)
	}

	// Local date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		const layout = "20060102T150405"
		return time.ParseInLocation(layout, v, loc)
	}

	// Date-only (all-day), e.g., 20250101
	const layoutDate = "20060102"
	return time.ParseInLocation(layoutDate, v, loc)
}

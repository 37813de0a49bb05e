package format

import (
	"strings"
	"time"

	"github.com/jensandresen/schemapush/internal/model"
)

// DefaultTimeLayout renders times as HH:MM.
const DefaultTimeLayout = "15:04"

// Formatter renders agenda lines in a fixed location and time layout.
type Formatter struct {
	Location *time.Location
	Layout   string
}

// New returns a Formatter; nil loc means time.Local and an empty layout
// means DefaultTimeLayout.
func New(loc *time.Location, layout string) Formatter {
	if loc == nil {
		loc = time.Local
	}
	if layout == "" {
		layout = DefaultTimeLayout
	}
	return Formatter{Location: loc, Layout: layout}
}

// Text is the summary followed by the cleaned description, when there is one.
func Text(ev model.Event) string {
	text := ev.Summary
	if desc := Description(ev.Description); strings.TrimSpace(desc) != "" {
		text += ", " + desc
	}
	return text
}

// AgendaLine renders "08:00-08:45 > Dansk, Lokale: 12".
func (f Formatter) AgendaLine(ev model.Event) string {
	return f.clock(ev.Begin) + "-" + f.clock(ev.End) + " > " + Text(ev)
}

// LastLine renders "08:00 > <raw description>".
func (f Formatter) LastLine(ev model.Event) string {
	return f.clock(ev.Begin) + " > " + ev.Description
}

// AgendaLines renders one AgendaLine per event.
func (f Formatter) AgendaLines(events []model.Event) []string {
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		lines = append(lines, f.AgendaLine(ev))
	}
	return lines
}

// LastLines renders one LastLine per event.
func (f Formatter) LastLines(events []model.Event) []string {
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		lines = append(lines, f.LastLine(ev))
	}
	return lines
}

func (f Formatter) clock(t time.Time) string {
	loc, layout := f.Location, f.Layout
	if loc == nil {
		loc = time.Local
	}
	if layout == "" {
		layout = DefaultTimeLayout
	}
	return t.In(loc).Format(layout)
}

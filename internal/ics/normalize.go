package ics

import "strings"

const (
	markerBeginCalendar = "BEGIN:VCALENDAR"
	markerEndCalendar   = "END:VCALENDAR"
	markerBeginEvent    = "BEGIN:VEVENT"
	markerEndEvent      = "END:VEVENT"
)

// NormalizeLines drops blank lines and makes sure the result is wrapped in a
// VCALENDAR envelope. It never fails; empty input yields just the two markers.
func NormalizeLines(lines []string) []string {
	out := make([]string, 0, len(lines)+2)
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}

	if len(out) == 0 || !isMarker(out[0], markerBeginCalendar) {
		out = append([]string{markerBeginCalendar}, out...)
	}
	if !isMarker(out[len(out)-1], markerEndCalendar) {
		out = append(out, markerEndCalendar)
	}
	return out
}

func isMarker(line, marker string) bool {
	return strings.EqualFold(strings.TrimSpace(line), marker)
}

package ics

import (
	"errors"
	"strings"
)

// ErrMalformedCalendar is returned by ExtractBlocks when the VCALENDAR
// envelope itself is broken (nested or unmatched calendar markers).
var ErrMalformedCalendar = errors.New("ics: malformed calendar envelope")

// Property is a single content line inside an event block.
type Property struct {
	Name   string            // upper-cased property name, e.g. "DTSTART"
	Params map[string]string // upper-cased parameter names, e.g. "TZID"
	Value  string
}

// Block holds the properties of one complete BEGIN:VEVENT..END:VEVENT
// envelope, keyed by upper-cased property name. The first occurrence of a
// name wins.
type Block map[string]Property

// Get returns the property with the given (case-insensitive) name.
func (b Block) Get(name string) (Property, bool) {
	p, ok := b[strings.ToUpper(name)]
	return p, ok
}

// ExtractBlocks scans normalized lines and returns one Block per complete
// event envelope, in input order.
//
//   - An event without END:VEVENT before end of input is dropped.
//   - END:VEVENT without a preceding BEGIN:VEVENT is ignored.
//   - BEGIN:VEVENT inside an open event discards the open event and starts
//     collecting again from the inner marker.
//   - Components nested in an event (VALARM, ...) are skipped entirely.
//
// The only error is ErrMalformedCalendar, for a BEGIN:VCALENDAR inside an
// open calendar or an END:VCALENDAR without an open calendar.
func ExtractBlocks(lines []string) ([]Block, error) {
	var (
		blocks     []Block
		current    Block
		inCalendar bool
		subDepth   int // depth of non-VEVENT components nested in the current event
	)

	for _, line := range unfold(lines) {
		name, params, value, ok := splitContentLine(line)
		if !ok {
			continue
		}

		switch name {
		case "BEGIN":
			comp := strings.ToUpper(strings.TrimSpace(value))
			switch {
			case comp == "VCALENDAR":
				if inCalendar {
					return nil, ErrMalformedCalendar
				}
				inCalendar = true
			case comp == "VEVENT":
				current = Block{}
				subDepth = 0
			case current != nil:
				subDepth++
			}
			continue

		case "END":
			comp := strings.ToUpper(strings.TrimSpace(value))
			switch {
			case comp == "VCALENDAR":
				if !inCalendar {
					return nil, ErrMalformedCalendar
				}
				inCalendar = false
				// An event still open at the calendar boundary is unterminated.
				current = nil
			case comp == "VEVENT":
				if current != nil && subDepth == 0 {
					blocks = append(blocks, current)
				}
				current = nil
				subDepth = 0
			case current != nil && subDepth > 0:
				subDepth--
			}
			continue
		}

		if current == nil || subDepth > 0 {
			continue
		}
		if _, seen := current[name]; seen {
			continue
		}
		current[name] = Property{Name: name, Params: params, Value: value}
	}

	return blocks, nil
}

// unfold joins RFC 5545 continuation lines (leading space or tab) onto the
// previous content line. Indentation is never layout: an indented line is
// always a continuation.
func unfold(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if len(out) > 0 && len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
			out[len(out)-1] += line[1:]
			continue
		}
		out = append(out, line)
	}
	return out
}

// splitContentLine splits "NAME;P1=V1;P2=V2:value" into its parts. Lines
// without a colon are not content lines.
func splitContentLine(line string) (name string, params map[string]string, value string, ok bool) {
	i := valueSeparator(line)
	if i <= 0 {
		return "", nil, "", false
	}
	head, value := line[:i], line[i+1:]

	parts := strings.Split(head, ";")
	name = strings.ToUpper(strings.TrimSpace(parts[0]))
	if name == "" {
		return "", nil, "", false
	}
	for _, p := range parts[1:] {
		k, v, found := strings.Cut(p, "=")
		if !found {
			continue
		}
		if params == nil {
			params = make(map[string]string)
		}
		params[strings.ToUpper(strings.TrimSpace(k))] = strings.Trim(v, `"`)
	}
	return name, params, value, true
}

// valueSeparator returns the index of the first colon outside a quoted
// parameter value, or -1.
func valueSeparator(line string) int {
	quoted := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			quoted = !quoted
		case ':':
			if !quoted {
				return i
			}
		}
	}
	return -1
}

package ics

import (
	"time"

	appLog "github.com/jensandresen/schemapush/internal/log"
	"github.com/jensandresen/schemapush/internal/model"
)

// Parser runs the full extraction pipeline: normalize, extract blocks,
// decode, suppress. A Parser is immutable after construction and safe for
// concurrent use.
type Parser struct {
	suppressor *Suppressor
	location   *time.Location
}

// Option configures a Parser.
type Option func(*Parser)

// WithSuppressTerms replaces the denylist. Pass nil to disable suppression.
func WithSuppressTerms(terms []string) Option {
	return func(p *Parser) {
		p.suppressor = NewSuppressor(terms)
	}
}

// WithLocation sets the zone for floating DTSTART/DTEND values.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) {
		if loc != nil {
			p.location = loc
		}
	}
}

// NewParser creates a Parser using DefaultSuppressTerms and time.Local
// unless overridden by opts.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		suppressor: NewSuppressor(DefaultSuppressTerms),
		location:   time.Local,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = NewParser()

// Parse extracts events from lines with the default parser.
func Parse(lines []string) []model.Event {
	return defaultParser.Parse(lines)
}

// ParseSingle returns the event when lines contain exactly one.
func ParseSingle(lines []string) (model.Event, bool) {
	return defaultParser.ParseSingle(lines)
}

// Parse extracts all complete, decodable, non-suppressed events from lines,
// in input order. It never fails: malformed input yields fewer or zero
// events, never an error.
func (p *Parser) Parse(lines []string) []model.Event {
	blocks, err := ExtractBlocks(NormalizeLines(lines))
	if err != nil {
		appLog.Debug("ics: calendar rejected, no events", "reason", err.Error(), "lines", len(lines))
		return []model.Event{}
	}

	events := make([]model.Event, 0, len(blocks))
	suppressed := 0
	for _, b := range blocks {
		ev, ok := DecodeBlock(b, p.location)
		if !ok {
			continue
		}
		if p.suppressor.Suppressed(ev) {
			suppressed++
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics: parse completed",
		"blocks", len(blocks),
		"events", len(events),
		"suppressed", suppressed,
	)
	return events
}

// ParseSingle returns the sole event parsed from lines. ok is false when
// zero or more than one event is found.
func (p *Parser) ParseSingle(lines []string) (model.Event, bool) {
	events := p.Parse(lines)
	if len(events) != 1 {
		return model.Event{}, false
	}
	return events[0], true
}

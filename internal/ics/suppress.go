package ics

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/jensandresen/schemapush/internal/model"
)

// DefaultSuppressTerms are the denylist terms used by the package-level
// Parse and ParseSingle.
var DefaultSuppressTerms = []string{"tilsyn", "årgang"}

// Suppressor drops events whose summary or description contains one of a
// fixed set of terms. Matching is a caseless substring match using Unicode
// case folding, independent of the process locale.
type Suppressor struct {
	terms []string // folded, non-empty
}

// NewSuppressor builds a Suppressor from terms. Blank terms are ignored, so a
// nil or empty list suppresses nothing.
func NewSuppressor(terms []string) *Suppressor {
	s := &Suppressor{}
	for _, t := range terms {
		if strings.TrimSpace(t) == "" {
			continue
		}
		s.terms = append(s.terms, fold(t))
	}
	return s
}

// Suppressed reports whether ev must be hidden from every consumer.
func (s *Suppressor) Suppressed(ev model.Event) bool {
	return s.Matches(ev.Summary) || s.Matches(ev.Description)
}

// Matches reports whether text contains any term. Empty or whitespace-only
// text never matches.
func (s *Suppressor) Matches(text string) bool {
	if s == nil || len(s.terms) == 0 || strings.TrimSpace(text) == "" {
		return false
	}
	folded := fold(text)
	for _, t := range s.terms {
		if strings.Contains(folded, t) {
			return true
		}
	}
	return false
}

// fold returns the caseless form of s. cases.Caser is stateful and not safe
// for concurrent use, so a fresh one is created per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

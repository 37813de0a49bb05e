package model

import (
	"fmt"
	"time"
)

// Event is a single decoded calendar entry.
//
// Event is a plain comparable value: two events are equal (==) iff all five
// fields are equal, and an Event can be used directly as a map key. There is
// no UID, so duplicate blocks with identical fields are indistinguishable.
type Event struct {
	Begin time.Time
	End   time.Time

	Location    string
	Summary     string
	Description string
}

func (e Event) String() string {
	return fmt.Sprintf("Begin: %s, End: %s, Location: %s, Summary: %s, Description: %s",
		e.Begin.Format(time.RFC3339), e.End.Format(time.RFC3339), e.Location, e.Summary, e.Description)
}

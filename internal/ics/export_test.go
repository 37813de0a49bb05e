package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jensandresen/schemapush/internal/model"
)

func TestExportRoundTrip(t *testing.T) {
	events := []model.Event{
		{
			Begin:       time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC),
			End:         time.Date(2024, 3, 4, 8, 45, 0, 0, time.UTC),
			Summary:     "Dansk, 3.A",
			Description: "<b>Lærer:</b> KN; <b>Lokale:</b> 12\nHusk bog",
			Location:    "Jonstrup",
		},
		{
			Begin:       time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
			End:         time.Date(2024, 3, 4, 9, 45, 0, 0, time.UTC),
			Summary:     "Matematik",
			Description: strings.TrimSpace(strings.Repeat("meget lang beskrivelse ", 10)),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, "alice", events, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))

	out := buf.String()
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "X-WR-CALNAME:alice")
	assert.Contains(t, out, "UID:"+EventUID(events[0]))
	// escaped exactly once
	assert.Contains(t, out, `SUMMARY:Dansk\, 3.A`)
	assert.NotContains(t, out, `\\`)

	got := NewParser(WithSuppressTerms(nil)).Parse(SplitLines(out))
	if diff := cmp.Diff(events, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEventUIDIsStable(t *testing.T) {
	a := model.Event{Begin: y2k, End: y2k, Summary: "foo"}
	b := a
	c := a
	c.Summary = "bar"

	assert.Equal(t, EventUID(a), EventUID(b))
	assert.NotEqual(t, EventUID(a), EventUID(c))
	assert.True(t, strings.HasSuffix(EventUID(a), "@schemapush"))
}

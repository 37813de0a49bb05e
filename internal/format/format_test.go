package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jensandresen/schemapush/internal/model"
)

func TestDescription(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "plain text", "plain text"},
		{"closing tags become commas", "<b>Hi</b>, there</p>", "Hi, there"},
		{"paragraphs", "<p><b>Hold:</b> 3.A</p><p><b>Lokale:</b> 12</p>", "Hold:  3.A, Lokale:  12"},
		{"space before comma and runs", "a </b>,</i> b", "a,  b"},
		{"comma run", "x,,,y", "x,y"},
		{"colon comma", "Tid:</b>", "Tid: "},
		{"trailing comma and spaces", "Hold</b>  ", "Hold"},
		{"trailing comma and no-break space", "a,\u00a0", "a"},
		{"no-break space before trailing comma", "a\u00a0,", "a"},
		{"unicode tag names", "<æ>x</æ>", "x"},
		{"tags with attributes are kept", `<a href="x">link</a>`, `<a href="x">link`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Description(tt.in))
		})
	}
}

func TestFormatterLines(t *testing.T) {
	f := New(time.UTC, "")
	begin := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	end := begin.Add(45 * time.Minute)

	tests := []struct {
		name     string
		ev       model.Event
		wantLine string
		wantLast string
	}{
		{
			name:     "with description",
			ev:       model.Event{Begin: begin, End: end, Summary: "Dansk", Description: "<b>Lokale:</b> 12"},
			wantLine: "08:00-08:45 > Dansk, Lokale:  12",
			wantLast: "08:00 > <b>Lokale:</b> 12",
		},
		{
			name:     "no description",
			ev:       model.Event{Begin: begin, End: end, Summary: "Dansk"},
			wantLine: "08:00-08:45 > Dansk",
			wantLast: "08:00 > ",
		},
		{
			name:     "description empty after cleanup",
			ev:       model.Event{Begin: begin, End: end, Summary: "Idræt", Description: "</p>"},
			wantLine: "08:00-08:45 > Idræt",
			wantLast: "08:00 > </p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantLine, f.AgendaLine(tt.ev))
			assert.Equal(t, tt.wantLast, f.LastLine(tt.ev))
		})
	}
}

func TestFormatterUsesLocation(t *testing.T) {
	f := New(time.FixedZone("UTC+2", 2*60*60), "15.04")
	ev := model.Event{
		Begin:   time.Date(2024, 3, 4, 7, 0, 0, 0, time.UTC),
		End:     time.Date(2024, 3, 4, 7, 45, 0, 0, time.UTC),
		Summary: "Matematik",
	}

	assert.Equal(t, []string{"09.00-09.45 > Matematik"}, f.AgendaLines([]model.Event{ev}))
	assert.Equal(t, []string{"09.00 > "}, f.LastLines([]model.Event{ev}))
}

func TestZeroFormatter(t *testing.T) {
	var f Formatter
	ev := model.Event{Begin: time.Date(2024, 3, 4, 7, 0, 0, 0, time.Local)}
	assert.Equal(t, "07:00 > ", f.LastLine(ev))
}

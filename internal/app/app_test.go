package app

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jensandresen/schemapush/internal/agenda"
	"github.com/jensandresen/schemapush/internal/config"
	"github.com/jensandresen/schemapush/internal/ics"
	"github.com/jensandresen/schemapush/internal/push"
)

const feed = "BEGIN:VCALENDAR\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTART:20240304T090000Z\r\n" +
	"DTEND:20240304T094500Z\r\n" +
	"SUMMARY:Matematik\r\n" +
	"DESCRIPTION:<b>Lokale:</b> 12\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTART:20240304T080000Z\r\n" +
	"DTEND:20240304T084500Z\r\n" +
	"SUMMARY:Dansk\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTART:20240304T120000Z\r\n" +
	"DTEND:20240304T130000Z\r\n" +
	"SUMMARY:Tilsyn i gården\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTART:20240305T080000Z\r\n" +
	"DTEND:20240305T084500Z\r\n" +
	"SUMMARY:Engelsk\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

type recordingSink struct {
	msgs []push.Message
	err  error
}

func (s *recordingSink) Send(_ context.Context, msg push.Message) error {
	s.msgs = append(s.msgs, msg)
	return s.err
}

func newTestApp(t *testing.T, sink push.Sink) *App {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feed))
	}))
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.CacheDir = t.TempDir()
	cfg.Calendars = []config.CalendarConfig{
		{Name: "alice", URL: srv.URL + "/alice.ics", Device: "alice-phone"},
	}

	now := time.Date(2024, 3, 4, 6, 30, 0, 0, time.UTC)
	return New(cfg, WithClock(agenda.FixedClock(now)), WithSink(sink))
}

func TestDayToday(t *testing.T) {
	a := newTestApp(t, &recordingSink{})

	ag, err := a.Day(context.Background(), "alice", "today")
	require.NoError(t, err)

	assert.Equal(t, "alice", ag.Calendar)
	assert.Equal(t, "2024-03-04", agenda.FormatDay(ag.Day))
	assert.Equal(t, []string{
		"08:00-08:45 > Dansk",
		"09:00-09:45 > Matematik, Lokale:  12",
	}, ag.Lines)
}

func TestDayTomorrow(t *testing.T) {
	a := newTestApp(t, &recordingSink{})

	ag, err := a.Day(context.Background(), "alice", "tomorrow")
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00-08:45 > Engelsk"}, ag.Lines)
}

func TestDayWithoutEvents(t *testing.T) {
	a := newTestApp(t, &recordingSink{})

	ag, err := a.Day(context.Background(), "alice", "2024-03-09")
	require.NoError(t, err)
	assert.True(t, ag.Empty())
	assert.Equal(t, "No events available for 2024-03-09", ag.EmptyMessage())
}

func TestDayUnknownCalendar(t *testing.T) {
	a := newTestApp(t, &recordingSink{})

	_, err := a.Day(context.Background(), "bob", "today")
	assert.True(t, errors.Is(err, ErrUnknownCalendar))
}

func TestSendBuildsMessage(t *testing.T) {
	sink := &recordingSink{}
	a := newTestApp(t, sink)

	ag, err := a.Day(context.Background(), "alice", "today")
	require.NoError(t, err)
	require.NoError(t, a.Send(context.Background(), ag))

	require.Len(t, sink.msgs, 1)
	msg := sink.msgs[0]
	assert.Equal(t, "alice-phone", msg.Recipient)
	assert.Equal(t, "Skema for alice", msg.Title)
	assert.Equal(t, "08:00-08:45 > Dansk\n09:00-09:45 > Matematik, Lokale:  12", msg.Text())
}

func TestSendSkipsEmptyAgenda(t *testing.T) {
	sink := &recordingSink{}
	a := newTestApp(t, sink)

	require.NoError(t, a.Send(context.Background(), Agenda{Calendar: "alice"}))
	assert.Empty(t, sink.msgs)
}

func TestSendWrapsSinkErrors(t *testing.T) {
	boom := errors.New("boom")
	a := newTestApp(t, &recordingSink{err: boom})

	ag, err := a.Day(context.Background(), "alice", "today")
	require.NoError(t, err)
	assert.ErrorIs(t, a.Send(context.Background(), ag), boom)
}

func TestLastFromFile(t *testing.T) {
	a := newTestApp(t, &recordingSink{})

	path := filepath.Join(t.TempDir(), "cal.ics")
	require.NoError(t, os.WriteFile(path, []byte(feed), 0o600))

	ag, err := a.Last(context.Background(), ics.FileSource{Path: path}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"09:00 > <b>Lokale:</b> 12",
		"08:00 > ",
	}, ag.Lines)
}

func TestLastMissingFile(t *testing.T) {
	a := newTestApp(t, &recordingSink{})

	_, err := a.Last(context.Background(), ics.FileSource{Path: filepath.Join(t.TempDir(), "nope.ics")}, 2)
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	a := newTestApp(t, &recordingSink{})

	var buf bytes.Buffer
	require.NoError(t, a.Export(context.Background(), &buf, "alice"))

	out := buf.String()
	assert.Contains(t, out, "X-WR-CALNAME:alice")
	assert.Equal(t, 3, strings.Count(out, "BEGIN:VEVENT"))
	assert.NotContains(t, out, "Tilsyn")
}

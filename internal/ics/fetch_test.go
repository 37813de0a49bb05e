package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jensandresen/schemapush/internal/model"
)

const feedBody = "BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nDTSTART:20000101T000000\r\nDTEND:20000101T000000\r\n" +
	"SUMMARY:foo\r\nDESCRIPTION:foo\r\nLOCATION:foo\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"

func TestFetcherCachesWithETag(t *testing.T) {
	var hits, notModified atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	src := Source{ID: "alice", URL: srv.URL + "/private/token.ics"}

	first, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, feedBody, string(first.Body))

	second, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, feedBody, string(second.Body))

	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, int32(1), notModified.Load())
}

func TestFetcherFallsBackToCacheOnError(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	src := Source{ID: "alice", URL: srv.URL}

	_, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)

	fail.Store(true)
	res, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, feedBody, string(res.Body))
}

func TestFetcherErrorWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	_, err := f.Fetch(context.Background(), Source{ID: "alice", URL: srv.URL})
	assert.Error(t, err)

	_, err = f.Fetch(context.Background(), Source{ID: "empty"})
	assert.Error(t, err)
}

func TestURLSourceLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	src := URLSource{Fetcher: NewFetcher(t.TempDir()), Source: Source{ID: "alice", URL: srv.URL}}
	lines, err := src.Lines(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "BEGIN:VCALENDAR", lines[0])
	assert.Equal(t, []model.Event{fooEvent("foo")}, Parse(lines))
}

func TestFileSourceLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.ics")
	require.NoError(t, os.WriteFile(path, []byte(feedBody), 0o600))

	lines, err := FileSource{Path: path}.Lines(context.Background())
	require.NoError(t, err)
	assert.Len(t, Parse(lines), 1)

	_, err = FileSource{Path: filepath.Join(t.TempDir(), "missing.ics")}.Lines(context.Background())
	assert.Error(t, err)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.com/...(redacted)", redactURL("https://example.com/secret/token.ics?key=abc"))
	assert.Equal(t, "ics://...(redacted)", redactURL("not a url"))
}

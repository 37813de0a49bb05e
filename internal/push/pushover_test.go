package push

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendPostsForm(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		got = r.PostForm
		_, _ = w.Write([]byte(`{"status":1,"request":"abc"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL, Token: "tok", User: "usr"})
	err := c.Send(context.Background(), Message{
		Recipient: "alice-phone",
		Title:     "Skema for alice",
		Lines:     []string{"08:00-08:45 > Dansk", "09:00-09:45 > Matematik"},
	})
	require.NoError(t, err)

	assert.Equal(t, "tok", got.Get("token"))
	assert.Equal(t, "usr", got.Get("user"))
	assert.Equal(t, "alice-phone", got.Get("device"))
	assert.Equal(t, "1", got.Get("monospace"))
	assert.Equal(t, "Skema for alice", got.Get("title"))
	assert.Equal(t, "08:00-08:45 > Dansk\n09:00-09:45 > Matematik", got.Get("message"))
}

func TestClientSendReportsAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":0,"errors":["user identifier is invalid"]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL, Token: "tok", User: "bad"})
	err := c.Send(context.Background(), Message{Lines: []string{"x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user identifier is invalid")
}

func TestClientSendValidates(t *testing.T) {
	c := NewClient(Config{})
	assert.Error(t, c.Send(context.Background(), Message{Lines: []string{"x"}}))

	c = NewClient(Config{Token: "tok", User: "usr"})
	assert.Error(t, c.Send(context.Background(), Message{Lines: []string{" "}}))
}

func TestClientSendHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":1}`))
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL, Token: "tok", User: "usr", RatePerMinute: 1})
	require.NoError(t, c.Send(context.Background(), Message{Lines: []string{"first"}}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, c.Send(ctx, Message{Lines: []string{"second"}}))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 5))

	long := strings.Repeat("æ", 2000)
	got := truncateRunes(long, maxMessageRunes)
	assert.Equal(t, maxMessageRunes, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
}

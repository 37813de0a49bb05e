// Package push delivers formatted agendas as push notifications.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	appLog "github.com/jensandresen/schemapush/internal/log"
)

// DefaultEndpoint is the Pushover message API.
const DefaultEndpoint = "https://api.pushover.net/1/messages.json"

// Pushover caps message bodies at 1024 characters.
const maxMessageRunes = 1024

// Message is one notification: the lines are joined with newlines.
type Message struct {
	// Recipient is the device name the message is routed to. Empty means
	// all of the user's devices.
	Recipient string
	Title     string
	Lines     []string
}

// Text joins the message lines.
func (m Message) Text() string {
	return strings.Join(m.Lines, "\n")
}

// Sink accepts formatted messages for delivery.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// Config configures a Client.
type Config struct {
	Endpoint string
	Token    string
	User     string
	// RatePerMinute bounds outgoing requests. Zero means 30.
	RatePerMinute int
}

// Client sends messages to Pushover as monospace notifications.
type Client struct {
	endpoint string
	token    string
	user     string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewClient creates a Pushover client.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = 30
	}
	return &Client{
		endpoint: cfg.Endpoint,
		token:    cfg.Token,
		user:     cfg.User,
		client:   &http.Client{Timeout: 10 * time.Second},
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), 1),
	}
}

// apiResponse is the relevant part of Pushover's JSON reply.
type apiResponse struct {
	Status  int      `json:"status"`
	Request string   `json:"request"`
	Errors  []string `json:"errors"`
}

// Send posts msg. It waits for the rate limiter, so ctx bounds the wait too.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if c.token == "" || c.user == "" {
		return errors.New("push: pushover token and user must be configured")
	}
	text := msg.Text()
	if strings.TrimSpace(text) == "" {
		return errors.New("push: empty message")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("push: rate limit wait: %w", err)
	}

	form := url.Values{}
	form.Set("token", c.token)
	form.Set("user", c.user)
	if msg.Recipient != "" {
		form.Set("device", msg.Recipient)
	}
	form.Set("monospace", "1")
	if msg.Title != "" {
		form.Set("title", msg.Title)
	}
	form.Set("message", truncateRunes(text, maxMessageRunes))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("push: send: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var parsed apiResponse
	_ = json.Unmarshal(body, &parsed)

	if resp.StatusCode != http.StatusOK || parsed.Status != 1 {
		detail := strings.Join(parsed.Errors, "; ")
		if detail == "" {
			detail = strings.TrimSpace(string(body))
		}
		return fmt.Errorf("push: pushover rejected message: status %d: %s", resp.StatusCode, detail)
	}

	appLog.Info("push sent", "recipient", msg.Recipient, "lines", len(msg.Lines), "request", parsed.Request)
	return nil
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}

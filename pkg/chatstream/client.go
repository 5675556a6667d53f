// Package chatstream is the client side of the chat relay: it issues the
// streaming request, decodes the server-sent event frames incrementally,
// and manages conversational state including cancellation when a newer
// message supersedes an in-flight one.
package chatstream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const doneSentinel = "[DONE]"

// Message is one conversation turn. Roles must alternate starting with
// user; the relay forwards the transcript as-is.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Event is one decoded unit of the response stream: a text delta or a
// terminal error. The channel closes after the final event.
type Event struct {
	Delta string
	Err   error
}

// ErrTruncated reports a stream that ended without a done sentinel or an
// in-band error frame. The reply is incomplete and must not be trusted.
var ErrTruncated = errors.New("stream ended without a done sentinel")

// StatusError is a non-success HTTP response received before any stream
// bytes, such as a validation or configuration failure.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat request failed with status %d: %s", e.Code, e.Body)
}

// Client issues streaming chat requests against a relay endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the given endpoint URL, typically
// "<origin>/api/chat".
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Messages []Message `json:"messages"`
}

// frame is the union payload of one data line. Error is set only on the
// relay's in-band failure frame.
type frame struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

// Stream POSTs the transcript and returns a channel of decoded events.
// A non-success status or transport failure before the stream opens is
// returned as an error; failures after that arrive as an Event with Err
// set, always the last event before the channel closes.
func (c *Client) Stream(ctx context.Context, messages []Message) (<-chan Event, error) {
	body, err := json.Marshal(chatRequest{Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("encode transcript: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(detail))}
	}

	out := make(chan Event)
	go readStream(ctx, resp.Body, out)
	return out, nil
}

// readStream decodes data lines until the body ends. Lines without the
// event prefix are ignored for forward compatibility, and payloads that
// fail to parse are skipped silently since a frame can be split across
// chunk boundaries.
func readStream(ctx context.Context, body io.ReadCloser, out chan<- Event) {
	defer close(out)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	done := false
	for scanner.Scan() {
		payload, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		if payload == doneSentinel {
			// Keep draining until the transport finishes so the
			// connection closes cleanly.
			done = true
			continue
		}
		if done {
			continue
		}

		var f frame
		if err := json.Unmarshal([]byte(payload), &f); err != nil {
			continue
		}
		if f.Error != "" {
			emit(ctx, out, Event{Err: fmt.Errorf("relay reported failure: %s", f.Error)})
			return
		}
		if !emit(ctx, out, Event{Delta: f.Text}) {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		emit(ctx, out, Event{Err: err})
		return
	}
	if !done {
		emit(ctx, out, Event{Err: ErrTruncated})
	}
}

func emit(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- ev:
		return true
	}
}

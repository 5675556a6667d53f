// Package anthropic adapts the Anthropic Messages API to the relay's
// provider interface.
package anthropic

import (
	"context"
	"fmt"
	"net/http"

	anthropicapi "github.com/clik-ai/concierge/internal/api/anthropic"
	"github.com/clik-ai/concierge/internal/provider"
)

// ProviderOption configures the provider.
type ProviderOption func(*Provider)

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = httpClient
	}
}

// Provider implements provider.Completer against the Anthropic API.
type Provider struct {
	client     *anthropicapi.Client
	baseURL    string
	httpClient *http.Client
}

// New creates a new Anthropic provider.
func New(apiKey string, opts ...ProviderOption) *Provider {
	p := &Provider{}
	for _, opt := range opts {
		opt(p)
	}

	var clientOpts []anthropicapi.ClientOption
	if p.baseURL != "" {
		clientOpts = append(clientOpts, anthropicapi.WithBaseURL(p.baseURL))
	}
	if p.httpClient != nil {
		clientOpts = append(clientOpts, anthropicapi.WithHTTPClient(p.httpClient))
	}

	p.client = anthropicapi.NewClient(apiKey, clientOpts...)
	return p
}

func (p *Provider) Name() string {
	return "anthropic"
}

func (p *Provider) Stream(ctx context.Context, req *provider.Request) (<-chan provider.Event, error) {
	apiReq := &anthropicapi.MessagesRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		System:    req.System,
		Messages:  make([]anthropicapi.Message, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		apiReq.Messages = append(apiReq.Messages, anthropicapi.Message{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	stream, err := p.client.StreamMessage(ctx, apiReq)
	if err != nil {
		return nil, err
	}

	out := make(chan provider.Event)
	go func() {
		defer close(out)

		for result := range stream {
			if result.Err != nil {
				out <- provider.Event{Err: result.Err}
				return
			}

			switch result.EventType {
			case "content_block_delta":
				event, err := result.ParseContentBlockDelta()
				if err != nil {
					out <- provider.Event{Err: fmt.Errorf("parse content_block_delta: %w", err)}
					// Drain so the reader can finish and close the body.
					for range stream {
					}
					return
				}
				if event.Delta.Type == "text_delta" && event.Delta.Text != "" {
					out <- provider.Event{Delta: event.Delta.Text}
				}

			case "message_stop":
				return

			default:
				// message_start, ping, content_block_start/stop,
				// message_delta carry no text.
				continue
			}
		}
	}()

	return out, nil
}

// Package provider defines the upstream completion interface the relay
// consumes, independent of which vendor serves it.
package provider

import (
	"context"

	"github.com/clik-ai/concierge/internal/domain"
)

// Event is one unit of a streaming completion. Exactly one of Delta or Err
// is meaningful; a terminal Err is the last event before the channel closes.
type Event struct {
	Delta string
	Err   error
}

// Request carries everything an upstream call needs. The relay owns the
// system instruction and caps; providers must not reorder messages.
type Request struct {
	System    string
	Messages  []domain.Message
	Model     string
	MaxTokens int
}

// Completer streams incremental text for a transcript. Implementations
// close the returned channel after the final delta or a terminal error,
// and must honor ctx cancellation.
type Completer interface {
	Name() string
	Stream(ctx context.Context, req *Request) (<-chan Event, error)
}

// Package tokens estimates prompt sizes so the relay can bound what it
// forwards upstream. Counts are tiktoken-based approximations; the upstream
// tokenizer differs slightly, which is fine for a budget check.
package tokens

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"

	"github.com/clik-ai/concierge/internal/domain"
)

// Per-message framing overhead, borrowed from OpenAI's chat accounting.
const tokensPerMessage = 4

// Estimator counts tokens with a fixed encoding.
type Estimator struct {
	codec tokenizer.Codec
}

// NewEstimator returns an estimator using the o200k_base encoding, the
// closest fit for current-generation models.
func NewEstimator() (*Estimator, error) {
	codec, err := tokenizer.Get(tokenizer.O200kBase)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer encoding: %w", err)
	}
	return &Estimator{codec: codec}, nil
}

// CountText counts tokens in a plain string.
func (e *Estimator) CountText(text string) int {
	ids, _, err := e.codec.Encode(text)
	if err != nil {
		// Encoding plain UTF-8 does not fail in practice; degrade to a
		// byte-length guess rather than abort the request.
		return len(text) / 4
	}
	return len(ids)
}

// CountPrompt estimates the full prompt: system instruction plus every
// transcript turn with per-message overhead.
func (e *Estimator) CountPrompt(system string, messages []domain.Message) int {
	total := 0
	if system != "" {
		total += tokensPerMessage + e.CountText(system)
	}
	for _, m := range messages {
		total += tokensPerMessage + e.CountText(m.Content)
	}
	return total
}

// TrimToBudget drops the oldest transcript turns until the estimated prompt
// fits the budget. The most recent message is always retained, even when it
// alone exceeds the budget, so the current question is never lost.
func (e *Estimator) TrimToBudget(system string, messages []domain.Message, budget int) []domain.Message {
	trimmed := messages
	for len(trimmed) > 1 && e.CountPrompt(system, trimmed) > budget {
		trimmed = trimmed[1:]
	}
	return trimmed
}

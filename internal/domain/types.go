// Package domain holds the wire-level types shared by the relay endpoint
// and the upstream providers.
package domain

import "strings"

// Message roles. The transcript alternates user/assistant starting with
// user; the relay forwards whatever it is given and leaves that invariant
// to the caller.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in the conversation transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Messages []Message `json:"messages"`
}

// LastUserContent returns the content of the most recent user message, or
// an empty string when the transcript has none.
func LastUserContent(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}

// DeltaFrame is the payload of a delta stream event.
type DeltaFrame struct {
	Text string `json:"text"`
}

// ErrorFrame is the payload of an in-band error stream event.
type ErrorFrame struct {
	Error string `json:"error"`
}

// DoneSentinel terminates a normally completed event stream.
const DoneSentinel = "[DONE]"

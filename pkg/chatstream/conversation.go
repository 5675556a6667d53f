package chatstream

import (
	"context"
	"strings"
	"sync"
)

// Phase is the lifecycle of the current exchange.
type Phase int

const (
	// PhaseIdle means no exchange has started or the conversation was reset.
	PhaseIdle Phase = iota
	// PhaseThinking means the request was sent and no bytes have arrived.
	PhaseThinking
	// PhaseResponding means deltas are arriving.
	PhaseResponding
	// PhaseDone means the reply was committed, by stream end or fallback.
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseThinking:
		return "thinking"
	case PhaseResponding:
		return "responding"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// FallbackReply stands in for the assistant when the request fails outright,
// keeping the exchange conversational instead of surfacing a raw error.
const FallbackReply = "Sorry, I'm having trouble connecting right now. Give it another try in a moment!"

// Snapshot is a consistent view of conversation state handed to listeners.
// Transcript holds committed turns; Pending is the uncommitted assistant
// text still streaming in.
type Snapshot struct {
	Phase      Phase
	Transcript []Message
	Pending    string
}

// Conversation owns one chat session: the committed transcript, the
// in-progress reply buffer, and the handle to the active request. All
// mutation goes through its mutex; a generation counter fences out late
// updates from superseded requests.
type Conversation struct {
	client   *Client
	listener func(Snapshot)
	fallback string

	mu         sync.Mutex
	phase      Phase
	transcript []Message
	pending    strings.Builder
	generation int
	cancel     context.CancelFunc
}

// ConversationOption configures a Conversation.
type ConversationOption func(*Conversation)

// WithListener registers a callback invoked after every state change.
// It runs outside the conversation lock and must not block for long.
func WithListener(fn func(Snapshot)) ConversationOption {
	return func(c *Conversation) {
		c.listener = fn
	}
}

// WithFallback overrides the reply substituted on request failure.
func WithFallback(text string) ConversationOption {
	return func(c *Conversation) {
		c.fallback = text
	}
}

// NewConversation creates a conversation backed by the given client.
func NewConversation(client *Client, opts ...ConversationOption) *Conversation {
	c := &Conversation{
		client:   client,
		fallback: FallbackReply,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send submits a user message. Empty or whitespace-only input is ignored.
// Submitting while a reply is still in flight supersedes it: the old
// request is cancelled, its unanswered user turn is replaced by the new
// one, and none of its late results are applied.
func (c *Conversation) Send(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	c.mu.Lock()
	if c.phase == PhaseThinking || c.phase == PhaseResponding {
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		// The superseded turn never got an answer; drop it so roles
		// keep alternating.
		if n := len(c.transcript); n > 0 && c.transcript[n-1].Role == RoleUser {
			c.transcript = c.transcript[:n-1]
		}
	}

	c.generation++
	gen := c.generation
	c.transcript = append(c.transcript, Message{Role: RoleUser, Content: text})
	c.pending.Reset()
	c.phase = PhaseThinking

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	msgs := make([]Message, len(c.transcript))
	copy(msgs, c.transcript)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	go c.run(ctx, gen, msgs)
}

// Reset cancels any in-flight request and clears the conversation back to
// idle with an empty transcript.
func (c *Conversation) Reset() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
	c.transcript = nil
	c.pending.Reset()
	c.phase = PhaseIdle
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// Snapshot returns the current conversation state.
func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Conversation) run(ctx context.Context, gen int, msgs []Message) {
	events, err := c.client.Stream(ctx, msgs)
	if err != nil {
		if ctx.Err() != nil {
			// Superseded before the stream opened; discard silently.
			return
		}
		c.finish(gen, c.fallback)
		return
	}

	c.setResponding(gen)

	for ev := range events {
		if ev.Err != nil {
			if ctx.Err() != nil {
				return
			}
			c.finish(gen, c.fallback)
			return
		}
		c.appendDelta(gen, ev.Delta)
	}

	if ctx.Err() != nil {
		return
	}
	c.commit(gen)
}

func (c *Conversation) setResponding(gen int) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseResponding
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

func (c *Conversation) appendDelta(gen int, delta string) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.pending.WriteString(delta)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// commit moves the accumulated buffer into the transcript as the
// assistant's reply.
func (c *Conversation) commit(gen int) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.transcript = append(c.transcript, Message{Role: RoleAssistant, Content: c.pending.String()})
	c.pending.Reset()
	c.phase = PhaseDone
	c.cancel = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// finish discards any partial buffer and commits the given text instead,
// used for the fallback reply on request failure.
func (c *Conversation) finish(gen int, text string) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.pending.Reset()
	c.transcript = append(c.transcript, Message{Role: RoleAssistant, Content: text})
	c.phase = PhaseDone
	c.cancel = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

func (c *Conversation) snapshotLocked() Snapshot {
	transcript := make([]Message, len(c.transcript))
	copy(transcript, c.transcript)
	return Snapshot{
		Phase:      c.phase,
		Transcript: transcript,
		Pending:    c.pending.String(),
	}
}

func (c *Conversation) notify(snap Snapshot) {
	if c.listener != nil {
		c.listener(snap)
	}
}

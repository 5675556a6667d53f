// Package scripted is the no-credential demo provider: replies come from an
// ordered rule table and are replayed as a timed sequence of deltas, so the
// endpoint behaves like a live upstream without one.
package scripted

import (
	"context"
	"strings"
	"time"

	"github.com/clik-ai/concierge/internal/domain"
	"github.com/clik-ai/concierge/internal/provider"
)

// Rule pairs a predicate with a canned reply. Rules are evaluated in order
// and the first match wins.
type Rule struct {
	Name     string
	Keywords []string
	Reply    string
}

// matches reports whether any keyword appears in the message,
// case-insensitively.
func (r Rule) matches(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range r.Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// step is one unit of the replay schedule: wait, then emit.
type step struct {
	delta string
	delay time.Duration
}

// Option configures the provider.
type Option func(*Provider)

// WithRules replaces the default rule table.
func WithRules(rules []Rule, fallback string) Option {
	return func(p *Provider) {
		p.rules = rules
		p.fallback = fallback
	}
}

// WithPace sets the chunk size in runes and the delay between chunks.
// A zero delay replays the whole script immediately.
func WithPace(chunkSize int, delay time.Duration) Option {
	return func(p *Provider) {
		p.chunkSize = chunkSize
		p.delay = delay
	}
}

// Provider implements provider.Completer from the canned rule table.
type Provider struct {
	rules     []Rule
	fallback  string
	chunkSize int
	delay     time.Duration
}

// New creates a scripted provider with the default rule table and pacing
// close to a real upstream.
func New(opts ...Option) *Provider {
	p := &Provider{
		rules:     defaultRules,
		fallback:  genericReply,
		chunkSize: 3,
		delay:     18 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string {
	return "scripted"
}

// lookup returns the reply for the first matching rule, or the fallback.
func (p *Provider) lookup(message string) string {
	for _, rule := range p.rules {
		if rule.matches(message) {
			return rule.Reply
		}
	}
	return p.fallback
}

// script chunks a reply into the finite delta sequence the replay loop
// walks. Splitting on runes keeps multi-byte characters intact.
func (p *Provider) script(reply string) []step {
	runes := []rune(reply)
	steps := make([]step, 0, len(runes)/p.chunkSize+1)
	for i := 0; i < len(runes); i += p.chunkSize {
		end := i + p.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		steps = append(steps, step{delta: string(runes[i:end]), delay: p.delay})
	}
	return steps
}

// Stream replays the scripted reply for the latest user message. A single
// loop drives the whole schedule, so cancellation is one select arm rather
// than scattered timers.
func (p *Provider) Stream(ctx context.Context, req *provider.Request) (<-chan provider.Event, error) {
	reply := p.lookup(domain.LastUserContent(req.Messages))
	steps := p.script(reply)

	out := make(chan provider.Event)
	go func() {
		defer close(out)

		timer := time.NewTimer(0)
		defer timer.Stop()
		if !timer.Stop() {
			<-timer.C
		}

		for _, s := range steps {
			if s.delay > 0 {
				timer.Reset(s.delay)
				select {
				case <-ctx.Done():
					return
				case <-timer.C:
				}
			} else if ctx.Err() != nil {
				return
			}

			select {
			case <-ctx.Done():
				return
			case out <- provider.Event{Delta: s.delta}:
			}
		}
	}()

	return out, nil
}

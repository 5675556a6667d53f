// Package prompt assembles the fixed system instruction sent with every
// upstream call.
package prompt

import (
	"fmt"
	"os"
	"strings"
)

const template = `You are Clik's AI assistant, embedded in the hero section of the Clik website. Visitors are asking you questions to learn what Clik can do.

Use the following context to inform your answers:

%s

Remember: be concise, honest, and creator-friendly. Keep responses short (3-5 sentences). Always nudge toward trying Clik.`

// Builder renders the system instruction from the cached product-context
// document. The document is read once; per-request reloads buy nothing for
// static marketing copy.
type Builder struct {
	system string
}

// New builds the instruction from an in-memory context document.
func New(context string) *Builder {
	return &Builder{system: fmt.Sprintf(template, strings.TrimSpace(context))}
}

// NewFromFile loads the product-context document from disk.
func NewFromFile(path string) (*Builder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read product context: %w", err)
	}
	return New(string(data)), nil
}

// System returns the assembled system instruction.
func (b *Builder) System() string {
	return b.system
}

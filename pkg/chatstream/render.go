package chatstream

import "strings"

// BlockKind classifies one display block of assistant text.
type BlockKind int

const (
	// BlockParagraph is a regular text line.
	BlockParagraph BlockKind = iota
	// BlockHeading is a line wrapped entirely in a bold-marker pair.
	BlockHeading
	// BlockBullet is a line prefixed with "- ".
	BlockBullet
	// BlockSpacer is a blank line rendered as vertical spacing.
	BlockSpacer
	// BlockPartial is the trailing line of a still-streaming reply,
	// rendered raw with a cursor since it may be cut mid-token.
	BlockPartial
)

// Span is a run of text with uniform emphasis.
type Span struct {
	Text string
	Bold bool
}

// Block is one renderable unit of assistant output.
type Block struct {
	Kind  BlockKind
	Spans []Span
}

// Text returns the block's concatenated span text.
func (b Block) Text() string {
	var sb strings.Builder
	for _, s := range b.Spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// Render splits assistant text into display blocks, line by line. While
// streaming, the last line bypasses heading and bullet formatting and is
// returned as a partial block instead.
func Render(text string, streaming bool) []Block {
	lines := strings.Split(text, "\n")

	// A trailing newline in committed text is an artifact, not a spacer.
	if !streaming && len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	blocks := make([]Block, 0, len(lines))
	for i, line := range lines {
		if streaming && i == len(lines)-1 {
			blocks = append(blocks, Block{Kind: BlockPartial, Spans: []Span{{Text: line}}})
			continue
		}
		blocks = append(blocks, renderLine(line))
	}
	return blocks
}

func renderLine(line string) Block {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Block{Kind: BlockSpacer}
	}
	if isHeading(trimmed) {
		inner := strings.TrimSuffix(strings.TrimPrefix(trimmed, "**"), "**")
		return Block{Kind: BlockHeading, Spans: []Span{{Text: inner, Bold: true}}}
	}
	if rest, ok := strings.CutPrefix(trimmed, "- "); ok {
		return Block{Kind: BlockBullet, Spans: inlineSpans(rest)}
	}
	return Block{Kind: BlockParagraph, Spans: inlineSpans(trimmed)}
}

// isHeading reports whether the whole line is one bold-marker wrap, as
// opposed to a line that merely starts and ends with separate bold spans.
func isHeading(line string) bool {
	return len(line) > 4 &&
		strings.HasPrefix(line, "**") &&
		strings.HasSuffix(line, "**") &&
		strings.Count(line, "**") == 2
}

// inlineSpans splits a line on bold markers into alternating plain and
// emphasized runs.
func inlineSpans(line string) []Span {
	parts := strings.Split(line, "**")
	spans := make([]Span, 0, len(parts))
	for i, part := range parts {
		if part == "" {
			continue
		}
		spans = append(spans, Span{Text: part, Bold: i%2 == 1})
	}
	return spans
}

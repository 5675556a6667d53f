package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/clik-ai/concierge/pkg/chatstream"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question and print the formatted reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")

		sp := newSpinner("Thinking...")
		done := make(chan chatstream.Snapshot, 1)

		conv := chatstream.NewConversation(
			chatstream.NewClient(chatEndpoint()),
			chatstream.WithListener(func(s chatstream.Snapshot) {
				if s.Phase == chatstream.PhaseDone {
					done <- s
				}
			}),
		)

		sp.Start()
		conv.Send(question)
		final := <-done
		sp.Stop()

		if n := len(final.Transcript); n > 0 {
			fmt.Fprintln(os.Stderr)
			printBlocks(os.Stderr, chatstream.Render(final.Transcript[n-1].Content, false))
			fmt.Fprintln(os.Stderr)
		}
		return nil
	},
}

// printBlocks writes rendered blocks with terminal styling: cyan headings,
// dotted bullets, bold inline spans.
func printBlocks(w io.Writer, blocks []chatstream.Block) {
	heading := color.New(color.FgCyan, color.Bold)
	bold := color.New(color.Bold)

	for _, b := range blocks {
		switch b.Kind {
		case chatstream.BlockSpacer:
			fmt.Fprintln(w)
		case chatstream.BlockHeading:
			heading.Fprintf(w, "  %s\n", b.Text())
		case chatstream.BlockBullet:
			fmt.Fprint(w, "    • ")
			printSpans(w, bold, b.Spans)
			fmt.Fprintln(w)
		default:
			fmt.Fprint(w, "  ")
			printSpans(w, bold, b.Spans)
			fmt.Fprintln(w)
		}
	}
}

func printSpans(w io.Writer, bold *color.Color, spans []chatstream.Span) {
	for _, s := range spans {
		if s.Bold {
			bold.Fprint(w, s.Text)
		} else {
			fmt.Fprint(w, s.Text)
		}
	}
}

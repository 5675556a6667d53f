package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/clik-ai/concierge/pkg/chatstream"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start a conversational session with the Clik assistant. The full
transcript is resent with each message so context carries over.

Type 'exit' or 'quit' to end the session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cyan := color.New(color.FgCyan, color.Bold)
		dim := color.New(color.FgHiBlack)
		green := color.New(color.FgGreen)

		fmt.Fprintln(os.Stderr)
		cyan.Fprintln(os.Stderr, "  clik chat")
		dim.Fprintln(os.Stderr, "  Ask about editing, pricing, or what Clik can do with your footage.")
		dim.Fprintf(os.Stderr, "  Type 'exit' to quit.\n\n")

		sp := newSpinner("Thinking...")
		done := make(chan struct{}, 1)
		printed := 0

		conv := chatstream.NewConversation(
			chatstream.NewClient(chatEndpoint()),
			chatstream.WithListener(func(s chatstream.Snapshot) {
				switch s.Phase {
				case chatstream.PhaseResponding:
					if len(s.Pending) > printed {
						if printed == 0 {
							sp.Stop()
							cyan.Fprint(os.Stderr, "  clik → ")
						}
						fmt.Fprint(os.Stderr, s.Pending[printed:])
						printed = len(s.Pending)
					}
				case chatstream.PhaseDone:
					sp.Stop()
					if printed == 0 {
						// Nothing streamed: the reply is the fallback.
						cyan.Fprint(os.Stderr, "  clik → ")
						if n := len(s.Transcript); n > 0 {
							fmt.Fprint(os.Stderr, s.Transcript[n-1].Content)
						}
					}
					fmt.Fprintf(os.Stderr, "\n\n")
					done <- struct{}{}
				}
			}),
		)

		scanner := bufio.NewScanner(os.Stdin)
		for {
			green.Fprint(os.Stderr, "  you → ")
			if !scanner.Scan() {
				break
			}

			input := strings.TrimSpace(scanner.Text())
			if input == "" {
				continue
			}
			if input == "exit" || input == "quit" {
				dim.Fprintf(os.Stderr, "\n  Happy editing!\n\n")
				break
			}

			printed = 0
			sp.Start()
			conv.Send(input)
			<-done
		}

		return scanner.Err()
	},
}

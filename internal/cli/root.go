// Package cli implements the terminal chat client: an interactive session
// and a one-shot question command against a running relay server.
package cli

import (
	"github.com/spf13/cobra"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "clik-chat",
	Short: "Talk to the Clik assistant from your terminal",
	Long: `clik-chat connects to a Clik relay server and streams assistant
replies into your terminal.

Examples:
  clik-chat chat
  clik-chat ask how do I turn a vlog into shorts
  clik-chat --server https://clik.example.com ask what does Clik cost`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Base URL of the relay server")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
}

// Execute is the entry point called from main.
func Execute() error {
	return rootCmd.Execute()
}

func chatEndpoint() string {
	return serverURL + "/api/chat"
}

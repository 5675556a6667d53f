package cli

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
)

// newSpinner creates a terminal spinner for the waiting state.
func newSpinner(msg string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 80*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = "  " + msg
	s.Color("cyan")
	return s
}

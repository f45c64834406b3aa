package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "liveboard",
		Short: "Collaborative data-bound canvas relay",
		Long: `Liveboard keeps shared canvases in sync.

The relay groups WebSocket connections into rooms and fans every
message out to the other members: cursors, selections, and
block mutations. Clients resolve binding expressions against a
live JSON feed locally; the relay only moves envelopes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

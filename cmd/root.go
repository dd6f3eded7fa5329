package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "rocketbridge",
	Short: "rocketbridge — event-bus connector for one Rocket.Chat session",
	Long: "rocketbridge bridges a publish/subscribe event bus to a single " +
		"Rocket.Chat session: it owns the connection lifecycle, channel " +
		"membership, and message routing in both directions.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = Version
}

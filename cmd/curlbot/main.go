// curlbot watches a subreddit for new posts that require a routine
// comment and escalates through reminder, removal, and moderator report
// when the author never supplies one.
//
// Usage:
//
//	curlbot run
//	curlbot validate -f rules.yaml
//
// Credentials come from CURLBOT_* environment variables (a .env file is
// loaded if present); everything else is flags.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "curlbot",
		Short: "Routine-comment moderation bot",
		Long: `curlbot scans new subreddit posts, checks whether media posts in
watched flairs carry a qualifying routine comment from the author, and
escalates (reminder, removal, moderator report) when they do not.

Moderation rules live on a subreddit wiki page and are re-read every scan.`,
		Version: version,
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

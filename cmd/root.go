// Package cmd defines and implements the CLI commands for the
// seo-auditor executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seo-auditor",
		Short: "A site audit engine that crawls, analyzes, and scores websites for SEO health.",
		Long: `seo-auditor crawls a site breadth-first, evaluates every page against a
declarative rule set, aggregates the findings into category and overall
scores, and produces a prioritized list of fixes.

Run "seo-auditor serve" to expose the engine over HTTP, or
"seo-auditor audit <url>" for a one-shot audit with a Markdown report.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (defaults plus SEOAUDIT_ environment variables when unset)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newAuditCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

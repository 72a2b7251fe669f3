package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sessionhooks",
	Short: "Claude Code session hooks",
	Long: `sessionhooks provides event-triggered hooks for Claude Code sessions.

Hook Commands (invoked by Claude Code, reading one JSON event on stdin):
  approve      PreToolUse: auto-approve safe tool actions
  handoff      PreCompact/SessionEnd: generate a session handoff document
  load         SessionStart: emit the most recent handoff(s)

Setup:
  install      Register the hooks in ~/.claude/settings.json

Handoffs are markdown summaries of a session, written to the project's
handoff directory and reloaded at the start of the next session so work
continues where it left off.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.sessionhooks/config.yaml)")
}

// VerbosePrintf prints to stderr only when verbose mode is enabled.
// Hook stdout belongs to the host, so diagnostics stay on stderr.
func VerbosePrintf(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

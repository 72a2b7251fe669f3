package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dwahler/sessionhooks/internal/config"
	"github.com/dwahler/sessionhooks/internal/handoff"
	"github.com/dwahler/sessionhooks/internal/hookevent"
	"github.com/dwahler/sessionhooks/internal/state"
	"github.com/dwahler/sessionhooks/internal/summarize"
	"github.com/dwahler/sessionhooks/internal/transcript"
)

var handoffCmd = &cobra.Command{
	Use:   "handoff",
	Short: "PreCompact/SessionEnd hook: generate a session handoff document",
	Long: `Reads a PreCompact or SessionEnd event from stdin, summarizes the
conversation transcript through the summarization service, and writes a
markdown handoff into the project's handoff directory.

Compaction-triggered handoffs always run. A SessionEnd following a
compaction handoff is skipped when the transcript grew less than the
configured threshold since, to avoid near-duplicate documents.

Requires SESSIONHOOKS_API_KEY or ANTHROPIC_API_KEY.`,
	RunE: runHandoff,
}

func init() {
	rootCmd.AddCommand(handoffCmd)
}

func runHandoff(cmd *cobra.Command, args []string) error {
	ev, err := hookevent.Decode(os.Stdin)
	if err != nil {
		// The generator's caller checks the exit status; malformed
		// input is fatal here, unlike the read-path hooks.
		return err
	}
	if ev.Cwd == "" {
		ev.Cwd, _ = os.Getwd()
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Verbose {
		verbose = true
	}

	lc := newLifecycle(cfg)
	result, err := lc.Run(context.Background(), ev)
	if err != nil {
		return err
	}

	switch {
	case result.Skipped:
		VerbosePrintf("Skipping handoff: %s\n", result.SkipReason)
	case result.Empty:
		fmt.Println("No conversation content found, skipping handoff generation")
	default:
		fmt.Printf("Session handoff saved to: %s\n", result.ArtifactPath)
	}
	return nil
}

// newLifecycle wires the lifecycle from configuration. The summarizer is
// constructed lazily so skipped invocations need no API key.
func newLifecycle(cfg *config.Config) *handoff.Lifecycle {
	return &handoff.Lifecycle{
		States: state.NewFileStore(cfg.Handoff.StateDir),
		Reader: &transcript.Reader{
			MaxMessages:     cfg.Handoff.MaxMessages,
			MaxMessageChars: cfg.Handoff.MaxMessageChars,
		},
		NewSummarizer: func() (summarize.Summarizer, error) {
			key, err := summarize.ResolveAPIKey()
			if err != nil {
				return nil, err
			}
			client := summarize.NewAnthropicClient(
				key,
				cfg.Summarizer.Model,
				cfg.Summarizer.MaxTokens,
				time.Duration(cfg.Summarizer.TimeoutSeconds)*time.Second,
			)
			client.BaseURL = cfg.Summarizer.BaseURL
			return client, nil
		},
		GrowthThreshold: cfg.Handoff.GrowthThreshold,
		Log:             os.Stderr,
	}
}

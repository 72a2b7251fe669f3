package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/dwahler/sessionhooks/internal/config"
	"github.com/dwahler/sessionhooks/internal/handoff"
	"github.com/dwahler/sessionhooks/internal/hookevent"
	"github.com/dwahler/sessionhooks/internal/project"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "SessionStart hook: emit the most recent handoff(s)",
	Long: `Reads a SessionStart event from stdin and prints the most recent
handoff document(s) to stdout, where the assistant sees them as session
context. Detects post-compaction resumes and asks the assistant to
continue where it left off.

Exits silently when there is nothing to load; this hook never blocks a
session from starting.`,
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	ev, err := hookevent.Decode(os.Stdin)
	if err != nil {
		return nil
	}

	cwd := ev.Cwd
	if cwd == "" {
		cwd, _ = os.Getwd()
	}

	projCfg := project.Load(cwd)
	dir, ok := handoff.ResolveReadDir(cwd, projCfg)
	if !ok {
		return nil
	}

	count := handoffCount(projCfg)
	if count < 1 {
		return nil
	}

	artifacts, err := handoff.SelectRecent(dir, count)
	if err != nil || len(artifacts) == 0 {
		return nil
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		cfg = config.Default()
	}

	postCompact := ev.Source == hookevent.SourceCompact
	renderContext(os.Stdout, filepath.Base(cwd), postCompact, artifacts, cfg.Handoff.LoadCharLimit)
	return nil
}

const (
	bannerWidth    = 60
	separatorWidth = 40

	truncationMarker = "\n\n[... truncated for length ...]"
)

// handoffCount returns how many handoffs to load. An explicit 0 in the
// project config means load nothing; an absent config or key means 1.
func handoffCount(cfg *project.Config) int {
	if cfg == nil || cfg.HandoffsToLoad == nil {
		return 1
	}
	return *cfg.HandoffsToLoad
}

// renderContext formats the loaded handoffs for the host's context
// window. Content is capped because the consumer is a bounded context,
// not a file viewer.
func renderContext(w io.Writer, projectName string, postCompact bool, artifacts []handoff.Artifact, charLimit int) {
	banner := strings.Repeat("=", bannerWidth)
	separator := strings.Repeat("-", separatorWidth)

	fmt.Fprintf(w, "\n%s\n", banner)
	if postCompact {
		fmt.Fprintf(w, "CONTEXT COMPACTED - RESUMING: %s\n", projectName)
	} else {
		fmt.Fprintf(w, "SESSION CONTEXT: %s\n", projectName)
	}
	fmt.Fprintf(w, "%s\n", banner)

	for i, artifact := range artifacts {
		if i > 0 {
			fmt.Fprintf(w, "\n%s\n\n", separator)
		}

		fmt.Fprintf(w, "Previous handoff: %s\n", artifact.Name)
		fmt.Fprintf(w, "%s\n", separator)

		content, err := os.ReadFile(artifact.Path)
		if err != nil {
			fmt.Fprintf(w, "(Could not read: %v)\n", err)
			continue
		}

		text := string(content)
		if charLimit > 0 && len(text) > charLimit {
			cut := charLimit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			text = text[:cut] + truncationMarker
		}
		fmt.Fprintln(w, text)
	}

	fmt.Fprintf(w, "\n%s\n", banner)
	if postCompact {
		fmt.Fprintln(w, "Context was just compressed. Please continue where we left off.")
	} else {
		fmt.Fprintln(w, "TIP: Say 'load previous handoffs' if you need more context.")
	}
	fmt.Fprintf(w, "%s\n", banner)
}

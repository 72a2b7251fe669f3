package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dwahler/sessionhooks/internal/classifier"
	"github.com/dwahler/sessionhooks/internal/config"
	"github.com/dwahler/sessionhooks/internal/hookevent"
)

var approveCmd = &cobra.Command{
	Use:   "approve",
	Short: "PreToolUse hook: auto-approve safe tool actions",
	Long: `Reads a PreToolUse event from stdin and emits {"allow": true} when the
requested action is safe to auto-approve.

Tools on the allow-list are approved by name. Shell commands are matched
against ordered safe/dangerous pattern lists; a dangerous match always
defers, regardless of safe matches. Emitting nothing defers to the
normal permission flow - this hook whitelists, it never denies.

The default pattern set is embedded in the binary; replace it with
~/.sessionhooks/patterns.yaml or approve.patterns_file in the config.`,
	RunE: runApprove,
}

func init() {
	rootCmd.AddCommand(approveCmd)
}

func runApprove(cmd *cobra.Command, args []string) error {
	return approveFrom(os.Stdin, os.Stdout)
}

// approveFrom classifies one event from in, writing an approval to out
// or nothing at all. It always returns nil: a failing approve hook must
// never block the host's main flow.
func approveFrom(in io.Reader, out io.Writer) error {
	ev, err := hookevent.Decode(in)
	if err != nil {
		return nil
	}

	cls, err := buildClassifier()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: classifier unavailable: %v\n", err)
		return nil
	}

	if cls.ClassifyTool(ev.ToolName) == classifier.Approve {
		_ = hookevent.WriteApproval(out)
		return nil
	}

	if cls.NeedsInspection(ev.ToolName) &&
		cls.ClassifyCommand(ev.Command()) == classifier.Approve {
		_ = hookevent.WriteApproval(out)
	}

	return nil
}

// buildClassifier compiles the configured pattern set. Resolution order:
// configured file, then ~/.sessionhooks/patterns.yaml, then the embedded
// defaults.
func buildClassifier() (*classifier.Classifier, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		cfg = config.Default()
	}

	path := cfg.Approve.PatternsFile
	if path == "" {
		path = homePatternsFile()
	}

	var set *classifier.PatternSet
	if path != "" {
		set, err = classifier.LoadPatternSet(path)
	} else {
		set, err = classifier.DefaultPatternSet()
	}
	if err != nil {
		return nil, err
	}
	return classifier.New(set)
}

// homePatternsFile returns ~/.sessionhooks/patterns.yaml if it exists.
func homePatternsFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".sessionhooks", "patterns.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// Package classifier decides whether a requested tool action may be
// auto-approved. It is pure pattern evaluation: the pattern sets are
// configuration data, the algorithm is fixed.
package classifier

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dwahler/sessionhooks/embedded"
)

// Decision is the classification outcome. Defer is a no-decision that
// falls through to the host's normal confirmation flow, never an explicit
// denial.
type Decision int

const (
	// Defer leaves the decision to the host.
	Defer Decision = iota

	// Approve auto-approves the action.
	Approve
)

// String returns the decision name for diagnostics.
func (d Decision) String() string {
	if d == Approve {
		return "approve"
	}
	return "defer"
}

// PatternSet is the configuration data driving classification.
type PatternSet struct {
	// AlwaysAllowTools are tool names approved without inspection.
	AlwaysAllowTools []string `yaml:"always_allow_tools"`

	// InspectTool is the tool whose invocations carry a shell command
	// subject to pattern classification (typically "Bash").
	InspectTool string `yaml:"inspect_tool"`

	// SafePatterns approve a command when one matches and no dangerous
	// pattern does. Evaluated in order.
	SafePatterns []string `yaml:"safe_patterns"`

	// DangerousPatterns force Defer regardless of safe matches.
	DangerousPatterns []string `yaml:"dangerous_patterns"`
}

// DefaultPatternSet parses the embedded default pattern set.
func DefaultPatternSet() (*PatternSet, error) {
	return parsePatternSet(embedded.PatternsYAML)
}

// LoadPatternSet reads a pattern set from a YAML file.
func LoadPatternSet(path string) (*PatternSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern set: %w", err)
	}
	return parsePatternSet(data)
}

func parsePatternSet(data []byte) (*PatternSet, error) {
	var set PatternSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse pattern set: %w", err)
	}
	return &set, nil
}

// Classifier evaluates commands and tool names against a compiled
// pattern set. It holds no mutable state.
type Classifier struct {
	allowTools  map[string]bool
	inspectTool string
	safe        []*regexp.Regexp
	dangerous   []*regexp.Regexp
}

// New compiles a pattern set into a Classifier. Patterns are compiled
// case-insensitive and matched as searches, not full matches.
func New(set *PatternSet) (*Classifier, error) {
	c := &Classifier{
		allowTools:  make(map[string]bool, len(set.AlwaysAllowTools)),
		inspectTool: set.InspectTool,
	}
	for _, name := range set.AlwaysAllowTools {
		c.allowTools[name] = true
	}

	var err error
	if c.safe, err = compileAll(set.SafePatterns); err != nil {
		return nil, fmt.Errorf("safe pattern: %w", err)
	}
	if c.dangerous, err = compileAll(set.DangerousPatterns); err != nil {
		return nil, fmt.Errorf("dangerous pattern: %w", err)
	}
	return c, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// ClassifyTool decides on a tool by name alone.
func (c *Classifier) ClassifyTool(toolName string) Decision {
	if c.allowTools[toolName] {
		return Approve
	}
	return Defer
}

// NeedsInspection reports whether invocations of this tool carry a shell
// command that must go through ClassifyCommand.
func (c *Classifier) NeedsInspection(toolName string) bool {
	return c.inspectTool != "" && toolName == c.inspectTool
}

// ClassifyCommand classifies a shell command string. Dangerous patterns
// take strict precedence over safe patterns; a command matching neither
// list defers.
func (c *Classifier) ClassifyCommand(command string) Decision {
	command = strings.TrimSpace(command)

	for _, re := range c.dangerous {
		if re.MatchString(command) {
			return Defer
		}
	}
	for _, re := range c.safe {
		if re.MatchString(command) {
			return Approve
		}
	}
	return Defer
}

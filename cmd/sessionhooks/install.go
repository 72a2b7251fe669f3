package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	installDryRun bool
	installForce  bool
)

// HookEntry represents a single hook command (e.g., {"type": "command", "command": "..."}).
type HookEntry struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Timeout int    `json:"timeout,omitempty"`
}

// HookGroup represents a hook group with optional matcher and a hooks array.
// Claude Code format: {"matcher": "Bash", "hooks": [{"type": "command", "command": "..."}]}
type HookGroup struct {
	Matcher string      `json:"matcher,omitempty"`
	Hooks   []HookEntry `json:"hooks"`
}

// HooksConfig represents the hook events sessionhooks manages in Claude
// settings.
type HooksConfig struct {
	SessionStart []HookGroup `json:"SessionStart,omitempty"`
	PreToolUse   []HookGroup `json:"PreToolUse,omitempty"`
	PreCompact   []HookGroup `json:"PreCompact,omitempty"`
	SessionEnd   []HookGroup `json:"SessionEnd,omitempty"`
}

// ManagedEventNames returns the hook events this installer manages, in
// canonical order.
func ManagedEventNames() []string {
	return []string{"SessionStart", "PreToolUse", "PreCompact", "SessionEnd"}
}

// GetEventGroups returns the hook groups for a given event name.
func (c *HooksConfig) GetEventGroups(event string) []HookGroup {
	switch event {
	case "SessionStart":
		return c.SessionStart
	case "PreToolUse":
		return c.PreToolUse
	case "PreCompact":
		return c.PreCompact
	case "SessionEnd":
		return c.SessionEnd
	}
	return nil
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the hooks to Claude Code settings",
	Long: `Install the sessionhooks hooks to ~/.claude/settings.json.

This command:
  1. Reads existing settings.json (if any)
  2. Merges the sessionhooks hooks with existing configuration
  3. Creates a backup of the original settings
  4. Writes the updated configuration

Hooks installed:
  SessionStart  sessionhooks load
  PreToolUse    sessionhooks approve
  PreCompact    sessionhooks handoff
  SessionEnd    sessionhooks handoff

Use --force to overwrite existing sessionhooks entries.`,
	RunE: runInstall,
}

var installShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current hook configuration",
	Long:  `Display the sessionhooks hook coverage in ~/.claude/settings.json.`,
	RunE:  runInstallShow,
}

func init() {
	rootCmd.AddCommand(installCmd)
	installCmd.AddCommand(installShowCmd)

	installCmd.Flags().BoolVar(&installDryRun, "dry-run", false, "Show what would be installed without making changes")
	installCmd.Flags().BoolVar(&installForce, "force", false, "Overwrite existing sessionhooks entries")
}

// generateHooksConfig creates the sessionhooks hook configuration.
func generateHooksConfig() *HooksConfig {
	return &HooksConfig{
		SessionStart: []HookGroup{
			{Hooks: []HookEntry{{Type: "command", Command: "sessionhooks load"}}},
		},
		PreToolUse: []HookGroup{
			{Hooks: []HookEntry{{Type: "command", Command: "sessionhooks approve"}}},
		},
		PreCompact: []HookGroup{
			{Hooks: []HookEntry{{Type: "command", Command: "sessionhooks handoff"}}},
		},
		SessionEnd: []HookGroup{
			{Hooks: []HookEntry{{Type: "command", Command: "sessionhooks handoff"}}},
		},
	}
}

func settingsPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".claude", "settings.json"), nil
}

// loadSettings reads settings.json into a raw map, preserving settings
// this installer does not manage.
func loadSettings(path string) (map[string]any, error) {
	rawSettings := make(map[string]any)
	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, &rawSettings); err != nil {
			return nil, fmt.Errorf("parse existing settings: %w", err)
		}
		return rawSettings, nil
	}
	if os.IsNotExist(err) {
		return rawSettings, nil
	}
	return nil, fmt.Errorf("read settings: %w", err)
}

// cloneHooksMap copies the existing hooks section so unmanaged events
// survive the merge untouched.
func cloneHooksMap(rawSettings map[string]any) map[string]any {
	hooksMap := make(map[string]any)
	if existing, ok := rawSettings["hooks"].(map[string]any); ok {
		for k, v := range existing {
			hooksMap[k] = v
		}
	}
	return hooksMap
}

// mergeHookEvents replaces managed groups per event while keeping
// foreign hook groups in place. Returns the number of events installed.
func mergeHookEvents(hooksMap map[string]any, newHooks *HooksConfig) int {
	installed := 0
	for _, event := range ManagedEventNames() {
		groups := filterUnmanagedGroups(hooksMap, event)
		newGroups := newHooks.GetEventGroups(event)
		for _, g := range newGroups {
			groups = append(groups, hookGroupToMap(g))
		}
		if len(newGroups) > 0 {
			hooksMap[event] = groups
			installed++
		}
	}
	return installed
}

// filterUnmanagedGroups returns hook groups that don't contain
// sessionhooks commands.
func filterUnmanagedGroups(hooksMap map[string]any, event string) []any {
	result := make([]any, 0)
	groups, ok := hooksMap[event].([]any)
	if !ok {
		return result
	}
	for _, g := range groups {
		group, ok := g.(map[string]any)
		if !ok {
			continue
		}
		if !groupIsManaged(group) {
			result = append(result, group)
		}
	}
	return result
}

// groupIsManaged checks whether a raw hook group contains a sessionhooks
// command.
func groupIsManaged(group map[string]any) bool {
	hooks, ok := group["hooks"].([]any)
	if !ok {
		return false
	}
	for _, h := range hooks {
		hook, ok := h.(map[string]any)
		if !ok {
			continue
		}
		if cmd, ok := hook["command"].(string); ok && isManagedCommand(cmd) {
			return true
		}
	}
	return false
}

func isManagedCommand(cmd string) bool {
	return strings.Contains(cmd, "sessionhooks ")
}

// eventContainsManaged checks if any hook group in the given event
// contains a sessionhooks command.
func eventContainsManaged(hooksMap map[string]any, event string) bool {
	groups, ok := hooksMap[event].([]any)
	if !ok {
		return false
	}
	for _, g := range groups {
		if group, ok := g.(map[string]any); ok && groupIsManaged(group) {
			return true
		}
	}
	return false
}

// hookGroupToMap converts a HookGroup to a map for JSON serialization.
// The hooks slice is []any, the same shape json.Unmarshal produces, so
// merged and parsed groups look identical to the managed-group detectors.
func hookGroupToMap(g HookGroup) map[string]any {
	hooks := make([]any, len(g.Hooks))
	for i, h := range g.Hooks {
		entry := map[string]any{
			"type":    h.Type,
			"command": h.Command,
		}
		if h.Timeout > 0 {
			entry["timeout"] = h.Timeout
		}
		hooks[i] = entry
	}
	result := map[string]any{
		"hooks": hooks,
	}
	if g.Matcher != "" {
		result["matcher"] = g.Matcher
	}
	return result
}

// backupSettings copies the current settings aside before writing.
func backupSettings(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil // nothing to back up
	}
	backupPath := fmt.Sprintf("%s.backup.%s", path, time.Now().Format("20060102-150405"))
	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		return fmt.Errorf("create backup: %w", err)
	}
	fmt.Printf("Backed up existing settings to %s\n", backupPath)
	return nil
}

func writeSettings(path string, rawSettings map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create .claude directory: %w", err)
	}
	data, err := json.MarshalIndent(rawSettings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

func runInstall(cmd *cobra.Command, args []string) error {
	path, err := settingsPath()
	if err != nil {
		return err
	}

	rawSettings, err := loadSettings(path)
	if err != nil {
		return err
	}

	if !installForce {
		if existing, ok := rawSettings["hooks"].(map[string]any); ok && eventContainsManaged(existing, "SessionStart") {
			fmt.Println("sessionhooks already installed. Use --force to overwrite.")
			return nil
		}
	}

	hooksMap := cloneHooksMap(rawSettings)
	installed := mergeHookEvents(hooksMap, generateHooksConfig())
	rawSettings["hooks"] = hooksMap

	if installDryRun {
		fmt.Println("[dry-run] Would write to", path)
		data, err := json.MarshalIndent(rawSettings, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal settings: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if err := backupSettings(path); err != nil {
		return err
	}
	if err := writeSettings(path, rawSettings); err != nil {
		return err
	}

	fmt.Printf("Installed sessionhooks to %s (%d events)\n", path, installed)
	fmt.Println()
	fmt.Println("Hooks installed:")
	fmt.Println("  SessionStart: sessionhooks load")
	fmt.Println("  PreToolUse:   sessionhooks approve")
	fmt.Println("  PreCompact:   sessionhooks handoff")
	fmt.Println("  SessionEnd:   sessionhooks handoff")
	fmt.Println()
	fmt.Println("Set SESSIONHOOKS_API_KEY (or ANTHROPIC_API_KEY) for handoff generation.")
	return nil
}

func runInstallShow(cmd *cobra.Command, args []string) error {
	path, err := settingsPath()
	if err != nil {
		return err
	}

	rawSettings, err := loadSettings(path)
	if err != nil {
		return err
	}

	hooksMap, ok := rawSettings["hooks"].(map[string]any)
	if !ok {
		fmt.Println("No hooks configured in", path)
		fmt.Println("Run 'sessionhooks install' to set up hooks.")
		return nil
	}

	installed := 0
	fmt.Println("Hook Event Coverage:")
	fmt.Println()
	for _, event := range ManagedEventNames() {
		if eventContainsManaged(hooksMap, event) {
			fmt.Printf("  ✓ %-14s installed\n", event)
			installed++
		} else {
			fmt.Printf("  - %-14s not installed\n", event)
		}
	}
	fmt.Println()
	fmt.Printf("%d/%d events installed\n", installed, len(ManagedEventNames()))
	if installed < len(ManagedEventNames()) {
		fmt.Println("Run 'sessionhooks install' for full coverage.")
	}
	return nil
}

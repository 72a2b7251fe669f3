// Package project reads the optional per-project hook configuration at
// .claude/project.json. The file format belongs to the host convention,
// so it stays JSON regardless of the sessionhooks YAML config.
package project

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds the recognized project options.
type Config struct {
	// HandoffsPath overrides the artifact directory, relative to the
	// project working directory.
	HandoffsPath string `json:"handoffs_path"`

	// HandoffsToLoad is how many recent handoffs the session-start hook
	// emits. A pointer so an explicit 0 (load nothing) is distinguishable
	// from an absent key (default 1).
	HandoffsToLoad *int `json:"handoffs_to_load"`
}

// Load reads the project config under cwd. A missing or unparsable file
// returns nil: project config is optional and never blocks a hook.
func Load(cwd string) *Config {
	data, err := os.ReadFile(filepath.Join(cwd, ".claude", "project.json"))
	if err != nil {
		return nil
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil
	}
	return &cfg
}

package handoff

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dwahler/sessionhooks/internal/project"
)

// conventionalDirs are probed in priority order when no project override
// names a custom path. The first existing one wins.
var conventionalDirs = []string{
	filepath.Join("docs", "session_handoffs"),
	"session_handoffs",
	filepath.Join(".claude", "session_handoffs"),
}

// defaultWriteDir is created when nothing else exists on the write path.
var defaultWriteDir = filepath.Join("docs", "session_handoffs")

// ResolveWriteDir locates (creating if needed) the artifact directory for
// the generator. A project config override always wins and is created on
// demand.
func ResolveWriteDir(cwd string, cfg *project.Config) (string, error) {
	if cfg != nil && cfg.HandoffsPath != "" {
		dir := filepath.Join(cwd, cfg.HandoffsPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("create handoff directory: %w", err)
		}
		return dir, nil
	}

	for _, rel := range conventionalDirs {
		dir := filepath.Join(cwd, rel)
		if dirExists(dir) {
			return dir, nil
		}
	}

	dir := filepath.Join(cwd, defaultWriteDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create handoff directory: %w", err)
	}
	return dir, nil
}

// ResolveReadDir locates the artifact directory for the session-start
// loader. Nothing is ever created on the read path; ok is false when no
// directory exists.
func ResolveReadDir(cwd string, cfg *project.Config) (string, bool) {
	if cfg != nil && cfg.HandoffsPath != "" {
		dir := filepath.Join(cwd, cfg.HandoffsPath)
		if dirExists(dir) {
			return dir, true
		}
		// Fall through: a configured-but-missing path means no handoffs yet.
	}

	for _, rel := range conventionalDirs {
		dir := filepath.Join(cwd, rel)
		if dirExists(dir) {
			return dir, true
		}
	}

	return "", false
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

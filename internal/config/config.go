// Package config provides configuration for the sessionhooks binary.
// Configuration is loaded from (highest to lowest priority):
// 1. The --config flag (explicit file path)
// 2. Environment variables (SESSIONHOOKS_*)
// 3. Project config (.sessionhooks/config.yaml in cwd)
// 4. Home config (~/.sessionhooks/config.yaml)
// 5. Defaults
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all sessionhooks configuration.
type Config struct {
	// Verbose enables diagnostic output on stderr.
	Verbose bool `yaml:"verbose"`

	// Handoff settings
	Handoff HandoffConfig `yaml:"handoff"`

	// Summarizer settings
	Summarizer SummarizerConfig `yaml:"summarizer"`

	// Approve settings
	Approve ApproveConfig `yaml:"approve"`
}

// HandoffConfig holds handoff lifecycle tunables.
type HandoffConfig struct {
	// GrowthThreshold is the minimum relative transcript growth since the
	// last compaction handoff before a SessionEnd handoff is generated.
	GrowthThreshold float64 `yaml:"growth_threshold"`

	// MaxMessages is the conversation excerpt window (most recent messages kept).
	MaxMessages int `yaml:"max_messages"`

	// MaxMessageChars is the per-message truncation limit.
	MaxMessageChars int `yaml:"max_message_chars"`

	// LoadCharLimit caps handoff content echoed at session start.
	LoadCharLimit int `yaml:"load_char_limit"`

	// StateDir is where per-session dedup state files live.
	// Default: ~/.claude/hooks/.state
	StateDir string `yaml:"state_dir"`
}

// SummarizerConfig holds settings for the summarization service call.
type SummarizerConfig struct {
	// Model is the model identifier sent to the service.
	Model string `yaml:"model"`

	// MaxTokens bounds the generated document length.
	MaxTokens int `yaml:"max_tokens"`

	// BaseURL overrides the API endpoint (testing, proxies).
	BaseURL string `yaml:"base_url"`

	// TimeoutSeconds bounds the single synchronous round-trip.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// ApproveConfig holds settings for the auto-approve classifier.
type ApproveConfig struct {
	// PatternsFile replaces the embedded default pattern set when set.
	PatternsFile string `yaml:"patterns_file"`
}

// Default config values.
const (
	DefaultGrowthThreshold = 0.10
	DefaultMaxMessages     = 80
	DefaultMaxMessageChars = 3000
	DefaultLoadCharLimit   = 8000
	DefaultModel           = "claude-3-haiku-20240307"
	DefaultMaxTokens       = 4000
	DefaultTimeoutSeconds  = 120
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Handoff: HandoffConfig{
			GrowthThreshold: DefaultGrowthThreshold,
			MaxMessages:     DefaultMaxMessages,
			MaxMessageChars: DefaultMaxMessageChars,
			LoadCharLimit:   DefaultLoadCharLimit,
			StateDir:        DefaultStateDir(),
		},
		Summarizer: SummarizerConfig{
			Model:          DefaultModel,
			MaxTokens:      DefaultMaxTokens,
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
	}
}

// DefaultStateDir returns the default per-host state directory.
func DefaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".claude", "hooks", ".state")
	}
	return filepath.Join(home, ".claude", "hooks", ".state")
}

// Load loads configuration with proper precedence.
// Priority: explicit file > env > project > home > defaults.
func Load(explicitPath string) (*Config, error) {
	cfg := Default()

	homeConfig, _ := loadFromPath(homeConfigPath())
	if homeConfig != nil {
		cfg = merge(cfg, homeConfig)
	}

	projectConfig, _ := loadFromPath(projectConfigPath())
	if projectConfig != nil {
		cfg = merge(cfg, projectConfig)
	}

	cfg = applyEnv(cfg)

	if explicitPath != "" {
		explicit, err := loadFromPath(explicitPath)
		if err != nil {
			return nil, err
		}
		cfg = merge(cfg, explicit)
	}

	return cfg, nil
}

// homeConfigPath returns the home config path.
func homeConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".sessionhooks", "config.yaml")
}

// projectConfigPath returns the project config path.
func projectConfigPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, ".sessionhooks", "config.yaml")
}

// loadFromPath loads config from a YAML file.
func loadFromPath(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnv applies environment variable overrides.
func applyEnv(cfg *Config) *Config {
	if v := os.Getenv("SESSIONHOOKS_STATE_DIR"); v != "" {
		cfg.Handoff.StateDir = v
	}
	if v := os.Getenv("SESSIONHOOKS_MODEL"); v != "" {
		cfg.Summarizer.Model = v
	}
	if v := os.Getenv("SESSIONHOOKS_BASE_URL"); v != "" {
		cfg.Summarizer.BaseURL = v
	}
	if v := os.Getenv("SESSIONHOOKS_PATTERNS_FILE"); v != "" {
		cfg.Approve.PatternsFile = v
	}
	if v := os.Getenv("SESSIONHOOKS_GROWTH_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Handoff.GrowthThreshold = f
		}
	}
	if v := os.Getenv("SESSIONHOOKS_VERBOSE"); v == "true" || v == "1" {
		cfg.Verbose = true
	}
	return cfg
}

// mergeStr overwrites dst with src when src is non-empty.
func mergeStr(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// mergeInt overwrites dst with src when src is non-zero.
func mergeInt(dst *int, src int) {
	if src != 0 {
		*dst = src
	}
}

// mergeFloat overwrites dst with src when src is non-zero.
func mergeFloat(dst *float64, src float64) {
	if src != 0 {
		*dst = src
	}
}

// merge merges src into dst, with src values taking precedence.
func merge(dst, src *Config) *Config {
	if src.Verbose {
		dst.Verbose = true
	}
	mergeHandoff(&dst.Handoff, &src.Handoff)
	mergeSummarizer(&dst.Summarizer, &src.Summarizer)
	mergeStr(&dst.Approve.PatternsFile, src.Approve.PatternsFile)
	return dst
}

// mergeHandoff merges handoff-specific config fields.
func mergeHandoff(dst, src *HandoffConfig) {
	mergeFloat(&dst.GrowthThreshold, src.GrowthThreshold)
	mergeInt(&dst.MaxMessages, src.MaxMessages)
	mergeInt(&dst.MaxMessageChars, src.MaxMessageChars)
	mergeInt(&dst.LoadCharLimit, src.LoadCharLimit)
	mergeStr(&dst.StateDir, src.StateDir)
}

// mergeSummarizer merges summarizer-specific config fields.
func mergeSummarizer(dst, src *SummarizerConfig) {
	mergeStr(&dst.Model, src.Model)
	mergeInt(&dst.MaxTokens, src.MaxTokens)
	mergeStr(&dst.BaseURL, src.BaseURL)
	mergeInt(&dst.TimeoutSeconds, src.TimeoutSeconds)
}

// Package hookevent models the payloads exchanged with the host process.
// Each hook invocation receives one JSON event on stdin and may emit one
// JSON decision on stdout.
package hookevent

import (
	"encoding/json"
	"fmt"
	"io"
)

// Trigger values for compaction-class events. The host sends "auto" for
// automatic compaction and the event name otherwise.
const (
	TriggerAuto       = "auto"
	TriggerPreCompact = "PreCompact"
	TriggerSessionEnd = "SessionEnd"
)

// SourceCompact marks a SessionStart that resumes after context compaction.
const SourceCompact = "compact"

// Event is one inbound hook invocation payload. Fields are populated
// depending on the event kind; absent fields decode to zero values.
type Event struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	Cwd            string `json:"cwd"`
	HookEventName  string `json:"hook_event_name"`
	Trigger        string `json:"trigger"`

	// Source distinguishes a post-compaction resume from a cold start
	// (SessionStart only).
	Source string `json:"source"`

	// ToolName and ToolInput are present on PreToolUse events.
	ToolName  string         `json:"tool_name"`
	ToolInput map[string]any `json:"tool_input"`
}

// Decode reads a single event payload from r.
func Decode(r io.Reader) (*Event, error) {
	var ev Event
	if err := json.NewDecoder(r).Decode(&ev); err != nil {
		return nil, fmt.Errorf("parse hook input: %w", err)
	}
	if ev.SessionID == "" {
		ev.SessionID = "unknown"
	}
	return &ev, nil
}

// EffectiveTrigger returns the trigger string, falling back to the hook
// event name when the host omits an explicit trigger.
func (e *Event) EffectiveTrigger() string {
	if e.Trigger != "" {
		return e.Trigger
	}
	if e.HookEventName != "" {
		return e.HookEventName
	}
	return "unknown"
}

// IsCompactTrigger reports whether the trigger is compaction-class.
// Compaction-triggered handoffs are the primary signal and never skip.
func IsCompactTrigger(trigger string) bool {
	return trigger == TriggerAuto || trigger == TriggerPreCompact
}

// Command extracts the shell command from a PreToolUse tool input.
func (e *Event) Command() string {
	if e.ToolInput == nil {
		return ""
	}
	cmd, _ := e.ToolInput["command"].(string)
	return cmd
}

// Decision is the outbound auto-approve payload. Emitting nothing at all
// defers to the host's normal confirmation flow.
type Decision struct {
	Allow bool `json:"allow"`
}

// WriteApproval emits an approval decision to w.
func WriteApproval(w io.Writer) error {
	data, err := json.Marshal(Decision{Allow: true})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

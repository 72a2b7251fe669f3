// Package transcript builds bounded conversation excerpts from the
// append-only JSONL transcript log written by the host.
package transcript

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// Default excerpt bounds. Both are tunable via configuration.
const (
	DefaultMaxMessages     = 80
	DefaultMaxMessageChars = 3000
)

// Separator joins formatted messages in a rendered excerpt.
const Separator = "\n\n---\n\n"

// Record type discriminators retained by the reader. Everything else in
// the log (tool results, snapshots, progress records) is ignored.
const (
	typeHuman     = "human"
	typeAssistant = "assistant"
)

// Reader extracts conversation excerpts with configurable bounds.
type Reader struct {
	// MaxMessages is the tail window of retained messages.
	MaxMessages int

	// MaxMessageChars truncates each message before accumulation.
	MaxMessageChars int
}

// NewReader creates a reader with default bounds.
func NewReader() *Reader {
	return &Reader{
		MaxMessages:     DefaultMaxMessages,
		MaxMessageChars: DefaultMaxMessageChars,
	}
}

// Message is one retained conversation turn.
type Message struct {
	// Role is the speaker label ("USER" or "ASSISTANT").
	Role string

	// Text is the extracted, truncated message text.
	Text string
}

// Excerpt is an ordered window of the most recent conversation turns.
type Excerpt struct {
	Messages []Message

	// TotalLines and MalformedLines describe the scan, for diagnostics.
	TotalLines     int
	MalformedLines int
}

// Empty reports whether the excerpt has nothing to summarize.
func (e *Excerpt) Empty() bool {
	return len(e.Messages) == 0
}

// Render formats the excerpt for the summarizer prompt.
func (e *Excerpt) Render() string {
	parts := make([]string, len(e.Messages))
	for i, m := range e.Messages {
		parts[i] = m.Role + ": " + m.Text
	}
	return strings.Join(parts, Separator)
}

// rawRecord is the transcript line shape. Content is deferred because it
// is either a plain string or a list of typed fragments.
type rawRecord struct {
	Type    string `json:"type"`
	Message *struct {
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

// fragment is one element of a structured content list.
type fragment struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Read parses the transcript at path into an excerpt. A missing file
// yields an empty excerpt and no error: the caller treats it as nothing
// to summarize.
func (r *Reader) Read(path string) (*Excerpt, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return &Excerpt{}, nil
	}
	if err != nil {
		return &Excerpt{}, err
	}
	defer func() {
		_ = f.Close() //nolint:errcheck // read-only scan
	}()

	return r.read(f)
}

// read scans JSONL from rd, keeping the tail window of formatted turns.
func (r *Reader) read(rd io.Reader) (*Excerpt, error) {
	excerpt := &Excerpt{}

	scanner := bufio.NewScanner(rd)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024) // transcripts carry long assistant turns

	var kept []Message
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		excerpt.TotalLines++

		msg, ok := r.parseLine(line)
		if !ok {
			excerpt.MalformedLines++
			continue
		}
		if msg != nil {
			kept = append(kept, *msg)
		}
	}
	if err := scanner.Err(); err != nil {
		return excerpt, err
	}

	if r.MaxMessages > 0 && len(kept) > r.MaxMessages {
		kept = kept[len(kept)-r.MaxMessages:]
	}
	excerpt.Messages = kept
	return excerpt, nil
}

// parseLine parses one record. The bool is false for malformed lines;
// a nil message with true means the record type is ignored.
func (r *Reader) parseLine(line []byte) (*Message, bool) {
	var raw rawRecord
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, false
	}

	var role string
	switch raw.Type {
	case typeHuman:
		role = "USER"
	case typeAssistant:
		role = "ASSISTANT"
	default:
		return nil, true
	}

	if raw.Message == nil {
		return nil, true
	}
	text := extractText(raw.Message.Content)
	if strings.TrimSpace(text) == "" {
		return nil, true
	}

	return &Message{Role: role, Text: r.truncate(text)}, true
}

// extractText resolves the string-or-list content union: a plain string
// is used as-is; a fragment list keeps text fragments joined by newlines.
func extractText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var frags []fragment
	if err := json.Unmarshal(raw, &frags); err != nil {
		return ""
	}
	parts := make([]string, 0, len(frags))
	for _, f := range frags {
		if f.Type == "text" {
			parts = append(parts, f.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// truncate limits a message to MaxMessageChars. Truncation is per-message,
// before window accumulation. The cut backs off to a rune boundary so the
// excerpt stays valid UTF-8.
func (r *Reader) truncate(s string) string {
	if r.MaxMessageChars <= 0 || len(s) <= r.MaxMessageChars {
		return s
	}
	cut := r.MaxMessageChars
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Size returns the transcript's byte size, or 0 when unreadable. Used by
// the dedup growth check, which tolerates a missing transcript.
func Size(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

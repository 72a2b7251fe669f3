// Package summarize turns a conversation excerpt into a handoff document
// via an external summarization service. The service is modeled as a
// small interface so the lifecycle can run against a mock in tests.
package summarize

import (
	"context"
	"errors"
	"os"
	"strings"
)

// Request carries the excerpt and its context into the summarizer prompt.
type Request struct {
	ProjectName  string
	Trigger      string
	Cwd          string
	Conversation string
	Date         string
	Platform     string
}

// Summarizer is a single synchronous round-trip to the summarization
// service. No retry; the caller converts failures into a fallback
// document.
type Summarizer interface {
	Summarize(ctx context.Context, req Request) (string, error)
}

// API key environment variables, checked in order.
const (
	envAPIKey         = "SESSIONHOOKS_API_KEY"
	envAPIKeyFallback = "ANTHROPIC_API_KEY"
)

// ErrNoAPIKey indicates neither API key environment variable is set.
var ErrNoAPIKey = errors.New("SESSIONHOOKS_API_KEY or ANTHROPIC_API_KEY not set")

// ResolveAPIKey returns the configured API key.
func ResolveAPIKey() (string, error) {
	if key := strings.TrimSpace(os.Getenv(envAPIKey)); key != "" {
		return key, nil
	}
	if key := strings.TrimSpace(os.Getenv(envAPIKeyFallback)); key != "" {
		return key, nil
	}
	return "", ErrNoAPIKey
}

// promptTemplate is the handoff generation prompt. The leading
// SHORT_TITLE line in the response is extracted into the artifact
// filename and stripped from the persisted body.
const promptTemplate = `You are generating a session handoff document for an AI coding assistant.
This document helps the next session understand what was accomplished and continue seamlessly.

**Project**: {project_name}
**Trigger**: {trigger}
**Working Directory**: {cwd}

Based on this conversation transcript, create a comprehensive session handoff document.

CONVERSATION TRANSCRIPT:
{conversation}

---

Generate a markdown document. Be thorough and specific.

CRITICAL INSTRUCTIONS:
- First line must be a SHORT_TITLE (2-4 words, lowercase, hyphenated) for the filename
- Extract SPECIFIC file names, paths, and technical details from the conversation
- Capture DECISIONS and their RATIONALE, not just what was done
- Include ticket or issue references if mentioned
- Use markdown tables for structured data

---

SHORT_TITLE: [2-4 word hyphenated title like "api-refactor-complete"]

# Session Handoff - [Descriptive Title]

**Date**: {date}
**Focus**: [One line describing the main focus of this session]
**Status**: [What state is the work in?]

## Quick Context

**What's Working:**
- [Specific things that are functional now]

**What Needs Attention:**
- [Issues, blockers, or things to watch]

## Completed This Session

- [What was done, with file names]

## Key Decisions & Rationale

- **[Decision]**: [What was decided and why]

## Files Changed This Session

- [path and purpose]

## Next Steps

1. [ ] [Specific actionable task]

## Open Questions

- [Unresolved decisions, with options if discussed]

## Environment

- **Platform**: {platform}
- **Working Directory**: {cwd}
`

// BuildPrompt fills the template placeholders from the request.
func BuildPrompt(req Request) string {
	return strings.NewReplacer(
		"{project_name}", req.ProjectName,
		"{trigger}", req.Trigger,
		"{cwd}", req.Cwd,
		"{conversation}", req.Conversation,
		"{date}", req.Date,
		"{platform}", req.Platform,
	).Replace(promptTemplate)
}

// Mock is a scripted Summarizer for tests.
type Mock struct {
	Response string
	Err      error

	// Calls counts invocations; Last records the most recent request.
	Calls int
	Last  Request
}

// Summarize returns the scripted response or error.
func (m *Mock) Summarize(_ context.Context, req Request) (string, error) {
	m.Calls++
	m.Last = req
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

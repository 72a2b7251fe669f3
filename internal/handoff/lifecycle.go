// Package handoff implements the session handoff lifecycle: deciding
// whether a trigger event warrants a new handoff, generating the document
// through the summarizer, persisting it, and maintaining the per-session
// dedup state. It also selects artifacts for reload at session start.
package handoff

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/dwahler/sessionhooks/internal/hookevent"
	"github.com/dwahler/sessionhooks/internal/project"
	"github.com/dwahler/sessionhooks/internal/state"
	"github.com/dwahler/sessionhooks/internal/summarize"
	"github.com/dwahler/sessionhooks/internal/transcript"
)

// Lifecycle orchestrates one generator invocation. All collaborators are
// injected; the zero value is not usable.
type Lifecycle struct {
	// States is the dedup state store.
	States state.Store

	// Reader builds conversation excerpts.
	Reader *transcript.Reader

	// NewSummarizer constructs the summarizer lazily, after the skip
	// decision, so a skipped invocation needs no credentials. A factory
	// error is fatal for the invocation.
	NewSummarizer func() (summarize.Summarizer, error)

	// GrowthThreshold is the minimum relative transcript growth since
	// the last compaction handoff before SessionEnd regenerates.
	GrowthThreshold float64

	// Clock supplies timestamps; defaults to time.Now.
	Clock func() time.Time

	// Platform names the host platform in the prompt; defaults to
	// runtime.GOOS.
	Platform string

	// Log receives diagnostics; defaults to io.Discard.
	Log io.Writer
}

// Result describes what one lifecycle run did.
type Result struct {
	// Skipped is true when dedup suppressed a near-duplicate handoff.
	Skipped bool

	// SkipReason explains a skip for diagnostics.
	SkipReason string

	// Empty is true when the transcript produced nothing to summarize.
	Empty bool

	// Fallback is true when the artifact is a synthesized error document.
	Fallback bool

	// ArtifactPath is where the handoff was written, when one was.
	ArtifactPath string
}

func (l *Lifecycle) now() time.Time {
	if l.Clock != nil {
		return l.Clock()
	}
	return time.Now()
}

func (l *Lifecycle) platform() string {
	if l.Platform != "" {
		return l.Platform
	}
	return runtime.GOOS
}

func (l *Lifecycle) log() io.Writer {
	if l.Log != nil {
		return l.Log
	}
	return io.Discard
}

// Run executes decide-skip, generate, persist, and update-state for one
// trigger event. Only an artifact write failure or a summarizer
// construction failure is returned as an error; everything else degrades
// per the error taxonomy.
func (l *Lifecycle) Run(ctx context.Context, ev *hookevent.Event) (*Result, error) {
	trigger := ev.EffectiveTrigger()
	size := transcript.Size(ev.TranscriptPath)

	if skip, reason := l.shouldSkip(ev.SessionID, trigger, size); skip {
		// State has served its purpose; best-effort delete.
		_ = l.States.Delete(ev.SessionID)
		return &Result{Skipped: true, SkipReason: reason}, nil
	}

	excerpt, err := l.Reader.Read(ev.TranscriptPath)
	if err != nil {
		fmt.Fprintf(l.log(), "Warning: error reading transcript: %v\n", err)
	}
	if excerpt.Empty() {
		return &Result{Empty: true}, nil
	}

	summarizer, err := l.NewSummarizer()
	if err != nil {
		return nil, err
	}

	req := summarize.Request{
		ProjectName:  filepath.Base(ev.Cwd),
		Trigger:      trigger,
		Cwd:          ev.Cwd,
		Conversation: excerpt.Render(),
		Date:         l.now().Format("2006-01-02"),
		Platform:     l.platform(),
	}

	result := &Result{}
	body, title := l.generate(ctx, summarizer, req, result)

	path, err := l.persist(ev.Cwd, body, title)
	if err != nil {
		return nil, err
	}
	result.ArtifactPath = path

	l.updateState(ev.SessionID, trigger, size)
	return result, nil
}

// shouldSkip implements the dedup decision. Compaction-class triggers
// always proceed; SessionEnd skips only when a prior compaction handoff
// exists and the transcript grew less than the threshold since.
func (l *Lifecycle) shouldSkip(sessionID, trigger string, size int64) (bool, string) {
	if hookevent.IsCompactTrigger(trigger) {
		return false, ""
	}

	rec, err := l.States.Load(sessionID)
	if err != nil {
		// Corrupt or unreadable state reads as absent: regenerate.
		return false, ""
	}
	if rec == nil {
		return false, ""
	}

	if rec.TranscriptSize > 0 {
		growth := float64(size-rec.TranscriptSize) / float64(rec.TranscriptSize)
		if growth < l.GrowthThreshold {
			return true, fmt.Sprintf("transcript grew %.1f%% since last compaction handoff", growth*100)
		}
	}
	return false, ""
}

// generate invokes the summarizer and extracts the title. A summarizer
// failure is converted into a minimal fallback document so the session
// still leaves a trace on disk.
func (l *Lifecycle) generate(ctx context.Context, s summarize.Summarizer, req summarize.Request, result *Result) (body, title string) {
	output, err := s.Summarize(ctx, req)
	if err != nil {
		fmt.Fprintf(l.log(), "Error calling summarizer: %v\n", err)
		result.Fallback = true
		return fallbackDocument(err, req), ErrorTitle
	}

	title = ExtractShortTitle(output)
	body = StripTitleLine(output)
	return body, title
}

// fallbackDocument records a summarizer failure as a readable artifact.
func fallbackDocument(err error, req summarize.Request) string {
	return fmt.Sprintf(
		"# Session Handoff (Auto-generated - Summarizer Error)\n\nError: %v\n\nTrigger: %s\nProject: %s\n",
		err, req.Trigger, req.ProjectName,
	)
}

// persist writes the artifact. Write failure is fatal for the run: the
// artifact is the sole durable output.
func (l *Lifecycle) persist(cwd, body, title string) (string, error) {
	dir, err := ResolveWriteDir(cwd, project.Load(cwd))
	if err != nil {
		return "", err
	}

	filename := l.now().Format("20060102-1504") + "-" + title + ArtifactExt
	path := filepath.Join(dir, filename)
	if err := writeArtifact(path, []byte(body)); err != nil {
		return "", fmt.Errorf("save handoff: %w", err)
	}
	return path, nil
}

// updateState saves dedup state after a compaction handoff so a later
// SessionEnd can compute growth, and clears it when the session is over.
// Both operations are best-effort: losing state only weakens dedup.
func (l *Lifecycle) updateState(sessionID, trigger string, size int64) {
	if hookevent.IsCompactTrigger(trigger) {
		_ = l.States.Save(sessionID, size)
	} else {
		_ = l.States.Delete(sessionID)
	}
}

// writeArtifact writes to a temp file and renames atomically, so a
// crashed run never leaves a truncated handoff behind.
func writeArtifact(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath) //nolint:errcheck // cleanup in error path
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close() //nolint:errcheck // cleanup in error path
		return fmt.Errorf("write content: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close() //nolint:errcheck // cleanup in error path
		return fmt.Errorf("sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename to final: %w", err)
	}

	success = true
	return nil
}

package handoff

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dwahler/sessionhooks/internal/hookevent"
	"github.com/dwahler/sessionhooks/internal/state"
	"github.com/dwahler/sessionhooks/internal/summarize"
	"github.com/dwahler/sessionhooks/internal/transcript"
)

var testClock = func() time.Time {
	return time.Date(2026, 8, 29, 14, 5, 0, 0, time.UTC)
}

const testResponse = "SHORT_TITLE: api-refactor\n\n# Session Handoff - API Refactor\n\nDetails."

func newTestLifecycle(mock *summarize.Mock) (*Lifecycle, *state.MemStore) {
	states := state.NewMemStore()
	lc := &Lifecycle{
		States: states,
		Reader: transcript.NewReader(),
		NewSummarizer: func() (summarize.Summarizer, error) {
			return mock, nil
		},
		GrowthThreshold: 0.10,
		Clock:           testClock,
		Platform:        "linux",
		Log:             io.Discard,
	}
	return lc, states
}

func writeConversation(t *testing.T, dir string, turns int) string {
	t.Helper()
	var b strings.Builder
	for i := 0; i < turns; i++ {
		fmt.Fprintf(&b, `{"type":"human","message":{"content":"turn %d"}}`+"\n", i)
	}
	path := filepath.Join(dir, "transcript.jsonl")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newEvent(sessionID, trigger, transcriptPath, cwd string) *hookevent.Event {
	return &hookevent.Event{
		SessionID:      sessionID,
		TranscriptPath: transcriptPath,
		Cwd:            cwd,
		Trigger:        trigger,
	}
}

func TestRunPreCompactGeneratesAndSavesState(t *testing.T) {
	cwd := t.TempDir()
	path := writeConversation(t, t.TempDir(), 5)
	mock := &summarize.Mock{Response: testResponse}
	lc, states := newTestLifecycle(mock)

	res, err := lc.Run(context.Background(), newEvent("s1", hookevent.TriggerPreCompact, path, cwd))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Skipped || res.Empty || res.Fallback {
		t.Fatalf("Run() result = %+v, want plain generation", res)
	}

	wantName := "20260829-1405-api-refactor.md"
	if filepath.Base(res.ArtifactPath) != wantName {
		t.Errorf("artifact name = %q, want %q", filepath.Base(res.ArtifactPath), wantName)
	}

	body, err := os.ReadFile(res.ArtifactPath)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if strings.Contains(string(body), "SHORT_TITLE") {
		t.Error("artifact body still contains the title marker")
	}
	if !strings.HasPrefix(string(body), "# Session Handoff") {
		t.Errorf("artifact body = %q, want stripped document", string(body))
	}

	rec, err := states.Load("s1")
	if err != nil || rec == nil {
		t.Fatalf("state after compaction = (%+v, %v), want saved record", rec, err)
	}
	if rec.TranscriptSize != transcript.Size(path) {
		t.Errorf("saved TranscriptSize = %d, want %d", rec.TranscriptSize, transcript.Size(path))
	}

	if mock.Calls != 1 {
		t.Errorf("summarizer calls = %d, want 1", mock.Calls)
	}
	if mock.Last.Trigger != hookevent.TriggerPreCompact {
		t.Errorf("request trigger = %q, want %q", mock.Last.Trigger, hookevent.TriggerPreCompact)
	}
	if mock.Last.ProjectName != filepath.Base(cwd) {
		t.Errorf("request project = %q, want %q", mock.Last.ProjectName, filepath.Base(cwd))
	}
	if !strings.Contains(mock.Last.Conversation, "USER: turn 0") {
		t.Errorf("request conversation missing rendered turns: %q", mock.Last.Conversation)
	}
}

func TestRunAutoTriggerNeverSkips(t *testing.T) {
	cwd := t.TempDir()
	path := writeConversation(t, t.TempDir(), 3)
	mock := &summarize.Mock{Response: testResponse}
	lc, states := newTestLifecycle(mock)

	// State says the transcript has not grown at all.
	if err := states.Save("s2", transcript.Size(path)); err != nil {
		t.Fatal(err)
	}

	res, err := lc.Run(context.Background(), newEvent("s2", hookevent.TriggerAuto, path, cwd))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Skipped {
		t.Error("compaction trigger skipped, want unconditional generation")
	}
}

func TestRunSessionEndSkipsOnLowGrowth(t *testing.T) {
	cwd := t.TempDir()
	path := writeConversation(t, t.TempDir(), 10)
	mock := &summarize.Mock{Response: testResponse}
	lc, states := newTestLifecycle(mock)

	// Prior compaction handoff at 96% of the current size: ~4% growth.
	size := transcript.Size(path)
	if err := states.Save("s3", size*96/100); err != nil {
		t.Fatal(err)
	}

	res, err := lc.Run(context.Background(), newEvent("s3", hookevent.TriggerSessionEnd, path, cwd))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Skipped {
		t.Fatal("Run() not skipped, want dedup skip")
	}
	if res.SkipReason == "" {
		t.Error("SkipReason empty, want explanation")
	}
	if mock.Calls != 0 {
		t.Errorf("summarizer calls = %d, want 0 on skip", mock.Calls)
	}
	if rec, _ := states.Load("s3"); rec != nil {
		t.Error("state not cleared after skip")
	}
}

func TestRunSessionEndGeneratesOnHighGrowth(t *testing.T) {
	cwd := t.TempDir()
	path := writeConversation(t, t.TempDir(), 10)
	mock := &summarize.Mock{Response: testResponse}
	lc, states := newTestLifecycle(mock)

	// Prior handoff at half the current size: 100% growth.
	if err := states.Save("s4", transcript.Size(path)/2); err != nil {
		t.Fatal(err)
	}

	res, err := lc.Run(context.Background(), newEvent("s4", hookevent.TriggerSessionEnd, path, cwd))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Skipped {
		t.Fatal("Run() skipped, want generation on sufficient growth")
	}
	if res.ArtifactPath == "" {
		t.Error("ArtifactPath empty, want written artifact")
	}
	// SessionEnd is terminal: dedup state is cleared, not refreshed.
	if rec, _ := states.Load("s4"); rec != nil {
		t.Errorf("state after SessionEnd = %+v, want nil", rec)
	}
}

func TestRunSessionEndWithoutStateGenerates(t *testing.T) {
	cwd := t.TempDir()
	path := writeConversation(t, t.TempDir(), 4)
	mock := &summarize.Mock{Response: testResponse}
	lc, _ := newTestLifecycle(mock)

	res, err := lc.Run(context.Background(), newEvent("s5", hookevent.TriggerSessionEnd, path, cwd))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Skipped {
		t.Error("Run() skipped without prior state, want generation")
	}
}

func TestRunCorruptStateReadsAsAbsent(t *testing.T) {
	cwd := t.TempDir()
	path := writeConversation(t, t.TempDir(), 4)
	mock := &summarize.Mock{Response: testResponse}
	lc, states := newTestLifecycle(mock)
	states.LoadErr = errors.New("corrupt state file")

	res, err := lc.Run(context.Background(), newEvent("s6", hookevent.TriggerSessionEnd, path, cwd))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Skipped {
		t.Error("unreadable state caused a skip, want regeneration")
	}
}

func TestRunEmptyTranscript(t *testing.T) {
	cwd := t.TempDir()
	mock := &summarize.Mock{Response: testResponse}
	lc, _ := newTestLifecycle(mock)
	lc.NewSummarizer = func() (summarize.Summarizer, error) {
		t.Error("summarizer constructed for an empty transcript")
		return mock, nil
	}

	missing := filepath.Join(t.TempDir(), "absent.jsonl")
	res, err := lc.Run(context.Background(), newEvent("s7", hookevent.TriggerSessionEnd, missing, cwd))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Empty {
		t.Error("Run() Empty = false, want true for missing transcript")
	}
	if res.ArtifactPath != "" {
		t.Errorf("ArtifactPath = %q, want empty", res.ArtifactPath)
	}
}

func TestRunSummarizerErrorWritesFallback(t *testing.T) {
	cwd := t.TempDir()
	path := writeConversation(t, t.TempDir(), 3)
	mock := &summarize.Mock{Err: errors.New("service unavailable")}
	lc, _ := newTestLifecycle(mock)

	res, err := lc.Run(context.Background(), newEvent("s8", hookevent.TriggerPreCompact, path, cwd))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Fallback {
		t.Fatal("Fallback = false, want true on summarizer error")
	}

	wantName := "20260829-1405-" + ErrorTitle + ".md"
	if filepath.Base(res.ArtifactPath) != wantName {
		t.Errorf("artifact name = %q, want %q", filepath.Base(res.ArtifactPath), wantName)
	}

	body, err := os.ReadFile(res.ArtifactPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "service unavailable") {
		t.Errorf("fallback body missing the error: %q", string(body))
	}
}

func TestRunSummarizerFactoryErrorIsFatal(t *testing.T) {
	cwd := t.TempDir()
	path := writeConversation(t, t.TempDir(), 3)
	lc, _ := newTestLifecycle(&summarize.Mock{})
	wantErr := errors.New("no credentials")
	lc.NewSummarizer = func() (summarize.Summarizer, error) {
		return nil, wantErr
	}

	_, err := lc.Run(context.Background(), newEvent("s9", hookevent.TriggerPreCompact, path, cwd))
	if !errors.Is(err, wantErr) {
		t.Errorf("Run() error = %v, want %v", err, wantErr)
	}
}

func TestRunUntitledOutputUsesDefaultTitle(t *testing.T) {
	cwd := t.TempDir()
	path := writeConversation(t, t.TempDir(), 3)
	mock := &summarize.Mock{Response: "# A Handoff Without Any Title Marker\n\nbody"}
	lc, _ := newTestLifecycle(mock)

	res, err := lc.Run(context.Background(), newEvent("s10", hookevent.TriggerPreCompact, path, cwd))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	wantName := "20260829-1405-" + DefaultTitle + ".md"
	if filepath.Base(res.ArtifactPath) != wantName {
		t.Errorf("artifact name = %q, want %q", filepath.Base(res.ArtifactPath), wantName)
	}
}

// Filenames must sort lexicographically in chronological order; the
// loader relies on this instead of file mtimes.
func TestArtifactNamesSortChronologically(t *testing.T) {
	cwd := t.TempDir()
	path := writeConversation(t, t.TempDir(), 3)
	mock := &summarize.Mock{Response: testResponse}
	lc, _ := newTestLifecycle(mock)

	times := []time.Time{
		time.Date(2026, 8, 28, 23, 59, 0, 0, time.UTC),
		time.Date(2026, 8, 29, 0, 1, 0, 0, time.UTC),
		time.Date(2026, 12, 1, 9, 0, 0, 0, time.UTC),
	}
	var names []string
	for i, ts := range times {
		ts := ts
		lc.Clock = func() time.Time { return ts }
		res, err := lc.Run(context.Background(), newEvent(fmt.Sprintf("s-%d", i), hookevent.TriggerPreCompact, path, cwd))
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		names = append(names, filepath.Base(res.ArtifactPath))
	}

	for i := 1; i < len(names); i++ {
		if !(names[i-1] < names[i]) {
			t.Errorf("names not in lexicographic-chronological order: %q >= %q", names[i-1], names[i])
		}
	}
}

func TestPersistWritesIntoProjectOverride(t *testing.T) {
	cwd := t.TempDir()
	if err := os.MkdirAll(filepath.Join(cwd, ".claude"), 0755); err != nil {
		t.Fatal(err)
	}
	projJSON := `{"handoffs_path": "custom/handoffs"}`
	if err := os.WriteFile(filepath.Join(cwd, ".claude", "project.json"), []byte(projJSON), 0644); err != nil {
		t.Fatal(err)
	}

	path := writeConversation(t, t.TempDir(), 3)
	mock := &summarize.Mock{Response: testResponse}
	lc, _ := newTestLifecycle(mock)

	res, err := lc.Run(context.Background(), newEvent("s11", hookevent.TriggerPreCompact, path, cwd))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	wantDir := filepath.Join(cwd, "custom", "handoffs")
	if filepath.Dir(res.ArtifactPath) != wantDir {
		t.Errorf("artifact dir = %q, want %q", filepath.Dir(res.ArtifactPath), wantDir)
	}
}

// End-to-end dedup: a compaction handoff followed by a SessionEnd with
// no further transcript growth produces exactly one artifact.
func TestCompactionThenQuietSessionEnd(t *testing.T) {
	cwd := t.TempDir()
	path := writeConversation(t, t.TempDir(), 6)
	mock := &summarize.Mock{Response: testResponse}
	lc, states := newTestLifecycle(mock)

	res1, err := lc.Run(context.Background(), newEvent("e2e", hookevent.TriggerPreCompact, path, cwd))
	if err != nil {
		t.Fatalf("compaction Run() error = %v", err)
	}
	if res1.ArtifactPath == "" {
		t.Fatal("compaction wrote no artifact")
	}

	res2, err := lc.Run(context.Background(), newEvent("e2e", hookevent.TriggerSessionEnd, path, cwd))
	if err != nil {
		t.Fatalf("session-end Run() error = %v", err)
	}
	if !res2.Skipped {
		t.Error("session end after quiet compaction not skipped")
	}
	if rec, _ := states.Load("e2e"); rec != nil {
		t.Error("dedup state survives the session end")
	}
	if mock.Calls != 1 {
		t.Errorf("summarizer calls = %d, want 1", mock.Calls)
	}
}

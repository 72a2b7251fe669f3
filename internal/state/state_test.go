package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	key := Key("session-abc-123")
	if len(key) != 16 {
		t.Errorf("len(Key()) = %d, want 16", len(key))
	}
	if key != Key("session-abc-123") {
		t.Error("Key() is not stable for the same session ID")
	}
	if key == Key("session-abc-124") {
		t.Error("Key() collides for distinct session IDs")
	}
	for _, c := range key {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			t.Errorf("Key() contains non-hex character %q", c)
		}
	}
}

func TestFileStoreRoundtrip(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)
	s := &FileStore{Dir: filepath.Join(t.TempDir(), "state"), Clock: func() time.Time { return now }}

	if err := s.Save("sess-1", 12345); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	rec, err := s.Load("sess-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if rec == nil {
		t.Fatal("Load() = nil, want record")
	}
	if rec.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want %q", rec.SessionID, "sess-1")
	}
	if rec.TranscriptSize != 12345 {
		t.Errorf("TranscriptSize = %d, want 12345", rec.TranscriptSize)
	}
	if !rec.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v, want %v", rec.Timestamp, now)
	}
}

func TestFileStoreLoadAbsent(t *testing.T) {
	s := NewFileStore(t.TempDir())
	rec, err := s.Load("never-saved")
	if err != nil {
		t.Errorf("Load(absent) error = %v, want nil", err)
	}
	if rec != nil {
		t.Errorf("Load(absent) = %+v, want nil", rec)
	}
}

func TestFileStoreLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)
	path := filepath.Join(dir, "handoff_"+Key("sess-x")+".json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Load("sess-x"); err == nil {
		t.Error("Load(corrupt) error = nil, want error")
	}
}

func TestFileStoreSaveReplaces(t *testing.T) {
	s := NewFileStore(t.TempDir())
	if err := s.Save("sess-2", 100); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("sess-2", 200); err != nil {
		t.Fatal(err)
	}

	rec, err := s.Load("sess-2")
	if err != nil {
		t.Fatal(err)
	}
	if rec.TranscriptSize != 200 {
		t.Errorf("TranscriptSize after re-save = %d, want 200", rec.TranscriptSize)
	}
}

func TestFileStoreDelete(t *testing.T) {
	s := NewFileStore(t.TempDir())
	if err := s.Save("sess-3", 1); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("sess-3"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	rec, err := s.Load("sess-3")
	if err != nil || rec != nil {
		t.Errorf("Load after delete = (%+v, %v), want (nil, nil)", rec, err)
	}

	// Deleting an absent record is not an error.
	if err := s.Delete("sess-3"); err != nil {
		t.Errorf("Delete(absent) error = %v, want nil", err)
	}
}

func TestFileStoreFilenameUsesHashedKey(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)
	id := "../weird/../../session id"
	if err := s.Save(id, 1); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	want := filepath.Join(dir, "handoff_"+Key(id)+".json")
	if _, err := os.Stat(want); err != nil {
		t.Errorf("state file not at hashed path: %v", err)
	}
}

func TestMemStore(t *testing.T) {
	s := NewMemStore()

	rec, err := s.Load("a")
	if err != nil || rec != nil {
		t.Errorf("Load(absent) = (%+v, %v), want (nil, nil)", rec, err)
	}

	if err := s.Save("a", 42); err != nil {
		t.Fatal(err)
	}
	rec, err = s.Load("a")
	if err != nil {
		t.Fatal(err)
	}
	if rec.TranscriptSize != 42 {
		t.Errorf("TranscriptSize = %d, want 42", rec.TranscriptSize)
	}

	if err := s.Delete("a"); err != nil {
		t.Fatal(err)
	}
	if rec, _ := s.Load("a"); rec != nil {
		t.Errorf("Load after delete = %+v, want nil", rec)
	}
}

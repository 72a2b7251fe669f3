// Package state persists the small per-session record that deduplicates
// handoff generation across the PreCompact and SessionEnd triggers.
//
// Persistence is deliberately best-effort: every method returns an error,
// and lifecycle call sites discard write/delete failures. Losing dedup
// state degrades to "always regenerate", never to a crash.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Record is the dedup state for one session.
type Record struct {
	SessionID      string    `json:"session_id"`
	TranscriptSize int64     `json:"transcript_size"`
	Timestamp      time.Time `json:"timestamp"`
}

// Store is the key-value store consulted by the handoff lifecycle.
type Store interface {
	// Load returns the record for a session, or (nil, nil) when absent.
	Load(sessionID string) (*Record, error)

	// Save replaces the record for a session.
	Save(sessionID string, transcriptSize int64) error

	// Delete removes the record for a session. Deleting an absent
	// record is not an error.
	Delete(sessionID string) error
}

// Key derives the state filename key for a session identifier: the first
// 16 hex characters of its SHA-256 digest. Session IDs are never used as
// raw filenames (length, path-unsafe characters). The truncated 64-bit
// key is not collision-proof; a collision merges two sessions' dedup
// state, which at worst suppresses or duplicates one handoff.
func Key(sessionID string) string {
	sum := sha256.Sum256([]byte(sessionID))
	return hex.EncodeToString(sum[:8])
}

// FileStore keeps one JSON file per session under Dir. Files are written
// by whole-file replace, not locked: the narrow PreCompact/SessionEnd
// race is accepted (worst case one extra handoff).
type FileStore struct {
	// Dir is the state directory, created on demand.
	Dir string

	// Clock supplies record timestamps; defaults to time.Now.
	Clock func() time.Time
}

// NewFileStore creates a file-backed store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *FileStore) path(sessionID string) string {
	return filepath.Join(s.Dir, "handoff_"+Key(sessionID)+".json")
}

// Load reads the record for a session. Absent files return (nil, nil);
// unreadable or corrupt files return an error the caller may treat as
// absent.
func (s *FileStore) Load(sessionID string) (*Record, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	return &rec, nil
}

// Save writes the record for a session, creating the state directory on
// demand.
func (s *FileStore) Save(sessionID string, transcriptSize int64) error {
	if err := os.MkdirAll(s.Dir, 0700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	rec := Record{
		SessionID:      sessionID,
		TranscriptSize: transcriptSize,
		Timestamp:      s.now(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(s.path(sessionID), data, 0600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// Delete removes the record for a session.
func (s *FileStore) Delete(sessionID string) error {
	err := os.Remove(s.path(sessionID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete state: %w", err)
	}
	return nil
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	Records map[string]*Record

	// Error injection for exercising best-effort paths.
	LoadErr   error
	SaveErr   error
	DeleteErr error

	// Clock supplies record timestamps; defaults to time.Now.
	Clock func() time.Time
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{Records: make(map[string]*Record)}
}

// Load returns the stored record, or (nil, nil) when absent.
func (s *MemStore) Load(sessionID string) (*Record, error) {
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	return s.Records[Key(sessionID)], nil
}

// Save stores a record for the session.
func (s *MemStore) Save(sessionID string, transcriptSize int64) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	now := time.Now
	if s.Clock != nil {
		now = s.Clock
	}
	s.Records[Key(sessionID)] = &Record{
		SessionID:      sessionID,
		TranscriptSize: transcriptSize,
		Timestamp:      now(),
	}
	return nil
}

// Delete removes the record for the session.
func (s *MemStore) Delete(sessionID string) error {
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	delete(s.Records, Key(sessionID))
	return nil
}

package handoff

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ArtifactExt is the handoff artifact file extension.
const ArtifactExt = ".md"

// reservedPrefixes exclude non-handoff files living in the artifact
// directory from selection.
var reservedPrefixes = []string{"readme", "template"}

// Artifact is one selectable handoff document.
type Artifact struct {
	// Name is the filename, `YYYYMMDD-HHMM-<slug>.md`.
	Name string

	// Path is the absolute location on disk.
	Path string
}

// SelectRecent returns the most recent artifacts in dir, newest first.
// Ordering is a pure function of filenames: the fixed-width zero-padded
// timestamp prefix makes lexicographic order equal chronological order,
// which keeps the selection reproducible after copies and syncs (mtimes
// are not consulted).
func SelectRecent(dir string, count int) ([]Artifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read handoff directory: %w", err)
	}

	var artifacts []Artifact
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ArtifactExt) {
			continue
		}
		if isReservedName(e.Name()) {
			continue
		}
		artifacts = append(artifacts, Artifact{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
		})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Name > artifacts[j].Name
	})

	if count < 1 {
		count = 1
	}
	if len(artifacts) > count {
		artifacts = artifacts[:count]
	}
	return artifacts, nil
}

func isReservedName(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// Package manifest publishes the flat list of leaf directories, the places
// where VASP actually ran, for downstream tooling.
package manifest

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/timewinder-dev/vaspmd/snapshot"
	"github.com/timewinder-dev/vaspmd/stagedir"
)

// Write replaces the manifest at path with leaves, one per line.
func Write(path string, leaves []string) error {
	var b strings.Builder
	for _, l := range leaves {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return snapshot.WriteFileAtomic(path, []byte(b.String()), 0o644)
}

// Read returns the leaves listed at path; a missing manifest is empty.
func Read(path string) ([]string, error) {
	lines, err := stagedir.ReadLines(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return lines, err
}

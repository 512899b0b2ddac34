package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// maxJSONFileSize is the maximum size of a sync.json or skills.lock.json
// file (1 MB). Prevents memory exhaustion from maliciously crafted or
// accidentally oversized files; a lock with hundreds of skills is well under
// 100 KB.
const maxJSONFileSize = 1 << 20 // 1 MB

// JSONStore provides generic versioned JSON file I/O for the per-scope
// policy and lock files. Saves go through a temp-file-then-rename so a
// concurrent reader never observes a partially written file.
type JSONStore[T any] struct {
	rootDir      string
	filename     string
	allowMissing bool // If true, missing file returns zero value instead of error
}

// NewJSONStore creates a new JSON store for type T.
//
// Parameters:
//   - rootDir: Directory containing the JSON file
//   - filename: Name of the JSON file (e.g., "sync.json", "skills.lock.json")
//   - allowMissing: If true, Load() returns zero value for missing files instead of error
func NewJSONStore[T any](rootDir, filename string, allowMissing bool) *JSONStore[T] {
	return &JSONStore[T]{
		rootDir:      rootDir,
		filename:     filename,
		allowMissing: allowMissing,
	}
}

// Path returns the full file path.
func (s *JSONStore[T]) Path() string {
	return filepath.Join(s.rootDir, s.filename)
}

// Load reads and unmarshals the JSON file into type T. Rejects files larger
// than maxJSONFileSize before reading them.
func (s *JSONStore[T]) Load() (T, error) {
	var result T

	info, err := os.Stat(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && s.allowMissing {
			return result, nil
		}
		return result, err
	}
	if info.Size() > maxJSONFileSize {
		return result, fmt.Errorf("%s exceeds maximum size (%d bytes > %d byte limit)", s.filename, info.Size(), maxJSONFileSize)
	}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && s.allowMissing {
			return result, nil
		}
		return result, err
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("invalid %s: %w", s.filename, err)
	}

	return result, nil
}

// Save marshals type T and writes it atomically: write to a temp file in the
// same directory, fsync-equivalent close, then rename over the target.
func (s *JSONStore[T]) Save(data T) error {
	if err := os.MkdirAll(s.rootDir, 0o755); err != nil {
		return fmt.Errorf("create %s directory: %w", s.filename, err)
	}

	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", s.filename, err)
	}
	bytes = append(bytes, '\n')

	tmp, err := os.CreateTemp(s.rootDir, s.filename+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", s.filename, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(bytes); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", s.filename, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", s.filename, err)
	}

	if err := os.Rename(tmpName, s.Path()); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", s.filename, err)
	}

	return nil
}

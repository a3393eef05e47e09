// Package sink publishes the latest coarse signal to a file read by an
// external execution agent (an MT5 expert advisor).
package sink

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultPath is where the expert advisor looks by default.
const DefaultPath = "signals.txt"

// ErrWrite is returned when the signal file could not be replaced.
var ErrWrite = errors.New("signal sink write failed")

// File overwrites a single token file. Writes go to a temp file in the same
// directory and are renamed into place, so readers see either the old token
// or the new one.
type File struct {
	Path string
}

// New returns a File sink at path, DefaultPath if empty.
func New(path string) *File {
	if path == "" {
		path = DefaultPath
	}
	return &File{Path: path}
}

// Write replaces the file content with token, no trailing newline.
func (f *File) Write(token string) (err error) {
	dir := filepath.Dir(f.Path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.Path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.WriteString(token); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err = os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// Read returns the current token, "" if nothing was written yet.
func (f *File) Read() (string, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

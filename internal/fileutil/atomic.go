// Package fileutil provides file system utilities.
package fileutil

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to filename atomically. See WriteAtomic.
func WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	_, err := WriteAtomic(filename, bytes.NewReader(data), perm)
	return err
}

// WriteAtomic streams r into a temporary file next to filename and renames it
// into place, creating the parent directory if needed. Readers observe
// either the previous file, no file, or the complete new file; never a
// partial one. It returns the number of bytes written.
func WriteAtomic(filename string, r io.Reader, perm os.FileMode) (int64, error) {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	// Same directory keeps the rename on one filesystem.
	tmpFile, err := os.CreateTemp(dir, filepath.Base(filename)+".tmp.*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	committed := false
	defer func() {
		if !committed {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	n, err := io.Copy(tmpFile, r)
	if err != nil {
		return n, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return n, fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Chmod(perm); err != nil {
		return n, fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return n, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, filename); err != nil {
		os.Remove(tmpPath)
		committed = true
		return n, fmt.Errorf("failed to rename temp file: %w", err)
	}
	committed = true
	return n, nil
}

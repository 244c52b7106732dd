//go:build windows
// +build windows

// Package xos provides cross-platform atomic file operations.
// On Windows, we use a fallback approach since atomic rename across
// drives is not always possible.
package xos

import (
	"io"
	"os"
	"path/filepath"
)

// WriteFile writes data to the named file.
// On Windows, this uses a temp file + rename approach within the same directory.
func WriteFile(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	tempFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return err
	}
	if err := tempFile.Chmod(perm); err != nil {
		tempFile.Close()
		return err
	}
	if err := tempFile.Close(); err != nil {
		return err
	}

	if err := os.Rename(tempName, filename); err != nil {
		return err
	}
	success = true
	return nil
}

// WriteReader writes data from a reader to the named file.
func WriteReader(filename string, r io.Reader, perm os.FileMode) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return WriteFile(filename, data, perm)
}

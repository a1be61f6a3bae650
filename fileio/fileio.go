// Package fileio holds the file primitives the bridge uses to talk to the
// terminal. The terminal writes and deletes the same files concurrently, so
// every failure here is treated as "try again later" rather than an error.
package fileio

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const (
	// RemoveAttempts bounds how often RemoveFile retries a locked file.
	RemoveAttempts = 10

	removeRetryDelay = time.Millisecond
)

// ReadFile returns the content of path, or "" if the file does not exist or
// cannot be read right now.
func ReadFile(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(b)
}

// Exists reports whether path exists. Stat errors other than not-exist count
// as existing so a slot is never overwritten on a transient failure.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

// RemoveFile deletes path, retrying up to RemoveAttempts times. It reports
// whether the file is gone; a file that never existed counts as removed.
func RemoveFile(path string) bool {
	for i := 0; i < RemoveAttempts; i++ {
		err := os.Remove(path)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return true
		}
		time.Sleep(removeRetryDelay)
	}
	return false
}

// WriteFile replaces path with data. The data is written to a temp file in the
// same directory and renamed over path, so a crash never leaves a truncated file.
func WriteFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".dwx-*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}

// CreateExclusive writes data to path only if path does not exist yet.
// ok is false when another writer owns path.
//
// The content is staged in a temp file and hard-linked into place, so the
// terminal never picks up an empty or half-written file. Filesystems without
// hard links fall back to O_EXCL create followed by a write.
func CreateExclusive(path string, data []byte) (ok bool, err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".dwx-*.tmp")
	if err != nil {
		return false, err
	}
	name := tmp.Name()
	defer os.Remove(name)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}

	err = os.Link(name, path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrExist):
		return false, nil
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return false, err
	}
	return true, f.Close()
}

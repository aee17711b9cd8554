package writer

import (
	"fmt"
	"io"
	"os"
)

// Target receives image bytes. Sync must not return until previously
// written data has reached stable storage.
type Target interface {
	io.Writer
	Sync() error
}

// ReopenTarget is a Target that can be reopened for read-back verification.
type ReopenTarget interface {
	Target
	Reopen() (io.ReadCloser, error)
}

// FileTarget writes to a device node or a regular file.
type FileTarget struct {
	f    *os.File
	path string
}

var _ ReopenTarget = (*FileTarget)(nil)

// OpenFileTarget opens path for writing. Regular files are created and
// truncated; device nodes are written in place.
func OpenFileTarget(path string) (*FileTarget, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening target: %w", err)
	}

	// A shorter image must not leave stale bytes from a previous write
	// in a regular file. Truncating a device node is not meaningful.
	if info, err := f.Stat(); err == nil && info.Mode().IsRegular() {
		if err := f.Truncate(0); err != nil {
			f.Close()
			return nil, fmt.Errorf("truncating target: %w", err)
		}
	}

	return &FileTarget{f: f, path: path}, nil
}

func (t *FileTarget) Write(p []byte) (int, error) {
	return t.f.Write(p)
}

// Sync forces written data to stable storage.
func (t *FileTarget) Sync() error {
	return t.f.Sync()
}

// Reopen opens the target read-only for verification.
func (t *FileTarget) Reopen() (io.ReadCloser, error) {
	return os.Open(t.path)
}

// Path returns the target path as opened.
func (t *FileTarget) Path() string {
	return t.path
}

// Close closes the underlying file.
func (t *FileTarget) Close() error {
	return t.f.Close()
}

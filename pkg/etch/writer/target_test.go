package writer

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestFileTargetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.img")
	payload := payloadOf(8192)

	target, err := OpenFileTarget(path)
	if err != nil {
		t.Fatalf("OpenFileTarget() error = %v", err)
	}

	if _, err := target.Write(payload); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := target.Sync(); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	r, err := target.Reopen()
	if err != nil {
		t.Fatalf("Reopen() error = %v", err)
	}
	defer r.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("read back %d bytes, want %d", len(got), len(payload))
	}

	if target.Path() != path {
		t.Errorf("Path() = %q, want %q", target.Path(), path)
	}

	if err := target.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestFileTargetTruncatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.img")

	// Pre-existing longer content must not survive a shorter write.
	if err := os.WriteFile(path, payloadOf(64*1024), 0o644); err != nil {
		t.Fatalf("seeding file: %v", err)
	}

	target, err := OpenFileTarget(path)
	if err != nil {
		t.Fatalf("OpenFileTarget() error = %v", err)
	}
	defer target.Close()

	short := payloadOf(1024)
	if _, err := target.Write(short); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := target.Sync(); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size() != int64(len(short)) {
		t.Errorf("file size = %d, want %d", info.Size(), len(short))
	}
}

func TestOpenFileTargetBadPath(t *testing.T) {
	_, err := OpenFileTarget(filepath.Join(t.TempDir(), "missing", "out.img"))
	if err == nil {
		t.Fatal("OpenFileTarget() error = nil, want error for missing parent")
	}
}

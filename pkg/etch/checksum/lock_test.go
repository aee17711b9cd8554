package checksum

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestRemoveStaleLockDeadOwner(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, badgerLockFile)

	// PIDs this large are never allocated on Linux.
	if err := os.WriteFile(lockPath, []byte("1073741824\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !removeStaleLock(dir) {
		t.Fatal("expected stale lock with dead owner to be removed")
	}

	if _, err := os.Stat(lockPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("lock file still present: %v", err)
	}
}

func TestRemoveStaleLockLiveOwner(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, badgerLockFile)

	if err := os.WriteFile(lockPath, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644); err != nil {
		t.Fatal(err)
	}

	if removeStaleLock(dir) {
		t.Fatal("lock owned by a live process must not be removed")
	}

	if _, err := os.Stat(lockPath); err != nil {
		t.Errorf("lock file should remain: %v", err)
	}
}

func TestRemoveStaleLockGarbage(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, badgerLockFile)

	if err := os.WriteFile(lockPath, []byte("not a pid"), 0o644); err != nil {
		t.Fatal(err)
	}

	if removeStaleLock(dir) {
		t.Fatal("unparseable lock must be left alone")
	}
}

func TestRemoveStaleLockMissing(t *testing.T) {
	if removeStaleLock(t.TempDir()) {
		t.Fatal("missing lock file must not report removal")
	}
}

func TestIsLockError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"lock conflict", errors.New(`Cannot acquire directory lock on "/tmp/x". Another process is using this Badger database.`), true},
		{"unrelated", errors.New("disk full"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isLockError(tt.err); got != tt.want {
				t.Errorf("isLockError() = %v, want %v", got, tt.want)
			}
		})
	}
}

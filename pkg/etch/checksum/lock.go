package checksum

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/jamesainslie/etch/pkg/etch/logging"
)

// badgerLockFile is the lock file badger creates inside its directory.
const badgerLockFile = "LOCK"

// isLockError reports whether a badger open failure is a directory lock
// conflict rather than corruption or a bad path.
func isLockError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Cannot acquire directory lock")
}

// removeStaleLock deletes the badger LOCK file when its recorded owner is
// no longer running. A crashed process leaves the file behind; a live one
// must keep its lock. Returns true if a lock was removed.
func removeStaleLock(dir string) bool {
	lockPath := filepath.Join(dir, badgerLockFile)
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false
	}

	if isProcessRunning(pid) {
		return false
	}

	log := logging.Get("checksum")
	log.Warn("removing stale cache lock", "stale_pid", pid)

	return os.Remove(lockPath) == nil
}

// isProcessRunning checks if a process with the given PID is running.
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

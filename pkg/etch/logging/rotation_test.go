package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jamesainslie/etch/pkg/etch/logging"
)

func TestRotationBySize(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "size_rotate.log")

	writer, err := logging.NewRotatingWriter(logPath, logging.RotationConfig{
		MaxSize:    512, // 512 bytes - small for testing
		MaxAge:     7,
		MaxBackups: 3,
		Daily:      false,
	})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}

	// Write enough to trigger rotation
	for i := 0; i < 20; i++ {
		msg := strings.Repeat("x", 50) + "\n"
		if _, writeErr := writer.Write([]byte(msg)); writeErr != nil {
			t.Fatalf("Write() error = %v", writeErr)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Check that rotation happened
	files, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("failed to read temp dir: %v", err)
	}

	logFiles := 0
	for _, f := range files {
		if strings.HasPrefix(f.Name(), "size_rotate") && strings.HasSuffix(f.Name(), ".log") {
			logFiles++
		}
	}

	if logFiles < 2 {
		t.Errorf("expected at least 2 log files after rotation, got %d", logFiles)
	}
}

func TestRotationMaxBackups(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "backup_limit.log")

	maxBackups := 2
	writer, err := logging.NewRotatingWriter(logPath, logging.RotationConfig{
		MaxSize:    256, // 256 bytes - very small for testing
		MaxAge:     7,
		MaxBackups: maxBackups,
		Daily:      false,
	})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}

	// Write enough to trigger multiple rotations
	for i := 0; i < 50; i++ {
		msg := strings.Repeat("y", 30) + "\n"
		if _, writeErr := writer.Write([]byte(msg)); writeErr != nil {
			t.Fatalf("Write() error = %v", writeErr)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	files, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("failed to read temp dir: %v", err)
	}

	logFiles := 0
	for _, f := range files {
		if strings.HasPrefix(f.Name(), "backup_limit") {
			logFiles++
		}
	}

	// Should have current + MaxBackups files at most
	maxExpected := maxBackups + 1
	if logFiles > maxExpected {
		t.Errorf("expected at most %d log files, got %d", maxExpected, logFiles)
	}
}

func TestRotationMaxAge(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "age_limit.log")

	// Pre-create an "old" rotated file and backdate it
	oldPath := filepath.Join(tempDir, "age_limit.2020-01-01-000000.log")
	if err := os.WriteFile(oldPath, []byte("ancient"), 0o644); err != nil {
		t.Fatalf("creating old log file: %v", err)
	}
	oldTime := time.Now().Add(-90 * 24 * time.Hour)
	if err := os.Chtimes(oldPath, oldTime, oldTime); err != nil {
		t.Fatalf("backdating old log file: %v", err)
	}

	writer, err := logging.NewRotatingWriter(logPath, logging.RotationConfig{
		MaxSize: 1024 * 1024,
		MaxAge:  30,
		Daily:   false,
	})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer writer.Close()

	// Cleanup runs on startup, which should remove the backdated file
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Errorf("expected old log file to be removed, stat err = %v", err)
	}
}

func TestWriterCreatesParentDirs(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "nested", "dirs", "etch.log")

	writer, err := logging.NewRotatingWriter(logPath, logging.RotationConfig{})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}

	if _, err := writer.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("expected log file to exist: %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	writer, err := logging.NewRotatingWriter(filepath.Join(tempDir, "idem.log"), logging.RotationConfig{})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

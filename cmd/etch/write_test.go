package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jamesainslie/etch/pkg/etch/device"
	"github.com/jamesainslie/etch/pkg/etch/history"
	"github.com/jamesainslie/etch/pkg/etch/source"
	"github.com/jamesainslie/etch/pkg/etch/syncpolicy"
	"github.com/jamesainslie/etch/pkg/etch/writer"
)

func TestProgressLine(t *testing.T) {
	tests := []struct {
		name string
		p    writer.Progress
		want string
	}{
		{
			name: "writing with known total",
			p: writer.Progress{
				BytesWritten: 512 * 1024 * 1024,
				TotalBytes:   1024 * 1024 * 1024,
				Flushes:      5,
			},
			want: "  Writing: 512 MiB / 1.0 GiB (50%), 5 flushes",
		},
		{
			name: "writing with unknown total",
			p: writer.Progress{
				BytesWritten: 256 * 1024 * 1024,
				TotalBytes:   -1,
				Flushes:      2,
			},
			want: "  Writing: 256 MiB, 2 flushes",
		},
		{
			name: "verifying",
			p: writer.Progress{
				BytesWritten:  1024 * 1024 * 1024,
				BytesVerified: 512 * 1024 * 1024,
				Verifying:     true,
			},
			want: "  Verifying: 512 MiB / 1.0 GiB (50%)",
		},
		{
			name: "verifying before the first read",
			p:    writer.Progress{Verifying: true},
			want: "  Verifying...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := progressLine(tt.p); got != tt.want {
				t.Errorf("progressLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatSourceSize(t *testing.T) {
	if got := formatSourceSize(-1); got != "size unknown" {
		t.Errorf("formatSourceSize(-1) = %q, want %q", got, "size unknown")
	}
	if got := formatSourceSize(6 * 1024 * 1024 * 1024); got != "6.0 GiB" {
		t.Errorf("formatSourceSize(6 GiB) = %q, want %q", got, "6.0 GiB")
	}
}

func TestBuildHistoryEntry(t *testing.T) {
	imgPath := writeTestImage(t, 4096)

	src, err := source.Open(imgPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	syncCfg := syncpolicy.SyncConfig{
		IntervalBytes: 100 * 1024 * 1024,
		Interval:      5 * time.Second,
		Tier:          syncpolicy.TierMedium,
		TotalMemoryMB: 8192,
	}
	dev := device.Device{Path: "/dev/sdz", Model: "Test Flash", Size: 32 * 1024 * 1024 * 1024}
	result := &writer.Result{
		BytesWritten: 4096,
		Flushes:      1,
		Elapsed:      1500 * time.Millisecond,
		Digest:       "a8100ae6aa1940d0b663bb31cd466142ebbdbd5187131b92d93818987832eb89",
		Verified:     true,
	}

	entry := buildHistoryEntry(imgPath, src, dev, true, syncCfg, result, nil)

	if entry.Status != history.StatusCompleted {
		t.Errorf("Status = %q, want %q", entry.Status, history.StatusCompleted)
	}
	if entry.Image.Format != "raw" {
		t.Errorf("Image.Format = %q, want %q", entry.Image.Format, "raw")
	}
	if entry.Image.Size != 4096 {
		t.Errorf("Image.Size = %d, want 4096", entry.Image.Size)
	}
	if entry.Device.Model != "Test Flash" {
		t.Errorf("Device.Model = %q, want %q", entry.Device.Model, "Test Flash")
	}
	if entry.Sync.Tier != "Medium" {
		t.Errorf("Sync.Tier = %q, want %q", entry.Sync.Tier, "Medium")
	}
	if entry.Sync.IntervalBytes != syncCfg.IntervalBytes {
		t.Errorf("Sync.IntervalBytes = %d, want %d", entry.Sync.IntervalBytes, syncCfg.IntervalBytes)
	}
	if entry.Result.BytesWritten != 4096 {
		t.Errorf("Result.BytesWritten = %d, want 4096", entry.Result.BytesWritten)
	}
	if !entry.Result.Verified {
		t.Error("Result.Verified = false, want true")
	}
}

func TestBuildHistoryEntryStatuses(t *testing.T) {
	imgPath := writeTestImage(t, 1024)

	src, err := source.Open(imgPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	syncCfg := syncpolicy.Calculate(8192, syncpolicy.DefaultPolicy())

	cancelled := buildHistoryEntry(imgPath, src, device.Device{}, false, syncCfg, nil, context.Canceled)
	if cancelled.Status != history.StatusCancelled {
		t.Errorf("Status = %q, want %q", cancelled.Status, history.StatusCancelled)
	}

	failed := buildHistoryEntry(imgPath, src, device.Device{}, false, syncCfg, nil, errors.New("short write"))
	if failed.Status != history.StatusFailed {
		t.Errorf("Status = %q, want %q", failed.Status, history.StatusFailed)
	}
	if failed.Error != "short write" {
		t.Errorf("Error = %q, want %q", failed.Error, "short write")
	}
	if failed.Result.BytesWritten != 0 {
		t.Errorf("Result.BytesWritten = %d, want 0 for a failed session", failed.Result.BytesWritten)
	}
}

// writeTestImage creates a raw image file of n bytes and returns its path.
func writeTestImage(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.img")
	if err := os.WriteFile(path, make([]byte, n), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

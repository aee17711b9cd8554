// Package history records completed write sessions to the filesystem.
package history

import "time"

// Status is the terminal state of a write session.
type Status string

const (
	// StatusCompleted marks a write that finished and passed any verification.
	StatusCompleted Status = "completed"
	// StatusFailed marks a write that returned an error.
	StatusFailed Status = "failed"
	// StatusCancelled marks a write interrupted by the user.
	StatusCancelled Status = "cancelled"
)

// Entry is a single recorded write session.
type Entry struct {
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	Status    Status       `json:"status"`
	Image     ImageRecord  `json:"image"`
	Device    DeviceRecord `json:"device"`
	Sync      SyncRecord   `json:"sync"`
	Result    ResultRecord `json:"result"`
	Error     string       `json:"error,omitempty"`
}

// ImageRecord describes the source image of a session.
type ImageRecord struct {
	Path   string `json:"path"`
	Format string `json:"format"`
	Size   int64  `json:"size"` // Uncompressed bytes, -1 if unknown up front
}

// DeviceRecord describes the target of a session.
type DeviceRecord struct {
	Path  string `json:"path"`
	Model string `json:"model,omitempty"`
	Size  int64  `json:"size,omitempty"`
}

// SyncRecord captures the flush policy the session ran under.
type SyncRecord struct {
	Tier          string        `json:"tier"`
	TotalMemoryMB int64         `json:"total_memory_mb"`
	IntervalBytes int64         `json:"interval_bytes"`
	Interval      time.Duration `json:"interval_ns"`
}

// ResultRecord captures what the session actually did.
type ResultRecord struct {
	BytesWritten int64         `json:"bytes_written"`
	Flushes      int           `json:"flushes"`
	Duration     time.Duration `json:"duration_ns"`
	Digest       string        `json:"sha256,omitempty"`
	Verified     bool          `json:"verified"`
}

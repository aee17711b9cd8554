// Package writer streams disk images to block devices with memory-tiered
// forced flushes. A write is driven by a sync configuration from the policy
// engine: dirty bytes are synced to the device whenever either the byte or
// the time threshold is crossed, which keeps page-cache buildup bounded and
// progress reporting honest on slow removable media.
package writer

import (
	"errors"
	"io"
	"time"

	"github.com/jamesainslie/etch/pkg/etch/syncpolicy"
	"github.com/jamesainslie/etch/pkg/etch/types"
)

// DefaultBlockSize is the copy block size when none is configured.
const DefaultBlockSize = 1 * types.MiB

// DefaultProgressInterval throttles progress callbacks when none is configured.
const DefaultProgressInterval = 100 * time.Millisecond

var (
	// ErrNoSource indicates that Options.Source was not set.
	ErrNoSource = errors.New("source required")

	// ErrNoTarget indicates that Options.Target was not set.
	ErrNoTarget = errors.New("target required")

	// ErrNoSyncConfig indicates that Options.Sync was not populated from
	// the policy engine.
	ErrNoSyncConfig = errors.New("sync configuration required")

	// ErrVerifyUnsupported indicates that verification was requested but
	// the target cannot be reopened for reading.
	ErrVerifyUnsupported = errors.New("target does not support verification")

	// ErrVerifyMismatch indicates that the device read back different
	// bytes than were written.
	ErrVerifyMismatch = errors.New("verification mismatch")
)

// Progress is a point-in-time snapshot of a running write.
type Progress struct {
	// BytesWritten is the number of uncompressed bytes written so far.
	BytesWritten int64

	// TotalBytes is the expected image size, or -1 when unknown.
	TotalBytes int64

	// Flushes is the number of forced syncs issued so far.
	Flushes int64

	// Verifying reports whether the read-back phase is running.
	Verifying bool

	// BytesVerified is the number of bytes read back so far.
	BytesVerified int64
}

// Options configures a write.
type Options struct {
	// Source supplies the image bytes.
	Source io.Reader

	// SourceSize is the expected number of bytes, or -1 when unknown.
	// A zero value is treated as unknown.
	SourceSize int64

	// Target receives the image.
	Target Target

	// Sync is the flush policy derived by the engine. A forced Sync() is
	// issued whenever either threshold is reached.
	Sync syncpolicy.SyncConfig

	// BlockSize is the copy block size in bytes.
	BlockSize int64

	// Verify re-reads the target after writing and compares digests.
	// Requires a Target implementing ReopenTarget.
	Verify bool

	// OnProgress is called with throttled progress snapshots.
	// It is invoked from the writing goroutine.
	OnProgress func(Progress)

	// ProgressInterval throttles OnProgress callbacks.
	ProgressInterval time.Duration

	// FlushLogSize caps the retained flush events.
	FlushLogSize int
}

// Validate checks required fields and applies defaults in place.
func (o *Options) Validate() error {
	if o.Source == nil {
		return ErrNoSource
	}
	if o.Target == nil {
		return ErrNoTarget
	}
	if o.Sync.IntervalBytes <= 0 || o.Sync.Interval <= 0 {
		return ErrNoSyncConfig
	}
	if o.Verify {
		if _, ok := o.Target.(ReopenTarget); !ok {
			return ErrVerifyUnsupported
		}
	}
	if o.BlockSize <= 0 {
		o.BlockSize = DefaultBlockSize
	}
	if o.SourceSize == 0 {
		o.SourceSize = -1
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = DefaultProgressInterval
	}
	if o.FlushLogSize <= 0 {
		o.FlushLogSize = DefaultFlushLogSize
	}
	return nil
}

package writer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/jamesainslie/etch/pkg/etch/logging"
	"github.com/jamesainslie/etch/pkg/etch/syncpolicy"
)

// Writer streams an image to a target under the flush policy in its options.
type Writer struct {
	opts Options
	log  *logging.Logger

	// Atomic counters for thread-safe progress reporting.
	bytesWritten  atomic.Int64
	bytesVerified atomic.Int64
	flushes       atomic.Int64
	verifying     atomic.Bool

	// lastProgress tracks when we last reported progress to avoid excessive callbacks.
	lastProgress atomic.Int64

	flushLog *FlushLog
}

// Result summarizes a completed write.
type Result struct {
	// BytesWritten is the total uncompressed bytes written.
	BytesWritten int64

	// Flushes is the number of forced syncs, including the final one.
	Flushes int64

	// Elapsed covers the write and, when enabled, the verification.
	Elapsed time.Duration

	// Digest is the hex SHA-256 of the uncompressed image.
	Digest string

	// Verified reports whether read-back verification ran and matched.
	Verified bool

	// SyncConfig is the policy the write ran under.
	SyncConfig syncpolicy.SyncConfig

	// FlushEvents is a snapshot of the retained flush history.
	FlushEvents []FlushEvent
}

// Throughput returns the average write rate in bytes per second.
func (r *Result) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.BytesWritten) / r.Elapsed.Seconds()
}

// New creates a Writer with the given options.
func New(opts Options) (*Writer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Writer{
		opts:     opts,
		log:      logging.Get("writer"),
		flushLog: NewFlushLog(opts.FlushLogSize),
	}, nil
}

// Run performs the write. It blocks until the image is fully written and
// synced, the context is cancelled, or an error occurs.
func (w *Writer) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	cfg := w.opts.Sync

	w.log.Info("write started",
		"tier", cfg.Tier.String(),
		"sync_bytes", cfg.IntervalBytes,
		"sync_interval", cfg.Interval,
		"block_size", w.opts.BlockSize,
		"source_size", w.opts.SourceSize)

	digest := sha256.New()
	buf := make([]byte, w.opts.BlockSize)

	var bytesSinceFlush int64
	lastFlush := time.Now()

	w.reportProgressForce()

	for {
		// Check for cancellation between blocks.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		n, readErr := io.ReadFull(w.opts.Source, buf)
		if n > 0 {
			written, err := w.opts.Target.Write(buf[:n])
			if err != nil {
				return nil, fmt.Errorf("writing block: %w", err)
			}
			if written != n {
				return nil, fmt.Errorf("writing block: %w", io.ErrShortWrite)
			}

			digest.Write(buf[:n])
			w.bytesWritten.Add(int64(n))
			bytesSinceFlush += int64(n)
			w.reportProgress()

			// Force a flush when either threshold is crossed. Byte
			// pressure wins the label when both hold.
			byteTrigger := bytesSinceFlush >= cfg.IntervalBytes
			timeTrigger := !byteTrigger && time.Since(lastFlush) >= cfg.Interval
			if byteTrigger || timeTrigger {
				trigger := TriggerBytes
				if timeTrigger {
					trigger = TriggerTime
				}
				if err := w.flush(bytesSinceFlush, trigger); err != nil {
					return nil, err
				}
				bytesSinceFlush = 0
				lastFlush = time.Now()
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
				break
			}
			return nil, fmt.Errorf("reading image: %w", readErr)
		}
	}

	// The image is not durable until the tail is synced.
	if err := w.flush(bytesSinceFlush, TriggerFinal); err != nil {
		return nil, err
	}

	sum := hex.EncodeToString(digest.Sum(nil))

	if w.opts.Verify {
		if err := w.verify(ctx, sum); err != nil {
			return nil, err
		}
	}

	w.reportProgressForce()

	result := &Result{
		BytesWritten: w.bytesWritten.Load(),
		Flushes:      w.flushes.Load(),
		Elapsed:      time.Since(start),
		Digest:       sum,
		Verified:     w.opts.Verify,
		SyncConfig:   cfg,
		FlushEvents:  w.flushLog.Events(),
	}

	w.log.Info("write finished",
		"bytes", result.BytesWritten,
		"flushes", result.Flushes,
		"elapsed", result.Elapsed,
		"verified", result.Verified)

	return result, nil
}

// Progress returns a snapshot of the current counters. Safe to call from
// other goroutines while Run is active.
func (w *Writer) Progress() Progress {
	return Progress{
		BytesWritten:  w.bytesWritten.Load(),
		TotalBytes:    w.opts.SourceSize,
		Flushes:       w.flushes.Load(),
		Verifying:     w.verifying.Load(),
		BytesVerified: w.bytesVerified.Load(),
	}
}

// FlushEvents returns the retained flush history, oldest first.
func (w *Writer) FlushEvents() []FlushEvent {
	return w.flushLog.Events()
}

// flush syncs the target and records the event.
func (w *Writer) flush(pending int64, trigger FlushTrigger) error {
	start := time.Now()
	if err := w.opts.Target.Sync(); err != nil {
		return fmt.Errorf("syncing target: %w", err)
	}
	elapsed := time.Since(start)

	w.flushes.Add(1)
	w.flushLog.Add(FlushEvent{
		At:       start,
		Bytes:    pending,
		Duration: elapsed,
		Trigger:  trigger,
		Total:    w.bytesWritten.Load(),
	})

	w.log.Debug("flush forced",
		"trigger", trigger.String(),
		"pending_bytes", pending,
		"sync_ms", elapsed.Milliseconds())

	w.reportProgress()
	return nil
}

// verify reads the written prefix of the target back and compares digests.
func (w *Writer) verify(ctx context.Context, want string) error {
	rt, ok := w.opts.Target.(ReopenTarget)
	if !ok {
		return ErrVerifyUnsupported
	}

	w.verifying.Store(true)
	w.reportProgressForce()

	r, err := rt.Reopen()
	if err != nil {
		return fmt.Errorf("reopening target for verification: %w", err)
	}
	defer r.Close()

	digest := sha256.New()
	buf := make([]byte, w.opts.BlockSize)

	// The device is usually larger than the image; only the written
	// prefix participates in the comparison.
	remaining := w.bytesWritten.Load()
	for remaining > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n := int64(len(buf))
		if n > remaining {
			n = remaining
		}

		read, err := io.ReadFull(r, buf[:n])
		if read > 0 {
			digest.Write(buf[:read])
			remaining -= int64(read)
			w.bytesVerified.Add(int64(read))
			w.reportProgress()
		}
		if err != nil {
			return fmt.Errorf("reading target back: %w", err)
		}
	}

	got := hex.EncodeToString(digest.Sum(nil))
	if got != want {
		return fmt.Errorf("%w: source sha256 %s, target sha256 %s", ErrVerifyMismatch, want, got)
	}

	w.log.Info("verification passed", "bytes", w.bytesVerified.Load())
	return nil
}

// reportProgress calls the progress callback if configured.
// Throttles calls to avoid excessive overhead.
func (w *Writer) reportProgress() {
	if w.opts.OnProgress == nil {
		return
	}

	now := time.Now().UnixMilli()
	last := w.lastProgress.Load()
	if now-last < w.opts.ProgressInterval.Milliseconds() {
		return
	}
	if !w.lastProgress.CompareAndSwap(last, now) {
		return // Another goroutine updated it.
	}

	w.opts.OnProgress(w.Progress())
}

// reportProgressForce calls the progress callback immediately, bypassing
// the throttle. Use for phase changes like start, verify, and completion.
func (w *Writer) reportProgressForce() {
	if w.opts.OnProgress == nil {
		return
	}
	w.lastProgress.Store(time.Now().UnixMilli())
	w.opts.OnProgress(w.Progress())
}

package writer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/jamesainslie/etch/pkg/etch/syncpolicy"
)

// memTarget is an in-memory Target that counts syncs and can serve altered
// bytes on reopen to exercise verification failures.
type memTarget struct {
	buf      bytes.Buffer
	syncs    int
	syncErr  error
	readBack []byte
}

func (m *memTarget) Write(p []byte) (int, error) {
	return m.buf.Write(p)
}

func (m *memTarget) Sync() error {
	if m.syncErr != nil {
		return m.syncErr
	}
	m.syncs++
	return nil
}

func (m *memTarget) Reopen() (io.ReadCloser, error) {
	data := m.buf.Bytes()
	if m.readBack != nil {
		data = m.readBack
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// syncOnlyTarget satisfies Target but not ReopenTarget.
type syncOnlyTarget struct{}

func (syncOnlyTarget) Write(p []byte) (int, error) { return len(p), nil }
func (syncOnlyTarget) Sync() error                 { return nil }

func mediumSync(intervalBytes int64, interval time.Duration) syncpolicy.SyncConfig {
	return syncpolicy.SyncConfig{
		IntervalBytes: intervalBytes,
		Interval:      interval,
		Tier:          syncpolicy.TierMedium,
		TotalMemoryMB: 8192,
	}
}

func payloadOf(n int) []byte {
	// A 97-byte unit keeps block boundaries unaligned with the pattern.
	unit := []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789abcdefghijklmnopqrstuvwxyz0123456")
	out := bytes.Repeat(unit, n/len(unit)+1)
	return out[:n]
}

func TestRunByteTriggeredFlushes(t *testing.T) {
	payload := payloadOf(4*64*1024 + 100)
	target := &memTarget{}

	w, err := New(Options{
		Source:     bytes.NewReader(payload),
		SourceSize: int64(len(payload)),
		Target:     target,
		Sync:       mediumSync(64*1024, time.Hour),
		BlockSize:  4096,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !bytes.Equal(target.buf.Bytes(), payload) {
		t.Errorf("target holds %d bytes, want %d", target.buf.Len(), len(payload))
	}
	if result.BytesWritten != int64(len(payload)) {
		t.Errorf("BytesWritten = %d, want %d", result.BytesWritten, len(payload))
	}

	// Four byte-triggered flushes plus the final one.
	if target.syncs != 5 {
		t.Errorf("target synced %d times, want 5", target.syncs)
	}
	if result.Flushes != 5 {
		t.Errorf("Flushes = %d, want 5", result.Flushes)
	}

	events := result.FlushEvents
	if len(events) != 5 {
		t.Fatalf("len(FlushEvents) = %d, want 5", len(events))
	}
	if events[0].Trigger != TriggerBytes {
		t.Errorf("first trigger = %v, want %v", events[0].Trigger, TriggerBytes)
	}
	if events[0].Bytes != 64*1024 {
		t.Errorf("first flush pending = %d, want %d", events[0].Bytes, 64*1024)
	}
	last := events[len(events)-1]
	if last.Trigger != TriggerFinal {
		t.Errorf("last trigger = %v, want %v", last.Trigger, TriggerFinal)
	}
	if last.Bytes != 100 {
		t.Errorf("final flush pending = %d, want 100", last.Bytes)
	}
	if last.Total != int64(len(payload)) {
		t.Errorf("final flush total = %d, want %d", last.Total, len(payload))
	}

	want := sha256.Sum256(payload)
	if result.Digest != hex.EncodeToString(want[:]) {
		t.Errorf("Digest = %s, want %s", result.Digest, hex.EncodeToString(want[:]))
	}
}

func TestRunTimeTriggeredFlushes(t *testing.T) {
	payload := payloadOf(4 * 4096)
	target := &memTarget{}

	// A nanosecond interval forces a time flush after every block while
	// the byte threshold stays unreachable.
	w, err := New(Options{
		Source:     bytes.NewReader(payload),
		SourceSize: int64(len(payload)),
		Target:     target,
		Sync:       mediumSync(1<<40, time.Nanosecond),
		BlockSize:  4096,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if target.syncs != 5 {
		t.Errorf("target synced %d times, want 5", target.syncs)
	}

	events := result.FlushEvents
	for i, ev := range events[:len(events)-1] {
		if ev.Trigger != TriggerTime {
			t.Errorf("event %d trigger = %v, want %v", i, ev.Trigger, TriggerTime)
		}
		if ev.Bytes != 4096 {
			t.Errorf("event %d pending = %d, want 4096", i, ev.Bytes)
		}
	}
	if events[len(events)-1].Trigger != TriggerFinal {
		t.Errorf("last trigger = %v, want %v", events[len(events)-1].Trigger, TriggerFinal)
	}
}

func TestRunFinalFlushAlways(t *testing.T) {
	payload := payloadOf(8192)
	target := &memTarget{}

	w, err := New(Options{
		Source:     bytes.NewReader(payload),
		SourceSize: int64(len(payload)),
		Target:     target,
		Sync:       mediumSync(1<<40, time.Hour),
		BlockSize:  4096,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if target.syncs != 1 {
		t.Errorf("target synced %d times, want exactly the final flush", target.syncs)
	}
	if result.Flushes != 1 {
		t.Errorf("Flushes = %d, want 1", result.Flushes)
	}
	if result.FlushEvents[0].Trigger != TriggerFinal {
		t.Errorf("trigger = %v, want %v", result.FlushEvents[0].Trigger, TriggerFinal)
	}
	if result.FlushEvents[0].Bytes != 8192 {
		t.Errorf("final flush pending = %d, want 8192", result.FlushEvents[0].Bytes)
	}
}

func TestRunEmptySource(t *testing.T) {
	target := &memTarget{}

	w, err := New(Options{
		Source: bytes.NewReader(nil),
		Target: target,
		Sync:   mediumSync(64*1024, time.Hour),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.BytesWritten != 0 {
		t.Errorf("BytesWritten = %d, want 0", result.BytesWritten)
	}
	if target.syncs != 1 {
		t.Errorf("target synced %d times, want 1", target.syncs)
	}

	want := sha256.Sum256(nil)
	if result.Digest != hex.EncodeToString(want[:]) {
		t.Errorf("Digest = %s, want digest of empty input", result.Digest)
	}
}

func TestRunCancelled(t *testing.T) {
	target := &memTarget{}

	w, err := New(Options{
		Source: bytes.NewReader(payloadOf(64 * 1024)),
		Target: target,
		Sync:   mediumSync(16*1024, time.Hour),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = w.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if target.buf.Len() != 0 {
		t.Errorf("target received %d bytes after pre-cancelled context", target.buf.Len())
	}
}

func TestRunVerify(t *testing.T) {
	payload := payloadOf(32 * 1024)
	target := &memTarget{}

	w, err := New(Options{
		Source: bytes.NewReader(payload),
		Target: target,
		Sync:   mediumSync(16*1024, time.Hour),
		Verify: true,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !result.Verified {
		t.Error("Verified = false, want true")
	}
}

func TestRunVerifyMismatch(t *testing.T) {
	payload := payloadOf(32 * 1024)

	altered := bytes.Clone(payload)
	altered[100] ^= 0xff

	target := &memTarget{readBack: altered}

	w, err := New(Options{
		Source: bytes.NewReader(payload),
		Target: target,
		Sync:   mediumSync(16*1024, time.Hour),
		Verify: true,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = w.Run(context.Background())
	if !errors.Is(err, ErrVerifyMismatch) {
		t.Errorf("Run() error = %v, want ErrVerifyMismatch", err)
	}
}

func TestRunSyncError(t *testing.T) {
	errBoom := errors.New("device gone")
	target := &memTarget{syncErr: errBoom}

	w, err := New(Options{
		Source: bytes.NewReader(payloadOf(4096)),
		Target: target,
		Sync:   mediumSync(1024, time.Hour),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = w.Run(context.Background())
	if !errors.Is(err, errBoom) {
		t.Errorf("Run() error = %v, want wrapped sync failure", err)
	}
}

func TestRunSourceError(t *testing.T) {
	errBoom := errors.New("read failed")
	src := io.MultiReader(
		bytes.NewReader(payloadOf(4096)),
		&failingReader{err: errBoom},
	)
	target := &memTarget{}

	w, err := New(Options{
		Source:    src,
		Target:    target,
		Sync:      mediumSync(1<<40, time.Hour),
		BlockSize: 4096,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = w.Run(context.Background())
	if !errors.Is(err, errBoom) {
		t.Errorf("Run() error = %v, want wrapped read failure", err)
	}
}

type failingReader struct{ err error }

func (r *failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestRunProgressSnapshots(t *testing.T) {
	payload := payloadOf(16 * 4096)
	target := &memTarget{}

	var snaps []Progress
	w, err := New(Options{
		Source:           bytes.NewReader(payload),
		SourceSize:       int64(len(payload)),
		Target:           target,
		Sync:             mediumSync(16*1024, time.Hour),
		BlockSize:        4096,
		Verify:           true,
		ProgressInterval: time.Nanosecond,
		OnProgress: func(p Progress) {
			snaps = append(snaps, p)
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(snaps) == 0 {
		t.Fatal("no progress snapshots delivered")
	}

	final := snaps[len(snaps)-1]
	if final.BytesWritten != int64(len(payload)) {
		t.Errorf("final BytesWritten = %d, want %d", final.BytesWritten, len(payload))
	}
	if final.TotalBytes != int64(len(payload)) {
		t.Errorf("final TotalBytes = %d, want %d", final.TotalBytes, len(payload))
	}
	if final.BytesVerified != int64(len(payload)) {
		t.Errorf("final BytesVerified = %d, want %d", final.BytesVerified, len(payload))
	}

	sawVerifying := false
	for _, p := range snaps {
		if p.Verifying {
			sawVerifying = true
			break
		}
	}
	if !sawVerifying {
		t.Error("no snapshot captured the verification phase")
	}
}

func TestOptionsValidate(t *testing.T) {
	validSync := mediumSync(16*1024*1024, 5*time.Second)

	tests := []struct {
		name    string
		opts    Options
		wantErr error
	}{
		{
			name:    "missing source",
			opts:    Options{Target: &memTarget{}, Sync: validSync},
			wantErr: ErrNoSource,
		},
		{
			name:    "missing target",
			opts:    Options{Source: bytes.NewReader(nil), Sync: validSync},
			wantErr: ErrNoTarget,
		},
		{
			name:    "missing sync config",
			opts:    Options{Source: bytes.NewReader(nil), Target: &memTarget{}},
			wantErr: ErrNoSyncConfig,
		},
		{
			name: "verify without reopen support",
			opts: Options{
				Source: bytes.NewReader(nil),
				Target: syncOnlyTarget{},
				Sync:   validSync,
				Verify: true,
			},
			wantErr: ErrVerifyUnsupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOptionsValidateDefaults(t *testing.T) {
	opts := Options{
		Source: bytes.NewReader(nil),
		Target: &memTarget{},
		Sync:   mediumSync(16*1024*1024, 5*time.Second),
	}

	if err := opts.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if opts.BlockSize != DefaultBlockSize {
		t.Errorf("BlockSize = %d, want %d", opts.BlockSize, DefaultBlockSize)
	}
	if opts.SourceSize != -1 {
		t.Errorf("SourceSize = %d, want -1 for unknown", opts.SourceSize)
	}
	if opts.ProgressInterval != DefaultProgressInterval {
		t.Errorf("ProgressInterval = %v, want %v", opts.ProgressInterval, DefaultProgressInterval)
	}
	if opts.FlushLogSize != DefaultFlushLogSize {
		t.Errorf("FlushLogSize = %d, want %d", opts.FlushLogSize, DefaultFlushLogSize)
	}
}

func TestResultThroughput(t *testing.T) {
	r := &Result{BytesWritten: 10 * 1024 * 1024, Elapsed: 2 * time.Second}
	if got := r.Throughput(); got != 5*1024*1024 {
		t.Errorf("Throughput() = %f, want %d", got, 5*1024*1024)
	}

	r = &Result{BytesWritten: 1024}
	if got := r.Throughput(); got != 0 {
		t.Errorf("Throughput() = %f, want 0 for zero elapsed", got)
	}
}

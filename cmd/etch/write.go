package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/etch/cmd/etch/tui"
	"github.com/jamesainslie/etch/pkg/etch/config"
	"github.com/jamesainslie/etch/pkg/etch/device"
	"github.com/jamesainslie/etch/pkg/etch/history"
	"github.com/jamesainslie/etch/pkg/etch/memory"
	"github.com/jamesainslie/etch/pkg/etch/source"
	"github.com/jamesainslie/etch/pkg/etch/syncpolicy"
	"github.com/jamesainslie/etch/pkg/etch/types"
	"github.com/jamesainslie/etch/pkg/etch/writer"
)

var writeCmd = &cobra.Command{
	Use:   "write <image>",
	Short: "Write a disk image to a device",
	Long: `Write a disk image to a block device or file.

Gzip (.gz) and zstd (.zst) images are decompressed while writing. The
flush thresholds are derived from total system memory; use --sync-bytes
and --sync-every to override them, or --assume-memory-mb to derive them
for a different memory size.

Examples:
  etch write ubuntu-24.04.img --to /dev/sdb
  etch write raspios.img.gz --to /dev/sdb --verify --eject
  etch write custom.img --to /dev/mmcblk0 --sync-bytes 32MiB --sync-every 2s`,
	Args: cobra.ExactArgs(1),
	RunE: runWrite,
}

func init() {
	writeCmd.Flags().StringVarP(&writeTo, "to", "t", "", "target device or file (required)")
	_ = writeCmd.MarkFlagRequired("to")
	writeCmd.Flags().BoolVarP(&writeYes, "yes", "y", false, "skip the confirmation prompt")
	writeCmd.Flags().BoolVar(&writeVerify, "verify", false, "read the target back and compare checksums")
	writeCmd.Flags().BoolVar(&writeEject, "eject", false, "eject the device after a successful write")
	writeCmd.Flags().BoolVar(&writeAllowNonRemovable, "allow-non-removable", false, "permit writing to non-removable devices")
	writeCmd.Flags().StringVar(&writeBlockSize, "block-size", "", "copy block size (e.g. 4MiB)")
	writeCmd.Flags().StringVar(&writeSyncBytes, "sync-bytes", "", "override the flush byte threshold (e.g. 64MiB)")
	writeCmd.Flags().StringVar(&writeSyncEvery, "sync-every", "", "override the flush time threshold (e.g. 5s)")
	writeCmd.Flags().Int64Var(&writeAssumeMB, "assume-memory-mb", 0, "derive the sync policy for this much total memory instead of probing")

	rootCmd.AddCommand(writeCmd)
}

// runWrite is the write command handler.
func runWrite(_ *cobra.Command, args []string) error {
	// Resolve the image path
	imagePath, err := config.ExpandPath(args[0])
	if err != nil {
		return fmt.Errorf("failed to expand path: %w", err)
	}

	absImage, err := filepath.Abs(imagePath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absImage)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("image does not exist: %s", absImage)
		}
		return fmt.Errorf("cannot access image: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("image is a directory: %s", absImage)
	}

	// Load configuration and derive the sync policy
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	policy, err := cfg.SyncPolicy()
	if err != nil {
		return err
	}

	var syncCfg syncpolicy.SyncConfig
	if writeAssumeMB > 0 {
		syncCfg = syncpolicy.Calculate(writeAssumeMB, policy)
	} else {
		engine := syncpolicy.NewEngine(memory.SystemProbe{}, policy)
		syncCfg = engine.SyncConfiguration()
	}

	syncCfg, err = applySyncOverrides(syncCfg, writeSyncBytes, writeSyncEvery)
	if err != nil {
		return err
	}

	blockSize, err := resolveBlockSize(writeBlockSize, cfg.Write.BlockSize)
	if err != nil {
		return err
	}

	verify := writeVerify || cfg.Write.Verify
	eject := writeEject || cfg.Write.Eject
	allowFixed := writeAllowNonRemovable || cfg.Write.AllowNonRemovable

	// Vet the target before touching anything
	dev, isDevice, err := resolveTarget(writeTo, allowFixed)
	if err != nil {
		return err
	}

	targetLabel := writeTo
	if isDevice {
		targetLabel = dev.String()
	}

	// Open the source image
	src, err := source.Open(absImage)
	if err != nil {
		return err
	}
	defer src.Close()

	printInfo("Image:  %s (%s, %s)", absImage, src.Format(), formatSourceSize(src.Size()))
	printInfo("Target: %s", targetLabel)
	printInfo("Policy: %s, flush after %s or %s",
		syncCfg.Label(), types.FormatSize(syncCfg.IntervalBytes), syncCfg.Interval)

	if !writeYes {
		printInfo("")
		printInfo("All data on %s will be lost.", writeTo)
		if err := confirmWrite(os.Stdin, os.Stdout, filepath.Base(writeTo)); err != nil {
			return err
		}
	}

	// Unmount only after the operator has confirmed
	if isDevice && dev.Mounted() {
		printInfo("Unmounting %d filesystem(s) on %s...", len(dev.Mountpoints), dev.Path)
		if err := device.Unmount(dev); err != nil {
			return fmt.Errorf("failed to unmount target: %w", err)
		}
	}

	target, err := writer.OpenFileTarget(writeTo)
	if err != nil {
		return err
	}

	opts := writer.Options{
		Source:     src,
		SourceSize: src.Size(),
		Target:     target,
		Sync:       syncCfg,
		BlockSize:  blockSize,
		Verify:     verify,
	}

	useTUI := cfg.TUI.Enabled && !viper.GetBool("no_tui") && !getQuiet()

	var result *writer.Result
	var runErr error
	if useTUI {
		result, runErr = runTUIWrite(opts, absImage, src.Format().String(), targetLabel)
	} else {
		result, runErr = runPlainWrite(opts)
	}

	// Deferred write errors on block devices can surface at close.
	if cerr := target.Close(); cerr != nil && runErr == nil {
		runErr = fmt.Errorf("closing target: %w", cerr)
	}

	recordWriteHistory(cfg, buildHistoryEntry(absImage, src, dev, isDevice, syncCfg, result, runErr))

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			printInfo("Write cancelled. The target may be partially written.")
		}
		return runErr
	}

	printSummary(result)

	if eject && isDevice {
		printInfo("Ejecting %s...", dev.Path)
		if err := device.Eject(dev.Path); err != nil {
			printError("%v (the image was written; eject manually)", err)
		}
	}

	return nil
}

// resolveTarget looks the target up among known block devices and runs the
// safety checks. Paths that are not known devices are allowed as plain file
// targets, except unrecognized /dev paths, which need an explicit override.
func resolveTarget(path string, allowNonRemovable bool) (device.Device, bool, error) {
	dev, err := device.Find(path)
	if err != nil {
		if errors.Is(err, device.ErrUnsupported) {
			printVerbose("device discovery unavailable: %v", err)
			return device.Device{}, false, nil
		}
		if errors.Is(err, device.ErrNotFound) {
			if strings.HasPrefix(path, "/dev/") && !allowNonRemovable {
				return device.Device{}, false,
					fmt.Errorf("%s is not a recognized whole-disk device; pass --allow-non-removable to write to it anyway", path)
			}
			printVerbose("%s is not a known device, writing as a file", path)
			return device.Device{}, false, nil
		}
		return device.Device{}, false, err
	}

	// Mounted filesystems are detached after confirmation; everything
	// else is checked up front.
	if err := device.CheckTarget(dev, allowNonRemovable); err != nil && !errors.Is(err, device.ErrMounted) {
		return device.Device{}, false, err
	}

	return dev, true, nil
}

// runPlainWrite runs the write with line-based progress on stdout.
func runPlainWrite(opts writer.Options) (*writer.Result, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		cancel()
	}()

	if !getQuiet() {
		opts.OnProgress = func(p writer.Progress) {
			fmt.Printf("\r%-64s", progressLine(p))
		}
	}

	w, err := writer.New(opts)
	if err != nil {
		return nil, err
	}

	result, err := w.Run(ctx)
	if !getQuiet() {
		fmt.Println()
	}
	return result, err
}

// runTUIWrite runs the write inside the interactive progress UI.
func runTUIWrite(opts writer.Options, imagePath, format, targetLabel string) (*writer.Result, error) {
	// Console log lines would corrupt the TUI's screen.
	if err := initTUILogging(); err != nil {
		return nil, fmt.Errorf("failed to initialize TUI logging: %w", err)
	}

	return tui.Run(tui.Options{
		ImagePath:   imagePath,
		Format:      format,
		TargetLabel: targetLabel,
		WriteOpts:   opts,
	})
}

// progressLine renders one status line for plain progress output.
func progressLine(p writer.Progress) string {
	if p.Verifying {
		if p.BytesWritten > 0 {
			pct := float64(p.BytesVerified) / float64(p.BytesWritten) * 100
			return fmt.Sprintf("  Verifying: %s / %s (%.0f%%)",
				types.FormatSize(p.BytesVerified), types.FormatSize(p.BytesWritten), pct)
		}
		return "  Verifying..."
	}

	if p.TotalBytes > 0 {
		pct := float64(p.BytesWritten) / float64(p.TotalBytes) * 100
		return fmt.Sprintf("  Writing: %s / %s (%.0f%%), %d flushes",
			types.FormatSize(p.BytesWritten), types.FormatSize(p.TotalBytes), pct, p.Flushes)
	}
	return fmt.Sprintf("  Writing: %s, %d flushes", types.FormatSize(p.BytesWritten), p.Flushes)
}

// formatSourceSize renders an image size, which may be unknown for
// compressed sources without a usable header hint.
func formatSourceSize(n int64) string {
	if n < 0 {
		return "size unknown"
	}
	return types.FormatSize(n)
}

// printSummary prints the final write report.
func printSummary(r *writer.Result) {
	printInfo("")
	printInfo("Write complete.")
	printInfo("  Bytes:      %s", types.FormatSize(r.BytesWritten))
	printInfo("  Elapsed:    %s", r.Elapsed.Round(time.Millisecond))
	printInfo("  Throughput: %s/s", types.FormatSize(int64(r.Throughput())))
	printInfo("  Flushes:    %d (%s tier)", r.Flushes, r.SyncConfig.Tier)
	printInfo("  SHA-256:    %s", r.Digest)
	if r.Verified {
		printInfo("  Verified:   yes")
	}
}

// buildHistoryEntry assembles the session record for the history manifest.
func buildHistoryEntry(imagePath string, src *source.Source, dev device.Device, isDevice bool,
	syncCfg syncpolicy.SyncConfig, result *writer.Result, runErr error) history.Entry {
	entry := history.Entry{
		Status: history.StatusCompleted,
		Image: history.ImageRecord{
			Path:   imagePath,
			Format: src.Format().String(),
			Size:   src.Size(),
		},
		Device: history.DeviceRecord{
			Path: writeTo,
		},
		Sync: history.SyncRecord{
			Tier:          syncCfg.Tier.String(),
			TotalMemoryMB: syncCfg.TotalMemoryMB,
			IntervalBytes: syncCfg.IntervalBytes,
			Interval:      syncCfg.Interval,
		},
	}

	if isDevice {
		entry.Device.Model = dev.Model
		entry.Device.Size = dev.Size
	}

	switch {
	case runErr == nil:
		entry.Result = history.ResultRecord{
			BytesWritten: result.BytesWritten,
			Flushes:      int(result.Flushes),
			Duration:     result.Elapsed,
			Digest:       result.Digest,
			Verified:     result.Verified,
		}
	case errors.Is(runErr, context.Canceled):
		entry.Status = history.StatusCancelled
		entry.Error = runErr.Error()
	default:
		entry.Status = history.StatusFailed
		entry.Error = runErr.Error()
	}

	return entry
}

// recordWriteHistory logs the session to the history manifest. Failures
// degrade history, never the write itself.
func recordWriteHistory(cfg *config.Config, entry history.Entry) {
	if !cfg.History.Enabled {
		return
	}

	dir := cfg.History.Path
	if dir == "" {
		dir = config.DefaultHistoryDir()
	}

	h, err := history.New(dir)
	if err != nil {
		printVerbose("history disabled: %v", err)
		return
	}
	if err := h.EnsureDir(); err != nil {
		printVerbose("history disabled: %v", err)
		return
	}
	if _, err := h.Log(entry); err != nil {
		printVerbose("failed to record history entry: %v", err)
	}
}

package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/etch/pkg/etch/config"
	"github.com/jamesainslie/etch/pkg/etch/history"
	"github.com/jamesainslie/etch/pkg/etch/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View write history",
	Long: `View the record of past write sessions.

Each write stores a record of the image, the target device, the flush
policy in effect and the outcome.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show details of a write session",
	Long:  `Display detailed information about a write session by its ID.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean up old history entries",
	Long:  `Remove history entries older than the retention period.`,
	RunE:  runHistoryClean,
}

var (
	historyLimit int
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// getHistory returns a history store with the configured directory.
func getHistory() (*history.History, error) {
	cfg, err := config.Load()
	if err != nil {
		// Use the default directory if config fails to load
		return history.New(config.DefaultHistoryDir())
	}

	dir := cfg.History.Path
	if dir == "" {
		dir = config.DefaultHistoryDir()
	}
	return history.New(dir)
}

// runHistory lists recent write sessions.
func runHistory(cmd *cobra.Command, args []string) error {
	h, err := getHistory()
	if err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	entries, err := h.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(entries) == 0 {
		printInfo("No history entries found.")
		printInfo("Run 'etch write <image> --to <device>' to write an image.")
		return nil
	}

	// Print header
	fmt.Printf("\n%-32s  %-10s  %-26s  %-10s  %s\n", "ID", "STATUS", "IMAGE", "WRITTEN", "TARGET")
	fmt.Println(strings.Repeat("-", 100))

	for _, entry := range entries {
		fmt.Printf("%-32s  %-10s  %-26s  %-10s  %s\n",
			truncateString(entry.ID, 32),
			entry.Status,
			truncateString(filepath.Base(entry.Image.Path), 26),
			types.FormatSize(entry.Result.BytesWritten),
			entry.Device.Path,
		)
	}

	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("\nShowing %d entries. Use --limit to see more.\n", len(entries))
	fmt.Println("Use 'etch history show <id>' for details on a specific entry.")

	return nil
}

// runHistoryShow displays details of a specific write session.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	id := args[0]

	h, err := getHistory()
	if err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	entry, err := h.Get(id)
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	// Display entry details
	fmt.Println("\nWrite Session")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("ID:         %s\n", entry.ID)
	fmt.Printf("Timestamp:  %s\n", entry.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Status:     %s\n", entry.Status)
	if entry.Error != "" {
		fmt.Printf("Error:      %s\n", entry.Error)
	}

	fmt.Println("\nImage:")
	fmt.Printf("  Path:    %s\n", entry.Image.Path)
	fmt.Printf("  Format:  %s\n", entry.Image.Format)
	fmt.Printf("  Size:    %s\n", formatSourceSize(entry.Image.Size))

	fmt.Println("\nTarget:")
	fmt.Printf("  Path:    %s\n", entry.Device.Path)
	if entry.Device.Model != "" {
		fmt.Printf("  Model:   %s\n", entry.Device.Model)
	}
	if entry.Device.Size > 0 {
		fmt.Printf("  Size:    %s\n", types.FormatSize(entry.Device.Size))
	}

	fmt.Println("\nFlush policy:")
	fmt.Printf("  Tier:    %s (%d MB total)\n", entry.Sync.Tier, entry.Sync.TotalMemoryMB)
	fmt.Printf("  Bytes:   %s\n", types.FormatSize(entry.Sync.IntervalBytes))
	fmt.Printf("  Every:   %s\n", entry.Sync.Interval)

	if entry.Status == history.StatusCompleted {
		fmt.Println("\nResult:")
		fmt.Printf("  Written:   %s\n", types.FormatSize(entry.Result.BytesWritten))
		fmt.Printf("  Flushes:   %d\n", entry.Result.Flushes)
		fmt.Printf("  Duration:  %s\n", entry.Result.Duration)
		if entry.Result.Digest != "" {
			fmt.Printf("  SHA-256:   %s\n", entry.Result.Digest)
		}
		fmt.Printf("  Verified:  %t\n", entry.Result.Verified)
	}

	return nil
}

// runHistoryClean removes old history entries.
func runHistoryClean(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dir := cfg.History.Path
	if dir == "" {
		dir = config.DefaultHistoryDir()
	}

	h, err := history.New(dir)
	if err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	retentionDays := cfg.History.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	printInfo("Cleaning history entries older than %d days...", retentionDays)

	if err := h.Cleanup(retentionDays); err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	printInfo("History cleanup complete.")
	return nil
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

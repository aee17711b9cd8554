package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/etch/pkg/etch/config"
	"github.com/jamesainslie/etch/pkg/etch/memory"
	"github.com/jamesainslie/etch/pkg/etch/syncpolicy"
	"github.com/jamesainslie/etch/pkg/etch/types"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Show detected memory and the derived flush policy",
	Long: `Show what the memory probe reports and the flush policy derived
from it.

The write command forces a device flush after a fixed amount of
unflushed data or a fixed interval, whichever comes first. Both
thresholds scale with total system memory.`,
	RunE: runMemory,
}

var memoryAssumeMB int64

func init() {
	memoryCmd.Flags().Int64Var(&memoryAssumeMB, "assume-memory-mb", 0, "derive the policy for this much total memory instead of probing")
	rootCmd.AddCommand(memoryCmd)
}

// runMemory prints the probe readings and the resulting sync configuration.
func runMemory(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	policy, err := cfg.SyncPolicy()
	if err != nil {
		return err
	}

	printVerbose("Tier thresholds: low < %d MB, high >= %d MB",
		policy.LowMemoryThresholdMB, policy.HighMemoryThresholdMB)

	var syncCfg syncpolicy.SyncConfig
	if memoryAssumeMB > 0 {
		syncCfg = syncpolicy.Calculate(memoryAssumeMB, policy)
		fmt.Printf("Assumed total:      %d MB\n", memoryAssumeMB)
	} else {
		probe := memory.SystemProbe{}
		rawTotal := probe.TotalMemoryMB()
		rawAvail := probe.AvailableMemoryMB()

		fmt.Printf("Detected total:     %s\n", formatProbeMB(rawTotal))
		fmt.Printf("Detected available: %s\n", formatProbeMB(rawAvail))

		engine := syncpolicy.NewEngine(probe, policy)
		syncCfg = engine.SyncConfiguration()

		if rawTotal <= 0 {
			fmt.Printf("Policy total:       %d MB (fallback, detection failed)\n", syncCfg.TotalMemoryMB)
		}
	}

	fmt.Println()
	fmt.Printf("Tier:         %s\n", syncCfg.Tier)
	fmt.Printf("Flush after:  %s of unflushed data\n", types.FormatSize(syncCfg.IntervalBytes))
	fmt.Printf("Flush every:  %s\n", syncCfg.Interval)
	fmt.Printf("Label:        %s\n", syncCfg.Label())

	return nil
}

// formatProbeMB renders a probe reading; non-positive means the probe
// could not determine the value.
func formatProbeMB(mb int64) string {
	if mb <= 0 {
		return "unknown"
	}
	return fmt.Sprintf("%d MB", mb)
}

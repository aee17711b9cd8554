package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/etch/pkg/etch/device"
	"github.com/jamesainslie/etch/pkg/etch/types"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List removable drives",
	Long: `List block devices that are candidates for writing.

Only removable drives are shown unless --all is given. Writing to a
fixed disk additionally requires --allow-non-removable on the write
command itself.`,
	RunE: runDevices,
}

var (
	devicesAll   bool
	devicesWatch bool
)

func init() {
	devicesCmd.Flags().BoolVarP(&devicesAll, "all", "a", false, "include non-removable devices")
	devicesCmd.Flags().BoolVarP(&devicesWatch, "watch", "w", false, "watch for attach and detach events")
	rootCmd.AddCommand(devicesCmd)
}

// runDevices lists candidate target devices.
func runDevices(cmd *cobra.Command, args []string) error {
	if devicesWatch {
		return runDevicesWatch()
	}

	all, err := device.List()
	if err != nil {
		if errors.Is(err, device.ErrUnsupported) {
			return fmt.Errorf("device listing is not supported on this platform: %w", err)
		}
		return fmt.Errorf("failed to list devices: %w", err)
	}

	var shown []device.Device
	for _, d := range all {
		if d.Removable || devicesAll {
			shown = append(shown, d)
		}
	}

	if len(shown) == 0 {
		printInfo("No removable devices found.")
		printInfo("Use --all to include fixed disks.")
		return nil
	}

	// Print header
	fmt.Printf("\n%-14s  %-10s  %-9s  %-24s  %s\n", "PATH", "SIZE", "TYPE", "MODEL", "MOUNTED")
	fmt.Println(strings.Repeat("-", 80))

	for _, d := range shown {
		fmt.Printf("%-14s  %-10s  %-9s  %-24s  %s\n",
			d.Path,
			types.FormatSize(d.Size),
			deviceKind(d),
			truncateString(d.Model, 24),
			mountSummary(d),
		)
	}

	fmt.Println(strings.Repeat("-", 80))
	fmt.Printf("\n%d device(s). Write with 'etch write <image> --to <path>'.\n", len(shown))

	return nil
}

// runDevicesWatch streams attach and detach events until interrupted.
func runDevicesWatch() error {
	w, err := device.NewWatcher()
	if err != nil {
		if errors.Is(err, device.ErrUnsupported) {
			return fmt.Errorf("device watching is not supported on this platform: %w", err)
		}
		return fmt.Errorf("failed to start device watch: %w", err)
	}
	defer w.Close()

	sub := w.Subscribe()

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

	go w.Run(ctx)

	printInfo("Watching for device events. Press Ctrl+C to stop.")

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil

		case ev, ok := <-sub.Events:
			if !ok {
				return nil
			}
			switch ev.Type {
			case device.EventAdded:
				fmt.Printf("[attached]  %s\n", describeDevice(ev.Device))
			case device.EventRemoved:
				fmt.Printf("[removed]   %s\n", ev.Device.Path)
			}
		}
	}
}

// deviceKind classifies a device for the TYPE column.
func deviceKind(d device.Device) string {
	switch {
	case d.ReadOnly:
		return "read-only"
	case d.Removable:
		return "removable"
	default:
		return "fixed"
	}
}

// mountSummary renders the MOUNTED column.
func mountSummary(d device.Device) string {
	if !d.Mounted() {
		return "-"
	}
	return strings.Join(d.Mountpoints, ", ")
}

// describeDevice renders an attach notification. Details may be missing
// when the node vanished before enumeration caught up.
func describeDevice(d device.Device) string {
	if d.Model == "" && d.Size == 0 {
		return d.Path
	}
	return d.String()
}

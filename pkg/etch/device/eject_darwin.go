package device

import (
	"context"
	"fmt"
	"os/exec"
)

// Unmount detaches every mounted filesystem on the device via diskutil.
func Unmount(d Device) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := exec.CommandContext(ctx, "diskutil", "unmountDisk", d.Path).Run(); err != nil {
		return fmt.Errorf("diskutil unmountDisk %s: %w", d.Path, err)
	}
	return nil
}

// Eject unmounts and releases the disk so it can be removed.
func Eject(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := exec.CommandContext(ctx, "diskutil", "eject", path).Run(); err != nil {
		return fmt.Errorf("diskutil eject %s: %w", path, err)
	}
	return nil
}

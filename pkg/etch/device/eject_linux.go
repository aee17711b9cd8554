package device

import (
	"context"
	"fmt"
	"os/exec"

	"golang.org/x/sys/unix"
)

// Unmount detaches every mounted filesystem on the device.
func Unmount(d Device) error {
	for _, mp := range d.Mountpoints {
		if err := unix.Unmount(mp, 0); err != nil {
			return fmt.Errorf("unmounting %s: %w", mp, err)
		}
	}
	return nil
}

// Eject asks the kernel to release the medium so it can be removed.
// A system without the eject tool is not an error; the data is already
// synced by the time this runs.
func Eject(path string) error {
	ejectPath, err := exec.LookPath("eject")
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := exec.CommandContext(ctx, ejectPath, path).Run(); err != nil {
		return fmt.Errorf("eject %s: %w", path, err)
	}
	return nil
}

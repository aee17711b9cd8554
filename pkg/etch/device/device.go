// Package device enumerates block devices that can receive an image and
// watches for devices being attached or removed. Enumeration is platform
// specific; on unsupported platforms writes still work against an explicit
// target path, only discovery is unavailable.
package device

import (
	"errors"
	"fmt"
	"time"

	"github.com/jamesainslie/etch/pkg/etch/types"
)

// commandTimeout is the maximum time to wait for external disk tools.
const commandTimeout = 30 * time.Second

var (
	// ErrUnsupported is returned on platforms without device discovery.
	ErrUnsupported = errors.New("device enumeration not supported on this platform")
	// ErrNotFound is returned when a path does not match any known device.
	ErrNotFound = errors.New("device not found")
	// ErrNotRemovable is returned when writing to a fixed disk without an override.
	ErrNotRemovable = errors.New("device is not removable")
	// ErrMounted is returned when the target still has mounted filesystems.
	ErrMounted = errors.New("device has mounted filesystems")
	// ErrReadOnly is returned for write-protected media.
	ErrReadOnly = errors.New("device is read-only")
)

// Device describes a whole-disk block device.
type Device struct {
	Path        string
	Name        string
	Model       string
	Size        int64
	Removable   bool
	ReadOnly    bool
	Mountpoints []string
}

// Mounted reports whether the device or any of its partitions is mounted.
func (d Device) Mounted() bool {
	return len(d.Mountpoints) > 0
}

// String renders a short human-readable description.
func (d Device) String() string {
	model := d.Model
	if model == "" {
		model = "unknown model"
	}
	return fmt.Sprintf("%s (%s, %s)", d.Path, model, types.FormatSize(d.Size))
}

// List returns the whole-disk devices visible on this system.
func List() ([]Device, error) {
	return listPlatform()
}

// Find looks up a device by its path.
func Find(path string) (Device, error) {
	devices, err := List()
	if err != nil {
		return Device{}, err
	}
	for _, d := range devices {
		if d.Path == path {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("%w: %s", ErrNotFound, path)
}

// CheckTarget validates that a device is safe to overwrite. Non-removable
// devices are refused unless allowNonRemovable is set; mounted devices must
// be unmounted first.
func CheckTarget(d Device, allowNonRemovable bool) error {
	if d.ReadOnly {
		return fmt.Errorf("%w: %s", ErrReadOnly, d.Path)
	}
	if !d.Removable && !allowNonRemovable {
		return fmt.Errorf("%w: %s", ErrNotRemovable, d.Path)
	}
	if d.Mounted() {
		return fmt.Errorf("%w: %s", ErrMounted, d.Path)
	}
	return nil
}

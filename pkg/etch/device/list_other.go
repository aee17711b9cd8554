//go:build !linux && !darwin

package device

func listPlatform() ([]Device, error) {
	return nil, ErrUnsupported
}

func platformWatchTarget() (string, func(string) bool, error) {
	return "", nil, ErrUnsupported
}

// Unmount is unavailable on this platform.
func Unmount(Device) error {
	return ErrUnsupported
}

// Eject is unavailable on this platform.
func Eject(string) error {
	return ErrUnsupported
}

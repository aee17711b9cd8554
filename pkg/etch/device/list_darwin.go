package device

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"

	"golang.org/x/sys/unix"
)

// Whole disks only; partitions look like disk2s1.
var diskNameRE = regexp.MustCompile(`^disk[0-9]+$`)

func isDiskName(name string) bool {
	return diskNameRE.MatchString(name)
}

func platformWatchTarget() (string, func(string) bool, error) {
	return "/dev", isDiskName, nil
}

// DKIOCGETBLOCKSIZE and DKIOCGETBLOCKCOUNT from <sys/disk.h>.
const (
	dkiocGetBlockSize  = 0x40046418
	dkiocGetBlockCount = 0x40086419
)

func listPlatform() ([]Device, error) {
	matches, err := filepath.Glob("/dev/disk*")
	if err != nil {
		return nil, fmt.Errorf("globbing /dev: %w", err)
	}

	mounts := darwinMounts()

	var devices []Device
	for _, path := range matches {
		name := filepath.Base(path)
		if !isDiskName(name) {
			continue
		}
		devices = append(devices, Device{
			Path:        path,
			Name:        name,
			Size:        diskSize(path),
			Mountpoints: mountpointsFor(mounts, path),
		})
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].Name < devices[j].Name })
	return devices, nil
}

// diskSize reads the media size via DKIOC ioctls. Opening the raw device
// may require elevated privileges; callers treat 0 as unknown.
func diskSize(path string) int64 {
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return 0
	}
	defer unix.Close(fd)

	blockSize, err := unix.IoctlGetInt(fd, dkiocGetBlockSize)
	if err != nil {
		return 0
	}
	blockCount, err := unix.IoctlGetInt(fd, dkiocGetBlockCount)
	if err != nil {
		return 0
	}
	return int64(blockSize) * int64(blockCount)
}

// darwinMounts maps mount sources to mountpoints via getfsstat.
func darwinMounts() map[string][]string {
	n, err := unix.Getfsstat(nil, unix.MNT_NOWAIT)
	if err != nil || n == 0 {
		return nil
	}
	buf := make([]unix.Statfs_t, n)
	if _, err := unix.Getfsstat(buf, unix.MNT_NOWAIT); err != nil {
		return nil
	}

	mounts := make(map[string][]string)
	for _, fs := range buf {
		source := unix.ByteSliceToString(fs.Mntfromname[:])
		target := unix.ByteSliceToString(fs.Mntonname[:])
		if source == "" || target == "" {
			continue
		}
		mounts[source] = append(mounts[source], target)
	}
	return mounts
}

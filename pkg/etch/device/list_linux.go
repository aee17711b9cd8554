package device

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// /sys/block/<dev>/size is always in 512-byte units regardless of the
// device's logical block size.
const sectorSize = 512

// Whole disks only. Partitions (sdb1, mmcblk0p1, nvme0n1p2) never appear
// under /sys/block, but the same filter also guards hotplug events.
var diskNameRE = regexp.MustCompile(`^(sd[a-z]+|vd[a-z]+|mmcblk[0-9]+|nvme[0-9]+n[0-9]+)$`)

func isDiskName(name string) bool {
	return diskNameRE.MatchString(name)
}

func platformWatchTarget() (string, func(string) bool, error) {
	return "/dev", isDiskName, nil
}

func listPlatform() ([]Device, error) {
	return listSysBlock("/sys/block", "/dev", "/proc/mounts")
}

// listSysBlock scans a sysfs block directory. The roots are parameters so
// fixtures can stand in for the real filesystem.
func listSysBlock(sysBlock, devDir, mountsPath string) ([]Device, error) {
	entries, err := os.ReadDir(sysBlock)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", sysBlock, err)
	}

	// Mountpoints are advisory; a missing mounts table is not fatal.
	mounts := map[string][]string{}
	if f, err := os.Open(mountsPath); err == nil {
		mounts = parseMounts(f)
		f.Close()
	}

	var devices []Device
	for _, entry := range entries {
		name := entry.Name()
		if !isDiskName(name) {
			continue
		}

		dir := filepath.Join(sysBlock, name)
		sectors, err := readSysInt64(filepath.Join(dir, "size"))
		if err != nil {
			continue
		}

		devPath := filepath.Join(devDir, name)
		devices = append(devices, Device{
			Path:        devPath,
			Name:        name,
			Model:       readSysString(filepath.Join(dir, "device", "model")),
			Size:        sectors * sectorSize,
			Removable:   readSysFlag(filepath.Join(dir, "removable")),
			ReadOnly:    readSysFlag(filepath.Join(dir, "ro")),
			Mountpoints: mountpointsFor(mounts, devPath),
		})
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].Name < devices[j].Name })
	return devices, nil
}

func readSysInt64(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
}

func readSysFlag(path string) bool {
	v, err := readSysInt64(path)
	return err == nil && v == 1
}

func readSysString(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

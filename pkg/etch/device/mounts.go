package device

import (
	"bufio"
	"io"
	"sort"
	"strings"
)

// parseMounts reads an fstab-style mounts table and maps each /dev source
// to its mountpoints.
func parseMounts(r io.Reader) map[string][]string {
	mounts := make(map[string][]string)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 || !strings.HasPrefix(fields[0], "/dev/") {
			continue
		}
		// The kernel escapes spaces in mountpoints as \040.
		mp := strings.ReplaceAll(fields[1], `\040`, " ")
		mounts[fields[0]] = append(mounts[fields[0]], mp)
	}
	return mounts
}

// mountpointsFor collects the mountpoints of a disk and all its partitions.
func mountpointsFor(mounts map[string][]string, devPath string) []string {
	var mps []string
	for source, points := range mounts {
		if belongsTo(source, devPath) {
			mps = append(mps, points...)
		}
	}
	sort.Strings(mps)
	return mps
}

// belongsTo reports whether source names devPath itself or one of its
// partitions. Partition suffixes are a bare number when the disk name ends
// in a letter (sdb1), or pN/sN when it ends in a digit (mmcblk0p1, disk2s1).
// A bare number after a digit is a different disk (nvme0n1 vs nvme0n12).
func belongsTo(source, devPath string) bool {
	if source == devPath {
		return true
	}
	if !strings.HasPrefix(source, devPath) {
		return false
	}
	rest := source[len(devPath):]
	if isDigit(rest[0]) {
		return !isDigit(devPath[len(devPath)-1])
	}
	if len(rest) < 2 || !isDigit(rest[1]) {
		return false
	}
	return rest[0] == 'p' || rest[0] == 's'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// Package config provides configuration management for the etch image writer.
package config

// Default configuration values for etch.
const (
	// DefaultBlockSize is the block size used for device writes.
	DefaultBlockSize = "1MiB"

	// DefaultMinImageSize is the smallest file reported by image scans.
	DefaultMinImageSize = "4MiB"

	// DefaultConfigDir is the default configuration directory path.
	DefaultConfigDir = "~/.config/etch"

	// DefaultRetentionDays is the default number of days to retain write history.
	DefaultRetentionDays = 90

	// DefaultMinSyncInterval bounds the forced-flush byte interval from below.
	DefaultMinSyncInterval = "16MiB"

	// DefaultMaxSyncInterval bounds the forced-flush byte interval from above.
	DefaultMaxSyncInterval = "256MiB"
)

// DefaultImageDirs contains directories scanned for disk images by default.
var DefaultImageDirs = []string{
	"~/Downloads",
}

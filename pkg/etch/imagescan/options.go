// Package imagescan discovers OS images on local disks. It walks the
// configured directories in parallel and filters candidates by extension,
// size and age.
package imagescan

import (
	"time"

	"github.com/jamesainslie/etch/pkg/etch/config"
	"github.com/jamesainslie/etch/pkg/etch/types"
)

// Options configures a scan.
type Options struct {
	// Dirs are the directories to walk. Missing directories are recorded
	// as scan errors, not failures.
	Dirs []string

	// MinSize filters out files smaller than this many bytes. Partial
	// downloads and EFI stubs tend to sit below a few MiB.
	MinSize int64

	// MaxAge filters out files older than this. Zero keeps everything.
	MaxAge time.Duration

	// Match contains optional basename globs; when set, a candidate must
	// match at least one.
	Match []string

	// Exclude contains glob patterns or path prefixes to skip entirely.
	Exclude []string

	// OnProgress is called periodically with scan progress updates.
	// It must be safe to call from multiple goroutines.
	OnProgress func(Progress)
}

// DefaultOptions returns options with sensible defaults for most systems.
func DefaultOptions() Options {
	return Options{
		Dirs:    config.DefaultImageDirs,
		MinSize: 4 * types.MiB,
	}
}

// Validate checks the options and fills in defaults in place.
func (o *Options) Validate() error {
	if len(o.Dirs) == 0 {
		o.Dirs = config.DefaultImageDirs
	}
	if o.MinSize < 0 {
		o.MinSize = 0
	}
	if o.MaxAge < 0 {
		o.MaxAge = 0
	}
	return nil
}

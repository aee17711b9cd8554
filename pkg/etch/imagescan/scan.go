package imagescan

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/etch/pkg/etch/config"
)

// Image is a candidate image file found during a scan.
type Image struct {
	Path        string
	Size        int64
	ModTime     time.Time
	Compression string // "" for raw images
}

// ScanError records a path that could not be visited.
type ScanError struct {
	Path  string
	Error string
}

// Progress is a point-in-time snapshot of a running scan.
type Progress struct {
	DirsScanned  int64
	FilesScanned int64
	Matched      int64
	BytesMatched int64
	CurrentPath  string
}

// Result holds the outcome of a completed scan.
type Result struct {
	Images       []Image
	DirsScanned  int64
	FilesScanned int64
	Elapsed      time.Duration
	Errors       []ScanError
}

// Scanner performs parallel directory scanning using fastwalk.
type Scanner struct {
	opts Options

	// Atomic counters for thread-safe progress reporting.
	dirsScanned  atomic.Int64
	filesScanned atomic.Int64
	matched      atomic.Int64
	bytesMatched atomic.Int64

	// currentPath is the path currently being scanned (for progress).
	currentPath atomic.Value

	// lastProgress throttles progress callbacks.
	lastProgress atomic.Int64

	errors   []ScanError
	errorsMu sync.Mutex

	results   []Image
	resultsMu sync.Mutex
}

// New creates a Scanner with the given options. Defaults are applied.
func New(opts Options) *Scanner {
	_ = opts.Validate()

	s := &Scanner{
		opts:    opts,
		errors:  make([]ScanError, 0),
		results: make([]Image, 0),
	}
	s.currentPath.Store("")
	return s
}

// Scan walks the configured directories and returns matching images sorted
// by size descending. It blocks until complete or the context is cancelled.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	start := time.Now()

	roots := s.resolveRoots()
	s.reportProgressForce()

	conf := fastwalk.Config{
		Follow: false, // Don't follow symlinks.
	}

	for _, root := range roots {
		err := fastwalk.Walk(&conf, root, s.walkCallback(ctx.Done()))
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, fastwalk.ErrSkipFiles) {
			s.addError(root, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.resultsMu.Lock()
	sort.Slice(s.results, func(i, j int) bool { return s.results[i].Size > s.results[j].Size })
	images := s.results
	s.resultsMu.Unlock()

	s.reportProgressForce()

	return &Result{
		Images:       images,
		DirsScanned:  s.dirsScanned.Load(),
		FilesScanned: s.filesScanned.Load(),
		Elapsed:      time.Since(start),
		Errors:       s.errors,
	}, nil
}

// resolveRoots expands and validates the configured directories. Unusable
// entries are recorded and skipped so one missing directory does not hide
// images in the others.
func (s *Scanner) resolveRoots() []string {
	var roots []string
	for _, dir := range s.opts.Dirs {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			s.addError(dir, err)
			continue
		}
		abs, err := filepath.Abs(expanded)
		if err != nil {
			s.addError(dir, err)
			continue
		}
		info, err := os.Stat(abs)
		if err != nil {
			s.addError(abs, err)
			continue
		}
		if !info.IsDir() {
			s.addError(abs, os.ErrInvalid)
			continue
		}
		roots = append(roots, abs)
	}
	return roots
}

// walkCallback returns the callback function for fastwalk.Walk.
func (s *Scanner) walkCallback(done <-chan struct{}) fs.WalkDirFunc {
	return func(path string, d fs.DirEntry, err error) error {
		select {
		case <-done:
			return fastwalk.ErrSkipFiles
		default:
		}

		// Handle errors gracefully - log and continue.
		if err != nil {
			s.addError(path, err)
			return nil
		}

		if s.isExcluded(path) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			s.dirsScanned.Add(1)
			s.currentPath.Store(path)
			s.reportProgress()
			return nil
		}

		if d.Type().IsRegular() {
			s.processFile(path, d)
		}

		return nil
	}
}

// processFile filters a regular file against the image criteria.
func (s *Scanner) processFile(path string, d fs.DirEntry) {
	s.filesScanned.Add(1)

	name := filepath.Base(path)
	compression, ok := classify(name)
	if !ok {
		return
	}
	if !s.matchesName(name) {
		return
	}

	info, err := d.Info()
	if err != nil {
		s.addError(path, err)
		return
	}

	if info.Size() < s.opts.MinSize {
		return
	}
	if s.opts.MaxAge > 0 && time.Since(info.ModTime()) > s.opts.MaxAge {
		return
	}

	s.matched.Add(1)
	s.bytesMatched.Add(info.Size())

	s.resultsMu.Lock()
	s.results = append(s.results, Image{
		Path:        path,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		Compression: compression,
	})
	s.resultsMu.Unlock()

	s.reportProgress()
}

// classify reports whether a filename looks like a disk image and names its
// compression wrapper, if any. A compressed candidate still needs an image
// extension underneath (ubuntu.img.gz yes, ubuntu.gz no).
func classify(name string) (compression string, ok bool) {
	lower := strings.ToLower(name)

	ext := filepath.Ext(lower)
	switch ext {
	case ".gz", ".gzip":
		compression = "gzip"
	case ".zst", ".zstd":
		compression = "zstd"
	case ".xz":
		compression = "xz"
	case ".bz2":
		compression = "bzip2"
	}
	if compression != "" {
		lower = strings.TrimSuffix(lower, ext)
		ext = filepath.Ext(lower)
	}

	switch ext {
	case ".img", ".iso", ".raw", ".wic", ".dmg":
		return compression, true
	}
	return "", false
}

// matchesName applies the optional Match globs against a basename.
func (s *Scanner) matchesName(name string) bool {
	if len(s.opts.Match) == 0 {
		return true
	}
	for _, pattern := range s.opts.Match {
		if matched, err := filepath.Match(pattern, name); err == nil && matched {
			return true
		}
	}
	return false
}

// isExcluded checks if a path matches any exclusion pattern.
func (s *Scanner) isExcluded(path string) bool {
	for _, pattern := range s.opts.Exclude {
		if matchesExclusionPattern(path, pattern) {
			return true
		}
	}
	return false
}

// matchesExclusionPattern checks if a path matches a single exclusion
// pattern, either as a path prefix or as a glob.
func matchesExclusionPattern(path, pattern string) bool {
	if pattern == "" {
		return false
	}

	if path == pattern {
		return true
	}
	if len(path) > len(pattern) && path[:len(pattern)+1] == pattern+string(filepath.Separator) {
		return true
	}

	if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
		return true
	}
	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}

	return false
}

// addError adds an error to the error list thread-safely.
func (s *Scanner) addError(path string, err error) {
	s.errorsMu.Lock()
	s.errors = append(s.errors, ScanError{Path: path, Error: err.Error()})
	s.errorsMu.Unlock()
}

// reportProgress calls the progress callback if configured, throttled to
// every 10ms to keep callback overhead off the walk path.
func (s *Scanner) reportProgress() {
	if s.opts.OnProgress == nil {
		return
	}

	now := time.Now().UnixMilli()
	last := s.lastProgress.Load()
	if now-last < 10 {
		return
	}
	if !s.lastProgress.CompareAndSwap(last, now) {
		return // Another goroutine updated it.
	}

	s.sendProgress()
}

// reportProgressForce bypasses the throttle for scan start/end.
func (s *Scanner) reportProgressForce() {
	if s.opts.OnProgress == nil {
		return
	}
	s.lastProgress.Store(time.Now().UnixMilli())
	s.sendProgress()
}

func (s *Scanner) sendProgress() {
	currentPath, _ := s.currentPath.Load().(string)

	s.opts.OnProgress(Progress{
		DirsScanned:  s.dirsScanned.Load(),
		FilesScanned: s.filesScanned.Load(),
		Matched:      s.matched.Load(),
		BytesMatched: s.bytesMatched.Load(),
		CurrentPath:  currentPath,
	})
}

// Package output provides formatters for displaying discovered images in
// various output formats (pretty, plain, json, yaml, etc.).
//
// The package uses a registry pattern to allow registration of multiple
// formatter implementations that can be selected at runtime.
//
// Basic usage:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, report); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Image contains the fields formatters render for one discovered image.
type Image struct {
	// Path is the absolute path to the image file.
	Path string `json:"path" yaml:"path"`

	// Name is the base name of the file.
	Name string `json:"name" yaml:"name"`

	// Dir is the directory containing the file.
	Dir string `json:"dir" yaml:"dir"`

	// Size is the file size in bytes.
	Size int64 `json:"size" yaml:"size"`

	// SizeHuman is the human-readable file size (e.g., "1.5 GiB").
	SizeHuman string `json:"size_human" yaml:"size_human"`

	// Compression names the outer encoding ("gzip", "zstd"), empty for raw.
	Compression string `json:"compression,omitempty" yaml:"compression,omitempty"`

	// ModTime is the last modification time of the file.
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`

	// Age is the time since the file was last modified.
	Age time.Duration `json:"age" yaml:"age"`
}

// ScanStats contains statistics about a scan operation.
type ScanStats struct {
	// DirsScanned is the total number of directories traversed.
	DirsScanned int64 `json:"dirs_scanned" yaml:"dirs_scanned"`

	// FilesScanned is the total number of files examined.
	FilesScanned int64 `json:"files_scanned" yaml:"files_scanned"`

	// Duration is the total time taken to complete the scan.
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Report contains the complete output data for formatting.
type Report struct {
	// Images contains the discovered images, sorted by size descending.
	Images []Image `json:"images" yaml:"images"`

	// Stats contains scan statistics.
	Stats ScanStats `json:"stats" yaml:"stats"`

	// Sources are the directories that were scanned.
	Sources []string `json:"sources" yaml:"sources"`

	// TotalImages is the number of images in the report.
	TotalImages int `json:"total_images" yaml:"total_images"`

	// Warnings contains any warning messages generated during the scan.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// TotalSize returns the sum of all image sizes in the report.
func (r *Report) TotalSize() int64 {
	var total int64
	for _, img := range r.Images {
		total += img.Size
	}
	return total
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	// It returns an error if formatting fails.
	Format(w *bytes.Buffer, r *Report) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
// It returns an error if the formatter is not found.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}

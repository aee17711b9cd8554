package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/etch/pkg/etch/checksum"
	"github.com/jamesainslie/etch/pkg/etch/config"
	"github.com/jamesainslie/etch/pkg/etch/imagescan"
	"github.com/jamesainslie/etch/pkg/etch/output"
	"github.com/jamesainslie/etch/pkg/etch/types"
)

var imagesCmd = &cobra.Command{
	Use:   "images [dir...]",
	Short: "Find OS images on local disks",
	Long: `Find OS images under the given directories.

Without arguments the configured image directories are scanned
(~/Downloads by default). Raw, gzip and zstd images are recognized by
extension and filtered by size.

Examples:
  etch images
  etch images ~/Downloads /mnt/isos
  etch images --min-size 100MiB --max-age 30d
  etch images -o json
  etch images --checksum`,
	RunE: runImages,
}

func init() {
	imagesCmd.Flags().StringVarP(&imagesOutput, "output", "o", "pretty", "output format (pretty, plain, json, jsonl, yaml, tsv, csv, markdown)")
	imagesCmd.Flags().StringVar(&imagesMinSize, "min-size", "", "minimum image size (e.g. 100MiB)")
	imagesCmd.Flags().StringVar(&imagesMaxAge, "max-age", "", "skip images older than this (e.g. 30d)")
	imagesCmd.Flags().StringSliceVar(&imagesMatch, "match", nil, "only include basenames matching these globs")
	imagesCmd.Flags().StringSliceVar(&imagesExclude, "exclude", nil, "glob patterns or path prefixes to skip")
	imagesCmd.Flags().BoolVar(&imagesChecksum, "checksum", false, "print cached SHA-256 digests instead of the report")

	rootCmd.AddCommand(imagesCmd)
}

// runImages is the images command handler.
func runImages(_ *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Determine scan roots
	dirs := args
	if len(dirs) == 0 {
		dirs = cfg.Images.Dirs
	}

	// Parse minimum size
	minSizeStr := imagesMinSize
	if minSizeStr == "" {
		minSizeStr = cfg.Images.MinSize
	}
	if minSizeStr == "" {
		minSizeStr = config.DefaultMinImageSize
	}

	minSize, err := types.ParseSize(minSizeStr)
	if err != nil {
		return fmt.Errorf("invalid minimum size %q: %w", minSizeStr, err)
	}

	var maxAge time.Duration
	if imagesMaxAge != "" {
		maxAge, err = types.ParseDuration(imagesMaxAge)
		if err != nil {
			return fmt.Errorf("invalid max age %q: %w", imagesMaxAge, err)
		}
	}

	// Resolve the formatter before scanning so a bad name fails fast
	formatter, err := output.Get(imagesOutput)
	if err != nil {
		return fmt.Errorf("unknown output format %q: available formats are %v", imagesOutput, output.Available())
	}

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	interrupted := false
	go func() {
		<-sigChan
		printInfo("\nInterrupted, stopping scan...")
		interrupted = true
		cancel()
	}()

	if !getQuiet() {
		printInfo("Scanning %d directories for images >= %s...", len(dirs), types.FormatSize(minSize))
	}

	s := imagescan.New(imagescan.Options{
		Dirs:    dirs,
		MinSize: minSize,
		MaxAge:  maxAge,
		Match:   imagesMatch,
		Exclude: imagesExclude,
	})

	result, err := s.Scan(ctx)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			printInfo("Scan cancelled")
			return nil
		}
		return fmt.Errorf("scan failed: %w", err)
	}

	if imagesChecksum {
		return printChecksums(ctx, cfg, result.Images)
	}

	report := buildImageReport(result, dirs, interrupted)

	// Output results
	var buf bytes.Buffer
	if err := formatter.Format(&buf, report); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Print(buf.String())

	return nil
}

// buildImageReport converts scan results into the formatters' shape.
func buildImageReport(r *imagescan.Result, sources []string, interrupted bool) *output.Report {
	images := make([]output.Image, len(r.Images))
	now := time.Now()
	for i, img := range r.Images {
		images[i] = output.Image{
			Path:        img.Path,
			Name:        filepath.Base(img.Path),
			Dir:         filepath.Dir(img.Path),
			Size:        img.Size,
			SizeHuman:   types.FormatSize(img.Size),
			Compression: img.Compression,
			ModTime:     img.ModTime,
			Age:         now.Sub(img.ModTime),
		}
	}

	// Build warnings from errors
	var warnings []string
	for _, e := range r.Errors {
		warnings = append(warnings, fmt.Sprintf("%s: %s", e.Path, e.Error))
	}
	if interrupted {
		warnings = append(warnings, "scan interrupted, results may be incomplete")
	}

	return &output.Report{
		Images: images,
		Stats: output.ScanStats{
			DirsScanned:  r.DirsScanned,
			FilesScanned: r.FilesScanned,
			Duration:     r.Elapsed,
		},
		Sources:     sources,
		TotalImages: len(images),
		Warnings:    warnings,
	}
}

// printChecksums prints sha256sum-compatible lines for each image. Digests
// come from the checksum cache, so unchanged files are not rehashed.
func printChecksums(ctx context.Context, cfg *config.Config, images []imagescan.Image) error {
	if !cfg.Checksum.Enabled {
		return errors.New("the checksum cache is disabled in configuration")
	}

	dbPath := cfg.Checksum.Path
	if dbPath == "" {
		dbPath = config.DefaultChecksumDBPath()
	}

	cache, err := checksum.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open checksum cache: %w", err)
	}
	defer cache.Close()

	for _, img := range images {
		sum, err := cache.SumFile(ctx, img.Path)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				printInfo("Checksum cancelled")
				return nil
			}
			printError("%s: %v", img.Path, err)
			continue
		}
		fmt.Printf("%s  %s\n", sum, img.Path)
	}

	return nil
}

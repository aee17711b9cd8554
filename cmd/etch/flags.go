package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jamesainslie/etch/pkg/etch/config"
	"github.com/jamesainslie/etch/pkg/etch/syncpolicy"
	"github.com/jamesainslie/etch/pkg/etch/types"
)

// Write command flags.
var (
	writeTo                string
	writeYes               bool
	writeVerify            bool
	writeEject             bool
	writeAllowNonRemovable bool
	writeBlockSize         string
	writeSyncBytes         string
	writeSyncEvery         string
	writeAssumeMB          int64
)

// Images command flags.
var (
	imagesOutput   string
	imagesMinSize  string
	imagesMaxAge   string
	imagesMatch    []string
	imagesExclude  []string
	imagesChecksum bool
)

// resolveBlockSize picks the copy block size: flag value first, then the
// config file, then the built-in default.
func resolveBlockSize(flagVal, cfgVal string) (int64, error) {
	s := flagVal
	if s == "" {
		s = cfgVal
	}
	if s == "" {
		s = config.DefaultBlockSize
	}

	n, err := types.ParseSize(s)
	if err != nil {
		return 0, fmt.Errorf("invalid block size %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid block size %q: must be positive", s)
	}
	return n, nil
}

// applySyncOverrides lets flags replace the derived flush thresholds while
// keeping the tier and detected total for reporting.
func applySyncOverrides(cfg syncpolicy.SyncConfig, bytesStr, everyStr string) (syncpolicy.SyncConfig, error) {
	if bytesStr != "" {
		n, err := types.ParseSize(bytesStr)
		if err != nil {
			return cfg, fmt.Errorf("invalid sync-bytes %q: %w", bytesStr, err)
		}
		if n <= 0 {
			return cfg, fmt.Errorf("invalid sync-bytes %q: must be positive", bytesStr)
		}
		cfg.IntervalBytes = n
	}

	if everyStr != "" {
		d, err := types.ParseDuration(everyStr)
		if err != nil {
			return cfg, fmt.Errorf("invalid sync-every %q: %w", everyStr, err)
		}
		if d <= 0 {
			return cfg, fmt.Errorf("invalid sync-every %q: must be positive", everyStr)
		}
		cfg.Interval = d
	}

	return cfg, nil
}

// confirmWrite requires the operator to type the target name back before a
// destructive write proceeds. Anything else aborts.
func confirmWrite(in io.Reader, out io.Writer, expected string) error {
	fmt.Fprintf(out, "Type %q to continue, anything else aborts: ", expected)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading confirmation: %w", err)
	}

	if strings.TrimSpace(line) != expected {
		return errors.New("confirmation did not match, aborting")
	}
	return nil
}

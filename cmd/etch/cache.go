package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/etch/pkg/etch/checksum"
	"github.com/jamesainslie/etch/pkg/etch/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the checksum cache",
	Long: `Commands for managing the image checksum cache.

The cache stores SHA-256 digests of images so repeat writes and
'etch images --checksum' do not rehash unchanged files. Digests live in
the XDG cache directory (typically ~/.cache/etch/checksums).`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all cached digests",
	Long:  `Removes all cached digests. Later checksum requests rehash from scratch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := checksumDBPath()

		// Check if cache exists
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			fmt.Println("Cache is already empty.")
			return nil
		}

		cache, err := checksum.Open(dbPath)
		if err != nil {
			// The store may be damaged; removing the directory clears it too.
			if rmErr := os.RemoveAll(dbPath); rmErr != nil {
				return fmt.Errorf("failed to clear cache: %w", rmErr)
			}
			fmt.Println("Cache cleared.")
			return nil
		}
		defer cache.Close()

		if err := cache.Clear(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}

		fmt.Println("Cache cleared.")
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Long:  `Displays information about the cache including its location, size, and entry count.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := checksumDBPath()

		info, err := os.Stat(dbPath)
		if os.IsNotExist(err) {
			fmt.Println("Cache: empty (no cache directory)")
			fmt.Printf("Cache location: %s\n", dbPath)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to stat cache: %w", err)
		}

		cache, err := checksum.Open(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer cache.Close()

		stats, err := cache.Stats()
		if err != nil {
			return fmt.Errorf("failed to read cache stats: %w", err)
		}

		// Get directory size
		var size int64
		var fileCount int
		err = filepath.Walk(dbPath, func(_ string, info os.FileInfo, err error) error {
			if err == nil && !info.IsDir() {
				size += info.Size()
				fileCount++
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to calculate cache size: %w", err)
		}

		fmt.Printf("Cache location: %s\n", dbPath)
		fmt.Printf("Stored digests: %d\n", stats.Entries)
		fmt.Printf("Cache size: %.2f MB\n", float64(size)/1024/1024)
		fmt.Printf("Cache files: %d\n", fileCount)
		fmt.Printf("Last modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))

		return nil
	},
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show cache location",
	Long:  `Prints the path to the checksum cache directory.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(checksumDBPath())
	},
}

// checksumDBPath resolves the cache directory from configuration.
func checksumDBPath() string {
	cfg, err := config.Load()
	if err == nil && cfg.Checksum.Path != "" {
		return cfg.Checksum.Path
	}
	return config.DefaultChecksumDBPath()
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePathCmd)
	rootCmd.AddCommand(cacheCmd)
}

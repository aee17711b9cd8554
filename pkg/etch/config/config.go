package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/jamesainslie/etch/pkg/etch/syncpolicy"
	"github.com/jamesainslie/etch/pkg/etch/types"
)

// ErrInvalidPolicy reports a sync section that violates the policy invariants.
var ErrInvalidPolicy = errors.New("invalid sync policy")

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// WriteConfig configures the write pipeline.
type WriteConfig struct {
	BlockSize         string `mapstructure:"block_size"`
	Verify            bool   `mapstructure:"verify"`
	Eject             bool   `mapstructure:"eject"`
	AllowNonRemovable bool   `mapstructure:"allow_non_removable"`
}

// SyncConfig configures the memory-tiered sync policy. Thresholds are in MB
// of total system memory; the interval bounds are human-readable byte sizes.
type SyncConfig struct {
	LowThresholdMB  int64  `mapstructure:"low_threshold_mb"`
	HighThresholdMB int64  `mapstructure:"high_threshold_mb"`
	MinInterval     string `mapstructure:"min_interval"`
	MaxInterval     string `mapstructure:"max_interval"`
	FallbackTotalMB int64  `mapstructure:"fallback_total_mb"`
}

// ImagesConfig configures image discovery.
type ImagesConfig struct {
	Dirs    []string `mapstructure:"dirs"`
	MinSize string   `mapstructure:"min_size"`
}

// HistoryConfig configures the write-session history.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// ChecksumConfig configures the image digest cache.
type ChecksumConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// TUIConfig configures the interactive progress UI.
type TUIConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Config represents the application configuration.
type Config struct {
	Write    WriteConfig    `mapstructure:"write"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Images   ImagesConfig   `mapstructure:"images"`
	History  HistoryConfig  `mapstructure:"history"`
	Checksum ChecksumConfig `mapstructure:"checksum"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	TUI      TUIConfig      `mapstructure:"tui"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/etch/config.yaml
//   - $HOME/.config/etch/config.yaml
//
// Environment variables are prefixed with ETCH_ (e.g., ETCH_WRITE_VERIFY).
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and type
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Add config paths
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "etch"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "etch"))

	// Set environment variable prefix and enable auto env binding
	v.SetEnvPrefix("ETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Write defaults
	v.SetDefault("write.block_size", DefaultBlockSize)
	v.SetDefault("write.verify", false)
	v.SetDefault("write.eject", false)
	v.SetDefault("write.allow_non_removable", false)

	// Sync policy defaults mirror the engine's canonical values so the
	// config file documents what actually runs.
	v.SetDefault("sync.low_threshold_mb", syncpolicy.DefaultLowMemoryThresholdMB)
	v.SetDefault("sync.high_threshold_mb", syncpolicy.DefaultHighMemoryThresholdMB)
	v.SetDefault("sync.min_interval", DefaultMinSyncInterval)
	v.SetDefault("sync.max_interval", DefaultMaxSyncInterval)
	v.SetDefault("sync.fallback_total_mb", syncpolicy.DefaultFallbackTotalMemoryMB)

	// Image discovery defaults
	v.SetDefault("images.dirs", DefaultImageDirs)
	v.SetDefault("images.min_size", DefaultMinImageSize)

	// History defaults
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "") // Empty means use DefaultHistoryDir
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	// Checksum cache defaults
	v.SetDefault("checksum.enabled", true)
	v.SetDefault("checksum.path", "") // Empty means use DefaultChecksumDBPath

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"writer":     "info",
		"device":     "warn",
		"syncpolicy": "info",
		"tui":        "info",
	})

	// TUI defaults
	v.SetDefault("tui.enabled", true)

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is acceptable; we use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Expand ~ in user-supplied paths
	if strings.HasPrefix(cfg.History.Path, "~") {
		cfg.History.Path = filepath.Join(homeDir, cfg.History.Path[1:])
	}
	if strings.HasPrefix(cfg.Checksum.Path, "~") {
		cfg.Checksum.Path = filepath.Join(homeDir, cfg.Checksum.Path[1:])
	}
	for i, dir := range cfg.Images.Dirs {
		if strings.HasPrefix(dir, "~") {
			cfg.Images.Dirs[i] = filepath.Join(homeDir, dir[1:])
		}
	}

	return &cfg, nil
}

// SyncPolicy builds the engine policy from the sync section. Unset fields
// keep the canonical defaults; set fields must respect the ordering
// invariants or the whole section is rejected.
func (c *Config) SyncPolicy() (syncpolicy.Policy, error) {
	p := syncpolicy.DefaultPolicy()

	if c.Sync.LowThresholdMB != 0 {
		p.LowMemoryThresholdMB = c.Sync.LowThresholdMB
	}
	if c.Sync.HighThresholdMB != 0 {
		p.HighMemoryThresholdMB = c.Sync.HighThresholdMB
	}
	if c.Sync.FallbackTotalMB != 0 {
		p.FallbackTotalMemoryMB = c.Sync.FallbackTotalMB
	}
	if c.Sync.MinInterval != "" {
		n, err := types.ParseSize(c.Sync.MinInterval)
		if err != nil {
			return p, fmt.Errorf("invalid sync.min_interval: %w", err)
		}
		p.MinSyncIntervalBytes = n
	}
	if c.Sync.MaxInterval != "" {
		n, err := types.ParseSize(c.Sync.MaxInterval)
		if err != nil {
			return p, fmt.Errorf("invalid sync.max_interval: %w", err)
		}
		p.MaxSyncIntervalBytes = n
	}

	if p.LowMemoryThresholdMB >= p.HighMemoryThresholdMB {
		return p, fmt.Errorf("%w: low threshold %d MB must be below high threshold %d MB",
			ErrInvalidPolicy, p.LowMemoryThresholdMB, p.HighMemoryThresholdMB)
	}
	if p.MinSyncIntervalBytes <= 0 || p.MinSyncIntervalBytes > p.MaxSyncIntervalBytes {
		return p, fmt.Errorf("%w: byte interval bounds [%d, %d] are not ordered",
			ErrInvalidPolicy, p.MinSyncIntervalBytes, p.MaxSyncIntervalBytes)
	}
	if p.FallbackTotalMemoryMB <= 0 {
		return p, fmt.Errorf("%w: fallback total %d MB must be positive",
			ErrInvalidPolicy, p.FallbackTotalMemoryMB)
	}

	return p, nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	// Check XDG_CONFIG_HOME first
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "etch"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "etch"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a default config file if none exists.
// Returns nil if a config file already exists.
func WriteDefault() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configDir, err := ConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.yaml")

	// Check if config file already exists
	if _, err := os.Stat(configPath); err == nil {
		// Config file exists, do nothing
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# Etch Image Writer Configuration

# Write pipeline settings
write:
  # Block size for device writes
  block_size: %s
  # Read the device back after writing and compare against the source digest
  verify: false
  # Eject the target device after a successful write
  eject: false
  # Allow writing to non-removable devices
  allow_non_removable: false

# Memory-tiered sync policy. The writer forces a flush to the device when
# either the byte threshold or the time threshold derived from total system
# memory is reached.
sync:
  # Tier boundaries in MB of total system memory
  low_threshold_mb: %d
  high_threshold_mb: %d
  # Clamp applied to the computed byte interval
  min_interval: %s
  max_interval: %s
  # Assumed total memory in MB when detection fails
  fallback_total_mb: %d

# Image discovery for the images command
images:
  dirs:
    - ~/Downloads
  min_size: %s

# Write-session history
history:
  enabled: true
  # History directory (empty means use default: $XDG_DATA_HOME/etch/history)
  path: ""
  retention_days: %d

# Image checksum cache
checksum:
  enabled: true
  # Cache directory (empty means use default: $XDG_CACHE_HOME/etch/checksums)
  path: ""

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/etch/etch.log)
  path: ""
  # Log rotation settings
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  # Per-component log levels
  components:
    writer: info
    device: warn
    syncpolicy: info
    tui: info

# Interactive progress UI for the write command
tui:
  enabled: true
`, DefaultBlockSize,
		syncpolicy.DefaultLowMemoryThresholdMB, syncpolicy.DefaultHighMemoryThresholdMB,
		DefaultMinSyncInterval, DefaultMaxSyncInterval,
		syncpolicy.DefaultFallbackTotalMemoryMB,
		DefaultMinImageSize, DefaultRetentionDays)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/etch/ for history files.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "etch")
}

// StateDir returns $XDG_STATE_HOME/etch/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "etch")
}

// CacheDir returns $XDG_CACHE_HOME/etch/ for the checksum cache.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, "etch")
}

// DefaultHistoryDir returns the default write-history directory.
func DefaultHistoryDir() string {
	return filepath.Join(DataDir(), "history")
}

// DefaultChecksumDBPath returns the default checksum cache directory.
func DefaultChecksumDBPath() string {
	return filepath.Join(CacheDir(), "checksums")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "etch.log")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}

// EnsureCacheDir creates the cache directory if it doesn't exist.
func EnsureCacheDir() error {
	if err := os.MkdirAll(CacheDir(), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	return nil
}

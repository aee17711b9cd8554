package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/etch/pkg/etch/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage etch configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/etch/config.yaml (if set)
  2. ~/.config/etch/config.yaml

Environment variables can override config file settings using the ETCH_ prefix:
  ETCH_WRITE_VERIFY=true
  ETCH_SYNC_MAX_INTERVAL=128MiB
  ETCH_IMAGES_DIRS=~/Downloads,~/isos`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Show config file being used
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		fmt.Printf("Config file: %s\n\n", configFile)
	} else {
		fmt.Println("Config file: (using defaults, no file found)")
		fmt.Println()
	}

	// Display configuration
	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("write.block_size:           %s\n", cfg.Write.BlockSize)
	fmt.Printf("write.verify:               %t\n", cfg.Write.Verify)
	fmt.Printf("write.eject:                %t\n", cfg.Write.Eject)
	fmt.Printf("write.allow_non_removable:  %t\n", cfg.Write.AllowNonRemovable)
	fmt.Printf("sync.low_threshold_mb:      %d\n", cfg.Sync.LowThresholdMB)
	fmt.Printf("sync.high_threshold_mb:     %d\n", cfg.Sync.HighThresholdMB)
	fmt.Printf("sync.min_interval:          %s\n", cfg.Sync.MinInterval)
	fmt.Printf("sync.max_interval:          %s\n", cfg.Sync.MaxInterval)
	fmt.Printf("sync.fallback_total_mb:     %d\n", cfg.Sync.FallbackTotalMB)
	fmt.Printf("images.dirs:                %v\n", cfg.Images.Dirs)
	fmt.Printf("images.min_size:            %s\n", cfg.Images.MinSize)
	fmt.Printf("history.enabled:            %t\n", cfg.History.Enabled)
	fmt.Printf("history.path:               %s\n", orDefault(cfg.History.Path, config.DefaultHistoryDir()))
	fmt.Printf("history.retention_days:     %d days\n", cfg.History.RetentionDays)
	fmt.Printf("checksum.enabled:           %t\n", cfg.Checksum.Enabled)
	fmt.Printf("checksum.path:              %s\n", orDefault(cfg.Checksum.Path, config.DefaultChecksumDBPath()))
	fmt.Printf("logging.level:              %s\n", cfg.Logging.Level)
	fmt.Printf("logging.path:               %s\n", orDefault(cfg.Logging.Path, config.DefaultLogPath()))
	fmt.Printf("tui.enabled:                %t\n", cfg.TUI.Enabled)

	// Show any environment overrides
	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	envVars := []string{
		"ETCH_WRITE_BLOCK_SIZE",
		"ETCH_WRITE_VERIFY",
		"ETCH_WRITE_EJECT",
		"ETCH_WRITE_ALLOW_NON_REMOVABLE",
		"ETCH_SYNC_LOW_THRESHOLD_MB",
		"ETCH_SYNC_HIGH_THRESHOLD_MB",
		"ETCH_SYNC_MIN_INTERVAL",
		"ETCH_SYNC_MAX_INTERVAL",
		"ETCH_SYNC_FALLBACK_TOTAL_MB",
		"ETCH_IMAGES_DIRS",
		"ETCH_IMAGES_MIN_SIZE",
		"ETCH_HISTORY_ENABLED",
		"ETCH_HISTORY_PATH",
		"ETCH_HISTORY_RETENTION_DAYS",
		"ETCH_CHECKSUM_ENABLED",
		"ETCH_CHECKSUM_PATH",
		"ETCH_LOGGING_LEVEL",
		"ETCH_LOGGING_PATH",
		"ETCH_TUI_ENABLED",
	}

	anyOverrides := false
	for _, name := range envVars {
		if val := os.Getenv(name); val != "" {
			fmt.Printf("%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Println("(none)")
	}

	return nil
}

// orDefault substitutes the computed default for an unset path setting.
func orDefault(val, def string) string {
	if val == "" {
		return def
	}
	return val
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(cmd *cobra.Command, args []string) error {
	// Ensure config file exists
	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	// Get config file path
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	// Determine editor
	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", configPath, editor)

	// Open editor
	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}

	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'etch config edit' to modify it.")
		return nil
	}

	// Create default config
	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	fmt.Println(configPath)

	// Show if file exists
	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}

	return nil
}

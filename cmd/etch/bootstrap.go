package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/etch/pkg/etch/config"
	"github.com/jamesainslie/etch/pkg/etch/logging"
	"github.com/jamesainslie/etch/pkg/etch/types"
)

// initializeLogging is the PersistentPreRunE hook for all commands. It
// creates the XDG directories etch writes into and brings up the file
// logger from the loaded configuration.
func initializeLogging(_ *cobra.Command, _ []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := config.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := config.EnsureStateDir(); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := config.EnsureCacheDir(); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	logCfg := buildLoggingConfig()
	if err := logging.Init(logCfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	return nil
}

// initTUILogging re-initializes logging for TUI mode: file logging stays
// on, console output is suppressed while the TUI owns the terminal.
func initTUILogging() error {
	logCfg := buildLoggingConfig()
	logCfg.TUIMode = true
	if err := logging.Init(logCfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return nil
}

// buildLoggingConfig assembles the logging configuration from the config
// file, falling back to defaults when the file cannot be loaded.
func buildLoggingConfig() logging.Config {
	logCfg := logging.DefaultConfig()

	cfg, err := config.Load()
	if err == nil {
		if cfg.Logging.Level != "" {
			logCfg.Level = cfg.Logging.Level
		}
		if cfg.Logging.Path != "" {
			logCfg.Path = cfg.Logging.Path
		}
		logCfg.Rotation = parseRotationConfig(cfg.Logging.Rotation)
		logCfg.Components = cfg.Logging.Components
	}

	// Verbose mode mirrors debug logs onto stderr.
	if getVerbose() {
		logCfg.Level = "debug"
		logCfg.ConsoleLevel = "debug"
	}

	return logCfg
}

// parseRotationConfig converts the string-based rotation settings from the
// config file into the logging package's byte-based form. An empty or
// unparseable max_size falls back to the rotation default.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	maxSize := logging.DefaultRotationConfig().MaxSize
	if rc.MaxSize != "" {
		if n, err := types.ParseSize(rc.MaxSize); err == nil {
			maxSize = n
		}
	}

	return logging.RotationConfig{
		MaxSize:    maxSize,
		MaxAge:     rc.MaxAge,
		MaxBackups: rc.MaxBackups,
		Daily:      rc.Daily,
	}
}

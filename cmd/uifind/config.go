package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/gnana997/uifind/pkg/util"
)

// ProjectConfig holds the contents of .uifind/config.yaml.
type ProjectConfig struct {
	Version      string   `yaml:"version"`
	SnapshotPath string   `yaml:"snapshot_path"`
	Include      []string `yaml:"include"`
	Exclude      []string `yaml:"exclude"`
	LogLevel     string   `yaml:"log_level"`
	LogFormat    string   `yaml:"log_format"`
	MCPLogPath   string   `yaml:"mcp_log_path"`
}

// configFileName is the project config path, relative to each directory
// searched.
const configFileName = ".uifind/config.yaml"

// loadProjectConfig reads .uifind/config.yaml from the working directory or
// the nearest ancestor holding one, so commands work from anywhere inside a
// project. Returns nil (no error) if no config file exists.
func loadProjectConfig() (*ProjectConfig, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	for {
		data, err := os.ReadFile(filepath.Join(dir, configFileName))
		if err == nil {
			var cfg ProjectConfig
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, err
			}
			return &cfg, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// resolveSnapshotPath returns the snapshot path to use, applying the
// fallback chain:
//  1. Explicit --snapshot flag value (non-empty override)
//  2. snapshot_path from .uifind/config.yaml
//  3. Empty: commands fall back to the embedded demo snapshot
func resolveSnapshotPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if cfg, err := loadProjectConfig(); err == nil && cfg != nil && cfg.SnapshotPath != "" {
		return cfg.SnapshotPath
	}
	return ""
}

// newLogger builds the CLI logger on stderr. Stdout stays reserved for
// command output and the MCP stdio transport.
func newLogger() *slog.Logger {
	lc := util.DefaultLoggerConfig()
	if cfg, err := loadProjectConfig(); err == nil && cfg != nil {
		if cfg.LogLevel != "" {
			lc.Level = util.LogLevel(cfg.LogLevel)
		}
		if cfg.LogFormat != "" {
			lc.Format = util.LogFormat(cfg.LogFormat)
		}
	}
	return util.NewLogger(lc)
}

// Package config loads ferros's ambient settings: logging level/format/
// file destination, the default breakpoint trap style, the unwinder's
// default frame budget, and the memory page-cache size. Precedence is
// flag > env > file > built-in default, matching a capability-flag
// precedence style used elsewhere in this codebase.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LogConfig is the subset of Config that ferroslog.Setup consumes.
type LogConfig struct {
	LevelFilter string `yaml:"log_filter"`
	Format      string `yaml:"log_format"`
	LogFile     string `yaml:"log_file"`
}

// Config is ferros's full ambient configuration.
type Config struct {
	LogConfig `yaml:",inline"`

	DefaultTrapStyle       string `yaml:"default_trap_style"`
	DefaultFrameBudget     int    `yaml:"default_frame_budget"`
	MemoryPageCacheEntries int    `yaml:"memory_page_cache_entries"`
}

// Default returns the built-in defaults, used as the base of the
// precedence chain before file and env overrides apply.
func Default() Config {
	return Config{
		LogConfig: LogConfig{
			LevelFilter: "",
			Format:      "pretty",
			LogFile:     "",
		},
		DefaultTrapStyle:       "software",
		DefaultFrameBudget:     64,
		MemoryPageCacheEntries: 4096,
	}
}

// Load builds a Config by layering, lowest precedence first: built-in
// defaults, ~/.ferros/config.yaml (if present), then environment
// variables. Callers that also expose CLI flags apply those last,
// directly onto the returned Config, since flag parsing lives in
// cmd/ferros and this package has no flag dependency.
func Load() (Config, error) {
	cfg := Default()

	path, err := defaultConfigPath()
	if err == nil {
		if fileCfg, err := loadFile(path); err == nil {
			cfg = mergeFile(cfg, fileCfg)
		}
	}

	cfg = mergeEnv(cfg)
	return cfg, nil
}

func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ferros", "config.yaml"), nil
}

func loadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return Config{}, err
	}
	return fileCfg, nil
}

// mergeFile overlays non-zero fields from fileCfg onto base.
func mergeFile(base, fileCfg Config) Config {
	if fileCfg.LevelFilter != "" {
		base.LevelFilter = fileCfg.LevelFilter
	}
	if fileCfg.Format != "" {
		base.Format = fileCfg.Format
	}
	if fileCfg.LogFile != "" {
		base.LogFile = fileCfg.LogFile
	}
	if fileCfg.DefaultTrapStyle != "" {
		base.DefaultTrapStyle = fileCfg.DefaultTrapStyle
	}
	if fileCfg.DefaultFrameBudget != 0 {
		base.DefaultFrameBudget = fileCfg.DefaultFrameBudget
	}
	if fileCfg.MemoryPageCacheEntries != 0 {
		base.MemoryPageCacheEntries = fileCfg.MemoryPageCacheEntries
	}
	return base
}

// mergeEnv overlays FERROS_LOG / FERROS_LOG_FORMAT / FERROS_LOG_FILE,
// the three env vars the ambient logging section names explicitly.
func mergeEnv(cfg Config) Config {
	if v := os.Getenv("FERROS_LOG"); v != "" {
		cfg.LevelFilter = v
	}
	if v := os.Getenv("FERROS_LOG_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("FERROS_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	return cfg
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tailscale/hujson"

	"github.com/brecio/brec/storage"
)

// Config holds brecctl's own configuration, layered on top of
// storage.DefaultOptions.
type Config struct {
	SlotCapacity    int    `json:"slot_capacity,omitempty"`    //nolint:tagliatelle
	MaxPacketSize   uint64 `json:"max_packet_size,omitempty"`  //nolint:tagliatelle
	LockTimeoutMillis int  `json:"lock_timeout_ms,omitempty"`  //nolint:tagliatelle
}

// ConfigFileName is the project-local config file name.
const ConfigFileName = ".brecctl.json"

// DefaultConfig returns brecctl's baked-in defaults.
func DefaultConfig() Config {
	opts := storage.DefaultOptions()

	return Config{
		SlotCapacity:  opts.SlotCapacity,
		MaxPacketSize: opts.MaxPacketSize,
	}
}

// ToOptions renders cfg as storage.Options.
func (cfg Config) ToOptions() storage.Options {
	opts := storage.DefaultOptions()
	opts.SlotCapacity = cfg.SlotCapacity
	opts.MaxPacketSize = cfg.MaxPacketSize

	if cfg.LockTimeoutMillis > 0 {
		opts.LockTimeout = time.Duration(cfg.LockTimeoutMillis) * time.Millisecond
	}

	return opts
}

// globalConfigPath returns $XDG_CONFIG_HOME/brecctl/config.json, falling
// back to ~/.config/brecctl/config.json.
func globalConfigPath(env []string) string {
	for _, e := range env {
		if after, ok := strings.CutPrefix(e, "XDG_CONFIG_HOME="); ok {
			return filepath.Join(after, "brecctl", "config.json")
		}
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "brecctl", "config.json")
	}

	home, err := os.UserHomeDir()
	if err == nil {
		return filepath.Join(home, ".config", "brecctl", "config.json")
	}

	return ""
}

// LoadConfig layers: defaults, then the global config file (if present),
// then a project-local .brecctl.json next to workDir (if present).
func LoadConfig(workDir string, env []string) (Config, error) {
	cfg := DefaultConfig()

	if path := globalConfigPath(env); path != "" {
		overlay, loaded, err := loadConfigFile(path)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg = mergeConfig(cfg, overlay)
		}
	}

	projectPath := filepath.Join(workDir, ConfigFileName)

	overlay, loaded, err := loadConfigFile(projectPath)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		cfg = mergeConfig(cfg, overlay)
	}

	return cfg, nil
}

func loadConfigFile(path string) (Config, bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("reading %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("invalid JSONC in %s: %w", path, err)
	}

	var cfg Config

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, false, fmt.Errorf("invalid config in %s: %w", path, err)
	}

	return cfg, true, nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.SlotCapacity > 0 {
		base.SlotCapacity = overlay.SlotCapacity
	}

	if overlay.MaxPacketSize > 0 {
		base.MaxPacketSize = overlay.MaxPacketSize
	}

	if overlay.LockTimeoutMillis > 0 {
		base.LockTimeoutMillis = overlay.LockTimeoutMillis
	}

	return base
}

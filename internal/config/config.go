// Package config loads .metis/config.toml, the core's only external
// configuration surface (spec §6). File-sourced values are needed by
// any caller of the sync/projection core; environment-variable
// overrides are a process-boundary concern layered on top separately
// by cmd/metisd (see Overlay).
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// defaultMaxRetries mirrors syncengine.defaultMaxRetries; duplicated
// here (rather than imported) so this package has no dependency on
// the orchestrator, matching the layering the rest of the module
// follows (config is read by everything, depends on nothing domain).
const defaultMaxRetries = 5

// Config is the decoded contents of .metis/config.toml. Sections
// absent from the file decode to their zero values; callers must
// check Sync.UpstreamURL / Workspace.Prefix for emptiness before
// relying on sync behavior, matching the spec's "absence of [sync] or
// [workspace] disables all sync behavior" rule.
type Config struct {
	Project      ProjectConfig      `toml:"project"`
	FlightLevels FlightLevelsConfig `toml:"flight_levels"`
	Workspace    WorkspaceConfig    `toml:"workspace"`
	Sync         SyncConfig         `toml:"sync"`
	Log          LogConfig          `toml:"log"`
}

// ProjectConfig holds the [project] section.
type ProjectConfig struct {
	Prefix string `toml:"prefix"`
}

// FlightLevelsConfig holds the [flight_levels] section, toggling
// whether the strategy and initiative layers participate in creation
// flows outside this core.
type FlightLevelsConfig struct {
	StrategiesEnabled  bool `toml:"strategies_enabled"`
	InitiativesEnabled bool `toml:"initiatives_enabled"`
}

// WorkspaceConfig holds the [workspace] section.
type WorkspaceConfig struct {
	Prefix string `toml:"prefix"`
}

// SyncConfig holds the [sync] section.
type SyncConfig struct {
	UpstreamURL     string `toml:"upstream_url"`
	MaxRetries      int    `toml:"max_retries"`
	DebounceSeconds int    `toml:"debounce_seconds"`
}

// LogConfig holds the [log] section.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Load decodes path (normally .metis/config.toml) into a Config,
// filling MaxRetries with its default when the file omits it.
func Load(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if cfg.Sync.MaxRetries <= 0 {
		cfg.Sync.MaxRetries = defaultMaxRetries
	}
	return cfg, nil
}

// HasSync reports whether the [sync] section is usable: both an
// upstream URL and a workspace prefix must be present, matching the
// spec's "absence... disables all sync behavior" rule.
func (c Config) HasSync() bool {
	return c.Sync.UpstreamURL != "" && c.Workspace.Prefix != ""
}

package config

import (
	"strings"

	"github.com/spf13/viper"
)

// envPrefix namespaces every environment-variable override cmd/metisd
// recognizes, e.g. METIS_SYNC_UPSTREAM_URL.
const envPrefix = "METIS"

// Overlay layers environment-variable overrides onto a file-sourced
// Config, for the cmd/metisd process boundary specifically. Library
// callers that embed this module as a dependency use Load alone and
// never touch viper: env-var override is ambient CLI/daemon plumbing,
// not a core concern.
func Overlay(cfg Config) Config {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("sync.upstream_url", cfg.Sync.UpstreamURL)
	v.SetDefault("sync.max_retries", cfg.Sync.MaxRetries)
	v.SetDefault("sync.debounce_seconds", cfg.Sync.DebounceSeconds)
	v.SetDefault("workspace.prefix", cfg.Workspace.Prefix)
	v.SetDefault("project.prefix", cfg.Project.Prefix)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)

	cfg.Sync.UpstreamURL = v.GetString("sync.upstream_url")
	cfg.Sync.MaxRetries = v.GetInt("sync.max_retries")
	cfg.Sync.DebounceSeconds = v.GetInt("sync.debounce_seconds")
	cfg.Workspace.Prefix = v.GetString("workspace.prefix")
	cfg.Project.Prefix = v.GetString("project.prefix")
	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.File = v.GetString("log.file")

	return cfg
}

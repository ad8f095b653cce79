// Package config implements the configuration precedence chain from
// spec.md §6: command-line overrides beat environment, which beats the
// project config file, which beats the user config file, which beats the
// persisted config table, which beats built-in defaults. Unlike the
// teacher's package-level viper instance, every caller here gets its own
// *Resolver value — no global state, so a test or a second workspace in
// the same process never bleeds into another's settings.
package config

import (
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// StartupOnlyKeys names settings that must be resolved before the store
// opens and therefore cannot live in the persisted config table: by the
// time a row could be read back, the database path and actor identity
// that would resolve it are already fixed.
var StartupOnlyKeys = map[string]bool{
	"db":             true,
	"actor":          true,
	"no-auto-flush":  true,
	"no-auto-import": true,
	"allow-stale":    true,
}

// Defaults are the built-in values consulted when no other layer sets a
// key, the bottom of the §6 precedence chain.
var Defaults = map[string]string{
	"ready-policy":   "priority",
	"mirror-policy":  "strict",
	"orphan-policy":  "strict",
	"lock-timeout":   "30s",
}

// Resolver layers the §6 precedence chain over one viper instance scoped
// to a single workspace. It holds a table layer supplied by the caller
// (the store's config table, via Store.GetConfig) rather than reading it
// itself, keeping this package free of any storage dependency.
type Resolver struct {
	v          *viper.Viper
	tableLayer map[string]string
}

// New builds a Resolver. projectConfigPath and userConfigPath may be empty
// (viper.SetConfigFile tolerates a file that doesn't exist; a missing
// layer is simply skipped). Environment variables are read with a BD_
// prefix, e.g. BD_ACTOR overrides "actor".
func New(projectConfigPath, userConfigPath string) (*Resolver, error) {
	v := viper.New()
	v.SetEnvPrefix("bd")
	v.AutomaticEnv()

	if userConfigPath != "" {
		v.SetConfigFile(userConfigPath)
		_ = v.MergeInConfig() // a missing user config is not an error
	}
	if projectConfigPath != "" {
		v.SetConfigFile(projectConfigPath)
		_ = v.MergeInConfig() // a missing project config is not an error
	}

	return &Resolver{v: v, tableLayer: map[string]string{}}, nil
}

// SetTableLayer installs the persisted config table's contents as the
// layer above built-in defaults but below every file/env/flag layer.
func (r *Resolver) SetTableLayer(values map[string]string) {
	r.tableLayer = values
}

// SetFlag records a command-line override, the highest-precedence layer.
func (r *Resolver) SetFlag(key, value string) {
	r.v.Set(key, value)
}

// Get resolves key through the full §6 chain: viper encodes
// flag > env > project file > user file; the table layer is consulted
// only when none of those produced a value, and Defaults last.
func (r *Resolver) Get(key string) string {
	if r.v.IsSet(key) {
		return r.v.GetString(key)
	}
	if v, ok := r.tableLayer[key]; ok {
		return v
	}
	return Defaults[key]
}

// IsStartupOnly reports whether key must be resolved before the store
// opens and so can never be satisfied from the persisted config table.
func IsStartupOnly(key string) bool {
	return StartupOnlyKeys[strings.ToLower(key)]
}

// LocalConfig is the subset of a workspace's config.yaml read directly,
// bypassing viper, for the narrow case of bootstrapping before a Resolver
// exists (init needs to know the intended actor before anything else is
// wired up).
type LocalConfig struct {
	Actor       string `yaml:"actor"`
	IssuePrefix string `yaml:"issue-prefix"`
	ReadyPolicy string `yaml:"ready-policy"`
}

// ParseLocalConfig decodes config.yaml content. An empty or missing file
// yields a zero-value LocalConfig rather than an error.
func ParseLocalConfig(data []byte) (*LocalConfig, error) {
	var cfg LocalConfig
	if len(data) == 0 {
		return &cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

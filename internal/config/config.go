// Package config loads Trivia's configuration: a trivia.toml file
// discovered by walking up from the working directory (or
// CLAUDE_PLUGIN_ROOT, if set), plus environment overrides.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/rcliao/trivia/internal/storeerr"
)

const configFileName = "trivia.toml"

// Config is Trivia's top-level configuration (spec_full §6.4).
type Config struct {
	Database string         `mapstructure:"database"`
	Memorize MemorizeConfig `mapstructure:"memorize"`
	Recall   RecallConfig   `mapstructure:"recall"`
	Export   ExportConfig   `mapstructure:"export"`
}

// MemorizeConfig holds tags auto-added to every memorize call.
type MemorizeConfig struct {
	Tags []string `mapstructure:"tags"`
}

// RecallConfig holds boost tags and recall-time rendering knobs.
type RecallConfig struct {
	Tags         []string `mapstructure:"tags"`
	MinScore     float64  `mapstructure:"min_score"`
	BodyMaxChars int      `mapstructure:"body_max_chars"`
}

// ExportConfig holds the default tag filter for export.
type ExportConfig struct {
	Tags []string `mapstructure:"tags"`
}

// defaultDBPath returns the default database location: $HOME/.claude/trivia.db.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "trivia.db"
	}
	return filepath.Join(home, ".claude", "trivia.db")
}

// Discover walks up from startDir looking for trivia.toml, stopping at
// the filesystem root. Returns the loaded config (or defaults, if no
// file was found) and the path of the file used, if any.
func Discover(startDir string) (*Config, string, error) {
	dir := startDir
	for {
		candidate := filepath.Join(dir, configFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			cfg, err := Load(candidate)
			return cfg, candidate, err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	cfg, err := Load("")
	return cfg, "", err
}

// Load reads configuration from path (empty for defaults-plus-env
// only), applying TRIVIA_ environment variable overrides.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("database", defaultDBPath())
	v.SetDefault("recall.min_score", 0.0)
	v.SetDefault("recall.body_max_chars", 0)

	v.SetEnvPrefix("TRIVIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("database", "TRIVIA_DB")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, storeerr.Wrap(err, storeerr.BackendFailure, "", "read config "+path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, storeerr.Wrap(err, storeerr.BackendFailure, "", "unmarshal config")
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, storeerr.Newf(storeerr.InvalidInput, "", "invalid config: %v", errs)
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors, collecting all
// issues rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	if c.Database == "" {
		errs = append(errs, storeerr.New(storeerr.InvalidInput, "", "config: database must not be empty"))
	}
	if c.Recall.MinScore < 0 {
		errs = append(errs, storeerr.Newf(storeerr.InvalidInput, "", "config: recall.min_score must be >= 0, got %g", c.Recall.MinScore))
	}
	if c.Recall.BodyMaxChars < 0 {
		errs = append(errs, storeerr.Newf(storeerr.InvalidInput, "", "config: recall.body_max_chars must be >= 0, got %d", c.Recall.BodyMaxChars))
	}

	return errs
}

// PluginRoot returns CLAUDE_PLUGIN_ROOT if set, rooting config
// discovery there instead of the working directory (spec_full §6.5).
func PluginRoot() (string, bool) {
	root := os.Getenv("CLAUDE_PLUGIN_ROOT")
	return root, root != ""
}

// MergeTags unions config tags with explicit (CLI-supplied) tags,
// config tags first, preserving order and dropping duplicates.
func MergeTags(configTags, explicitTags []string) []string {
	seen := make(map[string]bool, len(configTags)+len(explicitTags))
	merged := make([]string, 0, len(configTags)+len(explicitTags))
	for _, t := range configTags {
		if !seen[t] {
			seen[t] = true
			merged = append(merged, t)
		}
	}
	for _, t := range explicitTags {
		if !seen[t] {
			seen[t] = true
			merged = append(merged, t)
		}
	}
	return merged
}

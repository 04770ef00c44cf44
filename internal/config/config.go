// Package config loads docsync configuration with Viper from a .docsync.yml
// file, DOCSYNC_ environment variables and command-line flags.
//
// Every section has defaults so an empty configuration is usable for the
// validate, merge and scope commands. The watch and sync commands also need
// a generator command.
package config

import (
	"fmt"
	"net"
	"path"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/docsync/internal/logging"
	"github.com/conneroisu/docsync/internal/merge"
	"github.com/conneroisu/docsync/internal/syncer"
	"github.com/conneroisu/docsync/internal/tracker"
	"github.com/conneroisu/docsync/internal/validation"
	"github.com/conneroisu/docsync/internal/watcher"
)

// FileName is the default configuration file name without extension.
const FileName = ".docsync"

// EnvPrefix prefixes environment overrides, e.g. DOCSYNC_DOCS_DIR.
const EnvPrefix = "DOCSYNC"

type Config struct {
	Docs       DocsConfig               `mapstructure:"docs" yaml:"docs"`
	Watch      WatchConfig              `mapstructure:"watch" yaml:"watch"`
	Classify   tracker.ClassifierConfig `mapstructure:"classify" yaml:"classify"`
	Merge      MergeConfig              `mapstructure:"merge" yaml:"merge"`
	Validation validation.Options       `mapstructure:"validation" yaml:"validation"`
	Tracker    TrackerConfig            `mapstructure:"tracker" yaml:"tracker"`
	Generate   syncer.CommandConfig     `mapstructure:"generate" yaml:"generate"`
	Log        LogConfig                `mapstructure:"log" yaml:"log"`
	Metrics    MetricsConfig            `mapstructure:"metrics" yaml:"metrics"`
}

type DocsConfig struct {
	// Dir holds the published pages.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// PackageRoots are the directory names whose children are packages,
	// e.g. "packages" for packages/button/src/index.ts.
	PackageRoots []string `mapstructure:"package_roots" yaml:"package_roots"`
}

type WatchConfig struct {
	Paths    []string                 `mapstructure:"paths" yaml:"paths"`
	Debounce watcher.DebouncerOptions `mapstructure:"debounce" yaml:"debounce"`
}

type MergeConfig struct {
	Strategy      string `mapstructure:"strategy" yaml:"strategy"`
	PreserveEmpty bool   `mapstructure:"preserve_empty" yaml:"preserve_empty"`
	// Sanitize rewrites unsafe component tags in generated pages.
	Sanitize bool `mapstructure:"sanitize" yaml:"sanitize"`
}

type TrackerConfig struct {
	// Cache is the digest cache file. Empty disables persistence.
	Cache string `mapstructure:"cache" yaml:"cache"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig configures the listener watch serves /metrics and the
// /events notification stream on.
type MetricsConfig struct {
	// Addr is the listen address. Empty disables the listener.
	Addr string `mapstructure:"addr" yaml:"addr"`
	// Origins lists the hosts allowed to open /events from another
	// origin, such as a docs dev server on localhost:3000.
	Origins []string `mapstructure:"origins" yaml:"origins"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	debounce := watcher.DefaultDebouncerOptions()
	return &Config{
		Docs: DocsConfig{
			Dir:          "docs",
			PackageRoots: []string{"packages"},
		},
		Watch: WatchConfig{
			Paths:    []string{"packages"},
			Debounce: debounce,
		},
		Classify: tracker.DefaultClassifierConfig(),
		Merge: MergeConfig{
			Strategy: string(merge.FavorPreserved),
		},
		Validation: validation.DefaultOptions(),
		Tracker: TrackerConfig{
			Cache: ".docsync/digests.json",
		},
		Generate: syncer.CommandConfig{
			Args:    []string{"{package}", "{scope}"},
			Pages:   "**/*.{md,mdx}",
			Timeout: 2 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers Default with v so that unset keys, environment
// overrides and flag bindings resolve against it.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("docs.dir", d.Docs.Dir)
	v.SetDefault("docs.package_roots", d.Docs.PackageRoots)

	v.SetDefault("watch.paths", d.Watch.Paths)
	v.SetDefault("watch.debounce.quiet_period", d.Watch.Debounce.QuietPeriod)
	v.SetDefault("watch.debounce.max_wait", d.Watch.Debounce.MaxWait)

	v.SetDefault("classify.readme", d.Classify.Readme)
	v.SetDefault("classify.source", d.Classify.Source)
	v.SetDefault("classify.metadata", d.Classify.Metadata)
	v.SetDefault("classify.exclude", d.Classify.Exclude)

	v.SetDefault("merge.strategy", d.Merge.Strategy)
	v.SetDefault("merge.preserve_empty", d.Merge.PreserveEmpty)
	v.SetDefault("merge.sanitize", d.Merge.Sanitize)

	v.SetDefault("validation.frontmatter", d.Validation.Frontmatter)
	v.SetDefault("validation.tag_balance", d.Validation.TagBalance)
	v.SetDefault("validation.markers", d.Validation.Markers)
	v.SetDefault("validation.components", d.Validation.Components)
	v.SetDefault("validation.content_quality", d.Validation.ContentQuality)
	v.SetDefault("validation.security", d.Validation.Security)
	v.SetDefault("validation.strict", d.Validation.Strict)
	v.SetDefault("validation.max_title_length", d.Validation.MaxTitleLength)
	v.SetDefault("validation.max_description_length", d.Validation.MaxDescriptionLength)
	v.SetDefault("validation.max_code_line_length", d.Validation.MaxCodeLineLength)

	v.SetDefault("tracker.cache", d.Tracker.Cache)

	v.SetDefault("generate.command", d.Generate.Command)
	v.SetDefault("generate.args", d.Generate.Args)
	v.SetDefault("generate.allowed_commands", d.Generate.AllowedCommands)
	v.SetDefault("generate.dir", d.Generate.Dir)
	v.SetDefault("generate.pages", d.Generate.Pages)
	v.SetDefault("generate.timeout", d.Generate.Timeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("metrics.addr", d.Metrics.Addr)
	v.SetDefault("metrics.origins", d.Metrics.Origins)
}

// Load decodes the configuration held by v, fills what is unset and
// validates the result.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Slices of structs have no viper default; fall back unless the key was
	// set, which allows an explicit empty list.
	if !v.IsSet("validation.component_rules") {
		config.Validation.ComponentRules = validation.DefaultComponentRules()
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func validateConfig(config *Config) error {
	if err := validateDocsConfig(&config.Docs); err != nil {
		return fmt.Errorf("docs config: %w", err)
	}

	if err := validateWatchConfig(&config.Watch); err != nil {
		return fmt.Errorf("watch config: %w", err)
	}

	if _, err := tracker.NewClassifier(config.Classify); err != nil {
		return fmt.Errorf("classify config: %w", err)
	}

	if _, err := merge.ParseConflictStrategy(config.Merge.Strategy); err != nil {
		return fmt.Errorf("merge config: %w", err)
	}

	if err := validateValidationOptions(&config.Validation); err != nil {
		return fmt.Errorf("validation config: %w", err)
	}

	if config.Tracker.Cache != "" {
		if err := validatePath(config.Tracker.Cache); err != nil {
			return fmt.Errorf("tracker config: invalid cache path '%s': %w", config.Tracker.Cache, err)
		}
	}

	if config.Generate.Command != "" {
		if _, err := syncer.NewCommandGenerator(config.Generate); err != nil {
			return fmt.Errorf("generate config: %w", err)
		}
	}

	if err := validateLogConfig(&config.Log); err != nil {
		return fmt.Errorf("log config: %w", err)
	}

	if config.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(config.Metrics.Addr); err != nil {
			return fmt.Errorf("metrics config: invalid addr '%s': %w", config.Metrics.Addr, err)
		}
	}
	for _, origin := range config.Metrics.Origins {
		if _, err := path.Match(origin, ""); err != nil {
			return fmt.Errorf("metrics config: invalid origin pattern '%s': %w", origin, err)
		}
	}

	return nil
}

func validateDocsConfig(config *DocsConfig) error {
	if err := validatePath(config.Dir); err != nil {
		return fmt.Errorf("invalid dir '%s': %w", config.Dir, err)
	}

	if len(config.PackageRoots) == 0 {
		return fmt.Errorf("at least one package root is required")
	}
	for _, root := range config.PackageRoots {
		if root == "" || strings.ContainsAny(root, `/\`) {
			return fmt.Errorf("package root '%s' must be a single directory name", root)
		}
		if err := validation.ValidateArgument(root); err != nil {
			return fmt.Errorf("invalid package root '%s': %w", root, err)
		}
	}

	return nil
}

func validateWatchConfig(config *WatchConfig) error {
	for _, path := range config.Paths {
		if err := validatePath(path); err != nil {
			return fmt.Errorf("invalid watch path '%s': %w", path, err)
		}
	}

	if config.Debounce.QuietPeriod <= 0 {
		return fmt.Errorf("debounce quiet_period must be positive, got %s", config.Debounce.QuietPeriod)
	}
	if config.Debounce.MaxWait < config.Debounce.QuietPeriod {
		return fmt.Errorf("debounce max_wait %s is shorter than quiet_period %s",
			config.Debounce.MaxWait, config.Debounce.QuietPeriod)
	}

	return nil
}

func validateValidationOptions(opts *validation.Options) error {
	for _, rule := range opts.ComponentRules {
		if rule.Child == "" || rule.Parent == "" {
			return fmt.Errorf("component rule needs both child and parent")
		}
		switch rule.Severity {
		case validation.SeverityError, validation.SeverityWarning:
		default:
			return fmt.Errorf("component rule %s in %s has unknown severity %q",
				rule.Child, rule.Parent, rule.Severity)
		}
	}
	return nil
}

func validateLogConfig(config *LogConfig) error {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		return err
	}
	switch config.Format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", config.Format)
	}
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	return validation.ValidatePath(path)
}

// MergeOptions converts the merge section.
func (c *Config) MergeOptions() merge.Options {
	strategy, _ := merge.ParseConflictStrategy(c.Merge.Strategy)
	return merge.Options{
		ConflictStrategy:       strategy,
		PreserveEmptyPreserved: c.Merge.PreserveEmpty,
	}
}

// LoggerConfig converts the log section.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	cfg := logging.DefaultConfig()
	cfg.Level, _ = logging.ParseLevel(c.Log.Level)
	cfg.Format = c.Log.Format
	return cfg
}

// NewTracker builds a change tracker from the classify and docs sections.
func (c *Config) NewTracker(logger logging.Logger) (*tracker.Tracker, error) {
	classifier, err := tracker.NewClassifier(c.Classify)
	if err != nil {
		return nil, err
	}
	return tracker.New(
		tracker.WithClassifier(classifier),
		tracker.WithResolver(tracker.PackagesDirResolver(c.Docs.PackageRoots...)),
		tracker.WithLogger(logger),
	), nil
}

package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
)

// ValidationError is one finding of ValidateConfigWithDetails.
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	write := func(title string, issues []ValidationError) {
		if len(issues) == 0 {
			return
		}
		builder.WriteString(title + ":\n")
		for _, issue := range issues {
			builder.WriteString(fmt.Sprintf("  - %s: %s\n", issue.Field, issue.Message))
			for _, suggestion := range issue.Suggestions {
				builder.WriteString(fmt.Sprintf("    hint: %s\n", suggestion))
			}
		}
	}

	write("Errors", vr.Errors)
	if vr.HasErrors() && vr.HasWarnings() {
		builder.WriteString("\n")
	}
	write("Warnings", vr.Warnings)

	return builder.String()
}

func (vr *ValidationResult) addError(field string, value interface{}, msg string, suggestions ...string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Value: value, Message: msg, Suggestions: suggestions})
}

func (vr *ValidationResult) addWarning(field string, value interface{}, msg string, suggestions ...string) {
	vr.Warnings = append(vr.Warnings, ValidationError{Field: field, Value: value, Message: msg, Suggestions: suggestions})
}

// ValidateConfigWithDetails checks a loaded configuration against the
// project on disk. Load already rejects malformed values; this reports what
// would make the watch and sync commands misbehave.
func ValidateConfigWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	if err := validateConfig(config); err != nil {
		result.addError("config", nil, err.Error())
	}

	validateDocsDetails(config, result)
	validateWatchDetails(&config.Watch, result)
	validateGenerateDetails(config, result)
	validateMetricsDetails(&config.Metrics, result)

	result.Valid = !result.HasErrors()

	return result
}

func validateDocsDetails(config *Config, result *ValidationResult) {
	if config.Docs.Dir != "" && !pathExists(config.Docs.Dir) {
		result.addWarning("docs.dir", config.Docs.Dir,
			fmt.Sprintf("directory %s does not exist", config.Docs.Dir),
			"It is created on the first write")
	}

	if config.Tracker.Cache != "" && within(config.Tracker.Cache, config.Docs.Dir) {
		result.addWarning("tracker.cache", config.Tracker.Cache,
			"digest cache lives inside the docs directory",
			"Move it out of docs.dir so it is not published")
	}
}

func validateWatchDetails(config *WatchConfig, result *ValidationResult) {
	if len(config.Paths) == 0 {
		result.addWarning("watch.paths", config.Paths, "no paths to watch",
			"Add the directory holding your packages, e.g. packages")
	}
	for _, path := range config.Paths {
		if !pathExists(path) {
			result.addWarning("watch.paths", path, fmt.Sprintf("path %s does not exist", path))
		}
	}

	if config.Debounce.QuietPeriod > 0 && config.Debounce.QuietPeriod < 50e6 {
		result.addWarning("watch.debounce.quiet_period", config.Debounce.QuietPeriod,
			"quiet period under 50ms splits most saves into several batches")
	}
}

func validateGenerateDetails(config *Config, result *ValidationResult) {
	if config.Generate.Command == "" {
		result.addWarning("generate.command", "", "no generator command configured",
			"The watch and sync commands need one",
			"Example: generate.command: node, generate.args: [scripts/docs.js, {package}, {scope}]")
		return
	}

	if len(config.Generate.AllowedCommands) == 0 {
		result.addWarning("generate.allowed_commands", nil, "any generator command is allowed",
			fmt.Sprintf("Pin it with allowed_commands: [%s]", filepath.Base(config.Generate.Command)))
	}

	if config.Generate.Timeout <= 0 {
		result.addWarning("generate.timeout", config.Generate.Timeout,
			"generator runs have no timeout")
	}

	hasPackage := false
	for _, arg := range config.Generate.Args {
		if strings.Contains(arg, "{package}") {
			hasPackage = true
		}
	}
	if !hasPackage {
		result.addWarning("generate.args", config.Generate.Args,
			"arguments do not mention {package}",
			"The package name is still available as DOCSYNC_PACKAGE")
	}
}

func validateMetricsDetails(config *MetricsConfig, result *ValidationResult) {
	if config.Addr == "" {
		return
	}
	host, _, err := net.SplitHostPort(config.Addr)
	if err != nil {
		return
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		result.addWarning("metrics.addr", config.Addr, "metrics are served on all interfaces",
			"Use 127.0.0.1 unless a remote scraper needs access")
	}
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// within reports whether path is inside dir, both taken as given.
func within(path, dir string) bool {
	if dir == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

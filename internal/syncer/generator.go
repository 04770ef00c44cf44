package syncer

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/conneroisu/docsync/internal/errors"
	"github.com/conneroisu/docsync/internal/tracker"
	"github.com/conneroisu/docsync/internal/validation"
)

// Page is one freshly generated documentation page.
type Page struct {
	// Path is slash-separated and relative to the docs directory.
	Path    string
	Content string
}

// Generator produces the pages of one package for a regeneration scope.
type Generator interface {
	Generate(ctx context.Context, pkg string, scope tracker.Scope) ([]Page, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, pkg string, scope tracker.Scope) ([]Page, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, pkg string, scope tracker.Scope) ([]Page, error) {
	return f(ctx, pkg, scope)
}

// Environment variables passed to generator commands.
const (
	EnvPackage = "DOCSYNC_PACKAGE"
	EnvScope   = "DOCSYNC_SCOPE"
	EnvOutput  = "DOCSYNC_OUT"
)

// CommandConfig configures a CommandGenerator.
type CommandConfig struct {
	Command string   `mapstructure:"command" yaml:"command"`
	Args    []string `mapstructure:"args" yaml:"args"`
	// AllowedCommands restricts Command by base name. Empty allows any.
	AllowedCommands []string `mapstructure:"allowed_commands" yaml:"allowed_commands"`
	// Pages selects the staged files to collect.
	Pages   string        `mapstructure:"pages" yaml:"pages"`
	Dir     string        `mapstructure:"dir" yaml:"dir"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// CommandGenerator runs an external command that writes the pages of a
// package into a staging directory.
//
// The placeholders {package} and {scope} in Args are expanded. The staging
// directory, package and scope are also passed as DOCSYNC_OUT,
// DOCSYNC_PACKAGE and DOCSYNC_SCOPE.
type CommandGenerator struct {
	command string
	args    []string
	allowed map[string]bool
	pages   string
	dir     string
	timeout time.Duration
}

// NewCommandGenerator validates cfg and returns a generator.
func NewCommandGenerator(cfg CommandConfig) (*CommandGenerator, error) {
	allowed := make(map[string]bool, len(cfg.AllowedCommands))
	for _, name := range cfg.AllowedCommands {
		allowed[name] = true
	}

	if err := validation.ValidateCommand(cfg.Command, allowed); err != nil {
		return nil, fmt.Errorf("command validation failed: %w", err)
	}
	for _, arg := range cfg.Args {
		if err := validation.ValidateArgument(expand(arg, "pkg", tracker.ScopeFull)); err != nil {
			return nil, fmt.Errorf("invalid argument '%s': %w", arg, err)
		}
	}

	pages := cfg.Pages
	if pages == "" {
		pages = "**/*.{md,mdx}"
	}
	if !doublestar.ValidatePattern(pages) {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("invalid page pattern %q", pages))
	}

	return &CommandGenerator{
		command: cfg.Command,
		args:    cfg.Args,
		allowed: allowed,
		pages:   pages,
		dir:     cfg.Dir,
		timeout: cfg.Timeout,
	}, nil
}

func expand(arg, pkg string, scope tracker.Scope) string {
	return strings.NewReplacer("{package}", pkg, "{scope}", scope.String()).Replace(arg)
}

// Generate runs the command for pkg and collects the staged pages.
func (g *CommandGenerator) Generate(ctx context.Context, pkg string, scope tracker.Scope) ([]Page, error) {
	if err := validation.ValidateArgument(pkg); err != nil {
		return nil, fmt.Errorf("invalid package name '%s': %w", pkg, err)
	}

	args := make([]string, len(g.args))
	for i, arg := range g.args {
		args[i] = expand(arg, pkg, scope)
	}

	staging, err := os.MkdirTemp("", "docsync-"+pkg+"-")
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeWriteFailed, os.TempDir())
	}
	defer os.RemoveAll(staging)

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, g.command, args...)
	cmd.Dir = g.dir
	cmd.Env = append(os.Environ(),
		EnvPackage+"="+pkg,
		EnvScope+"="+scope.String(),
		EnvOutput+"="+staging,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewGenerateError(errors.ErrCodeGenerateFailed,
				fmt.Sprintf("generator for %s timed out", pkg), ctx.Err())
		}
		return nil, errors.NewGenerateError(errors.ErrCodeGenerateFailed,
			fmt.Sprintf("generator for %s failed: %s", pkg, bytes.TrimSpace(output)), err)
	}

	return collectPages(staging, g.pages)
}

// collectPages reads every file under root matching pattern.
func collectPages(root, pattern string) ([]Page, error) {
	fsys := os.DirFS(root)
	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.NewGenerateError(errors.ErrCodeGenerateFailed, "failed to list staged pages", err)
	}

	pages := make([]Page, 0, len(matches))
	for _, match := range matches {
		data, err := fs.ReadFile(fsys, match)
		if err != nil {
			return nil, errors.WrapIO(err, errors.ErrCodeFileNotFound, filepath.Join(root, match))
		}
		pages = append(pages, Page{Path: match, Content: string(data)})
	}
	return pages, nil
}

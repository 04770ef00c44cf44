// Package syncer runs documentation sync cycles.
//
// A cycle takes a batch of file change events, drops the ones whose content
// did not change, groups the rest by package and asks a Generator for fresh
// pages at the regeneration scope each package needs. Every page is merged
// with its published copy so hand-written sections survive, validated, and
// written only when it is valid and different. A failing package is reported
// in its PackageResult and does not stop the others.
package syncer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/conneroisu/docsync/internal/errors"
	"github.com/conneroisu/docsync/internal/logging"
	"github.com/conneroisu/docsync/internal/merge"
	"github.com/conneroisu/docsync/internal/metrics"
	"github.com/conneroisu/docsync/internal/sanitizer"
	"github.com/conneroisu/docsync/internal/tracker"
	"github.com/conneroisu/docsync/internal/types"
	"github.com/conneroisu/docsync/internal/validation"
)

// Options configures an Engine.
type Options struct {
	// DocsDir is the directory published pages live in.
	DocsDir string
	Merge   merge.Options
	// Sanitize rewrites unsafe component tags in generated pages before
	// they are merged.
	Sanitize bool
}

// PageResult is the outcome for one generated page.
type PageResult struct {
	Path       string
	Written    bool
	Changed    bool
	Merge      merge.Result
	Validation validation.Result
	// Sanitized counts tags rewritten by the sanitizer.
	Sanitized int
	// Diff is set by DryRun for changed pages.
	Diff string
	Err  error
}

// PackageResult is the outcome for one package in a cycle.
type PackageResult struct {
	CycleID  string
	Package  string
	Scope    tracker.Scope
	Files    []string
	Pages    []PageResult
	Skipped  bool
	Duration time.Duration
	Err      error
}

// OK reports whether the package and all of its pages succeeded.
func (r PackageResult) OK() bool {
	if r.Err != nil {
		return false
	}
	for _, p := range r.Pages {
		if p.Err != nil {
			return false
		}
	}
	return true
}

// Engine runs sync cycles. Packages of a cycle are processed one at a time.
type Engine struct {
	generator Generator
	tracker   *tracker.Tracker
	validator *validation.Validator
	sanitizer *sanitizer.Sanitizer
	metrics   *metrics.Metrics
	logger    logging.Logger
	errors    *errors.ErrorHandler
	opts      Options
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTracker sets the change tracker.
func WithTracker(t *tracker.Tracker) EngineOption {
	return func(e *Engine) {
		if t != nil {
			e.tracker = t
		}
	}
}

// WithValidator sets the validator that gates writes.
func WithValidator(v *validation.Validator) EngineOption {
	return func(e *Engine) {
		if v != nil {
			e.validator = v
		}
	}
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l.WithComponent("syncer")
		}
	}
}

// NewEngine creates an engine around gen.
func NewEngine(gen Generator, opts Options, options ...EngineOption) *Engine {
	e := &Engine{
		generator: gen,
		tracker:   tracker.New(),
		validator: validation.New(validation.DefaultOptions()),
		sanitizer: sanitizer.New(sanitizer.DefaultOptions()),
		metrics:   metrics.NewMetrics(),
		logger:    logging.NewNopLogger(),
		opts:      opts,
	}
	for _, opt := range options {
		opt(e)
	}
	e.errors = errors.NewErrorHandler(e.logger)
	return e
}

// Tracker returns the engine's change tracker.
func (e *Engine) Tracker() *tracker.Tracker {
	return e.tracker
}

// Process runs one cycle over events and writes changed pages. The returned
// error is non-nil only when ctx is cancelled; package failures are
// reported in the results.
func (e *Engine) Process(ctx context.Context, events []types.ChangeEvent) ([]PackageResult, error) {
	return e.run(ctx, events, false)
}

// DryRun runs a cycle without writing or recording digests. Changed pages
// carry a unified diff against the published copy.
func (e *Engine) DryRun(ctx context.Context, events []types.ChangeEvent) ([]PackageResult, error) {
	return e.run(ctx, events, true)
}

func (e *Engine) run(ctx context.Context, events []types.ChangeEvent, dryRun bool) ([]PackageResult, error) {
	cycleID := uuid.NewString()
	logger := e.logger.With("cycle", cycleID)
	start := time.Now()
	perf := logging.StartOperation(logger, "sync_cycle")

	changed := e.tracker.FilterUnchanged(ctx, events)
	analyses := e.tracker.AnalyzeChanges(changed)
	logger.Debug(ctx, "Analyzed changes",
		"events", len(events), "changed", len(changed), "packages", len(analyses))

	results := make([]PackageResult, 0, len(analyses))
	for _, analysis := range analyses {
		if err := ctx.Err(); err != nil {
			perf.EndWithError(ctx, err)
			return results, err
		}
		result := e.processPackage(ctx, logger, cycleID, analysis, dryRun)
		if result.Err != nil {
			e.errors.Handle(ctx, result.Err)
		}
		results = append(results, result)
	}

	e.metrics.TrackedFiles.Set(float64(e.tracker.Len()))
	e.metrics.ObserveCycle(time.Since(start))
	perf.End(ctx, "packages", len(results))
	return results, nil
}

func (e *Engine) processPackage(ctx context.Context, logger logging.Logger, cycleID string, analysis tracker.PackageChangeAnalysis, dryRun bool) PackageResult {
	start := time.Now()
	result := PackageResult{
		CycleID: cycleID,
		Package: analysis.PackageName,
		Scope:   analysis.Scope,
		Files:   analysis.ChangedFiles,
	}
	logger = logger.With("package", analysis.PackageName, "scope", analysis.Scope.String())

	if !analysis.NeedsRegeneration {
		result.Skipped = true
		if !dryRun {
			e.recordFiles(ctx, logger, analysis.ChangedFiles)
		}
		logger.Debug(ctx, "No regeneration needed")
		return result
	}

	pages, err := e.generator.Generate(ctx, analysis.PackageName, analysis.Scope)
	if err != nil {
		e.metrics.GenerateErrors.Inc()
		e.metrics.RecordPackage(analysis.Scope.String(), metrics.OutcomeFailed)
		result.Err = errors.WrapPackage(err, errors.ErrorTypeGenerate, errors.ErrCodeGenerateFailed, analysis.PackageName)
		result.Duration = time.Since(start)
		return result
	}

	written := 0
	for _, page := range pages {
		pr := e.processPage(page, dryRun)
		if pr.Err != nil {
			logger.Warn(ctx, pr.Err, "Page not published", "page", pr.Path)
		}
		if pr.Written {
			written++
		}
		result.Pages = append(result.Pages, pr)
	}

	outcome := metrics.OutcomeUnchanged
	switch {
	case !result.OK():
		outcome = metrics.OutcomeInvalid
	case dryRun:
		outcome = metrics.OutcomeDryRun
	case written > 0:
		outcome = metrics.OutcomeWritten
	}
	e.metrics.RecordPackage(analysis.Scope.String(), outcome)

	// A package with an unpublished page keeps its old digests and is
	// retried on the next cycle.
	if result.OK() && !dryRun {
		e.recordFiles(ctx, logger, analysis.ChangedFiles)
	}

	result.Duration = time.Since(start)
	logger.Info(ctx, "Package synced", "pages", len(pages), "written", written, "outcome", outcome)
	return result
}

func (e *Engine) processPage(page Page, dryRun bool) PageResult {
	target := filepath.Join(e.opts.DocsDir, filepath.FromSlash(page.Path))
	pr := PageResult{Path: target}

	if err := validation.ValidatePathWithin(target, e.opts.DocsDir); err != nil {
		pr.Err = err
		return pr
	}

	previous, err := os.ReadFile(target)
	if err != nil && !os.IsNotExist(err) {
		pr.Err = errors.WrapIO(err, errors.ErrCodeFileNotFound, target)
		return pr
	}

	content := page.Content
	if e.opts.Sanitize {
		content, pr.Sanitized = e.sanitizer.Tags(content)
	}

	merged, err := merge.Merge(string(previous), content, e.opts.Merge)
	if err != nil {
		e.metrics.MergeErrors.Inc()
		if de, ok := errors.As(err); ok {
			err = de.WithLocation(target, de.Line, de.Column)
		}
		pr.Err = err
		return pr
	}
	pr.Merge = merged
	pr.Changed = merged.HasChanges

	pr.Validation = e.validator.ValidateContent(merged.Content)
	e.metrics.RecordValidation(len(pr.Validation.Errors), len(pr.Validation.Warnings))
	if !pr.Validation.Valid {
		pr.Err = errors.NewValidationError(errors.ErrCodeValidationFailed,
			fmt.Sprintf("generated page is %s", pr.Validation.Summary())).
			WithLocation(target, 0, 0)
		return pr
	}

	if !merged.HasChanges {
		return pr
	}

	if dryRun {
		pr.Diff, pr.Err = merge.Diff(string(previous), merged.Content, target, target)
		return pr
	}

	if err := writeFileAtomic(target, merged.Content); err != nil {
		pr.Err = err
		return pr
	}
	pr.Written = true
	e.metrics.PagesWritten.Inc()
	e.metrics.PreservedSections.Add(float64(merged.PreservedCount))
	return pr
}

// recordFiles stores digests for files that still exist and forgets deleted
// ones.
func (e *Engine) recordFiles(ctx context.Context, logger logging.Logger, files []string) {
	for _, path := range files {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			e.tracker.Clear(path)
			continue
		}
		if err := e.tracker.Record(ctx, path); err != nil {
			logger.Warn(ctx, err, "Failed to record digest", "path", path)
		}
	}
}

func writeFileAtomic(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, dir)
	}

	tmp, err := os.CreateTemp(dir, ".docsync-*")
	if err != nil {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, path)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, path)
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, path)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, path)
	}
	return nil
}

// Err joins the failures of results into one error, or returns nil.
func Err(results []PackageResult) error {
	collector := errors.NewErrorCollector()
	for _, r := range results {
		if r.Err != nil {
			collector.Add(r.Err)
		}
		for _, p := range r.Pages {
			if p.Err == nil {
				continue
			}
			if de, ok := errors.As(p.Err); ok {
				collector.Add(de.WithPackage(r.Package))
			} else {
				collector.Add(errors.WrapPackage(p.Err, errors.ErrorTypeInternal, errors.ErrCodeInternal, r.Package))
			}
		}
	}
	return collector.Err()
}

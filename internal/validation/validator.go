// Package validation gates generated documentation pages before they are
// published. A Validator runs a set of independently toggleable checks over
// a page and reports errors, which block publishing, and warnings, which do
// not unless the validator is strict.
//
// The package also carries the argument and path checks used before running
// external generator commands.
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/conneroisu/docsync/internal/document"
	"github.com/conneroisu/docsync/internal/sanitizer"
)

// IssueType names the check that produced an Issue.
type IssueType string

const (
	IssueFrontmatter IssueType = "frontmatter"
	IssueTagBalance  IssueType = "tag-balance"
	IssueMarker      IssueType = "marker"
	IssueComponent   IssueType = "component"
	IssueLink        IssueType = "link"
	IssueCodeFence   IssueType = "code-fence"
	IssueCodeBlock   IssueType = "code-block"
	IssueHeading     IssueType = "heading"
	IssueSecurity    IssueType = "security"
)

// Issue is one validation error or warning. Line and Column are 1-based and
// zero when unknown.
type Issue struct {
	Type    IssueType `json:"type"`
	Message string    `json:"message"`
	Line    int       `json:"line,omitempty"`
	Column  int       `json:"column,omitempty"`
}

func (i Issue) String() string {
	if i.Line > 0 {
		return fmt.Sprintf("%d:%d: %s: %s", i.Line, i.Column, i.Type, i.Message)
	}
	return fmt.Sprintf("%s: %s", i.Type, i.Message)
}

// Result is the outcome of validating one page.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Severity decides whether a ComponentRule violation is an error or a
// warning.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ComponentRule requires Child to appear nested somewhere inside Parent.
type ComponentRule struct {
	Child    string   `mapstructure:"child" yaml:"child"`
	Parent   string   `mapstructure:"parent" yaml:"parent"`
	Severity Severity `mapstructure:"severity" yaml:"severity"`
}

// DefaultComponentRules are the nesting conventions of the documentation
// component library.
func DefaultComponentRules() []ComponentRule {
	return []ComponentRule{
		{Child: "TabItem", Parent: "Tabs", Severity: SeverityError},
		{Child: "Card", Parent: "CardGrid", Severity: SeverityWarning},
	}
}

// Options selects the checks a Validator runs.
type Options struct {
	Frontmatter    bool `mapstructure:"frontmatter" yaml:"frontmatter"`
	TagBalance     bool `mapstructure:"tag_balance" yaml:"tag_balance"`
	Markers        bool `mapstructure:"markers" yaml:"markers"`
	Components     bool `mapstructure:"components" yaml:"components"`
	ContentQuality bool `mapstructure:"content_quality" yaml:"content_quality"`
	Security       bool `mapstructure:"security" yaml:"security"`

	// Strict makes warnings fail validation too.
	Strict bool `mapstructure:"strict" yaml:"strict"`

	MaxTitleLength       int             `mapstructure:"max_title_length" yaml:"max_title_length"`
	MaxDescriptionLength int             `mapstructure:"max_description_length" yaml:"max_description_length"`
	MaxCodeLineLength    int             `mapstructure:"max_code_line_length" yaml:"max_code_line_length"`
	ComponentRules       []ComponentRule `mapstructure:"component_rules" yaml:"component_rules"`
}

// DefaultOptions enables every check.
func DefaultOptions() Options {
	return Options{
		Frontmatter:          true,
		TagBalance:           true,
		Markers:              true,
		Components:           true,
		ContentQuality:       true,
		Security:             true,
		MaxTitleLength:       60,
		MaxDescriptionLength: 160,
		MaxCodeLineLength:    120,
		ComponentRules:       DefaultComponentRules(),
	}
}

// Validator runs the configured checks. It holds no per-page state and is
// safe for concurrent use.
type Validator struct {
	opts      Options
	sanitizer *sanitizer.Sanitizer
}

// New creates a Validator. Non-positive limits fall back to the defaults.
func New(opts Options) *Validator {
	defaults := DefaultOptions()
	if opts.MaxTitleLength <= 0 {
		opts.MaxTitleLength = defaults.MaxTitleLength
	}
	if opts.MaxDescriptionLength <= 0 {
		opts.MaxDescriptionLength = defaults.MaxDescriptionLength
	}
	if opts.MaxCodeLineLength <= 0 {
		opts.MaxCodeLineLength = defaults.MaxCodeLineLength
	}
	return &Validator{
		opts:      opts,
		sanitizer: sanitizer.New(sanitizer.DefaultOptions()),
	}
}

// Options returns the validator's effective options.
func (v *Validator) Options() Options {
	return v.opts
}

// report accumulates issues for one page. Body offsets are translated to
// page lines by adding lineOffset.
type report struct {
	errors     []Issue
	warnings   []Issue
	lineOffset int
}

func (r *report) add(sev Severity, typ IssueType, line, col int, format string, args ...interface{}) {
	if line > 0 {
		line += r.lineOffset
	}
	issue := Issue{Type: typ, Message: fmt.Sprintf(format, args...), Line: line, Column: col}
	if sev == SeverityError {
		r.errors = append(r.errors, issue)
	} else {
		r.warnings = append(r.warnings, issue)
	}
}

func (r *report) errorf(typ IssueType, line, col int, format string, args ...interface{}) {
	r.add(SeverityError, typ, line, col, format, args...)
}

func (r *report) warnf(typ IssueType, line, col int, format string, args ...interface{}) {
	r.add(SeverityWarning, typ, line, col, format, args...)
}

// Validate checks a parsed page. Issue lines refer to the rendered page,
// frontmatter included.
func (v *Validator) Validate(doc *document.Document) Result {
	r := &report{}
	if v.opts.Frontmatter {
		v.checkFrontmatter(r, doc)
	}
	r.lineOffset = doc.BodyOffsetLines()
	v.checkBody(r, doc.Body)
	return v.result(r)
}

// ValidateContent checks raw page text. Frontmatter that fails to parse is
// reported as an error and the whole text is then checked as body.
func (v *Validator) ValidateContent(text string) Result {
	doc, err := document.Parse(text)
	if err == nil {
		return v.Validate(doc)
	}

	r := &report{}
	if v.opts.Frontmatter {
		r.errorf(IssueFrontmatter, 1, 1, "%v", err)
	}
	v.checkBody(r, text)
	return v.result(r)
}

func (v *Validator) checkBody(r *report, body string) {
	if v.opts.Markers {
		v.checkMarkers(r, body)
	}
	if v.opts.TagBalance || v.opts.Components || v.opts.Security {
		v.checkTags(r, body)
	}
	if v.opts.ContentQuality || v.opts.Security {
		v.checkMarkdown(r, body)
	}
	if v.opts.ContentQuality {
		v.checkHeadings(r, body)
	}
}

func (v *Validator) result(r *report) Result {
	byPosition := func(issues []Issue) {
		sort.SliceStable(issues, func(i, j int) bool {
			if issues[i].Line != issues[j].Line {
				return issues[i].Line < issues[j].Line
			}
			return issues[i].Column < issues[j].Column
		})
	}
	byPosition(r.errors)
	byPosition(r.warnings)

	res := Result{
		Errors:   r.errors,
		Warnings: r.warnings,
	}
	if res.Errors == nil {
		res.Errors = []Issue{}
	}
	if res.Warnings == nil {
		res.Warnings = []Issue{}
	}
	res.Valid = len(res.Errors) == 0 && (!v.opts.Strict || len(res.Warnings) == 0)
	return res
}

// Summary renders a one-line count of errors and warnings.
func (r Result) Summary() string {
	status := "valid"
	if !r.Valid {
		status = "invalid"
	}
	return fmt.Sprintf("%s (%d %s, %d %s)", status,
		len(r.Errors), plural(len(r.Errors), "error"),
		len(r.Warnings), plural(len(r.Warnings), "warning"))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// Messages returns every issue rendered with String, errors first.
func (r Result) Messages() []string {
	out := make([]string, 0, len(r.Errors)+len(r.Warnings))
	for _, i := range r.Errors {
		out = append(out, "error: "+i.String())
	}
	for _, i := range r.Warnings {
		out = append(out, "warning: "+i.String())
	}
	return out
}

func (r Result) String() string {
	return strings.Join(append([]string{r.Summary()}, r.Messages()...), "\n")
}

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/conneroisu/docsync/internal/validation"
)

var (
	validateStrict bool
	validateFormat string
)

var pageExtensions = []string{".md", ".mdx"}

// validateCmd represents the validate command.
var validateCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Validate documentation pages",
	Long: `Validate documentation pages for:

- Frontmatter with a title and reasonable title/description lengths
- Balanced component tags and component nesting rules
- Correctly paired AUTO/MANUAL section markers
- Event handlers, javascript: URLs and attribute expressions that are not
  plain literals
- Empty or malformed links, unclosed code fences, heading structure

Without arguments every .md and .mdx file under docs.dir is checked.
The command exits non-zero when any page has errors, or warnings with --strict.

Examples:
  docsync validate                        # Validate all pages
  docsync validate docs/button.mdx        # Validate one page
  docsync validate --strict --format json # Fail on warnings, JSON output`,
	RunE: runValidateCommand,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().
		BoolVar(&validateStrict, "strict", false, "Treat warnings as errors")
	validateCmd.Flags().
		StringVarP(&validateFormat, "format", "f", "text", "Output format (text, json)")
}

type FileValidation struct {
	File   string            `json:"file"`
	Error  string            `json:"error,omitempty"`
	Result validation.Result `json:"result"`
}

// Valid reports whether the file was read and passed validation.
func (f FileValidation) Valid() bool {
	return f.Error == "" && f.Result.Valid
}

type ValidationSummary struct {
	Total   int              `json:"total"`
	Valid   int              `json:"valid"`
	Invalid int              `json:"invalid"`
	Files   []FileValidation `json:"files"`
}

func runValidateCommand(cmd *cobra.Command, args []string) error {
	if validateFormat != "text" && validateFormat != "json" {
		return fmt.Errorf("unsupported format: %s", validateFormat)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := cfg.Validation
	if validateStrict {
		opts.Strict = true
	}
	validator := validation.New(opts)

	files := args
	if len(files) == 0 {
		files, err = findPages(cfg.Docs.Dir)
		if err != nil {
			return err
		}
	}

	summary := validateFiles(validator, files)

	out := cmd.OutOrStdout()
	if validateFormat == "json" {
		err = outputValidationJSON(out, summary)
	} else {
		err = outputValidationText(out, summary)
	}
	if err != nil {
		return err
	}

	if summary.Invalid > 0 {
		return fmt.Errorf("%d of %d file(s) failed validation", summary.Invalid, summary.Total)
	}
	return nil
}

// findPages lists the .md and .mdx files under dir. A missing dir has no
// pages.
func findPages(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}
	matches, err := doublestar.Glob(os.DirFS(dir), "**/*.{md,mdx}", doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("listing pages in %s: %w", dir, err)
	}
	files := make([]string, len(matches))
	for i, m := range matches {
		files[i] = filepath.Join(dir, filepath.FromSlash(m))
	}
	return files, nil
}

func validateFiles(validator *validation.Validator, files []string) ValidationSummary {
	summary := ValidationSummary{
		Total: len(files),
		Files: make([]FileValidation, 0, len(files)),
	}

	for _, file := range files {
		fv := FileValidation{File: file}
		if err := validation.ValidateFileExtension(file, pageExtensions); err != nil {
			fv.Error = err.Error()
		} else if content, err := os.ReadFile(file); err != nil {
			fv.Error = err.Error()
		} else {
			fv.Result = validator.ValidateContent(string(content))
		}

		if fv.Valid() {
			summary.Valid++
		} else {
			summary.Invalid++
		}
		summary.Files = append(summary.Files, fv)
	}

	return summary
}

func outputValidationJSON(w io.Writer, summary ValidationSummary) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(summary)
}

func outputValidationText(w io.Writer, summary ValidationSummary) error {
	if summary.Total == 0 {
		_, err := fmt.Fprintln(w, "No pages found to validate")
		return err
	}

	for _, f := range summary.Files {
		switch {
		case f.Error != "":
			fmt.Fprintf(w, "❌ %s: %s\n", f.File, f.Error)
			continue
		case f.Result.Valid:
			fmt.Fprintf(w, "✅ %s: %s\n", f.File, f.Result.Summary())
		default:
			fmt.Fprintf(w, "❌ %s: %s\n", f.File, f.Result.Summary())
		}
		for _, msg := range f.Result.Messages() {
			fmt.Fprintf(w, "   %s\n", msg)
		}
	}

	_, err := fmt.Fprintf(w, "\n%d file(s): %d valid, %d invalid\n", summary.Total, summary.Valid, summary.Invalid)
	return err
}

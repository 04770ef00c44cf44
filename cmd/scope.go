package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/docsync/internal/logging"
	"github.com/conneroisu/docsync/internal/types"
)

var scopeFormat string

var scopeCmd = &cobra.Command{
	Use:   "scope PATH...",
	Short: "Show which packages a set of changed paths would regenerate",
	Long: `Classify changed paths and report the regeneration scope of every
package they belong to. Paths do not need to exist.

Examples:
  docsync scope packages/button/src/index.ts
  docsync scope $(git diff --name-only main) --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScopeCommand,
}

func init() {
	rootCmd.AddCommand(scopeCmd)

	scopeCmd.Flags().StringVarP(&scopeFormat, "format", "f", "text", "Output format (text, json)")
}

type PackageScope struct {
	Package    string   `json:"package"`
	Scope      string   `json:"scope"`
	Categories []string `json:"categories"`
	Files      []string `json:"files"`
}

func runScopeCommand(cmd *cobra.Command, args []string) error {
	if scopeFormat != "text" && scopeFormat != "json" {
		return fmt.Errorf("unsupported format: %s", scopeFormat)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tr, err := cfg.NewTracker(logging.NewNopLogger())
	if err != nil {
		return err
	}

	now := time.Now()
	events := make([]types.ChangeEvent, len(args))
	for i, path := range args {
		events[i] = types.ChangeEvent{Type: types.EventModify, Path: path, Timestamp: now}
	}

	analyses := tr.AnalyzeChanges(events)
	scopes := make([]PackageScope, 0, len(analyses))
	for _, a := range analyses {
		categories := make([]string, 0, 3)
		for _, c := range a.ChangedCategories.Categories() {
			categories = append(categories, c.String())
		}
		scopes = append(scopes, PackageScope{
			Package:    a.PackageName,
			Scope:      a.Scope.String(),
			Categories: categories,
			Files:      a.ChangedFiles,
		})
	}

	out := cmd.OutOrStdout()
	if scopeFormat == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(scopes)
	}

	if len(scopes) == 0 {
		fmt.Fprintln(out, "No package matched the given paths")
		return nil
	}
	for _, s := range scopes {
		categories := strings.Join(s.Categories, ",")
		if categories == "" {
			categories = "-"
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", s.Package, s.Scope, categories)
	}
	return nil
}

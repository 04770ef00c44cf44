package tracker

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/conneroisu/docsync/internal/types"
)

// PackageChangeAnalysis summarises one regeneration cycle for one package.
type PackageChangeAnalysis struct {
	PackageName       string
	ChangedCategories CategorySet
	NeedsRegeneration bool
	// ChangedFiles is sorted and free of duplicates.
	ChangedFiles []string
	Scope        Scope
}

// PackageResolver derives a package name from a file path.
type PackageResolver func(path string) (string, bool)

// PackagesDirResolver resolves `<root>/<name>/...` for any of the given root
// directory names, e.g. packages/ui/src/index.ts -> ui.
func PackagesDirResolver(roots ...string) PackageResolver {
	return func(path string) (string, bool) {
		parts := strings.Split(filepath.ToSlash(filepath.Clean(path)), "/")
		for i := 0; i+2 < len(parts); i++ {
			for _, root := range roots {
				if parts[i] == root && parts[i+1] != "" {
					return parts[i+1], true
				}
			}
		}
		return "", false
	}
}

// AnalyzeChanges groups events by package and classifies each file. Events
// whose package cannot be resolved are skipped. Results are sorted by
// package name.
func (t *Tracker) AnalyzeChanges(events []types.ChangeEvent) []PackageChangeAnalysis {
	byPackage := make(map[string]*PackageChangeAnalysis)
	seen := make(map[string]map[string]bool)

	for _, ev := range events {
		name := ev.PackageName
		if name == "" {
			resolved, ok := t.resolver(ev.Path)
			if !ok {
				t.logger.Debug(context.Background(), "Skipping event outside any package", "path", ev.Path)
				continue
			}
			name = resolved
		}

		analysis, ok := byPackage[name]
		if !ok {
			analysis = &PackageChangeAnalysis{PackageName: name}
			byPackage[name] = analysis
			seen[name] = make(map[string]bool)
		}

		analysis.ChangedCategories = analysis.ChangedCategories.Add(t.classifier.Classify(ev.Path))
		if !seen[name][ev.Path] {
			seen[name][ev.Path] = true
			analysis.ChangedFiles = append(analysis.ChangedFiles, ev.Path)
		}
	}

	results := make([]PackageChangeAnalysis, 0, len(byPackage))
	for _, analysis := range byPackage {
		sort.Strings(analysis.ChangedFiles)
		analysis.NeedsRegeneration = !analysis.ChangedCategories.Empty()
		analysis.Scope = DetermineRegenerationScope(analysis.ChangedCategories)
		results = append(results, *analysis)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].PackageName < results[j].PackageName })
	return results
}

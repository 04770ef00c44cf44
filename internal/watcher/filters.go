package watcher

import (
	"path/filepath"
	"strings"
)

var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
}

// SkipDir reports whether a directory is never walked or watched.
func SkipDir(name string) bool {
	return skippedDirs[name]
}

// AnyOf accepts a path when at least one filter does.
func AnyOf(filters ...FileFilter) FileFilter {
	return func(path string) bool {
		for _, f := range filters {
			if f(path) {
				return true
			}
		}
		return false
	}
}

// MarkdownFilter accepts Markdown and MDX files.
func MarkdownFilter(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".mdx":
		return true
	}
	return false
}

// SourceFilter accepts TypeScript, JavaScript and Go sources.
func SourceFilter(path string) bool {
	switch filepath.Ext(path) {
	case ".ts", ".tsx", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs", ".go":
		return true
	}
	return false
}

// MetadataFilter accepts package manifests.
func MetadataFilter(path string) bool {
	switch filepath.Base(path) {
	case "package.json", "go.mod":
		return true
	}
	return false
}

// NoTempFilter rejects editor swap files and docsync's own temp files.
func NoTempFilter(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, ".docsync-"),
		strings.HasPrefix(base, ".#"),
		strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".tmp"):
		return false
	}
	return true
}

func NoVendorFilter(path string) bool {
	return !hasDir(path, "vendor")
}

func NoGitFilter(path string) bool {
	return !hasDir(path, ".git")
}

func NoNodeModulesFilter(path string) bool {
	return !hasDir(path, "node_modules")
}

// hasDir reports whether dir is one of the directory components of path.
func hasDir(path, dir string) bool {
	p := filepath.ToSlash(path)
	return strings.HasPrefix(p, dir+"/") || strings.Contains(p, "/"+dir+"/")
}

// DefaultFilters returns the filters used by the watch command.
func DefaultFilters() []FileFilter {
	return []FileFilter{
		AnyOf(MarkdownFilter, SourceFilter, MetadataFilter),
		NoTempFilter,
		NoVendorFilter,
		NoGitFilter,
		NoNodeModulesFilter,
	}
}

package tracker

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Category is the kind of file a change touched.
type Category uint8

const (
	CategoryUnrecognized Category = 0
	CategoryReadme       Category = 1 << (iota - 1)
	CategorySource
	CategoryMetadata
)

// String returns the string representation of the Category
func (c Category) String() string {
	switch c {
	case CategoryReadme:
		return "readme"
	case CategorySource:
		return "source"
	case CategoryMetadata:
		return "metadata"
	default:
		return "unrecognized"
	}
}

// CategorySet is a set of recognized categories.
type CategorySet uint8

// NewCategorySet builds a set from categories. CategoryUnrecognized is
// ignored.
func NewCategorySet(categories ...Category) CategorySet {
	var s CategorySet
	for _, c := range categories {
		s = s.Add(c)
	}
	return s
}

// Add returns s with c added.
func (s CategorySet) Add(c Category) CategorySet {
	return s | CategorySet(c)
}

// Has reports whether c is in s.
func (s CategorySet) Has(c Category) bool {
	return c != CategoryUnrecognized && s&CategorySet(c) != 0
}

// Empty reports whether s has no categories.
func (s CategorySet) Empty() bool {
	return s == 0
}

// Categories lists the members of s in a fixed order.
func (s CategorySet) Categories() []Category {
	var out []Category
	for _, c := range []Category{CategoryReadme, CategorySource, CategoryMetadata} {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s CategorySet) String() string {
	cats := s.Categories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.String()
	}
	return "{" + strings.Join(names, ",") + "}"
}

// ClassifierConfig holds the glob patterns for each category. Patterns use
// doublestar syntax and are matched against slash-separated paths.
type ClassifierConfig struct {
	Readme   []string `mapstructure:"readme" yaml:"readme"`
	Source   []string `mapstructure:"source" yaml:"source"`
	Metadata []string `mapstructure:"metadata" yaml:"metadata"`
	Exclude  []string `mapstructure:"exclude" yaml:"exclude"`
}

// DefaultClassifierConfig returns patterns for JS/TS monorepo packages and Go
// modules.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		Readme: []string{"**/{README,readme,Readme}.{md,mdx}"},
		Source: []string{
			"**/src/**/*.{ts,tsx,mts,cts,js,jsx,mjs,cjs}",
			"**/*.go",
		},
		Metadata: []string{"**/package.json", "**/go.mod"},
		Exclude: []string{
			"**/node_modules/**",
			"**/dist/**",
			"**/*.{test,spec}.{ts,tsx,js,jsx}",
			"**/*_test.go",
		},
	}
}

// Classifier maps file paths to categories.
type Classifier struct {
	cfg ClassifierConfig
}

// NewClassifier validates every pattern of cfg.
func NewClassifier(cfg ClassifierConfig) (*Classifier, error) {
	groups := map[string][]string{
		"readme":   cfg.Readme,
		"source":   cfg.Source,
		"metadata": cfg.Metadata,
		"exclude":  cfg.Exclude,
	}
	for name, patterns := range groups {
		for _, p := range patterns {
			if !doublestar.ValidatePattern(p) {
				return nil, fmt.Errorf("invalid %s pattern %q", name, p)
			}
		}
	}
	return &Classifier{cfg: cfg}, nil
}

// DefaultClassifier returns a classifier using DefaultClassifierConfig.
func DefaultClassifier() *Classifier {
	return &Classifier{cfg: DefaultClassifierConfig()}
}

// Classify returns the category of path. Readme patterns are tried first,
// then source, then metadata.
func (c *Classifier) Classify(path string) Category {
	p := normalizePath(path)
	if p == "" || matchAny(c.cfg.Exclude, p) {
		return CategoryUnrecognized
	}
	switch {
	case matchAny(c.cfg.Readme, p):
		return CategoryReadme
	case matchAny(c.cfg.Source, p):
		return CategorySource
	case matchAny(c.cfg.Metadata, p):
		return CategoryMetadata
	default:
		return CategoryUnrecognized
	}
}

func normalizePath(path string) string {
	p := filepath.ToSlash(filepath.Clean(path))
	if vol := filepath.VolumeName(path); vol != "" {
		p = strings.TrimPrefix(p, filepath.ToSlash(vol))
	}
	p = strings.TrimLeft(p, "/")
	if p == "." {
		return ""
	}
	return p
}

func matchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

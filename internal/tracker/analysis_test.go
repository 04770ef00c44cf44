package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/docsync/internal/types"
)

func TestClassify(t *testing.T) {
	c := DefaultClassifier()
	tests := []struct {
		path     string
		expected Category
	}{
		{"packages/ui/README.md", CategoryReadme},
		{"packages/ui/readme.mdx", CategoryReadme},
		{"/abs/repo/packages/ui/README.md", CategoryReadme},
		{"packages/ui/src/index.ts", CategorySource},
		{"packages/ui/src/components/Button.tsx", CategorySource},
		{"services/api/handler.go", CategorySource},
		{"packages/ui/package.json", CategoryMetadata},
		{"go.mod", CategoryMetadata},
		{"packages/ui/src/index.test.ts", CategoryUnrecognized},
		{"services/api/handler_test.go", CategoryUnrecognized},
		{"packages/ui/node_modules/dep/src/index.ts", CategoryUnrecognized},
		{"packages/ui/dist/index.js", CategoryUnrecognized},
		{"packages/ui/CHANGELOG.md", CategoryUnrecognized},
		{"packages/ui/index.ts", CategoryUnrecognized},
		{"", CategoryUnrecognized},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.Classify(tt.path))
		})
	}
}

func TestNewClassifierRejectsBadPatterns(t *testing.T) {
	_, err := NewClassifier(ClassifierConfig{Source: []string{"src/[.ts"}})
	assert.Error(t, err)

	c, err := NewClassifier(ClassifierConfig{Readme: []string{"docs/*.md"}})
	require.NoError(t, err)
	assert.Equal(t, CategoryReadme, c.Classify("docs/intro.md"))
	assert.Equal(t, CategoryUnrecognized, c.Classify("packages/ui/README.md"))
}

func TestDetermineRegenerationScope(t *testing.T) {
	tests := []struct {
		name       string
		categories CategorySet
		expected   Scope
	}{
		{"readme and source", NewCategorySet(CategoryReadme, CategorySource), ScopeFull},
		{"everything", NewCategorySet(CategoryReadme, CategorySource, CategoryMetadata), ScopeFull},
		{"source only", NewCategorySet(CategorySource), ScopeAPIOnly},
		{"source and metadata", NewCategorySet(CategorySource, CategoryMetadata), ScopeAPIOnly},
		{"readme only", NewCategorySet(CategoryReadme), ScopeReadmeOnly},
		{"readme and metadata", NewCategorySet(CategoryReadme, CategoryMetadata), ScopeReadmeOnly},
		{"metadata only", NewCategorySet(CategoryMetadata), ScopeMetadataOnly},
		{"empty", NewCategorySet(), ScopeNone},
		{"unrecognized", NewCategorySet(CategoryUnrecognized), ScopeNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetermineRegenerationScope(tt.categories))
		})
	}
}

func TestScopeNames(t *testing.T) {
	for s := ScopeNone; s <= ScopeFull; s++ {
		parsed, err := ParseScope(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	_, err := ParseScope("partial")
	assert.Error(t, err)

	text, err := ScopeAPIOnly.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "api-only", string(text))
}

func TestCategorySet(t *testing.T) {
	s := NewCategorySet(CategoryMetadata, CategoryReadme)
	assert.True(t, s.Has(CategoryReadme))
	assert.False(t, s.Has(CategorySource))
	assert.False(t, s.Has(CategoryUnrecognized))
	assert.Equal(t, []Category{CategoryReadme, CategoryMetadata}, s.Categories())
	assert.Equal(t, "{readme,metadata}", s.String())
	assert.True(t, NewCategorySet().Empty())
}

func TestAnalyzeChanges(t *testing.T) {
	tr := New()
	events := []types.ChangeEvent{
		{Type: types.EventModify, Path: "packages/ui/src/button.tsx"},
		{Type: types.EventModify, Path: "packages/ui/README.md"},
		{Type: types.EventModify, Path: "packages/ui/src/button.tsx"},
		{Type: types.EventAdd, Path: "packages/core/package.json"},
		{Type: types.EventModify, Path: "packages/core/CHANGELOG.md"},
		{Type: types.EventModify, Path: "tools/build.sh"},
		{Type: types.EventModify, Path: "elsewhere/notes.md", PackageName: "notes"},
	}

	results := tr.AnalyzeChanges(events)
	require.Len(t, results, 3)

	core := results[0]
	assert.Equal(t, "core", core.PackageName)
	assert.Equal(t, NewCategorySet(CategoryMetadata), core.ChangedCategories)
	assert.True(t, core.NeedsRegeneration)
	assert.Equal(t, ScopeMetadataOnly, core.Scope)
	assert.Equal(t, []string{"packages/core/CHANGELOG.md", "packages/core/package.json"}, core.ChangedFiles)

	notes := results[1]
	assert.Equal(t, "notes", notes.PackageName)
	assert.False(t, notes.NeedsRegeneration)
	assert.Equal(t, ScopeNone, notes.Scope)

	ui := results[2]
	assert.Equal(t, "ui", ui.PackageName)
	assert.Equal(t, ScopeFull, ui.Scope)
	assert.Equal(t, []string{"packages/ui/README.md", "packages/ui/src/button.tsx"}, ui.ChangedFiles)
}

func TestAnalyzeChangesCustomResolver(t *testing.T) {
	tr := New(WithResolver(PackagesDirResolver("apps", "libs")))
	results := tr.AnalyzeChanges([]types.ChangeEvent{
		{Type: types.EventModify, Path: "libs/auth/src/index.ts"},
		{Type: types.EventModify, Path: "packages/ui/src/index.ts"},
	})
	require.Len(t, results, 1)
	assert.Equal(t, "auth", results[0].PackageName)
	assert.Equal(t, ScopeAPIOnly, results[0].Scope)
}

func TestPackagesDirResolver(t *testing.T) {
	resolve := PackagesDirResolver("packages")
	name, ok := resolve("/repo/packages/ui/src/a.ts")
	assert.True(t, ok)
	assert.Equal(t, "ui", name)

	_, ok = resolve("packages/ui")
	assert.False(t, ok)
	_, ok = resolve("src/a.ts")
	assert.False(t, ok)
}

package merge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/docsync/internal/errors"
)

func TestMergeInsertsPreservedAfterGenerated(t *testing.T) {
	oldText := "# Pkg\n\n" + WrapGenerated("old api text") + "\n\n" + WrapPreserved("custom note") + "\n"
	newText := "# Pkg\n\n" + WrapGenerated("new api text") + "\n\nFooter\n"

	result, err := Merge(oldText, newText, DefaultOptions())
	require.NoError(t, err)

	assert.Contains(t, result.Content, "new api text")
	assert.Contains(t, result.Content, "custom note")
	assert.NotContains(t, result.Content, "old api text")
	assert.Equal(t, 1, result.PreservedCount)
	assert.Equal(t, 1, result.UpdatedCount)
	assert.True(t, result.HasChanges)

	// preserved block sits between the generated section and the footer
	gen := strings.Index(result.Content, GeneratedEnd)
	note := strings.Index(result.Content, "custom note")
	footer := strings.Index(result.Content, "Footer")
	assert.Less(t, gen, note)
	assert.Less(t, note, footer)
	assert.NoError(t, ValidateMarkerPairing(result.Content))
}

func TestMergeAppendsWhenNoGeneratedSection(t *testing.T) {
	oldText := WrapPreserved("keep me")
	newText := "plain regenerated page\n"

	result, err := Merge(oldText, newText, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "plain regenerated page\n\n"+PreservedStart+"\nkeep me\n"+PreservedEnd+"\n", result.Content)
	assert.Equal(t, 1, result.PreservedCount)
	assert.Zero(t, result.UpdatedCount)
}

func TestMergeFullReplacementWithoutMarkers(t *testing.T) {
	result, err := Merge("old body\n", "new body\n", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "new body\n", result.Content)
	assert.True(t, result.HasChanges)
	assert.Zero(t, result.PreservedCount)

	result, err = Merge("same body\n", "  same body  \n\n", DefaultOptions())
	require.NoError(t, err)
	assert.False(t, result.HasChanges, "changes are compared after trimming")
}

func TestMergeFillsSlotsInDocumentOrder(t *testing.T) {
	oldText := strings.Join([]string{
		WrapGenerated("g1"),
		WrapPreserved("first"),
		WrapPreserved("second"),
		WrapPreserved("third"),
	}, "\n")
	newText := strings.Join([]string{
		WrapGenerated("g2"),
		WrapPreserved("placeholder A"),
		"middle",
		WrapPreserved("placeholder B"),
	}, "\n")

	result, err := Merge(oldText, newText, DefaultOptions())
	require.NoError(t, err)

	sections := ExtractSections(result.Content, KindPreserved)
	require.Len(t, sections, 3)
	assert.Equal(t, "\nfirst\n", sections[0].Body)
	assert.Equal(t, "\nsecond\n", sections[1].Body)
	assert.Equal(t, "\nthird\n", sections[2].Body, "leftover is appended in a fresh pair")
	assert.Equal(t, 3, result.PreservedCount)
	assert.NotContains(t, result.Content, "placeholder")

	middle := strings.Index(result.Content, "middle")
	assert.Less(t, strings.Index(result.Content, "first"), middle)
	assert.Less(t, middle, strings.Index(result.Content, "second"))
	assert.True(t, strings.HasSuffix(result.Content, PreservedEnd+"\n"))
}

func TestMergeExtraSlotsPassThrough(t *testing.T) {
	oldText := WrapPreserved("only one")
	newText := WrapPreserved("slot 1") + "\n" + WrapPreserved("slot 2")

	result, err := Merge(oldText, newText, DefaultOptions())
	require.NoError(t, err)

	sections := ExtractSections(result.Content, KindPreserved)
	require.Len(t, sections, 2)
	assert.Equal(t, "\nonly one\n", sections[0].Body)
	assert.Equal(t, "\nslot 2\n", sections[1].Body)
	assert.Equal(t, 1, result.PreservedCount)
}

func TestMergeFavorGenerated(t *testing.T) {
	oldText := WrapPreserved("authored") + "\n" + WrapPreserved("extra")
	newText := WrapPreserved("shipped")

	result, err := Merge(oldText, newText, Options{ConflictStrategy: FavorGenerated})
	require.NoError(t, err)

	assert.Contains(t, result.Content, "shipped")
	assert.NotContains(t, result.Content, "authored")
	assert.Contains(t, result.Content, "extra", "leftovers are still appended")
	assert.Equal(t, 1, result.PreservedCount)
}

func TestMergeEmptyPreserved(t *testing.T) {
	oldText := WrapGenerated("a") + "\n" + WrapPreserved("  ")
	newText := WrapGenerated("b")

	result, err := Merge(oldText, newText, DefaultOptions())
	require.NoError(t, err)
	assert.Zero(t, result.PreservedCount)
	assert.NotContains(t, result.Content, PreservedStart)

	result, err = Merge(oldText, newText, Options{PreserveEmptyPreserved: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.PreservedCount)
	assert.Contains(t, result.Content, PreservedStart)
}

func TestMergeIsIdempotent(t *testing.T) {
	cases := map[string][2]string{
		"insert after generated": {
			WrapGenerated("v1") + "\n\n" + WrapPreserved("note"),
			"# Title\n\n" + WrapGenerated("v2") + "\n\nTail\n",
		},
		"append": {
			WrapPreserved("a") + WrapPreserved("b"),
			"no markers here",
		},
		"slots and leftovers": {
			WrapPreserved("x") + WrapPreserved("y") + WrapPreserved("z"),
			WrapGenerated("g") + WrapPreserved("") + "\n" + WrapPreserved("p"),
		},
		"nested markers inside preserved": {
			PreservedStart + "outer " + WrapPreserved("inner") + PreservedEnd,
			WrapGenerated("g"),
		},
		"full replacement": {
			"old",
			"new",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			first, err := Merge(tc[0], tc[1], DefaultOptions())
			require.NoError(t, err)
			second, err := Merge(first.Content, tc[1], DefaultOptions())
			require.NoError(t, err)

			assert.Equal(t, first.Content, second.Content)
			assert.Equal(t, first.PreservedCount, second.PreservedCount)
			assert.Equal(t, first.UpdatedCount, second.UpdatedCount)
			assert.False(t, second.HasChanges)
		})
	}
}

func TestMergeRejectsMisPairedMarkers(t *testing.T) {
	_, err := Merge(GeneratedEnd+"\n"+GeneratedStart, WrapGenerated("x"), DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.IsMergeError(err))
	assert.Contains(t, err.Error(), "previous document")

	_, err = Merge("", PreservedStart+"unterminated", DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.IsMergeError(err))
	assert.Contains(t, err.Error(), "generated document")
}

func TestParseConflictStrategy(t *testing.T) {
	tests := []struct {
		input    string
		expected ConflictStrategy
		wantErr  bool
	}{
		{"", FavorPreserved, false},
		{"favor-preserved", FavorPreserved, false},
		{" Favor-Generated ", FavorGenerated, false},
		{"newest", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseConflictStrategy(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDiff(t *testing.T) {
	out, err := Diff("a\nb\nc\n", "a\nB\nc\n", "old.mdx", "new.mdx")
	require.NoError(t, err)
	assert.Contains(t, out, "--- old.mdx")
	assert.Contains(t, out, "+++ new.mdx")
	assert.Contains(t, out, "-b")
	assert.Contains(t, out, "+B")

	out, err = Diff("same\n", "same\n", "a", "b")
	require.NoError(t, err)
	assert.Empty(t, out)
}

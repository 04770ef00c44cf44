package scanner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCodeSpansFenced(t *testing.T) {
	text := "# Usage\n\n```tsx\n<Button onClick={go}>Go</Button>\n```\n\nAfter.\n"

	spans := ExtractCodeSpans(text)
	require.Len(t, spans, 1)

	span := spans[0]
	assert.Equal(t, "tsx", span.Language)
	assert.True(t, span.Fenced)
	assert.False(t, span.Inline)
	assert.Equal(t, "<Button onClick={go}>Go</Button>\n", span.Raw)
	assert.Equal(t, span.Raw, text[span.Start:span.End])
}

func TestExtractCodeSpansInlineAndIndented(t *testing.T) {
	text := "Call `useThing<T>()` first.\n\n    <Indented />\n"

	spans := ExtractCodeSpans(text)
	require.Len(t, spans, 2)

	assert.True(t, spans[0].Inline)
	assert.Equal(t, "useThing<T>()", spans[0].Raw)
	assert.Equal(t, "useThing<T>()", text[spans[0].Start:spans[0].End])

	assert.False(t, spans[1].Inline)
	assert.False(t, spans[1].Fenced)
	assert.Equal(t, "<Indented />\n", spans[1].Raw)
}

func TestExtractCodeSpansFenceInsideString(t *testing.T) {
	// The ``` inside the string does not close the outer ~~~ fence.
	text := "~~~js\nconst fence = \"```\";\nconst tag = \"<Tabs>\";\n~~~\n\n<Aside>real</Aside>\n"

	spans := ExtractCodeSpans(text)
	require.Len(t, spans, 1)
	assert.Contains(t, spans[0].Raw, "<Tabs>")

	tokens := ScanOutsideCode(text)
	require.Len(t, tokens, 2)
	assert.Equal(t, "Aside", tokens[0].Name)
	assert.Equal(t, "Aside", tokens[1].Name)
}

func TestExtractCodeSpansEmptyFence(t *testing.T) {
	spans := ExtractCodeSpans("```bash\n```\n")
	require.Len(t, spans, 1)
	assert.Empty(t, spans[0].Raw)
	assert.Equal(t, "bash", spans[0].Language)
}

func TestExtractCodeSpansNoCode(t *testing.T) {
	assert.Empty(t, ExtractCodeSpans("just prose with <Badge />"))
	assert.Empty(t, ExtractCodeSpans(""))
}

func TestMaskCodeSpansPreservesOffsets(t *testing.T) {
	text := "before `<Tabs>` after\n```\n<Card>\n```\n<Aside />"
	masked := MaskCodeSpans(text, ExtractCodeSpans(text))

	assert.Len(t, masked, len(text))
	assert.Equal(t, strings.Count(text, "\n"), strings.Count(masked, "\n"))
	assert.NotContains(t, masked, "<Tabs>")
	assert.NotContains(t, masked, "<Card>")
	assert.Contains(t, masked, "<Aside />")
	assert.Equal(t, strings.Index(text, "<Aside />"), strings.Index(masked, "<Aside />"))
}

func TestMaskCodeSpansClampsBounds(t *testing.T) {
	masked := MaskCodeSpans("abc", []CodeSpan{{Start: -4, End: 99}})
	assert.Equal(t, "   ", masked)
	assert.Equal(t, "abc", MaskCodeSpans("abc", nil))
}

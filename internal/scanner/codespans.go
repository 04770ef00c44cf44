package scanner

import (
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"
)

// CodeSpan is a region of sample code found by walking the markdown AST.
type CodeSpan struct {
	Raw      string
	Language string
	// Start and End are byte offsets of the code content. Fence lines of a
	// fenced block are not included.
	Start  int
	End    int
	Inline bool
	// Fenced is true for ``` or ~~~ blocks, false for indented blocks.
	Fenced bool
}

var markdown = goldmark.New()

// ExtractCodeSpans returns every code span of text in document order. It
// parses text structurally; fence-like sequences inside strings are never
// counted. A parser failure yields no spans.
func ExtractCodeSpans(text string) (spans []CodeSpan) {
	defer func() {
		if r := recover(); r != nil {
			spans = nil
		}
	}()

	source := []byte(text)
	doc := markdown.Parser().Parse(gtext.NewReader(source))

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.FencedCodeBlock:
			span := blockSpan(node.Lines(), source)
			span.Fenced = true
			if node.Info != nil {
				span.Language = string(node.Language(source))
				if node.Lines().Len() == 0 {
					span.Start = node.Info.Segment.Stop
					span.End = span.Start
				}
			}
			spans = append(spans, span)
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			spans = append(spans, blockSpan(node.Lines(), source))
			return ast.WalkSkipChildren, nil
		case *ast.CodeSpan:
			spans = append(spans, inlineSpan(node, source))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return spans
}

func blockSpan(lines *gtext.Segments, source []byte) CodeSpan {
	span := CodeSpan{Start: -1}
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		if span.Start < 0 {
			span.Start = seg.Start
		}
		span.End = seg.Stop
		b.Write(seg.Value(source))
	}
	if span.Start < 0 {
		span.Start = 0
		span.End = 0
	}
	span.Raw = b.String()
	return span
}

func inlineSpan(node *ast.CodeSpan, source []byte) CodeSpan {
	span := CodeSpan{Start: -1, Inline: true}
	var b strings.Builder
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		t, ok := c.(*ast.Text)
		if !ok {
			continue
		}
		if span.Start < 0 {
			span.Start = t.Segment.Start
		}
		span.End = t.Segment.Stop
		b.Write(t.Segment.Value(source))
	}
	if span.Start < 0 {
		span.Start = 0
		span.End = 0
	}
	span.Raw = b.String()
	return span
}

// MaskCodeSpans blanks out the bytes covered by spans, keeping newlines so
// that offsets and line numbers in the result match text.
func MaskCodeSpans(text string, spans []CodeSpan) string {
	if len(spans) == 0 {
		return text
	}
	masked := []byte(text)
	for _, span := range spans {
		start, end := span.Start, span.End
		if start < 0 {
			start = 0
		}
		if end > len(masked) {
			end = len(masked)
		}
		for i := start; i < end; i++ {
			if masked[i] != '\n' && masked[i] != '\r' {
				masked[i] = ' '
			}
		}
	}
	return string(masked)
}

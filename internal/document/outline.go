package document

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/conneroisu/docsync/internal/scanner"
)

// Heading is one node of an Outline.
type Heading struct {
	Level int
	Text  string
	// Key is Text folded for comparison: NFC-normalised, case-folded and
	// with whitespace collapsed.
	Key  string
	Line int
	// Parent is the index of the enclosing heading, or -1.
	Parent   int
	Children []int
}

// Outline is the heading tree of a body stored as an arena. Nodes refer to
// each other by index.
type Outline struct {
	Nodes []Heading
	Roots []int
}

var markdown = goldmark.New()

// BuildOutline parses body and returns its heading tree. A heading's parent
// is the nearest preceding heading of a lower level.
func BuildOutline(body string) *Outline {
	source := []byte(body)
	doc := markdown.Parser().Parse(gtext.NewReader(source))
	lines := scanner.NewLineIndex(body)

	o := &Outline{}
	var stack []int
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}

		text := strings.TrimSpace(inlineText(h, source))
		node := Heading{
			Level:  h.Level,
			Text:   text,
			Key:    NormalizeHeading(text),
			Parent: -1,
		}
		if h.Lines().Len() > 0 {
			node.Line = lines.Line(h.Lines().At(0).Start)
		}

		for len(stack) > 0 && o.Nodes[stack[len(stack)-1]].Level >= h.Level {
			stack = stack[:len(stack)-1]
		}
		idx := len(o.Nodes)
		if len(stack) > 0 {
			parent := stack[len(stack)-1]
			node.Parent = parent
			o.Nodes = append(o.Nodes, node)
			o.Nodes[parent].Children = append(o.Nodes[parent].Children, idx)
		} else {
			o.Nodes = append(o.Nodes, node)
			o.Roots = append(o.Roots, idx)
		}
		stack = append(stack, idx)
		return ast.WalkSkipChildren, nil
	})
	return o
}

// inlineText concatenates the text content of an inline subtree.
func inlineText(n ast.Node, source []byte) string {
	var b strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				b.Write(t.Segment.Value(source))
				if t.SoftLineBreak() || t.HardLineBreak() {
					b.WriteByte(' ')
				}
			case *ast.String:
				b.Write(t.Value)
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return b.String()
}

// NormalizeHeading folds heading text for duplicate detection.
func NormalizeHeading(text string) string {
	return cases.Fold().String(norm.NFC.String(strings.Join(strings.Fields(text), " ")))
}

// Path returns the indices from the root down to node i.
func (o *Outline) Path(i int) []int {
	var path []int
	for ; i >= 0; i = o.Nodes[i].Parent {
		path = append([]int{i}, path...)
	}
	return path
}

// Duplicates groups headings that share a level and a Key. Each group lists
// node indices in document order; only groups of two or more are returned.
func (o *Outline) Duplicates() [][]int {
	type key struct {
		level int
		text  string
	}
	groups := make(map[key][]int)
	var order []key
	for i, h := range o.Nodes {
		if h.Key == "" {
			continue
		}
		k := key{h.Level, h.Key}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	var out [][]int
	for _, k := range order {
		if len(groups[k]) > 1 {
			out = append(out, groups[k])
		}
	}
	return out
}

// LevelSkips returns the nodes whose level is more than one below their
// parent's, e.g. an h4 directly under an h2.
func (o *Outline) LevelSkips() []int {
	var out []int
	for i, h := range o.Nodes {
		if h.Parent >= 0 && h.Level > o.Nodes[h.Parent].Level+1 {
			out = append(out, i)
		}
	}
	return out
}

package validation

import (
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"

	"github.com/conneroisu/docsync/internal/document"
	"github.com/conneroisu/docsync/internal/errors"
	"github.com/conneroisu/docsync/internal/merge"
	"github.com/conneroisu/docsync/internal/scanner"
)

var markdown = goldmark.New()

func (v *Validator) checkFrontmatter(r *report, doc *document.Document) {
	fm := doc.Frontmatter
	if strings.TrimSpace(fm.Title) == "" {
		r.errorf(IssueFrontmatter, 1, 1, "frontmatter title is required")
	} else if n := utf8.RuneCountInString(fm.Title); n > v.opts.MaxTitleLength {
		r.warnf(IssueFrontmatter, 1, 1, "title is %d characters, longer than %d", n, v.opts.MaxTitleLength)
	}
	if n := utf8.RuneCountInString(fm.Description); n > v.opts.MaxDescriptionLength {
		r.warnf(IssueFrontmatter, 1, 1, "description is %d characters, longer than %d", n, v.opts.MaxDescriptionLength)
	}
}

func (v *Validator) checkMarkers(r *report, body string) {
	err := merge.ValidateMarkerPairing(body)
	if err == nil {
		return
	}
	if de, ok := errors.As(err); ok {
		r.errorf(IssueMarker, de.Line, de.Column, "%s", de.Message)
		return
	}
	r.errorf(IssueMarker, 0, 0, "%v", err)
}

// isGenericTag reports whether tok looks like a type parameter rather than a
// component: a single-letter name, or a '<' glued to an identifier as in
// Array<Item>.
func isGenericTag(text string, tok scanner.Token) bool {
	if len(tok.Name) == 1 {
		return true
	}
	if tok.Offset == 0 {
		return false
	}
	c := text[tok.Offset-1]
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

type openTag struct {
	name   string
	offset int
}

// checkTags walks component tags outside code with a nesting stack. The same
// pass checks tag balance, component nesting rules and unsafe attributes.
func (v *Validator) checkTags(r *report, body string) {
	lines := scanner.NewLineIndex(body)
	var stack []openTag

	at := func(offset int) (int, int) { return lines.Position(offset) }

	for _, tok := range scanner.ScanOutsideCode(body) {
		if isGenericTag(body, tok) {
			continue
		}

		if v.opts.Security && v.sanitizer.Unsafe(tok) {
			line, col := at(tok.Offset)
			r.errorf(IssueSecurity, line, col, "<%s> has an event handler, script URL or unsafe expression", tok.Name)
		}

		if tok.Kind != scanner.KindClose && v.opts.Components {
			v.checkNesting(r, stack, tok, at)
		}

		switch tok.Kind {
		case scanner.KindOpen:
			stack = append(stack, openTag{name: tok.Name, offset: tok.Offset})
		case scanner.KindClose:
			stack = v.closeTag(r, stack, tok, at)
		}
	}

	if v.opts.TagBalance {
		for _, open := range stack {
			line, col := at(open.offset)
			r.errorf(IssueTagBalance, line, col, "<%s> is never closed", open.name)
		}
	}
}

func (v *Validator) closeTag(r *report, stack []openTag, tok scanner.Token, at func(int) (int, int)) []openTag {
	match := -1
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].name == tok.Name {
			match = i
			break
		}
	}

	if match < 0 {
		if v.opts.TagBalance {
			line, col := at(tok.Offset)
			r.errorf(IssueTagBalance, line, col, "</%s> has no matching opening tag", tok.Name)
		}
		return stack
	}

	if v.opts.TagBalance {
		for _, open := range stack[match+1:] {
			line, col := at(open.offset)
			r.errorf(IssueTagBalance, line, col, "<%s> is not closed before </%s>", open.name, tok.Name)
		}
	}
	return stack[:match]
}

func (v *Validator) checkNesting(r *report, stack []openTag, tok scanner.Token, at func(int) (int, int)) {
	for _, rule := range v.opts.ComponentRules {
		if rule.Child != tok.Name {
			continue
		}
		inside := false
		for _, open := range stack {
			if open.name == rule.Parent {
				inside = true
				break
			}
		}
		if inside {
			continue
		}
		sev := rule.Severity
		if sev != SeverityError {
			sev = SeverityWarning
		}
		line, col := at(tok.Offset)
		r.add(sev, IssueComponent, line, col, "<%s> should be placed inside <%s>", rule.Child, rule.Parent)
	}
}

// checkMarkdown walks the markdown AST for link and code block problems.
func (v *Validator) checkMarkdown(r *report, body string) {
	source := []byte(body)
	lines := scanner.NewLineIndex(body)
	doc := markdown.Parser().Parse(gtext.NewReader(source))

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Link:
			v.checkLink(r, lines, node, string(node.Destination), node.ChildCount() == 0)
		case *ast.Image:
			v.checkLink(r, lines, node, string(node.Destination), false)
		case *ast.AutoLink:
			v.checkLink(r, lines, node, string(node.URL(source)), false)
		case *ast.FencedCodeBlock:
			if v.opts.ContentQuality {
				v.checkFencedBlock(r, lines, node, body)
				v.checkCodeLines(r, lines, node.Lines(), source)
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			if v.opts.ContentQuality {
				v.checkCodeLines(r, lines, node.Lines(), source)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
}

func (v *Validator) checkLink(r *report, lines *scanner.LineIndex, n ast.Node, target string, noText bool) {
	line, col := lines.Position(nodeOffset(n))
	problem, err := CheckLink(target)
	switch problem {
	case LinkUnsafe:
		if v.opts.Security {
			r.errorf(IssueSecurity, line, col, "%v", err)
		}
	case LinkEmpty, LinkMalformed:
		if v.opts.ContentQuality {
			r.warnf(IssueLink, line, col, "%v", err)
		}
	}
	if noText && v.opts.ContentQuality {
		r.warnf(IssueLink, line, col, "link to %s has no text", target)
	}
}

func (v *Validator) checkFencedBlock(r *report, lines *scanner.LineIndex, node *ast.FencedCodeBlock, body string) {
	segs := node.Lines()
	open := -1
	switch {
	case node.Info != nil:
		open = node.Info.Segment.Start
	case segs.Len() > 0:
		open = segs.At(0).Start - 1
	}
	line, _ := lines.Position(open)

	empty := true
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		if strings.TrimSpace(string(seg.Value([]byte(body)))) != "" {
			empty = false
			break
		}
	}
	if empty {
		r.warnf(IssueCodeBlock, line, 1, "code block is empty")
	}

	var after int
	switch {
	case segs.Len() > 0:
		after = segs.At(segs.Len() - 1).Stop
	case node.Info != nil:
		after = node.Info.Segment.Stop
		if nl := strings.IndexByte(body[after:], '\n'); nl >= 0 {
			after += nl + 1
		} else {
			after = len(body)
		}
	default:
		return
	}
	if !closingFenceAt(body, after) {
		r.warnf(IssueCodeFence, line, 1, "code fence is never closed")
	}
}

// closingFenceAt reports whether the line at offset, or the next one when
// offset sits on a line break, is a closing fence. Container prefixes such
// as blockquote markers and list indentation are ignored.
func closingFenceAt(body string, offset int) bool {
	if offset > len(body) {
		return false
	}
	if offset > 0 && offset < len(body) && body[offset-1] != '\n' && body[offset] == '\n' {
		offset++
	}
	rest := body[offset:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	rest = strings.TrimLeft(rest, " \t>")
	return strings.HasPrefix(rest, "```") || strings.HasPrefix(rest, "~~~")
}

func (v *Validator) checkCodeLines(r *report, lines *scanner.LineIndex, segs *gtext.Segments, source []byte) {
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		text := strings.TrimRight(string(seg.Value(source)), "\r\n")
		if n := utf8.RuneCountInString(text); n > v.opts.MaxCodeLineLength {
			r.warnf(IssueCodeBlock, lines.Line(seg.Start), 1,
				"code line is %d characters, longer than %d", n, v.opts.MaxCodeLineLength)
		}
	}
}

// nodeOffset locates an inline node by its first text descendant, falling
// back to the enclosing block.
func nodeOffset(n ast.Node) int {
	if off := firstTextOffset(n); off >= 0 {
		return off
	}
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Type() == ast.TypeBlock && p.Lines().Len() > 0 {
			return p.Lines().At(0).Start
		}
	}
	return -1
}

func firstTextOffset(n ast.Node) int {
	if t, ok := n.(*ast.Text); ok {
		return t.Segment.Start
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if off := firstTextOffset(c); off >= 0 {
			return off
		}
	}
	return -1
}

func (v *Validator) checkHeadings(r *report, body string) {
	outline := document.BuildOutline(body)
	for _, group := range outline.Duplicates() {
		first := outline.Nodes[group[0]]
		for _, i := range group[1:] {
			h := outline.Nodes[i]
			r.warnf(IssueHeading, h.Line, 1, "duplicate h%d heading %q, first used on line %d",
				h.Level, h.Text, first.Line+r.lineOffset)
		}
	}
	for _, i := range outline.LevelSkips() {
		h := outline.Nodes[i]
		parent := outline.Nodes[h.Parent]
		r.warnf(IssueHeading, h.Line, 1, "heading %q skips from h%d to h%d", h.Text, parent.Level, h.Level)
	}
}

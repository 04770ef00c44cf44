// Package scanner tokenizes component-style tags out of generated MDX text.
//
// Scan walks the input with an explicit cursor instead of using
// backtracking regular expressions. Tag names must look like components
// (`[A-Z][A-Za-z0-9]*`); anything else is ordinary text. While reading
// attributes the scanner tracks quote state and brace depth so that `>` or
// `/` inside a string literal or an embedded `{...}` expression never ends a
// tag early. Malformed or unterminated tags are omitted from the result and
// scanning resumes after their `<`. Scanning cannot fail.
//
// Embedded expressions are matched for the whole input up front, so a
// failed tag attempt never re-reads an unterminated expression and the scan
// stays linear in the input size.
//
// ExtractCodeSpans finds fenced, indented and inline code by walking a
// goldmark AST, so sample code is never mistaken for markup.
package scanner

import (
	"sort"
	"strings"
)

// MaxTagLength bounds how far a single tag attempt may read. A candidate
// tag longer than this is treated as text.
const MaxTagLength = 1024

// TokenKind classifies a scanned tag.
type TokenKind int

const (
	KindOpen TokenKind = iota
	KindClose
	KindSelfClosing
)

// String returns the string representation of the TokenKind
func (k TokenKind) String() string {
	switch k {
	case KindOpen:
		return "open"
	case KindClose:
		return "close"
	case KindSelfClosing:
		return "self-closing"
	default:
		return "unknown"
	}
}

// Attribute is a single parsed tag attribute.
type Attribute struct {
	// Name is empty for spread expressions such as {...props}.
	Name  string
	Value string
	// Quote is the quote character of a string value, or 0.
	Quote byte
	// Expression is true when the value was written as {expr}.
	Expression bool
}

// Token is one component tag found in the input.
type Token struct {
	Raw        string
	Offset     int
	Kind       TokenKind
	Name       string
	Attributes []Attribute
}

// End returns the offset just past the token.
func (t Token) End() int {
	return t.Offset + len(t.Raw)
}

// Attr returns the attribute with the given name.
func (t Token) Attr(name string) (Attribute, bool) {
	for _, a := range t.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// Scan returns every well-formed component tag in text, in order.
func Scan(text string) []Token {
	s := newTagScanner(text)
	var tokens []Token
	n := len(text)
	for i := 0; i < n; {
		next := strings.IndexByte(text[i:], '<')
		if next < 0 {
			break
		}
		i += next

		tok, ok := s.scanTag(i)
		if !ok {
			i++
			continue
		}
		tokens = append(tokens, tok)
		i = tok.End()
	}
	return tokens
}

// ScanOutsideCode scans text with every code span masked out.
func ScanOutsideCode(text string) []Token {
	return Scan(MaskCodeSpans(text, ExtractCodeSpans(text)))
}

// ScanOne parses s as exactly one tag. It reports false when s is not a
// single well-formed tag with nothing before or after it.
func ScanOne(s string) (Token, bool) {
	if !strings.HasPrefix(s, "<") {
		return Token{}, false
	}
	tok, ok := newTagScanner(s).scanTag(0)
	if !ok || tok.End() != len(s) {
		return Token{}, false
	}
	return tok, true
}

type tagScanner struct {
	text string
	// ends[i] is the offset just past the expression opened by the '{' at
	// i, or 0 when that expression never closes.
	ends []int
}

func newTagScanner(text string) *tagScanner {
	return &tagScanner{text: text, ends: matchExpressions(text)}
}

func (s *tagScanner) scanTag(start int) (Token, bool) {
	text := s.text
	limit := start + MaxTagLength
	if limit > len(text) {
		limit = len(text)
	}

	i := start + 1
	kind := KindOpen
	if i < limit && text[i] == '/' {
		kind = KindClose
		i++
	}

	if i >= limit || !isUpper(text[i]) {
		return Token{}, false
	}
	nameStart := i
	for i < limit && isAlnum(text[i]) {
		i++
	}
	name := text[nameStart:i]

	if kind == KindClose {
		i = skipSpace(text, i, limit)
		if i < limit && text[i] == '>' {
			return Token{Raw: text[start : i+1], Offset: start, Kind: KindClose, Name: name}, true
		}
		return Token{}, false
	}

	var attrs []Attribute
	for {
		j := skipSpace(text, i, limit)
		if j >= limit {
			return Token{}, false
		}
		c := text[j]
		switch {
		case c == '>':
			return Token{Raw: text[start : j+1], Offset: start, Kind: KindOpen, Name: name, Attributes: attrs}, true
		case c == '/':
			if j+1 < limit && text[j+1] == '>' {
				return Token{Raw: text[start : j+2], Offset: start, Kind: KindSelfClosing, Name: name, Attributes: attrs}, true
			}
			return Token{}, false
		case j == i:
			// attributes must be separated from the name and from each other
			return Token{}, false
		case c == '{':
			end, ok := s.expressionEnd(j, limit)
			if !ok {
				return Token{}, false
			}
			attrs = append(attrs, Attribute{Value: text[j+1 : end-1], Expression: true})
			i = end
		case isAttrNameStart(c):
			attr, end, ok := s.scanAttribute(j, limit)
			if !ok {
				return Token{}, false
			}
			attrs = append(attrs, attr)
			i = end
		default:
			return Token{}, false
		}
	}
}

func (s *tagScanner) scanAttribute(i, limit int) (Attribute, int, bool) {
	text := s.text
	nameStart := i
	for i < limit && isAttrNameChar(text[i]) {
		i++
	}
	attr := Attribute{Name: text[nameStart:i]}

	j := skipSpace(text, i, limit)
	if j >= limit || text[j] != '=' {
		// boolean attribute
		return attr, i, true
	}

	j = skipSpace(text, j+1, limit)
	if j >= limit {
		return Attribute{}, 0, false
	}

	switch q := text[j]; q {
	case '"', '\'':
		k := strings.IndexByte(text[j+1:limit], q)
		if k < 0 {
			return Attribute{}, 0, false
		}
		attr.Value = text[j+1 : j+1+k]
		attr.Quote = q
		return attr, j + k + 2, true
	case '{':
		end, ok := s.expressionEnd(j, limit)
		if !ok {
			return Attribute{}, 0, false
		}
		attr.Value = text[j+1 : end-1]
		attr.Expression = true
		return attr, end, true
	default:
		return Attribute{}, 0, false
	}
}

// expressionEnd returns the offset just past the balanced {...} opened at
// i, provided it closes within limit.
func (s *tagScanner) expressionEnd(i, limit int) (int, bool) {
	if i >= len(s.ends) {
		return 0, false
	}
	end := s.ends[i]
	return end, end > 0 && end <= limit
}

func skipSpace(text string, i, limit int) int {
	for i < limit {
		switch text[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isAttrNameStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c == ':' || c == '@'
}

func isAttrNameChar(c byte) bool {
	return isAlnum(c) || c == '_' || c == ':' || c == '-' || c == '.' || c == '@'
}

// LineIndex maps byte offsets to 1-based line and column numbers.
type LineIndex struct {
	starts []int
}

// NewLineIndex indexes the line starts of text.
func NewLineIndex(text string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{starts: starts}
}

// Position returns the 1-based line and column of offset.
func (li *LineIndex) Position(offset int) (line, column int) {
	if offset < 0 {
		return 0, 0
	}
	idx := sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > offset }) - 1
	if idx < 0 {
		idx = 0
	}
	return idx + 1, offset - li.starts[idx] + 1
}

// Line returns the 1-based line of offset.
func (li *LineIndex) Line(offset int) int {
	line, _ := li.Position(offset)
	return line
}

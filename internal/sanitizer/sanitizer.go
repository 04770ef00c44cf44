// Package sanitizer escapes generated MDX so that it is safe to hand to a
// rendering pipeline.
//
// Free text is entity-escaped. Component tags recognised by the scanner are
// re-serialized with every attribute value escaped while the tag name and
// shape are kept. Anything that does not match the tag grammar is treated as
// text and fully escaped.
package sanitizer

import (
	"strings"

	"github.com/conneroisu/docsync/internal/scanner"
)

var textReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"{", "&#123;",
	"}", "&#125;",
)

var attributeReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"`", "&#96;",
	"{", "&#123;",
	"}", "&#125;",
)

// unsafeSchemes are URL schemes that execute script when followed.
var unsafeSchemes = []string{"javascript:", "vbscript:", "data:text/html"}

// Options controls how tags are re-serialized.
type Options struct {
	// StripEventHandlers drops on* attributes entirely.
	StripEventHandlers bool
	// KeepExpressions keeps {expr} attribute values that are plain literals
	// (see IsLiteralExpression). Other expressions are always dropped.
	KeepExpressions bool
}

// DefaultOptions returns the options used by the package-level functions.
func DefaultOptions() Options {
	return Options{
		StripEventHandlers: true,
		KeepExpressions:    true,
	}
}

// Sanitizer re-serializes component tags under a fixed set of options.
type Sanitizer struct {
	opts Options
}

// New creates a sanitizer.
func New(opts Options) *Sanitizer {
	return &Sanitizer{opts: opts}
}

// SanitizeText escapes & < > " ' and the MDX expression braces.
func SanitizeText(text string) string {
	return textReplacer.Replace(text)
}

// SanitizeAttributeValue escapes a value for use inside a double-quoted
// attribute.
func SanitizeAttributeValue(value string) string {
	return attributeReplacer.Replace(value)
}

// SanitizeTag re-serializes tok using DefaultOptions.
func SanitizeTag(tok scanner.Token) string {
	return New(DefaultOptions()).Tag(tok)
}

// SanitizeMarkup escapes text using DefaultOptions.
func SanitizeMarkup(text string) string {
	return New(DefaultOptions()).Markup(text)
}

// Tag re-serializes tok. Close tags are returned unchanged.
func (s *Sanitizer) Tag(tok scanner.Token) string {
	if tok.Kind == scanner.KindClose {
		return tok.Raw
	}

	var b strings.Builder
	b.Grow(len(tok.Raw) + 16)
	b.WriteByte('<')
	b.WriteString(tok.Name)
	for _, attr := range tok.Attributes {
		s.writeAttribute(&b, attr)
	}
	if tok.Kind == scanner.KindSelfClosing {
		b.WriteString(" />")
	} else {
		b.WriteByte('>')
	}
	return b.String()
}

func (s *Sanitizer) writeAttribute(b *strings.Builder, attr scanner.Attribute) {
	if s.dropsAttribute(attr) {
		return
	}
	if attr.Expression {
		b.WriteByte(' ')
		if attr.Name != "" {
			b.WriteString(attr.Name)
			b.WriteByte('=')
		}
		b.WriteByte('{')
		b.WriteString(attr.Value)
		b.WriteByte('}')
		return
	}

	b.WriteByte(' ')
	b.WriteString(attr.Name)
	if attr.Quote == 0 {
		return
	}
	value := attr.Value
	if HasUnsafeScheme(value) {
		value = "#"
	}
	b.WriteString(`="`)
	b.WriteString(SanitizeAttributeValue(value))
	b.WriteByte('"')
}

// Markup escapes text as a whole. Well-formed component tags are
// re-serialized with Tag; everything between them is escaped with
// SanitizeText.
func (s *Sanitizer) Markup(text string) string {
	tokens := scanner.Scan(text)
	if len(tokens) == 0 {
		return SanitizeText(text)
	}

	var b strings.Builder
	b.Grow(len(text) + len(text)/8)
	pos := 0
	for _, tok := range tokens {
		b.WriteString(SanitizeText(text[pos:tok.Offset]))
		b.WriteString(s.Tag(tok))
		pos = tok.End()
	}
	b.WriteString(SanitizeText(text[pos:]))
	return b.String()
}

// Tags rewrites only the unsafe component tags of text, leaving prose and
// code untouched. It returns the rewritten text and the number of tags
// changed.
func (s *Sanitizer) Tags(text string) (string, int) {
	tokens := scanner.ScanOutsideCode(text)

	var b strings.Builder
	pos, changed := 0, 0
	for _, tok := range tokens {
		if !s.Unsafe(tok) {
			continue
		}
		b.WriteString(text[pos:tok.Offset])
		b.WriteString(s.Tag(tok))
		pos = tok.End()
		changed++
	}
	if changed == 0 {
		return text, 0
	}
	b.WriteString(text[pos:])
	return b.String(), changed
}

// Unsafe reports whether tok carries an attribute that Tag would remove or
// neutralise under the sanitizer's options.
func (s *Sanitizer) Unsafe(tok scanner.Token) bool {
	for _, attr := range tok.Attributes {
		if s.dropsAttribute(attr) {
			return true
		}
		if !attr.Expression && attr.Quote != 0 && HasUnsafeScheme(attr.Value) {
			return true
		}
	}
	return false
}

// dropsAttribute reports whether Tag leaves attr out entirely.
func (s *Sanitizer) dropsAttribute(attr scanner.Attribute) bool {
	if s.opts.StripEventHandlers && IsEventHandler(attr.Name) {
		return true
	}
	return attr.Expression && (!s.opts.KeepExpressions || !IsLiteralExpression(attr.Value))
}

// IsEventHandler reports whether name is an on* event handler attribute.
func IsEventHandler(name string) bool {
	return len(name) > 2 && strings.EqualFold(name[:2], "on")
}

// HasUnsafeScheme reports whether value is a script-executing URL. Control
// characters and whitespace are ignored, as browsers do.
func HasUnsafeScheme(value string) bool {
	var b strings.Builder
	for i := 0; i < len(value) && b.Len() < 16; i++ {
		c := value[i]
		if c <= ' ' {
			continue
		}
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	normalized := b.String()
	for _, scheme := range unsafeSchemes {
		if strings.HasPrefix(normalized, scheme) {
			return true
		}
	}
	return false
}

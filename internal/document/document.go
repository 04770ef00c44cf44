// Package document models a published documentation page: a YAML
// frontmatter block followed by an MDX body.
package document

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// Frontmatter is the YAML header of a page. Unknown keys are kept in Extra.
type Frontmatter struct {
	Title       string                 `yaml:"title"`
	Description string                 `yaml:"description,omitempty"`
	Extra       map[string]interface{} `yaml:",inline"`
}

// Document is a page split into its frontmatter and body. Rendered joins
// the raw frontmatter block and the body with a single newline, or returns
// the block alone for a parsed page that ended at its closing delimiter, so
// parsing and rendering round-trip exactly.
type Document struct {
	Frontmatter Frontmatter
	// FrontmatterBlock is the raw block including both delimiter lines,
	// without the trailing newline. It is empty when the page has none.
	FrontmatterBlock string
	Body             string

	// bare is set when the closing delimiter ended the text with no
	// newline after it.
	bare bool
}

// Parse splits text into frontmatter and body. Text without a leading
// delimiter line is all body. An unterminated block or invalid YAML is an
// error.
func Parse(text string) (*Document, error) {
	first, rest, ok := cutLine(text)
	if !ok || strings.TrimRight(first, "\r") != delimiter {
		return &Document{Body: text}, nil
	}

	offset := len(text) - len(rest)
	for {
		line, next, more := cutLine(rest)
		if strings.TrimRight(line, "\r") == delimiter {
			end := offset + len(line)
			doc := &Document{FrontmatterBlock: text[:end], bare: !more}
			if more {
				doc.Body = text[end+1:]
			}
			yamlText := text[len(first)+1 : offset]
			if err := yaml.Unmarshal([]byte(yamlText), &doc.Frontmatter); err != nil {
				return nil, fmt.Errorf("invalid frontmatter: %w", err)
			}
			return doc, nil
		}
		if !more {
			return nil, fmt.Errorf("unterminated frontmatter: missing closing %q", delimiter)
		}
		offset += len(line) + 1
		rest = next
	}
}

// cutLine returns the first line of s without its newline and the rest.
// ok is false when s has no newline.
func cutLine(s string) (line, rest string, ok bool) {
	return strings.Cut(s, "\n")
}

// New builds a document from frontmatter and body.
func New(fm Frontmatter, body string) (*Document, error) {
	out, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	return &Document{
		Frontmatter:      fm,
		FrontmatterBlock: delimiter + "\n" + string(out) + delimiter,
		Body:             body,
	}, nil
}

// HasFrontmatter reports whether the page has a frontmatter block.
func (d *Document) HasFrontmatter() bool {
	return d.FrontmatterBlock != ""
}

// Rendered returns the full page text.
func (d *Document) Rendered() string {
	if d.FrontmatterBlock == "" {
		return d.Body
	}
	if d.bare && d.Body == "" {
		return d.FrontmatterBlock
	}
	return d.FrontmatterBlock + "\n" + d.Body
}

// BodyOffsetLines is the number of lines before the body in Rendered, used
// to report body positions as page lines.
func (d *Document) BodyOffsetLines() int {
	if d.FrontmatterBlock == "" {
		return 0
	}
	return strings.Count(d.FrontmatterBlock, "\n") + 1
}

// WithBody returns a copy of d with a new body.
func (d *Document) WithBody(body string) *Document {
	cp := *d
	cp.Body = body
	return &cp
}

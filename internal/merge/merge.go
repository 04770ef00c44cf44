// Package merge reconciles freshly generated documentation with the
// hand-written sections of the previously published page.
//
// Pages delimit their regions with paired sentinel markers. Generated
// regions may be overwritten on every run; preserved regions are carried
// over verbatim. Marker pairing is validated before and after every merge
// and mis-paired input is returned as an error, never repaired.
package merge

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/conneroisu/docsync/internal/errors"
)

// ConflictStrategy decides who wins when the new text already carries a
// preserved slot for an old preserved section.
type ConflictStrategy string

const (
	// FavorPreserved keeps the authored content from the old text.
	FavorPreserved ConflictStrategy = "favor-preserved"
	// FavorGenerated keeps the placeholder shipped in the new text.
	FavorGenerated ConflictStrategy = "favor-generated"
)

// ParseConflictStrategy parses a strategy name. The empty string selects
// FavorPreserved.
func ParseConflictStrategy(s string) (ConflictStrategy, error) {
	switch ConflictStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FavorPreserved:
		return FavorPreserved, nil
	case FavorGenerated:
		return FavorGenerated, nil
	default:
		return "", fmt.Errorf("unknown conflict strategy %q (want %s or %s)", s, FavorPreserved, FavorGenerated)
	}
}

// Options configures Merge.
type Options struct {
	ConflictStrategy ConflictStrategy
	// PreserveEmptyPreserved keeps preserved sections whose body is blank.
	PreserveEmptyPreserved bool
}

// DefaultOptions returns the default merge options.
func DefaultOptions() Options {
	return Options{ConflictStrategy: FavorPreserved}
}

// Result is the outcome of a merge.
type Result struct {
	Content        string
	PreservedCount int
	UpdatedCount   int
	// HasChanges is false iff Content equals the old text after trimming.
	HasChanges bool
}

// Merge combines the preserved sections of oldText with newText.
//
// When neither text has markers the new text replaces the old one. When the
// new text has no preserved slots, the old preserved sections are inserted
// after the first generated end marker, or appended when there is none.
// Otherwise old sections fill the new slots in document order and leftovers
// are appended in fresh marker pairs. Extra slots in the new text are left
// as they are.
func Merge(oldText, newText string, opts Options) (Result, error) {
	if err := ValidateMarkerPairing(oldText); err != nil {
		return Result{}, errors.Wrap(err, errors.ErrorTypeMerge, errors.ErrCodeMarkerUnbalanced, "previous document has mis-paired markers")
	}
	if err := ValidateMarkerPairing(newText); err != nil {
		return Result{}, errors.Wrap(err, errors.ErrorTypeMerge, errors.ErrCodeMarkerUnbalanced, "generated document has mis-paired markers")
	}

	if !HasMarkers(oldText) && !HasMarkers(newText) {
		return Result{
			Content:    newText,
			HasChanges: changed(oldText, newText),
		}, nil
	}

	preserved := ExtractSections(oldText, KindPreserved)
	if !opts.PreserveEmptyPreserved {
		preserved = nonEmpty(preserved)
	}

	var content string
	var kept int
	slots := ExtractSections(newText, KindPreserved)
	if len(slots) == 0 {
		content, kept = insertPreserved(newText, preserved)
	} else {
		content, kept = fillSlots(newText, slots, preserved, opts.ConflictStrategy)
	}

	if err := ValidateMarkerPairing(content); err != nil {
		return Result{}, errors.Wrap(err, errors.ErrorTypeMerge, errors.ErrCodeMarkerUnbalanced, "merged document has mis-paired markers")
	}

	return Result{
		Content:        content,
		PreservedCount: kept,
		UpdatedCount:   len(ExtractSections(content, KindGenerated)),
		HasChanges:     changed(oldText, content),
	}, nil
}

// insertPreserved places every section right after the first generated end
// marker of text, or at the end of text.
func insertPreserved(text string, sections []Section) (string, int) {
	if len(sections) == 0 {
		return text, 0
	}

	blocks := make([]string, len(sections))
	for i, s := range sections {
		blocks[i] = rewrap(s.Body)
	}
	block := strings.Join(blocks, "\n\n")

	if idx := strings.Index(text, GeneratedEnd); idx >= 0 {
		at := idx + len(GeneratedEnd)
		return text[:at] + "\n\n" + block + text[at:], len(sections)
	}
	return appendBlock(text, block), len(sections)
}

// fillSlots matches sections to slots in document order. Each section takes
// the first slot not yet consumed.
func fillSlots(text string, slots, sections []Section, strategy ConflictStrategy) (string, int) {
	var b strings.Builder
	b.Grow(len(text))

	kept, pos := 0, 0
	for i, slot := range slots {
		b.WriteString(text[pos:slot.Start])
		if i < len(sections) && strategy != FavorGenerated {
			b.WriteString(rewrap(sections[i].Body))
			kept++
		} else {
			b.WriteString(text[slot.Start:slot.End])
		}
		pos = slot.End
	}
	b.WriteString(text[pos:])
	content := b.String()

	if len(sections) > len(slots) {
		leftovers := sections[len(slots):]
		blocks := make([]string, len(leftovers))
		for i, s := range leftovers {
			blocks[i] = rewrap(s.Body)
		}
		content = appendBlock(content, strings.Join(blocks, "\n\n"))
		kept += len(leftovers)
	}
	return content, kept
}

// rewrap puts a raw body back between fresh preserved markers. The body is
// reinserted byte for byte so repeated merges are stable.
func rewrap(body string) string {
	return PreservedStart + body + PreservedEnd
}

func appendBlock(text, block string) string {
	return strings.TrimRight(text, "\n") + "\n\n" + block + "\n"
}

func nonEmpty(sections []Section) []Section {
	out := sections[:0:0]
	for _, s := range sections {
		if strings.TrimSpace(s.Body) != "" {
			out = append(out, s)
		}
	}
	return out
}

func changed(oldText, newText string) bool {
	return strings.TrimSpace(oldText) != strings.TrimSpace(newText)
}

// Diff returns a unified diff from oldText to newText. It is empty when the
// texts are equal.
func Diff(oldText, newText, fromFile, toFile string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldText),
		B:        difflib.SplitLines(newText),
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  3,
	}
	out, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("failed to diff %s: %w", toFile, err)
	}
	return out, nil
}

package merge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/conneroisu/docsync/internal/errors"
	"github.com/conneroisu/docsync/internal/scanner"
)

// Sentinel marker literals. They are MDX comments so they never render, and
// no start literal is a substring of another.
const (
	GeneratedStart = "{/* AUTO_START */}"
	GeneratedEnd   = "{/* AUTO_END */}"
	PreservedStart = "{/* MANUAL_START */}"
	PreservedEnd   = "{/* MANUAL_END */}"
)

// Kind is the kind of a delimited section.
type Kind int

const (
	KindGenerated Kind = iota
	KindPreserved
)

// String returns the string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindGenerated:
		return "generated"
	case KindPreserved:
		return "preserved"
	default:
		return "unknown"
	}
}

// Markers returns the start and end literals of k.
func (k Kind) Markers() (start, end string) {
	if k == KindPreserved {
		return PreservedStart, PreservedEnd
	}
	return GeneratedStart, GeneratedEnd
}

// Section is one delimited region of a document.
type Section struct {
	Kind Kind
	// Body is the raw text between the markers.
	Body string
	// Start is the offset of the start marker, End the offset just past
	// the end marker.
	Start int
	End   int
}

var stripReplacer = strings.NewReplacer(
	GeneratedStart+"\n", "",
	"\n"+GeneratedEnd, "",
	PreservedStart+"\n", "",
	"\n"+PreservedEnd, "",
	GeneratedStart, "",
	GeneratedEnd, "",
	PreservedStart, "",
	PreservedEnd, "",
)

// WrapGenerated wraps content in a generated marker pair.
func WrapGenerated(content string) string {
	return GeneratedStart + "\n" + content + "\n" + GeneratedEnd
}

// WrapPreserved wraps content in a preserved marker pair.
func WrapPreserved(content string) string {
	return PreservedStart + "\n" + content + "\n" + PreservedEnd
}

// StripMarkers removes every marker literal together with the newline that
// WrapGenerated and WrapPreserved put next to it.
func StripMarkers(text string) string {
	return stripReplacer.Replace(text)
}

// HasMarkers reports whether text contains any marker literal.
func HasMarkers(text string) bool {
	return strings.Contains(text, GeneratedStart) ||
		strings.Contains(text, GeneratedEnd) ||
		strings.Contains(text, PreservedStart) ||
		strings.Contains(text, PreservedEnd)
}

// markerEvent is one start or end literal found in the text.
type markerEvent struct {
	offset int
	start  bool
}

// markerEvents lists the markers of kind k in document order. Start and end
// literals are located with two forward index scans, so the cost is linear
// in the length of text.
func markerEvents(text string, k Kind) []markerEvent {
	startLit, endLit := k.Markers()
	var events []markerEvent
	nextStart := indexFrom(text, startLit, 0)
	nextEnd := indexFrom(text, endLit, 0)
	for nextStart >= 0 || nextEnd >= 0 {
		if nextEnd < 0 || (nextStart >= 0 && nextStart < nextEnd) {
			events = append(events, markerEvent{offset: nextStart, start: true})
			nextStart = indexFrom(text, startLit, nextStart+len(startLit))
			continue
		}
		events = append(events, markerEvent{offset: nextEnd})
		nextEnd = indexFrom(text, endLit, nextEnd+len(endLit))
	}
	return events
}

func indexFrom(text, substr string, from int) int {
	if from > len(text) {
		return -1
	}
	idx := strings.Index(text[from:], substr)
	if idx < 0 {
		return -1
	}
	return from + idx
}

// ExtractSections returns the outermost sections of kind k in document
// order. Markers that do not pair up are ignored.
func ExtractSections(text string, k Kind) []Section {
	startLit, endLit := k.Markers()
	var sections []Section
	depth, open := 0, 0
	for _, ev := range markerEvents(text, k) {
		if ev.start {
			if depth == 0 {
				open = ev.offset
			}
			depth++
			continue
		}
		if depth == 0 {
			continue
		}
		depth--
		if depth == 0 {
			sections = append(sections, Section{
				Kind:  k,
				Body:  text[open+len(startLit) : ev.offset],
				Start: open,
				End:   ev.offset + len(endLit),
			})
		}
	}
	return sections
}

// Sections returns the sections of both kinds ordered by offset.
func Sections(text string) []Section {
	all := append(ExtractSections(text, KindGenerated), ExtractSections(text, KindPreserved)...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Start < all[j].Start })
	return all
}

// ValidateMarkerPairing checks each marker kind independently: the number of
// start and end literals must match and a forward scan must never see an end
// literal without an unmatched start before it.
func ValidateMarkerPairing(text string) error {
	var lines *scanner.LineIndex
	for _, k := range []Kind{KindGenerated, KindPreserved} {
		depth, lastStart := 0, -1
		startLit, endLit := k.Markers()
		for _, ev := range markerEvents(text, k) {
			if ev.start {
				depth++
				lastStart = ev.offset
				continue
			}
			depth--
			if depth < 0 {
				if lines == nil {
					lines = scanner.NewLineIndex(text)
				}
				line, col := lines.Position(ev.offset)
				return errors.NewMergeError(errors.ErrCodeMarkerOrphanEnd,
					fmt.Sprintf("%s without a preceding %s", endLit, startLit)).
					WithLocation("", line, col).
					WithContext("kind", k.String())
			}
		}
		if depth > 0 {
			if lines == nil {
				lines = scanner.NewLineIndex(text)
			}
			line, col := lines.Position(lastStart)
			return errors.NewMergeError(errors.ErrCodeMarkerUnbalanced,
				fmt.Sprintf("%d unclosed %s", depth, startLit)).
				WithLocation("", line, col).
				WithContext("kind", k.String())
		}
	}
	return nil
}

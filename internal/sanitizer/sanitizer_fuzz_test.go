package sanitizer

import (
	"strings"
	"testing"

	"github.com/conneroisu/docsync/internal/scanner"
)

func FuzzSanitizeMarkup(f *testing.F) {
	f.Add(`<Badge text="v1.0.0" onclick="alert(1)" />`)
	f.Add(`<Card title='x'>body</Card>`)
	f.Add(`a < b && c > "d"`)
	f.Add(`<Code code={"}"} />`)
	f.Add(`<LinkCard href="javascript:alert(1)" />`)

	f.Fuzz(func(t *testing.T, text string) {
		escaped := SanitizeText(text)
		if strings.ContainsAny(escaped, `<>"'{}`) {
			t.Fatalf("SanitizeText left markup characters in %q", escaped)
		}

		out := SanitizeMarkup(text)
		if len(scanner.Scan(text)) == 0 && out != escaped {
			t.Fatalf("non-tag input %q was not fully escaped: %q", text, out)
		}

		for _, tok := range scanner.Scan(text) {
			sanitized := SanitizeTag(tok)
			if !strings.HasPrefix(sanitized, "<") || !strings.HasSuffix(sanitized, ">") {
				t.Fatalf("tag %q re-serialized without boundaries: %q", tok.Raw, sanitized)
			}
		}
	})
}

package scanner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// naiveExpressionEnd reads one expression from the '{' at i to the end of
// text, byte by byte.
func naiveExpressionEnd(text string, i int) int {
	depth := 0
	var quote byte
	for j := i; j < len(text); j++ {
		c := text[j]
		if quote != 0 {
			switch c {
			case '\\':
				j++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return j + 1
			}
		}
	}
	return 0
}

func assertMatchesNaive(t *testing.T, text string) {
	t.Helper()
	ends := matchExpressions(text)
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		if got, want := ends[i], naiveExpressionEnd(text, i); got != want {
			t.Fatalf("expression at %d of %q: got end %d, want %d", i, text, got, want)
		}
	}
}

func TestMatchExpressions(t *testing.T) {
	inputs := []string{
		`{}`,
		`{a}{b}`,
		`{{ points: [{ x: 1 }] }}`,
		`{"}"}`,
		`{'}' + "{"}`,
		"{`}`}",
		`{"a\"}"}`,
		`{"\\"}`,
		`{"{"{"{"}`,
		`{ "unterminated }`,
		`}}{{}`,
		`{ {"} } {'}"'} }`,
		`<A {"<A {"<A {"<A {"`,
		`x{ 'a"{' } "{" {`,
		`{\"}"}`,
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			assertMatchesNaive(t, input)
		})
	}

	assert.Nil(t, matchExpressions("no braces here"))
}

func TestMatchExpressionsFoldsWalks(t *testing.T) {
	// braces seen both inside and outside string literals
	text := strings.Repeat(`{"{'{`+"`", 200) + strings.Repeat(`"}'}`+"`}", 200)
	assertMatchesNaive(t, text)
}

func FuzzMatchExpressions(f *testing.F) {
	f.Add(`{"}"}`)
	f.Add(`<A {"<A {"`)
	f.Add(`{ '\'' {` + "`" + `}`)
	f.Add(`{{{{}}`)

	f.Fuzz(func(t *testing.T, text string) {
		if len(text) > 4096 {
			return
		}
		assertMatchesNaive(t, text)
	})
}

package sanitizer

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/conneroisu/docsync/internal/scanner"
)

func mustScanOne(t *testing.T, s string) scanner.Token {
	t.Helper()
	tok, ok := scanner.ScanOne(s)
	require.True(t, ok, "expected %q to be a single tag", s)
	return tok
}

// tokenize runs the HTML tokenizer over s and returns every token.
func tokenize(t *testing.T, s string) []html.Token {
	t.Helper()
	z := html.NewTokenizer(strings.NewReader(s))
	var tokens []html.Token
	for {
		if z.Next() == html.ErrorToken {
			require.ErrorIs(t, z.Err(), io.EOF)
			return tokens
		}
		tokens = append(tokens, z.Token())
	}
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"plain", "plain"},
		{"a & b", "a &amp; b"},
		{"<script>", "&lt;script&gt;"},
		{`"quoted" 'single'`, "&quot;quoted&quot; &#39;single&#39;"},
		{"{expr}", "&#123;expr&#125;"},
		{"&amp;", "&amp;amp;"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeText(tt.input))
		})
	}
}

func TestSanitizeAttributeValue(t *testing.T) {
	assert.Equal(t, "&quot;&gt;&lt;img src=x&gt;", SanitizeAttributeValue(`"><img src=x>`))
	assert.Equal(t, "&#96;$&#123;x&#125;&#96;", SanitizeAttributeValue("`${x}`"))
	assert.Equal(t, "v1.0.0", SanitizeAttributeValue("v1.0.0"))
}

func TestSanitizeTagEventHandler(t *testing.T) {
	tok := mustScanOne(t, `<Badge text="v1.0.0" onclick="alert(1)" />`)
	out := SanitizeTag(tok)

	assert.True(t, strings.HasPrefix(out, "<Badge"))
	assert.True(t, strings.HasSuffix(out, "/>"))
	assert.NotContains(t, out, "alert(1)")
	assert.NotContains(t, out, "onclick")
	assert.Equal(t, `<Badge text="v1.0.0" />`, out)
}

func TestSanitizeTagKeepsHandlersWhenConfigured(t *testing.T) {
	tok := mustScanOne(t, `<Badge onclick="a&quot;" />`)
	out := New(Options{}).Tag(tok)
	assert.Equal(t, `<Badge onclick="a&amp;quot;" />`, out)
}

func TestSanitizeTagCloseUnchanged(t *testing.T) {
	tok := mustScanOne(t, "</Tabs >")
	assert.Equal(t, "</Tabs >", SanitizeTag(tok))
}

func TestSanitizeTagAttributes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"single quotes normalised", `<Card title='a "b"'>`, `<Card title="a &quot;b&quot;">`},
		{"boolean kept", `<Steps collapsed>`, `<Steps collapsed>`},
		{"string literal kept", `<Badge text={"v1.0.0"} />`, `<Badge text={"v1.0.0"} />`},
		{"array literal kept", `<Steps items={['a', 'b']} />`, `<Steps items={['a', 'b']} />`},
		{"object literal kept", `<Chart data={{ points: [{ x: 1, y: -2.5e3 }], "label": null }} />`, `<Chart data={{ points: [{ x: 1, y: -2.5e3 }], "label": null }} />`},
		{"literal with markup kept", `<Code code={"<b>"} lang="ts" />`, `<Code code={"<b>"} lang="ts" />`},
		{"identifier dropped", `<Code code={source} lang="ts" />`, `<Code lang="ts" />`},
		{"call dropped", `<Badge text={fetch(evil)} />`, `<Badge />`},
		{"spread dropped", `<Button {...props}>`, `<Button>`},
		{"spread of cookie dropped", `<Button {document.cookie}>`, `<Button>`},
		{"javascript url", `<LinkCard href=" JaVaScRiPt:alert(1)" />`, `<LinkCard href="#" />`},
		{"data url", `<Image src="data:text/html;base64,xx" />`, `<Image src="#" />`},
		{"handler expression", `<Button onClick={go}>`, `<Button>`},
		{"multiline collapsed", "<Card\n  title=\"x\"\n/>", `<Card title="x" />`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeTag(mustScanOne(t, tt.input)))
		})
	}
}

func TestSanitizeTagDropsExpressionsWhenConfigured(t *testing.T) {
	tok := mustScanOne(t, `<Code code={"x"} lang={1} />`)
	assert.Equal(t, `<Code />`, New(Options{StripEventHandlers: true}).Tag(tok))
}

func TestIsLiteralExpression(t *testing.T) {
	literals := []string{
		`"v1.0.0"`,
		`'single'`,
		"`plain template`",
		`"escaped \" quote"`,
		`42`,
		` -1.5e-3 `,
		`.5`,
		`0xFF`,
		`1_000`,
		`true`,
		`null`,
		`[]`,
		`['a', 'b',]`,
		`{}`,
		`{ a: 1, "b c": [true, false], 3: { nested: 'x' } }`,
	}
	for _, expr := range literals {
		assert.True(t, IsLiteralExpression(expr), "%s", expr)
	}

	code := []string{
		``,
		`source`,
		`undefined`,
		`fetch(evil)`,
		`document.cookie`,
		`...props`,
		"`${document.cookie}`",
		`"a" + b`,
		`1..constructor`,
		`[1, x]`,
		`{ a }`,
		`{ [key]: 1 }`,
		`{ a: alert(1) }`,
		`() => 1`,
		`"unterminated`,
		`'a' 'b'`,
		`truely`,
		`10n`,
		strings.Repeat("[", 100) + strings.Repeat("]", 100),
	}
	for _, expr := range code {
		assert.False(t, IsLiteralExpression(expr), "%s", expr)
	}
}

func TestSanitizeMarkup(t *testing.T) {
	input := `Hi <Badge text="a&quot;><script>" onclick="x" /> & <script>alert(1)</script> {danger}`
	out := SanitizeMarkup(input)

	tokens := tokenize(t, out)
	var tags []html.Token
	var text strings.Builder
	for _, tok := range tokens {
		switch tok.Type {
		case html.TextToken:
			text.WriteString(tok.Data)
		default:
			tags = append(tags, tok)
		}
	}

	require.Len(t, tags, 1)
	assert.Equal(t, html.SelfClosingTagToken, tags[0].Type)
	assert.Equal(t, "badge", tags[0].Data)
	require.Len(t, tags[0].Attr, 1)
	assert.Equal(t, "text", tags[0].Attr[0].Key)
	assert.Equal(t, "a&quot;><script>", tags[0].Attr[0].Val)

	assert.Contains(t, text.String(), "<script>alert(1)</script>")
	assert.Contains(t, text.String(), "{danger}")
}

func TestSanitizeMarkupNonTagFullyEscaped(t *testing.T) {
	inputs := []string{
		`<Card title="never closed`,
		`<div onclick="x">`,
		`a < b > c`,
		`<Card title=unquoted>`,
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			out := SanitizeMarkup(input)
			assert.Equal(t, SanitizeText(input), out)
			assert.NotContains(t, out, "<")
			assert.NotContains(t, out, `"`)
		})
	}
}

func TestSanitizerTags(t *testing.T) {
	s := New(DefaultOptions())
	input := "Use it:\n\n<Badge text=\"ok\" onclick=\"alert(1)\" />\n\n```html\n<Badge onclick=\"demo\" />\n```\n\n<Card title=\"fine\">'quotes' stay</Card>\n"

	out, changed := s.Tags(input)
	assert.Equal(t, 1, changed)
	assert.Contains(t, out, `<Badge text="ok" />`)
	assert.Contains(t, out, `<Badge onclick="demo" />`, "code samples are left alone")
	assert.Contains(t, out, `<Card title="fine">'quotes' stay</Card>`)

	same, changed := s.Tags("nothing <Card title=\"x\" /> unsafe")
	assert.Zero(t, changed)
	assert.Equal(t, "nothing <Card title=\"x\" /> unsafe", same)
}

func TestUnsafe(t *testing.T) {
	s := New(DefaultOptions())
	assert.True(t, s.Unsafe(mustScanOne(t, `<A onload="x" />`)))
	assert.True(t, s.Unsafe(mustScanOne(t, `<A href="javascript:x" />`)))
	assert.True(t, s.Unsafe(mustScanOne(t, `<A code={x} />`)))
	assert.True(t, s.Unsafe(mustScanOne(t, `<A {...props} />`)))
	assert.False(t, s.Unsafe(mustScanOne(t, `<A href="/docs" code={"x"} items={['a', 'b']} />`)))
}

func TestUnsafeFollowsOptions(t *testing.T) {
	literal := mustScanOne(t, `<Badge text={"v1.0.0"} />`)
	handler := mustScanOne(t, `<Badge onclick="track()" />`)
	handlerExpr := mustScanOne(t, `<Badge onClick={track} />`)

	keepAll := New(Options{})
	assert.True(t, keepAll.Unsafe(literal), "expressions are dropped when not kept")
	assert.False(t, keepAll.Unsafe(handler))
	assert.True(t, keepAll.Unsafe(handlerExpr))

	out, changed := keepAll.Tags(`<Badge onclick="track()" />`)
	assert.Zero(t, changed)
	assert.Equal(t, `<Badge onclick="track()" />`, out)

	out, changed = keepAll.Tags(`<Badge text={"v1.0.0"} />`)
	assert.Equal(t, 1, changed)
	assert.Equal(t, `<Badge />`, out)

	defaults := New(DefaultOptions())
	assert.False(t, defaults.Unsafe(literal))
	assert.True(t, defaults.Unsafe(handler))

	// every tag Unsafe accepts comes back from Tag unchanged in meaning
	for _, s := range []*Sanitizer{keepAll, defaults, New(Options{KeepExpressions: true})} {
		for _, tok := range []scanner.Token{literal, handler, handlerExpr} {
			if !s.Unsafe(tok) {
				assert.Len(t, mustScanOne(t, s.Tag(tok)).Attributes, len(tok.Attributes))
			}
		}
	}
}

func TestIsEventHandler(t *testing.T) {
	assert.True(t, IsEventHandler("onclick"))
	assert.True(t, IsEventHandler("onClick"))
	assert.True(t, IsEventHandler("ONLOAD"))
	assert.False(t, IsEventHandler("on"))
	assert.False(t, IsEventHandler("title"))
	assert.False(t, IsEventHandler(""))
}

func TestHasUnsafeScheme(t *testing.T) {
	assert.True(t, HasUnsafeScheme("javascript:alert(1)"))
	assert.True(t, HasUnsafeScheme("\tjava\nscript:alert(1)"))
	assert.True(t, HasUnsafeScheme("VBScript:x"))
	assert.False(t, HasUnsafeScheme("https://example.com/javascript:"))
	assert.False(t, HasUnsafeScheme("/docs/javascript"))
	assert.False(t, HasUnsafeScheme(""))
}

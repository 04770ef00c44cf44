package sanitizer

// maxLiteralDepth bounds array and object nesting in a literal expression.
const maxLiteralDepth = 32

// IsLiteralExpression reports whether expr, the source between the braces
// of a {expr} attribute, is a plain literal: a string without
// interpolation, a number, true, false, null, or an array or object built
// only from those. Identifiers, calls, operators and spreads are rejected,
// so an accepted expression can never run code when the page renders.
func IsLiteralExpression(expr string) bool {
	p := literalParser{src: expr}
	p.skipSpace()
	if !p.value(0) {
		return false
	}
	p.skipSpace()
	return p.pos == len(p.src)
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *literalParser) value(depth int) bool {
	if depth > maxLiteralDepth {
		return false
	}
	switch c := p.peek(); {
	case c == '"' || c == '\'' || c == '`':
		return p.str(c)
	case c == '[':
		return p.array(depth)
	case c == '{':
		return p.object(depth)
	case c == '-' || c == '+' || c == '.' || isDigit(c):
		return p.number()
	case isIdentStart(c):
		switch p.ident() {
		case "true", "false", "null":
			return true
		}
		return false
	default:
		return false
	}
}

// str reads a quoted string. Template literals are accepted only without
// ${...} substitutions.
func (p *literalParser) str(quote byte) bool {
	p.pos++
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '\\':
			p.pos += 2
			continue
		case c == quote:
			p.pos++
			return true
		case c == '\n' && quote != '`':
			return false
		case c == '$' && quote == '`' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '{':
			return false
		}
		p.pos++
	}
	return false
}

func (p *literalParser) number() bool {
	if c := p.peek(); c == '-' || c == '+' {
		p.pos++
	}
	if rest := p.src[p.pos:]; len(rest) > 1 && rest[0] == '0' && (rest[1] == 'x' || rest[1] == 'X') {
		p.pos += 2
		return p.digits(isHexDigit) && !isIdentChar(p.peek())
	}

	whole := p.digits(isDigit)
	frac := false
	if p.peek() == '.' {
		p.pos++
		frac = p.digits(isDigit)
	}
	if !whole && !frac {
		return false
	}
	if c := p.peek(); c == 'e' || c == 'E' {
		p.pos++
		if c := p.peek(); c == '-' || c == '+' {
			p.pos++
		}
		if !p.digits(isDigit) {
			return false
		}
	}
	return !isIdentChar(p.peek()) && p.peek() != '.'
}

// digits consumes a run of digits, allowing _ separators after the first.
func (p *literalParser) digits(ok func(byte) bool) bool {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if !ok(c) && (c != '_' || p.pos == start) {
			break
		}
		p.pos++
	}
	return p.pos > start
}

func (p *literalParser) ident() string {
	start := p.pos
	for p.pos < len(p.src) && isIdentChar(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *literalParser) array(depth int) bool {
	p.pos++
	for {
		p.skipSpace()
		if p.peek() == ']' {
			p.pos++
			return true
		}
		if !p.value(depth + 1) {
			return false
		}
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return true
		default:
			return false
		}
	}
}

// object reads { key: literal, ... }. Keys may be names, strings or
// numbers; shorthand and computed keys refer to variables and are rejected.
func (p *literalParser) object(depth int) bool {
	p.pos++
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.pos++
			return true
		}

		switch c := p.peek(); {
		case c == '"' || c == '\'':
			if !p.str(c) {
				return false
			}
		case isDigit(c):
			if !p.number() {
				return false
			}
		case isIdentStart(c):
			p.ident()
		default:
			return false
		}

		p.skipSpace()
		if p.peek() != ':' {
			return false
		}
		p.pos++
		p.skipSpace()
		if !p.value(depth + 1) {
			return false
		}

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return true
		default:
			return false
		}
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c == '$'
}

func isIdentChar(c byte) bool { return isIdentStart(c) || isDigit(c) }

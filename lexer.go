package chronos

type TokenKind uint8

const (
	TokenEnd TokenKind = iota
	TokenIdent
	TokenNumber
	TokenString
	TokenPunct
)

func (k TokenKind) String() string {
	switch k {
	case TokenIdent:
		return "identifier"
	case TokenNumber:
		return "number"
	case TokenString:
		return "string"
	case TokenPunct:
		return "punctuation"
	}
	return "end"
}

type Token struct {
	Kind TokenKind
	Text string
	Line int
}

func (t Token) is(punct string) bool {
	return t.Kind == TokenPunct && t.Text == punct
}

// lexer walks a span of source. It is a plain value so the parser can
// save and restore it around macro calls and lookahead.
type lexer struct {
	src  string
	pos  int
	line int
}

func newLexer(src string, line int) lexer {
	return lexer{src: src, line: line}
}

func isAlpha(b byte) bool { return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b == '_' }

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

func (l *lexer) skip() {
	for l.pos < len(l.src) {
		switch b := l.src[l.pos]; {
		case b == '\n':
			l.line++
			l.pos++
		case isSpace(b):
			l.pos++
		case b == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

func (l *lexer) next() Token {
	l.skip()
	if l.pos >= len(l.src) {
		return Token{Kind: TokenEnd, Line: l.line}
	}
	start, line := l.pos, l.line
	b := l.src[l.pos]
	switch {
	case isAlpha(b):
		for l.pos < len(l.src) && (isAlpha(l.src[l.pos]) || isDigit(l.src[l.pos])) {
			l.pos++
		}
		return Token{TokenIdent, l.src[start:l.pos], line}
	case isDigit(b) || b == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]):
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
		if l.pos < len(l.src) && l.src[l.pos] == '.' {
			l.pos++
			for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
				l.pos++
			}
		}
		return Token{TokenNumber, l.src[start:l.pos], line}
	case b == '"':
		l.pos++
		for l.pos < len(l.src) && l.src[l.pos] != '"' {
			if l.src[l.pos] == '\n' {
				l.line++
			}
			l.pos++
		}
		text := l.src[start+1 : l.pos]
		if l.pos < len(l.src) {
			l.pos++ // closing quote
		}
		return Token{TokenString, text, line}
	}
	if l.pos+1 < len(l.src) {
		if two := l.src[l.pos : l.pos+2]; two == "==" || two == ":=" {
			l.pos += 2
			return Token{TokenPunct, two, line}
		}
	}
	l.pos++
	return Token{TokenPunct, l.src[start:l.pos], line}
}

// block consumes up to the brace closing an already opened one and
// returns the enclosed text. Braces in comments and strings don't count.
func (l *lexer) block() (body string, line int, ok bool) {
	start, line := l.pos, l.line
	depth := 1
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case '\n':
			l.line++
		case '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
			continue
		case '"':
			l.pos++
			for l.pos < len(l.src) && l.src[l.pos] != '"' {
				if l.src[l.pos] == '\n' {
					l.line++
				}
				l.pos++
			}
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				body = l.src[start:l.pos]
				l.pos++
				return body, line, true
			}
		}
		l.pos++
	}
	return l.src[start:], line, false
}

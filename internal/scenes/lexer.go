package scenes

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokName
	tokNumber
	tokString
	tokOp
	tokNewline
)

type token struct {
	kind tokenKind
	text string
	line int
}

// lexer is a minimal Python tokenizer. It understands just enough of the
// language to find class declarations reliably: comments, every string
// literal form, explicit and implicit line joining, and bracket nesting.
// Indentation is not tracked.
type lexer struct {
	src   string
	pos   int
	line  int
	depth int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1}
}

func (l *lexer) peekByte(offset int) byte {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	return l.src[l.pos+offset]
}

func (l *lexer) next() token {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\f' || c == '\r':
			l.pos++
		case c == '\n':
			l.pos++
			l.line++
			if l.depth == 0 {
				return token{kind: tokNewline, text: "\n", line: l.line - 1}
			}
		case c == '\\' && (l.peekByte(1) == '\n' || (l.peekByte(1) == '\r' && l.peekByte(2) == '\n')):
			l.pos++
			if l.src[l.pos] == '\r' {
				l.pos++
			}
			l.pos++
			l.line++
		case c == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		case c == '"' || c == '\'':
			return l.scanString(l.pos, l.line)
		case c >= '0' && c <= '9' || (c == '.' && isDigit(l.peekByte(1))):
			return l.scanNumber()
		case isNameStart(l.src[l.pos:]):
			return l.scanName()
		default:
			return l.scanOp()
		}
	}
	return token{kind: tokEOF, line: l.line}
}

func (l *lexer) scanName() token {
	start, line := l.pos, l.line
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		l.pos += size
	}
	name := l.src[start:l.pos]
	if l.pos < len(l.src) && (l.src[l.pos] == '"' || l.src[l.pos] == '\'') && isStringPrefix(name) {
		return l.scanString(start, line)
	}
	return token{kind: tokName, text: name, line: line}
}

// scanString consumes a string literal whose prefix (if any) starts at start
// and whose opening quote is at l.pos.
func (l *lexer) scanString(start, line int) token {
	quote := l.src[l.pos]
	triple := l.peekByte(1) == quote && l.peekByte(2) == quote
	if triple {
		l.pos += 3
	} else {
		l.pos++
	}
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\\':
			// An escaped character never closes the literal, raw or not.
			switch {
			case l.peekByte(1) == '\n':
				l.line++
			case l.peekByte(1) == '\r' && l.peekByte(2) == '\n':
				l.line++
				l.pos++
			}
			l.pos += 2
			continue
		case c == '\n':
			if !triple {
				// Unterminated single-line literal; end it at the line break.
				return token{kind: tokString, text: l.src[start:l.pos], line: line}
			}
			l.line++
		case c == quote:
			if !triple {
				l.pos++
				return token{kind: tokString, text: l.src[start:l.pos], line: line}
			}
			if l.peekByte(1) == quote && l.peekByte(2) == quote {
				l.pos += 3
				return token{kind: tokString, text: l.src[start:l.pos], line: line}
			}
		}
		l.pos++
	}
	if l.pos > len(l.src) {
		l.pos = len(l.src)
	}
	return token{kind: tokString, text: l.src[start:l.pos], line: line}
}

func (l *lexer) scanNumber() token {
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if isDigit(c) || c == '.' || c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			l.pos++
			continue
		}
		if (c == '+' || c == '-') && l.pos > start && (l.src[l.pos-1] == 'e' || l.src[l.pos-1] == 'E') {
			l.pos++
			continue
		}
		break
	}
	return token{kind: tokNumber, text: l.src[start:l.pos], line: l.line}
}

var twoCharOps = []string{"==", "!=", "<=", ">=", ":=", "->", "**", "//", "<<", ">>", "+=", "-=", "*=", "/="}

func (l *lexer) scanOp() token {
	line := l.line
	for _, op := range twoCharOps {
		if strings.HasPrefix(l.src[l.pos:], op) {
			l.pos += len(op)
			return token{kind: tokOp, text: op, line: line}
		}
	}
	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size
	switch r {
	case '(', '[', '{':
		l.depth++
	case ')', ']', '}':
		if l.depth > 0 {
			l.depth--
		}
	}
	return token{kind: tokOp, text: string(r), line: line}
}

func isNameStart(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r == '_' || unicode.IsLetter(r)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isStringPrefix(name string) bool {
	switch strings.ToLower(name) {
	case "r", "u", "b", "f", "br", "rb", "fr", "rf", "t", "tr", "rt":
		return true
	default:
		return false
	}
}

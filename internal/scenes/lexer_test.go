package scenes

import "testing"

func collect(src string) []token {
	lex := newLexer(src)
	var out []token
	for {
		tok := lex.next()
		if tok.kind == tokEOF {
			return out
		}
		out = append(out, tok)
	}
}

func TestLexerTracksLinesAcrossTripleQuotedStrings(t *testing.T) {
	tokens := collect("x = '''a\nb\nc'''\ny\n")
	var last token
	for _, tok := range tokens {
		if tok.kind == tokName && tok.text == "y" {
			last = tok
		}
	}
	if last.line != 4 {
		t.Fatalf("expected y on line 4, got %d", last.line)
	}
}

func TestLexerSuppressesNewlinesInsideBrackets(t *testing.T) {
	tokens := collect("f(\n1,\n2)\n")
	newlines := 0
	for _, tok := range tokens {
		if tok.kind == tokNewline {
			newlines++
		}
	}
	if newlines != 1 {
		t.Fatalf("expected a single logical newline, got %d", newlines)
	}
}

func TestLexerStringPrefixes(t *testing.T) {
	tokens := collect(`a = rb"\"class" + f'{x}'`)
	strings := 0
	for _, tok := range tokens {
		if tok.kind == tokString {
			strings++
		}
		if tok.kind == tokName && tok.text == "class" {
			t.Fatal("keyword inside string leaked as a name token")
		}
	}
	if strings != 2 {
		t.Fatalf("expected 2 string tokens, got %d", strings)
	}
}

func TestLexerEscapedQuoteDoesNotCloseString(t *testing.T) {
	tokens := collect(`s = "a\"b"` + "\nclass")
	if tokens[len(tokens)-1].text != "class" || tokens[len(tokens)-1].line != 2 {
		t.Fatalf("unexpected trailing token %+v", tokens[len(tokens)-1])
	}
}

func TestLexerCombinesTwoCharOps(t *testing.T) {
	tokens := collect("a == b")
	if len(tokens) != 3 || tokens[1].text != "==" {
		t.Fatalf("unexpected tokens %+v", tokens)
	}
}

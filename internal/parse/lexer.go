package parse

import (
	"fmt"
	"strings"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokWord
	tokPipe
	tokRedirIn
	tokRedirOut
	tokAmp
)

type token struct {
	kind tokKind
	text string
}

// lexer scans a single line. Single and double quotes group characters into
// one word; a quoted operator character is literal.
type lexer struct {
	src []rune
	pos int
}

func newLexer(line string) *lexer {
	return &lexer{src: []rune(line)}
}

func (lx *lexer) next() (token, error) {
	for lx.pos < len(lx.src) {
		r := lx.src[lx.pos]
		switch {
		case r == ' ' || r == '\t' || r == '\n':
			lx.pos++
		case r == '|':
			lx.pos++
			return token{kind: tokPipe, text: "|"}, nil
		case r == '<':
			lx.pos++
			return token{kind: tokRedirIn, text: "<"}, nil
		case r == '>':
			lx.pos++
			return token{kind: tokRedirOut, text: ">"}, nil
		case r == '&':
			lx.pos++
			return token{kind: tokAmp, text: "&"}, nil
		default:
			return lx.readWord()
		}
	}
	return token{kind: tokEOF}, nil
}

func (lx *lexer) readWord() (token, error) {
	var b strings.Builder
	for lx.pos < len(lx.src) {
		r := lx.src[lx.pos]
		switch r {
		case ' ', '\t', '\n', '|', '<', '>', '&':
			return token{kind: tokWord, text: b.String()}, nil
		case '\'', '"':
			quote := r
			lx.pos++
			closed := false
			for lx.pos < len(lx.src) {
				if lx.src[lx.pos] == quote {
					closed = true
					lx.pos++
					break
				}
				b.WriteRune(lx.src[lx.pos])
				lx.pos++
			}
			if !closed {
				return token{}, fmt.Errorf("unterminated quote")
			}
		default:
			b.WriteRune(r)
			lx.pos++
		}
	}
	return token{kind: tokWord, text: b.String()}, nil
}

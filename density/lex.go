package density

import (
	"fmt"
	"strings"
	"text/scanner"

	"github.com/pkg/errors"
)

// tokPow is the token kind for both "**" and "^".
const tokPow rune = -100

type token struct {
	kind rune
	text string
	col  int
}

func (t token) String() string {
	if t.kind == scanner.EOF {
		return "end of expression"
	}
	return fmt.Sprintf("%q at column %d", t.text, t.col)
}

// lex splits src into tokens. The final token is always scanner.EOF.
func lex(src string) ([]token, error) {
	var s scanner.Scanner
	s.Init(strings.NewReader(src))
	s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats
	s.Whitespace = 1<<' ' | 1<<'\t' | 1<<'\n' | 1<<'\r'
	var scanErr error
	s.Error = func(s *scanner.Scanner, msg string) {
		if scanErr == nil {
			scanErr = errors.Wrapf(ErrSyntax, "column %d: %s", s.Pos().Column, msg)
		}
	}

	var toks []token
	for {
		kind := s.Scan()
		if scanErr != nil {
			return nil, scanErr
		}
		tok := token{kind: kind, text: s.TokenText(), col: s.Position.Column}
		switch kind {
		case scanner.EOF:
			tok.col = s.Pos().Column
			return append(toks, tok), nil
		case '*':
			if s.Peek() == '*' {
				s.Next()
				tok.kind, tok.text = tokPow, "**"
			}
		case '^':
			tok.kind = tokPow
		case scanner.Ident, scanner.Int, scanner.Float, '+', '-', '/', '(', ')', ',':
		default:
			return nil, errors.Wrapf(ErrSyntax, "unexpected %s", tok)
		}
		toks = append(toks, tok)
	}
}

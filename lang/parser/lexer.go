// Mgmt
// Copyright (C) 2013-2024+ James Shubin and the project contributors
// Written by James Shubin <james@shubin.ca> and the project contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// tokenType is the kind of a lexical token.
type tokenType int

const (
	tEOF tokenType = iota
	tIdent
	tNumber
	tString
	tName // @identifier

	tLParen   // (
	tRParen   // )
	tLBracket // [
	tRBracket // ]
	tLBrace   // {
	tRBrace   // }
	tColon    // :
	tSemi     // ;
	tComma    // ,
	tDot      // .
	tQuestion // ?
	tDefine   // <==

	tPlus  // +
	tMinus // -
	tStar  // *
	tSlash // /
	tPct   // %
	tBang  // !
	tAnd   // &&
	tOr    // ||
	tEq    // ==
	tNe    // !=
	tLt    // <
	tLe    // <=
	tGt    // >
	tGe    // >=
)

var tokenNames = map[tokenType]string{
	tEOF:      "end of input",
	tIdent:    "identifier",
	tNumber:   "number",
	tString:   "string",
	tName:     "name",
	tLParen:   "'('",
	tRParen:   "')'",
	tLBracket: "'['",
	tRBracket: "']'",
	tLBrace:   "'{'",
	tRBrace:   "'}'",
	tColon:    "':'",
	tSemi:     "';'",
	tComma:    "','",
	tDot:      "'.'",
	tQuestion: "'?'",
	tDefine:   "'<=='",
	tPlus:     "'+'",
	tMinus:    "'-'",
	tStar:     "'*'",
	tSlash:    "'/'",
	tPct:      "'%'",
	tBang:     "'!'",
	tAnd:      "'&&'",
	tOr:       "'||'",
	tEq:       "'=='",
	tNe:       "'!='",
	tLt:       "'<'",
	tLe:       "'<='",
	tGt:       "'>'",
	tGe:       "'>='",
}

func (obj tokenType) String() string {
	if s, exists := tokenNames[obj]; exists {
		return s
	}
	return fmt.Sprintf("token(%d)", int(obj))
}

// token is a lexical token. Text holds the identifier, the name without the
// @, the unquoted string, or the number as written.
type token struct {
	Type tokenType
	Text string
	Line int
	Col  int
}

func (obj token) String() string {
	switch obj.Type {
	case tIdent, tNumber:
		return fmt.Sprintf("%s %s", obj.Type, obj.Text)
	case tString:
		return fmt.Sprintf("%s %s", obj.Type, strconv.Quote(obj.Text))
	case tName:
		return fmt.Sprintf("%s @%s", obj.Type, obj.Text)
	}
	return obj.Type.String()
}

// SyntaxError is returned for any lexing or parsing failure.
type SyntaxError struct {
	Line int
	Col  int
	Msg  string
}

// Error fulfills the error interface.
func (obj *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", obj.Line, obj.Col, obj.Msg)
}

// lexer scans source text into tokens.
type lexer struct {
	src  string
	pos  int
	line int // 1-based
	col  int // 1-based
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

func (obj *lexer) errorf(line, col int, format string, v ...interface{}) error {
	return &SyntaxError{Line: line, Col: col, Msg: fmt.Sprintf(format, v...)}
}

func (obj *lexer) peek(n int) byte {
	if obj.pos+n >= len(obj.src) {
		return 0
	}
	return obj.src[obj.pos+n]
}

func (obj *lexer) advance() byte {
	b := obj.src[obj.pos]
	obj.pos++
	if b == '\n' {
		obj.line++
		obj.col = 1
	} else {
		obj.col++
	}
	return b
}

// skip consumes whitespace and comments.
func (obj *lexer) skip() error {
	for obj.pos < len(obj.src) {
		switch b := obj.peek(0); {
		case b == ' ' || b == '\t' || b == '\n' || b == '\r':
			obj.advance()

		case b == '/' && obj.peek(1) == '/':
			for obj.pos < len(obj.src) && obj.peek(0) != '\n' {
				obj.advance()
			}

		case b == '/' && obj.peek(1) == '*':
			line, col := obj.line, obj.col
			obj.advance()
			obj.advance()
			for {
				if obj.pos >= len(obj.src) {
					return obj.errorf(line, col, "unterminated comment")
				}
				if obj.peek(0) == '*' && obj.peek(1) == '/' {
					obj.advance()
					obj.advance()
					break
				}
				obj.advance()
			}

		default:
			return nil
		}
	}
	return nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isAlpha(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_' }
func isAlphaNum(b byte) bool {
	return isAlpha(b) || isDigit(b)
}

// Scan returns all the tokens, ending with tEOF.
func (obj *lexer) Scan() ([]token, error) {
	tokens := []token{}
	for {
		tok, err := obj.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == tEOF {
			return tokens, nil
		}
	}
}

// symbols maps operators to tokens, longest first.
var symbols = []struct {
	text string
	typ  tokenType
}{
	{"<==", tDefine},
	{"&&", tAnd},
	{"||", tOr},
	{"==", tEq},
	{"!=", tNe},
	{"<=", tLe},
	{">=", tGe},
	{"(", tLParen},
	{")", tRParen},
	{"[", tLBracket},
	{"]", tRBracket},
	{"{", tLBrace},
	{"}", tRBrace},
	{":", tColon},
	{";", tSemi},
	{",", tComma},
	{".", tDot},
	{"?", tQuestion},
	{"+", tPlus},
	{"-", tMinus},
	{"*", tStar},
	{"/", tSlash},
	{"%", tPct},
	{"!", tBang},
	{"<", tLt},
	{">", tGt},
}

func (obj *lexer) next() (token, error) {
	if err := obj.skip(); err != nil {
		return token{}, err
	}
	line, col := obj.line, obj.col
	tok := token{Line: line, Col: col}
	if obj.pos >= len(obj.src) {
		tok.Type = tEOF
		return tok, nil
	}

	b := obj.peek(0)
	switch {
	case isAlpha(b):
		tok.Type = tIdent
		tok.Text = obj.ident()
		return tok, nil

	case b == '@':
		obj.advance()
		if !isAlpha(obj.peek(0)) {
			return tok, obj.errorf(line, col, "expected an identifier after '@'")
		}
		tok.Type = tName
		tok.Text = obj.ident()
		return tok, nil

	case isDigit(b) || (b == '.' && isDigit(obj.peek(1))):
		tok.Type = tNumber
		text, err := obj.number()
		if err != nil {
			return tok, err
		}
		tok.Text = text
		return tok, nil

	case b == '"' || b == '\'':
		tok.Type = tString
		text, err := obj.str()
		if err != nil {
			return tok, err
		}
		tok.Text = text
		return tok, nil
	}

	for _, x := range symbols {
		if strings.HasPrefix(obj.src[obj.pos:], x.text) {
			for range x.text {
				obj.advance()
			}
			tok.Type = x.typ
			return tok, nil
		}
	}
	return tok, obj.errorf(line, col, "unexpected character %q", b)
}

func (obj *lexer) ident() string {
	start := obj.pos
	for obj.pos < len(obj.src) && isAlphaNum(obj.peek(0)) {
		obj.advance()
	}
	return obj.src[start:obj.pos]
}

func (obj *lexer) number() (string, error) {
	line, col := obj.line, obj.col
	start := obj.pos
	for isDigit(obj.peek(0)) {
		obj.advance()
	}
	if obj.peek(0) == '.' && isDigit(obj.peek(1)) {
		obj.advance()
		for isDigit(obj.peek(0)) {
			obj.advance()
		}
	}
	if b := obj.peek(0); b == 'e' || b == 'E' {
		n := 1
		if s := obj.peek(1); s == '+' || s == '-' {
			n = 2
		}
		if isDigit(obj.peek(n)) {
			for i := 0; i < n; i++ {
				obj.advance()
			}
			for isDigit(obj.peek(0)) {
				obj.advance()
			}
		}
	}
	if isAlpha(obj.peek(0)) {
		return "", obj.errorf(line, col, "malformed number")
	}
	return obj.src[start:obj.pos], nil
}

// str scans a quoted string. Both quote styles accept the same escapes.
func (obj *lexer) str() (string, error) {
	line, col := obj.line, obj.col
	quote := obj.advance()
	var sb strings.Builder
	sb.WriteByte('"')
	for {
		if obj.pos >= len(obj.src) {
			return "", obj.errorf(line, col, "unterminated string")
		}
		b := obj.advance()
		if b == quote {
			break
		}
		switch b {
		case '\n':
			return "", obj.errorf(line, col, "newline in string")
		case '\\':
			if obj.pos >= len(obj.src) {
				return "", obj.errorf(line, col, "unterminated string")
			}
			e := obj.advance()
			if e == '\'' { // not valid in a go string
				sb.WriteByte('\'')
				continue
			}
			sb.WriteByte('\\')
			sb.WriteByte(e)
		case '"':
			sb.WriteString(`\"`)
		default:
			sb.WriteByte(b)
		}
	}
	sb.WriteByte('"')
	s, err := strconv.Unquote(sb.String())
	if err != nil {
		return "", obj.errorf(line, col, "invalid string: %v", err)
	}
	return s, nil
}

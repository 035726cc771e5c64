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

// Package parser reads property model (sheet) and layout descriptions, and
// compiles their infix expressions into flat programs for the vm. It also
// contains the printer which turns declarations back into canonical source.
package parser

import (
	"fmt"
	"strconv"

	"github.com/purpleidea/propsheet/lang/ast"
	"github.com/purpleidea/propsheet/lang/types"
	"github.com/purpleidea/propsheet/lang/vm"
)

const (
	keywordSheet  = "sheet"
	keywordLayout = "layout"
	keywordView   = "view"
	keywordRelate = "relate"
	keywordWhen   = "when"
	keywordTrue   = "true"
	keywordFalse  = "false"
	keywordEmpty  = "empty"
)

// reserved returns true if the word can't be used as a cell name.
func reserved(s string) bool {
	switch s {
	case keywordSheet, keywordLayout, keywordView, keywordRelate, keywordWhen, keywordTrue, keywordFalse, keywordEmpty:
		return true
	}
	_, ok := ast.ParseCellKind(s)
	return ok
}

type parser struct {
	toks []token
	i    int
}

func newParser(src string) (*parser, error) {
	toks, err := newLexer(src).Scan()
	if err != nil {
		return nil, err
	}
	return &parser{toks: toks}, nil
}

func (obj *parser) peek() token { return obj.toks[obj.i] }

func (obj *parser) peekN(n int) token {
	if obj.i+n >= len(obj.toks) {
		return obj.toks[len(obj.toks)-1] // eof
	}
	return obj.toks[obj.i+n]
}

func (obj *parser) next() token {
	tok := obj.toks[obj.i]
	if tok.Type != tEOF {
		obj.i++
	}
	return tok
}

func (obj *parser) match(tt tokenType) bool {
	if obj.peek().Type == tt {
		obj.next()
		return true
	}
	return false
}

func (obj *parser) errorf(tok token, format string, v ...interface{}) error {
	return &SyntaxError{Line: tok.Line, Col: tok.Col, Msg: fmt.Sprintf(format, v...)}
}

func (obj *parser) expect(tt tokenType) (token, error) {
	tok := obj.peek()
	if tok.Type != tt {
		return tok, obj.errorf(tok, "expected %s, found %s", tt, tok)
	}
	return obj.next(), nil
}

func (obj *parser) expectKeyword(word string) error {
	tok := obj.peek()
	if tok.Type != tIdent || tok.Text != word {
		return obj.errorf(tok, "expected %q, found %s", word, tok)
	}
	obj.next()
	return nil
}

func (obj *parser) isKeyword(word string) bool {
	tok := obj.peek()
	return tok.Type == tIdent && tok.Text == word
}

func (obj *parser) end() error {
	if tok := obj.peek(); tok.Type != tEOF {
		return obj.errorf(tok, "unexpected %s after the end", tok)
	}
	return nil
}

// ParseSheet parses a property model.
func ParseSheet(src string) (*ast.Sheet, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword(keywordSheet); err != nil {
		return nil, err
	}
	name, err := p.expect(tIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tLBrace); err != nil {
		return nil, err
	}
	sheet := &ast.Sheet{Name: name.Text}
	if err := p.body(sheet, false); err != nil {
		return nil, err
	}
	if _, err := p.expect(tRBrace); err != nil {
		return nil, err
	}
	if err := p.end(); err != nil {
		return nil, err
	}
	return sheet, nil
}

// ParseLayout parses a layout description.
func ParseLayout(src string) (*ast.Layout, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword(keywordLayout); err != nil {
		return nil, err
	}
	name, err := p.expect(tIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tLBrace); err != nil {
		return nil, err
	}
	layout := &ast.Layout{
		Name:  name.Text,
		Sheet: &ast.Sheet{Name: name.Text},
	}
	if err := p.body(layout.Sheet, true); err != nil {
		return nil, err
	}
	if err := p.expectKeyword(keywordView); err != nil {
		return nil, err
	}
	if layout.Root, err = p.view(); err != nil {
		return nil, err
	}
	if _, err := p.expect(tRBrace); err != nil {
		return nil, err
	}
	if err := p.end(); err != nil {
		return nil, err
	}
	return layout, nil
}

// ParseExpr compiles a single expression.
func ParseExpr(src string) (*vm.Program, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	n, err := p.expr()
	if err != nil {
		return nil, err
	}
	if err := p.end(); err != nil {
		return nil, err
	}
	return compile(n), nil
}

// ParseValue parses a constant expression and returns its value. It fails if
// the expression references any cell or function.
func ParseValue(src string) (types.Value, error) {
	prog, err := ParseExpr(src)
	if err != nil {
		return nil, err
	}
	m := &vm.Machine{} // nothing is defined
	return m.Evaluate(prog)
}

// body parses sections until the closing brace, or the view keyword if this
// is a layout.
func (obj *parser) body(sheet *ast.Sheet, layout bool) error {
	section := ast.CellKind(-1)
	for {
		tok := obj.peek()
		if tok.Type == tRBrace || tok.Type == tEOF {
			return nil
		}
		if tok.Type != tIdent {
			return obj.errorf(tok, "expected a declaration, found %s", tok)
		}
		if layout && tok.Text == keywordView {
			return nil
		}

		// section header
		if kind, ok := ast.ParseCellKind(tok.Text); ok && obj.peekN(1).Type == tColon {
			obj.next()
			obj.next()
			section = kind
			continue
		}
		if section < 0 {
			return obj.errorf(tok, "declaration of %s outside of a section", tok)
		}

		if tok.Text == keywordWhen || tok.Text == keywordRelate {
			relate, err := obj.relate(section)
			if err != nil {
				return err
			}
			sheet.Add(relate)
			continue
		}

		cell, err := obj.cell(section)
		if err != nil {
			return err
		}
		sheet.Add(cell)
	}
}

func (obj *parser) cellName() (token, error) {
	tok, err := obj.expect(tIdent)
	if err != nil {
		return tok, err
	}
	if reserved(tok.Text) {
		return tok, obj.errorf(tok, "reserved word %q can't name a cell", tok.Text)
	}
	return tok, nil
}

// cell parses one of: name; name : init; name : init <== define; name <==
// define;
func (obj *parser) cell(section ast.CellKind) (*ast.Cell, error) {
	name, err := obj.cellName()
	if err != nil {
		return nil, err
	}
	cell := &ast.Cell{
		Name: name.Text,
		Kind: section,
		Line: name.Line,
	}
	if obj.match(tColon) {
		n, err := obj.expr()
		if err != nil {
			return nil, err
		}
		cell.Init = compile(n)
	}
	if obj.match(tDefine) {
		n, err := obj.expr()
		if err != nil {
			return nil, err
		}
		cell.Define = compile(n)
	}
	if _, err := obj.expect(tSemi); err != nil {
		return nil, err
	}
	return cell, nil
}

// relate parses [when (guard)] relate { name <== expr; ... }
func (obj *parser) relate(section ast.CellKind) (*ast.Relate, error) {
	relate := &ast.Relate{
		Kind: section,
		Line: obj.peek().Line,
	}
	if obj.isKeyword(keywordWhen) {
		obj.next()
		if _, err := obj.expect(tLParen); err != nil {
			return nil, err
		}
		n, err := obj.expr()
		if err != nil {
			return nil, err
		}
		relate.Guard = compile(n)
		if _, err := obj.expect(tRParen); err != nil {
			return nil, err
		}
	}
	if err := obj.expectKeyword(keywordRelate); err != nil {
		return nil, err
	}
	lbrace, err := obj.expect(tLBrace)
	if err != nil {
		return nil, err
	}
	for !obj.match(tRBrace) {
		name, err := obj.cellName()
		if err != nil {
			return nil, err
		}
		if _, err := obj.expect(tDefine); err != nil {
			return nil, err
		}
		n, err := obj.expr()
		if err != nil {
			return nil, err
		}
		if _, err := obj.expect(tSemi); err != nil {
			return nil, err
		}
		relate.Clauses = append(relate.Clauses, &ast.Clause{
			Name: name.Text,
			Expr: compile(n),
			Line: name.Line,
		})
	}
	if len(relate.Clauses) == 0 {
		return nil, obj.errorf(lbrace, "empty relate block")
	}
	return relate, nil
}

// view parses kind(args) followed by ; or a block of children.
func (obj *parser) view() (*ast.View, error) {
	kind, err := obj.expect(tIdent)
	if err != nil {
		return nil, err
	}
	view := &ast.View{
		Kind: kind.Text,
		Line: kind.Line,
	}
	if _, err := obj.expect(tLParen); err != nil {
		return nil, err
	}
	if obj.peek().Type != tRParen {
		n, err := obj.namedArgs()
		if err != nil {
			return nil, err
		}
		view.Args = compile(n)
	}
	if _, err := obj.expect(tRParen); err != nil {
		return nil, err
	}
	if obj.match(tSemi) {
		return view, nil
	}
	if _, err := obj.expect(tLBrace); err != nil {
		return nil, err
	}
	for !obj.match(tRBrace) {
		if obj.peek().Type == tEOF {
			return nil, obj.errorf(obj.peek(), "unterminated view %s", view.Kind)
		}
		child, err := obj.view()
		if err != nil {
			return nil, err
		}
		view.Children = append(view.Children, child)
	}
	return view, nil
}

// expr parses a full expression. The levels, lowest first, are the ternary,
// ||, &&, equality, relational, additive, multiplicative, unary and postfix.
func (obj *parser) expr() (*node, error) {
	cond, err := obj.binary(precOr)
	if err != nil {
		return nil, err
	}
	if !obj.match(tQuestion) {
		return cond, nil
	}
	x, err := obj.expr()
	if err != nil {
		return nil, err
	}
	if _, err := obj.expect(tColon); err != nil {
		return nil, err
	}
	y, err := obj.expr()
	if err != nil {
		return nil, err
	}
	return &node{kind: nTernary, children: []*node{cond, x, y}}, nil
}

type binaryInfo struct {
	prec int
	kind nodeKind
	op   vm.Opcode
}

var binaryTokens = map[tokenType]binaryInfo{
	tOr:    {precOr, nOr, 0},
	tAnd:   {precAnd, nAnd, 0},
	tEq:    {precEquality, nBinary, vm.OpEq},
	tNe:    {precEquality, nBinary, vm.OpNe},
	tLt:    {precRelational, nBinary, vm.OpLt},
	tLe:    {precRelational, nBinary, vm.OpLe},
	tGt:    {precRelational, nBinary, vm.OpGt},
	tGe:    {precRelational, nBinary, vm.OpGe},
	tPlus:  {precAdditive, nBinary, vm.OpAdd},
	tMinus: {precAdditive, nBinary, vm.OpSub},
	tStar:  {precMultiplicative, nBinary, vm.OpMul},
	tSlash: {precMultiplicative, nBinary, vm.OpDiv},
	tPct:   {precMultiplicative, nBinary, vm.OpMod},
}

// binary is precedence climbing over the left associative operators.
func (obj *parser) binary(min int) (*node, error) {
	left, err := obj.unary()
	if err != nil {
		return nil, err
	}
	for {
		info, ok := binaryTokens[obj.peek().Type]
		if !ok || info.prec < min {
			return left, nil
		}
		obj.next()
		right, err := obj.binary(info.prec + 1)
		if err != nil {
			return nil, err
		}
		left = &node{kind: info.kind, op: info.op, children: []*node{left, right}}
	}
}

func (obj *parser) unary() (*node, error) {
	tok := obj.peek()
	if tok.Type != tMinus && tok.Type != tBang {
		return obj.postfix()
	}
	obj.next()
	x, err := obj.unary()
	if err != nil {
		return nil, err
	}
	if tok.Type == tBang {
		return &node{kind: nUnary, op: vm.OpNot, children: []*node{x}}, nil
	}
	if x.raw { // fold -literal into a negative literal
		return &node{kind: nLiteral, value: types.NewNumber(-x.value.Number())}, nil
	}
	return &node{kind: nUnary, op: vm.OpNeg, children: []*node{x}}, nil
}

func (obj *parser) postfix() (*node, error) {
	x, err := obj.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case obj.match(tLBracket):
			index, err := obj.expr()
			if err != nil {
				return nil, err
			}
			if _, err := obj.expect(tRBracket); err != nil {
				return nil, err
			}
			x = &node{kind: nIndex, children: []*node{x, index}}

		case obj.match(tDot):
			name, err := obj.expect(tIdent)
			if err != nil {
				return nil, err
			}
			key := &node{kind: nLiteral, value: types.NewName(name.Text)}
			x = &node{kind: nIndex, children: []*node{x, key}}

		default:
			return x, nil
		}
	}
}

func (obj *parser) primary() (*node, error) {
	tok := obj.next()
	switch tok.Type {
	case tNumber:
		f, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, obj.errorf(tok, "invalid number %s", tok.Text)
		}
		return &node{kind: nLiteral, value: types.NewNumber(f), raw: true}, nil

	case tString:
		return &node{kind: nLiteral, value: types.NewStr(tok.Text)}, nil

	case tName:
		return &node{kind: nLiteral, value: types.NewName(tok.Text)}, nil

	case tIdent:
		switch tok.Text {
		case keywordTrue, keywordFalse:
			return &node{kind: nLiteral, value: types.NewBool(tok.Text == keywordTrue)}, nil
		case keywordEmpty:
			return &node{kind: nLiteral, value: types.NewEmpty()}, nil
		}
		if obj.match(tLParen) {
			return obj.call(tok)
		}
		return &node{kind: nVar, name: tok.Text}, nil

	case tLParen:
		x, err := obj.expr()
		if err != nil {
			return nil, err
		}
		if _, err := obj.expect(tRParen); err != nil {
			return nil, err
		}
		if x.raw { // (1) is no longer foldable
			x = &node{kind: nLiteral, value: x.value}
		}
		return x, nil

	case tLBracket:
		n := &node{kind: nArray}
		if obj.match(tRBracket) {
			return n, nil
		}
		for {
			x, err := obj.expr()
			if err != nil {
				return nil, err
			}
			n.children = append(n.children, x)
			if obj.match(tRBracket) {
				return n, nil
			}
			if _, err := obj.expect(tComma); err != nil {
				return nil, err
			}
		}

	case tLBrace:
		if obj.match(tRBrace) {
			return &node{kind: nDict}, nil
		}
		n, err := obj.namedArgs()
		if err != nil {
			return nil, err
		}
		if _, err := obj.expect(tRBrace); err != nil {
			return nil, err
		}
		return n, nil
	}
	return nil, obj.errorf(tok, "unexpected %s", tok)
}

// call parses the arguments of a function call. The opening parenthesis has
// already been consumed. Arguments are either all positional or all named.
func (obj *parser) call(name token) (*node, error) {
	if obj.match(tRParen) {
		return &node{kind: nCallArray, name: name.Text}, nil
	}
	if tok := obj.peek(); (tok.Type == tIdent || tok.Type == tName || tok.Type == tString) && obj.peekN(1).Type == tColon {
		n, err := obj.namedArgs()
		if err != nil {
			return nil, err
		}
		if _, err := obj.expect(tRParen); err != nil {
			return nil, err
		}
		n.kind = nCallDict
		n.name = name.Text
		return n, nil
	}

	n := &node{kind: nCallArray, name: name.Text}
	for {
		x, err := obj.expr()
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, x)
		if obj.match(tRParen) {
			return n, nil
		}
		if _, err := obj.expect(tComma); err != nil {
			return nil, err
		}
	}
}

// namedArgs parses key: value, ... into a dictionary node.
func (obj *parser) namedArgs() (*node, error) {
	n := &node{kind: nDict}
	seen := make(map[string]struct{})
	for {
		tok := obj.next()
		switch tok.Type {
		case tIdent, tName, tString:
		default:
			return nil, obj.errorf(tok, "expected a key, found %s", tok)
		}
		if _, exists := seen[tok.Text]; exists {
			return nil, obj.errorf(tok, "duplicate key %s", tok.Text)
		}
		seen[tok.Text] = struct{}{}
		if _, err := obj.expect(tColon); err != nil {
			return nil, err
		}
		x, err := obj.expr()
		if err != nil {
			return nil, err
		}
		n.keys = append(n.keys, tok.Text)
		n.children = append(n.children, x)
		if tok := obj.peek(); tok.Type != tComma {
			return n, nil
		}
		obj.next()
	}
}

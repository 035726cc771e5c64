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
	"math"
	"strconv"
	"strings"

	"github.com/purpleidea/propsheet/lang/ast"
	"github.com/purpleidea/propsheet/lang/types"
	"github.com/purpleidea/propsheet/lang/vm"
	"github.com/purpleidea/propsheet/util/errwrap"
)

// PrintExpr returns the canonical infix source of a program. Parentheses are
// only added where precedence requires them.
func PrintExpr(prog *vm.Program) (string, error) {
	n, err := decompile(prog)
	if err != nil {
		return "", err
	}
	return printNode(n, precTernary)
}

// identifier returns true if s can be written bare as a key or member.
func identifier(s string) bool {
	if s == "" || !isAlpha(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isAlphaNum(s[i]) {
			return false
		}
	}
	return true
}

func printLiteral(v types.Value) (string, error) {
	switch x := v.(type) {
	case *types.NumberValue:
		if math.IsNaN(x.V) || math.IsInf(x.V, 0) {
			return "", fmt.Errorf("number %v has no literal form", x.V)
		}
	case *types.CustomValue:
		return "", fmt.Errorf("custom value %s has no literal form", x)
	case *types.ListValue:
		s := []string{}
		for _, e := range x.V {
			str, err := printLiteral(e)
			if err != nil {
				return "", err
			}
			s = append(s, str)
		}
		return "[" + strings.Join(s, ", ") + "]", nil
	case *types.DictValue:
		s := []string{}
		for _, k := range x.Keys() {
			str, err := printLiteral(x.V[k])
			if err != nil {
				return "", err
			}
			s = append(s, printKey(k)+": "+str)
		}
		return "{" + strings.Join(s, ", ") + "}", nil
	}
	return v.String(), nil
}

func printKey(key string) string {
	if identifier(key) {
		return key
	}
	return strconv.Quote(key)
}

// printNode prints n, adding parentheses if it binds looser than min.
func printNode(n *node, min int) (string, error) {
	s, err := printBare(n)
	if err != nil {
		return "", err
	}
	if n.prec() < min {
		return "(" + s + ")", nil
	}
	return s, nil
}

func printList(nodes []*node) (string, error) {
	s := []string{}
	for _, x := range nodes {
		str, err := printNode(x, precTernary)
		if err != nil {
			return "", err
		}
		s = append(s, str)
	}
	return strings.Join(s, ", "), nil
}

func printEntries(n *node) (string, error) {
	s := []string{}
	for i, key := range n.keys {
		str, err := printNode(n.children[i], precTernary)
		if err != nil {
			return "", err
		}
		s = append(s, printKey(key)+": "+str)
	}
	return strings.Join(s, ", "), nil
}

func printBare(n *node) (string, error) {
	switch n.kind {
	case nLiteral:
		return printLiteral(n.value)

	case nVar:
		return n.name, nil

	case nUnary:
		symbol := "-"
		if n.op == vm.OpNot {
			symbol = "!"
		}
		x, err := printNode(n.children[0], precUnary)
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(x, "-") { // avoid printing a double minus
			x = "(" + x + ")"
		}
		return symbol + x, nil

	case nBinary, nAnd, nOr:
		p := n.prec()
		symbol := binarySymbol[n.op]
		switch n.kind {
		case nAnd:
			symbol = "&&"
		case nOr:
			symbol = "||"
		}
		a, err := printNode(n.children[0], p)
		if err != nil {
			return "", err
		}
		b, err := printNode(n.children[1], p+1)
		if err != nil {
			return "", err
		}
		return a + " " + symbol + " " + b, nil

	case nTernary:
		c, err := printNode(n.children[0], precOr)
		if err != nil {
			return "", err
		}
		x, err := printNode(n.children[1], precTernary)
		if err != nil {
			return "", err
		}
		y, err := printNode(n.children[2], precTernary)
		if err != nil {
			return "", err
		}
		return c + " ? " + x + " : " + y, nil

	case nIndex:
		x, err := printNode(n.children[0], precPostfix)
		if err != nil {
			return "", err
		}
		if key := n.children[1]; key.kind == nLiteral {
			if name, ok := key.value.(*types.NameValue); ok && identifier(name.V) {
				return x + "." + name.V, nil
			}
		}
		i, err := printNode(n.children[1], precTernary)
		if err != nil {
			return "", err
		}
		return x + "[" + i + "]", nil

	case nArray:
		s, err := printList(n.children)
		if err != nil {
			return "", err
		}
		return "[" + s + "]", nil

	case nDict:
		s, err := printEntries(n)
		if err != nil {
			return "", err
		}
		return "{" + s + "}", nil

	case nCallArray:
		s, err := printList(n.children)
		if err != nil {
			return "", err
		}
		return n.name + "(" + s + ")", nil

	case nCallDict:
		s, err := printEntries(n)
		if err != nil {
			return "", err
		}
		return n.name + "(" + s + ")", nil
	}
	return "", fmt.Errorf("unknown node kind %d", n.kind)
}

type printer struct {
	sb      strings.Builder
	section ast.CellKind
}

func (obj *printer) printf(format string, v ...interface{}) {
	fmt.Fprintf(&obj.sb, format, v...)
}

func (obj *printer) decls(decls []ast.Decl) error {
	obj.section = ast.CellKind(-1)
	for _, x := range decls {
		if k := x.Section(); k != obj.section {
			obj.printf("%s:\n", k)
			obj.section = k
		}
		switch d := x.(type) {
		case *ast.Cell:
			if err := obj.cell(d); err != nil {
				return errwrap.Wrapf(err, "cell %s", d.Name)
			}
		case *ast.Relate:
			if err := obj.relate(d); err != nil {
				return errwrap.Wrapf(err, "relate on line %d", d.Line)
			}
		default:
			return fmt.Errorf("unknown declaration %T", x)
		}
	}
	return nil
}

func (obj *printer) cell(cell *ast.Cell) error {
	obj.printf("\t%s", cell.Name)
	if cell.Init != nil {
		s, err := PrintExpr(cell.Init)
		if err != nil {
			return err
		}
		obj.printf(" : %s", s)
	}
	if cell.Define != nil {
		s, err := PrintExpr(cell.Define)
		if err != nil {
			return err
		}
		obj.printf(" <== %s", s)
	}
	obj.printf(";\n")
	return nil
}

func (obj *printer) relate(relate *ast.Relate) error {
	obj.printf("\t")
	if relate.Guard != nil {
		s, err := PrintExpr(relate.Guard)
		if err != nil {
			return err
		}
		obj.printf("%s (%s) ", keywordWhen, s)
	}
	obj.printf("%s {\n", keywordRelate)
	for _, clause := range relate.Clauses {
		s, err := PrintExpr(clause.Expr)
		if err != nil {
			return errwrap.Wrapf(err, "clause %s", clause.Name)
		}
		obj.printf("\t\t%s <== %s;\n", clause.Name, s)
	}
	obj.printf("\t}\n")
	return nil
}

func (obj *printer) view(view *ast.View, depth int) error {
	args := ""
	if view.Args != nil {
		n, err := decompile(view.Args)
		if err != nil {
			return errwrap.Wrapf(err, "view %s", view.Kind)
		}
		if n.kind != nDict {
			return fmt.Errorf("arguments of view %s are not a dictionary", view.Kind)
		}
		if args, err = printEntries(n); err != nil {
			return errwrap.Wrapf(err, "view %s", view.Kind)
		}
	}
	obj.printf("%s(%s)", view.Kind, args)
	if len(view.Children) == 0 {
		obj.printf(";\n")
		return nil
	}
	obj.printf(" {\n")
	for _, child := range view.Children {
		obj.printf("%s", strings.Repeat("\t", depth+1))
		if err := obj.view(child, depth+1); err != nil {
			return err
		}
	}
	obj.printf("%s}\n", strings.Repeat("\t", depth))
	return nil
}

// PrintSheet returns the canonical source of a property model.
func PrintSheet(sheet *ast.Sheet) (string, error) {
	p := &printer{}
	p.printf("%s %s {\n", keywordSheet, sheet.Name)
	if err := p.decls(sheet.Decls); err != nil {
		return "", err
	}
	p.printf("}\n")
	return p.sb.String(), nil
}

// PrintLayout returns the canonical source of a layout.
func PrintLayout(layout *ast.Layout) (string, error) {
	if layout.Root == nil {
		return "", fmt.Errorf("layout %s has no view", layout.Name)
	}
	p := &printer{}
	p.printf("%s %s {\n", keywordLayout, layout.Name)
	if layout.Sheet != nil {
		if err := p.decls(layout.Sheet.Decls); err != nil {
			return "", err
		}
	}
	p.printf("\t%s ", keywordView)
	if err := p.view(layout.Root, 1); err != nil {
		return "", err
	}
	p.printf("}\n")
	return p.sb.String(), nil
}

// PrintTokens returns the disassembly of every program in the declarations,
// which shows exactly what the vm runs.
func PrintTokens(decls []ast.Decl) string {
	p := &printer{}
	for _, x := range decls {
		switch d := x.(type) {
		case *ast.Cell:
			if d.Init != nil {
				p.printf("%s %s (init):\n%s\n", d.Kind, d.Name, d.Init)
			}
			if d.Define != nil {
				p.printf("%s %s (define):\n%s\n", d.Kind, d.Name, d.Define)
			}
		case *ast.Relate:
			if d.Guard != nil {
				p.printf("when (line %d):\n%s\n", d.Line, d.Guard)
			}
			for _, clause := range d.Clauses {
				p.printf("relate %s:\n%s\n", clause.Name, clause.Expr)
			}
		}
	}
	return p.sb.String()
}

// PrintValue returns the literal form of a value, which ParseValue reads back.
// Custom values and numbers which aren't finite have no literal form.
func PrintValue(v types.Value) (string, error) {
	if v == nil {
		return "", fmt.Errorf("nil value")
	}
	return printLiteral(v)
}

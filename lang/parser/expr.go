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

	"github.com/purpleidea/propsheet/lang/types"
	"github.com/purpleidea/propsheet/lang/vm"
)

// nodeKind is the kind of an expression tree node. The tree only exists while
// compiling to and decompiling from the flat program form.
type nodeKind int

const (
	nLiteral nodeKind = iota
	nVar
	nUnary
	nBinary
	nAnd
	nOr
	nTernary
	nIndex
	nArray
	nDict
	nCallArray
	nCallDict
)

type node struct {
	kind     nodeKind
	op       vm.Opcode   // nUnary, nBinary
	value    types.Value // nLiteral
	name     string      // nVar, nCallArray, nCallDict
	keys     []string    // nDict, nCallDict
	children []*node

	// raw is true for a number literal exactly as the lexer produced it,
	// which is the only thing a unary minus gets folded into.
	raw bool
}

// precedence levels, lowest first
const (
	precTernary = 1 + iota
	precOr
	precAnd
	precEquality
	precRelational
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
	precPrimary
)

var binaryPrec = map[vm.Opcode]int{
	vm.OpEq:  precEquality,
	vm.OpNe:  precEquality,
	vm.OpLt:  precRelational,
	vm.OpLe:  precRelational,
	vm.OpGt:  precRelational,
	vm.OpGe:  precRelational,
	vm.OpAdd: precAdditive,
	vm.OpSub: precAdditive,
	vm.OpMul: precMultiplicative,
	vm.OpDiv: precMultiplicative,
	vm.OpMod: precMultiplicative,
}

var binarySymbol = map[vm.Opcode]string{
	vm.OpEq:  "==",
	vm.OpNe:  "!=",
	vm.OpLt:  "<",
	vm.OpLe:  "<=",
	vm.OpGt:  ">",
	vm.OpGe:  ">=",
	vm.OpAdd: "+",
	vm.OpSub: "-",
	vm.OpMul: "*",
	vm.OpDiv: "/",
	vm.OpMod: "%",
}

func (obj *node) prec() int {
	switch obj.kind {
	case nTernary:
		return precTernary
	case nOr:
		return precOr
	case nAnd:
		return precAnd
	case nBinary:
		return binaryPrec[obj.op]
	case nUnary:
		return precUnary
	case nIndex:
		return precPostfix
	case nLiteral:
		// a negative number prints with a leading minus
		if n, ok := obj.value.(*types.NumberValue); ok && n.V < 0 {
			return precUnary
		}
	}
	return precPrimary
}

// compile turns an expression tree into a program.
func compile(n *node) *vm.Program {
	e := &emitter{}
	e.gen(n)
	return vm.NewProgram(e.ops...)
}

type emitter struct {
	ops []vm.Op
}

func (obj *emitter) emit(op vm.Op) int {
	obj.ops = append(obj.ops, op)
	return len(obj.ops) - 1
}

func (obj *emitter) gen(n *node) {
	switch n.kind {
	case nLiteral:
		obj.emit(vm.Push(n.value))

	case nVar:
		obj.emit(vm.Var(n.name))

	case nUnary:
		obj.gen(n.children[0])
		obj.emit(vm.Code(n.op))

	case nBinary:
		obj.gen(n.children[0])
		obj.gen(n.children[1])
		obj.emit(vm.Code(n.op))

	case nAnd, nOr:
		code := vm.OpAnd
		if n.kind == nOr {
			code = vm.OpOr
		}
		obj.gen(n.children[0])
		j := obj.emit(vm.Op{Code: code})
		obj.gen(n.children[1])
		obj.ops[j].Arg = len(obj.ops)

	case nTernary:
		obj.gen(n.children[0])
		jf := obj.emit(vm.Op{Code: vm.OpJumpIfFalse})
		obj.gen(n.children[1])
		j := obj.emit(vm.Op{Code: vm.OpJump})
		obj.ops[jf].Arg = len(obj.ops)
		obj.gen(n.children[2])
		obj.ops[j].Arg = len(obj.ops)

	case nIndex:
		obj.gen(n.children[0])
		obj.gen(n.children[1])
		obj.emit(vm.Code(vm.OpIndex))

	case nArray:
		for _, x := range n.children {
			obj.gen(x)
		}
		obj.emit(vm.Op{Code: vm.OpArray, Arg: len(n.children)})

	case nDict:
		obj.genDict(n)

	case nCallArray:
		for _, x := range n.children {
			obj.gen(x)
		}
		obj.emit(vm.Op{Code: vm.OpCallArray, Name: n.name, Arg: len(n.children)})

	case nCallDict:
		obj.genDict(n)
		obj.emit(vm.Op{Code: vm.OpCallDict, Name: n.name})
	}
}

func (obj *emitter) genDict(n *node) {
	for i, key := range n.keys {
		obj.emit(vm.Push(types.NewName(key)))
		obj.gen(n.children[i])
	}
	obj.emit(vm.Op{Code: vm.OpDict, Arg: len(n.keys)})
}

// decompile rebuilds the expression tree of a program. It understands the
// jump patterns that compile produces, which is enough to print any program
// that came from source text.
func decompile(prog *vm.Program) (*node, error) {
	if err := prog.Validate(); err != nil {
		return nil, err
	}
	d := &decompiler{ops: prog.Ops}
	nodes, err := d.run(0, len(prog.Ops))
	if err != nil {
		return nil, err
	}
	if len(nodes) != 1 {
		return nil, fmt.Errorf("program produces %d values", len(nodes))
	}
	return nodes[0], nil
}

type decompiler struct {
	ops []vm.Op
}

func (obj *decompiler) one(start, end int) (*node, error) {
	nodes, err := obj.run(start, end)
	if err != nil {
		return nil, err
	}
	if len(nodes) != 1 {
		return nil, fmt.Errorf("ops %d to %d produce %d values", start, end, len(nodes))
	}
	return nodes[0], nil
}

func (obj *decompiler) run(start, end int) ([]*node, error) {
	stack := []*node{}
	pop := func(n int) ([]*node, error) {
		if len(stack) < n {
			return nil, fmt.Errorf("stack underflow")
		}
		out := make([]*node, n)
		copy(out, stack[len(stack)-n:])
		stack = stack[:len(stack)-n]
		return out, nil
	}

	pc := start
	for pc < end {
		op := obj.ops[pc]
		switch op.Code {
		case vm.OpPush:
			stack = append(stack, &node{kind: nLiteral, value: op.Value})

		case vm.OpVar:
			stack = append(stack, &node{kind: nVar, name: op.Name})

		case vm.OpNeg, vm.OpNot:
			x, err := pop(1)
			if err != nil {
				return nil, err
			}
			stack = append(stack, &node{kind: nUnary, op: op.Code, children: x})

		case vm.OpAdd, vm.OpSub, vm.OpMul, vm.OpDiv, vm.OpMod,
			vm.OpLt, vm.OpLe, vm.OpGt, vm.OpGe, vm.OpEq, vm.OpNe:
			x, err := pop(2)
			if err != nil {
				return nil, err
			}
			stack = append(stack, &node{kind: nBinary, op: op.Code, children: x})

		case vm.OpAnd, vm.OpOr:
			if op.Arg > end {
				return nil, fmt.Errorf("op %d jumps out of its expression", pc)
			}
			left, err := pop(1)
			if err != nil {
				return nil, err
			}
			right, err := obj.one(pc+1, op.Arg)
			if err != nil {
				return nil, err
			}
			kind := nAnd
			if op.Code == vm.OpOr {
				kind = nOr
			}
			stack = append(stack, &node{kind: kind, children: []*node{left[0], right}})
			pc = op.Arg
			continue

		case vm.OpJumpIfFalse:
			cond, err := pop(1)
			if err != nil {
				return nil, err
			}
			other := op.Arg // start of the else branch
			if other-1 <= pc || obj.ops[other-1].Code != vm.OpJump {
				return nil, fmt.Errorf("op %d is not a conditional expression", pc)
			}
			done := obj.ops[other-1].Arg
			if done > end {
				return nil, fmt.Errorf("op %d jumps out of its expression", other-1)
			}
			x, err := obj.one(pc+1, other-1)
			if err != nil {
				return nil, err
			}
			y, err := obj.one(other, done)
			if err != nil {
				return nil, err
			}
			stack = append(stack, &node{kind: nTernary, children: []*node{cond[0], x, y}})
			pc = done
			continue

		case vm.OpJump:
			return nil, fmt.Errorf("op %d is an unexpected jump", pc)

		case vm.OpIndex:
			x, err := pop(2)
			if err != nil {
				return nil, err
			}
			stack = append(stack, &node{kind: nIndex, children: x})

		case vm.OpArray, vm.OpCallArray:
			x, err := pop(op.Arg)
			if err != nil {
				return nil, err
			}
			n := &node{kind: nArray, children: x}
			if op.Code == vm.OpCallArray {
				n.kind = nCallArray
				n.name = op.Name
			}
			stack = append(stack, n)

		case vm.OpDict:
			x, err := pop(2 * op.Arg)
			if err != nil {
				return nil, err
			}
			n := &node{kind: nDict, keys: []string{}, children: []*node{}}
			for i := 0; i < len(x); i += 2 {
				key, err := literalKey(x[i])
				if err != nil {
					return nil, err
				}
				n.keys = append(n.keys, key)
				n.children = append(n.children, x[i+1])
			}
			stack = append(stack, n)

		case vm.OpCallDict:
			x, err := pop(1)
			if err != nil {
				return nil, err
			}
			if x[0].kind != nDict {
				return nil, fmt.Errorf("op %d calls %s without a dictionary literal", pc, op.Name)
			}
			x[0].kind = nCallDict
			x[0].name = op.Name
			stack = append(stack, x[0])

		default:
			return nil, fmt.Errorf("op %d has unknown opcode %s", pc, op.Code)
		}
		pc++
	}
	return stack, nil
}

func literalKey(n *node) (string, error) {
	if n.kind == nLiteral {
		switch v := n.value.(type) {
		case *types.NameValue:
			return v.V, nil
		case *types.StrValue:
			return v.V, nil
		}
	}
	return "", fmt.Errorf("dictionary key is not a literal name")
}

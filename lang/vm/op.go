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

package vm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/purpleidea/propsheet/lang/types"
	"github.com/purpleidea/propsheet/util/errwrap"
)

// Opcode is the operation performed by a single token of a program.
type Opcode int

// These are the opcodes understood by the machine. Binary operators pop the
// right operand first. Jump targets are absolute op indexes.
const (
	OpPush Opcode = iota // push Value
	OpVar                // push the value of variable Name

	OpNeg
	OpNot

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod

	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe

	OpAnd         // top false: keep it and jump to Arg, else pop it
	OpOr          // top true: keep it and jump to Arg, else pop it
	OpJumpIfFalse // pop a bool and jump to Arg if it is false
	OpJump        // jump to Arg

	OpIndex     // pop index, pop container, push element
	OpArray     // pop Arg values, push a list
	OpDict      // pop Arg key/value pairs, push a dictionary
	OpCallArray // pop Arg values, push Name(values...)
	OpCallDict  // pop a dictionary, push Name(dictionary)
)

var opcodeNames = map[Opcode]string{
	OpPush:        "push",
	OpVar:         "var",
	OpNeg:         "neg",
	OpNot:         "not",
	OpAdd:         "add",
	OpSub:         "sub",
	OpMul:         "mul",
	OpDiv:         "div",
	OpMod:         "mod",
	OpLt:          "lt",
	OpLe:          "le",
	OpGt:          "gt",
	OpGe:          "ge",
	OpEq:          "eq",
	OpNe:          "ne",
	OpAnd:         "and",
	OpOr:          "or",
	OpJumpIfFalse: "jump_if_false",
	OpJump:        "jump",
	OpIndex:       "index",
	OpArray:       "array",
	OpDict:        "dictionary",
	OpCallArray:   "call_array",
	OpCallDict:    "call_dictionary",
}

// String returns the mnemonic of the opcode.
func (obj Opcode) String() string {
	if s, exists := opcodeNames[obj]; exists {
		return s
	}
	return fmt.Sprintf("Opcode(%d)", int(obj))
}

// Op is a single token of a program.
type Op struct {
	Code Opcode

	// Value is the literal for OpPush.
	Value types.Value

	// Name is the variable name for OpVar or the function name for the
	// call opcodes.
	Name string

	// Arg is the jump target or the element count, depending on Code.
	Arg int
}

// String returns a one token disassembly of this op.
func (obj Op) String() string {
	switch obj.Code {
	case OpPush:
		return fmt.Sprintf("push %s", obj.Value)
	case OpVar:
		return fmt.Sprintf("var %s", obj.Name)
	case OpAnd, OpOr, OpJumpIfFalse, OpJump, OpArray, OpDict:
		return fmt.Sprintf("%s %d", obj.Code, obj.Arg)
	case OpCallArray:
		return fmt.Sprintf("%s %s %d", obj.Code, obj.Name, obj.Arg)
	case OpCallDict:
		return fmt.Sprintf("%s %s", obj.Code, obj.Name)
	}
	return obj.Code.String()
}

// Cmp returns an error if the two ops are not identical.
func (obj Op) Cmp(op Op) error {
	if obj.Code != op.Code {
		return fmt.Errorf("opcodes differ: %s != %s", obj.Code, op.Code)
	}
	if obj.Name != op.Name {
		return fmt.Errorf("names differ: %s != %s", obj.Name, op.Name)
	}
	if obj.Arg != op.Arg {
		return fmt.Errorf("args differ: %d != %d", obj.Arg, op.Arg)
	}
	if obj.Code == OpPush && !types.Equal(obj.Value, op.Value) {
		return fmt.Errorf("literals differ: %s != %s", obj.Value, op.Value)
	}
	return nil
}

// Push returns an op that pushes a literal.
func Push(v types.Value) Op { return Op{Code: OpPush, Value: v} }

// Var returns an op that pushes the value of a variable.
func Var(name string) Op { return Op{Code: OpVar, Name: name} }

// Code returns an op with no operands, such as OpAdd or OpIndex.
func Code(code Opcode) Op { return Op{Code: code} }

// Program is a parsed expression in flat postfix form.
type Program struct {
	Ops []Op
}

// NewProgram builds a program from a list of ops.
func NewProgram(ops ...Op) *Program {
	return &Program{Ops: ops}
}

// Literal returns a program which evaluates to the given value.
func Literal(v types.Value) *Program {
	return NewProgram(Push(v))
}

// Refs returns the sorted list of variable names this program references. It
// is the static dependency set of the expression.
func (obj *Program) Refs() []string {
	if obj == nil {
		return []string{}
	}
	seen := make(map[string]struct{})
	refs := []string{}
	for _, op := range obj.Ops {
		if op.Code != OpVar {
			continue
		}
		if _, exists := seen[op.Name]; exists {
			continue
		}
		seen[op.Name] = struct{}{}
		refs = append(refs, op.Name)
	}
	sort.Strings(refs)
	return refs
}

// Validate checks that all the jump targets are in range and that the stack
// depth is consistent, so that a well formed program leaves exactly one value.
func (obj *Program) Validate() error {
	if obj == nil || len(obj.Ops) == 0 {
		return fmt.Errorf("empty program")
	}
	for i, op := range obj.Ops {
		switch op.Code {
		case OpAnd, OpOr, OpJumpIfFalse, OpJump:
			if op.Arg <= i || op.Arg > len(obj.Ops) {
				return fmt.Errorf("op %d (%s) has an invalid jump target", i, op)
			}
		case OpArray, OpDict, OpCallArray:
			if op.Arg < 0 {
				return fmt.Errorf("op %d (%s) has a negative count", i, op)
			}
		case OpPush:
			if op.Value == nil {
				return fmt.Errorf("op %d pushes a nil value", i)
			}
		case OpVar, OpCallDict:
			if op.Name == "" {
				return fmt.Errorf("op %d (%s) is missing a name", i, op.Code)
			}
		}
		if _, exists := opcodeNames[op.Code]; !exists {
			return fmt.Errorf("op %d has an unknown opcode %d", i, op.Code)
		}
	}
	return nil
}

// Cmp returns an error if the two programs are not identical.
func (obj *Program) Cmp(prog *Program) error {
	if obj == nil || prog == nil {
		if obj == nil && prog == nil {
			return nil
		}
		return fmt.Errorf("one program is nil")
	}
	if len(obj.Ops) != len(prog.Ops) {
		return fmt.Errorf("programs have different lengths: %d != %d", len(obj.Ops), len(prog.Ops))
	}
	for i := range obj.Ops {
		if err := obj.Ops[i].Cmp(prog.Ops[i]); err != nil {
			return errwrap.Wrapf(err, "op %d differs", i)
		}
	}
	return nil
}

// String disassembles the program, one token per line.
func (obj *Program) String() string {
	if obj == nil {
		return ""
	}
	lines := []string{}
	for i, op := range obj.Ops {
		lines = append(lines, fmt.Sprintf("%04d %s", i, op))
	}
	return strings.Join(lines, "\n")
}

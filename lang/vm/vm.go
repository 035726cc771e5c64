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

// Package vm implements the stack machine which evaluates parsed expressions.
// Programs are flat postfix token sequences produced once by the parser. The
// machine has no knowledge of where variables and functions come from, those
// are resolved with the pluggable lookup functions.
package vm

import (
	"fmt"
	"math"

	"github.com/purpleidea/propsheet/lang/types"
	"github.com/purpleidea/propsheet/util/errwrap"
)

// VariableLookup returns the value of a variable. It should return an error
// matching ErrUnboundVariable if there is no such variable.
type VariableLookup func(name string) (types.Value, error)

// DictFuncLookup calls the named function with named arguments. It should
// return an error matching ErrFunctionNotFound if there is no such function.
type DictFuncLookup func(name string, args map[string]types.Value) (types.Value, error)

// ArrayFuncLookup calls the named function with positional arguments. It
// should return an error matching ErrFunctionNotFound if there is no such
// function.
type ArrayFuncLookup func(name string, args []types.Value) (types.Value, error)

// Machine evaluates programs. The lookup fields may be swapped between calls,
// for example to bind variable lookup to a particular sheet. A nil lookup
// behaves as if nothing is defined. Evaluate keeps no state across calls.
type Machine struct {
	VariableLookup  VariableLookup
	DictFuncLookup  DictFuncLookup
	ArrayFuncLookup ArrayFuncLookup
}

// Evaluate runs the program and returns the single value it produces.
func (obj *Machine) Evaluate(prog *Program) (types.Value, error) {
	if err := prog.Validate(); err != nil {
		return nil, errwrap.Wrapf(err, "invalid program")
	}
	stack := &stack{}

	pc := 0
	for pc < len(prog.Ops) {
		op := prog.Ops[pc]
		next := pc + 1

		switch op.Code {
		case OpPush:
			stack.push(op.Value)

		case OpVar:
			v, err := obj.variable(op.Name)
			if err != nil {
				return nil, err
			}
			stack.push(v)

		case OpNeg, OpNot:
			x, err := stack.pop()
			if err != nil {
				return nil, errwrap.Wrapf(err, "op %d (%s)", pc, op.Code)
			}
			v, err := unary(op.Code, x)
			if err != nil {
				return nil, err
			}
			stack.push(v)

		case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpLt, OpLe, OpGt, OpGe, OpEq, OpNe:
			b, err := stack.pop()
			if err != nil {
				return nil, errwrap.Wrapf(err, "op %d (%s)", pc, op.Code)
			}
			a, err := stack.pop()
			if err != nil {
				return nil, errwrap.Wrapf(err, "op %d (%s)", pc, op.Code)
			}
			v, err := binary(op.Code, a, b)
			if err != nil {
				return nil, err
			}
			stack.push(v)

		case OpAnd, OpOr:
			x, err := stack.peek()
			if err != nil {
				return nil, errwrap.Wrapf(err, "op %d (%s)", pc, op.Code)
			}
			cond, err := types.AsBool(x)
			if err != nil {
				return nil, errwrap.Wrapf(err, "operand of %s", op.Code)
			}
			if cond == (op.Code == OpOr) { // decided, keep it
				next = op.Arg
				break
			}
			stack.pop() // the right hand side decides
		case OpJumpIfFalse:
			x, err := stack.pop()
			if err != nil {
				return nil, errwrap.Wrapf(err, "op %d (%s)", pc, op.Code)
			}
			cond, err := types.AsBool(x)
			if err != nil {
				return nil, errwrap.Wrapf(err, "condition")
			}
			if !cond {
				next = op.Arg
			}

		case OpJump:
			next = op.Arg

		case OpIndex:
			index, err := stack.pop()
			if err != nil {
				return nil, errwrap.Wrapf(err, "op %d (%s)", pc, op.Code)
			}
			container, err := stack.pop()
			if err != nil {
				return nil, errwrap.Wrapf(err, "op %d (%s)", pc, op.Code)
			}
			v, err := Index(container, index)
			if err != nil {
				return nil, err
			}
			stack.push(v)

		case OpArray:
			values, err := stack.popN(op.Arg)
			if err != nil {
				return nil, errwrap.Wrapf(err, "op %d (%s)", pc, op.Code)
			}
			stack.push(types.NewList(values...))

		case OpDict:
			values, err := stack.popN(2 * op.Arg)
			if err != nil {
				return nil, errwrap.Wrapf(err, "op %d (%s)", pc, op.Code)
			}
			d := types.NewDict()
			for i := 0; i < len(values); i += 2 {
				key, err := dictKey(values[i])
				if err != nil {
					return nil, err
				}
				if err := d.Add(key, values[i+1]); err != nil {
					return nil, err
				}
			}
			stack.push(d)

		case OpCallArray:
			args, err := stack.popN(op.Arg)
			if err != nil {
				return nil, errwrap.Wrapf(err, "op %d (%s)", pc, op.Code)
			}
			if obj.ArrayFuncLookup == nil {
				return nil, &FunctionNotFoundError{Name: op.Name}
			}
			v, err := obj.ArrayFuncLookup(op.Name, args)
			if err != nil {
				return nil, errwrap.Wrapf(err, "call to %s", op.Name)
			}
			stack.push(v)

		case OpCallDict:
			x, err := stack.pop()
			if err != nil {
				return nil, errwrap.Wrapf(err, "op %d (%s)", pc, op.Code)
			}
			args, err := types.AsDict(x)
			if err != nil {
				return nil, errwrap.Wrapf(err, "arguments of %s", op.Name)
			}
			if obj.DictFuncLookup == nil {
				return nil, &FunctionNotFoundError{Name: op.Name}
			}
			v, err := obj.DictFuncLookup(op.Name, args)
			if err != nil {
				return nil, errwrap.Wrapf(err, "call to %s", op.Name)
			}
			stack.push(v)

		default:
			return nil, fmt.Errorf("unknown opcode: %s", op.Code)
		}

		pc = next
	}

	if l := stack.len(); l != 1 {
		return nil, fmt.Errorf("program left %d values on the stack", l)
	}
	return stack.pop()
}

func (obj *Machine) variable(name string) (types.Value, error) {
	if obj.VariableLookup == nil {
		return nil, &UnboundVariableError{Name: name}
	}
	v, err := obj.VariableLookup(name)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return types.NewEmpty(), nil
	}
	return v, nil
}

func dictKey(v types.Value) (string, error) {
	switch types.KindOf(v) {
	case types.KindName:
		return v.Name(), nil
	case types.KindStr:
		return v.Str(), nil
	}
	return "", fmt.Errorf("dictionary key must be a name, got: %s", types.KindOf(v))
}

func unary(code Opcode, x types.Value) (types.Value, error) {
	switch code {
	case OpNeg:
		f, err := types.AsNumber(x)
		if err != nil {
			return nil, errwrap.Wrapf(err, "operand of negation")
		}
		return types.NewNumber(-f), nil
	case OpNot:
		b, err := types.AsBool(x)
		if err != nil {
			return nil, errwrap.Wrapf(err, "operand of not")
		}
		return types.NewBool(!b), nil
	}
	return nil, fmt.Errorf("not a unary opcode: %s", code)
}

func binary(code Opcode, a, b types.Value) (types.Value, error) {
	switch code {
	case OpEq:
		return types.NewBool(types.Equal(a, b)), nil
	case OpNe:
		return types.NewBool(!types.Equal(a, b)), nil
	case OpAdd:
		ka, kb := types.KindOf(a), types.KindOf(b)
		if ka == types.KindStr && kb == types.KindStr {
			return types.NewStr(a.Str() + b.Str()), nil
		}
		if ka == types.KindList && kb == types.KindList {
			values := append([]types.Value{}, a.List()...)
			return types.NewList(append(values, b.List()...)...), nil
		}
	case OpLt, OpLe, OpGt, OpGe:
		if types.KindOf(a) == types.KindStr && types.KindOf(b) == types.KindStr {
			return types.NewBool(compare(code, cmpStr(a.Str(), b.Str()))), nil
		}
	}

	x, err := types.AsNumber(a)
	if err != nil {
		return nil, errwrap.Wrapf(err, "left operand of %s", code)
	}
	y, err := types.AsNumber(b)
	if err != nil {
		return nil, errwrap.Wrapf(err, "right operand of %s", code)
	}

	switch code {
	case OpAdd:
		return types.NewNumber(x + y), nil
	case OpSub:
		return types.NewNumber(x - y), nil
	case OpMul:
		return types.NewNumber(x * y), nil
	case OpDiv:
		if y == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return types.NewNumber(x / y), nil
	case OpMod:
		if y == 0 {
			return nil, fmt.Errorf("modulo by zero")
		}
		return types.NewNumber(math.Mod(x, y)), nil
	case OpLt, OpLe, OpGt, OpGe:
		c := 0
		if x < y {
			c = -1
		} else if x > y {
			c = 1
		}
		return types.NewBool(compare(code, c)), nil
	}
	return nil, fmt.Errorf("not a binary opcode: %s", code)
}

func cmpStr(a, b string) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func compare(code Opcode, c int) bool {
	switch code {
	case OpLt:
		return c < 0
	case OpLe:
		return c <= 0
	case OpGt:
		return c > 0
	case OpGe:
		return c >= 0
	}
	return false
}

// Index returns the element of a list at a numeric index, or the entry of a
// dictionary at a name or string key.
func Index(container, index types.Value) (types.Value, error) {
	switch types.KindOf(container) {
	case types.KindList:
		i, err := types.AsInt(index)
		if err != nil {
			return nil, errwrap.Wrapf(err, "array index")
		}
		l := container.List()
		if i < 0 || i >= len(l) {
			return nil, fmt.Errorf("array index %d out of range [0, %d)", i, len(l))
		}
		return l[i], nil

	case types.KindDict:
		key, err := dictKey(index)
		if err != nil {
			return nil, err
		}
		v, exists := container.Dict()[key]
		if !exists {
			return nil, fmt.Errorf("dictionary has no key @%s", key)
		}
		return v, nil
	}
	return nil, fmt.Errorf("can't index into a value of kind %s", types.KindOf(container))
}

type stack struct {
	values []types.Value
}

func (obj *stack) len() int { return len(obj.values) }

func (obj *stack) push(v types.Value) {
	obj.values = append(obj.values, v)
}

func (obj *stack) peek() (types.Value, error) {
	if len(obj.values) == 0 {
		return nil, fmt.Errorf("stack underflow")
	}
	return obj.values[len(obj.values)-1], nil
}

func (obj *stack) pop() (types.Value, error) {
	v, err := obj.peek()
	if err != nil {
		return nil, err
	}
	obj.values = obj.values[:len(obj.values)-1]
	return v, nil
}

// popN pops n values and returns them in the order they were pushed.
func (obj *stack) popN(n int) ([]types.Value, error) {
	if n > len(obj.values) {
		return nil, fmt.Errorf("stack underflow: need %d, have %d", n, len(obj.values))
	}
	l := len(obj.values) - n
	values := append([]types.Value{}, obj.values[l:]...)
	obj.values = obj.values[:l]
	return values, nil
}

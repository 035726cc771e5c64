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

//go:build !root

package vm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/purpleidea/propsheet/lang/types"
)

func num(f float64) Op { return Push(types.NewNumber(f)) }
func str(s string) Op { return Push(types.NewStr(s)) }
func name(s string) Op { return Push(types.NewName(s)) }
func boolean(b bool) Op { return Push(types.NewBool(b)) }
func jump(c Opcode, to int) Op { return Op{Code: c, Arg: to} }

func TestEvaluate1(t *testing.T) {
	type test struct {
		name string
		prog *Program
		exp  types.Value
		fail bool
	}
	testCases := []test{}

	testCases = append(testCases, test{
		name: "literal",
		prog: NewProgram(num(42)),
		exp:  types.NewNumber(42),
	})
	testCases = append(testCases, test{
		name: "arithmetic",
		// (1 + 2) * 4 - 6 / 3 % 2
		prog: NewProgram(num(1), num(2), Code(OpAdd), num(4), Code(OpMul), num(6), num(3), Code(OpDiv), num(2), Code(OpMod), Code(OpSub)),
		exp:  types.NewNumber(12),
	})
	testCases = append(testCases, test{
		name: "negate",
		prog: NewProgram(num(5), Code(OpNeg)),
		exp:  types.NewNumber(-5),
	})
	testCases = append(testCases, test{
		name: "string concat",
		prog: NewProgram(str("a"), str("b"), Code(OpAdd)),
		exp:  types.NewStr("ab"),
	})
	testCases = append(testCases, test{
		name: "list concat",
		prog: NewProgram(num(1), Op{Code: OpArray, Arg: 1}, num(2), Op{Code: OpArray, Arg: 1}, Code(OpAdd)),
		exp:  types.NewList(types.NewNumber(1), types.NewNumber(2)),
	})
	testCases = append(testCases, test{
		name: "string compare",
		prog: NewProgram(str("abc"), str("abd"), Code(OpLt)),
		exp:  types.NewBool(true),
	})
	testCases = append(testCases, test{
		name: "number compare",
		prog: NewProgram(num(3), num(3), Code(OpGe)),
		exp:  types.NewBool(true),
	})
	testCases = append(testCases, test{
		name: "cross kind equality",
		prog: NewProgram(num(3), str("3"), Code(OpEq)),
		exp:  types.NewBool(false),
	})
	testCases = append(testCases, test{
		name: "cross kind inequality",
		prog: NewProgram(Push(types.NewEmpty()), boolean(false), Code(OpNe)),
		exp:  types.NewBool(true),
	})
	testCases = append(testCases, test{
		name: "cross kind ordering",
		prog: NewProgram(num(3), str("3"), Code(OpLt)),
		fail: true,
	})
	testCases = append(testCases, test{
		name: "not",
		prog: NewProgram(boolean(false), Code(OpNot)),
		exp:  types.NewBool(true),
	})
	testCases = append(testCases, test{
		name: "not a bool",
		prog: NewProgram(num(0), Code(OpNot)),
		fail: true,
	})
	testCases = append(testCases, test{
		name: "division by zero",
		prog: NewProgram(num(1), num(0), Code(OpDiv)),
		fail: true,
	})
	testCases = append(testCases, test{
		name: "modulo by zero",
		prog: NewProgram(num(1), num(0), Code(OpMod)),
		fail: true,
	})
	testCases = append(testCases, test{
		name: "ternary true",
		// true ? 1 : 2
		prog: NewProgram(boolean(true), jump(OpJumpIfFalse, 4), num(1), jump(OpJump, 5), num(2)),
		exp:  types.NewNumber(1),
	})
	testCases = append(testCases, test{
		name: "ternary false",
		prog: NewProgram(boolean(false), jump(OpJumpIfFalse, 4), num(1), jump(OpJump, 5), num(2)),
		exp:  types.NewNumber(2),
	})
	testCases = append(testCases, test{
		name: "ternary non bool",
		prog: NewProgram(num(1), jump(OpJumpIfFalse, 4), num(1), jump(OpJump, 5), num(2)),
		fail: true,
	})
	testCases = append(testCases, test{
		name: "array literal",
		prog: NewProgram(num(1), str("x"), boolean(true), Op{Code: OpArray, Arg: 3}),
		exp:  types.NewList(types.NewNumber(1), types.NewStr("x"), types.NewBool(true)),
	})
	testCases = append(testCases, test{
		name: "empty array literal",
		prog: NewProgram(Op{Code: OpArray, Arg: 0}),
		exp:  types.NewList(),
	})
	testCases = append(testCases, test{
		name: "dictionary index",
		// {a: 1, b: 2}[@b]
		prog: NewProgram(name("a"), num(1), name("b"), num(2), Op{Code: OpDict, Arg: 2}, name("b"), Code(OpIndex)),
		exp:  types.NewNumber(2),
	})
	testCases = append(testCases, test{
		name: "dictionary duplicate key",
		prog: NewProgram(name("a"), num(1), name("a"), num(2), Op{Code: OpDict, Arg: 2}),
		fail: true,
	})
	testCases = append(testCases, test{
		name: "dictionary bad key",
		prog: NewProgram(num(1), num(1), Op{Code: OpDict, Arg: 1}),
		fail: true,
	})
	testCases = append(testCases, test{
		name: "dictionary missing key",
		prog: NewProgram(name("a"), num(1), Op{Code: OpDict, Arg: 1}, name("z"), Code(OpIndex)),
		fail: true,
	})
	testCases = append(testCases, test{
		name: "array index",
		prog: NewProgram(num(10), num(20), Op{Code: OpArray, Arg: 2}, num(1), Code(OpIndex)),
		exp:  types.NewNumber(20),
	})
	testCases = append(testCases, test{
		name: "array index out of range",
		prog: NewProgram(num(10), Op{Code: OpArray, Arg: 1}, num(1), Code(OpIndex)),
		fail: true,
	})
	testCases = append(testCases, test{
		name: "array index fractional",
		prog: NewProgram(num(10), Op{Code: OpArray, Arg: 1}, num(0.5), Code(OpIndex)),
		fail: true,
	})
	testCases = append(testCases, test{
		name: "index a number",
		prog: NewProgram(num(10), num(0), Code(OpIndex)),
		fail: true,
	})
	testCases = append(testCases, test{
		name: "stack underflow",
		prog: NewProgram(num(1), Code(OpAdd)),
		fail: true,
	})
	testCases = append(testCases, test{
		name: "leftover values",
		prog: NewProgram(num(1), num(2)),
		fail: true,
	})
	testCases = append(testCases, test{
		name: "empty program",
		prog: NewProgram(),
		fail: true,
	})
	testCases = append(testCases, test{
		name: "bad jump",
		prog: NewProgram(boolean(true), jump(OpJump, 0)),
		fail: true,
	})

	for index, tc := range testCases {
		t.Run(fmt.Sprintf("test #%d (%s)", index, tc.name), func(t *testing.T) {
			m := &Machine{}
			v, err := m.Evaluate(tc.prog)
			if tc.fail {
				if err == nil {
					t.Errorf("expected failure, got: %s", v)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %+v", err)
				t.Logf("program:\n%s", tc.prog)
				return
			}
			if !types.Equal(v, tc.exp) {
				t.Errorf("expected: %s, got: %s", tc.exp, v)
			}
		})
	}
}

// TestShortCircuit1 checks that the right hand side of and/or is skipped when
// the left hand side decides the result.
func TestShortCircuit1(t *testing.T) {
	reads := []string{}
	m := &Machine{
		VariableLookup: func(name string) (types.Value, error) {
			reads = append(reads, name)
			switch name {
			case "yes":
				return types.NewBool(true), nil
			case "no":
				return types.NewBool(false), nil
			}
			return nil, &UnboundVariableError{Name: name}
		},
	}

	testCases := []struct {
		prog  *Program
		exp   bool
		reads []string
	}{
		// no && boom
		{NewProgram(Var("no"), jump(OpAnd, 3), Var("boom")), false, []string{"no"}},
		// yes || boom
		{NewProgram(Var("yes"), jump(OpOr, 3), Var("boom")), true, []string{"yes"}},
		// yes && no
		{NewProgram(Var("yes"), jump(OpAnd, 3), Var("no")), false, []string{"yes", "no"}},
		// no || yes
		{NewProgram(Var("no"), jump(OpOr, 3), Var("yes")), true, []string{"no", "yes"}},
	}
	for index, tc := range testCases {
		reads = []string{}
		v, err := m.Evaluate(tc.prog)
		if err != nil {
			t.Errorf("test #%d: unexpected error: %+v", index, err)
			continue
		}
		if v.Bool() != tc.exp {
			t.Errorf("test #%d: expected %t, got %s", index, tc.exp, v)
		}
		if fmt.Sprintf("%v", reads) != fmt.Sprintf("%v", tc.reads) {
			t.Errorf("test #%d: expected reads %v, got %v", index, tc.reads, reads)
		}
	}

	// the and operator requires a bool
	if _, err := m.Evaluate(NewProgram(num(1), jump(OpAnd, 3), Var("yes"))); err == nil {
		t.Errorf("expected a type error")
	}
}

func TestLookup1(t *testing.T) {
	m := &Machine{}
	_, err := m.Evaluate(NewProgram(Var("foo")))
	if !errors.Is(err, ErrUnboundVariable) {
		t.Errorf("expected an unbound variable error, got: %+v", err)
	}
	var unbound *UnboundVariableError
	if !errors.As(err, &unbound) || unbound.Name != "foo" {
		t.Errorf("expected the name foo, got: %+v", err)
	}

	_, err = m.Evaluate(NewProgram(num(1), Op{Code: OpCallArray, Name: "max", Arg: 1}))
	if !errors.Is(err, ErrFunctionNotFound) {
		t.Errorf("expected a function not found error, got: %+v", err)
	}
	_, err = m.Evaluate(NewProgram(Op{Code: OpDict, Arg: 0}, Op{Code: OpCallDict, Name: "image"}))
	if !errors.Is(err, ErrFunctionNotFound) {
		t.Errorf("expected a function not found error, got: %+v", err)
	}
}

func TestCall1(t *testing.T) {
	m := &Machine{
		ArrayFuncLookup: func(name string, args []types.Value) (types.Value, error) {
			if name != "sum" {
				return nil, &FunctionNotFoundError{Name: name}
			}
			total := 0.0
			for _, x := range args {
				f, err := types.AsNumber(x)
				if err != nil {
					return nil, err
				}
				total += f
			}
			return types.NewNumber(total), nil
		},
		DictFuncLookup: func(name string, args map[string]types.Value) (types.Value, error) {
			if name != "image" {
				return nil, &FunctionNotFoundError{Name: name}
			}
			return types.NewStr("image:" + args["name"].Str()), nil
		},
	}

	v, err := m.Evaluate(NewProgram(num(1), num(2), num(3), Op{Code: OpCallArray, Name: "sum", Arg: 3}))
	if err != nil || !types.Equal(v, types.NewNumber(6)) {
		t.Errorf("unexpected result: %v, %+v", v, err)
	}

	v, err = m.Evaluate(NewProgram(name("name"), str("ok.png"), Op{Code: OpDict, Arg: 1}, Op{Code: OpCallDict, Name: "image"}))
	if err != nil || !types.Equal(v, types.NewStr("image:ok.png")) {
		t.Errorf("unexpected result: %v, %+v", v, err)
	}

	_, err = m.Evaluate(NewProgram(Op{Code: OpCallArray, Name: "nope"}))
	if !errors.Is(err, ErrFunctionNotFound) {
		t.Errorf("expected a function not found error through the wrapper, got: %+v", err)
	}

	_, err = m.Evaluate(NewProgram(str("x"), Op{Code: OpCallArray, Name: "sum", Arg: 1}))
	if !errors.Is(err, types.ErrTypeMismatch) {
		t.Errorf("expected a type mismatch from the function, got: %+v", err)
	}
}

func TestRefs1(t *testing.T) {
	prog := NewProgram(Var("width"), Var("scale"), Code(OpMul), Var("width"), Code(OpAdd))
	refs := prog.Refs()
	if fmt.Sprintf("%v", refs) != "[scale width]" {
		t.Errorf("unexpected refs: %v", refs)
	}
	var nilProg *Program
	if l := len(nilProg.Refs()); l != 0 {
		t.Errorf("expected no refs for a nil program")
	}
}

func TestDisassemble1(t *testing.T) {
	prog := NewProgram(Var("a"), jump(OpAnd, 3), boolean(true), Op{Code: OpCallArray, Name: "f", Arg: 1})
	exp := "0000 var a\n0001 and 3\n0002 push true\n0003 call_array f 1"
	if s := prog.String(); s != exp {
		t.Errorf("unexpected disassembly:\n%s", s)
	}
	if err := prog.Cmp(NewProgram(prog.Ops...)); err != nil {
		t.Errorf("expected identical programs: %+v", err)
	}
	if err := prog.Cmp(NewProgram(Var("a"))); err == nil {
		t.Errorf("expected programs to differ")
	}
}

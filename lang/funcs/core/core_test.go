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

package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/purpleidea/propsheet/lang/funcs"
	"github.com/purpleidea/propsheet/lang/types"
	"github.com/purpleidea/propsheet/lang/vm"
)

func v(i interface{}) types.Value { return types.MustValueOfGolang(i) }

func TestArrayFuncs1(t *testing.T) {
	testCases := []struct {
		fn   string
		args []types.Value
		exp  types.Value
		fail bool
	}{
		{"min", []types.Value{v(3), v(1), v(2)}, v(1), false},
		{"min", []types.Value{}, nil, true},
		{"min", []types.Value{v("a")}, nil, true},
		{"max", []types.Value{v(3), v(-1), v(7.5)}, v(7.5), false},
		{"round", []types.Value{v(2.5)}, v(3), false},
		{"round", []types.Value{v(-2.5)}, v(-3), false},
		{"round", []types.Value{v(1), v(2)}, nil, true},
		{"abs", []types.Value{v(-4)}, v(4), false},
		{"size", []types.Value{v([]int{1, 2, 3})}, v(3), false},
		{"size", []types.Value{v(map[string]int{"a": 1})}, v(1), false},
		{"size", []types.Value{v("héllo")}, v(5), false},
		{"size", []types.Value{v(true)}, nil, true},
		{"typeof", []types.Value{v(1)}, types.NewName("number"), false},
		{"typeof", []types.Value{types.NewEmpty()}, types.NewName("empty"), false},
		{"typeof", []types.Value{v([]int{})}, types.NewName("array"), false},
		{"append", []types.Value{v([]int{1}), v(2), v("x")}, v([]interface{}{1, 2, "x"}), false},
		{"append", []types.Value{v(1)}, nil, true},
		{"has_key", []types.Value{v(map[string]int{"a": 1}), types.NewName("a")}, v(true), false},
		{"has_key", []types.Value{v(map[string]int{"a": 1}), types.NewName("b")}, v(false), false},
		{"has_key", []types.Value{v(map[string]int{"a": 1}), v("a")}, nil, true},
		{"join", []types.Value{v([]string{"a", "b"}), v(", ")}, v("a, b"), false},
		{"join", []types.Value{v([]interface{}{"a", 1}), v(",")}, nil, true},
		{"format", []types.Value{v(42)}, v("42"), false},
		{"format", []types.Value{v(3.14159), v(2)}, v("3.14"), false},
		{"format", []types.Value{v("nope")}, v(FormatError), false},
		{"format", []types.Value{v(1), v(-1)}, v(FormatError), false},
		{"format", []types.Value{}, nil, true},
	}

	registry := funcs.Core()
	for index, tc := range testCases {
		t.Run(fmt.Sprintf("test #%d (%s)", index, tc.fn), func(t *testing.T) {
			out, err := registry.CallArray(tc.fn, tc.args)
			if tc.fail {
				if err == nil {
					t.Errorf("expected failure, got: %s", out)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %+v", err)
				return
			}
			if !types.Equal(out, tc.exp) {
				t.Errorf("expected: %s, got: %s", tc.exp, out)
			}
		})
	}
}

func TestClamp1(t *testing.T) {
	registry := funcs.Core()
	call := func(args map[string]interface{}) (types.Value, error) {
		d := v(args)
		return registry.CallDict("clamp", d.Dict())
	}

	out, err := call(map[string]interface{}{"value": 150, "min": 0, "max": 100})
	if err != nil || !types.Equal(out, v(100)) {
		t.Errorf("unexpected result: %v, %+v", out, err)
	}
	out, err = call(map[string]interface{}{"value": -5, "min": 0})
	if err != nil || !types.Equal(out, v(0)) {
		t.Errorf("unexpected result: %v, %+v", out, err)
	}
	if _, err := call(map[string]interface{}{"min": 0}); err == nil {
		t.Errorf("expected an error without a value")
	}
	if _, err := call(map[string]interface{}{"value": 1, "lo": 0}); err == nil {
		t.Errorf("expected an error for an unknown argument")
	}
}

func TestRegistry1(t *testing.T) {
	registry := funcs.Core()
	if _, err := registry.CallArray("nope", nil); !errors.Is(err, vm.ErrFunctionNotFound) {
		t.Errorf("expected a function not found error, got: %+v", err)
	}
	if _, err := registry.CallDict("min", nil); !errors.Is(err, vm.ErrFunctionNotFound) {
		t.Errorf("array funcs must not be visible as dict funcs, got: %+v", err)
	}

	local := registry.Copy()
	local.InsertArrayFunction("answer", func([]types.Value) (types.Value, error) {
		return types.NewNumber(42), nil
	})
	if _, err := registry.CallArray("answer", nil); err == nil {
		t.Errorf("the copy must not leak into the original")
	}

	m := &vm.Machine{}
	local.Bind(m)
	out, err := m.Evaluate(vm.NewProgram(vm.Op{Code: vm.OpCallArray, Name: "answer"}))
	if err != nil || !types.Equal(out, v(42)) {
		t.Errorf("unexpected result: %v, %+v", out, err)
	}

	names := local.Names()
	found := false
	for _, name := range names {
		if name == "answer" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected answer in: %v", names)
	}
}

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

package sheet

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/purpleidea/propsheet/lang/ast"
	"github.com/purpleidea/propsheet/lang/parser"
	"github.com/purpleidea/propsheet/lang/types"
	"github.com/purpleidea/propsheet/lang/vm"
	"github.com/purpleidea/propsheet/util/errwrap"

	"github.com/kylelemons/godebug/pretty"
)

func build(t *testing.T, src string) *Sheet {
	def, err := parser.ParseSheet(src)
	if err != nil {
		t.Fatalf("parse failed: %+v", err)
	}
	s, err := New(def, &Options{
		Debug: testing.Verbose(),
		Logf: func(format string, v ...interface{}) {
			t.Logf("sheet: "+format, v...)
		},
	})
	if err != nil {
		t.Fatalf("assembly failed: %+v", err)
	}
	return s
}

func mustGet(t *testing.T, s *Sheet, name string) types.Value {
	v, err := s.Get(name)
	if err != nil {
		t.Fatalf("get %s failed: %+v", name, err)
	}
	return v
}

func expectValue(t *testing.T, s *Sheet, name string, expected types.Value) {
	t.Helper()
	if v := mustGet(t, s, name); !types.Equal(v, expected) {
		t.Errorf("cell %s is %s, expected %s", name, v, expected)
	}
}

func expectContributing(t *testing.T, s *Sheet, name string, expected []string) {
	t.Helper()
	out, err := s.Contributing(name)
	if err != nil {
		t.Errorf("contributing of %s failed: %+v", name, err)
		return
	}
	if diff := pretty.Compare(out, expected); diff != "" {
		t.Errorf("contributing of %s differs: (-got +want)\n%s", name, diff)
	}
}

const example = `
sheet example {
input:
	width_pixels : 100;
	scale : 2;
output:
	scaled <== width_pixels * scale;
}
`

func TestExample1(t *testing.T) {
	s := build(t, example)
	if st, _ := s.State("scaled"); st != StateUnevaluated {
		t.Errorf("expected unevaluated, got: %s", st)
	}
	if err := s.Update(); err != nil {
		t.Errorf("update failed: %+v", err)
		return
	}
	expectValue(t, s, "scaled", types.NewNumber(200))

	if err := s.Set("width_pixels", types.NewNumber(150)); err != nil {
		t.Errorf("set failed: %+v", err)
		return
	}
	if st, _ := s.State("scaled"); st != StateInvalid {
		t.Errorf("expected invalid, got: %s", st)
	}
	expectValue(t, s, "scaled", types.NewNumber(200)) // not recomputed yet

	if err := s.Update(); err != nil {
		t.Errorf("update failed: %+v", err)
		return
	}
	expectValue(t, s, "scaled", types.NewNumber(300))
	expectContributing(t, s, "scaled", []string{"scale", "width_pixels"})
	expectContributing(t, s, "scale", []string{})

	if names := s.Cells(); !reflect.DeepEqual(names, []string{"width_pixels", "scale", "scaled"}) {
		t.Errorf("unexpected cells: %v", names)
	}
	if k, _ := s.Kind("scaled"); k != ast.KindOutput {
		t.Errorf("unexpected kind: %s", k)
	}
	if !s.Has("scale") || s.Has("foo") {
		t.Errorf("has is wrong")
	}
	if s.Definition() == nil || s.Name() != "example" {
		t.Errorf("wrong definition")
	}
}

func TestUndeclared1(t *testing.T) {
	def, err := parser.ParseSheet("sheet bad {\ninput:\n\ta : 1;\noutput:\n\tb <== a + foo;\n}")
	if err != nil {
		t.Errorf("parse failed: %+v", err)
		return
	}
	s, err := New(def, nil)
	if err == nil || s != nil {
		t.Errorf("expected a static error and no sheet")
		return
	}
	var staticErr *StaticError
	if !errors.As(err, &staticErr) {
		t.Errorf("wrong error type: %T", err)
		return
	}
	if staticErr.Cell != "b" || staticErr.Line != 5 {
		t.Errorf("wrong location: %s", staticErr)
	}
}

func TestStaticErrors1(t *testing.T) {
	type test struct { // an individual test
		name  string
		src   string
		count int  // number of static errors
		cycle bool // expect a cycle error
	}
	testCases := []test{
		{"duplicate", "sheet s {\ninput:\n\ta;\n\ta;\n}", 1, false},
		{"define on input", "sheet s {\ninput:\n\ta <== 1;\n}", 1, false},
		{"define on constant", "sheet s {\nconstant:\n\ta : 1 <== 2;\n}", 1, false},
		{"constant without value", "sheet s {\nconstant:\n\ta;\n}", 1, false},
		{"output without definition", "sheet s {\noutput:\n\ta;\n}", 1, false},
		{"output initializer", "sheet s {\noutput:\n\ta : 1 <== 2;\n}", 1, false},
		{"relate on input", "sheet s {\ninput:\n\ta;\nlogic:\n\trelate { a <== 1; }\n}", 1, false},
		{"relate on undeclared", "sheet s {\nlogic:\n\trelate { a <== 1; }\n}", 1, false},
		{"two unguarded", "sheet s {\noutput:\n\ta <== 1;\n\trelate { a <== 2; }\n}", 1, false},
		{"initializer ahead", "sheet s {\ninput:\n\ta : b;\n\tb : 1;\n}", 1, false},
		{"initializer on output", "sheet s {\noutput:\n\to <== 1;\ninput:\n\ta : o;\n}", 1, false},
		{"failing initializer", "sheet s {\ninput:\n\ta : 1 / 0;\n}", 1, false},
		{"many", "sheet s {\ninput:\n\ta : x;\noutput:\n\tb <== y;\n\tc;\n}", 3, false},
		{"self cycle", "sheet s {\nlogic:\n\ta <== a;\n}", 1, true},
		{"cycle", "sheet s {\nlogic:\n\ta <== b;\n\tb <== c;\n\tc <== a;\n\td <== a;\n}", 1, true},
		{"guard cycle", "sheet s {\nlogic:\n\ta <== 1;\n\twhen (a) relate { a <== 2; }\n}", 1, true},
	}

	for index, tc := range testCases { // run all the tests
		name, src, count, cycle := tc.name, tc.src, tc.count, tc.cycle
		t.Run(fmt.Sprintf("test #%d (%s)", index, name), func(t *testing.T) {
			def, err := parser.ParseSheet(src)
			if err != nil {
				t.Errorf("test #%d: parse failed: %+v", index, err)
				return
			}
			s, err := New(def, nil)
			if err == nil || s != nil {
				t.Errorf("test #%d: expected failure", index)
				return
			}
			errs := errwrap.Errors(err)
			if len(errs) != count {
				t.Errorf("test #%d: expected %d errors, got %d: %v", index, count, len(errs), err)
			}
			for _, e := range errs {
				var staticErr *StaticError
				if !errors.As(e, &staticErr) {
					t.Errorf("test #%d: wrong error type %T: %v", index, e, e)
				}
			}
			var cycleErr *CycleError
			if found := errors.As(err, &cycleErr); found != cycle {
				t.Errorf("test #%d: cycle error expected: %t, got: %v", index, cycle, err)
			}
		})
	}
}

func TestStaticCyclePath1(t *testing.T) {
	def, _ := parser.ParseSheet("sheet s {\nlogic:\n\ta <== b;\n\tb <== c;\n\tc <== a;\n\td <== a;\n}")
	_, err := New(def, nil)
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Errorf("expected cycle error, got: %v", err)
		return
	}
	// d depends on the cycle but isn't in it
	if diff := pretty.Compare(cycleErr.Cells, []string{"a", "b", "c", "a"}); diff != "" {
		t.Errorf("cycle differs: (-got +want)\n%s", diff)
	}
}

func TestStaticCyclePath2(t *testing.T) {
	testCases := []struct {
		name     string
		src      string
		expected []string
	}{
		{"shortest", "sheet s {\nlogic:\n\ta <== b;\n\tb <== c + a;\n\tc <== a;\n}", []string{"a", "b", "a"}},
		{"self", "sheet s {\nlogic:\n\ta <== a;\n}", []string{"a", "a"}},
		{"downstream", "sheet s {\nlogic:\n\ta <== 1;\n\tb <== a + c;\n\tc <== b;\n}", []string{"b", "c", "b"}},
	}
	for index, tc := range testCases {
		t.Run(fmt.Sprintf("test #%d (%s)", index, tc.name), func(t *testing.T) {
			def, err := parser.ParseSheet(tc.src)
			if err != nil {
				t.Errorf("test #%d: parse failed: %+v", index, err)
				return
			}
			_, err = New(def, nil)
			var cycleErr *CycleError
			if !errors.As(err, &cycleErr) {
				t.Errorf("test #%d: expected cycle error, got: %v", index, err)
				return
			}
			if diff := pretty.Compare(cycleErr.Cells, tc.expected); diff != "" {
				t.Errorf("test #%d: cycle differs: (-got +want)\n%s", index, diff)
			}
		})
	}
}

func TestSetErrors1(t *testing.T) {
	s := build(t, example)
	if err := s.Set("scaled", types.NewNumber(1)); !errors.Is(err, ErrNotInput) {
		t.Errorf("expected not input error, got: %v", err)
	}
	if err := s.Set("nope", types.NewNumber(1)); !errors.Is(err, ErrUnknownCell) {
		t.Errorf("expected unknown cell error, got: %v", err)
	}
	if _, err := s.Get("nope"); !errors.Is(err, ErrUnknownCell) {
		t.Errorf("expected unknown cell error, got: %v", err)
	}
	if _, err := s.Contributing("nope"); err == nil {
		t.Errorf("expected unknown cell error")
	}
	if err := s.Set("scale", nil); err != nil { // nil is empty
		t.Errorf("set failed: %+v", err)
	}
	expectValue(t, s, "scale", types.NewEmpty())
}

const guards = `
sheet guards {
input:
	p : true;
	q : true;
output:
	r <== @fallback;
	when (p) relate {
		r <== @first;
	}
	when (q) relate {
		r <== @second;
	}
}
`

func TestGuardPrecedence1(t *testing.T) {
	s := build(t, guards)
	if err := s.Update(); err != nil {
		t.Errorf("update failed: %+v", err)
		return
	}
	expectValue(t, s, "r", types.NewName("first"))
	expectContributing(t, s, "r", []string{"p"})

	s.Set("p", types.NewBool(false))
	if err := s.Update(); err != nil {
		t.Errorf("update failed: %+v", err)
		return
	}
	expectValue(t, s, "r", types.NewName("second"))
	expectContributing(t, s, "r", []string{"p", "q"})

	s.Set("q", types.NewBool(false))
	if err := s.Update(); err != nil {
		t.Errorf("update failed: %+v", err)
		return
	}
	expectValue(t, s, "r", types.NewName("fallback"))

	s.Set("p", types.NewNumber(1)) // not a boolean
	if err := s.Update(); !errors.Is(err, types.ErrTypeMismatch) {
		t.Errorf("expected type mismatch, got: %v", err)
	}
	expectValue(t, s, "r", types.NewName("fallback"))
}

func TestUnguardedRelate1(t *testing.T) {
	s := build(t, `
sheet u {
input:
	p : false;
	q : true;
output:
	r;
	when (p) relate { r <== 1; }
	relate { r <== 2; }
	when (q) relate { r <== 3; }
}
`)
	if err := s.Update(); err != nil {
		t.Errorf("update failed: %+v", err)
		return
	}
	expectValue(t, s, "r", types.NewNumber(2))
	expectContributing(t, s, "r", []string{"p"}) // q is never read

	s.Set("p", types.NewBool(true))
	s.Update()
	expectValue(t, s, "r", types.NewNumber(1))
}

func TestNoDefinition1(t *testing.T) {
	s := build(t, "sheet n {\ninput:\n\tp : false;\noutput:\n\tr;\n\twhen (p) relate { r <== 1; }\n}")
	if err := s.Update(); !errors.Is(err, ErrNoDefinition) {
		t.Errorf("expected no definition error, got: %v", err)
	}
	if st, _ := s.State("r"); st != StateUnevaluated {
		t.Errorf("failed update left state: %s", st)
	}
	s.Set("p", types.NewBool(true))
	if err := s.Update(); err != nil {
		t.Errorf("update failed: %+v", err)
	}
	expectValue(t, s, "r", types.NewNumber(1))
}

func TestHeldInterface1(t *testing.T) {
	s := build(t, "sheet h {\ninput:\n\tflag : false;\n\tx : 7;\ninterface:\n\ti : 5;\noutput:\n\to <== i;\n\twhen (flag) relate { i <== x; }\n}")
	if err := s.Update(); err != nil {
		t.Errorf("update failed: %+v", err)
		return
	}
	expectValue(t, s, "i", types.NewNumber(5))
	expectValue(t, s, "o", types.NewNumber(5))
	expectContributing(t, s, "i", []string{})
	expectContributing(t, s, "o", []string{"i"})

	s.Set("flag", types.NewBool(true))
	if err := s.Update(); err != nil {
		t.Errorf("update failed: %+v", err)
		return
	}
	expectValue(t, s, "i", types.NewNumber(7))
	expectValue(t, s, "o", types.NewNumber(7))
	expectContributing(t, s, "i", []string{"flag", "x"})

	// the last value is held once the guard turns off again
	s.Set("flag", types.NewBool(false))
	s.Set("x", types.NewNumber(9))
	if err := s.Update(); err != nil {
		t.Errorf("update failed: %+v", err)
		return
	}
	expectValue(t, s, "i", types.NewNumber(7))
	expectValue(t, s, "o", types.NewNumber(7))
	expectContributing(t, s, "i", []string{})
}

func TestIdempotent1(t *testing.T) {
	s := build(t, guards)
	calls := 0
	if _, err := s.Monitor("r", func(types.Value) { calls++ }); err != nil {
		t.Errorf("monitor failed: %+v", err)
		return
	}
	if err := s.Update(); err != nil {
		t.Errorf("update failed: %+v", err)
		return
	}
	before := map[string]string{}
	for _, name := range s.Cells() {
		c, _ := s.Contributing(name)
		before[name] = fmt.Sprintf("%s %v", mustGet(t, s, name), c)
	}
	for i := 0; i < 3; i++ {
		if err := s.Update(); err != nil {
			t.Errorf("update failed: %+v", err)
			return
		}
	}
	after := map[string]string{}
	for _, name := range s.Cells() {
		c, _ := s.Contributing(name)
		after[name] = fmt.Sprintf("%s %v", mustGet(t, s, name), c)
	}
	if diff := pretty.Compare(after, before); diff != "" {
		t.Errorf("repeated updates changed the sheet: (-got +want)\n%s", diff)
	}
	if calls != 1 {
		t.Errorf("monitor should fire once, fired %d times", calls)
	}
}

func TestUndefinedCellsStable1(t *testing.T) {
	s := build(t, `
sheet c {
constant:
	k : 7;
input:
	i : k * 2;
	j;
interface:
	f : i + 1;
output:
	o <== i + k;
}
`)
	for n := 0; n < 2; n++ {
		if err := s.Update(); err != nil {
			t.Errorf("update failed: %+v", err)
			return
		}
		expectValue(t, s, "k", types.NewNumber(7))
		expectValue(t, s, "i", types.NewNumber(14))
		expectValue(t, s, "j", types.NewEmpty())
		expectValue(t, s, "f", types.NewNumber(15))
		expectValue(t, s, "o", types.NewNumber(21))
	}
}

const cyclic = `
sheet cyclic {
input:
	x : false;
logic:
	a <== 1;
	b <== a;
	when (x) relate {
		a <== b + 1;
	}
}
`

func TestDynamicCycle1(t *testing.T) {
	s := build(t, cyclic)
	if err := s.Update(); err != nil {
		t.Errorf("update failed: %+v", err)
		return
	}
	expectValue(t, s, "b", types.NewNumber(1))

	s.Set("x", types.NewBool(true))
	err := s.Update()
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Errorf("expected a cycle error, got: %v", err)
		return
	}
	if diff := pretty.Compare(cycleErr.Cells, []string{"a", "b", "a"}); diff != "" {
		t.Errorf("cycle differs: (-got +want)\n%s", diff)
	}
	// the previous state is retained, and nothing is falsely valid
	expectValue(t, s, "a", types.NewNumber(1))
	expectValue(t, s, "b", types.NewNumber(1))
	for _, name := range []string{"a", "b"} {
		if st, _ := s.State(name); st != StateInvalid {
			t.Errorf("cell %s should still be invalid, is: %s", name, st)
		}
	}
	expectValue(t, s, "x", types.NewBool(true))

	// the sheet stays usable
	s.Set("x", types.NewBool(false))
	if err := s.Update(); err != nil {
		t.Errorf("update failed: %+v", err)
	}
	expectValue(t, s, "a", types.NewNumber(1))
}

func TestRollback1(t *testing.T) {
	s := build(t, `
sheet r {
input:
	n : 1;
	d : 1;
output:
	twice <== n * 2;
	ratio <== n / d;
}
`)
	if err := s.Update(); err != nil {
		t.Errorf("update failed: %+v", err)
		return
	}
	calls := 0
	s.Monitor("twice", func(types.Value) { calls++ })
	s.Set("n", types.NewNumber(4))
	s.Set("d", types.NewNumber(0))
	if err := s.Update(); err == nil {
		t.Errorf("expected division by zero")
		return
	}
	expectValue(t, s, "twice", types.NewNumber(2)) // computed, then rolled back
	if st, _ := s.State("twice"); st != StateInvalid {
		t.Errorf("twice should be invalid, is: %s", st)
	}
	if calls != 0 {
		t.Errorf("monitors ran for a failed update")
	}

	s.Set("d", types.NewNumber(2))
	if err := s.Update(); err != nil {
		t.Errorf("update failed: %+v", err)
	}
	expectValue(t, s, "twice", types.NewNumber(8))
	expectValue(t, s, "ratio", types.NewNumber(2))
	if calls != 1 {
		t.Errorf("monitor should fire once, fired %d times", calls)
	}
}

const monitored = `
sheet monitored {
input:
	a : 1;
	b : 10;
logic:
	sum <== a + b;
output:
	double <== sum * 2;
	other <== b;
}
`

func TestMonitor1(t *testing.T) {
	s := build(t, monitored)
	events := []string{}
	for _, name := range []string{"double", "sum", "other", "a"} {
		name := name
		_, err := s.Monitor(name, func(v types.Value) {
			events = append(events, fmt.Sprintf("%s=%s", name, v))
		})
		if err != nil {
			t.Errorf("monitor failed: %+v", err)
			return
		}
	}
	if err := s.Update(); err != nil {
		t.Errorf("update failed: %+v", err)
		return
	}
	expected := []string{"other=10", "sum=11", "double=22"}
	if diff := pretty.Compare(events, expected); diff != "" {
		t.Errorf("events differ: (-got +want)\n%s", diff)
	}

	events = []string{}
	s.Set("a", types.NewNumber(2))
	s.Update()
	expected = []string{"a=2", "sum=12", "double=24"}
	if diff := pretty.Compare(events, expected); diff != "" {
		t.Errorf("events differ: (-got +want)\n%s", diff)
	}

	events = []string{}
	s.Set("a", types.NewNumber(2)) // same value
	s.Update()
	if len(events) != 0 {
		t.Errorf("unchanged values fired monitors: %v", events)
	}
}

func TestMonitor2(t *testing.T) {
	s := build(t, monitored)
	calls := 0
	conn, err := s.Monitor("sum", func(types.Value) { calls++ })
	if err != nil {
		t.Errorf("monitor failed: %+v", err)
		return
	}
	if err := conn.Disconnect(); err != nil {
		t.Errorf("disconnect failed: %+v", err)
	}
	if err := conn.Disconnect(); err == nil {
		t.Errorf("second disconnect should fail")
	}
	s.Update()
	if calls != 0 {
		t.Errorf("disconnected monitor fired")
	}
	if _, err := s.Monitor("nope", func(types.Value) {}); err == nil {
		t.Errorf("monitor on unknown cell should fail")
	}
}

func TestMonitorContributing1(t *testing.T) {
	s := build(t, guards)
	sets := [][]string{}
	if _, err := s.MonitorContributing("r", func(names []string) {
		sets = append(sets, names)
	}); err != nil {
		t.Errorf("monitor failed: %+v", err)
		return
	}
	s.Update()
	s.Set("q", types.NewBool(false)) // r is recomputed, same set
	s.Update()
	s.Set("p", types.NewBool(false))
	s.Update()
	expected := [][]string{{"p"}, {"p", "q"}}
	if diff := pretty.Compare(sets, expected); diff != "" {
		t.Errorf("sets differ: (-got +want)\n%s", diff)
	}
}

func TestContributingInputs1(t *testing.T) {
	s := build(t, monitored)
	s.Update()
	out, err := s.ContributingInputs("double")
	if err != nil {
		t.Errorf("failed: %+v", err)
		return
	}
	if diff := pretty.Compare(out, []string{"a", "b"}); diff != "" {
		t.Errorf("inputs differ: (-got +want)\n%s", diff)
	}
	expectContributing(t, s, "double", []string{"sum"})
}

func TestFunctions1(t *testing.T) {
	s := build(t, `
sheet f {
input:
	v : 3;
output:
	tripled <== triple(v);
	limited <== clamp(value: v, min: 0, max: 2);
	who <== contributing(@tripled);
}
`)
	if err := s.Update(); !errors.Is(err, vm.ErrFunctionNotFound) {
		t.Errorf("expected function not found, got: %v", err)
	}
	s.InsertArrayFunction("triple", func(args []types.Value) (types.Value, error) {
		f, err := types.AsNumber(args[0])
		if err != nil {
			return nil, err
		}
		return types.NewNumber(3 * f), nil
	})
	if err := s.Update(); err != nil {
		t.Errorf("update failed: %+v", err)
		return
	}
	expectValue(t, s, "tripled", types.NewNumber(9))
	expectValue(t, s, "limited", types.NewNumber(2))
	expectValue(t, s, "who", types.NewList(types.NewName("v")))

	s.InsertDictFunction("clamp", func(args map[string]types.Value) (types.Value, error) {
		return types.NewStr("replaced"), nil
	})
	s.Set("v", types.NewNumber(4))
	s.Update()
	expectValue(t, s, "limited", types.NewStr("replaced"))
}

func TestInvariants1(t *testing.T) {
	s := build(t, `
sheet inv {
input:
	v : 5;
invariant:
	positive <== v > 0;
	small <== v < 3;
}
`)
	if err := s.CheckInvariants(); err == nil {
		t.Errorf("unevaluated invariants can't hold")
	}
	s.Update()
	if diff := pretty.Compare(s.Invariants(), map[string]bool{"positive": true, "small": false}); diff != "" {
		t.Errorf("invariants differ: (-got +want)\n%s", diff)
	}
	err := s.CheckInvariants()
	var invErr *InvariantError
	if !errors.As(err, &invErr) || invErr.Cell != "small" || !errors.Is(err, ErrInvariant) {
		t.Errorf("expected small to fail, got: %v", err)
	}
	s.Set("v", types.NewNumber(1))
	s.Update()
	if err := s.CheckInvariants(); err != nil {
		t.Errorf("invariants should hold: %v", err)
	}
}

func TestActiveGraph1(t *testing.T) {
	s := build(t, guards)
	if g := s.ActiveGraph(); g != nil {
		t.Errorf("no graph expected before the first update")
	}
	s.Update()
	g := s.ActiveGraph()
	if g.NumVertices() != 3 || g.NumEdges() != 1 {
		t.Errorf("unexpected graph: %s", g)
	}
	expected := "digraph \"guards\" {\n" +
		"\tlabel=\"guards\";\n" +
		"\t\"p\" [label=\"p\"];\n" +
		"\t\"q\" [label=\"q\"];\n" +
		"\t\"r\" [label=\"r\"];\n" +
		"\t\"p\" -> \"r\" [label=\"when\"];\n" +
		"}\n"
	if out := g.Graphviz(); out != expected {
		t.Errorf("unexpected graphviz:\n%s", out)
	}
}

type fakeStats struct {
	calls  int
	cells  int
	errors int
}

func (obj *fakeStats) UpdateDone(sheet string, cells int, d time.Duration, err error) {
	obj.calls++
	obj.cells += cells
	if err != nil {
		obj.errors++
	}
}

func TestStats1(t *testing.T) {
	def, _ := parser.ParseSheet(example)
	stats := &fakeStats{}
	s, err := New(def, &Options{Stats: stats})
	if err != nil {
		t.Errorf("assembly failed: %+v", err)
		return
	}
	s.Update()
	s.Update()
	s.Set("scale", types.NewStr("x"))
	s.Update()
	if stats.calls != 3 || stats.cells != 1 || stats.errors != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

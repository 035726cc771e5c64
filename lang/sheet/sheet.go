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

// Package sheet implements the property sheet, a named set of cells with a
// dependency graph between them. Input cells are set by a controller, and an
// update recomputes every invalid cell in dependency order. Each cell may
// have alternate definitions guarded by when conditions, and the first true
// guard in declaration order wins.
//
// A sheet is owned by a single goroutine. It has no locks, and other
// goroutines should hand their mutations to the owner, for example with the
// scheduler package.
package sheet

import (
	"fmt"
	"time"

	"github.com/purpleidea/propsheet/behavior"
	"github.com/purpleidea/propsheet/lang/ast"
	"github.com/purpleidea/propsheet/lang/funcs"
	_ "github.com/purpleidea/propsheet/lang/funcs/core" // register core funcs
	"github.com/purpleidea/propsheet/lang/types"
	"github.com/purpleidea/propsheet/lang/vm"
	"github.com/purpleidea/propsheet/pgraph"
	"github.com/purpleidea/propsheet/util"
	"github.com/purpleidea/propsheet/util/errwrap"
)

// State is the evaluation state of a cell.
type State int

const (
	// StateUnevaluated is the state of a computed cell before the first
	// update.
	StateUnevaluated State = iota

	// StateValid cells hold an up to date value.
	StateValid

	// StateInvalid cells hold a stale value which the next update will
	// recompute.
	StateInvalid
)

// String returns the name of the state.
func (obj State) String() string {
	switch obj {
	case StateUnevaluated:
		return "unevaluated"
	case StateValid:
		return "valid"
	case StateInvalid:
		return "invalid"
	}
	return fmt.Sprintf("State(%d)", int(obj))
}

// Stats receives a report after each update. The prometheus package has an
// implementation.
type Stats interface {
	UpdateDone(sheet string, cells int, d time.Duration, err error)
}

// Options are the optional parameters of New.
type Options struct {
	// Funcs is the function registry to start from. It is copied. If nil,
	// the core functions are used.
	Funcs *funcs.Registry

	// Stats is notified after each update if it is set.
	Stats Stats

	Debug bool
	Logf  func(format string, v ...interface{})
}

// clause is an alternate definition of a cell.
type clause struct {
	guard *vm.Program // nil is always true
	expr  *vm.Program
	line  int
}

// active clause markers
const (
	activeNone   = -2
	activeDefine = -1
)

// cell is a vertex in the dependency graph.
type cell struct {
	name  string
	kind  ast.CellKind
	index int // declaration order
	line  int
	decl  *ast.Cell

	define  *vm.Program
	clauses []*clause

	value        types.Value
	state        State
	contributing map[string]struct{}
	active       int // index of the clause in use, or an active marker

	monitors    *behavior.Queue // value monitors
	contributed *behavior.Queue // contributing set monitors

	visiting bool
}

// String returns the cell name. It fulfills the pgraph.Vertex interface.
func (obj *cell) String() string {
	return obj.name
}

// computed returns true if the cell value comes from a definition.
func (obj *cell) computed() bool {
	return obj.define != nil || len(obj.clauses) > 0
}

// programs returns every program which can be active for this cell.
func (obj *cell) programs() []*vm.Program {
	progs := []*vm.Program{}
	for _, c := range obj.clauses {
		if c.guard != nil {
			progs = append(progs, c.guard)
		}
		progs = append(progs, c.expr)
	}
	if obj.define != nil {
		progs = append(progs, obj.define)
	}
	return progs
}

// edge is a dependency edge. It points from the cell which is read to the
// cell which reads it.
type edge struct {
	label string
}

// String fulfills the pgraph.Edge interface.
func (obj *edge) String() string {
	return obj.label
}

// Sheet is an assembled property sheet.
type Sheet struct {
	name string
	def  *ast.Sheet

	cells map[string]*cell
	order []*cell // declaration order

	funcs *funcs.Registry
	stats Stats

	debug bool
	logf  func(format string, v ...interface{})

	potential *pgraph.Graph // every edge that any clause could activate
	active    *pgraph.Graph // edges read by the last successful update

	changed map[string]struct{} // input cells set since the last update
	stack   []*cell             // cells being evaluated, for cycle reports
	updates uint64
}

// New assembles a sheet from its declaration. It checks every expression
// against the declared cells, rejects static dependency cycles and runs the
// initializers. If anything is wrong, no sheet is returned and the error
// contains every *StaticError that was found.
func New(def *ast.Sheet, opts *Options) (*Sheet, error) {
	if opts == nil {
		opts = &Options{}
	}
	obj := &Sheet{
		name:    def.Name,
		def:     def,
		cells:   make(map[string]*cell),
		stats:   opts.Stats,
		debug:   opts.Debug,
		logf:    opts.Logf,
		changed: make(map[string]struct{}),
	}
	if obj.logf == nil {
		obj.logf = func(format string, v ...interface{}) {} // noop
	}
	if opts.Funcs != nil {
		obj.funcs = opts.Funcs.Copy()
	} else {
		obj.funcs = funcs.Core()
	}
	obj.funcs.InsertArrayFunction("contributing", obj.contributingFunc)

	var reterr error
	fail := func(c *cell, line int, format string, v ...interface{}) {
		e := &StaticError{Line: line, Err: fmt.Errorf(format, v...)}
		if c != nil {
			e.Cell = c.name
		}
		reterr = errwrap.Append(reterr, e)
	}
	if def.Name == "" {
		fail(nil, 0, "missing name")
	}

	// declare
	for _, decl := range def.Cells() {
		if other, exists := obj.cells[decl.Name]; exists {
			fail(other, decl.Line, "duplicate declaration (first on line %d)", other.line)
			continue
		}
		c := &cell{
			name:         decl.Name,
			kind:         decl.Kind,
			index:        len(obj.order),
			line:         decl.Line,
			decl:         decl,
			define:       decl.Define,
			value:        types.NewEmpty(),
			contributing: make(map[string]struct{}),
			active:       activeNone,
			monitors:     behavior.New(false),
			contributed:  behavior.New(false),
		}
		obj.cells[c.name] = c
		obj.order = append(obj.order, c)
	}

	// attach relate clauses
	for _, relate := range def.Relates() {
		for _, x := range relate.Clauses {
			c, exists := obj.cells[x.Name]
			if !exists {
				fail(nil, x.Line, "relate clause for undeclared cell %s", x.Name)
				continue
			}
			c.clauses = append(c.clauses, &clause{
				guard: relate.Guard,
				expr:  x.Expr,
				line:  x.Line,
			})
		}
	}

	// check each cell
	for _, c := range obj.order {
		switch c.kind {
		case ast.KindConstant, ast.KindInput:
			if c.kind == ast.KindConstant && c.decl.Init == nil {
				fail(c, c.line, "constant without a value")
			}
			if c.computed() {
				fail(c, c.line, "%s cells can't have a definition", c.kind)
			}
		case ast.KindInterface:
			// an initializer alone is allowed, the cell then holds it
		case ast.KindOutput, ast.KindLogic, ast.KindInvariant:
			if c.decl.Init != nil {
				fail(c, c.line, "%s cells can't have an initializer", c.kind)
			}
			if !c.computed() {
				fail(c, c.line, "%s cell without a definition", c.kind)
			}
		default:
			fail(c, c.line, "unknown kind %s", c.kind)
		}

		unguarded := 0
		if c.define != nil {
			unguarded++
		}
		for _, x := range c.clauses {
			if x.guard == nil {
				unguarded++
			}
		}
		if unguarded > 1 {
			fail(c, c.line, "more than one unguarded definition")
		}

		for _, prog := range c.programs() {
			for _, ref := range prog.Refs() {
				if _, exists := obj.cells[ref]; !exists {
					fail(c, c.line, "reference to undeclared cell %s", ref)
				}
			}
		}
		if c.decl.Init != nil {
			for _, ref := range c.decl.Init.Refs() {
				dep, exists := obj.cells[ref]
				if !exists {
					fail(c, c.line, "initializer references undeclared cell %s", ref)
					continue
				}
				if dep.index >= c.index {
					fail(c, c.line, "initializer references %s before its declaration", ref)
					continue
				}
				if k := dep.kind; k != ast.KindConstant && k != ast.KindInput && k != ast.KindInterface {
					fail(c, c.line, "initializer references %s cell %s", k, ref)
				}
			}
		}
	}
	if reterr != nil {
		return nil, reterr // don't build graphs from broken declarations
	}

	// graphs
	var err error
	if obj.potential, err = pgraph.NewGraph(def.Name); err != nil {
		return nil, errwrap.Wrapf(err, "could not build graph")
	}
	static, err := pgraph.NewGraph(def.Name)
	if err != nil {
		return nil, errwrap.Wrapf(err, "could not build graph")
	}
	for _, c := range obj.order {
		obj.potential.AddVertex(c)
		static.AddVertex(c)
		for _, prog := range c.programs() {
			for _, ref := range prog.Refs() {
				obj.potential.AddEdge(obj.cells[ref], c, &edge{label: "reads"})
			}
		}
		for _, prog := range c.defaults() {
			for _, ref := range prog.Refs() {
				static.AddEdge(obj.cells[ref], c, &edge{label: "reads"})
			}
		}
	}
	if _, err := static.TopologicalSort(); err != nil {
		e := &StaticError{Err: err}
		if cycleErr, ok := err.(*pgraph.CycleError); ok {
			e.Err = &CycleError{Cells: cyclePath(static, cycleErr.Vertices)}
		}
		return nil, errwrap.Append(nil, e)
	}

	// initializers run in declaration order
	for _, c := range obj.order {
		if c.decl.Init != nil {
			m := &vm.Machine{
				VariableLookup: func(name string) (types.Value, error) {
					return obj.cells[name].value, nil // checked above
				},
			}
			obj.funcs.Bind(m)
			v, err := m.Evaluate(c.decl.Init)
			if err != nil {
				fail(c, c.line, "initializer failed: %v", err)
				continue
			}
			c.value = v
		}
		if !c.computed() {
			c.state = StateValid
		}
	}
	if reterr != nil {
		return nil, reterr
	}

	if obj.debug {
		obj.logf("assembled %s: %d cells, %d potential edges", obj.name, len(obj.order), obj.potential.NumEdges())
	}
	return obj, nil
}

// cyclePath returns the shortest cycle through one of the vertices that a
// topological sort could not order. Each of them has an unsorted predecessor,
// so walking backwards must eventually revisit a vertex on a cycle.
func cyclePath(g *pgraph.Graph, remaining []pgraph.Vertex) []string {
	if len(remaining) == 0 {
		return nil
	}
	left := make(map[pgraph.Vertex]struct{})
	for _, v := range remaining {
		left[v] = struct{}{}
	}
	seen := make(map[pgraph.Vertex]struct{})
	v := remaining[0]
	for {
		if _, exists := seen[v]; exists {
			break
		}
		seen[v] = struct{}{}
		for _, in := range g.IncomingGraphVertices(v) {
			if _, ok := left[in]; ok {
				v = in
				break
			}
		}
	}

	// edges point at the reader, so a path from v back to one of the cells
	// that v reads closes the cycle
	var best []pgraph.Vertex
	for _, in := range g.IncomingGraphVertices(v) {
		if _, ok := left[in]; !ok {
			continue
		}
		path := []pgraph.Vertex{v}
		if in != v {
			if path = g.Reachability(v, in); len(path) == 0 {
				continue
			}
		}
		if best == nil || len(path) < len(best) {
			best = path
		}
	}
	names := []string{v.String()} // each cell reads the next one
	for i := len(best) - 1; i >= 0; i-- {
		names = append(names, best[i].String())
	}
	return names
}

// defaults returns the programs of the default selection of a cell. That is
// every guard, since guards always run, plus the first unguarded definition.
func (obj *cell) defaults() []*vm.Program {
	progs := []*vm.Program{}
	var fallback *vm.Program
	for _, c := range obj.clauses {
		if c.guard != nil {
			progs = append(progs, c.guard)
			continue
		}
		if fallback == nil {
			fallback = c.expr
		}
	}
	if fallback == nil {
		fallback = obj.define
	}
	if fallback != nil {
		progs = append(progs, fallback)
	}
	return progs
}

// Name returns the name of the sheet.
func (obj *Sheet) Name() string {
	return obj.name
}

// String returns a short description of the sheet.
func (obj *Sheet) String() string {
	return fmt.Sprintf("sheet(%s)", obj.name)
}

// Definition returns the declaration the sheet was built from.
func (obj *Sheet) Definition() *ast.Sheet {
	return obj.def
}

func (obj *Sheet) lookup(name string) (*cell, error) {
	c, exists := obj.cells[name]
	if !exists {
		return nil, errwrap.Wrapf(ErrUnknownCell, "cell %s", name)
	}
	return c, nil
}

// Has returns true if the cell is declared.
func (obj *Sheet) Has(name string) bool {
	_, exists := obj.cells[name]
	return exists
}

// Cells returns the cell names in declaration order.
func (obj *Sheet) Cells() []string {
	names := []string{}
	for _, c := range obj.order {
		names = append(names, c.name)
	}
	return names
}

// Kind returns the kind of a cell.
func (obj *Sheet) Kind(name string) (ast.CellKind, error) {
	c, err := obj.lookup(name)
	if err != nil {
		return 0, err
	}
	return c.kind, nil
}

// State returns the evaluation state of a cell.
func (obj *Sheet) State(name string) (State, error) {
	c, err := obj.lookup(name)
	if err != nil {
		return 0, err
	}
	return c.state, nil
}

// Get returns the cached value of a cell. It never recomputes anything, so
// the value of an invalid cell is the one from the last update.
func (obj *Sheet) Get(name string) (types.Value, error) {
	c, err := obj.lookup(name)
	if err != nil {
		return nil, err
	}
	return c.value, nil
}

// Set stores the value of an input cell and invalidates every cell which may
// depend on it. Nothing is recomputed until Update is called, so many sets
// can be batched into one evaluation pass.
func (obj *Sheet) Set(name string, value types.Value) error {
	c, err := obj.lookup(name)
	if err != nil {
		return err
	}
	if c.kind != ast.KindInput {
		return errwrap.Wrapf(ErrNotInput, "cell %s is %s", name, c.kind)
	}
	if value == nil {
		value = types.NewEmpty()
	}
	if !types.Equal(c.value, value) {
		obj.changed[name] = struct{}{}
	}
	c.value = value
	c.state = StateValid

	n := 0
	for _, v := range obj.potential.DFS(c) {
		dep := v.(*cell)
		if dep == c || dep.state != StateValid {
			continue
		}
		dep.state = StateInvalid
		n++
	}
	if obj.debug {
		obj.logf("set %s = %s (%d cells invalidated)", name, value, n)
	}
	return nil
}

// Contributing returns the sorted names of the cells that were read when the
// cell was last evaluated. Nothing is recomputed.
func (obj *Sheet) Contributing(name string) ([]string, error) {
	c, err := obj.lookup(name)
	if err != nil {
		return nil, err
	}
	return util.StrSetSorted(c.contributing), nil
}

// ContributingInputs returns the sorted names of the input cells which the
// cell transitively depends on through the recorded contributing sets.
func (obj *Sheet) ContributingInputs(name string) ([]string, error) {
	c, err := obj.lookup(name)
	if err != nil {
		return nil, err
	}
	inputs := make(map[string]struct{})
	seen := map[*cell]struct{}{c: {}}
	todo := []*cell{c}
	for len(todo) > 0 {
		x := todo[len(todo)-1]
		todo = todo[:len(todo)-1]
		for dep := range x.contributing {
			d := obj.cells[dep]
			if _, exists := seen[d]; exists {
				continue
			}
			seen[d] = struct{}{}
			if d.kind == ast.KindInput {
				inputs[dep] = struct{}{}
			}
			todo = append(todo, d)
		}
	}
	return util.StrSetSorted(inputs), nil
}

// contributingFunc implements contributing(@cell) for expressions.
func (obj *Sheet) contributingFunc(args []types.Value) (types.Value, error) {
	if err := funcs.Arity("contributing", args, 1); err != nil {
		return nil, err
	}
	name, err := types.AsName(args[0])
	if err != nil {
		return nil, errwrap.Wrapf(err, "contributing expects a cell name")
	}
	names, err := obj.Contributing(name)
	if err != nil {
		return nil, err
	}
	values := []types.Value{}
	for _, x := range names {
		values = append(values, types.NewName(x))
	}
	return types.NewList(values...), nil
}

// InsertArrayFunction makes a positional argument function available to the
// expressions of this sheet. Cells which already hold a value are not
// invalidated.
func (obj *Sheet) InsertArrayFunction(name string, fn funcs.ArrayFunc) {
	obj.funcs.InsertArrayFunction(name, fn)
}

// InsertDictFunction makes a named argument function available to the
// expressions of this sheet.
func (obj *Sheet) InsertDictFunction(name string, fn funcs.DictFunc) {
	obj.funcs.InsertDictFunction(name, fn)
}

// Connection is a registered monitor.
type Connection struct {
	queue *behavior.Queue
	token behavior.Token
}

// Disconnect removes the monitor. It errors if it was already removed.
func (obj *Connection) Disconnect() error {
	return obj.queue.Disconnect(obj.token)
}

// Monitor registers a callback which runs after each successful update in
// which the value of the cell changed, including its first evaluation. All
// the callbacks of one update run together as one batch, in dependency
// order, exactly once.
func (obj *Sheet) Monitor(name string, fn func(types.Value)) (*Connection, error) {
	c, err := obj.lookup(name)
	if err != nil {
		return nil, err
	}
	token := c.monitors.Insert(func() { fn(c.value) })
	return &Connection{queue: c.monitors, token: token}, nil
}

// MonitorContributing registers a callback which runs after each successful
// update in which the contributing set of the cell changed.
func (obj *Sheet) MonitorContributing(name string, fn func([]string)) (*Connection, error) {
	c, err := obj.lookup(name)
	if err != nil {
		return nil, err
	}
	token := c.contributed.Insert(func() { fn(util.StrSetSorted(c.contributing)) })
	return &Connection{queue: c.contributed, token: token}, nil
}

// Invariants returns the truth of every invariant cell. A cell which isn't a
// boolean counts as false.
func (obj *Sheet) Invariants() map[string]bool {
	result := make(map[string]bool)
	for _, c := range obj.order {
		if c.kind != ast.KindInvariant {
			continue
		}
		b, err := types.AsBool(c.value)
		result[c.name] = err == nil && b && c.state == StateValid
	}
	return result
}

// CheckInvariants returns an error listing every invariant which isn't true.
func (obj *Sheet) CheckInvariants() error {
	var reterr error
	for _, c := range obj.order {
		if c.kind != ast.KindInvariant {
			continue
		}
		if c.state != StateValid {
			reterr = errwrap.Append(reterr, errwrap.Wrapf(&InvariantError{Cell: c.name}, "%s", c.state))
			continue
		}
		b, err := types.AsBool(c.value)
		if err != nil {
			reterr = errwrap.Append(reterr, errwrap.Wrapf(&InvariantError{Cell: c.name}, "%v", err))
			continue
		}
		if !b {
			reterr = errwrap.Append(reterr, &InvariantError{Cell: c.name})
		}
	}
	return reterr
}

// ActiveGraph returns the dependency graph of the last successful update. An
// edge points from each cell that was read to the cell that read it. It is
// nil before the first update.
func (obj *Sheet) ActiveGraph() *pgraph.Graph {
	if obj.active == nil {
		return nil
	}
	return obj.active.Copy()
}

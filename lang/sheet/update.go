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

package sheet

import (
	"time"

	"github.com/purpleidea/propsheet/behavior"
	"github.com/purpleidea/propsheet/lang/types"
	"github.com/purpleidea/propsheet/lang/vm"
	"github.com/purpleidea/propsheet/pgraph"
	"github.com/purpleidea/propsheet/util/errwrap"
)

// saved is the part of a cell which an update may change.
type saved struct {
	value        types.Value
	state        State
	contributing map[string]struct{}
	active       int
}

// Update recomputes every invalid cell in dependency order. For each one, the
// guards of its relate clauses run in declaration order and the first true
// one selects the definition. An unguarded clause counts as a true guard, and
// the plain definition is used when nothing else was selected. The names of
// the cells read along the way become the new contributing set.
//
// The update is atomic. If any cell fails, including because the selected
// definitions form a cycle, every cell is restored to what it was before and
// the error is returned. After a successful update the monitors of every
// changed cell run once, in dependency order.
func (obj *Sheet) Update() error {
	start := time.Now()

	snapshot := make(map[*cell]saved, len(obj.order))
	for _, c := range obj.order {
		snapshot[c] = saved{
			value:        c.value,
			state:        c.state,
			contributing: c.contributing,
			active:       c.active,
		}
	}

	changed := make(map[*cell]struct{})
	for name := range obj.changed {
		changed[obj.cells[name]] = struct{}{}
	}
	contributed := make(map[*cell]struct{})

	evaluated := 0
	var err error
	for _, c := range obj.order {
		if c.state == StateValid {
			continue
		}
		if err = obj.pull(c, changed, contributed, &evaluated); err != nil {
			break
		}
	}

	if err != nil {
		for c, s := range snapshot { // roll back
			c.value = s.value
			c.state = s.state
			c.contributing = s.contributing
			c.active = s.active
			c.visiting = false
		}
		obj.stack = nil
		obj.report(start, evaluated, err)
		return err
	}

	obj.updates++
	obj.changed = make(map[string]struct{})
	if obj.active, err = obj.buildActive(); err != nil { // can't happen
		obj.report(start, evaluated, err)
		return err
	}
	obj.report(start, evaluated, nil)
	obj.notify(changed, contributed)
	return nil
}

func (obj *Sheet) report(start time.Time, evaluated int, err error) {
	d := time.Since(start)
	if obj.debug {
		if err != nil {
			obj.logf("update of %s failed after %d cells (%v): %v", obj.name, evaluated, d, err)
		} else {
			obj.logf("update of %s: %d cells evaluated in %v", obj.name, evaluated, d)
		}
	}
	if obj.stats != nil {
		obj.stats.UpdateDone(obj.name, evaluated, d, err)
	}
}

// pull evaluates the cell if it isn't valid. Cells which it reads are pulled
// first, which is what orders the evaluation.
func (obj *Sheet) pull(c *cell, changed, contributed map[*cell]struct{}, evaluated *int) error {
	if c.state == StateValid {
		return nil
	}
	if c.visiting {
		cycle := []string{}
		for i := len(obj.stack) - 1; i >= 0; i-- {
			cycle = append([]string{obj.stack[i].name}, cycle...)
			if obj.stack[i] == c {
				break
			}
		}
		return &CycleError{Cells: append(cycle, c.name)}
	}
	c.visiting = true
	obj.stack = append(obj.stack, c)
	defer func() {
		c.visiting = false
		obj.stack = obj.stack[:len(obj.stack)-1]
	}()

	read := make(map[string]struct{})
	m := &vm.Machine{
		VariableLookup: func(name string) (types.Value, error) {
			dep, exists := obj.cells[name]
			if !exists {
				return nil, &vm.UnboundVariableError{Name: name}
			}
			if err := obj.pull(dep, changed, contributed, evaluated); err != nil {
				return nil, err
			}
			read[name] = struct{}{}
			return dep.value, nil
		},
	}
	obj.funcs.Bind(m)

	var prog *vm.Program
	active := activeNone
	for i, x := range c.clauses {
		if x.guard == nil {
			prog, active = x.expr, i
			break
		}
		g, err := m.Evaluate(x.guard)
		if err != nil {
			return errwrap.Wrapf(err, "guard of %s on line %d", c.name, x.line)
		}
		b, err := types.AsBool(g)
		if err != nil {
			return errwrap.Wrapf(err, "guard of %s on line %d", c.name, x.line)
		}
		if b {
			prog, active = x.expr, i
			break
		}
	}
	if prog == nil && c.define != nil {
		prog, active = c.define, activeDefine
	}
	value := c.value
	if prog == nil {
		if c.decl.Init == nil {
			return errwrap.Wrapf(ErrNoDefinition, "cell %s", c.name)
		}
		// an initialized interface cell holds its value while no clause is
		// active, and nothing contributes to it
		read = make(map[string]struct{})
	} else {
		var err error
		if value, err = m.Evaluate(prog); err != nil {
			return errwrap.Wrapf(err, "cell %s", c.name)
		}
		*evaluated++
	}

	if c.state == StateUnevaluated || !types.Equal(c.value, value) {
		changed[c] = struct{}{}
	}
	if c.state == StateUnevaluated || !sameSet(c.contributing, read) {
		contributed[c] = struct{}{}
	}
	c.value = value
	c.state = StateValid
	c.contributing = read
	c.active = active
	return nil
}

func sameSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, exists := b[k]; !exists {
			return false
		}
	}
	return true
}

// buildActive builds the graph of the recorded contributing sets.
func (obj *Sheet) buildActive() (*pgraph.Graph, error) {
	g, err := pgraph.NewGraph(obj.name)
	if err != nil {
		return nil, err
	}
	for _, c := range obj.order {
		g.AddVertex(c)
		label := "define"
		if c.active >= 0 {
			label = "relate"
			if c.clauses[c.active].guard != nil {
				label = "when"
			}
		}
		for name := range c.contributing {
			g.AddEdge(obj.cells[name], c, &edge{label: label})
		}
	}
	return g, nil
}

// notify runs the monitors of the changed cells as one single execution
// batch, in topological order of the active graph.
func (obj *Sheet) notify(changed, contributed map[*cell]struct{}) {
	if len(changed) == 0 && len(contributed) == 0 {
		return
	}
	order, err := obj.active.TopologicalSort()
	if err != nil { // the update succeeded, so this can't happen
		obj.logf("could not order monitors: %v", err)
		return
	}
	batch := behavior.New(true)
	for _, v := range order {
		c := v.(*cell)
		if _, exists := changed[c]; exists && !c.monitors.Empty() {
			batch.Attach(c.monitors)
		}
		if _, exists := contributed[c]; exists && !c.contributed.Empty() {
			batch.Attach(c.contributed)
		}
	}
	if obj.debug {
		obj.logf("notify: %d changed, %d monitor queues", len(changed), batch.Len())
	}
	batch.Invoke()
}

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

// Package eve evaluates layout descriptions. A layout has a small sheet of
// its own with constant and interface cells, and a tree of views whose
// arguments are expressions. The arguments are evaluated against the layout
// sheet, and then against a bound property sheet if there is one, and the
// resulting tree is solved into a place for every view.
package eve

import (
	"fmt"

	"github.com/purpleidea/propsheet/lang/ast"
	"github.com/purpleidea/propsheet/lang/funcs"
	"github.com/purpleidea/propsheet/lang/sheet"
	"github.com/purpleidea/propsheet/lang/types"
	"github.com/purpleidea/propsheet/lang/vm"
	"github.com/purpleidea/propsheet/util"
	"github.com/purpleidea/propsheet/util/errwrap"
)

const (
	// ErrNegativeSize is returned for a negative size parameter, or when
	// solving for a negative area.
	ErrNegativeSize = util.Error("negative size")

	// ErrNotDict is returned when the arguments of a view aren't a
	// dictionary.
	ErrNotDict = util.Error("view arguments must be a dictionary")
)

// Options are the optional parameters of New.
type Options struct {
	// Bound is a property sheet which view arguments may reference. Cells
	// of the layout sheet hide cells of the same name in it.
	Bound *sheet.Sheet

	// Funcs is passed to the layout sheet. If nil, the core functions are
	// used.
	Funcs *funcs.Registry

	Stats sheet.Stats

	Debug bool
	Logf  func(format string, v ...interface{})
}

// Layout is an assembled layout.
type Layout struct {
	name string
	def  *ast.Layout

	sheet *sheet.Sheet
	bound *sheet.Sheet
	funcs *funcs.Registry

	debug bool
	logf  func(format string, v ...interface{})

	root  *Node
	dirty bool

	monitored map[string]*sheet.Connection // bound cells we watch
}

// New assembles the layout sheet and evaluates the view tree.
func New(def *ast.Layout, opts *Options) (*Layout, error) {
	if opts == nil {
		opts = &Options{}
	}
	if def.Root == nil {
		return nil, fmt.Errorf("layout %s has no view", def.Name)
	}
	obj := &Layout{
		name:      def.Name,
		def:       def,
		bound:     opts.Bound,
		debug:     opts.Debug,
		logf:      opts.Logf,
		monitored: make(map[string]*sheet.Connection),
	}
	if obj.logf == nil {
		obj.logf = func(format string, v ...interface{}) {} // noop
	}
	if opts.Funcs != nil {
		obj.funcs = opts.Funcs.Copy()
	} else {
		obj.funcs = funcs.Core()
	}

	sd := def.Sheet
	if sd == nil {
		sd = &ast.Sheet{Name: def.Name}
	}
	var err error
	obj.sheet, err = sheet.New(sd, &sheet.Options{
		Funcs: obj.funcs,
		Stats: opts.Stats,
		Debug: opts.Debug,
		Logf:  opts.Logf,
	})
	if err != nil {
		return nil, errwrap.Wrapf(err, "layout %s", def.Name)
	}
	if err := obj.sheet.Update(); err != nil {
		return nil, errwrap.Wrapf(err, "layout %s", def.Name)
	}
	if err := obj.Evaluate(); err != nil {
		obj.Close()
		return nil, err
	}
	return obj, nil
}

// Name returns the name of the layout.
func (obj *Layout) Name() string {
	return obj.name
}

// Sheet returns the layout sheet.
func (obj *Layout) Sheet() *sheet.Sheet {
	return obj.sheet
}

// Root returns the evaluated view tree.
func (obj *Layout) Root() *Node {
	return obj.root
}

// Dirty returns true if a bound cell that a view argument reads has changed
// since the last evaluation.
func (obj *Layout) Dirty() bool {
	return obj.dirty
}

// lookup resolves a variable in the layout sheet, then in the bound sheet.
func (obj *Layout) lookup(name string) (types.Value, error) {
	if obj.sheet.Has(name) {
		return obj.sheet.Get(name)
	}
	if obj.bound != nil && obj.bound.Has(name) {
		if _, exists := obj.monitored[name]; !exists {
			conn, err := obj.bound.Monitor(name, func(types.Value) {
				obj.dirty = true
			})
			if err != nil {
				return nil, err
			}
			obj.monitored[name] = conn
		}
		return obj.bound.Get(name)
	}
	return nil, &vm.UnboundVariableError{Name: name}
}

// Evaluate evaluates the arguments of every view and rebuilds the tree. The
// previous tree is kept if anything fails.
func (obj *Layout) Evaluate() error {
	m := &vm.Machine{
		VariableLookup: obj.lookup,
	}
	obj.funcs.Bind(m)

	var build func(v *ast.View, path string) (*Node, error)
	build = func(v *ast.View, path string) (*Node, error) {
		n := &Node{
			Kind:   v.Kind,
			Path:   path,
			Line:   v.Line,
			Params: make(map[string]types.Value),
		}
		if v.Args != nil {
			result, err := m.Evaluate(v.Args)
			if err != nil {
				return nil, errwrap.Wrapf(err, "view %s on line %d", v.Kind, v.Line)
			}
			params, err := types.AsDict(result)
			if err != nil {
				return nil, errwrap.Wrapf(ErrNotDict, "view %s on line %d", v.Kind, v.Line)
			}
			if err := n.apply(params); err != nil {
				return nil, errwrap.Wrapf(err, "view %s on line %d", v.Kind, v.Line)
			}
		}
		for i, child := range v.Children {
			c, err := build(child, fmt.Sprintf("%s.%d", path, i))
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, c)
		}
		return n, nil
	}

	root, err := build(obj.def.Root, "0")
	if err != nil {
		return err
	}
	obj.root = root
	obj.dirty = false
	if obj.debug {
		obj.logf("evaluated layout %s, watching %d bound cells", obj.name, len(obj.monitored))
	}
	return nil
}

// Close disconnects the monitors on the bound sheet.
func (obj *Layout) Close() error {
	var reterr error
	for name, conn := range obj.monitored {
		if err := conn.Disconnect(); err != nil {
			reterr = errwrap.Append(reterr, errwrap.Wrapf(err, "cell %s", name))
		}
		delete(obj.monitored, name)
	}
	return reterr
}

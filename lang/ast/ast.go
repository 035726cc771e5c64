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

// Package ast contains the declarations that a property model or a layout
// description is made of. The parser builds them, the sheet and layout
// packages assemble them, and the printer turns them back into source.
package ast

import (
	"fmt"

	"github.com/purpleidea/propsheet/lang/vm"
)

// CellKind is the kind of a cell, which is the section it was declared in.
type CellKind int

const (
	// KindConstant cells are initialized once and never change.
	KindConstant CellKind = iota

	// KindInput cells are set by the controller.
	KindInput

	// KindInterface cells may have an initializer and a definition.
	KindInterface

	// KindOutput cells are computed, and are what the view reads.
	KindOutput

	// KindLogic cells are computed intermediate values.
	KindLogic

	// KindInvariant cells are computed and must evaluate to true.
	KindInvariant
)

var cellKindNames = []string{
	KindConstant:  "constant",
	KindInput:     "input",
	KindInterface: "interface",
	KindOutput:    "output",
	KindLogic:     "logic",
	KindInvariant: "invariant",
}

// String returns the section keyword of this kind.
func (obj CellKind) String() string {
	if obj < 0 || int(obj) >= len(cellKindNames) {
		return fmt.Sprintf("CellKind(%d)", int(obj))
	}
	return cellKindNames[obj]
}

// Computed returns true for the kinds whose value comes from a definition.
func (obj CellKind) Computed() bool {
	switch obj {
	case KindInterface, KindOutput, KindLogic, KindInvariant:
		return true
	}
	return false
}

// ParseCellKind returns the kind for a section keyword.
func ParseCellKind(s string) (CellKind, bool) {
	for i, name := range cellKindNames {
		if name == s {
			return CellKind(i), true
		}
	}
	return 0, false
}

// Decl is either a *Cell or a *Relate.
type Decl interface {
	// Section is the kind of the section the declaration appears in.
	Section() CellKind
}

// Cell is a single cell declaration.
type Cell struct {
	Name string
	Kind CellKind

	// Init is the initializer (name : expr), or nil.
	Init *vm.Program

	// Define is the definition (name <== expr), or nil.
	Define *vm.Program

	// Line is the source line, zero if the cell was built in code.
	Line int
}

// Section returns the kind of this cell.
func (obj *Cell) Section() CellKind { return obj.Kind }

// String returns a short description of the cell.
func (obj *Cell) String() string {
	return fmt.Sprintf("%s %s", obj.Kind, obj.Name)
}

// Clause defines a cell inside a relate block.
type Clause struct {
	Name string
	Expr *vm.Program
	Line int
}

// Relate is a relate block, optionally guarded by a when condition. Each of
// its clauses is an alternate definition for the named cell which is active
// while the guard is true. An unguarded block is always active.
type Relate struct {
	Kind    CellKind // section it appears in
	Guard   *vm.Program
	Clauses []*Clause
	Line    int
}

// Section returns the section this block appears in.
func (obj *Relate) Section() CellKind { return obj.Kind }

// Sheet is a property model, a named list of declarations in source order.
type Sheet struct {
	Name  string
	Decls []Decl
}

// Cells returns the cell declarations in order.
func (obj *Sheet) Cells() []*Cell {
	cells := []*Cell{}
	for _, x := range obj.Decls {
		if cell, ok := x.(*Cell); ok {
			cells = append(cells, cell)
		}
	}
	return cells
}

// Relates returns the relate blocks in order.
func (obj *Sheet) Relates() []*Relate {
	relates := []*Relate{}
	for _, x := range obj.Decls {
		if relate, ok := x.(*Relate); ok {
			relates = append(relates, relate)
		}
	}
	return relates
}

// Add appends declarations. It is a convenience for building sheets in code.
func (obj *Sheet) Add(decls ...Decl) *Sheet {
	obj.Decls = append(obj.Decls, decls...)
	return obj
}

// View is a node of a layout tree.
type View struct {
	Kind string

	// Args is a program which builds the argument dictionary, or nil.
	Args *vm.Program

	Children []*View
	Line     int
}

// Walk calls fn for this view and all its descendants, depth first.
func (obj *View) Walk(fn func(*View) error) error {
	if err := fn(obj); err != nil {
		return err
	}
	for _, child := range obj.Children {
		if err := child.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// Layout is a layout description, a sheet of parameters plus a view tree.
type Layout struct {
	Name  string
	Sheet *Sheet
	Root  *View
}

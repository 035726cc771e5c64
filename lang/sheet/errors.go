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
	"fmt"
	"strings"

	"github.com/purpleidea/propsheet/util"
)

const (
	// ErrUnknownCell is returned when a cell name is not declared.
	ErrUnknownCell = util.Error("unknown cell")

	// ErrNotInput is returned when setting a cell which isn't an input.
	ErrNotInput = util.Error("only input cells can be set")

	// ErrNoDefinition is returned when no guard of a cell is true and it
	// has no fallback definition.
	ErrNoDefinition = util.Error("no active definition")

	// ErrInvariant is matched by every InvariantError.
	ErrInvariant = util.Error("invariant violated")
)

// StaticError is a problem found while assembling a sheet. A sheet is never
// built when there is one. The constructor returns all of them at once.
type StaticError struct {
	Cell string // empty for problems with the whole sheet
	Line int    // zero if unknown
	Err  error
}

// Error fulfills the error interface.
func (obj *StaticError) Error() string {
	where := "sheet"
	if obj.Cell != "" {
		where = fmt.Sprintf("cell %s", obj.Cell)
	}
	if obj.Line > 0 {
		where = fmt.Sprintf("%s (line %d)", where, obj.Line)
	}
	return fmt.Sprintf("%s: %v", where, obj.Err)
}

// Unwrap returns the underlying error.
func (obj *StaticError) Unwrap() error {
	return obj.Err
}

// CycleError is returned when the active dependencies form a cycle. The cells
// are listed in the order the cycle was walked, starting and ending with the
// same cell.
type CycleError struct {
	Cells []string
}

// Error fulfills the error interface.
func (obj *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(obj.Cells, " -> "))
}

// InvariantError names an invariant cell which isn't true.
type InvariantError struct {
	Cell string
}

// Error fulfills the error interface.
func (obj *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvariant, obj.Cell)
}

// Is matches ErrInvariant.
func (obj *InvariantError) Is(target error) bool {
	return target == ErrInvariant
}

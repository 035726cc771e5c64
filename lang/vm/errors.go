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

	"github.com/purpleidea/propsheet/util"
)

const (
	// ErrUnboundVariable is matched by every UnboundVariableError.
	ErrUnboundVariable = util.Error("unbound variable")

	// ErrFunctionNotFound is matched by every FunctionNotFoundError.
	ErrFunctionNotFound = util.Error("function not found")
)

// UnboundVariableError is returned when a variable lookup fails.
type UnboundVariableError struct {
	Name string
}

// Error fulfills the error interface.
func (obj *UnboundVariableError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnboundVariable, obj.Name)
}

// Is lets errors.Is match this against ErrUnboundVariable.
func (obj *UnboundVariableError) Is(target error) bool {
	return target == ErrUnboundVariable
}

// FunctionNotFoundError is returned when a function lookup fails.
type FunctionNotFoundError struct {
	Name string
}

// Error fulfills the error interface.
func (obj *FunctionNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrFunctionNotFound, obj.Name)
}

// Is lets errors.Is match this against ErrFunctionNotFound.
func (obj *FunctionNotFoundError) Is(target error) bool {
	return target == ErrFunctionNotFound
}

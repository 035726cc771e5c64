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

package types

import (
	"fmt"
)

// The Kind represents the base type of each value. The set of kinds is closed.
type Kind int

// Each Kind represents a variant of the expression value.
const (
	KindEmpty Kind = iota
	KindBool
	KindNumber
	KindStr
	KindName
	KindList
	KindDict
	KindCustom
)

// String returns the name of this kind as used in error messages and by the
// typeof function.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindStr:
		return "string"
	case KindName:
		return "name"
	case KindList:
		return "array"
	case KindDict:
		return "dictionary"
	case KindCustom:
		return "custom"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// KindOf returns the kind of a value. A nil value is treated as empty.
func KindOf(v Value) Kind {
	if v == nil {
		return KindEmpty
	}
	return v.Kind()
}

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
	"math"

	"github.com/purpleidea/propsheet/util"
)

// ErrTypeMismatch is the sentinel matched by every CastError with errors.Is.
const ErrTypeMismatch = util.Error("type mismatch")

// CastError is returned when a value is cast to the wrong kind.
type CastError struct {
	Want Kind
	Got  Kind
}

// Error fulfills the error interface.
func (obj *CastError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", ErrTypeMismatch, obj.Want, obj.Got)
}

// Is lets errors.Is match this against ErrTypeMismatch.
func (obj *CastError) Is(target error) bool {
	return target == ErrTypeMismatch
}

func check(v Value, want Kind) error {
	if got := KindOf(v); got != want {
		return &CastError{Want: want, Got: got}
	}
	return nil
}

// AsBool returns the bool inside v or a CastError.
func AsBool(v Value) (bool, error) {
	if err := check(v, KindBool); err != nil {
		return false, err
	}
	return v.Bool(), nil
}

// AsNumber returns the number inside v or a CastError.
func AsNumber(v Value) (float64, error) {
	if err := check(v, KindNumber); err != nil {
		return 0, err
	}
	return v.Number(), nil
}

// AsInt returns the number inside v as an int. It errors if the number is not
// integral.
func AsInt(v Value) (int, error) {
	f, err := AsNumber(v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("number %s is not integral", v)
	}
	return int(f), nil
}

// AsStr returns the string inside v or a CastError.
func AsStr(v Value) (string, error) {
	if err := check(v, KindStr); err != nil {
		return "", err
	}
	return v.Str(), nil
}

// AsName returns the identifier inside v or a CastError.
func AsName(v Value) (string, error) {
	if err := check(v, KindName); err != nil {
		return "", err
	}
	return v.Name(), nil
}

// AsList returns the elements inside v or a CastError.
func AsList(v Value) ([]Value, error) {
	if err := check(v, KindList); err != nil {
		return nil, err
	}
	return v.List(), nil
}

// AsDict returns the mapping inside v or a CastError.
func AsDict(v Value) (map[string]Value, error) {
	if err := check(v, KindDict); err != nil {
		return nil, err
	}
	return v.Dict(), nil
}

// AsCustom returns the payload inside v or a CastError.
func AsCustom(v Value) (interface{}, error) {
	if err := check(v, KindCustom); err != nil {
		return nil, err
	}
	return v.Custom(), nil
}

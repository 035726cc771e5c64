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
	"reflect"
)

// ValueOfGolang is a helper that takes a golang value, and produces the
// equivalent internal representation. This is very useful for writing tests.
// Maps must have string keys, which become dictionary names.
func ValueOfGolang(i interface{}) (Value, error) {
	if i == nil {
		return &EmptyValue{}, nil
	}
	if v, ok := i.(Value); ok {
		return v, nil
	}
	return ValueOf(reflect.ValueOf(i))
}

// ValueOf takes a reflect.Value and returns an equivalent Value.
func ValueOf(v reflect.Value) (Value, error) {
	value := v
	for value.Kind() == reflect.Ptr || value.Kind() == reflect.Interface {
		if value.IsNil() {
			return &EmptyValue{}, nil
		}
		value = value.Elem() // un-nest one pointer
	}
	if value.CanInterface() {
		if x, ok := value.Interface().(Value); ok {
			return x, nil
		}
	}

	switch kind := value.Kind(); kind { // match on destination field kind
	case reflect.Invalid:
		return &EmptyValue{}, nil

	case reflect.Bool:
		return &BoolValue{V: value.Bool()}, nil

	case reflect.String:
		return &StrValue{V: value.String()}, nil

	case reflect.Int, reflect.Int64, reflect.Int32, reflect.Int16, reflect.Int8:
		return &NumberValue{V: float64(value.Int())}, nil

	case reflect.Uint, reflect.Uint64, reflect.Uint32, reflect.Uint16, reflect.Uint8:
		return &NumberValue{V: float64(value.Uint())}, nil

	case reflect.Float64, reflect.Float32:
		return &NumberValue{V: value.Float()}, nil

	case reflect.Array, reflect.Slice:
		values := []Value{}
		for i := 0; i < value.Len(); i++ {
			x, err := ValueOf(value.Index(i)) // recurse
			if err != nil {
				return nil, err
			}
			values = append(values, x)
		}
		return &ListValue{V: values}, nil

	case reflect.Map:
		if value.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("dictionary keys must be strings, got: %s", value.Type().Key())
		}
		d := NewDict()
		for _, mk := range value.MapKeys() {
			x, err := ValueOf(value.MapIndex(mk)) // recurse
			if err != nil {
				return nil, err
			}
			d.V[mk.String()] = x
		}
		return d, nil

	default:
		return nil, fmt.Errorf("unable to represent value of %+v", v)
	}
}

// MustValueOfGolang is like ValueOfGolang but panics on error. It is intended
// for tests and static tables only.
func MustValueOfGolang(i interface{}) Value {
	v, err := ValueOfGolang(i)
	if err != nil {
		panic(err)
	}
	return v
}

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

// Package core contains the core functions available in every expression.
// Importing this package registers them with the funcs package.
package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/purpleidea/propsheet/lang/funcs"
	"github.com/purpleidea/propsheet/lang/types"
	"github.com/purpleidea/propsheet/util/errwrap"
)

// FormatError is the sentinel string returned by format when the input can't
// be formatted. It is a value, not an error, so that a view can display it.
const FormatError = "#format_error"

func init() {
	funcs.RegisterArray("min", Min)
	funcs.RegisterArray("max", Max)
	funcs.RegisterArray("round", Round)
	funcs.RegisterArray("abs", Abs)
	funcs.RegisterArray("size", Size)
	funcs.RegisterArray("typeof", TypeOf)
	funcs.RegisterArray("append", Append)
	funcs.RegisterArray("has_key", HasKey)
	funcs.RegisterArray("join", Join)
	funcs.RegisterArray("format", Format)
	funcs.RegisterDict("clamp", Clamp)
}

func numbers(name string, args []types.Value) ([]float64, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%s expects at least one argument", name)
	}
	out := []float64{}
	for i, x := range args {
		f, err := types.AsNumber(x)
		if err != nil {
			return nil, errwrap.Wrapf(err, "argument %d of %s", i, name)
		}
		out = append(out, f)
	}
	return out, nil
}

// Min returns the smallest of its numeric arguments.
func Min(args []types.Value) (types.Value, error) {
	nums, err := numbers("min", args)
	if err != nil {
		return nil, err
	}
	m := nums[0]
	for _, f := range nums[1:] {
		m = math.Min(m, f)
	}
	return types.NewNumber(m), nil
}

// Max returns the largest of its numeric arguments.
func Max(args []types.Value) (types.Value, error) {
	nums, err := numbers("max", args)
	if err != nil {
		return nil, err
	}
	m := nums[0]
	for _, f := range nums[1:] {
		m = math.Max(m, f)
	}
	return types.NewNumber(m), nil
}

// Round rounds a number half away from zero.
func Round(args []types.Value) (types.Value, error) {
	if err := funcs.Arity("round", args, 1); err != nil {
		return nil, err
	}
	nums, err := numbers("round", args)
	if err != nil {
		return nil, err
	}
	return types.NewNumber(math.Round(nums[0])), nil
}

// Abs returns the absolute value of a number.
func Abs(args []types.Value) (types.Value, error) {
	if err := funcs.Arity("abs", args, 1); err != nil {
		return nil, err
	}
	nums, err := numbers("abs", args)
	if err != nil {
		return nil, err
	}
	return types.NewNumber(math.Abs(nums[0])), nil
}

// Size returns the number of elements in an array or dictionary, or the number
// of characters in a string.
func Size(args []types.Value) (types.Value, error) {
	if err := funcs.Arity("size", args, 1); err != nil {
		return nil, err
	}
	switch x := args[0]; types.KindOf(x) {
	case types.KindList:
		return types.NewNumber(float64(len(x.List()))), nil
	case types.KindDict:
		return types.NewNumber(float64(len(x.Dict()))), nil
	case types.KindStr:
		return types.NewNumber(float64(len([]rune(x.Str())))), nil
	default:
		return nil, fmt.Errorf("size of %s is undefined", types.KindOf(x))
	}
}

// TypeOf returns the kind of its argument as a name, such as @number.
func TypeOf(args []types.Value) (types.Value, error) {
	if err := funcs.Arity("typeof", args, 1); err != nil {
		return nil, err
	}
	return types.NewName(types.KindOf(args[0]).String()), nil
}

// Append returns a new array with the remaining arguments added to the end of
// the first one.
func Append(args []types.Value) (types.Value, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("append expects at least one argument")
	}
	l, err := types.AsList(args[0])
	if err != nil {
		return nil, errwrap.Wrapf(err, "first argument of append")
	}
	values := append([]types.Value{}, l...)
	return types.NewList(append(values, args[1:]...)...), nil
}

// HasKey returns true if the dictionary contains the name.
func HasKey(args []types.Value) (types.Value, error) {
	if err := funcs.Arity("has_key", args, 2); err != nil {
		return nil, err
	}
	d, err := types.AsDict(args[0])
	if err != nil {
		return nil, errwrap.Wrapf(err, "first argument of has_key")
	}
	key, err := types.AsName(args[1])
	if err != nil {
		return nil, errwrap.Wrapf(err, "second argument of has_key")
	}
	_, exists := d[key]
	return types.NewBool(exists), nil
}

// Join concatenates an array of strings with a separator.
func Join(args []types.Value) (types.Value, error) {
	if err := funcs.Arity("join", args, 2); err != nil {
		return nil, err
	}
	l, err := types.AsList(args[0])
	if err != nil {
		return nil, errwrap.Wrapf(err, "first argument of join")
	}
	sep, err := types.AsStr(args[1])
	if err != nil {
		return nil, errwrap.Wrapf(err, "second argument of join")
	}
	s := []string{}
	for i, x := range l {
		str, err := types.AsStr(x)
		if err != nil {
			return nil, errwrap.Wrapf(err, "element %d of join", i)
		}
		s = append(s, str)
	}
	return types.NewStr(strings.Join(s, sep)), nil
}

// Format converts a number to a string. An optional second argument gives the
// number of decimals. Anything which isn't a number formats as FormatError.
func Format(args []types.Value) (types.Value, error) {
	if len(args) != 1 && len(args) != 2 {
		return nil, fmt.Errorf("format expects 1 or 2 arguments, got %d", len(args))
	}
	f, err := types.AsNumber(args[0])
	if err != nil {
		return types.NewStr(FormatError), nil
	}
	if len(args) == 1 {
		return types.NewStr(types.NewNumber(f).String()), nil
	}
	decimals, err := types.AsInt(args[1])
	if err != nil || decimals < 0 {
		return types.NewStr(FormatError), nil
	}
	return types.NewStr(fmt.Sprintf("%.*f", decimals, f)), nil
}

// Clamp limits the named argument value to the range given by min and max. The
// bounds are optional.
func Clamp(args map[string]types.Value) (types.Value, error) {
	v, exists := args["value"]
	if !exists {
		return nil, fmt.Errorf("clamp requires a value argument")
	}
	f, err := types.AsNumber(v)
	if err != nil {
		return nil, errwrap.Wrapf(err, "value of clamp")
	}
	for name := range args {
		if name != "value" && name != "min" && name != "max" {
			return nil, fmt.Errorf("clamp has no argument named %s", name)
		}
	}
	if x, exists := args["min"]; exists {
		lo, err := types.AsNumber(x)
		if err != nil {
			return nil, errwrap.Wrapf(err, "min of clamp")
		}
		f = math.Max(f, lo)
	}
	if x, exists := args["max"]; exists {
		hi, err := types.AsNumber(x)
		if err != nil {
			return nil, errwrap.Wrapf(err, "max of clamp")
		}
		f = math.Min(f, hi)
	}
	return types.NewNumber(f), nil
}

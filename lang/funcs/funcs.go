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

// Package funcs provides a framework for functions that can be called from
// expressions. Functions come in two styles: array functions receive their
// arguments positionally as in f(1, 2), and dictionary functions receive them
// by name as in f(value: 1, min: 0).
package funcs

import (
	"fmt"
	"sort"

	"github.com/purpleidea/propsheet/lang/types"
	"github.com/purpleidea/propsheet/lang/vm"
)

// ArrayFunc is a function which takes positional arguments.
type ArrayFunc func(args []types.Value) (types.Value, error)

// DictFunc is a function which takes named arguments.
type DictFunc func(args map[string]types.Value) (types.Value, error)

var registeredArrayFuncs = make(map[string]ArrayFunc) // must initialize
var registeredDictFuncs = make(map[string]DictFunc)   // must initialize

// RegisterArray takes an array func and its name and makes it available in
// every registry built by Core. It is commonly called in the init() method of
// the func at program startup. There is no matching Unregister function.
func RegisterArray(name string, fn ArrayFunc) {
	if _, exists := registeredArrayFuncs[name]; exists {
		panic(fmt.Sprintf("an array func named %s is already registered", name))
	}
	registeredArrayFuncs[name] = fn
}

// RegisterDict is the dictionary style equivalent of RegisterArray.
func RegisterDict(name string, fn DictFunc) {
	if _, exists := registeredDictFuncs[name]; exists {
		panic(fmt.Sprintf("a dict func named %s is already registered", name))
	}
	registeredDictFuncs[name] = fn
}

// Registry maps names to callable functions. Each sheet owns one, so that host
// code can extend the expression language per sheet.
type Registry struct {
	array map[string]ArrayFunc
	dict  map[string]DictFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		array: make(map[string]ArrayFunc),
		dict:  make(map[string]DictFunc),
	}
}

// Core returns a new registry containing every registered function.
func Core() *Registry {
	obj := NewRegistry()
	for name, fn := range registeredArrayFuncs {
		obj.array[name] = fn
	}
	for name, fn := range registeredDictFuncs {
		obj.dict[name] = fn
	}
	return obj
}

// InsertArrayFunction adds or replaces an array style function.
func (obj *Registry) InsertArrayFunction(name string, fn ArrayFunc) {
	obj.array[name] = fn
}

// InsertDictFunction adds or replaces a dictionary style function.
func (obj *Registry) InsertDictFunction(name string, fn DictFunc) {
	obj.dict[name] = fn
}

// Copy returns a copy of the registry which can be extended independently.
func (obj *Registry) Copy() *Registry {
	c := NewRegistry()
	for name, fn := range obj.array {
		c.array[name] = fn
	}
	for name, fn := range obj.dict {
		c.dict[name] = fn
	}
	return c
}

// Names returns the sorted names of every function, in either style.
func (obj *Registry) Names() []string {
	seen := make(map[string]struct{})
	for name := range obj.array {
		seen[name] = struct{}{}
	}
	for name := range obj.dict {
		seen[name] = struct{}{}
	}
	names := []string{}
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CallArray calls the named array function.
func (obj *Registry) CallArray(name string, args []types.Value) (types.Value, error) {
	fn, exists := obj.array[name]
	if !exists {
		return nil, &vm.FunctionNotFoundError{Name: name}
	}
	return fn(args)
}

// CallDict calls the named dictionary function.
func (obj *Registry) CallDict(name string, args map[string]types.Value) (types.Value, error) {
	fn, exists := obj.dict[name]
	if !exists {
		return nil, &vm.FunctionNotFoundError{Name: name}
	}
	return fn(args)
}

// Bind points the function lookups of the machine at this registry.
func (obj *Registry) Bind(m *vm.Machine) {
	m.ArrayFuncLookup = obj.CallArray
	m.DictFuncLookup = obj.CallDict
}

// Arity returns an error unless exactly n args were passed.
func Arity(name string, args []types.Value, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s expects %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

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
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/purpleidea/propsheet/util/errwrap"
)

// Value represents an interface to get values out of each variant. It is
// similar to the reflection interfaces used in the golang standard library.
// Values are immutable once built. The unchecked accessors panic when called
// on the wrong kind, so untrusted data should go through the As* casts.
type Value interface {
	fmt.Stringer // String() string (canonical literal form)
	Kind() Kind
	Cmp(Value) error // error if the two values aren't the same
	Copy() Value     // returns a deep copy of this value
	Value() interface{}
	Bool() bool
	Number() float64
	Str() string
	Name() string
	List() []Value
	Dict() map[string]Value
	Custom() interface{}
}

// Equaler can be implemented by the payload of a custom value to control how
// two custom values are compared.
type Equaler interface {
	Equal(interface{}) bool
}

// Equal returns true if both values are structurally identical. Comparing two
// values of different kinds is never an error, it's simply false.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return KindOf(a) == KindEmpty && KindOf(b) == KindEmpty
	}
	return a.Cmp(b) == nil
}

// base implements the missing methods that all variants need.
type base struct{}

// Bool represents the value as a bool if it is one. If this is not a bool,
// then this panics.
func (obj *base) Bool() bool {
	panic("not a bool")
}

// Number represents the value as a float64 if it is one. If this is not a
// number, then this panics.
func (obj *base) Number() float64 {
	panic("not a number")
}

// Str represents the value as a string if it is one. If this is not a string,
// then this panics.
func (obj *base) Str() string {
	panic("not a string")
}

// Name represents the value as an identifier if it is one. If this is not a
// name, then this panics.
func (obj *base) Name() string {
	panic("not a name")
}

// List represents the value as a list if it is one. If this is not a list, then
// this panics.
func (obj *base) List() []Value {
	panic("not an array")
}

// Dict represents the value as a dictionary if it is one. If this is not a
// dictionary, then this panics.
func (obj *base) Dict() map[string]Value {
	panic("not a dictionary")
}

// Custom represents the payload of a custom value. If this is not a custom
// value, then this panics.
func (obj *base) Custom() interface{} {
	panic("not a custom value")
}

// cmpKind is the common prologue of every Cmp implementation.
func cmpKind(a Value, b Value) error {
	if b == nil {
		return fmt.Errorf("cannot cmp to nil")
	}
	if a.Kind() != b.Kind() {
		return fmt.Errorf("kinds differ: %s != %s", a.Kind(), b.Kind())
	}
	return nil
}

// EmptyValue represents the empty value. All empty values are equal.
type EmptyValue struct {
	base
}

// NewEmpty creates a new empty value.
func NewEmpty() *EmptyValue { return &EmptyValue{} }

// String returns a visual representation of this value.
func (obj *EmptyValue) String() string { return "empty" }

// Kind returns the kind of this value.
func (obj *EmptyValue) Kind() Kind { return KindEmpty }

// Cmp returns an error if this value isn't the same as the arg passed in.
func (obj *EmptyValue) Cmp(val Value) error {
	if val == nil { // a nil Value is empty too
		return nil
	}
	return cmpKind(obj, val)
}

// Copy returns a copy of this value.
func (obj *EmptyValue) Copy() Value { return &EmptyValue{} }

// Value returns the raw value of this type.
func (obj *EmptyValue) Value() interface{} { return nil }

// BoolValue represents a boolean value.
type BoolValue struct {
	base
	V bool
}

// NewBool creates a new boolean value.
func NewBool(b bool) *BoolValue { return &BoolValue{V: b} }

// String returns a visual representation of this value.
func (obj *BoolValue) String() string {
	return strconv.FormatBool(obj.V) // true or false
}

// Kind returns the kind of this value.
func (obj *BoolValue) Kind() Kind { return KindBool }

// Cmp returns an error if this value isn't the same as the arg passed in.
func (obj *BoolValue) Cmp(val Value) error {
	if err := cmpKind(obj, val); err != nil {
		return err
	}
	if obj.V != val.Bool() {
		return fmt.Errorf("values are different")
	}
	return nil
}

// Copy returns a copy of this value.
func (obj *BoolValue) Copy() Value { return &BoolValue{V: obj.V} }

// Value returns the raw value of this type.
func (obj *BoolValue) Value() interface{} { return obj.V }

// Bool represents the value of this type as a bool.
func (obj *BoolValue) Bool() bool { return obj.V }

// NumberValue represents a number. All numbers are double precision floats.
type NumberValue struct {
	base
	V float64
}

// NewNumber creates a new number value.
func NewNumber(f float64) *NumberValue { return &NumberValue{V: f} }

// String returns a visual representation of this value. Integral values print
// without a decimal point.
func (obj *NumberValue) String() string {
	if obj.V == 0 { // includes negative zero
		return "0"
	}
	return strconv.FormatFloat(obj.V, 'g', -1, 64)
}

// Kind returns the kind of this value.
func (obj *NumberValue) Kind() Kind { return KindNumber }

// Cmp returns an error if this value isn't the same as the arg passed in.
func (obj *NumberValue) Cmp(val Value) error {
	if err := cmpKind(obj, val); err != nil {
		return err
	}
	if x := val.Number(); obj.V != x {
		if math.IsNaN(obj.V) && math.IsNaN(x) {
			return nil // structurally identical
		}
		return fmt.Errorf("values are different")
	}
	return nil
}

// Copy returns a copy of this value.
func (obj *NumberValue) Copy() Value { return &NumberValue{V: obj.V} }

// Value returns the raw value of this type.
func (obj *NumberValue) Value() interface{} { return obj.V }

// Number represents the value of this type as a float64.
func (obj *NumberValue) Number() float64 { return obj.V }

// StrValue represents a string value.
type StrValue struct {
	base
	V string
}

// NewStr creates a new string value.
func NewStr(s string) *StrValue { return &StrValue{V: s} }

// String returns a visual representation of this value.
func (obj *StrValue) String() string {
	return strconv.Quote(obj.V) // wraps in quotes, escapes the rest
}

// Kind returns the kind of this value.
func (obj *StrValue) Kind() Kind { return KindStr }

// Cmp returns an error if this value isn't the same as the arg passed in.
func (obj *StrValue) Cmp(val Value) error {
	if err := cmpKind(obj, val); err != nil {
		return err
	}
	if obj.V != val.Str() {
		return fmt.Errorf("values are different")
	}
	return nil
}

// Copy returns a copy of this value.
func (obj *StrValue) Copy() Value { return &StrValue{V: obj.V} }

// Value returns the raw value of this type.
func (obj *StrValue) Value() interface{} { return obj.V }

// Str represents the value of this type as a string.
func (obj *StrValue) Str() string { return obj.V }

// NameValue represents an identifier such as @place_row. Two names are equal
// if their spelling is equal.
type NameValue struct {
	base
	V string
}

// NewName creates a new name value.
func NewName(s string) *NameValue { return &NameValue{V: s} }

// String returns a visual representation of this value.
func (obj *NameValue) String() string { return "@" + obj.V }

// Kind returns the kind of this value.
func (obj *NameValue) Kind() Kind { return KindName }

// Cmp returns an error if this value isn't the same as the arg passed in.
func (obj *NameValue) Cmp(val Value) error {
	if err := cmpKind(obj, val); err != nil {
		return err
	}
	if obj.V != val.Name() {
		return fmt.Errorf("names are different: @%s != @%s", obj.V, val.Name())
	}
	return nil
}

// Copy returns a copy of this value.
func (obj *NameValue) Copy() Value { return &NameValue{V: obj.V} }

// Value returns the raw value of this type.
func (obj *NameValue) Value() interface{} { return obj.V }

// Name represents the value of this type as an identifier.
func (obj *NameValue) Name() string { return obj.V }

// ListValue represents an ordered sequence of values. Elements may be of mixed
// kinds.
type ListValue struct {
	base
	V []Value
}

// NewList creates a new list value containing the given elements.
func NewList(values ...Value) *ListValue {
	if values == nil {
		values = []Value{}
	}
	return &ListValue{V: values}
}

// String returns a visual representation of this value.
func (obj *ListValue) String() string {
	var s []string
	for _, x := range obj.V {
		s = append(s, x.String())
	}
	return "[" + strings.Join(s, ", ") + "]"
}

// Kind returns the kind of this value.
func (obj *ListValue) Kind() Kind { return KindList }

// Cmp returns an error if this value isn't the same as the arg passed in.
func (obj *ListValue) Cmp(val Value) error {
	if err := cmpKind(obj, val); err != nil {
		return err
	}
	cmp := val.List()
	if len(obj.V) != len(cmp) {
		return fmt.Errorf("lists have different lengths")
	}
	for i := range obj.V {
		if err := obj.V[i].Cmp(cmp[i]); err != nil {
			return errwrap.Wrapf(err, "index %d did not cmp", i)
		}
	}
	return nil
}

// Copy returns a copy of this value.
func (obj *ListValue) Copy() Value {
	v := []Value{}
	for _, x := range obj.V {
		v = append(v, x.Copy())
	}
	return &ListValue{V: v}
}

// Value returns the raw value of this type.
func (obj *ListValue) Value() interface{} {
	out := []interface{}{}
	for _, x := range obj.V {
		out = append(out, x.Value())
	}
	return out
}

// List represents the value of this type as a list.
func (obj *ListValue) List() []Value { return obj.V }

// DictValue represents a mapping from identifier to value. Keys are unique and
// their order is irrelevant. They're printed in sorted order.
type DictValue struct {
	base
	V map[string]Value
}

// NewDict creates a new empty dictionary value.
func NewDict() *DictValue { return &DictValue{V: make(map[string]Value)} }

// Keys returns the sorted list of keys in the dictionary.
func (obj *DictValue) Keys() []string {
	keys := []string{}
	for k := range obj.V {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Add adds a key and value to this dictionary. It errors if the key already
// exists. This mutates the value and must only be used while building it.
func (obj *DictValue) Add(key string, val Value) error {
	if _, exists := obj.V[key]; exists {
		return fmt.Errorf("duplicate key @%s", key)
	}
	obj.V[key] = val
	return nil
}

// Lookup returns the value stored at key, and whether it exists.
func (obj *DictValue) Lookup(key string) (Value, bool) {
	v, exists := obj.V[key]
	return v, exists
}

// String returns a visual representation of this value.
func (obj *DictValue) String() string {
	var s []string
	for _, k := range obj.Keys() {
		s = append(s, fmt.Sprintf("%s: %s", k, obj.V[k].String()))
	}
	return "{" + strings.Join(s, ", ") + "}"
}

// Kind returns the kind of this value.
func (obj *DictValue) Kind() Kind { return KindDict }

// Cmp returns an error if this value isn't the same as the arg passed in.
func (obj *DictValue) Cmp(val Value) error {
	if err := cmpKind(obj, val); err != nil {
		return err
	}
	cmp := val.Dict()
	if len(obj.V) != len(cmp) {
		return fmt.Errorf("dictionaries have different lengths")
	}
	for k, v := range obj.V {
		x, exists := cmp[k]
		if !exists {
			return fmt.Errorf("key @%s is missing", k)
		}
		if err := v.Cmp(x); err != nil {
			return errwrap.Wrapf(err, "key @%s did not cmp", k)
		}
	}
	return nil
}

// Copy returns a copy of this value.
func (obj *DictValue) Copy() Value {
	m := make(map[string]Value, len(obj.V))
	for k, v := range obj.V {
		m[k] = v.Copy()
	}
	return &DictValue{V: m}
}

// Value returns the raw value of this type.
func (obj *DictValue) Value() interface{} {
	out := make(map[string]interface{}, len(obj.V))
	for k, v := range obj.V {
		out[k] = v.Value()
	}
	return out
}

// Dict represents the value of this type as a dictionary.
func (obj *DictValue) Dict() map[string]Value { return obj.V }

// CustomValue holds an opaque host-injected payload such as an image handle.
type CustomValue struct {
	base
	V interface{}
}

// NewCustom creates a new custom value around the payload.
func NewCustom(payload interface{}) *CustomValue { return &CustomValue{V: payload} }

// String returns a visual representation of this value. Custom values have no
// literal syntax.
func (obj *CustomValue) String() string {
	return fmt.Sprintf("<custom %T>", obj.V)
}

// Kind returns the kind of this value.
func (obj *CustomValue) Kind() Kind { return KindCustom }

// Cmp returns an error if this value isn't the same as the arg passed in.
func (obj *CustomValue) Cmp(val Value) error {
	if err := cmpKind(obj, val); err != nil {
		return err
	}
	other := val.Custom()
	if eq, ok := obj.V.(Equaler); ok {
		if !eq.Equal(other) {
			return fmt.Errorf("custom values are different")
		}
		return nil
	}
	if reflect.TypeOf(obj.V) != reflect.TypeOf(other) || !reflect.DeepEqual(obj.V, other) {
		return fmt.Errorf("custom values are different")
	}
	return nil
}

// Copy returns a copy of this value. The payload is shared, since it is opaque
// to us and the host owns it.
func (obj *CustomValue) Copy() Value { return &CustomValue{V: obj.V} }

// Value returns the raw value of this type.
func (obj *CustomValue) Value() interface{} { return obj.V }

// Custom represents the payload of this value.
func (obj *CustomValue) Custom() interface{} { return obj.V }

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

// Package json converts expression values to and from JSON. The mapping is
// lossy in one direction: names are encoded as strings with a leading @ sign
// and custom values cannot be encoded at all.
package json

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/purpleidea/propsheet/lang/types"
	"github.com/purpleidea/propsheet/util/errwrap"
)

// ValueOfJSON takes a string containing some JSON and returns the equivalent
// types.Value. Objects become dictionaries, arrays become lists, null becomes
// empty and every number becomes a double.
func ValueOfJSON(data string) (types.Value, error) {
	var v interface{}
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber() // to preserve number precision
	if err := dec.Decode(&v); err != nil {
		return nil, errwrap.Wrapf(err, "invalid JSON")
	}
	return convertJSON(v)
}

// convertJSON is the recursive helper that takes the parsed json data.
func convertJSON(val interface{}) (types.Value, error) {
	switch v := val.(type) {
	case nil:
		return types.NewEmpty(), nil

	case bool:
		return types.NewBool(v), nil

	case string:
		return types.NewStr(v), nil

	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, errwrap.Wrapf(err, "num doesn't contain a float64")
		}
		return types.NewNumber(f), nil

	case []interface{}:
		values := []types.Value{}
		for i, x := range v {
			vv, err := convertJSON(x) // recurse
			if err != nil {
				return nil, errwrap.Wrapf(err, "index %d", i)
			}
			values = append(values, vv)
		}
		return types.NewList(values...), nil

	case map[string]interface{}:
		d := types.NewDict()
		for k, x := range v {
			vv, err := convertJSON(x) // recurse
			if err != nil {
				return nil, errwrap.Wrapf(err, "key %s", k)
			}
			d.V[k] = vv
		}
		return d, nil
	}
	return nil, fmt.Errorf("unexpected JSON data of type %T", val)
}

// JSONOfValue encodes a value as JSON. Dictionary keys are sorted so that the
// output is stable.
func JSONOfValue(value types.Value) (string, error) {
	var b strings.Builder
	if err := encode(&b, value); err != nil {
		return "", err
	}
	return b.String(), nil
}

func encode(b *strings.Builder, value types.Value) error {
	switch types.KindOf(value) {
	case types.KindEmpty:
		b.WriteString("null")
		return nil

	case types.KindName:
		return marshal(b, "@"+value.Name())

	case types.KindList:
		b.WriteString("[")
		for i, x := range value.List() {
			if i > 0 {
				b.WriteString(",")
			}
			if err := encode(b, x); err != nil { // recurse
				return err
			}
		}
		b.WriteString("]")
		return nil

	case types.KindDict:
		m := value.Dict()
		keys := []string{}
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("{")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(",")
			}
			if err := marshal(b, k); err != nil {
				return err
			}
			b.WriteString(":")
			if err := encode(b, m[k]); err != nil { // recurse
				return errwrap.Wrapf(err, "key %s", k)
			}
		}
		b.WriteString("}")
		return nil

	case types.KindCustom:
		return fmt.Errorf("custom values can't be encoded as JSON")
	}

	// bool, number and string share the stdlib encoding
	return marshal(b, value.Value())
}

func marshal(b *strings.Builder, v interface{}) error {
	out, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b.Write(out)
	return nil
}

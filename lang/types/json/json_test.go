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

//go:build !root

package json

import (
	"fmt"
	"math"
	"testing"

	"github.com/purpleidea/propsheet/lang/types"
)

func TestValueOfJSON0(t *testing.T) {
	for _, s := range []string{"", "{", `{"a": }`} {
		if _, err := ValueOfJSON(s); err == nil {
			t.Errorf("expected an error for: %s", s)
		}
	}
}

func TestValueOfJSON1(t *testing.T) {
	testCases := []struct {
		json string
		exp  string // canonical value form
	}{
		{`null`, `empty`},
		{`true`, `true`},
		{`42`, `42`},
		{`-1.5`, `-1.5`},
		{`"hello"`, `"hello"`},
		{`[]`, `[]`},
		{`[1, "two", false, null]`, `[1, "two", false, empty]`},
		{`{"width": 100, "name": "OK"}`, `{name: "OK", width: 100}`},
		{`{"nested": {"list": [[1], []]}}`, `{nested: {list: [[1], []]}}`},
	}
	for index, tc := range testCases {
		t.Run(fmt.Sprintf("test #%d", index), func(t *testing.T) {
			v, err := ValueOfJSON(tc.json)
			if err != nil {
				t.Errorf("unexpected error: %+v", err)
				return
			}
			if s := v.String(); s != tc.exp {
				t.Errorf("expected: %s, got: %s", tc.exp, s)
			}
		})
	}
}

func TestJSONOfValue1(t *testing.T) {
	d := types.NewDict()
	d.Add("b", types.NewList(types.NewNumber(1), types.NewName("x")))
	d.Add("a", types.NewStr("q\"uote"))
	d.Add("c", types.NewEmpty())

	s, err := JSONOfValue(d)
	if err != nil {
		t.Errorf("unexpected error: %+v", err)
		return
	}
	if exp := `{"a":"q\"uote","b":[1,"@x"],"c":null}`; s != exp {
		t.Errorf("expected: %s, got: %s", exp, s)
	}

	if _, err := JSONOfValue(types.NewCustom(42)); err == nil {
		t.Errorf("expected an error for a custom value")
	}
	if _, err := JSONOfValue(types.NewNumber(math.Inf(1))); err == nil {
		t.Errorf("expected an error for infinity")
	}
}

func TestRoundTrip1(t *testing.T) {
	v := types.MustValueOfGolang(map[string]interface{}{
		"list": []interface{}{1, "two", true, nil},
		"dict": map[string]interface{}{"x": 1.25},
	})
	s, err := JSONOfValue(v)
	if err != nil {
		t.Errorf("unexpected error: %+v", err)
		return
	}
	out, err := ValueOfJSON(s)
	if err != nil {
		t.Errorf("unexpected error: %+v", err)
		return
	}
	if err := v.Cmp(out); err != nil {
		t.Errorf("round trip differs: %+v", err)
	}
}

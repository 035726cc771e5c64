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

package util

import (
	"reflect"
	"testing"
)

func TestStrInList1(t *testing.T) {
	if !StrInList("b", []string{"a", "b", "c"}) {
		t.Errorf("expected to find b")
	}
	if StrInList("z", []string{"a", "b", "c"}) {
		t.Errorf("did not expect to find z")
	}
	if StrInList("", nil) {
		t.Errorf("did not expect to find anything in nil")
	}
}

func TestStrRemoveDuplicatesInList1(t *testing.T) {
	in := []string{"a", "b", "a", "c", "b", "d"}
	out := []string{"a", "b", "c", "d"}
	if got := StrRemoveDuplicatesInList(in); !reflect.DeepEqual(got, out) {
		t.Errorf("got: %v, expected: %v", got, out)
	}
}

func TestStrSetSorted1(t *testing.T) {
	set := map[string]struct{}{
		"zeta":  {},
		"alpha": {},
		"mu":    {},
	}
	exp := []string{"alpha", "mu", "zeta"}
	if got := StrSetSorted(set); !reflect.DeepEqual(got, exp) {
		t.Errorf("got: %v, expected: %v", got, exp)
	}
	if got := StrSetSorted(nil); got == nil || len(got) != 0 {
		t.Errorf("expected an empty, non-nil list, got: %#v", got)
	}
}

func TestError1(t *testing.T) {
	const e = Error("some constant error")
	var err error = e
	if err.Error() != "some constant error" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

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

package recwatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileWatcher1(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "model.adm")
	other := filepath.Join(dir, "other.adm")
	if err := os.WriteFile(file, []byte("sheet a {\n}\n"), 0644); err != nil {
		t.Errorf("write failed: %+v", err)
		return
	}

	w, err := NewFileWatcher([]string{file}, Debug(testing.Verbose()), Logf(func(format string, v ...interface{}) {
		t.Logf("recwatch: "+format, v...)
	}))
	if err != nil {
		t.Errorf("init failed: %+v", err)
		return
	}
	defer w.Close()

	// changes to neighbours are ignored
	if err := os.WriteFile(other, []byte("x"), 0644); err != nil {
		t.Errorf("write failed: %+v", err)
		return
	}
	if err := os.WriteFile(file, []byte("sheet b {\n}\n"), 0644); err != nil {
		t.Errorf("write failed: %+v", err)
		return
	}

	select {
	case event := <-w.Events():
		if event.Error != nil {
			t.Errorf("watch failed: %+v", event.Error)
			return
		}
		if event.Body.Name != file {
			t.Errorf("event for the wrong file: %s", event.Body.Name)
		}
	case <-time.After(10 * time.Second):
		t.Errorf("timeout waiting for an event")
	}
}

func TestFileWatcher2(t *testing.T) {
	if _, err := NewFileWatcher(nil); err == nil {
		t.Errorf("expected an error with no paths")
	}
	if _, err := NewFileWatcher([]string{"/does/not/exist/at/all/x.adm"}); err == nil {
		t.Errorf("expected an error for a missing directory")
	}
	if _, err := NewFileWatcher([]string{"x"}, Logf(nil)); err == nil {
		t.Errorf("expected an error for a nil logf")
	}
}

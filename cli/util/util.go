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

// Package util has some CLI related utility code.
package util

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/purpleidea/propsheet/lang/parser"
	"github.com/purpleidea/propsheet/lang/types"
	"github.com/purpleidea/propsheet/util/errwrap"

	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
)

// Error is a constant error type that implements error.
type Error string

// Error fulfills the error interface of this type.
func (e Error) Error() string { return string(e) }

const (
	// MissingEquals means a --set flag had no equals sign.
	MissingEquals = Error("missing equals sign in assignment")

	// NoInput means there was no file and stdin is a terminal.
	NoInput = Error("no input file and stdin is a terminal")
)

// Stdin is the name which reads from standard input.
const Stdin = "-"

// CliParseError returns a consistent error if we have a CLI parsing issue.
func CliParseError(err error) error {
	return errwrap.Wrapf(err, "cli parse error")
}

// Flags are some constant flags which are used throughout the program.
type Flags struct {
	Debug bool // add additional log messages
	Logf  func(format string, v ...interface{})
}

// Data is a struct of values that we usually pass to the main CLI function.
type Data struct {
	Program string
	Version string
	Tagline string
	Flags   Flags
	Args    []string // os.Args usually

	Fs     afero.Fs
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// ReadInput returns the contents of the named file, or of stdin if the name
// is empty or a dash. Reading an interactive terminal is refused, since that
// is almost always a forgotten argument.
func ReadInput(data *Data, name string) ([]byte, error) {
	if name != "" && name != Stdin {
		b, err := afero.ReadFile(data.Fs, name)
		if err != nil {
			return nil, errwrap.Wrapf(err, "could not read %s", name)
		}
		return b, nil
	}
	if f, ok := data.Stdin.(*os.File); ok {
		if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
			return nil, NoInput
		}
	}
	b, err := io.ReadAll(data.Stdin)
	if err != nil {
		return nil, errwrap.Wrapf(err, "could not read stdin")
	}
	return b, nil
}

// WriteOutput writes the contents to the named file, or to stdout if the name
// is empty or a dash.
func WriteOutput(data *Data, name string, contents []byte) error {
	if name != "" && name != Stdin {
		if err := afero.WriteFile(data.Fs, name, contents, 0644); err != nil {
			return errwrap.Wrapf(err, "could not write %s", name)
		}
		return nil
	}
	_, err := data.Stdout.Write(contents)
	return err
}

// ParseAssignments parses a list of name=expr strings. Each expression must be
// a constant.
func ParseAssignments(list []string) ([]string, map[string]types.Value, error) {
	names := []string{}
	values := make(map[string]types.Value)
	for _, x := range list {
		split := strings.SplitN(x, "=", 2)
		if len(split) != 2 {
			return nil, nil, errwrap.Wrapf(MissingEquals, "%s", x)
		}
		name := strings.TrimSpace(split[0])
		v, err := parser.ParseValue(split[1])
		if err != nil {
			return nil, nil, errwrap.Wrapf(err, "value of %s", name)
		}
		if _, exists := values[name]; !exists {
			names = append(names, name)
		}
		values[name] = v
	}
	return names, values, nil
}

// Hello is a simple helper function to log a hello message.
func Hello(data *Data) {
	program := data.Program
	if program == "" {
		program = "<unknown>"
	}
	if data.Flags.Debug {
		data.Flags.Logf("main: this is: %s, version: %s", program, data.Version)
	}
}

// SafeProgram returns the correct program string when given a buggy variant.
func SafeProgram(program string) string {
	return strings.Split(program, " ")[0]
}

// String returns a short description for log messages.
func (obj *Data) String() string {
	return fmt.Sprintf("%s %s", obj.Program, obj.Version)
}

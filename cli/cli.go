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

// Package cli handles all of the core command line parsing. It's the first
// entry point after the real main function, and it imports and calls the
// packages which do the work.
package cli

import (
	"context"
	"fmt"

	cliUtil "github.com/purpleidea/propsheet/cli/util"
	"github.com/purpleidea/propsheet/util/errwrap"

	"github.com/alexflint/go-arg"
	"github.com/sanity-io/litter"
)

// CLI is the entry point for using propsheet normally from the CLI.
func CLI(ctx context.Context, data *cliUtil.Data) error {
	// test for sanity
	if data == nil {
		return fmt.Errorf("this CLI was not run correctly")
	}
	if data.Program == "" || data.Version == "" {
		return fmt.Errorf("program was not compiled correctly")
	}

	args := Args{}
	args.version = data.Version // copy this in
	args.description = data.Tagline

	config := arg.Config{
		Program: cliUtil.SafeProgram(data.Program),
		Out:     data.Stdout,
	}
	parser, err := arg.NewParser(config, &args)
	if err != nil {
		// programming error
		return errwrap.Wrapf(err, "cli config error")
	}
	err = parser.Parse(data.Args[1:])
	if err == arg.ErrHelp {
		parser.WriteHelp(data.Stdout)
		return nil
	}
	if err == arg.ErrVersion {
		fmt.Fprintf(data.Stdout, "%s\n", data.Version) // byon: bring your own newline
		return nil
	}
	if err != nil {
		return cliUtil.CliParseError(err) // consistent errors
	}

	if args.Debug {
		data.Flags.Debug = true
	}
	if data.Flags.Logf == nil {
		data.Flags.Logf = func(format string, v ...interface{}) {} // noop
	}
	cliUtil.Hello(data)

	if ok, err := args.Run(ctx, data); err != nil {
		return err
	} else if ok { // did we activate one of the commands?
		return nil
	}

	// print help if no subcommands are set
	parser.WriteHelp(data.Stdout)

	return nil
}

// Args is the CLI parsing structure and type of the parsed result. This
// particular struct is the top-most one.
type Args struct {
	Debug bool `arg:"--debug,env:PROPSHEET_DEBUG" help:"add additional log messages"`

	TidyCmd *TidyArgs `arg:"subcommand:tidy" help:"print a sheet or a layout in canonical form"`

	EvalCmd *EvalArgs `arg:"subcommand:eval" help:"evaluate a sheet and print its cells"`

	SolveCmd *SolveArgs `arg:"subcommand:solve" help:"solve a layout and print the places"`

	// version is a private handle for our version string.
	version string `arg:"-"` // ignored from parsing

	// description is a private handle for our description string.
	description string `arg:"-"` // ignored from parsing
}

// Version returns the version string. Implementing this signature is part of
// the API for the cli library.
func (obj *Args) Version() string {
	return obj.version
}

// Description returns a description string. Implementing this signature is part
// of the API for the cli library.
func (obj *Args) Description() string {
	return obj.description
}

// Run executes the correct subcommand. It errors if there's ever an error. It
// returns true if we did activate one of the subcommands. It returns false if
// we did not. This information is used so that the top-level parser can return
// usage or help information if no subcommand activates.
func (obj *Args) Run(ctx context.Context, data *cliUtil.Data) (bool, error) {
	if cmd := obj.TidyCmd; cmd != nil {
		return cmd.Run(ctx, data)
	}

	if cmd := obj.EvalCmd; cmd != nil {
		return cmd.Run(ctx, data)
	}

	if cmd := obj.SolveCmd; cmd != nil {
		return cmd.Run(ctx, data)
	}

	return false, nil // nobody activated
}

// dump logs a parsed definition when debugging.
func dump(data *cliUtil.Data, what string, x interface{}) {
	if !data.Flags.Debug {
		return
	}
	lo := &litter.Options{
		StripPackageNames: true,
		HidePrivateFields: true,
		HideZeroValues:    true,
	}
	data.Flags.Logf("%s: %s", what, lo.Sdump(x))
}

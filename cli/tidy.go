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

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	cliUtil "github.com/purpleidea/propsheet/cli/util"
	"github.com/purpleidea/propsheet/lang/ast"
	"github.com/purpleidea/propsheet/lang/parser"
	"github.com/purpleidea/propsheet/util"
	"github.com/purpleidea/propsheet/util/errwrap"
	"github.com/purpleidea/propsheet/util/recwatch"
)

// TidyArgs is the CLI parsing structure and type of the parsed result. This
// particular one contains the two kinds of files that `tidy` understands.
type TidyArgs struct {
	TidySheet  *cliUtil.TidyFileArgs `arg:"subcommand:sheet" help:"tidy a property sheet"`
	TidyLayout *cliUtil.TidyFileArgs `arg:"subcommand:layout" help:"tidy a layout"`
}

// Run executes the correct subcommand. It errors if there's ever an error. It
// returns true if we did activate one of the subcommands. It returns false if
// we did not. The input is parsed and printed back in canonical form, which
// parses to the same definition.
func (obj *TidyArgs) Run(ctx context.Context, data *cliUtil.Data) (bool, error) {
	var name string
	var args *cliUtil.TidyFileArgs
	if cmd := obj.TidySheet; cmd != nil {
		name = cliUtil.LookupSubcommand(obj, cmd) // "sheet"
		args = cmd
	}
	if cmd := obj.TidyLayout; cmd != nil {
		name = cliUtil.LookupSubcommand(obj, cmd) // "layout"
		args = cmd
	}
	if args == nil {
		return false, nil // did not activate
	}
	Logf := util.LogfPrefix(data.Flags.Logf, "tidy: ")

	tidy := func() error {
		src, err := cliUtil.ReadInput(data, args.Input)
		if err != nil {
			return err
		}
		out, err := tidyText(data, name, string(src), args.Tokens)
		if err != nil {
			return err
		}
		return cliUtil.WriteOutput(data, args.Output, []byte(out))
	}
	if err := tidy(); err != nil && !args.Watch {
		return false, err
	} else if err != nil {
		Logf("error: %v", err)
	}
	if !args.Watch {
		return true, nil
	}
	if args.Input == "" || args.Input == cliUtil.Stdin {
		return false, fmt.Errorf("can't watch stdin")
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	watcher, err := recwatch.NewFileWatcher([]string{args.Input}, recwatch.Debug(data.Flags.Debug), recwatch.Logf(Logf))
	if err != nil {
		return false, err
	}
	defer watcher.Close()
	Logf("watching %s", args.Input)
	for {
		select {
		case event, ok := <-watcher.Events():
			if !ok {
				return true, nil
			}
			if err := event.Error; err != nil {
				return false, errwrap.Wrapf(err, "watch failed")
			}
			if err := tidy(); err != nil {
				Logf("error: %v", err) // keep watching for a fix
				continue
			}
			Logf("tidied %s", args.Input)

		case <-ctx.Done():
			return true, nil
		}
	}
}

// tidyText parses a sheet or layout and prints it in canonical form, or as
// the compiled instructions if tokens is set.
func tidyText(data *cliUtil.Data, name, src string, tokens bool) (string, error) {
	switch name {
	case "sheet":
		def, err := parser.ParseSheet(src)
		if err != nil {
			return "", err
		}
		dump(data, "sheet", def)
		if tokens {
			return parser.PrintTokens(def.Decls), nil
		}
		return parser.PrintSheet(def)

	case "layout":
		def, err := parser.ParseLayout(src)
		if err != nil {
			return "", err
		}
		dump(data, "layout", def)
		if tokens {
			out := parser.PrintTokens(def.Sheet.Decls)
			err := def.Root.Walk(func(v *ast.View) error {
				out += fmt.Sprintf("view %s (line %d):\n", v.Kind, v.Line)
				if v.Args != nil {
					out += v.Args.String() + "\n"
				}
				return nil
			})
			return out, err
		}
		return parser.PrintLayout(def)
	}
	return "", fmt.Errorf("unknown kind %s", name)
}

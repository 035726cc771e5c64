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

	cliUtil "github.com/purpleidea/propsheet/cli/util"
	"github.com/purpleidea/propsheet/eve"
	"github.com/purpleidea/propsheet/lang/parser"
	"github.com/purpleidea/propsheet/lang/sheet"
	"github.com/purpleidea/propsheet/util"
	"github.com/purpleidea/propsheet/util/errwrap"

	yaml "gopkg.in/yaml.v2"
)

// SolveArgs is the CLI parsing structure and type of the parsed result. This
// particular one contains all the flags for the `solve` subcommand.
type SolveArgs struct {
	Input string `arg:"positional" help:"layout file, stdin if missing"`

	Width  float64 `arg:"--width" help:"width of the area to fill"`
	Height float64 `arg:"--height" help:"height of the area to fill"`

	// Model is a property sheet that the view arguments can reference.
	Model string `arg:"--model" help:"property sheet file to bind"`

	cliUtil.SetArgs
}

// SolveOutput is what the solve command prints.
type SolveOutput struct {
	Layout string        `yaml:"layout"`
	Places []*eve.Result `yaml:"places"`
}

// Run executes the solve command.
func (obj *SolveArgs) Run(ctx context.Context, data *cliUtil.Data) (bool, error) {
	Logf := util.LogfPrefix(data.Flags.Logf, "solve: ")

	src, err := cliUtil.ReadInput(data, obj.Input)
	if err != nil {
		return false, err
	}
	def, err := parser.ParseLayout(string(src))
	if err != nil {
		return false, err
	}
	dump(data, "layout", def)

	names, values, err := cliUtil.ParseAssignments(obj.Set)
	if err != nil {
		return false, cliUtil.CliParseError(err)
	}
	if obj.Model == "" && len(names) > 0 {
		return false, fmt.Errorf("--set needs a --model")
	}

	var model *sheet.Sheet
	if obj.Model != "" {
		msrc, err := cliUtil.ReadInput(data, obj.Model)
		if err != nil {
			return false, err
		}
		mdef, err := parser.ParseSheet(string(msrc))
		if err != nil {
			return false, errwrap.Wrapf(err, "model %s", obj.Model)
		}
		model, err = sheet.New(mdef, &sheet.Options{
			Debug: data.Flags.Debug,
			Logf:  util.LogfPrefix(Logf, "model: "),
		})
		if err != nil {
			return false, errwrap.Wrapf(err, "model %s", obj.Model)
		}
		for _, name := range names {
			if err := model.Set(name, values[name]); err != nil {
				return false, err
			}
		}
		if err := model.Update(); err != nil {
			return false, errwrap.Wrapf(err, "model %s", obj.Model)
		}
	}

	layout, err := eve.New(def, &eve.Options{
		Bound: model,
		Debug: data.Flags.Debug,
		Logf:  util.LogfPrefix(Logf, "layout: "),
	})
	if err != nil {
		return false, err
	}
	defer layout.Close()

	places, err := layout.Solve(obj.Width, obj.Height)
	if err != nil {
		return false, err
	}
	out, err := yaml.Marshal(&SolveOutput{
		Layout: layout.Name(),
		Places: places,
	})
	if err != nil {
		return false, errwrap.Wrapf(err, "could not encode output")
	}
	return true, cliUtil.WriteOutput(data, "", out)
}

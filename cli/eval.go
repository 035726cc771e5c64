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
	"sort"

	cliUtil "github.com/purpleidea/propsheet/cli/util"
	"github.com/purpleidea/propsheet/lang/parser"
	"github.com/purpleidea/propsheet/lang/sheet"
	"github.com/purpleidea/propsheet/lang/types"
	"github.com/purpleidea/propsheet/lang/types/json"
	"github.com/purpleidea/propsheet/prometheus"
	"github.com/purpleidea/propsheet/scheduler"
	"github.com/purpleidea/propsheet/store"
	"github.com/purpleidea/propsheet/util"
	"github.com/purpleidea/propsheet/util/errwrap"

	yaml "gopkg.in/yaml.v2"
)

// EvalArgs is the CLI parsing structure and type of the parsed result. This
// particular one contains all the flags for the `eval` subcommand.
type EvalArgs struct {
	Input string `arg:"positional" help:"sheet file, stdin if missing"`

	cliUtil.SetArgs

	Inputs string `arg:"--inputs" help:"json file with an object of input values"`
	JSON   bool   `arg:"--json" help:"print only the cell values, as a json object"`

	Store   string `arg:"--store,env:PROPSHEET_STORE" help:"path of the input snapshot database"`
	Restore bool   `arg:"--restore" help:"start from the latest saved inputs"`
	Save    bool   `arg:"--save" help:"save the inputs after a successful update"`

	Invariants bool   `arg:"--check-invariants" help:"fail if an invariant doesn't hold"`
	Graphviz   string `arg:"--graphviz" help:"write the active dependency graph here"`

	PrometheusListen string `arg:"--prometheus-listen,env:PROPSHEET_PROMETHEUS_LISTEN" help:"serve update metrics on this address"`
}

// CellOutput is the printed state of a cell.
type CellOutput struct {
	Name         string   `yaml:"name"`
	Kind         string   `yaml:"kind"`
	State        string   `yaml:"state"`
	Value        string   `yaml:"value"`
	Contributing []string `yaml:"contributing,flow"`
}

// EvalOutput is what the eval command prints.
type EvalOutput struct {
	Sheet      string          `yaml:"sheet"`
	Cells      []*CellOutput   `yaml:"cells"`
	Invariants map[string]bool `yaml:"invariants,omitempty"`
	Skipped    []string        `yaml:"skipped,omitempty,flow"`
	Snapshot   string          `yaml:"snapshot,omitempty"`
}

// Run executes the eval command. It builds the sheet, sets the inputs, runs
// one update, and prints every cell as yaml.
func (obj *EvalArgs) Run(ctx context.Context, data *cliUtil.Data) (bool, error) {
	Logf := util.LogfPrefix(data.Flags.Logf, "eval: ")

	src, err := cliUtil.ReadInput(data, obj.Input)
	if err != nil {
		return false, err
	}
	names, values, err := obj.assignments(data)
	if err != nil {
		return false, err
	}
	def, err := parser.ParseSheet(string(src))
	if err != nil {
		return false, err
	}
	dump(data, "sheet", def)

	opts := &sheet.Options{
		Debug: data.Flags.Debug,
		Logf:  util.LogfPrefix(Logf, "sheet: "),
	}
	if obj.PrometheusListen != "" {
		prom := &prometheus.Prometheus{
			Listen: obj.PrometheusListen,
			Logf:   util.LogfPrefix(Logf, "prometheus: "),
		}
		if err := prom.Init(); err != nil {
			return false, errwrap.Wrapf(err, "can't initialize prometheus instance")
		}
		if err := prom.Start(); err != nil {
			return false, errwrap.Wrapf(err, "can't start prometheus instance")
		}
		defer prom.Stop()
		opts.Stats = prom
	}

	s, err := sheet.New(def, opts)
	if err != nil {
		return false, err
	}
	result, err := evaluate(data, s, names, values, obj, Logf)
	if err != nil {
		return false, err
	}

	if obj.JSON {
		dict := types.NewDict()
		for _, name := range s.Cells() {
			dict.V[name], _ = s.Get(name)
		}
		out, err := json.JSONOfValue(dict)
		if err != nil {
			return false, errwrap.Wrapf(err, "could not encode output")
		}
		return true, cliUtil.WriteOutput(data, "", []byte(out+"\n"))
	}
	out, err := yaml.Marshal(result)
	if err != nil {
		return false, errwrap.Wrapf(err, "could not encode output")
	}
	return true, cliUtil.WriteOutput(data, "", out)
}

// assignments returns the inputs to set, from the json file first and then
// from the --set flags, which win.
func (obj *EvalArgs) assignments(data *cliUtil.Data) ([]string, map[string]types.Value, error) {
	names, values, err := cliUtil.ParseAssignments(obj.Set)
	if err != nil {
		return nil, nil, cliUtil.CliParseError(err)
	}
	if obj.Inputs == "" {
		return names, values, nil
	}
	b, err := cliUtil.ReadInput(data, obj.Inputs)
	if err != nil {
		return nil, nil, err
	}
	v, err := json.ValueOfJSON(string(b))
	if err != nil {
		return nil, nil, errwrap.Wrapf(err, "inputs %s", obj.Inputs)
	}
	dict, err := types.AsDict(v)
	if err != nil {
		return nil, nil, errwrap.Wrapf(err, "inputs %s must be an object", obj.Inputs)
	}
	keys := []string{}
	for k := range dict {
		keys = append(keys, k)
		if _, exists := values[k]; !exists {
			values[k] = dict[k]
		}
	}
	sort.Strings(keys)
	// --set values win, but keep the name where the json put it
	return util.StrRemoveDuplicatesInList(append(keys, names...)), values, nil
}

// evaluate applies the inputs and updates the sheet. The sets are posted to a
// scheduler and pumped on this goroutine, the same way a host event loop
// would deliver them.
func evaluate(data *cliUtil.Data, s *sheet.Sheet, names []string, values map[string]types.Value, obj *EvalArgs, Logf func(format string, v ...interface{})) (*EvalOutput, error) {
	result := &EvalOutput{
		Sheet: s.Name(),
	}

	var db *store.Store
	if obj.Store != "" {
		var err error
		if db, err = store.Open(obj.Store); err != nil {
			return nil, err
		}
		defer db.Close()
		db.Debug = data.Flags.Debug
		db.Logf = util.LogfPrefix(Logf, "store: ")
	} else if obj.Restore || obj.Save {
		return nil, fmt.Errorf("--restore and --save need a --store")
	}
	if obj.Restore {
		skipped, err := db.Restore(s)
		if err != nil {
			return nil, err
		}
		result.Skipped = skipped
	}

	sched := &scheduler.Context{
		Debug: data.Flags.Debug,
		Logf:  util.LogfPrefix(Logf, "scheduler: "),
	}
	if err := sched.Init(); err != nil {
		return nil, err
	}
	var reterr error
	for _, name := range names {
		name, value := name, values[name]
		if err := sched.Post(func() {
			reterr = errwrap.Append(reterr, s.Set(name, value))
		}); err != nil {
			return nil, err
		}
	}
	if err := sched.Post(func() {
		if reterr == nil {
			reterr = s.Update()
		}
	}); err != nil {
		return nil, err
	}
	sched.Pump()
	if err := sched.Close(); err != nil {
		return nil, err
	}
	if reterr != nil {
		return nil, reterr
	}

	if obj.Invariants {
		if err := s.CheckInvariants(); err != nil {
			return nil, err
		}
	}
	if obj.Save {
		id, err := db.Save(s)
		if err != nil {
			return nil, err
		}
		result.Snapshot = id
	}
	if obj.Graphviz != "" {
		g := s.ActiveGraph()
		if err := cliUtil.WriteOutput(data, obj.Graphviz, []byte(g.Graphviz())); err != nil {
			return nil, err
		}
	}

	for _, name := range s.Cells() {
		kind, _ := s.Kind(name)
		state, _ := s.State(name)
		v, _ := s.Get(name)
		contributing, _ := s.Contributing(name)
		str, err := parser.PrintValue(v)
		if err != nil {
			str = v.String() // custom values only print
		}
		result.Cells = append(result.Cells, &CellOutput{
			Name:         name,
			Kind:         kind.String(),
			State:        state.String(),
			Value:        str,
			Contributing: contributing,
		})
	}
	if inv := s.Invariants(); len(inv) > 0 {
		result.Invariants = inv
	}
	return result, nil
}

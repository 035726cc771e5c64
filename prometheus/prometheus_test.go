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

package prometheus

import (
	"fmt"
	"testing"
	"time"

	"github.com/purpleidea/propsheet/lang/parser"
	"github.com/purpleidea/propsheet/lang/sheet"
	"github.com/purpleidea/propsheet/lang/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestInitMetrics tests that the metrics are created in our registry and
// that the labelled ones only appear once they are used.
func TestInitMetrics(t *testing.T) {
	prom := &Prometheus{}
	if err := prom.Init(); err != nil {
		t.Errorf("init failed: %+v", err)
		return
	}
	prom.UpdateDone("one", 3, time.Millisecond, nil)
	prom.UpdateDone("one", 0, time.Millisecond, fmt.Errorf("boom"))
	prom.UpdateDone("two", 1, time.Millisecond, nil)

	metrics, err := prom.Gatherer().Gather()
	if err != nil {
		t.Errorf("error while gathering metrics: %s", err)
		return
	}

	// expectedMetrics is a map: keys are metrics name and values are
	// expected and actual count of metrics with that name.
	expectedMetrics := map[string][2]int{
		"propsheet_update_total": {
			3, 0,
		},
		"propsheet_cells_evaluated_total": {
			2, 0,
		},
		"propsheet_update_duration_seconds": {
			2, 0,
		},
		"propsheet_process_start_time_seconds": {
			1, 0,
		},
	}
	for _, metric := range metrics {
		for name, count := range expectedMetrics {
			if *metric.Name == name {
				expectedMetrics[name] = [2]int{count[0], len(metric.Metric)}
			}
		}
	}
	for name, count := range expectedMetrics {
		if count[1] != count[0] {
			t.Errorf("with: %s, expected %d metrics, got %d metrics", name, count[0], count[1])
		}
	}
}

func TestSheetStats(t *testing.T) {
	prom := &Prometheus{}
	if err := prom.Init(); err != nil {
		t.Errorf("init failed: %+v", err)
		return
	}
	def, err := parser.ParseSheet("sheet s {\ninput:\n\ta : 1;\noutput:\n\tb <== a + 1;\n\tc <== 10 / a;\n}")
	if err != nil {
		t.Errorf("parse failed: %+v", err)
		return
	}
	s, err := sheet.New(def, &sheet.Options{Stats: prom})
	if err != nil {
		t.Errorf("assembly failed: %+v", err)
		return
	}
	s.Update() // b and c
	s.Set("a", types.NewNumber(0))
	s.Update() // b, then c fails

	ok := testutil.ToFloat64(prom.updateTotal.With(prometheus.Labels{"sheet": "s", "errorful": "false"}))
	failed := testutil.ToFloat64(prom.updateTotal.With(prometheus.Labels{"sheet": "s", "errorful": "true"}))
	cells := testutil.ToFloat64(prom.cellsEvaluatedTotal.With(prometheus.Labels{"sheet": "s"}))
	if ok != 1 || failed != 1 || cells != 3 {
		t.Errorf("unexpected counts: ok=%g failed=%g cells=%g", ok, failed, cells)
	}
}

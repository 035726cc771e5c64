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

// Package prometheus exports metrics about sheet updates to a built-in
// prometheus endpoint.
package prometheus

import (
	"context"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/purpleidea/propsheet/util"
	"github.com/purpleidea/propsheet/util/errwrap"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultPrometheusListen is the default listen address. Port 9233 is the one
// registered for mgmt, which this is derived from.
const DefaultPrometheusListen = "127.0.0.1:9233"

// Prometheus is the struct that contains information about the prometheus
// instance. Use Init() to initialize it. It implements the sheet.Stats
// interface, so it can be passed to any number of sheets.
type Prometheus struct {
	Listen string // the listen address for the net/http server

	Logf func(format string, v ...interface{})

	registry *prometheus.Registry
	server   *http.Server

	updateTotal             *prometheus.CounterVec   // total of updates that have run
	cellsEvaluatedTotal     *prometheus.CounterVec   // total of cells evaluated by updates
	updateDurationSeconds   *prometheus.HistogramVec // how long updates take
	processStartTimeSeconds prometheus.Gauge         // process start time in seconds since unix epoch
}

// Init some parameters. It creates the metrics in a registry of its own.
func (obj *Prometheus) Init() error {
	if len(obj.Listen) == 0 {
		obj.Listen = DefaultPrometheusListen
	}
	if obj.Logf == nil {
		obj.Logf = func(format string, v ...interface{}) {} // noop
	}
	obj.registry = prometheus.NewRegistry()

	obj.updateTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propsheet_update_total",
			Help: "Number of sheet updates that have run.",
		},
		// sheet: name of the sheet
		// errorful: did the update fail and roll back
		[]string{"sheet", "errorful"},
	)
	obj.cellsEvaluatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propsheet_cells_evaluated_total",
			Help: "Number of cells evaluated by sheet updates.",
		},
		[]string{"sheet"},
	)
	obj.updateDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "propsheet_update_duration_seconds",
			Help:    "Duration of sheet updates in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		},
		[]string{"sheet"},
	)
	obj.processStartTimeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "propsheet_process_start_time_seconds",
			Help: "Start time of the process since unix epoch in seconds.",
		},
	)

	for _, c := range []prometheus.Collector{
		obj.updateTotal,
		obj.cellsEvaluatedTotal,
		obj.updateDurationSeconds,
		obj.processStartTimeSeconds,
	} {
		if err := obj.registry.Register(c); err != nil {
			return errwrap.Wrapf(err, "could not register metric")
		}
	}
	// directly set the processStartTimeSeconds
	obj.processStartTimeSeconds.SetToCurrentTime()

	return nil
}

// Gatherer returns the registry that holds our metrics.
func (obj *Prometheus) Gatherer() prometheus.Gatherer {
	return obj.registry
}

// Start runs a http server in a go routine, that responds to /metrics as
// prometheus would expect.
func (obj *Prometheus) Start() error {
	l, err := net.Listen("tcp", obj.Listen)
	if err != nil {
		return errwrap.Wrapf(err, "could not listen on %s", obj.Listen)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(obj.registry, promhttp.HandlerOpts{}))
	obj.server = &http.Server{
		Handler:  mux,
		ErrorLog: log.New(&util.LogWriter{Prefix: "http: ", Logf: obj.Logf}, "", 0),
	}
	go func() {
		if err := obj.server.Serve(l); err != nil && err != http.ErrServerClosed {
			obj.Logf("server failed: %v", err)
		}
	}()
	obj.Logf("serving metrics on %s", l.Addr())
	return nil
}

// Stop the http server.
func (obj *Prometheus) Stop() error {
	if obj.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return obj.server.Shutdown(ctx)
}

// UpdateDone counts a finished sheet update. It fulfills the sheet.Stats
// interface.
func (obj *Prometheus) UpdateDone(sheet string, cells int, d time.Duration, err error) {
	labels := prometheus.Labels{"sheet": sheet, "errorful": strconv.FormatBool(err != nil)}
	obj.updateTotal.With(labels).Inc()
	obj.cellsEvaluatedTotal.With(prometheus.Labels{"sheet": sheet}).Add(float64(cells))
	obj.updateDurationSeconds.With(prometheus.Labels{"sheet": sheet}).Observe(d.Seconds())
}

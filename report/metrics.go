// Copyright 2012 Aaron Jacobs. All Rights Reserved.
// Author: aaronjjacobs@gmail.com (Aaron Jacobs)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package report

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsReporter wraps a Reporter, additionally incrementing Prometheus
// counters per disk and per classification, and exposing a gauge for
// whether the most recent scan found any difference. Exported via an
// http.Handler elsewhere (the scan's caller decides whether/where to
// serve /metrics); this package only registers and updates the series.
type MetricsReporter struct {
	Reporter

	entries  *prometheus.CounterVec
	warnings *prometheus.CounterVec
	lastDiff *prometheus.GaugeVec
}

// NewMetricsReporter wraps inner, registering its counters against reg.
func NewMetricsReporter(inner Reporter, reg prometheus.Registerer) *MetricsReporter {
	m := &MetricsReporter{
		Reporter: inner,
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parityscan",
			Name:      "entries_total",
			Help:      "Number of catalog entries classified by the scan, by disk and classification.",
		}, []string{"disk", "classification"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parityscan",
			Name:      "warnings_total",
			Help:      "Number of non-fatal warnings emitted during scanning, by disk.",
		}, []string{"disk"}),
		lastDiff: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "parityscan",
			Name:      "last_scan_has_difference",
			Help:      "1 if the most recent scan found any non-equal entry, 0 otherwise.",
		}, []string{"disk"}),
	}

	reg.MustRegister(m.entries, m.warnings, m.lastDiff)
	return m
}

func (m *MetricsReporter) Equal(disk, sub string) {
	m.entries.WithLabelValues(disk, "equal").Inc()
	m.Reporter.Equal(disk, sub)
}

func (m *MetricsReporter) Move(disk, oldSub, newSub string) {
	m.entries.WithLabelValues(disk, "move").Inc()
	m.Reporter.Move(disk, oldSub, newSub)
}

func (m *MetricsReporter) Restore(disk, sub string) {
	m.entries.WithLabelValues(disk, "restore").Inc()
	m.Reporter.Restore(disk, sub)
}

func (m *MetricsReporter) Change(disk, sub string) {
	m.entries.WithLabelValues(disk, "change").Inc()
	m.Reporter.Change(disk, sub)
}

func (m *MetricsReporter) Insert(disk, sub string) {
	m.entries.WithLabelValues(disk, "insert").Inc()
	m.Reporter.Insert(disk, sub)
}

func (m *MetricsReporter) Remove(disk, sub string) {
	m.entries.WithLabelValues(disk, "remove").Inc()
	m.Reporter.Remove(disk, sub)
}

func (m *MetricsReporter) Warning(disk, format string, args ...interface{}) {
	m.warnings.WithLabelValues(disk).Inc()
	m.Reporter.Warning(disk, format, args...)
}

func (m *MetricsReporter) Summary(disk string, c Counts) {
	diff := 0.0
	if c.HasDifference() {
		diff = 1.0
	}
	m.lastDiff.WithLabelValues(disk).Set(diff)
	m.Reporter.Summary(disk, c)
}

var _ Reporter = (*MetricsReporter)(nil)

// Copyright 2026 The fwstamp Authors
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

// Package metrics records stamp outcomes in the Prometheus textfile
// collector format so CI hosts running node_exporter can scrape them.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the gauges for a single stamp run on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	revisionInfo   *prometheus.GaugeVec
	fallback       prometheus.Gauge
	lookupDuration prometheus.Gauge
	lastStamp      prometheus.Gauge
}

// NewRecorder returns a Recorder with all metrics registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		revisionInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fwstamp_revision_info",
				Help: "Revision tag stamped into the last firmware build.",
			},
			[]string{"symbol", "tag"},
		),
		fallback: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fwstamp_revision_fallback",
				Help: "1 if the last stamp used the fallback tag.",
			},
		),
		lookupDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fwstamp_lookup_duration_seconds",
				Help: "Duration of the last revision lookup in seconds.",
			},
		),
		lastStamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fwstamp_last_stamp_timestamp_seconds",
				Help: "Unix time of the last stamp.",
			},
		),
	}
	r.registry.MustRegister(
		r.revisionInfo,
		r.fallback,
		r.lookupDuration,
		r.lastStamp,
	)
	return r
}

// Observe records one stamp result.
func (r *Recorder) Observe(symbol, tag string, fallback bool, lookup time.Duration, at time.Time) {
	r.revisionInfo.Reset()
	r.revisionInfo.WithLabelValues(symbol, tag).Set(1)
	if fallback {
		r.fallback.Set(1)
	} else {
		r.fallback.Set(0)
	}
	r.lookupDuration.Set(lookup.Seconds())
	r.lastStamp.Set(float64(at.Unix()))
}

// WriteTextfile atomically writes all metrics to path.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metrics: write textfile %s: %w", path, err)
	}
	return nil
}

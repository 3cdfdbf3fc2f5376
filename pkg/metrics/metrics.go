/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package metrics records cellradar command and probe instruments through
// the OpenTelemetry metrics API.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/carverauto/cellradar/pkg/models"
)

const (
	meterName = "cellradar"

	metricCommandTotal     = "cellradar_commands_total"
	metricCommandDuration  = "cellradar_command_duration_seconds"
	metricProbeTotal       = "cellradar_probes_total"
	metricProbeDuration    = "cellradar_probe_duration_seconds"
	metricDevicesAvailable = "cellradar_devices_available"
	metricDevicesDown      = "cellradar_devices_unavailable"
)

// Recorder holds the instruments. A nil Recorder records nothing, and
// instruments that failed to register are skipped.
type Recorder struct {
	commandTotal    metric.Int64Counter
	commandDuration metric.Float64Histogram
	probeTotal      metric.Int64Counter
	probeDuration   metric.Float64Histogram
	available       metric.Int64Gauge
	unavailable     metric.Int64Gauge
}

// NewRecorder registers the instruments on mp, or on the global provider
// when mp is nil.
func NewRecorder(mp metric.MeterProvider) *Recorder {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	meter := mp.Meter(meterName)
	r := &Recorder{}

	if counter, err := meter.Int64Counter(
		metricCommandTotal,
		metric.WithDescription("Dispatched device commands by operation and outcome"),
	); err != nil {
		otel.Handle(err)
	} else {
		r.commandTotal = counter
	}

	if hist, err := meter.Float64Histogram(
		metricCommandDuration,
		metric.WithDescription("Latency of dispatched device commands"),
		metric.WithUnit("s"),
	); err != nil {
		otel.Handle(err)
	} else {
		r.commandDuration = hist
	}

	if counter, err := meter.Int64Counter(
		metricProbeTotal,
		metric.WithDescription("Reachability probes by mode and classification"),
	); err != nil {
		otel.Handle(err)
	} else {
		r.probeTotal = counter
	}

	if hist, err := meter.Float64Histogram(
		metricProbeDuration,
		metric.WithDescription("Latency of reachability probes"),
		metric.WithUnit("s"),
	); err != nil {
		otel.Handle(err)
	} else {
		r.probeDuration = hist
	}

	if gauge, err := meter.Int64Gauge(
		metricDevicesAvailable,
		metric.WithDescription("Devices classified available by the last availability check"),
	); err != nil {
		otel.Handle(err)
	} else {
		r.available = gauge
	}

	if gauge, err := meter.Int64Gauge(
		metricDevicesDown,
		metric.WithDescription("Devices classified unavailable by the last availability check"),
	); err != nil {
		otel.Handle(err)
	} else {
		r.unavailable = gauge
	}

	return r
}

// RecordCommand records one dispatched command.
func (r *Recorder) RecordCommand(ctx context.Context, operation string, result *models.CommandResult, duration time.Duration) {
	if r == nil || result == nil {
		return
	}

	code := result.Code
	if code == "" {
		code = "none"
	}

	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", string(result.Status)),
		attribute.String("code", code),
	)

	if r.commandTotal != nil {
		r.commandTotal.Add(ctx, 1, attrs)
	}

	if r.commandDuration != nil {
		r.commandDuration.Record(ctx, nonNegative(duration).Seconds(), attrs)
	}
}

// RecordProbe records one reachability probe.
func (r *Recorder) RecordProbe(ctx context.Context, mode string, status models.ProbeStatus, duration time.Duration) {
	if r == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("status", string(status)),
	)

	if r.probeTotal != nil {
		r.probeTotal.Add(ctx, 1, attrs)
	}

	if r.probeDuration != nil {
		r.probeDuration.Record(ctx, nonNegative(duration).Seconds(), attrs)
	}
}

// RecordReport records the partition sizes of an availability report.
// Failed reports are not recorded so the gauges keep the last good check.
func (r *Recorder) RecordReport(ctx context.Context, report *models.AvailabilityReport) {
	if r == nil || report == nil || report.Status != models.ReportOK {
		return
	}

	if r.available != nil {
		r.available.Record(ctx, int64(len(report.Available)))
	}

	if r.unavailable != nil {
		r.unavailable.Record(ctx, int64(len(report.Unavailable)))
	}
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}

	return d
}

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

// Package availability probes every registered device and partitions the
// fleet into available and unavailable sets.
package availability

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/cellradar/pkg/logger"
	"github.com/carverauto/cellradar/pkg/metrics"
	"github.com/carverauto/cellradar/pkg/models"
	"github.com/carverauto/cellradar/pkg/registry"
	"github.com/carverauto/cellradar/pkg/scan"
)

const (
	defaultWorkers = 8
	defaultTimeout = 3 * time.Second
	// probeGrace is added to the prober's own timeout before a probe is
	// abandoned as ping_failed.
	probeGrace = 500 * time.Millisecond
)

// Orchestrator composes the registry, a prober and the classifier.
type Orchestrator struct {
	registry   registry.Registry
	prober     scan.Prober
	classifier *scan.Classifier
	mode       string
	workers    int
	limit      time.Duration
	metrics    *metrics.Recorder
	logger     logger.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics records probe and report instruments on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(o *Orchestrator) {
		o.metrics = r
	}
}

// NewOrchestrator builds an orchestrator. cfg supplies the worker limit
// and the per-probe time bound.
func NewOrchestrator(reg registry.Registry, prober scan.Prober, classifier *scan.Classifier,
	cfg *models.ProbeConfig, log logger.Logger, opts ...Option) *Orchestrator {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	timeout := cfg.Timeout.Std()
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	count := cfg.Count
	if count <= 0 {
		count = 1
	}

	o := &Orchestrator{
		registry:   reg,
		prober:     prober,
		classifier: classifier,
		mode:       cfg.Mode,
		workers:    workers,
		limit:      timeout*time.Duration(count) + probeGrace,
		logger:     log,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Check lists the devices and classifies each one. Probes run in parallel
// up to the worker limit; both partitions keep registry order. A registry
// failure yields an error report with empty partitions, never a partial one.
func (o *Orchestrator) Check(ctx context.Context) *models.AvailabilityReport {
	o.logger.Info().Msg("Fetching registered devices")

	records, err := o.registry.ListDevices(ctx)
	if err != nil {
		o.logger.Error().Err(err).Msg("Failed to fetch AAS registry")

		report := models.FailedAvailabilityReport(fmt.Sprintf("Failed to fetch AAS list from registry: %v", err))
		o.metrics.RecordReport(ctx, report)

		return report
	}

	o.logger.Info().Int("devices", len(records)).Msg("Probing registered devices")

	outcomes := make([]models.ProbeOutcome, len(records))

	var g errgroup.Group

	g.SetLimit(o.workers)

	for i, rec := range records {
		if !rec.HasAddress() {
			o.logger.Warn().Str("aas_name", rec.Name).Msg("Missing IP address")

			outcomes[i] = models.ProbeOutcome{Name: rec.Name, Status: models.ProbeNoIP}

			continue
		}

		g.Go(func() error {
			outcomes[i] = o.probe(ctx, rec)

			return nil
		})
	}

	_ = g.Wait()

	report := models.NewAvailabilityReport(outcomes)
	o.metrics.RecordReport(ctx, report)

	o.logger.Info().
		Int("available", len(report.Available)).
		Int("unavailable", len(report.Unavailable)).
		Msg("Availability check completed")

	return report
}

func (o *Orchestrator) probe(ctx context.Context, rec models.DeviceRecord) models.ProbeOutcome {
	outcome := models.ProbeOutcome{Name: rec.Name, IP: rec.IP, Port: rec.Port}

	probeCtx, cancel := context.WithTimeout(ctx, o.limit)
	defer cancel()

	start := time.Now()
	done := make(chan scan.Result, 1)

	go func() {
		done <- o.prober.Probe(probeCtx, rec.IP, rec.Port)
	}()

	select {
	case res := <-done:
		outcome.Status = o.classifier.Classify(&res)
		outcome.Diagnostic = res.Diagnostic()
	case <-probeCtx.Done():
		outcome.Status = models.ProbePingFailed
		outcome.Diagnostic = fmt.Sprintf("probe abandoned after %s: %v", o.limit, probeCtx.Err())
	}

	o.metrics.RecordProbe(ctx, o.mode, outcome.Status, time.Since(start))

	if outcome.Available() {
		o.logger.Info().Str("aas_name", rec.Name).Str("ip", rec.IP).Str("port", rec.Port).Msg("Ping success")
	} else {
		o.logger.Warn().Str("aas_name", rec.Name).Str("ip", rec.IP).Str("diagnostic", outcome.Diagnostic).Msg("Ping failed")
	}

	return outcome
}

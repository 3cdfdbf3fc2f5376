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

package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carverauto/cellradar/pkg/calc"
	"github.com/carverauto/cellradar/pkg/logger"
	"github.com/carverauto/cellradar/pkg/metrics"
	"github.com/carverauto/cellradar/pkg/models"
	"github.com/carverauto/cellradar/pkg/registry"
)

// Operation names. They double as tool names, event subjects and metric
// attributes.
const (
	OpStartManufacturing      = "start_manufacturing"
	OpSetCoilTurn             = "set_coil_turn"
	OpCalculateRequiredTurns  = "calculate_required_turns"
	OpGetSubmodels            = "get_submodels"
	OpCheckAvailableProcesses = "check_available_processes"
	OpRunProcessStep          = "run_process_step"
	OpReadStatus              = "read_status_registers"
)

const (
	tracerName     = "github.com/carverauto/cellradar/pkg/dispatch"
	publishTimeout = 5 * time.Second

	startMessage = "Start Manufacturing Successfully"
)

// TurnsResult is the payload of CalculateRequiredTurns.
type TurnsResult struct {
	Turns  int     `json:"turns"`
	Torque float64 `json:"torque"`
}

// RegisterValues is the payload of ReadStatus. Values are raw and unscaled.
type RegisterValues struct {
	Address int64    `json:"address"`
	Values  []uint16 `json:"values"`
}

// Dispatcher routes named operations to the controller link, the registry,
// the turns calculator and the availability checker. Its methods never
// return a Go error.
type Dispatcher struct {
	controller Controller
	registry   registry.Registry
	checker    AvailabilityChecker
	geometry   calc.Geometry
	events     EventSink
	metrics    *metrics.Recorder
	tracer     trace.Tracer
	logger     logger.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithEvents publishes every result to sink.
func WithEvents(sink EventSink) Option {
	return func(d *Dispatcher) {
		d.events = sink
	}
}

// WithMetrics records command instruments on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(d *Dispatcher) {
		d.metrics = r
	}
}

// WithTracer replaces the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) {
		d.tracer = t
	}
}

// New creates a Dispatcher. geometry feeds the turns calculator.
func New(
	controller Controller,
	reg registry.Registry,
	checker AvailabilityChecker,
	geometry models.GeometryConfig,
	log logger.Logger,
	opts ...Option,
) *Dispatcher {
	d := &Dispatcher{
		controller: controller,
		registry:   reg,
		checker:    checker,
		geometry:   calc.GeometryFromConfig(geometry),
		tracer:     otel.Tracer(tracerName),
		logger:     log,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// StartManufacturing pulses the start coil, selecting processID first when given.
func (d *Dispatcher) StartManufacturing(ctx context.Context, processID *uint16) *models.CommandResult {
	var attrs []attribute.KeyValue
	if processID != nil {
		attrs = append(attrs, attribute.Int("process.id", int(*processID)))
	}

	return d.run(ctx, OpStartManufacturing, attrs, func(ctx context.Context) (*models.CommandResult, error) {
		cmd, err := d.controller.Start(ctx, processID)
		if err != nil {
			return nil, err
		}

		return models.SuccessResult(startMessage, cmd), nil
	})
}

// SetCoilTurn writes the coil-turn setpoint.
func (d *Dispatcher) SetCoilTurn(ctx context.Context, turn int64) *models.CommandResult {
	attrs := []attribute.KeyValue{attribute.Int64("turns", turn)}

	return d.run(ctx, OpSetCoilTurn, attrs, func(ctx context.Context) (*models.CommandResult, error) {
		cmd, err := d.controller.SetTurns(ctx, turn)
		if err != nil {
			return nil, err
		}

		return models.SuccessResult(fmt.Sprintf("set Turn coil: %d", cmd.Value), cmd), nil
	})
}

// CalculateRequiredTurns converts a target torque into a turn count using
// the configured motor geometry. No controller I/O is performed.
func (d *Dispatcher) CalculateRequiredTurns(ctx context.Context, torque float64) *models.CommandResult {
	attrs := []attribute.KeyValue{attribute.Float64("torque", torque)}

	return d.run(ctx, OpCalculateRequiredTurns, attrs, func(context.Context) (*models.CommandResult, error) {
		turns, err := calc.RequiredTurns(torque, d.geometry)
		if err != nil {
			return nil, err
		}

		return models.SuccessResult(
			fmt.Sprintf("%d turns required for torque %g", turns, torque),
			TurnsResult{Turns: turns, Torque: torque},
		), nil
	})
}

// GetSubmodels returns the manufacturing process submodel for processName
// exactly as the repository served it.
func (d *Dispatcher) GetSubmodels(ctx context.Context, processName string) *models.CommandResult {
	name := strings.TrimSpace(processName)
	attrs := []attribute.KeyValue{attribute.String("process.name", name)}

	return d.run(ctx, OpGetSubmodels, attrs, func(ctx context.Context) (*models.CommandResult, error) {
		if name == "" {
			return nil, fmt.Errorf("process name is required: %w", models.ErrInvalidArgument)
		}

		doc, err := d.registry.GetSubmodel(ctx, name)
		if err != nil {
			return nil, err
		}

		return models.SuccessResult(fmt.Sprintf("submodel for %s", name), doc), nil
	})
}

// RunProcessStep drives one process step. A step the controller reports as
// failed still carries its status word and read-backs in the payload.
func (d *Dispatcher) RunProcessStep(ctx context.Context, step string, params map[string]interface{}) *models.CommandResult {
	attrs := []attribute.KeyValue{attribute.String("step", step)}

	return d.run(ctx, OpRunProcessStep, attrs, func(ctx context.Context) (*models.CommandResult, error) {
		result, err := d.controller.RunStep(ctx, step, params)
		if err != nil {
			res := models.ErrorResult(err)
			if result != nil {
				res.Payload = result
			}

			return res, nil
		}

		return models.SuccessResult(fmt.Sprintf("%s step completed", result.Step), result), nil
	})
}

// ReadStatus reads count raw holding registers starting at address.
func (d *Dispatcher) ReadStatus(ctx context.Context, address, count int64) *models.CommandResult {
	attrs := []attribute.KeyValue{attribute.Int64("register.address", address), attribute.Int64("register.count", count)}

	return d.run(ctx, OpReadStatus, attrs, func(ctx context.Context) (*models.CommandResult, error) {
		values, err := d.controller.ReadStatus(ctx, address, count)
		if err != nil {
			return nil, err
		}

		return models.SuccessResult(
			fmt.Sprintf("read %d registers at %d", len(values), address),
			RegisterValues{Address: address, Values: values},
		), nil
	})
}

// CheckAvailableProcesses probes every registered device.
func (d *Dispatcher) CheckAvailableProcesses(ctx context.Context) (report *models.AvailabilityReport) {
	ctx, span := d.tracer.Start(ctx, OpCheckAvailableProcesses)
	defer span.End()

	defer func() {
		if p := recover(); p != nil {
			d.logger.Error().Interface("panic", p).Str("operation", OpCheckAvailableProcesses).Msg("Operation panicked")

			report = models.FailedAvailabilityReport(fmt.Sprintf("availability check failed: %v", p))
		}

		span.SetAttributes(
			attribute.String("report.status", string(report.Status)),
			attribute.Int("report.available", len(report.Available)),
			attribute.Int("report.unavailable", len(report.Unavailable)),
		)

		if report.Status == models.ReportOK {
			span.SetStatus(codes.Ok, "availability check completed")
		} else {
			span.SetStatus(codes.Error, report.Message)
		}

		d.publishReport(ctx, report)
	}()

	report = d.checker.Check(ctx)
	if report == nil {
		report = models.FailedAvailabilityReport("availability check returned no report")
	}

	return report
}

// run wraps fn with a span, metrics, logging and event publishing. A
// returned error or a panic becomes an error result.
func (d *Dispatcher) run(
	ctx context.Context,
	op string,
	attrs []attribute.KeyValue,
	fn func(context.Context) (*models.CommandResult, error),
) (result *models.CommandResult) {
	ctx, span := d.tracer.Start(ctx, op, trace.WithAttributes(attrs...))
	defer span.End()

	started := time.Now()

	defer func() {
		if p := recover(); p != nil {
			d.logger.Error().Interface("panic", p).Str("operation", op).Msg("Operation panicked")

			result = &models.CommandResult{
				Status:  models.CommandError,
				Message: fmt.Sprintf("%s: internal error: %v", op, p),
				Code:    models.CodeInternal,
			}
		}

		d.finish(ctx, span, op, result, time.Since(started))
	}()

	res, err := fn(ctx)
	if err != nil {
		return models.ErrorResult(err)
	}

	return res
}

func (d *Dispatcher) finish(ctx context.Context, span trace.Span, op string, result *models.CommandResult, elapsed time.Duration) {
	span.SetAttributes(attribute.String("result.status", string(result.Status)))

	if result.OK() {
		span.SetStatus(codes.Ok, result.Message)

		d.logger.Info().Str("operation", op).Dur("elapsed", elapsed).Msg("Command completed")
	} else {
		span.SetAttributes(attribute.String("result.code", result.Code))
		span.SetStatus(codes.Error, result.Message)

		d.logger.Warn().
			Str("operation", op).
			Str("code", result.Code).
			Str("error", result.Message).
			Dur("elapsed", elapsed).
			Msg("Command failed")
	}

	d.metrics.RecordCommand(ctx, op, result, elapsed)

	if d.events == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := d.events.PublishCommandResult(pubCtx, op, result); err != nil {
		d.logger.Warn().Err(err).Str("operation", op).Msg("Failed to publish command result")
	}
}

func (d *Dispatcher) publishReport(ctx context.Context, report *models.AvailabilityReport) {
	if d.events == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := d.events.PublishAvailabilityReport(pubCtx, report); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to publish availability report")
	}
}

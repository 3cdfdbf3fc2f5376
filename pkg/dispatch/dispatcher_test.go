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
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/cellradar/pkg/logger"
	"github.com/carverauto/cellradar/pkg/metrics"
	"github.com/carverauto/cellradar/pkg/models"
	"github.com/carverauto/cellradar/pkg/plc"
	"github.com/carverauto/cellradar/pkg/registry"
)

type fixture struct {
	controller *MockController
	registry   *registry.MockRegistry
	checker    *MockAvailabilityChecker
	events     *MockEventSink
	spans      *tracetest.SpanRecorder
	d          *Dispatcher
}

func newFixture(t *testing.T, geometry models.GeometryConfig, opts ...Option) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	f := &fixture{
		controller: NewMockController(ctrl),
		registry:   registry.NewMockRegistry(ctrl),
		checker:    NewMockAvailabilityChecker(ctrl),
		events:     NewMockEventSink(ctrl),
		spans:      tracetest.NewSpanRecorder(),
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(f.spans))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	opts = append([]Option{WithTracer(tp.Tracer("dispatch-test"))}, opts...)
	f.d = New(f.controller, f.registry, f.checker, geometry, logger.NewTestLogger(), opts...)

	return f
}

func (f *fixture) lastSpan(t *testing.T) sdktrace.ReadOnlySpan {
	t.Helper()

	ended := f.spans.Ended()
	require.NotEmpty(t, ended)

	return ended[len(ended)-1]
}

func TestStartManufacturing(t *testing.T) {
	f := newFixture(t, models.DefaultGeometry())
	cmd := models.ControlCommand{Operation: plc.OpStart, Value: 1, Registers: []uint16{30978}}

	f.controller.EXPECT().Start(gomock.Any(), gomock.Nil()).Return(cmd, nil)

	res := f.d.StartManufacturing(context.Background(), nil)

	assert.Equal(t, models.CommandSuccess, res.Status)
	assert.Equal(t, "Start Manufacturing Successfully", res.Message)
	assert.Empty(t, res.Code)
	assert.Equal(t, cmd, res.Payload)

	span := f.lastSpan(t)
	assert.Equal(t, OpStartManufacturing, span.Name())
	assert.Equal(t, codes.Ok, span.Status().Code)
}

func TestStartManufacturingSelectsProcess(t *testing.T) {
	f := newFixture(t, models.DefaultGeometry())
	id := uint16(3)

	f.controller.EXPECT().Start(gomock.Any(), &id).Return(models.ControlCommand{Operation: plc.OpStart, Value: 3}, nil)

	res := f.d.StartManufacturing(context.Background(), &id)

	require.True(t, res.OK())
	assert.Contains(t, f.lastSpan(t).Attributes(), attribute.Int("process.id", 3))
}

func TestStartManufacturingDeassertFailureIsError(t *testing.T) {
	f := newFixture(t, models.DefaultGeometry())
	err := fmt.Errorf("deassert coil 30978: %w: %w", models.ErrRegisterIO, errors.New("broken pipe"))

	f.controller.EXPECT().Start(gomock.Any(), gomock.Nil()).Return(models.ControlCommand{}, err)

	res := f.d.StartManufacturing(context.Background(), nil)

	assert.Equal(t, models.CommandError, res.Status)
	assert.Equal(t, models.CodeRegisterIOFailure, res.Code)
	assert.Contains(t, res.Message, "deassert coil 30978")
	assert.Nil(t, res.Payload)

	span := f.lastSpan(t)
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Contains(t, span.Attributes(), attribute.String("result.code", models.CodeRegisterIOFailure))
}

func TestSetCoilTurn(t *testing.T) {
	f := newFixture(t, models.DefaultGeometry())
	cmd := models.ControlCommand{Operation: plc.OpSetTurns, Value: 45, Registers: []uint16{10000}}

	f.controller.EXPECT().SetTurns(gomock.Any(), int64(45)).Return(cmd, nil)

	res := f.d.SetCoilTurn(context.Background(), 45)

	assert.Equal(t, models.CommandSuccess, res.Status)
	assert.Equal(t, "set Turn coil: 45", res.Message)
	assert.Equal(t, cmd, res.Payload)
}

func TestSetCoilTurnOutOfRangeNeverWrites(t *testing.T) {
	ctrl := gomock.NewController(t)

	// no Dial expectation: any connection attempt fails the test
	link, err := plc.NewLink(plc.NewMockDialer(ctrl), &models.DefaultConfig().Controller, logger.NewTestLogger())
	require.NoError(t, err)

	d := New(link, registry.NewMockRegistry(ctrl), NewMockAvailabilityChecker(ctrl),
		models.DefaultGeometry(), logger.NewTestLogger())

	res := d.SetCoilTurn(context.Background(), 70000)

	assert.Equal(t, models.CommandError, res.Status)
	assert.Equal(t, models.CodeInvalidArgument, res.Code)
	assert.Nil(t, res.Payload)
}

func TestCalculateRequiredTurns(t *testing.T) {
	f := newFixture(t, models.DefaultGeometry())

	first := f.d.CalculateRequiredTurns(context.Background(), 5)

	require.True(t, first.OK(), first.Message)
	assert.Equal(t, TurnsResult{Turns: 16, Torque: 5}, first.Payload)
	assert.Equal(t, "16 turns required for torque 5", first.Message)

	for range 3 {
		assert.Equal(t, first, f.d.CalculateRequiredTurns(context.Background(), 5))
	}
}

func TestCalculateRequiredTurnsDegenerateGeometry(t *testing.T) {
	geometry := models.DefaultGeometry()
	geometry.InnerRadius = geometry.OuterRadius

	f := newFixture(t, geometry)

	res := f.d.CalculateRequiredTurns(context.Background(), 5)

	assert.Equal(t, models.CommandError, res.Status)
	assert.Equal(t, models.CodeInvalidGeometry, res.Code)
	assert.Nil(t, res.Payload)
}

func TestCalculateRequiredTurnsRejectsTorque(t *testing.T) {
	f := newFixture(t, models.DefaultGeometry())

	for _, torque := range []float64{0, -2, math.NaN(), math.Inf(1)} {
		res := f.d.CalculateRequiredTurns(context.Background(), torque)

		assert.Equal(t, models.CodeInvalidArgument, res.Code, "torque %v", torque)
		assert.Nil(t, res.Payload)
	}
}

func TestGetSubmodels(t *testing.T) {
	f := newFixture(t, models.DefaultGeometry())
	doc := json.RawMessage(`{"idShort":"ManufacturingProcess","submodelElements":[]}`)

	f.registry.EXPECT().GetSubmodel(gomock.Any(), "Winding").Return(doc, nil)

	res := f.d.GetSubmodels(context.Background(), " Winding ")

	require.True(t, res.OK(), res.Message)
	assert.Equal(t, "submodel for Winding", res.Message)
	assert.Equal(t, doc, res.Payload)
}

func TestGetSubmodelsFailures(t *testing.T) {
	f := newFixture(t, models.DefaultGeometry())

	res := f.d.GetSubmodels(context.Background(), "  ")
	assert.Equal(t, models.CodeInvalidArgument, res.Code)

	f.registry.EXPECT().GetSubmodel(gomock.Any(), "Pressing").
		Return(nil, fmt.Errorf("get submodel: %w: %w", models.ErrRegistryUnavailable, errors.New("503")))

	res = f.d.GetSubmodels(context.Background(), "Pressing")
	assert.Equal(t, models.CommandError, res.Status)
	assert.Equal(t, models.CodeRegistryUnavailable, res.Code)
}

func TestRunProcessStep(t *testing.T) {
	f := newFixture(t, models.DefaultGeometry())
	params := map[string]interface{}{"length": 12.37}
	step := &plc.StepResult{Step: "cutting", StatusWord: 1, Written: map[string]uint16{"length": 123, "angle": 900}}

	f.controller.EXPECT().RunStep(gomock.Any(), "cutting", params).Return(step, nil)

	res := f.d.RunProcessStep(context.Background(), "cutting", params)

	require.True(t, res.OK(), res.Message)
	assert.Equal(t, "cutting step completed", res.Message)
	assert.Same(t, step, res.Payload)
}

func TestRunProcessStepFailureKeepsStatus(t *testing.T) {
	f := newFixture(t, models.DefaultGeometry())
	step := &plc.StepResult{Step: "welding", StatusWord: 7, Written: map[string]uint16{"temperature": 350}}

	f.controller.EXPECT().RunStep(gomock.Any(), "welding", gomock.Any()).
		Return(step, fmt.Errorf("welding reported status word 7: %w", models.ErrProcessFailed))
	f.controller.EXPECT().RunStep(gomock.Any(), "polishing", gomock.Any()).
		Return(nil, fmt.Errorf("unknown step polishing: %w", models.ErrInvalidArgument))

	res := f.d.RunProcessStep(context.Background(), "welding", nil)
	assert.Equal(t, models.CommandError, res.Status)
	assert.Equal(t, models.CodeProcessFailed, res.Code)
	assert.Same(t, step, res.Payload)
	assert.Equal(t, codes.Error, f.lastSpan(t).Status().Code)

	res = f.d.RunProcessStep(context.Background(), "polishing", nil)
	assert.Equal(t, models.CodeInvalidArgument, res.Code)
	assert.Nil(t, res.Payload)
}

func TestReadStatus(t *testing.T) {
	f := newFixture(t, models.DefaultGeometry())

	f.controller.EXPECT().ReadStatus(gomock.Any(), int64(200), int64(2)).Return([]uint16{1, 42}, nil)
	f.controller.EXPECT().ReadStatus(gomock.Any(), int64(250), int64(4)).
		Return(nil, fmt.Errorf("read 4 registers at 250: %w", models.ErrRegisterIO))

	res := f.d.ReadStatus(context.Background(), 200, 2)
	require.True(t, res.OK(), res.Message)
	assert.Equal(t, "read 2 registers at 200", res.Message)
	assert.Equal(t, RegisterValues{Address: 200, Values: []uint16{1, 42}}, res.Payload)

	res = f.d.ReadStatus(context.Background(), 250, 4)
	assert.Equal(t, models.CodeRegisterIOFailure, res.Code)
}

func TestCheckAvailableProcesses(t *testing.T) {
	f := newFixture(t, models.DefaultGeometry())
	f.d.events = f.events

	report := models.NewAvailabilityReport([]models.ProbeOutcome{
		{Name: "WindingStation", IP: "10.0.0.5", Port: "9000", Status: models.ProbeAvailable},
		{Name: "Press", Status: models.ProbeNoIP},
	})

	f.checker.EXPECT().Check(gomock.Any()).Return(report)
	f.events.EXPECT().PublishAvailabilityReport(gomock.Any(), report).Return(nil)

	got := f.d.CheckAvailableProcesses(context.Background())

	assert.Same(t, report, got)

	span := f.lastSpan(t)
	assert.Equal(t, OpCheckAvailableProcesses, span.Name())
	assert.Equal(t, codes.Ok, span.Status().Code)
	assert.Contains(t, span.Attributes(), attribute.Int("report.available", 1))
	assert.Contains(t, span.Attributes(), attribute.Int("report.unavailable", 1))
}

func TestCheckAvailableProcessesNeverFaults(t *testing.T) {
	f := newFixture(t, models.DefaultGeometry())

	f.checker.EXPECT().Check(gomock.Any()).Return(nil)
	f.checker.EXPECT().Check(gomock.Any()).DoAndReturn(func(context.Context) *models.AvailabilityReport {
		panic("prober exploded")
	})

	got := f.d.CheckAvailableProcesses(context.Background())
	assert.Equal(t, models.ReportError, got.Status)
	assert.Empty(t, got.Available)
	assert.Equal(t, codes.Error, f.lastSpan(t).Status().Code)

	got = f.d.CheckAvailableProcesses(context.Background())
	assert.Equal(t, models.ReportError, got.Status)
	assert.Contains(t, got.Message, "prober exploded")
	assert.NotNil(t, got.Unavailable)
}

func TestPanicBecomesInternalResult(t *testing.T) {
	f := newFixture(t, models.DefaultGeometry())

	f.controller.EXPECT().Start(gomock.Any(), gomock.Nil()).DoAndReturn(
		func(context.Context, *uint16) (models.ControlCommand, error) {
			panic("nil session")
		})

	res := f.d.StartManufacturing(context.Background(), nil)

	assert.Equal(t, models.CommandError, res.Status)
	assert.Equal(t, models.CodeInternal, res.Code)
	assert.Contains(t, res.Message, "nil session")
}

func TestPublishFailureDoesNotChangeResult(t *testing.T) {
	f := newFixture(t, models.DefaultGeometry())
	f.d.events = f.events

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.controller.EXPECT().SetTurns(gomock.Any(), int64(-1)).
		Return(models.ControlCommand{}, fmt.Errorf("turns -1: %w", models.ErrInvalidArgument))
	f.events.EXPECT().PublishCommandResult(gomock.Any(), OpSetCoilTurn, gomock.Any()).DoAndReturn(
		func(pubCtx context.Context, _ string, r *models.CommandResult) error {
			// the caller's cancellation must not drop the event
			assert.NoError(t, pubCtx.Err())

			_, hasDeadline := pubCtx.Deadline()
			assert.True(t, hasDeadline)
			assert.Equal(t, models.CodeInvalidArgument, r.Code)

			return errors.New("nats: connection closed")
		})

	res := f.d.SetCoilTurn(ctx, -1)

	assert.Equal(t, models.CommandError, res.Status)
	assert.Equal(t, models.CodeInvalidArgument, res.Code)
}

func TestRecordsCommandMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	recorder := metrics.NewRecorder(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))

	f := newFixture(t, models.DefaultGeometry(), WithMetrics(recorder))

	f.d.CalculateRequiredTurns(context.Background(), 5)
	f.d.CalculateRequiredTurns(context.Background(), 0)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "cellradar_commands_total" {
				continue
			}

			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)

			for _, dp := range sum.DataPoints {
				op, _ := dp.Attributes.Value(attribute.Key("operation"))
				assert.Equal(t, OpCalculateRequiredTurns, op.AsString())

				total += dp.Value
			}
		}
	}

	assert.Equal(t, int64(2), total)
}

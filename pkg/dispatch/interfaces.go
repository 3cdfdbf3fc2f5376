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

// Package dispatch is the caller-facing surface of cellradar. Every
// operation validates its arguments, drives one leaf component and
// normalizes the outcome into a result value.
package dispatch

import (
	"context"

	"github.com/carverauto/cellradar/pkg/availability"
	"github.com/carverauto/cellradar/pkg/models"
	"github.com/carverauto/cellradar/pkg/natsutil"
	"github.com/carverauto/cellradar/pkg/plc"
)

//go:generate mockgen -destination=mock_dispatch.go -package=dispatch github.com/carverauto/cellradar/pkg/dispatch Controller,AvailabilityChecker,EventSink

// Controller is the part of the controller link the dispatcher drives.
// *plc.Link satisfies it.
type Controller interface {
	Start(ctx context.Context, processID *uint16) (models.ControlCommand, error)
	SetTurns(ctx context.Context, turns int64) (models.ControlCommand, error)
	ReadStatus(ctx context.Context, address, count int64) ([]uint16, error)
	RunStep(ctx context.Context, name string, params map[string]interface{}) (*plc.StepResult, error)
}

// AvailabilityChecker produces a fresh availability report per call.
type AvailabilityChecker interface {
	Check(ctx context.Context) *models.AvailabilityReport
}

// EventSink receives every terminal result. Publishing failures never change
// the result returned to the caller.
type EventSink interface {
	PublishCommandResult(ctx context.Context, operation string, result *models.CommandResult) error
	PublishAvailabilityReport(ctx context.Context, report *models.AvailabilityReport) error
}

var (
	_ Controller          = (*plc.Link)(nil)
	_ AvailabilityChecker = (*availability.Orchestrator)(nil)
	_ EventSink           = (*natsutil.EventPublisher)(nil)
)

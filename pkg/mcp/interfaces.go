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

// Package mcp exposes the dispatcher as Model Context Protocol tools and
// provides the synchronous caller bridge used by agents and cellctl.
package mcp

import (
	"context"

	"github.com/carverauto/cellradar/pkg/dispatch"
	"github.com/carverauto/cellradar/pkg/models"
)

//go:generate mockgen -destination=mock_mcp.go -package=mcp github.com/carverauto/cellradar/pkg/mcp Commands

// Commands is the operation surface the tools call into.
type Commands interface {
	StartManufacturing(ctx context.Context, processID *uint16) *models.CommandResult
	SetCoilTurn(ctx context.Context, turn int64) *models.CommandResult
	CalculateRequiredTurns(ctx context.Context, torque float64) *models.CommandResult
	GetSubmodels(ctx context.Context, processName string) *models.CommandResult
	CheckAvailableProcesses(ctx context.Context) *models.AvailabilityReport
	RunProcessStep(ctx context.Context, step string, params map[string]interface{}) *models.CommandResult
	ReadStatus(ctx context.Context, address, count int64) *models.CommandResult
}

var _ Commands = (*dispatch.Dispatcher)(nil)

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

// Package registry reads asset administration shells and submodels from an
// AAS registry over HTTP.
package registry

//go:generate mockgen -destination=mock_registry.go -package=registry github.com/carverauto/cellradar/pkg/registry Registry

import (
	"context"
	"encoding/json"

	"github.com/carverauto/cellradar/pkg/models"
)

// Registry lists registered devices and fetches process submodels.
// Every failure wraps models.ErrRegistryUnavailable.
type Registry interface {
	ListDevices(ctx context.Context) ([]models.DeviceRecord, error)
	GetSubmodel(ctx context.Context, processName string) (json.RawMessage, error)
}

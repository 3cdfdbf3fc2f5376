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

// Package calc derives controller setpoints from motor geometry.
package calc

import (
	"fmt"
	"math"

	"github.com/carverauto/cellradar/pkg/models"
)

// Geometry holds the axial-flux motor constants. Radii are in metres, flux
// density in tesla and current in amperes.
type Geometry struct {
	OuterRadius float64
	InnerRadius float64
	FluxDensity float64
	Current     float64
	Winding     float64
}

// GeometryFromConfig converts the configured constants.
func GeometryFromConfig(cfg models.GeometryConfig) Geometry {
	return Geometry{
		OuterRadius: cfg.OuterRadius,
		InnerRadius: cfg.InnerRadius,
		FluxDensity: cfg.FluxDensity,
		Current:     cfg.Current,
		Winding:     cfg.Winding,
	}
}

// Denominator is the torque produced per turn.
func (g Geometry) Denominator() float64 {
	avgRadius := (g.OuterRadius + g.InnerRadius) / 2
	area := g.OuterRadius*g.OuterRadius - g.InnerRadius*g.InnerRadius

	return (2.0 / 3.0) * math.Pi * g.Winding * g.Current * g.FluxDensity * area * avgRadius
}

// RequiredTurns returns round(torque / denominator). A zero, negative or
// non-finite denominator is ErrInvalidGeometry: a negative one (inner radius
// beyond the outer, or reversed current) would yield negative turns, which
// the turns register cannot hold.
func RequiredTurns(torque float64, g Geometry) (int, error) {
	if math.IsNaN(torque) || math.IsInf(torque, 0) || torque <= 0 {
		return 0, fmt.Errorf("torque %v must be a positive finite number: %w", torque, models.ErrInvalidArgument)
	}

	d := g.Denominator()
	if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, fmt.Errorf("turns denominator is %v: %w", d, models.ErrInvalidGeometry)
	}

	turns := math.Round(torque / d)
	if turns > math.MaxInt32 {
		return 0, fmt.Errorf("torque %v yields %v turns: %w", torque, turns, models.ErrInvalidArgument)
	}

	return int(turns), nil
}

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

package scan

import (
	"strings"

	"github.com/carverauto/cellradar/pkg/models"
)

// Classifier turns probe results into availability statuses.
type Classifier struct {
	markers []models.MarkerSet
}

// NewClassifier returns a classifier using markers as the fallback table.
// An empty table means results without a structured signal are never
// treated as available.
func NewClassifier(markers []models.MarkerSet) *Classifier {
	return &Classifier{markers: markers}
}

// Classify maps r to available or ping_failed. A probe error or timeout is
// always ping_failed. A structured signal decides on its own, except that a
// matching failure marker vetoes a reported success. Without a signal the
// output must match a success marker and no failure marker.
func (c *Classifier) Classify(r *Result) models.ProbeStatus {
	if r.Err != nil {
		return models.ProbePingFailed
	}

	if r.HasSignal {
		if r.Success && !c.matches(r.Output, failureMarkers) {
			return models.ProbeAvailable
		}

		return models.ProbePingFailed
	}

	if c.matches(r.Output, failureMarkers) {
		return models.ProbePingFailed
	}

	if c.matches(r.Output, successMarkers) {
		return models.ProbeAvailable
	}

	return models.ProbePingFailed
}

type markerKind int

const (
	successMarkers markerKind = iota
	failureMarkers
)

func (c *Classifier) matches(output string, kind markerKind) bool {
	if output == "" {
		return false
	}

	lower := strings.ToLower(output)

	for _, set := range c.markers {
		phrases := set.Success
		if kind == failureMarkers {
			phrases = set.Failure
		}

		for _, p := range phrases {
			if p != "" && strings.Contains(lower, strings.ToLower(p)) {
				return true
			}
		}
	}

	return false
}

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

// Package scan probes device addresses and classifies the outcome.
package scan

//go:generate mockgen -destination=mock_scan.go -package=scan github.com/carverauto/cellradar/pkg/scan Prober

import (
	"context"
	"time"
)

// Result is the raw outcome of a single probe. HasSignal is set when the
// probe produced a structured, locale independent answer (an echo reply,
// a TCP handshake, or an exit status); Success is only meaningful then.
type Result struct {
	HasSignal bool
	Success   bool
	// ExitCode is the ping utility's exit status, or -1 when not applicable.
	ExitCode int
	Sent     int
	Received int
	RTT      time.Duration
	// Output is the raw diagnostic text reported by the probe.
	Output string
	Err    error
}

// Diagnostic returns the text recorded on a probe outcome.
func (r *Result) Diagnostic() string {
	switch {
	case r.Output != "":
		return r.Output
	case r.Err != nil:
		return r.Err.Error()
	default:
		return ""
	}
}

// Prober checks whether a device address is reachable. Implementations
// bound every probe by their configured timeout and report failures in the
// Result rather than returning them.
type Prober interface {
	Probe(ctx context.Context, ip, port string) Result
}

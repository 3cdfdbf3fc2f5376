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
	"fmt"

	"github.com/carverauto/cellradar/pkg/logger"
	"github.com/carverauto/cellradar/pkg/models"
)

var (
	_ Prober = (*ICMPProber)(nil)
	_ Prober = (*ExecProber)(nil)
	_ Prober = (*TCPProber)(nil)
)

// NewProber builds the prober selected by cfg.Mode.
func NewProber(cfg *models.ProbeConfig, log logger.Logger) (Prober, error) {
	timeout := cfg.Timeout.Std()

	switch cfg.Mode {
	case models.ProbeModeICMP, "":
		return NewICMPProber(timeout, cfg.Count, cfg.Privileged, log), nil
	case models.ProbeModeExec:
		return NewExecProber(cfg.Command, timeout, cfg.Count, log), nil
	case models.ProbeModeTCP:
		return NewTCPProber(timeout, log), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, cfg.Mode)
	}
}

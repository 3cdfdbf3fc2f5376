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
	"context"
	"net"
	"time"

	"github.com/carverauto/cellradar/pkg/logger"
	"github.com/carverauto/cellradar/pkg/models"
)

// TCPProber treats a completed TCP handshake on the device port as reachable.
type TCPProber struct {
	timeout time.Duration
	logger  logger.Logger
}

// NewTCPProber returns a connect prober.
func NewTCPProber(timeout time.Duration, log logger.Logger) *TCPProber {
	if timeout <= 0 {
		timeout = defaultICMPTimeout
	}

	return &TCPProber{timeout: timeout, logger: log}
}

// Probe dials ip:port, defaulting the port to the device service port.
func (p *TCPProber) Probe(ctx context.Context, ip, port string) Result {
	res := Result{ExitCode: -1}

	if port == "" {
		port = models.DefaultDevicePort
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()

	var dialer net.Dialer

	conn, err := dialer.DialContext(probeCtx, "tcp", net.JoinHostPort(ip, port))
	if err != nil {
		if probeCtx.Err() != nil {
			res.Err = probeCtx.Err()

			return res
		}

		// refused or unreachable: the network answered
		res.HasSignal = true
		res.Output = err.Error()

		return res
	}

	defer func(conn net.Conn) {
		if err := conn.Close(); err != nil {
			p.logger.Error().Err(err).Msg("failed to close connection")
		}
	}(conn)

	res.HasSignal = true
	res.Success = true
	res.Sent, res.Received = 1, 1
	res.RTT = time.Since(start)

	return res
}

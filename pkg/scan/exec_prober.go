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
	"errors"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/cellradar/pkg/logger"
)

const (
	defaultPingCommand = "ping"
	// execGrace covers process start-up on top of the ping utility's own wait.
	execGrace = time.Second
)

// statistics line of iputils and BSD ping; best effort, the exit status decides
//
//nolint:gochecknoglobals // compiled once
var pingStats = regexp.MustCompile(`(\d+) packets transmitted, (\d+) (?:packets )?received`)

// ExecProber runs the system ping utility. Its exit status is the signal;
// the raw output is kept for diagnostics and the marker table.
type ExecProber struct {
	command string
	goos    string
	timeout time.Duration
	count   int
	logger  logger.Logger
}

// NewExecProber returns a prober running command (default "ping").
func NewExecProber(command string, timeout time.Duration, count int, log logger.Logger) *ExecProber {
	if command == "" {
		command = defaultPingCommand
	}

	if timeout <= 0 {
		timeout = defaultICMPTimeout
	}

	if count <= 0 {
		count = 1
	}

	return &ExecProber{
		command: command,
		goos:    runtime.GOOS,
		timeout: timeout,
		count:   count,
		logger:  log,
	}
}

// Probe ignores port.
func (p *ExecProber) Probe(ctx context.Context, ip, _ string) Result {
	res := Result{ExitCode: -1}

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout*time.Duration(p.count)+execGrace)
	defer cancel()

	//nolint:gosec // command comes from configuration, ip is passed as a single argument
	cmd := exec.CommandContext(probeCtx, p.command, pingArgs(p.goos, ip, p.count, p.timeout)...)
	cmd.WaitDelay = execGrace

	out, err := cmd.CombinedOutput()
	res.Output = strings.TrimSpace(string(out))

	if probeCtx.Err() != nil {
		res.Err = fmt.Errorf("%w: %s after %s", errProbeTimedOut, p.command, p.timeout)

		return res
	}

	var exitErr *exec.ExitError

	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.Err = fmt.Errorf("run %s: %w", p.command, err)

		return res
	}

	res.HasSignal = true
	res.Success = res.ExitCode == 0

	if m := pingStats.FindStringSubmatch(res.Output); m != nil {
		res.Sent, _ = strconv.Atoi(m[1])
		res.Received, _ = strconv.Atoi(m[2])

		if res.Received == 0 {
			res.Success = false
		}
	}

	p.logger.Debug().
		Str("ip", ip).
		Int("exit_code", res.ExitCode).
		Int("received", res.Received).
		Msg("ping finished")

	return res
}

// pingArgs builds the argument list for one ping invocation.
func pingArgs(goos, ip string, count int, timeout time.Duration) []string {
	n := strconv.Itoa(count)

	switch goos {
	case "windows":
		return []string{"-n", n, "-w", strconv.FormatInt(timeout.Milliseconds(), 10), ip}
	case "darwin", "freebsd", "openbsd", "netbsd":
		return []string{"-c", n, "-t", waitSeconds(timeout), ip}
	default:
		return []string{"-c", n, "-W", waitSeconds(timeout), ip}
	}
}

func waitSeconds(timeout time.Duration) string {
	secs := int(math.Ceil(timeout.Seconds()))
	if secs < 1 {
		secs = 1
	}

	return strconv.Itoa(secs)
}

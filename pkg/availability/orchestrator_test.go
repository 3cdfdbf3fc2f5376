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

package availability

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/cellradar/pkg/logger"
	"github.com/carverauto/cellradar/pkg/models"
	"github.com/carverauto/cellradar/pkg/registry"
	"github.com/carverauto/cellradar/pkg/scan"
)

func reply() scan.Result {
	return scan.Result{HasSignal: true, Success: true, Sent: 1, Received: 1, RTT: time.Millisecond, Output: "1/1 echo replies"}
}

func noReply() scan.Result {
	return scan.Result{HasSignal: true, Sent: 1, Output: "0/1 echo replies"}
}

func newTestOrchestrator(reg registry.Registry, prober scan.Prober, workers int, timeout time.Duration) *Orchestrator {
	cfg := &models.ProbeConfig{Mode: models.ProbeModeICMP, Workers: workers, Timeout: models.Duration(timeout), Count: 1}

	return NewOrchestrator(reg, prober, scan.NewClassifier(nil), cfg, logger.NewTestLogger())
}

func TestCheckSingleAvailableDevice(t *testing.T) {
	ctrl := gomock.NewController(t)
	reg := registry.NewMockRegistry(ctrl)
	prober := scan.NewMockProber(ctrl)

	reg.EXPECT().ListDevices(gomock.Any()).Return([]models.DeviceRecord{
		{Name: "WindingStation", IP: "10.0.0.5", Port: "9000"},
	}, nil)
	prober.EXPECT().Probe(gomock.Any(), "10.0.0.5", "9000").Return(reply())

	report := newTestOrchestrator(reg, prober, 4, time.Second).Check(context.Background())

	assert.Equal(t, models.ReportOK, report.Status)
	assert.Equal(t, []models.ProbeOutcome{
		{Name: "WindingStation", IP: "10.0.0.5", Port: "9000", Status: models.ProbeAvailable, Diagnostic: "1/1 echo replies"},
	}, report.Available)
	assert.Empty(t, report.Unavailable)
	assert.NotNil(t, report.Unavailable)
}

func TestCheckRegistryFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	reg := registry.NewMockRegistry(ctrl)
	// no probe expectations: a failed listing never probes
	prober := scan.NewMockProber(ctrl)

	reg.EXPECT().ListDevices(gomock.Any()).
		Return(nil, fmt.Errorf("list shells: %w: %w", models.ErrRegistryUnavailable, errors.New("connection refused")))

	report := newTestOrchestrator(reg, prober, 4, time.Second).Check(context.Background())

	assert.Equal(t, models.ReportError, report.Status)
	assert.Contains(t, report.Message, "Failed to fetch AAS list from registry")
	assert.Equal(t, []models.ProbeOutcome{}, report.Available)
	assert.Equal(t, []models.ProbeOutcome{}, report.Unavailable)
}

func TestCheckMissingAddressIsNeverProbed(t *testing.T) {
	ctrl := gomock.NewController(t)
	reg := registry.NewMockRegistry(ctrl)
	prober := scan.NewMockProber(ctrl)

	reg.EXPECT().ListDevices(gomock.Any()).Return([]models.DeviceRecord{
		{Name: "PressStation"},
		{Name: "CutStation", IP: "10.0.0.7", Port: "9000"},
	}, nil)
	prober.EXPECT().Probe(gomock.Any(), "10.0.0.7", "9000").Return(noReply())

	report := newTestOrchestrator(reg, prober, 4, time.Second).Check(context.Background())

	assert.Empty(t, report.Available)
	require.Len(t, report.Unavailable, 2)
	assert.Equal(t, models.ProbeOutcome{Name: "PressStation", Status: models.ProbeNoIP}, report.Unavailable[0])
	assert.Equal(t, models.ProbePingFailed, report.Unavailable[1].Status)
	assert.Equal(t, "10.0.0.7", report.Unavailable[1].IP)
}

func TestCheckKeepsRegistryOrderUnderParallelProbes(t *testing.T) {
	ctrl := gomock.NewController(t)
	reg := registry.NewMockRegistry(ctrl)
	prober := scan.NewMockProber(ctrl)

	const devices = 12

	records := make([]models.DeviceRecord, devices)
	for i := range records {
		records[i] = models.DeviceRecord{Name: fmt.Sprintf("station-%02d", i), IP: fmt.Sprintf("10.0.1.%d", i), Port: "9000"}
	}

	reg.EXPECT().ListDevices(gomock.Any()).Return(records, nil)

	var inFlight, peak atomic.Int32

	prober.EXPECT().Probe(gomock.Any(), gomock.Any(), "9000").Times(devices).
		DoAndReturn(func(_ context.Context, ip, _ string) scan.Result {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)

			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}

			var last int
			_, _ = fmt.Sscanf(ip, "10.0.1.%d", &last)

			// later devices finish first
			time.Sleep(time.Duration(devices-last) * 2 * time.Millisecond)

			if last%3 == 0 {
				return noReply()
			}

			return reply()
		})

	report := newTestOrchestrator(reg, prober, 4, time.Second).Check(context.Background())

	require.Len(t, report.Available, 8)
	require.Len(t, report.Unavailable, 4)
	assert.LessOrEqual(t, peak.Load(), int32(4))

	var names []string
	for _, o := range report.Available {
		names = append(names, o.Name)
	}

	assert.Equal(t, []string{
		"station-01", "station-02", "station-04", "station-05",
		"station-07", "station-08", "station-10", "station-11",
	}, names)

	names = names[:0]
	for _, o := range report.Unavailable {
		names = append(names, o.Name)
	}

	assert.Equal(t, []string{"station-00", "station-03", "station-06", "station-09"}, names)
}

func TestCheckPartitionsEveryRecordOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	reg := registry.NewMockRegistry(ctrl)
	prober := scan.NewMockProber(ctrl)

	records := []models.DeviceRecord{
		{Name: "A", IP: "10.0.0.5", Port: "9000"},
		{Name: "B", IP: "10.0.0.5", Port: "9000"},
		{Name: "C"},
		{Name: "D", IP: "10.0.0.9", Port: "9001"},
	}

	reg.EXPECT().ListDevices(gomock.Any()).Return(records, nil)
	// identical addresses are distinct assets and are both probed
	prober.EXPECT().Probe(gomock.Any(), "10.0.0.5", "9000").Times(2).Return(reply())
	prober.EXPECT().Probe(gomock.Any(), "10.0.0.9", "9001").Return(scan.Result{Err: errors.New("network is unreachable")})

	report := newTestOrchestrator(reg, prober, 2, time.Second).Check(context.Background())

	seen := make(map[string]int)

	for _, o := range report.Available {
		assert.Equal(t, models.ProbeAvailable, o.Status)
		seen[o.Name]++
	}

	for _, o := range report.Unavailable {
		assert.NotEqual(t, models.ProbeAvailable, o.Status)
		seen[o.Name]++
	}

	assert.Equal(t, map[string]int{"A": 1, "B": 1, "C": 1, "D": 1}, seen)
	assert.Equal(t, "network is unreachable", report.Unavailable[1].Diagnostic)
}

func TestCheckAbandonsHungProbe(t *testing.T) {
	ctrl := gomock.NewController(t)
	reg := registry.NewMockRegistry(ctrl)
	prober := scan.NewMockProber(ctrl)

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	reg.EXPECT().ListDevices(gomock.Any()).Return([]models.DeviceRecord{
		{Name: "Stuck", IP: "10.0.0.66", Port: "9000"},
	}, nil)
	prober.EXPECT().Probe(gomock.Any(), "10.0.0.66", "9000").
		DoAndReturn(func(context.Context, string, string) scan.Result {
			// ignores its context
			<-release

			return reply()
		})

	start := time.Now()
	report := newTestOrchestrator(reg, prober, 1, 20*time.Millisecond).Check(context.Background())

	assert.Less(t, time.Since(start), 5*time.Second)
	require.Len(t, report.Unavailable, 1)
	assert.Equal(t, models.ProbePingFailed, report.Unavailable[0].Status)
	assert.Contains(t, report.Unavailable[0].Diagnostic, "probe abandoned")
}

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

package plc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/cellradar/pkg/models"
)

func TestRunStepInspection(t *testing.T) {
	ctrl := gomock.NewController(t)
	dialer := NewMockDialer(ctrl)
	session := NewMockSession(ctrl)

	dialer.EXPECT().Dial(gomock.Any()).Return(session, nil)
	gomock.InOrder(
		session.EXPECT().WriteRegister(uint16(150), uint16(2)).Return(nil),
		session.EXPECT().WriteRegister(uint16(151), uint16(2)).Return(nil),
		session.EXPECT().ReadHoldingRegisters(uint16(250), uint16(4)).Return([]uint16{1, 92, 0, 1234}, nil),
		session.EXPECT().Close().Return(nil),
	)

	link, rec := newTestLink(t, dialer, nil)

	result, err := link.RunStep(context.Background(), "inspection", map[string]interface{}{
		"inspection_type": "Electrical",
		"part_id":         "P-17",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, result.StatusWord)
	assert.Equal(t, map[string]uint16{"inspection_type": 2}, result.Written)
	assert.Equal(t, map[string]string{"part_id": "P-17"}, result.Labels)
	assert.InDelta(t, 92, result.Readbacks["quality_score"], 1e-9)
	assert.InDelta(t, 0, result.Readbacks["defect_count"], 1e-9)
	assert.InDelta(t, 12.34, result.Readbacks["measurement"], 1e-9)
	require.NotNil(t, result.Passed)
	assert.True(t, *result.Passed)
	assert.Equal(t, []time.Duration{time.Second}, rec.calls)
}

func TestRunStepInspectionBelowThreshold(t *testing.T) {
	ctrl := gomock.NewController(t)
	dialer := NewMockDialer(ctrl)
	session := NewMockSession(ctrl)

	dialer.EXPECT().Dial(gomock.Any()).Return(session, nil)
	session.EXPECT().WriteRegister(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	session.EXPECT().ReadHoldingRegisters(uint16(250), uint16(4)).Return([]uint16{1, 79, 3, 0}, nil)
	session.EXPECT().Close().Return(nil)

	link, _ := newTestLink(t, dialer, nil)

	// inspection_type defaults to visual
	result, err := link.RunStep(context.Background(), "inspection", nil)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), result.Written["inspection_type"])
	require.NotNil(t, result.Passed)
	assert.False(t, *result.Passed)
}

func TestRunStepScalingAndDefaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	dialer := NewMockDialer(ctrl)
	session := NewMockSession(ctrl)

	dialer.EXPECT().Dial(gomock.Any()).Return(session, nil)
	gomock.InOrder(
		session.EXPECT().WriteRegister(uint16(120), uint16(1)).Return(nil),
		session.EXPECT().WriteRegister(uint16(121), uint16(123)).Return(nil),
		session.EXPECT().WriteRegister(uint16(122), uint16(900)).Return(nil),
		session.EXPECT().ReadHoldingRegisters(uint16(220), uint16(1)).Return([]uint16{1}, nil),
		session.EXPECT().Close().Return(nil),
	)

	link, rec := newTestLink(t, dialer, nil)

	result, err := link.RunStep(context.Background(), "cutting", map[string]interface{}{
		"length":    12.37,
		"wire_type": "AWG18",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]uint16{"length": 123, "angle": 900}, result.Written)
	assert.Nil(t, result.Passed)
	assert.Equal(t, []time.Duration{1500 * time.Millisecond}, rec.calls)
}

func TestRunStepSettleFollowsParameter(t *testing.T) {
	tests := []struct {
		name      string
		turns     interface{}
		wantTurns uint16
		want      time.Duration
	}{
		{"scaled by turns", 20, 20, 2 * time.Second},
		{"capped", "100", 100, 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			dialer := NewMockDialer(ctrl)
			session := NewMockSession(ctrl)

			dialer.EXPECT().Dial(gomock.Any()).Return(session, nil)
			session.EXPECT().WriteRegister(gomock.Any(), gomock.Any()).Return(nil).Times(4)
			session.EXPECT().ReadHoldingRegisters(uint16(240), uint16(2)).Return([]uint16{1, 20}, nil)
			session.EXPECT().Close().Return(nil)

			link, rec := newTestLink(t, dialer, nil)

			result, err := link.RunStep(context.Background(), "winding", map[string]interface{}{
				"wire_gauge": 0.5,
				"turns":      tt.turns,
				"tension":    2.5,
			})
			require.NoError(t, err)
			assert.Equal(t, map[string]uint16{"wire_gauge": 50, "turns": tt.wantTurns, "tension": 25}, result.Written)
			assert.InDelta(t, 20, result.Readbacks["actual_turns"], 1e-9)
			assert.Equal(t, []time.Duration{tt.want}, rec.calls)
		})
	}
}

func TestRunStepStatusWords(t *testing.T) {
	tests := []struct {
		name    string
		status  uint16
		message string
	}{
		{"incomplete", 0, "did not complete"},
		{"device error", 7, "device error code 7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			dialer := NewMockDialer(ctrl)
			session := NewMockSession(ctrl)

			dialer.EXPECT().Dial(gomock.Any()).Return(session, nil)
			session.EXPECT().WriteRegister(gomock.Any(), gomock.Any()).Return(nil).Times(3)
			session.EXPECT().ReadHoldingRegisters(uint16(230), uint16(2)).Return([]uint16{tt.status, 181}, nil)
			session.EXPECT().Close().Return(nil)

			link, _ := newTestLink(t, dialer, nil)

			result, err := link.RunStep(context.Background(), "welding", map[string]interface{}{
				"temperature": 180,
				"duration":    1.2,
				"joint_id":    "J1",
			})
			require.ErrorIs(t, err, models.ErrProcessFailed)
			assert.Contains(t, err.Error(), tt.message)
			assert.Equal(t, models.CodeProcessFailed, models.ErrorCode(err))

			require.NotNil(t, result)
			assert.Equal(t, tt.status, result.StatusWord)
			assert.InDelta(t, 181, result.Readbacks["actual_temperature"], 1e-9)
		})
	}
}

func TestRunStepArgumentErrorsNeverDial(t *testing.T) {
	tests := []struct {
		name   string
		step   string
		params map[string]interface{}
	}{
		{"unknown step", "soldering", nil},
		{"unknown key", "insertion", map[string]interface{}{"speed": 3}},
		{"missing required", "pressing", map[string]interface{}{"pressure": 2}},
		{"register overflow", "pressing", map[string]interface{}{"pressure": 2, "duration": 70}},
		{"negative value", "cutting", map[string]interface{}{"length": -1}},
		{"not a number", "cutting", map[string]interface{}{"length": "long"}},
		{"enum name", "inspection", map[string]interface{}{"inspection_type": "thermal"}},
		{"enum code", "inspection", map[string]interface{}{"inspection_type": 4}},
		{"wrong type", "cutting", map[string]interface{}{"length": []int{1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link, _ := newTestLink(t, NewMockDialer(gomock.NewController(t)), nil)

			result, err := link.RunStep(context.Background(), tt.step, tt.params)
			require.ErrorIs(t, err, models.ErrInvalidArgument)
			assert.Nil(t, result)
		})
	}
}

func TestRunStepWriteFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	dialer := NewMockDialer(ctrl)
	session := NewMockSession(ctrl)

	dialer.EXPECT().Dial(gomock.Any()).Return(session, nil)
	session.EXPECT().WriteRegister(uint16(100), uint16(1)).Return(errBus)
	session.EXPECT().Close().Return(nil)

	link, rec := newTestLink(t, dialer, nil)

	_, err := link.RunStep(context.Background(), "insertion", nil)
	require.ErrorIs(t, err, models.ErrRegisterIO)
	assert.Contains(t, err.Error(), "insertion command register 100")
	assert.Empty(t, rec.calls)
}

func TestStepOverrides(t *testing.T) {
	ctrl := gomock.NewController(t)
	dialer := NewMockDialer(ctrl)
	session := NewMockSession(ctrl)

	dialer.EXPECT().Dial(gomock.Any()).Return(session, nil)
	gomock.InOrder(
		session.EXPECT().WriteRegister(uint16(300), uint16(1)).Return(nil),
		session.EXPECT().WriteRegister(uint16(111), uint16(40)).Return(nil),
		session.EXPECT().WriteRegister(uint16(112), uint16(1000)).Return(nil),
		session.EXPECT().ReadHoldingRegisters(uint16(310), uint16(1)).Return([]uint16{1}, nil),
		session.EXPECT().Close().Return(nil),
	)

	link, rec := newTestLink(t, dialer, func(c *models.ControllerConfig) {
		c.Steps = []models.StepConfig{{
			Name:            "pressing",
			CommandRegister: 300,
			StatusRegister:  310,
			Settle:          models.Duration(500 * time.Millisecond),
			Scales:          map[string]float64{"pressure": 20},
		}}
	})

	_, err := link.RunStep(context.Background(), "pressing", map[string]interface{}{"pressure": 2, "duration": 1})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, rec.calls)

	// the defaults table is not modified by overrides
	for _, s := range DefaultSteps() {
		if s.Name == "pressing" {
			assert.Equal(t, uint16(110), s.CommandRegister)
			assert.InDelta(t, 10, s.Parameters[0].Scale, 1e-9)
		}
	}
}

func TestStepOverridesRejected(t *testing.T) {
	tests := []struct {
		name     string
		override models.StepConfig
	}{
		{"unknown step", models.StepConfig{Name: "painting"}},
		{"unknown register", models.StepConfig{Name: "cutting", Scales: map[string]float64{"speed": 2}}},
		{"zero scale", models.StepConfig{Name: "cutting", Scales: map[string]float64{"length": 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := models.DefaultConfig().Controller
			cfg.Steps = []models.StepConfig{tt.override}

			_, err := NewLink(NewMockDialer(gomock.NewController(t)), &cfg, nil)
			require.ErrorIs(t, err, models.ErrInvalidArgument)
		})
	}
}

func TestStepsSortedByName(t *testing.T) {
	link, _ := newTestLink(t, NewMockDialer(gomock.NewController(t)), nil)

	names := make([]string, 0, 6)
	for _, s := range link.Steps() {
		names = append(names, s.Name)
	}

	assert.Equal(t, []string{"cutting", "inspection", "insertion", "pressing", "welding", "winding"}, names)
}

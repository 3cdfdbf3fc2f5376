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
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/cellradar/pkg/models"
)

// Status words reported in the first register of a step's status group.
const (
	StatusIncomplete uint16 = 0
	StatusSuccess    uint16 = 1
)

// Parameter is one scaled setpoint register of a process step.
type Parameter struct {
	Name     string
	Register uint16
	Scale    float64
	Default  *float64
	// Enum maps symbolic values to codes 1..len(Enum).
	Enum []string
}

// Readback is one value of the status group after the status word.
type Readback struct {
	Name   string
	Offset uint16
	Scale  float64
}

// Step is a command/parameter/status register group on the controller.
type Step struct {
	Name            string
	CommandRegister uint16
	CommandCode     uint16
	Parameters      []Parameter
	StatusRegister  uint16
	StatusCount     uint16
	Readbacks       []Readback
	// Labels are caller identifiers echoed in the result and never written.
	Labels []string
	// Settle is the wait between the last write and the status read. When
	// SettleParam is set the wait is that parameter times SettlePerUnit,
	// capped at Settle.
	Settle        time.Duration
	SettleParam   string
	SettlePerUnit time.Duration
	// PassThreshold, when set, reports passed = Readbacks["quality_score"] >= threshold.
	PassThreshold *float64
}

// StepResult is the outcome of RunStep.
type StepResult struct {
	Step       string             `json:"step"`
	StatusWord uint16             `json:"status_word"`
	Written    map[string]uint16  `json:"written"`
	Readbacks  map[string]float64 `json:"readbacks,omitempty"`
	Labels     map[string]string  `json:"labels,omitempty"`
	Passed     *bool              `json:"passed,omitempty"`
}

func f64(v float64) *float64 { return &v }

// DefaultSteps returns the built-in step table.
func DefaultSteps() []Step {
	return []Step{
		{
			Name: "insertion", CommandRegister: 100, CommandCode: 1,
			Parameters: []Parameter{
				{Name: "force", Register: 101, Scale: 10, Default: f64(10)},
			},
			StatusRegister: 200, StatusCount: 1,
			Labels: []string{"coil_id", "position"},
			Settle: 2 * time.Second,
		},
		{
			Name: "pressing", CommandRegister: 110, CommandCode: 1,
			Parameters: []Parameter{
				{Name: "pressure", Register: 111, Scale: 10},
				{Name: "duration", Register: 112, Scale: 1000},
			},
			StatusRegister: 210, StatusCount: 1,
			Labels: []string{"component_id"},
			Settle: 3 * time.Second, SettleParam: "duration", SettlePerUnit: time.Second,
		},
		{
			Name: "cutting", CommandRegister: 120, CommandCode: 1,
			Parameters: []Parameter{
				{Name: "length", Register: 121, Scale: 10},
				{Name: "angle", Register: 122, Scale: 10, Default: f64(90)},
			},
			StatusRegister: 220, StatusCount: 1,
			Labels: []string{"wire_type"},
			Settle: 1500 * time.Millisecond,
		},
		{
			Name: "welding", CommandRegister: 130, CommandCode: 1,
			Parameters: []Parameter{
				{Name: "temperature", Register: 131, Scale: 1},
				{Name: "duration", Register: 132, Scale: 10},
			},
			StatusRegister: 230, StatusCount: 2,
			Readbacks: []Readback{{Name: "actual_temperature", Offset: 1, Scale: 1}},
			Labels:    []string{"joint_id"},
			Settle:    2500 * time.Millisecond, SettleParam: "duration", SettlePerUnit: time.Second,
		},
		{
			Name: "winding", CommandRegister: 140, CommandCode: 1,
			Parameters: []Parameter{
				{Name: "wire_gauge", Register: 141, Scale: 100},
				{Name: "turns", Register: 142, Scale: 1},
				{Name: "tension", Register: 143, Scale: 10},
			},
			StatusRegister: 240, StatusCount: 2,
			Readbacks: []Readback{{Name: "actual_turns", Offset: 1, Scale: 1}},
			Labels:    []string{"coil_id"},
			Settle:    5 * time.Second, SettleParam: "turns", SettlePerUnit: 100 * time.Millisecond,
		},
		{
			Name: "inspection", CommandRegister: 150, CommandCode: 2,
			Parameters: []Parameter{
				{Name: "inspection_type", Register: 151, Scale: 1, Default: f64(1),
					Enum: []string{"visual", "electrical", "dimensional"}},
			},
			StatusRegister: 250, StatusCount: 4,
			Readbacks: []Readback{
				{Name: "quality_score", Offset: 1, Scale: 1},
				{Name: "defect_count", Offset: 2, Scale: 1},
				{Name: "measurement", Offset: 3, Scale: 100},
			},
			Labels:        []string{"part_id"},
			Settle:        time.Second,
			PassThreshold: f64(80),
		},
	}
}

func buildSteps(overrides []models.StepConfig) (map[string]Step, error) {
	steps := make(map[string]Step)
	for _, s := range DefaultSteps() {
		steps[s.Name] = s
	}

	for _, o := range overrides {
		step, ok := steps[o.Name]
		if !ok {
			return nil, fmt.Errorf("step override %q: %w", o.Name, errUnknownStep)
		}

		if o.CommandRegister != 0 {
			step.CommandRegister = o.CommandRegister
		}

		if o.StatusRegister != 0 {
			step.StatusRegister = o.StatusRegister
		}

		if o.Settle != 0 {
			step.Settle = o.Settle.Std()
			step.SettleParam = ""
		}

		if err := applyScales(&step, o.Scales); err != nil {
			return nil, err
		}

		steps[o.Name] = step
	}

	return steps, nil
}

func applyScales(step *Step, scales map[string]float64) error {
	if len(scales) == 0 {
		return nil
	}

	params := append([]Parameter(nil), step.Parameters...)
	readbacks := append([]Readback(nil), step.Readbacks...)

	for name, scale := range scales {
		if scale <= 0 {
			return fmt.Errorf("step %s scale %q must be positive: %w", step.Name, name, models.ErrInvalidArgument)
		}

		found := false

		for i := range params {
			if params[i].Name == name {
				params[i].Scale, found = scale, true
			}
		}

		for i := range readbacks {
			if readbacks[i].Name == name {
				readbacks[i].Scale, found = scale, true
			}
		}

		if !found {
			return fmt.Errorf("step %s has no register %q: %w", step.Name, name, errUnknownParameter)
		}
	}

	step.Parameters, step.Readbacks = params, readbacks

	return nil
}

// Steps lists the configured steps in name order.
func (l *Link) Steps() []Step {
	out := make([]Step, 0, len(l.steps))
	for _, s := range l.steps {
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// RunStep writes the step's command register and scaled parameters, waits
// for the settle time and reads the status group. Every value is encoded
// before the connection is opened, so argument errors never reach the
// controller. A status word other than 1 fails with ErrProcessFailed and
// still returns the result read.
func (l *Link) RunStep(ctx context.Context, name string, params map[string]interface{}) (*StepResult, error) {
	step, ok := l.steps[name]
	if !ok {
		return nil, fmt.Errorf("%q (known: %s): %w", name, strings.Join(l.stepNames(), ", "), errUnknownStep)
	}

	result, raw, err := step.encode(params)
	if err != nil {
		return nil, err
	}

	err = l.withSession(ctx, OpRunStep, func(s Session) error {
		if err := s.WriteRegister(step.CommandRegister, step.CommandCode); err != nil {
			return writeError(step.Name+" command register", step.CommandRegister, err)
		}

		for _, p := range step.Parameters {
			if err := s.WriteRegister(p.Register, result.Written[p.Name]); err != nil {
				return writeError(step.Name+" "+p.Name+" register", p.Register, err)
			}
		}

		l.sleep(step.settle(raw))

		values, err := s.ReadHoldingRegisters(step.StatusRegister, step.StatusCount)
		if err != nil {
			return readError(step.StatusRegister, step.StatusCount, err)
		}

		step.decode(result, values)

		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info().
		Str("step", step.Name).
		Uint16("status_word", result.StatusWord).
		Interface("written", result.Written).
		Msg("Process step finished")

	switch result.StatusWord {
	case StatusSuccess:
		return result, nil
	case StatusIncomplete:
		return result, fmt.Errorf("%s did not complete (status 0): %w", step.Name, models.ErrProcessFailed)
	default:
		return result, fmt.Errorf("%s reported device error code %d: %w", step.Name, result.StatusWord, models.ErrProcessFailed)
	}
}

func (l *Link) stepNames() []string {
	names := make([]string, 0, len(l.steps))
	for n := range l.steps {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

// encode validates params and returns the register values keyed by
// parameter name along with the unscaled inputs.
func (s *Step) encode(params map[string]interface{}) (*StepResult, map[string]float64, error) {
	result := &StepResult{
		Step:    s.Name,
		Written: make(map[string]uint16, len(s.Parameters)),
	}
	raw := make(map[string]float64, len(s.Parameters))

	known := make(map[string]bool, len(s.Parameters)+len(s.Labels))

	for _, label := range s.Labels {
		known[label] = true

		if v, ok := params[label]; ok {
			if result.Labels == nil {
				result.Labels = make(map[string]string)
			}

			result.Labels[label] = fmt.Sprint(v)
		}
	}

	for _, p := range s.Parameters {
		known[p.Name] = true

		value, err := p.resolve(params[p.Name], params[p.Name] != nil)
		if err != nil {
			return nil, nil, fmt.Errorf("%s %s: %w", s.Name, p.Name, err)
		}

		reg, err := p.scale(value)
		if err != nil {
			return nil, nil, fmt.Errorf("%s %s: %w", s.Name, p.Name, err)
		}

		raw[p.Name] = value
		result.Written[p.Name] = reg
	}

	for key := range params {
		if !known[key] {
			return nil, nil, fmt.Errorf("%s does not take %q: %w", s.Name, key, models.ErrInvalidArgument)
		}
	}

	return result, raw, nil
}

func (p *Parameter) resolve(v interface{}, present bool) (float64, error) {
	if !present {
		if p.Default == nil {
			return 0, fmt.Errorf("required parameter missing: %w", models.ErrInvalidArgument)
		}

		return *p.Default, nil
	}

	if s, ok := v.(string); ok && len(p.Enum) > 0 {
		for i, name := range p.Enum {
			if strings.EqualFold(name, s) {
				return float64(i + 1), nil
			}
		}

		return 0, fmt.Errorf("%q is not one of %s: %w", s, strings.Join(p.Enum, ", "), models.ErrInvalidArgument)
	}

	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}

	if len(p.Enum) > 0 && (f < 1 || f > float64(len(p.Enum)) || f != math.Trunc(f)) {
		return 0, fmt.Errorf("code %v outside 1..%d: %w", f, len(p.Enum), models.ErrInvalidArgument)
	}

	return f, nil
}

// scale truncates toward zero like the controller's fixed-point registers.
func (p *Parameter) scale(value float64) (uint16, error) {
	scaled := math.Trunc(value * p.Scale)
	if math.IsNaN(scaled) || scaled < 0 || scaled > math.MaxUint16 {
		return 0, fmt.Errorf("%v x%v = %v does not fit a 16-bit register: %w", value, p.Scale, scaled, models.ErrInvalidArgument)
	}

	return uint16(scaled), nil
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%q is not a number: %w", n, models.ErrInvalidArgument)
		}

		return f, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number: %w", n, models.ErrInvalidArgument)
		}

		return f, nil
	default:
		return 0, fmt.Errorf("%v (%T) is not a number: %w", v, v, models.ErrInvalidArgument)
	}
}

func (s *Step) settle(raw map[string]float64) time.Duration {
	if s.SettleParam == "" {
		return s.Settle
	}

	d := time.Duration(raw[s.SettleParam] * float64(s.SettlePerUnit))
	if d > s.Settle || d < 0 {
		return s.Settle
	}

	return d
}

func (s *Step) decode(result *StepResult, values []uint16) {
	if len(values) > 0 {
		result.StatusWord = values[0]
	}

	if len(s.Readbacks) > 0 {
		result.Readbacks = make(map[string]float64, len(s.Readbacks))
	}

	for _, rb := range s.Readbacks {
		if int(rb.Offset) < len(values) {
			result.Readbacks[rb.Name] = float64(values[rb.Offset]) / rb.Scale
		}
	}

	if s.PassThreshold != nil {
		if score, ok := result.Readbacks["quality_score"]; ok {
			passed := score >= *s.PassThreshold
			result.Passed = &passed
		}
	}
}

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

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/carverauto/cellradar/pkg/dispatch"
	"github.com/carverauto/cellradar/pkg/models"
)

// ParamType is the JSON schema type of a tool parameter.
type ParamType string

const (
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeString  ParamType = "string"
	TypeObject  ParamType = "object"
)

// legacyAlias is the argument name older agents send for a tool's only
// parameter.
const legacyAlias = "value"

// maxExactFloat is the largest integer a float64 represents exactly.
const maxExactFloat = 1 << 53

// Param describes one tool argument.
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
	Aliases     []string
}

// Args holds bound arguments keyed by canonical parameter name. Integers are
// int64, numbers float64, strings string and objects map[string]interface{}.
type Args map[string]interface{}

// Int returns an integer argument.
func (a Args) Int(name string) (int64, bool) {
	v, ok := a[name].(int64)
	return v, ok
}

// Float returns a number argument.
func (a Args) Float(name string) float64 {
	v, _ := a[name].(float64)
	return v
}

// String returns a string argument.
func (a Args) String(name string) string {
	v, _ := a[name].(string)
	return v
}

// Object returns an object argument.
func (a Args) Object(name string) map[string]interface{} {
	v, _ := a[name].(map[string]interface{})
	return v
}

// Tool is one callable MCP tool.
type Tool struct {
	Name        string
	Description string
	// Aliases are former tool names still accepted by tools/call.
	Aliases []string
	Params  []Param
	call    func(ctx context.Context, c Commands, args Args) interface{}
}

// Definition renders the tool for tools/list.
func (t *Tool) Definition() ToolDefinition {
	properties := make(map[string]interface{}, len(t.Params))
	required := make([]string, 0, len(t.Params))

	for _, p := range t.Params {
		properties[p.Name] = map[string]interface{}{
			"type":        string(p.Type),
			"description": p.Description,
		}

		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}

	if len(required) > 0 {
		schema["required"] = required
	}

	return ToolDefinition{Name: t.Name, Description: t.Description, InputSchema: schema}
}

// Bind validates raw against the parameter schema. Numeric parameters also
// accept strings made only of ASCII digits; any other string is left as is
// and therefore rejected. Unknown arguments are ignored.
func (t *Tool) Bind(raw map[string]interface{}) (Args, error) {
	args := make(Args, len(t.Params))

	for i := range t.Params {
		p := &t.Params[i]

		v, ok := p.lookup(raw)
		if !ok {
			if p.Required {
				return nil, fmt.Errorf("%s: missing required argument %q: %w", t.Name, p.Name, models.ErrInvalidArgument)
			}

			continue
		}

		bound, err := p.coerce(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.Name, err)
		}

		args[p.Name] = bound
	}

	return args, nil
}

// Invoke binds raw and runs the tool. Binding failures become error results.
func (t *Tool) Invoke(ctx context.Context, c Commands, raw map[string]interface{}) interface{} {
	args, err := t.Bind(raw)
	if err != nil {
		return models.ErrorResult(err)
	}

	return t.call(ctx, c, args)
}

func (p *Param) lookup(raw map[string]interface{}) (interface{}, bool) {
	for _, name := range append([]string{p.Name}, p.Aliases...) {
		if v, ok := raw[name]; ok && v != nil {
			return v, true
		}
	}

	return nil, false
}

func (p *Param) coerce(v interface{}) (interface{}, error) {
	if s, ok := v.(string); ok && isDigits(s) && (p.Type == TypeInteger || p.Type == TypeNumber) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, p.mismatch(v)
		}

		v = n
	}

	switch p.Type {
	case TypeInteger:
		if n, ok := asInteger(v); ok {
			return n, nil
		}
	case TypeNumber:
		if f, ok := asNumber(v); ok {
			return f, nil
		}
	case TypeString:
		switch s := v.(type) {
		case string:
			return s, nil
		case json.Number:
			return s.String(), nil
		}
	case TypeObject:
		if m, ok := v.(map[string]interface{}); ok {
			return m, nil
		}
	}

	return nil, p.mismatch(v)
}

func (p *Param) mismatch(v interface{}) error {
	return fmt.Errorf("argument %q must be %s %s, got %s: %w",
		p.Name, article(p.Type), p.Type, describe(v), models.ErrInvalidArgument)
}

func article(t ParamType) string {
	if t == TypeInteger || t == TypeObject {
		return "an"
	}

	return "a"
}

func describe(v interface{}) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case map[string]interface{}:
		return "an object"
	case []interface{}:
		return "an array"
	default:
		return fmt.Sprintf("%v", x)
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}

func asInteger(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}

		f, err := n.Float64()
		if err != nil {
			return 0, false
		}

		return integral(f)
	case float64:
		return integral(n)
	}

	return 0, false
}

// integral accepts 45.0 but not 45.5.
func integral(f float64) (int64, bool) {
	if f != math.Trunc(f) || math.Abs(f) > maxExactFloat {
		return 0, false
	}

	return int64(f), true
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()

		return f, err == nil
	}

	return 0, false
}

// Tools returns the tool catalog in listing order.
func Tools() []*Tool {
	return []*Tool{
		{
			Name:        dispatch.OpStartManufacturing,
			Description: "Start the AFPM manufacturing process by pulsing the controller start coil",
			Params: []Param{{
				Name:        "process_id",
				Type:        TypeInteger,
				Description: "Optional process number written to the process select register first",
			}},
			call: func(ctx context.Context, c Commands, args Args) interface{} {
				id, ok := args.Int("process_id")
				if !ok {
					return c.StartManufacturing(ctx, nil)
				}

				if id < 0 || id > math.MaxUint16 {
					return models.ErrorResult(fmt.Errorf("process_id %d outside 0..65535: %w", id, models.ErrInvalidArgument))
				}

				pid := uint16(id)

				return c.StartManufacturing(ctx, &pid)
			},
		},
		{
			Name:        dispatch.OpSetCoilTurn,
			Description: "Set the coil turn count, e.g. 45",
			Params: []Param{{
				Name:        "turn",
				Type:        TypeInteger,
				Description: "Number of coil turns (0-65535)",
				Required:    true,
				Aliases:     []string{legacyAlias},
			}},
			call: func(ctx context.Context, c Commands, args Args) interface{} {
				turn, _ := args.Int("turn")
				return c.SetCoilTurn(ctx, turn)
			},
		},
		{
			Name:        dispatch.OpCalculateRequiredTurns,
			Description: "Enter the target torque in Nm and return the coil turns required, e.g. 5",
			Aliases:     []string{"calculate_required_turns_make_afpm"},
			Params: []Param{{
				Name:        "torque",
				Type:        TypeNumber,
				Description: "Target torque in Nm",
				Required:    true,
				Aliases:     []string{legacyAlias},
			}},
			call: func(ctx context.Context, c Commands, args Args) interface{} {
				return c.CalculateRequiredTurns(ctx, args.Float("torque"))
			},
		},
		{
			Name:        dispatch.OpGetSubmodels,
			Description: "Get the features of the given manufacturing process",
			Params: []Param{{
				Name:        "process_name",
				Type:        TypeString,
				Description: "Process name as registered in the asset shell repository",
				Required:    true,
				Aliases:     []string{legacyAlias},
			}},
			call: func(ctx context.Context, c Commands, args Args) interface{} {
				return c.GetSubmodels(ctx, args.String("process_name"))
			},
		},
		{
			Name:        dispatch.OpCheckAvailableProcesses,
			Description: "Check which registered AAS processes are currently reachable",
			call: func(ctx context.Context, c Commands, _ Args) interface{} {
				return c.CheckAvailableProcesses(ctx)
			},
		},
		{
			Name:        dispatch.OpRunProcessStep,
			Description: "Run one process step (insertion, pressing, cutting, welding, winding, inspection)",
			Params: []Param{
				{
					Name:        "step",
					Type:        TypeString,
					Description: "Step name",
					Required:    true,
				},
				{
					Name:        "params",
					Type:        TypeObject,
					Description: "Step parameters in engineering units, e.g. {\"length\": 12.5}",
				},
			},
			call: func(ctx context.Context, c Commands, args Args) interface{} {
				return c.RunProcessStep(ctx, args.String("step"), args.Object("params"))
			},
		},
		{
			Name:        dispatch.OpReadStatus,
			Description: "Read raw holding registers from the controller",
			Params: []Param{
				{
					Name:        "address",
					Type:        TypeInteger,
					Description: "First register address",
					Required:    true,
				},
				{
					Name:        "count",
					Type:        TypeInteger,
					Description: "Number of registers to read (default 1)",
				},
			},
			call: func(ctx context.Context, c Commands, args Args) interface{} {
				address, _ := args.Int("address")

				count, ok := args.Int("count")
				if !ok {
					count = 1
				}

				return c.ReadStatus(ctx, address, count)
			},
		},
	}
}

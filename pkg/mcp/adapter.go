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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/cellradar/pkg/logger"
)

const errorPrefix = "error: "

// ToolCaller is implemented by Client.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]interface{}) (*ToolCallResult, error)
}

// Adapter turns single-string tool input into a tool call and the result
// back into a string, for agent frameworks that only pass text around.
type Adapter struct {
	caller  ToolCaller
	timeout time.Duration
	params  map[string][]Param
	logger  logger.Logger
}

// NewAdapter creates an Adapter. A zero timeout uses the client default.
func NewAdapter(caller ToolCaller, timeout time.Duration, log logger.Logger) *Adapter {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}

	params := make(map[string][]Param)

	for _, t := range Tools() {
		params[t.Name] = t.Params

		for _, alias := range t.Aliases {
			params[alias] = t.Params
		}
	}

	return &Adapter{caller: caller, timeout: timeout, params: params, logger: log}
}

// Invoke calls tool with input and returns pretty-printed JSON on success
// or a string starting with "error: " on any failure. It never panics.
func (a *Adapter) Invoke(tool, input string) (out string) {
	defer func() {
		if p := recover(); p != nil {
			a.logger.Error().Interface("panic", p).Str("tool", tool).Msg("Tool call panicked")

			out = fmt.Sprintf("%sinternal: %v", errorPrefix, p)
		}
	}()

	args, err := a.Arguments(tool, input)
	if err != nil {
		return errorPrefix + err.Error()
	}

	a.logger.Debug().Str("tool", tool).Interface("args", args).Msg("Calling tool")

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	res, err := a.caller.CallTool(ctx, tool, args)
	if err != nil {
		a.logger.Error().Err(err).Str("tool", tool).Msg("Tool call failed")

		return errorPrefix + err.Error()
	}

	text := joinText(res.Content)

	if res.IsError {
		return errorPrefix + failureMessage(text)
	}

	return prettyJSON(text)
}

// Arguments maps input onto the tool's parameters. Input for a tool with
// one required parameter becomes that parameter, with ASCII digit strings
// coerced to integers. Tools with several parameters take a JSON object.
// Tools without required parameters ignore plain input.
func (a *Adapter) Arguments(tool, input string) (map[string]interface{}, error) {
	input = strings.TrimSpace(input)
	args := map[string]interface{}{}

	if strings.HasPrefix(input, "{") {
		dec := json.NewDecoder(strings.NewReader(input))
		dec.UseNumber()

		if err := dec.Decode(&args); err != nil {
			return nil, fmt.Errorf("invalid JSON arguments for %s: %w", tool, err)
		}

		return args, nil
	}

	if input == "" {
		return args, nil
	}

	params, known := a.params[tool]

	switch {
	case !known:
		args[legacyAlias] = coerceInput(input)
	case len(params) == 1 && params[0].Required:
		args[params[0].Name] = coerceInput(input)
	}

	return args, nil
}

func coerceInput(input string) interface{} {
	if isDigits(input) {
		if n, err := strconv.ParseInt(input, 10, 64); err == nil {
			return n
		}
	}

	return input
}

func joinText(content []Content) string {
	parts := make([]string, 0, len(content))

	for _, c := range content {
		if c.Type == "text" {
			parts = append(parts, c.Text)
		}
	}

	return strings.Join(parts, "\n")
}

func prettyJSON(text string) string {
	var buf bytes.Buffer

	if err := json.Indent(&buf, []byte(text), "", "  "); err != nil {
		return text
	}

	return buf.String()
}

// failureMessage extracts "code: message" from a result document and falls
// back to the raw text.
func failureMessage(text string) string {
	var doc struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}

	if err := json.Unmarshal([]byte(text), &doc); err != nil || doc.Message == "" {
		return text
	}

	if doc.Code == "" {
		return doc.Message
	}

	return doc.Code + ": " + doc.Message
}

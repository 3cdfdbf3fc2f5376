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

package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var (
	errEmptyConfigFile = errors.New("config file is empty")
	errTrailingData    = errors.New("unexpected data after the config document")
)

// FileConfigLoader loads configuration from a local JSON file.
type FileConfigLoader struct{}

// Load reads a single JSON document from path into dst. Syntax and type
// errors report the line and column they occur at.
func (*FileConfigLoader) Load(_ context.Context, path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file '%s': %w", path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%s: %w", path, errEmptyConfigFile)
	}

	dec := json.NewDecoder(bytes.NewReader(data))

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("failed to parse %s%s: %w", path, position(data, err), err)
	}

	if dec.More() {
		return fmt.Errorf("%s%s: %w", path, position(data, nil, dec.InputOffset()), errTrailingData)
	}

	return nil
}

// position formats the offset carried by err, or the first explicit offset,
// as ":line:col".
func position(data []byte, err error, offsets ...int64) string {
	var (
		offset    int64 = -1
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)

	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	case len(offsets) > 0:
		offset = offsets[0]
	}

	if offset < 0 || offset > int64(len(data)) {
		return ""
	}

	before := data[:offset]
	line := bytes.Count(before, []byte("\n")) + 1
	col := len(before) - bytes.LastIndexByte(before, '\n')

	return fmt.Sprintf(":%d:%d", line, col)
}

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
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/cellradar/pkg/logger"
	"github.com/carverauto/cellradar/pkg/models"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cellradar.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoadAndValidateFromFileAppliesDefaults(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := writeConfigFile(t, `{
		"listen_addr": ":9200",
		"controller": {"address": "10.0.0.9:502", "dwell": "1s"},
		"probe": {"mode": "tcp"}
	}`)

	var cfg models.Config
	require.NoError(t, NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, ":9200", cfg.ListenAddr)
	assert.Equal(t, "10.0.0.9:502", cfg.Controller.Address)
	assert.Equal(t, time.Second, cfg.Controller.Dwell.Std())
	assert.Equal(t, uint16(30978), cfg.Controller.Registers.StartCoil)
	assert.Equal(t, models.ProbeModeTCP, cfg.Probe.Mode)
	assert.NotNil(t, cfg.Logging)
}

func TestLoadAndValidateRejectsInvalidConfig(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "file")

	path := writeConfigFile(t, `{"probe": {"mode": "arp"}}`)

	var cfg models.Config
	err := NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid probe.mode")
}

func TestLoadAndValidateMissingFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	var cfg models.Config
	err := NewConfig(nil).LoadAndValidate(context.Background(), filepath.Join(t.TempDir(), "missing.json"), &cfg)

	require.Error(t, err)
}

func TestLoadAndValidateUnknownSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "consul")

	var cfg models.Config
	err := NewConfig(nil).LoadAndValidate(context.Background(), "x.json", &cfg)

	require.ErrorIs(t, err, errInvalidConfigSource)
}

func TestEnvLoaderNestedFields(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("CELLRADAR_LISTEN_ADDR", ":9300")
	t.Setenv("CELLRADAR_CONTROLLER_ADDRESS", "10.0.0.7:502")
	t.Setenv("CELLRADAR_CONTROLLER_UNIT_ID", "3")
	t.Setenv("CELLRADAR_CONTROLLER_DWELL", "750ms")
	t.Setenv("CELLRADAR_CONTROLLER_REGISTERS_PROCESS_SELECT", "40001")
	t.Setenv("CELLRADAR_PROBE_WORKERS", "2")
	t.Setenv("CELLRADAR_NATS_ENABLED", "true")
	t.Setenv("CELLRADAR_NATS_URL", "nats://127.0.0.1:4222")
	t.Setenv("CELLRADAR_GEOMETRY_CURRENT", "not-a-number")
	t.Setenv("LOG_LEVEL", "")

	var cfg models.Config
	require.NoError(t, NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), "", &cfg))

	assert.Equal(t, ":9300", cfg.ListenAddr)
	assert.Equal(t, "10.0.0.7:502", cfg.Controller.Address)
	assert.Equal(t, uint8(3), cfg.Controller.UnitID)
	assert.Equal(t, 750*time.Millisecond, cfg.Controller.Dwell.Std())
	require.NotNil(t, cfg.Controller.Registers.ProcessSelect)
	assert.Equal(t, uint16(40001), *cfg.Controller.Registers.ProcessSelect)
	assert.Equal(t, 2, cfg.Probe.Workers)
	assert.True(t, cfg.NATS.Enabled)

	// the bad float is skipped, so geometry falls back to the reference motor
	assert.Equal(t, models.DefaultGeometry(), cfg.Geometry)
	// no logging variables were set, so the section gets the package defaults
	require.NotNil(t, cfg.Logging)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestEnvLoaderRejectsOutOfRangeUnsigned(t *testing.T) {
	t.Setenv("CELLRADAR_CONTROLLER_UNIT_ID", "300")

	var cfg models.Config
	require.NoError(t, NewEnvConfigLoader(nil, DefaultEnvPrefix).Load(context.Background(), "", &cfg))

	assert.Zero(t, cfg.Controller.UnitID)
}

func TestEnvLoaderConfigJSON(t *testing.T) {
	t.Setenv("CELLRADAR_CONFIG_JSON", `{"listen_addr": ":9400", "registry": {"id_encoding": "url"}}`)
	t.Setenv("CELLRADAR_LISTEN_ADDR", ":1")

	var cfg models.Config
	require.NoError(t, NewEnvConfigLoader(logger.NewTestLogger(), DefaultEnvPrefix).Load(context.Background(), "", &cfg))

	assert.Equal(t, ":9400", cfg.ListenAddr)
	assert.Equal(t, "url", cfg.Registry.IDEncoding)
}

func TestEnvLoaderRequiresPointer(t *testing.T) {
	var cfg models.Config

	err := NewEnvConfigLoader(nil, DefaultEnvPrefix).Load(context.Background(), "", cfg)
	require.ErrorIs(t, err, ErrDstMustBeNonNilPointer)
}

func TestLoadAndValidateFileWithEnvOverlay(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")
	t.Setenv("CELLRADAR_CONTROLLER_ADDRESS", "10.9.9.9:502")

	path := writeConfigFile(t, `{"controller": {"address": "10.0.0.9:502", "unit_id": 4}}`)

	var cfg models.Config
	require.NoError(t, NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, "10.9.9.9:502", cfg.Controller.Address)
	assert.Equal(t, uint8(4), cfg.Controller.UnitID)
}

func TestFileLoaderReportsPosition(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantPos string
		wantErr error
	}{
		{"type mismatch", "{\n  \"listen_addr\": 9000\n}", ":2:", nil},
		{"trailing comma", "{\n  \"listen_addr\": \":9000\",\n}", ":3:", nil},
		{"second document", `{"listen_addr": ":9000"} {"api_key": "x"}`, ":1:", errTrailingData},
		{"empty", "  \n", "", errEmptyConfigFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.body)

			var cfg models.Config
			err := (&FileConfigLoader{}).Load(context.Background(), path, &cfg)

			require.Error(t, err)
			assert.Contains(t, err.Error(), path+tt.wantPos)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

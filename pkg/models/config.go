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

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/cellradar/pkg/logger"
)

var (
	errInvalidDuration     = errors.New("invalid duration")
	errListenAddrRequired  = errors.New("listen_addr is required")
	errControllerAddress   = errors.New("controller.address is required")
	errRegistryURLRequired = errors.New("registry.shells_url and registry.submodel_url are required")
	errInvalidProbeMode    = errors.New("invalid probe.mode")
	errNATSURLRequired     = errors.New("nats.url is required when nats is enabled")
)

// Duration is a time.Duration that decodes from "5s" strings or nanosecond numbers.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))

		return nil
	case string:
		return d.UnmarshalText([]byte(value))
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalText lets the environment loader set durations from strings.
func (d *Duration) UnmarshalText(text []byte) error {
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidDuration, err)
	}

	*d = Duration(dur)

	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Probe modes.
const (
	ProbeModeICMP = "icmp"
	ProbeModeExec = "exec"
	ProbeModeTCP  = "tcp"
)

// Config is the top-level configuration of the cellradar MCP server.
type Config struct {
	ListenAddr string           `json:"listen_addr"`
	APIKey     string           `json:"api_key,omitempty"`
	CORS       CORSConfig       `json:"cors"`
	Logging    *logger.Config   `json:"logging,omitempty"`
	Controller ControllerConfig `json:"controller"`
	Registry   RegistryConfig   `json:"registry"`
	Probe      ProbeConfig      `json:"probe"`
	Geometry   GeometryConfig   `json:"geometry"`
	NATS       NATSConfig       `json:"nats"`
	Metrics    MetricsConfig    `json:"metrics"`
}

// ControllerConfig describes the fieldbus controller and its register map.
type ControllerConfig struct {
	Address        string       `json:"address"`
	UnitID         uint8        `json:"unit_id"`
	ConnectTimeout Duration     `json:"connect_timeout"`
	Dwell          Duration     `json:"dwell"`
	Registers      RegisterMap  `json:"registers"`
	Steps          []StepConfig `json:"steps,omitempty"`
}

// RegisterMap holds the deployment-specific addresses of the core commands.
type RegisterMap struct {
	StartCoil     uint16  `json:"start_coil"`
	TurnsRegister uint16  `json:"turns_register"`
	ProcessSelect *uint16 `json:"process_select,omitempty"`
}

// StepConfig overrides part of a process step definition. Zero fields keep
// the built-in value.
type StepConfig struct {
	Name            string             `json:"name"`
	CommandRegister uint16             `json:"command_register,omitempty"`
	StatusRegister  uint16             `json:"status_register,omitempty"`
	Settle          Duration           `json:"settle,omitempty"`
	Scales          map[string]float64 `json:"scales,omitempty"`
}

// RegistryConfig locates the asset shell registry and submodel repository.
type RegistryConfig struct {
	ShellsURL   string   `json:"shells_url"`
	SubmodelURL string   `json:"submodel_url"`
	IDPrefix    string   `json:"id_prefix"`
	IDEncoding  string   `json:"id_encoding,omitempty"` // "std" (default) or "url"
	Timeout     Duration `json:"timeout"`
}

// ProbeConfig controls reachability probing.
type ProbeConfig struct {
	Mode       string      `json:"mode"`
	Timeout    Duration    `json:"timeout"`
	Workers    int         `json:"workers"`
	Count      int         `json:"count"`
	Privileged bool        `json:"privileged"`
	Command    string      `json:"command,omitempty"`
	Markers    []MarkerSet `json:"markers,omitempty"`
}

// MarkerSet is a per-locale table of phrases found in the ping utility's
// output. It is only consulted when the probe yields no structured signal,
// or to veto a zero exit status that some platforms report for unreachable hosts.
type MarkerSet struct {
	Locale  string   `json:"locale"`
	Success []string `json:"success"`
	Failure []string `json:"failure"`
}

// GeometryConfig holds the motor constants used by the turns calculator.
type GeometryConfig struct {
	OuterRadius float64 `json:"outer_radius"`
	InnerRadius float64 `json:"inner_radius"`
	FluxDensity float64 `json:"flux_density"`
	Current     float64 `json:"current"`
	Winding     float64 `json:"winding_factor"`
}

// NATSConfig enables publishing command and availability events.
type NATSConfig struct {
	Enabled bool      `json:"enabled"`
	URL     string    `json:"url"`
	Stream  string    `json:"stream"`
	Subject string    `json:"subject"`
	TLS     *TLSFiles `json:"tls,omitempty"`
}

// TLSFiles points at PEM files for a mutual TLS client connection.
type TLSFiles struct {
	CertFile   string `json:"cert_file"`
	KeyFile    string `json:"key_file"`
	CAFile     string `json:"ca_file"`
	ServerName string `json:"server_name,omitempty"`
}

// CORSConfig lists the browser origins allowed to call the HTTP API. An
// empty list allows any origin without credentials.
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins,omitempty"`
	AllowCredentials bool     `json:"allow_credentials,omitempty"`
}

// MetricsConfig enables the OTLP metrics pipeline.
type MetricsConfig struct {
	Enabled        bool     `json:"enabled"`
	ExportInterval Duration `json:"export_interval"`
}

const (
	defaultListenAddr      = ":9000"
	defaultControllerAddr  = "192.168.0.79:502"
	defaultUnitID          = 1
	defaultConnectTimeout  = 5 * time.Second
	defaultDwell           = 2 * time.Second
	defaultStartCoil       = 30978
	defaultTurnsRegister   = 10000
	defaultShellsURL       = "http://192.168.0.160:8081/shells"
	defaultSubmodelURL     = "http://192.168.0.160:8081/submodels/"
	defaultIDPrefix        = "https://iacf.kyungnam.ac.kr/ids/sm/1/0"
	defaultRegistryTimeout = 10 * time.Second
	defaultProbeTimeout    = 3 * time.Second
	defaultProbeWorkers    = 8
	defaultProbeCount      = 1
	defaultNATSStream      = "cellradar"
	defaultNATSSubject     = "cellradar.events"
)

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()

	return cfg
}

// ApplyDefaults fills every unset field. Explicit zero geometry values cannot
// be distinguished from unset ones, so a fully zero geometry gets the
// reference motor constants.
func (c *Config) ApplyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}

	if c.Logging == nil {
		c.Logging = logger.DefaultConfig()
	}

	c.Controller.applyDefaults()
	c.Registry.applyDefaults()
	c.Probe.applyDefaults()

	if c.Geometry == (GeometryConfig{}) {
		c.Geometry = DefaultGeometry()
	}

	if c.NATS.Stream == "" {
		c.NATS.Stream = defaultNATSStream
	}

	if c.NATS.Subject == "" {
		c.NATS.Subject = defaultNATSSubject
	}
}

func (c *ControllerConfig) applyDefaults() {
	if c.Address == "" {
		c.Address = defaultControllerAddr
	}

	if c.UnitID == 0 {
		c.UnitID = defaultUnitID
	}

	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = Duration(defaultConnectTimeout)
	}

	if c.Dwell == 0 {
		c.Dwell = Duration(defaultDwell)
	}

	if c.Registers.StartCoil == 0 {
		c.Registers.StartCoil = defaultStartCoil
	}

	if c.Registers.TurnsRegister == 0 {
		c.Registers.TurnsRegister = defaultTurnsRegister
	}
}

func (c *RegistryConfig) applyDefaults() {
	if c.ShellsURL == "" {
		c.ShellsURL = defaultShellsURL
	}

	if c.SubmodelURL == "" {
		c.SubmodelURL = defaultSubmodelURL
	}

	if c.IDPrefix == "" {
		c.IDPrefix = defaultIDPrefix
	}

	if c.Timeout == 0 {
		c.Timeout = Duration(defaultRegistryTimeout)
	}
}

func (c *ProbeConfig) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ProbeModeICMP
	}

	if c.Timeout == 0 {
		c.Timeout = Duration(defaultProbeTimeout)
	}

	if c.Workers <= 0 {
		c.Workers = defaultProbeWorkers
	}

	if c.Count <= 0 {
		c.Count = defaultProbeCount
	}
}

// DefaultGeometry returns the reference axial-flux motor constants.
func DefaultGeometry() GeometryConfig {
	return GeometryConfig{
		OuterRadius: 0.25,
		InnerRadius: 0.05,
		FluxDensity: 1.2,
		Current:     15.0,
		Winding:     0.95,
	}
}

// Validate implements config.Validator.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return errListenAddrRequired
	}

	if c.Controller.Address == "" {
		return errControllerAddress
	}

	if c.Registry.ShellsURL == "" || c.Registry.SubmodelURL == "" {
		return errRegistryURLRequired
	}

	switch c.Probe.Mode {
	case ProbeModeICMP, ProbeModeExec, ProbeModeTCP:
	default:
		return fmt.Errorf("%w: %q", errInvalidProbeMode, c.Probe.Mode)
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		return errNATSURLRequired
	}

	return nil
}

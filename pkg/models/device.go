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

// DefaultDevicePort is used when a registry entry carries an IP but no port.
const DefaultDevicePort = "9000"

// DefaultDeviceName is used when a registry entry has no idShort.
const DefaultDeviceName = "Unnamed AAS"

// DeviceRecord is a single asset shell resolved from the registry.
type DeviceRecord struct {
	Name   string `json:"aas_name"`
	IP     string `json:"ip,omitempty"`
	Port   string `json:"port,omitempty"`
	Source string `json:"source,omitempty"` // registry entry id, when present
}

// HasAddress reports whether the record can be probed.
func (d DeviceRecord) HasAddress() bool {
	return d.IP != ""
}

// ProbeStatus classifies a device after a reachability probe.
type ProbeStatus string

const (
	ProbeAvailable  ProbeStatus = "available"
	ProbePingFailed ProbeStatus = "ping_failed"
	ProbeNoIP       ProbeStatus = "no_ip"
)

// ProbeOutcome is the classification of one device in one orchestration pass.
type ProbeOutcome struct {
	Name       string      `json:"aas_name"`
	IP         string      `json:"ip,omitempty"`
	Port       string      `json:"port,omitempty"`
	Status     ProbeStatus `json:"status"`
	Diagnostic string      `json:"diagnostic,omitempty"`
}

// Available reports whether the outcome belongs in the available partition.
func (o ProbeOutcome) Available() bool {
	return o.Status == ProbeAvailable
}

// ReportStatus is the overall status of an AvailabilityReport.
type ReportStatus string

const (
	ReportOK    ReportStatus = "ok"
	ReportError ReportStatus = "error"
)

// AvailabilityReport partitions the registered devices by reachability.
// Available and Unavailable preserve registry order and are never nil.
type AvailabilityReport struct {
	Status      ReportStatus   `json:"status"`
	Message     string         `json:"message,omitempty"`
	Available   []ProbeOutcome `json:"available"`
	Unavailable []ProbeOutcome `json:"unavailable"`
}

// NewAvailabilityReport partitions outcomes into an ok report.
func NewAvailabilityReport(outcomes []ProbeOutcome) *AvailabilityReport {
	report := &AvailabilityReport{
		Status:      ReportOK,
		Available:   make([]ProbeOutcome, 0, len(outcomes)),
		Unavailable: make([]ProbeOutcome, 0),
	}

	for _, o := range outcomes {
		if o.Available() {
			report.Available = append(report.Available, o)
		} else {
			report.Unavailable = append(report.Unavailable, o)
		}
	}

	return report
}

// FailedAvailabilityReport is the non-partial report used when the device
// list itself could not be obtained.
func FailedAvailabilityReport(message string) *AvailabilityReport {
	return &AvailabilityReport{
		Status:      ReportError,
		Message:     message,
		Available:   []ProbeOutcome{},
		Unavailable: []ProbeOutcome{},
	}
}

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

// CommandStatus is the terminal status of a dispatched command.
type CommandStatus string

const (
	CommandSuccess CommandStatus = "success"
	CommandError   CommandStatus = "error"
)

// CommandResult is returned to callers for every device command. It is never
// retried internally.
type CommandResult struct {
	Status  CommandStatus `json:"status"`
	Message string        `json:"message"`
	Code    string        `json:"code,omitempty"`
	Payload interface{}   `json:"payload,omitempty"`
}

// OK reports whether the command succeeded.
func (r *CommandResult) OK() bool {
	return r != nil && r.Status == CommandSuccess
}

// SuccessResult builds a success result with an optional payload.
func SuccessResult(message string, payload interface{}) *CommandResult {
	return &CommandResult{
		Status:  CommandSuccess,
		Message: message,
		Payload: payload,
	}
}

// ErrorResult builds an error result classified by the taxonomy.
func ErrorResult(err error) *CommandResult {
	return &CommandResult{
		Status:  CommandError,
		Message: err.Error(),
		Code:    ErrorCode(err),
	}
}

// ControlCommand is a register-level command built from caller arguments.
// Value is already scaled to the register's units.
type ControlCommand struct {
	Operation string   `json:"operation"`
	Value     uint16   `json:"value"`
	Registers []uint16 `json:"registers"`
}

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

import "errors"

// Error taxonomy shared by every component. Leaf packages wrap these with
// fmt.Errorf("...: %w", ...) so callers can classify with errors.Is.
var (
	ErrConnectionFailure   = errors.New("connection failure")
	ErrRegisterIO          = errors.New("register I/O failure")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInvalidGeometry     = errors.New("invalid geometry")
	ErrRegistryUnavailable = errors.New("registry unavailable")
	ErrDeviceUnreachable   = errors.New("device unreachable")
	ErrMissingAddress      = errors.New("missing address")
	ErrProcessFailed       = errors.New("process step failed")
)

// Error codes reported in CommandResult.Code.
const (
	CodeConnectionFailure   = "ConnectionFailure"
	CodeRegisterIOFailure   = "RegisterIOFailure"
	CodeInvalidArgument     = "InvalidArgument"
	CodeInvalidGeometry     = "InvalidGeometry"
	CodeRegistryUnavailable = "RegistryUnavailable"
	CodeDeviceUnreachable   = "DeviceUnreachable"
	CodeMissingAddress      = "MissingAddress"
	CodeProcessFailed       = "ProcessFailed"
	CodeInternal            = "Internal"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidArgument, CodeInvalidArgument},
	{ErrInvalidGeometry, CodeInvalidGeometry},
	{ErrConnectionFailure, CodeConnectionFailure},
	{ErrRegisterIO, CodeRegisterIOFailure},
	{ErrRegistryUnavailable, CodeRegistryUnavailable},
	{ErrDeviceUnreachable, CodeDeviceUnreachable},
	{ErrMissingAddress, CodeMissingAddress},
	{ErrProcessFailed, CodeProcessFailed},
}

// ErrorCode maps err onto the taxonomy name. Errors outside the taxonomy
// report CodeInternal; a nil error reports the empty string.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}

	return CodeInternal
}

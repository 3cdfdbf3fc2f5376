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

// Package plc drives the cell controller over Modbus/TCP.
package plc

import "context"

//go:generate mockgen -destination=mock_plc.go -package=plc github.com/carverauto/cellradar/pkg/plc Session,Dialer

// Session is one open controller connection. Implementations are not safe
// for concurrent use.
type Session interface {
	WriteCoil(address uint16, on bool) error
	WriteRegister(address, value uint16) error
	ReadHoldingRegisters(address, count uint16) ([]uint16, error)
	Close() error
}

// Dialer opens a fresh Session per operation.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

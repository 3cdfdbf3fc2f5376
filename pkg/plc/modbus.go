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
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/goburrow/modbus"
)

var errShortResponse = errors.New("short register response")

const (
	coilOn  uint16 = 0xFF00
	coilOff uint16 = 0x0000

	defaultDialTimeout = 5 * time.Second
)

// ModbusDialer connects to a Modbus/TCP controller. The timeout bounds the
// connect and every request on the resulting session.
type ModbusDialer struct {
	Address string
	UnitID  byte
	Timeout time.Duration
}

// NewModbusDialer returns a dialer for address.
func NewModbusDialer(address string, unitID byte, timeout time.Duration) *ModbusDialer {
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	return &ModbusDialer{Address: address, UnitID: unitID, Timeout: timeout}
}

// Dial honours ctx only for the connect; requests are bounded by Timeout.
func (d *ModbusDialer) Dial(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout := d.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	handler := modbus.NewTCPClientHandler(d.Address)
	handler.Timeout = timeout
	handler.SlaveId = d.UnitID

	if err := handler.Connect(); err != nil {
		return nil, err
	}

	// restore the full request timeout once connected
	handler.Timeout = d.Timeout

	return &modbusSession{handler: handler, client: modbus.NewClient(handler)}, nil
}

type modbusSession struct {
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

func (s *modbusSession) WriteCoil(address uint16, on bool) error {
	value := coilOff
	if on {
		value = coilOn
	}

	_, err := s.client.WriteSingleCoil(address, value)

	return err
}

func (s *modbusSession) WriteRegister(address, value uint16) error {
	_, err := s.client.WriteSingleRegister(address, value)

	return err
}

func (s *modbusSession) ReadHoldingRegisters(address, count uint16) ([]uint16, error) {
	raw, err := s.client.ReadHoldingRegisters(address, count)
	if err != nil {
		return nil, err
	}

	return decodeRegisters(raw, count)
}

func (s *modbusSession) Close() error {
	return s.handler.Close()
}

func decodeRegisters(raw []byte, count uint16) ([]uint16, error) {
	if len(raw) < int(count)*2 {
		return nil, fmt.Errorf("%w: got %d bytes for %d registers", errShortResponse, len(raw), count)
	}

	values := make([]uint16, count)
	for i := range values {
		values[i] = binary.BigEndian.Uint16(raw[i*2:])
	}

	return values, nil
}

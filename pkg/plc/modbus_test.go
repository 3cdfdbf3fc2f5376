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
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/cellradar/pkg/logger"
	"github.com/carverauto/cellradar/pkg/models"
)

const (
	fcReadHoldingRegisters = 0x03
	fcWriteSingleCoil      = 0x05
	fcWriteSingleRegister  = 0x06
)

type coilWrite struct {
	address uint16
	on      bool
}

// fakeController is a minimal Modbus/TCP server holding coils and registers.
type fakeController struct {
	ln net.Listener

	mu         sync.Mutex
	registers  map[uint16]uint16
	coilWrites []coilWrite
}

func newFakeController(t *testing.T) *fakeController {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	fc := &fakeController{ln: ln, registers: make(map[uint16]uint16)}

	go fc.serve()

	t.Cleanup(func() { _ = ln.Close() })

	return fc
}

func (f *fakeController) addr() string {
	return f.ln.Addr().String()
}

func (f *fakeController) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}

		go f.handle(conn)
	}
}

func (f *fakeController) handle(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	header := make([]byte, 7)

	for {
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}

		length := binary.BigEndian.Uint16(header[4:6])
		if length < 2 {
			return
		}

		pdu := make([]byte, length-1)
		if _, err := io.ReadFull(conn, pdu); err != nil {
			return
		}

		resp := f.apply(pdu)

		out := make([]byte, 7+len(resp))
		copy(out, header[:4])
		binary.BigEndian.PutUint16(out[4:], uint16(len(resp)+1))
		out[6] = header[6]
		copy(out[7:], resp)

		if _, err := conn.Write(out); err != nil {
			return
		}
	}
}

func (f *fakeController) apply(pdu []byte) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	address := binary.BigEndian.Uint16(pdu[1:3])
	value := binary.BigEndian.Uint16(pdu[3:5])

	switch pdu[0] {
	case fcWriteSingleCoil:
		f.coilWrites = append(f.coilWrites, coilWrite{address: address, on: value == coilOn})

		return pdu
	case fcWriteSingleRegister:
		f.registers[address] = value

		return pdu
	case fcReadHoldingRegisters:
		resp := make([]byte, 2+2*int(value))
		resp[0] = fcReadHoldingRegisters
		resp[1] = byte(2 * value)

		for i := uint16(0); i < value; i++ {
			binary.BigEndian.PutUint16(resp[2+2*i:], f.registers[address+i])
		}

		return resp
	default:
		// illegal function exception
		return []byte{pdu[0] | 0x80, 0x01}
	}
}

func (f *fakeController) writes() []coilWrite {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]coilWrite(nil), f.coilWrites...)
}

func (f *fakeController) register(address uint16) uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.registers[address]
}

func TestModbusSessionRoundTrip(t *testing.T) {
	srv := newFakeController(t)

	session, err := NewModbusDialer(srv.addr(), 1, time.Second).Dial(context.Background())
	require.NoError(t, err)

	defer func() { _ = session.Close() }()

	require.NoError(t, session.WriteCoil(30978, true))
	require.NoError(t, session.WriteRegister(10000, 16))
	require.NoError(t, session.WriteRegister(10001, 0xBEEF))

	values, err := session.ReadHoldingRegisters(10000, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint16{16, 0xBEEF, 0}, values)
	assert.Equal(t, []coilWrite{{address: 30978, on: true}}, srv.writes())
}

func TestLinkAgainstModbusController(t *testing.T) {
	srv := newFakeController(t)

	cfg := models.DefaultConfig().Controller
	cfg.Address = srv.addr()

	link, err := NewLink(NewModbusDialer(cfg.Address, 1, time.Second), &cfg, logger.NewTestLogger(),
		WithSleep(func(time.Duration) {}))
	require.NoError(t, err)

	_, err = link.Start(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []coilWrite{{30978, true}, {30978, false}}, srv.writes())

	_, err = link.SetTurns(context.Background(), 16)
	require.NoError(t, err)
	assert.Equal(t, uint16(16), srv.register(10000))

	values, err := link.ReadStatus(context.Background(), 10000, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint16{16}, values)
}

func TestModbusDialFailures(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = NewModbusDialer(addr, 1, 500*time.Millisecond).Dial(context.Background())
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewModbusDialer(addr, 1, 0).Dial(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewModbusDialerDefaultsTimeout(t *testing.T) {
	assert.Equal(t, defaultDialTimeout, NewModbusDialer("127.0.0.1:502", 1, 0).Timeout)
}

func TestDecodeRegisters(t *testing.T) {
	values, err := decodeRegisters([]byte{0x00, 0x10, 0xBE, 0xEF}, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint16{16, 0xBEEF}, values)

	_, err = decodeRegisters([]byte{0x00}, 1)
	require.True(t, errors.Is(err, errShortResponse))
}

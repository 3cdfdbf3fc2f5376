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
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/carverauto/cellradar/pkg/logger"
	"github.com/carverauto/cellradar/pkg/models"
)

// Operations recorded on ControlCommand.
const (
	OpStart      = "start"
	OpSetTurns   = "set_turns"
	OpReadStatus = "read_status"
	OpRunStep    = "run_step"
)

// maxReadCount is the Modbus limit for one holding-register read.
const maxReadCount = 125

// Link performs one controller operation per call over its own connection.
// It holds no connection between calls.
type Link struct {
	dialer    Dialer
	registers models.RegisterMap
	dwell     time.Duration
	steps     map[string]Step
	logger    logger.Logger
	sleep     func(time.Duration)
}

// Option configures a Link.
type Option func(*Link)

// WithSleep replaces time.Sleep for the pulse dwell and step settle waits.
func WithSleep(sleep func(time.Duration)) Option {
	return func(l *Link) {
		l.sleep = sleep
	}
}

// NewLink builds a Link from controller configuration. Step overrides that
// name an unknown step are rejected.
func NewLink(dialer Dialer, cfg *models.ControllerConfig, log logger.Logger, opts ...Option) (*Link, error) {
	steps, err := buildSteps(cfg.Steps)
	if err != nil {
		return nil, err
	}

	l := &Link{
		dialer:    dialer,
		registers: cfg.Registers,
		dwell:     cfg.Dwell.Std(),
		steps:     steps,
		logger:    log,
		sleep:     time.Sleep,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

func connectError(err error) error {
	return fmt.Errorf("connect: %w: %w", models.ErrConnectionFailure, err)
}

func writeError(what string, address uint16, err error) error {
	return fmt.Errorf("write %s %d: %w: %w", what, address, models.ErrRegisterIO, err)
}

func readError(address, count uint16, err error) error {
	return fmt.Errorf("read %d registers at %d: %w: %w", count, address, models.ErrRegisterIO, err)
}

// withSession dials, runs fn and closes the session on every path. Close
// failures are logged; they do not change the outcome of fn.
func (l *Link) withSession(ctx context.Context, op string, fn func(Session) error) error {
	session, err := l.dialer.Dial(ctx)
	if err != nil {
		l.logger.Error().Err(err).Str("operation", op).Msg("Controller connect failed")

		return connectError(err)
	}

	defer func() {
		if cerr := session.Close(); cerr != nil {
			l.logger.Warn().Err(cerr).Str("operation", op).Msg("Controller close failed")
		}
	}()

	return fn(session)
}

// Start selects processID when given, then pulses the start coil for the
// configured dwell. Once the assert has been sent the coil is always
// deasserted, and a failed deassert fails the whole operation.
func (l *Link) Start(ctx context.Context, processID *uint16) (models.ControlCommand, error) {
	coil := l.registers.StartCoil
	cmd := models.ControlCommand{Operation: OpStart, Value: 1, Registers: []uint16{coil}}

	if processID != nil {
		if l.registers.ProcessSelect == nil {
			return cmd, fmt.Errorf("process %d requested but no process_select register is configured: %w",
				*processID, models.ErrInvalidArgument)
		}

		cmd.Value = *processID
		cmd.Registers = []uint16{*l.registers.ProcessSelect, coil}
	}

	err := l.withSession(ctx, OpStart, func(s Session) error {
		if processID != nil {
			if err := s.WriteRegister(*l.registers.ProcessSelect, *processID); err != nil {
				return writeError("process select register", *l.registers.ProcessSelect, err)
			}
		}

		return l.pulse(s, coil)
	})

	return cmd, err
}

func (l *Link) pulse(s Session, coil uint16) (err error) {
	defer func() {
		if derr := s.WriteCoil(coil, false); derr != nil {
			l.logger.Error().Err(derr).Uint16("coil", coil).Msg("Start coil deassert failed, coil may be latched")

			err = errors.Join(err, writeError("deassert coil", coil, derr))
		}
	}()

	if err := s.WriteCoil(coil, true); err != nil {
		return writeError("assert coil", coil, err)
	}

	l.logger.Debug().Uint16("coil", coil).Dur("dwell", l.dwell).Msg("Start coil asserted")

	l.sleep(l.dwell)

	return nil
}

// SetTurns writes the coil-turn setpoint. Values outside 0..65535 are
// rejected before any connection is opened.
func (l *Link) SetTurns(ctx context.Context, turns int64) (models.ControlCommand, error) {
	register := l.registers.TurnsRegister
	cmd := models.ControlCommand{Operation: OpSetTurns, Registers: []uint16{register}}

	if turns < 0 || turns > math.MaxUint16 {
		return cmd, fmt.Errorf("turns %d outside 16-bit register range 0..65535: %w", turns, models.ErrInvalidArgument)
	}

	cmd.Value = uint16(turns)

	err := l.withSession(ctx, OpSetTurns, func(s Session) error {
		if err := s.WriteRegister(register, cmd.Value); err != nil {
			return writeError("turns register", register, err)
		}

		return nil
	})

	return cmd, err
}

// ReadStatus returns raw holding register values; callers unscale them.
func (l *Link) ReadStatus(ctx context.Context, address, count int64) ([]uint16, error) {
	if address < 0 || address > math.MaxUint16 {
		return nil, fmt.Errorf("address %d outside 0..65535: %w", address, models.ErrInvalidArgument)
	}

	if count < 1 || count > maxReadCount {
		return nil, fmt.Errorf("count %d outside 1..%d: %w", count, maxReadCount, models.ErrInvalidArgument)
	}

	if address+count-1 > math.MaxUint16 {
		return nil, fmt.Errorf("range %d+%d exceeds the register space: %w", address, count, models.ErrInvalidArgument)
	}

	var values []uint16

	err := l.withSession(ctx, OpReadStatus, func(s Session) error {
		var err error

		values, err = s.ReadHoldingRegisters(uint16(address), uint16(count))
		if err != nil {
			return readError(uint16(address), uint16(count), err)
		}

		return nil
	})

	return values, err
}

//nolint:gochecknoglobals // wrapped sentinels
var (
	errUnknownStep      = fmt.Errorf("unknown process step: %w", models.ErrInvalidArgument)
	errUnknownParameter = fmt.Errorf("unknown step register: %w", models.ErrInvalidArgument)
)

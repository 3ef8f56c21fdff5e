package microp

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mklimuk/proximity"
	"github.com/mklimuk/proximity/snsctx"
)

// DefaultAddress is the 7-bit bus address of the HTC microP (0xCC on the wire).
const DefaultAddress = 0x66

// microP command set
const (
	cmdGPIIntEnable      byte = 0x80
	cmdGPIIntDisable     byte = 0x81
	cmdGPIOStatus        byte = 0x82
	cmdGPIIntStatus      byte = 0x85
	cmdGPIIntStatusClear byte = 0x86
	cmdGPOEnable         byte = 0x40
	cmdGPODisable        byte = 0x41
)

// Interrupt sources reported by the GPI interrupt status register.
const (
	IntPSensor uint16 = 1 << 4
)

// GPOPSensorPower is the GPO line supplying the proximity sensor.
const GPOPSensorPower uint16 = 1 << 2

// StatusLen is the size of the GPIO status block.
const StatusLen = 3

type Opts struct {
	Address    byte
	RetryLimit int
	PowerMask  uint16
}

type Opt func(*Opts)

func WithAddress(address byte) Opt {
	return func(o *Opts) {
		o.Address = address
	}
}

// WithRetryLimit sets how many times a command is attempted when the bus
// reports ErrBusBusy.
func WithRetryLimit(limit int) Opt {
	return func(o *Opts) {
		o.RetryLimit = limit
	}
}

func WithPowerMask(mask uint16) Opt {
	return func(o *Opts) {
		o.PowerMask = mask
	}
}

// MicroP is the register client of the companion microcontroller that drives
// the proximity sensor. Every command is a register pointer write optionally
// followed by a read; mx keeps the two halves together.
type MicroP struct {
	mx        sync.Mutex
	transport proximity.I2CBus
	config    Opts
}

func New(bus proximity.I2CBus, opts ...Opt) *MicroP {
	config := Opts{
		Address:    DefaultAddress,
		RetryLimit: 3,
		PowerMask:  GPOPSensorPower,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.RetryLimit < 1 {
		config.RetryLimit = 1
	}
	return &MicroP{transport: bus, config: config}
}

// ReadStatus reads the GPIO status block. Bit 0 of the second byte is the
// proximity output.
func (m *MicroP) ReadStatus(ctx context.Context) ([StatusLen]byte, error) {
	var res [StatusLen]byte
	err := m.retry(ctx, "read gpio status", func() error {
		return m.readCommand(ctx, cmdGPIOStatus, res[:])
	})
	return res, err
}

// SetPower switches the proximity sensor supply together with its interrupt.
// If the second command fails the first one is undone, so the supply and the
// interrupt mask never disagree with the returned error.
func (m *MicroP) SetPower(ctx context.Context, on bool) error {
	if on {
		if err := m.switchPower(ctx, true); err != nil {
			return err
		}
		if err := m.EnableInterrupt(ctx, IntPSensor, true); err != nil {
			if rerr := m.switchPower(ctx, false); rerr != nil {
				slog.Error("could not roll back sensor power", "error", rerr)
			}
			return err
		}
		return nil
	}
	if err := m.EnableInterrupt(ctx, IntPSensor, false); err != nil {
		return err
	}
	if err := m.switchPower(ctx, false); err != nil {
		if rerr := m.EnableInterrupt(ctx, IntPSensor, true); rerr != nil {
			slog.Error("could not restore sensor interrupt", "error", rerr)
		}
		return err
	}
	return nil
}

func (m *MicroP) switchPower(ctx context.Context, on bool) error {
	cmd := cmdGPODisable
	if on {
		cmd = cmdGPOEnable
	}
	data := make([]byte, 2)
	binary.BigEndian.PutUint16(data, m.config.PowerMask)
	return m.retry(ctx, "switch sensor power", func() error {
		return m.writeCommand(ctx, cmd, data...)
	})
}

// ReadInterruptStatus returns the pending interrupt sources.
func (m *MicroP) ReadInterruptStatus(ctx context.Context) (uint16, error) {
	buf := make([]byte, 2)
	err := m.retry(ctx, "read interrupt status", func() error {
		return m.readCommand(ctx, cmdGPIIntStatus, buf)
	})
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf), nil
}

// ClearInterrupt acknowledges the given interrupt sources.
func (m *MicroP) ClearInterrupt(ctx context.Context, mask uint16) error {
	data := make([]byte, 2)
	binary.BigEndian.PutUint16(data, mask)
	return m.retry(ctx, "clear interrupt", func() error {
		return m.writeCommand(ctx, cmdGPIIntStatusClear, data...)
	})
}

// EnableInterrupt unmasks (or masks) the given interrupt sources.
func (m *MicroP) EnableInterrupt(ctx context.Context, mask uint16, on bool) error {
	cmd := cmdGPIIntDisable
	if on {
		cmd = cmdGPIIntEnable
	}
	data := make([]byte, 2)
	binary.BigEndian.PutUint16(data, mask)
	return m.retry(ctx, "set interrupt mask", func() error {
		return m.writeCommand(ctx, cmd, data...)
	})
}

func (m *MicroP) retry(ctx context.Context, what string, fn func() error) error {
	var err error
	for i := m.config.RetryLimit; i > 0; i-- {
		err = fn()
		if err == nil {
			return nil
		}
		if !errors.Is(err, proximity.ErrBusBusy) {
			return fmt.Errorf("microp: could not %s: %w", what, err)
		}
		// try to release the bus
		_ = m.transport.Release(ctx)
	}
	return fmt.Errorf("microp: could not %s (retry limit reached): %w", what, err)
}

func (m *MicroP) readCommand(ctx context.Context, cmd byte, buf []byte) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	err := m.transport.WriteToAddr(ctx, m.config.Address, []byte{cmd})
	if err != nil {
		return fmt.Errorf("could not set command %#x: %w", cmd, err)
	}
	err = m.transport.ReadFromAddr(ctx, m.config.Address, buf)
	if err != nil {
		return fmt.Errorf("could not read command %#x response: %w", cmd, err)
	}
	if snsctx.IsVerbose(ctx) {
		slog.Debug("microp read", "cmd", fmt.Sprintf("%#x", cmd), "data", hex.EncodeToString(buf))
	}
	return nil
}

func (m *MicroP) writeCommand(ctx context.Context, cmd byte, data ...byte) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	if snsctx.IsVerbose(ctx) {
		slog.Debug("microp write", "cmd", fmt.Sprintf("%#x", cmd), "data", hex.EncodeToString(data))
	}
	return m.transport.WriteToAddr(ctx, m.config.Address, append([]byte{cmd}, data...))
}

package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/mklimuk/proximity"
	"github.com/mklimuk/proximity/snsctx"
)

const VendorID = 0x04D8
const ProductID = 0x00DD

const reportLen = 64

// MCP2221 command codes
const (
	cmdStatus        byte = 0x10
	cmdGetI2CData    byte = 0x40
	cmdSetSRAM       byte = 0x60
	cmdI2CWrite      byte = 0x90
	cmdI2CRead       byte = 0x91
	cancelTransfer   byte = 0x10
	statusEngineBusy byte = 0x01
	readDataError    byte = 0x41
)

// SRAM interrupt settings (byte 7 of the set SRAM command)
const (
	intAlter            byte = 1 << 7
	intEnablePosEdge    byte = 1 << 4
	intAlterPosEdge     byte = 1 << 3
	intEnableNegEdge    byte = 1 << 2
	intAlterNegEdge     byte = 1 << 1
	intClearInterrupted byte = 1 << 0
)

var ErrCommandFailed = errors.New("command failed")
var ErrDeviceNotFound = errors.New("MCP2221 device not found")

// Device is the HID endpoint of the bridge.
type Device interface {
	io.ReadWriteCloser
}

// Opener opens the HID device for a single exchange.
type Opener func(id int) (Device, error)

// OpenHID enumerates MCP2221 bridges and opens the one at position id
// (-1 means "the only one").
func OpenHID(id int) (Device, error) {
	devs := hid.Enumerate(VendorID, ProductID)
	if len(devs) == 0 {
		return nil, ErrDeviceNotFound
	}
	if id < 0 {
		if len(devs) > 1 {
			return nil, fmt.Errorf("ambiguous device identification: %d bridges found", len(devs))
		}
		id = 0
	}
	if id >= len(devs) {
		return nil, fmt.Errorf("no device with id %d", id)
	}
	dev, err := devs[id].Open()
	if err != nil {
		return nil, fmt.Errorf("error opening device: %w", err)
	}
	return dev, nil
}

// Detect lists the bridges attached to the host.
func Detect() []hid.DeviceInfo {
	return hid.Enumerate(VendorID, ProductID)
}

var _ proximity.I2CBus = &MCP2221{}

// MCP2221 is the USB to I2C bridge used to reach the microP from a
// workstation. GP1 carries the microP interrupt line.
type MCP2221 struct {
	mx           sync.Mutex
	open         Opener
	id           int
	request      []byte
	response     []byte
	responseWait time.Duration
}

type MCP2221Status struct {
	I2CDataBufferCounter   int    `yaml:"i2c_buffer_counter"`
	I2CSpeedDivider        int    `yaml:"i2c_speed_divider"`
	I2CTimeout             int    `yaml:"i2c_timeout"`
	CurrentAddress         string `yaml:"current_address"`
	LastWriteRequestedSize uint16 `yaml:"last_write_requested"`
	LastWriteSentSize      uint16 `yaml:"last_write_sent"`
	ReadPending            int    `yaml:"read_pending"`
	Interrupted            bool   `yaml:"interrupted"`
}

type Opt func(*MCP2221)

// WithDeviceID selects one of several attached bridges.
func WithDeviceID(id int) Opt {
	return func(d *MCP2221) {
		d.id = id
	}
}

func WithOpener(open Opener) Opt {
	return func(d *MCP2221) {
		d.open = open
	}
}

func WithResponseWait(wait time.Duration) Opt {
	return func(d *MCP2221) {
		d.responseWait = wait
	}
}

func NewMCP2221(opts ...Opt) *MCP2221 {
	d := &MCP2221{
		open:         OpenHID,
		id:           -1,
		request:      make([]byte, reportLen),
		response:     make([]byte, reportLen),
		responseWait: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Init configures GP1 as the interrupt-on-change input (falling edge) and
// clears any stale interrupt flag.
func (d *MCP2221) Init(ctx context.Context) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdSetSRAM
	d.request[7] = intAlter | intAlterPosEdge | intEnableNegEdge | intAlterNegEdge | intClearInterrupted
	// alter GP designations: GP1 as interrupt detection, others untouched inputs
	d.request[8] = 1 << 7
	d.request[9] = 0x08
	d.request[10] = 0x04
	d.request[11] = 0x08
	d.request[12] = 0x08
	if err := d.send(ctx); err != nil {
		return fmt.Errorf("configure interrupt failed: %w", err)
	}
	if d.response[1] != 0x00 {
		return ErrCommandFailed
	}
	return nil
}

func (d *MCP2221) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdI2CWrite
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address << 1
	if len(buffer) > 0 {
		copy(d.request[4:], buffer)
	}
	err := d.send(ctx)
	if err != nil {
		return fmt.Errorf("write to %x failed: %w", address, err)
	}
	if d.response[1] == statusEngineBusy {
		slog.Debug("adapter busy")
		return proximity.ErrBusBusy
	}
	return nil
}

func (d *MCP2221) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdI2CRead
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address<<1 + 1
	err := d.send(ctx)
	if err != nil {
		return fmt.Errorf("bus read from %x failed: %w", address, err)
	}
	if d.response[1] == statusEngineBusy {
		return proximity.ErrBusBusy
	}
	d.request[0] = cmdGetI2CData
	resetBuffer(d.response)
	err = d.send(ctx)
	if err != nil {
		return fmt.Errorf("error getting read data from adapter: %w", err)
	}
	if d.response[1] == readDataError {
		return fmt.Errorf("error reading the I2C slave data from the I2C engine")
	}
	if d.response[3] == 127 || int(d.response[3]) != len(buffer) {
		return fmt.Errorf("invalid data size byte; expected %d, got %d", len(buffer), d.response[3])
	}
	copy(buffer, d.response[4:])
	return nil
}

func (d *MCP2221) Status(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatus
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

// InterruptFlag reports whether GP1 saw an edge since the last clear.
func (d *MCP2221) InterruptFlag(ctx context.Context) (bool, error) {
	status, err := d.Status(ctx)
	if err != nil {
		return false, err
	}
	return status.Interrupted, nil
}

func (d *MCP2221) ClearInterrupt(ctx context.Context) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdSetSRAM
	d.request[7] = intAlter | intClearInterrupted
	if err := d.send(ctx); err != nil {
		return fmt.Errorf("clear interrupt failed: %w", err)
	}
	if d.response[1] != 0x00 {
		return ErrCommandFailed
	}
	return nil
}

func bufferToStatus(buffer []byte) *MCP2221Status {
	/*
		9: Lower byte (16-bit value) of the requested I2C transfer length
		10: Higher byte (16-bit value) of the requested I2C transfer length
		11:	Lower byte (16-bit value) of the already transferred (through I2C) number of bytes
		12:	Higher byte (16-bit value) of the already transferred (through I2C) number of bytes
		13:	Internal I2C data buffer counter
		14: Current I2C communication speed divider value
		15: Current I2C timeout value
		16:	Lower byte (16-bit value) of the I2C address being used
		17:	Higher byte (16-bit value) of the I2C address being used
		24: Interrupt edge detector state
	*/
	status := &MCP2221Status{
		I2CDataBufferCounter: int(buffer[13]),
		I2CSpeedDivider:      int(buffer[14]),
		I2CTimeout:           int(buffer[15]),
		ReadPending:          int(buffer[25]),
		CurrentAddress:       hex.EncodeToString(buffer[16:18]),
		Interrupted:          buffer[24] != 0,
	}
	status.LastWriteRequestedSize = binary.LittleEndian.Uint16(buffer[9:11])
	status.LastWriteSentSize = binary.LittleEndian.Uint16(buffer[11:13])
	return status
}

// Release cancels the current I2C transfer so the engine can be reused.
func (d *MCP2221) Release(ctx context.Context) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatus
	d.request[2] = cancelTransfer
	err := d.send(ctx)
	if err != nil {
		return fmt.Errorf("release request failed: %w", err)
	}
	return nil
}

func (d *MCP2221) send(ctx context.Context) error {
	dev, err := d.open(d.id)
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			slog.Warn("could not close adapter", "error", err)
		}
	}()
	verbose := snsctx.IsVerbose(ctx)
	if verbose {
		slog.Debug("sending message to adapter", "dump", hex.Dump(d.request))
	}
	n, err := dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != reportLen {
		return fmt.Errorf("short write: %d", n)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d.responseWait):
	}
	n, err = dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != reportLen {
		return fmt.Errorf("short read: %d", n)
	}
	if verbose {
		slog.Debug("read message from adapter", "dump", hex.Dump(d.response))
	}
	return nil
}

func (d *MCP2221) resetBuffers() {
	resetBuffer(d.request)
	resetBuffer(d.response)
}

func resetBuffer(buf []byte) {
	for i := range buf {
		buf[i] = 0x00
	}
}

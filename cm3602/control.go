package cm3602

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/samborkent/uuidv7"

	"github.com/mklimuk/proximity/snsctx"
)

// Binary control commands accepted by Ioctl.
const (
	IoctlEnable     uint = 1
	IoctlGetEnabled uint = 2
)

// Control exposes the sensor to external callers. The text attribute and the
// binary call are thin adapters over the same Enable/Disable/IsEnabled set;
// Open/Close model an exclusive device-file session.
type Control struct {
	sensor *Sensor
	logger *slog.Logger

	opened  atomic.Bool
	mx      sync.Mutex
	session string
}

func NewControl(sensor *Sensor) *Control {
	return &Control{sensor: sensor, logger: sensor.config.Logger}
}

// GetEnabled reports the current state.
func (c *Control) GetEnabled() bool {
	return c.sensor.IsEnabled()
}

// SetEnabled enables or disables the sensor.
func (c *Control) SetEnabled(ctx context.Context, on bool) error {
	if on {
		return c.sensor.Enable(ctx)
	}
	return c.sensor.Disable(ctx)
}

// ShowAttr renders the text attribute.
func (c *Control) ShowAttr() string {
	val := 0
	if c.sensor.IsEnabled() {
		val = 1
	}
	return fmt.Sprintf("proximity enabled = %d\n", val)
}

// StoreAttr accepts "0" or "1", surrounding whitespace tolerated.
func (c *Control) StoreAttr(ctx context.Context, value string) error {
	switch strings.TrimSpace(value) {
	case "1":
		return c.SetEnabled(ctx, true)
	case "0":
		return c.SetEnabled(ctx, false)
	default:
		return fmt.Errorf("%w: expected 0 or 1, got %q", ErrInvalidArgument, value)
	}
}

// Ioctl is the binary control call. For IoctlEnable any non-zero arg enables
// the sensor; IoctlGetEnabled stores 0 or 1 into arg.
func (c *Control) Ioctl(ctx context.Context, cmd uint, arg *int) error {
	if arg == nil {
		return fmt.Errorf("%w: nil argument", ErrInvalidArgument)
	}
	switch cmd {
	case IoctlEnable:
		return c.SetEnabled(ctx, *arg != 0)
	case IoctlGetEnabled:
		*arg = 0
		if c.sensor.IsEnabled() {
			*arg = 1
		}
		return nil
	default:
		c.logger.Error("invalid control command", "cmd", cmd)
		return fmt.Errorf("%w: unknown command %d", ErrInvalidArgument, cmd)
	}
}

// Open starts an exclusive session. It fails with ErrBusy while another
// session is open.
func (c *Control) Open(ctx context.Context) (context.Context, error) {
	if !c.opened.CompareAndSwap(false, true) {
		return ctx, ErrBusy
	}
	id := uuidv7.New().String()
	c.mx.Lock()
	c.session = id
	c.mx.Unlock()
	c.logger.Debug("control session opened", "session", id)
	return snsctx.SetSession(ctx, id), nil
}

// Close ends the session and powers the sensor down. It always succeeds.
func (c *Control) Close(ctx context.Context) {
	c.mx.Lock()
	id := c.session
	c.session = ""
	c.mx.Unlock()
	if err := c.sensor.Disable(ctx); err != nil {
		c.logger.Warn("could not disable proximity on close", "session", id, "error", err)
	}
	c.opened.Store(false)
	c.logger.Debug("control session closed", "session", id)
}

// Session returns the identifier of the open session or an empty string.
func (c *Control) Session() string {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.session
}

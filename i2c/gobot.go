package i2c

import (
	"context"
	"fmt"
	"sync"

	gi2c "gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	"github.com/mklimuk/proximity"
)

var _ proximity.I2CBus = &GobotBus{}

// GobotBus reaches the microP through a gobot board adaptor (NanoPi NEO).
// One generic driver is started per device address and kept until Close.
type GobotBus struct {
	mx        sync.Mutex
	connector gi2c.Connector
	busNr     int
	drivers   map[byte]*gi2c.GenericDriver
	finalize  func() error
}

// OpenNanoPi connects the NanoPi NEO I2C adaptor and serves bus busNr.
func OpenNanoPi(busNr int) (*GobotBus, error) {
	npi := nanopi.NewNeoAdaptor()
	err := npi.I2cBusAdaptor.Connect()
	if err != nil {
		return nil, fmt.Errorf("adaptor connect error: %w", err)
	}
	b := NewGobotBus(npi, busNr)
	b.finalize = npi.I2cBusAdaptor.Finalize
	return b, nil
}

func NewGobotBus(connector gi2c.Connector, busNr int) *GobotBus {
	return &GobotBus{
		connector: connector,
		busNr:     busNr,
		drivers:   make(map[byte]*gi2c.GenericDriver),
	}
}

func (b *GobotBus) driver(address byte) (*gi2c.GenericDriver, error) {
	if drv, ok := b.drivers[address]; ok {
		return drv, nil
	}
	drv := gi2c.NewGenericDriver(b.connector, fmt.Sprintf("microp-%#x", address), int(address), func(c gi2c.Config) {
		c.SetBus(b.busNr)
	})
	if err := drv.Start(); err != nil {
		return nil, fmt.Errorf("start error: %w", err)
	}
	b.drivers[address] = drv
	return drv, nil
}

func (b *GobotBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	drv, err := b.driver(address)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	if err := drv.Read(buffer); err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GobotBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	drv, err := b.driver(address)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	if err := drv.Write(buffer); err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GobotBus) Release(ctx context.Context) error {
	return nil
}

func (b *GobotBus) Close() error {
	b.mx.Lock()
	defer b.mx.Unlock()
	for addr, drv := range b.drivers {
		_ = drv.Halt()
		delete(b.drivers, addr)
	}
	if b.finalize != nil {
		return b.finalize()
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/proximity"
	"github.com/mklimuk/proximity/adapter"
	"github.com/mklimuk/proximity/cm3602"
	"github.com/mklimuk/proximity/i2c"
	"github.com/mklimuk/proximity/irq"
	"github.com/mklimuk/proximity/microp"
	"github.com/mklimuk/proximity/pkg/config"
	"github.com/mklimuk/proximity/wake"
)

// hardware is the set of collaborators the sensor core needs on this host.
type hardware struct {
	status     cm3602.StatusReader
	power      cm3602.PowerSwitch
	interrupts cm3602.InterruptSource
	closers    []func()
}

func (h *hardware) Close() {
	for i := len(h.closers) - 1; i >= 0; i-- {
		h.closers[i]()
	}
	h.closers = nil
}

// openHardware builds the transport selected by cfg. When watch is false the
// interrupt line is left alone (one-shot commands).
func openHardware(ctx context.Context, cfg config.Config, watch bool) (*hardware, error) {
	if cfg.Adapter == config.AdapterMock {
		return openMock(cfg, watch)
	}
	h := &hardware{}
	var bus proximity.I2CBus
	var edges interface {
		Subscribe(fn func()) (func(), error)
	}
	switch cfg.Adapter {
	case config.AdapterGeneric:
		b, err := i2c.Open(cfg.I2C.Device)
		if err != nil {
			return nil, err
		}
		h.closers = append(h.closers, func() { _ = b.Close() })
		if err := b.SetSpeed(100 * physic.KiloHertz); err != nil {
			slog.Warn("could not set bus speed", "bus", b.String(), "error", err)
		}
		bus = b
	case config.AdapterNanoPi:
		b, err := i2c.OpenNanoPi(cfg.I2C.Bus)
		if err != nil {
			return nil, err
		}
		h.closers = append(h.closers, func() { _ = b.Close() })
		bus = b
	case config.AdapterMCP2221:
		bridge := adapter.NewMCP2221()
		if watch {
			if err := bridge.Init(ctx); err != nil {
				return nil, fmt.Errorf("could not initialize adapter: %w", err)
			}
		}
		bus = bridge
		edges = irq.NewPoller(bridge, irq.WithInterval(cfg.IRQ.PollInterval))
	default:
		return nil, fmt.Errorf("unsupported adapter %q", cfg.Adapter)
	}
	dev := microp.New(bus, microp.WithAddress(cfg.MicroP.Address), microp.WithRetryLimit(cfg.MicroP.RetryLimit))
	h.status = dev
	h.power = dev
	if !watch {
		return h, nil
	}
	if edges == nil {
		pin, err := irq.OpenPin(cfg.IRQ.Pin)
		if err != nil {
			h.Close()
			return nil, err
		}
		edges = irq.NewEdgeWatcher(pin)
	}
	router := microp.NewRouter(dev)
	cancel, err := edges.Subscribe(func() {
		if err := router.Dispatch(ctx); err != nil {
			slog.Error("could not service microp interrupt", "error", err)
		}
	})
	if err != nil {
		h.Close()
		return nil, err
	}
	h.closers = append(h.closers, cancel)
	h.interrupts = router.Source(microp.IntPSensor)
	return h, nil
}

// openMock simulates a hand waved over the sensor every second.
func openMock(cfg config.Config, watch bool) (*hardware, error) {
	var far atomic.Bool
	far.Store(true)
	hw := cm3602.NewMockProximityHardware(
		func(ctx context.Context) ([cm3602.StatusLen]byte, error) {
			if far.Load() {
				return [cm3602.StatusLen]byte{0x00, 0x01, 0x00}, nil
			}
			return [cm3602.StatusLen]byte{}, nil
		},
		func(ctx context.Context, on bool) error {
			slog.Debug("mock sensor power", "on", on)
			return nil
		},
	)
	h := &hardware{status: hw, power: hw}
	if !watch {
		return h, nil
	}
	latch := &mockLatch{period: time.Second, last: time.Now(), toggle: func() { far.Store(!far.Load()) }}
	h.interrupts = irq.NewPoller(latch, irq.WithInterval(cfg.IRQ.PollInterval))
	return h, nil
}

type mockLatch struct {
	period time.Duration
	last   time.Time
	toggle func()
}

func (l *mockLatch) InterruptFlag(ctx context.Context) (bool, error) {
	return time.Since(l.last) >= l.period, nil
}

func (l *mockLatch) ClearInterrupt(ctx context.Context) error {
	l.last = time.Now()
	l.toggle()
	return nil
}

func newWakeGuard(cfg config.Config) *wake.Guard {
	var locker wake.Locker = wake.NopLocker{}
	if cfg.Wake.Backend == config.WakeSysfs {
		sysfs := wake.NewSysfsLocker()
		if sysfs.Available() {
			locker = sysfs
		} else {
			slog.Warn("wake lock interface not available, suspend is not blocked")
		}
	}
	return wake.NewGuard(locker, cfg.Wake.LockName)
}

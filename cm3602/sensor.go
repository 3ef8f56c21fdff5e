package cm3602

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultWakeDuration is how long the system is kept awake after a report.
const DefaultWakeDuration = 2 * time.Second

var (
	ErrBus             = errors.New("cm3602: bus error")
	ErrInvalidArgument = errors.New("cm3602: invalid argument")
	ErrBusy            = errors.New("cm3602: device busy")
)

// StatusReader reads the status block holding the proximity output.
type StatusReader interface {
	ReadStatus(ctx context.Context) ([StatusLen]byte, error)
}

// PowerSwitch turns the sensor supply on or off.
type PowerSwitch interface {
	SetPower(ctx context.Context, on bool) error
}

// Publisher delivers readings to consumers. Published values become visible
// after Sync.
type Publisher interface {
	Publish(r Reading)
	Sync()
}

// WakeGuard inhibits suspend for the given duration. Arming an armed guard
// extends the hold.
type WakeGuard interface {
	Arm(d time.Duration)
}

type SensorOpts struct {
	WakeDuration time.Duration
	Logger       *slog.Logger
}

type SensorOpt func(*SensorOpts)

func WithWakeDuration(d time.Duration) SensorOpt {
	return func(o *SensorOpts) {
		o.WakeDuration = d
	}
}

func WithLogger(logger *slog.Logger) SensorOpt {
	return func(o *SensorOpts) {
		o.Logger = logger
	}
}

// Sensor is the enable/disable state machine of a Capella CM3602 proximity
// sensor wired through the microP.
//
// mx serializes power transitions and report cycles; enabled is only written
// while mx is held and can be read without it.
type Sensor struct {
	mx      sync.Mutex
	enabled atomic.Bool

	config SensorOpts

	status StatusReader
	power  PowerSwitch
	out    Publisher
	wake   WakeGuard
}

func NewSensor(status StatusReader, power PowerSwitch, out Publisher, wake WakeGuard, opts ...SensorOpt) *Sensor {
	config := SensorOpts{
		WakeDuration: DefaultWakeDuration,
		Logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Sensor{
		config: config,
		status: status,
		power:  power,
		out:    out,
		wake:   wake,
	}
}

// IsEnabled reports whether the sensor is powered and delivering readings.
func (s *Sensor) IsEnabled() bool {
	return s.enabled.Load()
}

// Enable powers the sensor on and reports the current state. A failing
// initial read does not fail the call.
func (s *Sensor) Enable(ctx context.Context) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.enabled.Load() {
		s.config.Logger.Debug("proximity already enabled")
		return nil
	}
	// dummy report so that the first real reading is never swallowed as a duplicate
	s.out.Publish(Unknown)
	s.out.Sync()

	err := s.power.SetPower(ctx, true)
	if err != nil {
		return fmt.Errorf("cm3602: could not power on: %w: %w", ErrBus, err)
	}
	s.enabled.Store(true)
	s.config.Logger.Info("proximity enabled")
	if err := s.report(ctx); err != nil {
		s.config.Logger.Warn("initial proximity report failed", "error", err)
	}
	return nil
}

// Disable powers the sensor off. No report is published after it returns.
func (s *Sensor) Disable(ctx context.Context) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if !s.enabled.Load() {
		s.config.Logger.Debug("proximity already disabled")
		return nil
	}
	err := s.power.SetPower(ctx, false)
	if err != nil {
		return fmt.Errorf("cm3602: could not power off: %w: %w", ErrBus, err)
	}
	s.enabled.Store(false)
	s.config.Logger.Info("proximity disabled")
	return nil
}

// handleInterrupt runs one report cycle on behalf of the dispatcher worker.
// Work arriving while disabled is dropped.
func (s *Sensor) handleInterrupt(ctx context.Context) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if !s.enabled.Load() {
		s.config.Logger.Debug("proximity disabled, dropping interrupt")
		return
	}
	if err := s.report(ctx); err != nil {
		s.config.Logger.Error("proximity report failed", "error", err)
	}
}

// report must be called with mx held.
func (s *Sensor) report(ctx context.Context) error {
	status, err := s.status.ReadStatus(ctx)
	if err != nil {
		return fmt.Errorf("cm3602: could not read status: %w: %w", ErrBus, err)
	}
	r := Decode(status)
	s.config.Logger.Debug("proximity report", "distance", r)

	s.out.Publish(r)
	s.out.Sync()

	s.wake.Arm(s.config.WakeDuration)
	return nil
}

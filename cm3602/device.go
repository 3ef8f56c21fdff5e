package cm3602

import (
	"context"
	"fmt"
)

// Registrar is implemented by publishers that need to be registered with
// their consumers before the first report.
type Registrar interface {
	Register() error
	Unregister()
}

// InterruptSource delivers hardware interrupt notifications to fn until the
// returned cancel function is called.
type InterruptSource interface {
	Subscribe(fn func()) (cancel func(), err error)
}

// Config lists the collaborators of a sensor instance.
type Config struct {
	Status    StatusReader
	Power     PowerSwitch
	Publisher Publisher
	Wake      WakeGuard
	// Interrupts may be nil when notifications are fed to Device.Notify directly.
	Interrupts InterruptSource
}

// Device is a fully wired sensor instance: state machine, dispatcher and
// control surface.
type Device struct {
	*Control

	sensor     *Sensor
	dispatcher *Dispatcher
	release    []func()
}

// Attach builds a device. Resources are acquired in order and released in
// reverse order if any step fails.
func Attach(ctx context.Context, cfg Config, opts ...SensorOpt) (*Device, error) {
	if cfg.Status == nil || cfg.Power == nil || cfg.Publisher == nil || cfg.Wake == nil {
		return nil, fmt.Errorf("%w: incomplete device configuration", ErrInvalidArgument)
	}
	sensor := NewSensor(cfg.Status, cfg.Power, cfg.Publisher, cfg.Wake, opts...)
	d := &Device{
		Control:    NewControl(sensor),
		sensor:     sensor,
		dispatcher: NewDispatcher(sensor),
	}
	if reg, ok := cfg.Publisher.(Registrar); ok {
		if err := reg.Register(); err != nil {
			return nil, fmt.Errorf("cm3602: could not register publisher: %w", err)
		}
		d.release = append(d.release, reg.Unregister)
	}

	d.dispatcher.Start(ctx)
	d.release = append(d.release, d.dispatcher.Stop)

	if cfg.Interrupts != nil {
		cancel, err := cfg.Interrupts.Subscribe(d.dispatcher.Notify)
		if err != nil {
			d.unwind()
			return nil, fmt.Errorf("cm3602: could not subscribe to interrupts: %w", err)
		}
		d.release = append(d.release, cancel)
	}
	sensor.config.Logger.Info("proximity sensor attached")
	return d, nil
}

// Notify schedules a report; it is the interrupt entry point of the device.
func (d *Device) Notify() {
	d.dispatcher.Notify()
}

// Sensor returns the underlying state machine.
func (d *Device) Sensor() *Sensor {
	return d.sensor
}

// Detach forces the sensor off and releases everything Attach acquired. A
// failing power-off is logged and does not stop the release.
func (d *Device) Detach(ctx context.Context) {
	if err := d.sensor.Disable(ctx); err != nil {
		d.sensor.config.Logger.Warn("could not disable proximity on detach", "error", err)
	}
	d.unwind()
	d.sensor.config.Logger.Info("proximity sensor detached")
}

func (d *Device) unwind() {
	for i := len(d.release) - 1; i >= 0; i-- {
		d.release[i]()
	}
	d.release = nil
}

package irq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

const DefaultEdgeTimeout = 200 * time.Millisecond

type Opts struct {
	// EdgeTimeout bounds a single wait so cancellation is noticed.
	EdgeTimeout time.Duration
	Interval    time.Duration
	Logger      *slog.Logger
}

type Opt func(*Opts)

func WithEdgeTimeout(timeout time.Duration) Opt {
	return func(o *Opts) {
		o.EdgeTimeout = timeout
	}
}

// WithInterval sets the polling period of a Poller.
func WithInterval(interval time.Duration) Opt {
	return func(o *Opts) {
		o.Interval = interval
	}
}

func WithLogger(logger *slog.Logger) Opt {
	return func(o *Opts) {
		o.Logger = logger
	}
}

func newOpts(opts []Opt) Opts {
	config := Opts{
		EdgeTimeout: DefaultEdgeTimeout,
		Interval:    DefaultPollInterval,
		Logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	return config
}

// OpenPin initializes the host drivers and looks up a GPIO by name.
func OpenPin(name string) (gpio.PinIn, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	return pin, nil
}

// EdgeWatcher turns falling edges of the (active low) interrupt line into
// handler calls.
type EdgeWatcher struct {
	pin    gpio.PinIn
	config Opts
}

func NewEdgeWatcher(pin gpio.PinIn, opts ...Opt) *EdgeWatcher {
	return &EdgeWatcher{pin: pin, config: newOpts(opts)}
}

// Subscribe arms edge detection and calls fn from a dedicated goroutine for
// every edge until the returned cancel function is called. Cancel blocks
// until the goroutine is gone.
func (w *EdgeWatcher) Subscribe(fn func()) (func(), error) {
	if err := w.pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("irq: could not configure %s: %w", w.pin, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ctx.Err() == nil {
			if !w.pin.WaitForEdge(w.config.EdgeTimeout) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			fn()
		}
	}()
	w.config.Logger.Debug("watching interrupt line", "pin", w.pin.String())
	return func() {
		cancel()
		<-done
		if err := w.pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
			w.config.Logger.Warn("could not disable edge detection", "pin", w.pin.String(), "error", err)
		}
	}, nil
}

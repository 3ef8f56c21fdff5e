package cm3602

import (
	"context"
	"sync"
)

// Dispatcher moves interrupt notifications off the interrupt path and onto a
// single worker goroutine. Notifications are coalesced: any number of Notify
// calls between two dequeues result in one report cycle.
type Dispatcher struct {
	sensor  *Sensor
	pending chan struct{}

	mx     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewDispatcher(sensor *Sensor) *Dispatcher {
	return &Dispatcher{
		sensor:  sensor,
		pending: make(chan struct{}, 1),
	}
}

// Notify marks a read as due. It never blocks and never touches the bus, so it
// is safe to call from interrupt callbacks.
func (d *Dispatcher) Notify() {
	select {
	case d.pending <- struct{}{}:
	default:
	}
}

// Start launches the worker. Calling Start on a running dispatcher is a no-op.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.cancel != nil {
		return
	}
	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})
	go d.run(ctx, d.done)
}

// Stop terminates the worker and waits for the cycle in flight, if any.
// A pending notification is kept and handled after the next Start.
func (d *Dispatcher) Stop() {
	d.mx.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	d.mx.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (d *Dispatcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.pending:
			d.sensor.handleInterrupt(ctx)
		}
	}
}

package input

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mklimuk/proximity/cm3602"
)

// CodeDistance is the absolute axis the sensor reports on.
const CodeDistance = "ABS_DISTANCE"

var ErrAlreadyRegistered = errors.New("input: device already registered")

type Event struct {
	Code  string
	Value int32
	Time  time.Time
}

func (e Event) Reading() cm3602.Reading {
	return cm3602.Reading(e.Value)
}

var _ cm3602.Publisher = &Device{}
var _ cm3602.Registrar = &Device{}

// Device is an absolute-axis event device. Like a kernel input device it
// drops a value equal to the last one reported and delivers events to its
// subscribers only on Sync.
type Device struct {
	name     string
	min, max int32

	mx         sync.Mutex
	registered bool
	last       int32
	pending    []Event
	nextID     int
	subs       map[int]chan Event

	dropped atomic.Uint64
	now     func() time.Time
}

// NewDevice creates a device reporting values in [min, max]. The axis starts
// at min, so reporting min first is suppressed.
func NewDevice(name string, min, max int32) *Device {
	return &Device{
		name: name,
		min:  min,
		max:  max,
		last: min,
		subs: make(map[int]chan Event),
		now:  time.Now,
	}
}

func (d *Device) Name() string {
	return d.name
}

func (d *Device) Register() error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.registered {
		return ErrAlreadyRegistered
	}
	d.registered = true
	d.last = d.min
	d.pending = nil
	slog.Debug("input device registered", "name", d.name, "min", d.min, "max", d.max)
	return nil
}

// Unregister closes every subscription.
func (d *Device) Unregister() {
	d.mx.Lock()
	defer d.mx.Unlock()
	if !d.registered {
		return
	}
	d.registered = false
	d.pending = nil
	for id, ch := range d.subs {
		close(ch)
		delete(d.subs, id)
	}
	slog.Debug("input device unregistered", "name", d.name)
}

// Publish queues a distance value until the next Sync. Out of range values
// (the unknown reading) are passed through.
func (d *Device) Publish(r cm3602.Reading) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if !d.registered {
		return
	}
	value := int32(r)
	if value == d.last {
		return
	}
	d.last = value
	d.pending = append(d.pending, Event{Code: CodeDistance, Value: value, Time: d.now()})
}

func (d *Device) Sync() {
	d.mx.Lock()
	defer d.mx.Unlock()
	if len(d.pending) == 0 {
		return
	}
	for _, ev := range d.pending {
		for _, ch := range d.subs {
			select {
			case ch <- ev:
			default:
				d.dropped.Add(1)
			}
		}
	}
	d.pending = d.pending[:0]
}

// Subscribe returns a channel receiving synced events. A subscriber that does
// not keep up loses events. The channel is closed by cancel or Unregister.
func (d *Device) Subscribe(buffer int) (<-chan Event, func()) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.nextID++
	id := d.nextID
	ch := make(chan Event, buffer)
	d.subs[id] = ch
	return ch, func() {
		d.mx.Lock()
		defer d.mx.Unlock()
		if c, ok := d.subs[id]; ok {
			close(c)
			delete(d.subs, id)
		}
	}
}

// Dropped counts events lost to slow subscribers.
func (d *Device) Dropped() uint64 {
	return d.dropped.Load()
}

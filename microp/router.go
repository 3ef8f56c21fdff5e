package microp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type handler struct {
	id   int
	mask uint16
	fn   func()
}

// Router demultiplexes the single microP interrupt line. On every edge it
// reads and acknowledges the interrupt status and calls the handlers whose
// mask matches.
type Router struct {
	dev *MicroP

	mx       sync.Mutex
	nextID   int
	handlers []handler
}

func NewRouter(dev *MicroP) *Router {
	return &Router{dev: dev}
}

// Handle registers fn for the interrupt sources in mask. The returned
// function removes the registration.
func (r *Router) Handle(mask uint16, fn func()) func() {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.nextID++
	id := r.nextID
	r.handlers = append(r.handlers, handler{id: id, mask: mask, fn: fn})
	return func() {
		r.mx.Lock()
		defer r.mx.Unlock()
		for i, h := range r.handlers {
			if h.id == id {
				r.handlers = append(r.handlers[:i], r.handlers[i+1:]...)
				return
			}
		}
	}
}

// Dispatch services one interrupt edge.
func (r *Router) Dispatch(ctx context.Context) error {
	status, err := r.dev.ReadInterruptStatus(ctx)
	if err != nil {
		return err
	}
	if status == 0 {
		return nil
	}
	if err := r.dev.ClearInterrupt(ctx, status); err != nil {
		return err
	}
	r.mx.Lock()
	matched := make([]func(), 0, len(r.handlers))
	for _, h := range r.handlers {
		if h.mask&status != 0 {
			matched = append(matched, h.fn)
		}
	}
	r.mx.Unlock()
	if len(matched) == 0 {
		slog.Debug("unhandled microp interrupt", "status", fmt.Sprintf("%#04x", status))
	}
	for _, fn := range matched {
		fn()
	}
	return nil
}

// Source returns an interrupt source limited to mask, suitable for
// cm3602.Config.
func (r *Router) Source(mask uint16) *Source {
	return &Source{router: r, mask: mask}
}

type Source struct {
	router *Router
	mask   uint16
}

func (s *Source) Subscribe(fn func()) (func(), error) {
	return s.router.Handle(s.mask, fn), nil
}

package irq

import (
	"context"
	"time"
)

const DefaultPollInterval = 20 * time.Millisecond

// Latch is an interrupt-on-change flag that must be polled, such as the GP1
// edge detector of an USB bridge.
type Latch interface {
	InterruptFlag(ctx context.Context) (bool, error)
	ClearInterrupt(ctx context.Context) error
}

type Poller struct {
	latch  Latch
	config Opts
}

func NewPoller(latch Latch, opts ...Opt) *Poller {
	return &Poller{latch: latch, config: newOpts(opts)}
}

// Subscribe polls the latch every interval and calls fn once per observed
// edge. The flag is cleared before fn runs so an edge arriving during fn is
// not lost.
func (p *Poller) Subscribe(fn func()) (func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(p.config.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.poll(ctx, fn)
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}, nil
}

func (p *Poller) poll(ctx context.Context, fn func()) {
	flag, err := p.latch.InterruptFlag(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.config.Logger.Warn("could not poll interrupt flag", "error", err)
		}
		return
	}
	if !flag {
		return
	}
	if err := p.latch.ClearInterrupt(ctx); err != nil {
		p.config.Logger.Warn("could not clear interrupt flag", "error", err)
	}
	fn()
}

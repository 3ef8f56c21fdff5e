package wake

import (
	"log/slog"
	"sync"
	"time"
)

// Locker keeps the system from entering suspend while a named lock is held.
type Locker interface {
	Lock(name string, timeout time.Duration) error
	Unlock(name string) error
}

type Opts struct {
	Logger *slog.Logger
}

type Opt func(*Opts)

func WithLogger(logger *slog.Logger) Opt {
	return func(o *Opts) {
		o.Logger = logger
	}
}

// Guard holds a wake lock for a while after every report. Re-arming while the
// lock is held extends the hold; only the latest arm may release it.
type Guard struct {
	mx     sync.Mutex
	locker Locker
	name   string
	config Opts
	timer  *time.Timer
	gen    uint64
	held   bool
}

func NewGuard(locker Locker, name string, opts ...Opt) *Guard {
	config := Opts{Logger: slog.Default()}
	for _, opt := range opts {
		opt(&config)
	}
	return &Guard{locker: locker, name: name, config: config}
}

// Arm holds the lock for d from now. Lock failures are logged, the caller
// never waits on them.
func (g *Guard) Arm(d time.Duration) {
	if d <= 0 {
		return
	}
	g.mx.Lock()
	defer g.mx.Unlock()
	g.gen++
	gen := g.gen
	if err := g.locker.Lock(g.name, d); err != nil {
		g.config.Logger.Warn("could not acquire wake lock", "name", g.name, "error", err)
	} else {
		g.held = true
	}
	if g.timer != nil {
		g.timer.Stop()
	}
	g.timer = time.AfterFunc(d, func() {
		g.expire(gen)
	})
}

func (g *Guard) expire(gen uint64) {
	g.mx.Lock()
	defer g.mx.Unlock()
	if gen != g.gen || !g.held {
		return
	}
	g.held = false
	if err := g.locker.Unlock(g.name); err != nil {
		g.config.Logger.Warn("could not release wake lock", "name", g.name, "error", err)
	}
}

func (g *Guard) Held() bool {
	g.mx.Lock()
	defer g.mx.Unlock()
	return g.held
}

// Close cancels a pending hold and releases the lock immediately.
func (g *Guard) Close() error {
	g.mx.Lock()
	defer g.mx.Unlock()
	g.gen++
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	if !g.held {
		return nil
	}
	g.held = false
	return g.locker.Unlock(g.name)
}

package cm3602

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"
)

var (
	statusNear = [StatusLen]byte{0xFF, 0xFE, 0xFF}
	statusFar  = [StatusLen]byte{0x00, 0x01, 0x00}
)

// mockHardware is a testify mock of the microP status and power commands.
type mockHardware struct {
	mock.Mock
	concurrentOps int64
	maxConcurrent int64
	mu            sync.Mutex
}

func (m *mockHardware) enter() {
	m.mu.Lock()
	concurrent := atomic.AddInt64(&m.concurrentOps, 1)
	if concurrent > atomic.LoadInt64(&m.maxConcurrent) {
		atomic.StoreInt64(&m.maxConcurrent, concurrent)
	}
	m.mu.Unlock()
}

func (m *mockHardware) leave() {
	atomic.AddInt64(&m.concurrentOps, -1)
}

func (m *mockHardware) ReadStatus(ctx context.Context) ([StatusLen]byte, error) {
	m.enter()
	defer m.leave()
	args := m.Called(ctx)
	return args.Get(0).([StatusLen]byte), args.Error(1)
}

func (m *mockHardware) SetPower(ctx context.Context, on bool) error {
	m.enter()
	defer m.leave()
	args := m.Called(ctx, on)
	return args.Error(0)
}

// recordingPublisher keeps every synced reading in order.
type recordingPublisher struct {
	mu      sync.Mutex
	pending []Reading
	synced  []Reading
}

func (p *recordingPublisher) Publish(r Reading) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, r)
}

func (p *recordingPublisher) Sync() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.synced = append(p.synced, p.pending...)
	p.pending = nil
}

func (p *recordingPublisher) events() []Reading {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Reading(nil), p.synced...)
}

type recordingWakeGuard struct {
	mu   sync.Mutex
	arms []time.Duration
}

func (w *recordingWakeGuard) Arm(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.arms = append(w.arms, d)
}

func (w *recordingWakeGuard) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.arms)
}

func newTestSensor(opts ...SensorOpt) (*Sensor, *mockHardware, *recordingPublisher, *recordingWakeGuard) {
	hw := new(mockHardware)
	pub := new(recordingPublisher)
	wake := new(recordingWakeGuard)
	return NewSensor(hw, hw, pub, wake, opts...), hw, pub, wake
}

package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/proximity/cm3602"
	"github.com/mklimuk/proximity/input"
	"github.com/mklimuk/proximity/pkg/config"
)

func TestMockHardware_EndToEnd(t *testing.T) {
	cfg := config.Default()
	cfg.Adapter = config.AdapterMock
	cfg.Wake.Backend = config.WakeNone
	ctx := context.Background()

	hw, err := openHardware(ctx, cfg, true)
	require.NoError(t, err)
	defer hw.Close()
	require.NotNil(t, hw.interrupts)
	guard := newWakeGuard(cfg)
	defer func() { _ = guard.Close() }()
	events := input.NewDevice("proximity", int32(cm3602.Near), int32(cm3602.Far))

	dev, err := cm3602.Attach(ctx, cm3602.Config{
		Status:     hw.status,
		Power:      hw.power,
		Publisher:  events,
		Wake:       guard,
		Interrupts: hw.interrupts,
	}, cm3602.WithWakeDuration(10*time.Millisecond))
	require.NoError(t, err)
	readings, cancel := events.Subscribe(8)
	defer cancel()

	require.NoError(t, dev.StoreAttr(ctx, "1\n"))
	assert.Equal(t, "proximity enabled = 1\n", dev.ShowAttr())

	first := <-readings
	assert.Equal(t, cm3602.Unknown, first.Reading())
	second := <-readings
	assert.Equal(t, cm3602.Far, second.Reading())

	dev.Detach(ctx)
	assert.False(t, dev.GetEnabled())
}

func TestOpenHardware_OneShotMock(t *testing.T) {
	cfg := config.Default()
	cfg.Adapter = config.AdapterMock

	hw, err := openHardware(context.Background(), cfg, false)
	require.NoError(t, err)
	defer hw.Close()

	assert.Nil(t, hw.interrupts)
	status, err := hw.status.ReadStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cm3602.Far, cm3602.Decode(status))
}

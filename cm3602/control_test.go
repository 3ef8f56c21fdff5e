package cm3602

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/proximity/snsctx"
)

func TestControl_ShowAttr(t *testing.T) {
	s, hw, _, _ := newTestSensor()
	hw.On("SetPower", mock.Anything, true).Return(nil).Once()
	hw.On("ReadStatus", mock.Anything).Return(statusNear, nil).Once()
	c := NewControl(s)

	assert.Equal(t, "proximity enabled = 0\n", c.ShowAttr())
	require.NoError(t, s.Enable(context.Background()))
	assert.Equal(t, "proximity enabled = 1\n", c.ShowAttr())
}

func TestControl_StoreAttr(t *testing.T) {
	tests := []struct {
		given   string
		enabled bool
		invalid bool
	}{
		{given: "1", enabled: true},
		{given: " 1\n", enabled: true},
		{given: "\t1 ", enabled: true},
		{given: "0", enabled: false},
		{given: "0\n", enabled: false},
		{given: "2", invalid: true},
		{given: "-1", invalid: true},
		{given: "", invalid: true},
		{given: "on", invalid: true},
		{given: "10", invalid: true},
		{given: "1 1", invalid: true},
	}
	for _, tt := range tests {
		t.Run(tt.given, func(t *testing.T) {
			s, hw, _, _ := newTestSensor()
			hw.On("SetPower", mock.Anything, true).Return(nil).Maybe()
			hw.On("ReadStatus", mock.Anything).Return(statusFar, nil).Maybe()
			c := NewControl(s)

			err := c.StoreAttr(context.Background(), tt.given)

			if tt.invalid {
				assert.ErrorIs(t, err, ErrInvalidArgument)
				hw.AssertNotCalled(t, "SetPower", mock.Anything, mock.Anything)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.enabled, c.GetEnabled())
		})
	}
}

func TestControl_StoreAttrKeepsStateOnInvalidInput(t *testing.T) {
	s, hw, _, _ := newTestSensor()
	hw.On("SetPower", mock.Anything, true).Return(nil).Once()
	hw.On("ReadStatus", mock.Anything).Return(statusFar, nil).Once()
	c := NewControl(s)
	ctx := context.Background()
	require.NoError(t, c.StoreAttr(ctx, "1"))

	assert.ErrorIs(t, c.StoreAttr(ctx, "x"), ErrInvalidArgument)
	assert.True(t, c.GetEnabled())
	hw.AssertExpectations(t)
}

func TestControl_StoreAttrPropagatesPowerError(t *testing.T) {
	s, hw, _, _ := newTestSensor()
	hw.On("SetPower", mock.Anything, true).Return(errors.New("nack")).Once()
	c := NewControl(s)

	err := c.StoreAttr(context.Background(), "1")

	assert.ErrorIs(t, err, ErrBus)
	assert.False(t, c.GetEnabled())
}

func TestControl_Ioctl(t *testing.T) {
	s, hw, _, _ := newTestSensor()
	hw.On("SetPower", mock.Anything, true).Return(nil).Once()
	hw.On("ReadStatus", mock.Anything).Return(statusNear, nil).Once()
	hw.On("SetPower", mock.Anything, false).Return(nil).Once()
	c := NewControl(s)
	ctx := context.Background()

	arg := 7
	require.NoError(t, c.Ioctl(ctx, IoctlEnable, &arg))
	arg = -1
	require.NoError(t, c.Ioctl(ctx, IoctlGetEnabled, &arg))
	assert.Equal(t, 1, arg)

	arg = 0
	require.NoError(t, c.Ioctl(ctx, IoctlEnable, &arg))
	arg = -1
	require.NoError(t, c.Ioctl(ctx, IoctlGetEnabled, &arg))
	assert.Equal(t, 0, arg)

	assert.ErrorIs(t, c.Ioctl(ctx, 42, &arg), ErrInvalidArgument)
	assert.ErrorIs(t, c.Ioctl(ctx, IoctlEnable, nil), ErrInvalidArgument)
	hw.AssertExpectations(t)
}

func TestControl_SessionExclusive(t *testing.T) {
	s, _, _, _ := newTestSensor()
	c := NewControl(s)
	ctx := context.Background()

	sctx, err := c.Open(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, snsctx.Session(sctx))
	assert.Equal(t, snsctx.Session(sctx), c.Session())

	_, err = c.Open(ctx)
	assert.ErrorIs(t, err, ErrBusy)

	c.Close(sctx)
	assert.Empty(t, c.Session())

	_, err = c.Open(ctx)
	assert.NoError(t, err)
}

func TestControl_CloseForcesDisable(t *testing.T) {
	s, hw, _, _ := newTestSensor()
	hw.On("SetPower", mock.Anything, true).Return(nil).Once()
	hw.On("ReadStatus", mock.Anything).Return(statusNear, nil).Once()
	hw.On("SetPower", mock.Anything, false).Return(nil).Once()
	c := NewControl(s)
	ctx, err := c.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.SetEnabled(ctx, true))

	c.Close(ctx)

	assert.False(t, c.GetEnabled())
	hw.AssertExpectations(t)
}

func TestControl_CloseReleasesSessionOnPowerFailure(t *testing.T) {
	s, hw, _, _ := newTestSensor()
	hw.On("SetPower", mock.Anything, true).Return(nil).Once()
	hw.On("ReadStatus", mock.Anything).Return(statusNear, nil).Once()
	hw.On("SetPower", mock.Anything, false).Return(errors.New("nack")).Once()
	c := NewControl(s)
	ctx, err := c.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.SetEnabled(ctx, true))

	c.Close(ctx)

	_, err = c.Open(context.Background())
	assert.NoError(t, err)
}

func TestControl_ScenarioEnableInterruptsDisable(t *testing.T) {
	s, hw, pub, wake := newTestSensor()
	hw.On("SetPower", mock.Anything, true).Return(nil).Once()
	hw.On("ReadStatus", mock.Anything).Return(statusFar, nil).Once()
	hw.On("ReadStatus", mock.Anything).Return(statusNear, nil).Once()
	hw.On("SetPower", mock.Anything, false).Return(nil).Once()
	c := NewControl(s)
	d := NewDispatcher(s)
	ctx := context.Background()

	require.NoError(t, c.StoreAttr(ctx, "1"))
	assert.True(t, c.GetEnabled())
	assert.Equal(t, []Reading{Unknown, Far}, pub.events())

	d.Notify()
	d.Notify()
	d.Notify()
	d.Start(ctx)
	drain(t, d)
	hw.AssertNumberOfCalls(t, "ReadStatus", 2)
	assert.Equal(t, []Reading{Unknown, Far, Near}, pub.events())
	assert.Equal(t, []time.Duration{DefaultWakeDuration, DefaultWakeDuration}, wake.arms)

	require.NoError(t, c.StoreAttr(ctx, "0"))
	assert.False(t, c.GetEnabled())

	d.Notify()
	d.Start(ctx)
	drain(t, d)
	assert.Equal(t, []Reading{Unknown, Far, Near}, pub.events())
	hw.AssertExpectations(t)
}

package i2c

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

func TestGenericBus_ReadWrite(t *testing.T) {
	playback := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x66, W: []byte{0x82}},
			{Addr: 0x66, R: []byte{0x00, 0x01, 0x00}},
		},
	}
	bus := NewBus(playback)
	ctx := context.Background()

	require.NoError(t, bus.WriteToAddr(ctx, 0x66, []byte{0x82}))
	buf := make([]byte, 3)
	require.NoError(t, bus.ReadFromAddr(ctx, 0x66, buf))
	assert.Equal(t, []byte{0x00, 0x01, 0x00}, buf)
	assert.NoError(t, bus.Release(ctx))
	assert.NoError(t, bus.Close())
}

func TestGenericBus_UnexpectedTransaction(t *testing.T) {
	playback := &i2ctest.Playback{
		Ops:       []i2ctest.IO{{Addr: 0x66, W: []byte{0x82}}},
		DontPanic: true,
	}
	bus := NewBus(playback)

	err := bus.WriteToAddr(context.Background(), 0x10, []byte{0x82})

	assert.ErrorContains(t, err, "could not write to i2c bus 10")
}

func TestGenericBus_SetSpeed(t *testing.T) {
	bus := NewBus(&i2ctest.Playback{})

	assert.NoError(t, bus.SetSpeed(100*physic.KiloHertz))
}

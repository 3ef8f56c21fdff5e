package cm3602

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		given    [StatusLen]byte
		expected Reading
	}{
		{[StatusLen]byte{0x00, 0x00, 0x00}, Near},
		{[StatusLen]byte{0x00, 0x01, 0x00}, Far},
		{[StatusLen]byte{0xFF, 0xFE, 0xFF}, Near},
		{[StatusLen]byte{0xFF, 0xFF, 0xFF}, Far},
		{[StatusLen]byte{0x01, 0x10, 0x01}, Near},
		{[StatusLen]byte{0xAA, 0x81, 0x55}, Far},
	}
	for _, test := range tests {
		t.Run(hex.EncodeToString(test.given[:]), func(t *testing.T) {
			assert.Equal(t, test.expected, Decode(test.given))
		})
	}
}

func TestDecode_IgnoresReservedBits(t *testing.T) {
	for x := 0; x < 256; x += 17 {
		for y := 0; y < 256; y += 13 {
			assert.Equal(t, Near, Decode([StatusLen]byte{byte(x), 0b00000000, byte(y)}))
			assert.Equal(t, Far, Decode([StatusLen]byte{byte(x), 0b00000001, byte(y)}))
		}
	}
}

func TestReading_String(t *testing.T) {
	assert.Equal(t, "NEAR", Near.String())
	assert.Equal(t, "FAR", Far.String())
	assert.Equal(t, "UNKNOWN", Unknown.String())
	assert.Equal(t, int8(-1), int8(Unknown))
}

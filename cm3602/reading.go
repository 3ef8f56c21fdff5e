package cm3602

// StatusLen is the size of the microP GPIO status block read on every report.
const StatusLen = 3

// Reading is the absolute distance reported to consumers.
type Reading int8

const (
	// Unknown resets the consumer's last known state when the sensor is enabled.
	Unknown Reading = -1
	Near    Reading = 0
	Far     Reading = 1
)

// proximity output lives on bit 0 of the second status byte (1 = far)
const statusBitFar = 0x01

func (r Reading) String() string {
	switch r {
	case Near:
		return "NEAR"
	case Far:
		return "FAR"
	default:
		return "UNKNOWN"
	}
}

// Decode converts a raw status block into a reading. Reserved bits and bytes
// are ignored so that newer microP firmware keeps working.
func Decode(status [StatusLen]byte) Reading {
	if status[1]&statusBitFar != 0 {
		return Far
	}
	return Near
}

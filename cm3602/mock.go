package cm3602

import (
	"context"
)

// StatusBehaviorFunc produces a raw status block or an error.
type StatusBehaviorFunc func(ctx context.Context) ([StatusLen]byte, error)

// PowerBehaviorFunc is called on every power transition.
type PowerBehaviorFunc func(ctx context.Context, on bool) error

// MockProximityHardware stands in for the microP when no hardware is
// available. It satisfies both StatusReader and PowerSwitch.
//
// Example usage:
//
//	far := true
//	hw := NewMockProximityHardware(
//		func(ctx context.Context) ([StatusLen]byte, error) {
//			if far {
//				return [StatusLen]byte{0x00, 0x01, 0x00}, nil
//			}
//			return [StatusLen]byte{}, nil
//		},
//		nil,
//	)
type MockProximityHardware struct {
	status StatusBehaviorFunc
	power  PowerBehaviorFunc
}

// NewMockProximityHardware creates mock hardware. A nil power behavior
// accepts every power transition.
func NewMockProximityHardware(status StatusBehaviorFunc, power PowerBehaviorFunc) *MockProximityHardware {
	if power == nil {
		power = func(ctx context.Context, on bool) error { return nil }
	}
	return &MockProximityHardware{status: status, power: power}
}

// ReadStatus returns the status block by calling the status behavior function.
func (m *MockProximityHardware) ReadStatus(ctx context.Context) ([StatusLen]byte, error) {
	return m.status(ctx)
}

// SetPower calls the power behavior function.
func (m *MockProximityHardware) SetPower(ctx context.Context, on bool) error {
	return m.power(ctx, on)
}

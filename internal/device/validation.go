package device

import (
	"fmt"
	"math"
	"strings"
)

const maxNameLength = 100

// ValidateDevice checks a stored device: a positive ID, a non-empty name of
// at most 100 characters and a finite, non-negative power draw.
func ValidateDevice(d *Device) error {
	if d == nil {
		return fmt.Errorf("%w: device is nil", ErrInvalidDevice)
	}
	if d.ID <= 0 {
		return fmt.Errorf("%w: id must be positive, got %d", ErrInvalidDevice, d.ID)
	}
	return validateFields(d)
}

// validateNewDevice is ValidateDevice for devices that may not have an ID
// yet; the store assigns one when ID is zero.
func validateNewDevice(d *Device) error {
	if d == nil {
		return fmt.Errorf("%w: device is nil", ErrInvalidDevice)
	}
	if d.ID < 0 {
		return fmt.Errorf("%w: id must not be negative, got %d", ErrInvalidDevice, d.ID)
	}
	return validateFields(d)
}

func validateFields(d *Device) error {
	if err := ValidateName(d.Name); err != nil {
		return err
	}
	if math.IsNaN(d.PowerWatts) || math.IsInf(d.PowerWatts, 0) || d.PowerWatts < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidPower, d.PowerWatts)
	}
	return nil
}

// ValidateName checks that a device name is present and not too long.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if len([]rune(trimmed)) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

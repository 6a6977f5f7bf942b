package device

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestValidateDevice(t *testing.T) {
	tests := []struct {
		name    string
		device  *Device
		wantErr error
	}{
		{name: "valid", device: &Device{ID: 1, Name: "Lamp", PowerWatts: 60}},
		{name: "zero watts", device: &Device{ID: 1, Name: "Sensor"}},
		{name: "nil", device: nil, wantErr: ErrInvalidDevice},
		{name: "zero id", device: &Device{Name: "Lamp"}, wantErr: ErrInvalidDevice},
		{name: "empty name", device: &Device{ID: 1}, wantErr: ErrInvalidName},
		{name: "long name", device: &Device{ID: 1, Name: strings.Repeat("x", 101)}, wantErr: ErrInvalidName},
		{name: "100 char name", device: &Device{ID: 1, Name: strings.Repeat("x", 100)}},
		{name: "negative watts", device: &Device{ID: 1, Name: "Lamp", PowerWatts: -0.5}, wantErr: ErrInvalidPower},
		{name: "NaN watts", device: &Device{ID: 1, Name: "Lamp", PowerWatts: math.NaN()}, wantErr: ErrInvalidPower},
		{name: "infinite watts", device: &Device{ID: 1, Name: "Lamp", PowerWatts: math.Inf(1)}, wantErr: ErrInvalidPower},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDevice(tt.device)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDevice() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDevice() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

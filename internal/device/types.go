package device

import "time"

// Device is a switchable load known to the energy monitor.
//
// ID is the stable lookup key. Toggling a device changes IsOn only; Name and
// PowerWatts are set when the device is created.
type Device struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`

	// IsOn reports whether the device is currently drawing power.
	IsOn bool `json:"is_on"`

	// PowerWatts is the draw while on. It is kept while the device is off
	// but ignored by usage calculations.
	PowerWatts float64 `json:"power_watts"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ActiveWatts returns the power the device draws right now: PowerWatts when
// on, zero when off.
func (d Device) ActiveWatts() float64 {
	if !d.IsOn {
		return 0
	}
	return d.PowerWatts
}

// Package device provides the Device Registry for Gray Logic Energy.
//
// A device is a switchable load: it has a stable integer id, a display name,
// an on/off state and a power draw in watts. The Registry toggles devices and
// reports which ones are currently drawing power; persistence is delegated to
// a Repository (SQLite in production, in-memory for tests and dry runs).
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db.DB)
//	registry := device.NewRegistry(repo)
//	registry.SetLogger(log)
//
//	on, err := registry.ToggleDevice(ctx, 3, true)
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // unknown id, nothing was written
//	}
//
//	active, _ := registry.GetActiveDevices(ctx)
//
// # Thread Safety
//
// The Registry holds no mutable state of its own. Concurrent toggles of the
// same device are serialised by the Repository, last write wins.
package device

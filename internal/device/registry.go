package device

import (
	"context"
	"fmt"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry switches devices on and off and answers which are active.
//
// It keeps no cache: every call reads through to the Repository, so readings
// taken by the energy monitor always see the latest toggles.
type Registry struct {
	repo   Repository
	logger Logger
}

// NewRegistry creates a new device registry backed by repo.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// ToggleDevice sets the on/off state of a device and persists it.
//
// The device is written exactly once even when it is already in the
// requested state. An unknown id yields ErrDeviceNotFound and nothing is
// written. On success the returned state equals on.
func (r *Registry) ToggleDevice(ctx context.Context, id int64, on bool) (bool, error) {
	d, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}

	d.IsOn = on
	if err := r.repo.Update(ctx, d); err != nil {
		return false, fmt.Errorf("saving device %d: %w", id, err)
	}

	r.logger.Info("device toggled", "id", id, "name", d.Name, "on", on)
	return d.IsOn, nil
}

// GetActiveDevices returns every device that is on, in store order.
// The result is empty, never nil, when no device is on.
func (r *Registry) GetActiveDevices(ctx context.Context) ([]Device, error) {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	return FilterActive(devices), nil
}

// GetDevice retrieves a device by ID.
// Returns ErrDeviceNotFound if the device does not exist.
func (r *Registry) GetDevice(ctx context.Context, id int64) (*Device, error) {
	return r.repo.GetByID(ctx, id)
}

// ListDevices retrieves all devices in store order.
func (r *Registry) ListDevices(ctx context.Context) ([]Device, error) {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	if devices == nil {
		devices = []Device{}
	}
	return devices, nil
}

// FilterActive returns the devices that are on, preserving order.
func FilterActive(devices []Device) []Device {
	active := make([]Device, 0, len(devices))
	for _, d := range devices {
		if d.IsOn {
			active = append(active, d)
		}
	}
	return active
}

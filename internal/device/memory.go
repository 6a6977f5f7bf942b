package device

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository that keeps devices in
// insertion order. Returned devices are copies.
type MemoryRepository struct {
	mu      sync.RWMutex
	devices []Device
}

// NewMemoryRepository creates a store seeded with devices.
func NewMemoryRepository(devices ...Device) *MemoryRepository {
	seeded := make([]Device, len(devices))
	copy(seeded, devices)
	return &MemoryRepository{devices: seeded}
}

func (m *MemoryRepository) indexOf(id int64) int {
	for i := range m.devices {
		if m.devices[i].ID == id {
			return i
		}
	}
	return -1
}

// GetByID retrieves a copy of the device with the given ID.
func (m *MemoryRepository) GetByID(_ context.Context, id int64) (*Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %d", ErrDeviceNotFound, id)
	}
	d := m.devices[i]
	return &d, nil
}

// List returns copies of all devices in insertion order.
func (m *MemoryRepository) List(_ context.Context) ([]Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Device, len(m.devices))
	copy(out, m.devices)
	return out, nil
}

// Create appends a device. A zero ID becomes one past the highest ID.
func (m *MemoryRepository) Create(_ context.Context, d *Device) error {
	if err := validateNewDevice(d); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if d.ID == 0 {
		for _, existing := range m.devices {
			d.ID = max(d.ID, existing.ID)
		}
		d.ID++
	} else if m.indexOf(d.ID) >= 0 {
		return fmt.Errorf("%w: %d", ErrDeviceExists, d.ID)
	}

	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now
	m.devices = append(m.devices, *d)
	return nil
}

// Update replaces the stored device with d.
func (m *MemoryRepository) Update(_ context.Context, d *Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(d.ID)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrDeviceNotFound, d.ID)
	}
	d.UpdatedAt = time.Now().UTC()
	m.devices[i] = *d
	return nil
}

// Delete removes a device by ID, keeping the order of the rest.
func (m *MemoryRepository) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrDeviceNotFound, id)
	}
	m.devices = append(m.devices[:i], m.devices[i+1:]...)
	return nil
}

package energy

import (
	"context"
	"testing"

	"github.com/nerrad567/gray-logic-energy/internal/device"
)

func newDeviceRepo(t *testing.T) *device.MemoryRepository {
	t.Helper()
	return device.NewMemoryRepository()
}

func createDevice(t *testing.T, repo *device.MemoryRepository, watts float64, on bool) {
	t.Helper()
	if err := repo.Create(context.Background(), &device.Device{Name: "load", PowerWatts: watts, IsOn: on}); err != nil {
		t.Fatalf("creating device: %v", err)
	}
}
